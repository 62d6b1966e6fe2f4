package buildinfo

import (
	"strings"
	"testing"
)

func TestString(t *testing.T) {
	s := String()
	for _, want := range []string{Version, Commit, Date} {
		if !strings.Contains(s, want) {
			t.Errorf("String() = %q, should contain %q", s, want)
		}
	}
}

func TestCacheVersionTracksVersion(t *testing.T) {
	orig := Version
	defer func() { Version = orig }()

	Version = "v1.0.0"
	a := CacheVersion()
	Version = "v1.0.1"
	b := CacheVersion()
	if a == b {
		t.Errorf("CacheVersion() should change with Version, got %q twice", a)
	}
}
