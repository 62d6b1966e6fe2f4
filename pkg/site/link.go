package site

import (
	"path/filepath"
	"strings"

	"github.com/matzehuels/inksite/pkg/errors"
)

// Sanitize turns a document or folder name into a path segment: every
// character other than an ASCII letter or digit becomes '-', and the result
// is lower-cased.
//
// Distinct names may sanitize to the same segment ("Foo Bar" and "Foo_Bar");
// such siblings overwrite each other's output.
func Sanitize(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
		default:
			b.WriteByte('-')
		}
	}
	return b.String()
}

// Link converts a physical path below root into a root-relative link:
// the root is stripped, the URL prefix prepended, and segments joined with
// '/'. Linking root itself yields the prefix.
func Link(root, prefix, path string) (string, error) {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", errors.New(errors.ErrCodeInternal, "path %s is outside output root %s", path, root)
	}
	if rel == "." {
		return prefix, nil
	}
	rel = filepath.ToSlash(rel)
	if strings.HasSuffix(prefix, "/") {
		return prefix + rel, nil
	}
	return prefix + "/" + rel, nil
}
