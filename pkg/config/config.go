// Package config loads the site configuration file.
//
// A site is configured by a small TOML file, inksite.toml by default:
//
//	site_root = "Blog"          # name or UUID of the root folder in the store
//	title     = "My Notes"
//	theme     = "default"       # "default" or a directory under themes/
//	prefix    = "/"             # URL prefix of every emitted link
//
//	[cache]
//	backend          = "file"   # "file", "redis" or "none"
//	redis_addr       = "localhost:6379"
//	redis_key_prefix = "inksite:render_cache:"
//
// Theme directories are resolved relative to the directory holding the
// configuration file.
package config

import (
	"bytes"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/inksite/pkg/cache"
	pkgerrors "github.com/matzehuels/inksite/pkg/errors"
	pkgio "github.com/matzehuels/inksite/pkg/io"
	"github.com/matzehuels/inksite/pkg/theme"
)

// FileName is the default configuration file name.
const FileName = "inksite.toml"

// DefaultTheme selects the theme built into the binary.
const DefaultTheme = "default"

// ThemesDir holds directory themes, relative to the configuration file.
const ThemesDir = "themes"

// Config is the site configuration.
type Config struct {
	SiteRoot string      `toml:"site_root"`
	Title    string      `toml:"title"`
	Theme    string      `toml:"theme"`
	Prefix   string      `toml:"prefix"`
	Cache    CacheConfig `toml:"cache"`

	// dir is the directory the configuration was loaded from.
	dir string
}

// CacheConfig selects the build cache backend.
type CacheConfig struct {
	Backend        string `toml:"backend"`
	RedisAddr      string `toml:"redis_addr,omitempty"`
	RedisKeyPrefix string `toml:"redis_key_prefix,omitempty"`
}

// Default returns a configuration with every optional field set.
func Default() *Config {
	return &Config{
		Theme:  DefaultTheme,
		Prefix: "/",
		Cache:  CacheConfig{Backend: cache.KindFile},
		dir:    ".",
	}
}

// Load reads and validates the configuration at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, pkgerrors.Wrap(pkgerrors.ErrCodeConfig, err, "no configuration at %s", path)
	}
	if err != nil {
		return nil, pkgerrors.IO(err, "read", path)
	}

	c, err := Parse(data)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.ErrCodeConfig, err, "%s", path)
	}
	c.dir = filepath.Dir(path)
	return c, nil
}

// Parse decodes and validates a TOML configuration. Unset fields take
// their defaults; unknown keys are rejected.
func Parse(data []byte) (*Config, error) {
	c := Default()
	md, err := toml.Decode(string(data), c)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.ErrCodeConfig, err, "decode configuration")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, pkgerrors.New(pkgerrors.ErrCodeConfig, "unknown configuration key %q", undecoded[0].String())
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks every field.
func (c *Config) Validate() error {
	if c.SiteRoot == "" {
		return pkgerrors.New(pkgerrors.ErrCodeConfig, "site_root is required")
	}
	if err := pkgerrors.ValidatePrefix(c.Prefix); err != nil {
		return pkgerrors.Wrap(pkgerrors.ErrCodeConfig, err, "prefix")
	}
	if err := pkgerrors.ValidateThemeName(c.Theme); err != nil {
		return pkgerrors.Wrap(pkgerrors.ErrCodeConfig, err, "theme")
	}
	switch c.Cache.Backend {
	case cache.KindFile, cache.KindNone:
	case cache.KindRedis:
		if c.Cache.RedisAddr == "" {
			return pkgerrors.New(pkgerrors.ErrCodeConfig, "cache backend %q requires redis_addr", c.Cache.Backend)
		}
	default:
		return pkgerrors.New(pkgerrors.ErrCodeConfig, "unknown cache backend %q", c.Cache.Backend)
	}
	return nil
}

// Save writes c to path as TOML, atomically.
func (c *Config) Save(path string) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return pkgerrors.Wrap(pkgerrors.ErrCodeInternal, err, "encode configuration")
	}
	if err := pkgio.WriteFileAtomic(path, buf.Bytes()); err != nil {
		return pkgerrors.IO(err, "write", path)
	}
	return nil
}

// ThemePath returns the directory of a directory theme, or "" for the
// built-in one.
func (c *Config) ThemePath() string {
	if c.Theme == DefaultTheme {
		return ""
	}
	return filepath.Join(c.dir, ThemesDir, c.Theme)
}

// LoadTheme loads the configured theme.
func (c *Config) LoadTheme() (theme.Theme, error) {
	p := c.ThemePath()
	if p == "" {
		return theme.Default(), nil
	}
	return theme.Load(p)
}

// CacheOptions returns the backend options for a build rooted at buildDir.
func (c *Config) CacheOptions(buildDir string) cache.Options {
	return cache.Options{
		Kind:      c.Cache.Backend,
		BuildDir:  buildDir,
		RedisAddr: c.Cache.RedisAddr,
		KeyPrefix: c.Cache.RedisKeyPrefix,
	}
}
