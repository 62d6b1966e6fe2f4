// Package cli implements the inksite command-line interface.
package cli

import (
	"context"
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/inksite/pkg/buildinfo"
	"github.com/matzehuels/inksite/pkg/cache"
	"github.com/matzehuels/inksite/pkg/config"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	configPath string
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "inksite",
		Short: "inksite builds a static site from handwritten notebooks",
		Long: `inksite turns a folder of handwritten notebook documents into a static site:
one SVG per page, one HTML page per document and folder.

A build has two steps. "fetch" resolves the site folder in a document store
and downloads every document; "generate" renders what changed since the last
run and writes the HTML.`,
		Version:       buildinfo.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", config.FileName, "site configuration file")

	root.AddCommand(c.initCommand())
	root.AddCommand(c.fetchCommand())
	root.AddCommand(c.generateCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())

	return root
}

// loadConfig reads the configuration named by --config.
func (c *CLI) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return nil, err
	}
	c.Logger.Debug("loaded configuration", "path", c.configPath, "site_root", cfg.SiteRoot, "theme", cfg.Theme)
	return cfg, nil
}

// openBackend opens the configured build cache backend for buildDir.
func (c *CLI) openBackend(ctx context.Context, cfg *config.Config, buildDir string) (cache.Backend, error) {
	b, err := cache.Open(ctx, cfg.CacheOptions(buildDir))
	if err != nil {
		return nil, err
	}
	c.Logger.Debug("opened build cache", "backend", b.Name(), "location", b.Location())
	return b, nil
}
