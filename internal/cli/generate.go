package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/inksite/pkg/cache"
	"github.com/matzehuels/inksite/pkg/config"
	"github.com/matzehuels/inksite/pkg/pipeline"
	"github.com/matzehuels/inksite/pkg/sitemap"
)

// generateOptions holds flags for the generate command.
type generateOptions struct {
	noCache bool
	workers int
	siteMap bool
	prefix  string
}

// generateCommand creates the generate command.
func (c *CLI) generateCommand() *cobra.Command {
	opts := generateOptions{}

	cmd := &cobra.Command{
		Use:   "generate <material-dir> <build-dir>",
		Short: "Render changed documents and write the site",
		Long: `Generate reads the manifest and archives written by fetch, re-renders
every document modified since the last build and writes the HTML site into
the build directory.

Unchanged documents reuse their page images from the previous build. Use
--no-cache to render everything again.`,
		Example: `  inksite generate ./material ./build
  inksite generate --no-cache --site-map ./material ./build`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runGenerate(cmd, args[0], args[1], opts)
		},
	}

	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "ignore the build cache and render every document")
	cmd.Flags().IntVarP(&opts.workers, "workers", "w", 0, "concurrent renders (0 = one per CPU)")
	cmd.Flags().BoolVar(&opts.siteMap, "site-map", false, "also write "+sitemap.FileName)
	cmd.Flags().StringVar(&opts.prefix, "prefix", "", "URL prefix of every link (overrides prefix)")

	return cmd
}

func (c *CLI) runGenerate(cmd *cobra.Command, materialDir, buildDir string, opts generateOptions) error {
	ctx := cmd.Context()

	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	if opts.prefix != "" {
		cfg.Prefix = opts.prefix
	}

	backend, err := c.openBackend(ctx, cfg, buildDir)
	if err != nil {
		return err
	}
	defer backend.Close()

	genOpts, err := c.pipelineOptions(cfg, materialDir, buildDir, backend, opts)
	if err != nil {
		return err
	}

	spinner := newSpinner(ctx, "Generating site...")
	spinner.Start()

	result, err := pipeline.Generate(ctx, genOpts)
	if err != nil {
		spinner.StopWithError("Generate failed")
		return err
	}
	spinner.Stop()

	printSuccess("Generated %s", StyleValue.Render(buildDir))
	printBuildStats(result.Stats)
	printDetail("build cache: %s (%s)", result.CacheStatus, backend.Location())
	if opts.siteMap {
		printFile(sitemap.FileName)
	}
	return nil
}

// pipelineOptions maps the configuration and flags onto pipeline options.
func (c *CLI) pipelineOptions(cfg *config.Config, materialDir, buildDir string, backend cache.Backend, opts generateOptions) (pipeline.GenerateOptions, error) {
	th, err := cfg.LoadTheme()
	if err != nil {
		return pipeline.GenerateOptions{}, err
	}
	c.Logger.Debug("using theme", "name", cfg.Theme, "path", cfg.ThemePath())

	return pipeline.GenerateOptions{
		MaterialDir: materialDir,
		BuildDir:    buildDir,
		Prefix:      cfg.Prefix,
		Title:       cfg.Title,
		Theme:       th,
		Backend:     backend,
		NoCache:     opts.noCache,
		Workers:     opts.workers,
		SiteMap:     opts.siteMap,
		Logger:      c.Logger,
	}, nil
}
