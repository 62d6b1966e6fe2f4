package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/matzehuels/inksite/pkg/observability"
	"github.com/matzehuels/inksite/pkg/pipeline"
	"github.com/matzehuels/inksite/pkg/preview"
)

// serveOptions holds flags for the serve command.
type serveOptions struct {
	addr    string
	siteMap bool
}

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	opts := serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve <material-dir> <build-dir>",
		Short: "Preview the site and rebuild it on change",
		Long: `Serve generates the site, serves the build directory over HTTP and
regenerates it whenever the material directory or the theme changes.

Build status is reported on /healthz and build metrics on /metrics.`,
		Example: `  inksite serve ./material ./build
  inksite serve --addr :9000 ./material ./build`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd, args[0], args[1], opts)
		},
	}

	cmd.Flags().StringVar(&opts.addr, "addr", preview.DefaultAddr, "listen address")
	cmd.Flags().BoolVar(&opts.siteMap, "site-map", false, "also write the site map on every build")

	return cmd
}

func (c *CLI) runServe(cmd *cobra.Command, materialDir, buildDir string, opts serveOptions) error {
	ctx := cmd.Context()

	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}

	backend, err := c.openBackend(ctx, cfg, buildDir)
	if err != nil {
		return err
	}
	defer backend.Close()

	metrics := observability.NewMetrics()
	metrics.Register()
	defer observability.Reset()

	watch := []string{materialDir}
	if p := cfg.ThemePath(); p != "" {
		watch = append(watch, p)
	}

	build := func(ctx context.Context) error {
		prog := newProgress(c.Logger)
		// The theme is reloaded so template edits show up without a restart.
		genOpts, err := c.pipelineOptions(cfg, materialDir, buildDir, backend, generateOptions{siteMap: opts.siteMap})
		if err != nil {
			return err
		}
		result, err := pipeline.Generate(ctx, genOpts)
		if err != nil {
			return err
		}
		prog.done("generated site",
			"documents", result.Stats.Documents,
			"rendered", result.Stats.Rendered,
			"reused", result.Stats.Reused)
		return nil
	}

	srv := preview.New(preview.Options{
		Addr:     opts.addr,
		BuildDir: buildDir,
		Watch:    watch,
		Build:    build,
		Metrics:  metrics,
		Logger:   c.Logger,
	})

	printInfo("Serving %s on %s", buildDir, StyleLink.Render("http://"+opts.addr))
	printDetail("watching %d directories, press Ctrl-C to stop", len(watch))
	return srv.Run(ctx)
}
