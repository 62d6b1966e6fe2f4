package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/inksite/pkg/httputil"
	"github.com/matzehuels/inksite/pkg/pipeline"
	"github.com/matzehuels/inksite/pkg/source"
)

// fetchOptions holds flags for the fetch command.
type fetchOptions struct {
	siteRoot string
	workers  int
	token    string
}

// fetchCommand creates the fetch command.
func (c *CLI) fetchCommand() *cobra.Command {
	opts := fetchOptions{}

	cmd := &cobra.Command{
		Use:   "fetch <source> <material-dir>",
		Short: "Resolve the site folder and download its documents",
		Long: `Fetch reads a document store export, resolves the configured site root
into a manifest and downloads the archive of every document it names.

The store export holds documents.json (one record per document and folder)
and <id>.zip per document. It is either a local directory or an http(s)
URL serving the same layout. The material directory receives manifest.json
and zip/<id>.zip.`,
		Example: `  inksite fetch ./export ./material
  inksite fetch --root Blog ./export ./material
  inksite fetch --token $TOKEN https://store.example.com/export ./material`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runFetch(cmd, args[0], args[1], opts)
		},
	}

	cmd.Flags().StringVar(&opts.siteRoot, "root", "", "site root folder name or UUID (overrides site_root)")
	cmd.Flags().IntVarP(&opts.workers, "workers", "w", 0, "concurrent downloads (0 = one per CPU)")
	cmd.Flags().StringVar(&opts.token, "token", "", "bearer token for an http(s) source")

	return cmd
}

func (c *CLI) runFetch(cmd *cobra.Command, from, materialDir string, opts fetchOptions) error {
	ctx := cmd.Context()

	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	root := cfg.SiteRoot
	if opts.siteRoot != "" {
		root = opts.siteRoot
	}

	spinner := newSpinner(ctx, fmt.Sprintf("Fetching %s...", root))
	spinner.Start()

	result, err := pipeline.Fetch(ctx, c.openSource(from, opts.token), pipeline.FetchOptions{
		MaterialDir: materialDir,
		SiteRoot:    root,
		Workers:     opts.workers,
		Logger:      c.Logger,
	})
	if err != nil {
		spinner.StopWithError("Fetch failed")
		return err
	}
	spinner.Stop()

	printSuccess("Fetched %s", StyleValue.Render(root))
	printDetail("%d records listed, %d documents, %s downloaded",
		result.Records, result.Documents, formatBytes(result.Downloaded))
	printFile(materialDir)
	fmt.Println()
	printNextStep("Build the site", fmt.Sprintf("inksite generate %s build", materialDir))
	return nil
}

// openSource returns the document store named by from.
func (c *CLI) openSource(from, token string) source.Source {
	if !source.IsURL(from) {
		c.Logger.Debug("using export directory", "path", from)
		return source.NewDir(from)
	}
	var headers map[string]string
	if token != "" {
		headers = map[string]string{"Authorization": "Bearer " + token}
	}
	c.Logger.Debug("using remote export", "url", from)
	return source.NewHTTP(from, httputil.NewClient(nil, headers, httputil.DefaultPolicy))
}

// formatBytes formats a byte count for humans.
func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
