package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/inksite/pkg/config"
	"github.com/matzehuels/inksite/pkg/errors"
)

// initOptions holds flags for the init command.
type initOptions struct {
	title string
	force bool
}

// initCommand creates the init command.
func (c *CLI) initCommand() *cobra.Command {
	opts := initOptions{}

	cmd := &cobra.Command{
		Use:   "init <site-root>",
		Short: "Write a default configuration file",
		Long: `Init writes a configuration file for the site rooted at the named folder
(or folder UUID) of the document store. Every other setting takes its
default and can be edited afterwards.

The file is written to the path given by --config and is never overwritten
unless --force is set.`,
		Example: `  inksite init Blog
  inksite init --title "My Notes" --config site/inksite.toml Blog`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runInit(args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.title, "title", "", "site title")
	cmd.Flags().BoolVarP(&opts.force, "force", "f", false, "overwrite an existing configuration")

	return cmd
}

func (c *CLI) runInit(siteRoot string, opts initOptions) error {
	if _, err := os.Stat(c.configPath); err == nil && !opts.force {
		return errors.New(errors.ErrCodeConfig, "%s already exists (use --force to overwrite)", c.configPath)
	}

	cfg := config.Default()
	cfg.SiteRoot = siteRoot
	cfg.Title = opts.title
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := cfg.Save(c.configPath); err != nil {
		return err
	}
	c.Logger.Debug("wrote configuration", "path", c.configPath, "site_root", siteRoot)

	printSuccess("Configured %s", StyleValue.Render(siteRoot))
	printFile(c.configPath)
	fmt.Println()
	printNextStep("Download the site", "inksite fetch <source> material")
	return nil
}
