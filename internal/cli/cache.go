package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/matzehuels/inksite/pkg/buildinfo"
	"github.com/matzehuels/inksite/pkg/cache"
)

// cacheCommand creates the build cache management command.
func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the build cache",
		Long: `The build cache records, per document, the modification time its page
images were rendered from. The backend is chosen by the [cache] section of
the configuration file.`,
	}

	cmd.AddCommand(c.cacheShowCommand())
	cmd.AddCommand(c.cacheClearCommand())

	return cmd
}

// cacheShowCommand creates the "cache show" subcommand.
func (c *CLI) cacheShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <build-dir>",
		Short: "Show the build cache of a build directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			backend, err := c.openBackend(ctx, cfg, args[0])
			if err != nil {
				return err
			}
			defer backend.Close()

			bc, status, err := cache.Load(ctx, backend, buildinfo.CacheVersion())
			if err != nil {
				return err
			}

			printKeyValue("Backend", backend.Name())
			printKeyValue("Location", backend.Location())
			printKeyValue("Status", describeCache(status, bc.Len()))
			printKeyValue("Version", bc.Version)
			if status == cache.StatusStale {
				printWarning("Cache was written by another version and will be rebuilt")
			}
			return nil
		},
	}
}

// cacheClearCommand creates the "cache clear" subcommand.
func (c *CLI) cacheClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear <build-dir>",
		Short: "Clear the build cache so the next generate renders everything",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			backend, err := c.openBackend(ctx, cfg, args[0])
			if err != nil {
				return err
			}
			defer backend.Close()

			if err := backend.Clear(ctx); err != nil {
				return fmt.Errorf("clear %s: %w", backend.Location(), err)
			}
			printSuccess("Cleared build cache")
			printDetail("%s: %s", backend.Name(), backend.Location())
			return nil
		},
	}
}

// describeCache returns a one-line summary of a loaded cache.
func describeCache(status cache.Status, entries int) string {
	return status.String() + ", " + strconv.Itoa(entries) + " entries"
}
