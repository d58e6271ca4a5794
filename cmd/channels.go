package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/gkertesz/tvgrab/internal/catalog"
)

// newChannelsCmd creates the 'channels' subcommand, which prints the channel
// catalog of the source site without grabbing anything.
func newChannelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "channels",
		Short: "Lists the channels available from the source site",
		RunE:  runChannelsCommand,
	}
}

func runChannelsCommand(cmd *cobra.Command, _ []string) error {
	app, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}

	fetcher := buildFetcher(app.cfg, app.logger)
	cat := catalog.New(fetcher, catalog.Config{
		URL:        app.cfg.Site.CatalogURL,
		PathPrefix: app.cfg.Site.ChannelPathPrefix,
	}, app.logger)

	channels, err := cat.Discover(cmd.Context())
	if err != nil {
		return fmt.Errorf("discover channels: %w", err)
	}

	ids := make([]string, 0, len(channels))
	for id := range channels {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", id, channels[id].DisplayName)
	}
	return nil
}
