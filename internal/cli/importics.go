package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Nhatnguyen0000/Choir-sub000/internal/ics"
	appLog "github.com/Nhatnguyen0000/Choir-sub000/internal/log"
	"github.com/Nhatnguyen0000/Choir-sub000/internal/store"
)

// ImportOptions holds flags for the import-ics command.
type ImportOptions struct {
	*RootOptions
	Feed string
}

// NewImportICSCommand creates the import-ics command.
func NewImportICSCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ImportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "import-ics <file>",
		Short: "Import events from a local ICS file",
		Long: `Import the VEVENTs of an ICS file into the schedule.

Events are tagged with the feed id, so importing the same file again
updates changed events and removes ones that disappeared.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			body, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			feed := opts.Feed
			if feed == "" {
				feed = feedIDFromPath(args[0])
			}
			loc, err := location(cfg.Timezone)
			if err != nil {
				return err
			}

			backend, err := openBackend(cfg)
			if err != nil {
				return err
			}
			defer backend.Close()
			st := store.New(backend)
			defer st.Close()
			if err := st.Load(cmd.Context()); err != nil {
				return fmt.Errorf("load store: %w", err)
			}

			im := ics.NewImporter(nil, st, nil, loc)
			stats, err := im.Import(cmd.Context(), ics.Source{ID: feed, Name: filepath.Base(args[0])}, body)
			if err != nil {
				return err
			}
			appLog.Info("ics file imported", "file", args[0], "feed", feed)
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d added, %d updated, %d removed, %d unchanged\n",
				feed, stats.Added, stats.Updated, stats.Removed, stats.Unchanged)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Feed, "feed", "", "feed id for the imported events (default: file name)")

	return cmd
}

func feedIDFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
