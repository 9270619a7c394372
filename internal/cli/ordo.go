package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Nhatnguyen0000/Choir-sub000/internal/ordo"
)

// OrdoOptions holds flags for the ordo command.
type OrdoOptions struct {
	Month  int
	Year   int
	Format string
}

// NewOrdoCommand creates the ordo command. It needs no config.
func NewOrdoCommand(_ *RootOptions) *cobra.Command {
	now := time.Now()
	opts := &OrdoOptions{}

	cmd := &cobra.Command{
		Use:   "ordo",
		Short: "Print the liturgical calendar of one month",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Month < 1 || opts.Month > 12 {
				return fmt.Errorf("--month must be 1-12, got %d", opts.Month)
			}
			days := ordo.GetOrdoForMonth(opts.Month, opts.Year)
			switch opts.Format {
			case "text":
				return ordo.WriteText(cmd.OutOrStdout(), days)
			case "json":
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(days)
			default:
				return fmt.Errorf("invalid format %q: must be text or json", opts.Format)
			}
		},
	}

	cmd.Flags().IntVar(&opts.Month, "month", int(now.Month()), "month (1-12)")
	cmd.Flags().IntVar(&opts.Year, "year", now.Year(), "year")
	cmd.Flags().StringVar(&opts.Format, "format", "text", "output format (text|json)")

	return cmd
}
