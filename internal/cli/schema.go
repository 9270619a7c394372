package cli

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/Nhatnguyen0000/Choir-sub000/internal/storage"
)

// NewSchemaCommand prints the DDL to run on the hosted database.
func NewSchemaCommand(_ *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the SQL that creates the hosted tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := io.WriteString(cmd.OutOrStdout(), storage.HostedSchema)
			return err
		},
	}
}
