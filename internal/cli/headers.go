package cli

import (
	"encoding/csv"

	"github.com/dalemusser/boirhub/internal/app/system/csvimport"
	"github.com/spf13/cobra"
)

func newHeadersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "headers",
		Short: "Print the bulk upload CSV header row",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := csv.NewWriter(cmd.OutOrStdout())
			if err := w.Write(csvimport.Headers()); err != nil {
				return err
			}
			w.Flush()
			return w.Error()
		},
	}
}
