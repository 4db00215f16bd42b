package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dalemusser/boirhub/internal/app/system/csvimport"
	"github.com/dalemusser/boirhub/internal/app/system/fieldval"
	"github.com/spf13/cobra"
)

// RowCheck is the offline verdict for one upload row.
type RowCheck struct {
	Line       int      `json:"line"`
	Email      string   `json:"email,omitempty"`
	Company    string   `json:"company,omitempty"`
	Owners     int      `json:"owners"`
	Applicants int      `json:"applicants"`
	Rejected   bool     `json:"rejected"`
	Errors     []string `json:"errors,omitempty"`
	Reasons    []string `json:"reasons,omitempty"`
}

// CheckRows sanitizes and validates every row the way a bulk upload does,
// without touching storage.
func CheckRows(rows []csvimport.Row, val *fieldval.Validator) []RowCheck {
	san := csvimport.NewSanitizer()
	out := make([]RowCheck, 0, len(rows))
	for _, row := range rows {
		res := san.Sanitize(row)
		if !res.CompanyDeleted {
			val.ValidateRow(res)
		}
		rc := RowCheck{
			Line:       res.Line,
			Email:      res.User.Email,
			Owners:     len(res.Owners),
			Applicants: len(res.Applicants),
			Rejected:   res.CompanyDeleted,
			Errors:     res.Errors,
			Reasons:    res.Reasons,
		}
		if n := res.Company.Form.Names; n != nil && n.LegalName != nil {
			rc.Company = *n.LegalName
		}
		out = append(out, rc)
	}
	return out
}

func newCheckCmd(opts *options) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "check FILE",
		Short: "Sanitize and validate a CSV or XLSX bulk upload",
		Long: `check reads a bulk upload file and reports, per row, the errors and notes
the server would produce. It exits non-zero when any row would be rejected.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			rows, err := csvimport.Read(filepath.Base(args[0]), f)
			if err != nil {
				return err
			}
			checks := CheckRows(rows, fieldval.New(opts.cfg.Resolve()))

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(checks); err != nil {
					return err
				}
			} else {
				printChecks(cmd.OutOrStdout(), checks)
			}

			rejected := 0
			for _, c := range checks {
				if c.Rejected {
					rejected++
				}
			}
			if rejected > 0 {
				return fmt.Errorf("%d of %d rows would be rejected", rejected, len(checks))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "write the report as JSON")
	return cmd
}

func printChecks(w io.Writer, checks []RowCheck) {
	for _, c := range checks {
		status := "ok"
		if c.Rejected {
			status = "REJECTED"
		}
		fmt.Fprintf(w, "line %d: %s %q (%s) owners=%d applicants=%d\n",
			c.Line, status, c.Company, c.Email, c.Owners, c.Applicants)
		for _, e := range c.Errors {
			fmt.Fprintf(w, "  error: %s\n", e)
		}
		for _, r := range c.Reasons {
			fmt.Fprintf(w, "  note: %s\n", r)
		}
	}
	fmt.Fprintf(w, "%d rows checked\n", len(checks))
}
