package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/dalemusser/boirhub/internal/app/system/boirxml"
	"github.com/spf13/cobra"
)

// ReadFiling decodes a filing snapshot: the JSON form of boirxml.Filing.
func ReadFiling(b []byte) (boirxml.Filing, error) {
	var f boirxml.Filing
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&f); err != nil {
		return f, fmt.Errorf("decode filing: %w", err)
	}
	return f, nil
}

func newRenderCmd(_ *options) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "render SNAPSHOT.json",
		Short: "Render BOIR XML from a filing snapshot",
		Long: `render reads a JSON filing snapshot (company, form, owners, applicants,
submitter) and writes the BOIR XML document. Attachments the document
references are listed on stderr.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			f, err := ReadFiling(b)
			if err != nil {
				return err
			}
			root, err := boirxml.Build(f)
			if err != nil {
				return err
			}
			doc, err := boirxml.Encode(root)
			if err != nil {
				return err
			}
			for _, a := range boirxml.Attachments(root) {
				fmt.Fprintf(cmd.ErrOrStderr(), "attachment: party %d %s\n", a.SeqNum, a.FileName)
			}

			if out == "" || out == "-" {
				_, err = cmd.OutOrStdout().Write(doc)
				return err
			}
			return os.WriteFile(out, doc, 0o644)
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "write XML to this file instead of stdout")
	return cmd
}
