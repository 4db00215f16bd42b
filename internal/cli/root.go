// Package cli implements boirctl, the offline companion to the BOIR Hub
// server. It checks bulk upload files and renders BOIR XML without a
// database.
package cli

import (
	"errors"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// envConfig names the environment variable that points at the YAML config.
const envConfig = "BOIRHUB_CLI_CONFIG"

type options struct {
	configPath string
	envFile    string
	cfg        Config
}

// NewRootCmd builds the boirctl command tree.
func NewRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:   "boirctl",
		Short: "Check BOIR bulk uploads and render BOIR XML offline",
		Long: `boirctl runs the same row sanitizing and validation the server uses on
bulk uploads, and renders FinCEN BOIR XML from a filing snapshot, without a
database or network access.

Example Usage:
  boirctl headers > template.csv
  boirctl check companies.xlsx
  boirctl render filing.json -o boir.xml`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.load()
		},
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "YAML config with required-field lists (default $"+envConfig+")")
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file to load before reading the environment")

	root.AddCommand(newHeadersCmd(), newCheckCmd(opts), newRenderCmd(opts))
	return root
}

// Execute runs boirctl with os.Args.
func Execute() int {
	if err := NewRootCmd().Execute(); err != nil {
		return 1
	}
	return 0
}

func (o *options) load() error {
	if o.envFile != "" {
		if err := godotenv.Load(o.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	path := o.configPath
	if path == "" {
		path = os.Getenv(envConfig)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		return err
	}
	o.cfg = cfg
	return nil
}
