package cli

import (
	"bytes"
	"fmt"
	"os"

	"github.com/dalemusser/boirhub/internal/app/system/completeness"
	"gopkg.in/yaml.v3"
)

// Config is the boirctl YAML file. Empty lists keep the BOIR defaults.
//
//	requirements:
//	  company: [names.legal_name, tax_info.tax_id_type]
//	  owner: [personal_info.last_name]
type Config struct {
	Requirements struct {
		Company     []string `yaml:"company"`
		Owner       []string `yaml:"owner"`
		Applicant   []string `yaml:"applicant"`
		ExemptOwner []string `yaml:"exempt_owner"`
	} `yaml:"requirements"`
}

// LoadConfig reads path. An empty path returns the zero Config.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Resolve merges the configured lists over the defaults.
func (c Config) Resolve() completeness.Requirements {
	req := completeness.DefaultRequirements()
	if len(c.Requirements.Company) > 0 {
		req.Company = c.Requirements.Company
	}
	if len(c.Requirements.Owner) > 0 {
		req.Owner = c.Requirements.Owner
	}
	if len(c.Requirements.Applicant) > 0 {
		req.Applicant = c.Requirements.Applicant
	}
	if len(c.Requirements.ExemptOwner) > 0 {
		req.ExemptOwner = c.Requirements.ExemptOwner
	}
	return req
}
