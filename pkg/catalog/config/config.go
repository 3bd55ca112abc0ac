// Package config loads the YAML files that parameterize a catalog
// build: language packs for the normalizer and batch-job settings.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/tabellarius/pkg/catalog/internalerr"
	"github.com/cognicore/tabellarius/pkg/catalog/normalize"
)

// LanguagePackFile is the YAML shape of a language pack.
type LanguagePackFile struct {
	Language          string   `yaml:"language"`
	Stopwords         []string `yaml:"stopwords"`
	CompanyStopwords  []string `yaml:"company_stopwords"`
	Protected         []string `yaml:"protected"`
	TitlePrefixes     []string `yaml:"title_prefixes"`
	TitleSuffixes     []string `yaml:"title_suffixes"`
	ProtectedSuffixes []string `yaml:"protected_suffixes"`
}

// LoadLanguagePack reads a language pack from a YAML file.
func LoadLanguagePack(path string) (*normalize.LanguagePack, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f LanguagePackFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("load language pack: %w", err)
	}
	if f.Language == "" {
		return nil, fmt.Errorf("load language pack %s: missing language: %w",
			path, internalerr.ErrInvalidConfig)
	}
	return normalize.NewLanguagePack(f.Language, f.Stopwords,
		f.CompanyStopwords, f.Protected, f.TitlePrefixes, f.TitleSuffixes,
		f.ProtectedSuffixes), nil
}

// EntitySelector names one slice of the observation tables to rebuild.
type EntitySelector struct {
	Type     string `yaml:"type"`
	Source   string `yaml:"source"`
	Language string `yaml:"language"`
}

// JobConfig holds settings for a catalog-rebuild run.
type JobConfig struct {
	Database    string           `yaml:"database"`
	Batches     int              `yaml:"batches"`
	Concurrency int              `yaml:"concurrency"`
	BatchSize   int              `yaml:"batch_size"`
	Entities    []EntitySelector `yaml:"entities"`
}

// LoadJobConfig reads a job configuration from a YAML file and applies
// defaults for unset knobs.
func LoadJobConfig(path string) (*JobConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg JobConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("load job config: %w", err)
	}
	if cfg.Database == "" {
		return nil, fmt.Errorf("load job config %s: missing database: %w",
			path, internalerr.ErrInvalidConfig)
	}
	if cfg.Batches <= 0 {
		cfg.Batches = 1
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 1000
	}
	for _, sel := range cfg.Entities {
		if !normalize.ValidType(sel.Type) || sel.Source == "" || sel.Language == "" {
			return nil, fmt.Errorf("load job config %s: bad entity selector %+v: %w",
				path, sel, internalerr.ErrInvalidConfig)
		}
	}
	return &cfg, nil
}
