// Package config loads and saves the per-campaign configuration file kept
// at the vault root.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// FileName is the campaign configuration file at the vault root.
const FileName = "campaign.yaml"

// Config holds per-campaign tuning. Zero values are replaced by defaults on
// load so older config files keep working as fields are added.
type Config struct {
	// CampaignName labels the campaign in rendered output.
	CampaignName string `yaml:"campaign_name"`

	// ContinuityWindow bounds how many recent sessions feed the
	// recent-entity snapshot.
	ContinuityWindow int `yaml:"continuity_window"`

	// RecentEntityCap bounds the continuity snapshot's entity list.
	RecentEntityCap int `yaml:"recent_entity_cap"`

	// FuzzyThreshold is the minimum similarity for a fuzzy name match.
	// Below it, a new entity is always created. Kept high on purpose:
	// duplicate entities are repairable, wrongly merged ones are not.
	FuzzyThreshold float64 `yaml:"fuzzy_threshold"`

	// MergeRetries bounds retry attempts on transient I/O during commit.
	MergeRetries int `yaml:"merge_retries"`

	// RetryBackoffMs is the initial backoff between retries, doubled per
	// attempt.
	RetryBackoffMs int `yaml:"retry_backoff_ms"`

	// HeuristicThreshold is the mention count needed before the offline
	// summarizer promotes a capitalized candidate to an entity.
	HeuristicThreshold int `yaml:"heuristic_threshold"`
}

// Default returns the baseline configuration.
func Default() *Config {
	return &Config{
		CampaignName:       "Campaign",
		ContinuityWindow:   10,
		RecentEntityCap:    25,
		FuzzyThreshold:     0.84,
		MergeRetries:       5,
		RetryBackoffMs:     50,
		HeuristicThreshold: 2,
	}
}

// Load reads the config file from dir, filling defaults for missing fields.
// A missing file returns the defaults without error.
func Load(dir string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filepath.Join(dir, FileName))
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	return cfg, nil
}

// Save writes the config file into dir.
func Save(dir string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, FileName), data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func (c *Config) applyDefaults() {
	def := Default()
	if c.CampaignName == "" {
		c.CampaignName = def.CampaignName
	}
	if c.ContinuityWindow <= 0 {
		c.ContinuityWindow = def.ContinuityWindow
	}
	if c.RecentEntityCap <= 0 {
		c.RecentEntityCap = def.RecentEntityCap
	}
	if c.FuzzyThreshold <= 0 || c.FuzzyThreshold > 1 {
		c.FuzzyThreshold = def.FuzzyThreshold
	}
	if c.MergeRetries <= 0 {
		c.MergeRetries = def.MergeRetries
	}
	if c.RetryBackoffMs <= 0 {
		c.RetryBackoffMs = def.RetryBackoffMs
	}
	if c.HeuristicThreshold <= 0 {
		c.HeuristicThreshold = def.HeuristicThreshold
	}
}
