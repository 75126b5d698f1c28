package feed

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/wangzetysx-web/crypto-policy-rss/internal/logger"
)

// Source is one configured RSS feed.
type Source struct {
	Name     string   `yaml:"name"`
	FullName string   `yaml:"full_name"`
	URL      string   `yaml:"url"`
	Tags     []string `yaml:"tags"`
	Enabled  *bool    `yaml:"enabled"`
}

type sourcesConfig struct {
	Feeds []Source `yaml:"feeds"`
}

// Item is a normalized feed entry. It lives for one run only.
type Item struct {
	ID         string
	Title      string
	TitleZH    string
	Link       string
	Summary    string
	SummaryZH  string
	Published  time.Time // always UTC
	Source     string
	SourceFull string
	Tags       []string
}

// LoadSources reads the feed list from a YAML file and drops disabled entries.
func LoadSources(path string) ([]Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read feeds config: %w", err)
	}

	var cfg sourcesConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse feeds config: %w", err)
	}

	var enabled []Source
	for _, s := range cfg.Feeds {
		if s.Enabled != nil && !*s.Enabled {
			continue
		}
		if s.FullName == "" {
			s.FullName = s.Name
		}
		enabled = append(enabled, s)
	}

	logger.Info("feed sources loaded", "total", len(cfg.Feeds), "enabled", len(enabled))
	return enabled, nil
}
