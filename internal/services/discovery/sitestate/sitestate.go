// Package sitestate holds site-wide settings and the site fields discovery
// lists publish back, such as top tags.
package sitestate

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/louisbranch/topicfeed/internal/services/discovery/domain"
)

// Settings are the site settings discovery reads.
type Settings struct {
	DesktopCategoryPageStyle string `yaml:"desktop_category_page_style"`
	Homepage                 string `yaml:"homepage"`
	DefaultLocale            string `yaml:"default_locale"`
}

// DefaultSettings mirrors a fresh site.
func DefaultSettings() Settings {
	return Settings{
		DesktopCategoryPageStyle: string(domain.StyleCategoriesAndLatestTopics),
		Homepage:                 "latest",
		DefaultLocale:            "en",
	}
}

// LoadSettings reads settings from a YAML file. Fields the file omits keep
// their defaults. An empty path returns the defaults.
func LoadSettings(path string) (Settings, error) {
	settings := DefaultSettings()
	path = strings.TrimSpace(path)
	if path == "" {
		return settings, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("read site settings: %w", err)
	}
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return Settings{}, fmt.Errorf("parse site settings: %w", err)
	}
	if err := settings.Validate(); err != nil {
		return Settings{}, err
	}
	return settings, nil
}

// Validate rejects settings discovery cannot serve.
func (s Settings) Validate() error {
	if strings.TrimSpace(s.Homepage) == "" {
		return errors.New("site settings: homepage is required")
	}
	return nil
}

// Style returns the configured desktop category page style.
func (s Settings) Style() domain.Style {
	return domain.ParseStyle(s.DesktopCategoryPageStyle)
}

// Site is the live site state shared by requests.
type Site struct {
	mu         sync.RWMutex
	settings   Settings
	topTags    []string
	hasTopTags bool
}

// New returns site state for settings.
func New(settings Settings) *Site {
	return &Site{settings: settings}
}

// Settings returns the current settings.
func (s *Site) Settings() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// UpdateSettings replaces the current settings.
func (s *Site) UpdateSettings(settings Settings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = settings
}

// SetTopTags records the site's top tags. An empty slice is a valid value
// distinct from never having received tags.
func (s *Site) SetTopTags(tags []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.topTags = append([]string{}, tags...)
	s.hasTopTags = true
}

// TopTags returns the last recorded top tags.
func (s *Site) TopTags() ([]string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.hasTopTags {
		return nil, false
	}
	return append([]string{}, s.topTags...), true
}
