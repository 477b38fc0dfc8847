// Package config loads pipeline configuration: environment variables first
// (with a .env file honored when present), flags overriding in the commands,
// and an optional regions.yml declaring which state/city/category
// combinations discovery accepts.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// LoadDotenv pulls a .env file into the process environment if one exists.
// Absence is not an error.
func LoadDotenv() bool {
	return godotenv.Load() == nil
}

func EnvString(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func EnvInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func EnvDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

// Regions is the table of crawlable state/city pairs and listing categories.
type Regions struct {
	Cities     map[string][]string `yaml:"cities"`     // state code -> city display names
	Categories []string            `yaml:"categories"` // listing category slugs
}

// DefaultRegions covers the major US tech markets the pipeline targets.
func DefaultRegions() Regions {
	return Regions{
		Cities: map[string][]string{
			"CA": {"San Francisco", "Los Angeles", "San Diego"},
			"MA": {"Boston", "Cambridge"},
			"NY": {"New York", "Brooklyn"},
			"WA": {"Seattle"},
			"TX": {"Austin", "Dallas", "Houston"},
		},
		Categories: []string{"tech", "business", "sales"},
	}
}

// LoadRegions reads a regions.yml. An empty path or a missing file falls
// back to DefaultRegions; a malformed file is an error.
func LoadRegions(path string) (Regions, error) {
	if path == "" {
		return DefaultRegions(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultRegions(), nil
		}
		return Regions{}, fmt.Errorf("config: read regions: %w", err)
	}
	var r Regions
	if err := yaml.Unmarshal(b, &r); err != nil {
		return Regions{}, fmt.Errorf("config: parse regions: %w", err)
	}
	if len(r.Cities) == 0 {
		return Regions{}, fmt.Errorf("config: regions file declares no cities")
	}
	if len(r.Categories) == 0 {
		r.Categories = DefaultRegions().Categories
	}
	return r, nil
}

// Validate checks one discovery target against the table. City comparison is
// case-insensitive; state codes are uppercased.
func (r Regions) Validate(state, city, category string) error {
	cities, ok := r.Cities[strings.ToUpper(strings.TrimSpace(state))]
	if !ok {
		return fmt.Errorf("config: unknown state %q", state)
	}
	cityOK := false
	for _, c := range cities {
		if strings.EqualFold(strings.TrimSpace(city), c) {
			cityOK = true
			break
		}
	}
	if !cityOK {
		return fmt.Errorf("config: city %q is not listed for state %q", city, state)
	}
	for _, c := range r.Categories {
		if strings.EqualFold(strings.TrimSpace(category), c) {
			return nil
		}
	}
	return fmt.Errorf("config: unknown category %q", category)
}
