package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Default server locations per environment. The writer URLs are the
// authenticated remote-settings API; the published URLs are the public
// read side used to check what clients actually receive.
const (
	devServerLocation   = "https://remote-settings-dev.allizom.org/v1"
	stageServerLocation = "https://remote-settings.allizom.org/v1"
	prodServerLocation  = "https://remote-settings.mozilla.org/v1"

	stagePublishedURL = "https://firefox.settings.services.allizom.org/v1/buckets/main/collections/url-classifier-exceptions/records"
	prodPublishedURL  = "https://firefox.settings.services.mozilla.com/v1/buckets/main/collections/url-classifier-exceptions/records"
)

// locations holds per-environment server URLs, overridable from a yaml
// file for testing against local server stands.
type locations struct {
	Dev            string `yaml:"dev"`
	Stage          string `yaml:"stage"`
	Prod           string `yaml:"prod"`
	StagePublished string `yaml:"stage-published"`
	ProdPublished  string `yaml:"prod-published"`
}

func defaultLocations() locations {
	return locations{
		Dev:            devServerLocation,
		Stage:          stageServerLocation,
		Prod:           prodServerLocation,
		StagePublished: stagePublishedURL,
		ProdPublished:  prodPublishedURL,
	}
}

// loadLocations reads the locations file, falling back to defaults for
// any field it does not set. A missing or unparsable file yields the
// defaults.
func loadLocations(path string) locations {
	locs := defaultLocations()
	if path == "" {
		return locs
	}
	data, err := os.ReadFile(path) // #nosec G304 - path from user config
	if err != nil {
		return locs
	}

	var overrides locations
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return locs
	}
	if overrides.Dev != "" {
		locs.Dev = overrides.Dev
	}
	if overrides.Stage != "" {
		locs.Stage = overrides.Stage
	}
	if overrides.Prod != "" {
		locs.Prod = overrides.Prod
	}
	if overrides.StagePublished != "" {
		locs.StagePublished = overrides.StagePublished
	}
	if overrides.ProdPublished != "" {
		locs.ProdPublished = overrides.ProdPublished
	}
	return locs
}

func (l locations) writer(env Environment) string {
	switch env {
	case EnvStage:
		return l.Stage
	case EnvProd:
		return l.Prod
	}
	return l.Dev
}

// published returns the read-side records endpoint. Dev has no published
// mirror; dev runs verify against the stage endpoint like the stage
// environment does.
func (l locations) published(env Environment) string {
	if env == EnvProd {
		return l.ProdPublished
	}
	return l.StagePublished
}
