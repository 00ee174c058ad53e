package config

import (
	"strings"

	"github.com/rotisserie/eris"
)

// Validate checks the settings required by the given command mode.
// Modes: "serve", "store", "export".
func (c *Config) Validate(mode string) error {
	var problems []string

	switch mode {
	case "serve":
		problems = append(problems, c.storeProblems()...)
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			problems = append(problems, "server.port must be > 0 and <= 65535")
		}
		if c.Auth.JWTSecret == "" {
			problems = append(problems, "auth.jwt_secret is required")
		}
		if c.Geocode.IntervalMS < 0 {
			problems = append(problems, "geocode.interval_ms must be >= 0")
		}
		if c.Geocode.QueueSize < 1 {
			problems = append(problems, "geocode.queue_size must be >= 1")
		}
		problems = append(problems, c.queryProblems()...)
	case "store":
		problems = append(problems, c.storeProblems()...)
	case "export":
		problems = append(problems, c.storeProblems()...)
		if c.Export.Dir == "" {
			problems = append(problems, "export.dir is required")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.Errorf("config: invalid %s configuration: %s", mode, strings.Join(problems, "; "))
	}
	return nil
}

func (c *Config) storeProblems() []string {
	switch c.Store.Driver {
	case "memory":
		return nil
	case "postgres":
		if c.Store.DatabaseURL == "" {
			return []string{"store.database_url is required"}
		}
		return nil
	default:
		return []string{"store.driver must be postgres or memory"}
	}
}

func (c *Config) queryProblems() []string {
	var problems []string
	if c.Query.ItemsPerPage < 1 || c.Query.ItemsPerPage > 100 {
		problems = append(problems, "query.items_per_page must be between 1 and 100")
	}
	if c.Query.GeoCandidates < 1 {
		problems = append(problems, "query.geo_candidates must be >= 1")
	}
	if c.Duplicate.Threshold < 0 {
		problems = append(problems, "duplicate.threshold must be >= 0")
	}
	if c.Duplicate.AddressWeight < 0 {
		problems = append(problems, "duplicate.address_weight must be >= 0")
	}
	return problems
}
