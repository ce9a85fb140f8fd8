// Copyright (c) 2025 Hyperion Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// MaxNumberedKeys bounds the GROQ_API_KEY_n / TAVILY_API_KEY_n scan.
const MaxNumberedKeys = 10

// Credentials holds the API key pools read from the environment.
// They are deliberately not part of Config: they never touch the TOML file
// and are never hot-reloaded.
type Credentials struct {
	GroqKeys   []string
	TavilyKeys []string
}

// HasModelKeys reports whether at least one model credential is configured.
func (c Credentials) HasModelKeys() bool { return len(c.GroqKeys) > 0 }

// HasSearchKeys reports whether at least one search credential is configured.
func (c Credentials) HasSearchKeys() bool { return len(c.TavilyKeys) > 0 }

// LoadCredentials reads API keys from the environment, after a best-effort
// load of a .env file in the working directory. Numbered variables
// (GROQ_API_KEY_1 through GROQ_API_KEY_10) are scanned in order; an
// unnumbered GROQ_API_KEY / TAVILY_API_KEY is accepted as a fallback when no
// numbered key exists.
func LoadCredentials() Credentials {
	// Missing .env is the common case, not an error.
	_ = godotenv.Load()

	return Credentials{
		GroqKeys:   scanNumbered("GROQ_API_KEY"),
		TavilyKeys: scanNumbered("TAVILY_API_KEY"),
	}
}

// scanNumbered collects PREFIX_1..PREFIX_N, falling back to the bare PREFIX.
func scanNumbered(prefix string) []string {
	var keys []string
	for i := 1; i <= MaxNumberedKeys; i++ {
		v := os.Getenv(fmt.Sprintf("%s_%d", prefix, i))
		if v != "" {
			keys = append(keys, v)
		}
	}
	if len(keys) == 0 {
		if v := os.Getenv(prefix); v != "" {
			keys = append(keys, v)
		}
	}
	return keys
}
