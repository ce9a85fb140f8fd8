// Copyright (c) 2025 Hyperion Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

// status.go - System status output for hyperionx.
//
// Handles "hyperionx status": shows which credential pools are populated,
// their per-key state, and the active configuration. Key material itself is
// never printed, only fingerprints.
package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/hyperionx/hyperionx/internal/keypool"
)

// statusJSON is the machine-readable status shape.
type statusJSON struct {
	Version    string          `json:"version"`
	Model      string          `json:"model"`
	GroqKeys   []keyStatusJSON `json:"groq_keys"`
	TavilyKeys []keyStatusJSON `json:"tavily_keys"`
}

type keyStatusJSON struct {
	Fingerprint string `json:"fingerprint"`
	Inflight    int    `json:"inflight"`
	CoolingDown bool   `json:"cooling_down"`
}

// HandleStatus prints credential and configuration status.
func HandleStatus(args Args) error {
	app := NewAppFromEnv(args)

	if args.JSON {
		out := statusJSON{
			Version:    Version,
			Model:      app.Model,
			GroqKeys:   toKeyStatusJSON(app.LLMPool.Snapshot()),
			TavilyKeys: toKeyStatusJSON(app.SearchPool.Snapshot()),
		}
		enc := json.NewEncoder(os.Stdout)
		return enc.Encode(out)
	}

	fmt.Println(welcomeStyle.Render("hyperionx " + Version))
	fmt.Println()

	fmt.Printf("%s %s\n", labelStyle.Render("Model"), app.Model)
	fmt.Printf("%s %.2f / %d tokens\n", labelStyle.Render("Generation"),
		app.Config.Model.Temperature, app.Config.Model.MaxTokens)
	fmt.Printf("%s %d results, %ds cache\n", labelStyle.Render("Search"),
		app.Config.Search.MaxResults, app.Config.Search.CacheTTLSecs)
	fmt.Println()

	printPool("Model keys", app.LLMPool)
	printPool("Search keys", app.SearchPool)

	if !app.Creds.HasModelKeys() {
		fmt.Println()
		fmt.Println(warningStyle.Render("No model keys: set GROQ_API_KEY_1 .. GROQ_API_KEY_10."))
	}
	if !app.Creds.HasSearchKeys() {
		fmt.Println(warningStyle.Render("No search keys: set TAVILY_API_KEY_1 .. TAVILY_API_KEY_10; answers stay ungrounded."))
	}
	return nil
}

func printPool(label string, pool *keypool.Pool) {
	snapshot := pool.Snapshot()
	fmt.Printf("%s %d configured\n", labelStyle.Render(label), len(snapshot))
	for _, st := range snapshot {
		state := commandStyle.Render("ready")
		if st.CoolingDown {
			state = warningStyle.Render("cooling down")
		}
		fmt.Printf("%s %s  %s  inflight %d\n",
			labelStyle.Render(""), st.Fingerprint, state, st.Inflight)
	}
}

func toKeyStatusJSON(snapshot []keypool.KeyStatus) []keyStatusJSON {
	out := make([]keyStatusJSON, 0, len(snapshot))
	for _, st := range snapshot {
		out = append(out, keyStatusJSON{
			Fingerprint: st.Fingerprint,
			Inflight:    st.Inflight,
			CoolingDown: st.CoolingDown,
		})
	}
	return out
}
