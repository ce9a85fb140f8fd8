// hyperionx - grounded conversational assistant for the terminal.
//
// Copyright (c) 2025 Hyperion Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/hyperionx/hyperionx/internal/cli"
	"github.com/hyperionx/hyperionx/internal/config"
	"github.com/hyperionx/hyperionx/internal/ui"
)

// Version information (set at build time).
var (
	Version   = "0.2.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	cmd, args := cli.Parse()

	switch cmd {
	case cli.CmdTUI:
		runTUI(args)
	case cli.CmdChat:
		fail(cli.HandleChat(args))
	case cli.CmdAsk:
		fail(cli.HandleAsk(args))
	case cli.CmdStatus:
		fail(cli.HandleStatus(args))
	case cli.CmdConfig:
		fail(cli.HandleConfig(args))
	case cli.CmdVersion:
		cli.HandleVersion(args)
	case cli.CmdHelp:
		cli.HandleHelp()
	}
}

// runTUI wires the assistant and starts the full-screen interface. Config
// tunables hot-reload while it runs; credentials and the wired engine do not.
func runTUI(args cli.Args) {
	app := cli.NewAppFromEnv(args)

	watcher, err := config.Watch(nil)
	if err == nil {
		defer watcher.Close()
	} else {
		log.Printf("config watcher unavailable: %v", err)
	}

	fail(ui.Run(ui.Options{
		Engine:     app.Engine,
		Session:    app.Session,
		Config:     app.Config,
		ModelName:  app.Model,
		LLMPool:    app.LLMPool,
		SearchPool: app.SearchPool,
	}))
}

func fail(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
