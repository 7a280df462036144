// Copyright (C) 2026 Scriptorium AI (oss@scriptorium.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command scriptorium is the CLI client for a running Scribe server.
//
// Usage:
//
//	scriptorium write "Draft a short essay on tide pools"
//	scriptorium write --user demo --show-steps "Improve my draft"
//	scriptorium tools
//	scriptorium profile set --user demo tone formal
//	scriptorium profile get --user demo tone
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Package-level flag values shared by the subcommands.
var (
	serverURL string
	userFlag  string
	showSteps bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "scriptorium",
		Short: "CLI client for the Scriptorium Scribe server",
	}
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", defaultServerURL(), "Scribe server base URL")
	rootCmd.PersistentFlags().StringVar(&userFlag, "user", "", "User ID for profile seeding")

	writeCmd := &cobra.Command{
		Use:   "write [request...]",
		Short: "Execute a composition run",
		Args:  cobra.MinimumNArgs(1),
		Run:   runWriteCommand,
	}
	writeCmd.Flags().BoolVar(&showSteps, "show-steps", false, "Print the step-by-step run history")
	rootCmd.AddCommand(writeCmd)

	rootCmd.AddCommand(&cobra.Command{
		Use:   "tools",
		Short: "List the tools registered on the server",
		Run:   runToolsCommand,
	})

	profileCmd := &cobra.Command{
		Use:   "profile",
		Short: "Read and write profile facts",
	}
	profileCmd.AddCommand(&cobra.Command{
		Use:   "set <key> <value>",
		Short: "Store a profile fact",
		Args:  cobra.ExactArgs(2),
		Run:   runProfileSetCommand,
	})
	profileCmd.AddCommand(&cobra.Command{
		Use:   "get <key>",
		Short: "Read a profile fact",
		Args:  cobra.ExactArgs(1),
		Run:   runProfileGetCommand,
	})
	rootCmd.AddCommand(profileCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// defaultServerURL honors SCRIBE_SERVER_URL, falling back to localhost.
func defaultServerURL() string {
	if url := os.Getenv("SCRIBE_SERVER_URL"); url != "" {
		return url
	}
	return "http://localhost:8080"
}
