// Copyright (C) 2026 Scriptorium AI (oss@scriptorium.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/ScriptoriumAI/ScriptoriumFOSS/services/scribe/agent"
	"github.com/spf13/cobra"
)

// httpClient is shared by all subcommands. Runs are synchronous on the
// server, so the timeout must cover a full step budget.
var httpClient = &http.Client{Timeout: 10 * time.Minute}

func runWriteCommand(_ *cobra.Command, args []string) {
	message := strings.Join(args, " ")
	fmt.Printf("Requesting: %s\n", message)
	fmt.Println("---")

	body, err := json.Marshal(map[string]any{
		"message": message,
		"user_id": userFlag,
	})
	if err != nil {
		log.Fatalf("Error: %v", err)
	}

	var result agent.RunResult
	if err := postJSON("/v1/scribe/runs", body, &result); err != nil {
		log.Fatalf("Error: %v", err)
	}

	if showSteps {
		fmt.Println("Steps:")
		for _, rec := range result.History {
			status := "ok"
			if !rec.Succeeded() {
				status = "failed: " + rec.Err
			}
			fmt.Printf("%d. %s (%s, %d attempt(s), %s)\n",
				rec.Step, rec.Tool, status, rec.Attempts, rec.Duration.Round(time.Millisecond))
		}
		fmt.Println("---")
	}

	fmt.Printf("\n[%s]\n\n%s\n", result.State, result.FinalText)
}

func runToolsCommand(_ *cobra.Command, _ []string) {
	var response struct {
		Tools []struct {
			Name        string `json:"name"`
			Description string `json:"description"`
		} `json:"tools"`
	}
	if err := getJSON("/v1/scribe/tools", &response); err != nil {
		log.Fatalf("Error: %v", err)
	}
	for _, t := range response.Tools {
		fmt.Printf("%-22s %s\n", t.Name, t.Description)
	}
}

func runProfileSetCommand(_ *cobra.Command, args []string) {
	if userFlag == "" {
		log.Fatal("Error: --user is required for profile commands")
	}
	body, err := json.Marshal(map[string]any{"key": args[0], "value": args[1]})
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
	req, err := http.NewRequest(http.MethodPut, serverURL+"/v1/scribe/profiles/"+userFlag, bytes.NewReader(body))
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if err := doJSON(req, nil); err != nil {
		log.Fatalf("Error: %v", err)
	}
	fmt.Printf("Stored %s for %s\n", args[0], userFlag)
}

func runProfileGetCommand(_ *cobra.Command, args []string) {
	if userFlag == "" {
		log.Fatal("Error: --user is required for profile commands")
	}
	var response struct {
		Value any `json:"value"`
	}
	if err := getJSON("/v1/scribe/profiles/"+userFlag+"/"+args[0], &response); err != nil {
		log.Fatalf("Error: %v", err)
	}
	fmt.Printf("%s = %v\n", args[0], response.Value)
}

// =============================================================================
// HTTP Helpers
// =============================================================================

func postJSON(path string, body []byte, out any) error {
	req, err := http.NewRequest(http.MethodPost, serverURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return doJSON(req, out)
}

func getJSON(path string, out any) error {
	req, err := http.NewRequest(http.MethodGet, serverURL+path, nil)
	if err != nil {
		return err
	}
	return doJSON(req, out)
}

func doJSON(req *http.Request, out any) error {
	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", req.URL.Path, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
