package main

import (
	"fmt"
	"io"
	"net/http"

	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check server health and readiness",
	RunE:  runHealth,
}

func runHealth(cmd *cobra.Command, args []string) error {
	client := newClient()

	live, err := probe(client, "/healthz")
	if err != nil {
		return fmt.Errorf("server unreachable: %w", err)
	}
	ready, err := probe(client, "/readyz")
	if err != nil {
		// Readiness failure is not fatal; the server might still be starting.
		ready = err.Error()
	}

	if outputFmt == "json" || outputFmt == "yaml" {
		return printOutput(map[string]string{
			"liveness":  live,
			"readiness": ready,
		})
	}

	printTable([]string{"Check", "Status"}, [][]string{
		{"Liveness", live},
		{"Readiness", ready},
	})
	return nil
}

func probe(c *registryClient, path string) (string, error) {
	req, err := c.newRequest(http.MethodGet, path, nil)
	if err != nil {
		return "", err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("status %d: %s", resp.StatusCode, string(body))
	}
	return string(body), nil
}
