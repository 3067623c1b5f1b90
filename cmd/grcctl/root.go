package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	serverURL string
	outputFmt string
	asUser    string
	asRoles   string
)

const apiBase = "/api/v1alpha1"

var rootCmd = &cobra.Command{
	Use:   "grcctl",
	Short: "CLI for the AI governance registry",
	Long: `grcctl manages AI systems, change requests, prompt and RAG artifacts,
incidents, and risk metrics on a governance registry server.

Identity is sent via the X-Remote-User and X-Remote-Group headers, which the
server trusts in header auth mode. Set --as-user and --as-roles, or the
GRC_USER and GRC_ROLES environment variables.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8080", "Registry server URL")
	rootCmd.PersistentFlags().StringVarP(&outputFmt, "output", "o", "table", "Output format: table, json, yaml")
	rootCmd.PersistentFlags().StringVar(&asUser, "as-user", "", "Acting username (default: GRC_USER env)")
	rootCmd.PersistentFlags().StringVar(&asRoles, "as-roles", "", "Comma-separated roles (default: GRC_ROLES env)")

	rootCmd.AddCommand(healthCmd)
}

// effectiveUser returns the acting username.
// Priority: --as-user flag > GRC_USER env var > empty (server treats as anonymous).
func effectiveUser() string {
	if asUser != "" {
		return asUser
	}
	return os.Getenv("GRC_USER")
}

func effectiveRoles() string {
	if asRoles != "" {
		return asRoles
	}
	return os.Getenv("GRC_ROLES")
}
