package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var riskCmd = &cobra.Command{
	Use:   "risk",
	Short: "Risk metrics and trend reports",
}

var riskSummaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Portfolio-wide risk summary",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newClient()

		result, err := client.getRaw(apiBase + "/risk/summary")
		if err != nil {
			return fmt.Errorf("failed to get summary: %w", err)
		}
		return printOutput(result)
	},
}

var riskSystemCmd = &cobra.Command{
	Use:   "system <system-id>",
	Short: "Risk report for one AI system",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newClient()

		result, err := client.getRaw(apiBase + "/risk/ai-systems/" + args[0])
		if err != nil {
			return fmt.Errorf("failed to get system risk: %w", err)
		}
		return printOutput(result)
	},
}

var severityTrendDays int

var riskTrendsCmd = &cobra.Command{
	Use:   "trends",
	Short: "Hallucination, severity, and repeat-incident trends",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newClient()

		halluc, err := client.getRaw(apiBase + "/risk/trends/hallucinations")
		if err != nil {
			return fmt.Errorf("failed to get hallucination trend: %w", err)
		}
		var severity any
		if err := client.getJSON(apiBase+"/risk/trends/severity?days="+strconv.Itoa(severityTrendDays), &severity); err != nil {
			return fmt.Errorf("failed to get severity trend: %w", err)
		}
		var repeated any
		if err := client.getJSON(apiBase+"/risk/trends/repeated-incidents", &repeated); err != nil {
			return fmt.Errorf("failed to get repeated incidents: %w", err)
		}

		return printOutput(map[string]any{
			"hallucinations":     halluc,
			"severity":           severity,
			"repeated_incidents": repeated,
		})
	},
}

var riskDriftCmd = &cobra.Command{
	Use:   "drift",
	Short: "Prompt and RAG drift per AI system",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newClient()

		result, err := client.getRaw(apiBase + "/risk/drift")
		if err != nil {
			return fmt.Errorf("failed to get drift: %w", err)
		}
		return printOutput(result)
	},
}

var riskReactiveCmd = &cobra.Command{
	Use:   "reactive-changes",
	Short: "Changes implemented shortly after incidents",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newClient()

		var result any
		if err := client.getJSON(apiBase+"/risk/reactive-changes", &result); err != nil {
			return fmt.Errorf("failed to get reactive changes: %w", err)
		}
		return printOutput(result)
	},
}

func init() {
	riskTrendsCmd.Flags().IntVar(&severityTrendDays, "days", 30, "Severity trend window in days")

	riskCmd.AddCommand(riskSummaryCmd)
	riskCmd.AddCommand(riskSystemCmd)
	riskCmd.AddCommand(riskTrendsCmd)
	riskCmd.AddCommand(riskDriftCmd)
	riskCmd.AddCommand(riskReactiveCmd)

	rootCmd.AddCommand(riskCmd)
}
