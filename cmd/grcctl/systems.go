package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var systemsCmd = &cobra.Command{
	Use:   "systems",
	Short: "Manage registered AI systems",
}

type aiSystem struct {
	ID                  string `json:"id"`
	Name                string `json:"name"`
	BusinessPurpose     string `json:"business_purpose"`
	IntendedUsers       string `json:"intended_users"`
	RiskClassification  string `json:"risk_classification"`
	Owner               string `json:"owner"`
	LifecycleStatus     string `json:"lifecycle_status"`
	LastChangeRequestID string `json:"last_change_request_id,omitempty"`
	LastChangedAt       string `json:"last_changed_at,omitempty"`
	CreatedAt           string `json:"created_at"`
}

var systemsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List AI systems",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newClient()

		var systems []aiSystem
		if err := client.getJSON(apiBase+"/ai-systems", &systems); err != nil {
			return fmt.Errorf("failed to list systems: %w", err)
		}

		if outputFmt == "json" || outputFmt == "yaml" {
			return printOutput(systems)
		}

		headers := []string{"ID", "Name", "Risk", "Lifecycle", "Owner", "Created"}
		rows := make([][]string, 0, len(systems))
		for _, s := range systems {
			rows = append(rows, []string{
				truncate(s.ID, 12),
				s.Name,
				s.RiskClassification,
				s.LifecycleStatus,
				s.Owner,
				shortTime(s.CreatedAt),
			})
		}
		printTable(headers, rows)
		return nil
	},
}

var systemsGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Get AI system details",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newClient()

		result, err := client.getRaw(apiBase + "/ai-systems/" + args[0])
		if err != nil {
			return fmt.Errorf("failed to get system: %w", err)
		}
		return printOutput(result)
	},
}

var (
	systemName    string
	systemPurpose string
	systemUsers   string
	systemRisk    string
	systemOwner   string
)

var systemsCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Register a new AI system",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newClient()

		body := map[string]any{
			"name":                systemName,
			"business_purpose":    systemPurpose,
			"intended_users":      systemUsers,
			"risk_classification": systemRisk,
			"owner":               systemOwner,
		}

		var result map[string]any
		if err := client.postJSON(apiBase+"/ai-systems", body, &result); err != nil {
			return fmt.Errorf("failed to create system: %w", err)
		}
		return printOutput(result)
	},
}

var systemsLifecycleCmd = &cobra.Command{
	Use:   "lifecycle <id> <new-state>",
	Short: "Transition an AI system's lifecycle state",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newClient()

		body := map[string]any{"new_state": args[1]}

		var result map[string]any
		if err := client.patchJSON(apiBase+"/ai-systems/"+args[0]+"/lifecycle", body, &result); err != nil {
			return fmt.Errorf("failed to transition system: %w", err)
		}
		return printOutput(result)
	},
}

func init() {
	systemsCreateCmd.Flags().StringVar(&systemName, "name", "", "Unique system name")
	systemsCreateCmd.Flags().StringVar(&systemPurpose, "purpose", "", "Business purpose")
	systemsCreateCmd.Flags().StringVar(&systemUsers, "users", "", "Intended users")
	systemsCreateCmd.Flags().StringVar(&systemRisk, "risk", "low", "Risk classification: low, medium, high, critical")
	systemsCreateCmd.Flags().StringVar(&systemOwner, "owner", "", "Owning team or person")
	_ = systemsCreateCmd.MarkFlagRequired("name")
	_ = systemsCreateCmd.MarkFlagRequired("purpose")

	systemsCmd.AddCommand(systemsListCmd)
	systemsCmd.AddCommand(systemsGetCmd)
	systemsCmd.AddCommand(systemsCreateCmd)
	systemsCmd.AddCommand(systemsLifecycleCmd)

	rootCmd.AddCommand(systemsCmd)
}
