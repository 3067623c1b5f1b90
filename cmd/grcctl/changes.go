package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var changesCmd = &cobra.Command{
	Use:   "changes",
	Short: "Manage change requests",
}

type changeRequest struct {
	ID          string `json:"id"`
	AISystemID  string `json:"ai_system_id"`
	ChangeType  string `json:"change_type"`
	Description string `json:"description"`
	Status      string `json:"status"`
	RequestedBy string `json:"requested_by"`
	ApprovedBy  string `json:"approved_by,omitempty"`
	CreatedAt   string `json:"created_at"`
}

var changesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List change requests",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newClient()

		var changes []changeRequest
		if err := client.getJSON(apiBase+"/changes", &changes); err != nil {
			return fmt.Errorf("failed to list changes: %w", err)
		}

		if outputFmt == "json" || outputFmt == "yaml" {
			return printOutput(changes)
		}

		headers := []string{"ID", "System", "Type", "Status", "Requested By", "Approved By", "Created"}
		rows := make([][]string, 0, len(changes))
		for _, c := range changes {
			rows = append(rows, []string{
				truncate(c.ID, 12),
				truncate(c.AISystemID, 12),
				c.ChangeType,
				c.Status,
				c.RequestedBy,
				c.ApprovedBy,
				shortTime(c.CreatedAt),
			})
		}
		printTable(headers, rows)
		return nil
	},
}

var changesGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Get change request details",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newClient()

		result, err := client.getRaw(apiBase + "/changes/" + args[0])
		if err != nil {
			return fmt.Errorf("failed to get change: %w", err)
		}
		return printOutput(result)
	},
}

var (
	changeType          string
	changeDescription   string
	changeJustification string
	changeImpact        string
	changeRollback      string
	changePersonalData  bool
)

var changesCreateCmd = &cobra.Command{
	Use:   "create <system-id>",
	Short: "Open a draft change request against an AI system",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newClient()

		body := map[string]any{
			"change_type":            changeType,
			"description":            changeDescription,
			"business_justification": changeJustification,
			"impact_assessment":      changeImpact,
			"rollback_plan":          changeRollback,
			"contains_personal_data": changePersonalData,
		}

		var result map[string]any
		if err := client.postJSON(apiBase+"/ai-systems/"+args[0]+"/changes", body, &result); err != nil {
			return fmt.Errorf("failed to create change: %w", err)
		}
		return printOutput(result)
	},
}

func changeActionCmd(action, short string) *cobra.Command {
	return &cobra.Command{
		Use:   action + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newClient()

			var result map[string]any
			if err := client.postJSON(apiBase+"/changes/"+args[0]+"/"+action, nil, &result); err != nil {
				return fmt.Errorf("failed to %s change: %w", action, err)
			}
			return printOutput(result)
		},
	}
}

func init() {
	changesCreateCmd.Flags().StringVar(&changeType, "type", "", "Change type: model, prompt, rag_source, config")
	changesCreateCmd.Flags().StringVar(&changeDescription, "description", "", "What is changing")
	changesCreateCmd.Flags().StringVar(&changeJustification, "justification", "", "Business justification")
	changesCreateCmd.Flags().StringVar(&changeImpact, "impact", "", "Impact assessment")
	changesCreateCmd.Flags().StringVar(&changeRollback, "rollback", "", "Rollback plan")
	changesCreateCmd.Flags().BoolVar(&changePersonalData, "personal-data", false, "Change touches personal data")
	_ = changesCreateCmd.MarkFlagRequired("type")
	_ = changesCreateCmd.MarkFlagRequired("description")

	changesCmd.AddCommand(changesListCmd)
	changesCmd.AddCommand(changesGetCmd)
	changesCmd.AddCommand(changesCreateCmd)
	changesCmd.AddCommand(changeActionCmd("submit", "Submit a draft change request for approval"))
	changesCmd.AddCommand(changeActionCmd("approve", "Approve a submitted change request"))
	changesCmd.AddCommand(changeActionCmd("reject", "Reject a submitted change request"))
	changesCmd.AddCommand(changeActionCmd("implement", "Mark an approved change request as implemented"))

	rootCmd.AddCommand(changesCmd)
}
