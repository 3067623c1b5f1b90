package main

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/spf13/cobra"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Query the audit trail",
}

type auditRecord struct {
	ID          string `json:"id"`
	Timestamp   string `json:"timestamp"`
	Actor       string `json:"actor"`
	Action      string `json:"action"`
	EntityType  string `json:"entity_type,omitempty"`
	EntityID    string `json:"entity_id,omitempty"`
	PayloadHash string `json:"payload_hash"`
	PrevState   string `json:"prev_state,omitempty"`
	NewState    string `json:"new_state,omitempty"`
}

type auditListResult struct {
	Items         []auditRecord `json:"items"`
	NextPageToken string        `json:"next_page_token,omitempty"`
}

var (
	auditActor     string
	auditAction    string
	auditEntity    string
	auditPageSize  int
	auditPageToken string
)

var auditListCmd = &cobra.Command{
	Use:   "list",
	Short: "List audit log records, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newClient()

		q := url.Values{}
		if auditActor != "" {
			q.Set("actor", auditActor)
		}
		if auditAction != "" {
			q.Set("action", auditAction)
		}
		if auditEntity != "" {
			q.Set("entity_type", auditEntity)
		}
		if auditPageSize > 0 {
			q.Set("page_size", strconv.Itoa(auditPageSize))
		}
		if auditPageToken != "" {
			q.Set("page_token", auditPageToken)
		}
		path := apiBase + "/audit"
		if len(q) > 0 {
			path += "?" + q.Encode()
		}

		var result auditListResult
		if err := client.getJSON(path, &result); err != nil {
			return fmt.Errorf("failed to list audit logs: %w", err)
		}

		if outputFmt == "json" || outputFmt == "yaml" {
			return printOutput(result)
		}

		printAuditTable(result.Items)
		if result.NextPageToken != "" {
			fmt.Printf("Next page token: %s\n", result.NextPageToken)
		}
		return nil
	},
}

var auditTrailCmd = &cobra.Command{
	Use:   "trail <entity-type> <entity-id>",
	Short: "Show the full trail for one entity, oldest first",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newClient()

		var records []auditRecord
		path := fmt.Sprintf("%s/audit/entities/%s/%s", apiBase, args[0], args[1])
		if err := client.getJSON(path, &records); err != nil {
			return fmt.Errorf("failed to get audit trail: %w", err)
		}

		if outputFmt == "json" || outputFmt == "yaml" {
			return printOutput(records)
		}

		printAuditTable(records)
		return nil
	},
}

func printAuditTable(records []auditRecord) {
	headers := []string{"Time", "Actor", "Action", "Entity", "Transition", "Payload Hash"}
	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		entity := rec.EntityType
		if rec.EntityID != "" {
			entity += "/" + truncate(rec.EntityID, 12)
		}
		transition := ""
		if rec.PrevState != "" || rec.NewState != "" {
			transition = rec.PrevState + "->" + rec.NewState
		}
		rows = append(rows, []string{
			shortTime(rec.Timestamp),
			rec.Actor,
			rec.Action,
			entity,
			transition,
			truncate(rec.PayloadHash, 12),
		})
	}
	printTable(headers, rows)
}

func init() {
	auditListCmd.Flags().StringVar(&auditActor, "actor", "", "Filter by actor")
	auditListCmd.Flags().StringVar(&auditAction, "action", "", "Filter by action")
	auditListCmd.Flags().StringVar(&auditEntity, "entity-type", "", "Filter by entity type")
	auditListCmd.Flags().IntVar(&auditPageSize, "page-size", 0, "Records per page (default 20, max 100)")
	auditListCmd.Flags().StringVar(&auditPageToken, "page-token", "", "Continue from a previous next_page_token")

	auditCmd.AddCommand(auditListCmd)
	auditCmd.AddCommand(auditTrailCmd)

	rootCmd.AddCommand(auditCmd)
}
