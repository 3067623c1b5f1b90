package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var incidentsCmd = &cobra.Command{
	Use:   "incidents",
	Short: "Report and handle AI incidents",
}

type aiIncident struct {
	ID              string `json:"id"`
	AISystemID      string `json:"ai_system_id"`
	IncidentType    string `json:"incident_type"`
	Severity        string `json:"severity"`
	Status          string `json:"status"`
	TriageStatus    string `json:"triage_status,omitempty"`
	AssignedToRole  string `json:"assigned_to_role,omitempty"`
	DetectionDate   string `json:"detection_date"`
}

var incidentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List incidents",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newClient()
		return listIncidents(client, apiBase+"/incidents")
	},
}

var queueRole string

var incidentsQueueCmd = &cobra.Command{
	Use:   "queue",
	Short: "List open incidents assigned to a role",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newClient()
		return listIncidents(client, apiBase+"/incidents/queue?role="+queueRole)
	},
}

func listIncidents(client *registryClient, path string) error {
	var incidents []aiIncident
	if err := client.getJSON(path, &incidents); err != nil {
		return fmt.Errorf("failed to list incidents: %w", err)
	}

	if outputFmt == "json" || outputFmt == "yaml" {
		return printOutput(incidents)
	}

	headers := []string{"ID", "System", "Type", "Severity", "Status", "Triage", "Assigned", "Detected"}
	rows := make([][]string, 0, len(incidents))
	for _, inc := range incidents {
		rows = append(rows, []string{
			truncate(inc.ID, 12),
			truncate(inc.AISystemID, 12),
			inc.IncidentType,
			inc.Severity,
			inc.Status,
			inc.TriageStatus,
			inc.AssignedToRole,
			shortTime(inc.DetectionDate),
		})
	}
	printTable(headers, rows)
	return nil
}

var incidentsGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Get incident details",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newClient()

		result, err := client.getRaw(apiBase + "/incidents/" + args[0])
		if err != nil {
			return fmt.Errorf("failed to get incident: %w", err)
		}
		return printOutput(result)
	},
}

var (
	incidentType         string
	incidentSeverity     string
	incidentImpact       string
	incidentDescription  string
	incidentPersonalData bool
)

var incidentsReportCmd = &cobra.Command{
	Use:   "report <system-id>",
	Short: "Report an incident against an AI system",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newClient()

		body := map[string]any{
			"incident_type":          incidentType,
			"severity":               incidentSeverity,
			"impact_area":            incidentImpact,
			"description":            incidentDescription,
			"contains_personal_data": incidentPersonalData,
		}

		var result map[string]any
		if err := client.postJSON(apiBase+"/ai-systems/"+args[0]+"/incidents", body, &result); err != nil {
			return fmt.Errorf("failed to report incident: %w", err)
		}
		return printOutput(result)
	},
}

var (
	confirmSeverity  string
	confirmOwnerRole string
	confirmRootCause string
	overrideReason   string
)

var incidentsConfirmCmd = &cobra.Command{
	Use:   "confirm <id>",
	Short: "Confirm or override the triage suggestion",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newClient()

		body := map[string]any{
			"confirmed_severity":            confirmSeverity,
			"confirmed_owner_role":          confirmOwnerRole,
			"confirmed_root_cause_category": confirmRootCause,
			"override_reason":               overrideReason,
		}

		var result map[string]any
		if err := client.postJSON(apiBase+"/incidents/"+args[0]+"/triage/confirm", body, &result); err != nil {
			return fmt.Errorf("failed to confirm triage: %w", err)
		}
		return printOutput(result)
	},
}

var (
	rootCauseCategory    string
	rootCauseDescription string
)

var incidentsInvestigateCmd = &cobra.Command{
	Use:   "investigate <id>",
	Short: "Record root-cause findings and start the investigation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newClient()

		body := map[string]any{
			"root_cause_category":    rootCauseCategory,
			"root_cause_description": rootCauseDescription,
		}

		var result map[string]any
		if err := client.postJSON(apiBase+"/incidents/"+args[0]+"/investigate", body, &result); err != nil {
			return fmt.Errorf("failed to investigate incident: %w", err)
		}
		return printOutput(result)
	},
}

var correctiveChangeID string

var incidentsCorrectiveCmd = &cobra.Command{
	Use:   "corrective-action <id>",
	Short: "Link a corrective change request and resolve the incident",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newClient()

		body := map[string]any{"change_request_id": correctiveChangeID}

		var result map[string]any
		if err := client.postJSON(apiBase+"/incidents/"+args[0]+"/corrective-action", body, &result); err != nil {
			return fmt.Errorf("failed to link corrective action: %w", err)
		}
		return printOutput(result)
	},
}

var incidentsCloseCmd = &cobra.Command{
	Use:   "close <id>",
	Short: "Close a resolved incident",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newClient()

		var result map[string]any
		if err := client.postJSON(apiBase+"/incidents/"+args[0]+"/close", nil, &result); err != nil {
			return fmt.Errorf("failed to close incident: %w", err)
		}
		return printOutput(result)
	},
}

func init() {
	incidentsQueueCmd.Flags().StringVar(&queueRole, "role", "AI_OWNER", "Queue role: AI_OWNER or COMPLIANCE")

	incidentsReportCmd.Flags().StringVar(&incidentType, "type", "", "Incident type (e.g. Hallucination)")
	incidentsReportCmd.Flags().StringVar(&incidentSeverity, "severity", "Medium", "Reported severity: Low, Medium, High")
	incidentsReportCmd.Flags().StringVar(&incidentImpact, "impact", "", "Impact area")
	incidentsReportCmd.Flags().StringVar(&incidentDescription, "description", "", "What happened")
	incidentsReportCmd.Flags().BoolVar(&incidentPersonalData, "personal-data", false, "Incident involves personal data")
	_ = incidentsReportCmd.MarkFlagRequired("type")
	_ = incidentsReportCmd.MarkFlagRequired("description")

	incidentsConfirmCmd.Flags().StringVar(&confirmSeverity, "severity", "", "Confirmed severity")
	incidentsConfirmCmd.Flags().StringVar(&confirmOwnerRole, "owner-role", "", "Confirmed owner role")
	incidentsConfirmCmd.Flags().StringVar(&confirmRootCause, "root-cause", "", "Confirmed root cause category")
	incidentsConfirmCmd.Flags().StringVar(&overrideReason, "reason", "", "Reason, required when deviating from the suggestion")

	incidentsInvestigateCmd.Flags().StringVar(&rootCauseCategory, "category", "", "Root cause category")
	incidentsInvestigateCmd.Flags().StringVar(&rootCauseDescription, "description", "", "Root cause description")
	_ = incidentsInvestigateCmd.MarkFlagRequired("category")

	incidentsCorrectiveCmd.Flags().StringVar(&correctiveChangeID, "change", "", "Corrective change request ID")
	_ = incidentsCorrectiveCmd.MarkFlagRequired("change")

	incidentsCmd.AddCommand(incidentsListCmd)
	incidentsCmd.AddCommand(incidentsQueueCmd)
	incidentsCmd.AddCommand(incidentsGetCmd)
	incidentsCmd.AddCommand(incidentsReportCmd)
	incidentsCmd.AddCommand(incidentsConfirmCmd)
	incidentsCmd.AddCommand(incidentsInvestigateCmd)
	incidentsCmd.AddCommand(incidentsCorrectiveCmd)
	incidentsCmd.AddCommand(incidentsCloseCmd)

	rootCmd.AddCommand(incidentsCmd)
}
