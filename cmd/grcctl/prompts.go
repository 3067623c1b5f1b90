package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var promptsCmd = &cobra.Command{
	Use:   "prompts",
	Short: "Manage prompt templates and versions",
}

type promptTemplate struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	CreatedBy   string `json:"created_by"`
	CreatedAt   string `json:"created_at"`
}

type promptVersion struct {
	ID              string `json:"id"`
	TemplateID      string `json:"prompt_template_id"`
	Version         int    `json:"version"`
	Status          string `json:"status"`
	ContentHash     string `json:"content_hash"`
	ChangeRequestID string `json:"change_request_id,omitempty"`
	CreatedBy       string `json:"created_by"`
	CreatedAt       string `json:"created_at"`
}

var promptsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List prompt templates",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newClient()

		var templates []promptTemplate
		if err := client.getJSON(apiBase+"/prompts/templates", &templates); err != nil {
			return fmt.Errorf("failed to list templates: %w", err)
		}

		if outputFmt == "json" || outputFmt == "yaml" {
			return printOutput(templates)
		}

		headers := []string{"ID", "Name", "Description", "Created By", "Created"}
		rows := make([][]string, 0, len(templates))
		for _, t := range templates {
			rows = append(rows, []string{
				truncate(t.ID, 12),
				t.Name,
				truncate(t.Description, 40),
				t.CreatedBy,
				shortTime(t.CreatedAt),
			})
		}
		printTable(headers, rows)
		return nil
	},
}

var (
	templateName        string
	templateDescription string
)

var promptsCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a prompt template",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newClient()

		body := map[string]any{
			"name":        templateName,
			"description": templateDescription,
		}

		var result map[string]any
		if err := client.postJSON(apiBase+"/prompts/templates", body, &result); err != nil {
			return fmt.Errorf("failed to create template: %w", err)
		}
		return printOutput(result)
	},
}

var promptsVersionsCmd = &cobra.Command{
	Use:   "versions <template-id>",
	Short: "List versions of a prompt template",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newClient()

		var versions []promptVersion
		if err := client.getJSON(apiBase+"/prompts/templates/"+args[0]+"/versions", &versions); err != nil {
			return fmt.Errorf("failed to list versions: %w", err)
		}

		if outputFmt == "json" || outputFmt == "yaml" {
			return printOutput(versions)
		}

		headers := []string{"ID", "Version", "Status", "Hash", "Change", "Created"}
		rows := make([][]string, 0, len(versions))
		for _, v := range versions {
			rows = append(rows, []string{
				truncate(v.ID, 12),
				fmt.Sprintf("%d", v.Version),
				v.Status,
				truncate(v.ContentHash, 12),
				truncate(v.ChangeRequestID, 12),
				shortTime(v.CreatedAt),
			})
		}
		printTable(headers, rows)
		return nil
	},
}

var (
	promptText   string
	promptSchema string
)

var promptsNewVersionCmd = &cobra.Command{
	Use:   "new-version <template-id>",
	Short: "Create a new draft version of a prompt template",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newClient()

		body := map[string]any{"prompt_text": promptText}
		if promptSchema != "" {
			var schema any
			if err := json.Unmarshal([]byte(promptSchema), &schema); err != nil {
				return fmt.Errorf("invalid --schema JSON: %w", err)
			}
			body["parameters_schema"] = schema
		}

		var result map[string]any
		if err := client.postJSON(apiBase+"/prompts/templates/"+args[0]+"/versions", body, &result); err != nil {
			return fmt.Errorf("failed to create version: %w", err)
		}
		return printOutput(result)
	},
}

var promptsDiffCmd = &cobra.Command{
	Use:   "diff <version-id>",
	Short: "Show the diff from the previous version",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newClient()

		var result struct {
			Diff string `json:"diff"`
		}
		if err := client.getJSON(apiBase+"/prompts/versions/"+args[0]+"/diff", &result); err != nil {
			return fmt.Errorf("failed to get diff: %w", err)
		}
		fmt.Print(result.Diff)
		return nil
	},
}

var promptSubmitChangeID string

var promptsSubmitCmd = &cobra.Command{
	Use:   "submit <version-id>",
	Short: "Submit a draft version under a change request",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newClient()

		body := map[string]any{"change_request_id": promptSubmitChangeID}

		var result map[string]any
		if err := client.postJSON(apiBase+"/prompts/versions/"+args[0]+"/submit", body, &result); err != nil {
			return fmt.Errorf("failed to submit version: %w", err)
		}
		return printOutput(result)
	},
}

var (
	promptActivateVersion string
	promptActivateChange  string
)

var promptsActivateCmd = &cobra.Command{
	Use:   "activate <system-id>",
	Short: "Activate a submitted prompt version on an AI system",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newClient()

		body := map[string]any{
			"prompt_version_id": promptActivateVersion,
			"change_request_id": promptActivateChange,
		}

		var result map[string]any
		if err := client.postJSON(apiBase+"/ai-systems/"+args[0]+"/prompts/activate", body, &result); err != nil {
			return fmt.Errorf("failed to activate version: %w", err)
		}
		return printOutput(result)
	},
}

func init() {
	promptsCreateCmd.Flags().StringVar(&templateName, "name", "", "Unique template name")
	promptsCreateCmd.Flags().StringVar(&templateDescription, "description", "", "Template description")
	_ = promptsCreateCmd.MarkFlagRequired("name")

	promptsNewVersionCmd.Flags().StringVar(&promptText, "text", "", "Prompt text")
	promptsNewVersionCmd.Flags().StringVar(&promptSchema, "schema", "", "Parameters schema as JSON")
	_ = promptsNewVersionCmd.MarkFlagRequired("text")

	promptsSubmitCmd.Flags().StringVar(&promptSubmitChangeID, "change", "", "Submitted change request ID")
	_ = promptsSubmitCmd.MarkFlagRequired("change")

	promptsActivateCmd.Flags().StringVar(&promptActivateVersion, "version", "", "Submitted prompt version ID")
	promptsActivateCmd.Flags().StringVar(&promptActivateChange, "change", "", "Approved change request ID")
	_ = promptsActivateCmd.MarkFlagRequired("version")
	_ = promptsActivateCmd.MarkFlagRequired("change")

	promptsCmd.AddCommand(promptsListCmd)
	promptsCmd.AddCommand(promptsCreateCmd)
	promptsCmd.AddCommand(promptsVersionsCmd)
	promptsCmd.AddCommand(promptsNewVersionCmd)
	promptsCmd.AddCommand(promptsDiffCmd)
	promptsCmd.AddCommand(promptsSubmitCmd)
	promptsCmd.AddCommand(promptsActivateCmd)

	rootCmd.AddCommand(promptsCmd)
}
