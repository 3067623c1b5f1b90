package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var ragCmd = &cobra.Command{
	Use:   "rag",
	Short: "Manage RAG sources and versions",
}

type ragSource struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	SourceType  string `json:"source_type"`
	CreatedBy   string `json:"created_by"`
	CreatedAt   string `json:"created_at"`
}

type ragVersion struct {
	ID              string `json:"id"`
	SourceID        string `json:"rag_source_id"`
	Version         int    `json:"version"`
	Status          string `json:"status"`
	URI             string `json:"uri"`
	ContentHash     string `json:"content_hash"`
	ChangeRequestID string `json:"change_request_id,omitempty"`
	CreatedAt       string `json:"created_at"`
}

var ragListCmd = &cobra.Command{
	Use:   "list",
	Short: "List RAG sources",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newClient()

		var sources []ragSource
		if err := client.getJSON(apiBase+"/rag/sources", &sources); err != nil {
			return fmt.Errorf("failed to list sources: %w", err)
		}

		if outputFmt == "json" || outputFmt == "yaml" {
			return printOutput(sources)
		}

		headers := []string{"ID", "Name", "Type", "Description", "Created"}
		rows := make([][]string, 0, len(sources))
		for _, s := range sources {
			rows = append(rows, []string{
				truncate(s.ID, 12),
				s.Name,
				s.SourceType,
				truncate(s.Description, 40),
				shortTime(s.CreatedAt),
			})
		}
		printTable(headers, rows)
		return nil
	},
}

var (
	ragName        string
	ragDescription string
	ragSourceType  string
)

var ragCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Register a RAG source",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newClient()

		body := map[string]any{
			"name":        ragName,
			"description": ragDescription,
			"source_type": ragSourceType,
		}

		var result map[string]any
		if err := client.postJSON(apiBase+"/rag/sources", body, &result); err != nil {
			return fmt.Errorf("failed to create source: %w", err)
		}
		return printOutput(result)
	},
}

var ragVersionsCmd = &cobra.Command{
	Use:   "versions <source-id>",
	Short: "List versions of a RAG source",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newClient()

		var versions []ragVersion
		if err := client.getJSON(apiBase+"/rag/sources/"+args[0]+"/versions", &versions); err != nil {
			return fmt.Errorf("failed to list versions: %w", err)
		}

		if outputFmt == "json" || outputFmt == "yaml" {
			return printOutput(versions)
		}

		headers := []string{"ID", "Version", "Status", "URI", "Change", "Created"}
		rows := make([][]string, 0, len(versions))
		for _, v := range versions {
			rows = append(rows, []string{
				truncate(v.ID, 12),
				fmt.Sprintf("%d", v.Version),
				v.Status,
				truncate(v.URI, 40),
				truncate(v.ChangeRequestID, 12),
				shortTime(v.CreatedAt),
			})
		}
		printTable(headers, rows)
		return nil
	},
}

var (
	ragURI             string
	ragIngestionConfig string
	ragEmbeddingConfig string
)

var ragNewVersionCmd = &cobra.Command{
	Use:   "new-version <source-id>",
	Short: "Create a new draft version of a RAG source",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newClient()

		body := map[string]any{"uri": ragURI}
		for flag, raw := range map[string]string{
			"ingestion_config": ragIngestionConfig,
			"embedding_config": ragEmbeddingConfig,
		} {
			if raw == "" {
				continue
			}
			var cfg any
			if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
				return fmt.Errorf("invalid %s JSON: %w", flag, err)
			}
			body[flag] = cfg
		}

		var result map[string]any
		if err := client.postJSON(apiBase+"/rag/sources/"+args[0]+"/versions", body, &result); err != nil {
			return fmt.Errorf("failed to create version: %w", err)
		}
		return printOutput(result)
	},
}

var ragDiffCmd = &cobra.Command{
	Use:   "diff <version-id>",
	Short: "Show the diff from the previous version",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newClient()

		var result struct {
			Diff string `json:"diff"`
		}
		if err := client.getJSON(apiBase+"/rag/versions/"+args[0]+"/diff", &result); err != nil {
			return fmt.Errorf("failed to get diff: %w", err)
		}
		fmt.Print(result.Diff)
		return nil
	},
}

var ragSubmitChangeID string

var ragSubmitCmd = &cobra.Command{
	Use:   "submit <version-id>",
	Short: "Submit a draft version under a change request",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newClient()

		body := map[string]any{"change_request_id": ragSubmitChangeID}

		var result map[string]any
		if err := client.postJSON(apiBase+"/rag/versions/"+args[0]+"/submit", body, &result); err != nil {
			return fmt.Errorf("failed to submit version: %w", err)
		}
		return printOutput(result)
	},
}

var (
	ragActivateVersion string
	ragActivateChange  string
)

var ragActivateCmd = &cobra.Command{
	Use:   "activate <system-id>",
	Short: "Activate a submitted RAG version on an AI system",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newClient()

		body := map[string]any{
			"rag_source_version_id": ragActivateVersion,
			"change_request_id":     ragActivateChange,
		}

		var result map[string]any
		if err := client.postJSON(apiBase+"/ai-systems/"+args[0]+"/rag/activate", body, &result); err != nil {
			return fmt.Errorf("failed to activate version: %w", err)
		}
		return printOutput(result)
	},
}

func init() {
	ragCreateCmd.Flags().StringVar(&ragName, "name", "", "Unique source name")
	ragCreateCmd.Flags().StringVar(&ragDescription, "description", "", "Source description")
	ragCreateCmd.Flags().StringVar(&ragSourceType, "type", "", "Source type: SharePoint, Blob, Web, Confluence, File")
	_ = ragCreateCmd.MarkFlagRequired("name")
	_ = ragCreateCmd.MarkFlagRequired("type")

	ragNewVersionCmd.Flags().StringVar(&ragURI, "uri", "", "Source location URI")
	ragNewVersionCmd.Flags().StringVar(&ragIngestionConfig, "ingestion", "", "Ingestion config as JSON")
	ragNewVersionCmd.Flags().StringVar(&ragEmbeddingConfig, "embedding", "", "Embedding config as JSON")
	_ = ragNewVersionCmd.MarkFlagRequired("uri")

	ragSubmitCmd.Flags().StringVar(&ragSubmitChangeID, "change", "", "Submitted change request ID")
	_ = ragSubmitCmd.MarkFlagRequired("change")

	ragActivateCmd.Flags().StringVar(&ragActivateVersion, "version", "", "Submitted RAG version ID")
	ragActivateCmd.Flags().StringVar(&ragActivateChange, "change", "", "Approved change request ID")
	_ = ragActivateCmd.MarkFlagRequired("version")
	_ = ragActivateCmd.MarkFlagRequired("change")

	ragCmd.AddCommand(ragListCmd)
	ragCmd.AddCommand(ragCreateCmd)
	ragCmd.AddCommand(ragVersionsCmd)
	ragCmd.AddCommand(ragNewVersionCmd)
	ragCmd.AddCommand(ragDiffCmd)
	ragCmd.AddCommand(ragSubmitCmd)
	ragCmd.AddCommand(ragActivateCmd)

	rootCmd.AddCommand(ragCmd)
}
