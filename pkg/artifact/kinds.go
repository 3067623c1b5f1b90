package artifact

import (
	"encoding/json"
	"fmt"

	"github.com/aigovtower/grc-registry/pkg/db"
)

// Kind is the capability shared by the artifact families the registry
// versions. Canonicalize produces the deterministic string form that diffs
// and content hashes are computed over.
type Kind interface {
	Label() string
	Canonicalize(content any) (string, error)
}

// PromptContent is the caller-supplied body of a prompt version.
type PromptContent struct {
	PromptText       string     `json:"prompt_text"`
	ParametersSchema db.JSONAny `json:"parameters_schema,omitempty"`
}

// RAGContent is the caller-supplied body of a RAG source version.
type RAGContent struct {
	URI             string     `json:"uri"`
	IngestionConfig db.JSONAny `json:"ingestion_config"`
	EmbeddingConfig db.JSONAny `json:"embedding_config"`
}

// PromptKind canonicalizes prompt versions: the prompt text followed by the
// canonical JSON of the parameters schema, or just the text when no schema
// is set.
var PromptKind Kind = promptKind{}

// RAGKind canonicalizes RAG source versions: a single sorted-key JSON object
// of the URI and both configs.
var RAGKind Kind = ragKind{}

type promptKind struct{}

func (promptKind) Label() string { return "prompt" }

func (promptKind) Canonicalize(content any) (string, error) {
	c, ok := content.(PromptContent)
	if !ok {
		return "", fmt.Errorf("prompt kind cannot canonicalize %T", content)
	}
	if c.ParametersSchema == nil {
		return c.PromptText, nil
	}
	schema, err := canonicalJSON(c.ParametersSchema)
	if err != nil {
		return "", fmt.Errorf("canonicalize parameters schema: %w", err)
	}
	return c.PromptText + schema, nil
}

type ragKind struct{}

func (ragKind) Label() string { return "rag_source" }

func (ragKind) Canonicalize(content any) (string, error) {
	c, ok := content.(RAGContent)
	if !ok {
		return "", fmt.Errorf("rag kind cannot canonicalize %T", content)
	}
	return canonicalJSON(map[string]any{
		"uri":              c.URI,
		"ingestion_config": c.IngestionConfig,
		"embedding_config": c.EmbeddingConfig,
	})
}

// canonicalJSON marshals v deterministically. Go's encoder writes map keys
// in sorted order, so one marshal pass is canonical for the map-shaped
// values the kinds produce.
func canonicalJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
