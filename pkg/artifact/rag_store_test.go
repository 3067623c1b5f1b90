package artifact

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aigovtower/grc-registry/pkg/apierrors"
	"github.com/aigovtower/grc-registry/pkg/db"
)

func TestRAGStore_CreateSource(t *testing.T) {
	env := newTestEnv(t)

	source, err := env.rag.CreateSource("kb-main", "Primary knowledge base", RAGSourceConfluence, "alice")
	require.NoError(t, err)
	assert.NotEmpty(t, source.ID)
	assert.Equal(t, RAGSourceConfluence, source.SourceType)

	_, err = env.rag.CreateSource("kb-main", "duplicate", RAGSourceBlob, "bob")
	var ce *apierrors.ConflictError
	require.ErrorAs(t, err, &ce)

	var ve *apierrors.ValidationError
	_, err = env.rag.CreateSource("", "", RAGSourceBlob, "alice")
	require.ErrorAs(t, err, &ve)
	_, err = env.rag.CreateSource("kb-other", "", RAGSourceType("Gopher"), "alice")
	require.ErrorAs(t, err, &ve)
}

// Ingestion and embedding configs are stored as JSON text columns; a version
// read back from the database must carry the same maps that were written.
func TestRAGStore_VersionConfigRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	source, err := env.rag.CreateSource("kb-main", "", RAGSourceSharePoint, "alice")
	require.NoError(t, err)

	content := RAGContent{
		URI: "https://sharepoint.example.com/sites/kb",
		IngestionConfig: db.JSONAny{
			"chunk_size":    float64(512),
			"chunk_overlap": float64(64),
			"file_types":    []any{"pdf", "docx"},
		},
		EmbeddingConfig: db.JSONAny{
			"model":      "text-embedding-3-small",
			"dimensions": float64(1536),
		},
	}
	created, err := env.rag.CreateVersion(source.ID, content, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, created.Version)
	assert.Equal(t, VersionDraft, created.Status)

	got, err := env.rag.GetVersion(created.ID)
	require.NoError(t, err)
	assert.Equal(t, content.IngestionConfig, got.IngestionConfig)
	assert.Equal(t, content.EmbeddingConfig, got.EmbeddingConfig)
	assert.Equal(t, created.ContentHash, got.ContentHash)
}

func TestRAGStore_SequentialVersionsAndDiff(t *testing.T) {
	env := newTestEnv(t)
	source, err := env.rag.CreateSource("kb-main", "", RAGSourceWeb, "alice")
	require.NoError(t, err)

	first, err := env.rag.CreateVersion(source.ID, RAGContent{
		URI:             "https://docs.example.com",
		IngestionConfig: db.JSONAny{"chunk_size": float64(256)},
		EmbeddingConfig: db.JSONAny{"model": "small"},
	}, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, first.Version)
	assert.Empty(t, first.DiffFromPrev)

	second, err := env.rag.CreateVersion(source.ID, RAGContent{
		URI:             "https://docs.example.com",
		IngestionConfig: db.JSONAny{"chunk_size": float64(512)},
		EmbeddingConfig: db.JSONAny{"model": "small"},
	}, "bob")
	require.NoError(t, err)
	assert.Equal(t, 2, second.Version)
	assert.NotEmpty(t, second.DiffFromPrev)
	assert.NotEqual(t, first.ContentHash, second.ContentHash)

	versions, err := env.rag.ListVersions(source.ID)
	require.NoError(t, err)
	require.Len(t, versions, 2)
	assert.Equal(t, 1, versions[0].Version)
	assert.Equal(t, 2, versions[1].Version)

	var nf *apierrors.NotFoundError
	_, err = env.rag.CreateVersion("missing", RAGContent{URI: "x"}, "alice")
	require.ErrorAs(t, err, &nf)
}
