package audit

import (
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/aigovtower/grc-registry/pkg/db"
)

// Entry describes a governance action to be written to the audit trail.
type Entry struct {
	Actor      string
	Action     string
	EntityType string
	EntityID   string
	// Payload is the request or result body the hash commits to.
	Payload any
	// PrevState and NewState are set for state-machine transitions.
	PrevState string
	NewState  string
	Metadata  db.JSONAny
}

// Recorder writes audit trail entries. A failed write must never fail the
// business operation it describes: errors are logged and swallowed.
type Recorder struct {
	store  *Store
	logger *slog.Logger
}

// NewRecorder creates a Recorder. A nil logger falls back to slog.Default().
func NewRecorder(store *Store, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{store: store, logger: logger}
}

// Record appends an audit entry. Call it strictly after the business
// transaction has committed; the trail describes what happened, it does not
// gate it.
func (r *Recorder) Record(e Entry) {
	payloadHash, err := PayloadHash(e.Payload)
	if err != nil {
		r.logger.Error("audit payload hash failed", "action", e.Action, "error", err)
		return
	}

	record := &LogRecord{
		ID:          uuid.New().String(),
		Timestamp:   time.Now().UTC(),
		Actor:       e.Actor,
		Action:      e.Action,
		EntityType:  e.EntityType,
		EntityID:    e.EntityID,
		PayloadHash: payloadHash,
		PrevState:   e.PrevState,
		NewState:    e.NewState,
		StateHash:   StateHash(e.PrevState, e.NewState),
		Metadata:    e.Metadata,
	}

	if err := r.store.Append(record); err != nil {
		r.logger.Error("audit append failed",
			"action", e.Action,
			"entity_type", e.EntityType,
			"entity_id", e.EntityID,
			"error", err,
		)
	}
}
