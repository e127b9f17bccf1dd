// Package analytics records side-effect-producing actions, append-only.
// Writes are best-effort: callers log failures and move on.
package analytics

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Hitanshu08/percy-ecomm-sub000/internal/infra/db"
)

type Event struct {
	ID          int64
	EventType   string
	Status      string
	ExternalRef *string
	Payload     map[string]any
	CreatedAt   time.Time
}

type Repo struct{ db db.DBTX }

func NewRepo(conn db.DBTX) *Repo { return &Repo{db: conn} }

// Record inserts the event. Events carrying an external_ref are deduplicated
// on (event_type, status, external_ref), so webhook redelivery does not pile
// up duplicate rows.
func (r *Repo) Record(ctx context.Context, eventType, status string, externalRef *string, payload map[string]any) error {
	pb, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `
		INSERT INTO analytics_events (event_type, status, external_ref, payload)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (event_type, status, external_ref) WHERE external_ref IS NOT NULL
		DO NOTHING
	`, eventType, status, externalRef, pb)
	return err
}
