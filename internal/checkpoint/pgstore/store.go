// Package pgstore implements a Postgres-backed alternative to the
// executor's file-based checkpoint persistence (internal/executor's
// writeFileAtomic), for callers who run many concurrent workflows and
// want checkpoints queryable rather than scattered across the
// filesystem. Grounded in mbflow's BunStore
// (internal/infrastructure/storage/bun_store.go), generalized from that
// store's workflow/execution/node/edge CRUD to a single checkpoint blob
// table keyed by (workflow ID, run ID).
package pgstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"github.com/wfcore/wfcore/internal/domain"
	"github.com/wfcore/wfcore/internal/state"
)

// CheckpointModel is the persisted row for one run's latest checkpoint.
// The full state document is stored as a jsonb blob (state.Container's
// own Serialize codec) rather than normalized columns — the checkpoint's
// shape is the executor's concern, not the store's; this table exists to
// give it a queryable home, not to reinterpret its contents.
type CheckpointModel struct {
	bun.BaseModel `bun:"table:workflow_checkpoints,alias:c"`

	WorkflowID  string        `bun:"workflow_id,pk"`
	RunID       string        `bun:"run_id,pk"`
	Status      domain.Status `bun:"status"`
	CurrentWave int           `bun:"current_wave"`
	Document    []byte        `bun:"document,type:jsonb"`
	UpdatedAt   time.Time     `bun:"updated_at"`
}

// Store persists execution checkpoints to Postgres via bun.
type Store struct {
	db *bun.DB
}

// New opens a Store against dsn. The caller owns the *bun.DB's lifecycle
// indirectly through Store.Close.
func New(dsn string) *Store {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	return &Store{db: db}
}

// InitSchema creates the checkpoint table if it does not already exist.
func (s *Store) InitSchema(ctx context.Context) error {
	_, err := s.db.NewCreateTable().Model((*CheckpointModel)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return fmt.Errorf("pgstore: init schema: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save upserts the container's current checkpoint, keyed by
// (workflowID, runID).
func (s *Store) Save(ctx context.Context, st *state.Container) error {
	doc, err := st.Serialize()
	if err != nil {
		return fmt.Errorf("pgstore: serialize checkpoint: %w", err)
	}

	model := &CheckpointModel{
		WorkflowID:  st.WorkflowID,
		RunID:       st.RunID,
		Status:      st.GetStatus(),
		CurrentWave: st.GetCurrentWave(),
		Document:    doc,
		UpdatedAt:   time.Now(),
	}

	_, err = s.db.NewInsert().
		Model(model).
		On("CONFLICT (workflow_id, run_id) DO UPDATE").
		Set("status = EXCLUDED.status").
		Set("current_wave = EXCLUDED.current_wave").
		Set("document = EXCLUDED.document").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("pgstore: save checkpoint: %w", err)
	}
	return nil
}

// Load fetches and decodes the checkpoint for (workflowID, runID).
func (s *Store) Load(ctx context.Context, workflowID, runID string) (*state.Container, error) {
	model := new(CheckpointModel)
	err := s.db.NewSelect().
		Model(model).
		Where("workflow_id = ? AND run_id = ?", workflowID, runID).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("pgstore: load checkpoint: %w", err)
	}

	st, err := state.Deserialize(model.Document)
	if err != nil {
		return nil, fmt.Errorf("pgstore: decode checkpoint: %w", err)
	}
	return st, nil
}

// CanResume reports whether a persisted checkpoint exists for
// (workflowID, runID) with a status eligible for resume, mirroring
// executor.CanResume's file-based check.
func (s *Store) CanResume(ctx context.Context, workflowID, runID string) bool {
	var status domain.Status
	err := s.db.NewSelect().
		Model((*CheckpointModel)(nil)).
		Column("status").
		Where("workflow_id = ? AND run_id = ?", workflowID, runID).
		Scan(ctx, &status)
	if err != nil {
		return false
	}
	return status == domain.StatusFailed || status == domain.StatusCancelled
}
