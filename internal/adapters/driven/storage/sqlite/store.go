package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/intentflow/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/intentflow/internal/core/domain"
	"github.com/custodia-labs/intentflow/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.Store = (*Store)(nil)

// memoryDSN opens a private database that lives as long as its connection.
const memoryDSN = ":memory:"

// Store is a SQLite implementation of driven.Store on an in-memory database.
// Each method runs as a single statement or transaction.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// NewStore opens a fresh in-memory database and applies migrations.
func NewStore() (*Store, error) {
	db, err := sql.Open("sqlite", memoryDSN)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Every connection to :memory: is a separate database, so the pool must
	// hold exactly one connection and never recycle it.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s := &Store{db: db, now: time.Now}
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Close closes the database connection. All data is discarded.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate runs all pending up migrations in version order.
func (s *Store) migrate(fsys fs.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			upFiles = append(upFiles, entry.Name())
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// "001_initial.up.sql" -> 1
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// withTx runs fn inside a transaction, committing on success.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// ==================== Intents ====================

// SaveIntent stores or replaces an intent.
func (s *Store) SaveIntent(ctx context.Context, intent *domain.Intent) error {
	if err := intent.Validate(); err != nil {
		return err
	}
	return putIntent(ctx, s.db, intent)
}

// GetIntent retrieves an intent by ID.
func (s *Store) GetIntent(ctx context.Context, id string) (*domain.Intent, error) {
	return getIntent(ctx, s.db, id)
}

// UpdateIntent merges update into the stored intent.
func (s *Store) UpdateIntent(ctx context.Context, id string, update domain.IntentUpdate) (*domain.Intent, error) {
	var updated domain.Intent
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		existing, err := getIntent(ctx, tx, id)
		if err != nil {
			return err
		}
		updated = update.Apply(*existing)
		updated.UpdatedAt = domain.NextUpdatedAt(existing.UpdatedAt, s.now())
		return putIntent(ctx, tx, &updated)
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteIntent removes an intent and the flows indexed under it.
func (s *Store) DeleteIntent(ctx context.Context, id string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM flows WHERE id IN (SELECT flow_id FROM intent_flows WHERE intent_id = ?)
		`, id); err != nil {
			return fmt.Errorf("deleting intent flows: %w", err)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM intent_flows WHERE intent_id = ?", id); err != nil {
			return fmt.Errorf("deleting intent index: %w", err)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM intents WHERE id = ?", id); err != nil {
			return fmt.Errorf("deleting intent: %w", err)
		}
		return nil
	})
}

func putIntent(ctx context.Context, q queryer, intent *domain.Intent) error {
	mainGoal, err := json.Marshal(intent.MainGoal)
	if err != nil {
		return fmt.Errorf("marshalling main goal: %w", err)
	}
	subGoals, err := json.Marshal(intent.SubGoals)
	if err != nil {
		return fmt.Errorf("marshalling sub-goals: %w", err)
	}

	_, err = q.ExecContext(ctx, `
		INSERT INTO intents (id, raw_intent, main_goal, sub_goals, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			raw_intent = excluded.raw_intent,
			main_goal = excluded.main_goal,
			sub_goals = excluded.sub_goals,
			status = excluded.status,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at
	`, intent.IntentID, intent.RawIntent, string(mainGoal), string(subGoals), string(intent.Status),
		formatTime(intent.CreatedAt), formatTime(intent.UpdatedAt))
	if err != nil {
		return fmt.Errorf("saving intent: %w", err)
	}
	return nil
}

func getIntent(ctx context.Context, q queryer, id string) (*domain.Intent, error) {
	row := q.QueryRowContext(ctx, `
		SELECT id, raw_intent, main_goal, sub_goals, status, created_at, updated_at
		FROM intents WHERE id = ?
	`, id)

	var intent domain.Intent
	var mainGoal, subGoals, status, createdAt, updatedAt string
	if err := row.Scan(&intent.IntentID, &intent.RawIntent, &mainGoal, &subGoals,
		&status, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning intent: %w", err)
	}

	if err := json.Unmarshal([]byte(mainGoal), &intent.MainGoal); err != nil {
		return nil, fmt.Errorf("unmarshalling main goal: %w", err)
	}
	if err := json.Unmarshal([]byte(subGoals), &intent.SubGoals); err != nil {
		return nil, fmt.Errorf("unmarshalling sub-goals: %w", err)
	}
	intent.Status = domain.IntentStatus(status)

	var err error
	if intent.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if intent.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &intent, nil
}

// ==================== Flows ====================

// flowSelect lists flow columns in scanFlow order.
const flowSelect = "SELECT f.id, f.intent_id, f.metadata, f.resources, f.steps, f.output, f.description FROM flows f"

// SaveFlow stores or replaces a flow and links it under its intent.
// A flow re-saved under a different intent stays listed under the old one.
func (s *Store) SaveFlow(ctx context.Context, flow *domain.Flow) error {
	if err := flow.Validate(); err != nil {
		return err
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := putFlow(ctx, tx, flow); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO intent_flows (intent_id, flow_id) VALUES (?, ?)
			ON CONFLICT(intent_id, flow_id) DO NOTHING
		`, flow.IntentID, flow.ID); err != nil {
			return fmt.Errorf("linking flow: %w", err)
		}
		return nil
	})
}

// GetFlow retrieves a flow by ID.
func (s *Store) GetFlow(ctx context.Context, id string) (*domain.Flow, error) {
	return getFlow(ctx, s.db, id)
}

// GetFlowsByIntentID returns the flows indexed under an intent.
func (s *Store) GetFlowsByIntentID(ctx context.Context, intentID string) ([]domain.Flow, error) {
	rows, err := s.db.QueryContext(ctx, flowSelect+`
		JOIN intent_flows x ON x.flow_id = f.id
		WHERE x.intent_id = ?
		ORDER BY x.seq
	`, intentID)
	if err != nil {
		return nil, fmt.Errorf("querying flows: %w", err)
	}
	defer rows.Close()

	flows := make([]domain.Flow, 0)
	for rows.Next() {
		flow, err := scanFlow(rows)
		if err != nil {
			return nil, err
		}
		flows = append(flows, *flow)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating flows: %w", err)
	}
	return flows, nil
}

// UpdateFlow merges update into the stored flow.
func (s *Store) UpdateFlow(ctx context.Context, id string, update domain.FlowUpdate) (*domain.Flow, error) {
	var updated domain.Flow
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		existing, err := getFlow(ctx, tx, id)
		if err != nil {
			return err
		}
		updated = update.Apply(*existing)
		return putFlow(ctx, tx, &updated)
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteFlow removes a flow and unlinks it from its current intent.
func (s *Store) DeleteFlow(ctx context.Context, id string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var intentID string
		err := tx.QueryRowContext(ctx, "SELECT intent_id FROM flows WHERE id = ?", id).Scan(&intentID)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("looking up flow: %w", err)
		}

		if _, err := tx.ExecContext(ctx, "DELETE FROM flows WHERE id = ?", id); err != nil {
			return fmt.Errorf("deleting flow: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM intent_flows WHERE intent_id = ? AND flow_id = ?", intentID, id); err != nil {
			return fmt.Errorf("unlinking flow: %w", err)
		}
		return nil
	})
}

func putFlow(ctx context.Context, q queryer, flow *domain.Flow) error {
	metadata, err := json.Marshal(flow.Metadata)
	if err != nil {
		return fmt.Errorf("marshalling metadata: %w", err)
	}
	resources, err := json.Marshal(flow.Resources)
	if err != nil {
		return fmt.Errorf("marshalling resources: %w", err)
	}
	steps, err := json.Marshal(flow.Steps)
	if err != nil {
		return fmt.Errorf("marshalling steps: %w", err)
	}
	output, err := json.Marshal(flow.Output)
	if err != nil {
		return fmt.Errorf("marshalling output: %w", err)
	}

	_, err = q.ExecContext(ctx, `
		INSERT INTO flows (id, intent_id, metadata, resources, steps, output, description)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			intent_id = excluded.intent_id,
			metadata = excluded.metadata,
			resources = excluded.resources,
			steps = excluded.steps,
			output = excluded.output,
			description = excluded.description
	`, flow.ID, flow.IntentID, string(metadata), string(resources), string(steps), string(output),
		flow.NaturalLanguageDescription)
	if err != nil {
		return fmt.Errorf("saving flow: %w", err)
	}
	return nil
}

func getFlow(ctx context.Context, q queryer, id string) (*domain.Flow, error) {
	flow, err := scanFlow(q.QueryRowContext(ctx, flowSelect+" WHERE f.id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return flow, err
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanFlow(sc scanner) (*domain.Flow, error) {
	var flow domain.Flow
	var metadata, resources, steps, output string
	if err := sc.Scan(&flow.ID, &flow.IntentID, &metadata, &resources, &steps, &output,
		&flow.NaturalLanguageDescription); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning flow: %w", err)
	}

	for _, field := range []struct {
		name string
		data string
		dst  any
	}{
		{"metadata", metadata, &flow.Metadata},
		{"resources", resources, &flow.Resources},
		{"steps", steps, &flow.Steps},
		{"output", output, &flow.Output},
	} {
		if err := json.Unmarshal([]byte(field.data), field.dst); err != nil {
			return nil, fmt.Errorf("unmarshalling %s: %w", field.name, err)
		}
	}
	return &flow, nil
}

// Times are stored as RFC 3339 text so nanoseconds survive the round trip.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing time %q: %w", s, err)
	}
	return t, nil
}
