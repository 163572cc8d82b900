package stores

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"

	// SQLite driver
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db   *sql.DB
	cfg  Config
	path string
}

var _ Store = (*SQLiteStore)(nil)

// Config holds SQLite store configuration
type Config struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// NewSQLiteStore creates a new SQLite store instance
func NewSQLiteStore(cfg Config) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	// Set defaults
	if cfg.MaxOpenConns == 0 {
		cfg.MaxOpenConns = 4
	}
	if cfg.MaxIdleConns == 0 {
		cfg.MaxIdleConns = 2
	}
	if cfg.ConnMaxLifetime == 0 {
		cfg.ConnMaxLifetime = 5 * time.Minute
	}
	// Every connection to :memory: opens its own database.
	if cfg.Path == MemoryPath {
		cfg.MaxOpenConns = 1
		cfg.MaxIdleConns = 1
		cfg.ConnMaxLifetime = 0
	}

	return &SQLiteStore{
		cfg:  cfg,
		path: cfg.Path,
	}, nil
}

// dsn returns the modernc connection string with the connection pragmas.
func (s *SQLiteStore) dsn() string {
	pragmas := []string{
		"_pragma=foreign_keys(1)",
		"_pragma=busy_timeout(5000)",
		"_txlock=immediate",
	}
	if s.path != MemoryPath {
		pragmas = append(pragmas, "_pragma=journal_mode(WAL)", "_pragma=synchronous(NORMAL)")
	}
	return "file:" + s.path + "?" + strings.Join(pragmas, "&")
}

// Init opens the database connection.
func (s *SQLiteStore) Init(ctx context.Context) error {
	db, err := sql.Open("sqlite", s.dsn())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(s.cfg.MaxOpenConns)
	db.SetMaxIdleConns(s.cfg.MaxIdleConns)
	db.SetConnMaxLifetime(s.cfg.ConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	s.db = db
	return nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Migrate runs database migrations.
func (s *SQLiteStore) Migrate(_ context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}

	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	driver, err := sqlite.WithInstance(s.db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("failed to create database driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// CreateOperation records a new operation. An empty ID is replaced by a UUID.
func (s *SQLiteStore) CreateOperation(ctx context.Context, op *Operation) error {
	if op.ID == "" {
		op.ID = uuid.New().String()
	}
	if op.StartedAt.IsZero() {
		op.StartedAt = time.Now()
	}
	op.StartedAt = op.StartedAt.UTC()
	if op.Plan == "" {
		op.Plan = "[]"
	}
	if op.Status == "" {
		op.Status = OperationStatusRunning
	}

	query := `
		INSERT INTO operations (id, channel, component, action, status, dry_run, plan, error, error_code, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		op.ID,
		op.Channel,
		op.Component,
		op.Action,
		op.Status,
		op.DryRun,
		op.Plan,
		op.Error,
		op.ErrorCode,
		op.StartedAt,
		op.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create operation: %w", err)
	}

	return nil
}

// CompleteOperation sets the final status of an operation.
func (s *SQLiteStore) CompleteOperation(ctx context.Context, id string, status OperationStatus, errMsg, errCode *string) error {
	query := `
		UPDATE operations
		SET status = ?, error = ?, error_code = ?, completed_at = ?
		WHERE id = ?
	`

	var completedAt *time.Time
	if status.Terminal() {
		now := time.Now().UTC()
		completedAt = &now
	}

	result, err := s.db.ExecContext(ctx, query, status, errMsg, errCode, completedAt, id)
	if err != nil {
		return fmt.Errorf("failed to complete operation: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("operation %s: %w", id, ErrNotFound)
	}

	return nil
}

const operationColumns = `id, channel, component, action, status, dry_run, plan, error, error_code, started_at, completed_at`

func scanOperation(scan func(dest ...any) error) (*Operation, error) {
	op := &Operation{}
	err := scan(
		&op.ID,
		&op.Channel,
		&op.Component,
		&op.Action,
		&op.Status,
		&op.DryRun,
		&op.Plan,
		&op.Error,
		&op.ErrorCode,
		&op.StartedAt,
		&op.CompletedAt,
	)
	return op, err
}

// GetOperation retrieves an operation by ID
func (s *SQLiteStore) GetOperation(ctx context.Context, id string) (*Operation, error) {
	query := `SELECT ` + operationColumns + ` FROM operations WHERE id = ?`

	op, err := scanOperation(s.db.QueryRowContext(ctx, query, id).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("operation %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get operation: %w", err)
	}

	return op, nil
}

// ListOperations lists operations, newest first.
func (s *SQLiteStore) ListOperations(ctx context.Context, filter OperationFilter) ([]*Operation, error) {
	query := `SELECT ` + operationColumns + `
		FROM operations
		WHERE (? = '' OR channel = ?)
		  AND (? = '' OR status = ?)
		ORDER BY started_at DESC, id
		LIMIT ? OFFSET ?
	`

	limit := filter.Limit
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx, query,
		filter.Channel, filter.Channel,
		string(filter.Status), string(filter.Status),
		limit, filter.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list operations: %w", err)
	}
	defer rows.Close()

	ops := []*Operation{}
	for rows.Next() {
		op, err := scanOperation(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan operation: %w", err)
		}
		ops = append(ops, op)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating operations: %w", err)
	}

	return ops, nil
}

// PruneOperations deletes operations started before the given time, with
// their steps and events.
func (s *SQLiteStore) PruneOperations(ctx context.Context, before time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM operations WHERE started_at < ?`, before.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to prune operations: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows, nil
}

// AddStep records an applied or failed plan step.
func (s *SQLiteStore) AddStep(ctx context.Context, step *OperationStep) error {
	if step.ID == "" {
		step.ID = uuid.New().String()
	}
	if step.AppliedAt.IsZero() {
		step.AppliedAt = time.Now()
	}
	step.AppliedAt = step.AppliedAt.UTC()

	query := `
		INSERT INTO operation_steps (id, operation_id, position, channel, action, status, error, applied_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		step.ID,
		step.OperationID,
		step.Position,
		step.Channel,
		step.Action,
		step.Status,
		step.Error,
		step.AppliedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to add step: %w", err)
	}

	return nil
}

// ListSteps lists the steps of an operation in plan order.
func (s *SQLiteStore) ListSteps(ctx context.Context, operationID string) ([]*OperationStep, error) {
	query := `
		SELECT id, operation_id, position, channel, action, status, error, applied_at
		FROM operation_steps
		WHERE operation_id = ?
		ORDER BY position ASC
	`

	rows, err := s.db.QueryContext(ctx, query, operationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list steps: %w", err)
	}
	defer rows.Close()

	steps := []*OperationStep{}
	for rows.Next() {
		step := &OperationStep{}
		err := rows.Scan(
			&step.ID,
			&step.OperationID,
			&step.Position,
			&step.Channel,
			&step.Action,
			&step.Status,
			&step.Error,
			&step.AppliedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan step: %w", err)
		}
		steps = append(steps, step)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating steps: %w", err)
	}

	return steps, nil
}

// AppendEvent appends a new event to the log
func (s *SQLiteStore) AppendEvent(ctx context.Context, event *Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	event.Timestamp = event.Timestamp.UTC()

	query := `
		INSERT INTO events (operation_id, level, message, details, timestamp)
		VALUES (?, ?, ?, ?, ?)
	`

	result, err := s.db.ExecContext(ctx, query,
		event.OperationID,
		event.Level,
		event.Message,
		event.Details,
		event.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get event ID: %w", err)
	}

	event.ID = id
	return nil
}

// GetEvents retrieves events with optional filters and pagination, newest
// first. A limit of zero or less returns every matching event.
func (s *SQLiteStore) GetEvents(ctx context.Context, operationID *string, level *EventLevel, limit, offset int) ([]*Event, error) {
	query := `
		SELECT id, operation_id, level, message, details, timestamp
		FROM events
		WHERE (? IS NULL OR operation_id = ?)
		  AND (? IS NULL OR level = ?)
		ORDER BY timestamp DESC, id DESC
		LIMIT ? OFFSET ?
	`

	if limit <= 0 {
		limit = -1
	}

	var levelArg *string
	if level != nil {
		l := string(*level)
		levelArg = &l
	}

	rows, err := s.db.QueryContext(ctx, query, operationID, operationID, levelArg, levelArg, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to get events: %w", err)
	}
	defer rows.Close()

	events := []*Event{}
	for rows.Next() {
		event := &Event{}
		err := rows.Scan(
			&event.ID,
			&event.OperationID,
			&event.Level,
			&event.Message,
			&event.Details,
			&event.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating events: %w", err)
	}

	return events, nil
}

// HealthCheck verifies the database connection.
func (s *SQLiteStore) HealthCheck(ctx context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}

	return s.db.PingContext(ctx)
}
