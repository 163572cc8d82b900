package stores

import (
	"context"
	"time"
)

// OperationStatus represents the status of a channel operation.
type OperationStatus string

const (
	OperationStatusRunning   OperationStatus = "running"
	OperationStatusCompleted OperationStatus = "completed"
	OperationStatusNoop      OperationStatus = "noop"
	OperationStatusPlanned   OperationStatus = "planned"
	OperationStatusDenied    OperationStatus = "denied"
	OperationStatusFailed    OperationStatus = "failed"
)

// Terminal returns true if no further transitions are expected.
func (s OperationStatus) Terminal() bool {
	return s != OperationStatusRunning
}

// StepStatus represents the outcome of a single plan step.
type StepStatus string

const (
	StepStatusApplied StepStatus = "applied"
	StepStatusFailed  StepStatus = "failed"
)

// EventLevel represents the severity level of an event.
type EventLevel string

const (
	EventLevelDebug   EventLevel = "debug"
	EventLevelInfo    EventLevel = "info"
	EventLevelWarning EventLevel = "warning"
	EventLevelError   EventLevel = "error"
)

// Operation is a recorded enable/disable request.
type Operation struct {
	ID          string          `json:"id"`
	Channel     string          `json:"channel"`
	Component   string          `json:"component,omitempty"`
	Action      string          `json:"action"`
	Status      OperationStatus `json:"status"`
	DryRun      bool            `json:"dry_run"`
	Plan        string          `json:"plan"` // JSON array of steps
	Error       *string         `json:"error,omitempty"`
	ErrorCode   *string         `json:"error_code,omitempty"`
	StartedAt   time.Time       `json:"started_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
}

// OperationStep is a plan step applied by an operation.
type OperationStep struct {
	ID          string     `json:"id"`
	OperationID string     `json:"operation_id"`
	Position    int        `json:"position"`
	Channel     string     `json:"channel"`
	Action      string     `json:"action"`
	Status      StepStatus `json:"status"`
	Error       *string    `json:"error,omitempty"`
	AppliedAt   time.Time  `json:"applied_at"`
}

// Event is a free-form log entry, optionally attached to an operation.
type Event struct {
	ID          int64      `json:"id"`
	OperationID *string    `json:"operation_id,omitempty"`
	Level       EventLevel `json:"level"`
	Message     string     `json:"message"`
	Details     *string    `json:"details,omitempty"` // JSON blob
	Timestamp   time.Time  `json:"timestamp"`
}

// OperationFilter selects operations in ListOperations. Zero values match everything.
type OperationFilter struct {
	Channel string
	Status  OperationStatus
	Limit   int
	Offset  int
}

// Store is the operation history store.
type Store interface {
	Init(ctx context.Context) error
	Migrate(ctx context.Context) error
	Close() error
	HealthCheck(ctx context.Context) error

	CreateOperation(ctx context.Context, op *Operation) error
	CompleteOperation(ctx context.Context, id string, status OperationStatus, errMsg, errCode *string) error
	GetOperation(ctx context.Context, id string) (*Operation, error)
	ListOperations(ctx context.Context, filter OperationFilter) ([]*Operation, error)
	PruneOperations(ctx context.Context, before time.Time) (int64, error)

	AddStep(ctx context.Context, step *OperationStep) error
	ListSteps(ctx context.Context, operationID string) ([]*OperationStep, error)

	AppendEvent(ctx context.Context, event *Event) error
	GetEvents(ctx context.Context, operationID *string, level *EventLevel, limit, offset int) ([]*Event, error)
}
