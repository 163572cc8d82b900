package manager

import (
	"errors"

	"github.com/openfroyo/channels/pkg/channels"
	"github.com/openfroyo/channels/pkg/stores"
)

// ErrHistoryDisabled is returned by history queries when no store is configured.
var ErrHistoryDisabled = errors.New("operation history is disabled")

// ChannelSummary is one row of List.
type ChannelSummary struct {
	Name      string   `json:"name"`
	Title     string   `json:"title"`
	Enabled   bool     `json:"enabled"`
	Essential bool     `json:"essential"`
	Provides  []string `json:"provides,omitempty"`
}

// ComponentStatus describes one component of a channel.
type ComponentStatus struct {
	Name     string   `json:"name"`
	Enabled  bool     `json:"enabled"`
	Proposed bool     `json:"proposed"`
	Codename string   `json:"codename"`
	Entries  []string `json:"entries,omitempty"`
}

// ChannelInfo is the detailed view returned by Show.
type ChannelInfo struct {
	ChannelSummary
	Description string              `json:"description,omitempty"`
	Enableable  bool                `json:"enableable"`
	Depends     []string            `json:"depends,omitempty"`
	Conflicts   []string            `json:"conflicts,omitempty"`
	Components  []ComponentStatus   `json:"components"`
	Relations   []channels.Relation `json:"relations"`
}

// Result is the outcome of a channel or component operation.
type Result struct {
	OperationID string          `json:"operation_id,omitempty"`
	Channel     string          `json:"channel"`
	Component   string          `json:"component,omitempty"`
	Action      channels.Action `json:"action"`
	DryRun      bool            `json:"dry_run"`
	Noop        bool            `json:"noop"`
	Plan        channels.Plan   `json:"plan"`
	Applied     []channels.Step `json:"applied,omitempty"`
	Warnings    []string        `json:"warnings,omitempty"`
}

// HistoryFilter selects operations returned by History.
type HistoryFilter struct {
	Channel string
	Status  stores.OperationStatus
	Limit   int
}

// OperationRecord is a recorded operation with its steps and events.
type OperationRecord struct {
	Operation *stores.Operation       `json:"operation"`
	Steps     []*stores.OperationStep `json:"steps"`
	Events    []*stores.Event         `json:"events"`
}
