// Package stores provides the operation history store.
// It uses SQLite with WAL mode and embedded migrations to record channel
// operations, the plan steps they applied, and free-form events.
package stores
