// Package session defines the Session/Turn lifecycle primitives: a
// Session is the durable conversational container — it owns a message log,
// cache, approval view, and event stream — and each Turn is one user
// interaction processed serially within it.
package session

import (
	"context"
	"errors"
	"time"
)

type (
	// Session captures durable session lifecycle state. Sessions are
	// created and ended explicitly; an ended session accepts no new turns.
	Session struct {
		ID            string
		ProjectID     string
		WorkspaceRoot string
		Status        Status
		CreatedAt     time.Time
		EndedAt       *time.Time
	}

	// TurnMeta records one turn's outcome for observability and resumption,
	// separate from the in-flight Plan/message state the orchestrator
	// drives turn by turn.
	TurnMeta struct {
		TurnID     string
		SessionID  string
		TraceID    string
		Status     TurnStatus
		StopReason string
		StartedAt  time.Time
		UpdatedAt  time.Time
		LastStepID string
		Summary    string
	}

	// Store persists session lifecycle state and turn metadata. At most one
	// turn per session is ever active; callers serialize calls to run_turn
	// themselves.
	Store interface {
		CreateSession(ctx context.Context, id, projectID, workspaceRoot string, createdAt time.Time) (Session, error)
		LoadSession(ctx context.Context, id string) (Session, error)
		EndSession(ctx context.Context, id string, endedAt time.Time) (Session, error)

		UpsertTurn(ctx context.Context, turn TurnMeta) error
		LoadTurn(ctx context.Context, turnID string) (TurnMeta, error)
		ListTurnsBySession(ctx context.Context, sessionID string) ([]TurnMeta, error)
	}

	// Status is the lifecycle state of a Session.
	Status string

	// TurnStatus is the lifecycle state of a Turn.
	TurnStatus string
)

const (
	StatusActive Status = "active"
	StatusEnded  Status = "ended"

	TurnPending  TurnStatus = "pending"
	TurnRunning  TurnStatus = "running"
	TurnDone     TurnStatus = "done"
	TurnBlocked  TurnStatus = "blocked"
	TurnMaxIter  TurnStatus = "max_iter"
	TurnFailed   TurnStatus = "provider_failed"
	TurnCanceled TurnStatus = "cancelled"
)

var (
	ErrSessionNotFound = errors.New("session: not found")
	ErrSessionEnded    = errors.New("session: already ended")
	ErrTurnNotFound    = errors.New("session: turn not found")
)
