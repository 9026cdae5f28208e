package domain

import "strings"

// KanbanStatus is the support workflow bucket of a feedback record.
type KanbanStatus string

const (
	StatusOpen       KanbanStatus = "Запит"
	StatusInProgress KanbanStatus = "Вирішення"
	StatusDone       KanbanStatus = "Готово"
)

// DefaultKanbanStatus is assigned to newly ingested records.
const DefaultKanbanStatus = StatusOpen

var kanbanAliases = map[string]KanbanStatus{
	"запит":       StatusOpen,
	"open":        StatusOpen,
	"вирішення":   StatusInProgress,
	"in_progress": StatusInProgress,
	"готово":      StatusDone,
	"done":        StatusDone,
}

// ParseKanbanStatus accepts the canonical Ukrainian labels as well as the
// ASCII aliases open, in_progress and done.
func ParseKanbanStatus(s string) (KanbanStatus, bool) {
	st, ok := kanbanAliases[strings.ToLower(strings.TrimSpace(s))]
	return st, ok
}

// Valid reports whether s is a known Kanban state.
func (s KanbanStatus) Valid() bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusDone:
		return true
	default:
		return false
	}
}

// IsClosed reports whether the record is resolved.
func (s KanbanStatus) IsClosed() bool {
	return s == StatusDone
}

// CanTransition reports whether an agent may move a record from s to next.
// Any valid state may move to any other valid state; there is no enforced
// linear flow.
func (s KanbanStatus) CanTransition(next KanbanStatus) bool {
	return s.Valid() && next.Valid()
}

// QueueStatus is the lifecycle state of an analysis queue item.
type QueueStatus string

const (
	QueueStatusPending    QueueStatus = "pending"
	QueueStatusProcessing QueueStatus = "processing"
	QueueStatusCompleted  QueueStatus = "completed"
	QueueStatusFailed     QueueStatus = "failed"
)

// Valid reports whether s is a known queue state.
func (s QueueStatus) Valid() bool {
	switch s {
	case QueueStatusPending, QueueStatusProcessing, QueueStatusCompleted, QueueStatusFailed:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether no automatic transition leaves s.
func (s QueueStatus) IsTerminal() bool {
	return s == QueueStatusCompleted || s == QueueStatusFailed
}

// CanTransition encodes the queue state machine:
//
//	pending    -> processing           (claim)
//	processing -> completed | failed   (attempt finished)
//	processing -> pending              (stale reclaim)
//	failed     -> pending              (operator re-enqueue)
//
// Nothing leaves completed.
func (s QueueStatus) CanTransition(next QueueStatus) bool {
	switch s {
	case QueueStatusPending:
		return next == QueueStatusProcessing
	case QueueStatusProcessing:
		return next == QueueStatusCompleted || next == QueueStatusFailed || next == QueueStatusPending
	case QueueStatusFailed:
		return next == QueueStatusPending
	default:
		return false
	}
}
