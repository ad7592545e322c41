package events

import (
	"time"
)

// EventType identifies the kind of exam event carried on the bus.
type EventType string

const (
	// Exam lifecycle events
	EventExamActivated   EventType = "exam.activated"
	EventExamDeactivated EventType = "exam.deactivated"

	// Result events. result.submitted is the primary signal consumed by
	// the reconciliation job that re-derives user counters when a
	// transaction was lost between retries.
	EventResultSubmitted EventType = "result.submitted"

	// Counter events for eventual-consistency auditing
	EventCounterAdjusted EventType = "counter.adjusted"
)

// ExamEvent is the envelope for every published event.
type ExamEvent struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Source    string                 `json:"source"`
	Version   string                 `json:"version"`
	Data      interface{}            `json:"data"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// ResultSubmittedEvent is emitted after the result row and the student's
// denormalized counters commit together.
type ResultSubmittedEvent struct {
	ResultID    uint      `json:"result_id"`
	AttemptID   string    `json:"attempt_id"`
	ExamID      uint      `json:"exam_id"`
	ExamName    string    `json:"exam_name"`
	StudentID   string    `json:"student_id"`
	Score       int       `json:"score"`
	MaxScore    int       `json:"max_score"`
	Percentage  float64   `json:"percentage"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// ExamActivationEvent is emitted when an admin toggles exam availability.
type ExamActivationEvent struct {
	ExamID    uint      `json:"exam_id"`
	ExamName  string    `json:"exam_name"`
	IsActive  bool      `json:"is_active"`
	ChangedBy string    `json:"changed_by"`
	ChangedAt time.Time `json:"changed_at"`
}

// CounterAdjustedEvent records a denormalized-counter delta so an external
// auditor can verify counters against the source collections.
type CounterAdjustedEvent struct {
	Entity     string    `json:"entity"` // "exam" or "user"
	EntityID   string    `json:"entity_id"`
	Field      string    `json:"field"`
	Delta      int       `json:"delta"`
	AdjustedAt time.Time `json:"adjusted_at"`
}
