// Package queue defines message payloads exchanged over the message broker.
package queue

// Event kinds published on the situation.events queue.
const (
	EventSubmitted = "submitted"
	EventValidated = "validated"
	EventRejected  = "rejected"
)

// SituationEvent is published whenever a situation changes state
// through the approval chain.  It carries enough context for
// downstream consumers to log or notify without querying the primary
// database.
type SituationEvent struct {
	Kind          string `json:"kind"`           // one of the Event* constants
	SituationID   string `json:"situation_id"`   // situation key
	StructureCode string `json:"structure_code"` // reporting structure
	Family        string `json:"family"`         // declaration family label
	Month         string `json:"month"`          // French month name
	Year          string `json:"year"`           // four-digit year
	ActorID       uint64 `json:"actor_id"`       // user who triggered the transition
	Comment       string `json:"comment,omitempty"` // rejection motive, rejected events only
	OccurredAt    string `json:"occurred_at"`    // RFC 3339 UTC timestamp
}
