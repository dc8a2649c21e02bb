package model

import "time"

// Rejection is one entry of the append-only rejection log.  A row is
// written every time a validator sends a situation back; rows are
// never mutated or deleted, so the full back-and-forth history of a
// situation stays visible to its owner.
//
// Fields:
//  ID          – primary key identifier.
//  SituationID – situation that was rejected.
//  Comment     – mandatory motive entered by the validator.
//  RejectedBy  – user id of the validator.
//  RejectedAt  – timestamp of the rejection.
type Rejection struct {
	ID          uint64    // rejection_history.id
	SituationID string    // rejection_history.situation_id
	Comment     string    // rejection_history.comment
	RejectedBy  uint64    // rejection_history.rejected_by
	RejectedAt  time.Time // rejection_history.rejected_at
}
