package database

import "time"

// OperationRecord is one journaled workspace operation.
type OperationRecord struct {
	ID        string
	Name      string
	Outcome   string
	Message   string
	ProfileID string
	QueryID   string
	Duration  time.Duration
	CreatedAt time.Time
}

// MigrationRunRecord is one journaled legacy migration attempt.
type MigrationRunRecord struct {
	ID         string
	State      string
	BackupDir  string
	MovedCount int
	Error      string
	CreatedAt  time.Time
}

// OutcomeCount is the number of operations that ended with Outcome.
type OutcomeCount struct {
	Outcome string
	Count   int64
}

// ListFilter narrows ListOperations. A zero Limit selects DefaultListLimit.
type ListFilter struct {
	ProfileID string
	Limit     int
}

// DefaultListLimit caps history listings.
const DefaultListLimit = 50
