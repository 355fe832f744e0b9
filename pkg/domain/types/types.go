// Package types defines core domain identifiers for snapledger.
package types

import "github.com/google/uuid"

// AccountID is a unique identifier for an account.
type AccountID string

// ScenarioID is a unique identifier for one scenario run.
type ScenarioID string

// NewAccountID generates a new unique account ID.
func NewAccountID() AccountID {
	return AccountID(uuid.NewString())
}

// String returns the string representation of an AccountID.
func (id AccountID) String() string {
	return string(id)
}

// IsZero returns true if the AccountID is the zero value.
func (id AccountID) IsZero() bool {
	return id == ""
}

// NewScenarioID generates a new unique scenario run ID.
func NewScenarioID() ScenarioID {
	return ScenarioID(uuid.NewString())
}

// String returns the string representation of a ScenarioID.
func (id ScenarioID) String() string {
	return string(id)
}
