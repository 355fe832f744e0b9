package types

import (
	"testing"

	"github.com/google/uuid"
)

func TestNewAccountID(t *testing.T) {
	a := NewAccountID()
	b := NewAccountID()

	if a == b {
		t.Errorf("expected distinct IDs, got %q twice", a)
	}
	if a.IsZero() {
		t.Error("new ID should not be zero")
	}
	if _, err := uuid.Parse(a.String()); err != nil {
		t.Errorf("ID %q is not a UUID: %v", a, err)
	}
}

func TestAccountID_IsZero(t *testing.T) {
	var id AccountID
	if !id.IsZero() {
		t.Error("zero value should report IsZero")
	}
}

func TestNewScenarioID(t *testing.T) {
	id := NewScenarioID()
	if _, err := uuid.Parse(id.String()); err != nil {
		t.Errorf("ID %q is not a UUID: %v", id, err)
	}
}
