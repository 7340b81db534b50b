package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ChangeKind says which part of the ledger changed.
type ChangeKind string

const (
	ChangeBudget      ChangeKind = "budget"
	ChangeTransaction ChangeKind = "transaction"
)

// LedgerChangeMessage announces a write to the ledger. It carries only the
// affected period and ids; consumers re-read what they need from the store.
// Year and Month are 0 when the change is not tied to one period.
type LedgerChangeMessage struct {
	Kind      ChangeKind `json:"kind"`
	Year      int        `json:"year,omitempty"`
	Month     int        `json:"month,omitempty"`
	IDs       []string   `json:"ids,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
}

func NewLedgerChangeMessage(kind ChangeKind, year, month int, ids ...string) *LedgerChangeMessage {
	return &LedgerChangeMessage{
		Kind:      kind,
		Year:      year,
		Month:     month,
		IDs:       ids,
		Timestamp: time.Now().UTC(),
	}
}

func (m *LedgerChangeMessage) Validate() error {
	switch m.Kind {
	case ChangeBudget, ChangeTransaction:
	default:
		return fmt.Errorf("unknown change kind %q", m.Kind)
	}
	if m.Month < 0 || m.Month > 12 {
		return errors.New("month out of range")
	}
	return nil
}

func (m *LedgerChangeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerChangeMessageFromJSON decodes and validates a message.
func LedgerChangeMessageFromJSON(data []byte) (*LedgerChangeMessage, error) {
	var msg LedgerChangeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}
