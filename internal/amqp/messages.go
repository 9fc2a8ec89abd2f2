package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventType tells the consumer how to handle a message.
type EventType string

const (
	EventTransactionSync    EventType = "transaction.sync"
	EventTransactionDeleted EventType = "transaction.deleted"
	EventInstallmentPaid    EventType = "installment.paid"
	EventInstallmentClosed  EventType = "installment.closed"
	EventInstallmentDue     EventType = "installment.due"
)

func (t EventType) Valid() bool {
	switch t {
	case EventTransactionSync, EventTransactionDeleted, EventInstallmentPaid, EventInstallmentClosed, EventInstallmentDue:
		return true
	}
	return false
}

// Message is a lightweight event. It carries ids only; consumers load the
// current row from the database.
type Message struct {
	ID            string    `json:"id"`
	Type          EventType `json:"type"`
	UserID        int64     `json:"user_id"`
	TransactionID int64     `json:"transaction_id,omitempty"`
	Kind          string    `json:"kind,omitempty"`
	InstallmentID int64     `json:"installment_id,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// NewTransactionMessage builds a sync or delete event for a ledger entry.
func NewTransactionMessage(t EventType, userID, transactionID int64, kind string) *Message {
	return &Message{
		ID:            uuid.NewString(),
		Type:          t,
		UserID:        userID,
		TransactionID: transactionID,
		Kind:          kind,
		Timestamp:     time.Now(),
	}
}

// NewInstallmentMessage builds an installment lifecycle event.
func NewInstallmentMessage(t EventType, userID, installmentID int64) *Message {
	return &Message{
		ID:            uuid.NewString(),
		Type:          t,
		UserID:        userID,
		InstallmentID: installmentID,
		Timestamp:     time.Now(),
	}
}

func (m *Message) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// MessageFromJSON decodes and checks the event type.
func MessageFromJSON(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if !msg.Type.Valid() {
		return nil, fmt.Errorf("unknown event type %q", msg.Type)
	}
	return &msg, nil
}
