package mongo

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/xraph/grove"

	"github.com/squideyes/esignatures/delivery"
	"github.com/squideyes/esignatures/dlq"
	"github.com/squideyes/esignatures/id"
	"github.com/squideyes/esignatures/internal/entity"
)

// --- Message models ---

type messageModel struct {
	grove.BaseModel `grove:"table:esig_messages"`

	ID         string    `grove:"id,pk"       bson:"_id"`
	Payload    string    `grove:"payload"     bson:"payload"`
	State      string    `grove:"state"       bson:"state"`
	Attempts   int       `grove:"attempts"    bson:"attempts"`
	VisibleAt  time.Time `grove:"visible_at"  bson:"visible_at"`
	LastError  string    `grove:"last_error"  bson:"last_error"`
	ReceivedAt time.Time `grove:"received_at" bson:"received_at"`
	CreatedAt  time.Time `grove:"created_at"  bson:"created_at"`
	UpdatedAt  time.Time `grove:"updated_at"  bson:"updated_at"`
}

func toMessageModel(m *delivery.Message) *messageModel {
	return &messageModel{
		ID:         m.ID.String(),
		Payload:    string(m.Payload),
		State:      string(m.State),
		Attempts:   m.Attempts,
		VisibleAt:  m.VisibleAt,
		LastError:  m.LastError,
		ReceivedAt: m.ReceivedAt,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
}

func fromMessageModel(m *messageModel) (*delivery.Message, error) {
	msgID, err := id.ParseMessageID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("parse message ID %q: %w", m.ID, err)
	}
	return &delivery.Message{
		Entity: entity.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:         msgID,
		Payload:    json.RawMessage(m.Payload),
		State:      delivery.State(m.State),
		Attempts:   m.Attempts,
		VisibleAt:  m.VisibleAt,
		LastError:  m.LastError,
		ReceivedAt: m.ReceivedAt,
	}, nil
}

// --- Blob models ---

type blobModel struct {
	grove.BaseModel `grove:"table:esig_blobs"`

	Key       string    `grove:"key,pk"     bson:"_id"`
	Data      []byte    `grove:"data"       bson:"data"`
	CreatedAt time.Time `grove:"created_at" bson:"created_at"`
	UpdatedAt time.Time `grove:"updated_at" bson:"updated_at"`
}

// --- Poison models ---

type poisonModel struct {
	grove.BaseModel `grove:"table:esig_poison"`

	ID         string     `grove:"id,pk"       bson:"_id"`
	MessageID  string     `grove:"message_id"  bson:"message_id"`
	Payload    string     `grove:"payload"     bson:"payload"`
	Reason     string     `grove:"reason"      bson:"reason"`
	Error      string     `grove:"error"       bson:"error"`
	Attempts   int        `grove:"attempts"    bson:"attempts"`
	ReceivedAt time.Time  `grove:"received_at" bson:"received_at"`
	FailedAt   time.Time  `grove:"failed_at"   bson:"failed_at"`
	ReplayedAt *time.Time `grove:"replayed_at" bson:"replayed_at,omitempty"`
	CreatedAt  time.Time  `grove:"created_at"  bson:"created_at"`
	UpdatedAt  time.Time  `grove:"updated_at"  bson:"updated_at"`
}

func toPoisonModel(e *dlq.Entry) *poisonModel {
	return &poisonModel{
		ID:         e.ID.String(),
		MessageID:  e.MessageID.String(),
		Payload:    string(e.Payload),
		Reason:     string(e.Reason),
		Error:      e.Error,
		Attempts:   e.Attempts,
		ReceivedAt: e.ReceivedAt,
		FailedAt:   e.FailedAt,
		ReplayedAt: e.ReplayedAt,
		CreatedAt:  e.CreatedAt,
		UpdatedAt:  e.UpdatedAt,
	}
}

func fromPoisonModel(m *poisonModel) (*dlq.Entry, error) {
	psnID, err := id.ParsePoisonID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("parse poison ID %q: %w", m.ID, err)
	}
	msgID, err := id.ParseMessageID(m.MessageID)
	if err != nil {
		return nil, fmt.Errorf("parse message ID %q: %w", m.MessageID, err)
	}
	return &dlq.Entry{
		Entity: entity.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:         psnID,
		MessageID:  msgID,
		Payload:    json.RawMessage(m.Payload),
		Reason:     delivery.FailureReason(m.Reason),
		Error:      m.Error,
		Attempts:   m.Attempts,
		ReceivedAt: m.ReceivedAt,
		FailedAt:   m.FailedAt,
		ReplayedAt: m.ReplayedAt,
	}, nil
}
