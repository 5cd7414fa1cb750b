package amqp

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"fairshare/internal/core"
)

// PeriodClosedMessage announces that a couple's period has been scored and
// recorded in the ledger. The worker reloads the ledger rows by
// (party, period), so the message carries identifiers only.
type PeriodClosedMessage struct {
	CoupleID  string      `json:"couple_id"`
	Period    core.Period `json:"period"`
	SelfID    string      `json:"self_id"`
	PartnerID string      `json:"partner_id"`
	Timestamp time.Time   `json:"timestamp"`
}

var ErrInvalidMessage = errors.New("invalid period closed message")

func NewPeriodClosedMessage(coupleID string, period core.Period, selfID, partnerID string) *PeriodClosedMessage {
	return &PeriodClosedMessage{
		CoupleID:  coupleID,
		Period:    period,
		SelfID:    selfID,
		PartnerID: partnerID,
		Timestamp: time.Now().UTC(),
	}
}

// Validate rejects messages the worker could never process.
func (m *PeriodClosedMessage) Validate() error {
	if m.Period.Validate() != nil {
		return ErrInvalidMessage
	}
	if strings.TrimSpace(m.SelfID) == "" || strings.TrimSpace(m.PartnerID) == "" {
		return ErrInvalidMessage
	}
	return nil
}

func (m *PeriodClosedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func PeriodClosedMessageFromJSON(data []byte) (*PeriodClosedMessage, error) {
	var msg PeriodClosedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}
