package amqp

import (
	"encoding/json"
	"errors"
	"time"
)

var errEmptyCardID = errors.New("sync message missing card id")

// ReportSyncMessage asks the worker to mirror one committed report. It
// carries only the identifiers; the worker fetches the full history from the
// database so the queue never holds stale report bodies.
type ReportSyncMessage struct {
	CardID    string    `json:"cardId"`
	ReportID  string    `json:"reportId"`
	Timestamp time.Time `json:"timestamp"`
}

// NewReportSyncMessage creates a sync message for one card/report pair.
func NewReportSyncMessage(cardID, reportID string) *ReportSyncMessage {
	return &ReportSyncMessage{
		CardID:    cardID,
		ReportID:  reportID,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *ReportSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ReportSyncMessageFromJSON creates a message from JSON bytes
func ReportSyncMessageFromJSON(data []byte) (*ReportSyncMessage, error) {
	var msg ReportSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.CardID == "" {
		return nil, errEmptyCardID
	}
	return &msg, nil
}
