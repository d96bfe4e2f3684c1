package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

const MessageTypeImportCommitted = "import.committed"

// ImportCommittedMessage announces that an import batch was written. It carries
// ids only; consumers read the rows back from the database.
type ImportCommittedMessage struct {
	Type           string    `json:"type"`
	UserID         string    `json:"user_id"`
	AccountID      string    `json:"account_id"`
	TransactionIDs []string  `json:"transaction_ids"`
	Count          int       `json:"count"`
	Timestamp      time.Time `json:"timestamp"`
}

func NewImportCommittedMessage(userID, accountID string, transactionIDs []string) *ImportCommittedMessage {
	return &ImportCommittedMessage{
		Type:           MessageTypeImportCommitted,
		UserID:         userID,
		AccountID:      accountID,
		TransactionIDs: transactionIDs,
		Count:          len(transactionIDs),
		Timestamp:      time.Now().UTC(),
	}
}

func (m *ImportCommittedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ImportCommittedMessageFromJSON(data []byte) (*ImportCommittedMessage, error) {
	var msg ImportCommittedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Type != "" && msg.Type != MessageTypeImportCommitted {
		return nil, fmt.Errorf("unexpected message type %q", msg.Type)
	}
	if msg.UserID == "" {
		return nil, fmt.Errorf("message without user_id")
	}
	return &msg, nil
}
