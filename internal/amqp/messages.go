package amqp

import (
	"encoding/json"
	"time"
)

// ActivityMessage is one bot activity event. It carries the full detail so
// consumers do not need database access.
type ActivityMessage struct {
	UserID    int64     `json:"user_id"`
	ChatJID   string    `json:"chat_jid"`
	Label     string    `json:"label"`
	Detail    string    `json:"detail,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func NewActivityMessage(userID int64, chatJID, label, detail string) *ActivityMessage {
	return &ActivityMessage{
		UserID:    userID,
		ChatJID:   chatJID,
		Label:     label,
		Detail:    detail,
		Timestamp: time.Now(),
	}
}

func (m *ActivityMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ActivityMessageFromJSON(data []byte) (*ActivityMessage, error) {
	var msg ActivityMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
