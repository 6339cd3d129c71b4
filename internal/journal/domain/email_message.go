package domain

import "time"

const (
	DirectionInbound  = "inbound"
	DirectionOutbound = "outbound"
)

// EmailMessage is an append-only record of a mail sent or received.
type EmailMessage struct {
	ID               string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID           string    `gorm:"type:varchar(36);index" json:"user_id"`
	Direction        string    `gorm:"type:varchar(8);not null" json:"direction"`
	PromptID         *string   `gorm:"type:varchar(36);index" json:"prompt_id,omitempty"`
	JournalEntryID   *string   `gorm:"type:varchar(36);index" json:"journal_entry_id,omitempty"`
	FromAddress      string    `json:"from_address"`
	ToAddress        string    `json:"to_address"`
	Subject          string    `json:"subject"`
	Body             string    `gorm:"type:text" json:"body"`
	MessageID        string    `json:"message_id,omitempty"`
	SentOrReceivedAt time.Time `json:"sent_or_received_at"`
	CreatedAt        time.Time `json:"created_at"`
}
