package models

// Message is one entry in a conversation's log. Messages are immutable once
// appended; CreatedAt is server-assigned and non-decreasing within a
// conversation.
type Message struct {
	BaseModel
	ConversationID uint   `gorm:"index;not null" json:"conversationId"`
	SenderID       uint   `gorm:"index;not null" json:"senderId"`
	Text           string `gorm:"type:text;not null" json:"text"`

	Sender User `gorm:"foreignKey:SenderID" json:"sender,omitempty"`
}

// TableName specifies the table name for the Message model.
func (Message) TableName() string {
	return "messages"
}
