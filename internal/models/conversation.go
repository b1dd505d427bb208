package models

// Conversation represents a private two-party channel between a requester and
// a donor. To guarantee at most one conversation per pair, the participant ids
// are stored in canonical order (ParticipantLowID < ParticipantHighID) and the
// pair carries a composite unique index.
type Conversation struct {
	BaseModel
	ParticipantLowID  uint `gorm:"not null;uniqueIndex:idx_conversation_pair" json:"participantLowId"`
	ParticipantHighID uint `gorm:"not null;uniqueIndex:idx_conversation_pair" json:"participantHighId"`

	ParticipantLow  User      `gorm:"foreignKey:ParticipantLowID" json:"participantLow,omitempty"`
	ParticipantHigh User      `gorm:"foreignKey:ParticipantHighID" json:"participantHigh,omitempty"`
	Messages        []Message `gorm:"foreignKey:ConversationID" json:"messages,omitempty"`
}

// EnsureCanonicalOrder swaps the participant ids so the smaller one comes first.
// Must be called before persisting a Conversation.
func (c *Conversation) EnsureCanonicalOrder() {
	if c.ParticipantLowID > c.ParticipantHighID {
		c.ParticipantLowID, c.ParticipantHighID = c.ParticipantHighID, c.ParticipantLowID
	}
}

// HasParticipant reports whether userID is one of the two participants.
func (c *Conversation) HasParticipant(userID uint) bool {
	return userID == c.ParticipantLowID || userID == c.ParticipantHighID
}

// OtherParticipantID returns the counterpart of userID in the pair.
// Returns 0 if userID is not a participant.
func (c *Conversation) OtherParticipantID(userID uint) uint {
	switch userID {
	case c.ParticipantLowID:
		return c.ParticipantHighID
	case c.ParticipantHighID:
		return c.ParticipantLowID
	}
	return 0
}

// TableName specifies the table name for the Conversation model.
func (Conversation) TableName() string {
	return "conversations"
}
