package models

import "time"

// MessageView is the read shape of a message returned by every chat operation.
type MessageView struct {
	ID              string           `json:"id"`
	OrganizationID  string           `json:"organizationId"`
	AuthorUserID    string           `json:"authorUserId"`
	Body            string           `json:"body"`
	CreatedAt       time.Time        `json:"createdAt"`
	EditedAt        *time.Time       `json:"editedAt"`
	IsDeleted       bool             `json:"isDeleted"`
	ReplyToID       *string          `json:"replyToId"`
	Author          *UserProfile     `json:"author,omitempty"`
	Reactions       []ReactionView   `json:"reactions"`
	ReactionSummary []ReactionGroup  `json:"reactionSummary"`
	Attachments     []AttachmentView `json:"attachments"`
	ReplyTo         *MessageView     `json:"replyTo"`
}

// ReactionView is one user's reaction on a message.
type ReactionView struct {
	ReactionSymbol string `json:"reactionSymbol"`
	UserID         string `json:"userId"`
}

// ReactionGroup aggregates the reactions of a message sharing one symbol.
type ReactionGroup struct {
	ReactionSymbol string   `json:"reactionSymbol"`
	Count          int      `json:"count"`
	UserIDs        []string `json:"userIds"`
}

// AttachmentView is the wire shape of an attachment.
type AttachmentView struct {
	FileURL  string `json:"fileUrl"`
	FileName string `json:"fileName"`
	FileType string `json:"fileType"`
	FileSize *int64 `json:"fileSize,omitempty"`
}

// ChatEvent is a frame exchanged over the realtime connection.
type ChatEvent struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// TypingEvent tells a room that a user is composing a message.
type TypingEvent struct {
	UserID         string `json:"userId"`
	OrganizationID string `json:"organizationId"`
}

// RelayError is delivered to the originating connection when an event fails.
type RelayError struct {
	Message string `json:"message"`
}
