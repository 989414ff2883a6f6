package models

import "time"

// Message is a stored chat message of one organization.
type Message struct {
	ID             string     `db:"id" json:"id"`
	OrganizationID string     `db:"organization_id" json:"organizationId"`
	AuthorUserID   string     `db:"author_user_id" json:"authorUserId"`
	Body           string     `db:"body" json:"body"`
	CreatedAt      time.Time  `db:"created_at" json:"createdAt"`
	EditedAt       *time.Time `db:"edited_at" json:"editedAt"`
	IsDeleted      bool       `db:"is_deleted" json:"isDeleted"`
	ReplyToID      *string    `db:"reply_to_id" json:"replyToId"`
}

// Reaction is the single reaction a user holds on a message.
type Reaction struct {
	MessageID      string    `db:"message_id" json:"messageId"`
	UserID         string    `db:"user_id" json:"userId"`
	ReactionSymbol string    `db:"reaction_symbol" json:"reactionSymbol"`
	CreatedAt      time.Time `db:"created_at" json:"createdAt"`
}

// Attachment is a file linked to a message at creation time.
type Attachment struct {
	ID        string    `db:"id" json:"id"`
	MessageID string    `db:"message_id" json:"messageId"`
	FileURL   string    `db:"file_url" json:"fileUrl"`
	FileName  string    `db:"file_name" json:"fileName"`
	FileType  string    `db:"file_type" json:"fileType"`
	FileSize  *int64    `db:"file_size" json:"fileSize,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// AttachmentInput describes an already uploaded file to link to a new message.
type AttachmentInput struct {
	FileURL  string `json:"fileUrl" binding:"required" validate:"required"`
	FileName string `json:"fileName" binding:"required" validate:"required"`
	FileType string `json:"fileType"`
	FileSize *int64 `json:"fileSize,omitempty" binding:"omitempty,min=0" validate:"omitempty,min=0"`
}

// UserProfile is the public part of a user account.
type UserProfile struct {
	ID        string  `db:"id" json:"-"`
	FirstName string  `db:"first_name" json:"displayFirstName"`
	LastName  string  `db:"last_name" json:"displayLastName"`
	AvatarURL *string `db:"avatar_url" json:"avatarUrl"`
}

// NewMessage is everything needed to store a message and its attachments.
type NewMessage struct {
	OrganizationID string
	AuthorUserID   string
	Body           string
	ReplyToID      *string
	Attachments    []AttachmentInput
}
