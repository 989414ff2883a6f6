package repositories

import (
	"context"
	"database/sql"
	"errors"
	"mime"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/samber/lo"

	"tasky-chat/internal/models"
)

const defaultFileType = "application/octet-stream"

const messageColumns = `id, organization_id, author_user_id, body, created_at, edited_at, is_deleted, reply_to_id`

// MessageRepository defines interactions for organization chat messages.
// Every read and write returns the fully projected message.
type MessageRepository interface {
	ListByOrganization(ctx context.Context, organizationID string, limit int) ([]models.MessageView, error)
	GetMessage(ctx context.Context, messageID string) (models.MessageView, error)
	CreateMessage(ctx context.Context, in models.NewMessage) (models.MessageView, error)
	UpsertReaction(ctx context.Context, messageID, userID, symbol string) (models.MessageView, error)
	EditMessage(ctx context.Context, actorID, messageID, body string) (models.MessageView, error)
	SoftDeleteMessage(ctx context.Context, messageID string) (models.MessageView, error)
}

// MessageRepo is a sqlx-backed repository.
type MessageRepo struct {
	db       *sqlx.DB
	profiles ProfileRepository
}

// NewMessageRepo constructs MessageRepo.
func NewMessageRepo(db *sqlx.DB, profiles ProfileRepository) *MessageRepo {
	return &MessageRepo{db: db, profiles: profiles}
}

// ListByOrganization returns the newest limit messages of an organization, oldest first.
// Soft-deleted messages are included and flagged.
func (r *MessageRepo) ListByOrganization(ctx context.Context, organizationID string, limit int) ([]models.MessageView, error) {
	if limit <= 0 {
		return []models.MessageView{}, nil
	}
	var msgs []models.Message
	query := `SELECT ` + messageColumns + `
        FROM chat_messages
        WHERE organization_id = $1
        ORDER BY created_at DESC, id DESC
        LIMIT $2`
	if err := r.db.SelectContext(ctx, &msgs, query, organizationID, limit); err != nil {
		return nil, err
	}
	return r.project(ctx, lo.Reverse(msgs))
}

// GetMessage retrieves a single projected message.
func (r *MessageRepo) GetMessage(ctx context.Context, messageID string) (models.MessageView, error) {
	if !isMessageID(messageID) {
		return models.MessageView{}, ErrMessageNotFound
	}
	var msg models.Message
	err := r.db.GetContext(ctx, &msg, `SELECT `+messageColumns+` FROM chat_messages WHERE id = $1`, messageID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.MessageView{}, ErrMessageNotFound
	}
	if err != nil {
		return models.MessageView{}, err
	}
	views, err := r.project(ctx, []models.Message{msg})
	if err != nil {
		return models.MessageView{}, err
	}
	return views[0], nil
}

// CreateMessage stores a message with its attachments atomically.
func (r *MessageRepo) CreateMessage(ctx context.Context, in models.NewMessage) (models.MessageView, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.MessageView{}, err
	}
	defer func() { _ = tx.Rollback() }()

	if in.ReplyToID != nil {
		if !isMessageID(*in.ReplyToID) {
			return models.MessageView{}, ErrReplyTargetNotFound
		}
		var exists bool
		if err := tx.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM chat_messages WHERE id = $1)`, *in.ReplyToID); err != nil {
			return models.MessageView{}, err
		}
		if !exists {
			return models.MessageView{}, ErrReplyTargetNotFound
		}
	}

	id := uuid.NewString()
	_, err = tx.ExecContext(ctx, `INSERT INTO chat_messages (id, organization_id, author_user_id, body, reply_to_id) VALUES ($1, $2, $3, $4, $5)`,
		id, in.OrganizationID, in.AuthorUserID, in.Body, in.ReplyToID)
	if err != nil {
		return models.MessageView{}, err
	}

	for _, att := range in.Attachments {
		_, err = tx.ExecContext(ctx, `INSERT INTO chat_message_attachments (id, message_id, file_url, file_name, file_type, file_size) VALUES ($1, $2, $3, $4, $5, $6)`,
			uuid.NewString(), id, att.FileURL, att.FileName, NormalizeFileType(att.FileType), att.FileSize)
		if err != nil {
			return models.MessageView{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return models.MessageView{}, err
	}
	return r.GetMessage(ctx, id)
}

// UpsertReaction sets the user's single reaction on a message, replacing any previous symbol.
func (r *MessageRepo) UpsertReaction(ctx context.Context, messageID, userID, symbol string) (models.MessageView, error) {
	if !isMessageID(messageID) {
		return models.MessageView{}, ErrMessageNotFound
	}
	_, err := r.db.ExecContext(ctx, `INSERT INTO chat_message_reactions (message_id, user_id, reaction_symbol)
        VALUES ($1, $2, $3)
        ON CONFLICT (message_id, user_id) DO UPDATE SET reaction_symbol = EXCLUDED.reaction_symbol`,
		messageID, userID, symbol)
	if isForeignKeyViolation(err) {
		return models.MessageView{}, ErrMessageNotFound
	}
	if err != nil {
		return models.MessageView{}, err
	}
	return r.GetMessage(ctx, messageID)
}

// EditMessage replaces the body of a message written by actorID.
// editedAt moves only when the body actually changes.
func (r *MessageRepo) EditMessage(ctx context.Context, actorID, messageID, body string) (models.MessageView, error) {
	if !isMessageID(messageID) {
		return models.MessageView{}, ErrMessageNotFound
	}
	var author string
	err := r.db.GetContext(ctx, &author, `SELECT author_user_id FROM chat_messages WHERE id = $1`, messageID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.MessageView{}, ErrMessageNotFound
	}
	if err != nil {
		return models.MessageView{}, err
	}
	if author != actorID {
		return models.MessageView{}, ErrNotMessageAuthor
	}

	res, err := r.db.ExecContext(ctx, `UPDATE chat_messages
        SET edited_at = CASE WHEN body IS DISTINCT FROM $2 THEN clock_timestamp() ELSE edited_at END,
            body = $2
        WHERE id = $1`, messageID, body)
	if err := expectAffected(res, err); err != nil {
		return models.MessageView{}, err
	}
	return r.GetMessage(ctx, messageID)
}

// SoftDeleteMessage flags a message as deleted. The row and its body stay.
func (r *MessageRepo) SoftDeleteMessage(ctx context.Context, messageID string) (models.MessageView, error) {
	if !isMessageID(messageID) {
		return models.MessageView{}, ErrMessageNotFound
	}
	res, err := r.db.ExecContext(ctx, `UPDATE chat_messages SET is_deleted = TRUE WHERE id = $1`, messageID)
	if err := expectAffected(res, err); err != nil {
		return models.MessageView{}, err
	}
	return r.GetMessage(ctx, messageID)
}

func expectAffected(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrMessageNotFound
	}
	return nil
}

// project loads the author, reactions, attachments and reply target of each message.
func (r *MessageRepo) project(ctx context.Context, msgs []models.Message) ([]models.MessageView, error) {
	if len(msgs) == 0 {
		return []models.MessageView{}, nil
	}

	replyIDs := lo.Uniq(lo.FilterMap(msgs, func(m models.Message, _ int) (string, bool) {
		if m.ReplyToID == nil {
			return "", false
		}
		return *m.ReplyToID, true
	}))
	var targets []models.Message
	if len(replyIDs) > 0 {
		err := r.db.SelectContext(ctx, &targets, `SELECT `+messageColumns+` FROM chat_messages WHERE id = ANY($1::uuid[])`, pq.Array(replyIDs))
		if err != nil {
			return nil, err
		}
	}

	all := append(append([]models.Message{}, msgs...), targets...)
	ids := lo.Uniq(lo.Map(all, func(m models.Message, _ int) string { return m.ID }))

	var reactions []models.Reaction
	err := r.db.SelectContext(ctx, &reactions, `SELECT message_id, user_id, reaction_symbol, created_at
        FROM chat_message_reactions
        WHERE message_id = ANY($1::uuid[])
        ORDER BY created_at ASC, user_id ASC`, pq.Array(ids))
	if err != nil {
		return nil, err
	}

	var attachments []models.Attachment
	err = r.db.SelectContext(ctx, &attachments, `SELECT id, message_id, file_url, file_name, file_type, file_size, created_at
        FROM chat_message_attachments
        WHERE message_id = ANY($1::uuid[])
        ORDER BY created_at ASC, id ASC`, pq.Array(ids))
	if err != nil {
		return nil, err
	}

	profiles, err := r.profiles.BulkProfiles(ctx, lo.Map(all, func(m models.Message, _ int) string { return m.AuthorUserID }))
	if err != nil {
		return nil, err
	}

	p := projector{
		profiles:    lo.KeyBy(profiles, func(p models.UserProfile) string { return p.ID }),
		reactions:   lo.GroupBy(reactions, func(r models.Reaction) string { return r.MessageID }),
		attachments: lo.GroupBy(attachments, func(a models.Attachment) string { return a.MessageID }),
	}
	replies := lo.SliceToMap(targets, func(m models.Message) (string, models.MessageView) {
		return m.ID, p.view(m)
	})

	return lo.Map(msgs, func(m models.Message, _ int) models.MessageView {
		v := p.view(m)
		if m.ReplyToID != nil {
			if target, ok := replies[*m.ReplyToID]; ok {
				v.ReplyTo = &target
			}
		}
		return v
	}), nil
}

type projector struct {
	profiles    map[string]models.UserProfile
	reactions   map[string][]models.Reaction
	attachments map[string][]models.Attachment
}

func (p projector) view(m models.Message) models.MessageView {
	v := models.MessageView{
		ID:             m.ID,
		OrganizationID: m.OrganizationID,
		AuthorUserID:   m.AuthorUserID,
		Body:           m.Body,
		CreatedAt:      m.CreatedAt,
		EditedAt:       m.EditedAt,
		IsDeleted:      m.IsDeleted,
		ReplyToID:      m.ReplyToID,
	}
	if profile, ok := p.profiles[m.AuthorUserID]; ok {
		v.Author = &profile
	}
	v.Reactions = lo.Map(p.reactions[m.ID], func(r models.Reaction, _ int) models.ReactionView {
		return models.ReactionView{ReactionSymbol: r.ReactionSymbol, UserID: r.UserID}
	})
	v.ReactionSummary = SummarizeReactions(v.Reactions)
	v.Attachments = lo.Map(p.attachments[m.ID], func(a models.Attachment, _ int) models.AttachmentView {
		return models.AttachmentView{FileURL: a.FileURL, FileName: a.FileName, FileType: a.FileType, FileSize: a.FileSize}
	})
	return v
}

// SummarizeReactions groups reactions by symbol in order of first appearance.
func SummarizeReactions(reactions []models.ReactionView) []models.ReactionGroup {
	bySymbol := lo.GroupBy(reactions, func(r models.ReactionView) string { return r.ReactionSymbol })
	symbols := lo.Uniq(lo.Map(reactions, func(r models.ReactionView, _ int) string { return r.ReactionSymbol }))
	return lo.Map(symbols, func(symbol string, _ int) models.ReactionGroup {
		group := bySymbol[symbol]
		return models.ReactionGroup{
			ReactionSymbol: symbol,
			Count:          len(group),
			UserIDs:        lo.Map(group, func(r models.ReactionView, _ int) string { return r.UserID }),
		}
	})
}

// NormalizeFileType lowercases a declared MIME type and resolves known aliases
// to their canonical name. An empty type becomes application/octet-stream.
func NormalizeFileType(fileType string) string {
	ft := strings.ToLower(strings.TrimSpace(fileType))
	if ft == "" {
		return defaultFileType
	}
	if known := mimetype.Lookup(ft); known != nil {
		if canonical, _, err := mime.ParseMediaType(known.String()); err == nil {
			return canonical
		}
	}
	return ft
}
