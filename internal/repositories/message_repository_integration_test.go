package repositories

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"tasky-chat/internal/db"
	"tasky-chat/internal/logging"
	"tasky-chat/internal/models"
)

// These tests need a disposable Postgres database; they are skipped without one.
func newTestRepo(t *testing.T) (*MessageRepo, *sqlx.DB) {
	t.Helper()
	dsn := os.Getenv("CHAT_TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("CHAT_TEST_DATABASE_DSN not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn, err := db.Connect(ctx, dsn, logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return NewMessageRepo(conn, NewProfileRepo(conn)), conn
}

func newOrg() string { return "org-" + uuid.NewString() }

func post(t *testing.T, repo *MessageRepo, org, author, body string) models.MessageView {
	t.Helper()
	msg, err := repo.CreateMessage(context.Background(), models.NewMessage{OrganizationID: org, AuthorUserID: author, Body: body})
	require.NoError(t, err)
	return msg
}

func TestListByOrganizationReturnsNewestChronologically(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()
	org := newOrg()

	for _, body := range []string{"one", "two", "three", "four"} {
		post(t, repo, org, "u1", body)
	}
	post(t, repo, newOrg(), "u1", "elsewhere")

	msgs, err := repo.ListByOrganization(ctx, org, 3)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	require.Equal(t, "two", msgs[0].Body)
	require.Equal(t, "three", msgs[1].Body)
	require.Equal(t, "four", msgs[2].Body)
	for i := 1; i < len(msgs); i++ {
		require.False(t, msgs[i].CreatedAt.Before(msgs[i-1].CreatedAt))
	}

	empty, err := repo.ListByOrganization(ctx, newOrg(), 10)
	require.NoError(t, err)
	require.Empty(t, empty)
}

func TestCreateMessageProjectsAuthorAndAttachments(t *testing.T) {
	repo, conn := newTestRepo(t)
	ctx := context.Background()
	author := "user-" + uuid.NewString()
	_, err := conn.ExecContext(ctx, `INSERT INTO users (id, first_name, last_name) VALUES ($1, 'Ada', 'Lovelace')`, author)
	require.NoError(t, err)

	size := int64(2048)
	msg, err := repo.CreateMessage(ctx, models.NewMessage{
		OrganizationID: newOrg(),
		AuthorUserID:   author,
		Body:           "see attached",
		Attachments: []models.AttachmentInput{
			{FileURL: "https://cdn.example/a.pdf", FileName: "a.pdf", FileType: "Application/PDF", FileSize: &size},
			{FileURL: "https://cdn.example/b.bin", FileName: "b.bin"},
		},
	})
	require.NoError(t, err)

	require.NotEmpty(t, msg.ID)
	require.Nil(t, msg.EditedAt)
	require.False(t, msg.IsDeleted)
	require.NotNil(t, msg.Author)
	require.Equal(t, "Ada", msg.Author.FirstName)
	require.Len(t, msg.Attachments, 2)
	require.Equal(t, "application/pdf", msg.Attachments[0].FileType)
	require.Equal(t, &size, msg.Attachments[0].FileSize)
	require.Equal(t, "application/octet-stream", msg.Attachments[1].FileType)
	require.Empty(t, msg.Reactions)
}

func TestCreateMessageWithMissingReplyTargetStoresNothing(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()
	org := newOrg()
	missing := uuid.NewString()

	_, err := repo.CreateMessage(ctx, models.NewMessage{OrganizationID: org, AuthorUserID: "u1", Body: "hi", ReplyToID: &missing})
	require.ErrorIs(t, err, ErrNotFound)

	msgs, err := repo.ListByOrganization(ctx, org, 10)
	require.NoError(t, err)
	require.Empty(t, msgs)
}

func TestReplyProjectionIncludesTarget(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()
	org := newOrg()
	original := post(t, repo, org, "u1", "question?")

	reply, err := repo.CreateMessage(ctx, models.NewMessage{OrganizationID: org, AuthorUserID: "u2", Body: "answer", ReplyToID: &original.ID})
	require.NoError(t, err)
	require.NotNil(t, reply.ReplyTo)
	require.Equal(t, original.ID, reply.ReplyTo.ID)
	require.Equal(t, "question?", reply.ReplyTo.Body)
	require.Nil(t, reply.ReplyTo.ReplyTo)

	msgs, err := repo.ListByOrganization(ctx, org, 10)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	require.Nil(t, msgs[0].ReplyTo)
	require.Equal(t, original.ID, msgs[1].ReplyTo.ID)
}

func TestUpsertReactionKeepsOnePerUser(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()
	msg := post(t, repo, newOrg(), "u1", "react to me")

	_, err := repo.UpsertReaction(ctx, msg.ID, "u2", "👍")
	require.NoError(t, err)
	_, err = repo.UpsertReaction(ctx, msg.ID, "u3", "👍")
	require.NoError(t, err)
	got, err := repo.UpsertReaction(ctx, msg.ID, "u2", "🎉")
	require.NoError(t, err)

	require.Len(t, got.Reactions, 2)
	symbols := map[string]string{}
	for _, r := range got.Reactions {
		symbols[r.UserID] = r.ReactionSymbol
	}
	require.Equal(t, map[string]string{"u2": "🎉", "u3": "👍"}, symbols)
	require.Len(t, got.ReactionSummary, 2)

	_, err = repo.UpsertReaction(ctx, uuid.NewString(), "u2", "👍")
	require.ErrorIs(t, err, ErrNotFound)
	_, err = repo.UpsertReaction(ctx, "not-a-uuid", "u2", "👍")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestEditMessageIsAuthorOnly(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()
	msg := post(t, repo, newOrg(), "u1", "original")

	_, err := repo.EditMessage(ctx, "u2", msg.ID, "hijacked")
	require.ErrorIs(t, err, ErrForbidden)

	unchanged, err := repo.GetMessage(ctx, msg.ID)
	require.NoError(t, err)
	require.Equal(t, "original", unchanged.Body)
	require.Nil(t, unchanged.EditedAt)

	_, err = repo.EditMessage(ctx, "u1", uuid.NewString(), "x")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestEditMessageSetsEditedAtOnlyOnChange(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()
	msg := post(t, repo, newOrg(), "u1", "same")

	same, err := repo.EditMessage(ctx, "u1", msg.ID, "same")
	require.NoError(t, err)
	require.Nil(t, same.EditedAt)

	edited, err := repo.EditMessage(ctx, "u1", msg.ID, "changed")
	require.NoError(t, err)
	require.Equal(t, "changed", edited.Body)
	require.NotNil(t, edited.EditedAt)
	require.False(t, edited.EditedAt.Before(edited.CreatedAt))
}

func TestSoftDeleteKeepsMessageVisible(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()
	org := newOrg()
	msg := post(t, repo, org, "u1", "oops")

	deleted, err := repo.SoftDeleteMessage(ctx, msg.ID)
	require.NoError(t, err)
	require.True(t, deleted.IsDeleted)
	require.Equal(t, "oops", deleted.Body)

	again, err := repo.SoftDeleteMessage(ctx, msg.ID)
	require.NoError(t, err)
	require.True(t, again.IsDeleted)

	msgs, err := repo.ListByOrganization(ctx, org, 10)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	require.True(t, msgs[0].IsDeleted)

	_, err = repo.SoftDeleteMessage(ctx, uuid.NewString())
	require.ErrorIs(t, err, ErrNotFound)
}

func TestConcurrentReactionsLeaveOneRowPerUser(t *testing.T) {
	repo, conn := newTestRepo(t)
	ctx := context.Background()
	msg := post(t, repo, newOrg(), "u1", "race me")

	symbols := []string{"👍", "🔥"}
	errs := make([]error, len(symbols))
	var wg sync.WaitGroup
	for i, symbol := range symbols {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = repo.UpsertReaction(ctx, msg.ID, "userA", symbol)
		}()
	}
	wg.Wait()
	for _, err := range errs {
		require.NoError(t, err)
	}

	var count int
	require.NoError(t, conn.GetContext(ctx, &count,
		`SELECT count(*) FROM chat_message_reactions WHERE message_id = $1 AND user_id = 'userA'`, msg.ID))
	require.Equal(t, 1, count)

	got, err := repo.GetMessage(ctx, msg.ID)
	require.NoError(t, err)
	require.Len(t, got.Reactions, 1)
	require.Contains(t, symbols, got.Reactions[0].ReactionSymbol)
}

// Reply targets are resolved by id alone; organizations are not compared.
func TestReplyAcrossOrganizationsIsAccepted(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()
	target := post(t, repo, newOrg(), "u1", "in org b")

	orgA := newOrg()
	reply, err := repo.CreateMessage(ctx, models.NewMessage{
		OrganizationID: orgA,
		AuthorUserID:   "u2",
		Body:           "replying from org a",
		ReplyToID:      &target.ID,
	})
	require.NoError(t, err)
	require.Equal(t, orgA, reply.OrganizationID)
	require.NotNil(t, reply.ReplyTo)
	require.Equal(t, target.ID, reply.ReplyTo.ID)
	require.Equal(t, target.OrganizationID, reply.ReplyTo.OrganizationID)
	require.Equal(t, "in org b", reply.ReplyTo.Body)
}
