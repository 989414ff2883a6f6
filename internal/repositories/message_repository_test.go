package repositories

import (
	"errors"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"tasky-chat/internal/models"
)

func TestSummarizeReactionsGroupsInFirstSeenOrder(t *testing.T) {
	got := SummarizeReactions([]models.ReactionView{
		{ReactionSymbol: "👍", UserID: "u1"},
		{ReactionSymbol: "🎉", UserID: "u2"},
		{ReactionSymbol: "👍", UserID: "u3"},
	})

	require.Equal(t, []models.ReactionGroup{
		{ReactionSymbol: "👍", Count: 2, UserIDs: []string{"u1", "u3"}},
		{ReactionSymbol: "🎉", Count: 1, UserIDs: []string{"u2"}},
	}, got)
}

func TestSummarizeReactionsEmpty(t *testing.T) {
	got := SummarizeReactions(nil)
	require.NotNil(t, got)
	require.Empty(t, got)
}

func TestNormalizeFileType(t *testing.T) {
	require.Equal(t, "application/octet-stream", NormalizeFileType(""))
	require.Equal(t, "application/octet-stream", NormalizeFileType("   "))
	require.Equal(t, "application/pdf", NormalizeFileType("APPLICATION/PDF"))
	require.Equal(t, "image/png", NormalizeFileType(" image/png "))
	require.Equal(t, "text/plain", NormalizeFileType("text/plain"))
	require.Equal(t, "application/x-tasky-board", NormalizeFileType("application/x-tasky-board"))
}

func TestIsMessageID(t *testing.T) {
	require.True(t, isMessageID("8f14e45f-ceea-4e7a-9a2b-1c3d4e5f6a7b"))
	require.False(t, isMessageID("42"))
	require.False(t, isMessageID(""))
}

func TestIsForeignKeyViolation(t *testing.T) {
	require.True(t, isForeignKeyViolation(&pq.Error{Code: "23503"}))
	require.False(t, isForeignKeyViolation(&pq.Error{Code: "23505"}))
	require.False(t, isForeignKeyViolation(errors.New("boom")))
	require.False(t, isForeignKeyViolation(nil))
}

func TestSentinelsWrapTaxonomy(t *testing.T) {
	require.ErrorIs(t, ErrMessageNotFound, ErrNotFound)
	require.ErrorIs(t, ErrReplyTargetNotFound, ErrNotFound)
	require.ErrorIs(t, ErrNotMessageAuthor, ErrForbidden)
}

func TestValidationFailedIsItsOwnKind(t *testing.T) {
	require.NotErrorIs(t, ErrValidationFailed, ErrNotFound)
	require.NotErrorIs(t, ErrValidationFailed, ErrForbidden)
	require.NotErrorIs(t, ErrMessageNotFound, ErrValidationFailed)
	require.NotErrorIs(t, ErrNotMessageAuthor, ErrValidationFailed)
}
