package repositories

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/samber/lo"

	"tasky-chat/internal/models"
)

// ProfileRepository reads public user profiles owned by the account service.
type ProfileRepository interface {
	BulkProfiles(ctx context.Context, ids []string) ([]models.UserProfile, error)
}

// ProfileRepo is a sqlx-backed ProfileRepository.
type ProfileRepo struct {
	db *sqlx.DB
}

// NewProfileRepo constructs a ProfileRepo.
func NewProfileRepo(db *sqlx.DB) *ProfileRepo {
	return &ProfileRepo{db: db}
}

// BulkProfiles fetches several profiles in one query; unknown ids are skipped.
func (r *ProfileRepo) BulkProfiles(ctx context.Context, ids []string) ([]models.UserProfile, error) {
	ids = lo.Uniq(lo.Compact(ids))
	if len(ids) == 0 {
		return []models.UserProfile{}, nil
	}
	var profiles []models.UserProfile
	err := r.db.SelectContext(ctx, &profiles, `SELECT id, first_name, last_name, avatar_url FROM users WHERE id = ANY($1)`, pq.Array(ids))
	return profiles, err
}
