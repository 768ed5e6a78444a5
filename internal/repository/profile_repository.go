package repository

import (
	"database/sql"

	"github.com/collabthon/collabthon-api/internal/models"
	"github.com/lib/pq"
	"github.com/pkg/errors"
)

type ProfileRepository interface {
	Upsert(profile models.Profile) (models.Profile, error)
	GetByUserID(userID string) (models.Profile, error)
}

type profileRepository struct {
	db *sql.DB
}

func NewProfileRepository(db *sql.DB) ProfileRepository {
	return &profileRepository{db: db}
}

func (r *profileRepository) Upsert(profile models.Profile) (models.Profile, error) {
	const query = `
		INSERT INTO profiles (user_id, first_name, last_name, college, major, year, bio, skills,
			experience, github_url, linkedin_url, portfolio_url, avatar_url, is_public)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (user_id) DO UPDATE SET
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			college = EXCLUDED.college,
			major = EXCLUDED.major,
			year = EXCLUDED.year,
			bio = EXCLUDED.bio,
			skills = EXCLUDED.skills,
			experience = EXCLUDED.experience,
			github_url = EXCLUDED.github_url,
			linkedin_url = EXCLUDED.linkedin_url,
			portfolio_url = EXCLUDED.portfolio_url,
			avatar_url = EXCLUDED.avatar_url,
			is_public = EXCLUDED.is_public,
			updated_at = now()
		RETURNING id, user_id, first_name, last_name, college, major, year, bio, skills,
			experience, github_url, linkedin_url, portfolio_url, avatar_url, is_public, created_at, updated_at;
	`
	row := r.db.QueryRow(query,
		profile.UserID,
		profile.FirstName,
		profile.LastName,
		profile.College,
		profile.Major,
		profile.Year,
		profile.Bio,
		pq.Array(profile.Skills),
		profile.Experience,
		profile.GithubURL,
		profile.LinkedinURL,
		profile.PortfolioURL,
		profile.AvatarURL,
		profile.IsPublic,
	)
	return scanProfile(row)
}

func (r *profileRepository) GetByUserID(userID string) (models.Profile, error) {
	const query = `
		SELECT id, user_id, first_name, last_name, college, major, year, bio, skills,
			experience, github_url, linkedin_url, portfolio_url, avatar_url, is_public, created_at, updated_at
		FROM profiles
		WHERE user_id = $1;
	`
	return scanProfile(r.db.QueryRow(query, userID))
}

func scanProfile(row *sql.Row) (models.Profile, error) {
	var (
		profile models.Profile
		skills  pq.StringArray
	)
	err := row.Scan(
		&profile.ID,
		&profile.UserID,
		&profile.FirstName,
		&profile.LastName,
		&profile.College,
		&profile.Major,
		&profile.Year,
		&profile.Bio,
		&skills,
		&profile.Experience,
		&profile.GithubURL,
		&profile.LinkedinURL,
		&profile.PortfolioURL,
		&profile.AvatarURL,
		&profile.IsPublic,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Profile{}, models.ErrNotFound
		}
		return models.Profile{}, errors.Wrap(err, "scan profile")
	}
	profile.Skills = skills
	return profile, nil
}
