package demo

import (
	"time"

	"github.com/collabthon/collabthon-api/internal/models"
	"github.com/rs/zerolog"
)

// Seed loads a small fixture set so a fresh demo instance has something to
// browse. Credentials are intentionally well known: every account's password
// is "demo1234".
func (s *Store) Seed(logger zerolog.Logger) error {
	users := s.Users()

	alice, err := users.CreateUser("alice@campus.edu", "alice", "demo1234", models.RoleStudent)
	if err != nil {
		return err
	}
	bob, err := users.CreateUser("bob@campus.edu", "bob", "demo1234", models.RoleStudent)
	if err != nil {
		return err
	}
	if _, err := users.CreateUser("admin@campus.edu", "admin", "demo1234", models.RoleAdmin); err != nil {
		return err
	}

	if _, err := s.Profiles().Upsert(models.Profile{
		UserID:    alice.ID,
		FirstName: "Alice",
		LastName:  "Nguyen",
		College:   "State University",
		Major:     "Computer Science",
		Year:      3,
		Bio:       "Backend developer looking for hackathon teammates.",
		Skills:    []string{"go", "postgresql", "docker"},
		IsPublic:  true,
	}); err != nil {
		return err
	}
	if _, err := s.Profiles().Upsert(models.Profile{
		UserID:    bob.ID,
		FirstName: "Bob",
		LastName:  "Martinez",
		College:   "State University",
		Major:     "Design",
		Year:      2,
		Bio:       "Product designer, happy to join early-stage projects.",
		Skills:    []string{"figma", "ui", "react"},
		IsPublic:  true,
	}); err != nil {
		return err
	}

	budgetMin, budgetMax := 200.0, 800.0
	expires := s.now().Add(30 * 24 * time.Hour)
	if _, err := s.Projects().Create(models.Project{
		OwnerID:        alice.ID,
		Title:          "Campus events app",
		Description:    "Mobile-first web app for discovering student events.",
		RequiredSkills: []string{"react", "go"},
		BudgetMin:      &budgetMin,
		BudgetMax:      &budgetMax,
		Timeline:       "6 weeks",
		IsRemote:       true,
		ExpiresAt:      &expires,
	}); err != nil {
		return err
	}

	if _, err := s.Subscriptions().Upsert(alice.ID, models.PlanProfessional, s.now(), &expires); err != nil {
		return err
	}

	logger.Info().Msg("demo fixtures loaded")
	return nil
}
