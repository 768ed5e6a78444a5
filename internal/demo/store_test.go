package demo

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/collabthon/collabthon-api/internal/models"
	"github.com/collabthon/collabthon-api/internal/repository"
)

// stepClock hands out strictly increasing timestamps so listing order is
// deterministic.
func stepClock(start time.Time) func() time.Time {
	current := start
	return func() time.Time {
		current = current.Add(time.Second)
		return current
	}
}

func TestCollaborationListPagination(t *testing.T) {
	store := NewStore()
	store.now = stepClock(time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC))
	requests := store.Collaborations()
	ctx := context.Background()

	var ids []string
	for i := 0; i < 7; i++ {
		req, err := requests.Create(ctx, models.CollaborationRequest{
			SenderID:   "sender",
			ReceiverID: fmt.Sprintf("receiver-%d", i),
		}, -1)
		if err != nil {
			t.Fatalf("Create() #%d error = %v", i, err)
		}
		ids = append(ids, req.ID)
	}

	var seen []string
	cursor := ""
	pages := 0
	for {
		page, next, err := requests.List(ctx, repository.CollaborationListParams{
			UserID:    "sender",
			Direction: repository.DirectionSent,
			Limit:     3,
			Cursor:    cursor,
		})
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		for _, req := range page {
			seen = append(seen, req.ID)
		}
		pages++
		if next == "" {
			break
		}
		cursor = next
	}

	if pages != 3 {
		t.Fatalf("walked %d pages, want 3", pages)
	}
	if len(seen) != len(ids) {
		t.Fatalf("saw %d requests, want %d", len(seen), len(ids))
	}
	// Newest first: creation order reversed, with no duplicates across pages.
	for i, id := range seen {
		want := ids[len(ids)-1-i]
		if id != want {
			t.Fatalf("position %d = %s, want %s", i, id, want)
		}
	}
}

func TestCollaborationListRejectsForeignCursor(t *testing.T) {
	store := NewStore()
	_, _, err := store.Collaborations().List(context.Background(), repository.CollaborationListParams{
		UserID:    "sender",
		Direction: repository.DirectionSent,
		Cursor:    "definitely-not-a-cursor",
	})
	if !errors.Is(err, repository.ErrInvalidCursor) {
		t.Fatalf("List() error = %v, want ErrInvalidCursor", err)
	}
}

func TestCollaborationSemanticsMatchPostgres(t *testing.T) {
	store := NewStore()
	requests := store.Collaborations()
	ctx := context.Background()

	req, err := requests.Create(ctx, models.CollaborationRequest{SenderID: "a", ReceiverID: "b"}, -1)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if _, err := requests.Create(ctx, models.CollaborationRequest{SenderID: "a", ReceiverID: "b"}, -1); !errors.Is(err, models.ErrDuplicateRequest) {
		t.Fatalf("duplicate Create() error = %v, want ErrDuplicateRequest", err)
	}

	if _, err := requests.Create(ctx, models.CollaborationRequest{SenderID: "a", ReceiverID: "c"}, 1); !errors.Is(err, models.ErrEntitlementDenied) {
		t.Fatalf("capped Create() error = %v, want ErrEntitlementDenied", err)
	}

	if _, err := requests.Transition(ctx, req.ID, models.CollaborationStatusAccepted); err != nil {
		t.Fatalf("Transition() error = %v", err)
	}
	if _, err := requests.Transition(ctx, req.ID, models.CollaborationStatusCancelled); !errors.Is(err, models.ErrInvalidTransition) {
		t.Fatalf("second Transition() error = %v, want ErrInvalidTransition", err)
	}
	if _, err := requests.Transition(ctx, "missing", models.CollaborationStatusAccepted); !errors.Is(err, models.ErrInvalidTransition) {
		t.Fatalf("Transition(missing) error = %v, want ErrInvalidTransition", err)
	}
}

func TestCancelPendingByProject(t *testing.T) {
	store := NewStore()
	requests := store.Collaborations()
	ctx := context.Background()
	projectID := "proj-1"

	inProject, err := requests.Create(ctx, models.CollaborationRequest{SenderID: "a", ReceiverID: "b", ProjectID: &projectID}, -1)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	direct, err := requests.Create(ctx, models.CollaborationRequest{SenderID: "a", ReceiverID: "b"}, -1)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	cancelled, err := requests.CancelPendingByProject(ctx, projectID)
	if err != nil {
		t.Fatalf("CancelPendingByProject() error = %v", err)
	}
	if len(cancelled) != 1 || cancelled[0].ID != inProject.ID {
		t.Fatalf("cancelled = %+v, want only the project-scoped request", cancelled)
	}

	got, err := requests.GetByID(ctx, direct.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Status != models.CollaborationStatusPending {
		t.Fatalf("direct request status = %q, want pending", got.Status)
	}
}

func TestNotificationSoftDelete(t *testing.T) {
	store := NewStore()
	notifications := store.Notifications()
	ctx := context.Background()

	notif, err := notifications.Create(ctx, repository.CreateNotificationParams{
		RecipientID: "u1",
		Type:        models.NotificationTypeSystemMessage,
		Title:       "hello",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := notifications.Delete(ctx, "someone-else", notif.ID); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("Delete() by non-recipient error = %v, want ErrNotFound", err)
	}
	if err := notifications.Delete(ctx, "u1", notif.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	listed, err := notifications.ListRecent(ctx, "u1", false, 10)
	if err != nil {
		t.Fatalf("ListRecent() error = %v", err)
	}
	if len(listed) != 0 {
		t.Fatalf("deleted notification still listed: %+v", listed)
	}
	if _, err := notifications.MarkRead(ctx, "u1", notif.ID); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("MarkRead() on deleted error = %v, want ErrNotFound", err)
	}
}

func TestProjectListOpenFilters(t *testing.T) {
	store := NewStore()
	store.now = stepClock(time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC))
	projects := store.Projects()

	budget := func(v float64) *float64 { return &v }

	goProject, err := projects.Create(models.Project{
		OwnerID:        "alice",
		Title:          "api rewrite",
		RequiredSkills: []string{"Go", "postgresql"},
		BudgetMin:      budget(500),
		IsRemote:       true,
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := projects.Create(models.Project{
		OwnerID:        "bob",
		Title:          "poster design",
		RequiredSkills: []string{"figma"},
		IsRemote:       false,
	}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	remote := true
	listed, total, err := projects.ListOpen(repository.ProjectFilter{Skill: "go", RemoteOnly: &remote})
	if err != nil {
		t.Fatalf("ListOpen() error = %v", err)
	}
	if total != 1 || len(listed) != 1 || listed[0].ID != goProject.ID {
		t.Fatalf("ListOpen() = %d results (total %d), want the go project only", len(listed), total)
	}

	// Closed projects drop out of the listing.
	if _, err := projects.UpdateStatus(goProject.ID, "alice", models.ProjectStatusClosed); err != nil {
		t.Fatalf("UpdateStatus() error = %v", err)
	}
	_, total, err = projects.ListOpen(repository.ProjectFilter{Skill: "go"})
	if err != nil {
		t.Fatalf("ListOpen() error = %v", err)
	}
	if total != 0 {
		t.Fatalf("closed project still listed, total = %d", total)
	}
}

func TestUserStore(t *testing.T) {
	store := NewStore()
	users := store.Users()

	created, err := users.CreateUser("dev@campus.edu", "dev", "hunter22", models.RoleStudent)
	if err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	if !created.IsActive {
		t.Error("new user should be active")
	}

	if _, err := users.CreateUser("DEV@campus.edu", "other", "pw123456", models.RoleStudent); err == nil {
		t.Error("duplicate email accepted")
	}
	if _, err := users.CreateUser("new@campus.edu", "dev", "pw123456", models.RoleStudent); err == nil {
		t.Error("duplicate username accepted")
	}

	if _, err := users.AuthenticateUser("dev@campus.edu", "hunter22"); err != nil {
		t.Errorf("AuthenticateUser() error = %v", err)
	}
	if _, err := users.AuthenticateUser("dev@campus.edu", "wrong"); err == nil {
		t.Error("wrong password accepted")
	}
}
