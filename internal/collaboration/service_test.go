package collaboration

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/collabthon/collabthon-api/internal/models"
	"github.com/collabthon/collabthon-api/internal/notification"
	"github.com/collabthon/collabthon-api/internal/repository"
	"github.com/rs/zerolog"
)

// fakeRequestRepo mirrors the Postgres repository semantics in memory: the
// pending cap and the duplicate check happen at insert, and transitions are
// a compare-and-swap on pending.
type fakeRequestRepo struct {
	requests map[string]models.CollaborationRequest
	nextID   int
}

func newFakeRequestRepo() *fakeRequestRepo {
	return &fakeRequestRepo{requests: make(map[string]models.CollaborationRequest)}
}

func (f *fakeRequestRepo) Create(ctx context.Context, req models.CollaborationRequest, pendingCap int) (models.CollaborationRequest, error) {
	if pendingCap >= 0 {
		pending := 0
		for _, existing := range f.requests {
			if existing.SenderID == req.SenderID && existing.Status == models.CollaborationStatusPending {
				pending++
			}
		}
		if pending >= pendingCap {
			return models.CollaborationRequest{}, models.ErrEntitlementDenied
		}
	}
	for _, existing := range f.requests {
		if existing.Status == models.CollaborationStatusPending &&
			existing.SenderID == req.SenderID &&
			existing.ReceiverID == req.ReceiverID &&
			sameProjectID(existing.ProjectID, req.ProjectID) {
			return models.CollaborationRequest{}, models.ErrDuplicateRequest
		}
	}
	f.nextID++
	req.ID = fmt.Sprintf("req-%d", f.nextID)
	req.Status = models.CollaborationStatusPending
	req.CreatedAt = time.Now()
	req.UpdatedAt = req.CreatedAt
	f.requests[req.ID] = req
	return req, nil
}

func (f *fakeRequestRepo) GetByID(ctx context.Context, id string) (models.CollaborationRequest, error) {
	req, ok := f.requests[id]
	if !ok {
		return models.CollaborationRequest{}, models.ErrNotFound
	}
	return req, nil
}

func (f *fakeRequestRepo) Transition(ctx context.Context, id string, to models.CollaborationStatus) (models.CollaborationRequest, error) {
	req, ok := f.requests[id]
	if !ok || req.Status != models.CollaborationStatusPending {
		return models.CollaborationRequest{}, models.ErrInvalidTransition
	}
	req.Status = to
	req.UpdatedAt = time.Now()
	f.requests[id] = req
	return req, nil
}

func (f *fakeRequestRepo) List(ctx context.Context, params repository.CollaborationListParams) ([]models.CollaborationRequest, string, error) {
	var out []models.CollaborationRequest
	for _, req := range f.requests {
		owner := req.SenderID
		if params.Direction == repository.DirectionReceived {
			owner = req.ReceiverID
		}
		if owner != params.UserID {
			continue
		}
		if params.Status != nil && req.Status != *params.Status {
			continue
		}
		out = append(out, req)
	}
	return out, "", nil
}

func (f *fakeRequestRepo) Stats(ctx context.Context, userID string) (models.CollaborationStats, error) {
	var stats models.CollaborationStats
	for _, req := range f.requests {
		if req.SenderID == userID {
			stats.SentTotal++
			if req.Status == models.CollaborationStatusPending {
				stats.PendingSent++
			}
		}
		if req.ReceiverID == userID {
			stats.ReceivedTotal++
			if req.Status == models.CollaborationStatusPending {
				stats.PendingReceived++
			}
		}
	}
	return stats, nil
}

func (f *fakeRequestRepo) CancelPendingByProject(ctx context.Context, projectID string) ([]models.CollaborationRequest, error) {
	var cancelled []models.CollaborationRequest
	for id, req := range f.requests {
		if req.Status == models.CollaborationStatusPending && req.ProjectID != nil && *req.ProjectID == projectID {
			req.Status = models.CollaborationStatusCancelled
			f.requests[id] = req
			cancelled = append(cancelled, req)
		}
	}
	return cancelled, nil
}

func sameProjectID(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

type fakeUserRepo struct {
	users map[string]models.User
}

func (f *fakeUserRepo) CreateUser(email, username, password string, role models.UserRole) (models.User, error) {
	return models.User{}, errors.New("not implemented")
}

func (f *fakeUserRepo) AuthenticateUser(email, password string) (models.User, error) {
	return models.User{}, errors.New("not implemented")
}

func (f *fakeUserRepo) GetUserByID(userID string) (models.User, error) {
	user, ok := f.users[userID]
	if !ok {
		return models.User{}, models.ErrNotFound
	}
	return user, nil
}

func (f *fakeUserRepo) GetUserByEmail(email string) (models.User, error) {
	return models.User{}, models.ErrNotFound
}

type fakeProjectRepo struct {
	projects map[string]models.Project
}

func (f *fakeProjectRepo) Create(project models.Project) (models.Project, error) {
	return project, nil
}

func (f *fakeProjectRepo) GetByID(id string) (models.Project, error) {
	project, ok := f.projects[id]
	if !ok {
		return models.Project{}, models.ErrNotFound
	}
	return project, nil
}

func (f *fakeProjectRepo) ListOpen(filter repository.ProjectFilter) ([]models.Project, int, error) {
	return nil, 0, nil
}

func (f *fakeProjectRepo) UpdateStatus(id, ownerID string, status models.ProjectStatus) (models.Project, error) {
	return models.Project{}, models.ErrNotFound
}

func (f *fakeProjectRepo) CountOpenByOwner(ownerID string) (int, error) { return 0, nil }

type fakeSubscriptionRepo struct {
	subs map[string]models.Subscription
}

func (f *fakeSubscriptionRepo) GetByUserID(userID string) (models.Subscription, error) {
	sub, ok := f.subs[userID]
	if !ok {
		return models.Subscription{}, models.ErrNotFound
	}
	return sub, nil
}

func (f *fakeSubscriptionRepo) Upsert(userID string, plan models.SubscriptionPlan, startedAt time.Time, expiresAt *time.Time) (models.Subscription, error) {
	return models.Subscription{}, errors.New("not implemented")
}

func (f *fakeSubscriptionRepo) PlanCounts() (map[models.SubscriptionPlan]int, error) {
	return nil, nil
}

// fakeNotifications records emitted intents and can simulate a broken
// notification pipeline.
type fakeNotifications struct {
	events []notification.Event
	err    error
}

func (f *fakeNotifications) Publish(ctx context.Context, evt notification.Event) (models.Notification, error) {
	if f.err != nil {
		return models.Notification{}, f.err
	}
	f.events = append(f.events, evt)
	return models.Notification{}, nil
}

func (f *fakeNotifications) NotifyRequestCreated(ctx context.Context, req models.CollaborationRequest) error {
	return f.record(ctx, req.ReceiverID, models.NotificationTypeRequestCreated)
}

func (f *fakeNotifications) NotifyRequestAccepted(ctx context.Context, req models.CollaborationRequest) error {
	return f.record(ctx, req.SenderID, models.NotificationTypeRequestAccepted)
}

func (f *fakeNotifications) NotifyRequestRejected(ctx context.Context, req models.CollaborationRequest) error {
	return f.record(ctx, req.SenderID, models.NotificationTypeRequestRejected)
}

func (f *fakeNotifications) NotifyRequestCancelled(ctx context.Context, req models.CollaborationRequest) error {
	return f.record(ctx, req.ReceiverID, models.NotificationTypeRequestCancelled)
}

func (f *fakeNotifications) NotifySubscriptionUpdated(ctx context.Context, userID string, plan models.SubscriptionPlan) error {
	return f.record(ctx, userID, models.NotificationTypeSubscriptionUpdate)
}

func (f *fakeNotifications) record(ctx context.Context, recipientID string, typ models.NotificationType) error {
	_, err := f.Publish(ctx, notification.Event{RecipientID: recipientID, Type: typ})
	return err
}

func (f *fakeNotifications) ListRecent(ctx context.Context, recipientID string, unreadOnly bool, limit int) ([]models.Notification, error) {
	return nil, nil
}

func (f *fakeNotifications) MarkRead(ctx context.Context, recipientID, notificationID string) (models.Notification, error) {
	return models.Notification{}, models.ErrNotFound
}

func (f *fakeNotifications) MarkAllRead(ctx context.Context, recipientID string) (int64, error) {
	return 0, nil
}

func (f *fakeNotifications) Delete(ctx context.Context, recipientID, notificationID string) error {
	return models.ErrNotFound
}

type fixture struct {
	service       Service
	requests      *fakeRequestRepo
	users         *fakeUserRepo
	projects      *fakeProjectRepo
	subscriptions *fakeSubscriptionRepo
	notifications *fakeNotifications
}

func newFixture() *fixture {
	f := &fixture{
		requests:      newFakeRequestRepo(),
		users:         &fakeUserRepo{users: make(map[string]models.User)},
		projects:      &fakeProjectRepo{projects: make(map[string]models.Project)},
		subscriptions: &fakeSubscriptionRepo{subs: make(map[string]models.Subscription)},
		notifications: &fakeNotifications{},
	}
	f.service = NewService(f.requests, f.users, f.projects, f.subscriptions, f.notifications, zerolog.Nop())
	f.addUser("sender", true)
	f.addUser("receiver", true)
	return f
}

func (f *fixture) addUser(id string, active bool) {
	f.users.users[id] = models.User{ID: id, IsActive: active, Role: models.RoleStudent}
}

func (f *fixture) addProject(id, ownerID string, status models.ProjectStatus) {
	f.projects.projects[id] = models.Project{ID: id, OwnerID: ownerID, Status: status}
}

func (f *fixture) lastEvent(t *testing.T) notification.Event {
	t.Helper()
	if len(f.notifications.events) == 0 {
		t.Fatal("expected a notification intent, got none")
	}
	return f.notifications.events[len(f.notifications.events)-1]
}

func TestCreateValidation(t *testing.T) {
	projectID := "proj-1"

	tests := []struct {
		name    string
		setup   func(f *fixture)
		sender  string
		input   CreateInput
		wantErr error
	}{
		{
			name:    "self request",
			sender:  "sender",
			input:   CreateInput{ReceiverID: "sender"},
			wantErr: ErrSelfCollaboration,
		},
		{
			name:    "message too long",
			sender:  "sender",
			input:   CreateInput{ReceiverID: "receiver", Message: strings.Repeat("x", maxMessageLength+1)},
			wantErr: ErrMessageTooLong,
		},
		{
			name:    "unknown sender",
			sender:  "ghost",
			input:   CreateInput{ReceiverID: "receiver"},
			wantErr: models.ErrNotFound,
		},
		{
			name:    "inactive sender",
			setup:   func(f *fixture) { f.addUser("sender", false) },
			sender:  "sender",
			input:   CreateInput{ReceiverID: "receiver"},
			wantErr: models.ErrNotAuthorized,
		},
		{
			name:    "unknown receiver",
			sender:  "sender",
			input:   CreateInput{ReceiverID: "ghost"},
			wantErr: models.ErrNotFound,
		},
		{
			name:    "inactive receiver looks missing",
			setup:   func(f *fixture) { f.addUser("receiver", false) },
			sender:  "sender",
			input:   CreateInput{ReceiverID: "receiver"},
			wantErr: models.ErrNotFound,
		},
		{
			name:    "unknown project",
			sender:  "sender",
			input:   CreateInput{ReceiverID: "receiver", ProjectID: &projectID},
			wantErr: models.ErrNotFound,
		},
		{
			name:    "project owned by someone else looks missing",
			setup:   func(f *fixture) { f.addProject(projectID, "receiver", models.ProjectStatusOpen) },
			sender:  "sender",
			input:   CreateInput{ReceiverID: "receiver", ProjectID: &projectID},
			wantErr: models.ErrNotFound,
		},
		{
			name:    "closed project",
			setup:   func(f *fixture) { f.addProject(projectID, "sender", models.ProjectStatusClosed) },
			sender:  "sender",
			input:   CreateInput{ReceiverID: "receiver", ProjectID: &projectID},
			wantErr: ErrProjectClosed,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture()
			if tc.setup != nil {
				tc.setup(f)
			}
			_, err := f.service.Create(context.Background(), tc.sender, tc.input)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("Create() error = %v, want %v", err, tc.wantErr)
			}
			if len(f.notifications.events) != 0 {
				t.Fatalf("rejected create emitted %d notifications", len(f.notifications.events))
			}
		})
	}
}

func TestCreateEmitsRequestCreated(t *testing.T) {
	f := newFixture()

	created, err := f.service.Create(context.Background(), "sender", CreateInput{
		ReceiverID: "receiver",
		Message:    "  let's team up  ",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if created.Status != models.CollaborationStatusPending {
		t.Fatalf("new request status = %q, want pending", created.Status)
	}
	if created.Message != "let's team up" {
		t.Fatalf("message not trimmed: %q", created.Message)
	}

	evt := f.lastEvent(t)
	if evt.Type != models.NotificationTypeRequestCreated {
		t.Fatalf("event type = %q, want request_created", evt.Type)
	}
	if evt.RecipientID != "receiver" {
		t.Fatalf("request_created recipient = %q, want receiver", evt.RecipientID)
	}
}

func TestCreateDuplicatePending(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	first, err := f.service.Create(ctx, "sender", CreateInput{ReceiverID: "receiver"})
	if err != nil {
		t.Fatalf("first Create() error = %v", err)
	}

	if _, err := f.service.Create(ctx, "sender", CreateInput{ReceiverID: "receiver"}); !errors.Is(err, models.ErrDuplicateRequest) {
		t.Fatalf("duplicate Create() error = %v, want ErrDuplicateRequest", err)
	}

	// Resolving the first request frees the pair for a new attempt.
	if _, err := f.service.Reject(ctx, first.ID, "receiver"); err != nil {
		t.Fatalf("Reject() error = %v", err)
	}
	if _, err := f.service.Create(ctx, "sender", CreateInput{ReceiverID: "receiver"}); err != nil {
		t.Fatalf("Create() after rejection error = %v", err)
	}
}

func TestCreateFreeTierQuota(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	var lastID string
	for i := 0; i < freeTierCap; i++ {
		receiver := fmt.Sprintf("receiver-%d", i)
		f.addUser(receiver, true)
		req, err := f.service.Create(ctx, "sender", CreateInput{ReceiverID: receiver})
		if err != nil {
			t.Fatalf("Create() #%d error = %v", i, err)
		}
		lastID = req.ID
	}

	f.addUser("one-more", true)
	if _, err := f.service.Create(ctx, "sender", CreateInput{ReceiverID: "one-more"}); !errors.Is(err, models.ErrEntitlementDenied) {
		t.Fatalf("Create() over cap error = %v, want ErrEntitlementDenied", err)
	}

	// A terminal transition releases quota.
	if _, err := f.service.Cancel(ctx, lastID, "sender"); err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}
	if _, err := f.service.Create(ctx, "sender", CreateInput{ReceiverID: "one-more"}); err != nil {
		t.Fatalf("Create() after cancel error = %v", err)
	}
}

func TestCreateQuotaFollowsEffectivePlan(t *testing.T) {
	tests := []struct {
		name    string
		sub     *models.Subscription
		wantErr error
	}{
		{
			name: "active professional is uncapped",
			sub:  &models.Subscription{Plan: models.PlanProfessional, IsActive: true},
		},
		{
			name: "expired professional gates as free",
			sub: &models.Subscription{
				Plan:      models.PlanProfessional,
				IsActive:  true,
				ExpiresAt: timePtr(time.Now().Add(-time.Hour)),
			},
			wantErr: models.ErrEntitlementDenied,
		},
		{
			name: "inactive professional gates as free",
			sub:  &models.Subscription{Plan: models.PlanProfessional, IsActive: false},
			wantErr: models.ErrEntitlementDenied,
		},
		{
			name:    "missing subscription gates as free",
			wantErr: models.ErrEntitlementDenied,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture()
			ctx := context.Background()
			if tc.sub != nil {
				sub := *tc.sub
				sub.UserID = "sender"
				f.subscriptions.subs["sender"] = sub
			}

			for i := 0; i < freeTierCap; i++ {
				receiver := fmt.Sprintf("receiver-%d", i)
				f.addUser(receiver, true)
				if _, err := f.service.Create(ctx, "sender", CreateInput{ReceiverID: receiver}); err != nil {
					t.Fatalf("Create() #%d error = %v", i, err)
				}
			}

			f.addUser("one-more", true)
			_, err := f.service.Create(ctx, "sender", CreateInput{ReceiverID: "one-more"})
			if tc.wantErr == nil && err != nil {
				t.Fatalf("Create() error = %v, want nil", err)
			}
			if tc.wantErr != nil && !errors.Is(err, tc.wantErr) {
				t.Fatalf("Create() error = %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestTransitionAuthorization(t *testing.T) {
	tests := []struct {
		name    string
		op      func(s Service, ctx context.Context, id, actor string) error
		actor   string
		wantErr error
	}{
		{
			name:  "receiver accepts",
			op:    opAccept,
			actor: "receiver",
		},
		{
			name:  "receiver rejects",
			op:    opReject,
			actor: "receiver",
		},
		{
			name:  "sender cancels",
			op:    opCancel,
			actor: "sender",
		},
		{
			name:    "sender cannot accept",
			op:      opAccept,
			actor:   "sender",
			wantErr: models.ErrNotAuthorized,
		},
		{
			name:    "sender cannot reject",
			op:      opReject,
			actor:   "sender",
			wantErr: models.ErrNotAuthorized,
		},
		{
			name:    "receiver cannot cancel",
			op:      opCancel,
			actor:   "receiver",
			wantErr: models.ErrNotAuthorized,
		},
		{
			name:    "outsider accept looks missing",
			op:      opAccept,
			actor:   "outsider",
			wantErr: models.ErrNotFound,
		},
		{
			name:    "outsider cancel looks missing",
			op:      opCancel,
			actor:   "outsider",
			wantErr: models.ErrNotFound,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture()
			f.addUser("outsider", true)
			ctx := context.Background()

			req, err := f.service.Create(ctx, "sender", CreateInput{ReceiverID: "receiver"})
			if err != nil {
				t.Fatalf("Create() error = %v", err)
			}

			err = tc.op(f.service, ctx, req.ID, tc.actor)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("transition error = %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func opAccept(s Service, ctx context.Context, id, actor string) error {
	_, err := s.Accept(ctx, id, actor)
	return err
}

func opReject(s Service, ctx context.Context, id, actor string) error {
	_, err := s.Reject(ctx, id, actor)
	return err
}

func opCancel(s Service, ctx context.Context, id, actor string) error {
	_, err := s.Cancel(ctx, id, actor)
	return err
}

func TestTerminalStatesAreFinal(t *testing.T) {
	resolutions := []struct {
		name    string
		resolve func(s Service, ctx context.Context, id string) error
	}{
		{"accepted", func(s Service, ctx context.Context, id string) error { return opAccept(s, ctx, id, "receiver") }},
		{"rejected", func(s Service, ctx context.Context, id string) error { return opReject(s, ctx, id, "receiver") }},
		{"cancelled", func(s Service, ctx context.Context, id string) error { return opCancel(s, ctx, id, "sender") }},
	}

	for _, res := range resolutions {
		t.Run(res.name, func(t *testing.T) {
			f := newFixture()
			ctx := context.Background()

			req, err := f.service.Create(ctx, "sender", CreateInput{ReceiverID: "receiver"})
			if err != nil {
				t.Fatalf("Create() error = %v", err)
			}
			if err := res.resolve(f.service, ctx, req.ID); err != nil {
				t.Fatalf("first transition error = %v", err)
			}

			for _, second := range []func() error{
				func() error { return opAccept(f.service, ctx, req.ID, "receiver") },
				func() error { return opReject(f.service, ctx, req.ID, "receiver") },
				func() error { return opCancel(f.service, ctx, req.ID, "sender") },
			} {
				if err := second(); !errors.Is(err, models.ErrInvalidTransition) {
					t.Fatalf("transition out of %s error = %v, want ErrInvalidTransition", res.name, err)
				}
			}
		})
	}
}

func TestTransitionNotificationRecipients(t *testing.T) {
	tests := []struct {
		name          string
		resolve       func(s Service, ctx context.Context, id string) error
		wantType      models.NotificationType
		wantRecipient string
	}{
		{
			name:          "accept notifies sender",
			resolve:       func(s Service, ctx context.Context, id string) error { return opAccept(s, ctx, id, "receiver") },
			wantType:      models.NotificationTypeRequestAccepted,
			wantRecipient: "sender",
		},
		{
			name:          "reject notifies sender",
			resolve:       func(s Service, ctx context.Context, id string) error { return opReject(s, ctx, id, "receiver") },
			wantType:      models.NotificationTypeRequestRejected,
			wantRecipient: "sender",
		},
		{
			name:          "cancel notifies receiver",
			resolve:       func(s Service, ctx context.Context, id string) error { return opCancel(s, ctx, id, "sender") },
			wantType:      models.NotificationTypeRequestCancelled,
			wantRecipient: "receiver",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture()
			ctx := context.Background()

			req, err := f.service.Create(ctx, "sender", CreateInput{ReceiverID: "receiver"})
			if err != nil {
				t.Fatalf("Create() error = %v", err)
			}
			if err := tc.resolve(f.service, ctx, req.ID); err != nil {
				t.Fatalf("transition error = %v", err)
			}

			evt := f.lastEvent(t)
			if evt.Type != tc.wantType {
				t.Fatalf("event type = %q, want %q", evt.Type, tc.wantType)
			}
			if evt.RecipientID != tc.wantRecipient {
				t.Fatalf("event recipient = %q, want %q", evt.RecipientID, tc.wantRecipient)
			}
		})
	}
}

func TestTransitionSurvivesNotificationFailure(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	req, err := f.service.Create(ctx, "sender", CreateInput{ReceiverID: "receiver"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	f.notifications.err = errors.New("smtp is down")
	updated, err := f.service.Accept(ctx, req.ID, "receiver")
	if err != nil {
		t.Fatalf("Accept() error = %v, notification failure must not fail the transition", err)
	}
	if updated.Status != models.CollaborationStatusAccepted {
		t.Fatalf("status = %q, want accepted", updated.Status)
	}
}

func TestGetHidesRequestsFromOutsiders(t *testing.T) {
	f := newFixture()
	f.addUser("outsider", true)
	ctx := context.Background()

	req, err := f.service.Create(ctx, "sender", CreateInput{ReceiverID: "receiver"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	for _, actor := range []string{"sender", "receiver"} {
		if _, err := f.service.Get(ctx, req.ID, actor); err != nil {
			t.Fatalf("Get() as %s error = %v", actor, err)
		}
	}
	if _, err := f.service.Get(ctx, req.ID, "outsider"); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("Get() as outsider error = %v, want ErrNotFound", err)
	}
}

func TestListRejectsInvalidStatusFilter(t *testing.T) {
	f := newFixture()
	bogus := models.CollaborationStatus("archived")

	_, _, err := f.service.List(context.Background(), repository.CollaborationListParams{
		UserID:    "sender",
		Direction: repository.DirectionSent,
		Status:    &bogus,
	})
	if err == nil {
		t.Fatal("List() with bogus status filter succeeded, want error")
	}
}

func timePtr(t time.Time) *time.Time { return &t }
