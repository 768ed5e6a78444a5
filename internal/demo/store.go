// Package demo provides an in-memory stand-in for the Postgres repositories
// so the API can run without a database. It is selected only by the explicit
// demo_mode flag and mirrors the repository semantics, including duplicate
// detection and the pending-only transition rule.
package demo

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/collabthon/collabthon-api/internal/models"
	"github.com/collabthon/collabthon-api/internal/repository"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"
)

// Store holds every collection behind a single mutex. The demo handles one
// browser tab, not production traffic, so coarse locking is fine.
type Store struct {
	mu sync.Mutex

	users         map[string]models.User
	profiles      map[string]models.Profile      // keyed by user id
	projects      map[string]models.Project
	subscriptions map[string]models.Subscription // keyed by user id
	requests      map[string]models.CollaborationRequest
	notifications map[string]models.Notification
	deleted       map[string]bool // soft-deleted notification ids

	now func() time.Time
}

func NewStore() *Store {
	return &Store{
		users:         make(map[string]models.User),
		profiles:      make(map[string]models.Profile),
		projects:      make(map[string]models.Project),
		subscriptions: make(map[string]models.Subscription),
		requests:      make(map[string]models.CollaborationRequest),
		notifications: make(map[string]models.Notification),
		deleted:       make(map[string]bool),
		now:           time.Now,
	}
}

func (s *Store) Users() repository.UserRepository {
	return &userStore{s}
}

func (s *Store) Profiles() repository.ProfileRepository {
	return &profileStore{s}
}

func (s *Store) Projects() repository.ProjectRepository {
	return &projectStore{s}
}

func (s *Store) Subscriptions() repository.SubscriptionRepository {
	return &subscriptionStore{s}
}

func (s *Store) Collaborations() repository.CollaborationRepository {
	return &collaborationStore{s}
}

func (s *Store) Notifications() repository.NotificationRepository {
	return &notificationStore{s}
}

// --- users ---

type userStore struct{ s *Store }

func (u *userStore) CreateUser(email, username, password string, role models.UserRole) (models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, errors.Wrap(err, "hash password")
	}

	u.s.mu.Lock()
	defer u.s.mu.Unlock()

	for _, existing := range u.s.users {
		if strings.EqualFold(existing.Email, email) || existing.Username == username {
			return models.User{}, errors.New("email or username already registered")
		}
	}

	now := u.s.now()
	user := models.User{
		ID:           uuid.NewString(),
		Email:        email,
		Username:     username,
		PasswordHash: string(hash),
		Role:         role,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	u.s.users[user.ID] = user
	return user, nil
}

func (u *userStore) AuthenticateUser(email, password string) (models.User, error) {
	u.s.mu.Lock()
	var found *models.User
	for _, user := range u.s.users {
		if strings.EqualFold(user.Email, email) {
			candidate := user
			found = &candidate
			break
		}
	}
	u.s.mu.Unlock()

	if found == nil {
		return models.User{}, errors.New("invalid email or password")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(found.PasswordHash), []byte(password)); err != nil {
		return models.User{}, errors.New("invalid email or password")
	}
	return *found, nil
}

func (u *userStore) GetUserByID(userID string) (models.User, error) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	user, ok := u.s.users[userID]
	if !ok {
		return models.User{}, models.ErrNotFound
	}
	return user, nil
}

func (u *userStore) GetUserByEmail(email string) (models.User, error) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	for _, user := range u.s.users {
		if strings.EqualFold(user.Email, email) {
			return user, nil
		}
	}
	return models.User{}, models.ErrNotFound
}

// --- profiles ---

type profileStore struct{ s *Store }

func (p *profileStore) Upsert(profile models.Profile) (models.Profile, error) {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()

	now := p.s.now()
	existing, ok := p.s.profiles[profile.UserID]
	if ok {
		profile.ID = existing.ID
		profile.CreatedAt = existing.CreatedAt
	} else {
		profile.ID = uuid.NewString()
		profile.CreatedAt = now
	}
	profile.UpdatedAt = now
	p.s.profiles[profile.UserID] = profile
	return profile, nil
}

func (p *profileStore) GetByUserID(userID string) (models.Profile, error) {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	profile, ok := p.s.profiles[userID]
	if !ok {
		return models.Profile{}, models.ErrNotFound
	}
	return profile, nil
}

// --- projects ---

type projectStore struct{ s *Store }

func (p *projectStore) Create(project models.Project) (models.Project, error) {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()

	now := p.s.now()
	project.ID = uuid.NewString()
	project.Status = models.ProjectStatusOpen
	project.CreatedAt = now
	project.UpdatedAt = now
	p.s.projects[project.ID] = project
	return project, nil
}

func (p *projectStore) GetByID(id string) (models.Project, error) {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	project, ok := p.s.projects[id]
	if !ok {
		return models.Project{}, models.ErrNotFound
	}
	return project, nil
}

func (p *projectStore) ListOpen(filter repository.ProjectFilter) ([]models.Project, int, error) {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()

	var matched []models.Project
	for _, project := range p.s.projects {
		if project.Status != models.ProjectStatusOpen {
			continue
		}
		if filter.Skill != "" && !containsSkill(project.RequiredSkills, filter.Skill) {
			continue
		}
		if filter.MinBudget != nil && (project.BudgetMin == nil || *project.BudgetMin < *filter.MinBudget) {
			continue
		}
		if filter.MaxBudget != nil && (project.BudgetMax == nil || *project.BudgetMax > *filter.MaxBudget) {
			continue
		}
		if filter.RemoteOnly != nil && project.IsRemote != *filter.RemoteOnly {
			continue
		}
		matched = append(matched, project)
	}

	sortNewestFirst(matched, func(pr models.Project) (time.Time, string) { return pr.CreatedAt, pr.ID })
	total := len(matched)

	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	if offset >= len(matched) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], total, nil
}

func (p *projectStore) UpdateStatus(id, ownerID string, status models.ProjectStatus) (models.Project, error) {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()

	project, ok := p.s.projects[id]
	if !ok || project.OwnerID != ownerID {
		return models.Project{}, models.ErrNotFound
	}
	project.Status = status
	project.UpdatedAt = p.s.now()
	p.s.projects[id] = project
	return project, nil
}

func (p *projectStore) CountOpenByOwner(ownerID string) (int, error) {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()

	count := 0
	for _, project := range p.s.projects {
		if project.OwnerID == ownerID && project.Status == models.ProjectStatusOpen {
			count++
		}
	}
	return count, nil
}

// --- subscriptions ---

type subscriptionStore struct{ s *Store }

func (ss *subscriptionStore) GetByUserID(userID string) (models.Subscription, error) {
	ss.s.mu.Lock()
	defer ss.s.mu.Unlock()
	sub, ok := ss.s.subscriptions[userID]
	if !ok {
		return models.Subscription{}, models.ErrNotFound
	}
	return sub, nil
}

func (ss *subscriptionStore) Upsert(userID string, plan models.SubscriptionPlan, startedAt time.Time, expiresAt *time.Time) (models.Subscription, error) {
	ss.s.mu.Lock()
	defer ss.s.mu.Unlock()

	now := ss.s.now()
	sub, ok := ss.s.subscriptions[userID]
	if !ok {
		sub = models.Subscription{ID: uuid.NewString(), UserID: userID, CreatedAt: now}
	}
	sub.Plan = plan
	sub.IsActive = true
	sub.StartedAt = startedAt
	sub.ExpiresAt = expiresAt
	sub.UpdatedAt = now
	ss.s.subscriptions[userID] = sub
	return sub, nil
}

func (ss *subscriptionStore) PlanCounts() (map[models.SubscriptionPlan]int, error) {
	ss.s.mu.Lock()
	defer ss.s.mu.Unlock()

	counts := make(map[models.SubscriptionPlan]int)
	for _, sub := range ss.s.subscriptions {
		if sub.IsActive {
			counts[sub.Plan]++
		}
	}
	return counts, nil
}

// --- collaboration requests ---

type collaborationStore struct{ s *Store }

func (c *collaborationStore) Create(ctx context.Context, req models.CollaborationRequest, pendingCap int) (models.CollaborationRequest, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	if pendingCap >= 0 {
		pending := 0
		for _, existing := range c.s.requests {
			if existing.SenderID == req.SenderID && existing.Status == models.CollaborationStatusPending {
				pending++
			}
		}
		if pending >= pendingCap {
			return models.CollaborationRequest{}, models.ErrEntitlementDenied
		}
	}

	for _, existing := range c.s.requests {
		if existing.Status == models.CollaborationStatusPending &&
			existing.SenderID == req.SenderID &&
			existing.ReceiverID == req.ReceiverID &&
			sameProject(existing.ProjectID, req.ProjectID) {
			return models.CollaborationRequest{}, models.ErrDuplicateRequest
		}
	}

	now := c.s.now()
	req.ID = uuid.NewString()
	req.Status = models.CollaborationStatusPending
	req.CreatedAt = now
	req.UpdatedAt = now
	c.s.requests[req.ID] = req
	return req, nil
}

func (c *collaborationStore) GetByID(ctx context.Context, id string) (models.CollaborationRequest, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	req, ok := c.s.requests[id]
	if !ok {
		return models.CollaborationRequest{}, models.ErrNotFound
	}
	return req, nil
}

func (c *collaborationStore) Transition(ctx context.Context, id string, to models.CollaborationStatus) (models.CollaborationRequest, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	req, ok := c.s.requests[id]
	if !ok || req.Status != models.CollaborationStatusPending {
		return models.CollaborationRequest{}, models.ErrInvalidTransition
	}
	req.Status = to
	req.UpdatedAt = c.s.now()
	c.s.requests[id] = req
	return req, nil
}

func (c *collaborationStore) List(ctx context.Context, params repository.CollaborationListParams) ([]models.CollaborationRequest, string, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	var cursorAt time.Time
	var cursorID string
	if params.Cursor != "" {
		var err error
		cursorAt, cursorID, err = repository.DecodeCursor(params.Cursor)
		if err != nil {
			return nil, "", err
		}
	}

	var matched []models.CollaborationRequest
	for _, req := range c.s.requests {
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
		if params.Cursor != "" && !beforeCursor(req, cursorAt, cursorID) {
			continue
		}
		matched = append(matched, req)
	}

	sortNewestFirst(matched, func(r models.CollaborationRequest) (time.Time, string) { return r.CreatedAt, r.ID })

	limit := params.Limit
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	next := ""
	if len(matched) > limit {
		matched = matched[:limit]
		last := matched[len(matched)-1]
		next = repository.EncodeCursor(last.CreatedAt, last.ID)
	}
	return matched, next, nil
}

func (c *collaborationStore) Stats(ctx context.Context, userID string) (models.CollaborationStats, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	var stats models.CollaborationStats
	for _, req := range c.s.requests {
		sent := req.SenderID == userID
		received := req.ReceiverID == userID
		if !sent && !received {
			continue
		}
		if sent {
			stats.SentTotal++
			if req.Status == models.CollaborationStatusPending {
				stats.PendingSent++
			}
		}
		if received {
			stats.ReceivedTotal++
			if req.Status == models.CollaborationStatusPending {
				stats.PendingReceived++
			}
		}
		if req.Status == models.CollaborationStatusAccepted {
			stats.Accepted++
		}
	}
	return stats, nil
}

func (c *collaborationStore) CancelPendingByProject(ctx context.Context, projectID string) ([]models.CollaborationRequest, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	var cancelled []models.CollaborationRequest
	for id, req := range c.s.requests {
		if req.Status != models.CollaborationStatusPending || req.ProjectID == nil || *req.ProjectID != projectID {
			continue
		}
		req.Status = models.CollaborationStatusCancelled
		req.UpdatedAt = c.s.now()
		c.s.requests[id] = req
		cancelled = append(cancelled, req)
	}
	return cancelled, nil
}

// --- notifications ---

type notificationStore struct{ s *Store }

func (n *notificationStore) Create(ctx context.Context, params repository.CreateNotificationParams) (models.Notification, error) {
	var payload json.RawMessage
	if len(params.Payload) > 0 {
		bytes, err := json.Marshal(params.Payload)
		if err != nil {
			return models.Notification{}, errors.Wrap(err, "marshal payload")
		}
		payload = bytes
	}

	n.s.mu.Lock()
	defer n.s.mu.Unlock()

	notif := models.Notification{
		ID:          uuid.NewString(),
		RecipientID: strings.TrimSpace(params.RecipientID),
		Type:        params.Type,
		Title:       params.Title,
		Message:     params.Message,
		Payload:     payload,
		CreatedAt:   n.s.now(),
	}
	n.s.notifications[notif.ID] = notif
	return notif, nil
}

func (n *notificationStore) ListRecent(ctx context.Context, recipientID string, unreadOnly bool, limit int) ([]models.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 25
	}

	n.s.mu.Lock()
	defer n.s.mu.Unlock()

	var matched []models.Notification
	for id, notif := range n.s.notifications {
		if notif.RecipientID != recipientID || n.s.deleted[id] {
			continue
		}
		if unreadOnly && notif.IsRead {
			continue
		}
		matched = append(matched, notif)
	}
	sortNewestFirst(matched, func(nf models.Notification) (time.Time, string) { return nf.CreatedAt, nf.ID })
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func (n *notificationStore) MarkRead(ctx context.Context, recipientID, notificationID string) (models.Notification, error) {
	n.s.mu.Lock()
	defer n.s.mu.Unlock()

	notif, ok := n.s.notifications[notificationID]
	if !ok || notif.RecipientID != recipientID || n.s.deleted[notificationID] {
		return models.Notification{}, models.ErrNotFound
	}
	now := n.s.now()
	notif.IsRead = true
	notif.ReadAt = &now
	n.s.notifications[notificationID] = notif
	return notif, nil
}

func (n *notificationStore) MarkAllRead(ctx context.Context, recipientID string) (int64, error) {
	n.s.mu.Lock()
	defer n.s.mu.Unlock()

	now := n.s.now()
	var affected int64
	for id, notif := range n.s.notifications {
		if notif.RecipientID != recipientID || notif.IsRead || n.s.deleted[id] {
			continue
		}
		notif.IsRead = true
		notif.ReadAt = &now
		n.s.notifications[id] = notif
		affected++
	}
	return affected, nil
}

func (n *notificationStore) Delete(ctx context.Context, recipientID, notificationID string) error {
	n.s.mu.Lock()
	defer n.s.mu.Unlock()

	notif, ok := n.s.notifications[notificationID]
	if !ok || notif.RecipientID != recipientID || n.s.deleted[notificationID] {
		return models.ErrNotFound
	}
	n.s.deleted[notificationID] = true
	return nil
}

// --- helpers ---

func containsSkill(skills []string, skill string) bool {
	for _, s := range skills {
		if strings.EqualFold(s, skill) {
			return true
		}
	}
	return false
}

func sameProject(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// beforeCursor replicates the row-wise (created_at, id) < (cursor) comparison
// the SQL listing uses.
func beforeCursor(req models.CollaborationRequest, cursorAt time.Time, cursorID string) bool {
	if req.CreatedAt.Before(cursorAt) {
		return true
	}
	return req.CreatedAt.Equal(cursorAt) && req.ID < cursorID
}

func sortNewestFirst[T any](items []T, key func(T) (time.Time, string)) {
	sort.Slice(items, func(i, j int) bool {
		ti, idi := key(items[i])
		tj, idj := key(items[j])
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return idi > idj
	})
}
