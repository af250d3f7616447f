package testsupport

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/lapublica/leadflow/internal/entity"
)

// Store is an in-memory stand-in for the Postgres schema. Rows are copied on
// the way in and out so callers cannot mutate stored state by accident.
type Store struct {
	mu            sync.Mutex
	users         map[string]entity.User
	leads         map[string]entity.Lead
	activities    []entity.LeadActivity
	notifications []entity.Notification

	// Injected failures; nil means the call behaves normally.
	LeadUpdateErr         error
	ActivityCreateErr     error
	NotificationCreateErr error
	NotificationCountErr  error
	ListStaleErr          error
	RoleLookupErr         error
}

func NewStore() *Store {
	return &Store{
		users: make(map[string]entity.User),
		leads: make(map[string]entity.Lead),
	}
}

func (s *Store) AddUser(u entity.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
}

// PutLead stores lead as-is, bypassing versioning.
func (s *Store) PutLead(lead *entity.Lead) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.leads[lead.ID] = copyLead(*lead)
}

func (s *Store) Lead(id string) (*entity.Lead, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.leads[id]
	if !ok {
		return nil, false
	}
	out := copyLead(l)
	return &out, true
}

func (s *Store) ActivitiesFor(leadID string) []entity.LeadActivity {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []entity.LeadActivity
	for _, a := range s.activities {
		if a.LeadID == leadID {
			out = append(out, a)
		}
	}
	return out
}

func (s *Store) AllNotifications() []entity.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]entity.Notification, len(s.notifications))
	copy(out, s.notifications)
	return out
}

func (s *Store) NotificationsFor(userID string) []entity.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []entity.Notification
	for _, n := range s.notifications {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out
}

// PutNotification stores n without going through the dispatcher.
func (s *Store) PutNotification(n entity.Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifications = append(s.notifications, n)
}

func (s *Store) Leads() *LeadRepo                 { return &LeadRepo{s: s} }
func (s *Store) Activities() *ActivityRepo        { return &ActivityRepo{s: s} }
func (s *Store) Notifications() *NotificationRepo { return &NotificationRepo{s: s} }
func (s *Store) Users() *UserRepo                 { return &UserRepo{s: s} }

func copyLead(l entity.Lead) entity.Lead {
	if l.AssignedToID != nil {
		id := *l.AssignedToID
		l.AssignedToID = &id
	}
	return l
}

type LeadRepo struct{ s *Store }

func (r *LeadRepo) Create(ctx context.Context, lead *entity.Lead) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if lead.AssignedToID != nil {
		if _, ok := r.s.users[*lead.AssignedToID]; !ok {
			return entity.ErrUserNotFound
		}
	}
	r.s.leads[lead.ID] = copyLead(*lead)
	return nil
}

func (r *LeadRepo) FindByID(ctx context.Context, id string) (*entity.Lead, error) {
	lead, ok := r.s.Lead(id)
	if !ok {
		return nil, entity.ErrLeadNotFound
	}
	return lead, nil
}

func (r *LeadRepo) Update(ctx context.Context, lead *entity.Lead, expectedVersion int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.LeadUpdateErr != nil {
		return r.s.LeadUpdateErr
	}
	stored, ok := r.s.leads[lead.ID]
	if !ok {
		return entity.ErrLeadNotFound
	}
	if stored.Version != expectedVersion {
		return entity.ErrVersionConflict
	}
	stored.Status = lead.Status
	stored.Priority = lead.Priority
	stored.AssignedToID = lead.AssignedToID
	stored.Notes = lead.Notes
	stored.UpdatedAt = lead.UpdatedAt
	stored.Version = expectedVersion + 1
	r.s.leads[lead.ID] = copyLead(stored)
	lead.Version = stored.Version
	return nil
}

func (r *LeadRepo) ListStale(ctx context.Context, filter entity.StaleLeadFilter) ([]*entity.Lead, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.ListStaleErr != nil {
		return nil, r.s.ListStaleErr
	}

	var out []*entity.Lead
	for _, l := range r.s.leads {
		if !l.IsAssigned() || !l.UpdatedAt.Before(filter.UpdatedBefore) {
			continue
		}
		if len(filter.Statuses) > 0 && !contains(filter.Statuses, l.Status) {
			continue
		}
		if len(filter.Statuses) == 0 && contains(filter.ExcludeStatuses, l.Status) {
			continue
		}
		c := copyLead(l)
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.Before(out[j].UpdatedAt) })
	return out, nil
}

func (r *LeadRepo) Delete(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.leads[id]; !ok {
		return entity.ErrLeadNotFound
	}
	delete(r.s.leads, id)
	return nil
}

type ActivityRepo struct{ s *Store }

func (r *ActivityRepo) Create(ctx context.Context, a *entity.LeadActivity) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.ActivityCreateErr != nil {
		return r.s.ActivityCreateErr
	}
	r.s.activities = append(r.s.activities, *a)
	return nil
}

func (r *ActivityRepo) ListByLead(ctx context.Context, leadID string) ([]*entity.LeadActivity, error) {
	var out []*entity.LeadActivity
	for _, a := range r.s.ActivitiesFor(leadID) {
		a := a
		out = append(out, &a)
	}
	return out, nil
}

type NotificationRepo struct{ s *Store }

func (r *NotificationRepo) Create(ctx context.Context, n *entity.Notification) error {
	return r.CreateMany(ctx, []*entity.Notification{n})
}

// CreateMany is all-or-nothing like the transactional insert.
func (r *NotificationRepo) CreateMany(ctx context.Context, ns []*entity.Notification) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.NotificationCreateErr != nil {
		return r.s.NotificationCreateErr
	}
	for _, n := range ns {
		r.s.notifications = append(r.s.notifications, *n)
	}
	return nil
}

func (r *NotificationRepo) MarkAsRead(ctx context.Context, id string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i := range r.s.notifications {
		n := &r.s.notifications[i]
		if n.ID != id {
			continue
		}
		n.IsRead = true
		if n.ReadAt == nil {
			t := at
			n.ReadAt = &t
		}
		return nil
	}
	return entity.ErrNotificationNotFound
}

func (r *NotificationRepo) MarkAllAsRead(ctx context.Context, userID string, at time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var updated int64
	for i := range r.s.notifications {
		n := &r.s.notifications[i]
		if n.UserID == userID && !n.IsRead {
			t := at
			n.IsRead = true
			n.ReadAt = &t
			updated++
		}
	}
	return updated, nil
}

func (r *NotificationRepo) Count(ctx context.Context, f entity.NotificationFilter) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.NotificationCountErr != nil {
		return 0, r.s.NotificationCountErr
	}
	count := 0
	for _, n := range r.s.notifications {
		if matches(n, f) {
			count++
		}
	}
	return count, nil
}

func (r *NotificationRepo) ListByUser(ctx context.Context, userID string, unreadOnly bool, limit int) ([]*entity.Notification, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entity.Notification
	for _, n := range r.s.notifications {
		if matches(n, entity.NotificationFilter{UserID: userID, UnreadOnly: unreadOnly}) {
			n := n
			out = append(out, &n)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *NotificationRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time, readOnly bool) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	kept := r.s.notifications[:0]
	var deleted int64
	for _, n := range r.s.notifications {
		if n.CreatedAt.Before(cutoff) && (!readOnly || n.IsRead) {
			deleted++
			continue
		}
		kept = append(kept, n)
	}
	r.s.notifications = kept
	return deleted, nil
}

func matches(n entity.Notification, f entity.NotificationFilter) bool {
	if f.UserID != "" && n.UserID != f.UserID {
		return false
	}
	if f.LeadID != "" && (n.LeadID == nil || *n.LeadID != f.LeadID) {
		return false
	}
	if f.Type != "" && n.Type != f.Type {
		return false
	}
	if f.TitleContains != "" && !strings.Contains(strings.ToLower(n.Title), strings.ToLower(f.TitleContains)) {
		return false
	}
	if !f.Since.IsZero() && n.CreatedAt.Before(f.Since) {
		return false
	}
	if f.UnreadOnly && n.IsRead {
		return false
	}
	return true
}

type UserRepo struct{ s *Store }

func (r *UserRepo) FindByID(ctx context.Context, id string) (*entity.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, entity.ErrUserNotFound
	}
	return &u, nil
}

func (r *UserRepo) FindIDsByRole(ctx context.Context, role entity.Role) ([]string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.RoleLookupErr != nil {
		return nil, r.s.RoleLookupErr
	}
	var ids []string
	for _, u := range r.s.users {
		if u.Role == role && u.Active {
			ids = append(ids, u.ID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
