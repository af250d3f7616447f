package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/lapublica/leadflow/internal/entity"
)

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) CreateNotification(ctx context.Context, userID string, payload NotificationPayload) (*entity.Notification, error) {
	args := m.Called(ctx, userID, payload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Notification), args.Error(1)
}

func (m *MockNotifier) CreateBulkNotifications(ctx context.Context, userIDs []string, payload NotificationPayload) ([]*entity.Notification, error) {
	args := m.Called(ctx, userIDs, payload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.Notification), args.Error(1)
}

func (m *MockNotifier) HasRecentNotification(ctx context.Context, filter entity.NotificationFilter) (bool, error) {
	args := m.Called(ctx, filter)
	return args.Bool(0), args.Error(1)
}

const day24 = 24 * time.Hour

func TestCheckInactiveLeads(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	stale := f.seedLead(entity.StageContacted, gestorID, 8*day24)
	legacy := f.seedLead("ACTIVE", gestorID, 10*day24)
	f.seedLead(entity.StageContacted, gestorID, 6*day24)   // too recent
	f.seedLead(entity.StageContacted, "", 20*day24)        // unassigned
	f.seedLead(entity.StageNegotiation, gestorID, 9*day24) // not watched

	result := f.reminders.CheckInactiveLeads(ctx)

	assert.Equal(t, InactiveScanResult{Checked: 2, Notified: 2}, result)

	ns := f.store.NotificationsFor(gestorID)
	require.Len(t, ns, 2)
	byLead := map[string]entity.Notification{}
	for _, n := range ns {
		byLead[*n.LeadID] = n
	}
	assert.Contains(t, byLead, legacy.ID)

	n := byLead[stale.ID]
	assert.Equal(t, entity.NotificationGeneral, n.Type)
	assert.Equal(t, "Lead inactiu: Fusteria Puig", n.Title)
	assert.Equal(t, 8, n.Metadata["daysInactive"])
	assert.Equal(t, "https://lapublica.cat/gestor/leads/"+stale.ID, n.Link)
}

func TestCheckInactiveLeadsDedupWindow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedLead(entity.StageQualified, gestorID, 8*day24)

	first := f.reminders.CheckInactiveLeads(ctx)
	assert.Equal(t, 1, first.Notified)

	second := f.reminders.CheckInactiveLeads(ctx)
	assert.Equal(t, 0, second.Notified)
	assert.Equal(t, 1, second.Skipped)
	assert.Len(t, f.store.AllNotifications(), 1)

	f.clock.Advance(25 * time.Hour)
	third := f.reminders.CheckInactiveLeads(ctx)
	assert.Equal(t, 1, third.Notified)
	assert.Len(t, f.store.AllNotifications(), 2)
}

func TestCheckInactiveLeadsFailOpen(t *testing.T) {
	notifier := new(MockNotifier)
	leadRepo := new(MockLeadRepository)
	uc := NewLeadReminderUseCase(leadRepo, notifier, nil, nil, nil, testBaseURL)
	uc.Now = func() time.Time { return fixtureStart }

	a, b := "gestor-a", "gestor-b"
	leads := []*entity.Lead{
		{ID: "lead-a", CompanyName: "A", Status: "CONTACTED", AssignedToID: &a, UpdatedAt: fixtureStart.Add(-8 * day24)},
		{ID: "lead-b", CompanyName: "B", Status: "CONTACTED", AssignedToID: &b, UpdatedAt: fixtureStart.Add(-9 * day24)},
	}
	leadRepo.On("ListStale", mock.Anything, mock.Anything).Return(leads, nil)
	notifier.On("HasRecentNotification", mock.Anything, mock.Anything).Return(false, nil)
	notifier.On("CreateNotification", mock.Anything, "gestor-a", mock.Anything).Return(nil, errors.New("insert failed"))
	notifier.On("CreateNotification", mock.Anything, "gestor-b", mock.Anything).Return(&entity.Notification{}, nil)

	result := uc.CheckInactiveLeads(context.Background())

	assert.Equal(t, InactiveScanResult{Checked: 2, Notified: 1, Errors: 1}, result)
	notifier.AssertNumberOfCalls(t, "CreateNotification", 2)
}

func TestCheckInactiveLeadsDedupFailureSkipsLead(t *testing.T) {
	f := newFixture(t)
	f.seedLead(entity.StageContacted, gestorID, 8*day24)
	f.store.NotificationCountErr = errors.New("timeout")

	result := f.reminders.CheckInactiveLeads(context.Background())

	assert.Equal(t, InactiveScanResult{Checked: 1, Errors: 1}, result)
	assert.Empty(t, f.store.AllNotifications())
}

func TestCheckInactiveLeadsQueryFailure(t *testing.T) {
	f := newFixture(t)
	f.store.ListStaleErr = errors.New("db gone")

	result := f.reminders.CheckInactiveLeads(context.Background())
	assert.Equal(t, InactiveScanResult{Errors: 1}, result)
}

func TestCheckExpiringLeads(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	lead := f.seedLead(entity.StageNegotiation, gestorID, 31*day24)
	f.seedLead(entity.StageWon, gestorID, 60*day24)
	f.seedLead(entity.StageLost, gestorID, 60*day24)
	// stays under 30 days through both clock advances below
	f.seedLead(entity.StageNegotiation, gestorID, 15*day24)

	result := f.reminders.CheckExpiringLeads(ctx)

	assert.Equal(t, ExpiringScanResult{Checked: 1, GestorsNotified: 1, CRMNotified: 2}, result)

	ns := f.store.AllNotifications()
	require.Len(t, ns, 3)
	for _, n := range ns {
		assert.True(t, strings.Contains(n.Title, "expirar"), n.Title)
		assert.Equal(t, entity.NotificationGeneral, n.Type)
		assert.Equal(t, lead.ID, *n.LeadID)
		switch n.UserID {
		case gestorID:
			assert.Equal(t, true, n.Metadata["primary"])
			assert.Equal(t, "https://lapublica.cat/gestor/leads/"+lead.ID, n.Link)
		case crm1ID, crm2ID:
			assert.Equal(t, false, n.Metadata["primary"])
			assert.Equal(t, gestorID, n.Metadata["assignedToId"])
			assert.Equal(t, "https://lapublica.cat/crm/leads/"+lead.ID, n.Link)
		default:
			t.Fatalf("unexpected recipient %s", n.UserID)
		}
	}

	// within 7 days nothing is repeated
	f.clock.Advance(3 * day24)
	again := f.reminders.CheckExpiringLeads(ctx)
	assert.Equal(t, ExpiringScanResult{Checked: 1, Skipped: 1}, again)
	assert.Len(t, notificationsForLead(f.store.AllNotifications(), lead.ID), 3)

	f.clock.Advance(5 * day24)
	later := f.reminders.CheckExpiringLeads(ctx)
	assert.Equal(t, ExpiringScanResult{Checked: 1, GestorsNotified: 1, CRMNotified: 2}, later)
	assert.Len(t, notificationsForLead(f.store.AllNotifications(), lead.ID), 6)
}

func notificationsForLead(ns []entity.Notification, leadID string) []entity.Notification {
	var out []entity.Notification
	for _, n := range ns {
		if n.LeadID != nil && *n.LeadID == leadID {
			out = append(out, n)
		}
	}
	return out
}

func TestCheckExpiringLeadsSkipsAssigneeInCRMCopies(t *testing.T) {
	f := newFixture(t)
	f.seedLead(entity.StagePendingCRM, crm1ID, 35*day24)

	result := f.reminders.CheckExpiringLeads(context.Background())

	assert.Equal(t, 1, result.GestorsNotified)
	assert.Equal(t, 1, result.CRMNotified)
	assert.Len(t, f.store.NotificationsFor(crm1ID), 1)
	assert.Len(t, f.store.NotificationsFor(crm2ID), 1)
}

func TestCheckExpiringLeadsAudienceFailureStillWarnsGestor(t *testing.T) {
	f := newFixture(t)
	f.seedLead(entity.StageNegotiation, gestorID, 31*day24)
	f.store.RoleLookupErr = errors.New("users unavailable")

	result := f.reminders.CheckExpiringLeads(context.Background())

	assert.Equal(t, 1, result.GestorsNotified)
	assert.Equal(t, 0, result.CRMNotified)
	assert.Equal(t, 1, result.Errors)
}

func TestRunAllLeadReminders(t *testing.T) {
	f := newFixture(t)
	f.seedLead(entity.StageContacted, gestorID, 40*day24)

	result := f.reminders.RunAllLeadReminders(context.Background())

	assert.False(t, result.LockHeld)
	assert.Equal(t, 1, result.Inactive.Notified)
	assert.Equal(t, 1, result.Expiring.GestorsNotified)
	assert.Equal(t, 2, result.Expiring.CRMNotified)
	assert.GreaterOrEqual(t, result.Duration, time.Duration(0))
	assert.False(t, f.lock.Held(reminderLockKey), "lock must be released")
}

func TestRunAllLeadRemindersSkipsWhenLocked(t *testing.T) {
	f := newFixture(t)
	f.seedLead(entity.StageContacted, gestorID, 40*day24)

	release, ok, err := f.lock.TryLock(context.Background(), reminderLockKey, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	defer release(context.Background())

	result := f.reminders.RunAllLeadReminders(context.Background())

	assert.True(t, result.LockHeld)
	assert.Empty(t, f.store.AllNotifications())
}

func TestRunAllLeadRemindersRunsWhenLockUnavailable(t *testing.T) {
	f := newFixture(t)
	f.seedLead(entity.StageContacted, gestorID, 8*day24)
	f.lock.Err = errors.New("redis unreachable")

	result := f.reminders.RunAllLeadReminders(context.Background())

	assert.False(t, result.LockHeld)
	assert.Equal(t, 1, result.Inactive.Notified)
}
