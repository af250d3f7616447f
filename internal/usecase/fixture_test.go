package usecase

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/lapublica/leadflow/internal/entity"
	"github.com/lapublica/leadflow/internal/testsupport"
)

const (
	testBaseURL = "https://lapublica.cat"

	gestorID   = "gestor-1"
	crm1ID     = "crm-1"
	crm2ID     = "crm-2"
	adminID    = "admin-1"
	retiredCRM = "crm-retired"
)

var fixtureStart = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

type fixture struct {
	store      *testsupport.Store
	clock      *testsupport.Clock
	lock       *testsupport.Lock
	dispatcher *NotificationDispatcher
	stage      *LeadStageUseCase
	reminders  *LeadReminderUseCase
	create     *CreateLeadUseCase
	assign     *AssignLeadUseCase
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := testsupport.NewStore()
	store.AddUser(entity.User{ID: gestorID, Name: "Marta Vidal", Email: "marta@lapublica.cat", Role: entity.RoleGestor, Active: true})
	store.AddUser(entity.User{ID: crm1ID, Name: "Pau Soler", Email: "pau@lapublica.cat", Role: entity.RoleCRM, Active: true})
	store.AddUser(entity.User{ID: crm2ID, Name: "Anna Roca", Email: "anna@lapublica.cat", Role: entity.RoleCRM, Active: true})
	store.AddUser(entity.User{ID: adminID, Name: "Joan Puig", Email: "joan@lapublica.cat", Role: entity.RoleAdmin, Active: true})
	store.AddUser(entity.User{ID: retiredCRM, Name: "Old CRM", Email: "old@lapublica.cat", Role: entity.RoleCRM, Active: false})

	clock := testsupport.NewClock(fixtureStart)
	lock := testsupport.NewLock()
	audience := NewRoleAudience(store.Users())

	dispatcher := NewNotificationDispatcher(store.Notifications(), nil, nil)
	dispatcher.Now = clock.Now

	stage := NewLeadStageUseCase(store.Leads(), store.Activities(), audience, dispatcher, nil, testBaseURL+"/")
	stage.Now = clock.Now

	reminders := NewLeadReminderUseCase(store.Leads(), dispatcher, audience, lock, nil, testBaseURL)
	reminders.Now = clock.Now

	assign := NewAssignLeadUseCase(store.Leads(), store.Activities(), store.Users(), dispatcher, nil, testBaseURL)
	assign.Now = clock.Now

	return &fixture{
		store:      store,
		clock:      clock,
		lock:       lock,
		dispatcher: dispatcher,
		stage:      stage,
		reminders:  reminders,
		create:     NewCreateLeadUseCase(store.Leads(), store.Activities(), dispatcher, nil, testBaseURL),
		assign:     assign,
	}
}

// seedLead stores a lead at status, last touched age ago.
func (f *fixture) seedLead(status entity.Stage, assignee string, age time.Duration) *entity.Lead {
	lead := &entity.Lead{
		ID:          uuid.NewString(),
		CompanyName: "Fusteria Puig",
		Status:      string(status),
		Priority:    entity.PriorityHigh,
		Source:      entity.LeadSourceManual,
		Version:     1,
		CreatedAt:   f.clock.Now().Add(-age),
		UpdatedAt:   f.clock.Now().Add(-age),
	}
	if assignee != "" {
		id := assignee
		lead.AssignedToID = &id
	}
	f.store.PutLead(lead)
	return lead
}

func (f *fixture) stored(t *testing.T, id string) *entity.Lead {
	t.Helper()
	lead, ok := f.store.Lead(id)
	if !ok {
		t.Fatalf("lead %s not stored", id)
	}
	return lead
}

func recipients(ns []entity.Notification) []string {
	out := make([]string, 0, len(ns))
	for _, n := range ns {
		out = append(out, n.UserID)
	}
	return out
}
