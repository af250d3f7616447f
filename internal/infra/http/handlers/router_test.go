package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lapublica/leadflow/internal/entity"
	"github.com/lapublica/leadflow/internal/infra/http/middleware"
	"github.com/lapublica/leadflow/internal/testsupport"
	"github.com/lapublica/leadflow/internal/usecase"
)

type testServer struct {
	store   *testsupport.Store
	lock    *testsupport.Lock
	handler http.Handler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	store := testsupport.NewStore()
	store.AddUser(entity.User{ID: "gestor-1", Name: "Marta Vidal", Role: entity.RoleGestor, Active: true})
	store.AddUser(entity.User{ID: "crm-1", Name: "Pau Soler", Role: entity.RoleCRM, Active: true})
	store.AddUser(entity.User{ID: "admin-1", Name: "Joan Puig", Role: entity.RoleAdmin, Active: true})

	lock := testsupport.NewLock()
	audience := usecase.NewRoleAudience(store.Users())
	dispatcher := usecase.NewNotificationDispatcher(store.Notifications(), nil, nil)
	baseURL := "https://lapublica.cat"

	leads := NewLeadHandler(
		usecase.NewCreateLeadUseCase(store.Leads(), store.Activities(), dispatcher, nil, baseURL),
		usecase.NewAssignLeadUseCase(store.Leads(), store.Activities(), store.Users(), dispatcher, nil, baseURL),
		usecase.NewLeadStageUseCase(store.Leads(), store.Activities(), audience, dispatcher, nil, baseURL),
		store.Leads(),
		store.Activities(),
		nil,
	)
	reminders := usecase.NewLeadReminderUseCase(store.Leads(), dispatcher, audience, lock, nil, baseURL)

	return &testServer{
		store: store,
		lock:  lock,
		handler: NewRouter(RouterConfig{
			Leads:         leads,
			Notifications: NewNotificationHandler(dispatcher, nil),
			Reminders:     NewReminderHandler(reminders),
			Health:        NewHealthHandler(nil, nil, nil),
			CORSOrigins:   []string{"*"},
			WriteLimiter:  middleware.NewRateLimiter(2, time.Minute),
		}),
	}
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) seedLead(status entity.Stage, assignee string) *entity.Lead {
	id := assignee
	lead := &entity.Lead{
		ID:           uuid.NewString(),
		CompanyName:  "Forn Sant Jordi",
		Status:       string(status),
		Priority:     entity.PriorityMedium,
		AssignedToID: &id,
		Source:       entity.LeadSourceManual,
		Version:      1,
		CreatedAt:    time.Now().Add(-40 * 24 * time.Hour),
		UpdatedAt:    time.Now().Add(-40 * 24 * time.Hour),
	}
	s.store.PutLead(lead)
	return lead
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}

func TestCreateAndGetLead(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/leads", map[string]any{
		"companyName":  "Forn Sant Jordi",
		"contactEmail": "forn@santjordi.cat",
		"createdById":  "gestor-1",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decode[usecase.CreateLeadOutput](t, rec)
	assert.Equal(t, "NEW", created.Status)

	rec = s.do(t, http.MethodGet, "/leads/"+created.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	detail := decode[LeadDetailResponse](t, rec)
	assert.Equal(t, "Nou", detail.StageLabel)
	assert.Equal(t, "PROSPECTING", detail.NextStage)
	assert.Len(t, detail.Activities, 1)
}

func TestCreateLeadRejectsBadInput(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/leads", map[string]any{"companyName": ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, usecase.CodeValidation, decode[ErrorResponse](t, rec).Code)

	req := httptest.NewRequest(http.MethodPost, "/leads", bytes.NewBufferString("{"))
	rec = httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_JSON", decode[ErrorResponse](t, rec).Code)
}

func TestCreateLeadIsRateLimited(t *testing.T) {
	s := newTestServer(t)
	body := map[string]any{"companyName": "Acme", "createdById": "gestor-1"}

	for i := 0; i < 2; i++ {
		require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/leads", body).Code)
	}
	rec := s.do(t, http.MethodPost, "/leads", body)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestGetUnknownLead(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/leads/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdvanceStageEndpoint(t *testing.T) {
	s := newTestServer(t)
	lead := s.seedLead(entity.StageProposalSent, "gestor-1")

	rec := s.do(t, http.MethodPost, "/leads/"+lead.ID+"/stage", StageRequest{Status: "PENDING_CRM", ActingUserID: "gestor-1"})

	require.Equal(t, http.StatusOK, rec.Code)
	out := decode[map[string]any](t, rec)
	assert.Equal(t, true, out["success"])
	assert.Equal(t, "PENDING_CRM", out["newStatus"])
	assert.NotContains(t, out, "error")
	assert.Len(t, s.store.NotificationsFor("crm-1"), 1)
}

func TestAdvanceStageEndpointFailures(t *testing.T) {
	s := newTestServer(t)
	open := s.seedLead(entity.StageContacted, "gestor-1")
	won := s.seedLead(entity.StageWon, "gestor-1")

	tests := []struct {
		name   string
		path   string
		body   StageRequest
		status int
		code   string
	}{
		{"unknown lead", "/leads/missing/stage", StageRequest{Status: "QUALIFIED", ActingUserID: "gestor-1"}, http.StatusNotFound, usecase.CodeLeadNotFound},
		{"unknown stage", "/leads/" + open.ID + "/stage", StageRequest{Status: "SIGNED", ActingUserID: "gestor-1"}, http.StatusBadRequest, usecase.CodeInvalidStage},
		{"lost via advance", "/leads/" + open.ID + "/stage", StageRequest{Status: "LOST", ActingUserID: "gestor-1"}, http.StatusBadRequest, usecase.CodeInvalidStage},
		{"missing user", "/leads/" + open.ID + "/stage", StageRequest{Status: "QUALIFIED"}, http.StatusBadRequest, usecase.CodeValidation},
		{"closed lead", "/leads/" + won.ID + "/stage", StageRequest{Status: "QUALIFIED", ActingUserID: "gestor-1"}, http.StatusConflict, usecase.CodeTerminalStage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, tt.status, rec.Code)
			out := decode[usecase.StageChangeOutput](t, rec)
			assert.False(t, out.Success)
			assert.Equal(t, tt.code, out.ErrorCode)
			assert.NotEmpty(t, out.Error)
		})
	}
}

func TestAdvanceStageUnknownActingUser(t *testing.T) {
	s := newTestServer(t)
	lead := s.seedLead(entity.StageContacted, "gestor-1")
	s.store.ActivityCreateErr = fmt.Errorf("insert activity: %w", entity.ErrUserNotFound)

	rec := s.do(t, http.MethodPost, "/leads/"+lead.ID+"/stage", StageRequest{Status: "QUALIFIED", ActingUserID: "x"})

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, usecase.CodeUserNotFound, decode[usecase.StageChangeOutput](t, rec).ErrorCode)
	stored, ok := s.store.Lead(lead.ID)
	require.True(t, ok)
	assert.Equal(t, "CONTACTED", stored.Status)
}

func TestMarkWonAndLostEndpoints(t *testing.T) {
	s := newTestServer(t)
	winner := s.seedLead(entity.StageDocumentation, "gestor-1")
	loser := s.seedLead(entity.StageNegotiation, "gestor-1")

	rec := s.do(t, http.MethodPost, "/leads/"+winner.ID+"/won", StageRequest{ActingUserID: "admin-1"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "WON", decode[usecase.StageChangeOutput](t, rec).NewStatus)

	rec = s.do(t, http.MethodPost, "/leads/"+loser.ID+"/lost", StageRequest{ActingUserID: "gestor-1", Reason: "Pressupost"})
	require.Equal(t, http.StatusOK, rec.Code)

	stored, ok := s.store.Lead(loser.ID)
	require.True(t, ok)
	assert.Equal(t, "LOST", stored.Status)
	assert.Contains(t, stored.Notes, "Pressupost")
}

func TestAssignEndpoint(t *testing.T) {
	s := newTestServer(t)
	lead := s.seedLead(entity.StageNew, "gestor-1")

	rec := s.do(t, http.MethodPost, "/leads/"+lead.ID+"/assign", AssignRequest{AssigneeID: "crm-1", ActingUserID: "admin-1"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, s.store.NotificationsFor("crm-1"), 1)

	rec = s.do(t, http.MethodPost, "/leads/"+lead.ID+"/assign", AssignRequest{AssigneeID: "ghost", ActingUserID: "admin-1"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNotificationEndpoints(t *testing.T) {
	s := newTestServer(t)
	for i, title := range []string{"primera", "segona"} {
		s.store.PutNotification(entity.Notification{
			ID:        "n-" + title,
			UserID:    "gestor-1",
			Type:      entity.NotificationGeneral,
			Title:     title,
			CreatedAt: time.Now().Add(time.Duration(i) * time.Minute),
		})
	}

	rec := s.do(t, http.MethodGet, "/users/gestor-1/notifications?unread=true&limit=10", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[NotificationListResponse](t, rec)
	require.Equal(t, 2, list.Count)
	assert.Equal(t, "segona", list.Notifications[0].Title)

	rec = s.do(t, http.MethodPost, "/notifications/n-primera/read", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(t, http.MethodGet, "/users/gestor-1/notifications/unread-count", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]int{"unread": 1}, decode[map[string]int](t, rec))

	rec = s.do(t, http.MethodPost, "/users/gestor-1/notifications/read-all", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]int64{"updated": 1}, decode[map[string]int64](t, rec))

	rec = s.do(t, http.MethodPost, "/notifications/missing/read", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, usecase.CodeNotificationNotFound, decode[ErrorResponse](t, rec).Code)
}

func TestUnreadCountFailure(t *testing.T) {
	s := newTestServer(t)
	s.store.NotificationCountErr = errors.New("db down")

	rec := s.do(t, http.MethodGet, "/users/gestor-1/notifications/unread-count", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRunRemindersEndpoint(t *testing.T) {
	s := newTestServer(t)
	s.seedLead(entity.StageContacted, "gestor-1")

	rec := s.do(t, http.MethodPost, "/internal/reminders/run", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	out := decode[ReminderRunResponse](t, rec)
	assert.Equal(t, 1, out.Inactive.Notified)
	assert.Equal(t, 1, out.Expiring.GestorsNotified)
	assert.Equal(t, 1, out.Expiring.CRMNotified)
	assert.False(t, s.lock.Held("lead-reminders"))
}

func TestRunRemindersWhileLocked(t *testing.T) {
	s := newTestServer(t)
	release, ok, err := s.lock.TryLock(context.Background(), "lead-reminders", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	defer release(context.Background())

	rec := s.do(t, http.MethodPost, "/internal/reminders/run", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.True(t, decode[ReminderRunResponse](t, rec).LockHeld)
}

type deadlineRecorder struct {
	hasDeadline bool
}

func (d *deadlineRecorder) RunAllLeadReminders(ctx context.Context) usecase.ReminderRunResult {
	_, d.hasDeadline = ctx.Deadline()
	return usecase.ReminderRunResult{}
}

func TestRunRemindersHasNoRequestTimeout(t *testing.T) {
	runner := &deadlineRecorder{}
	router := NewRouter(RouterConfig{
		Notifications: NewNotificationHandler(nil, nil),
		Reminders:     NewReminderHandler(runner),
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/internal/reminders/run", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, runner.hasDeadline)
}

type fakePinger struct{ err error }

func (p fakePinger) PingContext(context.Context) error { return p.err }
func (p fakePinger) Ping(context.Context) error        { return p.err }

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[HealthResponse](t, rec)
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "not configured", resp.Dependencies["database"])
	assert.Equal(t, "not configured", resp.Dependencies["redis"])
}

func TestHealthDegraded(t *testing.T) {
	h := NewHealthHandler(fakePinger{}, nil, fakePinger{err: errors.New("connection refused")})

	rec := httptest.NewRecorder()
	h.Handle(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	resp := decode[HealthResponse](t, rec)
	assert.Equal(t, "degraded", resp.Status)
	assert.Equal(t, "healthy", resp.Dependencies["database"])
	assert.Contains(t, resp.Dependencies["redis"], "connection refused")
}
