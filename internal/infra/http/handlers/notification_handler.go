package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/lapublica/leadflow/internal/entity"
	"github.com/lapublica/leadflow/internal/usecase"
)

type NotificationHandler struct {
	Dispatcher *usecase.NotificationDispatcher
	Logger     *zap.Logger
}

func NewNotificationHandler(dispatcher *usecase.NotificationDispatcher, logger *zap.Logger) *NotificationHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationHandler{Dispatcher: dispatcher, Logger: logger}
}

type NotificationListResponse struct {
	Notifications []*entity.Notification `json:"notifications"`
	Count         int                    `json:"count"`
}

// List handles GET /users/{userId}/notifications?unread=true&limit=N.
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	unreadOnly, _ := strconv.ParseBool(r.URL.Query().Get("unread"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	ns, err := h.Dispatcher.ListNotifications(r.Context(), userID, unreadOnly, limit)
	if err != nil {
		writeUsecaseError(w, h.Logger, err)
		return
	}
	if ns == nil {
		ns = []*entity.Notification{}
	}
	writeJSON(w, http.StatusOK, NotificationListResponse{Notifications: ns, Count: len(ns)})
}

// UnreadCount handles GET /users/{userId}/notifications/unread-count.
func (h *NotificationHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	count, err := h.Dispatcher.CountUnread(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		writeUsecaseError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"unread": count})
}

// MarkRead handles POST /notifications/{id}/read.
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	if err := h.Dispatcher.MarkAsRead(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeUsecaseError(w, h.Logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MarkAllRead handles POST /users/{userId}/notifications/read-all.
func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	updated, err := h.Dispatcher.MarkAllAsRead(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		writeUsecaseError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"updated": updated})
}
