package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/emerginginv/crm-notifications/internal/domain"
	"github.com/emerginginv/crm-notifications/internal/engine"
	"github.com/emerginginv/crm-notifications/internal/service"
	apperrors "github.com/emerginginv/crm-notifications/pkg/errors"
	"github.com/emerginginv/crm-notifications/pkg/httputil"
	"github.com/emerginginv/crm-notifications/pkg/pagination"
	"github.com/emerginginv/crm-notifications/pkg/validator"
)

// NotificationHandler handles HTTP requests for the notification feed.
type NotificationHandler struct {
	service *service.NotificationService
	logger  *slog.Logger
}

// NewNotificationHandler creates a new notification HTTP handler.
func NewNotificationHandler(svc *service.NotificationService, logger *slog.Logger) *NotificationHandler {
	return &NotificationHandler{
		service: svc,
		logger:  logger,
	}
}

// --- Request DTOs ---

// UpdatePreferencesRequest is the JSON request body for patching preferences.
// Absent fields leave the stored values untouched.
type UpdatePreferencesRequest struct {
	Tasks   *bool `json:"tasks"`
	Deals   *bool `json:"deals"`
	Reports *bool `json:"reports"`

	QuietHours      *bool   `json:"quiet_hours"`
	QuietHoursStart *string `json:"quiet_hours_start" validate:"omitempty,datetime=15:04"`
	QuietHoursEnd   *string `json:"quiet_hours_end" validate:"omitempty,datetime=15:04"`
	AllowCritical   *bool   `json:"allow_critical"`

	Email  *bool   `json:"email"`
	Push   *bool   `json:"push"`
	SMS    *bool   `json:"sms"`
	Digest *string `json:"digest" validate:"omitempty,oneof=off daily weekly"`

	ChannelPreferences map[string]domain.ChannelFlags `json:"channel_preferences"`
}

// --- Response DTOs ---

// feedResponse is the list payload: one page of notifications plus the
// feed-wide unread count.
type feedResponse struct {
	httputil.PaginatedResponse[domain.Notification]
	UnreadCount int `json:"unread_count"`
}

type unreadCountResponse struct {
	UnreadCount int `json:"unread_count"`
}

// --- Handlers ---

// ListNotifications handles GET /api/v1/users/{userID}/notifications
func (h *NotificationHandler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	filter := engine.Filter(r.URL.Query().Get("filter"))
	if filter == "" {
		filter = engine.FilterAll
	}
	if !engine.IsValidFilter(filter) {
		httputil.WriteError(w, r, apperrors.InvalidInput("invalid filter: "+string(filter)), h.logger)
		return
	}

	sortBy := engine.Sort(r.URL.Query().Get("sort"))
	if sortBy == "" {
		sortBy = engine.SortNewest
	}
	if !engine.IsValidSort(sortBy) {
		httputil.WriteError(w, r, apperrors.InvalidInput("invalid sort: "+string(sortBy)), h.logger)
		return
	}

	items, unread, err := h.service.ListNotifications(r.Context(), userID, filter, sortBy)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	params := pagination.FromRequest(r)
	page := paginate(items, params)

	httputil.WriteJSON(w, http.StatusOK, feedResponse{
		PaginatedResponse: httputil.NewPaginatedResponse(page, len(items), params.Page, params.PerPage),
		UnreadCount:       unread,
	})
}

// UnreadCount handles GET /api/v1/users/{userID}/notifications/unread-count
func (h *NotificationHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	unread, err := h.service.UnreadCount(r.Context(), userID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: unreadCountResponse{UnreadCount: unread}})
}

// MarkAsRead handles PUT /api/v1/users/{userID}/notifications/{id}/read
func (h *NotificationHandler) MarkAsRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	notificationID := chi.URLParam(r, "id")
	if notificationID == "" {
		httputil.WriteError(w, r, apperrors.InvalidInput("notification id is required"), h.logger)
		return
	}

	if err := h.service.MarkAsRead(r.Context(), userID, notificationID); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// MarkAllAsRead handles PUT /api/v1/users/{userID}/notifications/read-all
func (h *NotificationHandler) MarkAllAsRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	if err := h.service.MarkAllAsRead(r.Context(), userID); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// DeleteNotification handles DELETE /api/v1/users/{userID}/notifications/{id}
func (h *NotificationHandler) DeleteNotification(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	notificationID := chi.URLParam(r, "id")
	if notificationID == "" {
		httputil.WriteError(w, r, apperrors.InvalidInput("notification id is required"), h.logger)
		return
	}

	if err := h.service.DeleteNotification(r.Context(), userID, notificationID); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ClearAll handles DELETE /api/v1/users/{userID}/notifications
func (h *NotificationHandler) ClearAll(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	if err := h.service.ClearAll(r.Context(), userID); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Recompute handles POST /api/v1/users/{userID}/notifications/recompute
func (h *NotificationHandler) Recompute(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	if err := h.service.Recompute(r.Context(), userID, service.TriggerAPI); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	unread, err := h.service.UnreadCount(r.Context(), userID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: unreadCountResponse{UnreadCount: unread}})
}

// GetPreferences handles GET /api/v1/users/{userID}/preferences
func (h *NotificationHandler) GetPreferences(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	prefs, err := h.service.GetPreferences(r.Context(), userID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: prefs})
}

// UpdatePreferences handles PATCH /api/v1/users/{userID}/preferences
func (h *NotificationHandler) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB limit
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	var req UpdatePreferencesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, r, apperrors.InvalidInput("invalid request body: "+err.Error()), h.logger)
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	patch := domain.PreferencesPatch{
		Tasks:              req.Tasks,
		Deals:              req.Deals,
		Reports:            req.Reports,
		QuietHours:         req.QuietHours,
		QuietHoursStart:    req.QuietHoursStart,
		QuietHoursEnd:      req.QuietHoursEnd,
		AllowCritical:      req.AllowCritical,
		Email:              req.Email,
		Push:               req.Push,
		SMS:                req.SMS,
		Digest:             req.Digest,
		ChannelPreferences: req.ChannelPreferences,
	}

	prefs, err := h.service.UpdatePreferences(r.Context(), userID, patch)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: prefs})
}

// --- Helpers ---

func (h *NotificationHandler) userID(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := chi.URLParam(r, "userID")
	if userID == "" {
		httputil.WriteError(w, r, apperrors.InvalidInput("user id is required"), h.logger)
		return "", false
	}
	return userID, true
}

// paginate slices one page out of the in-memory feed.
func paginate(items []domain.Notification, params pagination.Params) []domain.Notification {
	if params.Offset >= len(items) {
		return []domain.Notification{}
	}
	end := params.Offset + params.PerPage
	if end > len(items) {
		end = len(items)
	}
	return items[params.Offset:end]
}
