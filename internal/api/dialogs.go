package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"supportdesk/internal/dialogs"
	"supportdesk/internal/models"
	"supportdesk/internal/view"
)

type DialogHandler struct {
	registry *dialogs.Registry
	feed     *view.Feed
}

func NewDialogHandler(registry *dialogs.Registry, feed *view.Feed) *DialogHandler {
	return &DialogHandler{registry: registry, feed: feed}
}

type dialogListResponse struct {
	Dialogs    []dialogItem     `json:"dialogs"`
	Pagination dialogs.PageInfo `json:"pagination"`
}

type dialogItem struct {
	ID        int64          `json:"id"`
	Name      string         `json:"name"`
	Time      string         `json:"time"`
	Platform  string         `json:"platform"`
	Responder models.Author  `json:"responder"`
	Timer     *dialogs.Timer `json:"timer,omitempty"`
	Selected  bool           `json:"selected"`
}

const maxDialogPageSize = 100

// GET /api/v1/dialogs?page=N&size=M
func (h *DialogHandler) List(w http.ResponseWriter, r *http.Request) {
	page := 1
	if raw := strings.TrimSpace(r.URL.Query().Get("page")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			badRequest(w, "Query parameter 'page' must be a positive integer")
			return
		}
		page = parsed
	}

	size := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("size")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > maxDialogPageSize {
			badRequest(w, "Query parameter 'size' must be between 1 and 100")
			return
		}
		size = parsed
	}

	items, info := h.registry.PageSized(page, size)
	selected := h.registry.Selected()

	out := make([]dialogItem, 0, len(items))
	for _, d := range items {
		item := dialogItem{
			ID:        d.ID,
			Name:      d.Name,
			Time:      d.Time,
			Platform:  d.Platform,
			Responder: d.Responder,
			Selected:  d.ID == selected,
		}
		if timer, ok := h.registry.Timer(d.ID); ok {
			item.Timer = &timer
		}
		out = append(out, item)
	}

	writeJSON(w, http.StatusOK, dialogListResponse{Dialogs: out, Pagination: info})
}

// POST /api/v1/dialogs/{dialogID}/select
func (h *DialogHandler) Select(w http.ResponseWriter, r *http.Request) {
	dialogID, ok := parseDialogID(w, r)
	if !ok {
		return
	}

	if !h.registry.Select(dialogID) {
		notFound(w, "Dialog not found")
		return
	}

	h.feed.RenderDialog(r.Context(), dialogID)
	writeJSON(w, http.StatusOK, map[string]any{"selected": dialogID})
}

type actionRequest struct {
	Action string `json:"action" validate:"required"`
}

// POST /api/v1/dialogs/{dialogID}/actions
func (h *DialogHandler) Action(w http.ResponseWriter, r *http.Request) {
	dialogID, ok := parseDialogID(w, r)
	if !ok {
		return
	}

	var req actionRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	action, ok := dialogs.ParseAction(req.Action)
	if !ok {
		badRequest(w, "Unknown action")
		return
	}

	if err := h.registry.Apply(dialogID, action); err != nil {
		notFound(w, "Dialog not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"applied": string(action)})
}

func parseDialogID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "dialogID")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		badRequest(w, "Dialog ID must be a positive integer")
		return 0, false
	}
	return id, true
}
