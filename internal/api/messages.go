package api

import (
	"html"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/microcosm-cc/bluemonday"

	"supportdesk/internal/dialogs"
	"supportdesk/internal/models"
	"supportdesk/internal/reconcile"
	"supportdesk/internal/store"
)

// markupPolicy strips any markup from authored text before storage.
// Escaping is a rendering concern; stored text stays plain.
var markupPolicy = bluemonday.StrictPolicy()

func stripMarkup(s string) string {
	return html.UnescapeString(markupPolicy.Sanitize(s))
}

type MessageHandler struct {
	messages   *store.Store
	registry   *dialogs.Registry
	reconciler *reconcile.Reconciler
}

func NewMessageHandler(messages *store.Store, registry *dialogs.Registry, reconciler *reconcile.Reconciler) *MessageHandler {
	return &MessageHandler{
		messages:   messages,
		registry:   registry,
		reconciler: reconciler,
	}
}

type messageListResponse struct {
	Messages []models.Message `json:"messages"`
	Meta     *bucketMetaJSON  `json:"meta,omitempty"`
}

type bucketMetaJSON struct {
	LowestSeq       *int64 `json:"lowest_seq,omitempty"`
	HighestSeq      *int64 `json:"highest_seq,omitempty"`
	HasMoreBackward bool   `json:"has_more_backward"`
	HasMoreForward  bool   `json:"has_more_forward"`
}

// GET /api/v1/dialogs/{dialogID}/messages
func (h *MessageHandler) List(w http.ResponseWriter, r *http.Request) {
	dialogID, ok := parseDialogID(w, r)
	if !ok {
		return
	}
	if _, ok := h.registry.Get(dialogID); !ok {
		notFound(w, "Dialog not found")
		return
	}

	resp := messageListResponse{Messages: h.messages.List(dialogID)}
	if meta, ok := h.messages.Meta(dialogID); ok {
		resp.Meta = &bucketMetaJSON{
			LowestSeq:       meta.LowestSeq,
			HighestSeq:      meta.HighestSeq,
			HasMoreBackward: meta.HasMoreBackward,
			HasMoreForward:  meta.HasMoreForward,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

type sendRequest struct {
	Author      string              `json:"author" validate:"omitempty,oneof=bot operator system"`
	Text        string              `json:"text" validate:"required,max=4000"`
	Attachments []models.Attachment `json:"attachments" validate:"omitempty,dive"`
}

// POST /api/v1/dialogs/{dialogID}/messages
func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	dialogID, ok := parseDialogID(w, r)
	if !ok {
		return
	}
	if _, ok := h.registry.Get(dialogID); !ok {
		notFound(w, "Dialog not found")
		return
	}

	var req sendRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	text := stripMarkup(strings.TrimSpace(req.Text))
	if text == "" {
		badRequest(w, "text is required")
		return
	}

	author := models.Author(req.Author)
	if req.Author == "" {
		author = models.AuthorOperator
	}

	msg := h.messages.AddLocal(dialogID, store.LocalDraft{
		Author:      author,
		Text:        text,
		Attachments: req.Attachments,
	})

	writeJSON(w, http.StatusCreated, msg)
}

type ingestRequest struct {
	Messages []models.Message `json:"messages" validate:"required"`
	Position string           `json:"position" validate:"omitempty,oneof=append prepend"`
	Replace  bool             `json:"replace"`
}

// POST /api/v1/dialogs/{dialogID}/messages/ingest
//
// The payload comes from the upstream desk backend, which may run a
// newer schema, so unknown fields pass through instead of failing.
func (h *MessageHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	dialogID, ok := parseDialogID(w, r)
	if !ok {
		return
	}
	if _, ok := h.registry.Get(dialogID); !ok {
		notFound(w, "Dialog not found")
		return
	}

	var req ingestRequest
	if err := decodeLenient(r.Body, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	added := h.messages.IngestBatch(dialogID, req.Messages, store.IngestOptions{
		Position: store.Position(req.Position),
		Replace:  req.Replace,
	})
	if added == nil {
		added = []string{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"added": added})
}

type statusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending sent delivered read failed"`
}

// PATCH /api/v1/dialogs/{dialogID}/messages/{messageID}/status
func (h *MessageHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	dialogID, ok := parseDialogID(w, r)
	if !ok {
		return
	}

	messageID := chi.URLParam(r, "messageID")
	if messageID == "" {
		badRequest(w, "Message ID is required")
		return
	}

	var req statusRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	if _, ok := h.messages.Get(dialogID, messageID); !ok {
		notFound(w, "Message not found")
		return
	}

	h.messages.UpdateStatus(dialogID, messageID, models.Status(req.Status))
	w.WriteHeader(http.StatusNoContent)
}
