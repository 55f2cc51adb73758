package api

import (
	"net/http"

	"supportdesk/internal/dialogs"
	"supportdesk/internal/view"
)

type FeedHandler struct {
	registry *dialogs.Registry
	feed     *view.Feed
}

func NewFeedHandler(registry *dialogs.Registry, feed *view.Feed) *FeedHandler {
	return &FeedHandler{registry: registry, feed: feed}
}

// GET /api/v1/dialogs/{dialogID}/feed
//
// Returns the rendered message feed as an HTML fragment. Requesting a
// dialog other than the currently rendered one re-renders the feed for
// it, same as selecting it.
func (h *FeedHandler) Get(w http.ResponseWriter, r *http.Request) {
	dialogID, ok := parseDialogID(w, r)
	if !ok {
		return
	}
	if _, ok := h.registry.Get(dialogID); !ok {
		notFound(w, "Dialog not found")
		return
	}

	if h.feed.VisibleDialog() != dialogID {
		h.feed.RenderDialog(r.Context(), dialogID)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(h.feed.HTML()))
}
