package view

import (
	"context"
	"sync"

	"supportdesk/internal/models"
	"supportdesk/internal/render"
	"supportdesk/internal/store"
)

// Reconciler is invoked once per rendered message-with-attachments,
// immediately after insertion, to verify attachment variants against the
// resources they point at.
type Reconciler interface {
	Reconcile(ctx context.Context, dialogID int64, msg models.Message)
}

// Feed is the visible message feed for at most one dialog at a time. It
// holds no message state of its own: every redraw reads from the store
// and rebuilds the display tree.
type Feed struct {
	store      *store.Store
	reconciler Reconciler

	mu            sync.Mutex
	visibleDialog int64
	root          *render.Node
	byMessage     map[string]*render.Node
	scrolledTo    string
}

func NewFeed(st *store.Store, rec Reconciler) *Feed {
	return &Feed{
		store:      st,
		reconciler: rec,
		root:       emptyRoot(),
		byMessage:  make(map[string]*render.Node),
	}
}

func emptyRoot() *render.Node {
	return render.El("div", map[string]string{"class": "feed", "id": "messageFeed"})
}

// RenderDialog replaces the entire visible feed with the dialog's
// messages and scrolls to the latest one. Safe to call repeatedly;
// identical store contents produce an identical tree.
func (f *Feed) RenderDialog(ctx context.Context, dialogID int64) {
	messages := f.store.List(dialogID)

	f.mu.Lock()
	f.visibleDialog = dialogID
	f.root = emptyRoot()
	f.byMessage = make(map[string]*render.Node, len(messages))
	for _, msg := range messages {
		node := render.Message(msg)
		f.root.Append(node)
		f.byMessage[msg.ID] = node
	}
	if len(messages) > 0 {
		f.scrolledTo = messages[len(messages)-1].ID
	} else {
		f.scrolledTo = ""
	}
	f.mu.Unlock()

	for _, msg := range messages {
		f.reconcileMessage(ctx, dialogID, msg)
	}
}

// AppendMessage renders exactly one message node at the bottom of the
// feed. No-op when the target dialog is not the visible one. Re-appending
// an already rendered id replaces its node in place, keeping the final
// tree identical for the same inputs.
func (f *Feed) AppendMessage(ctx context.Context, dialogID int64, msg models.Message) {
	f.mu.Lock()
	if dialogID != f.visibleDialog {
		f.mu.Unlock()
		return
	}
	node := render.Message(msg)
	if old, ok := f.byMessage[msg.ID]; ok {
		f.root.ReplaceChild(old, node)
	} else {
		f.root.Append(node)
	}
	f.byMessage[msg.ID] = node
	f.scrolledTo = msg.ID
	f.mu.Unlock()

	f.reconcileMessage(ctx, dialogID, msg)
}

func (f *Feed) reconcileMessage(ctx context.Context, dialogID int64, msg models.Message) {
	if f.reconciler == nil || len(msg.Attachments) == 0 {
		return
	}
	f.reconciler.Reconcile(ctx, dialogID, msg)
}

// VisibleDialog returns the dialog currently rendered, 0 when none.
func (f *Feed) VisibleDialog() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.visibleDialog
}

// ScrolledTo returns the id of the message the feed last scrolled to.
func (f *Feed) ScrolledTo() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.scrolledTo
}

// HTML serializes the current feed tree.
func (f *Feed) HTML() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.root.HTML()
}

// AttachmentNode locates the rendered node for an attachment of a
// visible message.
func (f *Feed) AttachmentNode(dialogID int64, messageID, attachmentID string) *render.Node {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.attachmentNodeLocked(dialogID, messageID, attachmentID)
}

func (f *Feed) attachmentNodeLocked(dialogID int64, messageID, attachmentID string) *render.Node {
	if dialogID != f.visibleDialog {
		return nil
	}
	msgNode, ok := f.byMessage[messageID]
	if !ok {
		return nil
	}
	return msgNode.Find(func(n *render.Node) bool {
		return n.Attr("data-attachment-id") == attachmentID
	})
}

// ReplaceAttachment swaps the rendered node for one attachment,
// reporting whether the target was still present. A probe that completes
// after the dialog switched away or the node was re-rendered finds
// nothing to replace.
func (f *Feed) ReplaceAttachment(dialogID int64, messageID, attachmentID string, replacement *render.Node) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	old := f.attachmentNodeLocked(dialogID, messageID, attachmentID)
	if old == nil {
		return false
	}
	msgNode := f.byMessage[messageID]
	return msgNode.ReplaceChild(old, replacement)
}

// OnStoreEvent keeps the visible feed in sync with store mutations.
// Register it with store.Subscribe; events for other dialogs fall
// through AppendMessage's visibility check.
func (f *Feed) OnStoreEvent(ev store.Event) {
	switch ev.Kind {
	case store.EventAdd:
		if msg, ok := f.store.Get(ev.DialogID, ev.MessageID); ok {
			f.AppendMessage(context.Background(), ev.DialogID, msg)
		}
	case store.EventBatch:
		if len(ev.AddedIDs) > 0 && ev.DialogID == f.VisibleDialog() {
			f.RenderDialog(context.Background(), ev.DialogID)
		}
	}
}
