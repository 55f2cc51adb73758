package dialogs

import (
	"errors"

	"supportdesk/internal/models"
)

// Action is one entry of the dialog context menu. An explicit enum with
// an exhaustive dispatch, so a new action cannot be silently unhandled.
type Action string

const (
	// Ticket resolution, with positive or negative outcome.
	ActionCloseTicketPlus  Action = "close-ticket-plus"
	ActionCloseTicketMinus Action = "close-ticket-minus"

	// Ask the client to confirm closing; arms the dialog timer.
	ActionRequestClosePlus  Action = "request-close-plus"
	ActionRequestCloseMinus Action = "request-close-minus"

	ActionTransferToOperator Action = "transfer-to-operator"
	ActionUnsubscribe        Action = "unsubscribe"
)

var ErrUnknownAction = errors.New("unknown dialog action")

// closeRequestTimer is the countdown armed when a close request is sent.
const closeRequestTimer = "24ч"

// ParseAction validates a wire value.
func ParseAction(s string) (Action, bool) {
	switch a := Action(s); a {
	case ActionCloseTicketPlus, ActionCloseTicketMinus,
		ActionRequestClosePlus, ActionRequestCloseMinus,
		ActionTransferToOperator, ActionUnsubscribe:
		return a, true
	}
	return "", false
}

// Apply executes a menu action against one dialog.
func (r *Registry) Apply(id int64, action Action) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.byID[id]
	if !ok {
		return ErrNotFound
	}

	switch action {
	case ActionCloseTicketPlus, ActionCloseTicketMinus:
		return r.closeLocked(id)
	case ActionRequestClosePlus, ActionRequestCloseMinus:
		t, ok := r.timers[id]
		if !ok {
			t = &Timer{}
			r.timers[id] = t
		}
		t.Value = closeRequestTimer
		t.Visible = true
		return nil
	case ActionTransferToOperator:
		d.Responder = models.AuthorOperator
		return nil
	case ActionUnsubscribe:
		d.Responder = models.AuthorBot
		return nil
	default:
		return ErrUnknownAction
	}
}
