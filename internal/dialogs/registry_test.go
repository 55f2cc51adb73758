package dialogs

import (
	"fmt"
	"testing"

	"supportdesk/internal/models"
)

func fill(r *Registry, n int) {
	for i := 1; i <= n; i++ {
		r.Add(models.Dialog{
			ID:        int64(i),
			Name:      fmt.Sprintf("user_%d", i),
			Time:      "10:15",
			Platform:  "Android 13",
			Responder: models.AuthorBot,
		})
	}
}

func TestPageClampsAndSlices(t *testing.T) {
	r := NewRegistry(10)
	fill(r, 25)

	tests := []struct {
		name      string
		page      int
		wantLen   int
		wantPage  int
		wantFirst int64
	}{
		{name: "first", page: 1, wantLen: 10, wantPage: 1, wantFirst: 1},
		{name: "middle", page: 2, wantLen: 10, wantPage: 2, wantFirst: 11},
		{name: "last_partial", page: 3, wantLen: 5, wantPage: 3, wantFirst: 21},
		{name: "beyond_end_clamps", page: 99, wantLen: 5, wantPage: 3, wantFirst: 21},
		{name: "below_start_clamps", page: 0, wantLen: 10, wantPage: 1, wantFirst: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, info := r.Page(tt.page)
			if len(items) != tt.wantLen {
				t.Fatalf("Page(%d) returned %d items, want %d", tt.page, len(items), tt.wantLen)
			}
			if info.Page != tt.wantPage || info.TotalPages != 3 || info.Total != 25 {
				t.Fatalf("PageInfo = %+v, want page %d of 3, total 25", info, tt.wantPage)
			}
			if items[0].ID != tt.wantFirst {
				t.Fatalf("first item id = %d, want %d", items[0].ID, tt.wantFirst)
			}
		})
	}
}

func TestPageOfEmptyRegistry(t *testing.T) {
	r := NewRegistry(10)
	items, info := r.Page(1)
	if len(items) != 0 || info.TotalPages != 1 || info.Total != 0 {
		t.Fatalf("empty registry page = %v %+v, want no items, one page", items, info)
	}
}

func TestSelect(t *testing.T) {
	r := NewRegistry(10)
	fill(r, 3)

	if !r.Select(2) {
		t.Fatalf("Select(2) = false, want true")
	}
	if r.Selected() != 2 {
		t.Fatalf("Selected() = %d, want 2", r.Selected())
	}
	if r.Select(99) {
		t.Fatalf("Select(99) = true for unknown dialog")
	}
	if r.Selected() != 2 {
		t.Fatalf("failed select changed selection to %d", r.Selected())
	}
}

func TestTimerLifecycle(t *testing.T) {
	r := NewRegistry(10)
	fill(r, 1)

	if r.SetTimer(99, "01ч", "", true) {
		t.Fatalf("SetTimer on unknown dialog = true")
	}

	if !r.SetTimer(1, "02ч", "PT2H", true) {
		t.Fatalf("SetTimer() = false, want true")
	}
	timer, ok := r.Timer(1)
	if !ok || timer.Value != "02ч" || timer.Datetime != "PT2H" || !timer.Visible {
		t.Fatalf("Timer(1) = %+v, want visible 02ч/PT2H", timer)
	}

	if !r.HideTimer(1) {
		t.Fatalf("HideTimer() = false")
	}
	timer, _ = r.Timer(1)
	if timer.Visible {
		t.Fatalf("timer still visible after HideTimer")
	}

	if !r.ShowTimer(1) {
		t.Fatalf("ShowTimer() = false")
	}
	timer, _ = r.Timer(1)
	if !timer.Visible {
		t.Fatalf("timer hidden after ShowTimer")
	}
}

func TestParseAction(t *testing.T) {
	for _, valid := range []string{
		"close-ticket-plus", "close-ticket-minus",
		"request-close-plus", "request-close-minus",
		"transfer-to-operator", "unsubscribe",
	} {
		if _, ok := ParseAction(valid); !ok {
			t.Fatalf("ParseAction(%q) rejected a valid action", valid)
		}
	}
	if _, ok := ParseAction("delete-everything"); ok {
		t.Fatalf("ParseAction accepted an unknown action")
	}
}

func TestApplyCloseRemovesFromActiveAndClearsSelection(t *testing.T) {
	r := NewRegistry(10)
	fill(r, 3)
	r.Select(2)
	r.SetTimer(2, "01ч", "", true)

	if err := r.Apply(2, ActionCloseTicketPlus); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	for _, d := range r.Active() {
		if d.ID == 2 {
			t.Fatalf("closed dialog still listed as active")
		}
	}
	if r.Selected() != 0 {
		t.Fatalf("Selected() = %d after closing the selected dialog, want 0", r.Selected())
	}
	if _, ok := r.Timer(2); ok {
		t.Fatalf("timer survived dialog close")
	}
	if r.Select(2) {
		t.Fatalf("closed dialog can be re-selected")
	}
}

func TestApplyRequestCloseArmsTimer(t *testing.T) {
	r := NewRegistry(10)
	fill(r, 1)

	if err := r.Apply(1, ActionRequestCloseMinus); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	timer, ok := r.Timer(1)
	if !ok || !timer.Visible || timer.Value != "24ч" {
		t.Fatalf("Timer(1) = %+v, want visible 24ч", timer)
	}
}

func TestApplyTransferAndUnsubscribeFlipResponder(t *testing.T) {
	r := NewRegistry(10)
	fill(r, 1)

	if err := r.Apply(1, ActionTransferToOperator); err != nil {
		t.Fatalf("Apply(transfer) error = %v", err)
	}
	d, _ := r.Get(1)
	if d.Responder != models.AuthorOperator {
		t.Fatalf("responder = %q, want operator", d.Responder)
	}

	if err := r.Apply(1, ActionUnsubscribe); err != nil {
		t.Fatalf("Apply(unsubscribe) error = %v", err)
	}
	d, _ = r.Get(1)
	if d.Responder != models.AuthorBot {
		t.Fatalf("responder = %q, want bot", d.Responder)
	}
}

func TestApplyUnknownTargets(t *testing.T) {
	r := NewRegistry(10)
	fill(r, 1)

	if err := r.Apply(42, ActionCloseTicketPlus); err != ErrNotFound {
		t.Fatalf("Apply on unknown dialog error = %v, want ErrNotFound", err)
	}
	if err := r.Apply(1, Action("bogus")); err != ErrUnknownAction {
		t.Fatalf("Apply with bogus action error = %v, want ErrUnknownAction", err)
	}
}

func TestPageSizedOverride(t *testing.T) {
	r := NewRegistry(10)
	fill(r, 25)

	items, info := r.PageSized(2, 5)
	if len(items) != 5 || info.TotalPages != 5 || items[0].ID != 6 {
		t.Fatalf("PageSized(2, 5) = %d items, info %+v, first %d", len(items), info, items[0].ID)
	}

	items, info = r.PageSized(1, 0)
	if len(items) != 10 || info.TotalPages != 3 {
		t.Fatalf("PageSized with zero size should use the default: %d items, %+v", len(items), info)
	}
}
