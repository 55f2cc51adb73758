package dialogs

import (
	"errors"
	"sync"

	"supportdesk/internal/models"
)

const DefaultPageSize = 10

var ErrNotFound = errors.New("dialog not found")

// Timer is the per-dialog countdown shown next to the last-activity
// time, armed when closing has been requested.
type Timer struct {
	Value    string `json:"value"`
	Datetime string `json:"datetime,omitempty"`
	Visible  bool   `json:"visible"`
}

// PageInfo describes one page of the active-dialog list.
type PageInfo struct {
	Page       int `json:"page"`
	TotalPages int `json:"total_pages"`
	Total      int `json:"total"`
}

// Registry holds the active dialogs, the current selection, and timer
// state. Closed dialogs drop out of the list but stay addressable so a
// late timer update is a clean no-op.
type Registry struct {
	mu       sync.RWMutex
	byID     map[int64]*models.Dialog
	order    []int64
	timers   map[int64]*Timer
	selected int64
	pageSize int
}

func NewRegistry(pageSize int) *Registry {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Registry{
		byID:     make(map[int64]*models.Dialog),
		timers:   make(map[int64]*Timer),
		pageSize: pageSize,
	}
}

// Add registers a dialog; an existing id is overwritten in place.
func (r *Registry) Add(d models.Dialog) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[d.ID]; !ok {
		r.order = append(r.order, d.ID)
	}
	stored := d
	r.byID[d.ID] = &stored
}

// Get returns a dialog by id, including closed ones.
func (r *Registry) Get(id int64) (models.Dialog, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.byID[id]
	if !ok {
		return models.Dialog{}, false
	}
	return *d, true
}

// Active returns the open dialogs in registration order.
func (r *Registry) Active() []models.Dialog {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.activeLocked()
}

func (r *Registry) activeLocked() []models.Dialog {
	out := make([]models.Dialog, 0, len(r.order))
	for _, id := range r.order {
		if d, ok := r.byID[id]; ok && !d.Closed {
			out = append(out, *d)
		}
	}
	return out
}

// Page slices the active list with the registry's default page size.
func (r *Registry) Page(page int) ([]models.Dialog, PageInfo) {
	return r.PageSized(page, 0)
}

// PageSized slices the active list. A non-positive size falls back to
// the registry default; an out-of-range page is clamped to the last one,
// mirroring how the list behaves when the final page empties.
func (r *Registry) PageSized(page, size int) ([]models.Dialog, PageInfo) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if size <= 0 {
		size = r.pageSize
	}

	active := r.activeLocked()
	totalPages := (len(active) + size - 1) / size
	if totalPages < 1 {
		totalPages = 1
	}
	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}

	start := (page - 1) * size
	end := start + size
	if start > len(active) {
		start = len(active)
	}
	if end > len(active) {
		end = len(active)
	}

	items := make([]models.Dialog, end-start)
	copy(items, active[start:end])
	return items, PageInfo{Page: page, TotalPages: totalPages, Total: len(active)}
}

// Select marks a dialog as the current one. Reports false for unknown or
// closed dialogs, leaving the previous selection intact.
func (r *Registry) Select(id int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.byID[id]
	if !ok || d.Closed {
		return false
	}
	r.selected = id
	return true
}

// Selected returns the current selection, 0 when none.
func (r *Registry) Selected() int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.selected
}

// SetTimer updates a dialog's timer value and optionally reveals it.
func (r *Registry) SetTimer(id int64, value, datetime string, show bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[id]; !ok {
		return false
	}
	t, ok := r.timers[id]
	if !ok {
		t = &Timer{}
		r.timers[id] = t
	}
	t.Value = value
	if datetime != "" {
		t.Datetime = datetime
	}
	if show {
		t.Visible = true
	}
	return true
}

func (r *Registry) ShowTimer(id int64) bool {
	return r.setTimerVisible(id, true)
}

func (r *Registry) HideTimer(id int64) bool {
	return r.setTimerVisible(id, false)
}

func (r *Registry) setTimerVisible(id int64, visible bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[id]; !ok {
		return false
	}
	t, ok := r.timers[id]
	if !ok {
		t = &Timer{}
		r.timers[id] = t
	}
	t.Visible = visible
	return true
}

// Timer returns a dialog's timer state.
func (r *Registry) Timer(id int64) (Timer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.timers[id]
	if !ok {
		return Timer{}, false
	}
	return *t, true
}

func (r *Registry) closeLocked(id int64) error {
	d, ok := r.byID[id]
	if !ok {
		return ErrNotFound
	}
	d.Closed = true
	delete(r.timers, id)
	if r.selected == id {
		r.selected = 0
	}
	return nil
}
