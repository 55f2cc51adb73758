package store

import (
	"encoding/json"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"supportdesk/internal/models"
)

// DraftIDPrefix marks locally authored messages that have no server id
// yet. Server ids never carry this prefix, so drafts cannot collide with
// ingested messages.
const DraftIDPrefix = "temp:"

// Position selects which edge of a bucket a batch is merged into.
type Position string

const (
	PositionAppend  Position = "append"
	PositionPrepend Position = "prepend"
)

// IngestOptions controls batch merging. Replace discards the bucket's
// contents first and is used for full reloads.
type IngestOptions struct {
	Position Position
	Replace  bool
}

// EventKind tags store notifications.
type EventKind string

const (
	EventBatch            EventKind = "batch"
	EventAdd              EventKind = "add"
	EventStatus           EventKind = "status"
	EventAttachmentUpdate EventKind = "attachment-update"
)

// Event describes one store mutation, delivered synchronously to
// subscribers during the mutating call.
type Event struct {
	Kind         EventKind
	DialogID     int64
	MessageID    string
	AttachmentID string
	Local        bool
	AddedIDs     []string
}

// Listener receives store events. Panics are isolated per listener and
// reported through the store's error hook.
type Listener func(Event)

// LocalDraft is the composer-side input to AddLocal.
type LocalDraft struct {
	Author      models.Author
	Text        string
	Attachments []models.Attachment
	CreatedAt   time.Time
	Status      models.Status
}

// BucketMeta exposes a bucket's pagination bookkeeping.
type BucketMeta struct {
	LowestSeq       *int64
	HighestSeq      *int64
	HasMoreBackward bool
	HasMoreForward  bool
}

type bucket struct {
	byID  map[string]*models.Message
	order []string
	meta  BucketMeta
}

func newBucket() *bucket {
	return &bucket{
		byID: make(map[string]*models.Message),
		meta: BucketMeta{HasMoreBackward: true},
	}
}

type subscription struct {
	id       int64
	listener Listener
}

// Store owns all per-dialog message buckets and is their sole writer.
// Buckets are created lazily on first reference and live for the process
// lifetime; there is no delete operation.
type Store struct {
	mu          sync.RWMutex
	buckets     map[int64]*bucket
	subs        []subscription
	nextSub     int64
	onListenErr func(dialogID int64, recovered any)
}

// Option configures a Store.
type Option func(*Store)

// WithListenerErrorHook replaces the default slog-based reporting of
// listener panics.
func WithListenerErrorHook(hook func(dialogID int64, recovered any)) Option {
	return func(s *Store) {
		s.onListenErr = hook
	}
}

func New(opts ...Option) *Store {
	s := &Store{
		buckets: make(map[int64]*bucket),
		onListenErr: func(dialogID int64, recovered any) {
			slog.Error("store listener panicked", "component", "store", "dialog_id", dialogID, "panic", recovered)
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IsDraftID reports whether id was minted by AddLocal.
func IsDraftID(id string) bool {
	return len(id) > len(DraftIDPrefix) && id[:len(DraftIDPrefix)] == DraftIDPrefix
}

// IngestBatch merges a batch of messages into a dialog's bucket. New ids
// are inserted at the requested edge; existing ids are shallow-merged
// field by field, second write winning per field. Messages without an id
// are skipped. Returns the ids that were newly added.
func (s *Store) IngestBatch(dialogID int64, messages []models.Message, opts IngestOptions) []string {
	if opts.Position == "" {
		opts.Position = PositionAppend
	}

	s.mu.Lock()
	b := s.bucketLocked(dialogID)
	if opts.Replace {
		b.byID = make(map[string]*models.Message)
		b.order = nil
		b.meta = BucketMeta{HasMoreBackward: true}
	}

	var added []string
	for i := range messages {
		incoming := messages[i]
		if incoming.ID == "" {
			slog.Debug("skipping message without id", "component", "store", "dialog_id", dialogID)
			continue
		}
		incoming.DialogID = dialogID
		if incoming.Status == "" {
			incoming.Status = models.StatusSent
		}

		if existing, ok := b.byID[incoming.ID]; ok {
			mergeMessage(existing, &incoming)
			continue
		}

		stored := incoming
		b.byID[stored.ID] = &stored
		if opts.Position == PositionPrepend {
			b.order = append([]string{stored.ID}, b.order...)
		} else {
			b.order = append(b.order, stored.ID)
		}
		added = append(added, stored.ID)
	}

	if len(added) > 0 {
		sortBucket(b)
	}
	updateSeqBounds(b)
	s.mu.Unlock()

	s.notify(Event{Kind: EventBatch, DialogID: dialogID, AddedIDs: added})
	return added
}

// AddLocal synthesizes a message with a fresh draft id and appends it to
// the bucket without re-sorting: local additions are assumed newest.
func (s *Store) AddLocal(dialogID int64, draft LocalDraft) models.Message {
	msg := models.Message{
		ID:          DraftIDPrefix + uuid.NewString(),
		DialogID:    dialogID,
		Author:      draft.Author,
		Text:        draft.Text,
		Attachments: draft.Attachments,
		CreatedAt:   draft.CreatedAt,
		Status:      draft.Status,
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	if msg.Status == "" {
		msg.Status = models.StatusPending
	}

	s.mu.Lock()
	b := s.bucketLocked(dialogID)
	stored := msg
	b.byID[stored.ID] = &stored
	b.order = append(b.order, stored.ID)
	s.mu.Unlock()

	s.notify(Event{Kind: EventAdd, DialogID: dialogID, MessageID: msg.ID, Local: true})
	return msg
}

// UpdateStatus sets the status of an existing message in place. Unknown
// ids are silently ignored.
func (s *Store) UpdateStatus(dialogID int64, messageID string, status models.Status) {
	s.mu.Lock()
	b, ok := s.buckets[dialogID]
	if !ok {
		s.mu.Unlock()
		return
	}
	msg, ok := b.byID[messageID]
	if !ok {
		s.mu.Unlock()
		return
	}
	msg.Status = status
	s.mu.Unlock()

	s.notify(Event{Kind: EventStatus, DialogID: dialogID, MessageID: messageID})
}

// UpdateAttachment replaces the matching attachment with a shallow-merged
// copy: non-zero patch fields override existing ones, all other
// attachments stay untouched. Reports whether a change occurred. This is
// the reconciler's write-back path.
func (s *Store) UpdateAttachment(dialogID int64, messageID, attachmentID string, patch models.Attachment) bool {
	s.mu.Lock()
	b, ok := s.buckets[dialogID]
	if !ok {
		s.mu.Unlock()
		return false
	}
	msg, ok := b.byID[messageID]
	if !ok || len(msg.Attachments) == 0 {
		s.mu.Unlock()
		return false
	}

	changed := false
	for i := range msg.Attachments {
		if msg.Attachments[i].ID != attachmentID {
			continue
		}
		merged := msg.Attachments[i]
		mergeAttachment(&merged, &patch)
		msg.Attachments[i] = merged
		changed = true
		break
	}
	s.mu.Unlock()

	if changed {
		s.notify(Event{Kind: EventAttachmentUpdate, DialogID: dialogID, MessageID: messageID, AttachmentID: attachmentID})
	}
	return changed
}

// List returns the bucket's messages in display order. Ids present in the
// order slice but missing from the index are skipped.
func (s *Store) List(dialogID int64) []models.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.buckets[dialogID]
	if !ok {
		return nil
	}

	out := make([]models.Message, 0, len(b.order))
	for _, id := range b.order {
		if msg, ok := b.byID[id]; ok {
			out = append(out, *msg)
		}
	}
	return out
}

// Get returns a single message by id.
func (s *Store) Get(dialogID int64, messageID string) (models.Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.buckets[dialogID]
	if !ok {
		return models.Message{}, false
	}
	msg, ok := b.byID[messageID]
	if !ok {
		return models.Message{}, false
	}
	return *msg, true
}

// Meta returns the bucket's pagination bookkeeping.
func (s *Store) Meta(dialogID int64) (BucketMeta, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.buckets[dialogID]
	if !ok {
		return BucketMeta{}, false
	}
	return b.meta, true
}

// Subscribe registers a listener invoked synchronously, in registration
// order, for every notification. The returned function removes it.
func (s *Store) Subscribe(l Listener) func() {
	s.mu.Lock()
	s.nextSub++
	id := s.nextSub
	s.subs = append(s.subs, subscription{id: id, listener: l})
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i := range s.subs {
			if s.subs[i].id == id {
				s.subs = append(s.subs[:i], s.subs[i+1:]...)
				return
			}
		}
	}
}

func (s *Store) notify(ev Event) {
	s.mu.RLock()
	subs := make([]subscription, len(s.subs))
	copy(subs, s.subs)
	s.mu.RUnlock()

	for _, sub := range subs {
		s.deliver(sub.listener, ev)
	}
}

// deliver isolates listener panics so one faulty observer cannot break
// store invariants or starve the others.
func (s *Store) deliver(l Listener, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			s.onListenErr(ev.DialogID, r)
		}
	}()
	l(ev)
}

func (s *Store) bucketLocked(dialogID int64) *bucket {
	b, ok := s.buckets[dialogID]
	if !ok {
		b = newBucket()
		s.buckets[dialogID] = b
	}
	return b
}

// mergeMessage overwrites dst's fields with the non-zero fields of src.
// Attachments merge by id so a DisplayHint written by the reconciler
// survives re-ingestion of the same message without one.
func mergeMessage(dst, src *models.Message) {
	if src.Author != "" {
		dst.Author = src.Author
	}
	if src.Text != "" {
		dst.Text = src.Text
	}
	if !src.CreatedAt.IsZero() {
		dst.CreatedAt = src.CreatedAt
	}
	if src.Status != "" {
		dst.Status = src.Status
	}
	if src.Seq != nil {
		seq := *src.Seq
		dst.Seq = &seq
	}
	if len(src.Attachments) > 0 {
		hints := make(map[string]models.DisplayVariant, len(dst.Attachments))
		for _, att := range dst.Attachments {
			if att.DisplayHint.Valid() {
				hints[att.ID] = att.DisplayHint
			}
		}
		merged := make([]models.Attachment, len(src.Attachments))
		copy(merged, src.Attachments)
		for i := range merged {
			if !merged[i].DisplayHint.Valid() {
				if hint, ok := hints[merged[i].ID]; ok {
					merged[i].DisplayHint = hint
				}
			}
		}
		dst.Attachments = merged
	}
	if len(src.Extra) > 0 {
		if dst.Extra == nil {
			dst.Extra = make(map[string]json.RawMessage, len(src.Extra))
		}
		for key, value := range src.Extra {
			dst.Extra[key] = value
		}
	}
}

func mergeAttachment(dst, src *models.Attachment) {
	if src.Name != "" {
		dst.Name = src.Name
	}
	if src.Size != "" {
		dst.Size = src.Size
	}
	if src.ContentType != "" {
		dst.ContentType = src.ContentType
	}
	if src.URL != "" {
		dst.URL = src.URL
	}
	if src.DownloadURL != "" {
		dst.DownloadURL = src.DownloadURL
	}
	if src.DisplayHint.Valid() {
		dst.DisplayHint = src.DisplayHint
	}
}

// sortBucket orders by seq when both sides carry one, else by createdAt.
// The sort is stable, so entries with identical keys keep their current
// relative order: deterministic for identical input batches.
func sortBucket(b *bucket) {
	sort.SliceStable(b.order, func(i, j int) bool {
		a, aok := b.byID[b.order[i]]
		c, cok := b.byID[b.order[j]]
		if !aok || !cok {
			return false
		}
		if a.Seq != nil && c.Seq != nil {
			return *a.Seq < *c.Seq
		}
		return a.CreatedAt.Before(c.CreatedAt)
	})
}

func updateSeqBounds(b *bucket) {
	var lowest, highest *int64
	for _, msg := range b.byID {
		if msg.Seq == nil {
			continue
		}
		seq := *msg.Seq
		if lowest == nil || seq < *lowest {
			v := seq
			lowest = &v
		}
		if highest == nil || seq > *highest {
			v := seq
			highest = &v
		}
	}
	b.meta.LowestSeq = lowest
	b.meta.HighestSeq = highest
}
