package reconcile

import (
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	_ "golang.org/x/image/webp"

	"supportdesk/internal/classify"
	"supportdesk/internal/models"
	"supportdesk/internal/render"
	"supportdesk/internal/store"
)

const (
	DefaultProbeTimeout  = 10 * time.Second
	DefaultProbeMaxBytes = 4 << 20
)

// FeedView is the rendered surface the reconciler corrects. Replace
// reports false when the target node is no longer present, which is the
// relevance check for probes that complete late.
type FeedView interface {
	ReplaceAttachment(dialogID int64, messageID, attachmentID string, n *render.Node) bool
}

// Reconciler verifies that an attachment's classified variant matches
// what its URL actually serves. Declared metadata is not always
// trustworthy, so inline images that fail to load are downgraded to file
// cards, and file cards whose resource turns out to be a loadable image
// are upgraded, in both cases writing the outcome back to the store as a
// display hint.
type Reconciler struct {
	store    *store.Store
	client   *http.Client
	timeout  time.Duration
	maxBytes int64

	mu       sync.Mutex
	view     FeedView
	inFlight map[string]struct{}
	wg       sync.WaitGroup
}

// Option configures a Reconciler.
type Option func(*Reconciler)

func WithHTTPClient(c *http.Client) Option {
	return func(r *Reconciler) { r.client = c }
}

// WithProbeTimeout bounds each probe; a never-resolving resource load
// would otherwise leave a dangling probe forever.
func WithProbeTimeout(d time.Duration) Option {
	return func(r *Reconciler) {
		if d > 0 {
			r.timeout = d
		}
	}
}

func WithProbeMaxBytes(n int64) Option {
	return func(r *Reconciler) {
		if n > 0 {
			r.maxBytes = n
		}
	}
}

func New(st *store.Store, opts ...Option) *Reconciler {
	r := &Reconciler{
		store:    st,
		client:   &http.Client{},
		timeout:  DefaultProbeTimeout,
		maxBytes: DefaultProbeMaxBytes,
		inFlight: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SetView wires the feed after construction; the feed and the reconciler
// reference each other only through interfaces.
func (r *Reconciler) SetView(v FeedView) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.view = v
}

// Reconcile processes each attachment of a rendered message at most once
// per invocation and never re-runs against a node it just replaced.
// Probes are detached from the caller's cancellation: once started they
// run to completion, and late completions find no node to mutate.
func (r *Reconciler) Reconcile(ctx context.Context, dialogID int64, msg models.Message) {
	for i := range msg.Attachments {
		att := msg.Attachments[i]
		if att.ID == "" {
			continue
		}

		key := fmt.Sprintf("%d/%s/%s", dialogID, msg.ID, att.ID)
		r.mu.Lock()
		if _, busy := r.inFlight[key]; busy {
			r.mu.Unlock()
			continue
		}
		r.inFlight[key] = struct{}{}
		r.mu.Unlock()

		probeCtx := context.WithoutCancel(ctx)
		r.wg.Add(1)
		go func(att models.Attachment) {
			defer r.wg.Done()
			defer func() {
				r.mu.Lock()
				delete(r.inFlight, key)
				r.mu.Unlock()
			}()

			switch classify.Classify(&att) {
			case models.VariantInlineImage:
				r.verifyInline(probeCtx, dialogID, msg.ID, att)
			case models.VariantFile:
				r.maybeUpgrade(probeCtx, dialogID, msg.ID, att)
			}
		}(att)
	}
}

// Wait blocks until all in-flight probes finish. Used on shutdown and in
// tests.
func (r *Reconciler) Wait() {
	r.wg.Wait()
}

// verifyInline is the error-observer side: when the image resource does
// not load, the inline rendering is replaced by a file card and the
// downgrade is recorded permanently. One-shot: a later transient success
// is not retried.
func (r *Reconciler) verifyInline(ctx context.Context, dialogID int64, messageID string, att models.Attachment) {
	if r.probeImage(ctx, att.URL) {
		return
	}

	att.DisplayHint = models.VariantFile
	node := render.Attachment(att, models.VariantFile)
	if !r.replace(dialogID, messageID, att.ID, node) {
		return
	}
	r.store.UpdateAttachment(dialogID, messageID, att.ID, models.Attachment{DisplayHint: models.VariantFile})
	slog.Debug("attachment downgraded to file card",
		"component", "reconcile", "dialog_id", dialogID, "message_id", messageID, "attachment_id", att.ID)
}

// maybeUpgrade probes file-card attachments that look like images. An
// explicit file hint pins the card; probe failure leaves it untouched
// with no write-back.
func (r *Reconciler) maybeUpgrade(ctx context.Context, dialogID int64, messageID string, att models.Attachment) {
	if att.DisplayHint == models.VariantFile {
		return
	}
	if !upgradeCandidate(att) {
		return
	}
	if !r.probeImage(ctx, att.URL) {
		return
	}

	att.DisplayHint = models.VariantInlineImage
	node := render.Attachment(att, models.VariantInlineImage)
	if !r.replace(dialogID, messageID, att.ID, node) {
		return
	}
	r.store.UpdateAttachment(dialogID, messageID, att.ID, models.Attachment{DisplayHint: models.VariantInlineImage})
	slog.Debug("attachment upgraded to inline image",
		"component", "reconcile", "dialog_id", dialogID, "message_id", messageID, "attachment_id", att.ID)
}

func (r *Reconciler) replace(dialogID int64, messageID, attachmentID string, node *render.Node) bool {
	r.mu.Lock()
	v := r.view
	r.mu.Unlock()
	if v == nil {
		return false
	}
	return v.ReplaceAttachment(dialogID, messageID, attachmentID, node)
}

// probeImage fetches the resource off-screen and reports whether it
// decodes as an image. Decodability is the test: a 200 with an image
// content type that does not decode would still fail to display.
func (r *Reconciler) probeImage(ctx context.Context, rawURL string) bool {
	if !usableURL(rawURL) {
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return false
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return false
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1))
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return false
	}

	_, _, err = image.DecodeConfig(io.LimitReader(resp.Body, r.maxBytes))
	return err == nil
}

// upgradeCandidate applies the eligibility rules for file→inline: the
// resource must look like an image by MIME prefix or URL path extension.
func upgradeCandidate(att models.Attachment) bool {
	ct := strings.ToLower(strings.TrimSpace(att.ContentType))
	if strings.HasPrefix(ct, "image/") {
		return true
	}
	u, err := url.Parse(att.URL)
	if err != nil {
		return false
	}
	return classify.HasImageExtension(u.Path)
}

func usableURL(rawURL string) bool {
	trimmed := strings.TrimSpace(rawURL)
	switch trimmed {
	case "", "#", "about:blank":
		return false
	}
	return true
}
