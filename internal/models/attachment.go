package models

// DisplayVariant is how an attachment is presented in the message feed.
type DisplayVariant string

const (
	VariantInlineImage DisplayVariant = "inline-image"
	VariantFile        DisplayVariant = "file"
)

// Valid reports whether v is one of the two renderable variants.
func (v DisplayVariant) Valid() bool {
	return v == VariantInlineImage || v == VariantFile
}

// Attachment describes one file or image bound to a message. Size is the
// human-readable string the backend sends ("256 KB"); byte parsing is
// best-effort and lives in the classify package. DisplayHint, when set,
// overrides heuristic classification and is also where the reconciler
// records the outcome of a runtime probe.
type Attachment struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Size        string         `json:"size,omitempty"`
	ContentType string         `json:"content_type,omitempty"`
	URL         string         `json:"url,omitempty"`
	DownloadURL string         `json:"download_url,omitempty"`
	DisplayHint DisplayVariant `json:"display_hint,omitempty"`
}
