package classify

import (
	"path"
	"strconv"
	"strings"

	"supportdesk/internal/models"
)

// InlineImageMaxBytes is the ceiling above which images are not inlined.
// Large inline images are the main DOM/memory cost of the feed, so they
// fall back to a file card.
const InlineImageMaxBytes = 800 << 10

var imageExtensions = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
	".webp": {},
	".gif":  {},
}

// Classify maps an attachment to its display variant. An explicit
// DisplayHint is authoritative and bypasses all heuristics; otherwise the
// decision is MIME prefix (falling back to filename extension) plus the
// size ceiling. Total: any input yields exactly one of the two variants.
func Classify(att *models.Attachment) models.DisplayVariant {
	if att == nil {
		return models.VariantFile
	}
	if att.DisplayHint.Valid() {
		return att.DisplayHint
	}
	if !LooksLikeImage(att.ContentType, att.Name) {
		return models.VariantFile
	}
	if bytes, ok := ParseHumanSize(att.Size); ok && bytes > InlineImageMaxBytes {
		return models.VariantFile
	}
	return models.VariantInlineImage
}

// LooksLikeImage checks the declared MIME type first and falls back to the
// filename extension, which compensates for producers that omit or mangle
// content types.
func LooksLikeImage(contentType, name string) bool {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if idx := strings.Index(ct, ";"); idx != -1 {
		ct = strings.TrimSpace(ct[:idx])
	}
	if ct != "" {
		return strings.HasPrefix(ct, "image/")
	}
	return HasImageExtension(name)
}

// HasImageExtension matches the filename (or URL path) extension against
// the inline-image allow-list, case-insensitively.
func HasImageExtension(name string) bool {
	ext := strings.ToLower(path.Ext(name))
	_, ok := imageExtensions[ext]
	return ok
}

// ParseHumanSize parses strings like "256 KB" or "1.2mb" into bytes.
// The unit is case-insensitive b/kb/mb with 1024 multipliers; a decimal
// comma is accepted alongside a dot. Returns false when the string does
// not fit the format, which callers treat as size-unknown.
func ParseHumanSize(s string) (int64, bool) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return 0, false
	}

	unit := ""
	switch {
	case strings.HasSuffix(s, "kb"):
		unit = "kb"
	case strings.HasSuffix(s, "mb"):
		unit = "mb"
	case strings.HasSuffix(s, "b"):
		unit = "b"
	default:
		return 0, false
	}

	number := strings.TrimSpace(strings.TrimSuffix(s, unit))
	number = strings.ReplaceAll(number, ",", ".")
	value, err := strconv.ParseFloat(number, 64)
	if err != nil || value < 0 {
		return 0, false
	}

	switch unit {
	case "kb":
		value *= 1024
	case "mb":
		value *= 1024 * 1024
	}
	return int64(value), true
}
