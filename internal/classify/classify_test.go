package classify

import (
	"testing"

	"supportdesk/internal/models"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		att  *models.Attachment
		want models.DisplayVariant
	}{
		{
			name: "nil_attachment",
			att:  nil,
			want: models.VariantFile,
		},
		{
			name: "image_under_threshold",
			att:  &models.Attachment{ContentType: "image/png", Size: "500 KB"},
			want: models.VariantInlineImage,
		},
		{
			name: "image_over_threshold",
			att:  &models.Attachment{ContentType: "image/png", Size: "1.2 MB"},
			want: models.VariantFile,
		},
		{
			name: "explicit_file_hint_wins",
			att:  &models.Attachment{DisplayHint: models.VariantFile, ContentType: "image/png", Size: "10 KB"},
			want: models.VariantFile,
		},
		{
			name: "explicit_inline_hint_wins",
			att:  &models.Attachment{DisplayHint: models.VariantInlineImage, ContentType: "application/pdf", Size: "9 MB"},
			want: models.VariantInlineImage,
		},
		{
			name: "pdf_is_file",
			att:  &models.Attachment{Name: "scan.pdf", ContentType: "application/pdf"},
			want: models.VariantFile,
		},
		{
			name: "extension_fallback_without_mime",
			att:  &models.Attachment{Name: "photo.JPG"},
			want: models.VariantInlineImage,
		},
		{
			name: "non_image_extension_without_mime",
			att:  &models.Attachment{Name: "report.docx"},
			want: models.VariantFile,
		},
		{
			name: "missing_size_passes_threshold",
			att:  &models.Attachment{ContentType: "image/webp"},
			want: models.VariantInlineImage,
		},
		{
			name: "unparsable_size_passes_threshold",
			att:  &models.Attachment{ContentType: "image/gif", Size: "big"},
			want: models.VariantInlineImage,
		},
		{
			name: "exactly_at_threshold_inlines",
			att:  &models.Attachment{ContentType: "image/png", Size: "800 KB"},
			want: models.VariantInlineImage,
		},
		{
			name: "mime_with_parameters",
			att:  &models.Attachment{ContentType: "image/jpeg; charset=binary", Size: "12 KB"},
			want: models.VariantInlineImage,
		},
		{
			name: "empty_attachment",
			att:  &models.Attachment{},
			want: models.VariantFile,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.att); got != tt.want {
				t.Fatalf("Classify() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseHumanSize(t *testing.T) {
	mb := 1024.0 * 1024.0
	tests := []struct {
		name   string
		in     string
		want   int64
		wantOK bool
	}{
		{name: "kilobytes", in: "256 KB", want: 256 * 1024, wantOK: true},
		{name: "megabytes_decimal", in: "1.2 MB", want: int64(1.2 * mb), wantOK: true},
		{name: "bytes", in: "900b", want: 900, wantOK: true},
		{name: "comma_decimal", in: "1,5 mb", want: int64(1.5 * mb), wantOK: true},
		{name: "no_space", in: "64kb", want: 64 * 1024, wantOK: true},
		{name: "empty", in: "", wantOK: false},
		{name: "no_unit", in: "1024", wantOK: false},
		{name: "garbage", in: "big", wantOK: false},
		{name: "negative", in: "-5 kb", wantOK: false},
		{name: "unknown_unit", in: "2 gb", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseHumanSize(tt.in)
			if ok != tt.wantOK {
				t.Fatalf("ParseHumanSize(%q) ok = %v, want %v", tt.in, ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Fatalf("ParseHumanSize(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestHasImageExtension(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"photo.png", true},
		{"PHOTO.PNG", true},
		{"archive.tar.gz", false},
		{"https://cdn.example.com/a/b/pic.webp", true},
		{"noext", false},
	}

	for _, tt := range tests {
		if got := HasImageExtension(tt.in); got != tt.want {
			t.Fatalf("HasImageExtension(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
