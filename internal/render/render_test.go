package render

import (
	"strings"
	"testing"
	"time"

	"supportdesk/internal/models"
)

func msgAt(day int, month time.Month, hour, minute int) models.Message {
	return models.Message{CreatedAt: time.Date(2026, month, day, hour, minute, 0, 0, time.UTC)}
}

func TestFormatTimestamp(t *testing.T) {
	tests := []struct {
		name string
		msg  models.Message
		want string
	}{
		{name: "september", msg: msgAt(13, time.September, 15, 41), want: "13 сентября 15:41"},
		{name: "single_digit_day", msg: msgAt(1, time.January, 9, 5), want: "1 января 09:05"},
		{name: "midnight", msg: msgAt(31, time.December, 0, 0), want: "31 декабря 00:00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatTimestamp(tt.msg); got != tt.want {
				t.Fatalf("FormatTimestamp() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMessageEscapesTextEverywhere(t *testing.T) {
	for _, author := range []models.Author{models.AuthorClient, models.AuthorBot, models.AuthorOperator} {
		msg := msgAt(13, time.September, 15, 41)
		msg.ID = "m1"
		msg.Author = author
		msg.Text = `<script>alert("x")</script> & 'quotes'`

		got := Message(msg).HTML()
		if strings.Contains(got, "<script>") {
			t.Fatalf("author %q: rendered output contains unescaped script tag: %s", author, got)
		}
		if !strings.Contains(got, "&lt;script&gt;") {
			t.Fatalf("author %q: escaped text missing from output: %s", author, got)
		}
	}
}

func TestClientMessageHasNoBadgeOrAttachments(t *testing.T) {
	msg := msgAt(13, time.September, 10, 0)
	msg.ID = "m1"
	msg.Author = models.AuthorClient
	msg.Text = "привет"
	msg.Attachments = []models.Attachment{{ID: "a1", Name: "pic.png", ContentType: "image/png"}}

	node := Message(msg)
	if found := node.Find(func(n *Node) bool { return n.Attr("class") == "badge" }); found != nil {
		t.Fatalf("client message rendered a badge")
	}
	if found := node.Find(func(n *Node) bool { return n.Attr("data-attachment-id") != "" }); found != nil {
		t.Fatalf("client message rendered attachments")
	}
	if node.Attr("data-message-id") != "m1" {
		t.Fatalf("data-message-id = %q, want m1", node.Attr("data-message-id"))
	}
}

func TestAgentMessageBadgeLabels(t *testing.T) {
	tests := []struct {
		author models.Author
		label  string
	}{
		{models.AuthorBot, "Нейросеть"},
		{models.AuthorOperator, "Оператор"},
	}

	for _, tt := range tests {
		msg := msgAt(13, time.September, 10, 0)
		msg.Author = tt.author
		got := Message(msg).HTML()
		if !strings.Contains(got, tt.label) {
			t.Fatalf("author %q: output missing label %q: %s", tt.author, tt.label, got)
		}
	}
}

func TestAgentMessageRendersAttachmentsWithMetadata(t *testing.T) {
	msg := msgAt(13, time.September, 10, 0)
	msg.ID = "m1"
	msg.Author = models.AuthorBot
	msg.Attachments = []models.Attachment{
		{ID: "a1", Name: "pic.png", ContentType: "image/png", Size: "10 KB", URL: "https://cdn/pic.png"},
		{ID: "a2", Name: "doc.pdf", ContentType: "application/pdf", Size: "1 MB", URL: "https://cdn/doc.pdf"},
	}

	node := Message(msg)

	img := node.Find(func(n *Node) bool { return n.Attr("data-attachment-id") == "a1" })
	if img == nil {
		t.Fatalf("attachment a1 not rendered")
	}
	if img.Attr("data-variant") != string(models.VariantInlineImage) {
		t.Fatalf("a1 variant = %q, want inline-image", img.Attr("data-variant"))
	}
	if inner := img.Find(func(n *Node) bool { return n.Tag == "img" }); inner == nil || inner.Attr("loading") != "lazy" {
		t.Fatalf("inline image must contain a lazy img element")
	}

	file := node.Find(func(n *Node) bool { return n.Attr("data-attachment-id") == "a2" })
	if file == nil {
		t.Fatalf("attachment a2 not rendered")
	}
	if file.Attr("data-variant") != string(models.VariantFile) {
		t.Fatalf("a2 variant = %q, want file", file.Attr("data-variant"))
	}
	if link := file.Find(func(n *Node) bool { return n.Tag == "a" }); link == nil || link.Attr("href") != "https://cdn/doc.pdf" {
		t.Fatalf("file card must carry a download link")
	}
}

func TestAttachmentEscapesNameAndURL(t *testing.T) {
	att := models.Attachment{
		ID:   "a1",
		Name: `"><img src=x onerror=alert(1)>.png`,
		URL:  `https://cdn/x.png?a=1&b="2"`,
	}
	got := Attachment(att, models.VariantFile).HTML()
	if strings.Contains(got, `onerror=alert`) && !strings.Contains(got, "&lt;img") {
		t.Fatalf("attachment name not escaped: %s", got)
	}
	if strings.Contains(got, `b="2"`) {
		t.Fatalf("attribute value not escaped: %s", got)
	}
}

func TestNodeReplaceChild(t *testing.T) {
	inner := El("span", nil, Text("old"))
	root := El("div", nil, El("div", nil, inner))
	replacement := El("span", nil, Text("new"))

	if !root.ReplaceChild(inner, replacement) {
		t.Fatalf("ReplaceChild() = false, want true")
	}
	if root.ReplaceChild(inner, replacement) {
		t.Fatalf("second ReplaceChild() = true, node should be gone")
	}
	if got := root.HTML(); !strings.Contains(got, "new") || strings.Contains(got, "old") {
		t.Fatalf("replacement not serialized: %s", got)
	}
}

func TestHTMLDeterministicAttributeOrder(t *testing.T) {
	node := El("div", map[string]string{"b": "2", "a": "1", "c": "3"})
	want := `<div a="1" b="2" c="3"></div>`
	if got := node.HTML(); got != want {
		t.Fatalf("HTML() = %q, want %q", got, want)
	}
}
