package render

import (
	"fmt"

	"supportdesk/internal/classify"
	"supportdesk/internal/models"
)

// Badge labels for agent-authored messages; the UI runs in a single
// locale.
const (
	labelBot      = "Нейросеть"
	labelOperator = "Оператор"
)

var monthNames = [...]string{
	"января", "февраля", "марта", "апреля", "мая", "июня",
	"июля", "августа", "сентября", "октября", "ноября", "декабря",
}

// FormatTimestamp renders the long "13 сентября 15:41" form used under
// each message bubble, with no separator punctuation between the date
// and time parts.
func FormatTimestamp(t models.Message) string {
	ts := t.CreatedAt
	return fmt.Sprintf("%d %s %02d:%02d", ts.Day(), monthNames[ts.Month()-1], ts.Hour(), ts.Minute())
}

// Message renders one message into a display fragment. Pure: the same
// message and classifier decisions always produce the same tree. Text is
// inserted as text leaves and escaped only at serialization.
func Message(msg models.Message) *Node {
	root := El("div", map[string]string{
		"class":           "message message--" + string(msg.Author),
		"data-message-id": msg.ID,
	})

	if !msg.Author.IsAgent() {
		// Client (and system) messages are a bare bubble: no badge, no
		// attachments section.
		bubble := El("div", map[string]string{"class": "message__bubble"},
			El("div", map[string]string{"class": "message__text"}, Text(msg.Text)),
			timeNode(msg),
		)
		return root.Append(bubble)
	}

	label := labelOperator
	icon := "images/operator.svg"
	if msg.Author == models.AuthorBot {
		label = labelBot
		icon = "images/bot.svg"
	}
	badge := El("span", map[string]string{"class": "badge"},
		El("img", map[string]string{
			"class": "message__badge-icon",
			"src":   icon,
			"alt":   "",
		}),
		Text(label),
	)

	bubble := El("div", map[string]string{"class": "message__bubble"},
		El("div", map[string]string{"class": "message__text"}, Text(msg.Text)),
	)
	if len(msg.Attachments) > 0 {
		block := El("div", map[string]string{"class": "message__attachments"})
		for i := range msg.Attachments {
			att := msg.Attachments[i]
			block.Append(Attachment(att, classify.Classify(&att)))
		}
		bubble.Append(block)
	}
	bubble.Append(timeNode(msg))

	return root.Append(badge, bubble)
}

// Attachment renders one attachment in the given variant. The node
// carries the attachment id and resolved variant as addressable metadata
// so the reconciler can locate and replace it later.
func Attachment(att models.Attachment, variant models.DisplayVariant) *Node {
	attrs := map[string]string{
		"data-attachment-id": att.ID,
		"data-variant":       string(variant),
	}

	if variant == models.VariantInlineImage {
		attrs["class"] = "attachment attachment--image"
		return El("figure", attrs,
			El("img", map[string]string{
				"class":   "attachment__image",
				"src":     att.URL,
				"alt":     att.Name,
				"loading": "lazy",
			}),
			downloadNode(att),
		)
	}

	attrs["class"] = "attachment attachment--file"
	node := El("div", attrs,
		El("span", map[string]string{"class": "attachment__icon"}),
		El("span", map[string]string{"class": "attachment__name"}, Text(att.Name)),
	)
	if att.Size != "" {
		node.Append(El("span", map[string]string{"class": "attachment__size"}, Text(att.Size)))
	}
	return node.Append(downloadNode(att))
}

func downloadNode(att models.Attachment) *Node {
	href := att.DownloadURL
	if href == "" {
		href = att.URL
	}
	return El("a", map[string]string{
		"class":    "attachment__download",
		"href":     href,
		"download": att.Name,
	}, Text("Скачать"))
}

func timeNode(msg models.Message) *Node {
	return El("time", map[string]string{"class": "message__time"}, Text(FormatTimestamp(msg)))
}
