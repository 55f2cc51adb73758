// Package seed loads the demo dataset used when the server runs without
// an upstream feed. The dialogs mirror a real triage queue; messages
// cover the attachment shapes the renderer has to deal with: declared
// images, bare files, oversized images, and server-pinned hints.
package seed

import (
	"fmt"
	"time"

	"supportdesk/internal/dialogs"
	"supportdesk/internal/models"
	"supportdesk/internal/store"
)

var dialogRows = []struct {
	time     string
	platform string
}{
	{"10:15", "Android 13 • ФРИИ 1.3.7"},
	{"09:42", "iOS 16.7 • ФРИИ 2.8.6"},
	{"08:30", "Android 12 • ФРИИ 1.2.1"},
	{"07:55", "iOS 16.9 • ФРИИ 1.6.0"},
	{"07:12", "Android 11 • ФРИИ 2.4.7"},
	{"06:48", "iOS 15.4 • ФРИИ 1.1.0"},
	{"06:20", "Android 13 • ФРИИ 1.3.7"},
	{"05:59", "iOS 16.8 • ФРИИ 2.4.7"},
	{"05:30", "Android 10 • ФРИИ 1.0.0"},
	{"05:01", "iOS 16.7 • ФРИИ 1.6.9"},
	{"04:45", "Android 13 • ФРИИ 2.8.6"},
	{"04:20", "iOS 16.9 • ФРИИ 1.6.0"},
	{"03:58", "Android 12 • ФРИИ 1.2.1"},
	{"03:40", "iOS 15.4 • ФРИИ 1.1.0"},
	{"03:20", "Android 11 • ФРИИ 2.4.7"},
	{"03:05", "iOS 16.7 • ФРИИ 2.8.6"},
	{"02:50", "Android 13 • ФРИИ 1.3.7"},
	{"02:35", "iOS 16.8 • ФРИИ 2.4.7"},
	{"02:20", "Android 10 • ФРИИ 1.0.0"},
	{"02:05", "iOS 16.7 • ФРИИ 1.6.9"},
	{"01:50", "Android 13 • ФРИИ 2.8.6"},
	{"01:35", "iOS 16.9 • ФРИИ 1.6.0"},
	{"01:20", "Android 12 • ФРИИ 1.2.1"},
	{"01:05", "iOS 15.4 • ФРИИ 1.1.0"},
	{"00:50", "Android 11 • ФРИИ 2.4.7"},
}

// Load populates the registry with the demo queue and fills the first
// dialog with a representative history.
func Load(reg *dialogs.Registry, st *store.Store) {
	for i, row := range dialogRows {
		reg.Add(models.Dialog{
			ID:        int64(i + 1),
			Name:      fmt.Sprintf("user_%d", i+1),
			Time:      row.time,
			Platform:  row.platform,
			Responder: models.AuthorBot,
		})
	}

	st.IngestBatch(1, demoHistory(), store.IngestOptions{})
}

func demoHistory() []models.Message {
	day := time.Date(2025, 9, 13, 15, 0, 0, 0, time.Local)
	at := func(min int) time.Time { return day.Add(time.Duration(min) * time.Minute) }
	seq := func(v int64) *int64 { return &v }

	return []models.Message{
		{
			ID: "seed-1", Author: models.AuthorClient, Seq: seq(1), CreatedAt: at(0),
			Text: "Здравствуйте! Не проходит оплата в приложении, высвечивается ошибка.",
		},
		{
			ID: "seed-2", Author: models.AuthorBot, Seq: seq(2), CreatedAt: at(1),
			Text: "Добрый день! Пришлите, пожалуйста, скриншот экрана с ошибкой.",
		},
		{
			ID: "seed-3", Author: models.AuthorClient, Seq: seq(3), CreatedAt: at(4),
			Text: "Вот скриншот.",
			Attachments: []models.Attachment{
				{ID: "seed-3-a1", Name: "screenshot.png", ContentType: "image/png", Size: "245 KB", URL: "/media/seed/screenshot.png"},
			},
		},
		{
			ID: "seed-4", Author: models.AuthorBot, Seq: seq(4), CreatedAt: at(5),
			Text: "Спасибо. Передаю обращение оператору, он ответит в этом чате.",
		},
		{
			ID: "seed-5", Author: models.AuthorSystem, Seq: seq(5), CreatedAt: at(5),
			Text: "Диалог переведён на оператора",
		},
		{
			ID: "seed-6", Author: models.AuthorOperator, Seq: seq(6), CreatedAt: at(11),
			Text: "Здравствуйте! Посмотрел ваш скриншот. Приложите, пожалуйста, выписку по операции.",
		},
		{
			ID: "seed-7", Author: models.AuthorClient, Seq: seq(7), CreatedAt: at(18),
			Text: "Прикладываю выписку и ещё одно фото.",
			Attachments: []models.Attachment{
				{ID: "seed-7-a1", Name: "statement.pdf", ContentType: "application/pdf", Size: "1.2 MB", URL: "/media/seed/statement.pdf", DownloadURL: "/media/seed/statement.pdf?dl=1"},
				// Oversized for inline display even though it is an image.
				{ID: "seed-7-a2", Name: "receipt-full.jpg", ContentType: "image/jpeg", Size: "3.4 MB", URL: "/media/seed/receipt-full.jpg"},
			},
		},
		{
			ID: "seed-8", Author: models.AuthorOperator, Seq: seq(8), CreatedAt: at(26),
			Text: "Вижу проблему, платёж завис на стороне банка. Отправил запрос на возврат, средства вернутся в течение трёх рабочих дней.",
			Attachments: []models.Attachment{
				{ID: "seed-8-a1", Name: "refund-confirmation.png", ContentType: "image/png", Size: "180 KB", URL: "/media/seed/refund-confirmation.png", DisplayHint: models.VariantFile},
			},
		},
		{
			ID: "seed-9", Author: models.AuthorClient, Seq: seq(9), CreatedAt: at(30),
			Text: "Спасибо большое, буду ждать!",
		},
	}
}
