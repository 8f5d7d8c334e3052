package bot

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/italolelis/tg_file_listener/internal/extract"
)

// FromTelegram normalizes a Telegram message for the extractor. Documents win
// over videos, videos over audio.
func FromTelegram(msg *tgbotapi.Message) extract.Message {
	if msg == nil {
		return extract.Message{}
	}

	return extract.Message{
		Attachment: attachment(msg),
		Buttons:    buttons(msg.ReplyMarkup),
	}
}

func attachment(msg *tgbotapi.Message) *extract.Attachment {
	switch {
	case msg.Document != nil:
		return &extract.Attachment{
			Kind:     extract.KindDocument,
			FileName: msg.Document.FileName,
			UniqueID: msg.Document.FileUniqueID,
			Size:     int64(msg.Document.FileSize),
		}
	case msg.Video != nil:
		return &extract.Attachment{
			Kind:     extract.KindVideo,
			FileName: msg.Video.FileName,
			UniqueID: msg.Video.FileUniqueID,
			Size:     int64(msg.Video.FileSize),
		}
	case msg.Audio != nil:
		return &extract.Attachment{
			Kind:     extract.KindAudio,
			FileName: msg.Audio.FileName,
			UniqueID: msg.Audio.FileUniqueID,
			Size:     int64(msg.Audio.FileSize),
		}
	}

	return nil
}

func buttons(markup *tgbotapi.InlineKeyboardMarkup) [][]extract.Button {
	if markup == nil {
		return nil
	}

	rows := make([][]extract.Button, 0, len(markup.InlineKeyboard))

	for _, row := range markup.InlineKeyboard {
		out := make([]extract.Button, 0, len(row))

		for _, b := range row {
			btn := extract.Button{Label: b.Text}
			if b.URL != nil {
				btn.URL = *b.URL
			}

			out = append(out, btn)
		}

		rows = append(rows, out)
	}

	return rows
}
