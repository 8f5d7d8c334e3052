// Package extract decides whether an inbound chat message carries a file
// paired with a download link, and pulls that pair out of it.
package extract

import (
	"errors"
	"strings"

	"github.com/italolelis/tg_file_listener/internal/storage"
)

// DownloadLinkMarker is the label fragment that identifies a download button.
const DownloadLinkMarker = "DL Link"

var (
	ErrNoAttachment        = errors.New("message has no file attachment")
	ErrMalformedAttachment = errors.New("file attachment has no unique id")
	ErrNoDownloadLink      = errors.New("no download link button found")
)

// AttachmentKind names the media type a file was sent as.
type AttachmentKind string

const (
	KindDocument AttachmentKind = "document"
	KindVideo    AttachmentKind = "video"
	KindAudio    AttachmentKind = "audio"
)

// Attachment is the normalized view of a file sent in a message.
type Attachment struct {
	Kind     AttachmentKind
	FileName string
	UniqueID string
	Size     int64
}

// Button is an inline button with a label and an optional target URL.
type Button struct {
	Label string
	URL   string
}

// Message is the platform independent shape the extractor works on.
// Buttons are laid out in rows, as shown to the user.
type Message struct {
	Attachment *Attachment
	Buttons    [][]Button
}

// Extract returns the link record carried by msg. Every error it returns
// means "no metadata" (see IsNoMetadata); none of them is a failure.
func Extract(msg Message) (storage.LinkRecord, error) {
	att := msg.Attachment
	if att == nil {
		return storage.LinkRecord{}, ErrNoAttachment
	}

	if att.UniqueID == "" {
		return storage.LinkRecord{}, ErrMalformedAttachment
	}

	url, ok := findDownloadLink(msg.Buttons)
	if !ok {
		return storage.LinkRecord{}, ErrNoDownloadLink
	}

	return storage.LinkRecord{
		FileID:       att.UniqueID,
		FileName:     att.FileName,
		DownloadLink: url,
	}, nil
}

// IsNoMetadata reports whether err only says the message carried nothing to register.
func IsNoMetadata(err error) bool {
	return errors.Is(err, ErrNoAttachment) ||
		errors.Is(err, ErrMalformedAttachment) ||
		errors.Is(err, ErrNoDownloadLink)
}

// findDownloadLink scans rows in order; the first matching button wins.
func findDownloadLink(rows [][]Button) (string, bool) {
	for _, row := range rows {
		for _, b := range row {
			if b.URL != "" && strings.Contains(b.Label, DownloadLinkMarker) {
				return b.URL, true
			}
		}
	}

	return "", false
}
