package storage

import (
	"context"
	"errors"
)

// ErrLinkNotFound is returned when no link is registered for a file id.
var ErrLinkNotFound = errors.New("link not found")

// LinkRecord represents one known downloadable file.
type LinkRecord struct {
	FileID       string
	FileName     string
	DownloadLink string
}

type LinkReadRepository interface {
	Get(ctx context.Context, fileID string) (LinkRecord, error)
	Len() int
}

type LinkWriteRepository interface {
	Put(ctx context.Context, fileID string, record LinkRecord)
}

// LinkRepository is the full registry contract shared by the bot and the HTTP adapters.
type LinkRepository interface {
	LinkReadRepository
	LinkWriteRepository
}
