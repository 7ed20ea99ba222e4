// Package docstore is the boundary for safety-data-sheet documents. The
// inventory core only lists, fetches, and searches sheets by name; rendering
// and opening them is the caller's concern.
package docstore

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"
)

var ErrDocumentNotFound = errors.New("document not found")

type DocumentInfo struct {
	Name         string
	Size         int64
	LastModified time.Time
}

type PutOptions struct {
	ContentType string
}

type Store interface {
	Put(ctx context.Context, name string, body io.Reader, size int64, opts PutOptions) (DocumentInfo, error)
	Get(ctx context.Context, name string) (io.ReadCloser, error)
	Stat(ctx context.Context, name string) (DocumentInfo, error)
	List(ctx context.Context) ([]DocumentInfo, error)
	Delete(ctx context.Context, name string) error
}

// Search filters the store's documents by case-insensitive substring match on
// the document name. An empty text matches everything.
func Search(ctx context.Context, store Store, text string) ([]DocumentInfo, error) {
	documents, err := store.List(ctx)
	if err != nil {
		return nil, err
	}
	needle := strings.ToLower(text)
	matched := make([]DocumentInfo, 0, len(documents))
	for _, document := range documents {
		if strings.Contains(strings.ToLower(document.Name), needle) {
			matched = append(matched, document)
		}
	}
	return matched, nil
}
