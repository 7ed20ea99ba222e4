// Package local serves safety-data-sheet documents from a directory on disk.
package local

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/chemstore/chemstore/internal/docstore"
)

type Store struct {
	root string
}

func New(root string) (*Store, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, fmt.Errorf("document directory is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create document directory %q: %w", root, err)
	}
	return &Store{root: root}, nil
}

func (s *Store) Put(ctx context.Context, name string, body io.Reader, size int64, opts docstore.PutOptions) (docstore.DocumentInfo, error) {
	cleaned, err := cleanName(name)
	if err != nil {
		return docstore.DocumentInfo{}, err
	}
	target := filepath.Join(s.root, cleaned)

	file, err := os.Create(target)
	if err != nil {
		return docstore.DocumentInfo{}, fmt.Errorf("create document %q: %w", cleaned, err)
	}
	written, err := io.Copy(file, body)
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return docstore.DocumentInfo{}, fmt.Errorf("write document %q: %w", cleaned, err)
	}
	return docstore.DocumentInfo{Name: cleaned, Size: written}, nil
}

func (s *Store) Get(ctx context.Context, name string) (io.ReadCloser, error) {
	cleaned, err := cleanName(name)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(filepath.Join(s.root, cleaned))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, docstore.ErrDocumentNotFound
		}
		return nil, fmt.Errorf("open document %q: %w", cleaned, err)
	}
	return file, nil
}

func (s *Store) Stat(ctx context.Context, name string) (docstore.DocumentInfo, error) {
	cleaned, err := cleanName(name)
	if err != nil {
		return docstore.DocumentInfo{}, err
	}
	info, err := os.Stat(filepath.Join(s.root, cleaned))
	if err != nil {
		if os.IsNotExist(err) {
			return docstore.DocumentInfo{}, docstore.ErrDocumentNotFound
		}
		return docstore.DocumentInfo{}, fmt.Errorf("stat document %q: %w", cleaned, err)
	}
	return fileInfo(cleaned, info), nil
}

func (s *Store) List(ctx context.Context) ([]docstore.DocumentInfo, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("read document directory: %w", err)
	}
	documents := make([]docstore.DocumentInfo, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return nil, fmt.Errorf("stat document %q: %w", entry.Name(), err)
		}
		documents = append(documents, fileInfo(entry.Name(), info))
	}
	return documents, nil
}

func (s *Store) Delete(ctx context.Context, name string) error {
	cleaned, err := cleanName(name)
	if err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(s.root, cleaned)); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("delete document %q: %w", cleaned, err)
	}
	return nil
}

func fileInfo(name string, info fs.FileInfo) docstore.DocumentInfo {
	return docstore.DocumentInfo{Name: name, Size: info.Size(), LastModified: info.ModTime()}
}

// cleanName rejects anything that would escape the document directory.
func cleanName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("document name is required")
	}
	if strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return "", fmt.Errorf("invalid document name: %q", name)
	}
	return name, nil
}
