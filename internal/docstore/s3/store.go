// Package s3 keeps safety-data-sheet documents in an S3-compatible bucket.
package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/chemstore/chemstore/internal/config"
	"github.com/chemstore/chemstore/internal/docstore"
)

type client interface {
	Put(ctx context.Context, bucket, key string, reader io.Reader, size int64, contentType string) (docstore.DocumentInfo, error)
	Get(ctx context.Context, bucket, key string) (io.ReadCloser, error)
	Stat(ctx context.Context, bucket, key string) (docstore.DocumentInfo, error)
	List(ctx context.Context, bucket, prefix string) ([]docstore.DocumentInfo, error)
	Delete(ctx context.Context, bucket, key string) error
	BucketExists(ctx context.Context, bucket string) (bool, error)
	CreateBucket(ctx context.Context, bucket, region string) error
}

type Store struct {
	client client
	bucket string
	prefix string
}

func New(ctx context.Context, cfg config.DocStoreConfig) (*Store, error) {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return nil, fmt.Errorf("s3 endpoint is required")
	}
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}

	mc, err := newMinioClient(cfg)
	if err != nil {
		return nil, err
	}
	store := &Store{
		client: mc,
		bucket: strings.TrimSpace(cfg.Bucket),
		prefix: cleanPrefix(cfg.Prefix),
	}
	if cfg.AutoCreateBucket {
		if err := store.ensureBucket(ctx, strings.TrimSpace(cfg.Region)); err != nil {
			return nil, err
		}
	}
	return store, nil
}

func NewWithClient(bucket, prefix string, c client) (*Store, error) {
	if c == nil {
		return nil, fmt.Errorf("client is required")
	}
	if strings.TrimSpace(bucket) == "" {
		return nil, fmt.Errorf("bucket is required")
	}
	return &Store{client: c, bucket: strings.TrimSpace(bucket), prefix: cleanPrefix(prefix)}, nil
}

func (s *Store) Put(ctx context.Context, name string, body io.Reader, size int64, opts docstore.PutOptions) (docstore.DocumentInfo, error) {
	key, err := s.normalizeKey(name)
	if err != nil {
		return docstore.DocumentInfo{}, err
	}
	info, err := s.client.Put(ctx, s.bucket, key, body, size, opts.ContentType)
	if err != nil {
		return docstore.DocumentInfo{}, fmt.Errorf("put document %q: %w", key, err)
	}
	info.Name = name
	return info, nil
}

func (s *Store) Get(ctx context.Context, name string) (io.ReadCloser, error) {
	key, err := s.normalizeKey(name)
	if err != nil {
		return nil, err
	}
	reader, err := s.client.Get(ctx, s.bucket, key)
	if err != nil {
		if errors.Is(err, docstore.ErrDocumentNotFound) {
			return nil, docstore.ErrDocumentNotFound
		}
		return nil, fmt.Errorf("get document %q: %w", key, err)
	}
	return reader, nil
}

func (s *Store) Stat(ctx context.Context, name string) (docstore.DocumentInfo, error) {
	key, err := s.normalizeKey(name)
	if err != nil {
		return docstore.DocumentInfo{}, err
	}
	info, err := s.client.Stat(ctx, s.bucket, key)
	if err != nil {
		if errors.Is(err, docstore.ErrDocumentNotFound) {
			return docstore.DocumentInfo{}, docstore.ErrDocumentNotFound
		}
		return docstore.DocumentInfo{}, fmt.Errorf("stat document %q: %w", key, err)
	}
	info.Name = name
	return info, nil
}

func (s *Store) List(ctx context.Context) ([]docstore.DocumentInfo, error) {
	documents, err := s.client.List(ctx, s.bucket, s.prefix)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	for i := range documents {
		documents[i].Name = s.stripPrefix(documents[i].Name)
	}
	return documents, nil
}

func (s *Store) Delete(ctx context.Context, name string) error {
	key, err := s.normalizeKey(name)
	if err != nil {
		return err
	}
	if err := s.client.Delete(ctx, s.bucket, key); err != nil {
		if errors.Is(err, docstore.ErrDocumentNotFound) {
			return nil
		}
		return fmt.Errorf("delete document %q: %w", key, err)
	}
	return nil
}

func (s *Store) ensureBucket(ctx context.Context, region string) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %q: %w", s.bucket, err)
	}
	if exists {
		return nil
	}
	if err := s.client.CreateBucket(ctx, s.bucket, region); err != nil {
		return fmt.Errorf("create bucket %q: %w", s.bucket, err)
	}
	return nil
}

func (s *Store) normalizeKey(name string) (string, error) {
	name = strings.TrimSpace(strings.TrimPrefix(name, "/"))
	if name == "" {
		return "", fmt.Errorf("document name is required")
	}
	cleaned := path.Clean(name)
	if cleaned == "." || strings.HasPrefix(cleaned, "../") || strings.Contains(cleaned, "/../") {
		return "", fmt.Errorf("invalid document name: %q", name)
	}
	if s.prefix == "" {
		return cleaned, nil
	}
	return path.Join(s.prefix, cleaned), nil
}

func (s *Store) stripPrefix(key string) string {
	if s.prefix == "" {
		return key
	}
	return strings.TrimPrefix(strings.TrimPrefix(key, s.prefix), "/")
}

func cleanPrefix(prefix string) string {
	prefix = strings.TrimSpace(strings.TrimPrefix(prefix, "/"))
	if prefix == "" {
		return ""
	}
	prefix = path.Clean(prefix)
	if prefix == "." {
		return ""
	}
	return prefix
}

func newMinioClient(cfg config.DocStoreConfig) (*minioClient, error) {
	endpoint, secure, err := parseEndpoint(cfg.Endpoint, cfg.UseSSL)
	if err != nil {
		return nil, err
	}
	clientImpl, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: secure,
		Region: strings.TrimSpace(cfg.Region),
	})
	if err != nil {
		return nil, fmt.Errorf("create s3 client: %w", err)
	}
	return &minioClient{client: clientImpl}, nil
}

func parseEndpoint(raw string, useSSL bool) (string, bool, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false, fmt.Errorf("endpoint is required")
	}
	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		parsed, err := url.Parse(raw)
		if err != nil {
			return "", false, fmt.Errorf("parse endpoint URL: %w", err)
		}
		if parsed.Host == "" {
			return "", false, fmt.Errorf("endpoint host is required")
		}
		if parsed.Scheme == "https" {
			return parsed.Host, true, nil
		}
		return parsed.Host, useSSL, nil
	}
	return raw, useSSL, nil
}

type minioClient struct {
	client *minio.Client
}

func (m *minioClient) Put(ctx context.Context, bucket, key string, reader io.Reader, size int64, contentType string) (docstore.DocumentInfo, error) {
	uploadInfo, err := m.client.PutObject(ctx, bucket, key, reader, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return docstore.DocumentInfo{}, mapMinioErr(err)
	}
	return docstore.DocumentInfo{Name: uploadInfo.Key, Size: uploadInfo.Size}, nil
}

func (m *minioClient) Get(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	obj, err := m.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, mapMinioErr(err)
	}
	if _, err := obj.Stat(); err != nil {
		_ = obj.Close()
		return nil, mapMinioErr(err)
	}
	return obj, nil
}

func (m *minioClient) Stat(ctx context.Context, bucket, key string) (docstore.DocumentInfo, error) {
	obj, err := m.client.StatObject(ctx, bucket, key, minio.StatObjectOptions{})
	if err != nil {
		return docstore.DocumentInfo{}, mapMinioErr(err)
	}
	return docstore.DocumentInfo{Name: obj.Key, Size: obj.Size, LastModified: obj.LastModified}, nil
}

func (m *minioClient) List(ctx context.Context, bucket, prefix string) ([]docstore.DocumentInfo, error) {
	documents := make([]docstore.DocumentInfo, 0)
	for object := range m.client.ListObjects(ctx, bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if object.Err != nil {
			return nil, mapMinioErr(object.Err)
		}
		documents = append(documents, docstore.DocumentInfo{
			Name:         object.Key,
			Size:         object.Size,
			LastModified: object.LastModified,
		})
	}
	return documents, nil
}

func (m *minioClient) Delete(ctx context.Context, bucket, key string) error {
	if err := m.client.RemoveObject(ctx, bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return mapMinioErr(err)
	}
	return nil
}

func (m *minioClient) BucketExists(ctx context.Context, bucket string) (bool, error) {
	exists, err := m.client.BucketExists(ctx, bucket)
	if err != nil {
		return false, mapMinioErr(err)
	}
	return exists, nil
}

func (m *minioClient) CreateBucket(ctx context.Context, bucket, region string) error {
	if err := m.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: region}); err != nil {
		return mapMinioErr(err)
	}
	return nil
}

func mapMinioErr(err error) error {
	if err == nil {
		return nil
	}
	var response minio.ErrorResponse
	if errors.As(err, &response) {
		switch response.Code {
		case "NoSuchKey", "NoSuchBucket", "NotFound":
			return docstore.ErrDocumentNotFound
		}
	}
	return err
}
