package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"challan-backend/internal/apperr"
	"challan-backend/internal/config"
	"challan-backend/internal/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// ErrShareUnavailable is returned by a ShareSurface that cannot share on
// this deployment. The cached file is then returned directly.
var ErrShareUnavailable = errors.New("storage: sharing unavailable")

// ShareSurface hands a cached document to the user and returns the URI
// they can open it from
type ShareSurface interface {
	Share(ctx context.Context, doc *models.ChallanDocument, localPath string) (string, error)
}

// SharePersister writes to a cache directory and then shares the file
type SharePersister struct {
	cacheDir string
	surface  ShareSurface
}

func NewSharePersister(cacheDir string, surface ShareSurface) *SharePersister {
	return &SharePersister{cacheDir: cacheDir, surface: surface}
}

func (p *SharePersister) Strategy() string { return config.StrategyShare }

func (p *SharePersister) Save(ctx context.Context, doc *models.ChallanDocument, suggestedName string) (*models.SaveResult, error) {
	const op = "storage.share.save"

	name := suggestedName
	if name == "" {
		name = doc.Filename
	}
	if err := validName(name); err != nil {
		return nil, apperr.Wrap(apperr.WriteFailure, op, err)
	}

	if err := os.MkdirAll(p.cacheDir, 0o755); err != nil {
		return nil, apperr.Wrap(apperr.WriteFailure, op, classifyFS(op, err))
	}
	// one directory per document so equal month names never collide
	dir, err := os.MkdirTemp(p.cacheDir, "challan-*")
	if err != nil {
		return nil, apperr.Wrap(apperr.WriteFailure, op, classifyFS(op, err))
	}
	local := filepath.Join(dir, name)
	if err := os.WriteFile(local, doc.Bytes, 0o644); err != nil {
		discard(dir)
		return nil, apperr.Wrap(apperr.WriteFailure, op, classifyFS(op, err))
	}

	abs, err := filepath.Abs(local)
	if err != nil {
		abs = local
	}
	result := &models.SaveResult{URI: FileURI(abs), Filename: name, MimeType: doc.MimeType}

	if p.surface == nil {
		return result, nil
	}

	uri, err := p.surface.Share(ctx, doc, abs)
	if errors.Is(err, ErrShareUnavailable) {
		log.Printf("[Storage] Sharing unavailable, returning cached file %s", abs)
		return result, nil
	}
	// the cached copy only backs the file:// fallback
	discard(dir)
	if err != nil {
		return nil, apperr.Wrap(apperr.WriteFailure, op, err)
	}

	result.URI = uri
	return result, nil
}

func discard(dir string) {
	if err := os.RemoveAll(dir); err != nil {
		log.Printf("[Storage] Failed to remove cache dir %s: %v", dir, err)
	}
}

// Presigner creates presigned GET requests
type Presigner interface {
	PresignGetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// BucketShare uploads the document under a random key and returns a
// presigned download link
type BucketShare struct {
	client  S3API
	presign Presigner
	bucket  string
	prefix  string
	ttl     time.Duration
}

func NewBucketShare(client S3API, presign Presigner, bucket, prefix string, ttl time.Duration) *BucketShare {
	prefix = strings.Trim(prefix, "/")
	if prefix != "" {
		prefix += "/"
	}
	return &BucketShare{client: client, presign: presign, bucket: bucket, prefix: prefix, ttl: ttl}
}

func (b *BucketShare) Share(ctx context.Context, doc *models.ChallanDocument, localPath string) (string, error) {
	if b == nil || b.client == nil || b.presign == nil {
		return "", ErrShareUnavailable
	}

	key := fmt.Sprintf("%sshared/%s/%s", b.prefix, uuid.New().String(), filepath.Base(localPath))
	_, err := b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:             aws.String(b.bucket),
		Key:                aws.String(key),
		Body:               bytes.NewReader(doc.Bytes),
		ContentType:        aws.String(doc.MimeType),
		ContentDisposition: aws.String(fmt.Sprintf("attachment; filename=%q", doc.Filename)),
	})
	if err != nil {
		return "", classifyS3("storage.share.upload", err)
	}

	req, err := b.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(b.ttl))
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", key, err)
	}
	return req.URL, nil
}
