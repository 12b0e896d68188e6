package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime"
	"net/url"
	"path"
	"strings"

	"challan-backend/internal/apperr"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

const dirContentType = "application/x-directory"

// S3API is the subset of the S3 client the bucket tree uses
type S3API interface {
	HeadBucket(ctx context.Context, in *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// BucketTree is a Tree over an S3 compatible bucket. Directories are key
// prefixes ending in "/" with an empty marker object; URIs look like
// s3://bucket/prefix/key.
type BucketTree struct {
	client S3API
	bucket string
	prefix string
}

func NewBucketTree(client S3API, bucket, prefix string) *BucketTree {
	prefix = strings.Trim(prefix, "/")
	if prefix != "" {
		prefix += "/"
	}
	return &BucketTree{client: client, bucket: bucket, prefix: prefix}
}

func (t *BucketTree) Root(ctx context.Context) (string, error) {
	_, err := t.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(t.bucket)})
	if err != nil {
		if isNotFound(err) {
			return "", apperr.Wrap(apperr.PermissionDenied, "storage.root", fmt.Errorf("bucket %s not found: %w", t.bucket, err))
		}
		return "", classifyS3("storage.root", err)
	}
	return t.uri(t.prefix), nil
}

func (t *BucketTree) Exists(ctx context.Context, uri string) (bool, error) {
	key, err := t.key(uri)
	if err != nil {
		return false, nil
	}
	if key == "" {
		_, err := t.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(t.bucket)})
		return t.existsResult(err)
	}

	_, err = t.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: aws.String(t.bucket), Key: aws.String(key)})
	if err == nil || !isNotFound(err) || !strings.HasSuffix(key, "/") {
		return t.existsResult(err)
	}

	// A directory without a marker still exists while it has children
	out, err := t.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(t.bucket),
		Prefix:  aws.String(key),
		MaxKeys: aws.Int32(1),
	})
	if err != nil {
		return false, classifyS3("storage.exists", err)
	}
	return len(out.Contents) > 0 || len(out.CommonPrefixes) > 0, nil
}

func (t *BucketTree) existsResult(err error) (bool, error) {
	if err == nil {
		return true, nil
	}
	if isNotFound(err) {
		return false, nil
	}
	return false, classifyS3("storage.exists", err)
}

func (t *BucketTree) List(ctx context.Context, dirURI string) ([]Entry, error) {
	dir, err := t.dirKey(dirURI)
	if err != nil {
		return nil, err
	}

	var entries []Entry
	p := s3.NewListObjectsV2Paginator(t.client, &s3.ListObjectsV2Input{
		Bucket:    aws.String(t.bucket),
		Prefix:    aws.String(dir),
		Delimiter: aws.String("/"),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, classifyS3("storage.list", err)
		}
		for _, cp := range page.CommonPrefixes {
			key := aws.ToString(cp.Prefix)
			entries = append(entries, Entry{Name: path.Base(key), URI: t.uri(key), IsDir: true})
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if key == dir {
				continue
			}
			entries = append(entries, Entry{Name: path.Base(key), URI: t.uri(key)})
		}
	}
	return entries, nil
}

func (t *BucketTree) MakeDir(ctx context.Context, parentURI, name string) (string, error) {
	if err := validName(name); err != nil {
		return "", err
	}
	parent, err := t.dirKey(parentURI)
	if err != nil {
		return "", err
	}
	key := parent + name + "/"
	_, err = t.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(t.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(nil),
		ContentType: aws.String(dirContentType),
	})
	if err != nil {
		return "", classifyS3("storage.mkdir", err)
	}
	return t.uri(key), nil
}

// CreateFile reserves a key with a conditional put so concurrent writers
// never claim the same name.
func (t *BucketTree) CreateFile(ctx context.Context, parentURI, name, mimeType string) (Entry, error) {
	if err := validName(name); err != nil {
		return Entry{}, err
	}
	parent, err := t.dirKey(parentURI)
	if err != nil {
		return Entry{}, err
	}

	for n := 0; n < maxDuplicates; n++ {
		candidate := dedupName(name, n)
		key := parent + candidate
		_, err := t.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(t.bucket),
			Key:         aws.String(key),
			Body:        bytes.NewReader(nil),
			ContentType: aws.String(mimeType),
			IfNoneMatch: aws.String("*"),
		})
		if isPreconditionFailed(err) {
			continue
		}
		if err != nil {
			return Entry{}, classifyS3("storage.create", err)
		}
		return Entry{Name: candidate, URI: t.uri(key)}, nil
	}
	return Entry{}, errNoFreeName
}

func (t *BucketTree) Write(ctx context.Context, fileURI string, data []byte) error {
	key, err := t.key(fileURI)
	if err != nil {
		return err
	}
	contentType := mime.TypeByExtension(path.Ext(key))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	_, err = t.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(t.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return classifyS3("storage.write", err)
	}
	return nil
}

func (t *BucketTree) Remove(ctx context.Context, uri string) error {
	key, err := t.key(uri)
	if err != nil {
		return err
	}
	_, err = t.client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: aws.String(t.bucket), Key: aws.String(key)})
	if err != nil && !isNotFound(err) {
		return classifyS3("storage.remove", err)
	}
	return nil
}

func (t *BucketTree) uri(key string) string {
	return (&url.URL{Scheme: "s3", Host: t.bucket, Path: "/" + key}).String()
}

// key decodes uri and checks it lies below the tree's prefix
func (t *BucketTree) key(uri string) (string, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", fmt.Errorf("storage: bad uri %q: %w", uri, err)
	}
	if u.Scheme != "s3" || u.Host != t.bucket {
		return "", apperr.New(apperr.PermissionDenied, "storage.key", uri+" is outside the storage root")
	}
	key := strings.TrimPrefix(u.Path, "/")
	if !strings.HasPrefix(key, t.prefix) {
		return "", apperr.New(apperr.PermissionDenied, "storage.key", uri+" is outside the storage root")
	}
	return key, nil
}

func (t *BucketTree) dirKey(uri string) (string, error) {
	key, err := t.key(uri)
	if err != nil {
		return "", err
	}
	if key != "" && !strings.HasSuffix(key, "/") {
		key += "/"
	}
	return key, nil
}

func apiCode(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}
	return ""
}

func isNotFound(err error) bool {
	switch apiCode(err) {
	case "NotFound", "NoSuchKey", "NoSuchBucket":
		return true
	}
	return false
}

func isPreconditionFailed(err error) bool {
	switch apiCode(err) {
	case "PreconditionFailed", "ConditionalRequestConflict":
		return true
	}
	return false
}

func classifyS3(op string, err error) error {
	switch apiCode(err) {
	case "AccessDenied", "Forbidden", "InvalidAccessKeyId", "SignatureDoesNotMatch", "AllAccessDisabled":
		return apperr.Wrap(apperr.PermissionDenied, op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
