// Package storage is the gateway to the private S3-compatible bucket
// holding event images. Clients never receive bucket credentials; they get
// short-lived presigned URLs and fetch the bytes from the store directly.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ErrSigning indicates the storage client could not produce a presigned
// URL. It signals misconfiguration (endpoint, credentials), not client
// fault; handlers answer 5xx.
var ErrSigning = errors.New("signing failed")

// KeyPrefix namespaces every object this service writes. Sign refuses keys
// outside of it so the gateway can never be used to leak unrelated objects
// from a shared bucket.
const KeyPrefix = "events/"

// Signer wraps a minio client bound to one bucket. R2-style endpoints need
// path-style addressing and V4 signatures, which is exactly what the
// static-V4 credential provider and path bucket lookup give us.
type Signer struct {
	client     *minio.Client
	bucket     string
	defaultTTL time.Duration
}

// NewSigner builds a Signer from configuration. region is "auto" for R2.
func NewSigner(endpoint, accessKey, secretKey, bucket, region string, useSSL bool, defaultTTLSec int) (*Signer, error) {
	if endpoint == "" || accessKey == "" || secretKey == "" || bucket == "" {
		return nil, fmt.Errorf("%w: storage endpoint/credentials/bucket not configured", ErrSigning)
	}
	client, err := minio.New(endpoint, &minio.Options{
		Creds:        credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure:       useSSL,
		Region:       region,
		BucketLookup: minio.BucketLookupPath,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSigning, err)
	}
	return &Signer{
		client:     client,
		bucket:     bucket,
		defaultTTL: time.Duration(defaultTTLSec) * time.Second,
	}, nil
}

// DefaultTTL returns the configured presign lifetime.
func (s *Signer) DefaultTTL() time.Duration { return s.defaultTTL }

// SignGet produces a presigned GET URL for one object key, valid for ttl.
// A non-positive ttl means the configured default. Every call recomputes
// the signature; URLs are intentionally not cached or reused.
func (s *Signer) SignGet(ctx context.Context, key string, ttl time.Duration) (*url.URL, error) {
	if !strings.HasPrefix(key, KeyPrefix) {
		return nil, fmt.Errorf("%w: key outside %q namespace", ErrSigning, KeyPrefix)
	}
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, ttl, url.Values{})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSigning, err)
	}
	return u, nil
}

// NewKey returns a fresh object key for an uploaded file, keeping the
// original extension. Keys are random so replacing an image never reuses a
// URL path a client may have cached.
func NewKey(filename string) string {
	return KeyPrefix + uuid.NewString() + strings.ToLower(path.Ext(filename))
}

// Upload stores one object in the bucket.
func (s *Signer) Upload(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	return err
}

// Remove deletes one object. Removing a missing object is not an error on
// S3-compatible stores, which suits the replace/delete flows.
func (s *Signer) Remove(ctx context.Context, key string) error {
	return s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{})
}
