// Package storage keeps payment proof files and hands out time-limited URLs
// for them.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// ProofsBucket holds proof-of-payment attachments.
const ProofsBucket = "payment-proofs"

var (
	ErrNotFound     = errors.New("object not found")
	ErrInvalidPath  = errors.New("invalid object path")
	ErrInvalidToken = errors.New("invalid or expired file token")
)

// proofTypes are the only attachment kinds accepted and served inline.
var proofTypes = map[string]string{
	".pdf":  "application/pdf",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
}

// ProofContentType returns the content type for a proof file name, judged by
// its extension. ok is false for anything outside the allowed set.
func ProofContentType(name string) (contentType string, ok bool) {
	contentType, ok = proofTypes[strings.ToLower(path.Ext(name))]
	return contentType, ok
}

// Blob is the object storage contract: store bytes, get a URL valid for ttl,
// delete by path.
type Blob interface {
	Upload(ctx context.Context, bucket, objectPath string, r io.Reader) (string, error)
	SignedURL(ctx context.Context, bucket, objectPath string, ttl time.Duration) (string, error)
	Remove(ctx context.Context, bucket, objectPath string) error
}

// LocalStore is a Blob on the local filesystem. Each bucket is a directory
// under root; signed URLs point back at this service's /files endpoint.
type LocalStore struct {
	root    string
	baseURL string
	signer  *URLSigner
}

func NewLocalStore(root, baseURL string, signer *URLSigner) (*LocalStore, error) {
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return &LocalStore{
		root:    root,
		baseURL: strings.TrimRight(baseURL, "/"),
		signer:  signer,
	}, nil
}

func (s *LocalStore) resolve(bucket, objectPath string) (string, error) {
	if bucket == "" || strings.ContainsAny(bucket, `/\`) || bucket == "." || bucket == ".." {
		return "", ErrInvalidPath
	}
	clean := path.Clean("/" + objectPath)
	if clean == "/" || clean != "/"+objectPath {
		return "", ErrInvalidPath
	}
	return filepath.Join(s.root, bucket, filepath.FromSlash(clean[1:])), nil
}

func (s *LocalStore) Upload(ctx context.Context, bucket, objectPath string, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	full, err := s.resolve(bucket, objectPath)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o750); err != nil {
		return "", fmt.Errorf("create object dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(full), ".upload-*")
	if err != nil {
		return "", fmt.Errorf("create temp object: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write object: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close object: %w", err)
	}
	if err := os.Rename(tmp.Name(), full); err != nil {
		return "", fmt.Errorf("store object: %w", err)
	}
	return objectPath, nil
}

func (s *LocalStore) SignedURL(ctx context.Context, bucket, objectPath string, ttl time.Duration) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	full, err := s.resolve(bucket, objectPath)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(full); err != nil {
		if os.IsNotExist(err) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("stat object: %w", err)
	}

	token, err := s.signer.Sign(bucket, objectPath, ttl)
	if err != nil {
		return "", err
	}
	return s.baseURL + "/files?token=" + url.QueryEscape(token), nil
}

// Remove deletes an object. Removing a missing object is not an error.
func (s *LocalStore) Remove(ctx context.Context, bucket, objectPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	full, err := s.resolve(bucket, objectPath)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove object: %w", err)
	}
	return nil
}

// Open verifies a signed token and opens the object it names.
func (s *LocalStore) Open(ctx context.Context, token string) (io.ReadCloser, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}
	bucket, objectPath, err := s.signer.Verify(token)
	if err != nil {
		return nil, "", err
	}
	full, err := s.resolve(bucket, objectPath)
	if err != nil {
		return nil, "", err
	}
	f, err := os.Open(full)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", ErrNotFound
		}
		return nil, "", fmt.Errorf("open object: %w", err)
	}
	return f, path.Base(objectPath), nil
}
