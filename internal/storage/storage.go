package storage

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Bucket names a group of stored objects with its own upload policy.
type Bucket string

const (
	BucketAvatars         Bucket = "avatars"
	BucketCompanionImages Bucket = "companion-images"
)

// Policy limits what a bucket accepts.
type Policy struct {
	MaxBytes     int64
	ContentTypes []string
}

var policies = map[Bucket]Policy{
	BucketAvatars: {
		MaxBytes:     5 << 20,
		ContentTypes: []string{"image/jpeg", "image/png", "image/gif", "image/webp"},
	},
	BucketCompanionImages: {
		MaxBytes:     10 << 20,
		ContentTypes: []string{"image/jpeg", "image/png", "image/webp"},
	},
}

var (
	ErrUnknownBucket      = errors.New("storage: unknown bucket")
	ErrTooLarge           = errors.New("storage: file too large")
	ErrUnsupportedType    = errors.New("storage: unsupported content type")
	ErrEmptyFile          = errors.New("storage: empty file")
	ErrStorageUnavailable = errors.New("storage: not configured")
)

// Store is the object storage boundary.
type Store interface {
	// Upload stores r under bucket/path and returns its public URL.
	Upload(ctx context.Context, bucket Bucket, path string, r io.Reader) (string, error)
	// Remove deletes the objects at bucket/paths. Missing objects are not an error.
	Remove(ctx context.Context, bucket Bucket, paths []string) error
}

// PolicyFor returns the upload policy of bucket.
func PolicyFor(bucket Bucket) (Policy, error) {
	p, ok := policies[bucket]
	if !ok {
		return Policy{}, ErrUnknownBucket
	}
	return p, nil
}

// Validate checks size and content type against the bucket policy.
func Validate(bucket Bucket, contentType string, size int64) error {
	p, err := PolicyFor(bucket)
	if err != nil {
		return err
	}
	if size <= 0 {
		return ErrEmptyFile
	}
	if size > p.MaxBytes {
		return fmt.Errorf("%w: %d bytes exceeds %d", ErrTooLarge, size, p.MaxBytes)
	}
	ct := normalizeContentType(contentType)
	for _, allowed := range p.ContentTypes {
		if ct == allowed {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrUnsupportedType, ct)
}

// Sniff detects the content type from the first bytes of r.
// The returned reader still yields the full stream.
func Sniff(r io.Reader) (string, io.Reader, error) {
	br := bufio.NewReaderSize(r, 512)
	head, err := br.Peek(512)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return "", nil, err
	}
	if len(head) == 0 {
		return "", nil, ErrEmptyFile
	}
	return normalizeContentType(http.DetectContentType(head)), br, nil
}

// Extension maps an accepted content type to a file extension.
func Extension(contentType string) string {
	switch normalizeContentType(contentType) {
	case "image/jpeg":
		return "jpg"
	case "image/png":
		return "png"
	case "image/gif":
		return "gif"
	case "image/webp":
		return "webp"
	default:
		return "bin"
	}
}

// PathFromURL recovers the object path from a public URL returned by Upload.
// It returns "" when the URL does not point into bucket.
func PathFromURL(bucket Bucket, publicURL string) string {
	marker := "/" + string(bucket) + "/"
	i := strings.LastIndex(publicURL, marker)
	if i < 0 {
		return ""
	}
	p := publicURL[i+len(marker):]
	if j := strings.IndexAny(p, "?#"); j >= 0 {
		p = p[:j]
	}
	return p
}

func normalizeContentType(ct string) string {
	ct = strings.ToLower(strings.TrimSpace(ct))
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	if ct == "image/jpg" {
		return "image/jpeg"
	}
	return ct
}
