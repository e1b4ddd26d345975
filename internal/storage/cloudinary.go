package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	cldconfig "github.com/cloudinary/cloudinary-go/v2/config"

	"github.com/oggyb/galatea/internal/config"
)

// Cloudinary stores objects as Cloudinary images under <root>/<bucket>.
// The object path without its extension becomes the public id.
type Cloudinary struct {
	root     string
	uploader *uploader.API
}

// NewCloudinary builds the store from config.
// Missing credentials return ErrStorageUnavailable.
func NewCloudinary(cfg *config.Config) (*Cloudinary, error) {
	c := cfg.Cloudinary
	if c.CloudName == "" || c.APIKey == "" || c.APISecret == "" {
		return nil, ErrStorageUnavailable
	}
	cc, err := cldconfig.NewFromParams(c.CloudName, c.APIKey, c.APISecret)
	if err != nil {
		return nil, fmt.Errorf("cloudinary config: %w", err)
	}
	up, err := uploader.NewWithConfiguration(cc)
	if err != nil {
		return nil, fmt.Errorf("cloudinary uploader: %w", err)
	}
	return &Cloudinary{root: strings.Trim(c.Folder, "/"), uploader: up}, nil
}

func (s *Cloudinary) folder(bucket Bucket) string {
	if s.root == "" {
		return string(bucket)
	}
	return s.root + "/" + string(bucket)
}

// Upload implements Store.
func (s *Cloudinary) Upload(ctx context.Context, bucket Bucket, objectPath string, r io.Reader) (string, error) {
	if _, err := PolicyFor(bucket); err != nil {
		return "", err
	}
	res, err := s.uploader.Upload(ctx, r, uploader.UploadParams{
		Folder:   s.folder(bucket),
		PublicID: publicID(objectPath),
	})
	if err != nil {
		return "", fmt.Errorf("cloudinary upload: %w", err)
	}
	if res.Error.Message != "" {
		return "", fmt.Errorf("cloudinary upload: %s", res.Error.Message)
	}
	return res.SecureURL, nil
}

// Remove implements Store. Every path is attempted; errors are joined.
func (s *Cloudinary) Remove(ctx context.Context, bucket Bucket, paths []string) error {
	if _, err := PolicyFor(bucket); err != nil {
		return err
	}
	var errs []error
	for _, p := range paths {
		id := s.folder(bucket) + "/" + publicID(p)
		res, err := s.uploader.Destroy(ctx, uploader.DestroyParams{PublicID: id})
		if err != nil {
			errs = append(errs, fmt.Errorf("cloudinary destroy %s: %w", id, err))
			continue
		}
		if res.Error.Message != "" {
			errs = append(errs, fmt.Errorf("cloudinary destroy %s: %s", id, res.Error.Message))
		}
	}
	return errors.Join(errs...)
}

func publicID(objectPath string) string {
	p := strings.Trim(objectPath, "/")
	return strings.TrimSuffix(p, path.Ext(p))
}
