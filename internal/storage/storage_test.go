package storage_test

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/galatea/internal/config"
	"github.com/oggyb/galatea/internal/storage"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		bucket storage.Bucket
		ct     string
		size   int64
		want   error
	}{
		{"avatar png", storage.BucketAvatars, "image/png", 1024, nil},
		{"avatar gif", storage.BucketAvatars, "image/gif", 1024, nil},
		{"jpg alias", storage.BucketAvatars, "image/jpg", 1024, nil},
		{"charset suffix", storage.BucketAvatars, "image/webp; q=1", 1024, nil},
		{"avatar too big", storage.BucketAvatars, "image/png", 5<<20 + 1, storage.ErrTooLarge},
		{"companion 10MB ok", storage.BucketCompanionImages, "image/jpeg", 10 << 20, nil},
		{"companion gif refused", storage.BucketCompanionImages, "image/gif", 1024, storage.ErrUnsupportedType},
		{"pdf refused", storage.BucketAvatars, "application/pdf", 1024, storage.ErrUnsupportedType},
		{"empty", storage.BucketAvatars, "image/png", 0, storage.ErrEmptyFile},
		{"unknown bucket", storage.Bucket("docs"), "image/png", 1, storage.ErrUnknownBucket},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := storage.Validate(tc.bucket, tc.ct, tc.size)
			if tc.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestSniffKeepsFullStream(t *testing.T) {
	payload := append(append([]byte{}, pngHeader...), bytes.Repeat([]byte{1}, 2000)...)

	ct, r, err := storage.Sniff(bytes.NewReader(payload))
	require.NoError(t, err)
	assert.Equal(t, "image/png", ct)

	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestSniffEmpty(t *testing.T) {
	_, _, err := storage.Sniff(bytes.NewReader(nil))
	assert.ErrorIs(t, err, storage.ErrEmptyFile)
}

func TestExtension(t *testing.T) {
	assert.Equal(t, "jpg", storage.Extension("image/jpeg"))
	assert.Equal(t, "png", storage.Extension("image/png"))
	assert.Equal(t, "webp", storage.Extension("IMAGE/WEBP"))
	assert.Equal(t, "bin", storage.Extension("text/plain"))
}

func TestPathFromURL(t *testing.T) {
	url := "https://res.cloudinary.com/demo/image/upload/v1700000000/galatea/avatars/u1_1700000000.png"
	assert.Equal(t, "u1_1700000000.png", storage.PathFromURL(storage.BucketAvatars, url))
	assert.Equal(t, "a.png", storage.PathFromURL(storage.BucketAvatars, "https://x/avatars/a.png?v=2"))
	assert.Empty(t, storage.PathFromURL(storage.BucketAvatars, "/images/galatea-1.png"))
}

func TestNewCloudinaryRequiresCredentials(t *testing.T) {
	cfg := &config.Config{}
	_, err := storage.NewCloudinary(cfg)
	assert.ErrorIs(t, err, storage.ErrStorageUnavailable)

	cfg.Cloudinary.CloudName = "demo"
	cfg.Cloudinary.APIKey = "key"
	cfg.Cloudinary.APISecret = "secret"
	s, err := storage.NewCloudinary(cfg)
	require.NoError(t, err)
	assert.NotNil(t, s)
}
