package pagination

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorRoundTrip(t *testing.T) {
	ts := time.Date(2026, 3, 1, 12, 0, 0, 123_000_000, time.UTC)
	token, err := Encode(At("abc", ts))
	require.NoError(t, err)

	c, err := Decode(token)
	require.NoError(t, err)
	assert.Equal(t, "abc", c.ID)
	assert.True(t, ts.Equal(c.Time()))
	assert.False(t, c.IsZero())
}

func TestDecodeEmptyAndGarbage(t *testing.T) {
	c, err := Decode("")
	require.NoError(t, err)
	assert.True(t, c.IsZero())

	_, err = Decode("%%%")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, 50, ClampLimit(0, 50, 100))
	assert.Equal(t, 100, ClampLimit(500, 50, 100))
	assert.Equal(t, 7, ClampLimit(7, 50, 100))
}
