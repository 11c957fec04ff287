package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorRoundTrip(t *testing.T) {
	at := time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC)
	encoded := EncodeCursor(OrderCursor{CreatedAt: at, ID: 42})
	require.NotEmpty(t, encoded)

	decoded, err := DecodeCursor(encoded)
	require.NoError(t, err)
	assert.True(t, decoded.CreatedAt.Equal(at))
	assert.Equal(t, int64(42), decoded.ID)
}

func TestDecodeEmptyCursorStartsFromNow(t *testing.T) {
	decoded, err := DecodeCursor("")
	require.NoError(t, err)
	assert.False(t, decoded.CreatedAt.Before(time.Now().Add(-time.Minute)))
	assert.Equal(t, int64(1<<63-1), decoded.ID)
}

func TestDecodeBadCursor(t *testing.T) {
	_, err := DecodeCursor("not base64!!!")
	assert.Error(t, err)
}

func TestNewOffsetPage(t *testing.T) {
	page := newOffsetPage([]int{1, 2, 3}, 3, 10, 1, 3)
	assert.Equal(t, 4, page.TotalPages)
	assert.Equal(t, int64(10), page.Total)

	exact := newOffsetPage([]int{1, 2}, 2, 6, 3, 2)
	assert.Equal(t, 3, exact.TotalPages)
}
