package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorRoundTrip(t *testing.T) {
	cursor := OrderCursor{
		CreatedAt: time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC),
		ID:        1234,
	}

	decoded, err := DecodeCursor(EncodeCursor(cursor))
	require.NoError(t, err)
	assert.True(t, decoded.CreatedAt.Equal(cursor.CreatedAt))
	assert.Equal(t, cursor.ID, decoded.ID)
}

func TestDecodeEmptyCursorStartsAtTop(t *testing.T) {
	decoded, err := DecodeCursor("")
	require.NoError(t, err)
	assert.Equal(t, int64(1<<63-1), decoded.ID)
	assert.WithinDuration(t, time.Now(), decoded.CreatedAt, time.Minute)
}

func TestDecodeGarbageCursor(t *testing.T) {
	_, err := DecodeCursor("!!not-base64!!")
	assert.Error(t, err)
}

func TestNewOffsetPage(t *testing.T) {
	page := newOffsetPage(nil, 45, 2, 20)
	assert.Equal(t, int64(45), page.Total)
	assert.Equal(t, 3, page.TotalPages)

	page = newOffsetPage(nil, 40, 1, 20)
	assert.Equal(t, 2, page.TotalPages)

	page = newOffsetPage(nil, 0, 1, 20)
	assert.Equal(t, 0, page.TotalPages)
}
