package post

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursor_RoundTrip(t *testing.T) {
	c := Cursor{
		ScheduledAt: time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC),
		ID:          uuid.Must(uuid.NewV4()),
	}

	decoded, err := DecodeCursor(c.Encode())
	require.NoError(t, err)
	assert.True(t, c.ScheduledAt.Equal(decoded.ScheduledAt))
	assert.Equal(t, c.ID, decoded.ID)
}

func TestDecodeCursor_RejectsGarbage(t *testing.T) {
	cases := []string{
		"not-base64 at all!!!",
		base64.URLEncoding.EncodeToString([]byte("not json")),
		base64.URLEncoding.EncodeToString([]byte(`{"scheduled_at":"2026-01-01T00:00:00Z"}`)), // nil id
		base64.URLEncoding.EncodeToString([]byte(`{"scheduled_at":"nope","id":"x"}`)),
	}
	for _, c := range cases {
		_, err := DecodeCursor(c)
		assert.ErrorIs(t, err, ErrInvalidCursor, "cursor %q", c)
	}
}

func TestParseStatus(t *testing.T) {
	for _, s := range []string{"draft", "scheduled", "publishing", "published", "failed"} {
		got, err := ParseStatus(s)
		require.NoError(t, err)
		assert.Equal(t, Status(s), got)
	}

	_, err := ParseStatus("archived")
	assert.Error(t, err)
}

func TestMediaURLs_ValueScan(t *testing.T) {
	m := MediaURLs{"https://cdn.example/a.png", "https://cdn.example/b.png"}

	v, err := m.Value()
	require.NoError(t, err)

	var got MediaURLs
	require.NoError(t, got.Scan(v))
	assert.Equal(t, m, got)

	var empty MediaURLs
	require.NoError(t, empty.Scan(nil))
	assert.Empty(t, empty)
}
