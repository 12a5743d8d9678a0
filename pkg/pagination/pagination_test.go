package pagination

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestNormalizeLimit(t *testing.T) {
	require.Equal(t, DefaultLimit, NormalizeLimit(0))
	require.Equal(t, DefaultLimit, NormalizeLimit(-4))
	require.Equal(t, 7, NormalizeLimit(7))
	require.Equal(t, MaxLimit, NormalizeLimit(MaxLimit+50))
	require.Equal(t, 8, LimitWithBuffer(7))
}

func TestCursorRoundTrip(t *testing.T) {
	want := Cursor{CreatedAt: time.Date(2026, 3, 1, 9, 30, 0, 1500, time.UTC), ID: uuid.New()}

	token := EncodeCursor(want)
	require.NotContains(t, token, "=")
	require.NotContains(t, token, "+")

	got, err := ParseCursor(token)
	require.NoError(t, err)
	require.True(t, want.CreatedAt.Equal(got.CreatedAt))
	require.Equal(t, want.ID, got.ID)
}

func TestParseCursorRejectsGarbage(t *testing.T) {
	got, err := ParseCursor("  ")
	require.NoError(t, err)
	require.Nil(t, got)

	for _, token := range []string{"%%%", "bm8tc2VwYXJhdG9y", "bm90LWEtdGltZXxhYmM"} {
		_, err := ParseCursor(token)
		require.Error(t, err, token)
	}
}

type row struct {
	at time.Time
	id uuid.UUID
}

func TestTrim(t *testing.T) {
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	rows := make([]row, 3)
	for i := range rows {
		rows[i] = row{at: base.Add(-time.Duration(i) * time.Minute), id: uuid.New()}
	}
	position := func(r row) Cursor { return Cursor{CreatedAt: r.at, ID: r.id} }

	page, next := Trim(rows, 2, position)
	require.Len(t, page, 2)
	require.NotEmpty(t, next)

	cursor, err := ParseCursor(next)
	require.NoError(t, err)
	require.Equal(t, rows[1].id, cursor.ID)

	page, next = Trim(rows[:2], 2, position)
	require.Len(t, page, 2)
	require.Empty(t, next)
}
