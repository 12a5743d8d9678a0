package customers

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
)

func TestExists(t *testing.T) {
	conn := dbtest.Open(t)
	id := dbtest.SeedCustomer(t, conn)
	repo := NewRepository(conn)
	ctx := context.Background()

	ok, err := repo.Exists(ctx, nil, id)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = repo.Exists(ctx, nil, uuid.New())
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = repo.Exists(ctx, nil, uuid.Nil)
	require.NoError(t, err)
	require.False(t, ok)
}
