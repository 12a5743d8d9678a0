package product

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
)

func TestFindExistingIDsReturnsOnlyKnownProducts(t *testing.T) {
	conn := dbtest.Open(t)
	first := dbtest.SeedProduct(t, conn, "tee", "19.99")
	second := dbtest.SeedProduct(t, conn, "hoodie", "49.50")

	repo := NewRepository(conn)
	found, err := repo.FindExistingIDs(context.Background(), nil, []int64{second.ID, 999999, first.ID, first.ID})
	require.NoError(t, err)
	require.ElementsMatch(t, []int64{first.ID, second.ID}, found)

	require.Equal(t, []int64{999999}, Missing([]int64{second.ID, 999999, first.ID}, found))
}

func TestFindExistingWithinTransaction(t *testing.T) {
	conn := dbtest.Open(t)
	product := dbtest.SeedProduct(t, conn, "cap", "10.00")

	repo := NewRepository(conn)
	tx := conn.Begin()
	defer tx.Rollback()

	rows, err := repo.FindExisting(context.Background(), tx, []int64{product.ID})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "cap", rows[0].Name)
	require.True(t, rows[0].SellingPrice.Equal(decimal.RequireFromString("10.00")))
}

func TestFindExistingEmptyInput(t *testing.T) {
	repo := NewRepository(dbtest.Open(t))
	rows, err := repo.FindExistingIDs(context.Background(), nil, nil)
	require.NoError(t, err)
	require.Empty(t, rows)
}

func TestMinorUnits(t *testing.T) {
	require.Equal(t, int64(1999), MinorUnits(decimal.RequireFromString("19.99")))
	require.Equal(t, int64(1000), MinorUnits(decimal.RequireFromString("10")))
	require.Equal(t, int64(1235), MinorUnits(decimal.RequireFromString("12.345")))
}

func TestSizeLabel(t *testing.T) {
	require.Equal(t, "M", SizeLabel(json.RawMessage(`"M"`)))
	require.Equal(t, "XL", SizeLabel(json.RawMessage(`{"label":"XL","chest":44}`)))
	require.Equal(t, "[1,2]", SizeLabel(json.RawMessage(`[1,2]`)))
	require.Equal(t, "", SizeLabel(nil))
	require.Equal(t, "", SizeLabel(json.RawMessage(`null`)))
}
