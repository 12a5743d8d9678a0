package inventory

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	product "github.com/angelmondragon/storefront-backend/internal/products"
	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

type fixture struct {
	conn    *gorm.DB
	svc     Service
	product models.Product
	color   models.ProductColorVariation
	size    models.ProductSizeVariation
}

func newFixture(t *testing.T, stock int) fixture {
	t.Helper()
	conn := dbtest.Open(t)
	p := dbtest.SeedProduct(t, conn, "tee", "19.99")
	c, s := dbtest.SeedVariants(t, conn, "red", "M")
	if stock >= 0 {
		dbtest.SeedStock(t, conn, p.ID, c.ID, s.ID, stock)
	}
	svc, err := NewService(NewRepository(conn), product.NewRepository(conn))
	require.NoError(t, err)
	return fixture{conn: conn, svc: svc, product: p, color: c, size: s}
}

func (f fixture) request(line, qty int) ReservationRequest {
	return ReservationRequest{
		Line:             line,
		ProductID:        f.product.ID,
		ColorVariationID: f.color.ID,
		SizeVariationID:  f.size.ID,
		Quantity:         qty,
	}
}

func TestGetAvailableQuantity(t *testing.T) {
	f := newFixture(t, 7)
	ctx := context.Background()

	qty, err := f.svc.GetAvailableQuantity(ctx, f.product.ID, f.color.ID, f.size.ID)
	require.NoError(t, err)
	require.Equal(t, 7, qty)

	qty, err = f.svc.GetAvailableQuantity(ctx, f.product.ID, f.color.ID, f.size.ID+100)
	require.NoError(t, err)
	require.Zero(t, qty)

	_, err = f.svc.GetAvailableQuantity(ctx, f.product.ID, 0, f.size.ID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestIsInStock(t *testing.T) {
	ctx := context.Background()

	f := newFixture(t, 0)
	ok, err := f.svc.IsInStock(ctx, f.product.ID)
	require.NoError(t, err)
	require.False(t, ok)

	dbtest.SeedStock(t, f.conn, f.product.ID, f.color.ID, f.size.ID+1, 2)
	ok, err = f.svc.IsInStock(ctx, f.product.ID)
	require.NoError(t, err)
	require.True(t, ok)

	missing := newFixture(t, -1)
	ok, err = missing.svc.IsInStock(ctx, missing.product.ID)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestReserveFloorsAtZero(t *testing.T) {
	f := newFixture(t, 5)
	ctx := context.Background()

	err := f.conn.Transaction(func(tx *gorm.DB) error {
		results, err := f.svc.Reserve(ctx, tx, []ReservationRequest{f.request(0, 3), f.request(1, 3), f.request(2, 2)})
		require.NoError(t, err)
		require.Len(t, results, 3)
		require.True(t, results[0].Reserved)
		require.False(t, results[1].Reserved)
		require.Equal(t, ReasonInsufficientStock, results[1].Reason)
		require.True(t, results[2].Reserved)
		require.Len(t, Rejected(results), 1)
		return nil
	})
	require.NoError(t, err)

	qty, err := f.svc.GetAvailableQuantity(ctx, f.product.ID, f.color.ID, f.size.ID)
	require.NoError(t, err)
	require.Zero(t, qty)
}

func TestReserveWithoutRowIsRejected(t *testing.T) {
	f := newFixture(t, -1)
	results, err := f.svc.Reserve(context.Background(), f.conn, []ReservationRequest{f.request(0, 1)})
	require.NoError(t, err)
	require.False(t, results[0].Reserved)
}

func TestReserveRollsBackWithTransaction(t *testing.T) {
	f := newFixture(t, 4)
	ctx := context.Background()

	err := f.conn.Transaction(func(tx *gorm.DB) error {
		_, err := f.svc.Reserve(ctx, tx, []ReservationRequest{f.request(0, 4)})
		require.NoError(t, err)
		return gorm.ErrInvalidTransaction
	})
	require.Error(t, err)

	qty, err := f.svc.GetAvailableQuantity(ctx, f.product.ID, f.color.ID, f.size.ID)
	require.NoError(t, err)
	require.Equal(t, 4, qty)
}

func TestReserveInvalidQuantity(t *testing.T) {
	f := newFixture(t, 5)
	_, err := f.svc.Reserve(context.Background(), f.conn, []ReservationRequest{f.request(0, 0)})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestReleaseRestocksAndRecreatesRows(t *testing.T) {
	f := newFixture(t, 1)
	ctx := context.Background()

	require.NoError(t, f.svc.Release(ctx, f.conn, []ReservationRequest{f.request(0, 2)}))
	qty, err := f.svc.GetAvailableQuantity(ctx, f.product.ID, f.color.ID, f.size.ID)
	require.NoError(t, err)
	require.Equal(t, 3, qty)

	other := f.request(1, 5)
	other.SizeVariationID = f.size.ID + 10
	require.NoError(t, f.svc.Release(ctx, nil, []ReservationRequest{other}))
	qty, err = f.svc.GetAvailableQuantity(ctx, f.product.ID, f.color.ID, other.SizeVariationID)
	require.NoError(t, err)
	require.Equal(t, 5, qty)
}

func TestUpsertSetsAbsoluteQuantity(t *testing.T) {
	f := newFixture(t, -1)
	ctx := context.Background()
	input := UpsertInput{
		ProductID:         f.product.ID,
		ColorVariationID:  f.color.ID,
		SizeVariationID:   f.size.ID,
		AvailableQuantity: 9,
	}

	row, err := f.svc.Upsert(ctx, input)
	require.NoError(t, err)
	require.Equal(t, 9, row.AvailableQuantity)

	input.AvailableQuantity = 2
	row, err = f.svc.Upsert(ctx, input)
	require.NoError(t, err)
	require.Equal(t, 2, row.AvailableQuantity)

	rows, err := f.svc.ListByProduct(ctx, f.product.ID)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	stock, err := f.svc.GetProductStock(ctx, f.product.ID)
	require.NoError(t, err)
	require.True(t, stock.InStock)
	require.Equal(t, 2, stock.Total)
}

func TestUpsertValidation(t *testing.T) {
	f := newFixture(t, -1)
	ctx := context.Background()

	_, err := f.svc.Upsert(ctx, UpsertInput{ProductID: f.product.ID, ColorVariationID: f.color.ID, SizeVariationID: f.size.ID, AvailableQuantity: -1})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = f.svc.Upsert(ctx, UpsertInput{ProductID: 424242, ColorVariationID: f.color.ID, SizeVariationID: f.size.ID})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

type fkFailingRepo struct {
	Repository
}

func (fkFailingRepo) Upsert(context.Context, *models.ProductInventory) (*models.ProductInventory, error) {
	return nil, &pgconn.PgError{Code: "23503", ConstraintName: "product_inventory_product_color_variation_id_fkey"}
}

func TestUpsertUnknownVariationIsValidationError(t *testing.T) {
	f := newFixture(t, -1)
	svc, err := NewService(fkFailingRepo{Repository: NewRepository(f.conn)}, product.NewRepository(f.conn))
	require.NoError(t, err)

	_, err = svc.Upsert(context.Background(), UpsertInput{ProductID: f.product.ID, ColorVariationID: 98, SizeVariationID: 99, AvailableQuantity: 1})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), err)
	require.Contains(t, err.Error(), "98/99")
}

func TestGetAndDeleteByID(t *testing.T) {
	f := newFixture(t, 4)
	ctx := context.Background()

	rows, err := f.svc.ListByProduct(ctx, f.product.ID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	id := rows[0].ID

	row, err := f.svc.Get(ctx, id)
	require.NoError(t, err)
	require.Equal(t, 4, row.AvailableQuantity)

	deleted, err := f.svc.Delete(ctx, id)
	require.NoError(t, err)
	require.Equal(t, id, deleted.ID)

	_, err = f.svc.Get(ctx, id)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
	_, err = f.svc.Delete(ctx, id)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
	_, err = f.svc.Get(ctx, 0)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	results, err := f.svc.Reserve(ctx, f.conn, []ReservationRequest{f.request(0, 1)})
	require.NoError(t, err)
	require.False(t, results[0].Reserved)
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := NewService(nil, nil)
	require.Error(t, err)
}
