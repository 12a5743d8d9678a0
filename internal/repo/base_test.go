package repo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

func TestConnPrefersTransaction(t *testing.T) {
	conn := dbtest.Open(t)
	base := NewBase(conn)
	ctx := context.Background()

	err := conn.Transaction(func(tx *gorm.DB) error {
		require.NoError(t, base.Conn(ctx, tx).Create(&models.ProductColorVariation{Color: "red"}).Error)

		var count int64
		require.NoError(t, base.Conn(ctx, tx).Model(&models.ProductColorVariation{}).Count(&count).Error)
		require.EqualValues(t, 1, count)
		return gorm.ErrInvalidTransaction
	})
	require.ErrorIs(t, err, gorm.ErrInvalidTransaction)

	var count int64
	require.NoError(t, base.DB(ctx).Model(&models.ProductColorVariation{}).Count(&count).Error)
	require.Zero(t, count)
}
