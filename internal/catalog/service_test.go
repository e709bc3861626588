package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/pieshop-backend/pkg/db/dbtest"
	"github.com/angelmondragon/pieshop-backend/pkg/db/models"
	"github.com/angelmondragon/pieshop-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/pieshop-backend/pkg/errors"
)

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	conn := dbtest.Open(t)
	svc, err := NewService(NewRepository(conn))
	require.NoError(t, err)
	return svc, conn
}

func TestListItemsKeepsInsertionOrderPerCategory(t *testing.T) {
	svc, conn := newTestService(t)
	apple := dbtest.CreateItem(t, conn, "Apple", "16.80", enums.ItemCategorySweet)
	dbtest.CreateItem(t, conn, "Steak", "21.00", enums.ItemCategorySavory)
	cherry := dbtest.CreateItem(t, conn, "Cherry", "18.00", enums.ItemCategorySweet)

	items, err := svc.ListItems(context.Background(), enums.ItemCategorySweet)
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, apple.ID, items[0].ID)
	require.Equal(t, cherry.ID, items[1].ID)

	all, err := svc.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 3)
}

func TestListItemsRejectsUnknownCategory(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.ListItems(context.Background(), enums.ItemCategory("vegan"))
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestGetItemNotFound(t *testing.T) {
	svc, conn := newTestService(t)
	pie := dbtest.CreateItem(t, conn, "Pumpkin", "15.00", enums.ItemCategorySweet)

	got, err := svc.GetItem(context.Background(), pie.ID)
	require.NoError(t, err)
	require.Equal(t, "Pumpkin", got.Name)
	require.True(t, got.Price.Equal(decimal.RequireFromString("15")))

	_, err = svc.GetItem(context.Background(), uuid.New())
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = svc.GetItem(context.Background(), uuid.Nil)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestListPromotedFollowsRepositoryWrites(t *testing.T) {
	ctx := context.Background()
	svc, conn := newTestService(t)
	repo := NewRepository(conn)
	pie := dbtest.CreateItem(t, conn, "Pecan", "20.00", enums.ItemCategorySweet)
	dbtest.CreateItem(t, conn, "Chicken", "19.00", enums.ItemCategorySavory)

	require.NoError(t, repo.ApplyPromotion(ctx, pie.ID, decimal.RequireFromString("0.20")))

	promoted, err := svc.ListPromoted(ctx)
	require.NoError(t, err)
	require.Len(t, promoted, 1)
	require.Equal(t, pie.ID, promoted[0].ID)
	require.Equal(t, "16.00", DisplayPrice(promoted[0]).StringFixed(2))

	cleared, err := repo.ClearAllPromotions(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, cleared)
	promoted, err = svc.ListPromoted(ctx)
	require.NoError(t, err)
	require.Empty(t, promoted)

	var discounted int64
	require.NoError(t, conn.Model(&models.Item{}).Where("discount <> ?", decimal.Zero).Count(&discounted).Error)
	require.Zero(t, discounted)
}

func TestApplyPromotionMissingItem(t *testing.T) {
	repo := NewRepository(dbtest.Open(t))
	err := repo.ApplyPromotion(context.Background(), uuid.New(), decimal.RequireFromString("0.2"))
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestSinglePromotionIndexRejectsSecondPromotedItem(t *testing.T) {
	ctx := context.Background()
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	first := dbtest.CreateItem(t, conn, "Lemon", "17.00", enums.ItemCategorySweet)
	second := dbtest.CreateItem(t, conn, "Mince", "17.50", enums.ItemCategorySavory)

	require.NoError(t, repo.ApplyPromotion(ctx, first.ID, decimal.RequireFromString("0.2")))
	require.Error(t, repo.ApplyPromotion(ctx, second.ID, decimal.RequireFromString("0.2")))
}

func TestDataLayerFaultMapsToDependency(t *testing.T) {
	conn, mock := dbtest.Mock(t)
	svc, err := NewService(NewRepository(conn))
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT \* FROM "items"`).WillReturnError(errors.New("connection reset"))

	_, err = svc.ListAll(context.Background())
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
	require.ErrorContains(t, errors.Unwrap(err), "connection reset")
	require.NoError(t, mock.ExpectationsWereMet())
}
