package cart

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/angelmondragon/pieshop-backend/internal/catalog"
	"github.com/angelmondragon/pieshop-backend/internal/locks"
	"github.com/angelmondragon/pieshop-backend/pkg/db/dbtest"
	"github.com/angelmondragon/pieshop-backend/pkg/db/models"
	"github.com/angelmondragon/pieshop-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/pieshop-backend/pkg/errors"
	"github.com/angelmondragon/pieshop-backend/pkg/logger"
)

type fixture struct {
	svc     Service
	conn    *gorm.DB
	catalog *catalog.Repository
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	conn := dbtest.Open(t)
	items := catalog.NewRepository(conn)
	svc, err := NewService(
		NewRepository(conn),
		items,
		locks.NewLocal(time.Second),
		logger.New(logger.Options{ServiceName: "cart-test", Output: io.Discard}),
	)
	require.NoError(t, err)
	return fixture{svc: svc, conn: conn, catalog: items}
}

func TestAddSameItemTwiceMergesIntoOneRow(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	pie := dbtest.CreateItem(t, f.conn, "Apple", "16.80", enums.ItemCategorySweet)

	first, err := f.svc.AddItem(ctx, 42, pie.ID, 1)
	require.NoError(t, err)
	second, err := f.svc.AddItem(ctx, 42, pie.ID, 1)
	require.NoError(t, err)

	require.Equal(t, first.ID, second.ID)
	require.Equal(t, 2, second.Quantity)
	require.Equal(t, enums.LineItemStatusPending, second.Status)
	require.NotNil(t, second.Item)

	rows, err := f.svc.GetCart(ctx, 42)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, 2, rows[0].Quantity)
}

func TestGetCartIsPerUserInCreationOrder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	apple := dbtest.CreateItem(t, f.conn, "Apple", "16.80", enums.ItemCategorySweet)
	steak := dbtest.CreateItem(t, f.conn, "Steak", "21.00", enums.ItemCategorySavory)

	_, err := f.svc.AddItem(ctx, 1, steak.ID, 1)
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	_, err = f.svc.AddItem(ctx, 1, apple.ID, 3)
	require.NoError(t, err)
	_, err = f.svc.AddItem(ctx, 2, apple.ID, 1)
	require.NoError(t, err)

	rows, err := f.svc.GetCart(ctx, 1)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, steak.ID, rows[0].ItemID)
	require.Equal(t, apple.ID, rows[1].ItemID)
	require.Equal(t, 3, rows[1].Quantity)
}

func TestAddItemValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	pie := dbtest.CreateItem(t, f.conn, "Apple", "16.80", enums.ItemCategorySweet)

	_, err := f.svc.AddItem(ctx, 1, pie.ID, 0)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	_, err = f.svc.AddItem(ctx, 1, pie.ID, -2)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = f.svc.AddItem(ctx, 1, uuid.New(), 1)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	rows, err := f.svc.GetCart(ctx, 1)
	require.NoError(t, err)
	require.Empty(t, rows)
}

func TestComputeTotalFollowsLivePromotions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := dbtest.CreateItem(t, f.conn, "A", "42.00", enums.ItemCategorySweet)
	b := dbtest.CreateItem(t, f.conn, "B", "57.00", enums.ItemCategorySavory)

	_, err := f.svc.AddItem(ctx, 7, a.ID, 2)
	require.NoError(t, err)
	_, err = f.svc.AddItem(ctx, 7, b.ID, 1)
	require.NoError(t, err)

	total, err := f.svc.ComputeTotal(ctx, 7)
	require.NoError(t, err)
	require.Equal(t, "141.00", total.StringFixed(2))

	require.NoError(t, f.catalog.ApplyPromotion(ctx, b.ID, decimal.RequireFromString("0.20")))
	total, err = f.svc.ComputeTotal(ctx, 7)
	require.NoError(t, err)
	require.Equal(t, "129.60", total.StringFixed(2))

	_, err = f.catalog.ClearAllPromotions(ctx)
	require.NoError(t, err)
	total, err = f.svc.ComputeTotal(ctx, 7)
	require.NoError(t, err)
	require.Equal(t, "141.00", total.StringFixed(2))
}

func TestClearCart(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	pie := dbtest.CreateItem(t, f.conn, "Apple", "16.80", enums.ItemCategorySweet)

	require.NoError(t, f.svc.ClearCart(ctx, 5))

	_, err := f.svc.AddItem(ctx, 5, pie.ID, 2)
	require.NoError(t, err)
	_, err = f.svc.AddItem(ctx, 6, pie.ID, 1)
	require.NoError(t, err)

	require.NoError(t, f.svc.ClearCart(ctx, 5))
	require.NoError(t, f.svc.ClearCart(ctx, 5))

	rows, err := f.svc.GetCart(ctx, 5)
	require.NoError(t, err)
	require.Empty(t, rows)
	total, err := f.svc.ComputeTotal(ctx, 5)
	require.NoError(t, err)
	require.True(t, total.IsZero())

	other, err := f.svc.GetCart(ctx, 6)
	require.NoError(t, err)
	require.Len(t, other, 1)
}

func TestConcurrentAddsConvergeToSingleRow(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	pie := dbtest.CreateItem(t, f.conn, "Apple", "16.80", enums.ItemCategorySweet)

	const calls = 12
	var g errgroup.Group
	for i := 0; i < calls; i++ {
		g.Go(func() error {
			_, err := f.svc.AddItem(ctx, 99, pie.ID, 1)
			return err
		})
	}
	require.NoError(t, g.Wait())

	var rows []models.LineItem
	require.NoError(t, f.conn.Where("user_id = ?", 99).Find(&rows).Error)
	require.Len(t, rows, 1)
	require.Equal(t, calls, rows[0].Quantity)
}

// The sqlite pool has a single connection, so these upserts run one after
// another. Under real concurrency the merge rests on the partial unique index
// and Postgres ON CONFLICT.
func TestRepeatedUpsertMergesIntoPendingRow(t *testing.T) {
	ctx := context.Background()
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	pie := dbtest.CreateItem(t, conn, "Apple", "16.80", enums.ItemCategorySweet)

	for i := 0; i < 5; i++ {
		_, err := repo.UpsertPending(ctx, 3, pie.ID, 2)
		require.NoError(t, err)
	}

	rows, err := repo.FindPending(ctx, 3)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, 10, rows[0].Quantity)
}

func TestListPendingCartsGroupsByUser(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := dbtest.CreateItem(t, f.conn, "A", "10.00", enums.ItemCategorySweet)
	b := dbtest.CreateItem(t, f.conn, "B", "5.50", enums.ItemCategorySavory)

	_, err := f.svc.AddItem(ctx, 20, a.ID, 1)
	require.NoError(t, err)
	_, err = f.svc.AddItem(ctx, 10, b.ID, 2)
	require.NoError(t, err)
	_, err = f.svc.AddItem(ctx, 20, b.ID, 1)
	require.NoError(t, err)

	carts, err := f.svc.ListPendingCarts(ctx)
	require.NoError(t, err)
	require.Len(t, carts, 2)
	require.Equal(t, int64(10), carts[0].UserID)
	require.Equal(t, "11.00", carts[0].Total.StringFixed(2))
	require.Equal(t, int64(20), carts[1].UserID)
	require.Len(t, carts[1].Lines, 2)
	require.Equal(t, "15.50", carts[1].Total.StringFixed(2))
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := NewService(nil, nil, nil, nil)
	require.Error(t, err)
}
