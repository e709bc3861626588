package orders

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/angelmondragon/pieshop-backend/internal/cart"
	"github.com/angelmondragon/pieshop-backend/internal/catalog"
	"github.com/angelmondragon/pieshop-backend/internal/locks"
	"github.com/angelmondragon/pieshop-backend/pkg/db"
	"github.com/angelmondragon/pieshop-backend/pkg/db/dbtest"
	"github.com/angelmondragon/pieshop-backend/pkg/db/models"
	"github.com/angelmondragon/pieshop-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/pieshop-backend/pkg/errors"
	"github.com/angelmondragon/pieshop-backend/pkg/logger"
	"github.com/angelmondragon/pieshop-backend/pkg/metrics"
	"github.com/angelmondragon/pieshop-backend/pkg/pagination"
)

type fixture struct {
	orders  Service
	cart    cart.Service
	catalog *catalog.Repository
	conn    *gorm.DB
	clock   *fakeClock
}

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.now = c.now.Add(time.Second)
	return c.now
}

func newFixture(t *testing.T, reg prometheus.Registerer) fixture {
	t.Helper()
	conn := dbtest.Open(t)
	logg := logger.New(logger.Options{ServiceName: "orders-test", Output: io.Discard})
	locker := locks.NewLocal(time.Second)
	items := catalog.NewRepository(conn)
	cartRepo := cart.NewRepository(conn)

	cartSvc, err := cart.NewService(cartRepo, items, locker, logg)
	require.NoError(t, err)

	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	svc, err := NewService(ServiceParams{
		Tx:            db.NewFromConn(conn),
		Repo:          NewRepository(conn),
		Cart:          cartRepo,
		Locker:        locker,
		Logger:        logg,
		Metrics:       metrics.NewOrderMetrics(reg),
		DeliveryDelay: 5 * time.Second,
		Now:           clock.Now,
	})
	require.NoError(t, err)
	return fixture{orders: svc, cart: cartSvc, catalog: items, conn: conn, clock: clock}
}

func TestCheckoutFreezesTotalsAndCompletesRows(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	a := dbtest.CreateItem(t, f.conn, "A", "42", enums.ItemCategorySweet)
	b := dbtest.CreateItem(t, f.conn, "B", "57", enums.ItemCategorySavory)

	_, err := f.cart.AddItem(ctx, 1, a.ID, 2)
	require.NoError(t, err)
	_, err = f.cart.AddItem(ctx, 1, b.ID, 1)
	require.NoError(t, err)

	confirmation, err := f.orders.Checkout(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, "141.00", confirmation.Total.StringFixed(2))
	require.Len(t, confirmation.Lines, 2)
	require.Equal(t, "A", confirmation.Lines[0].Name)
	require.Equal(t, 2, confirmation.Lines[0].Quantity)
	require.Equal(t, "84.00", confirmation.Lines[0].LineTotal.StringFixed(2))
	require.Equal(t, "57.00", confirmation.Lines[1].UnitPrice.StringFixed(2))
	require.Equal(t, 5*time.Second, confirmation.DeliveryETA.Sub(confirmation.PlacedAt))

	cartRows, err := f.cart.GetCart(ctx, 1)
	require.NoError(t, err)
	require.Empty(t, cartRows)

	var completed []models.LineItem
	require.NoError(t, f.conn.Where("user_id = ?", 1).Find(&completed).Error)
	require.Len(t, completed, 2)
	for _, row := range completed {
		require.Equal(t, enums.LineItemStatusCompleted, row.Status)
		require.NotNil(t, row.OrderID)
		require.Equal(t, confirmation.OrderID, *row.OrderID)
		require.NotNil(t, row.CompletedAt)
	}

	var order models.Order
	require.NoError(t, f.conn.First(&order, "id = ?", confirmation.OrderID).Error)
	require.True(t, order.Total.Equal(decimal.RequireFromString("141")))
}

func TestCheckoutEmptyCartLeavesStoreUnchanged(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	f := newFixture(t, reg)
	pie := dbtest.CreateItem(t, f.conn, "A", "42", enums.ItemCategorySweet)

	_, err := f.cart.AddItem(ctx, 2, pie.ID, 1)
	require.NoError(t, err)

	_, err = f.orders.Checkout(ctx, 3)
	require.Error(t, err)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeEmptyCart))

	var orderCount, completedCount, pendingCount int64
	require.NoError(t, f.conn.Model(&models.Order{}).Count(&orderCount).Error)
	require.NoError(t, f.conn.Model(&models.LineItem{}).Where("status = ?", enums.LineItemStatusCompleted).Count(&completedCount).Error)
	require.NoError(t, f.conn.Model(&models.LineItem{}).Where("status = ?", enums.LineItemStatusPending).Count(&pendingCount).Error)
	require.Zero(t, orderCount)
	require.Zero(t, completedCount)
	require.Equal(t, int64(1), pendingCount)

	mfs, err := reg.Gather()
	require.NoError(t, err)
	var empty float64
	for _, mf := range mfs {
		if mf.GetName() != "pieshop_checkouts_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, label := range m.GetLabel() {
				if label.GetName() == "result" && label.GetValue() == metrics.CheckoutResultEmpty {
					empty = m.GetCounter().GetValue()
				}
			}
		}
	}
	require.Equal(t, float64(1), empty)
}

func TestCheckoutLocksPriceAgainstLaterPromotion(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	pie := dbtest.CreateItem(t, f.conn, "Cherry", "20.00", enums.ItemCategorySweet)

	_, err := f.cart.AddItem(ctx, 4, pie.ID, 3)
	require.NoError(t, err)
	confirmation, err := f.orders.Checkout(ctx, 4)
	require.NoError(t, err)
	require.Equal(t, "60.00", confirmation.Total.StringFixed(2))

	require.NoError(t, f.catalog.ApplyPromotion(ctx, pie.ID, decimal.RequireFromString("0.5")))

	list, err := f.orders.ListCompleted(ctx, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, list.Orders, 1)
	require.Equal(t, "60.00", list.Orders[0].Total.StringFixed(2))
	require.Equal(t, "20.00", list.Orders[0].Lines[0].UnitPrice.StringFixed(2))
	require.Equal(t, "60.00", list.Orders[0].Lines[0].LineTotal.StringFixed(2))
}

func TestCheckoutUsesDiscountActiveAtCheckout(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	pie := dbtest.CreateItem(t, f.conn, "Pecan", "9.99", enums.ItemCategorySweet)

	_, err := f.cart.AddItem(ctx, 8, pie.ID, 7)
	require.NoError(t, err)
	require.NoError(t, f.catalog.ApplyPromotion(ctx, pie.ID, decimal.RequireFromString("0.15")))

	confirmation, err := f.orders.Checkout(ctx, 8)
	require.NoError(t, err)
	require.Equal(t, "59.44", confirmation.Total.StringFixed(2))

	var row models.LineItem
	require.NoError(t, f.conn.Where("user_id = ?", 8).First(&row).Error)
	require.True(t, row.UnitPrice.Equal(decimal.RequireFromString("8.4915")))
}

func TestSecondCheckoutIsEmpty(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	pie := dbtest.CreateItem(t, f.conn, "Apple", "16.80", enums.ItemCategorySweet)

	_, err := f.cart.AddItem(ctx, 5, pie.ID, 1)
	require.NoError(t, err)
	_, err = f.orders.Checkout(ctx, 5)
	require.NoError(t, err)

	_, err = f.orders.Checkout(ctx, 5)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeEmptyCart))

	_, err = f.cart.AddItem(ctx, 5, pie.ID, 2)
	require.NoError(t, err)
	rows, err := f.cart.GetCart(ctx, 5)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, 2, rows[0].Quantity)
}

func TestListCompletedPaginatesNewestFirst(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	pie := dbtest.CreateItem(t, f.conn, "Apple", "10", enums.ItemCategorySweet)

	var ids []string
	for user := int64(1); user <= 3; user++ {
		_, err := f.cart.AddItem(ctx, user, pie.ID, int(user))
		require.NoError(t, err)
		confirmation, err := f.orders.Checkout(ctx, user)
		require.NoError(t, err)
		ids = append(ids, confirmation.OrderID.String())
	}

	first, err := f.orders.ListCompleted(ctx, pagination.Params{Limit: 2})
	require.NoError(t, err)
	require.Len(t, first.Orders, 2)
	require.Equal(t, ids[2], first.Orders[0].OrderID.String())
	require.Equal(t, ids[1], first.Orders[1].OrderID.String())
	require.NotEmpty(t, first.NextCursor)

	second, err := f.orders.ListCompleted(ctx, pagination.Params{Limit: 2, Cursor: first.NextCursor})
	require.NoError(t, err)
	require.Len(t, second.Orders, 1)
	require.Equal(t, ids[0], second.Orders[0].OrderID.String())
	require.Equal(t, "Apple", second.Orders[0].Lines[0].Name)
	require.Empty(t, second.NextCursor)

	_, err = f.orders.ListCompleted(ctx, pagination.Params{Cursor: "%%%"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestAddsRacingCheckoutLandWhollyOnOneSide(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	pie := dbtest.CreateItem(t, f.conn, "Apple", "16.80", enums.ItemCategorySweet)

	const adds = 40
	var g errgroup.Group
	for i := 0; i < adds; i++ {
		g.Go(func() error {
			_, err := f.cart.AddItem(ctx, 5, pie.ID, 1)
			return err
		})
		if i%8 == 0 {
			g.Go(func() error {
				_, err := f.orders.Checkout(ctx, 5)
				if pkgerrors.IsCode(err, pkgerrors.CodeEmptyCart) {
					return nil
				}
				return err
			})
		}
	}
	require.NoError(t, g.Wait())

	var rows []models.LineItem
	require.NoError(t, f.conn.Where("user_id = ?", 5).Find(&rows).Error)

	pending, total := 0, 0
	for _, row := range rows {
		total += row.Quantity
		if row.Status == enums.LineItemStatusPending {
			pending++
			continue
		}
		require.NotNil(t, row.OrderID)
		require.NotNil(t, row.LineTotal)
		require.True(t, row.LineTotal.Equal(row.UnitPrice.Mul(decimal.NewFromInt(int64(row.Quantity)))))
	}
	require.LessOrEqual(t, pending, 1)
	require.Equal(t, adds, total)

	var orders []models.Order
	require.NoError(t, f.conn.Where("user_id = ?", 5).Find(&orders).Error)
	for _, order := range orders {
		var lines []models.LineItem
		require.NoError(t, f.conn.Where("order_id = ?", order.ID).Find(&lines).Error)
		require.Len(t, lines, 1)
		require.True(t, order.Total.Equal(lines[0].LineTotal.Round(2)))
	}
}
