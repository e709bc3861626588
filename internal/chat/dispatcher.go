package chat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/pieshop-backend/internal/cart"
	"github.com/angelmondragon/pieshop-backend/internal/orders"
	"github.com/angelmondragon/pieshop-backend/pkg/db/models"
	"github.com/angelmondragon/pieshop-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/pieshop-backend/pkg/errors"
	"github.com/angelmondragon/pieshop-backend/pkg/logger"
	"github.com/angelmondragon/pieshop-backend/pkg/pagination"
)

const (
	idempotencyScope      = "event"
	defaultIdempotencyTTL = 24 * time.Hour
)

type catalogReader interface {
	GetItem(ctx context.Context, id uuid.UUID) (*models.Item, error)
	ListItems(ctx context.Context, category enums.ItemCategory) ([]models.Item, error)
	ListPromoted(ctx context.Context) ([]models.Item, error)
}

type deliveryScheduler interface {
	Schedule(confirmation orders.OrderConfirmation) bool
}

type adminGate interface {
	IsActiveAdmin(ctx context.Context, userID int64) (bool, error)
}

type sessionStore interface {
	Mode(ctx context.Context, userID int64) (enums.SessionMode, error)
	SetMode(ctx context.Context, userID int64, mode enums.SessionMode) error
	Reset(ctx context.Context, userID int64) error
}

type feedbackSubmitter interface {
	Submit(ctx context.Context, userID int64, text string) (*models.Feedback, error)
}

type idempotencyStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	IdempotencyKey(scope, id string) string
	Del(ctx context.Context, keys ...string) error
}

// DispatcherParams wires the dispatcher to the storefront services.
type DispatcherParams struct {
	Catalog        catalogReader
	Cart           cart.Service
	Orders         orders.Service
	Delivery       deliveryScheduler
	Admins         adminGate
	Sessions       sessionStore
	Feedback       feedbackSubmitter
	Idempotency    idempotencyStore
	IdempotencyTTL time.Duration
	Logger         *logger.Logger
}

// Dispatcher routes inbound chat events to the storefront services.
type Dispatcher struct {
	catalog        catalogReader
	cart           cart.Service
	orders         orders.Service
	delivery       deliveryScheduler
	admins         adminGate
	sessions       sessionStore
	feedback       feedbackSubmitter
	idempotency    idempotencyStore
	idempotencyTTL time.Duration
	logg           *logger.Logger
}

func NewDispatcher(p DispatcherParams) (*Dispatcher, error) {
	switch {
	case p.Catalog == nil:
		return nil, fmt.Errorf("catalog service required")
	case p.Cart == nil:
		return nil, fmt.Errorf("cart service required")
	case p.Orders == nil:
		return nil, fmt.Errorf("orders service required")
	case p.Delivery == nil:
		return nil, fmt.Errorf("delivery scheduler required")
	case p.Admins == nil:
		return nil, fmt.Errorf("admin gate required")
	case p.Sessions == nil:
		return nil, fmt.Errorf("session store required")
	case p.Feedback == nil:
		return nil, fmt.Errorf("feedback service required")
	case p.Logger == nil:
		return nil, fmt.Errorf("logger required")
	}
	ttl := p.IdempotencyTTL
	if ttl <= 0 {
		ttl = defaultIdempotencyTTL
	}
	return &Dispatcher{
		catalog:        p.Catalog,
		cart:           p.Cart,
		orders:         p.Orders,
		delivery:       p.Delivery,
		admins:         p.Admins,
		sessions:       p.Sessions,
		feedback:       p.Feedback,
		idempotency:    p.Idempotency,
		idempotencyTTL: ttl,
		logg:           p.Logger,
	}, nil
}

// Handle runs one event. Expected failures come back as coded errors for the
// transport to render; nothing here formats user-facing text.
func (d *Dispatcher) Handle(ctx context.Context, ev Event) (Result, error) {
	if ev.UserID <= 0 {
		return Result{}, pkgerrors.New(pkgerrors.CodeValidation, "user_id must be positive")
	}
	if !ev.Action.IsValid() {
		return Result{}, pkgerrors.New(pkgerrors.CodeValidation, "unknown action").
			WithDetails(map[string]any{"action": ev.Action.String()})
	}

	ctx = d.logg.WithUserID(ctx, ev.UserID)
	ctx = d.logg.WithAction(ctx, ev.Action.String())

	if ev.Action.RequiresAdmin() {
		ok, err := d.admins.IsActiveAdmin(ctx, ev.UserID)
		if err != nil {
			return Result{}, err
		}
		if !ok {
			return Result{}, pkgerrors.New(pkgerrors.CodeForbidden, "admin access required")
		}
	}

	release, err := d.claim(ctx, ev.EventID)
	if err != nil {
		return Result{}, err
	}

	res, err := d.route(ctx, ev)
	if err != nil {
		release()
		return Result{}, err
	}
	return res, nil
}

// claim marks the event as seen so a redelivery does not repeat side effects.
// The returned func forgets the claim when handling fails and a retry should
// be allowed.
func (d *Dispatcher) claim(ctx context.Context, eventID string) (func(), error) {
	noop := func() {}
	if eventID == "" || d.idempotency == nil {
		return noop, nil
	}
	key := d.idempotency.IdempotencyKey(idempotencyScope, eventID)
	ok, err := d.idempotency.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339Nano), d.idempotencyTTL)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim event")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeIdempotency, "event already processed").
			WithDetails(map[string]any{"event_id": eventID})
	}
	return func() {
		cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		if err := d.idempotency.Del(cleanupCtx, key); err != nil {
			d.logg.Error(ctx, "failed to release event claim", err)
		}
	}, nil
}

func (d *Dispatcher) route(ctx context.Context, ev Event) (Result, error) {
	switch ev.Action {
	case enums.ChatActionListItems:
		return d.listItems(ctx, ev)
	case enums.ChatActionShowItem:
		return d.showItem(ctx, ev)
	case enums.ChatActionSpecials:
		items, err := d.catalog.ListPromoted(ctx)
		if err != nil {
			return Result{}, err
		}
		return Result{Kind: KindSpecials, Data: itemViews(items)}, nil
	case enums.ChatActionAddItem:
		return d.addItem(ctx, ev)
	case enums.ChatActionShowCart:
		rows, err := d.cart.GetCart(ctx, ev.UserID)
		if err != nil {
			return Result{}, err
		}
		return Result{Kind: KindCart, Data: cartView(ev.UserID, rows)}, nil
	case enums.ChatActionCheckout:
		return d.checkout(ctx, ev)
	case enums.ChatActionClearCart:
		if err := d.cart.ClearCart(ctx, ev.UserID); err != nil {
			return Result{}, err
		}
		return Result{Kind: KindCartCleared}, nil
	case enums.ChatActionStartFeedback:
		if err := d.sessions.SetMode(ctx, ev.UserID, enums.SessionModeAwaitingFeedback); err != nil {
			return Result{}, err
		}
		return Result{Kind: KindFeedbackPrompt}, nil
	case enums.ChatActionText:
		return d.text(ctx, ev)
	case enums.ChatActionAdminOrders:
		return d.adminOrders(ctx, ev)
	case enums.ChatActionAdminCarts:
		return d.adminCarts(ctx)
	}
	return Result{}, pkgerrors.New(pkgerrors.CodeValidation, "unknown action")
}

func (d *Dispatcher) listItems(ctx context.Context, ev Event) (Result, error) {
	var payload listItemsPayload
	if err := decodePayload(ev.Payload, &payload); err != nil {
		return Result{}, err
	}
	category, err := enums.ParseItemCategory(payload.Category)
	if err != nil {
		return Result{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid category").
			WithDetails(map[string]any{"category": payload.Category})
	}
	items, err := d.catalog.ListItems(ctx, category)
	if err != nil {
		return Result{}, err
	}
	return Result{Kind: KindItems, Data: itemViews(items)}, nil
}

func (d *Dispatcher) showItem(ctx context.Context, ev Event) (Result, error) {
	var payload itemPayload
	if err := decodePayload(ev.Payload, &payload); err != nil {
		return Result{}, err
	}
	item, err := d.catalog.GetItem(ctx, payload.ItemID)
	if err != nil {
		return Result{}, err
	}
	return Result{Kind: KindItem, Data: itemView(*item)}, nil
}

func (d *Dispatcher) addItem(ctx context.Context, ev Event) (Result, error) {
	var payload addItemPayload
	if err := decodePayload(ev.Payload, &payload); err != nil {
		return Result{}, err
	}
	quantity := 1
	if payload.Quantity != nil {
		quantity = *payload.Quantity
	}
	line, err := d.cart.AddItem(ctx, ev.UserID, payload.ItemID, quantity)
	if err != nil {
		return Result{}, err
	}
	return Result{Kind: KindLineAdded, Data: lineView(*line)}, nil
}

func (d *Dispatcher) checkout(ctx context.Context, ev Event) (Result, error) {
	confirmation, err := d.orders.Checkout(ctx, ev.UserID)
	if err != nil {
		return Result{}, err
	}
	if !d.delivery.Schedule(*confirmation) {
		d.logg.Warn(d.logg.WithField(ctx, "order_id", confirmation.OrderID.String()),
			"delivery scheduler closed; notification skipped")
	}
	return Result{Kind: KindOrderConfirmed, Data: confirmation}, nil
}

func (d *Dispatcher) text(ctx context.Context, ev Event) (Result, error) {
	mode, err := d.sessions.Mode(ctx, ev.UserID)
	if err != nil {
		return Result{}, err
	}
	if mode != enums.SessionModeAwaitingFeedback {
		return Result{Kind: KindUnknownCommand}, nil
	}

	var payload textPayload
	if err := decodePayload(ev.Payload, &payload); err != nil {
		return Result{}, err
	}
	row, err := d.feedback.Submit(ctx, ev.UserID, payload.Text)
	if err != nil {
		return Result{}, err
	}
	if err := d.sessions.Reset(ctx, ev.UserID); err != nil {
		// The feedback is stored; a stale mode only affects the next text.
		d.logg.Error(ctx, "failed to reset session mode", err)
	}
	return Result{Kind: KindFeedbackSaved, Data: row}, nil
}

func (d *Dispatcher) adminOrders(ctx context.Context, ev Event) (Result, error) {
	var payload adminOrdersPayload
	if err := decodePayload(ev.Payload, &payload); err != nil {
		return Result{}, err
	}
	list, err := d.orders.ListCompleted(ctx, pagination.Params{Limit: payload.Limit, Cursor: payload.Cursor})
	if err != nil {
		return Result{}, err
	}
	return Result{Kind: KindAdminOrders, Data: list}, nil
}

func (d *Dispatcher) adminCarts(ctx context.Context) (Result, error) {
	carts, err := d.cart.ListPendingCarts(ctx)
	if err != nil {
		return Result{}, err
	}
	views := make([]CartView, 0, len(carts))
	for _, pending := range carts {
		view := cartView(pending.UserID, pending.Lines)
		view.Total = pending.Total
		views = append(views, view)
	}
	return Result{Kind: KindAdminCarts, Data: views}, nil
}

// IsExpected reports whether err is an outcome the user should see as a plain
// message rather than a generic failure.
func IsExpected(err error) bool {
	var coded *pkgerrors.Error
	if !errors.As(err, &coded) {
		return false
	}
	switch coded.Code() {
	case pkgerrors.CodeValidation, pkgerrors.CodeNotFound, pkgerrors.CodeEmptyCart,
		pkgerrors.CodeForbidden, pkgerrors.CodeIdempotency, pkgerrors.CodeStateConflict:
		return true
	}
	return false
}
