package chat

import (
	"encoding/json"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/angelmondragon/pieshop-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/pieshop-backend/pkg/errors"
)

// Event is one user interaction relayed by the chat transport.
type Event struct {
	EventID string           `json:"event_id"`
	UserID  int64            `json:"user_id"`
	Action  enums.ChatAction `json:"action"`
	Payload json.RawMessage  `json:"payload,omitempty"`
}

// Result kinds tell the rendering layer which template to use.
const (
	KindItems          = "items"
	KindItem           = "item"
	KindSpecials       = "specials"
	KindLineAdded      = "line_added"
	KindCart           = "cart"
	KindOrderConfirmed = "order_confirmed"
	KindCartCleared    = "cart_cleared"
	KindFeedbackPrompt = "feedback_prompt"
	KindFeedbackSaved  = "feedback_saved"
	KindUnknownCommand = "unknown_command"
	KindAdminOrders    = "admin_orders"
	KindAdminCarts     = "admin_carts"
)

// Result is plain data; the transport formats it for display.
type Result struct {
	Kind string `json:"kind"`
	Data any    `json:"data,omitempty"`
}

type listItemsPayload struct {
	Category string `json:"category" validate:"required"`
}

type itemPayload struct {
	ItemID uuid.UUID `json:"item_id" validate:"required"`
}

type addItemPayload struct {
	ItemID   uuid.UUID `json:"item_id" validate:"required"`
	Quantity *int      `json:"quantity"`
}

type textPayload struct {
	Text string `json:"text"`
}

type adminOrdersPayload struct {
	Limit  int    `json:"limit" validate:"gte=0"`
	Cursor string `json:"cursor"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" {
			return f.Name
		}
		return tag
	})
	return v
}

// decodePayload unmarshals and validates an action payload. An empty payload
// decodes to the zero value before validation.
func decodePayload(raw json.RawMessage, dest any) error {
	if len(raw) > 0 && string(raw) != "null" {
		if err := json.Unmarshal(raw, dest); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payload").
				WithDetails(map[string]any{"error": err.Error()})
		}
	}
	if err := validate.Struct(dest); err != nil {
		if errs, ok := err.(validator.ValidationErrors); ok {
			details := map[string]string{}
			for _, fieldErr := range errs {
				details[fieldErr.Field()] = fieldErr.Tag()
			}
			return pkgerrors.New(pkgerrors.CodeValidation, "validation failed").WithDetails(details)
		}
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "validation failed")
	}
	return nil
}
