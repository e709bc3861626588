package enums

import "fmt"

// ChatAction names an inbound user interaction delivered by the chat transport.
type ChatAction string

const (
	ChatActionListItems     ChatAction = "list_items"
	ChatActionShowItem      ChatAction = "show_item"
	ChatActionSpecials      ChatAction = "specials"
	ChatActionAddItem       ChatAction = "add_item"
	ChatActionShowCart      ChatAction = "show_cart"
	ChatActionCheckout      ChatAction = "checkout"
	ChatActionClearCart     ChatAction = "clear_cart"
	ChatActionStartFeedback ChatAction = "start_feedback"
	ChatActionText          ChatAction = "text"
	ChatActionAdminOrders   ChatAction = "admin_orders"
	ChatActionAdminCarts    ChatAction = "admin_carts"
)

var validChatActions = []ChatAction{
	ChatActionListItems,
	ChatActionShowItem,
	ChatActionSpecials,
	ChatActionAddItem,
	ChatActionShowCart,
	ChatActionCheckout,
	ChatActionClearCart,
	ChatActionStartFeedback,
	ChatActionText,
	ChatActionAdminOrders,
	ChatActionAdminCarts,
}

// String implements fmt.Stringer.
func (a ChatAction) String() string {
	return string(a)
}

// IsValid reports whether the value is a known ChatAction.
func (a ChatAction) IsValid() bool {
	for _, candidate := range validChatActions {
		if candidate == a {
			return true
		}
	}
	return false
}

// RequiresAdmin reports whether the action reads data across users.
func (a ChatAction) RequiresAdmin() bool {
	return a == ChatActionAdminOrders || a == ChatActionAdminCarts
}

// ParseChatAction converts raw input into a ChatAction.
func ParseChatAction(value string) (ChatAction, error) {
	for _, candidate := range validChatActions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid chat action %q", value)
}
