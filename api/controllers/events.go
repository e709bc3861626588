package controllers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/angelmondragon/pieshop-backend/api/responses"
	"github.com/angelmondragon/pieshop-backend/api/validators"
	"github.com/angelmondragon/pieshop-backend/internal/chat"
	"github.com/angelmondragon/pieshop-backend/pkg/enums"
	"github.com/angelmondragon/pieshop-backend/pkg/logger"
)

type eventHandler interface {
	Handle(ctx context.Context, ev chat.Event) (chat.Result, error)
}

type eventRequest struct {
	EventID string          `json:"event_id" validate:"omitempty,max=128"`
	UserID  int64           `json:"user_id" validate:"required,gt=0"`
	Action  string          `json:"action" validate:"required"`
	Payload json.RawMessage `json:"payload"`
}

// PostEvent accepts one chat event from the transport and returns the
// dispatcher's result as plain data.
func PostEvent(dispatcher eventHandler, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req eventRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, nil, w, err)
			return
		}

		res, err := dispatcher.Handle(ctx, chat.Event{
			EventID: req.EventID,
			UserID:  req.UserID,
			Action:  enums.ChatAction(req.Action),
			Payload: req.Payload,
		})
		if err != nil {
			errLogger := logg
			if chat.IsExpected(err) {
				errLogger = nil
			}
			responses.WriteError(ctx, errLogger, w, err)
			return
		}
		responses.WriteSuccess(w, res)
	}
}
