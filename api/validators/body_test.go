package validators

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/pieshop-backend/pkg/errors"
)

type sampleRequest struct {
	UserID int64  `json:"user_id" validate:"required,gt=0"`
	Action string `json:"action" validate:"required"`
}

func TestDecodeJSONBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"user_id":3,"action":"show_cart"}`))
	var dest sampleRequest
	require.NoError(t, DecodeJSONBody(req, &dest))
	require.Equal(t, int64(3), dest.UserID)
}

func TestDecodeJSONBodyRejectsUnknownFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"user_id":3,"action":"x","extra":1}`))
	var dest sampleRequest
	err := DecodeJSONBody(req, &dest)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestDecodeJSONBodyReportsFieldErrors(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"user_id":-1}`))
	var dest sampleRequest
	err := DecodeJSONBody(req, &dest)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeValidation, typed.Code())
	details, ok := typed.Details().(map[string]string)
	require.True(t, ok)
	require.Equal(t, "must be greater than 0", details["user_id"])
	require.Equal(t, "is required", details["action"])
}

func TestDecodeJSONBodyRequiresBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	var dest sampleRequest
	err := DecodeJSONBody(req, &dest)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}
