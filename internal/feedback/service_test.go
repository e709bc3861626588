package feedback

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/pieshop-backend/pkg/db/dbtest"
	"github.com/angelmondragon/pieshop-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/pieshop-backend/pkg/errors"
	"github.com/angelmondragon/pieshop-backend/pkg/logger"
)

func TestSubmitTrimsAndPersists(t *testing.T) {
	conn := dbtest.Open(t)
	svc, err := NewService(conn, logger.New(logger.Options{Output: io.Discard}))
	require.NoError(t, err)

	row, err := svc.Submit(context.Background(), 12, "  the cherry pie was great  ")
	require.NoError(t, err)
	require.Equal(t, "the cherry pie was great", row.Text)

	var stored models.Feedback
	require.NoError(t, conn.First(&stored, "id = ?", row.ID).Error)
	require.Equal(t, int64(12), stored.UserID)
}

func TestSubmitValidatesLength(t *testing.T) {
	svc, err := NewService(dbtest.Open(t), logger.New(logger.Options{Output: io.Discard}))
	require.NoError(t, err)

	_, err = svc.Submit(context.Background(), 1, "   ")
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.Submit(context.Background(), 1, strings.Repeat("é", MaxLength+1))
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.Submit(context.Background(), 1, strings.Repeat("é", MaxLength))
	require.NoError(t, err)
}
