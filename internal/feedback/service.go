package feedback

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/angelmondragon/pieshop-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/pieshop-backend/pkg/errors"
	"github.com/angelmondragon/pieshop-backend/pkg/logger"
)

// MaxLength caps feedback text, in runes.
const MaxLength = 2000

// Service stores free-text feedback from chat users.
type Service interface {
	Submit(ctx context.Context, userID int64, text string) (*models.Feedback, error)
}

type service struct {
	db   *gorm.DB
	logg *logger.Logger
}

func NewService(db *gorm.DB, logg *logger.Logger) (Service, error) {
	if db == nil {
		return nil, fmt.Errorf("db required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{db: db, logg: logg}, nil
}

func (s *service) Submit(ctx context.Context, userID int64, text string) (*models.Feedback, error) {
	text = strings.TrimSpace(text)
	length := utf8.RuneCountInString(text)
	if length == 0 || length > MaxLength {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "feedback must be between 1 and 2000 characters").
			WithDetails(map[string]any{"length": length})
	}
	row := &models.Feedback{UserID: userID, Text: text}
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store feedback")
	}
	s.logg.Info(s.logg.WithField(s.logg.WithUserID(ctx, userID), "feedback_id", row.ID.String()), "feedback received")
	return row, nil
}
