package admins

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/angelmondragon/pieshop-backend/pkg/db"
	"github.com/angelmondragon/pieshop-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/pieshop-backend/pkg/errors"
)

// Service gates the admin-only views and manages operator accounts.
type Service interface {
	IsActiveAdmin(ctx context.Context, userID int64) (bool, error)
	Add(ctx context.Context, userID int64, username string) (*models.Admin, error)
	Remove(ctx context.Context, userID int64) error
	Toggle(ctx context.Context, userID int64) (*models.Admin, error)
	List(ctx context.Context) ([]models.Admin, error)
}

type service struct {
	repo *Repository
}

// NewService constructs an admins service instance.
func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("admins repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) IsActiveAdmin(ctx context.Context, userID int64) (bool, error) {
	admin, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load admin")
	}
	return admin.IsActive, nil
}

// Add creates an active admin or re-activates an existing one. A non-empty
// username replaces the stored one.
func (s *service) Add(ctx context.Context, userID int64, username string) (*models.Admin, error) {
	if userID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id must be positive")
	}
	var name *string
	if trimmed := strings.TrimPrefix(strings.TrimSpace(username), "@"); trimmed != "" {
		name = &trimmed
	}

	existing, err := s.repo.FindByUserID(ctx, userID)
	switch {
	case err == nil:
		existing.IsActive = true
		if name != nil {
			existing.Username = name
		}
		if err := s.repo.Save(ctx, existing); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reactivate admin")
		}
		return existing, nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load admin")
	}

	admin := &models.Admin{UserID: userID, Username: name, IsActive: true}
	if err := s.repo.Create(ctx, admin); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "admin already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create admin")
	}
	return admin, nil
}

func (s *service) Remove(ctx context.Context, userID int64) error {
	removed, err := s.repo.DeleteByUserID(ctx, userID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove admin")
	}
	if removed == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "admin not found")
	}
	return nil
}

func (s *service) Toggle(ctx context.Context, userID int64) (*models.Admin, error) {
	admin, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "admin not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load admin")
	}
	admin.IsActive = !admin.IsActive
	if err := s.repo.Save(ctx, admin); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "toggle admin")
	}
	return admin, nil
}

func (s *service) List(ctx context.Context) ([]models.Admin, error) {
	admins, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list admins")
	}
	return admins, nil
}
