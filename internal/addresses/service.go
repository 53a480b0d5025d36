package addresses

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/ttkdelivery/ttk-backend/pkg/db"
	"github.com/ttkdelivery/ttk-backend/pkg/db/models"
	pkgerrors "github.com/ttkdelivery/ttk-backend/pkg/errors"
	"github.com/ttkdelivery/ttk-backend/pkg/logger"
	"github.com/ttkdelivery/ttk-backend/pkg/types"
)

// Service manages a user's saved delivery addresses, capped at a
// configured maximum per user.
type Service interface {
	List(ctx context.Context, userID uuid.UUID) ([]models.SavedAddress, error)
	Save(ctx context.Context, userID uuid.UUID, address types.Address, makeDefault bool) (*models.SavedAddress, error)
	SetDefault(ctx context.Context, userID, addressID uuid.UUID) error
	Delete(ctx context.Context, userID, addressID uuid.UUID) error
}

type service struct {
	repo Repository
	max  int
	logg *logger.Logger
}

// NewService wires saved address dependencies. maxPerUser caps how
// many addresses one user can keep.
func NewService(repo Repository, maxPerUser int, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "address repository required")
	}
	if maxPerUser <= 0 {
		maxPerUser = 2
	}
	return &service{repo: repo, max: maxPerUser, logg: logg}, nil
}

func (s *service) List(ctx context.Context, userID uuid.UUID) ([]models.SavedAddress, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	rows, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list addresses")
	}
	return rows, nil
}

func (s *service) Save(ctx context.Context, userID uuid.UUID, address types.Address, makeDefault bool) (*models.SavedAddress, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if strings.TrimSpace(address.Line1) == "" || strings.TrimSpace(address.City) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "address requires line1 and city")
	}

	count, err := s.repo.CountByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count addresses")
	}
	if count >= int64(s.max) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "saved address limit reached").
			WithDetails(map[string]any{"max": s.max})
	}

	if makeDefault {
		if err := s.repo.ClearDefault(ctx, userID); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear default address")
		}
	}
	row := &models.SavedAddress{
		UserID:    userID,
		Address:   address,
		IsDefault: makeDefault || count == 0,
	}
	if err := s.repo.Create(ctx, row); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save address")
	}
	return row, nil
}

func (s *service) SetDefault(ctx context.Context, userID, addressID uuid.UUID) error {
	row, err := s.ownedAddress(ctx, userID, addressID)
	if err != nil {
		return err
	}
	if err := s.repo.ClearDefault(ctx, userID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear default address")
	}
	row.IsDefault = true
	if err := s.repo.Update(ctx, row); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update address")
	}
	return nil
}

func (s *service) Delete(ctx context.Context, userID, addressID uuid.UUID) error {
	if _, err := s.ownedAddress(ctx, userID, addressID); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, addressID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete address")
	}
	return nil
}

func (s *service) ownedAddress(ctx context.Context, userID, addressID uuid.UUID) (*models.SavedAddress, error) {
	if userID == uuid.Nil || addressID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id and address id required")
	}
	row, err := s.repo.GetByID(ctx, addressID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "address not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load address")
	}
	if row.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "not your address")
	}
	return row, nil
}
