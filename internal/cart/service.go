package cart

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ttkdelivery/ttk-backend/internal/locks"
	"github.com/ttkdelivery/ttk-backend/internal/pricing"
	"github.com/ttkdelivery/ttk-backend/pkg/db"
	"github.com/ttkdelivery/ttk-backend/pkg/db/models"
	"github.com/ttkdelivery/ttk-backend/pkg/enums"
	pkgerrors "github.com/ttkdelivery/ttk-backend/pkg/errors"
	"github.com/ttkdelivery/ttk-backend/pkg/logger"
)

// Service defines cart management for one user. Lines carry catalog
// identities and the star rating selected at add time, never prices;
// every read and mutation re-prices against a fresh catalog snapshot.
// Mutations for the same user are serialized through a keyed mutex.
type Service interface {
	Get(ctx context.Context, userID uuid.UUID) (*PricedCart, error)
	SetRegion(ctx context.Context, userID, regionID uuid.UUID) (*PricedCart, error)
	AddLine(ctx context.Context, userID uuid.UUID, params AddLineParams) (*PricedCart, error)
	UpdateLine(ctx context.Context, userID, lineID uuid.UUID, quantity int) (*PricedCart, error)
	RemoveLine(ctx context.Context, userID, lineID uuid.UUID) (*PricedCart, error)
	Clear(ctx context.Context, userID uuid.UUID) error
	Quote(ctx context.Context, userID uuid.UUID) (*pricing.Quote, error)
	SweepStale(ctx context.Context, cutoff time.Time) (int64, error)
}

// PricedCart pairs the stored cart with a quote computed at read time.
// The quote is zero-valued while the cart is empty.
type PricedCart struct {
	Cart  models.Cart    `json:"cart"`
	Quote *pricing.Quote `json:"quote"`
}

// AddLineParams references one product or one combo, never both.
// StarRating is the tier selected for a product line; combo lines
// never carry one.
type AddLineParams struct {
	ProductID  *uuid.UUID
	ComboID    *uuid.UUID
	StarRating *enums.StarRating
	Quantity   int
}

type catalogReader interface {
	GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	GetCombo(ctx context.Context, id uuid.UUID) (*models.Combo, error)
	Snapshot(ctx context.Context, regionID uuid.UUID, refs []pricing.LineRef, now time.Time) (*pricing.Snapshot, error)
}

type service struct {
	repo    Repository
	catalog catalogReader
	mutex   *locks.KeyedMutex
	logg    *logger.Logger
	nowFunc func() time.Time
}

// NewService wires cart dependencies.
func NewService(repo Repository, catalog catalogReader, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "cart repository required")
	}
	if catalog == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "catalog service required")
	}
	return &service{
		repo:    repo,
		catalog: catalog,
		mutex:   locks.NewKeyedMutex(),
		logg:    logg,
		nowFunc: time.Now,
	}, nil
}

func (s *service) Get(ctx context.Context, userID uuid.UUID) (*PricedCart, error) {
	cart, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.priced(ctx, cart)
}

func (s *service) SetRegion(ctx context.Context, userID, regionID uuid.UUID) (*PricedCart, error) {
	if regionID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "region id required")
	}
	release := s.mutex.Lock(userID.String())
	defer release()

	cart, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	cart.RegionID = &regionID
	if err := s.repo.Update(ctx, cart); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart")
	}
	return s.priced(ctx, cart)
}

func (s *service) AddLine(ctx context.Context, userID uuid.UUID, params AddLineParams) (*PricedCart, error) {
	if params.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	hasProduct := params.ProductID != nil && *params.ProductID != uuid.Nil
	hasCombo := params.ComboID != nil && *params.ComboID != uuid.Nil
	if hasProduct == hasCombo {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "line references exactly one product or one combo")
	}
	if params.StarRating != nil {
		if hasCombo {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "star rating applies to product lines only")
		}
		if !params.StarRating.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid star rating")
		}
	}

	release := s.mutex.Lock(userID.String())
	defer release()

	cart, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	if hasProduct {
		product, err := s.catalog.GetProduct(ctx, *params.ProductID)
		if err != nil {
			return nil, err
		}
		if !product.IsActive {
			return nil, pkgerrors.New(pkgerrors.CodeStaleReference, "product no longer listed")
		}
		if cart.RegionID != nil && !product.AvailableInRegion(*cart.RegionID) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product not sold in the cart's region")
		}
	} else {
		combo, err := s.catalog.GetCombo(ctx, *params.ComboID)
		if err != nil {
			return nil, err
		}
		if !combo.IsActive {
			return nil, pkgerrors.New(pkgerrors.CodeStaleReference, "combo no longer listed")
		}
	}

	// Same identity merges into the existing line. For product lines
	// the selected rating is part of the identity.
	merged := false
	for _, line := range cart.Lines {
		if sameIdentity(line, params) {
			quantity := line.Quantity + params.Quantity
			if err := s.repo.UpdateLineQuantity(ctx, line.ID, quantity); err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart line")
			}
			merged = true
			break
		}
	}
	if !merged {
		line := &models.CartLine{
			CartID:     cart.ID,
			ProductID:  params.ProductID,
			ComboID:    params.ComboID,
			StarRating: params.StarRating,
			Quantity:   params.Quantity,
		}
		if err := s.repo.AddLine(ctx, line); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "add cart line")
		}
	}
	return s.reloadPriced(ctx, userID)
}

// UpdateLine sets a line's quantity. Zero or less removes the line.
func (s *service) UpdateLine(ctx context.Context, userID, lineID uuid.UUID, quantity int) (*PricedCart, error) {
	release := s.mutex.Lock(userID.String())
	defer release()
	return s.updateLineLocked(ctx, userID, lineID, quantity)
}

func (s *service) RemoveLine(ctx context.Context, userID, lineID uuid.UUID) (*PricedCart, error) {
	release := s.mutex.Lock(userID.String())
	defer release()
	return s.updateLineLocked(ctx, userID, lineID, 0)
}

func (s *service) updateLineLocked(ctx context.Context, userID, lineID uuid.UUID, quantity int) (*PricedCart, error) {
	cart, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !ownsLine(cart, lineID) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart line not found")
	}

	if quantity <= 0 {
		if err := s.repo.DeleteLine(ctx, lineID); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete cart line")
		}
	} else if err := s.repo.UpdateLineQuantity(ctx, lineID, quantity); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart line")
	}
	return s.reloadPriced(ctx, userID)
}

func (s *service) Clear(ctx context.Context, userID uuid.UUID) error {
	release := s.mutex.Lock(userID.String())
	defer release()

	cart, err := s.load(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteLines(ctx, cart.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
	}
	return nil
}

// Quote prices the cart against current catalog state. Empty carts are
// an error here, unlike Get, because checkout calls this path.
func (s *service) Quote(ctx context.Context, userID uuid.UUID) (*pricing.Quote, error) {
	cart, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.quoteCart(ctx, cart)
}

func (s *service) SweepStale(ctx context.Context, cutoff time.Time) (int64, error) {
	count, err := s.repo.DeleteIdleSince(ctx, cutoff)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sweep stale carts")
	}
	return count, nil
}

// load returns the user's cart, creating an empty one on first touch.
func (s *service) load(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	cart, err := s.repo.GetByUserID(ctx, userID)
	if err == nil {
		return cart, nil
	}
	if !db.IsNotFound(err) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}

	fresh := &models.Cart{UserID: userID}
	if err := s.repo.Create(ctx, fresh); err != nil {
		// Lost a create race; the winner's row is authoritative.
		if db.IsUniqueViolation(err, "") {
			return s.reload(ctx, userID)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create cart")
	}
	return fresh, nil
}

func (s *service) reload(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	cart, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	return cart, nil
}

func (s *service) reloadPriced(ctx context.Context, userID uuid.UUID) (*PricedCart, error) {
	cart, err := s.reload(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.priced(ctx, cart)
}

func (s *service) priced(ctx context.Context, cart *models.Cart) (*PricedCart, error) {
	if len(cart.Lines) == 0 {
		return &PricedCart{
			Cart:  *cart,
			Quote: &pricing.Quote{Currency: enums.CurrencyUSD},
		}, nil
	}
	quote, err := s.quoteCart(ctx, cart)
	if err != nil {
		return nil, err
	}
	return &PricedCart{Cart: *cart, Quote: quote}, nil
}

func (s *service) quoteCart(ctx context.Context, cart *models.Cart) (*pricing.Quote, error) {
	if len(cart.Lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeEmptyCart, "cart has no lines")
	}
	if cart.RegionID == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery region not set on cart")
	}

	refs := LineRefs(cart)
	snapshot, err := s.catalog.Snapshot(ctx, *cart.RegionID, refs, s.nowFunc())
	if err != nil {
		return nil, err
	}
	return pricing.Compute(pricing.Input{
		Lines:    refs,
		Snapshot: *snapshot,
	})
}

// LineRefs converts stored cart lines into pricing line refs.
func LineRefs(cart *models.Cart) []pricing.LineRef {
	refs := make([]pricing.LineRef, 0, len(cart.Lines))
	for _, line := range cart.Lines {
		refs = append(refs, pricing.LineRef{
			ProductID: line.ProductID,
			ComboID:   line.ComboID,
			Quantity:  line.Quantity,
			Rating:    line.StarRating,
		})
	}
	return refs
}

func sameIdentity(line models.CartLine, params AddLineParams) bool {
	if line.ProductID != nil && params.ProductID != nil {
		return *line.ProductID == *params.ProductID && sameRating(line.StarRating, params.StarRating)
	}
	if line.ComboID != nil && params.ComboID != nil {
		return *line.ComboID == *params.ComboID
	}
	return false
}

func sameRating(a, b *enums.StarRating) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func ownsLine(cart *models.Cart, lineID uuid.UUID) bool {
	for _, line := range cart.Lines {
		if line.ID == lineID {
			return true
		}
	}
	return false
}
