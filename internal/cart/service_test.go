package cart

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ttkdelivery/ttk-backend/internal/locks"
	"github.com/ttkdelivery/ttk-backend/internal/pricing"
	"github.com/ttkdelivery/ttk-backend/pkg/db/models"
	"github.com/ttkdelivery/ttk-backend/pkg/enums"
	pkgerrors "github.com/ttkdelivery/ttk-backend/pkg/errors"
)

type fakeRepository struct {
	getByUserIDFn        func(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	createFn             func(ctx context.Context, cart *models.Cart) error
	updateFn             func(ctx context.Context, cart *models.Cart) error
	addLineFn            func(ctx context.Context, line *models.CartLine) error
	updateLineQuantityFn func(ctx context.Context, lineID uuid.UUID, quantity int) error
	deleteLineFn         func(ctx context.Context, lineID uuid.UUID) error
	deleteLinesFn        func(ctx context.Context, cartID uuid.UUID) error
	deleteIdleSinceFn    func(ctx context.Context, cutoff time.Time) (int64, error)
}

func (f *fakeRepository) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	if f.getByUserIDFn != nil {
		return f.getByUserIDFn(ctx, userID)
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepository) Create(ctx context.Context, cart *models.Cart) error {
	if f.createFn != nil {
		return f.createFn(ctx, cart)
	}
	cart.ID = uuid.New()
	return nil
}

func (f *fakeRepository) Update(ctx context.Context, cart *models.Cart) error {
	if f.updateFn != nil {
		return f.updateFn(ctx, cart)
	}
	return nil
}

func (f *fakeRepository) Delete(ctx context.Context, id uuid.UUID) error { return nil }

func (f *fakeRepository) AddLine(ctx context.Context, line *models.CartLine) error {
	if f.addLineFn != nil {
		return f.addLineFn(ctx, line)
	}
	line.ID = uuid.New()
	return nil
}

func (f *fakeRepository) UpdateLineQuantity(ctx context.Context, lineID uuid.UUID, quantity int) error {
	if f.updateLineQuantityFn != nil {
		return f.updateLineQuantityFn(ctx, lineID, quantity)
	}
	return nil
}

func (f *fakeRepository) DeleteLine(ctx context.Context, lineID uuid.UUID) error {
	if f.deleteLineFn != nil {
		return f.deleteLineFn(ctx, lineID)
	}
	return nil
}

func (f *fakeRepository) DeleteLines(ctx context.Context, cartID uuid.UUID) error {
	if f.deleteLinesFn != nil {
		return f.deleteLinesFn(ctx, cartID)
	}
	return nil
}

func (f *fakeRepository) DeleteIdleSince(ctx context.Context, cutoff time.Time) (int64, error) {
	if f.deleteIdleSinceFn != nil {
		return f.deleteIdleSinceFn(ctx, cutoff)
	}
	return 0, nil
}

type fakeCatalog struct {
	getProductFn func(ctx context.Context, id uuid.UUID) (*models.Product, error)
	getComboFn   func(ctx context.Context, id uuid.UUID) (*models.Combo, error)
	snapshotFn   func(ctx context.Context, regionID uuid.UUID, refs []pricing.LineRef, now time.Time) (*pricing.Snapshot, error)
}

func (f *fakeCatalog) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	if f.getProductFn != nil {
		return f.getProductFn(ctx, id)
	}
	return &models.Product{ID: id, IsActive: true, InStock: true, PriceCents: 1000}, nil
}

func (f *fakeCatalog) GetCombo(ctx context.Context, id uuid.UUID) (*models.Combo, error) {
	if f.getComboFn != nil {
		return f.getComboFn(ctx, id)
	}
	return &models.Combo{ID: id, IsActive: true, PriceCents: 5000}, nil
}

func (f *fakeCatalog) Snapshot(ctx context.Context, regionID uuid.UUID, refs []pricing.LineRef, now time.Time) (*pricing.Snapshot, error) {
	if f.snapshotFn != nil {
		return f.snapshotFn(ctx, regionID, refs, now)
	}
	return &pricing.Snapshot{RegionID: regionID, Now: now}, nil
}

func newTestService(repo *fakeRepository, cat *fakeCatalog) *service {
	return &service{
		repo:    repo,
		catalog: cat,
		mutex:   locks.NewKeyedMutex(),
		nowFunc: time.Now,
	}
}

// snapshotWith returns a snapshot function serving a fixed product set.
func snapshotWith(products ...models.Product) func(ctx context.Context, regionID uuid.UUID, refs []pricing.LineRef, now time.Time) (*pricing.Snapshot, error) {
	return func(ctx context.Context, regionID uuid.UUID, refs []pricing.LineRef, now time.Time) (*pricing.Snapshot, error) {
		byID := make(map[uuid.UUID]models.Product, len(products))
		for _, p := range products {
			byID[p.ID] = p
		}
		return &pricing.Snapshot{Products: byID, RegionID: regionID, Now: now}, nil
	}
}

func TestGetCreatesCartOnFirstTouch(t *testing.T) {
	userID := uuid.New()
	created := false
	repo := &fakeRepository{
		createFn: func(ctx context.Context, cart *models.Cart) error {
			created = true
			cart.ID = uuid.New()
			return nil
		},
	}
	svc := newTestService(repo, &fakeCatalog{})

	priced, err := svc.Get(context.Background(), userID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !created {
		t.Fatalf("expected a cart to be created")
	}
	if priced.Cart.UserID != userID {
		t.Fatalf("cart bound to wrong user")
	}
	if priced.Quote == nil || priced.Quote.TotalCents != 0 {
		t.Fatalf("expected a zero quote for an empty cart")
	}
}

func TestAddLineRejectsAmbiguousIdentity(t *testing.T) {
	svc := newTestService(&fakeRepository{}, &fakeCatalog{})
	productID, comboID := uuid.New(), uuid.New()

	cases := []struct {
		name   string
		params AddLineParams
	}{
		{"no identity", AddLineParams{Quantity: 1}},
		{"both identities", AddLineParams{ProductID: &productID, ComboID: &comboID, Quantity: 1}},
		{"zero quantity", AddLineParams{ProductID: &productID, Quantity: 0}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.AddLine(context.Background(), uuid.New(), tc.params)
			if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestAddLineRejectsDelistedProduct(t *testing.T) {
	productID := uuid.New()
	cat := &fakeCatalog{
		getProductFn: func(ctx context.Context, id uuid.UUID) (*models.Product, error) {
			return &models.Product{ID: id, IsActive: false}, nil
		},
	}
	svc := newTestService(&fakeRepository{}, cat)

	_, err := svc.AddLine(context.Background(), uuid.New(), AddLineParams{ProductID: &productID, Quantity: 1})
	if !pkgerrors.HasCode(err, pkgerrors.CodeStaleReference) {
		t.Fatalf("expected stale reference error, got %v", err)
	}
}

func TestAddLineRejectsRegionMismatch(t *testing.T) {
	userID := uuid.New()
	cartRegion := uuid.New()
	otherRegion := uuid.New()
	productID := uuid.New()

	repo := &fakeRepository{
		getByUserIDFn: func(ctx context.Context, id uuid.UUID) (*models.Cart, error) {
			return &models.Cart{ID: uuid.New(), UserID: userID, RegionID: &cartRegion}, nil
		},
	}
	cat := &fakeCatalog{
		getProductFn: func(ctx context.Context, id uuid.UUID) (*models.Product, error) {
			return &models.Product{
				ID:        id,
				IsActive:  true,
				RegionIDs: []string{otherRegion.String()},
			}, nil
		},
	}
	svc := newTestService(repo, cat)

	_, err := svc.AddLine(context.Background(), userID, AddLineParams{ProductID: &productID, Quantity: 1})
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for region mismatch, got %v", err)
	}
}

func TestAddLineMergesSameIdentity(t *testing.T) {
	userID := uuid.New()
	regionID := uuid.New()
	productID := uuid.New()
	lineID := uuid.New()
	cartID := uuid.New()

	mergedQty := 0
	quantity := 2
	repo := &fakeRepository{
		getByUserIDFn: func(ctx context.Context, id uuid.UUID) (*models.Cart, error) {
			return &models.Cart{
				ID:       cartID,
				UserID:   userID,
				RegionID: &regionID,
				Lines: []models.CartLine{
					{ID: lineID, CartID: cartID, ProductID: &productID, Quantity: quantity},
				},
			}, nil
		},
		updateLineQuantityFn: func(ctx context.Context, id uuid.UUID, qty int) error {
			if id != lineID {
				t.Fatalf("merged into wrong line %s", id)
			}
			mergedQty = qty
			quantity = qty
			return nil
		},
		addLineFn: func(ctx context.Context, line *models.CartLine) error {
			t.Fatalf("expected merge, got new line")
			return nil
		},
	}
	cat := &fakeCatalog{
		snapshotFn: snapshotWith(models.Product{
			ID: productID, IsActive: true, InStock: true,
			Category: enums.ProductCategoryFlower, PriceCents: 1000,
		}),
	}
	svc := newTestService(repo, cat)

	priced, err := svc.AddLine(context.Background(), userID, AddLineParams{ProductID: &productID, Quantity: 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mergedQty != 5 {
		t.Fatalf("expected merged quantity 5, got %d", mergedQty)
	}
	if priced.Quote.TotalCents != 5000 {
		t.Fatalf("expected repriced total 5000, got %d", priced.Quote.TotalCents)
	}
}

func TestAddLineDistinctRatingAddsNewLine(t *testing.T) {
	userID := uuid.New()
	regionID := uuid.New()
	productID := uuid.New()
	cartID := uuid.New()

	var added *models.CartLine
	repo := &fakeRepository{
		getByUserIDFn: func(ctx context.Context, id uuid.UUID) (*models.Cart, error) {
			return &models.Cart{
				ID:       cartID,
				UserID:   userID,
				RegionID: &regionID,
				Lines: []models.CartLine{
					{ID: uuid.New(), CartID: cartID, ProductID: &productID, StarRating: ratingPtr(3), Quantity: 1},
				},
			}, nil
		},
		updateLineQuantityFn: func(ctx context.Context, id uuid.UUID, qty int) error {
			t.Fatalf("expected a new line, got merge")
			return nil
		},
		addLineFn: func(ctx context.Context, line *models.CartLine) error {
			line.ID = uuid.New()
			added = line
			return nil
		},
	}
	cat := &fakeCatalog{
		snapshotFn: snapshotWith(models.Product{
			ID: productID, IsActive: true, InStock: true,
			Category: enums.ProductCategoryFlower, PriceCents: 1000,
		}),
	}
	svc := newTestService(repo, cat)

	params := AddLineParams{ProductID: &productID, StarRating: ratingPtr(5), Quantity: 2}
	if _, err := svc.AddLine(context.Background(), userID, params); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if added == nil {
		t.Fatal("expected a new line for the other rating")
	}
	if added.StarRating == nil || *added.StarRating != 5 {
		t.Fatalf("expected rating 5 stored on the line, got %v", added.StarRating)
	}
}

func TestAddLineMergesSameProductAndRating(t *testing.T) {
	userID := uuid.New()
	regionID := uuid.New()
	productID := uuid.New()
	lineID := uuid.New()
	cartID := uuid.New()

	mergedQty := 0
	repo := &fakeRepository{
		getByUserIDFn: func(ctx context.Context, id uuid.UUID) (*models.Cart, error) {
			return &models.Cart{
				ID:       cartID,
				UserID:   userID,
				RegionID: &regionID,
				Lines: []models.CartLine{
					{ID: lineID, CartID: cartID, ProductID: &productID, StarRating: ratingPtr(4), Quantity: 1},
				},
			}, nil
		},
		updateLineQuantityFn: func(ctx context.Context, id uuid.UUID, qty int) error {
			mergedQty = qty
			return nil
		},
		addLineFn: func(ctx context.Context, line *models.CartLine) error {
			t.Fatalf("expected merge, got new line")
			return nil
		},
	}
	cat := &fakeCatalog{
		snapshotFn: snapshotWith(models.Product{
			ID: productID, IsActive: true, InStock: true,
			Category: enums.ProductCategoryFlower, PriceCents: 1000,
		}),
	}
	svc := newTestService(repo, cat)

	params := AddLineParams{ProductID: &productID, StarRating: ratingPtr(4), Quantity: 2}
	if _, err := svc.AddLine(context.Background(), userID, params); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mergedQty != 3 {
		t.Fatalf("expected merged quantity 3, got %d", mergedQty)
	}
}

func TestAddLineRejectsRatingOnCombo(t *testing.T) {
	svc := newTestService(&fakeRepository{}, &fakeCatalog{})
	comboID := uuid.New()

	params := AddLineParams{ComboID: &comboID, StarRating: ratingPtr(3), Quantity: 1}
	_, err := svc.AddLine(context.Background(), uuid.New(), params)
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestAddLineRejectsInvalidRating(t *testing.T) {
	svc := newTestService(&fakeRepository{}, &fakeCatalog{})
	productID := uuid.New()

	params := AddLineParams{ProductID: &productID, StarRating: ratingPtr(9), Quantity: 1}
	_, err := svc.AddLine(context.Background(), uuid.New(), params)
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestUpdateLineZeroRemoves(t *testing.T) {
	userID := uuid.New()
	lineID := uuid.New()
	deleted := false
	productID := uuid.New()
	repo := &fakeRepository{
		getByUserIDFn: func(ctx context.Context, id uuid.UUID) (*models.Cart, error) {
			cart := &models.Cart{ID: uuid.New(), UserID: userID}
			if !deleted {
				cart.Lines = []models.CartLine{{ID: lineID, ProductID: &productID, Quantity: 1}}
			}
			return cart, nil
		},
		deleteLineFn: func(ctx context.Context, id uuid.UUID) error {
			deleted = id == lineID
			return nil
		},
	}
	svc := newTestService(repo, &fakeCatalog{})

	priced, err := svc.UpdateLine(context.Background(), userID, lineID, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !deleted {
		t.Fatalf("expected line deletion")
	}
	if len(priced.Cart.Lines) != 0 {
		t.Fatalf("expected empty cart after removal")
	}
}

func TestUpdateLineForeignLineNotFound(t *testing.T) {
	userID := uuid.New()
	repo := &fakeRepository{
		getByUserIDFn: func(ctx context.Context, id uuid.UUID) (*models.Cart, error) {
			return &models.Cart{ID: uuid.New(), UserID: userID}, nil
		},
	}
	svc := newTestService(repo, &fakeCatalog{})

	_, err := svc.UpdateLine(context.Background(), userID, uuid.New(), 2)
	if !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestQuoteEmptyCart(t *testing.T) {
	userID := uuid.New()
	regionID := uuid.New()
	repo := &fakeRepository{
		getByUserIDFn: func(ctx context.Context, id uuid.UUID) (*models.Cart, error) {
			return &models.Cart{ID: uuid.New(), UserID: userID, RegionID: &regionID}, nil
		},
	}
	svc := newTestService(repo, &fakeCatalog{})

	_, err := svc.Quote(context.Background(), userID)
	if !pkgerrors.HasCode(err, pkgerrors.CodeEmptyCart) {
		t.Fatalf("expected empty cart error, got %v", err)
	}
}

func TestQuoteRequiresRegion(t *testing.T) {
	userID := uuid.New()
	productID := uuid.New()
	repo := &fakeRepository{
		getByUserIDFn: func(ctx context.Context, id uuid.UUID) (*models.Cart, error) {
			return &models.Cart{
				ID:     uuid.New(),
				UserID: userID,
				Lines:  []models.CartLine{{ID: uuid.New(), ProductID: &productID, Quantity: 1}},
			}, nil
		},
	}
	svc := newTestService(repo, &fakeCatalog{})

	_, err := svc.Quote(context.Background(), userID)
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestQuotePricesAgainstSnapshot(t *testing.T) {
	userID := uuid.New()
	regionID := uuid.New()
	productID := uuid.New()

	repo := &fakeRepository{
		getByUserIDFn: func(ctx context.Context, id uuid.UUID) (*models.Cart, error) {
			return &models.Cart{
				ID:       uuid.New(),
				UserID:   userID,
				RegionID: &regionID,
				Lines:    []models.CartLine{{ID: uuid.New(), ProductID: &productID, Quantity: 2}},
			}, nil
		},
	}
	cat := &fakeCatalog{
		snapshotFn: snapshotWith(models.Product{
			ID: productID, IsActive: true, InStock: true,
			Category: enums.ProductCategoryEdibles, PriceCents: 1500,
		}),
	}
	svc := newTestService(repo, cat)

	quote, err := svc.Quote(context.Background(), userID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if quote.TotalCents != 3000 {
		t.Fatalf("expected total 3000, got %d", quote.TotalCents)
	}
}

func TestQuoteCarriesLineRatings(t *testing.T) {
	userID := uuid.New()
	regionID := uuid.New()
	productID := uuid.New()

	repo := &fakeRepository{
		getByUserIDFn: func(ctx context.Context, id uuid.UUID) (*models.Cart, error) {
			return &models.Cart{
				ID:       uuid.New(),
				UserID:   userID,
				RegionID: &regionID,
				Lines: []models.CartLine{
					{ID: uuid.New(), ProductID: &productID, StarRating: ratingPtr(2), Quantity: 1},
				},
			}, nil
		},
	}
	var seen []pricing.LineRef
	cat := &fakeCatalog{
		snapshotFn: func(ctx context.Context, regionID uuid.UUID, refs []pricing.LineRef, now time.Time) (*pricing.Snapshot, error) {
			seen = refs
			return snapshotWith(models.Product{
				ID: productID, IsActive: true, InStock: true,
				Category: enums.ProductCategoryFlower, PriceCents: 1000,
			})(ctx, regionID, refs, now)
		},
	}
	svc := newTestService(repo, cat)

	if _, err := svc.Quote(context.Background(), userID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(seen) != 1 || seen[0].Rating == nil || *seen[0].Rating != 2 {
		t.Fatalf("expected the stored rating on the line ref, got %+v", seen)
	}
}

func ratingPtr(r int) *enums.StarRating {
	rating := enums.StarRating(r)
	return &rating
}
