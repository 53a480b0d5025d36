package catalog

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/ttkdelivery/ttk-backend/internal/pricing"
	"github.com/ttkdelivery/ttk-backend/pkg/db"
	"github.com/ttkdelivery/ttk-backend/pkg/db/models"
	"github.com/ttkdelivery/ttk-backend/pkg/enums"
	pkgerrors "github.com/ttkdelivery/ttk-backend/pkg/errors"
	"github.com/ttkdelivery/ttk-backend/pkg/logger"
	"github.com/ttkdelivery/ttk-backend/pkg/outbox"
	"github.com/ttkdelivery/ttk-backend/pkg/pagination"
	"github.com/ttkdelivery/ttk-backend/pkg/types"
)

// Service defines catalog management: products, combos and fire sales.
type Service interface {
	CreateProduct(ctx context.Context, params CreateProductParams) (*models.Product, error)
	UpdateProduct(ctx context.Context, id uuid.UUID, params UpdateProductParams) (*models.Product, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	ListProducts(ctx context.Context, params ListProductsParams) ([]models.Product, string, error)
	SetProductStock(ctx context.Context, id uuid.UUID, inStock bool, actor *outbox.ActorRef) error

	CreateCombo(ctx context.Context, params CreateComboParams) (*models.Combo, error)
	SetComboActive(ctx context.Context, id uuid.UUID, active bool) error
	GetCombo(ctx context.Context, id uuid.UUID) (*models.Combo, error)
	ListCombos(ctx context.Context, activeOnly bool) ([]models.Combo, error)

	CreateFireSale(ctx context.Context, params CreateFireSaleParams, actor *outbox.ActorRef) (*models.FireSale, error)
	EndFireSale(ctx context.Context, id uuid.UUID, actor *outbox.ActorRef) error
	ListFireSales(ctx context.Context, activeOnly bool) ([]models.FireSale, error)

	Snapshot(ctx context.Context, regionID uuid.UUID, refs []pricing.LineRef, now time.Time) (*pricing.Snapshot, error)
	SweepExpiredFireSales(ctx context.Context, now time.Time) (int, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type service struct {
	repo    Repository
	tx      txRunner
	events  eventEmitter
	logg    *logger.Logger
	nowFunc func() time.Time
}

// NewService wires catalog dependencies.
func NewService(repo Repository, client *db.Client, events *outbox.Service, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "catalog repository required")
	}
	if client == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "database client required")
	}
	if events == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "outbox service required")
	}
	return &service{
		repo:    repo,
		tx:      client,
		events:  events,
		logg:    logg,
		nowFunc: time.Now,
	}, nil
}

// CreateProductParams carries inputs for a new product.
type CreateProductParams struct {
	Name           string
	Description    *string
	Category       enums.ProductCategory
	PriceCents     int64
	PriceTable     map[string]int64
	RequiresRating bool
	RegionIDs      []uuid.UUID
}

// UpdateProductParams carries mutable product fields. Nil means keep current.
type UpdateProductParams struct {
	Name        *string
	Description *string
	Category    *enums.ProductCategory
	PriceCents  *int64
	PriceTable  map[string]int64
	RegionIDs   []uuid.UUID
	IsActive    *bool
}

// ListProductsParams filters the storefront product listing.
type ListProductsParams struct {
	Category      *enums.ProductCategory
	RegionID      *uuid.UUID
	IncludeHidden bool
	Limit         int
	Cursor        string
}

// CreateComboParams carries inputs for a new combo.
type CreateComboParams struct {
	Name       string
	PriceCents int64
	Slots      []ComboSlotParams
}

// ComboSlotParams names one combo component.
type ComboSlotParams struct {
	ProductID uuid.UUID
	Quantity  int
}

// CreateFireSaleParams carries inputs for a new fire sale. Exactly one
// of ProductID or Category is set.
type CreateFireSaleParams struct {
	Name            string
	ProductID       *uuid.UUID
	Category        *enums.ProductCategory
	DiscountPercent int
	StartsAt        *time.Time
	EndsAt          *time.Time
}

func (s *service) CreateProduct(ctx context.Context, params CreateProductParams) (*models.Product, error) {
	if strings.TrimSpace(params.Name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product name required")
	}
	if !params.Category.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid product category")
	}
	table, err := buildPriceTable(params.RequiresRating, params.PriceCents, params.PriceTable)
	if err != nil {
		return nil, err
	}

	product := &models.Product{
		Name:           strings.TrimSpace(params.Name),
		Description:    params.Description,
		Category:       params.Category,
		PriceCents:     params.PriceCents,
		PriceTable:     table,
		RequiresRating: params.RequiresRating,
		RegionIDs:      uuidArray(params.RegionIDs),
		InStock:        true,
		IsActive:       true,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).CreateProduct(ctx, product); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create product")
		}
		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventProductCreated,
			AggregateType: enums.AggregateProduct,
			AggregateID:   product.ID,
			Data: map[string]any{
				"name":     product.Name,
				"category": product.Category,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	if s.logg != nil {
		s.logg.Info(s.logg.WithField(ctx, "product_id", product.ID.String()), "product created")
	}
	return product, nil
}

func (s *service) UpdateProduct(ctx context.Context, id uuid.UUID, params UpdateProductParams) (*models.Product, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	product, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}

	if params.Name != nil {
		if strings.TrimSpace(*params.Name) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product name required")
		}
		product.Name = strings.TrimSpace(*params.Name)
	}
	if params.Description != nil {
		product.Description = params.Description
	}
	if params.Category != nil {
		if !params.Category.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid product category")
		}
		product.Category = *params.Category
	}
	if params.PriceCents != nil {
		if *params.PriceCents <= 0 && !product.RequiresRating {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product price must be positive")
		}
		product.PriceCents = *params.PriceCents
	}
	if params.PriceTable != nil {
		table, err := buildPriceTable(product.RequiresRating, product.PriceCents, params.PriceTable)
		if err != nil {
			return nil, err
		}
		product.PriceTable = table
	}
	if params.RegionIDs != nil {
		product.RegionIDs = uuidArray(params.RegionIDs)
	}
	if params.IsActive != nil {
		product.IsActive = *params.IsActive
	}

	if err := s.repo.UpdateProduct(ctx, product); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update product")
	}
	return product, nil
}

func (s *service) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	product, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return product, nil
}

func (s *service) ListProducts(ctx context.Context, params ListProductsParams) ([]models.Product, string, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	products, next, err := s.repo.ListProducts(ctx, listProductsParams{
		Category:      params.Category,
		RegionID:      params.RegionID,
		IncludeHidden: params.IncludeHidden,
		Limit:         params.Limit,
		Cursor:        cursor,
	})
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}

	nextCursor := ""
	if next != nil {
		nextCursor = pagination.EncodeCursor(*next)
	}
	return products, nextCursor, nil
}

// SetProductStock flips availability. Restocks emit an event so
// interested buyers can be notified.
func (s *service) SetProductStock(ctx context.Context, id uuid.UUID, inStock bool, actor *outbox.ActorRef) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	product, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		changed, err := s.repo.WithTx(tx).SetProductStock(ctx, id, inStock)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "set product stock")
		}
		if !changed || !inStock {
			return nil
		}
		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventProductRestocked,
			AggregateType: enums.AggregateProduct,
			AggregateID:   id,
			Actor:         actor,
			Data: map[string]any{
				"name":     product.Name,
				"category": product.Category,
			},
		})
	})
}

func (s *service) CreateCombo(ctx context.Context, params CreateComboParams) (*models.Combo, error) {
	if strings.TrimSpace(params.Name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "combo name required")
	}
	if params.PriceCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "combo price must be positive")
	}
	if len(params.Slots) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "combo requires at least one component")
	}

	componentIDs := make([]uuid.UUID, 0, len(params.Slots))
	seen := make(map[uuid.UUID]bool, len(params.Slots))
	slots := make([]models.ComboSlot, 0, len(params.Slots))
	for _, slot := range params.Slots {
		if slot.ProductID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "combo component product id required")
		}
		if slot.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "combo component quantity must be positive")
		}
		if seen[slot.ProductID] {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "duplicate combo component")
		}
		seen[slot.ProductID] = true
		componentIDs = append(componentIDs, slot.ProductID)
		slots = append(slots, models.ComboSlot{ProductID: slot.ProductID, Quantity: slot.Quantity})
	}

	components, err := s.repo.GetProducts(ctx, componentIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load combo components")
	}
	byID := make(map[uuid.UUID]models.Product, len(components))
	for _, product := range components {
		byID[product.ID] = product
	}
	for _, id := range componentIDs {
		product, ok := byID[id]
		if !ok || !product.IsActive {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "combo component does not exist").
				WithDetails(map[string]any{"product_id": id.String()})
		}
	}

	combo := &models.Combo{
		Name:       strings.TrimSpace(params.Name),
		PriceCents: params.PriceCents,
		IsActive:   true,
		Slots:      slots,
	}
	if err := s.repo.CreateCombo(ctx, combo); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create combo")
	}
	if s.logg != nil {
		s.logg.Info(s.logg.WithField(ctx, "combo_id", combo.ID.String()), "combo created")
	}
	return combo, nil
}

func (s *service) SetComboActive(ctx context.Context, id uuid.UUID, active bool) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "combo id required")
	}
	combo, err := s.repo.GetCombo(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "combo not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load combo")
	}
	if combo.IsActive == active {
		return nil
	}
	combo.IsActive = active
	if err := s.repo.UpdateCombo(ctx, combo); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update combo")
	}
	return nil
}

func (s *service) GetCombo(ctx context.Context, id uuid.UUID) (*models.Combo, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "combo id required")
	}
	combo, err := s.repo.GetCombo(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "combo not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load combo")
	}
	return combo, nil
}

func (s *service) ListCombos(ctx context.Context, activeOnly bool) ([]models.Combo, error) {
	combos, err := s.repo.ListCombos(ctx, activeOnly)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list combos")
	}
	return combos, nil
}

func (s *service) CreateFireSale(ctx context.Context, params CreateFireSaleParams, actor *outbox.ActorRef) (*models.FireSale, error) {
	if strings.TrimSpace(params.Name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "fire sale name required")
	}
	if params.DiscountPercent <= 0 || params.DiscountPercent >= 100 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "discount percent must be between 1 and 99")
	}
	hasProduct := params.ProductID != nil && *params.ProductID != uuid.Nil
	hasCategory := params.Category != nil
	if hasProduct == hasCategory {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "fire sale targets exactly one product or one category")
	}
	if hasCategory && !params.Category.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid product category")
	}
	if params.StartsAt != nil && params.EndsAt != nil && !params.EndsAt.After(*params.StartsAt) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "fire sale must end after it starts")
	}
	if hasProduct {
		if _, err := s.GetProduct(ctx, *params.ProductID); err != nil {
			return nil, err
		}
	}

	sale := &models.FireSale{
		Name:            strings.TrimSpace(params.Name),
		ProductID:       params.ProductID,
		Category:        params.Category,
		DiscountPercent: params.DiscountPercent,
		StartsAt:        params.StartsAt,
		EndsAt:          params.EndsAt,
		IsActive:        true,
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).CreateFireSale(ctx, sale); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create fire sale")
		}
		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventFireSaleStarted,
			AggregateType: enums.AggregateFireSale,
			AggregateID:   sale.ID,
			Actor:         actor,
			Data: map[string]any{
				"name":             sale.Name,
				"discount_percent": sale.DiscountPercent,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return sale, nil
}

func (s *service) EndFireSale(ctx context.Context, id uuid.UUID, actor *outbox.ActorRef) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "fire sale id required")
	}
	sale, err := s.repo.GetFireSale(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "fire sale not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load fire sale")
	}
	if !sale.IsActive {
		return nil
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		sale.IsActive = false
		if err := s.repo.WithTx(tx).UpdateFireSale(ctx, sale); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "end fire sale")
		}
		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventFireSaleEnded,
			AggregateType: enums.AggregateFireSale,
			AggregateID:   sale.ID,
			Actor:         actor,
			Data:          map[string]any{"name": sale.Name},
		})
	})
}

func (s *service) ListFireSales(ctx context.Context, activeOnly bool) ([]models.FireSale, error) {
	sales, err := s.repo.ListFireSales(ctx, activeOnly)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list fire sales")
	}
	return sales, nil
}

// Snapshot assembles everything the pricing engine needs to quote the
// given line refs: the referenced products, the referenced combos with
// their component products, and all currently live fire sales.
func (s *service) Snapshot(ctx context.Context, regionID uuid.UUID, refs []pricing.LineRef, now time.Time) (*pricing.Snapshot, error) {
	if now.IsZero() {
		now = s.nowFunc()
	}

	productIDs := make([]uuid.UUID, 0, len(refs))
	comboIDs := make([]uuid.UUID, 0)
	seenProducts := make(map[uuid.UUID]bool)
	seenCombos := make(map[uuid.UUID]bool)
	for _, ref := range refs {
		if ref.ProductID != nil && !seenProducts[*ref.ProductID] {
			seenProducts[*ref.ProductID] = true
			productIDs = append(productIDs, *ref.ProductID)
		}
		if ref.ComboID != nil && !seenCombos[*ref.ComboID] {
			seenCombos[*ref.ComboID] = true
			comboIDs = append(comboIDs, *ref.ComboID)
		}
	}

	combos, err := s.repo.GetCombos(ctx, comboIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load combos")
	}
	comboMap := make(map[uuid.UUID]models.Combo, len(combos))
	for _, combo := range combos {
		comboMap[combo.ID] = combo
		for _, slot := range combo.Slots {
			if !seenProducts[slot.ProductID] {
				seenProducts[slot.ProductID] = true
				productIDs = append(productIDs, slot.ProductID)
			}
		}
	}

	products, err := s.repo.GetProducts(ctx, productIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load products")
	}
	productMap := make(map[uuid.UUID]models.Product, len(products))
	for _, product := range products {
		productMap[product.ID] = product
	}

	sales, err := s.repo.ListLiveFireSales(ctx, now)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load fire sales")
	}

	return &pricing.Snapshot{
		Products:  productMap,
		Combos:    comboMap,
		FireSales: sales,
		RegionID:  regionID,
		Now:       now,
	}, nil
}

// SweepExpiredFireSales deactivates sales past their end time and
// emits an ended event per sale. Returns how many were closed.
func (s *service) SweepExpiredFireSales(ctx context.Context, now time.Time) (int, error) {
	if now.IsZero() {
		now = s.nowFunc()
	}
	var count int
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		expired, err := s.repo.WithTx(tx).ExpireFireSales(ctx, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "expire fire sales")
		}
		count = len(expired)
		for _, sale := range expired {
			// at most one ended event per sale, even if a manual end raced
			err := s.events.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventFireSaleEnded,
				AggregateType: enums.AggregateFireSale,
				AggregateID:   sale.ID,
				Data:          map[string]any{"name": sale.Name},
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

func buildPriceTable(requiresRating bool, priceCents int64, raw map[string]int64) (types.PriceTable, error) {
	table := types.PriceTable(raw)
	if !requiresRating {
		if priceCents <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product price must be positive")
		}
		return table, nil
	}
	if len(table) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rating priced product requires a price table")
	}
	if err := table.Validate(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid price table")
	}
	return table, nil
}

func uuidArray(ids []uuid.UUID) pq.StringArray {
	out := make(pq.StringArray, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.String())
	}
	return out
}
