package pricing

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/ttkdelivery/ttk-backend/pkg/db/models"
	"github.com/ttkdelivery/ttk-backend/pkg/enums"
	pkgerrors "github.com/ttkdelivery/ttk-backend/pkg/errors"
	"github.com/ttkdelivery/ttk-backend/pkg/types"
)

var now = time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

func snapshotWith(products []models.Product, combos []models.Combo, sales []models.FireSale) Snapshot {
	snap := Snapshot{
		Products:  map[uuid.UUID]models.Product{},
		Combos:    map[uuid.UUID]models.Combo{},
		FireSales: sales,
		Now:       now,
	}
	for _, p := range products {
		snap.Products[p.ID] = p
	}
	for _, c := range combos {
		snap.Combos[c.ID] = c
	}
	return snap
}

func ratedFlower() models.Product {
	return models.Product{
		ID:             uuid.New(),
		Name:           "Flower A",
		Category:       enums.ProductCategoryFlower,
		RequiresRating: true,
		PriceTable:     types.PriceTable{"1": 4500, "2": 5000, "3": 5000, "4": 5500, "5": 5500},
		InStock:        true,
		IsActive:       true,
	}
}

func fixedPriceEdible() models.Product {
	return models.Product{
		ID:         uuid.New(),
		Name:       "Gummy Pack",
		Category:   enums.ProductCategoryEdibles,
		PriceCents: 2500,
		InStock:    true,
		IsActive:   true,
	}
}

func TestComputeFixedPriceLine(t *testing.T) {
	product := fixedPriceEdible()
	input := Input{
		Lines:    []LineRef{{ProductID: &product.ID, Quantity: 3}},
		Snapshot: snapshotWith([]models.Product{product}, nil, nil),
	}

	quote, err := Compute(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if quote.TotalCents != 7500 {
		t.Fatalf("expected 7500, got %d", quote.TotalCents)
	}
	if quote.Lines[0].UnitPriceCents != 2500 {
		t.Fatalf("unexpected unit price %d", quote.Lines[0].UnitPriceCents)
	}
}

func TestComputeRatedProductUsesTier(t *testing.T) {
	product := ratedFlower()
	rating := enums.StarRating(4)
	input := Input{
		Lines:    []LineRef{{ProductID: &product.ID, Quantity: 1, Rating: &rating}},
		Snapshot: snapshotWith([]models.Product{product}, nil, nil),
	}

	quote, err := Compute(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if quote.TotalCents != 5500 {
		t.Fatalf("expected tier price 5500, got %d", quote.TotalCents)
	}
}

func TestComputeResolvesTierPerLine(t *testing.T) {
	product := ratedFlower()
	low := enums.StarRating(1)
	high := enums.StarRating(5)
	input := Input{
		Lines: []LineRef{
			{ProductID: &product.ID, Quantity: 1, Rating: &low},
			{ProductID: &product.ID, Quantity: 1, Rating: &high},
		},
		Snapshot: snapshotWith([]models.Product{product}, nil, nil),
	}

	quote, err := Compute(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if quote.Lines[0].UnitPriceCents != 4500 {
		t.Fatalf("expected 1-star tier 4500, got %d", quote.Lines[0].UnitPriceCents)
	}
	if quote.Lines[1].UnitPriceCents != 5500 {
		t.Fatalf("expected 5-star tier 5500, got %d", quote.Lines[1].UnitPriceCents)
	}
	if quote.TotalCents != 10000 {
		t.Fatalf("expected total 10000, got %d", quote.TotalCents)
	}
}

func TestComputeRatedProductWithoutRatingFails(t *testing.T) {
	product := ratedFlower()
	input := Input{
		Lines:    []LineRef{{ProductID: &product.ID, Quantity: 1}},
		Snapshot: snapshotWith([]models.Product{product}, nil, nil),
	}

	_, err := Compute(input)
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestComputeMissingTierFails(t *testing.T) {
	product := ratedFlower()
	product.PriceTable = types.PriceTable{"5": 5500}
	rating := enums.StarRating(2)
	input := Input{
		Lines:    []LineRef{{ProductID: &product.ID, Quantity: 1, Rating: &rating}},
		Snapshot: snapshotWith([]models.Product{product}, nil, nil),
	}

	_, err := Compute(input)
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestComputeFireSaleDiscountRoundsHalfUp(t *testing.T) {
	product := ratedFlower()
	rating := enums.StarRating(4)
	sale := models.FireSale{
		ID:              uuid.New(),
		Name:            "Flower Friday",
		Category:        categoryPtr(enums.ProductCategoryFlower),
		DiscountPercent: 20,
		IsActive:        true,
	}
	input := Input{
		Lines:    []LineRef{{ProductID: &product.ID, Quantity: 1, Rating: &rating}},
		Snapshot: snapshotWith([]models.Product{product}, nil, []models.FireSale{sale}),
	}

	quote, err := Compute(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 5500 * 0.80 = 4400
	if quote.TotalCents != 4400 {
		t.Fatalf("expected 4400, got %d", quote.TotalCents)
	}
	if quote.DiscountCents != 1100 {
		t.Fatalf("expected discount 1100, got %d", quote.DiscountCents)
	}
	if quote.Lines[0].FireSaleID == nil || *quote.Lines[0].FireSaleID != sale.ID {
		t.Fatal("expected fire sale recorded on the line")
	}
	if quote.Lines[0].FireSalePercent == nil || *quote.Lines[0].FireSalePercent != 20 {
		t.Fatal("expected the applied percent recorded on the line")
	}
}

func TestComputeFireSalesNeverStack(t *testing.T) {
	product := fixedPriceEdible()
	categorySale := models.FireSale{
		ID:              uuid.New(),
		Category:        categoryPtr(enums.ProductCategoryEdibles),
		DiscountPercent: 10,
		IsActive:        true,
	}
	productSale := models.FireSale{
		ID:              uuid.New(),
		ProductID:       &product.ID,
		DiscountPercent: 25,
		IsActive:        true,
	}
	input := Input{
		Lines:    []LineRef{{ProductID: &product.ID, Quantity: 1}},
		Snapshot: snapshotWith([]models.Product{product}, nil, []models.FireSale{categorySale, productSale}),
	}

	quote, err := Compute(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Only the larger 25% discount applies: 2500 -> 1875.
	if quote.TotalCents != 1875 {
		t.Fatalf("expected 1875, got %d", quote.TotalCents)
	}
	if *quote.Lines[0].FireSaleID != productSale.ID {
		t.Fatal("expected the larger sale to win")
	}
}

func TestComputeExpiredSaleIgnored(t *testing.T) {
	product := fixedPriceEdible()
	ended := now.Add(-time.Hour)
	sale := models.FireSale{
		ID:              uuid.New(),
		ProductID:       &product.ID,
		DiscountPercent: 50,
		EndsAt:          &ended,
		IsActive:        true,
	}
	input := Input{
		Lines:    []LineRef{{ProductID: &product.ID, Quantity: 1}},
		Snapshot: snapshotWith([]models.Product{product}, nil, []models.FireSale{sale}),
	}

	quote, err := Compute(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if quote.TotalCents != 2500 {
		t.Fatalf("expected full price 2500, got %d", quote.TotalCents)
	}
	if quote.Lines[0].FireSaleID != nil {
		t.Fatal("expired sale should not be recorded")
	}
}

func TestComputeComboFixedPrice(t *testing.T) {
	flower := fixedPriceEdible()
	flower.PriceCents = 5000
	preroll := models.Product{
		ID:         uuid.New(),
		Name:       "Preroll Pack",
		Category:   enums.ProductCategoryPrerolls,
		PriceCents: 4500,
		InStock:    true,
		IsActive:   true,
	}
	combo := models.Combo{
		ID:         uuid.New(),
		Name:       "Mix Half",
		PriceCents: 8000,
		IsActive:   true,
		Slots: []models.ComboSlot{
			{ProductID: flower.ID, Quantity: 1},
			{ProductID: preroll.ID, Quantity: 1},
		},
	}
	input := Input{
		Lines:    []LineRef{{ComboID: &combo.ID, Quantity: 1}},
		Snapshot: snapshotWith([]models.Product{flower, preroll}, []models.Combo{combo}, nil),
	}

	quote, err := Compute(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Fixed combo price, not the 9500 component sum.
	if quote.TotalCents != 8000 {
		t.Fatalf("expected 8000, got %d", quote.TotalCents)
	}
}

func TestComputeComboComponentUnavailable(t *testing.T) {
	flower := fixedPriceEdible()
	missing := uuid.New()
	combo := models.Combo{
		ID:         uuid.New(),
		Name:       "Broken Mix",
		PriceCents: 8000,
		IsActive:   true,
		Slots: []models.ComboSlot{
			{ProductID: flower.ID, Quantity: 1},
			{ProductID: missing, Quantity: 1},
		},
	}
	input := Input{
		Lines:    []LineRef{{ComboID: &combo.ID, Quantity: 1}},
		Snapshot: snapshotWith([]models.Product{flower}, []models.Combo{combo}, nil),
	}

	_, err := Compute(input)
	if !pkgerrors.HasCode(err, pkgerrors.CodeComponentUnavailable) {
		t.Fatalf("expected component unavailable, got %v", err)
	}
}

func TestComputeComboCategorySaleDiscounts(t *testing.T) {
	flower := fixedPriceEdible()
	combo := models.Combo{
		ID:         uuid.New(),
		Name:       "Mix",
		PriceCents: 8000,
		IsActive:   true,
		Slots:      []models.ComboSlot{{ProductID: flower.ID, Quantity: 2}},
	}
	smaller := models.FireSale{
		ID:              uuid.New(),
		Category:        categoryPtr(enums.ProductCategoryCombo),
		DiscountPercent: 10,
		IsActive:        true,
	}
	sale := models.FireSale{
		ID:              uuid.New(),
		Category:        categoryPtr(enums.ProductCategoryCombo),
		DiscountPercent: 25,
		IsActive:        true,
	}
	input := Input{
		Lines:    []LineRef{{ComboID: &combo.ID, Quantity: 1}},
		Snapshot: snapshotWith([]models.Product{flower}, []models.Combo{combo}, []models.FireSale{smaller, sale}),
	}

	quote, err := Compute(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// The larger combo sale wins: 8000 * 0.75 = 6000.
	if quote.TotalCents != 6000 {
		t.Fatalf("expected 6000, got %d", quote.TotalCents)
	}
	if quote.DiscountCents != 2000 {
		t.Fatalf("expected discount 2000, got %d", quote.DiscountCents)
	}
	if quote.Lines[0].FireSaleID == nil || *quote.Lines[0].FireSaleID != sale.ID {
		t.Fatal("expected the combo sale recorded on the line")
	}
	if quote.Lines[0].FireSalePercent == nil || *quote.Lines[0].FireSalePercent != 25 {
		t.Fatal("expected the applied percent recorded on the line")
	}
}

func TestComputeComboIgnoresComponentSales(t *testing.T) {
	flower := fixedPriceEdible()
	combo := models.Combo{
		ID:         uuid.New(),
		Name:       "Mix",
		PriceCents: 8000,
		IsActive:   true,
		Slots:      []models.ComboSlot{{ProductID: flower.ID, Quantity: 2}},
	}
	componentSale := models.FireSale{
		ID:              uuid.New(),
		ProductID:       &flower.ID,
		DiscountPercent: 50,
		IsActive:        true,
	}
	categorySale := models.FireSale{
		ID:              uuid.New(),
		Category:        categoryPtr(enums.ProductCategoryEdibles),
		DiscountPercent: 50,
		IsActive:        true,
	}
	input := Input{
		Lines:    []LineRef{{ComboID: &combo.ID, Quantity: 1}},
		Snapshot: snapshotWith([]models.Product{flower}, []models.Combo{combo}, []models.FireSale{componentSale, categorySale}),
	}

	quote, err := Compute(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Sales on components or their categories never reach the combo's
	// fixed price.
	if quote.TotalCents != 8000 {
		t.Fatalf("expected full combo price 8000, got %d", quote.TotalCents)
	}
	if quote.Lines[0].FireSaleID != nil {
		t.Fatal("expected no sale recorded on the combo line")
	}
}

func TestComputeStaleProduct(t *testing.T) {
	product := fixedPriceEdible()
	product.IsActive = false
	input := Input{
		Lines:    []LineRef{{ProductID: &product.ID, Quantity: 1}},
		Snapshot: snapshotWith([]models.Product{product}, nil, nil),
	}

	_, err := Compute(input)
	if !pkgerrors.HasCode(err, pkgerrors.CodeStaleReference) {
		t.Fatalf("expected stale reference, got %v", err)
	}
}

func TestComputeRegionScopedProduct(t *testing.T) {
	regionID := uuid.New()
	otherRegion := uuid.New()
	product := fixedPriceEdible()
	product.RegionIDs = []string{otherRegion.String()}

	snap := snapshotWith([]models.Product{product}, nil, nil)
	snap.RegionID = regionID
	input := Input{
		Lines:    []LineRef{{ProductID: &product.ID, Quantity: 1}},
		Snapshot: snap,
	}

	_, err := Compute(input)
	if !pkgerrors.HasCode(err, pkgerrors.CodeStaleReference) {
		t.Fatalf("expected stale reference for wrong region, got %v", err)
	}
}

func TestComputeEmptyInput(t *testing.T) {
	_, err := Compute(Input{})
	if !pkgerrors.HasCode(err, pkgerrors.CodeEmptyCart) {
		t.Fatalf("expected empty cart error, got %v", err)
	}
}

func TestComputeRejectsDoubleReference(t *testing.T) {
	product := fixedPriceEdible()
	comboID := uuid.New()
	input := Input{
		Lines:    []LineRef{{ProductID: &product.ID, ComboID: &comboID, Quantity: 1}},
		Snapshot: snapshotWith([]models.Product{product}, nil, nil),
	}

	_, err := Compute(input)
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func categoryPtr(c enums.ProductCategory) *enums.ProductCategory {
	return &c
}
