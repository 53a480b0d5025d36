package pricing

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ttkdelivery/ttk-backend/pkg/db/models"
	"github.com/ttkdelivery/ttk-backend/pkg/enums"
	pkgerrors "github.com/ttkdelivery/ttk-backend/pkg/errors"
)

// LineRef names one cart line by catalog identity. Exactly one of
// ProductID or ComboID is set. Rating is the star tier the buyer
// selected for this line, if the product prices by tier.
type LineRef struct {
	ProductID *uuid.UUID
	ComboID   *uuid.UUID
	Quantity  int
	Rating    *enums.StarRating
}

// Snapshot is the catalog state a quote prices against. Cart lines
// never cache prices, so callers fetch a fresh snapshot per quote.
type Snapshot struct {
	Products  map[uuid.UUID]models.Product
	Combos    map[uuid.UUID]models.Combo
	FireSales []models.FireSale
	RegionID  uuid.UUID
	Now       time.Time
}

// Input carries everything a quote needs.
type Input struct {
	Lines    []LineRef
	Snapshot Snapshot
}

// QuotedLine is one priced line of the result.
type QuotedLine struct {
	ProductID       *uuid.UUID `json:"product_id,omitempty"`
	ComboID         *uuid.UUID `json:"combo_id,omitempty"`
	Name            string     `json:"name"`
	Quantity        int        `json:"quantity"`
	UnitPriceCents  int64      `json:"unit_price_cents"`
	DiscountCents   int64      `json:"discount_cents"`
	TotalCents      int64      `json:"total_cents"`
	FireSaleID      *uuid.UUID `json:"fire_sale_id,omitempty"`
	FireSalePercent *int       `json:"fire_sale_percent,omitempty"`
}

// Quote is a full priced rendering of a set of lines.
type Quote struct {
	Lines         []QuotedLine   `json:"lines"`
	SubtotalCents int64          `json:"subtotal_cents"`
	DiscountCents int64          `json:"discount_cents"`
	TotalCents    int64          `json:"total_cents"`
	Currency      enums.Currency `json:"currency"`
}

var oneHundred = decimal.NewFromInt(100)

// Compute prices the given lines against the snapshot. It is pure: no
// I/O, no clock reads, everything comes from the input.
func Compute(input Input) (*Quote, error) {
	if len(input.Lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeEmptyCart, "no lines to price")
	}

	quote := &Quote{Currency: enums.CurrencyUSD}
	for _, ref := range input.Lines {
		if ref.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "line quantity must be positive")
		}

		var (
			line QuotedLine
			err  error
		)
		switch {
		case ref.ProductID != nil && ref.ComboID == nil:
			line, err = priceProductLine(ref, input)
		case ref.ComboID != nil && ref.ProductID == nil:
			line, err = priceComboLine(ref, input)
		default:
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "line must reference exactly one product or combo")
		}
		if err != nil {
			return nil, err
		}

		quote.Lines = append(quote.Lines, line)
		quote.SubtotalCents += line.UnitPriceCents * int64(line.Quantity)
		quote.DiscountCents += line.DiscountCents
		quote.TotalCents += line.TotalCents
	}
	return quote, nil
}

func priceProductLine(ref LineRef, input Input) (QuotedLine, error) {
	product, ok := input.Snapshot.Products[*ref.ProductID]
	if !ok || !product.IsActive {
		return QuotedLine{}, pkgerrors.New(pkgerrors.CodeStaleReference, "product no longer available").
			WithDetails(map[string]string{"product_id": ref.ProductID.String()})
	}
	if !product.InStock {
		return QuotedLine{}, pkgerrors.New(pkgerrors.CodeStaleReference, "product out of stock").
			WithDetails(map[string]string{"product_id": ref.ProductID.String()})
	}
	if input.Snapshot.RegionID != uuid.Nil && !product.AvailableInRegion(input.Snapshot.RegionID) {
		return QuotedLine{}, pkgerrors.New(pkgerrors.CodeStaleReference, "product not sold in this region").
			WithDetails(map[string]string{"product_id": ref.ProductID.String()})
	}

	unitCents, err := resolveUnitPrice(product, ref.Rating)
	if err != nil {
		return QuotedLine{}, err
	}

	line := QuotedLine{
		ProductID:      ref.ProductID,
		Name:           product.Name,
		Quantity:       ref.Quantity,
		UnitPriceCents: unitCents,
	}
	applyBestFireSale(&line, input.Snapshot, func(sale models.FireSale) bool {
		return sale.Matches(product)
	})
	return line, nil
}

func priceComboLine(ref LineRef, input Input) (QuotedLine, error) {
	combo, ok := input.Snapshot.Combos[*ref.ComboID]
	if !ok || !combo.IsActive {
		return QuotedLine{}, pkgerrors.New(pkgerrors.CodeStaleReference, "combo no longer available").
			WithDetails(map[string]string{"combo_id": ref.ComboID.String()})
	}

	// Every component must still be orderable for the fixed price to hold.
	for _, slot := range combo.Slots {
		component, ok := input.Snapshot.Products[slot.ProductID]
		if !ok || !component.IsActive || !component.InStock {
			return QuotedLine{}, pkgerrors.New(pkgerrors.CodeComponentUnavailable, "combo component no longer available").
				WithDetails(map[string]string{
					"combo_id":   ref.ComboID.String(),
					"product_id": slot.ProductID.String(),
				})
		}
		if input.Snapshot.RegionID != uuid.Nil && !component.AvailableInRegion(input.Snapshot.RegionID) {
			return QuotedLine{}, pkgerrors.New(pkgerrors.CodeComponentUnavailable, "combo component not sold in this region").
				WithDetails(map[string]string{
					"combo_id":   ref.ComboID.String(),
					"product_id": slot.ProductID.String(),
				})
		}
	}

	// Combos carry a fixed price. Only sales scoped to the combo
	// category can discount it; component-level sales never leak in.
	line := QuotedLine{
		ComboID:        ref.ComboID,
		Name:           combo.Name,
		Quantity:       ref.Quantity,
		UnitPriceCents: combo.PriceCents,
	}
	applyBestFireSale(&line, input.Snapshot, func(sale models.FireSale) bool {
		return sale.MatchesCombo()
	})
	return line, nil
}

func resolveUnitPrice(product models.Product, rating *enums.StarRating) (int64, error) {
	if !product.RequiresRating {
		return product.PriceCents, nil
	}
	if rating == nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "buyer rating required for this product").
			WithDetails(map[string]string{"product_id": product.ID.String()})
	}
	if !rating.IsValid() {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid star rating %d", int(*rating)))
	}
	cents, ok := product.PriceTable.ForRating(int(*rating))
	if !ok {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "no price tier for buyer rating").
			WithDetails(map[string]string{
				"product_id": product.ID.String(),
				"rating":     rating.Key(),
			})
	}
	return cents, nil
}

// applyBestFireSale applies at most one discount: the live sale with
// the largest percentage among those the matcher accepts. Discount
// math runs in decimal and rounds half up per line.
func applyBestFireSale(line *QuotedLine, snap Snapshot, matches func(models.FireSale) bool) {
	var best *models.FireSale
	for i := range snap.FireSales {
		sale := &snap.FireSales[i]
		if !sale.LiveAt(snap.Now) || !matches(*sale) {
			continue
		}
		if best == nil || sale.DiscountPercent > best.DiscountPercent {
			best = sale
		}
	}

	gross := line.UnitPriceCents * int64(line.Quantity)
	if best == nil {
		line.TotalCents = gross
		return
	}

	grossDec := decimal.NewFromInt(gross)
	pct := decimal.NewFromInt(int64(best.DiscountPercent)).Div(oneHundred)
	discounted := grossDec.Mul(decimal.NewFromInt(1).Sub(pct)).Round(0)

	line.FireSaleID = &best.ID
	line.FireSalePercent = &best.DiscountPercent
	line.TotalCents = discounted.IntPart()
	line.DiscountCents = gross - line.TotalCents
}
