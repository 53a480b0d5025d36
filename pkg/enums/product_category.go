package enums

import "fmt"

// ProductCategory maps to the product_category enum in Postgres.
type ProductCategory string

const (
	ProductCategoryFlower       ProductCategory = "flower"
	ProductCategoryConcentrates ProductCategory = "concentrates"
	ProductCategoryEdibles      ProductCategory = "edibles"
	ProductCategoryPrerolls     ProductCategory = "prerolls"
	ProductCategoryCombo        ProductCategory = "combo"
	ProductCategoryHidden       ProductCategory = "hidden"
)

var validProductCategories = []ProductCategory{
	ProductCategoryFlower,
	ProductCategoryConcentrates,
	ProductCategoryEdibles,
	ProductCategoryPrerolls,
	ProductCategoryCombo,
	ProductCategoryHidden,
}

// String implements fmt.Stringer.
func (p ProductCategory) String() string {
	return string(p)
}

// IsValid reports whether the value is a known ProductCategory.
func (p ProductCategory) IsValid() bool {
	for _, candidate := range validProductCategories {
		if candidate == p {
			return true
		}
	}
	return false
}

// Listable reports whether products in this category show up in
// storefront listings. Hidden products stay orderable by direct id.
func (p ProductCategory) Listable() bool {
	return p != ProductCategoryHidden
}

// ParseProductCategory converts raw input into a ProductCategory.
func ParseProductCategory(value string) (ProductCategory, error) {
	for _, candidate := range validProductCategories {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid product category %q", value)
}
