package enums

import "fmt"

// StarRating is a buyer quality tier from 1 to 5. Products whose price
// table keys on rating use it to pick a per-unit price.
type StarRating int

const (
	StarRatingMin StarRating = 1
	StarRatingMax StarRating = 5
)

// IsValid reports whether the rating falls in the 1..5 range.
func (s StarRating) IsValid() bool {
	return s >= StarRatingMin && s <= StarRatingMax
}

// Key returns the rating as the string key used in price table JSONB.
func (s StarRating) Key() string {
	return fmt.Sprintf("%d", int(s))
}

// ParseStarRating converts raw input into a StarRating.
func ParseStarRating(value int) (StarRating, error) {
	rating := StarRating(value)
	if !rating.IsValid() {
		return 0, fmt.Errorf("invalid star rating %d", value)
	}
	return rating, nil
}
