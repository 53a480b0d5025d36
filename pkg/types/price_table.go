package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
)

// PriceTable maps star rating keys ("1".."5") to per-unit prices in
// cents, persisted as JSONB.
type PriceTable map[string]int64

// Value marshals the table into JSON for Postgres.
func (p PriceTable) Value() (driver.Value, error) {
	if p == nil {
		return "{}", nil
	}
	buf, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return buf, nil
}

// Scan decodes JSONB into the table.
func (p *PriceTable) Scan(value interface{}) error {
	if value == nil {
		*p = nil
		return nil
	}

	var raw []byte
	switch v := value.(type) {
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("price table: unsupported scan type %T", value)
	}

	result := make(PriceTable)
	if err := json.Unmarshal(raw, &result); err != nil {
		return err
	}
	*p = result
	return nil
}

// ForRating returns the per-unit price for a rating, if present.
func (p PriceTable) ForRating(rating int) (int64, bool) {
	cents, ok := p[strconv.Itoa(rating)]
	return cents, ok
}

// Validate rejects tables with non-rating keys or non-positive prices.
func (p PriceTable) Validate() error {
	for key, cents := range p {
		rating, err := strconv.Atoi(key)
		if err != nil || rating < 1 || rating > 5 {
			return fmt.Errorf("price table: invalid rating key %q", key)
		}
		if cents <= 0 {
			return fmt.Errorf("price table: non-positive price for rating %q", key)
		}
	}
	return nil
}
