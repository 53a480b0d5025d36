package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateOrder    OutboxAggregateType = "order"
	AggregateProduct  OutboxAggregateType = "product"
	AggregateCombo    OutboxAggregateType = "combo"
	AggregateFireSale OutboxAggregateType = "fire_sale"
	AggregateRegion   OutboxAggregateType = "region"
	AggregateDriver   OutboxAggregateType = "driver"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateOrder,
	AggregateProduct,
	AggregateCombo,
	AggregateFireSale,
	AggregateRegion,
	AggregateDriver,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type enum in Postgres.
type OutboxEventType string

const (
	EventOrderCreated        OutboxEventType = "order_created"
	EventOrderStateChanged   OutboxEventType = "order_state_changed"
	EventFireSaleStarted     OutboxEventType = "fire_sale_started"
	EventFireSaleEnded       OutboxEventType = "fire_sale_ended"
	EventProductRestocked    OutboxEventType = "product_restocked"
	EventProductCreated      OutboxEventType = "product_created"
	EventRegionBroadcast     OutboxEventType = "region_broadcast"
	EventDriverEnteredRegion OutboxEventType = "driver_entered_region"
	EventDriverLeftRegion    OutboxEventType = "driver_left_region"
)

var validOutboxEventTypes = []OutboxEventType{
	EventOrderCreated,
	EventOrderStateChanged,
	EventFireSaleStarted,
	EventFireSaleEnded,
	EventProductRestocked,
	EventProductCreated,
	EventRegionBroadcast,
	EventDriverEnteredRegion,
	EventDriverLeftRegion,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
