package orders

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ttkdelivery/ttk-backend/internal/cart"
	"github.com/ttkdelivery/ttk-backend/internal/locks"
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

// Actor identifies who is driving an operation. Rating is the buyer's
// profile tier from the token, used as the default when an add-to-cart
// call does not select one.
type Actor struct {
	UserID uuid.UUID
	Role   enums.UserRole
	Rating *enums.StarRating
}

// IsAdmin reports whether the actor carries the admin role.
func (a Actor) IsAdmin() bool { return a.Role == enums.UserRoleAdmin }

// Service defines order submission and lifecycle management. Line
// prices and totals freeze at submission and never change after.
type Service interface {
	Submit(ctx context.Context, actor Actor, params SubmitParams) (*models.Order, error)
	Transition(ctx context.Context, orderID uuid.UUID, target enums.OrderStatus, actor Actor, note *string) (*models.Order, error)
	Get(ctx context.Context, orderID uuid.UUID, actor Actor) (*models.Order, error)
	List(ctx context.Context, actor Actor, params ListParams) ([]models.Order, string, error)
	AssignDriver(ctx context.Context, orderID, driverID uuid.UUID, actor Actor) error
}

// SubmitParams carries checkout inputs.
type SubmitParams struct {
	Address types.Address
	Notes   *string
}

// ListParams filters order listings. Non-admin callers are always
// scoped to their own orders regardless of UserID.
type ListParams struct {
	UserID   *uuid.UUID
	RegionID *uuid.UUID
	Status   *enums.OrderStatus
	Limit    int
	Cursor   string
}

type cartReader interface {
	Get(ctx context.Context, userID uuid.UUID) (*cart.PricedCart, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type service struct {
	repo     Repository
	carts    cartReader
	cartRepo cart.Repository
	tx       txRunner
	events   eventEmitter
	mutex    *locks.KeyedMutex
	logg     *logger.Logger
	nowFunc  func() time.Time
}

// NewService wires order dependencies.
func NewService(
	repo Repository,
	carts cartReader,
	cartRepo cart.Repository,
	client *db.Client,
	events *outbox.Service,
	logg *logger.Logger,
) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "order repository required")
	}
	if carts == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "cart service required")
	}
	if cartRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "cart repository required")
	}
	if client == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "database client required")
	}
	if events == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "outbox service required")
	}
	return &service{
		repo:     repo,
		carts:    carts,
		cartRepo: cartRepo,
		tx:       client,
		events:   events,
		mutex:    locks.NewKeyedMutex(),
		logg:     logg,
		nowFunc:  time.Now,
	}, nil
}

// Submit freezes the current cart quote into an order. The order rows,
// the creation transition, the cart wipe and the outbox event all
// commit in one transaction.
func (s *service) Submit(ctx context.Context, actor Actor, params SubmitParams) (*models.Order, error) {
	if actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if strings.TrimSpace(params.Address.Line1) == "" || strings.TrimSpace(params.Address.City) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery address requires line1 and city")
	}

	priced, err := s.carts.Get(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	if len(priced.Cart.Lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeEmptyCart, "cart has no lines")
	}
	if priced.Cart.RegionID == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery region not set on cart")
	}

	order := buildOrder(actor.UserID, *priced.Cart.RegionID, params, priced.Quote)
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}
		transition := &models.OrderTransition{
			OrderID:   order.ID,
			ToStatus:  enums.OrderStatusPending,
			ActorID:   actor.UserID,
			ActorRole: actor.Role,
		}
		if err := repo.AppendTransition(ctx, transition); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record order creation")
		}
		if err := s.cartRepo.WithTx(tx).DeleteLines(ctx, priced.Cart.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
		}
		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: actor.UserID, Role: string(actor.Role)},
			Data: map[string]any{
				"region_id":   order.RegionID.String(),
				"total_cents": order.TotalCents,
				"line_count":  len(order.Lines),
			},
		})
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		s.logg.Info(s.logg.WithOrderID(ctx, order.ID.String()), "order submitted")
	}
	return order, nil
}

// Transition moves an order along the lifecycle. Invalid edges and
// unauthorized actors leave state and history untouched.
func (s *service) Transition(ctx context.Context, orderID uuid.UUID, target enums.OrderStatus, actor Actor, note *string) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if !target.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid target status")
	}

	release := s.mutex.Lock(orderID.String())
	defer release()

	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if err := authorizeTransition(order, target, actor); err != nil {
		return nil, err
	}
	if !CanTransition(order.Status, target) {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidTransition, "order state transition disallowed").
			WithDetails(map[string]any{
				"from": order.Status.String(),
				"to":   target.String(),
			})
	}

	from := order.Status
	now := s.nowFunc()
	order.Status = target
	switch target {
	case enums.OrderStatusCompleted:
		order.CompletedAt = &now
	case enums.OrderStatusCancelled:
		order.CancelledAt = &now
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.UpdateStatus(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}
		transition := &models.OrderTransition{
			OrderID:    order.ID,
			FromStatus: &from,
			ToStatus:   target,
			ActorID:    actor.UserID,
			ActorRole:  actor.Role,
			Note:       note,
		}
		if err := repo.AppendTransition(ctx, transition); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record order transition")
		}
		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderStateChanged,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: actor.UserID, Role: string(actor.Role)},
			Data: map[string]any{
				"from": from.String(),
				"to":   target.String(),
			},
		})
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		fields := map[string]any{"from": from.String(), "to": target.String()}
		s.logg.Info(s.logg.WithFields(s.logg.WithOrderID(ctx, order.ID.String()), fields), "order transitioned")
	}
	return order, nil
}

func (s *service) Get(ctx context.Context, orderID uuid.UUID, actor Actor) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && order.UserID != actor.UserID && !assignedDriver(order, actor) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "not your order")
	}
	return order, nil
}

func (s *service) List(ctx context.Context, actor Actor, params ListParams) ([]models.Order, string, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	userID := params.UserID
	if !actor.IsAdmin() {
		// Non-admin listings are always scoped to the caller.
		userID = &actor.UserID
	}

	orders, next, err := s.repo.List(ctx, listParams{
		UserID:   userID,
		RegionID: params.RegionID,
		Status:   params.Status,
		Limit:    params.Limit,
		Cursor:   cursor,
	})
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}

	nextCursor := ""
	if next != nil {
		nextCursor = pagination.EncodeCursor(*next)
	}
	return orders, nextCursor, nil
}

func (s *service) AssignDriver(ctx context.Context, orderID, driverID uuid.UUID, actor Actor) error {
	if !actor.IsAdmin() {
		return pkgerrors.New(pkgerrors.CodeForbidden, "admin required")
	}
	if orderID == uuid.Nil || driverID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id and driver id required")
	}
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if order.Status.IsTerminal() {
		return pkgerrors.New(pkgerrors.CodeInvalidTransition, "order state transition disallowed")
	}
	if err := s.repo.AssignDriver(ctx, orderID, driverID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "assign driver")
	}
	return nil
}

func (s *service) loadOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

// authorizeTransition enforces who may move an order. Admins may take
// any legal edge. Assigned drivers advance deliveries they carry.
// Customers may only cancel their own order before it is confirmed.
func authorizeTransition(order *models.Order, target enums.OrderStatus, actor Actor) error {
	if actor.IsAdmin() {
		return nil
	}
	if actor.Role == enums.UserRoleDriver && assignedDriver(order, actor) {
		driverEdge := (order.Status == enums.OrderStatusConfirmed && target == enums.OrderStatusOutForDelivery) ||
			(order.Status == enums.OrderStatusOutForDelivery && target == enums.OrderStatusCompleted)
		if driverEdge {
			return nil
		}
	}
	if order.UserID == actor.UserID &&
		target == enums.OrderStatusCancelled &&
		(order.Status == enums.OrderStatusPending || order.Status == enums.OrderStatusAdminReview) {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, "not allowed to transition this order")
}

func assignedDriver(order *models.Order, actor Actor) bool {
	return actor.Role == enums.UserRoleDriver &&
		order.DriverID != nil && *order.DriverID == actor.UserID
}

func buildOrder(userID, regionID uuid.UUID, params SubmitParams, quote *pricing.Quote) *models.Order {
	lines := make([]models.OrderLine, 0, len(quote.Lines))
	for _, line := range quote.Lines {
		lines = append(lines, models.OrderLine{
			ProductID:       line.ProductID,
			ComboID:         line.ComboID,
			Name:            line.Name,
			Quantity:        line.Quantity,
			UnitPriceCents:  line.UnitPriceCents,
			DiscountCents:   line.DiscountCents,
			TotalCents:      line.TotalCents,
			FireSaleID:      line.FireSaleID,
			FireSalePercent: line.FireSalePercent,
		})
	}
	return &models.Order{
		UserID:          userID,
		RegionID:        regionID,
		Status:          enums.OrderStatusPending,
		Currency:        quote.Currency,
		SubtotalCents:   quote.SubtotalCents,
		DiscountCents:   quote.DiscountCents,
		TotalCents:      quote.TotalCents,
		DeliveryAddress: params.Address,
		Notes:           params.Notes,
		Lines:           lines,
	}
}
