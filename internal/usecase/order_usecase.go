package usecase

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/yourusername/cartech-bot/internal/domain/constants"
	"github.com/yourusername/cartech-bot/internal/domain/entity"
	"github.com/yourusername/cartech-bot/internal/domain/repository"
	"github.com/yourusername/cartech-bot/internal/infrastructure/events"
	"github.com/yourusername/cartech-bot/internal/infrastructure/metrics"
	"github.com/yourusername/cartech-bot/internal/notification"
	"github.com/yourusername/cartech-bot/pkg/logger"
)

const (
	orderIDAttempts = 5
	base36Alphabet  = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
)

// CreateOrderInput checkout ma'lumotlari
type CreateOrderInput struct {
	UserID     int64
	TelegramID int64
	Customer   entity.Customer
	Comment    string
	Items      []entity.OrderItem
	// Total is only used for orders without items.
	Total  int64
	Source string
}

// Requester identifies who asks to cancel an order.
type Requester struct {
	TelegramID int64
	Operator   bool
}

// OrderUseCase buyurtma holatlari, trek raqami va bekor qilish oynasi
type OrderUseCase interface {
	Create(ctx context.Context, in CreateOrderInput) (entity.Order, error)
	// SetStatus reports changed=false when the order already had that status.
	SetStatus(ctx context.Context, orderID string, status entity.OrderStatus) (order entity.Order, changed bool, err error)
	SetTracking(ctx context.Context, orderID, number, carrier string) (entity.Order, error)
	// Cancel returns ok=false, without error, when the window or status does not allow it.
	Cancel(ctx context.Context, orderID string, who Requester) (order entity.Order, ok bool, err error)
	CancelSecondsLeft(order entity.Order) int
	Delete(ctx context.Context, orderID string) error
	Get(ctx context.Context, orderID string) (entity.Order, error)
	ListRecent(ctx context.Context, limit int) ([]entity.Order, error)
	ListByCustomer(ctx context.Context, telegramID int64) ([]entity.Order, error)
	Stats(ctx context.Context) (entity.OrderStats, error)
	// ImportLegacyAlert rebuilds an order from a forwarded "Новый заказ" alert.
	ImportLegacyAlert(ctx context.Context, text string) (entity.Order, bool, error)
}

// OrderUseCaseDeps collaborators of the order manager.
type OrderUseCaseDeps struct {
	Orders    repository.OrderRepository
	Users     repository.UserRepository
	Garage    repository.GarageRepository
	Notifier  notification.Notifier
	Publisher events.Publisher
	Operators []int64
	Clock     Clock
}

type orderUseCase struct {
	orders    repository.OrderRepository
	users     repository.UserRepository
	garage    repository.GarageRepository
	notifier  notification.Notifier
	publisher events.Publisher
	operators []int64
	now       Clock
}

// NewOrderUseCase yangi OrderUseCase
func NewOrderUseCase(d OrderUseCaseDeps) OrderUseCase {
	u := &orderUseCase{
		orders:    d.Orders,
		users:     d.Users,
		garage:    d.Garage,
		notifier:  d.Notifier,
		publisher: d.Publisher,
		operators: d.Operators,
		now:       clockOrDefault(d.Clock),
	}
	if u.notifier == nil {
		u.notifier = notification.Nop
	}
	if u.publisher == nil {
		u.publisher = events.NopPublisher{}
	}
	return u
}

// NewOrderID builds CT<YYMM>-<5 base36>.
func NewOrderID(at time.Time) (string, error) {
	var b strings.Builder
	b.WriteString(constants.OrderIDPrefix)
	b.WriteString(at.Format("0601"))
	b.WriteByte('-')
	radix := big.NewInt(int64(len(base36Alphabet)))
	for i := 0; i < constants.OrderIDSuffixLen; i++ {
		n, err := rand.Int(rand.Reader, radix)
		if err != nil {
			return "", err
		}
		b.WriteByte(base36Alphabet[n.Int64()])
	}
	return b.String(), nil
}

func (u *orderUseCase) Create(ctx context.Context, in CreateOrderInput) (entity.Order, error) {
	items := make([]entity.OrderItem, 0, len(in.Items))
	for _, it := range in.Items {
		if strings.TrimSpace(it.Name) == "" {
			return entity.Order{}, entity.NewValidationError("items", "У товара нет названия")
		}
		if it.Quantity <= 0 || it.Price < 0 {
			return entity.Order{}, entity.NewValidationError("items", "Некорректное количество или цена")
		}
		items = append(items, it)
	}
	if len(items) == 0 && in.Total <= 0 {
		return entity.Order{}, entity.NewValidationError("items", "Корзина пуста")
	}

	now := u.now()
	order := entity.Order{
		UserID:     in.UserID,
		TelegramID: in.TelegramID,
		Status:     entity.OrderPending,
		Customer:   in.Customer,
		Comment:    strings.TrimSpace(in.Comment),
		Items:      items,
		Total:      in.Total,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if len(items) > 0 {
		sum := order.ItemsTotal()
		if in.Total != 0 && in.Total != sum {
			logger.L().Warn("order total differs from items, using items sum",
				zap.Int64("given", in.Total),
				zap.Int64("items_sum", sum))
		}
		order.Total = sum
	}
	if order.Owner() != 0 {
		if err := u.users.EnsureUser(ctx, order.Owner()); err != nil {
			return entity.Order{}, err
		}
	}

	var lastErr error
	for attempt := 0; attempt < orderIDAttempts; attempt++ {
		id, err := NewOrderID(now)
		if err != nil {
			return entity.Order{}, err
		}
		order.ID = id
		lastErr = u.orders.InsertOrder(ctx, order)
		if !errors.Is(lastErr, entity.ErrDuplicate) {
			break
		}
	}
	if lastErr != nil {
		return entity.Order{}, fmt.Errorf("create order: %w", lastErr)
	}

	source := in.Source
	if source == "" {
		source = "unknown"
	}
	metrics.OrdersCreatedTotal.WithLabelValues(source).Inc()
	logger.L().Info("order created",
		zap.String("order_id", order.ID),
		zap.Int64("owner", order.Owner()),
		zap.Int64("total", order.Total),
		zap.String("source", source))

	if err := u.publisher.PublishOrderPlaced(ctx, events.NewOrderPlaced(order, now)); err != nil {
		logger.L().Error("order placed publish failed", zap.String("order_id", order.ID), zap.Error(err))
	}
	return order, nil
}

func (u *orderUseCase) SetStatus(ctx context.Context, orderID string, status entity.OrderStatus) (entity.Order, bool, error) {
	if !status.Valid() {
		return entity.Order{}, false, entity.ErrInvalidStatus
	}
	order, err := u.orders.GetOrder(ctx, orderID)
	if err != nil {
		return entity.Order{}, false, err
	}
	// trek raqami bor buyurtma jo'natilgandan oldingi holatga qaytmaydi
	if order.TrackingNumber != "" && status.BeforeShipping() {
		status = entity.OrderShipped
	}
	if order.Status == status {
		return order, false, nil
	}
	if order.Status.Terminal() {
		return order, false, entity.ErrOrderTerminal
	}
	if status != entity.OrderCancelled && status.Rank() < order.Status.Rank() {
		return order, false, entity.ErrStatusRegression
	}

	now := u.now()
	if err := u.orders.UpdateOrderStatus(ctx, orderID, order.Status, status, now); err != nil {
		if errors.Is(err, entity.ErrOrderChanged) {
			logger.L().Warn("order status changed concurrently",
				zap.String("order_id", orderID),
				zap.String("expected", string(order.Status)),
				zap.String("to", string(status)))
		}
		return entity.Order{}, false, err
	}
	prev := order.Status
	order.Status = status
	order.UpdatedAt = now

	metrics.OrderStatusChangesTotal.WithLabelValues(string(status)).Inc()
	logger.L().Info("order status changed",
		zap.String("order_id", orderID),
		zap.String("from", string(prev)),
		zap.String("to", string(status)))
	u.notifyCustomer(ctx, order, notification.OrderStatusChanged(order))
	return order, true, nil
}

func (u *orderUseCase) SetTracking(ctx context.Context, orderID, number, carrier string) (entity.Order, error) {
	number = strings.TrimSpace(number)
	if number == "" {
		return entity.Order{}, entity.NewValidationError("tracking", "Укажите трек-номер")
	}
	carrier = strings.TrimSpace(carrier)
	if carrier == "" {
		carrier = constants.DefaultCarrier
	}
	order, err := u.orders.GetOrder(ctx, orderID)
	if err != nil {
		return entity.Order{}, err
	}
	if order.Status == entity.OrderCancelled {
		return order, entity.ErrOrderTerminal
	}

	status := order.Status
	if status.BeforeShipping() {
		status = entity.OrderShipped
	}
	now := u.now()
	if err := u.orders.UpdateOrderTracking(ctx, orderID, number, carrier, order.Status, status, now); err != nil {
		return entity.Order{}, err
	}
	if status != order.Status {
		metrics.OrderStatusChangesTotal.WithLabelValues(string(status)).Inc()
	}
	order.TrackingNumber = number
	order.TrackingCarrier = carrier
	order.Status = status
	order.UpdatedAt = now

	logger.L().Info("order tracking set",
		zap.String("order_id", orderID),
		zap.String("tracking", number),
		zap.String("carrier", carrier),
		zap.String("status", string(status)))
	u.notifyCustomer(ctx, order, notification.OrderShipped(order))
	return order, nil
}

func (u *orderUseCase) Cancel(ctx context.Context, orderID string, who Requester) (entity.Order, bool, error) {
	order, err := u.orders.GetOrder(ctx, orderID)
	if err != nil {
		return entity.Order{}, false, err
	}
	if !who.Operator && order.Owner() != who.TelegramID {
		return entity.Order{}, false, entity.ErrForbidden
	}
	if order.Status != entity.OrderPending || u.CancelSecondsLeft(order) == 0 {
		metrics.CancelRejectedTotal.Inc()
		return order, false, nil
	}

	now := u.now()
	err = u.orders.UpdateOrderStatus(ctx, orderID, entity.OrderPending, entity.OrderCancelled, now)
	if errors.Is(err, entity.ErrOrderChanged) {
		// operator ulgurdi, bekor qilish rad etiladi
		metrics.CancelRejectedTotal.Inc()
		current, gerr := u.orders.GetOrder(ctx, orderID)
		if gerr != nil {
			return entity.Order{}, false, gerr
		}
		return current, false, nil
	}
	if err != nil {
		return entity.Order{}, false, err
	}
	order.Status = entity.OrderCancelled
	order.UpdatedAt = now

	by := "customer"
	if who.Operator {
		by = "operator"
	}
	metrics.OrdersCancelledTotal.WithLabelValues(by).Inc()
	logger.L().Info("order cancelled", zap.String("order_id", orderID), zap.String("by", by))

	if !who.Operator {
		notice := notification.OrderCancelledOperatorNotice(order)
		for _, op := range u.operators {
			if err := u.notifier.Notify(ctx, op, notice); err != nil {
				logger.L().Warn("operator cancel notice failed", zap.Int64("chat_id", op), zap.Error(err))
			}
		}
	}
	return order, true, nil
}

// CancelSecondsLeft is zero once the window is over or the order is not pending.
func (u *orderUseCase) CancelSecondsLeft(order entity.Order) int {
	if order.Status != entity.OrderPending {
		return 0
	}
	left := constants.CancelWindow - u.now().Sub(order.CreatedAt)
	if left <= 0 {
		return 0
	}
	secs := int(left / time.Second)
	if left%time.Second != 0 {
		secs++
	}
	return secs
}

func (u *orderUseCase) Delete(ctx context.Context, orderID string) error {
	if err := u.orders.DeleteOrder(ctx, orderID); err != nil {
		return err
	}
	logger.L().Info("order deleted", zap.String("order_id", orderID))
	return nil
}

func (u *orderUseCase) Get(ctx context.Context, orderID string) (entity.Order, error) {
	return u.orders.GetOrder(ctx, orderID)
}

func (u *orderUseCase) ListRecent(ctx context.Context, limit int) ([]entity.Order, error) {
	return u.orders.ListOrders(ctx, limit)
}

func (u *orderUseCase) ListByCustomer(ctx context.Context, telegramID int64) ([]entity.Order, error) {
	return u.orders.ListOrdersByCustomer(ctx, telegramID)
}

func (u *orderUseCase) Stats(ctx context.Context) (entity.OrderStats, error) {
	var (
		st  entity.OrderStats
		err error
	)
	if st.Orders, err = u.orders.CountOrders(ctx); err != nil {
		return st, err
	}
	if st.PendingOrders, err = u.orders.CountOrdersByStatus(ctx, entity.OrderPending); err != nil {
		return st, err
	}
	if st.Users, err = u.users.CountUsers(ctx); err != nil {
		return st, err
	}
	if st.Garages, err = u.garage.CountGarages(ctx); err != nil {
		return st, err
	}
	return st, nil
}

func (u *orderUseCase) ImportLegacyAlert(ctx context.Context, text string) (entity.Order, bool, error) {
	order, ok := notification.ParseNewOrderAlert(text, u.now())
	if !ok {
		return entity.Order{}, false, nil
	}
	if _, err := u.orders.GetOrder(ctx, order.ID); err == nil {
		return entity.Order{}, false, nil
	} else if !errors.Is(err, entity.ErrNotFound) {
		return entity.Order{}, false, err
	}
	if err := u.orders.UpsertOrder(ctx, order); err != nil {
		return entity.Order{}, false, err
	}
	metrics.OrdersCreatedTotal.WithLabelValues("legacy_alert").Inc()
	logger.L().Info("order imported from alert", zap.String("order_id", order.ID))
	return order, true, nil
}

func (u *orderUseCase) notifyCustomer(ctx context.Context, order entity.Order, text string) {
	chatID := order.Owner()
	if chatID == 0 {
		return
	}
	if err := u.notifier.Notify(ctx, chatID, text); err != nil {
		logger.L().Warn("customer notification failed",
			zap.String("order_id", order.ID),
			zap.Int64("chat_id", chatID),
			zap.Error(err))
	}
}
