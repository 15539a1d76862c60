package webapp

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/yourusername/cartech-bot/internal/domain/entity"
	"github.com/yourusername/cartech-bot/internal/usecase"
)

type authRequest struct {
	InitData string `json:"init_data" validate:"required"`
}

type authResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      int64     `json:"telegram_id"`
	Operator  bool      `json:"operator"`
}

func (a *api) authTelegram(w http.ResponseWriter, r *http.Request) {
	var req authRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	token, claims, err := a.auth.Exchange(req.InitData)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if _, err := a.profiles.Get(r.Context(), claims.TelegramID); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, authResponse{
		Token:     token,
		ExpiresAt: claims.ExpiresAt.Time,
		User:      claims.TelegramID,
		Operator:  claims.Operator,
	})
}

// me is only called behind requireAuth.
func me(r *http.Request) Claims {
	c, _ := claimsFrom(r.Context())
	return c
}

type profileRequest struct {
	Name    string `json:"name" validate:"max=100"`
	Phone   string `json:"phone" validate:"omitempty,ru_phone"`
	Region  string `json:"region" validate:"max=100"`
	City    string `json:"city" validate:"max=100"`
	Address string `json:"address" validate:"max=300"`
	Email   string `json:"email" validate:"omitempty,email"`
}

func (a *api) getProfile(w http.ResponseWriter, r *http.Request) {
	u, err := a.profiles.Get(r.Context(), me(r).TelegramID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (a *api) putProfile(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	u, err := a.profiles.Save(r.Context(), entity.User{
		TelegramID: me(r).TelegramID,
		Name:       req.Name,
		Phone:      req.Phone,
		Region:     req.Region,
		City:       req.City,
		Address:    req.Address,
		Email:      req.Email,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

type carRequest struct {
	Brand   string `json:"brand" validate:"required,max=40"`
	BrandID string `json:"brand_id" validate:"max=60"`
	Model   string `json:"model" validate:"required,max=60"`
	Year    int    `json:"year" validate:"omitempty,min=1950"`
	Engine  string `json:"engine" validate:"max=40"`
}

func (a *api) listGarage(w http.ResponseWriter, r *http.Request) {
	cars, err := a.profiles.Cars(r.Context(), me(r).TelegramID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if cars == nil {
		cars = []entity.Car{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"cars": cars})
}

func (a *api) addCar(w http.ResponseWriter, r *http.Request) {
	var req carRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	brandID := req.BrandID
	if brandID == "" {
		brandID = "custom_" + strings.Join(strings.Fields(strings.ToLower(req.Brand)), "")
	}
	car, err := a.profiles.AddCar(r.Context(), entity.Car{
		UserID:  me(r).TelegramID,
		Brand:   req.Brand,
		BrandID: brandID,
		Model:   req.Model,
		Year:    req.Year,
		Engine:  req.Engine,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, car)
}

func (a *api) clearGarage(w http.ResponseWriter, r *http.Request) {
	if err := a.profiles.ClearGarage(r.Context(), me(r).TelegramID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func carIDParam(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "carID"), 10, 64)
	return id, err == nil && id > 0
}

func (a *api) removeCar(w http.ResponseWriter, r *http.Request) {
	id, ok := carIDParam(r)
	if !ok {
		writeErrorCode(w, http.StatusBadRequest, "validation", "invalid car id")
		return
	}
	if err := a.profiles.RemoveCar(r.Context(), me(r).TelegramID, id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *api) setPrimaryCar(w http.ResponseWriter, r *http.Request) {
	id, ok := carIDParam(r)
	if !ok {
		writeErrorCode(w, http.StatusBadRequest, "validation", "invalid car id")
		return
	}
	if err := a.profiles.SetPrimary(r.Context(), me(r).TelegramID, id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type orderItemRequest struct {
	ProductID  string `json:"product_id" validate:"max=64"`
	Name       string `json:"name" validate:"required,max=200"`
	Brand      string `json:"brand" validate:"max=100"`
	PartNumber string `json:"part_number" validate:"max=100"`
	Price      int64  `json:"price" validate:"min=0"`
	Quantity   int    `json:"quantity" validate:"min=1,max=999"`
}

type customerRequest struct {
	Name    string `json:"name" validate:"required,max=100"`
	Phone   string `json:"phone" validate:"required,ru_phone"`
	Region  string `json:"region" validate:"max=100"`
	City    string `json:"city" validate:"max=100"`
	Address string `json:"address" validate:"required,max=300"`
}

type orderRequest struct {
	Customer customerRequest    `json:"customer"`
	Comment  string             `json:"comment" validate:"max=500"`
	Items    []orderItemRequest `json:"items" validate:"required,min=1,dive"`
	Total    int64              `json:"total" validate:"min=0"`
}

// orderView adds the remaining cancel window to an order.
type orderView struct {
	entity.Order
	CancelSecondsLeft int `json:"cancel_seconds_left"`
}

func (a *api) view(o entity.Order) orderView {
	return orderView{Order: o, CancelSecondsLeft: a.orders.CancelSecondsLeft(o)}
}

func (a *api) views(orders []entity.Order) []orderView {
	out := make([]orderView, len(orders))
	for i, o := range orders {
		out[i] = a.view(o)
	}
	return out
}

func (a *api) listOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := a.orders.ListByCustomer(r.Context(), me(r).TelegramID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"orders": a.views(orders)})
}

func (a *api) createOrder(w http.ResponseWriter, r *http.Request) {
	var req orderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	items := make([]entity.OrderItem, len(req.Items))
	for i, it := range req.Items {
		items[i] = entity.OrderItem{
			ProductID:  it.ProductID,
			Name:       it.Name,
			Brand:      it.Brand,
			PartNumber: it.PartNumber,
			Price:      it.Price,
			Quantity:   it.Quantity,
		}
	}
	o, err := a.orders.Create(r.Context(), usecase.CreateOrderInput{
		TelegramID: me(r).TelegramID,
		Customer: entity.Customer{
			Name:    strings.TrimSpace(req.Customer.Name),
			Phone:   strings.TrimSpace(req.Customer.Phone),
			Region:  strings.TrimSpace(req.Customer.Region),
			City:    strings.TrimSpace(req.Customer.City),
			Address: strings.TrimSpace(req.Customer.Address),
		},
		Comment: req.Comment,
		Items:   items,
		Total:   req.Total,
		Source:  "webapp",
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, a.view(o))
}

// getOrder hides foreign orders from customers as 404.
func (a *api) getOrder(w http.ResponseWriter, r *http.Request) {
	c := me(r)
	o, err := a.orders.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !c.Operator && o.Owner() != c.TelegramID {
		writeError(w, r, entity.ErrNotFound)
		return
	}
	writeJSON(w, http.StatusOK, a.view(o))
}

func (a *api) cancelOrder(w http.ResponseWriter, r *http.Request) {
	c := me(r)
	o, ok, err := a.orders.Cancel(r.Context(), chi.URLParam(r, "id"), usecase.Requester{TelegramID: c.TelegramID})
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !ok {
		if o.Status != entity.OrderPending {
			writeError(w, r, entity.ErrOrderTerminal)
			return
		}
		writeError(w, r, entity.ErrCancelWindowExpired)
		return
	}
	writeJSON(w, http.StatusOK, a.view(o))
}

func (a *api) getPricing(w http.ResponseWriter, r *http.Request) {
	pct, err := a.pricing.Markup(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"markup_percent": pct})
}

type quoteLineRequest struct {
	Name     string `json:"name" validate:"max=200"`
	Base     int64  `json:"base" validate:"min=0"`
	Quantity int    `json:"quantity" validate:"omitempty,min=1,max=999"`
}

type quoteRequest struct {
	Lines []quoteLineRequest `json:"lines" validate:"required,min=1,dive"`
}

func (a *api) quote(w http.ResponseWriter, r *http.Request) {
	var req quoteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	lines := make([]usecase.QuoteLine, len(req.Lines))
	for i, l := range req.Lines {
		lines[i] = usecase.QuoteLine{Name: l.Name, Base: l.Base, Quantity: l.Quantity}
	}
	q, err := a.pricing.Quote(r.Context(), lines)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}
