package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmehra2102/storefront/internal/order/application"
	"github.com/dmehra2102/storefront/internal/order/domain"
	"github.com/dmehra2102/storefront/internal/platform/httpx"
	"github.com/dmehra2102/storefront/pkg/logging"
)

const msgOrderCreated = "Order created successfully"

type Handler struct {
	log      *slog.Logger
	service  *application.Service
	validate *httpx.Validator
	tracer   trace.Tracer
}

func NewHandler(log *slog.Logger, service *application.Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: httpx.NewValidator(),
		tracer:   otel.Tracer("order-http"),
	}
}

type orderLineReq struct {
	ProductID *int64 `json:"product_id" validate:"required"`
	Quantity  *int   `json:"quantity" validate:"required,gte=0"`
}

type createOrderReq struct {
	Status   string         `json:"status" validate:"required,oneof=pending completed"`
	Products []orderLineReq `json:"products" validate:"required,min=1,dive"`
}

type orderResp struct {
	ID         int64             `json:"id"`
	Status     string            `json:"status"`
	TotalPrice json.Number       `json:"total_price"`
	Products   []domain.LineItem `json:"products"`
	CreatedAt  time.Time         `json:"created_at"`
}

type createOrderResp struct {
	Message string    `json:"message"`
	Order   orderResp `json:"order"`
}

func presentOrder(o domain.Order) orderResp {
	return orderResp{
		ID:         o.ID,
		Status:     string(o.Status),
		TotalPrice: json.Number(o.TotalPrice.String()),
		Products:   o.LineItems,
		CreatedAt:  o.CreatedAt,
	}
}

// Routes mounts the order endpoints. createMW wraps only order creation.
func (h *Handler) Routes(createMW ...func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()
	r.With(createMW...).Post("/", h.createOrder)
	r.Get("/{id}", h.getOrder)
	return r
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "CreateOrder")
	defer span.End()

	var req createOrderReq
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.WriteError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		var verr *httpx.ValidationError
		if errors.As(err, &verr) {
			httpx.WriteError(w, http.StatusUnprocessableEntity, "validation failed", verr.Details...)
			return
		}
		httpx.WriteError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	status, err := domain.ParseStatus(req.Status)
	if err != nil {
		httpx.WriteError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	lines := make([]domain.LineItem, len(req.Products))
	for i, p := range req.Products {
		lines[i] = domain.LineItem{ProductID: *p.ProductID, Quantity: *p.Quantity}
	}

	o, err := h.service.CreateOrder(ctx, status, lines)
	switch {
	case err == nil:
		httpx.WriteJSON(w, http.StatusOK, createOrderResp{Message: msgOrderCreated, Order: presentOrder(o)})
	case errors.Is(err, domain.ErrOrderValidation):
		httpx.WriteError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrInvalidStatus), errors.Is(err, domain.ErrNoLineItems), errors.Is(err, domain.ErrNegativeQuantity):
		httpx.WriteError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		logging.FromContext(ctx, h.log).ErrorContext(ctx, "create order failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal server error")
	}
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "GetOrder")
	defer span.End()

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.WriteError(w, http.StatusNotFound, domain.ErrOrderNotFound.Error())
		return
	}

	o, err := h.service.GetOrder(ctx, id)
	switch {
	case err == nil:
		httpx.WriteJSON(w, http.StatusOK, presentOrder(o))
	case errors.Is(err, domain.ErrOrderNotFound):
		httpx.WriteError(w, http.StatusNotFound, domain.ErrOrderNotFound.Error())
	default:
		logging.FromContext(ctx, h.log).ErrorContext(ctx, "get order failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal server error")
	}
}
