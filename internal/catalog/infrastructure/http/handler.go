package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmehra2102/storefront/internal/catalog/application"
	"github.com/dmehra2102/storefront/internal/catalog/domain"
	"github.com/dmehra2102/storefront/internal/platform/httpx"
	"github.com/dmehra2102/storefront/pkg/logging"
)

type Handler struct {
	log      *slog.Logger
	service  *application.Service
	validate *httpx.Validator
	tracer   trace.Tracer
}

func NewHandler(log *slog.Logger, service *application.Service) *Handler {
	v := httpx.NewValidator()
	v.RegisterStructValidation(func(sl validator.StructLevel) {
		req := sl.Current().Interface().(createProductReq)
		if req.Price != nil && req.Price.IsNegative() {
			sl.ReportError(req.Price, "price", "Price", "gte", "0")
		}
	}, createProductReq{})

	return &Handler{
		log:      log,
		service:  service,
		validate: v,
		tracer:   otel.Tracer("catalog-http"),
	}
}

type createProductReq struct {
	Name        string           `json:"name" validate:"required"`
	Description string           `json:"description"`
	Price       *decimal.Decimal `json:"price" validate:"required"`
	Stock       *int             `json:"stock" validate:"required,gte=0,lte=2147483647"`
}

type productResp struct {
	ID          int64       `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Price       json.Number `json:"price"`
	Stock       int         `json:"stock"`
}

func presentProduct(p domain.Product) productResp {
	return productResp{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       json.Number(p.Price.String()),
		Stock:       p.Stock,
	}
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/", h.listProducts)
	r.Post("/", h.createProduct)
	return r
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "ListProducts")
	defer span.End()

	products, err := h.service.ListProducts(ctx)
	if err != nil {
		logging.FromContext(ctx, h.log).ErrorContext(ctx, "list products failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	out := make([]productResp, 0, len(products))
	for _, p := range products {
		out = append(out, presentProduct(p))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "CreateProduct")
	defer span.End()

	var req createProductReq
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.WriteError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeValidation(w, err)
		return
	}

	p, err := h.service.CreateProduct(ctx, domain.NewProduct{
		Name:        req.Name,
		Description: req.Description,
		Price:       *req.Price,
		Stock:       *req.Stock,
	})
	switch {
	case err == nil:
		httpx.WriteJSON(w, http.StatusOK, presentProduct(p))
	case errors.Is(err, domain.ErrDuplicateName):
		httpx.WriteError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrInvalidProduct):
		httpx.WriteError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		logging.FromContext(ctx, h.log).ErrorContext(ctx, "create product failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal server error")
	}
}

func writeValidation(w http.ResponseWriter, err error) {
	var verr *httpx.ValidationError
	if errors.As(err, &verr) {
		httpx.WriteError(w, http.StatusUnprocessableEntity, "validation failed", verr.Details...)
		return
	}
	httpx.WriteError(w, http.StatusUnprocessableEntity, err.Error())
}
