package ledger

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/stocklane/stocklane/internal/listing"
	"github.com/stocklane/stocklane/internal/platform/httpx"
	"github.com/stocklane/stocklane/internal/shared"
)

// Handler exposes the stock ledger over HTTP.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers ledger routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/sales", h.listSales)
	r.Post("/sales", h.recordSale)
	r.Get("/sales/{id}", h.getSale)
	r.Patch("/sales/{id}/status", h.updateSaleStatus)

	r.Get("/expenses", h.listExpenses)
	r.Post("/expenses", h.recordPurchase)
	r.Get("/expenses/{id}", h.getExpense)
}

func (h *Handler) recordSale(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := shared.OwnerFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}

	var req CreateSaleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrValidation, err.Error()))
		return
	}

	receipt, err := h.service.RecordSale(r.Context(), ownerID, req)
	if err != nil {
		h.logger.Error("record sale", slog.Any("error", err), slog.Int64("owner", ownerID))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{
		"status":   "success",
		"submitId": receipt.SubmitID,
		"data":     map[string]any{"sale": receipt.Sale},
	})
}

func (h *Handler) updateSaleStatus(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := shared.OwnerFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid sale id")
		return
	}

	var req UpdateSaleStatusRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrValidation, err.Error()))
		return
	}

	sale, err := h.service.UpdateSaleStatus(r.Context(), ownerID, id, req)
	if err != nil {
		h.logger.Error("update sale status", slog.Any("error", err), slog.Int64("sale", id))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"status": "success", "data": map[string]any{"sale": sale}})
}

func (h *Handler) getSale(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := shared.OwnerFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid sale id")
		return
	}

	sale, err := h.service.GetSale(r.Context(), ownerID, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"status": "success", "data": map[string]any{"sale": sale}})
}

func (h *Handler) listSales(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := shared.OwnerFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}

	params := listing.ParseQuery(r.URL.Query())
	sales, page, err := h.service.ListSales(r.Context(), ownerID, params)
	if err != nil {
		h.logger.Error("list sales", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"status":         "success",
		"results":        len(sales),
		"totalDocuments": page.Total,
		"totalPages":     page.TotalPages,
		"data":           map[string]any{"sales": sales},
	})
}

func (h *Handler) recordPurchase(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := shared.OwnerFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}

	var req CreatePurchaseRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrValidation, err.Error()))
		return
	}
	if req.NewProduct != nil {
		if err := h.validate.Struct(req.NewProduct); err != nil {
			httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrValidation, err.Error()))
			return
		}
	}

	receipt, err := h.service.RecordPurchase(r.Context(), ownerID, req)
	if err != nil {
		h.logger.Error("record purchase", slog.Any("error", err), slog.Int64("owner", ownerID))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{
		"status":   "success",
		"submitId": receipt.SubmitID,
		"data":     map[string]any{"expense": receipt.Expense},
	})
}

func (h *Handler) getExpense(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := shared.OwnerFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid expense id")
		return
	}

	expense, err := h.service.GetExpense(r.Context(), ownerID, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"status": "success", "data": map[string]any{"expense": expense}})
}

func (h *Handler) listExpenses(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := shared.OwnerFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}

	params := listing.ParseQuery(r.URL.Query())
	expenses, page, err := h.service.ListExpenses(r.Context(), ownerID, params)
	if err != nil {
		h.logger.Error("list expenses", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"status":         "success",
		"results":        len(expenses),
		"totalDocuments": page.Total,
		"totalPages":     page.TotalPages,
		"data":           map[string]any{"expenses": expenses},
	})
}
