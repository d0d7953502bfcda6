package dashboard

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/stocklane/stocklane/internal/platform/httpx"
	"github.com/stocklane/stocklane/internal/shared"
)

type Handler struct {
	logger  *slog.Logger
	service *Service
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/dashboard", h.snapshot)
}

func (h *Handler) snapshot(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := shared.OwnerFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}

	filters, err := parseFilters(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	snap, err := h.service.Build(r.Context(), ownerID, filters)
	if err != nil {
		h.logger.Error("build dashboard", slog.Any("error", err), slog.Int64("owner", ownerID))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"status": "success", "data": snap})
}

func parseFilters(r *http.Request) (Filters, error) {
	q := r.URL.Query()
	var f Filters

	if raw := q.Get("year"); raw != "" {
		year, err := strconv.Atoi(raw)
		if err != nil || year < 1970 || year > 9999 {
			return Filters{}, errBadFilter("year", raw)
		}
		f.Year = year
	}

	for param, dest := range map[string]**int64{
		"totalStockCategory":      &f.StockCategory,
		"totalStockSoldCategory":  &f.SoldCategory,
		"totalIncomeCategory":     &f.RevenueCategory,
		"popularProductsCategory": &f.TopProductsCategory,
	} {
		raw := q.Get(param)
		if raw == "" {
			continue
		}
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return Filters{}, errBadFilter(param, raw)
		}
		*dest = &id
	}
	return f, nil
}

type badFilterError struct {
	param, value string
}

func (e badFilterError) Error() string {
	return "invalid value " + strconv.Quote(e.value) + " for " + e.param
}

func errBadFilter(param, value string) error {
	return badFilterError{param: param, value: value}
}
