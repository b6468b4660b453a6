package httpadapter

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/kirillkom/comex-reports-etl/internal/config"
	"github.com/kirillkom/comex-reports-etl/internal/core/domain"
	"github.com/kirillkom/comex-reports-etl/internal/core/ports"
	"github.com/kirillkom/comex-reports-etl/internal/observability/metrics"
)

const (
	serviceName          = "api"
	backpressureWaitTime = 50 * time.Millisecond
)

type Router struct {
	cfg       config.Config
	reports   ports.ReportReader
	validator *requestValidator
	metrics   *metrics.HTTPServerMetrics
	logger    *slog.Logger
}

type listResponse[T any] struct {
	Items []T `json:"items"`
	Count int `json:"count"`
}

// NewRouter builds the read API. httpMetrics may be nil.
func NewRouter(
	cfg config.Config,
	reports ports.ReportReader,
	httpMetrics *metrics.HTTPServerMetrics,
	logger *slog.Logger,
) (*Router, error) {
	if logger == nil {
		logger = slog.Default()
	}
	validator, err := newRequestValidator()
	if err != nil {
		return nil, err
	}
	return &Router{
		cfg:       cfg,
		reports:   reports,
		validator: validator,
		metrics:   httpMetrics,
		logger:    logger.With("component", "http"),
	}, nil
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)
	mux.HandleFunc("GET /openapi.yaml", rt.openAPIDocument)
	mux.HandleFunc("GET /v1/stats", rt.stats)
	mux.HandleFunc("GET /v1/ledger", rt.listLedger)
	mux.HandleFunc("GET /v1/ledger/entry", rt.ledgerEntry)
	mux.HandleFunc("GET /v1/inventory", rt.listInventory)
	mux.HandleFunc("GET /v1/deliveries", rt.listDeliveries)
	if rt.metrics != nil {
		mux.Handle("GET /metrics", rt.metrics.Handler())
	}

	var handler http.Handler = rt.validator.middleware(mux)
	handler = backpressureMiddleware(handler, rt.cfg.APIMaxInFlight, backpressureWaitTime)
	handler = rateLimitMiddleware(handler, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(serviceName, handler)
	}
	handler = accessLogMiddleware(rt.logger, handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) openAPIDocument(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(openAPISpec)
}

func (rt *Router) stats(w http.ResponseWriter, r *http.Request) {
	stats, err := rt.reports.Stats(r.Context())
	if err != nil {
		rt.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (rt *Router) listLedger(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, err := parseLimit(q.Get("limit"))
	if err != nil {
		rt.writeDomainError(w, r, err)
		return
	}
	entries, err := rt.reports.Ledger(r.Context(), domain.LedgerStatus(q.Get("status")), limit)
	if err != nil {
		rt.writeDomainError(w, r, err)
		return
	}
	writeList(rt, w, "/v1/ledger", entries)
}

func (rt *Router) ledgerEntry(w http.ResponseWriter, r *http.Request) {
	entry, err := rt.reports.LedgerEntry(r.Context(), r.URL.Query().Get("path"))
	if err != nil {
		rt.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (rt *Router) listInventory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var filter domain.InventoryFilter
	var err error

	if filter.Product, err = parseProduct(q.Get("product")); err != nil {
		rt.writeDomainError(w, r, err)
		return
	}
	if filter.From, err = parseOptionalDate(q.Get("from")); err != nil {
		rt.writeDomainError(w, r, err)
		return
	}
	if filter.To, err = parseOptionalDate(q.Get("to")); err != nil {
		rt.writeDomainError(w, r, err)
		return
	}
	if filter.Limit, err = parseLimit(q.Get("limit")); err != nil {
		rt.writeDomainError(w, r, err)
		return
	}

	records, err := rt.reports.Inventory(r.Context(), filter)
	if err != nil {
		rt.writeDomainError(w, r, err)
		return
	}
	writeList(rt, w, "/v1/inventory", records)
}

func (rt *Router) listDeliveries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.DeliveryFilter{Product: strings.TrimSpace(q.Get("product"))}

	if raw := q.Get("report_type"); raw != "" {
		reportType, err := domain.ParseReportType(raw)
		if err != nil {
			rt.writeDomainError(w, r, err)
			return
		}
		filter.ReportType = reportType
	}
	limit, err := parseLimit(q.Get("limit"))
	if err != nil {
		rt.writeDomainError(w, r, err)
		return
	}
	filter.Limit = limit

	records, err := rt.reports.Deliveries(r.Context(), filter)
	if err != nil {
		rt.writeDomainError(w, r, err)
		return
	}
	writeList(rt, w, "/v1/deliveries", records)
}

func writeList[T any](rt *Router, w http.ResponseWriter, endpoint string, items []T) {
	if items == nil {
		items = []T{}
	}
	writeJSON(w, http.StatusOK, listResponse[T]{Items: items, Count: len(items)})
	if rt.metrics != nil {
		rt.metrics.RecordRows(serviceName, endpoint, len(items))
	}
}

func (rt *Router) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status := mapErrorToHTTPStatus(err)
	if status >= http.StatusInternalServerError {
		rt.logger.Error("request failed",
			"request_id", requestIDFromContext(r.Context()),
			"path", r.URL.Path,
			"error", err,
		)
		writeError(w, status, "internal error")
		return
	}
	writeError(w, status, err.Error())
}

func parseLimit(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return 0, domain.WrapError(domain.ErrInvalidInput, "parse limit", errors.New("limit must be a non-negative integer"))
	}
	return limit, nil
}

func parseOptionalDate(raw string) (domain.Date, error) {
	if raw == "" {
		return domain.Date{}, nil
	}
	return domain.ParseISODate(raw)
}

func parseProduct(raw string) (domain.Product, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return "", nil
	case "gold":
		return domain.ProductGold, nil
	case "silver":
		return domain.ProductSilver, nil
	default:
		return "", domain.WrapError(domain.ErrInvalidInput, "parse product", errors.New("product must be Gold or Silver"))
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
