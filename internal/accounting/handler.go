package accounting

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/singleflight"

	"github.com/odyssey-erp/ledger/internal/accounting/accounts"
	"github.com/odyssey-erp/ledger/internal/accounting/journals"
	"github.com/odyssey-erp/ledger/internal/accounting/reconcile"
	"github.com/odyssey-erp/ledger/internal/accounting/reports"
	"github.com/odyssey-erp/ledger/internal/accounting/shared"
	"github.com/odyssey-erp/ledger/internal/platform/httpx"
)

// ActorHeader carries the numeric id of the user acting on the ledger.
const ActorHeader = "X-Actor-ID"

const dateLayout = "2006-01-02"

// DefaultReportRateLimit caps report requests per client and minute.
const DefaultReportRateLimit = 30

// Handler exposes the engine over JSON endpoints.
type Handler struct {
	logger    *slog.Logger
	engine    *Engine
	validate  *validator.Validate
	rateLimit func(http.Handler) http.Handler
	flights   singleflight.Group
	now       func() time.Time
}

// NewHandler builds a Handler. A non-positive reportsPerMinute uses
// DefaultReportRateLimit.
func NewHandler(logger *slog.Logger, engine *Engine, reportsPerMinute int) *Handler {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if reportsPerMinute <= 0 {
		reportsPerMinute = DefaultReportRateLimit
	}
	limiter := httprate.Limit(reportsPerMinute, time.Minute,
		httprate.WithKeyFuncs(rateLimitKey),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			httpx.Problem(w, http.StatusTooManyRequests, "Too Many Requests", "report rate limit exceeded")
		}),
	)
	return &Handler{
		logger:    logger,
		engine:    engine,
		validate:  shared.NewValidator(),
		rateLimit: limiter,
		now:       time.Now,
	}
}

// WithNow overrides the clock used for default report dates.
func (h *Handler) WithNow(now func() time.Time) {
	if now != nil {
		h.now = now
	}
}

// MountRoutes registers the ledger endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/accounts", func(r chi.Router) {
		r.Get("/", h.handleListAccounts)
		r.Post("/", h.handleCreateAccount)
		r.Get("/tree", h.handleAccountTree)
		r.Get("/{id}", h.handleGetAccount)
		r.Delete("/{id}", h.handleDeleteAccount)
		r.Post("/{id}/deactivate", h.handleSetActive(false))
		r.Post("/{id}/reactivate", h.handleSetActive(true))
		r.Get("/{id}/ledger", h.handleAccountLedger)
	})
	r.Route("/journals", func(r chi.Router) {
		r.Get("/", h.handleListJournals)
		r.Post("/", h.handleCreateDraft)
		r.Get("/{id}", h.handleGetJournal)
		r.Put("/{id}", h.handleUpdateDraft)
		r.Delete("/{id}", h.handleDeleteDraft)
		r.Get("/{id}/check", h.handleCheckJournal)
		r.Post("/{id}/post", h.handlePostJournal)
	})
	r.Route("/reports", func(r chi.Router) {
		r.Use(h.rateLimit)
		r.Get("/trial-balance", h.handleTrialBalance)
		r.Get("/balance-sheet", h.handleBalanceSheet)
		r.Get("/income-statement", h.handleIncomeStatement)
		r.Get("/ar-aging", h.handleAging(agingReceivable))
		r.Get("/ap-aging", h.handleAging(agingPayable))
		r.Get("/aging", h.handleAging(agingBoth))
	})
	r.Route("/reconciliation", func(r chi.Router) {
		r.Get("/variance", h.handleVariance)
		r.Post("/auto-balance", h.handleAutoBalance)
	})
}

func rateLimitKey(r *http.Request) (string, error) {
	if actor := strings.TrimSpace(r.Header.Get(ActorHeader)); actor != "" {
		return "actor:" + actor, nil
	}
	key, err := httprate.KeyByIP(r)
	if err != nil {
		return "", err
	}
	return "ip:" + key, nil
}

// --- accounts ---

func (h *Handler) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var (
		list []accounts.Account
		err  error
	)
	switch {
	case r.URL.Query().Get("type") != "":
		list, err = h.engine.Accounts.ListByType(ctx, accounts.AccountType(strings.ToUpper(r.URL.Query().Get("type"))))
	case r.URL.Query().Get("active") == "true":
		list, err = h.engine.Accounts.ListActive(ctx)
	default:
		list, err = h.engine.Accounts.List(ctx)
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if list == nil {
		list = []accounts.Account{}
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *Handler) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var req accounts.CreateAccountRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	in, err := req.Input(h.validate)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	account, warnings, err := h.engine.Accounts.Create(r.Context(), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"account": account, "warnings": nonNil(warnings)})
}

func (h *Handler) handleAccountTree(w http.ResponseWriter, r *http.Request) {
	tree, err := h.engine.Accounts.Tree(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, nonNil(tree))
}

func (h *Handler) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	account, err := h.engine.Accounts.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, account)
}

func (h *Handler) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.engine.Accounts.Delete(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleSetActive(active bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		var account accounts.Account
		if active {
			account, err = h.engine.Accounts.Reactivate(r.Context(), id)
		} else {
			account, err = h.engine.Accounts.Deactivate(r.Context(), id)
		}
		if err != nil {
			h.fail(w, r, err)
			return
		}
		httpx.JSON(w, http.StatusOK, account)
	}
}

func (h *Handler) handleAccountLedger(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	rows, err := h.engine.AccountHistory(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, rows)
}

// --- journals ---

func (h *Handler) handleListJournals(w http.ResponseWriter, r *http.Request) {
	filter := journals.ListFilter{Status: journals.JournalStatus(strings.ToUpper(r.URL.Query().Get("status")))}
	list, err := h.engine.Drafts.List(r.Context(), filter)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, nonNil(list))
}

func (h *Handler) handleCreateDraft(w http.ResponseWriter, r *http.Request) {
	in, err := h.draftInput(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	entry, err := h.engine.Drafts.CreateDraft(r.Context(), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeEntry(w, http.StatusCreated, entry)
}

func (h *Handler) handleGetJournal(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	entry, err := h.engine.Drafts.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeEntry(w, http.StatusOK, entry)
}

func (h *Handler) handleUpdateDraft(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	version, err := ifMatchVersion(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	in, err := h.draftInput(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	entry, err := h.engine.Drafts.UpdateDraft(r.Context(), id, version, in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeEntry(w, http.StatusOK, entry)
}

func (h *Handler) handleDeleteDraft(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.engine.Drafts.DeleteDraft(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleCheckJournal(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	problems, err := h.engine.Drafts.Check(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"valid": len(problems) == 0, "errors": nonNil(problems)})
}

func (h *Handler) handlePostJournal(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	posted, err := h.engine.Poster.Post(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, posted)
}

func (h *Handler) draftInput(r *http.Request) (journals.DraftInput, error) {
	actor, err := actorID(r)
	if err != nil {
		return journals.DraftInput{}, err
	}
	var req journals.DraftRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		return journals.DraftInput{}, err
	}
	return req.Input(h.validate, actor)
}

func writeEntry(w http.ResponseWriter, status int, entry journals.JournalEntry) {
	w.Header().Set("ETag", strconv.Quote(strconv.FormatInt(entry.Version, 10)))
	httpx.JSON(w, status, entry)
}

// --- reports ---

func (h *Handler) handleTrialBalance(w http.ResponseWriter, r *http.Request) {
	asOf, err := h.dateParam(r, "as_of", h.now())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	f, display := formatter(r)
	key := reportKey("tb", display, f, asOf)
	h.serveReport(w, r, key, func(ctx context.Context) (any, error) {
		tb, err := h.engine.Reports.TrialBalance(ctx, asOf)
		if err != nil || !display {
			return tb, err
		}
		return reports.NewTrialBalanceViewModel(tb, f), nil
	})
}

func (h *Handler) handleBalanceSheet(w http.ResponseWriter, r *http.Request) {
	asOf, err := h.dateParam(r, "as_of", h.now())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	f, display := formatter(r)
	key := reportKey("bs", display, f, asOf)
	h.serveReport(w, r, key, func(ctx context.Context) (any, error) {
		bs, err := h.engine.Reports.BalanceSheet(ctx, asOf)
		if err != nil || !display {
			return bs, err
		}
		return reports.NewBalanceSheetViewModel(bs, f), nil
	})
}

func (h *Handler) handleIncomeStatement(w http.ResponseWriter, r *http.Request) {
	end, err := h.dateParam(r, "end", h.now())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	start, err := h.dateParam(r, "start", time.Date(end.Year(), time.January, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	f, display := formatter(r)
	key := reportKey("is", display, f, start, end)
	h.serveReport(w, r, key, func(ctx context.Context) (any, error) {
		is, err := h.engine.Reports.IncomeStatement(ctx, start, end)
		if err != nil || !display {
			return is, err
		}
		return reports.NewIncomeStatementViewModel(is, f), nil
	})
}

type agingScope int

const (
	agingReceivable agingScope = iota
	agingPayable
	agingBoth
)

func (h *Handler) handleAging(scope agingScope) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		asOf, err := h.dateParam(r, "as_of", h.now())
		if err != nil {
			h.fail(w, r, err)
			return
		}
		key := reportKey(fmt.Sprintf("aging-%d", scope), false, reports.Formatter{}, asOf)
		h.serveReport(w, r, key, func(ctx context.Context) (any, error) {
			switch scope {
			case agingReceivable:
				return h.engine.Aging.ARAging(ctx, asOf)
			case agingPayable:
				return h.engine.Aging.APAging(ctx, asOf)
			default:
				return h.engine.Aging.Overview(ctx, asOf)
			}
		})
	}
}

// serveReport collapses identical concurrent report requests into one build.
func (h *Handler) serveReport(w http.ResponseWriter, r *http.Request, key string, build func(context.Context) (any, error)) {
	ctx := r.Context()
	ch := h.flights.DoChan(key, func() (any, error) {
		return build(context.WithoutCancel(ctx))
	})
	select {
	case <-ctx.Done():
		h.fail(w, r, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			h.fail(w, r, res.Err)
			return
		}
		httpx.JSON(w, http.StatusOK, res.Val)
	}
}

func formatter(r *http.Request) (reports.Formatter, bool) {
	if r.URL.Query().Get("view") != "display" {
		return reports.Formatter{}, false
	}
	return reports.FormatterFor(r.Header.Get("Accept-Language")), true
}

func reportKey(name string, display bool, f reports.Formatter, dates ...time.Time) string {
	parts := []string{name}
	for _, d := range dates {
		parts = append(parts, d.Format(dateLayout))
	}
	if display {
		parts = append(parts, "display", f.Locale())
	}
	return strings.Join(parts, ":")
}

// --- reconciliation ---

func (h *Handler) handleVariance(w http.ResponseWriter, r *http.Request) {
	asOf, err := h.dateParam(r, "as_of", h.now())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	variance, err := h.engine.Reconcile.ComputeVariance(r.Context(), asOf)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, variance)
}

func (h *Handler) handleAutoBalance(w http.ResponseWriter, r *http.Request) {
	actor, err := actorID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req reconcile.AutoBalanceRequest
	if r.ContentLength != 0 {
		if err := httpx.DecodeJSON(r, &req); err != nil {
			h.fail(w, r, err)
			return
		}
	}
	in, err := req.Input(h.validate, actor)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if in.AsOf.IsZero() {
		in.AsOf = reports.DateOnly(h.now())
	}
	result, err := h.engine.Reconcile.AutoBalance(r.Context(), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	status := http.StatusOK
	if result.Adjusted {
		status = http.StatusCreated
	}
	httpx.JSON(w, status, result)
}

// --- helpers ---

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	attrs := []any{slog.String("method", r.Method), slog.String("path", r.URL.Path), slog.Any("error", err)}
	switch {
	case errors.Is(err, shared.ErrStorage), !shared.IsDomainError(err) && !isTransportError(err):
		h.logger.Error("ledger request failed", attrs...)
	default:
		h.logger.Debug("ledger request rejected", attrs...)
	}
	httpx.RespondError(w, err)
}

func isTransportError(err error) bool {
	return errors.Is(err, httpx.ErrBadRequest) || errors.Is(err, httpx.ErrPreconditionRequired)
}

func pathID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid id %q", httpx.ErrBadRequest, raw)
	}
	return id, nil
}

func actorID(r *http.Request) (int64, error) {
	raw := strings.TrimSpace(r.Header.Get(ActorHeader))
	if raw == "" {
		return 0, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 0 {
		return 0, fmt.Errorf("%w: invalid %s header", httpx.ErrBadRequest, ActorHeader)
	}
	return id, nil
}

func ifMatchVersion(r *http.Request) (int64, error) {
	raw := strings.TrimSpace(r.Header.Get("If-Match"))
	if raw == "" {
		return 0, fmt.Errorf("%w: If-Match must carry the draft version", httpx.ErrPreconditionRequired)
	}
	raw = strings.TrimPrefix(raw, "W/")
	if unquoted, err := strconv.Unquote(raw); err == nil {
		raw = unquoted
	}
	version, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || version <= 0 {
		return 0, fmt.Errorf("%w: invalid If-Match version", httpx.ErrBadRequest)
	}
	return version, nil
}

func (h *Handler) dateParam(r *http.Request, name string, fallback time.Time) (time.Time, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return reports.DateOnly(fallback), nil
	}
	date, err := time.Parse(dateLayout, raw)
	if err != nil {
		return time.Time{}, shared.NewValidationError([]shared.FieldError{{Field: name, Message: "must be a date in 2006-01-02 format"}})
	}
	return date, nil
}

func nonNil[T any](list []T) []T {
	if list == nil {
		return []T{}
	}
	return list
}
