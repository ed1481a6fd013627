package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/clinicbooks/clinicbooks/internal/consolidate"
	"github.com/clinicbooks/clinicbooks/internal/model"
)

const defaultGrowthMonths = 12

type handlers struct {
	deps    Dependencies
	metrics *metrics
}

// period reads month and year from the query string. Both absent means the
// current month; one without the other is rejected.
func (h *handlers) period(r *http.Request) (model.Period, error) {
	q := r.URL.Query()
	ms, ys := q.Get("month"), q.Get("year")
	if ms == "" && ys == "" {
		return model.PeriodOf(h.deps.Now().UTC()), nil
	}
	month, err := queryInt(ms, "month")
	if err != nil {
		return model.Period{}, err
	}
	year, err := queryInt(ys, "year")
	if err != nil {
		return model.Period{}, err
	}
	return model.NewPeriod(month, year)
}

func queryInt(s, field string) (int, error) {
	if s == "" {
		return 0, &model.ValidationError{Field: field, Reason: "required"}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, &model.ValidationError{Field: field, Reason: fmt.Sprintf("not an integer: %q", s)}
	}
	return n, nil
}

func optionalInt(r *http.Request, name string) (int, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return 0, nil
	}
	return queryInt(s, name)
}

func (h *handlers) getAggregate(w http.ResponseWriter, r *http.Request) {
	p, err := h.period(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	agg, err := h.deps.Aggregator.Aggregate(r.Context(), chi.URLParam(r, "ownerID"), p.Month, p.Year)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, toAggregate(agg))
}

func (h *handlers) getEstimate(w http.ResponseWriter, r *http.Request) {
	p, err := h.period(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	agg, err := h.deps.Aggregator.Aggregate(r.Context(), chi.URLParam(r, "ownerID"), p.Month, p.Year)
	if err != nil {
		writeError(w, r, err)
		return
	}
	est, err := h.deps.Estimator.Estimate(r.Context(), agg, h.deps.Parameters)
	if err != nil {
		writeError(w, r, err)
		return
	}
	est.Apply(&agg)
	h.metrics.estimates.WithLabelValues("PF", string(est.PF.Status)).Inc()
	h.metrics.estimates.WithLabelValues("PJ", string(est.PJ.Status)).Inc()
	writeJSON(w, r, http.StatusOK, toEstimate(agg, est))
}

func (h *handlers) listEntries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := model.EntryFilter{
		AccountID: q.Get("accountId"),
		Text:      q.Get("q"),
	}
	if s := q.Get("from"); s != "" {
		d, err := model.ParseDate(s)
		if err != nil {
			writeError(w, r, &model.ValidationError{Field: "from", Reason: "expected YYYY-MM-DD"})
			return
		}
		filter.From = d
	}
	if s := q.Get("to"); s != "" {
		d, err := model.ParseDate(s)
		if err != nil {
			writeError(w, r, &model.ValidationError{Field: "to", Reason: "expected YYYY-MM-DD"})
			return
		}
		filter.To = d
	}
	if s := q.Get("kind"); s != "" {
		k := model.Kind(strings.ToLower(s))
		if !k.Valid() {
			writeError(w, r, &model.ValidationError{Field: "kind", Reason: "must be revenue or expense"})
			return
		}
		filter.Kind = k
	}
	reg, err := model.ParseRegime(q.Get("regime"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	filter.Regime = reg

	entries, err := h.deps.Ledger.List(r.Context(), chi.URLParam(r, "ownerID"), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		out = append(out, toEntry(e))
	}
	writeJSON(w, r, http.StatusOK, out)
}

func (h *handlers) createEntry(w http.ResponseWriter, r *http.Request) {
	var in Entry
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&in); err != nil {
		writeError(w, r, &model.ValidationError{Reason: "malformed JSON body: " + err.Error()})
		return
	}
	e, err := in.toModel(chi.URLParam(r, "ownerID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	created, err := h.deps.Ledger.Create(r.Context(), e)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, toEntry(*created))
}

func (h *handlers) deleteEntry(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.Ledger.Delete(r.Context(), chi.URLParam(r, "entryID")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// listAccounts returns the whole chart, or only the active accounts of one
// class when deductible is given.
func (h *handlers) listAccounts(w http.ResponseWriter, r *http.Request) {
	clinicID := chi.URLParam(r, "clinicID")
	var (
		accts []model.ChartAccount
		err   error
	)
	switch s := r.URL.Query().Get("deductible"); s {
	case "":
		accts, err = h.deps.Accounts.List(r.Context(), clinicID)
	case "true":
		accts, err = h.deps.Accounts.ListDeductible(r.Context(), clinicID)
	case "false":
		accts, err = h.deps.Accounts.ListNonDeductible(r.Context(), clinicID)
	default:
		err = &model.ValidationError{Field: "deductible", Reason: "must be true or false"}
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, toAccounts(accts))
}

func (h *handlers) listOwners(w http.ResponseWriter, r *http.Request) {
	page, err := optionalInt(r, "page")
	if err != nil {
		writeError(w, r, err)
		return
	}
	size, err := optionalInt(r, "pageSize")
	if err != nil {
		writeError(w, r, err)
		return
	}
	q := r.URL.Query()
	res, err := h.deps.Consolidator.ListOwners(r.Context(), consolidate.OwnerQuery{
		Search:    q.Get("search"),
		SortField: q.Get("sort"),
		SortOrder: q.Get("order"),
		Page:      page,
		PageSize:  size,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, toOwnerPage(res))
}

func (h *handlers) getConsolidated(w http.ResponseWriter, r *http.Request) {
	p, err := h.period(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	c, err := h.deps.Consolidator.AggregateAcrossOwners(r.Context(), p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, toConsolidated(c))
}

func (h *handlers) getStats(w http.ResponseWriter, r *http.Request) {
	s, err := h.deps.Consolidator.Stats(r.Context(), h.deps.Now().UTC())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, toStats(s))
}

func (h *handlers) getGrowth(w http.ResponseWriter, r *http.Request) {
	months, err := optionalInt(r, "months")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if months == 0 {
		months = defaultGrowthMonths
	}
	points, err := h.deps.Consolidator.Growth(r.Context(), months, h.deps.Now().UTC())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, toGrowth(points))
}
