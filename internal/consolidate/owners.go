// Package consolidate serves the administrator's cross-owner views: the
// paginated owner table, practice-wide period totals and registration
// statistics. Owners are independent tenants; nothing here writes.
package consolidate

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/clinicbooks/clinicbooks/internal/model"
	"github.com/clinicbooks/clinicbooks/internal/period"
	"github.com/clinicbooks/clinicbooks/internal/store"
	"github.com/clinicbooks/clinicbooks/internal/tax"
	"github.com/clinicbooks/clinicbooks/internal/textmatch"
)

// Sortable owner columns.
const (
	SortCreatedAt = "createdAt"
	SortName      = "name"
	SortEmail     = "email"
)

// Sort directions.
const (
	OrderAsc  = "ASC"
	OrderDesc = "DESC"
)

const (
	DefaultPageSize    = 10
	MaxPageSize        = 100
	DefaultConcurrency = 4
)

// Options configures a Consolidator. Zero values take the defaults.
type Options struct {
	PageSize    int
	Concurrency int // owners aggregated at once

	// When Estimator is set, AggregateAcrossOwners also estimates each
	// owner's taxes under Parameters.
	Estimator  *tax.Estimator
	Parameters tax.Parameters
}

// Consolidator computes read-only views across every owner.
type Consolidator struct {
	store      store.Store
	aggregator *period.Aggregator
	opts       Options
	now        func() time.Time
}

// New creates a Consolidator.
func New(s store.Store, aggregator *period.Aggregator, opts Options) *Consolidator {
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	if opts.PageSize > MaxPageSize {
		opts.PageSize = MaxPageSize
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	return &Consolidator{
		store:      s,
		aggregator: aggregator,
		opts:       opts,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// OwnerQuery selects one page of the owner table.
type OwnerQuery struct {
	Search    string // matched against name, email and clinic name
	SortField string // SortCreatedAt (default), SortName or SortEmail
	SortOrder string // OrderAsc or OrderDesc (default), any casing
	Page      int    // 1-indexed; 0 means 1
	PageSize  int    // 0 means the configured default
}

// OwnerSummary is one row of the owner table.
type OwnerSummary struct {
	Owner         model.Owner
	RevenueCount  int
	ExpenseCount  int
	TotalRevenue  decimal.Decimal
	TotalExpenses decimal.Decimal
}

// OwnerPage is a page of owners. TotalPages is at least 1, even with no
// matches. A page past the end has no items and the same TotalPages.
type OwnerPage struct {
	Items      []OwnerSummary
	Page       int
	PageSize   int
	TotalItems int
	TotalPages int
}

func (c *Consolidator) normalize(q OwnerQuery) (OwnerQuery, error) {
	switch q.SortField {
	case "":
		q.SortField = SortCreatedAt
	case SortCreatedAt, SortName, SortEmail:
	default:
		return q, &model.ValidationError{Field: "sortField", Reason: fmt.Sprintf("cannot sort by %q", q.SortField)}
	}

	q.SortOrder = strings.ToUpper(strings.TrimSpace(q.SortOrder))
	switch q.SortOrder {
	case "":
		q.SortOrder = OrderDesc
	case OrderAsc, OrderDesc:
	default:
		return q, &model.ValidationError{Field: "sortOrder", Reason: "must be ASC or DESC"}
	}

	switch {
	case q.Page == 0:
		q.Page = 1
	case q.Page < 0:
		return q, &model.ValidationError{Field: "page", Reason: "must be >= 1"}
	}
	switch {
	case q.PageSize == 0:
		q.PageSize = c.opts.PageSize
	case q.PageSize < 0 || q.PageSize > MaxPageSize:
		return q, &model.ValidationError{Field: "pageSize", Reason: fmt.Sprintf("must be 1..%d", MaxPageSize)}
	}
	return q, nil
}

// ListOwners returns one page of owners matching q, each with lifetime
// entry counts and totals.
func (c *Consolidator) ListOwners(ctx context.Context, q OwnerQuery) (OwnerPage, error) {
	q, err := c.normalize(q)
	if err != nil {
		return OwnerPage{}, err
	}

	all, err := c.store.ListOwners(ctx)
	if err != nil {
		return OwnerPage{}, fmt.Errorf("listing owners: %w", err)
	}
	var matched []model.Owner
	for _, o := range all {
		if textmatch.Contains(q.Search, o.Name, o.Email, o.ClinicName) {
			matched = append(matched, o)
		}
	}
	sortOwners(matched, q.SortField, q.SortOrder == OrderDesc)

	page := OwnerPage{
		Items:      []OwnerSummary{},
		Page:       q.Page,
		PageSize:   q.PageSize,
		TotalItems: len(matched),
		TotalPages: max(1, (len(matched)+q.PageSize-1)/q.PageSize),
	}
	start := (q.Page - 1) * q.PageSize
	if start >= len(matched) {
		return page, nil
	}
	end := min(start+q.PageSize, len(matched))

	items := make([]OwnerSummary, end-start)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.Concurrency)
	for i, o := range matched[start:end] {
		g.Go(func() error {
			s, err := c.summarize(gctx, o)
			if err != nil {
				return err
			}
			items[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return OwnerPage{}, err
	}
	page.Items = items
	return page, nil
}

func (c *Consolidator) summarize(ctx context.Context, o model.Owner) (OwnerSummary, error) {
	entries, err := c.store.ListEntries(ctx, model.EntryFilter{OwnerID: o.ID})
	if err != nil {
		return OwnerSummary{}, fmt.Errorf("listing entries of %s: %w", o.ID, err)
	}
	s := OwnerSummary{Owner: o, TotalRevenue: decimal.Zero, TotalExpenses: decimal.Zero}
	for _, e := range entries {
		if e.IsRevenue() {
			s.RevenueCount++
			s.TotalRevenue = s.TotalRevenue.Add(e.Amount)
		} else {
			s.ExpenseCount++
			s.TotalExpenses = s.TotalExpenses.Add(e.Amount)
		}
	}
	return s, nil
}

// sortOwners orders by the requested column with the id as tie-breaker,
// so pages never overlap.
func sortOwners(owners []model.Owner, field string, desc bool) {
	key := func(o model.Owner) string {
		switch field {
		case SortName:
			return textmatch.Fold(o.Name)
		case SortEmail:
			return strings.ToLower(o.Email)
		}
		return ""
	}
	sort.SliceStable(owners, func(i, j int) bool {
		a, b := owners[i], owners[j]
		var less, equal bool
		if field == SortCreatedAt {
			less, equal = a.CreatedAt.Before(b.CreatedAt), a.CreatedAt.Equal(b.CreatedAt)
		} else {
			ka, kb := key(a), key(b)
			less, equal = ka < kb, ka == kb
		}
		if equal {
			return a.ID < b.ID
		}
		if desc {
			return !less
		}
		return less
	})
}
