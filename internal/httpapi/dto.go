package httpapi

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/clinicbooks/clinicbooks/internal/consolidate"
	"github.com/clinicbooks/clinicbooks/internal/model"
	"github.com/clinicbooks/clinicbooks/internal/tax"
)

// Money travels as a string with exactly two fraction digits, dates as
// YYYY-MM-DD.

func money(d decimal.Decimal) string {
	return model.FormatMoney(d)
}

func date(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(model.DateFormat)
}

// AccountTotal is one row of an expense breakdown.
type AccountTotal struct {
	AccountID  string `json:"accountId"`
	Name       string `json:"name"`
	Deductible bool   `json:"deductible"`
	Total      string `json:"total"`
}

// Aggregate is the wire form of a month's rollup.
type Aggregate struct {
	OwnerID    string `json:"ownerId,omitempty"`
	PersonType string `json:"personType,omitempty"`
	Period     string `json:"period"`
	Month      int    `json:"month"`
	Year       int    `json:"year"`

	GrossRevenuePF        string `json:"grossRevenuePF"`
	GrossRevenuePJ        string `json:"grossRevenuePJ"`
	GrossRevenue          string `json:"grossRevenue"`
	DeductibleExpenses    string `json:"deductibleExpenses"`
	DeductibleExpensesPF  string `json:"deductibleExpensesPF"`
	NonDeductibleExpenses string `json:"nonDeductibleExpenses"`
	TotalExpenses         string `json:"totalExpenses"`
	NetResult             string `json:"netResult"`
	FixedExpenses         string `json:"fixedExpenses"`
	VariableExpenses      string `json:"variableExpenses"`

	RevenueCount     int `json:"revenueCount"`
	ExpenseCount     int `json:"expenseCount"`
	PendingDocuments int `json:"pendingDocuments"`

	ExpensesByAccount []AccountTotal `json:"expensesByAccount"`

	EstimatedTaxPF    string `json:"estimatedTaxPF"`
	EstimatedTaxPJ    string `json:"estimatedTaxPJ"`
	TotalEstimatedTax string `json:"totalEstimatedTax"`
}

func toAggregate(a model.PeriodAggregate) Aggregate {
	out := Aggregate{
		OwnerID:               a.OwnerID,
		PersonType:            string(a.PersonType),
		Period:                a.Period().String(),
		Month:                 a.Month,
		Year:                  a.Year,
		GrossRevenuePF:        money(a.GrossRevenuePF),
		GrossRevenuePJ:        money(a.GrossRevenuePJ),
		GrossRevenue:          money(a.GrossRevenue()),
		DeductibleExpenses:    money(a.DeductibleExpenses),
		DeductibleExpensesPF:  money(a.DeductibleExpensesPF),
		NonDeductibleExpenses: money(a.NonDeductibleExpenses),
		TotalExpenses:         money(a.TotalExpenses),
		NetResult:             money(a.NetResult),
		FixedExpenses:         money(a.FixedExpenses),
		VariableExpenses:      money(a.VariableExpenses),
		RevenueCount:          a.RevenueCount,
		ExpenseCount:          a.ExpenseCount,
		PendingDocuments:      a.PendingDocuments,
		ExpensesByAccount:     make([]AccountTotal, 0, len(a.ExpensesByAccount)),
		EstimatedTaxPF:        money(a.EstimatedTaxPF),
		EstimatedTaxPJ:        money(a.EstimatedTaxPJ),
		TotalEstimatedTax:     money(a.TotalEstimatedTax),
	}
	for _, t := range a.ExpensesByAccount {
		out.ExpensesByAccount = append(out.ExpensesByAccount, AccountTotal{
			AccountID:  t.AccountID,
			Name:       t.Name,
			Deductible: t.Deductible,
			Total:      money(t.Total),
		})
	}
	return out
}

// Figure is one estimated liability. Amount is omitted unless Status is ok.
type Figure struct {
	Status string `json:"status"`
	Amount string `json:"amount,omitempty"`
	Reason string `json:"reason,omitempty"`
}

func toFigure(f tax.Figure) Figure {
	out := Figure{Status: string(f.Status), Reason: f.Reason}
	if f.Status == tax.StatusOK {
		out.Amount = money(f.Amount)
	}
	return out
}

// Estimate is an aggregate with its advisory tax figures applied.
type Estimate struct {
	Aggregate            Aggregate `json:"aggregate"`
	PF                   Figure    `json:"pf"`
	PJ                   Figure    `json:"pj"`
	Total                string    `json:"total"`
	TotalKnown           bool      `json:"totalKnown"`
	PFBase               string    `json:"pfBase"`
	ZeroLiabilityExpense *string   `json:"zeroLiabilityExpense"`
	RBT12                string    `json:"rbt12"`
	EffectiveRate        string    `json:"effectiveRate"`
	Annualized           bool      `json:"annualized"`
	ParametersVersion    string    `json:"parametersVersion"`
}

func toEstimate(agg model.PeriodAggregate, e tax.Estimate) Estimate {
	out := Estimate{
		Aggregate:         toAggregate(agg),
		PF:                toFigure(e.PF),
		PJ:                toFigure(e.PJ),
		Total:             money(e.Total),
		TotalKnown:        e.TotalKnown,
		PFBase:            money(e.PFBase),
		RBT12:             money(e.RBT12),
		EffectiveRate:     e.EffectiveRate.StringFixed(6),
		Annualized:        e.Annualized,
		ParametersVersion: e.ParametersVersion,
	}
	if e.ZeroLiabilityExpense != nil {
		s := money(*e.ZeroLiabilityExpense)
		out.ZeroLiabilityExpense = &s
	}
	return out
}

// Payer is a third party paying for treatment.
type Payer struct {
	Name       string `json:"name"`
	TaxID      string `json:"taxId,omitempty"`
	PersonType string `json:"personType,omitempty"`
}

// Patient is the beneficiary of a revenue entry.
type Patient struct {
	Name  string `json:"name,omitempty"`
	TaxID string `json:"taxId,omitempty"`
}

// Entry is the wire form of a ledger entry, used for both input and output.
type Entry struct {
	ID             string  `json:"id,omitempty"`
	OwnerID        string  `json:"ownerId,omitempty"`
	ClinicID       string  `json:"clinicId,omitempty"`
	Kind           string  `json:"kind"`
	Date           string  `json:"date"`
	Amount         string  `json:"amount"`
	Description    string  `json:"description"`
	Regime         string  `json:"regime,omitempty"`
	PaymentMethod  string  `json:"paymentMethod,omitempty"`
	Notes          string  `json:"notes,omitempty"`
	AccountID      string  `json:"accountId,omitempty"`
	CostBehavior   string  `json:"costBehavior,omitempty"`
	Patient        Patient `json:"patient"`
	Payer          *Payer  `json:"payer,omitempty"`
	DocumentIssued bool    `json:"documentIssued"`
	CreatedAt      string  `json:"createdAt,omitempty"`
	UpdatedAt      string  `json:"updatedAt,omitempty"`
}

func toEntry(e model.Entry) Entry {
	out := Entry{
		ID:             e.ID,
		OwnerID:        e.OwnerID,
		ClinicID:       e.ClinicID,
		Kind:           string(e.Kind),
		Date:           date(e.Date),
		Amount:         money(e.Amount),
		Description:    e.Description,
		Regime:         string(e.Regime),
		PaymentMethod:  e.PaymentMethod,
		Notes:          e.Notes,
		AccountID:      e.AccountID,
		CostBehavior:   string(e.CostBehavior),
		Patient:        Patient{Name: e.Patient.Name, TaxID: e.Patient.TaxID},
		DocumentIssued: e.DocumentIssued,
	}
	if e.Payer != nil {
		out.Payer = &Payer{Name: e.Payer.Name, TaxID: e.Payer.TaxID, PersonType: string(e.Payer.PersonType)}
	}
	if !e.CreatedAt.IsZero() {
		out.CreatedAt = e.CreatedAt.Format(time.RFC3339)
	}
	if !e.UpdatedAt.IsZero() {
		out.UpdatedAt = e.UpdatedAt.Format(time.RFC3339)
	}
	return out
}

// toModel converts a request body. The owner comes from the URL, never the
// body.
func (in Entry) toModel(ownerID string) (model.Entry, error) {
	d, err := model.ParseDate(in.Date)
	if err != nil {
		return model.Entry{}, err
	}
	amount, err := model.ParseMoney(in.Amount)
	if err != nil {
		return model.Entry{}, err
	}
	r, err := model.ParseRegime(in.Regime)
	if err != nil {
		return model.Entry{}, err
	}
	e := model.Entry{
		OwnerID:        ownerID,
		ClinicID:       in.ClinicID,
		Kind:           model.Kind(in.Kind),
		Date:           d,
		Amount:         amount,
		Description:    in.Description,
		Regime:         r,
		PaymentMethod:  in.PaymentMethod,
		Notes:          in.Notes,
		AccountID:      in.AccountID,
		CostBehavior:   model.CostBehavior(in.CostBehavior),
		Patient:        model.Patient{Name: in.Patient.Name, TaxID: in.Patient.TaxID},
		DocumentIssued: in.DocumentIssued,
	}
	if in.Payer != nil {
		p := &model.Payer{Name: in.Payer.Name, TaxID: in.Payer.TaxID}
		if in.Payer.PersonType != "" {
			pt, err := model.ParsePersonType(in.Payer.PersonType)
			if err != nil {
				return model.Entry{}, err
			}
			p.PersonType = pt
		}
		e.Payer = p
	}
	return e, nil
}

// Account is a chart account.
type Account struct {
	ID         string `json:"id"`
	ClinicID   string `json:"clinicId"`
	Name       string `json:"name"`
	Deductible bool   `json:"deductible"`
	Active     bool   `json:"active"`
}

func toAccounts(accts []model.ChartAccount) []Account {
	out := make([]Account, 0, len(accts))
	for _, a := range accts {
		out = append(out, Account{ID: a.ID, ClinicID: a.ClinicID, Name: a.Name, Deductible: a.Deductible, Active: a.Active})
	}
	return out
}

// OwnerSummary is one row of the administrator's owner table.
type OwnerSummary struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	ClinicID      string `json:"clinicId"`
	ClinicName    string `json:"clinicName"`
	PersonType    string `json:"personType"`
	Active        bool   `json:"active"`
	CreatedAt     string `json:"createdAt"`
	RevenueCount  int    `json:"revenueCount"`
	ExpenseCount  int    `json:"expenseCount"`
	TotalRevenue  string `json:"totalRevenue"`
	TotalExpenses string `json:"totalExpenses"`
}

// OwnerPage is a page of the owner table.
type OwnerPage struct {
	Items      []OwnerSummary `json:"items"`
	Page       int            `json:"page"`
	PageSize   int            `json:"pageSize"`
	TotalItems int            `json:"totalItems"`
	TotalPages int            `json:"totalPages"`
}

func toOwnerPage(p consolidate.OwnerPage) OwnerPage {
	out := OwnerPage{
		Items:      make([]OwnerSummary, 0, len(p.Items)),
		Page:       p.Page,
		PageSize:   p.PageSize,
		TotalItems: p.TotalItems,
		TotalPages: p.TotalPages,
	}
	for _, s := range p.Items {
		out.Items = append(out.Items, OwnerSummary{
			ID:            s.Owner.ID,
			Name:          s.Owner.Name,
			Email:         s.Owner.Email,
			ClinicID:      s.Owner.ClinicID,
			ClinicName:    s.Owner.ClinicName,
			PersonType:    string(s.Owner.PersonType),
			Active:        s.Owner.Active,
			CreatedAt:     date(s.Owner.CreatedAt),
			RevenueCount:  s.RevenueCount,
			ExpenseCount:  s.ExpenseCount,
			TotalRevenue:  money(s.TotalRevenue),
			TotalExpenses: money(s.TotalExpenses),
		})
	}
	return out
}

// TypeTotal sums the owners of one person type.
type TypeTotal struct {
	PersonType string `json:"personType"`
	Owners     int    `json:"owners"`
	Revenue    string `json:"revenue"`
	Expenses   string `json:"expenses"`
}

// ClinicTotal sums the owners of one clinic.
type ClinicTotal struct {
	ClinicID   string `json:"clinicId"`
	ClinicName string `json:"clinicName"`
	Owners     int    `json:"owners"`
	Revenue    string `json:"revenue"`
	Expenses   string `json:"expenses"`
	NetResult  string `json:"netResult"`
}

// Consolidated is the practice-wide view of one period.
type Consolidated struct {
	Period           string        `json:"period"`
	Owners           int           `json:"owners"`
	Totals           Aggregate     `json:"totals"`
	ByPersonType     []TypeTotal   `json:"byPersonType"`
	ByClinic         []ClinicTotal `json:"byClinic"`
	Estimated        bool          `json:"estimated"`
	UnknownEstimates int           `json:"unknownEstimates"`
}

func toConsolidated(c consolidate.Consolidated) Consolidated {
	out := Consolidated{
		Period:           c.Period.String(),
		Owners:           c.Owners,
		Totals:           toAggregate(c.Totals),
		ByPersonType:     make([]TypeTotal, 0, len(c.ByPersonType)),
		ByClinic:         make([]ClinicTotal, 0, len(c.ByClinic)),
		Estimated:        c.Estimated,
		UnknownEstimates: c.UnknownEstimates,
	}
	for _, t := range c.ByPersonType {
		out.ByPersonType = append(out.ByPersonType, TypeTotal{
			PersonType: string(t.PersonType),
			Owners:     t.Owners,
			Revenue:    money(t.Revenue),
			Expenses:   money(t.Expenses),
		})
	}
	for _, t := range c.ByClinic {
		out.ByClinic = append(out.ByClinic, ClinicTotal{
			ClinicID:   t.ClinicID,
			ClinicName: t.ClinicName,
			Owners:     t.Owners,
			Revenue:    money(t.Revenue),
			Expenses:   money(t.Expenses),
			NetResult:  money(t.NetResult),
		})
	}
	return out
}

// Stats are the administrator dashboard figures.
type Stats struct {
	AsOf             string         `json:"asOf"`
	TotalOwners      int            `json:"totalOwners"`
	ActiveOwners     int            `json:"activeOwners"`
	NewOwnersMonth   int            `json:"newOwnersMonth"`
	ByPersonType     map[string]int `json:"byPersonType"`
	TotalEntries     int            `json:"totalEntries"`
	RevenueEntries   int            `json:"revenueEntries"`
	ExpenseEntries   int            `json:"expenseEntries"`
	LifetimeRevenue  string         `json:"lifetimeRevenue"`
	LifetimeExpenses string         `json:"lifetimeExpenses"`
	Balance          string         `json:"balance"`
}

func toStats(s consolidate.Stats) Stats {
	out := Stats{
		AsOf:             date(s.AsOf),
		TotalOwners:      s.TotalOwners,
		ActiveOwners:     s.ActiveOwners,
		NewOwnersMonth:   s.NewOwnersMonth,
		ByPersonType:     make(map[string]int, len(s.ByPersonType)),
		TotalEntries:     s.TotalEntries,
		RevenueEntries:   s.RevenueEntries,
		ExpenseEntries:   s.ExpenseEntries,
		LifetimeRevenue:  money(s.LifetimeRevenue),
		LifetimeExpenses: money(s.LifetimeExpenses),
		Balance:          money(s.Balance),
	}
	for k, v := range s.ByPersonType {
		out.ByPersonType[string(k)] = v
	}
	return out
}

// GrowthPoint is one month of the registration chart.
type GrowthPoint struct {
	Period     string `json:"period"`
	NewOwners  int    `json:"newOwners"`
	Cumulative int    `json:"cumulative"`
}

func toGrowth(points []consolidate.GrowthPoint) []GrowthPoint {
	out := make([]GrowthPoint, 0, len(points))
	for _, p := range points {
		out = append(out, GrowthPoint{Period: p.Period.String(), NewOwners: p.NewOwners, Cumulative: p.Cumulative})
	}
	return out
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}
