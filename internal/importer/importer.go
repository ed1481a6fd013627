// Package importer turns bank statement exports into draft ledger entries.
package importer

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/clinicbooks/clinicbooks/internal/model"
	"github.com/clinicbooks/clinicbooks/internal/textmatch"
)

// Transaction is one statement line. Credits are positive, debits negative.
type Transaction struct {
	Date        time.Time
	Description string
	Amount      decimal.Decimal
	Reference   string
}

// Parser converts a bank statement file into Transactions.
type Parser interface {
	Parse(r io.Reader) ([]Transaction, error)
	Format() string
}

// Registry holds named parsers.
type Registry struct {
	parsers map[string]Parser
}

// NewRegistry creates an empty parser registry.
func NewRegistry() *Registry {
	return &Registry{parsers: make(map[string]Parser)}
}

// Register adds a parser. Panics on duplicate format.
func (r *Registry) Register(p Parser) {
	key := strings.ToLower(p.Format())
	if _, ok := r.parsers[key]; ok {
		panic("duplicate parser format: " + key)
	}
	r.parsers[key] = p
}

// Get returns the parser for format, or nil.
func (r *Registry) Get(format string) Parser {
	return r.parsers[strings.ToLower(format)]
}

// Formats lists the registered format names in order.
func (r *Registry) Formats() []string {
	out := make([]string, 0, len(r.parsers))
	for k := range r.parsers {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// DefaultRegistry returns a registry with all built-in parsers.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(&NubankParser{})
	r.Register(&SemicolonParser{})
	return r
}

// Rule files expenses whose description contains Match under AccountID.
type Rule struct {
	Match     string
	AccountID string
}

// ParseRule reads a "match=account-id" flag value.
func ParseRule(s string) (Rule, error) {
	match, acct, ok := strings.Cut(s, "=")
	match, acct = strings.TrimSpace(match), strings.TrimSpace(acct)
	if !ok || match == "" || acct == "" {
		return Rule{}, &model.ValidationError{Field: "rule", Reason: fmt.Sprintf("%q is not match=account-id", s)}
	}
	return Rule{Match: match, AccountID: acct}, nil
}

// Options control how transactions become entries.
type Options struct {
	OwnerID        string
	Regime         model.Regime // optional; hybrid owners need it for revenue
	Rules          []Rule       // first match wins
	DefaultAccount string       // for expenses no rule matches
	PaymentMethod  string
}

// ToEntries converts credits into revenue and debits into expenses. Zero
// amounts are skipped. An expense that matches no rule and has no default
// account fails the whole conversion, naming its line.
func ToEntries(txns []Transaction, opts Options) ([]model.Entry, error) {
	method := opts.PaymentMethod
	if method == "" {
		method = "transfer"
	}
	var out []model.Entry
	for i, t := range txns {
		if t.Amount.IsZero() {
			continue
		}
		e := model.Entry{
			OwnerID:       opts.OwnerID,
			Date:          model.TruncateDate(t.Date),
			Amount:        t.Amount.Abs(),
			Description:   t.Description,
			Regime:        opts.Regime,
			PaymentMethod: method,
		}
		if t.Reference != "" {
			e.Notes = "statement ref " + t.Reference
		}
		if t.Amount.IsPositive() {
			e.Kind = model.KindRevenue
		} else {
			e.Kind = model.KindExpense
			e.AccountID = classify(t.Description, opts.Rules, opts.DefaultAccount)
			if e.AccountID == "" {
				return nil, &model.ValidationError{
					Field:  "account",
					Reason: fmt.Sprintf("line %d (%s): no rule matches and no default account", i+1, t.Description),
				}
			}
		}
		out = append(out, e)
	}
	return out, nil
}

func classify(desc string, rules []Rule, fallback string) string {
	for _, r := range rules {
		if textmatch.Contains(r.Match, desc) {
			return r.AccountID
		}
	}
	return fallback
}

// FileInfo describes a statement file waiting in the import directory.
type FileInfo struct {
	Name string
	Path string
	Size int64
}

const (
	importDir    = "import"
	processedDir = "import/processed"
)

// Scan returns CSV files in <dataDir>/import/.
func Scan(dataDir string) ([]FileInfo, error) {
	dir := filepath.Join(dataDir, importDir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading import dir: %w", err)
	}

	var files []FileInfo
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(strings.ToLower(e.Name()), ".csv") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", e.Name(), err)
		}
		files = append(files, FileInfo{
			Name: e.Name(),
			Path: filepath.Join(dir, e.Name()),
			Size: info.Size(),
		})
	}
	return files, nil
}

// MarkProcessed moves a file from import/ to import/processed/.
func MarkProcessed(dataDir, fileName string) error {
	dstDir := filepath.Join(dataDir, processedDir)
	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return fmt.Errorf("creating processed dir: %w", err)
	}
	src := filepath.Join(dataDir, importDir, fileName)
	if err := os.Rename(src, filepath.Join(dstDir, fileName)); err != nil {
		return fmt.Errorf("moving %s to processed: %w", fileName, err)
	}
	return nil
}
