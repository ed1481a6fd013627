// Package regime attributes ledger entries to the PF or PJ tax regime.
//
// The owner's person type is dispatched once to a Policy; aggregation code
// only ever sees the resolved model.Regime.
package regime

import (
	"github.com/clinicbooks/clinicbooks/internal/model"
)

// Policy resolves the regime of a single entry for one kind of owner.
type Policy interface {
	Resolve(kind model.Kind, tag model.Regime) (model.Regime, error)
}

type fixedPolicy model.Regime

func (p fixedPolicy) Resolve(model.Kind, model.Regime) (model.Regime, error) {
	return model.Regime(p), nil
}

// hybridPolicy requires revenue to carry its own tag. Untagged expenses go
// to the PF cash book, where deductions apply.
type hybridPolicy struct{}

func (hybridPolicy) Resolve(kind model.Kind, tag model.Regime) (model.Regime, error) {
	if tag.Valid() {
		return tag, nil
	}
	if kind == model.KindExpense && tag == "" {
		return model.RegimePF, nil
	}
	return "", &model.ValidationError{Field: "regime", Reason: "regime required for hybrid owner"}
}

// For returns the policy for a person type.
func For(t model.PersonType) (Policy, error) {
	switch t {
	case model.PersonPF:
		return fixedPolicy(model.RegimePF), nil
	case model.PersonPJ:
		return fixedPolicy(model.RegimePJ), nil
	case model.PersonHibrido:
		return hybridPolicy{}, nil
	default:
		return nil, &model.ValidationError{Field: "personType", Reason: "unknown person type " + string(t)}
	}
}

// Resolve determines the regime a new or edited entry is stamped with.
func Resolve(owner model.Owner, entry model.Entry) (model.Regime, error) {
	p, err := For(owner.PersonType)
	if err != nil {
		return "", err
	}
	return p.Resolve(entry.Kind, entry.Regime)
}

// Attribute returns the regime of a stored entry. A valid stored tag is
// authoritative; rows written before tagging fall back to Resolve against
// the current owner.
func Attribute(owner model.Owner, entry model.Entry) (model.Regime, error) {
	if entry.Regime.Valid() {
		return entry.Regime, nil
	}
	return Resolve(owner, entry)
}
