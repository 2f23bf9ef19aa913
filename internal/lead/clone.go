package lead

import (
	"maps"
	"slices"
	"time"
)

// Clone returns a deep copy of l. Stores hand out clones so callers cannot
// mutate persisted state through shared pointers.
func (l Lead) Clone() Lead {
	out := l
	out.VerificationDate = clonePtr(l.VerificationDate)
	out.AdditionalAddresses = slices.Clone(l.AdditionalAddresses)
	out.Extra = maps.Clone(l.Extra)
	out.AdditionalDetails = l.AdditionalDetails.Clone()
	return out
}

// Clone returns a deep copy of d.
func (d AdditionalDetails) Clone() AdditionalDetails {
	out := d
	out.PropertyAge = clonePtr(d.PropertyAge)
	out.MonthlyIncome = clonePtr(d.MonthlyIncome)
	out.AnnualIncome = clonePtr(d.AnnualIncome)
	out.OtherIncome = clonePtr(d.OtherIncome)
	out.LoanAmount = clonePtr(d.LoanAmount)
	if d.CoApplicant != nil {
		co := *d.CoApplicant
		co.Age = clonePtr(d.CoApplicant.Age)
		co.Income = clonePtr(d.CoApplicant.Income)
		out.CoApplicant = &co
	}
	return out
}

func clonePtr[T int | float64 | time.Time](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
