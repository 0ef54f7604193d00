package rbac

import (
	"fmt"
	"strings"

	"github.com/nikhilbhutani/washgeo/internal/region"
)

// Rule names carried by ValidationError.
const (
	RuleGeneralCities    = "general-cities"
	RuleSubGeneralTaluka = "sub-general-talukas"
	RuleHRFieldTaluka    = "hr-field-talukas"
)

// CityValidation is the result of checking a general -> sub-general
// assignment.
type CityValidation struct {
	Valid         bool     `json:"valid"`
	InvalidCities []string `json:"invalid_cities"`
	Permitted     []string `json:"permitted"`
}

// TalukaValidation is the result of checking a batch of talukas against a
// manager's scope.
type TalukaValidation struct {
	Valid          bool     `json:"valid"`
	InvalidTalukas []string `json:"invalid_talukas"`
	Permitted      []string `json:"permitted"`
	Errors         []string `json:"errors,omitempty"`
}

// CandidateValidation is the result of checking a single taluka.
type CandidateValidation struct {
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

// Validator never fails fast: every invalid entry of a batch is reported so
// the caller can show one aggregated message.
type Validator struct {
	regions *region.Table
}

func NewValidator(regions *region.Table) *Validator {
	return &Validator{regions: regions}
}

// ValidateGeneralAssignment checks cities against the reference table.
func (v *Validator) ValidateGeneralAssignment(citiesToAssign []string) CityValidation {
	res := CityValidation{InvalidCities: []string{}, Permitted: v.regions.Cities()}
	for _, c := range citiesToAssign {
		if !v.regions.HasCity(c) {
			res.InvalidCities = append(res.InvalidCities, c)
		}
	}
	res.Valid = len(res.InvalidCities) == 0
	return res
}

// ValidateSubGeneralToHRAssignment accepts a taluka when it lies in at least
// one of the sub-general's cities.
func (v *Validator) ValidateSubGeneralToHRAssignment(subGeneralCities, talukasToAssign []string) TalukaValidation {
	res := TalukaValidation{InvalidTalukas: []string{}}
	for _, c := range subGeneralCities {
		res.Permitted = append(res.Permitted, v.regions.TalukasOf(c)...)
	}
	res.Permitted = dedupe(res.Permitted)

	for _, tk := range talukasToAssign {
		ok := false
		for _, c := range subGeneralCities {
			if v.regions.CityContainsTaluka(c, tk) {
				ok = true
				break
			}
		}
		if !ok {
			res.InvalidTalukas = append(res.InvalidTalukas, tk)
		}
	}
	res.Valid = len(res.InvalidTalukas) == 0
	return res
}

// ValidateHRToFieldAssignment checks one taluka against an hr-general's own
// talukas. The error lists everything the hr-general may hand out.
func (v *Validator) ValidateHRToFieldAssignment(hrTalukas []string, candidateTaluka string) CandidateValidation {
	for _, tk := range hrTalukas {
		if tk == candidateTaluka {
			return CandidateValidation{Valid: true}
		}
	}
	return CandidateValidation{
		Error: fmt.Sprintf("taluka %q is outside your assigned talukas; you can assign: %s",
			candidateTaluka, permittedList(hrTalukas)),
	}
}

// ValidateHRToFieldAssignments runs ValidateHRToFieldAssignment over a batch.
func (v *Validator) ValidateHRToFieldAssignments(hrTalukas, talukasToAssign []string) TalukaValidation {
	res := TalukaValidation{InvalidTalukas: []string{}, Permitted: dedupe(hrTalukas)}
	for _, tk := range talukasToAssign {
		c := v.ValidateHRToFieldAssignment(hrTalukas, tk)
		if !c.Valid {
			res.InvalidTalukas = append(res.InvalidTalukas, tk)
			res.Errors = append(res.Errors, c.Error)
		}
	}
	res.Valid = len(res.InvalidTalukas) == 0
	return res
}

// Err converts a failed result into a *ValidationError, or nil when valid.
func (r CityValidation) Err() error {
	if r.Valid {
		return nil
	}
	return &ValidationError{
		Rule:      RuleGeneralCities,
		Invalid:   r.InvalidCities,
		Permitted: r.Permitted,
		Messages: []string{fmt.Sprintf("unknown cities: %s; valid cities: %s",
			strings.Join(r.InvalidCities, ", "), permittedList(r.Permitted))},
	}
}

func (r TalukaValidation) Err(rule string) error {
	if r.Valid {
		return nil
	}
	msgs := r.Errors
	if len(msgs) == 0 {
		msgs = []string{fmt.Sprintf("talukas outside your cities: %s; you can assign: %s",
			strings.Join(r.InvalidTalukas, ", "), permittedList(r.Permitted))}
	}
	return &ValidationError{
		Rule:      rule,
		Invalid:   r.InvalidTalukas,
		Permitted: r.Permitted,
		Messages:  msgs,
	}
}

func permittedList(in []string) string {
	if len(in) == 0 {
		return "(none)"
	}
	return strings.Join(in, ", ")
}
