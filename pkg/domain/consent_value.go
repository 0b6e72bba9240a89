package domain

import dErrors "consentd/pkg/domain-errors"

// ConsentValue is the decision recorded for a single consent category.
// Invariant: known values are "y", "n" and "p"; other values are carried
// opaquely so categories added by configuration still round-trip.
//
// Usage: construct via ParseConsentValue at trust boundaries when a strict
// value is required; stored trees keep whatever the caller sent.
type ConsentValue string

// Supported consent values.
const (
	ConsentValueYes     ConsentValue = "y"
	ConsentValueNo      ConsentValue = "n"
	ConsentValuePending ConsentValue = "p"
)

// validConsentValues is the single source of truth for known consent values.
var validConsentValues = map[ConsentValue]bool{
	ConsentValueYes:     true,
	ConsentValueNo:      true,
	ConsentValuePending: true,
}

// ParseConsentValue constructs a ConsentValue from external input.
//
// Errors: returns CodeInvalidInput when the value is empty or unsupported.
func ParseConsentValue(s string) (ConsentValue, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "consent value cannot be empty")
	}
	v := ConsentValue(s)
	if !v.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid consent value")
	}
	return v, nil
}

// IsValid checks if the consent value is one of the supported enum values.
func (v ConsentValue) IsValid() bool {
	return validConsentValues[v]
}

func (v ConsentValue) String() string {
	return string(v)
}
