package loader

import (
	"errors"
	"fmt"

	"github.com/youssefzad/FinnishStartupDashboard-sub002/pkg/contracts/domain"
)

// ErrorKind classifies why a tier produced no dataset
type ErrorKind string

const (
	KindEmpty         ErrorKind = "empty"
	KindNotPublic     ErrorKind = "not-public"
	KindNetwork       ErrorKind = "network"
	KindInvalid       ErrorKind = "invalid"
	KindNotConfigured ErrorKind = "not-configured"
)

// Kind sentinels, matched through errors.Is against any *SourceError
var (
	ErrEmpty         = errors.New("source returned no usable rows")
	ErrNotPublic     = errors.New("source is not publicly readable")
	ErrNetwork       = errors.New("source could not be reached")
	ErrInvalid       = errors.New("source content is not tabular")
	ErrNotConfigured = errors.New("source is not configured")
)

// ErrExhausted is returned when a required dataset fails every tier
var ErrExhausted = errors.New("all sources exhausted")

// NotPublicRemediation is attached to not-public failures
const NotPublicRemediation = "share the spreadsheet as 'Anyone with the link can view' " +
	"or publish it to the web, then reload"

func (k ErrorKind) sentinel() error {
	switch k {
	case KindEmpty:
		return ErrEmpty
	case KindNotPublic:
		return ErrNotPublic
	case KindNetwork:
		return ErrNetwork
	case KindInvalid:
		return ErrInvalid
	case KindNotConfigured:
		return ErrNotConfigured
	default:
		return nil
	}
}

// SourceError reports a rejected tier for one dataset
type SourceError struct {
	Dataset     domain.DatasetKey
	Tier        domain.SourceTier
	Kind        ErrorKind
	Remediation string
	Err         error
}

func (e *SourceError) Error() string {
	msg := fmt.Sprintf("%s dataset from %s tier: %s", e.Dataset, e.Tier, e.Kind)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Remediation != "" {
		msg += " (" + e.Remediation + ")"
	}
	return msg
}

func (e *SourceError) Unwrap() error { return e.Err }

// Is matches the sentinel of the error's kind
func (e *SourceError) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && target == s
}

func sourceError(key domain.DatasetKey, tier domain.SourceTier, kind ErrorKind, err error) *SourceError {
	se := &SourceError{Dataset: key, Tier: tier, Kind: kind, Err: err}
	if kind == KindNotPublic {
		se.Remediation = NotPublicRemediation
	}
	return se
}

// withDataset stamps key and tier onto a fetch error, classifying anything
// unrecognized as a network failure
func withDataset(err error, key domain.DatasetKey, tier domain.SourceTier) *SourceError {
	var se *SourceError
	if errors.As(err, &se) {
		out := *se
		out.Dataset = key
		out.Tier = tier
		return &out
	}
	return sourceError(key, tier, KindNetwork, err)
}

// KindOf returns the kind of a *SourceError in err's chain, or ""
func KindOf(err error) ErrorKind {
	var se *SourceError
	if errors.As(err, &se) {
		return se.Kind
	}
	return ""
}
