package index

import (
	"errors"
	"fmt"
	"strings"

	"github.com/poiesic/qaindex/core"
)

var (
	// ErrModelRequired is returned when no embedding model is provided.
	ErrModelRequired = errors.New("embedding model required")

	// ErrStoreRequired is returned when no index store is provided.
	ErrStoreRequired = errors.New("index store required")

	// ErrInvalidMaxAttempts is returned when maxAttempts is <= 0
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")
)

// RecordFailure is a record the model could not encode.
type RecordFailure struct {
	PairID string
	Err    error
}

// EncodingFailure reports every record that could not be encoded during a
// build. It matches core.ErrEncoding and each underlying cause under
// errors.Is.
type EncodingFailure struct {
	Total    int
	Failures []RecordFailure
}

// PairIDs returns the failed pair ids in input order.
func (e *EncodingFailure) PairIDs() []string {
	ids := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		ids[i] = f.PairID
	}
	return ids
}

func (e *EncodingFailure) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %d of %d records", core.ErrEncoding, len(e.Failures), e.Total)
	if len(e.Failures) > 0 {
		first := e.Failures[0]
		fmt.Fprintf(&b, ", first %s: %v", first.PairID, first.Err)
	}
	return b.String()
}

func (e *EncodingFailure) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures)+1)
	errs = append(errs, core.ErrEncoding)
	for _, f := range e.Failures {
		if f.Err != nil {
			errs = append(errs, f.Err)
		}
	}
	return errs
}
