package query

import (
	"context"
	"errors"
	"time"
)

// ErrNoQuery is returned when execution is requested without a generated
// statement.
var ErrNoQuery = errors.New("query: no query was generated")

type Result struct {
	Columns  []string
	Rows     [][]any
	Duration time.Duration
}

// Executor runs one read-only statement. Implementations never retry; retry
// policy belongs to the caller.
type Executor interface {
	Execute(ctx context.Context, sqlText string) (Result, error)
}
