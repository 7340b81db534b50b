package storage

import (
	"database/sql/driver"

	"modernc.org/sqlite"

	"shoebox/internal/core"
)

// contains_fold(haystack, needle) gives SQL filters the same Unicode case
// folding as core.SearchFilters.Matches. LIKE folds ASCII only.
func init() {
	sqlite.MustRegisterDeterministicScalarFunction("contains_fold", 2, containsFold)
}

func containsFold(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	s, ok := textArg(args[0])
	if !ok {
		return int64(0), nil
	}
	sub, ok := textArg(args[1])
	if !ok {
		return int64(0), nil
	}
	if core.ContainsFold(s, sub) {
		return int64(1), nil
	}
	return int64(0), nil
}

func textArg(v driver.Value) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case []byte:
		return string(t), true
	default:
		return "", false
	}
}
