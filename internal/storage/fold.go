package storage

import (
	"database/sql/driver"
	"strings"

	"modernc.org/sqlite"
)

// foldLowerFunc lowercases with Unicode rules. SQLite's built-in LOWER
// only folds ASCII.
const foldLowerFunc = "fold_lower"

func init() {
	sqlite.MustRegisterDeterministicScalarFunction(foldLowerFunc, 1, foldLower)
}

func foldLower(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	switch v := args[0].(type) {
	case string:
		return strings.ToLower(v), nil
	case []byte:
		return strings.ToLower(string(v)), nil
	default:
		return v, nil
	}
}
