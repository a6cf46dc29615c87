// Package testing prepares the process environment for package tests. Import
// it for side effects from any _test.go file that builds the app stack.
package testing

import (
	"io"
	"log/slog"
	"os"
)

// defaults are only applied when the variable is unset, so a developer can
// still point a test run at another zone.
var defaults = map[string]string{
	"TANKTOOLS_TEST_MODE": "1",
	"ACCESS_TIMEZONE":     "UTC",
}

func init() {
	for key, value := range defaults {
		if _, ok := os.LookupEnv(key); !ok {
			_ = os.Setenv(key, value)
		}
	}
	if os.Getenv("TANKTOOLS_TEST_LOGS") == "" {
		slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
	}
}
