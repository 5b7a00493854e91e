package app

import (
	"os"
	"strconv"
	"sync"
	"sync/atomic"
)

// testModeEnv mirrors testing.ModeEnv; the binaries return before opening a
// store or queue when it is set.
const testModeEnv = "LEDGER_TEST_MODE"

var (
	testModeFlag atomic.Bool
	testModeOnce sync.Once
)

func detectTestMode() {
	on, err := strconv.ParseBool(os.Getenv(testModeEnv))
	testModeFlag.Store(err == nil && on)
}

// InTestMode reports whether the ledger binaries should skip opening the
// store, the queue and the HTTP listener.
func InTestMode() bool {
	testModeOnce.Do(detectTestMode)
	return testModeFlag.Load()
}

// RefreshTestMode updates the cached flag after environment changes.
func RefreshTestMode() {
	detectTestMode()
}
