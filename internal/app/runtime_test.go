package app

import (
	"testing"

	ledgertesting "github.com/odyssey-erp/odyssey-ledger/testing"
)

func TestInTestModeFollowsEnvironment(t *testing.T) {
	if testModeEnv != ledgertesting.ModeEnv {
		t.Fatalf("test mode variable drifted: %s vs %s", testModeEnv, ledgertesting.ModeEnv)
	}
	RefreshTestMode()
	if !InTestMode() {
		t.Fatal("expected test mode to be detected")
	}

	t.Cleanup(RefreshTestMode)
	for _, v := range []string{"0", "false", "", "yes"} {
		t.Setenv(testModeEnv, v)
		RefreshTestMode()
		if InTestMode() {
			t.Fatalf("expected test mode to be disabled for %q", v)
		}
	}
	t.Setenv(testModeEnv, "1")
	RefreshTestMode()
	if !InTestMode() {
		t.Fatal("expected test mode for 1")
	}
}
