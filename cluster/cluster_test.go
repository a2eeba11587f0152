package cluster

import "testing"

func TestStatusString(t *testing.T) {
	cases := map[Status]string{
		StatusOK:            "OK",
		StatusShouldWait:    "SHOULD_WAIT",
		StatusBlocked:       "BLOCKED",
		StatusNoRuleExists:  "NO_RULE_EXISTS",
		StatusBadRequest:    "BAD_REQUEST",
		StatusFail:          "FAIL",
		StatusTooManyRequest: "TOO_MANY_REQUEST",
	}
	for status, want := range cases {
		if got := status.String(); got != want {
			t.Errorf("Status(%d).String() = %q, want %q", status, got, want)
		}
	}
}

func TestMockTokenClientSatisfiesInterface(t *testing.T) {
	var _ TokenClient = (*MockTokenClient)(nil)
}
