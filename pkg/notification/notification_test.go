package notification

import (
	"strings"
	"testing"
)

func TestAlertMessage(t *testing.T) {
	msg := AlertMessage("scan", "3f1c", 2)
	if !strings.Contains(msg, "scan") || !strings.Contains(msg, "3f1c") || !strings.Contains(msg, "2 erro(s)") {
		t.Errorf("message = %q", msg)
	}

	long := AlertMessage(strings.Repeat("x", 200), "id", 1)
	if len(long) != maxSMS {
		t.Errorf("len = %d, want %d", len(long), maxSMS)
	}
}
