package notification

import "fmt"

type Notification interface {
	Send(to, msg string) error
}

// maxSMS keeps alerts inside a single segment.
const maxSMS = 160

// AlertMessage is the SMS body sent when a batch run reports IT errors.
func AlertMessage(runKind, runID string, itErrors int) string {
	msg := fmt.Sprintf("catalog-reconciler: execucao %s (%s) terminou com %d erro(s) de TI", runKind, runID, itErrors)
	if len(msg) > maxSMS {
		msg = msg[:maxSMS]
	}
	return msg
}
