// Package email defines the outbound mail interface used for run reports
// and scheduler alerts.
package email

type Email interface {
	Send(subject, text, html string, recipients []string) error
}
