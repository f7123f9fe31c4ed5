package mailjet

import (
	"fmt"

	mj "github.com/mailjet/mailjet-apiv3-go"
)

type Mailjet struct {
	Client *mj.Client
	Email  string
	Name   string
}

func New(key, secret, fromEmail, fromName string) *Mailjet {
	client := mj.NewMailjetClient(key, secret)
	return &Mailjet{
		Client: client,
		Email:  fromEmail,
		Name:   fromName,
	}
}

func (m *Mailjet) Send(subject, text, html string, sendTo []string) error {
	if len(sendTo) == 0 {
		return fmt.Errorf("mailjet: no recipients")
	}
	recipients := make([]mj.Recipient, 0, len(sendTo))
	for i := range sendTo {
		recipients = append(recipients, mj.Recipient{Email: sendTo[i]})
	}
	email := &mj.InfoSendMail{
		FromEmail:  m.Email,
		FromName:   m.Name,
		Subject:    subject,
		TextPart:   text,
		HTMLPart:   html,
		Recipients: recipients,
	}
	if _, err := m.Client.SendMail(email); err != nil {
		return fmt.Errorf("mailjet send: %w", err)
	}
	return nil
}
