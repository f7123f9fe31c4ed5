package twilio

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/twilio/twilio-go"
	api "github.com/twilio/twilio-go/rest/api/v2010"
)

const defaultCountryCode = "55"

var nonDigits = regexp.MustCompile(`\D`)

type Sms struct {
	kind        string
	from        string
	countryCode string
	client      *twilio.RestClient
}

func InitClient(accountSid, authToken string) *twilio.RestClient {
	return twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSid,
		Password: authToken,
	})
}

// NewSMS sends from the given number. Recipients without a leading "+"
// get countryCode prepended; an empty countryCode means Brazil.
func NewSMS(from, countryCode string, client *twilio.RestClient) *Sms {
	if countryCode == "" {
		countryCode = defaultCountryCode
	}
	return &Sms{
		kind:        "sms",
		from:        from,
		countryCode: nonDigits.ReplaceAllString(countryCode, ""),
		client:      client,
	}
}

func (s *Sms) Send(to, msg string) error {
	params := &api.CreateMessageParams{}
	params.SetBody(msg)
	params.SetFrom(s.from)
	params.SetTo(formatNumber(to, s.countryCode))

	if _, err := s.client.Api.CreateMessage(params); err != nil {
		return fmt.Errorf("twilio %s: %w", s.kind, err)
	}
	return nil
}

func formatNumber(phone, countryCode string) string {
	phone = strings.TrimSpace(phone)
	digits := nonDigits.ReplaceAllString(phone, "")
	if strings.HasPrefix(phone, "+") {
		return "+" + digits
	}
	return "+" + countryCode + digits
}
