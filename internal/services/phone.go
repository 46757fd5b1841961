package services

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
	"github.com/pkg/errors"
)

// PhoneNormalizer canonicalizes phone numbers to E.164 digits without
// the leading '+', which is the form the WhatsApp providers use as the
// contact address.
type PhoneNormalizer struct {
	defaultRegion string
}

func NewPhoneNormalizer(defaultRegion string) *PhoneNormalizer {
	if defaultRegion == "" {
		defaultRegion = "US"
	}
	return &PhoneNormalizer{defaultRegion: defaultRegion}
}

func (n *PhoneNormalizer) Normalize(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", errors.New("empty phone number")
	}

	num, err := phonenumbers.Parse(s, n.defaultRegion)
	if err != nil {
		return "", errors.Wrap(err, "parse phone number")
	}
	if !phonenumbers.IsValidNumber(num) {
		return "", errors.New("invalid phone number")
	}

	return strings.TrimPrefix(phonenumbers.Format(num, phonenumbers.E164), "+"), nil
}
