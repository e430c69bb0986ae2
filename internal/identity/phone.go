// Package identity validates and classifies customer identifiers
// (phone numbers and email addresses) used as risk signals.
package identity

import (
	"regexp"
	"strings"
)

// e164Regex matches E.164 formatted numbers: +, leading digit 1-9, up to 15 digits total.
var e164Regex = regexp.MustCompile(`^\+[1-9]\d{1,14}$`)

// IsValidE164 reports whether phone is a syntactically valid E.164 number.
func IsValidE164(phone string) bool {
	return e164Regex.MatchString(strings.TrimSpace(phone))
}

// NormalizePhone strips spaces, dashes and parentheses so formatting
// variations map to one store key. It does not validate.
func NormalizePhone(phone string) string {
	var sb strings.Builder
	for _, r := range phone {
		switch r {
		case ' ', '-', '(', ')', '.':
		default:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// PhoneType classifies a phone number's likely line type.
type PhoneType string

const (
	PhoneTypeMobile  PhoneType = "mobile"
	PhoneTypeVoIP    PhoneType = "voip"
	PhoneTypeUnknown PhoneType = "unknown"
)

// PhoneClassifier classifies phone numbers by line type. The static prefix
// implementation below is a coarse approximation; a carrier-lookup backed
// implementation can be substituted without touching the scoring core.
type PhoneClassifier interface {
	Classify(phone string) PhoneType
}

// voipPrefixes lists NANP area codes and number blocks commonly assigned to
// VoIP providers. Not authoritative.
var voipPrefixes = []string{
	"+1500", "+1521", "+1522", "+1533", "+1544", "+1566", "+1577", "+1588",
	"+1700", "+1710",
}

// PrefixClassifier classifies phones against a static prefix table.
type PrefixClassifier struct {
	prefixes []string
}

// NewPrefixClassifier creates a classifier with the default VoIP prefix table.
func NewPrefixClassifier() *PrefixClassifier {
	return &PrefixClassifier{prefixes: voipPrefixes}
}

// NewPrefixClassifierWith creates a classifier with a custom prefix table.
func NewPrefixClassifierWith(prefixes []string) *PrefixClassifier {
	return &PrefixClassifier{prefixes: prefixes}
}

// Classify returns voip for numbers matching a known VoIP prefix, mobile for
// other valid E.164 numbers, and unknown for anything else.
func (c *PrefixClassifier) Classify(phone string) PhoneType {
	phone = NormalizePhone(phone)
	if !IsValidE164(phone) {
		return PhoneTypeUnknown
	}
	for _, prefix := range c.prefixes {
		if strings.HasPrefix(phone, prefix) {
			return PhoneTypeVoIP
		}
	}
	return PhoneTypeMobile
}
