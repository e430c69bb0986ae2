package identity

import (
	"net/mail"
	"strings"
)

// disposableDomains is a static list of throwaway email providers. A hit is
// a risk signal, not a hard block.
var disposableDomains = map[string]bool{
	"mailinator.com":    true,
	"guerrillamail.com": true,
	"10minutemail.com":  true,
	"tempmail.com":      true,
	"temp-mail.org":     true,
	"throwaway.email":   true,
	"yopmail.com":       true,
	"sharklasers.com":   true,
	"getnada.com":       true,
	"trashmail.com":     true,
	"maildrop.cc":       true,
	"dispostable.com":   true,
	"fakeinbox.com":     true,
	"mintemail.com":     true,
	"spamgourmet.com":   true,
}

// IsValidEmail reports whether email parses as an RFC 5322 address with a
// domain part containing a dot.
func IsValidEmail(email string) bool {
	email = strings.TrimSpace(email)
	if email == "" {
		return false
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return false
	}
	domain := EmailDomain(email)
	return strings.Contains(domain, ".")
}

// EmailDomain returns the lowercased domain part of an email address, or ""
// if there is none.
func EmailDomain(email string) string {
	at := strings.LastIndex(email, "@")
	if at < 0 || at == len(email)-1 {
		return ""
	}
	return strings.ToLower(email[at+1:])
}

// IsDisposableEmail reports whether the address uses a known throwaway domain.
func IsDisposableEmail(email string) bool {
	return disposableDomains[EmailDomain(email)]
}
