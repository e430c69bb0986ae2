package identity

import "testing"

func TestIsValidE164(t *testing.T) {
	tests := []struct {
		phone string
		want  bool
	}{
		{"+14155551234", true},
		{"+442071838750", true},
		{"+919876543210", true},
		{"+1", false},          // too short
		{"14155551234", false}, // missing +
		{"+04155551234", false},
		{"+1415555123456789", false}, // > 15 digits
		{"", false},
		{"not-a-phone", false},
	}

	for _, tt := range tests {
		if got := IsValidE164(tt.phone); got != tt.want {
			t.Errorf("IsValidE164(%q) = %v, want %v", tt.phone, got, tt.want)
		}
	}
}

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"+1 (415) 555-1234", "+14155551234"},
		{"+44 20 7183 8750", "+442071838750"},
		{"+14155551234", "+14155551234"},
	}
	for _, tt := range tests {
		if got := NormalizePhone(tt.in); got != tt.want {
			t.Errorf("NormalizePhone(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPrefixClassifier(t *testing.T) {
	c := NewPrefixClassifier()

	if got := c.Classify("+15005551234"); got != PhoneTypeVoIP {
		t.Errorf("VoIP prefix classified as %s", got)
	}
	if got := c.Classify("+14155551234"); got != PhoneTypeMobile {
		t.Errorf("regular number classified as %s", got)
	}
	if got := c.Classify("garbage"); got != PhoneTypeUnknown {
		t.Errorf("invalid number classified as %s", got)
	}
	// Formatting should not defeat classification
	if got := c.Classify("+1 (500) 555-1234"); got != PhoneTypeVoIP {
		t.Errorf("formatted VoIP number classified as %s", got)
	}
}

func TestCustomPrefixTable(t *testing.T) {
	c := NewPrefixClassifierWith([]string{"+449"})
	if got := c.Classify("+4491234567"); got != PhoneTypeVoIP {
		t.Errorf("custom prefix classified as %s", got)
	}
	if got := c.Classify("+15005551234"); got != PhoneTypeMobile {
		t.Errorf("default prefixes should not apply, got %s", got)
	}
}

func TestIsValidEmail(t *testing.T) {
	tests := []struct {
		email string
		want  bool
	}{
		{"user@example.com", true},
		{"first.last+tag@sub.example.co", true},
		{"no-at-sign", false},
		{"user@", false},
		{"user@nodot", false},
		{"", false},
		{"Display Name <user@example.com>", false}, // full address form rejected
	}
	for _, tt := range tests {
		if got := IsValidEmail(tt.email); got != tt.want {
			t.Errorf("IsValidEmail(%q) = %v, want %v", tt.email, got, tt.want)
		}
	}
}

func TestIsDisposableEmail(t *testing.T) {
	if !IsDisposableEmail("x@mailinator.com") {
		t.Error("mailinator should be disposable")
	}
	if !IsDisposableEmail("x@MAILINATOR.com") {
		t.Error("domain match should be case-insensitive")
	}
	if IsDisposableEmail("x@example.com") {
		t.Error("example.com is not disposable")
	}
	if IsDisposableEmail("") {
		t.Error("empty email is not disposable")
	}
}

func TestEmailDomain(t *testing.T) {
	if got := EmailDomain("a@B.Com"); got != "b.com" {
		t.Errorf("EmailDomain = %q", got)
	}
	if got := EmailDomain("nodomain"); got != "" {
		t.Errorf("EmailDomain = %q, want empty", got)
	}
}
