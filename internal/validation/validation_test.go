package validation

import (
	"testing"
	"time"
)

func TestIsValidEmail(t *testing.T) {
	valid := []string{"jane@example.com", "a.b+c@mail.co.uk"}
	invalid := []string{"", "plainaddress", "no@tld", "two@@example.com", "spaces in@example.com"}

	for _, e := range valid {
		if !IsValidEmail(e) {
			t.Errorf("expected %q to be valid", e)
		}
	}
	for _, e := range invalid {
		if IsValidEmail(e) {
			t.Errorf("expected %q to be invalid", e)
		}
	}
}

func TestIsValidPhone(t *testing.T) {
	if !IsValidPhone("+1 (555) 123-4567") {
		t.Error("expected formatted phone to be valid")
	}
	if IsValidPhone("abc") {
		t.Error("expected letters to be invalid")
	}
}

func TestSanitizeString(t *testing.T) {
	if got := SanitizeString("  hello\x00world  ", 100); got != "helloworld" {
		t.Errorf("SanitizeString = %q", got)
	}
	if got := SanitizeString("abcdef", 3); got != "abc" {
		t.Errorf("SanitizeString truncation = %q", got)
	}
}

func TestValidateCollectsErrors(t *testing.T) {
	errs := Validate(
		Required("clientName", ""),
		ValidEmail("clientEmailAddress", "not-an-email"),
		NonNegativeAmount("totalAmount", -5),
	)
	if len(errs) != 3 {
		t.Fatalf("expected 3 errors, got %d: %v", len(errs), errs)
	}
	if errs.Error() == "" {
		t.Error("expected non-empty error string")
	}
}

func TestValidateAllPass(t *testing.T) {
	errs := Validate(
		Required("clientName", "Jane Doe"),
		ValidEmail("clientEmailAddress", "jane@example.com"),
		NonNegativeAmount("totalAmount", 250.00),
		FutureDate("dueDate", time.Now().Add(48*time.Hour)),
	)
	if len(errs) != 0 {
		t.Fatalf("expected no errors, got %v", errs)
	}
}

func TestFutureDate(t *testing.T) {
	if err := FutureDate("dueDate", time.Now().Add(-time.Hour))(); err == nil {
		t.Error("expected past date to fail")
	}
	if err := FutureDate("dueDate", time.Time{})(); err == nil {
		t.Error("expected zero date to fail")
	}
}
