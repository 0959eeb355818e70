package email

import "testing"

func TestIsValid(t *testing.T) {
	valid := []string{"a@apple.com", "first.last+tag@sub.example.co.uk"}
	for _, addr := range valid {
		if !IsValid(addr) {
			t.Errorf("expected %q to be valid", addr)
		}
	}
	invalid := []string{"", "plainaddress", "@no-local.com", "user@"}
	for _, addr := range invalid {
		if IsValid(addr) {
			t.Errorf("expected %q to be invalid", addr)
		}
	}
}

func TestDomain(t *testing.T) {
	cases := map[string]string{
		"a@apple.com":     "apple.com",
		"b@APPLE.COM":     "apple.com",
		"weird@a@b.com":   "b.com",
		"no-at-sign":      "",
		"trailing-at@":    "",
	}
	for addr, want := range cases {
		if got := Domain(addr); got != want {
			t.Errorf("Domain(%q) = %q, want %q", addr, got, want)
		}
	}
}

func TestNormalize(t *testing.T) {
	if got := Normalize("  User.Name@Apple.COM "); got != "user.name@apple.com" {
		t.Errorf("unexpected normalization: %q", got)
	}
	// Case variants of one mailbox collapse to one owner key.
	if Normalize("Grace@Apple.com") != Normalize("grace@apple.com") {
		t.Errorf("expected case variants to normalize identically")
	}
}
