package validate

import (
	"strings"
	"testing"
)

func TestEmail(t *testing.T) {
	valid := []string{
		"alice@example.com",
		"first.last@sub.example.co.uk",
		"user+tag@example.org",
		"x_1%y@example.io",
	}
	for _, s := range valid {
		if !Email(s) {
			t.Errorf("Expected %q valid", s)
		}
	}

	invalid := []string{
		"",
		"plain",
		"@example.com",
		"user@",
		"user@host",
		"user@@example.com",
		"user name@example.com",
	}
	for _, s := range invalid {
		if Email(s) {
			t.Errorf("Expected %q invalid", s)
		}
	}
}

func TestGUID(t *testing.T) {
	if !GUID("123e4567-e89b-12d3-a456-426614174000") {
		t.Error("Expected canonical GUID valid")
	}
	if !GUID("ABCDEF01-2345-6789-ABCD-EF0123456789") {
		t.Error("Expected uppercase GUID valid")
	}

	invalid := []string{
		"",
		"123e4567e89b12d3a456426614174000",
		"123e4567-e89b-12d3-a456-42661417400",
		"g23e4567-e89b-12d3-a456-426614174000",
	}
	for _, s := range invalid {
		if GUID(s) {
			t.Errorf("Expected %q invalid", s)
		}
	}
}

func TestURL(t *testing.T) {
	if !URL("https://admin.example.com") {
		t.Error("Expected https URL valid")
	}
	if !URL("http://localhost:8080/path") {
		t.Error("Expected http URL valid")
	}
	if URL("ftp://example.com") {
		t.Error("Expected ftp rejected by default")
	}
	if !URL("ftp://example.com", "ftp") {
		t.Error("Expected ftp allowed when listed")
	}
	if URL("not a url") {
		t.Error("Expected malformed URL invalid")
	}
	if URL("/relative/path") {
		t.Error("Expected relative URL invalid")
	}
}

func TestDisplayName(t *testing.T) {
	if !DisplayName("Sales Team") {
		t.Error("Expected ordinary name valid")
	}
	if DisplayName("   ") {
		t.Error("Expected blank name invalid")
	}
	if DisplayName(strings.Repeat("x", 257)) {
		t.Error("Expected over-long name invalid")
	}
	if !DisplayName(strings.Repeat("x", 256)) {
		t.Error("Expected 256-char name valid")
	}
}
