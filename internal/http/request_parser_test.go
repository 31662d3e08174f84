package http

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"

	"costtracker/internal/core"
)

func TestRequestBodyParser(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
		key         string
		want        string
		wantJSON    bool
	}{
		{"json string", "application/json", `{"name":" Rent "}`, "name", "Rent", true},
		{"json number", "application/json", `{"cost":12.5}`, "cost", "12.5", true},
		{"json integer", "application/json", `{"cost":1000000}`, "cost", "1000000", true},
		{"json missing key", "application/json", `{"name":"Rent"}`, "cost", "", true},
		{"form value", "application/x-www-form-urlencoded", "name=Rent&cost=3", "cost", "3", false},
		{"form control chars", "application/x-www-form-urlencoded", "name=Re%00nt", "name", "Rent", false},
		{"empty body", "", "", "name", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", tt.contentType)
			p := NewRequestBodyParser(req)
			if err := p.Parse(); err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if got := p.Get(tt.key); got != tt.want {
				t.Errorf("Get(%q) = %q, want %q", tt.key, got, tt.want)
			}
			if p.IsJSON() != tt.wantJSON {
				t.Errorf("IsJSON = %v, want %v", p.IsJSON(), tt.wantJSON)
			}
		})
	}
}

func TestRequestBodyParserInvalidJSON(t *testing.T) {
	req := httptest.NewRequest("POST", "/", strings.NewReader(`{"name":`))
	p := NewRequestBodyParser(req)
	if err := p.Parse(); err == nil {
		t.Fatal("expected error for truncated JSON")
	}
	// Parse is memoized.
	if err := p.Parse(); err == nil {
		t.Fatal("expected the same error on second Parse")
	}
}

func TestParseRecord(t *testing.T) {
	req := httptest.NewRequest("POST", "/", strings.NewReader(`{"description":"Tax","amount":"7,25"}`))
	in, err := parseRecord(req, "description", "amount", core.ErrEmptyDescription)
	if err != nil {
		t.Fatalf("parseRecord: %v", err)
	}
	if in.Label != "Tax" || in.Amount != 7.25 {
		t.Errorf("got %+v", in)
	}

	req = httptest.NewRequest("POST", "/", strings.NewReader(`{"description":"","amount":1}`))
	_, err = parseRecord(req, "description", "amount", core.ErrEmptyDescription)
	if !errors.Is(err, core.ErrEmptyDescription) || core.KindOf(err) != core.KindValidation {
		t.Errorf("expected validation error for empty description, got %v", err)
	}
}

func TestParseCredentialsKeepsPassword(t *testing.T) {
	req := httptest.NewRequest("POST", "/", strings.NewReader(`{"email":" ann@example.com ","password":" pass word "}`))
	creds, err := parseCredentials(req)
	if err != nil {
		t.Fatalf("parseCredentials: %v", err)
	}
	if creds.Email != "ann@example.com" {
		t.Errorf("email = %q", creds.Email)
	}
	if creds.Password != " pass word " {
		t.Errorf("password must be taken verbatim, got %q", creds.Password)
	}
}
