package http

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"costtracker/internal/core"
)

const maxBodyBytes = 64 << 10

// RequestBodyParser accepts JSON or form-encoded bodies, so the same
// handlers serve fetch() callers and htmx forms.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]any
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser reads the body once and keeps it for parsing.
func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}
	p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	return p
}

func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	if len(p.body) == 0 {
		p.formData = url.Values{}
		return nil
	}

	if p.body[0] == '{' {
		p.jsonData = make(map[string]any)
		if err := json.Unmarshal(p.body, &p.jsonData); err != nil {
			p.err = err
			return err
		}
		return nil
	}

	p.formData, p.err = url.ParseQuery(string(p.body))
	return p.err
}

// Get returns a trimmed, sanitized value. JSON numbers come back in
// decimal notation.
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return strings.TrimSpace(sanitizeInput(stringValue(val)))
		}
		return ""
	}
	if p.formData != nil {
		return strings.TrimSpace(sanitizeInput(p.formData.Get(key)))
	}
	return ""
}

// Amount parses key as a money amount.
func (p *RequestBodyParser) Amount(key string) (float64, error) {
	return core.ParseAmount(p.Get(key))
}

func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// recordInput is the parsed body of an item or cost form.
type recordInput struct {
	Label  string
	Amount float64
}

// parseRecord reads labelKey and amountKey. An empty label or amount is a
// validation error.
func parseRecord(r *http.Request, labelKey, amountKey string, emptyLabel error) (recordInput, error) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		return recordInput{}, err
	}
	in := recordInput{Label: p.Get(labelKey)}
	if in.Label == "" {
		return recordInput{}, core.NewError(core.KindValidation, "parse "+labelKey, emptyLabel)
	}
	amount, err := p.Amount(amountKey)
	if err != nil {
		return recordInput{}, core.NewError(core.KindValidation, "parse "+amountKey, err)
	}
	in.Amount = amount
	return in, nil
}

type credentials struct {
	Email    string
	Password string
}

func parseCredentials(r *http.Request) (credentials, error) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		return credentials{}, err
	}
	// Passwords are taken verbatim.
	var password string
	if p.jsonData != nil {
		password, _ = p.jsonData["password"].(string)
	} else {
		password = p.formData.Get("password")
	}
	return credentials{Email: p.Get("email"), Password: password}, nil
}
