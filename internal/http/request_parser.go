package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"contas/internal/core"
)

// maxBodyBytes bounds request bodies; transactions are tiny.
const maxBodyBytes = 64 << 10

// errMalformedRequest marks input that could not be decoded at all.
var errMalformedRequest = errors.New("malformed request")

// RequestBodyParser reads a JSON object or a form-encoded body once and
// exposes its fields by name.
type RequestBodyParser struct {
	body     []byte
	jsonData map[string]any
	formData url.Values
	parsed   bool
	err      error
}

// NewRequestBodyParser reads the body of r. Bodies over maxBodyBytes are
// rejected rather than truncated.
func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{}
	if r.Body == nil {
		return p
	}
	p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if p.err == nil && len(p.body) > maxBodyBytes {
		p.body, p.err = nil, fmt.Errorf("%w: body exceeds %d bytes", errMalformedRequest, maxBodyBytes)
	}
	return p
}

// Parse decodes the body. Bodies starting with '{' are JSON; anything else is
// parsed as a form.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true
	if p.err != nil {
		return p.err
	}

	body := bytes.TrimSpace(p.body)
	if len(body) == 0 {
		p.formData = url.Values{}
		return nil
	}

	if body[0] == '{' {
		dec := json.NewDecoder(bytes.NewReader(body))
		dec.UseNumber()
		if err := dec.Decode(&p.jsonData); err != nil {
			p.err = fmt.Errorf("%w: %v", errMalformedRequest, err)
		}
		return p.err
	}

	p.formData, p.err = url.ParseQuery(string(body))
	if p.err != nil {
		p.err = fmt.Errorf("%w: %v", errMalformedRequest, p.err)
	}
	return p.err
}

// Get returns a scalar field as a trimmed string.
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

// GetList returns a list field. JSON arrays, repeated form fields and
// comma separated values are all accepted.
func (p *RequestBodyParser) GetList(key string) []string {
	var raw []string
	if p.jsonData != nil {
		switch v := p.jsonData[key].(type) {
		case []any:
			for _, item := range v {
				raw = append(raw, stringValue(item))
			}
		case string:
			raw = []string{v}
		}
	} else if p.formData != nil {
		raw = p.formData[key]
	}
	return splitList(raw)
}

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// sanitizeInput removes control characters other than tab and newlines.
func sanitizeInput(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s)
}

func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(sanitizeInput(part)); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// parseID reads the {id} path value.
func parseID(r *http.Request) (int64, error) {
	raw := r.PathValue("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid transaction id %q", errMalformedRequest, raw)
	}
	return id, nil
}

// ParseFilters builds the listing filters from the query string. An absent
// date selects defaultMonth; a malformed one is an error.
func ParseFilters(query url.Values, defaultMonth core.Month) (core.Filters, error) {
	f := core.Filters{
		Month: defaultMonth,
		Term:  strings.TrimSpace(sanitizeInput(query.Get("term"))),
	}

	if date := strings.TrimSpace(query.Get("date")); date != "" {
		month, err := core.ParseMonth(date)
		if err != nil {
			return core.Filters{}, err
		}
		f.Month = month
	}

	if tags := splitList(query["tags"]); len(tags) > 0 {
		f.Tags = core.NewTagSet(tags...)
	}

	var err error
	if f.Modes, err = parseEnumList(query["transactionModeTags"], core.ParseMode); err != nil {
		return core.Filters{}, err
	}
	if f.Categories, err = parseEnumList(query["transactionCategoryTags"], core.ParseCategory); err != nil {
		return core.Filters{}, err
	}
	if f.Statuses, err = parseEnumList(query["transactionStatusTags"], core.ParseStatus); err != nil {
		return core.Filters{}, err
	}
	return f, nil
}

func parseEnumList[T any](values []string, parse func(string) (T, error)) ([]T, error) {
	var out []T
	for _, v := range splitList(values) {
		parsed, err := parse(v)
		if err != nil {
			return nil, err
		}
		out = append(out, parsed)
	}
	return out, nil
}

// parseDraft reads the full transaction form.
func parseDraft(p *RequestBodyParser) (core.Draft, error) {
	details, err := parseDetails(p)
	if err != nil {
		return core.Draft{}, err
	}
	d := core.Draft{
		Name:     details.Name,
		Value:    details.Value,
		Category: details.Category,
		Tags:     details.Tags,
	}

	if d.Mode, err = core.ParseMode(p.Get("mode")); err != nil {
		return core.Draft{}, err
	}
	if raw := p.Get("purchasedAt"); raw != "" {
		if d.PurchasedAt, err = core.ParseDay(raw); err != nil {
			return core.Draft{}, fmt.Errorf("%w: purchasedAt: %v", errMalformedRequest, err)
		}
	}
	if raw := p.Get("firstInstallmentAt"); raw != "" {
		if d.FirstInstallmentAt, err = core.ParseMonth(raw); err != nil {
			return core.Draft{}, fmt.Errorf("%w: firstInstallmentAt: %v", errMalformedRequest, err)
		}
	}
	if raw := p.Get("numberOfInstallments"); raw != "" {
		if d.NumberOfInstallments, err = strconv.Atoi(raw); err != nil {
			return core.Draft{}, fmt.Errorf("%w: %q", core.ErrInvalidInstallments, raw)
		}
	}
	return d, nil
}

// parseDetails reads the fields that stay editable after confirmations.
func parseDetails(p *RequestBodyParser) (core.Details, error) {
	value, err := core.ParseAmount(p.Get("value"))
	if err != nil {
		return core.Details{}, err
	}
	category, err := core.ParseCategory(p.Get("category"))
	if err != nil {
		return core.Details{}, err
	}
	return core.Details{
		Name:     p.Get("name"),
		Value:    value,
		Category: category,
		Tags:     core.NewTagSet(p.GetList("tags")...),
	}, nil
}

// parsePaymentDate reads the toggle payment date. It is required.
func parsePaymentDate(p *RequestBodyParser) (core.Month, error) {
	return core.ParseMonth(p.Get("paymentDate"))
}
