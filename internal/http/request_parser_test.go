package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"contas/internal/core"
)

func TestParseFilters(t *testing.T) {
	july := core.NewMonth(2023, time.July)

	t.Run("defaults", func(t *testing.T) {
		f, err := ParseFilters(url.Values{}, july)
		if err != nil {
			t.Fatal(err)
		}
		if !f.Month.Equal(july) || f.Term != "" || f.Tags != nil || f.Modes != nil {
			t.Fatalf("unexpected filters %+v", f)
		}
	})

	t.Run("all filters", func(t *testing.T) {
		q, _ := url.ParseQuery("date=2024-02-29&term=%20luz%20&tags=casa,%20carro&tags=luz" +
			"&transactionModeTags=recurrent,IN_INSTALLMENTS&transactionCategoryTags=EXPENSE" +
			"&transactionStatusTags=CONFIRMED&transactionStatusTags=NOT_CONFIRMED")
		f, err := ParseFilters(q, july)
		if err != nil {
			t.Fatal(err)
		}
		if f.Month.String() != "2024-02" || f.Term != "luz" {
			t.Fatalf("month/term %+v", f)
		}
		if len(f.Tags) != 3 || !f.Tags.Has("carro") {
			t.Fatalf("tags %v", f.Tags.Sorted())
		}
		if len(f.Modes) != 2 || f.Modes[0] != core.Recurrent || len(f.Categories) != 1 || len(f.Statuses) != 2 {
			t.Fatalf("enum filters %+v", f)
		}
	})

	t.Run("malformed date is never replaced by today", func(t *testing.T) {
		_, err := ParseFilters(url.Values{"date": {"2023-13"}}, july)
		if !errors.Is(err, core.ErrInvalidPaymentDate) {
			t.Fatalf("expected invalid date, got %v", err)
		}
	})

	t.Run("unknown status", func(t *testing.T) {
		_, err := ParseFilters(url.Values{"transactionStatusTags": {"PAID"}}, july)
		if !errors.Is(err, core.ErrInvalidStatus) {
			t.Fatalf("expected invalid status, got %v", err)
		}
	})
}

func TestRequestBodyParser(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantJSON bool
		value    string
		tags     []string
	}{
		{"json with number", `{"value": 12.345678901234567, "tags": ["a", " b "]}`, true, "12.345678901234567", []string{"a", "b"}},
		{"json with comma string", `{"value": "12,30", "tags": "a,b"}`, true, "12,30", []string{"a", "b"}},
		{"form", "value=7&tags=a&tags=b,c", false, "7", []string{"a", "b", "c"}},
		{"control characters stripped", "value=1%002", false, "12", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewRequestBodyParser(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body)))
			if err := p.Parse(); err != nil {
				t.Fatal(err)
			}
			if p.IsJSON() != tt.wantJSON {
				t.Fatalf("IsJSON=%v", p.IsJSON())
			}
			if got := p.Get("value"); got != tt.value {
				t.Fatalf("value=%q, want %q", got, tt.value)
			}
			if got := p.GetList("tags"); strings.Join(got, "|") != strings.Join(tt.tags, "|") {
				t.Fatalf("tags=%v, want %v", got, tt.tags)
			}
		})
	}
}

func TestParseDraft_Dates(t *testing.T) {
	body := "mode=RECURRENT&name=Aluguel&value=1500&category=EXPENSE&purchasedAt=2023-01-05&firstInstallmentAt=2023-02-10"
	p := NewRequestBodyParser(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)))
	if err := p.Parse(); err != nil {
		t.Fatal(err)
	}
	d, err := parseDraft(p)
	if err != nil {
		t.Fatal(err)
	}
	if d.FirstInstallmentAt.String() != "2023-02" || d.PurchasedAt.Day() != 5 {
		t.Fatalf("unexpected draft %+v", d)
	}

	p = NewRequestBodyParser(httptest.NewRequest(http.MethodPost, "/",
		strings.NewReader(strings.Replace(body, "2023-01-05", "05/01/2023", 1))))
	_ = p.Parse()
	if _, err := parseDraft(p); !errors.Is(err, errMalformedRequest) {
		t.Fatalf("expected malformed request, got %v", err)
	}
}

func TestRequestBodyParser_BodyLimit(t *testing.T) {
	prefix := "name=Luz&value=10&category=EXPENSE&note="

	atLimit := prefix + strings.Repeat("a", maxBodyBytes-len(prefix))
	p := NewRequestBodyParser(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(atLimit)))
	if err := p.Parse(); err != nil {
		t.Fatalf("body of exactly %d bytes rejected: %v", maxBodyBytes, err)
	}

	p = NewRequestBodyParser(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(atLimit+"a")))
	if err := p.Parse(); !errors.Is(err, errMalformedRequest) {
		t.Fatalf("expected malformed request for an oversized body, got %v", err)
	}
	if p.Get("name") != "" {
		t.Fatal("a rejected body must not expose fields")
	}
}
