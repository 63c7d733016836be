package models

import (
	"errors"
	"strings"
	"time"
)

// NormalizeIdentifier strips everything but digits, so "123.456.789-00" and
// "12345678900" name the same account.
func NormalizeIdentifier(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

const dateLayout = "2006-01-02"

var dateLayouts = []string{dateLayout, "02/01/2006"}

// ErrInvalidDate is returned by ParseDate for input in no accepted layout.
var ErrInvalidDate = errors.New("date must be YYYY-MM-DD or DD/MM/YYYY")

// ParseDate accepts YYYY-MM-DD or DD/MM/YYYY and returns the canonical YYYY-MM-DD form.
func ParseDate(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format(dateLayout), nil
		}
	}
	return "", ErrInvalidDate
}

// FormatDate renders t as a canonical ledger date.
func FormatDate(t time.Time) string {
	return t.Format(dateLayout)
}
