package validator

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestIsEmpty(t *testing.T) {
	cases := []struct {
		input string
		want  bool
	}{
		{"", true},
		{"   ", true},
		{"abc", false},
		{" abc ", false},
	}
	for _, c := range cases {
		got := IsEmpty(c.input)
		if got != c.want {
			t.Errorf("IsEmpty(%q) = %v, want %v", c.input, got, c.want)
		}
	}
}

func TestIsValidUUID(t *testing.T) {
	valid := []string{
		"0188d0f2-7b8c-7b4a-8a2b-6b8b8b8b8b8b",
		"123e4567-e89b-12d3-a456-426614174000",
		"123E4567-E89B-12D3-A456-426614174000",
	}
	invalid := []string{
		"0188d0f27b8c7b4a8a2b6b8b8b8b8b8b",
		"g188d0f2-7b8c-7b4a-8a2b-6b8b8b8b8b8b",
		"{123e4567-e89b-12d3-a456-426614174000}",
		"",
	}
	for _, id := range valid {
		if !IsValidUUID(id) {
			t.Errorf("IsValidUUID(%q) = false, want true", id)
		}
	}
	for _, id := range invalid {
		if IsValidUUID(id) {
			t.Errorf("IsValidUUID(%q) = true, want false", id)
		}
	}
}

func TestIsNumeric(t *testing.T) {
	valid := []string{"123", "0", "9876543210"}
	invalid := []string{"abc", "123a", "", "-123"}
	for _, s := range valid {
		if !IsNumeric(s) {
			t.Errorf("IsNumeric(%q) = false, want true", s)
		}
	}
	for _, s := range invalid {
		if IsNumeric(s) {
			t.Errorf("IsNumeric(%q) = true, want false", s)
		}
	}
}

func TestIsValidDate(t *testing.T) {
	valid := []string{"2023-01-01", "2000-12-31"}
	invalid := []string{"2023-13-01", "2023-01-32", "2023/01/01", "01-01-2023", ""}
	for _, s := range valid {
		_, ok := IsValidDate(s)
		if !ok {
			t.Errorf("IsValidDate(%q) = false, want true", s)
		}
	}
	for _, s := range invalid {
		_, ok := IsValidDate(s)
		if ok {
			t.Errorf("IsValidDate(%q) = true, want false", s)
		}
	}
}

func TestIsValidCountryCode(t *testing.T) {
	valid := []string{"CI", "SN", "FR"}
	invalid := []string{"ci", "CIV", "C", "", "C1"}
	for _, code := range valid {
		if !IsValidCountryCode(code) {
			t.Errorf("IsValidCountryCode(%q) = false, want true", code)
		}
	}
	for _, code := range invalid {
		if IsValidCountryCode(code) {
			t.Errorf("IsValidCountryCode(%q) = true, want false", code)
		}
	}
}

func TestIsWithinRange(t *testing.T) {
	min := decimal.NewFromInt(100)
	max := decimal.NewFromInt(200)

	cases := []struct {
		value int64
		min   *decimal.Decimal
		max   *decimal.Decimal
		want  bool
	}{
		{150, &min, &max, true},
		{100, &min, &max, true},
		{200, &min, &max, true},
		{99, &min, &max, false},
		{201, &min, &max, false},
		{5000, &min, nil, true},
		{-5, nil, &max, true},
		{0, nil, nil, true},
	}
	for _, c := range cases {
		got := IsWithinRange(decimal.NewFromInt(c.value), c.min, c.max)
		if got != c.want {
			t.Errorf("IsWithinRange(%d) = %v, want %v", c.value, got, c.want)
		}
	}
}

func TestIsInSlice(t *testing.T) {
	slice := []string{"a", "b", "c"}
	if !IsInSlice("a", slice) {
		t.Errorf("IsInSlice('a') = false, want true")
	}
	if IsInSlice("d", slice) {
		t.Errorf("IsInSlice('d') = true, want false")
	}
}

func TestValidationErrors_Error(t *testing.T) {
	errs := ValidationErrors{
		{Field: "country_code", Message: "invalid"},
		{Field: "period_start", Message: "required"},
	}
	got := errs.Error()
	want := "country_code: invalid; period_start: required"
	if got != want {
		t.Errorf("ValidationErrors.Error() = %q, want %q", got, want)
	}
}

func TestValidationErrors_ToMap(t *testing.T) {
	errs := ValidationErrors{
		{Field: "country_code", Message: "invalid"},
		{Field: "period_start", Message: "required"},
	}
	got := errs.ToMap()
	want := map[string]string{"country_code": "invalid", "period_start": "required"}
	if len(got) != len(want) {
		t.Errorf("ValidationErrors.ToMap() length = %d, want %d", len(got), len(want))
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("ValidationErrors.ToMap()[%q] = %q, want %q", k, got[k], v)
		}
	}
}
