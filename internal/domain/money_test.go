package domain

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMoney(t *testing.T) {
	cases := []struct {
		in  string
		out string
		ok  bool
	}{
		{"1", "1", true},
		{"12.34", "12.34", true},
		{"12,34", "12.34", true},
		{" 2.50 ", "2.5", true},
		{"1.005", "1.01", true},
		{"-3.10", "-3.1", true},
		{"", "", false},
		{"abc", "", false},
		{"1.2.3", "", false},
	}
	for _, tc := range cases {
		got, err := ParseMoney(tc.in)
		if !tc.ok {
			assert.ErrorIs(t, err, ErrValidation, tc.in)
			continue
		}
		require.NoError(t, err, tc.in)
		assert.True(t, got.Equal(decimal.RequireFromString(tc.out)), "%q: got %s", tc.in, got)
	}
}

func TestMoneyArithmeticHasNoDrift(t *testing.T) {
	total := decimal.Zero
	for i := 0; i < 10; i++ {
		total = total.Add(decimal.RequireFromString("0.10"))
	}
	assert.True(t, total.Equal(decimal.NewFromInt(1)))
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-03-09")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC), d)

	d, err = ParseDate("2024-03-09T23:30:00-02:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), d)

	_, err = ParseDate("09/03/2024")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestMoneyMarshalsAsNumber(t *testing.T) {
	b, err := json.Marshal(Category{ID: "c", Amount: decimal.RequireFromString("40.50")})
	require.NoError(t, err)
	assert.Contains(t, string(b), `"amount":40.5`)
	assert.Contains(t, string(b), `"monthly_default":null`)
}

type sample struct {
	ID      string           `json:"id" validate:"omitempty,uuid"`
	Name    string           `json:"name" validate:"required,utf8,max=100"`
	Amount  decimal.Decimal  `json:"amount" validate:"gt=0,money"`
	Default *decimal.Decimal `json:"monthly_default" validate:"omitempty,gte=0,money"`
	Date    time.Time        `json:"date" validate:"required"`
}

func TestValidate(t *testing.T) {
	valid := func() sample {
		return sample{Name: "Groceries", Amount: decimal.RequireFromString("0.01"), Date: time.Now()}
	}
	require.NoError(t, Validate(valid()))

	neg := decimal.NewFromInt(-1)
	huge := decimal.RequireFromString("1000000000000")
	tests := []struct {
		name    string
		mutate  func(*sample)
		wantMsg string
	}{
		{"blank name", func(s *sample) { s.Name = "" }, "name is required"},
		{"long name", func(s *sample) { s.Name = strings.Repeat("a", 101) }, "name longer than 100 characters"},
		{"invalid utf8", func(s *sample) { s.Name = "\xff\xfe" }, "name is not valid UTF-8"},
		{"zero amount", func(s *sample) { s.Amount = decimal.Zero }, "amount must be greater than 0"},
		{"huge amount", func(s *sample) { s.Amount = huge }, "amount exceeds 999999999999.99"},
		{"negative default", func(s *sample) { s.Default = &neg }, "monthly_default must not be below 0"},
		{"huge default", func(s *sample) { s.Default = &huge }, "monthly_default exceeds"},
		{"missing date", func(s *sample) { s.Date = time.Time{} }, "date is required"},
		{"bad id", func(s *sample) { s.ID = "abc" }, `id "abc" is not a UUID`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := valid()
			tt.mutate(&s)
			err := Validate(s)
			assert.ErrorIs(t, err, ErrValidation)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}

	s := valid()
	s.Name = strings.Repeat("Ж", 100)
	s.Amount = MaxMoney
	assert.NoError(t, Validate(s))
}

func TestCheckBalance(t *testing.T) {
	assert.NoError(t, CheckBalance("funds", MaxMoney.Neg()))
	assert.ErrorIs(t, CheckBalance("funds", MaxMoney.Add(decimal.RequireFromString("0.01"))), ErrValidation)
}

func TestPasswordBytes(t *testing.T) {
	assert.NoError(t, ValidatePasswordBytes(strings.Repeat("a", 72)))
	// 40 characters, 80 bytes
	assert.ErrorIs(t, ValidatePasswordBytes(strings.Repeat("é", 40)), ErrValidation)
}

func TestCanonicalID(t *testing.T) {
	const id = "6ba7b810-9dad-11d1-80b4-00c04fd430c8"
	for _, spelling := range []string{id, strings.ToUpper(id), "{" + id + "}", "urn:uuid:" + id, strings.ReplaceAll(id, "-", "")} {
		got, err := CanonicalID(spelling)
		require.NoError(t, err, spelling)
		assert.Equal(t, id, got, spelling)
	}
	got, err := CanonicalID("")
	require.NoError(t, err)
	assert.Empty(t, got)
	_, err = CanonicalID("not-a-uuid")
	assert.ErrorIs(t, err, ErrValidation)

	assert.Len(t, NewID(""), 36)
	assert.Equal(t, id, NewID(id))
}
