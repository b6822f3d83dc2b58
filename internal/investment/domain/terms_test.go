package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validInput() NewInvestmentInput {
	return NewInvestmentInput{
		SeekerID:    "seeker-1",
		Title:       "Solar farm expansion",
		Description: "We are expanding our community solar farm with 200 new panels to double generation capacity.",
		Amount:      decimal.NewFromInt(50000),
		Deadline:    time.Now().AddDate(0, 3, 0),
		TermsType:   TermsTypeEquity,
		TermsText:   "21%",
	}
}

func TestParseTerms(t *testing.T) {
	tests := []struct {
		name      string
		termsType TermsType
		text      string
		wantErr   bool
	}{
		{"valid equity", TermsTypeEquity, "21%", false},
		{"equity with decimals", TermsTypeEquity, "12.5%", false},
		{"equity missing percent", TermsTypeEquity, "21", true},
		{"equity zero", TermsTypeEquity, "0%", true},
		{"equity above 100", TermsTypeEquity, "101%", true},
		{"valid loan", TermsTypeLoan, "12% annual interest", false},
		{"loan bare percentage", TermsTypeLoan, "12%", true},
		{"loan above cap", TermsTypeLoan, "31% annual interest", true},
		{"loan below floor", TermsTypeLoan, "0.5% annual interest", true},
		{"valid donation", TermsTypeDonation, "Quarterly impact reports on water access", false},
		{"donation too short", TermsTypeDonation, "thanks", true},
		{"unknown type", TermsType("BARTER"), "two goats", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			terms, msg := ParseTerms(tt.termsType, tt.text)
			if tt.wantErr {
				assert.Nil(t, terms)
				assert.NotEmpty(t, msg)
			} else {
				require.NotNil(t, terms)
				assert.Empty(t, msg)
				assert.Equal(t, tt.termsType, terms.Type())
			}
		})
	}
}

func TestParseTermsRoundTrip(t *testing.T) {
	terms, msg := ParseTerms(TermsTypeLoan, "12% annual interest")
	require.Empty(t, msg)
	assert.Equal(t, "12% annual interest", terms.Describe())

	terms, msg = ParseTerms(TermsTypeEquity, "21%")
	require.Empty(t, msg)
	assert.Equal(t, "21%", terms.Describe())
}

func TestValidateNewInvestment(t *testing.T) {
	now := time.Now()

	t.Run("valid input passes", func(t *testing.T) {
		terms, errs := ValidateNewInvestment(validInput(), now)
		require.Nil(t, errs)
		assert.Equal(t, TermsTypeEquity, terms.Type())
	})

	t.Run("collects all violations in one pass", func(t *testing.T) {
		in := validInput()
		in.Title = "abc"
		in.Description = "too short"
		in.Amount = decimal.NewFromInt(-5)
		in.Deadline = now.AddDate(-1, 0, 0)
		in.TermsText = "nonsense"

		terms, errs := ValidateNewInvestment(in, now)
		assert.Nil(t, terms)
		require.NotNil(t, errs)
		assert.Contains(t, errs, "title")
		assert.Contains(t, errs, "description")
		assert.Contains(t, errs, "amount")
		assert.Contains(t, errs, "deadline")
		assert.Contains(t, errs, "returns_terms")
	})

	t.Run("amount above cap rejected", func(t *testing.T) {
		in := validInput()
		in.Amount = decimal.NewFromInt(1_000_001)
		_, errs := ValidateNewInvestment(in, now)
		require.NotNil(t, errs)
		assert.Contains(t, errs, "amount")
	})

	t.Run("amount at cap accepted", func(t *testing.T) {
		in := validInput()
		in.Amount = decimal.NewFromInt(1_000_000)
		_, errs := ValidateNewInvestment(in, now)
		assert.Nil(t, errs)
	})

	t.Run("deadline beyond one year rejected", func(t *testing.T) {
		in := validInput()
		in.Deadline = now.AddDate(1, 1, 0)
		_, errs := ValidateNewInvestment(in, now)
		require.NotNil(t, errs)
		assert.Contains(t, errs, "deadline")
	})

	t.Run("deadline on day 365 accepted", func(t *testing.T) {
		in := validInput()
		in.Deadline = now.AddDate(0, 0, 365)
		_, errs := ValidateNewInvestment(in, now)
		assert.Nil(t, errs)
	})

	// 闰年也不放宽到 366 天
	t.Run("deadline on day 366 rejected", func(t *testing.T) {
		in := validInput()
		in.Deadline = now.AddDate(0, 0, 366)
		_, errs := ValidateNewInvestment(in, now)
		require.NotNil(t, errs)
		assert.Contains(t, errs, "deadline")
	})

	t.Run("deadline later today rejected", func(t *testing.T) {
		in := validInput()
		in.Deadline = now
		_, errs := ValidateNewInvestment(in, now)
		require.NotNil(t, errs)
		assert.Contains(t, errs, "deadline")
	})
}
