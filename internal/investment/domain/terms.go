// Package domain 回报条款模型与发布校验
package domain

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TermsType 回报条款类型
type TermsType string

const (
	TermsTypeEquity   TermsType = "EQUITY"
	TermsTypeLoan     TermsType = "LOAN"
	TermsTypeDonation TermsType = "DONATION"
)

// ReturnsTerms 回报条款，封闭变体：股权 / 借贷 / 捐赠
type ReturnsTerms interface {
	Type() TermsType
	// Describe 渲染为对外展示的文本形式
	Describe() string
	sealed()
}

// EquityTerms 股权条款，投资人按比例分享利润
type EquityTerms struct {
	// 利润分成比例（百分比，1-100）
	Percentage decimal.Decimal
}

func (t EquityTerms) Type() TermsType  { return TermsTypeEquity }
func (t EquityTerms) Describe() string { return t.Percentage.String() + "%" }
func (t EquityTerms) sealed()          {}

// LoanTerms 借贷条款，按年化利率计息
type LoanTerms struct {
	// 年化利率（百分比，1-30）
	AnnualRate decimal.Decimal
}

func (t LoanTerms) Type() TermsType  { return TermsTypeLoan }
func (t LoanTerms) Describe() string { return t.AnnualRate.String() + "% annual interest" }
func (t LoanTerms) sealed()          {}

// DonationTerms 捐赠条款，回报为影响力报告
type DonationTerms struct {
	// 影响力说明，至少 10 个字符
	Impact string
}

func (t DonationTerms) Type() TermsType  { return TermsTypeDonation }
func (t DonationTerms) Describe() string { return t.Impact }
func (t DonationTerms) sealed()          {}

var (
	equityTermsPattern = regexp.MustCompile(`^(\d+(\.\d+)?)%$`)
	loanTermsPattern   = regexp.MustCompile(`^(\d+(\.\d+)?)% annual interest$`)
)

// ParseTerms 按类型解析条款文本，失败时返回字段错误信息
func ParseTerms(termsType TermsType, text string) (ReturnsTerms, string) {
	text = strings.TrimSpace(text)

	switch termsType {
	case TermsTypeEquity:
		m := equityTermsPattern.FindStringSubmatch(text)
		if m == nil {
			return nil, `equity terms must be in the form "21%"`
		}
		pct, err := decimal.NewFromString(m[1])
		if err != nil {
			return nil, "invalid equity percentage"
		}
		if pct.LessThan(decimal.NewFromInt(1)) || pct.GreaterThan(decimal.NewFromInt(100)) {
			return nil, "equity percentage must be between 1 and 100"
		}
		return EquityTerms{Percentage: pct}, ""

	case TermsTypeLoan:
		m := loanTermsPattern.FindStringSubmatch(text)
		if m == nil {
			return nil, `loan terms must be in the form "12% annual interest"`
		}
		rate, err := decimal.NewFromString(m[1])
		if err != nil {
			return nil, "invalid loan rate"
		}
		if rate.LessThan(decimal.NewFromInt(1)) || rate.GreaterThan(decimal.NewFromInt(30)) {
			return nil, "loan annual rate must be between 1 and 30"
		}
		return LoanTerms{AnnualRate: rate}, ""

	case TermsTypeDonation:
		if len(text) < 10 {
			return nil, "donation impact description must be at least 10 characters"
		}
		return DonationTerms{Impact: text}, ""

	default:
		return nil, fmt.Sprintf("unknown terms type: %s", termsType)
	}
}

// NewInvestmentInput 发布融资请求的原始输入
type NewInvestmentInput struct {
	SeekerID    string
	Title       string
	Description string
	Amount      decimal.Decimal
	Deadline    time.Time
	TermsType   TermsType
	TermsText   string
}

var maxInvestmentAmount = decimal.NewFromInt(1_000_000)

// ValidateNewInvestment 一次性校验发布输入的所有字段，收集全部违规项
func ValidateNewInvestment(in NewInvestmentInput, now time.Time) (ReturnsTerms, ValidationErrors) {
	errs := make(ValidationErrors)

	title := strings.TrimSpace(in.Title)
	if len(title) < 5 || len(title) > 100 {
		errs.Add("title", "title must be between 5 and 100 characters")
	}

	description := strings.TrimSpace(in.Description)
	if len(description) < 50 || len(description) > 300 {
		errs.Add("description", "description must be between 50 and 300 characters")
	}

	if !in.Amount.IsPositive() {
		errs.Add("amount", "amount must be positive")
	} else if in.Amount.GreaterThan(maxInvestmentAmount) {
		errs.Add("amount", "amount must not exceed 1000000")
	}

	// 以本地日历日为界，窗口为 (今天, 今天+365 天]：
	// 最早次日零点，最晚第 365 天结束
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if in.Deadline.Before(today.AddDate(0, 0, 1)) {
		errs.Add("deadline", "deadline must be after today")
	} else if !in.Deadline.Before(today.AddDate(0, 0, 366)) {
		errs.Add("deadline", "deadline must be within 365 days")
	}

	terms, termsErr := ParseTerms(in.TermsType, in.TermsText)
	if termsErr != "" {
		errs.Add("returns_terms", termsErr)
	}

	if errs.HasErrors() {
		return nil, errs
	}
	return terms, nil
}
