package countryrule

import (
	"github.com/shopspring/decimal"
)

type TransportMinimumResponse struct {
	CountryCode    string          `json:"country_code"`
	City           string          `json:"city"`
	MonthlyMinimum decimal.Decimal `json:"monthly_minimum"`
	DailyRate      decimal.Decimal `json:"daily_rate"`
}
