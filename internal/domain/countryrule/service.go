package countryrule

import "context"

// CountryRuleService serves read-only rule lookups to the HTTP layer.
// Dates are YYYY-MM-DD; an empty date means today.
type CountryRuleService interface {
	GetCountryConfig(ctx context.Context, countryCode string, date string) (CountryConfig, error)
	GetTransportMinimum(ctx context.Context, countryCode string, city string, date string) (TransportMinimumResponse, error)
}
