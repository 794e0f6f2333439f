package countryrule

import (
	"context"
	"time"
)

// CountryRuleRepository is a read-only, effective-dated view of country rules.
// Calculation code receives it as a dependency and never writes through it.
type CountryRuleRepository interface {
	GetCountryConfig(ctx context.Context, countryCode string, effectiveDate time.Time) (CountryConfig, error)
	GetCityTransportMinimum(ctx context.Context, countryCode string, city string, date time.Time) (CityTransportMinimum, error)
}

// CountryRuleWriter is used by administrative seeding only.
type CountryRuleWriter interface {
	UpsertCountryConfig(ctx context.Context, cfg CountryConfig) (CountryConfig, error)
	UpsertCityTransportMinimum(ctx context.Context, min CityTransportMinimum) error
}
