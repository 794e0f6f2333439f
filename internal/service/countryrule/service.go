package countryrule

import (
	"context"
	"strings"
	"time"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/countryrule"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/cache"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/validator"
)

const dateLayout = "2006-01-02"

// ========== CACHED REPOSITORY ==========

// CachedRepository memoizes country configs per (country, day). Configs are
// immutable once loaded, so one cache is shared by every batch worker.
// Misses are never cached.
type CachedRepository struct {
	next       countryrule.CountryRuleRepository
	configs    cache.Cache[string, countryrule.CountryConfig]
	transports cache.Cache[string, countryrule.CityTransportMinimum]
	ttl        time.Duration
}

func NewCachedRepository(next countryrule.CountryRuleRepository, ttl time.Duration) *CachedRepository {
	return &CachedRepository{
		next:       next,
		configs:    cache.NewTTLCache[string, countryrule.CountryConfig](),
		transports: cache.NewTTLCache[string, countryrule.CityTransportMinimum](),
		ttl:        ttl,
	}
}

func (r *CachedRepository) GetCountryConfig(ctx context.Context, countryCode string, effectiveDate time.Time) (countryrule.CountryConfig, error) {
	key := cache.Key(countryCode, effectiveDate.Format(dateLayout))
	if cfg, ok := r.configs.Get(key); ok {
		return cfg, nil
	}

	cfg, err := r.next.GetCountryConfig(ctx, countryCode, effectiveDate)
	if err != nil {
		return countryrule.CountryConfig{}, err
	}
	r.configs.Set(key, cfg, r.ttl)
	return cfg, nil
}

func (r *CachedRepository) GetCityTransportMinimum(ctx context.Context, countryCode string, city string, date time.Time) (countryrule.CityTransportMinimum, error) {
	key := cache.Key(countryCode, city, date.Format(dateLayout))
	if m, ok := r.transports.Get(key); ok {
		return m, nil
	}

	m, err := r.next.GetCityTransportMinimum(ctx, countryCode, city, date)
	if err != nil {
		return countryrule.CityTransportMinimum{}, err
	}
	r.transports.Set(key, m, r.ttl)
	return m, nil
}

// ========== SERVICE ==========

type CountryRuleServiceImpl struct {
	rules countryrule.CountryRuleRepository
	now   func() time.Time
}

func NewCountryRuleService(rules countryrule.CountryRuleRepository) countryrule.CountryRuleService {
	return &CountryRuleServiceImpl{rules: rules, now: time.Now}
}

func (s *CountryRuleServiceImpl) parseDate(date string) (time.Time, error) {
	if date == "" {
		now := s.now().UTC()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	t, ok := validator.IsValidDate(date)
	if !ok {
		return time.Time{}, validator.ValidationErrors{{Field: "date", Message: "must be a date in YYYY-MM-DD format"}}
	}
	return t, nil
}

func validateCountry(countryCode string) error {
	if !validator.IsValidCountryCode(countryCode) {
		return validator.ValidationErrors{{Field: "country_code", Message: "must be a 2-letter ISO country code"}}
	}
	return nil
}

func (s *CountryRuleServiceImpl) GetCountryConfig(ctx context.Context, countryCode string, date string) (countryrule.CountryConfig, error) {
	countryCode = strings.ToUpper(countryCode)
	if err := validateCountry(countryCode); err != nil {
		return countryrule.CountryConfig{}, err
	}
	at, err := s.parseDate(date)
	if err != nil {
		return countryrule.CountryConfig{}, err
	}
	return s.rules.GetCountryConfig(ctx, countryCode, at)
}

func (s *CountryRuleServiceImpl) GetTransportMinimum(ctx context.Context, countryCode string, city string, date string) (countryrule.TransportMinimumResponse, error) {
	countryCode = strings.ToUpper(countryCode)
	if err := validateCountry(countryCode); err != nil {
		return countryrule.TransportMinimumResponse{}, err
	}
	if validator.IsEmpty(city) {
		return countryrule.TransportMinimumResponse{}, validator.ValidationErrors{{Field: "city", Message: "is required"}}
	}
	at, err := s.parseDate(date)
	if err != nil {
		return countryrule.TransportMinimumResponse{}, err
	}

	m, err := s.rules.GetCityTransportMinimum(ctx, countryCode, city, at)
	if err != nil {
		return countryrule.TransportMinimumResponse{}, err
	}
	return countryrule.TransportMinimumResponse{
		CountryCode:    m.CountryCode,
		City:           m.City,
		MonthlyMinimum: m.MonthlyMinimum,
		DailyRate:      m.DailyRate,
	}, nil
}
