package countryrule

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/countryrule"
	"github.com/cmlabs-hris/payroll-engine-go/internal/fixtures"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingRules struct {
	mu             sync.Mutex
	configCalls    int
	transportCalls int
}

func (r *countingRules) GetCountryConfig(_ context.Context, countryCode string, date time.Time) (countryrule.CountryConfig, error) {
	r.mu.Lock()
	r.configCalls++
	r.mu.Unlock()
	cfg := fixtures.CIConfig()
	if countryCode != cfg.CountryCode || !cfg.IsActiveAt(date) {
		return countryrule.CountryConfig{}, countryrule.ErrConfigNotFound
	}
	return cfg, nil
}

func (r *countingRules) GetCityTransportMinimum(_ context.Context, countryCode, city string, _ time.Time) (countryrule.CityTransportMinimum, error) {
	r.mu.Lock()
	r.transportCalls++
	r.mu.Unlock()
	for _, m := range fixtures.CITransportMinimums() {
		if m.CountryCode == countryCode && m.City == city {
			return m, nil
		}
	}
	return countryrule.CityTransportMinimum{}, countryrule.ErrTransportMinimumNotFound
}

func day(s string) time.Time {
	t, _ := time.Parse("2006-01-02", s)
	return t
}

func TestCachedRepository_GetCountryConfig(t *testing.T) {
	t.Run("hits are served from cache", func(t *testing.T) {
		inner := &countingRules{}
		repo := NewCachedRepository(inner, time.Hour)

		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, _ = repo.GetCountryConfig(context.Background(), "CI", day("2024-03-01"))
			}()
		}
		wg.Wait()
		callsAfterWarmup := inner.configCalls

		cfg, err := repo.GetCountryConfig(context.Background(), "CI", day("2024-03-01"))

		require.NoError(t, err)
		assert.Equal(t, "CI", cfg.CountryCode)
		assert.Equal(t, callsAfterWarmup, inner.configCalls)
	})

	t.Run("dates are cached separately", func(t *testing.T) {
		inner := &countingRules{}
		repo := NewCachedRepository(inner, time.Hour)

		_, _ = repo.GetCountryConfig(context.Background(), "CI", day("2024-03-01"))
		_, _ = repo.GetCountryConfig(context.Background(), "CI", day("2024-04-01"))

		assert.Equal(t, 2, inner.configCalls)
	})

	t.Run("misses are not cached", func(t *testing.T) {
		inner := &countingRules{}
		repo := NewCachedRepository(inner, time.Hour)

		_, err := repo.GetCountryConfig(context.Background(), "CI", day("2023-01-01"))
		require.ErrorIs(t, err, countryrule.ErrConfigNotFound)
		_, err = repo.GetCountryConfig(context.Background(), "CI", day("2023-01-01"))
		require.ErrorIs(t, err, countryrule.ErrConfigNotFound)

		assert.Equal(t, 2, inner.configCalls)
	})
}

func TestCachedRepository_GetCityTransportMinimum(t *testing.T) {
	inner := &countingRules{}
	repo := NewCachedRepository(inner, time.Hour)

	first, err := repo.GetCityTransportMinimum(context.Background(), "CI", "Abidjan", day("2024-03-01"))
	require.NoError(t, err)
	second, err := repo.GetCityTransportMinimum(context.Background(), "CI", "Abidjan", day("2024-03-01"))
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, inner.transportCalls)
}

func TestCountryRuleService_GetCountryConfig(t *testing.T) {
	svc := NewCountryRuleService(&countingRules{})

	t.Run("explicit date", func(t *testing.T) {
		cfg, err := svc.GetCountryConfig(context.Background(), "ci", "2024-03-01")

		require.NoError(t, err)
		assert.Equal(t, "CI", cfg.CountryCode)
		assert.Equal(t, 21, cfg.MonthlyDayThreshold)
	})

	t.Run("invalid date", func(t *testing.T) {
		_, err := svc.GetCountryConfig(context.Background(), "CI", "03/01/2024")

		var verrs validator.ValidationErrors
		require.True(t, errors.As(err, &verrs))
		assert.Contains(t, verrs.ToMap(), "date")
	})

	t.Run("invalid country", func(t *testing.T) {
		_, err := svc.GetCountryConfig(context.Background(), "CIV", "")

		var verrs validator.ValidationErrors
		require.True(t, errors.As(err, &verrs))
	})

	t.Run("no version active", func(t *testing.T) {
		_, err := svc.GetCountryConfig(context.Background(), "CI", "2023-06-30")

		assert.ErrorIs(t, err, countryrule.ErrConfigNotFound)
	})
}

func TestCountryRuleService_GetTransportMinimum(t *testing.T) {
	svc := NewCountryRuleService(&countingRules{})

	res, err := svc.GetTransportMinimum(context.Background(), "CI", "Abidjan", "2024-03-01")
	require.NoError(t, err)
	assert.Equal(t, "Abidjan", res.City)
	assert.Equal(t, "30000", res.MonthlyMinimum.String())

	_, err = svc.GetTransportMinimum(context.Background(), "CI", "Korhogo", "2024-03-01")
	assert.ErrorIs(t, err, countryrule.ErrTransportMinimumNotFound)

	_, err = svc.GetTransportMinimum(context.Background(), "CI", " ", "")
	assert.Error(t, err)
}
