package postgresql

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/countryrule"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type countryRuleRepository struct {
	db *database.DB
}

// CountryRuleStore is the postgres repository; it serves both reads and seeding.
type CountryRuleStore interface {
	countryrule.CountryRuleRepository
	countryrule.CountryRuleWriter
}

func NewCountryRuleRepository(db *database.DB) CountryRuleStore {
	return &countryRuleRepository{db: db}
}

const countryConfigColumns = `
	id, country_code, name, currency, valid_from, valid_to, minimum_wage,
	tax_system, social_scheme, other_taxes, sectors, default_sector,
	overtime_multipliers, monthly_day_threshold, created_at, updated_at`

func scanCountryConfig(row pgx.Row) (countryrule.CountryConfig, error) {
	var (
		cfg                                                       countryrule.CountryConfig
		taxSystem, socialScheme, otherTaxes, sectors, multipliers []byte
	)
	err := row.Scan(
		&cfg.ID, &cfg.CountryCode, &cfg.Name, &cfg.Currency, &cfg.ValidFrom, &cfg.ValidTo, &cfg.MinimumWage,
		&taxSystem, &socialScheme, &otherTaxes, &sectors, &cfg.DefaultSector,
		&multipliers, &cfg.MonthlyDayThreshold, &cfg.CreatedAt, &cfg.UpdatedAt,
	)
	if err != nil {
		return cfg, err
	}

	if err := unmarshalJSONB(taxSystem, &cfg.TaxSystem); err != nil {
		return cfg, fmt.Errorf("failed to decode tax system: %w", err)
	}
	if err := unmarshalJSONB(socialScheme, &cfg.SocialScheme); err != nil {
		return cfg, fmt.Errorf("failed to decode social scheme: %w", err)
	}
	if err := unmarshalJSONB(otherTaxes, &cfg.OtherTaxes); err != nil {
		return cfg, fmt.Errorf("failed to decode other taxes: %w", err)
	}
	if err := unmarshalJSONB(sectors, &cfg.Sectors); err != nil {
		return cfg, fmt.Errorf("failed to decode sectors: %w", err)
	}
	if err := unmarshalJSONB(multipliers, &cfg.OvertimeMultipliers); err != nil {
		return cfg, fmt.Errorf("failed to decode overtime multipliers: %w", err)
	}

	return cfg, nil
}

// GetCountryConfig returns the version active at effectiveDate.
func (r *countryRuleRepository) GetCountryConfig(ctx context.Context, countryCode string, effectiveDate time.Time) (countryrule.CountryConfig, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ` + countryConfigColumns + `
		FROM country_configs
		WHERE country_code = $1
		  AND valid_from <= $2
		  AND (valid_to IS NULL OR valid_to >= $2)
		ORDER BY valid_from DESC
		LIMIT 1
	`

	cfg, err := scanCountryConfig(q.QueryRow(ctx, query, countryCode, effectiveDate))
	if err != nil {
		if err == pgx.ErrNoRows {
			return countryrule.CountryConfig{}, countryrule.ErrConfigNotFound
		}
		return countryrule.CountryConfig{}, fmt.Errorf("failed to get country config: %w", err)
	}

	return cfg, nil
}

func (r *countryRuleRepository) GetCityTransportMinimum(ctx context.Context, countryCode string, city string, date time.Time) (countryrule.CityTransportMinimum, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT country_code, city, monthly_minimum, daily_rate, valid_from, valid_to
		FROM city_transport_minimums
		WHERE country_code = $1
		  AND LOWER(city) = LOWER($2)
		  AND valid_from <= $3
		  AND (valid_to IS NULL OR valid_to >= $3)
		ORDER BY valid_from DESC
		LIMIT 1
	`

	var m countryrule.CityTransportMinimum
	err := q.QueryRow(ctx, query, countryCode, city, date).Scan(
		&m.CountryCode, &m.City, &m.MonthlyMinimum, &m.DailyRate, &m.ValidFrom, &m.ValidTo,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return countryrule.CityTransportMinimum{}, countryrule.ErrTransportMinimumNotFound
		}
		return countryrule.CityTransportMinimum{}, fmt.Errorf("failed to get city transport minimum: %w", err)
	}

	return m, nil
}

// UpsertCountryConfig writes a version keyed by (country_code, valid_from).
func (r *countryRuleRepository) UpsertCountryConfig(ctx context.Context, cfg countryrule.CountryConfig) (countryrule.CountryConfig, error) {
	q := GetQuerier(ctx, r.db)

	taxSystem, err := json.Marshal(cfg.TaxSystem)
	if err != nil {
		return countryrule.CountryConfig{}, fmt.Errorf("failed to encode tax system: %w", err)
	}
	socialScheme, err := json.Marshal(cfg.SocialScheme)
	if err != nil {
		return countryrule.CountryConfig{}, fmt.Errorf("failed to encode social scheme: %w", err)
	}
	otherTaxes, err := json.Marshal(cfg.OtherTaxes)
	if err != nil {
		return countryrule.CountryConfig{}, fmt.Errorf("failed to encode other taxes: %w", err)
	}
	sectors, err := json.Marshal(cfg.Sectors)
	if err != nil {
		return countryrule.CountryConfig{}, fmt.Errorf("failed to encode sectors: %w", err)
	}
	multipliers, err := json.Marshal(cfg.OvertimeMultipliers)
	if err != nil {
		return countryrule.CountryConfig{}, fmt.Errorf("failed to encode overtime multipliers: %w", err)
	}

	query := `
		INSERT INTO country_configs (
			country_code, name, currency, valid_from, valid_to, minimum_wage,
			tax_system, social_scheme, other_taxes, sectors, default_sector,
			overtime_multipliers, monthly_day_threshold
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (country_code, valid_from) DO UPDATE SET
			name = EXCLUDED.name,
			currency = EXCLUDED.currency,
			valid_to = EXCLUDED.valid_to,
			minimum_wage = EXCLUDED.minimum_wage,
			tax_system = EXCLUDED.tax_system,
			social_scheme = EXCLUDED.social_scheme,
			other_taxes = EXCLUDED.other_taxes,
			sectors = EXCLUDED.sectors,
			default_sector = EXCLUDED.default_sector,
			overtime_multipliers = EXCLUDED.overtime_multipliers,
			monthly_day_threshold = EXCLUDED.monthly_day_threshold,
			updated_at = NOW()
		RETURNING ` + countryConfigColumns

	saved, err := scanCountryConfig(q.QueryRow(ctx, query,
		cfg.CountryCode, cfg.Name, cfg.Currency, cfg.ValidFrom, cfg.ValidTo, cfg.MinimumWage,
		taxSystem, socialScheme, otherTaxes, sectors, cfg.DefaultSector,
		multipliers, cfg.MonthlyDayThreshold,
	))
	if err != nil {
		return countryrule.CountryConfig{}, fmt.Errorf("failed to upsert country config: %w", err)
	}

	return saved, nil
}

func (r *countryRuleRepository) UpsertCityTransportMinimum(ctx context.Context, m countryrule.CityTransportMinimum) error {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO city_transport_minimums (country_code, city, monthly_minimum, daily_rate, valid_from, valid_to)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (country_code, city, valid_from) DO UPDATE SET
			monthly_minimum = EXCLUDED.monthly_minimum,
			daily_rate = EXCLUDED.daily_rate,
			valid_to = EXCLUDED.valid_to,
			updated_at = NOW()
	`

	if _, err := q.Exec(ctx, query, m.CountryCode, m.City, m.MonthlyMinimum, m.DailyRate, m.ValidFrom, m.ValidTo); err != nil {
		return fmt.Errorf("failed to upsert city transport minimum: %w", err)
	}

	return nil
}
