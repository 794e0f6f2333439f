package main

import (
	"context"
	"fmt"
	"log"

	"github.com/cmlabs-hris/payroll-engine-go/internal/config"
	"github.com/cmlabs-hris/payroll-engine-go/internal/fixtures"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/database"
	"github.com/cmlabs-hris/payroll-engine-go/internal/repository/postgresql"
)

// seed loads the bundled country rules, component definitions and
// templates. It is idempotent.
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Println("Error loading config:", err)
		return
	}

	db, err := database.NewPostgreSQLDB(cfg.DatabaseURL(), database.PoolOptions{})
	if err != nil {
		log.Fatal("Error connecting to database:", err)
	}
	defer db.Close()

	ctx := context.Background()
	rules := postgresql.NewCountryRuleRepository(db)
	components := postgresql.NewSalaryComponentRepository(db)

	err = postgresql.NewTransactor(db).WithinTransaction(ctx, func(ctx context.Context) error {
		saved, err := rules.UpsertCountryConfig(ctx, fixtures.CIConfig())
		if err != nil {
			return fmt.Errorf("failed to seed country config: %w", err)
		}
		fmt.Printf("country config %s valid from %s\n", saved.CountryCode, saved.ValidFrom.Format("2006-01-02"))

		for _, min := range fixtures.CITransportMinimums() {
			if err := rules.UpsertCityTransportMinimum(ctx, min); err != nil {
				return fmt.Errorf("failed to seed transport minimum for %s: %w", min.City, err)
			}
		}

		for _, def := range fixtures.CIDefinitions() {
			if err := components.UpsertDefinition(ctx, def); err != nil {
				return fmt.Errorf("failed to seed component %s: %w", def.Code, err)
			}
		}

		for _, tpl := range fixtures.CITemplates() {
			if _, err := components.UpsertTemplate(ctx, tpl); err != nil {
				return fmt.Errorf("failed to seed template %s: %w", tpl.Code, err)
			}
		}
		return nil
	})
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println("seed complete")
}
