package postgresql

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/salarycomponent"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type salaryComponentRepository struct {
	db *database.DB
}

func NewSalaryComponentRepository(db *database.DB) salarycomponent.SalaryComponentRepository {
	return &salaryComponentRepository{db: db}
}

// ========== DEFINITIONS ==========

func (r *salaryComponentRepository) ListDefinitions(ctx context.Context, countryCode string) ([]salarycomponent.Definition, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT code, country_code, name, category, method, is_base_component, is_taxable,
			   tax_exempt_cap, rate, formula, created_at, updated_at
		FROM salary_component_definitions
		WHERE country_code = $1
		ORDER BY code ASC
	`

	rows, err := q.Query(ctx, query, countryCode)
	if err != nil {
		return nil, fmt.Errorf("failed to list component definitions: %w", err)
	}
	defer rows.Close()

	var defs []salarycomponent.Definition
	for rows.Next() {
		var d salarycomponent.Definition
		if err := rows.Scan(
			&d.Code, &d.CountryCode, &d.Name, &d.Category, &d.Method, &d.IsBaseComponent, &d.IsTaxable,
			&d.TaxExemptCap, &d.Rate, &d.Formula, &d.CreatedAt, &d.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan component definition: %w", err)
		}
		defs = append(defs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate component definitions: %w", err)
	}

	return defs, nil
}

func (r *salaryComponentRepository) UpsertDefinition(ctx context.Context, def salarycomponent.Definition) error {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO salary_component_definitions (
			code, country_code, name, category, method, is_base_component, is_taxable, tax_exempt_cap, rate, formula
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (country_code, code) DO UPDATE SET
			name = EXCLUDED.name,
			category = EXCLUDED.category,
			method = EXCLUDED.method,
			is_base_component = EXCLUDED.is_base_component,
			is_taxable = EXCLUDED.is_taxable,
			tax_exempt_cap = EXCLUDED.tax_exempt_cap,
			rate = EXCLUDED.rate,
			formula = EXCLUDED.formula,
			updated_at = NOW()
	`

	_, err := q.Exec(ctx, query,
		def.Code, def.CountryCode, def.Name, def.Category, def.Method, def.IsBaseComponent, def.IsTaxable,
		def.TaxExemptCap, def.Rate, def.Formula,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert component definition: %w", err)
	}

	return nil
}

// ========== TEMPLATES ==========

const templateColumns = `
	t.id, t.country_code, t.code, t.name, t.category, t.method,
	t.default_amount, t.min_amount, t.max_amount, t.metadata, t.created_at, t.updated_at`

func scanTemplate(row pgx.Row) (salarycomponent.Template, error) {
	return scanTemplateAfter(row)
}

func (r *salaryComponentRepository) ListTemplates(ctx context.Context, countryCode string) ([]salarycomponent.Template, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + templateColumns + ` FROM salary_component_templates t WHERE t.country_code = $1 ORDER BY t.code ASC`

	rows, err := q.Query(ctx, query, countryCode)
	if err != nil {
		return nil, fmt.Errorf("failed to list component templates: %w", err)
	}
	defer rows.Close()

	var templates []salarycomponent.Template
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan component template: %w", err)
		}
		templates = append(templates, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate component templates: %w", err)
	}

	return templates, nil
}

func (r *salaryComponentRepository) GetTemplateByID(ctx context.Context, id string) (salarycomponent.Template, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + templateColumns + ` FROM salary_component_templates t WHERE t.id = $1`

	t, err := scanTemplate(q.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return salarycomponent.Template{}, salarycomponent.ErrTemplateNotFound
		}
		return salarycomponent.Template{}, fmt.Errorf("failed to get component template: %w", err)
	}

	return t, nil
}

func (r *salaryComponentRepository) UpsertTemplate(ctx context.Context, tpl salarycomponent.Template) (salarycomponent.Template, error) {
	q := GetQuerier(ctx, r.db)

	metadata, err := json.Marshal(tpl.Metadata)
	if err != nil {
		return salarycomponent.Template{}, fmt.Errorf("failed to encode template metadata: %w", err)
	}

	query := `
		INSERT INTO salary_component_templates AS t (
			country_code, code, name, category, method, default_amount, min_amount, max_amount, metadata
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (country_code, code) DO UPDATE SET
			name = EXCLUDED.name,
			category = EXCLUDED.category,
			method = EXCLUDED.method,
			default_amount = EXCLUDED.default_amount,
			min_amount = EXCLUDED.min_amount,
			max_amount = EXCLUDED.max_amount,
			metadata = EXCLUDED.metadata,
			updated_at = NOW()
		RETURNING ` + templateColumns

	saved, err := scanTemplate(q.QueryRow(ctx, query,
		tpl.CountryCode, tpl.Code, tpl.Name, tpl.Category, tpl.Method,
		tpl.DefaultAmount, tpl.MinAmount, tpl.MaxAmount, metadata,
	))
	if err != nil {
		return salarycomponent.Template{}, fmt.Errorf("failed to upsert component template: %w", err)
	}

	return saved, nil
}

// ========== ACTIVATIONS ==========

func (r *salaryComponentRepository) ListActiveActivations(ctx context.Context, companyID string, countryCode string) ([]salarycomponent.Activation, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT a.id, a.company_id, a.template_id, a.code, a.custom_name, a.custom_amount, a.metadata,
			   a.is_active, a.created_at, a.updated_at, ` + templateColumns + `
		FROM company_component_activations a
		JOIN salary_component_templates t ON a.template_id = t.id
		WHERE a.company_id = $1 AND t.country_code = $2 AND a.is_active = TRUE
		ORDER BY a.code ASC
	`

	rows, err := q.Query(ctx, query, companyID, countryCode)
	if err != nil {
		return nil, fmt.Errorf("failed to list component activations: %w", err)
	}
	defer rows.Close()

	var activations []salarycomponent.Activation
	for rows.Next() {
		var (
			a        salarycomponent.Activation
			metadata []byte
		)
		// Activation columns precede the template columns in the row.
		t, err := scanTemplateAfter(rows,
			&a.ID, &a.CompanyID, &a.TemplateID, &a.Code, &a.CustomName, &a.CustomAmount, &metadata,
			&a.IsActive, &a.CreatedAt, &a.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan component activation: %w", err)
		}
		if err := unmarshalJSONB(metadata, &a.Metadata); err != nil {
			return nil, fmt.Errorf("failed to decode activation metadata: %w", err)
		}
		a.Template = &t
		activations = append(activations, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate component activations: %w", err)
	}

	return activations, nil
}

func scanTemplateAfter(row pgx.Row, leading ...interface{}) (salarycomponent.Template, error) {
	var (
		t        salarycomponent.Template
		metadata []byte
	)
	dest := append(leading,
		&t.ID, &t.CountryCode, &t.Code, &t.Name, &t.Category, &t.Method,
		&t.DefaultAmount, &t.MinAmount, &t.MaxAmount, &metadata, &t.CreatedAt, &t.UpdatedAt,
	)
	if err := row.Scan(dest...); err != nil {
		return t, err
	}
	if err := unmarshalJSONB(metadata, &t.Metadata); err != nil {
		return t, fmt.Errorf("failed to decode template metadata: %w", err)
	}
	return t, nil
}

func (r *salaryComponentRepository) CreateActivation(ctx context.Context, activation salarycomponent.Activation) (salarycomponent.Activation, error) {
	q := GetQuerier(ctx, r.db)

	metadata, err := json.Marshal(activation.Metadata)
	if err != nil {
		return salarycomponent.Activation{}, fmt.Errorf("failed to encode activation metadata: %w", err)
	}

	query := `
		INSERT INTO company_component_activations (
			company_id, template_id, code, custom_name, custom_amount, metadata, is_active
		) VALUES ($1, $2, $3, $4, $5, $6, TRUE)
		RETURNING id, company_id, template_id, code, custom_name, custom_amount, is_active, created_at, updated_at
	`

	var a salarycomponent.Activation
	err = q.QueryRow(ctx, query,
		activation.CompanyID, activation.TemplateID, activation.Code, activation.CustomName, activation.CustomAmount, metadata,
	).Scan(
		&a.ID, &a.CompanyID, &a.TemplateID, &a.Code, &a.CustomName, &a.CustomAmount, &a.IsActive, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "uk_company_active_template") {
			return salarycomponent.Activation{}, salarycomponent.ErrTemplateAlreadyActive
		}
		return salarycomponent.Activation{}, fmt.Errorf("failed to create component activation: %w", err)
	}
	a.Metadata = activation.Metadata
	a.Template = activation.Template

	return a, nil
}

func (r *salaryComponentRepository) DeactivateActivation(ctx context.Context, id string, companyID string) error {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE company_component_activations
		SET is_active = FALSE, updated_at = NOW()
		WHERE id = $1 AND company_id = $2 AND is_active = TRUE
		RETURNING id
	`

	var updatedID string
	if err := q.QueryRow(ctx, query, id, companyID).Scan(&updatedID); err != nil {
		if err == pgx.ErrNoRows {
			return salarycomponent.ErrActivationNotFound
		}
		return fmt.Errorf("failed to deactivate component activation: %w", err)
	}

	return nil
}
