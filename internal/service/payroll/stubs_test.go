package payroll

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/attendance"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/countryrule"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/employee"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/salarycomponent"
	"github.com/cmlabs-hris/payroll-engine-go/internal/fixtures"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/formula"
	"github.com/go-chi/jwtauth/v5"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/shopspring/decimal"
)

const (
	testCompanyID = "company-1"
	testUserID    = "user-1"
)

func claimsContext(companyID, userID string) context.Context {
	tok := jwt.New()
	_ = tok.Set("company_id", companyID)
	_ = tok.Set("user_id", userID)
	return jwtauth.NewContext(context.Background(), tok, nil)
}

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

// ========== TRANSACTOR ==========

type passthroughTransactor struct{}

func (passthroughTransactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type txReleasesKey struct{}

// scopedTransactor releases scope locks taken inside fn once fn returns.
type scopedTransactor struct{}

func (scopedTransactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	var releases []func()
	defer func() {
		for _, release := range releases {
			release()
		}
	}()
	return fn(context.WithValue(ctx, txReleasesKey{}, &releases))
}

// ========== COUNTRY RULES ==========

type stubRules struct {
	configs    map[string]countryrule.CountryConfig
	transports []countryrule.CityTransportMinimum
	calls      int
	mu         sync.Mutex
}

func newCIRules() *stubRules {
	return &stubRules{
		configs:    map[string]countryrule.CountryConfig{fixtures.CountryCodeCI: fixtures.CIConfig()},
		transports: fixtures.CITransportMinimums(),
	}
}

func (s *stubRules) GetCountryConfig(_ context.Context, countryCode string, date time.Time) (countryrule.CountryConfig, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	cfg, ok := s.configs[countryCode]
	if !ok || !cfg.IsActiveAt(date) {
		return countryrule.CountryConfig{}, countryrule.ErrConfigNotFound
	}
	return cfg, nil
}

func (s *stubRules) GetCityTransportMinimum(_ context.Context, countryCode, city string, _ time.Time) (countryrule.CityTransportMinimum, error) {
	for _, m := range s.transports {
		if m.CountryCode == countryCode && m.City == city {
			return m, nil
		}
	}
	return countryrule.CityTransportMinimum{}, countryrule.ErrTransportMinimumNotFound
}

// ========== SALARY COMPONENTS ==========

type stubComponents struct {
	salarycomponent.SalaryComponentRepository
	definitions []salarycomponent.Definition
	templates   []salarycomponent.Template
	activations []salarycomponent.Activation
}

func newCIComponents() *stubComponents {
	templates := fixtures.CITemplates()
	for i := range templates {
		templates[i].ID = fmt.Sprintf("tpl-%d", i+1)
	}
	return &stubComponents{definitions: fixtures.CIDefinitions(), templates: templates}
}

func (s *stubComponents) ListDefinitions(_ context.Context, _ string) ([]salarycomponent.Definition, error) {
	return s.definitions, nil
}

func (s *stubComponents) ListTemplates(_ context.Context, _ string) ([]salarycomponent.Template, error) {
	return s.templates, nil
}

func (s *stubComponents) ListActiveActivations(_ context.Context, _ string, _ string) ([]salarycomponent.Activation, error) {
	return s.activations, nil
}

// ========== EMPLOYEES ==========

type memEmployees struct {
	employees  []employee.Employee
	components map[string][]employee.SalaryComponent
	listErr    error
}

func (m *memEmployees) add(emp employee.Employee, components ...employee.SalaryComponent) {
	if m.components == nil {
		m.components = make(map[string][]employee.SalaryComponent)
	}
	m.employees = append(m.employees, emp)
	sort.Slice(m.employees, func(i, j int) bool { return m.employees[i].ID < m.employees[j].ID })
	m.components[emp.ID] = components
}

func (m *memEmployees) eligible(companyID string, frequency employee.PaymentFrequency) []employee.Employee {
	var out []employee.Employee
	for _, e := range m.employees {
		if e.CompanyID == companyID &&
			e.EmploymentStatus == employee.EmploymentStatusActive &&
			e.EffectivePaymentFrequency() == frequency {
			out = append(out, e)
		}
	}
	return out
}

func (m *memEmployees) GetByID(_ context.Context, id string, companyID string) (employee.Employee, error) {
	for _, e := range m.employees {
		if e.ID == id && e.CompanyID == companyID {
			return e, nil
		}
	}
	return employee.Employee{}, employee.ErrEmployeeNotFound
}

func (m *memEmployees) CountEligible(_ context.Context, companyID string, frequency employee.PaymentFrequency) (int, error) {
	return len(m.eligible(companyID, frequency)), nil
}

func (m *memEmployees) ListEligible(_ context.Context, companyID string, frequency employee.PaymentFrequency, afterID string, limit int) ([]employee.Employee, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []employee.Employee
	for _, e := range m.eligible(companyID, frequency) {
		if e.ID > afterID {
			out = append(out, e)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *memEmployees) GetSalaryComponents(_ context.Context, _ string, ids []string) (map[string][]employee.SalaryComponent, error) {
	out := make(map[string][]employee.SalaryComponent, len(ids))
	for _, id := range ids {
		out[id] = m.components[id]
	}
	return out, nil
}

func ciEmployee(id string) employee.Employee {
	return employee.Employee{
		ID:               id,
		CompanyID:        testCompanyID,
		EmployeeCode:     "EMP-" + id,
		FullName:         "Employee " + id,
		RateType:         employee.RateTypeMonthly,
		ContractType:     employee.ContractTypeCDI,
		WeeklyHours:      "40h",
		MaritalStatus:    employee.MaritalStatusSingle,
		HireDate:         date("2020-01-06"),
		SectorCode:       "services",
		Classification:   employee.ClassificationLocal,
		EmploymentStatus: employee.EmploymentStatusActive,
	}
}

func baseSalary(id string, amount int64) employee.SalaryComponent {
	return employee.SalaryComponent{EmployeeID: id, Code: "11", Amount: d(amount)}
}

// ========== ATTENDANCE ==========

type stubAttendance struct {
	aggregates map[string]attendance.Aggregate
}

func (s *stubAttendance) GetApprovedAggregates(_ context.Context, _ string, ids []string, _, _ time.Time) (map[string]attendance.Aggregate, error) {
	out := make(map[string]attendance.Aggregate)
	for _, id := range ids {
		if a, ok := s.aggregates[id]; ok {
			out[id] = a
		}
	}
	return out, nil
}

// ========== PAYROLL REPOSITORY ==========

type memPayroll struct {
	mu           sync.Mutex
	seq          int
	runs         map[string]payroll.PayrollRun
	items        map[string]map[string]payroll.PayrollLineItem
	progress     map[string]payroll.PayrollRunProgress
	monthlyLines []payroll.MonthlyAggregate
	upserts      int
	scopes       map[string]*sync.Mutex
	scopeLocks   int
}

func newMemPayroll() *memPayroll {
	return &memPayroll{
		runs:     make(map[string]payroll.PayrollRun),
		items:    make(map[string]map[string]payroll.PayrollLineItem),
		progress: make(map[string]payroll.PayrollRunProgress),
	}
}

func (m *memPayroll) lookup(id, companyID string) (payroll.PayrollRun, error) {
	run, ok := m.runs[id]
	if !ok || run.CompanyID != companyID {
		return payroll.PayrollRun{}, payroll.ErrRunNotFound
	}
	return run, nil
}

func (m *memPayroll) CreateRun(_ context.Context, run payroll.PayrollRun) (payroll.PayrollRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	run.ID = fmt.Sprintf("run-%d", m.seq)
	run.CreatedAt = time.Now()
	run.UpdatedAt = run.CreatedAt
	m.runs[run.ID] = run
	return run, nil
}

func (m *memPayroll) GetRunByID(_ context.Context, id string, companyID string) (payroll.PayrollRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lookup(id, companyID)
}

func (m *memPayroll) GetRunForUpdate(ctx context.Context, id string, companyID string) (payroll.PayrollRun, error) {
	return m.GetRunByID(ctx, id, companyID)
}

func (m *memPayroll) ListRuns(_ context.Context, companyID string, filter payroll.RunFilter) ([]payroll.PayrollRun, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []payroll.PayrollRun
	for _, r := range m.runs {
		if r.CompanyID != companyID {
			continue
		}
		if filter.Status != nil && string(r.Status) != *filter.Status {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, int64(len(out)), nil
}

func (m *memPayroll) LockRunScope(ctx context.Context, companyID string, frequency employee.PaymentFrequency) error {
	key := companyID + ":" + string(frequency)
	m.mu.Lock()
	if m.scopes == nil {
		m.scopes = make(map[string]*sync.Mutex)
	}
	scope, ok := m.scopes[key]
	if !ok {
		scope = &sync.Mutex{}
		m.scopes[key] = scope
	}
	m.scopeLocks++
	m.mu.Unlock()

	scope.Lock()
	if releases, ok := ctx.Value(txReleasesKey{}).(*[]func()); ok {
		*releases = append(*releases, scope.Unlock)
	} else {
		scope.Unlock()
	}
	return nil
}

func (m *memPayroll) HasOverlappingRun(_ context.Context, companyID string, frequency employee.PaymentFrequency, start, end time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.runs {
		if r.CompanyID == companyID && r.PaymentFrequency == frequency &&
			!r.PeriodStart.After(end) && !r.PeriodEnd.Before(start) {
			return true, nil
		}
	}
	return false, nil
}

func (m *memPayroll) setStatus(id, companyID string, status payroll.RunStatus, mutate func(*payroll.PayrollRun)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, err := m.lookup(id, companyID)
	if err != nil {
		return err
	}
	run.Status = status
	if mutate != nil {
		mutate(&run)
	}
	m.runs[id] = run
	return nil
}

func (m *memPayroll) UpdateRunStatus(_ context.Context, id string, companyID string, status payroll.RunStatus) error {
	return m.setStatus(id, companyID, status, nil)
}

func (m *memPayroll) StartCalculation(_ context.Context, id string, companyID string, employeeCount int) error {
	return m.setStatus(id, companyID, payroll.RunStatusCalculating, func(r *payroll.PayrollRun) {
		r.EmployeeCount = employeeCount
	})
}

func (m *memPayroll) CompleteRun(_ context.Context, id string, companyID string, employeeCount int) (payroll.PayrollRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, err := m.lookup(id, companyID)
	if err != nil {
		return payroll.PayrollRun{}, err
	}
	run.Status = payroll.RunStatusCalculated
	run.EmployeeCount = employeeCount
	run.TotalGross, run.TotalNet, run.TotalEmployerCost = decimal.Zero, decimal.Zero, decimal.Zero
	for _, li := range m.items[id] {
		run.TotalGross = run.TotalGross.Add(li.GrossSalary)
		run.TotalNet = run.TotalNet.Add(li.NetSalary)
		run.TotalEmployerCost = run.TotalEmployerCost.Add(li.EmployerCost)
	}
	m.runs[id] = run
	return run, nil
}

func (m *memPayroll) ApproveRun(_ context.Context, id string, companyID string, approvedBy string, approvedAt time.Time) error {
	return m.setStatus(id, companyID, payroll.RunStatusApproved, func(r *payroll.PayrollRun) {
		r.ApprovedBy = &approvedBy
		r.ApprovedAt = &approvedAt
	})
}

func (m *memPayroll) MarkRunPaid(_ context.Context, id string, companyID string, paidAt time.Time) error {
	return m.setStatus(id, companyID, payroll.RunStatusPaid, func(r *payroll.PayrollRun) {
		r.PaidAt = &paidAt
	})
}

func (m *memPayroll) DeleteRun(_ context.Context, id string, companyID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, err := m.lookup(id, companyID); err != nil {
		return err
	}
	delete(m.runs, id)
	delete(m.items, id)
	delete(m.progress, id)
	return nil
}

func (m *memPayroll) UpsertLineItem(_ context.Context, item payroll.PayrollLineItem) (payroll.PayrollLineItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upserts++
	if m.items[item.RunID] == nil {
		m.items[item.RunID] = make(map[string]payroll.PayrollLineItem)
	}
	if existing, ok := m.items[item.RunID][item.EmployeeID]; ok {
		item.ID = existing.ID
		item.CreatedAt = existing.CreatedAt
	} else {
		item.ID = item.RunID + "/" + item.EmployeeID
		item.CreatedAt = item.CalculatedAt
	}
	item.UpdatedAt = item.CalculatedAt
	m.items[item.RunID][item.EmployeeID] = item
	return item, nil
}

func (m *memPayroll) GetLineItem(_ context.Context, runID string, employeeID string, companyID string) (payroll.PayrollLineItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	li, ok := m.items[runID][employeeID]
	if !ok || li.CompanyID != companyID {
		return payroll.PayrollLineItem{}, payroll.ErrLineItemNotFound
	}
	return li, nil
}

func (m *memPayroll) ListLineItems(_ context.Context, runID string, companyID string, _ payroll.LineItemFilter) ([]payroll.PayrollLineItem, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []payroll.PayrollLineItem
	for _, li := range m.items[runID] {
		if li.CompanyID == companyID {
			out = append(out, li)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EmployeeID < out[j].EmployeeID })
	return out, int64(len(out)), nil
}

func (m *memPayroll) DeleteLineItemsByRun(_ context.Context, runID string, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, runID)
	return nil
}

func (m *memPayroll) DeleteStaleLineItems(_ context.Context, runID string, _ string, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, li := range m.items[runID] {
		if li.CalculatedAt.Before(before) {
			delete(m.items[runID], id)
			n++
		}
	}
	return n, nil
}

func (m *memPayroll) ResetProgress(ctx context.Context, progress payroll.PayrollRunProgress) error {
	return m.SaveProgress(ctx, progress)
}

func (m *memPayroll) GetProgress(_ context.Context, runID string, companyID string) (payroll.PayrollRunProgress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.progress[runID]
	if !ok || p.CompanyID != companyID {
		return payroll.PayrollRunProgress{}, payroll.ErrProgressNotFound
	}
	return p, nil
}

func (m *memPayroll) SaveProgress(_ context.Context, progress payroll.PayrollRunProgress) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	progress.Errors = append([]payroll.EmployeeError(nil), progress.Errors...)
	m.progress[progress.RunID] = progress
	return nil
}

func (m *memPayroll) DeleteProgress(_ context.Context, runID string, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.progress, runID)
	return nil
}

func (m *memPayroll) ListStaleProgress(_ context.Context, updatedBefore time.Time) ([]payroll.PayrollRunProgress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []payroll.PayrollRunProgress
	for _, p := range m.progress {
		if p.InFlight() && p.UpdatedAt.Before(updatedBefore) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memPayroll) PauseProgressIfStale(_ context.Context, runID string, updatedBefore time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.progress[runID]
	if !ok || !p.InFlight() || !p.UpdatedAt.Before(updatedBefore) {
		return false, nil
	}
	p.Status = payroll.ProgressStatusPaused
	p.UpdatedAt = time.Now()
	m.progress[runID] = p
	return true, nil
}

func (m *memPayroll) ListMonthlyLineTotals(_ context.Context, _ string, _, _ time.Time, contractType employee.ContractType) ([]payroll.MonthlyAggregate, error) {
	var out []payroll.MonthlyAggregate
	for _, l := range m.monthlyLines {
		if l.ContractType == contractType {
			out = append(out, l)
		}
	}
	return out, nil
}

// ========== RUNNER / NOTIFIER ==========

type recordingRunner struct {
	jobs []payroll.BatchJob
	err  error
}

func (r *recordingRunner) Submit(_ context.Context, job payroll.BatchJob) error {
	if r.err != nil {
		return r.err
	}
	r.jobs = append(r.jobs, job)
	return nil
}

type recordingNotifier struct {
	mu        sync.Mutex
	snapshots []payroll.PayrollRunProgress
}

func (n *recordingNotifier) NotifyProgress(p payroll.PayrollRunProgress) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.snapshots = append(n.snapshots, p)
}

// ========== WIRING ==========

func newTestCalculator(rules *stubRules, comps *stubComponents, repo *memPayroll) *LineCalculator {
	return NewLineCalculator(
		rules,
		comps,
		repo,
		NewComponentResolver(formula.NewEvaluator()),
		NewProrationEngine(),
		NewTaxCalculator(nil),
	)
}
