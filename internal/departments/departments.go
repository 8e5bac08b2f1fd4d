// Package departments manages the departments that raise material issue requisitions.
package departments

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/scmdesk/scmdesk/internal/listcache"
	"github.com/scmdesk/scmdesk/internal/platform/db"
	"github.com/scmdesk/scmdesk/internal/shared"
)

// Department is an internal cost center.
type Department struct {
	ID         uuid.UUID `json:"id"`
	DeptCode   string    `json:"dept_code"`
	DeptName   string    `json:"dept_name"`
	HeadOfDept string    `json:"head_of_dept,omitempty"`
	CostCenter string    `json:"cost_center,omitempty"`
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Input carries the editable department fields.
type Input struct {
	DeptCode   string
	DeptName   string
	HeadOfDept string
	CostCenter string
	IsActive   *bool
}

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	List(ctx context.Context) ([]Department, error)
	Get(ctx context.Context, id uuid.UUID) (Department, error)
	Insert(ctx context.Context, d Department) error
	Update(ctx context.Context, d Department) error
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Repository persists departments in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const columns = `id, dept_code, dept_name, COALESCE(head_of_dept,''), COALESCE(cost_center,''), is_active, created_at, updated_at`

func scan(row pgx.Row) (Department, error) {
	var d Department
	err := row.Scan(&d.ID, &d.DeptCode, &d.DeptName, &d.HeadOfDept, &d.CostCenter, &d.IsActive, &d.CreatedAt, &d.UpdatedAt)
	return d, err
}

// List returns every department ordered by name.
func (r *Repository) List(ctx context.Context) ([]Department, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+columns+` FROM departments ORDER BY dept_name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Department
	for rows.Next() {
		d, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// Get loads one department.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (Department, error) {
	d, err := scan(r.pool.QueryRow(ctx, `SELECT `+columns+` FROM departments WHERE id=$1`, id))
	if err != nil {
		return Department{}, db.Translate(err)
	}
	return d, nil
}

// Insert stores a department.
func (r *Repository) Insert(ctx context.Context, d Department) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO departments
		(id, dept_code, dept_name, head_of_dept, cost_center, is_active, created_at, updated_at)
		VALUES ($1,$2,$3,NULLIF($4,''),NULLIF($5,''),$6,$7,$7)`,
		d.ID, d.DeptCode, d.DeptName, d.HeadOfDept, d.CostCenter, d.IsActive, d.CreatedAt)
	return db.Translate(err)
}

// Update writes the editable columns.
func (r *Repository) Update(ctx context.Context, d Department) error {
	tag, err := r.pool.Exec(ctx, `UPDATE departments SET dept_code=$2, dept_name=$3,
		head_of_dept=NULLIF($4,''), cost_center=NULLIF($5,''), is_active=$6, updated_at=$7 WHERE id=$1`,
		d.ID, d.DeptCode, d.DeptName, d.HeadOfDept, d.CostCenter, d.IsActive, d.UpdatedAt)
	if err != nil {
		return db.Translate(err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Service coordinates department use cases.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
	cache *listcache.Cache
	now   func() time.Time
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort, cache *listcache.Cache) *Service {
	return &Service{repo: repo, audit: audit, cache: cache, now: time.Now}
}

var sorts = shared.Comparators[Department]{
	"dept_name": func(a, b Department) bool { return a.DeptName < b.DeptName },
	"dept_code": func(a, b Department) bool { return a.DeptCode < b.DeptCode },
}

// All returns every department through the collection cache.
func (s *Service) All(ctx context.Context) ([]Department, error) {
	return listcache.Collection(ctx, s.cache, listcache.Departments, s.repo.List)
}

// List searches by code or name. filters.Status accepts "active" or "inactive".
func (s *Service) List(ctx context.Context, filters shared.ListFilters) (shared.Page[Department], error) {
	rows, err := s.All(ctx)
	if err != nil {
		return shared.Page[Department]{}, err
	}
	rows = shared.FilterRows(rows, filters.Search, func(d Department) []string {
		return []string{d.DeptCode, d.DeptName}
	})
	if filters.Status != "" {
		want, err := parseActive(filters.Status)
		if err != nil {
			return shared.Page[Department]{}, err
		}
		kept := rows[:0:0]
		for _, d := range rows {
			if d.IsActive == want {
				kept = append(kept, d)
			}
		}
		rows = kept
	}
	shared.SortRows(rows, filters, sorts, "dept_name")
	return shared.Paginate(rows, filters), nil
}

// Get returns one department.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Department, error) {
	return s.repo.Get(ctx, id)
}

// ActiveByName finds an active department by name, ignoring case.
func (s *Service) ActiveByName(ctx context.Context, name string) (Department, error) {
	rows, err := s.All(ctx)
	if err != nil {
		return Department{}, err
	}
	for _, d := range rows {
		if d.IsActive && strings.EqualFold(d.DeptName, strings.TrimSpace(name)) {
			return d, nil
		}
	}
	return Department{}, fmt.Errorf("%w: department %q", shared.ErrNotFound, name)
}

// Create validates and stores a department; new departments are active unless stated.
func (s *Service) Create(ctx context.Context, input Input, actor string) (Department, error) {
	input = normalise(input)
	if err := validate(input); err != nil {
		return Department{}, err
	}
	now := s.now().UTC()
	d := Department{
		ID:         uuid.New(),
		DeptCode:   input.DeptCode,
		DeptName:   input.DeptName,
		HeadOfDept: input.HeadOfDept,
		CostCenter: input.CostCenter,
		IsActive:   input.IsActive == nil || *input.IsActive,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.repo.Insert(ctx, d); err != nil {
		return Department{}, fmt.Errorf("create department: %w", err)
	}
	s.recordAudit(ctx, actor, "DEPARTMENT_CREATE", d.ID)
	_ = s.cache.Invalidate(ctx, listcache.Departments)
	return d, nil
}

// Update replaces the editable fields of a department.
func (s *Service) Update(ctx context.Context, id uuid.UUID, input Input, actor string) (Department, error) {
	input = normalise(input)
	if err := validate(input); err != nil {
		return Department{}, err
	}
	d, err := s.repo.Get(ctx, id)
	if err != nil {
		return Department{}, err
	}
	d.DeptCode = input.DeptCode
	d.DeptName = input.DeptName
	d.HeadOfDept = input.HeadOfDept
	d.CostCenter = input.CostCenter
	if input.IsActive != nil {
		d.IsActive = *input.IsActive
	}
	d.UpdatedAt = s.now().UTC()
	if err := s.repo.Update(ctx, d); err != nil {
		return Department{}, fmt.Errorf("update department: %w", err)
	}
	s.recordAudit(ctx, actor, "DEPARTMENT_UPDATE", d.ID)
	_ = s.cache.Invalidate(ctx, listcache.Departments)
	return d, nil
}

func normalise(in Input) Input {
	in.DeptCode = strings.ToUpper(strings.TrimSpace(in.DeptCode))
	in.DeptName = strings.TrimSpace(in.DeptName)
	in.HeadOfDept = strings.TrimSpace(in.HeadOfDept)
	in.CostCenter = strings.TrimSpace(in.CostCenter)
	return in
}

func validate(in Input) error {
	fields := shared.FieldErrors{}
	fields.Required("dept_code", in.DeptCode)
	fields.Required("dept_name", in.DeptName)
	return fields.Err()
}

func parseActive(value string) (bool, error) {
	switch strings.ToLower(value) {
	case "active":
		return true, nil
	case "inactive":
		return false, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("%w: status must be active or inactive", shared.ErrValidation)
	}
	return b, nil
}

func (s *Service) recordAudit(ctx context.Context, actor, action string, id uuid.UUID) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{Actor: actor, Action: action, Entity: "department", EntityID: id.String()})
}
