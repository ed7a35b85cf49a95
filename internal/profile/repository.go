package profile

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/craftfolio/backend/internal/models"
)

// ErrNotFound is returned when the target row does not exist or belongs
// to a different account. The two cases are deliberately not
// distinguishable: ownership is enforced inside every query.
var ErrNotFound = errors.New("not found")

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetProfile returns the account's profile, or nil when none exists yet.
func (r *Repository) GetProfile(ctx context.Context, accountID uuid.UUID) (*models.Profile, error) {
	var p models.Profile
	err := r.pool.QueryRow(ctx, `
		SELECT id, account_id, full_name, headline, summary, location, website, updated_at
		FROM profiles WHERE account_id = $1
	`, accountID).Scan(&p.ID, &p.AccountID, &p.FullName, &p.Headline, &p.Summary, &p.Location, &p.Website, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// UpsertProfile creates or replaces the account's single profile row.
func (r *Repository) UpsertProfile(ctx context.Context, p *models.Profile) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO profiles (id, account_id, full_name, headline, summary, location, website)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (account_id) DO UPDATE
		SET full_name = EXCLUDED.full_name,
		    headline = EXCLUDED.headline,
		    summary = EXCLUDED.summary,
		    location = EXCLUDED.location,
		    website = EXCLUDED.website,
		    updated_at = now()
		RETURNING id, updated_at
	`, p.ID, p.AccountID, p.FullName, p.Headline, p.Summary, p.Location, p.Website).Scan(&p.ID, &p.UpdatedAt)
}

// --- education ---

func (r *Repository) ListEducation(ctx context.Context, accountID uuid.UUID) ([]*models.EducationEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, account_id, school, degree, field, start_year, end_year, created_at, updated_at
		FROM education_entries WHERE account_id = $1 ORDER BY start_year DESC, created_at DESC
	`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.EducationEntry
	for rows.Next() {
		var e models.EducationEntry
		if err := rows.Scan(&e.ID, &e.AccountID, &e.School, &e.Degree, &e.Field, &e.StartYear, &e.EndYear, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, &e)
	}
	return list, rows.Err()
}

func (r *Repository) CreateEducation(ctx context.Context, e *models.EducationEntry) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO education_entries (id, account_id, school, degree, field, start_year, end_year)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`, e.ID, e.AccountID, e.School, e.Degree, e.Field, e.StartYear, e.EndYear).Scan(&e.CreatedAt, &e.UpdatedAt)
}

func (r *Repository) UpdateEducation(ctx context.Context, e *models.EducationEntry) error {
	err := r.pool.QueryRow(ctx, `
		UPDATE education_entries
		SET school = $3, degree = $4, field = $5, start_year = $6, end_year = $7, updated_at = now()
		WHERE id = $1 AND account_id = $2
		RETURNING created_at, updated_at
	`, e.ID, e.AccountID, e.School, e.Degree, e.Field, e.StartYear, e.EndYear).Scan(&e.CreatedAt, &e.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func (r *Repository) DeleteEducation(ctx context.Context, accountID, id uuid.UUID) error {
	return r.deleteOwned(ctx, "education_entries", accountID, id)
}

// --- projects ---

func (r *Repository) ListProjects(ctx context.Context, accountID uuid.UUID) ([]*models.ProjectEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, account_id, name, description, url, created_at, updated_at
		FROM project_entries WHERE account_id = $1 ORDER BY created_at DESC
	`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.ProjectEntry
	for rows.Next() {
		var p models.ProjectEntry
		if err := rows.Scan(&p.ID, &p.AccountID, &p.Name, &p.Description, &p.URL, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, &p)
	}
	return list, rows.Err()
}

func (r *Repository) CreateProject(ctx context.Context, p *models.ProjectEntry) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO project_entries (id, account_id, name, description, url)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at
	`, p.ID, p.AccountID, p.Name, p.Description, p.URL).Scan(&p.CreatedAt, &p.UpdatedAt)
}

func (r *Repository) UpdateProject(ctx context.Context, p *models.ProjectEntry) error {
	err := r.pool.QueryRow(ctx, `
		UPDATE project_entries
		SET name = $3, description = $4, url = $5, updated_at = now()
		WHERE id = $1 AND account_id = $2
		RETURNING created_at, updated_at
	`, p.ID, p.AccountID, p.Name, p.Description, p.URL).Scan(&p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func (r *Repository) DeleteProject(ctx context.Context, accountID, id uuid.UUID) error {
	return r.deleteOwned(ctx, "project_entries", accountID, id)
}

// --- skills ---

func (r *Repository) ListSkills(ctx context.Context, accountID uuid.UUID) ([]*models.SkillEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, account_id, name, level, created_at, updated_at
		FROM skill_entries WHERE account_id = $1 ORDER BY name
	`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.SkillEntry
	for rows.Next() {
		var s models.SkillEntry
		if err := rows.Scan(&s.ID, &s.AccountID, &s.Name, &s.Level, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, &s)
	}
	return list, rows.Err()
}

func (r *Repository) CreateSkill(ctx context.Context, s *models.SkillEntry) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO skill_entries (id, account_id, name, level)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at
	`, s.ID, s.AccountID, s.Name, s.Level).Scan(&s.CreatedAt, &s.UpdatedAt)
}

func (r *Repository) UpdateSkill(ctx context.Context, s *models.SkillEntry) error {
	err := r.pool.QueryRow(ctx, `
		UPDATE skill_entries
		SET name = $3, level = $4, updated_at = now()
		WHERE id = $1 AND account_id = $2
		RETURNING created_at, updated_at
	`, s.ID, s.AccountID, s.Name, s.Level).Scan(&s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func (r *Repository) DeleteSkill(ctx context.Context, accountID, id uuid.UUID) error {
	return r.deleteOwned(ctx, "skill_entries", accountID, id)
}

// --- experience ---

func (r *Repository) ListExperience(ctx context.Context, accountID uuid.UUID) ([]*models.ExperienceEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, account_id, company, title, description, start_date, end_date, created_at, updated_at
		FROM experience_entries WHERE account_id = $1 ORDER BY start_date DESC
	`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.ExperienceEntry
	for rows.Next() {
		var e models.ExperienceEntry
		if err := rows.Scan(&e.ID, &e.AccountID, &e.Company, &e.Title, &e.Description, &e.StartDate, &e.EndDate, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, &e)
	}
	return list, rows.Err()
}

func (r *Repository) CreateExperience(ctx context.Context, e *models.ExperienceEntry) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO experience_entries (id, account_id, company, title, description, start_date, end_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`, e.ID, e.AccountID, e.Company, e.Title, e.Description, e.StartDate, e.EndDate).Scan(&e.CreatedAt, &e.UpdatedAt)
}

func (r *Repository) UpdateExperience(ctx context.Context, e *models.ExperienceEntry) error {
	err := r.pool.QueryRow(ctx, `
		UPDATE experience_entries
		SET company = $3, title = $4, description = $5, start_date = $6, end_date = $7, updated_at = now()
		WHERE id = $1 AND account_id = $2
		RETURNING created_at, updated_at
	`, e.ID, e.AccountID, e.Company, e.Title, e.Description, e.StartDate, e.EndDate).Scan(&e.CreatedAt, &e.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func (r *Repository) DeleteExperience(ctx context.Context, accountID, id uuid.UUID) error {
	return r.deleteOwned(ctx, "experience_entries", accountID, id)
}

func (r *Repository) deleteOwned(ctx context.Context, table string, accountID, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM `+table+` WHERE id = $1 AND account_id = $2`, id, accountID)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
