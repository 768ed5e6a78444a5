package repository

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/collabthon/collabthon-api/internal/models"
	"github.com/lib/pq"
	"github.com/pkg/errors"
)

// ProjectFilter narrows a project listing; zero values mean "no filter".
type ProjectFilter struct {
	Skill      string
	MinBudget  *float64
	MaxBudget  *float64
	RemoteOnly *bool
	Limit      int
	Offset     int
}

type ProjectRepository interface {
	Create(project models.Project) (models.Project, error)
	GetByID(id string) (models.Project, error)
	ListOpen(filter ProjectFilter) ([]models.Project, int, error)
	UpdateStatus(id, ownerID string, status models.ProjectStatus) (models.Project, error)
	CountOpenByOwner(ownerID string) (int, error)
}

type projectRepository struct {
	db *sql.DB
}

func NewProjectRepository(db *sql.DB) ProjectRepository {
	return &projectRepository{db: db}
}

const projectColumns = `id, owner_id, title, description, required_skills, budget_min, budget_max,
	timeline, status, is_remote, created_at, updated_at, expires_at`

func (r *projectRepository) Create(project models.Project) (models.Project, error) {
	query := fmt.Sprintf(`
		INSERT INTO projects (owner_id, title, description, required_skills, budget_min, budget_max, timeline, is_remote, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING %s;`, projectColumns)

	row := r.db.QueryRow(query,
		project.OwnerID,
		project.Title,
		project.Description,
		pq.Array(project.RequiredSkills),
		project.BudgetMin,
		project.BudgetMax,
		project.Timeline,
		project.IsRemote,
		project.ExpiresAt,
	)
	return scanProject(row)
}

func (r *projectRepository) GetByID(id string) (models.Project, error) {
	query := fmt.Sprintf(`SELECT %s FROM projects WHERE id = $1;`, projectColumns)
	return scanProject(r.db.QueryRow(query, id))
}

func (r *projectRepository) ListOpen(filter ProjectFilter) ([]models.Project, int, error) {
	where := []string{"status = 'open'"}
	args := []interface{}{}

	if filter.Skill != "" {
		args = append(args, filter.Skill)
		where = append(where, fmt.Sprintf("$%d = ANY(required_skills)", len(args)))
	}
	if filter.MinBudget != nil {
		args = append(args, *filter.MinBudget)
		where = append(where, fmt.Sprintf("budget_min >= $%d", len(args)))
	}
	if filter.MaxBudget != nil {
		args = append(args, *filter.MaxBudget)
		where = append(where, fmt.Sprintf("budget_max <= $%d", len(args)))
	}
	if filter.RemoteOnly != nil {
		args = append(args, *filter.RemoteOnly)
		where = append(where, fmt.Sprintf("is_remote = $%d", len(args)))
	}

	whereClause := strings.Join(where, " AND ")

	var total int
	countQuery := "SELECT COUNT(*) FROM projects WHERE " + whereClause
	if err := r.db.QueryRow(countQuery, args...).Scan(&total); err != nil {
		return nil, 0, errors.Wrap(err, "count projects")
	}

	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	args = append(args, limit)
	limitPos := len(args)
	args = append(args, filter.Offset)
	offsetPos := len(args)

	query := fmt.Sprintf(`
		SELECT %s FROM projects
		WHERE %s
		ORDER BY created_at DESC, id DESC
		LIMIT $%d OFFSET $%d;`, projectColumns, whereClause, limitPos, offsetPos)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, 0, errors.Wrap(err, "list projects")
	}
	defer rows.Close()

	var projects []models.Project
	for rows.Next() {
		project, err := scanProjectRow(rows)
		if err != nil {
			return nil, 0, err
		}
		projects = append(projects, project)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return projects, total, nil
}

func (r *projectRepository) UpdateStatus(id, ownerID string, status models.ProjectStatus) (models.Project, error) {
	query := fmt.Sprintf(`
		UPDATE projects
		SET status = $1, updated_at = now()
		WHERE id = $2 AND owner_id = $3
		RETURNING %s;`, projectColumns)
	return scanProject(r.db.QueryRow(query, status, id, ownerID))
}

func (r *projectRepository) CountOpenByOwner(ownerID string) (int, error) {
	const query = `SELECT COUNT(*) FROM projects WHERE owner_id = $1 AND status = 'open';`
	var count int
	if err := r.db.QueryRow(query, ownerID).Scan(&count); err != nil {
		return 0, errors.Wrap(err, "count open projects")
	}
	return count, nil
}

func scanProject(row *sql.Row) (models.Project, error) {
	project, err := scanProjectRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Project{}, models.ErrNotFound
		}
		return models.Project{}, err
	}
	return project, nil
}

func scanProjectRow(scanner interface {
	Scan(dest ...interface{}) error
}) (models.Project, error) {
	var (
		project models.Project
		skills  pq.StringArray
	)
	err := scanner.Scan(
		&project.ID,
		&project.OwnerID,
		&project.Title,
		&project.Description,
		&skills,
		&project.BudgetMin,
		&project.BudgetMax,
		&project.Timeline,
		&project.Status,
		&project.IsRemote,
		&project.CreatedAt,
		&project.UpdatedAt,
		&project.ExpiresAt,
	)
	if err != nil {
		return models.Project{}, err
	}
	project.RequiredSkills = skills
	return project, nil
}
