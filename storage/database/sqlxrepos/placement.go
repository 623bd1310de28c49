package sqlxrepos

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/simagang/simagang/core"
	"github.com/simagang/simagang/core/placement"
)

type placementRow struct {
	ID            string    `db:"id"`
	ApplicationID string    `db:"application_id"`
	StudentID     string    `db:"student_id"`
	StudentName   string    `db:"student_name"`
	CompanyID     string    `db:"company_id"`
	CompanyName   string    `db:"company_name"`
	PostingID     string    `db:"posting_id"`
	PostingTitle  string    `db:"posting_title"`
	TeacherID     string    `db:"teacher_id"`
	TeacherName   string    `db:"teacher_name"`
	StartDate     core.Date `db:"start_date"`
	EndDate       core.Date `db:"end_date"`
	Status        string    `db:"status"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}

const placementSelect = `SELECT pl.id, pl.application_id, pl.student_id, s.name AS student_name, pl.company_id,
	COALESCE(cp.company_name, c.name) AS company_name, pl.posting_id, p.title AS posting_title, pl.teacher_id,
	t.name AS teacher_name, pl.start_date, pl.end_date, pl.status, pl.created_at, pl.updated_at
	FROM placements pl
	JOIN users s ON s.id = pl.student_id
	JOIN users c ON c.id = pl.company_id
	JOIN users t ON t.id = pl.teacher_id
	JOIN postings p ON p.id = pl.posting_id
	LEFT JOIN company_profiles cp ON cp.user_id = pl.company_id`

var placementOrdering = map[string]string{
	"status":       "pl.status",
	"start_date":   "pl.start_date",
	"end_date":     "pl.end_date",
	"created_at":   "pl.created_at",
	"student_name": "s.name",
	"teacher_name": "t.name",
}

type placementRepository struct {
	repository
}

var _ placement.Repository = (*placementRepository)(nil) // interface compliance check

func NewPlacementRepository(exec core.DBExecutor) placement.Repository {
	return &placementRepository{repository{exec: exec}}
}

func (row placementRow) toPlacement() placement.Placement {
	return placement.Placement{
		ID:            row.ID,
		ApplicationID: row.ApplicationID,
		StudentID:     row.StudentID,
		StudentName:   row.StudentName,
		CompanyID:     row.CompanyID,
		CompanyName:   row.CompanyName,
		PostingID:     row.PostingID,
		PostingTitle:  row.PostingTitle,
		TeacherID:     row.TeacherID,
		TeacherName:   row.TeacherName,
		StartDate:     row.StartDate,
		EndDate:       row.EndDate,
		Status:        placement.Status(row.Status),
		CreatedAt:     row.CreatedAt.UTC(),
		UpdatedAt:     row.UpdatedAt.UTC(),
	}
}

func (repo placementRepository) CreatePlacement(ctx context.Context, p placement.Placement, exec ...core.DBExecutor) (placement.Placement, error) {
	exe := repo.getExec(exec)
	_, err := exe.ExecContext(ctx, exe.Rebind(`
		INSERT INTO placements (id, application_id, student_id, company_id, posting_id, teacher_id, start_date,
			end_date, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		p.ID, p.ApplicationID, p.StudentID, p.CompanyID, p.PostingID, p.TeacherID, p.StartDate, p.EndDate,
		string(p.Status), p.CreatedAt.UTC(), p.UpdatedAt.UTC())
	if err != nil {
		if isUniqueViolation(err) {
			return placement.Placement{}, placement.ErrAlreadyPlaced
		}
		return placement.Placement{}, errors.Wrap(err, "inserting placement")
	}
	return repo.GetPlacement(ctx, p.ID, exe)
}

func (repo placementRepository) GetPlacement(ctx context.Context, id string, exec ...core.DBExecutor) (placement.Placement, error) {
	var row placementRow
	if err := get(ctx, repo.getExec(exec), &row, placementSelect+` WHERE pl.id = ?`, id); err != nil {
		return placement.Placement{}, trapNoRowsErr(err, placement.ErrNotFound, "finding placement")
	}
	return row.toPlacement(), nil
}

func (repo placementRepository) QueryPlacements(ctx context.Context, filter placement.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]placement.Placement, error) {
	var w where
	w.search(filter.Search, "s.name", "t.name", "p.title", "COALESCE(cp.company_name, c.name)")
	if filter.Status != "" {
		w.add("pl.status = ?", string(filter.Status))
	}
	if filter.TeacherID != "" {
		w.add("pl.teacher_id = ?", filter.TeacherID)
	}
	if filter.StudentID != "" {
		w.add("pl.student_id = ?", filter.StudentID)
	}
	if filter.CompanyID != "" {
		w.add("pl.company_id = ?", filter.CompanyID)
	}

	var rows []placementRow
	query := placementSelect + w.String() + orderBy(ordering, placementOrdering, "pl.created_at DESC")
	if err := sel(ctx, repo.getExec(exec), &rows, query, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying placements")
	}
	placements := make([]placement.Placement, 0, len(rows))
	for _, row := range rows {
		placements = append(placements, row.toPlacement())
	}
	return placements, nil
}

func (repo placementRepository) UpdatePlacement(ctx context.Context, p placement.Placement, from placement.Status, exec ...core.DBExecutor) (bool, error) {
	n, err := execAffected(ctx, repo.getExec(exec),
		`UPDATE placements SET teacher_id = ?, start_date = ?, end_date = ?, status = ?, updated_at = ?
		WHERE id = ? AND status = ?`,
		p.TeacherID, p.StartDate, p.EndDate, string(p.Status), p.UpdatedAt.UTC(), p.ID, string(from))
	if err != nil {
		return false, errors.Wrap(err, "updating placement")
	}
	return n == 1, nil
}

func (repo placementRepository) DeletePlacement(ctx context.Context, id string, exec ...core.DBExecutor) error {
	exe := repo.getExec(exec)
	if _, err := execAffected(ctx, exe, `DELETE FROM assessments WHERE placement_id = ?`, id); err != nil {
		return errors.Wrap(err, "deleting placement assessments")
	}
	n, err := execAffected(ctx, exe, `DELETE FROM placements WHERE id = ?`, id)
	if err != nil {
		return errors.Wrap(err, "deleting placement")
	}
	if n == 0 {
		return placement.ErrNotFound
	}
	return nil
}
