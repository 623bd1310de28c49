package sqlxrepos

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/simagang/simagang/core"
	"github.com/simagang/simagang/core/assessment"
)

type assessmentRow struct {
	ID            string    `db:"id"`
	PlacementID   string    `db:"placement_id"`
	StudentID     string    `db:"student_id"`
	StudentName   string    `db:"student_name"`
	RaterType     string    `db:"rater_type"`
	RaterID       string    `db:"rater_id"`
	RaterName     string    `db:"rater_name"`
	Discipline    int       `db:"discipline"`
	Teamwork      int       `db:"teamwork"`
	Initiative    int       `db:"initiative"`
	Technical     int       `db:"technical"`
	Communication int       `db:"communication"`
	Composite     float64   `db:"composite"`
	Comment       string    `db:"comment"`
	CreatedAt     time.Time `db:"created_at"`
}

const assessmentSelect = `SELECT a.id, a.placement_id, pl.student_id, s.name AS student_name, a.rater_type, a.rater_id,
	COALESCE(cp.company_name, r.name) AS rater_name, a.discipline, a.teamwork, a.initiative, a.technical,
	a.communication, a.composite, a.comment, a.created_at
	FROM assessments a
	JOIN placements pl ON pl.id = a.placement_id
	JOIN users s ON s.id = pl.student_id
	JOIN users r ON r.id = a.rater_id
	LEFT JOIN company_profiles cp ON cp.user_id = a.rater_id`

type assessmentRepository struct {
	repository
}

var _ assessment.Repository = (*assessmentRepository)(nil) // interface compliance check

func NewAssessmentRepository(exec core.DBExecutor) assessment.Repository {
	return &assessmentRepository{repository{exec: exec}}
}

func (row assessmentRow) toAssessment() assessment.Assessment {
	return assessment.Assessment{
		ID:            row.ID,
		PlacementID:   row.PlacementID,
		StudentID:     row.StudentID,
		StudentName:   row.StudentName,
		RaterType:     assessment.RaterType(row.RaterType),
		RaterID:       row.RaterID,
		RaterName:     row.RaterName,
		Discipline:    row.Discipline,
		Teamwork:      row.Teamwork,
		Initiative:    row.Initiative,
		Technical:     row.Technical,
		Communication: row.Communication,
		Composite:     row.Composite,
		Comment:       row.Comment,
		CreatedAt:     row.CreatedAt.UTC(),
	}
}

func (repo assessmentRepository) CreateAssessment(ctx context.Context, a assessment.Assessment, exec ...core.DBExecutor) (assessment.Assessment, error) {
	exe := repo.getExec(exec)
	_, err := exe.ExecContext(ctx, exe.Rebind(`
		INSERT INTO assessments (id, placement_id, rater_type, rater_id, discipline, teamwork, initiative, technical,
			communication, composite, comment, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		a.ID, a.PlacementID, string(a.RaterType), a.RaterID, a.Discipline, a.Teamwork, a.Initiative, a.Technical,
		a.Communication, a.Composite, a.Comment, a.CreatedAt.UTC())
	if err != nil {
		if isUniqueViolation(err) {
			return assessment.Assessment{}, assessment.ErrDuplicate
		}
		return assessment.Assessment{}, errors.Wrap(err, "inserting assessment")
	}
	return repo.GetAssessment(ctx, a.ID, exe)
}

func (repo assessmentRepository) GetAssessment(ctx context.Context, id string, exec ...core.DBExecutor) (assessment.Assessment, error) {
	var row assessmentRow
	if err := get(ctx, repo.getExec(exec), &row, assessmentSelect+` WHERE a.id = ?`, id); err != nil {
		return assessment.Assessment{}, trapNoRowsErr(err, assessment.ErrNotFound, "finding assessment")
	}
	return row.toAssessment(), nil
}

func (repo assessmentRepository) QueryAssessments(ctx context.Context, filter assessment.QueryFilter, exec ...core.DBExecutor) ([]assessment.Assessment, error) {
	var w where
	if filter.PlacementID != "" {
		w.add("a.placement_id = ?", filter.PlacementID)
	}
	if filter.RaterType != "" {
		w.add("a.rater_type = ?", string(filter.RaterType))
	}
	if filter.RaterID != "" {
		w.add("a.rater_id = ?", filter.RaterID)
	}
	if filter.StudentID != "" {
		w.add("pl.student_id = ?", filter.StudentID)
	}

	var rows []assessmentRow
	if err := sel(ctx, repo.getExec(exec), &rows, assessmentSelect+w.String()+` ORDER BY a.created_at DESC`, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying assessments")
	}
	as := make([]assessment.Assessment, 0, len(rows))
	for _, row := range rows {
		as = append(as, row.toAssessment())
	}
	return as, nil
}

func (repo assessmentRepository) Exists(ctx context.Context, placementID string, rt assessment.RaterType, exec ...core.DBExecutor) (bool, error) {
	var n int
	err := get(ctx, repo.getExec(exec), &n,
		`SELECT COUNT(*) FROM assessments WHERE placement_id = ? AND rater_type = ?`, placementID, string(rt))
	if err != nil {
		return false, errors.Wrap(err, "checking assessment existence")
	}
	return n > 0, nil
}

func (repo assessmentRepository) DeleteAssessment(ctx context.Context, id string, exec ...core.DBExecutor) error {
	n, err := execAffected(ctx, repo.getExec(exec), `DELETE FROM assessments WHERE id = ?`, id)
	if err != nil {
		return errors.Wrap(err, "deleting assessment")
	}
	if n == 0 {
		return assessment.ErrNotFound
	}
	return nil
}
