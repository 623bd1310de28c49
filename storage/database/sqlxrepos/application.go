package sqlxrepos

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/simagang/simagang/core"
	"github.com/simagang/simagang/core/application"
)

type applicationRow struct {
	ID              string      `db:"id"`
	StudentID       string      `db:"student_id"`
	StudentName     string      `db:"student_name"`
	PostingID       string      `db:"posting_id"`
	PostingTitle    string      `db:"posting_title"`
	CompanyID       string      `db:"company_id"`
	Status          string      `db:"status"`
	CoverLetterFile string      `db:"cover_letter_file"`
	CVFile          string      `db:"cv_file"`
	PortfolioFile   null.String `db:"portfolio_file"`
	ContactNumber   string      `db:"contact_number"`
	StudentNote     string      `db:"student_note"`
	CompanyRemark   string      `db:"company_remark"`
	SubmittedAt     time.Time   `db:"submitted_at"`
	InterviewAt     null.Time   `db:"interview_at"`
	UpdatedAt       time.Time   `db:"updated_at"`
}

const applicationSelect = `SELECT a.id, a.student_id, u.name AS student_name, a.posting_id, p.title AS posting_title,
	p.company_id, a.status, a.cover_letter_file, a.cv_file, a.portfolio_file, a.contact_number, a.student_note,
	a.company_remark, a.submitted_at, a.interview_at, a.updated_at
	FROM applications a
	JOIN users u ON u.id = a.student_id
	JOIN postings p ON p.id = a.posting_id`

var applicationOrdering = map[string]string{
	"status":        "a.status",
	"submitted_at":  "a.submitted_at",
	"updated_at":    "a.updated_at",
	"interview_at":  "a.interview_at",
	"student_name":  "u.name",
	"posting_title": "p.title",
}

type applicationRepository struct {
	repository
}

var _ application.Repository = (*applicationRepository)(nil) // interface compliance check

func NewApplicationRepository(exec core.DBExecutor) application.Repository {
	return &applicationRepository{repository{exec: exec}}
}

func (row applicationRow) toApplication() application.Application {
	app := application.Application{
		ID:              row.ID,
		StudentID:       row.StudentID,
		StudentName:     row.StudentName,
		PostingID:       row.PostingID,
		PostingTitle:    row.PostingTitle,
		CompanyID:       row.CompanyID,
		Status:          application.Status(row.Status),
		CoverLetterFile: row.CoverLetterFile,
		CVFile:          row.CVFile,
		PortfolioFile:   row.PortfolioFile.String,
		ContactNumber:   row.ContactNumber,
		StudentNote:     row.StudentNote,
		CompanyRemark:   row.CompanyRemark,
		SubmittedAt:     row.SubmittedAt.UTC(),
		UpdatedAt:       row.UpdatedAt.UTC(),
	}
	if row.InterviewAt.Valid {
		t := row.InterviewAt.Time.UTC()
		app.InterviewAt = &t
	}
	return app
}

func nullTime(t *time.Time) null.Time {
	if t == nil {
		return null.Time{}
	}
	return null.TimeFrom(t.UTC())
}

func openStatuses() []string {
	statuses := make([]string, 0, len(application.OpenStatuses))
	for _, s := range application.OpenStatuses {
		statuses = append(statuses, string(s))
	}
	return statuses
}

func (repo applicationRepository) CreateApplication(ctx context.Context, app application.Application, exec ...core.DBExecutor) (application.Application, error) {
	exe := repo.getExec(exec)
	_, err := exe.ExecContext(ctx, exe.Rebind(`
		INSERT INTO applications (id, student_id, posting_id, status, cover_letter_file, cv_file, portfolio_file,
			contact_number, student_note, company_remark, submitted_at, interview_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		app.ID, app.StudentID, app.PostingID, string(app.Status), app.CoverLetterFile, app.CVFile,
		null.NewString(app.PortfolioFile, app.PortfolioFile != ""), app.ContactNumber, app.StudentNote,
		app.CompanyRemark, app.SubmittedAt.UTC(), nullTime(app.InterviewAt), app.UpdatedAt.UTC())
	if err != nil {
		if isUniqueViolation(err) {
			return application.Application{}, application.ErrDuplicate
		}
		return application.Application{}, errors.Wrap(err, "inserting application")
	}
	return repo.GetApplication(ctx, app.ID, exe)
}

func (repo applicationRepository) GetApplication(ctx context.Context, id string, exec ...core.DBExecutor) (application.Application, error) {
	var row applicationRow
	if err := get(ctx, repo.getExec(exec), &row, applicationSelect+` WHERE a.id = ?`, id); err != nil {
		return application.Application{}, trapNoRowsErr(err, application.ErrNotFound, "finding application")
	}
	return row.toApplication(), nil
}

func (repo applicationRepository) where(filter application.QueryFilter) where {
	var w where
	w.search(filter.Search, "u.name", "p.title")
	if filter.Status != "" {
		w.add("a.status = ?", string(filter.Status))
	}
	if filter.PostingID != "" {
		w.add("a.posting_id = ?", filter.PostingID)
	}
	if filter.StudentID != "" {
		w.add("a.student_id = ?", filter.StudentID)
	}
	if filter.CompanyID != "" {
		w.add("p.company_id = ?", filter.CompanyID)
	}
	if filter.Unplaced {
		w.add("NOT EXISTS (SELECT 1 FROM placements pl WHERE pl.application_id = a.id)")
	}
	return w
}

func (repo applicationRepository) QueryApplications(ctx context.Context, filter application.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]application.Application, error) {
	w := repo.where(filter)
	var rows []applicationRow
	query := applicationSelect + w.String() + orderBy(ordering, applicationOrdering, "a.submitted_at DESC")
	if err := sel(ctx, repo.getExec(exec), &rows, query, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying applications")
	}
	apps := make([]application.Application, 0, len(rows))
	for _, row := range rows {
		apps = append(apps, row.toApplication())
	}
	return apps, nil
}

func (repo applicationRepository) HasOpenApplication(ctx context.Context, studentID, postingID string, exec ...core.DBExecutor) (bool, error) {
	query, args, err := in(`SELECT COUNT(*) FROM applications WHERE student_id = ? AND posting_id = ? AND status IN (?)`,
		studentID, postingID, openStatuses())
	if err != nil {
		return false, err
	}
	var n int
	if err = get(ctx, repo.getExec(exec), &n, query, args...); err != nil {
		return false, errors.Wrap(err, "checking open applications")
	}
	return n > 0, nil
}

func (repo applicationRepository) UpdateStatus(ctx context.Context, app application.Application, from application.Status, exec ...core.DBExecutor) (bool, error) {
	n, err := execAffected(ctx, repo.getExec(exec),
		`UPDATE applications SET status = ?, company_remark = ?, interview_at = ?, updated_at = ?
		WHERE id = ? AND status = ?`,
		string(app.Status), app.CompanyRemark, nullTime(app.InterviewAt), app.UpdatedAt.UTC(), app.ID, string(from))
	if err != nil {
		return false, errors.Wrap(err, "updating application status")
	}
	return n == 1, nil
}

func (repo applicationRepository) DeleteApplication(ctx context.Context, id string, only []application.Status, exec ...core.DBExecutor) (bool, error) {
	query := `DELETE FROM applications WHERE id = ?`
	args := []interface{}{id}
	if len(only) > 0 {
		statuses := make([]string, 0, len(only))
		for _, s := range only {
			statuses = append(statuses, string(s))
		}
		query += ` AND status IN (?)`
		args = append(args, statuses)
	}
	query, args, err := in(query, args...)
	if err != nil {
		return false, err
	}
	n, err := execAffected(ctx, repo.getExec(exec), query, args...)
	if err != nil {
		if isForeignKeyViolation(err) {
			return false, application.ErrPlaced
		}
		return false, errors.Wrap(err, "deleting application")
	}
	return n == 1, nil
}

func (repo applicationRepository) IsPlaced(ctx context.Context, id string, exec ...core.DBExecutor) (bool, error) {
	var n int
	if err := get(ctx, repo.getExec(exec), &n, `SELECT COUNT(*) FROM placements WHERE application_id = ?`, id); err != nil {
		return false, errors.Wrap(err, "checking application placement")
	}
	return n > 0, nil
}

func (repo applicationRepository) Stats(ctx context.Context, filter application.QueryFilter) (application.Stats, error) {
	w := repo.where(filter)
	var stats application.Stats
	err := get(ctx, repo.exec, &stats, `
		SELECT COUNT(*) AS total,
			COALESCE(SUM(CASE WHEN a.status = 'pending' THEN 1 ELSE 0 END), 0) AS pending,
			COALESCE(SUM(CASE WHEN a.status = 'interview' THEN 1 ELSE 0 END), 0) AS interview,
			COALESCE(SUM(CASE WHEN a.status = 'proses' THEN 1 ELSE 0 END), 0) AS review,
			COALESCE(SUM(CASE WHEN a.status = 'diterima' THEN 1 ELSE 0 END), 0) AS accepted,
			COALESCE(SUM(CASE WHEN a.status = 'ditolak' THEN 1 ELSE 0 END), 0) AS rejected
		FROM applications a
		JOIN users u ON u.id = a.student_id
		JOIN postings p ON p.id = a.posting_id`+w.String(), w.args...)
	if err != nil {
		return application.Stats{}, errors.Wrap(err, "computing application statistics")
	}
	return stats, nil
}
