package sqlxrepos

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/simagang/simagang/core"
	"github.com/simagang/simagang/core/posting"
)

type postingRow struct {
	ID             string     `db:"id"`
	CompanyID      string     `db:"company_id"`
	CompanyName    string     `db:"company_name"`
	Title          string     `db:"title"`
	Type           string     `db:"type"`
	Description    string     `db:"description"`
	Requirements   string     `db:"requirements"`
	Positions      int        `db:"positions"`
	Location       string     `db:"location"`
	DurationMonths null.Int   `db:"duration_months"`
	Compensation   null.Int64 `db:"compensation"`
	StartDate      core.Date  `db:"start_date"`
	EndDate        core.Date  `db:"end_date"`
	Status         string     `db:"status"`
	ApprovalStatus string     `db:"approval_status"`
	AdminRemark    string     `db:"admin_remark"`
	CreatedAt      time.Time  `db:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at"`
}

const postingSelect = `SELECT p.id, p.company_id, COALESCE(cp.company_name, u.name) AS company_name, p.title, p.type,
	p.description, p.requirements, p.positions, p.location, p.duration_months, p.compensation, p.start_date,
	p.end_date, p.status, p.approval_status, p.admin_remark, p.created_at, p.updated_at
	FROM postings p
	JOIN users u ON u.id = p.company_id
	LEFT JOIN company_profiles cp ON cp.user_id = p.company_id`

var postingOrdering = map[string]string{
	"title":           "p.title",
	"type":            "p.type",
	"status":          "p.status",
	"approval_status": "p.approval_status",
	"start_date":      "p.start_date",
	"created_at":      "p.created_at",
	"updated_at":      "p.updated_at",
	"company_name":    "company_name",
}

type postingRepository struct {
	repository
}

var _ posting.Repository = (*postingRepository)(nil) // interface compliance check

func NewPostingRepository(exec core.DBExecutor) posting.Repository {
	return &postingRepository{repository{exec: exec}}
}

func (row postingRow) toPosting() posting.Posting {
	return posting.Posting{
		ID:             row.ID,
		CompanyID:      row.CompanyID,
		CompanyName:    row.CompanyName,
		Title:          row.Title,
		Type:           posting.Type(row.Type),
		Description:    row.Description,
		Requirements:   row.Requirements,
		Positions:      row.Positions,
		Location:       row.Location,
		DurationMonths: row.DurationMonths.Ptr(),
		Compensation:   row.Compensation.Ptr(),
		StartDate:      row.StartDate,
		EndDate:        row.EndDate,
		Status:         posting.Status(row.Status),
		Approval:       posting.Approval(row.ApprovalStatus),
		AdminRemark:    row.AdminRemark,
		CreatedAt:      row.CreatedAt.UTC(),
		UpdatedAt:      row.UpdatedAt.UTC(),
	}
}

func (repo postingRepository) CreatePosting(ctx context.Context, p posting.Posting, exec ...core.DBExecutor) (posting.Posting, error) {
	exe := repo.getExec(exec)
	_, err := exe.ExecContext(ctx, exe.Rebind(`
		INSERT INTO postings (id, company_id, title, type, description, requirements, positions, location,
			duration_months, compensation, start_date, end_date, status, approval_status, admin_remark,
			created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		p.ID, p.CompanyID, p.Title, string(p.Type), p.Description, p.Requirements, p.Positions, p.Location,
		null.IntFromPtr(p.DurationMonths), null.Int64FromPtr(p.Compensation), p.StartDate, p.EndDate,
		string(p.Status), string(p.Approval), p.AdminRemark, p.CreatedAt.UTC(), p.UpdatedAt.UTC())
	if err != nil {
		return posting.Posting{}, errors.Wrap(err, "inserting posting")
	}
	return repo.GetPosting(ctx, p.ID, exe)
}

func (repo postingRepository) GetPosting(ctx context.Context, id string, exec ...core.DBExecutor) (posting.Posting, error) {
	var row postingRow
	if err := get(ctx, repo.getExec(exec), &row, postingSelect+` WHERE p.id = ?`, id); err != nil {
		return posting.Posting{}, trapNoRowsErr(err, posting.ErrNotFound, "finding posting")
	}
	return row.toPosting(), nil
}

func (repo postingRepository) where(filter posting.QueryFilter) where {
	var w where
	w.search(filter.Search, "p.title", "p.location", "COALESCE(cp.company_name, u.name)")
	if filter.CompanyID != "" {
		w.add("p.company_id = ?", filter.CompanyID)
	}
	if filter.Type != "" {
		w.add("p.type = ?", string(filter.Type))
	}
	if filter.Status != "" {
		w.add("p.status = ?", string(filter.Status))
	}
	if filter.Approval != "" {
		w.add("p.approval_status = ?", string(filter.Approval))
	}
	if filter.OpenOnly {
		w.add("p.status = ? AND p.approval_status = ?", string(posting.StatusActive), string(posting.ApprovalApproved))
	}
	return w
}

func (repo postingRepository) QueryPostings(ctx context.Context, filter posting.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]posting.Posting, error) {
	w := repo.where(filter)
	var rows []postingRow
	query := postingSelect + w.String() + orderBy(ordering, postingOrdering, "p.created_at DESC")
	if err := sel(ctx, repo.getExec(exec), &rows, query, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying postings")
	}
	postings := make([]posting.Posting, 0, len(rows))
	for _, row := range rows {
		postings = append(postings, row.toPosting())
	}
	return postings, nil
}

func (repo postingRepository) UpdateContent(ctx context.Context, p posting.Posting, exec ...core.DBExecutor) (posting.Posting, error) {
	exe := repo.getExec(exec)
	n, err := execAffected(ctx, exe, `
		UPDATE postings SET title = ?, type = ?, description = ?, requirements = ?, positions = ?, location = ?,
			duration_months = ?, compensation = ?, start_date = ?, end_date = ?, approval_status = ?,
			admin_remark = ?, updated_at = ?
		WHERE id = ?`,
		p.Title, string(p.Type), p.Description, p.Requirements, p.Positions, p.Location,
		null.IntFromPtr(p.DurationMonths), null.Int64FromPtr(p.Compensation), p.StartDate, p.EndDate,
		string(p.Approval), p.AdminRemark, p.UpdatedAt.UTC(), p.ID)
	if err != nil {
		return posting.Posting{}, errors.Wrap(err, "updating posting")
	}
	if n == 0 {
		return posting.Posting{}, posting.ErrNotFound
	}
	return repo.GetPosting(ctx, p.ID, exe)
}

func (repo postingRepository) SetApproval(
	ctx context.Context,
	id string,
	from, to posting.Approval,
	remark string,
	at time.Time,
	exec ...core.DBExecutor,
) (bool, error) {
	n, err := execAffected(ctx, repo.getExec(exec),
		`UPDATE postings SET approval_status = ?, admin_remark = ?, updated_at = ? WHERE id = ? AND approval_status = ?`,
		string(to), remark, at.UTC(), id, string(from))
	if err != nil {
		return false, errors.Wrap(err, "setting posting approval")
	}
	return n == 1, nil
}

func (repo postingRepository) SetStatus(ctx context.Context, id string, status posting.Status, at time.Time, exec ...core.DBExecutor) error {
	n, err := execAffected(ctx, repo.getExec(exec),
		`UPDATE postings SET status = ?, updated_at = ? WHERE id = ?`, string(status), at.UTC(), id)
	if err != nil {
		return errors.Wrap(err, "setting posting status")
	}
	if n == 0 {
		return posting.ErrNotFound
	}
	return nil
}

func (repo postingRepository) DeletePosting(ctx context.Context, id string, exec ...core.DBExecutor) error {
	n, err := execAffected(ctx, repo.getExec(exec), `DELETE FROM postings WHERE id = ?`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return posting.ErrHasApplications
		}
		return errors.Wrap(err, "deleting posting")
	}
	if n == 0 {
		return posting.ErrNotFound
	}
	return nil
}

func (repo postingRepository) CountApplications(ctx context.Context, id string, exec ...core.DBExecutor) (int, error) {
	var n int
	if err := get(ctx, repo.getExec(exec), &n, `SELECT COUNT(*) FROM applications WHERE posting_id = ?`, id); err != nil {
		return 0, errors.Wrap(err, "counting posting applications")
	}
	return n, nil
}

func (repo postingRepository) Stats(ctx context.Context, filter posting.QueryFilter) (posting.Stats, error) {
	w := repo.where(filter)
	var stats posting.Stats
	err := get(ctx, repo.exec, &stats, `
		SELECT COUNT(*) AS total,
			COALESCE(SUM(CASE WHEN p.approval_status = 'pending' THEN 1 ELSE 0 END), 0) AS pending,
			COALESCE(SUM(CASE WHEN p.approval_status = 'approved' THEN 1 ELSE 0 END), 0) AS approved,
			COALESCE(SUM(CASE WHEN p.approval_status = 'rejected' THEN 1 ELSE 0 END), 0) AS rejected,
			COALESCE(SUM(CASE WHEN p.status = 'aktif' THEN 1 ELSE 0 END), 0) AS active,
			COALESCE(SUM(CASE WHEN p.type = 'magang' THEN 1 ELSE 0 END), 0) AS internship,
			COALESCE(SUM(CASE WHEN p.type = 'kerja' THEN 1 ELSE 0 END), 0) AS job
		FROM postings p
		JOIN users u ON u.id = p.company_id
		LEFT JOIN company_profiles cp ON cp.user_id = p.company_id`+w.String(), w.args...)
	if err != nil {
		return posting.Stats{}, errors.Wrap(err, "computing posting statistics")
	}
	return stats, nil
}
