package posting

import (
	"time"

	"github.com/simagang/simagang/core"
)

type Type string

const (
	TypeInternship Type = "magang"
	TypeJob        Type = "kerja"
)

// Status is the lifecycle of a posting as managed by its company or an admin.
type Status string

const (
	StatusDraft    Status = "draft"
	StatusActive   Status = "aktif"
	StatusInactive Status = "nonaktif"
	StatusClosed   Status = "ditutup"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusDraft, StatusActive, StatusInactive, StatusClosed:
		return true
	}
	return false
}

// Approval is the admin's decision on a posting.
type Approval string

const (
	ApprovalPending  Approval = "pending"
	ApprovalApproved Approval = "approved"
	ApprovalRejected Approval = "rejected"
)

// Decide is the only way an approval changes: a decision can only be taken on a pending posting.
func Decide(current, to Approval) error {
	if current != ApprovalPending {
		return core.NewConflictError("posting has already been " + string(current))
	}
	if to != ApprovalApproved && to != ApprovalRejected {
		return core.NewFieldError("approval_status", "invalid decision")
	}
	return nil
}

type Posting struct {
	ID             string    `json:"id"`
	CompanyID      string    `json:"company_id"`
	CompanyName    string    `json:"company_name"`
	Title          string    `json:"title"`
	Type           Type      `json:"type"`
	Description    string    `json:"description"`
	Requirements   string    `json:"requirements"`
	Positions      int       `json:"positions"`
	Location       string    `json:"location"`
	DurationMonths *int      `json:"duration_months"`
	Compensation   *int64    `json:"compensation"`
	StartDate      core.Date `json:"start_date"`
	EndDate        core.Date `json:"end_date"`
	Status         Status    `json:"status"`
	Approval       Approval  `json:"approval_status"`
	AdminRemark    string    `json:"admin_remark"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// AcceptsApplications is true only for active postings that an admin approved.
func (p Posting) AcceptsApplications() bool {
	return p.Status == StatusActive && p.Approval == ApprovalApproved
}

// Content is the part of a posting its company writes.
type Content struct {
	Title          string    `json:"title" validate:"required,max=200"`
	Type           Type      `json:"type" validate:"required,oneof=magang kerja"`
	Description    string    `json:"description" validate:"required"`
	Requirements   string    `json:"requirements"`
	Positions      int       `json:"positions" validate:"required,min=1"`
	Location       string    `json:"location" validate:"required"`
	DurationMonths *int      `json:"duration_months" validate:"omitempty,min=1,max=24"`
	Compensation   *int64    `json:"compensation" validate:"omitempty,min=0"`
	StartDate      core.Date `json:"start_date"`
	EndDate        core.Date `json:"end_date"`
}

func (c *Content) Clean() {
	c.Title = core.CleanString(c.Title)
	c.Description = core.CleanString(c.Description)
	c.Requirements = core.CleanString(c.Requirements)
	c.Location = core.CleanString(c.Location)
}

func (c Content) checkDates() error {
	if !c.StartDate.IsZero() && !c.EndDate.IsZero() && !c.EndDate.After(c.StartDate) {
		return core.NewFieldError("end_date", "end date must be after start date")
	}
	return nil
}

type NewPosting struct {
	Content
	Status Status `json:"status" validate:"omitempty,oneof=draft aktif nonaktif ditutup"`
}

type StatusChange struct {
	Status Status `json:"status" validate:"required,oneof=draft aktif nonaktif ditutup"`
}

type Decision struct {
	Remark string `json:"remark"`
}

type Rejection struct {
	Reason string `json:"reason"`
}

type QueryFilter struct {
	Search    string   `query:"search"`
	CompanyID string   `query:"company_id"`
	Type      Type     `query:"type"`
	Status    Status   `query:"status"`
	Approval  Approval `query:"approval_status"`
	OpenOnly  bool     `query:"-"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}

type Stats struct {
	Total      int `json:"total" db:"total"`
	Pending    int `json:"pending" db:"pending"`
	Approved   int `json:"approved" db:"approved"`
	Rejected   int `json:"rejected" db:"rejected"`
	Active     int `json:"aktif" db:"active"`
	Internship int `json:"magang" db:"internship"`
	Job        int `json:"kerja" db:"job"`
}
