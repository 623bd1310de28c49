package application

import (
	"time"

	"github.com/simagang/simagang/core"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusInterview Status = "interview"
	StatusReview    Status = "proses"
	StatusAccepted  Status = "diterima"
	StatusRejected  Status = "ditolak"

	// StatusWithdrawn is never stored: a withdrawn application is removed.
	StatusWithdrawn Status = "withdrawn"
)

var OpenStatuses = []Status{StatusPending, StatusInterview, StatusReview}

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusInterview, StatusReview, StatusAccepted, StatusRejected:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition can leave s.
func (s Status) IsTerminal() bool {
	return s == StatusAccepted || s == StatusRejected
}

// Event is a request to move an application to another status.
type Event string

const (
	EventReview            Event = "review"
	EventScheduleInterview Event = "schedule interview"
	EventAccept            Event = "accept"
	EventReject            Event = "reject"
	EventWithdraw          Event = "withdraw"
)

var transitions = map[Status]map[Event]Status{
	StatusPending: {
		EventReview:            StatusReview,
		EventScheduleInterview: StatusInterview,
		EventAccept:            StatusAccepted,
		EventReject:            StatusRejected,
		EventWithdraw:          StatusWithdrawn,
	},
	StatusInterview: {
		EventAccept: StatusAccepted,
		EventReject: StatusRejected,
	},
	StatusReview: {
		EventAccept: StatusAccepted,
		EventReject: StatusRejected,
	},
}

// Transition is the single authority on application status changes.
// It returns the status reached by applying ev to from, or a TransitionError.
func Transition(from Status, ev Event) (Status, error) {
	if to, ok := transitions[from][ev]; ok {
		return to, nil
	}
	return "", core.NewTransitionError("application", string(from), string(ev))
}

type Application struct {
	ID              string     `json:"id"`
	StudentID       string     `json:"student_id"`
	StudentName     string     `json:"student_name"`
	PostingID       string     `json:"posting_id"`
	PostingTitle    string     `json:"posting_title"`
	CompanyID       string     `json:"company_id"`
	Status          Status     `json:"status"`
	CoverLetterFile string     `json:"cover_letter_file"`
	CVFile          string     `json:"cv_file"`
	PortfolioFile   string     `json:"portfolio_file"`
	ContactNumber   string     `json:"contact_number"`
	StudentNote     string     `json:"student_note"`
	CompanyRemark   string     `json:"company_remark"`
	SubmittedAt     time.Time  `json:"submitted_at"`
	InterviewAt     *time.Time `json:"interview_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// NewApplication is what a student submits. Files are references to already stored documents.
type NewApplication struct {
	PostingID       string `json:"posting_id" validate:"required"`
	CoverLetterFile string `json:"cover_letter_file" validate:"required"`
	CVFile          string `json:"cv_file" validate:"required"`
	PortfolioFile   string `json:"portfolio_file"`
	ContactNumber   string `json:"contact_number" validate:"required,phone"`
	StudentNote     string `json:"student_note" validate:"max=2000"`
}

func (na *NewApplication) Clean() {
	na.PostingID = core.CleanString(na.PostingID)
	na.CoverLetterFile = core.CleanString(na.CoverLetterFile)
	na.CVFile = core.CleanString(na.CVFile)
	na.PortfolioFile = core.CleanString(na.PortfolioFile)
	na.ContactNumber = core.CleanString(na.ContactNumber)
	na.StudentNote = core.CleanString(na.StudentNote)
}

type InterviewSchedule struct {
	InterviewAt *time.Time `json:"interview_at" validate:"required"`
	Note        string     `json:"note"`
}

type Decision struct {
	Note string `json:"note"`
}

type Rejection struct {
	Reason string `json:"reason"`
}

type QueryFilter struct {
	Search    string `query:"search"`
	Status    Status `query:"status"`
	PostingID string `query:"posting_id"`
	StudentID string `query:"student_id"`
	CompanyID string `query:"company_id"`
	// Unplaced keeps accepted applications that no placement references yet.
	Unplaced bool `query:"-"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}

type Stats struct {
	Total     int `json:"total" db:"total"`
	Pending   int `json:"pending" db:"pending"`
	Interview int `json:"interview" db:"interview"`
	Review    int `json:"proses" db:"review"`
	Accepted  int `json:"diterima" db:"accepted"`
	Rejected  int `json:"ditolak" db:"rejected"`
}
