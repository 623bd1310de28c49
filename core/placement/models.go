package placement

import (
	"time"

	"github.com/simagang/simagang/core"
)

type Status string

const (
	StatusActive    Status = "aktif"
	StatusCompleted Status = "selesai"
	StatusCancelled Status = "dibatalkan"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusActive, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Transition is the only path to a placement status change.
// An active placement may stay active or end; an ended placement accepts no change at all.
func Transition(from, to Status) error {
	if from == StatusActive && to.IsValid() {
		return nil
	}
	action := "set status " + string(to) + " on"
	if from == to {
		action = "update"
	}
	return core.NewTransitionError("placement", string(from), action)
}

type Placement struct {
	ID            string    `json:"id"`
	ApplicationID string    `json:"application_id"`
	StudentID     string    `json:"student_id"`
	StudentName   string    `json:"student_name"`
	CompanyID     string    `json:"company_id"`
	CompanyName   string    `json:"company_name"`
	PostingID     string    `json:"posting_id"`
	PostingTitle  string    `json:"posting_title"`
	TeacherID     string    `json:"teacher_id"`
	TeacherName   string    `json:"teacher_name"`
	StartDate     core.Date `json:"start_date"`
	EndDate       core.Date `json:"end_date"`
	Status        Status    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type NewPlacement struct {
	ApplicationID string    `json:"application_id" validate:"required"`
	TeacherID     string    `json:"teacher_id" validate:"required"`
	StartDate     core.Date `json:"start_date" validate:"required"`
	EndDate       core.Date `json:"end_date" validate:"required"`
}

func (np *NewPlacement) Clean() {
	np.ApplicationID = core.CleanString(np.ApplicationID)
	np.TeacherID = core.CleanString(np.TeacherID)
}

// UpdatePlacement holds the admin's changes; empty fields keep their current value.
type UpdatePlacement struct {
	TeacherID string    `json:"teacher_id"`
	StartDate core.Date `json:"start_date"`
	EndDate   core.Date `json:"end_date"`
	Status    Status    `json:"status" validate:"omitempty,oneof=aktif selesai dibatalkan"`
}

func (up *UpdatePlacement) Clean() {
	up.TeacherID = core.CleanString(up.TeacherID)
}

func checkDates(start, end core.Date) error {
	if !end.After(start) {
		return core.NewFieldError("end_date", "end date must be after start date")
	}
	return nil
}

type QueryFilter struct {
	Search    string `query:"search"`
	Status    Status `query:"status"`
	TeacherID string `query:"teacher_id"`
	StudentID string `query:"student_id"`
	CompanyID string `query:"company_id"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}
