package assessment

import (
	"time"

	"github.com/simagang/simagang/core"
)

// RaterType tells who scored a placement. Its values are the rater's role.
type RaterType string

const (
	RaterCompany RaterType = RaterType(core.RoleCompany)
	RaterTeacher RaterType = RaterType(core.RoleTeacher)
)

func (rt RaterType) Role() core.Role { return core.Role(rt) }

type Assessment struct {
	ID            string    `json:"id"`
	PlacementID   string    `json:"placement_id"`
	StudentID     string    `json:"student_id"`
	StudentName   string    `json:"student_name"`
	RaterType     RaterType `json:"rater_type"`
	RaterID       string    `json:"rater_id"`
	RaterName     string    `json:"rater_name"`
	Discipline    int       `json:"discipline"`
	Teamwork      int       `json:"teamwork"`
	Initiative    int       `json:"initiative"`
	Technical     int       `json:"technical"`
	Communication int       `json:"communication"`
	Composite     float64   `json:"composite"`
	Grade         string    `json:"grade"`
	Comment       string    `json:"comment"`
	CreatedAt     time.Time `json:"created_at"`
}

func (a Assessment) Scores() []int {
	return []int{a.Discipline, a.Teamwork, a.Initiative, a.Technical, a.Communication}
}

// Composite is the arithmetic mean of the scores, rounded to two decimals.
func Composite(scores ...int) float64 {
	if len(scores) == 0 {
		return 0
	}
	var sum int
	for _, s := range scores {
		sum += s
	}
	return core.Round(float64(sum)/float64(len(scores)), 2)
}

// Grade buckets a composite score into a letter.
func Grade(composite float64) string {
	switch {
	case composite >= 85:
		return "A"
	case composite >= 70:
		return "B"
	case composite >= 60:
		return "C"
	case composite >= 50:
		return "D"
	default:
		return "E"
	}
}

// NewAssessment is a rater's scoring of a placement. Scores are pointers so a missing score is told apart from 0.
type NewAssessment struct {
	PlacementID   string    `json:"placement_id" validate:"required"`
	RaterType     RaterType `json:"rater_type" validate:"required,oneof=perusahaan guru"`
	Discipline    *int      `json:"discipline" validate:"required,min=0,max=100"`
	Teamwork      *int      `json:"teamwork" validate:"required,min=0,max=100"`
	Initiative    *int      `json:"initiative" validate:"required,min=0,max=100"`
	Technical     *int      `json:"technical" validate:"required,min=0,max=100"`
	Communication *int      `json:"communication" validate:"required,min=0,max=100"`
	Comment       string    `json:"comment" validate:"max=2000"`
}

func (na *NewAssessment) Clean() {
	na.PlacementID = core.CleanString(na.PlacementID)
	na.Comment = core.CleanString(na.Comment)
}

type QueryFilter struct {
	PlacementID string    `query:"placement_id"`
	RaterType   RaterType `query:"rater_type"`
	RaterID     string    `query:"rater_id"`
	StudentID   string    `query:"student_id"`
}
