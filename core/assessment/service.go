package assessment

import (
	"context"

	"github.com/google/uuid"

	"github.com/simagang/simagang/core"
	"github.com/simagang/simagang/core/placement"
)

var (
	ErrNotFound           = core.NewNotFoundError("assessment")
	ErrPlacementCancelled = core.NewConflictError("cancelled placements cannot be assessed")
	ErrDuplicate          = core.NewConflictError("this placement has already been assessed by this rater type")
)

type (
	Repository interface {
		// CreateAssessment returns ErrDuplicate if the placement already has an assessment of that rater type.
		CreateAssessment(ctx context.Context, a Assessment, exec ...core.DBExecutor) (Assessment, error)
		GetAssessment(ctx context.Context, id string, exec ...core.DBExecutor) (Assessment, error)
		QueryAssessments(ctx context.Context, filter QueryFilter, exec ...core.DBExecutor) ([]Assessment, error)
		Exists(ctx context.Context, placementID string, rt RaterType, exec ...core.DBExecutor) (bool, error)
		DeleteAssessment(ctx context.Context, id string, exec ...core.DBExecutor) error
	}

	Service interface {
		Create(ctx context.Context, actor core.Actor, na NewAssessment) (Assessment, error)
		Get(ctx context.Context, actor core.Actor, id string) (Assessment, error)
		Query(ctx context.Context, actor core.Actor, filter QueryFilter) ([]Assessment, error)
		Delete(ctx context.Context, actor core.Actor, id string) error
	}

	service struct {
		db         core.DB
		repo       Repository
		placements placement.Repository
		validate   *core.Validator
	}
)

var _ Service = (*service)(nil)

func NewService(db core.DB, repo Repository, placements placement.Repository, validate *core.Validator) Service {
	return &service{
		db:         db,
		repo:       repo,
		placements: placements,
		validate:   validate,
	}
}

func graded(a Assessment) Assessment {
	a.Grade = Grade(a.Composite)
	return a
}

func visible(actor core.Actor, a Assessment) bool {
	switch actor.Role {
	case core.RoleAdmin:
		return true
	case core.RoleStudent:
		return a.StudentID == actor.UserID
	default:
		return a.RaterID == actor.UserID
	}
}

// Create records the actor's scoring of a placement it hosts or supervises.
func (svc *service) Create(ctx context.Context, actor core.Actor, na NewAssessment) (Assessment, error) {
	if err := actor.Can(core.ActionAssessmentCreate); err != nil {
		return Assessment{}, err
	}
	na.Clean()
	if err := svc.validate.Struct(na); err != nil {
		return Assessment{}, err
	}
	if na.RaterType.Role() != actor.Role {
		return Assessment{}, core.NewAuthorizationError(actor.Role, core.ActionAssessmentCreate)
	}

	var a Assessment
	err := core.WithTx(ctx, svc.db, func(tx core.DBTransactor) error {
		p, err := svc.placements.GetPlacement(ctx, na.PlacementID, tx)
		if err != nil {
			return err
		}
		rater := p.CompanyID
		if na.RaterType == RaterTeacher {
			rater = p.TeacherID
		}
		if rater != actor.UserID {
			return core.NewAuthorizationError(actor.Role, core.ActionAssessmentCreate)
		}
		if p.Status == placement.StatusCancelled {
			return ErrPlacementCancelled
		}
		exists, err := svc.repo.Exists(ctx, p.ID, na.RaterType, tx)
		if err != nil {
			return err
		}
		if exists {
			return ErrDuplicate
		}

		a = Assessment{
			ID:            uuid.New().String(),
			PlacementID:   p.ID,
			StudentID:     p.StudentID,
			StudentName:   p.StudentName,
			RaterType:     na.RaterType,
			RaterID:       actor.UserID,
			Discipline:    *na.Discipline,
			Teamwork:      *na.Teamwork,
			Initiative:    *na.Initiative,
			Technical:     *na.Technical,
			Communication: *na.Communication,
			Comment:       na.Comment,
			CreatedAt:     core.Now(),
		}
		a.Composite = Composite(a.Scores()...)
		a, err = svc.repo.CreateAssessment(ctx, a, tx)
		return err
	})
	if err != nil {
		return Assessment{}, err
	}
	return graded(a), nil
}

func (svc *service) Get(ctx context.Context, actor core.Actor, id string) (Assessment, error) {
	if err := actor.Can(core.ActionAssessmentView); err != nil {
		return Assessment{}, err
	}
	a, err := svc.repo.GetAssessment(ctx, id)
	if err != nil {
		return Assessment{}, err
	}
	if !visible(actor, a) {
		return Assessment{}, ErrNotFound
	}
	return graded(a), nil
}

// Query lists all assessments to admins, the ones on their placements to students and their own to raters.
func (svc *service) Query(ctx context.Context, actor core.Actor, filter QueryFilter) ([]Assessment, error) {
	if err := actor.Can(core.ActionAssessmentView); err != nil {
		return nil, err
	}
	switch actor.Role {
	case core.RoleAdmin:
	case core.RoleStudent:
		filter.StudentID = actor.UserID
	default:
		filter.RaterID = actor.UserID
	}
	as, err := svc.repo.QueryAssessments(ctx, filter)
	if err != nil {
		return nil, err
	}
	for i := range as {
		as[i] = graded(as[i])
	}
	return as, nil
}

// Delete removes an assessment; its placement is left untouched.
func (svc *service) Delete(ctx context.Context, actor core.Actor, id string) error {
	if err := actor.Can(core.ActionAssessmentDelete); err != nil {
		return err
	}
	return svc.repo.DeleteAssessment(ctx, id)
}
