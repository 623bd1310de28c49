package placement

import (
	"context"
	"net/mail"

	"github.com/google/uuid"

	"github.com/simagang/simagang/core"
	"github.com/simagang/simagang/core/application"
	"github.com/simagang/simagang/core/user"
)

var (
	ErrNotFound       = core.NewNotFoundError("placement")
	ErrNotAccepted    = core.NewConflictError("only accepted applications can be placed")
	ErrAlreadyPlaced  = core.NewConflictError("application already has a placement")
	ErrInvalidTeacher = core.NewFieldError("teacher_id", "must reference an active teacher")
)

type (
	Repository interface {
		CreatePlacement(ctx context.Context, p Placement, exec ...core.DBExecutor) (Placement, error)
		GetPlacement(ctx context.Context, id string, exec ...core.DBExecutor) (Placement, error)
		QueryPlacements(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Placement, error)
		// UpdatePlacement writes teacher, dates and status of p only if its stored status is still `from`.
		UpdatePlacement(ctx context.Context, p Placement, from Status, exec ...core.DBExecutor) (bool, error)
		// DeletePlacement removes the placement together with its assessments.
		DeletePlacement(ctx context.Context, id string, exec ...core.DBExecutor) error
	}

	Service interface {
		Create(ctx context.Context, actor core.Actor, np NewPlacement) (Placement, error)
		Get(ctx context.Context, actor core.Actor, id string) (Placement, error)
		Query(ctx context.Context, actor core.Actor, filter QueryFilter, ordering []core.DBOrdering) ([]Placement, error)
		Update(ctx context.Context, actor core.Actor, id string, up UpdatePlacement) (Placement, error)
		Delete(ctx context.Context, actor core.Actor, id string) error
		// Candidates lists the accepted applications no placement references yet.
		Candidates(ctx context.Context, actor core.Actor) ([]application.Application, error)
	}

	service struct {
		db           core.DB
		repo         Repository
		applications application.Repository
		users        user.Repository
		mailSvc      core.EmailService
		validate     *core.Validator
		logger       core.Logger
	}
)

var _ Service = (*service)(nil)

func NewService(
	db core.DB,
	repo Repository,
	applications application.Repository,
	users user.Repository,
	mailSvc core.EmailService,
	validate *core.Validator,
	logger core.Logger,
) Service {
	return &service{
		db:           db,
		repo:         repo,
		applications: applications,
		users:        users,
		mailSvc:      mailSvc,
		validate:     validate,
		logger:       logger,
	}
}

func visible(actor core.Actor, p Placement) bool {
	switch actor.Role {
	case core.RoleAdmin:
		return true
	case core.RoleStudent:
		return p.StudentID == actor.UserID
	case core.RoleCompany:
		return p.CompanyID == actor.UserID
	case core.RoleTeacher:
		return p.TeacherID == actor.UserID
	}
	return false
}

// getTeacher returns the user `id` if it is an active guru.
func (svc *service) getTeacher(ctx context.Context, id string, exec core.DBExecutor) (user.User, error) {
	teacher, err := svc.users.GetUser(ctx, user.GetFilter{ID: id}, exec)
	if err != nil {
		if err == user.ErrNotFound {
			return user.User{}, ErrInvalidTeacher
		}
		return user.User{}, err
	}
	if !teacher.Is(core.RoleTeacher) || !teacher.IsActive {
		return user.User{}, ErrInvalidTeacher
	}
	return teacher, nil
}

func (svc *service) Create(ctx context.Context, actor core.Actor, np NewPlacement) (Placement, error) {
	if err := actor.Can(core.ActionPlacementManage); err != nil {
		return Placement{}, err
	}
	np.Clean()
	if err := svc.validate.Struct(np); err != nil {
		return Placement{}, err
	}
	if err := checkDates(np.StartDate, np.EndDate); err != nil {
		return Placement{}, err
	}

	var p Placement
	err := core.WithTx(ctx, svc.db, func(tx core.DBTransactor) error {
		app, err := svc.applications.GetApplication(ctx, np.ApplicationID, tx)
		if err != nil {
			return err
		}
		if app.Status != application.StatusAccepted {
			return ErrNotAccepted
		}
		placed, err := svc.applications.IsPlaced(ctx, app.ID, tx)
		if err != nil {
			return err
		}
		if placed {
			return ErrAlreadyPlaced
		}
		teacher, err := svc.getTeacher(ctx, np.TeacherID, tx)
		if err != nil {
			return err
		}

		now := core.Now()
		p, err = svc.repo.CreatePlacement(ctx, Placement{
			ID:            uuid.New().String(),
			ApplicationID: app.ID,
			StudentID:     app.StudentID,
			StudentName:   app.StudentName,
			CompanyID:     app.CompanyID,
			PostingID:     app.PostingID,
			PostingTitle:  app.PostingTitle,
			TeacherID:     teacher.ID,
			TeacherName:   teacher.Name,
			StartDate:     np.StartDate,
			EndDate:       np.EndDate,
			Status:        StatusActive,
			CreatedAt:     now,
			UpdatedAt:     now,
		}, tx)
		return err
	})
	if err != nil {
		return Placement{}, err
	}
	svc.notify(ctx, p)
	return p, nil
}

func (svc *service) Get(ctx context.Context, actor core.Actor, id string) (Placement, error) {
	if err := actor.Can(core.ActionPlacementView); err != nil {
		return Placement{}, err
	}
	p, err := svc.repo.GetPlacement(ctx, id)
	if err != nil {
		return Placement{}, err
	}
	if !visible(actor, p) {
		return Placement{}, ErrNotFound
	}
	return p, nil
}

func (svc *service) Query(ctx context.Context, actor core.Actor, filter QueryFilter, ordering []core.DBOrdering) ([]Placement, error) {
	if err := actor.Can(core.ActionPlacementView); err != nil {
		return nil, err
	}
	filter.Clean()
	switch actor.Role {
	case core.RoleStudent:
		filter.StudentID = actor.UserID
	case core.RoleCompany:
		filter.CompanyID = actor.UserID
	case core.RoleTeacher:
		filter.TeacherID = actor.UserID
	}
	return svc.repo.QueryPlacements(ctx, filter, ordering)
}

// Update reassigns the teacher, moves the dates or ends the placement.
func (svc *service) Update(ctx context.Context, actor core.Actor, id string, up UpdatePlacement) (Placement, error) {
	if err := actor.Can(core.ActionPlacementManage); err != nil {
		return Placement{}, err
	}
	up.Clean()
	if err := svc.validate.Struct(up); err != nil {
		return Placement{}, err
	}

	var p Placement
	err := core.WithTx(ctx, svc.db, func(tx core.DBTransactor) error {
		var err error
		if p, err = svc.repo.GetPlacement(ctx, id, tx); err != nil {
			return err
		}
		from := p.Status
		to := up.Status
		if to == "" {
			to = from
		}
		if err = Transition(from, to); err != nil {
			return err
		}

		if up.TeacherID != "" && up.TeacherID != p.TeacherID {
			teacher, err := svc.getTeacher(ctx, up.TeacherID, tx)
			if err != nil {
				return err
			}
			p.TeacherID = teacher.ID
			p.TeacherName = teacher.Name
		}
		if !up.StartDate.IsZero() {
			p.StartDate = up.StartDate
		}
		if !up.EndDate.IsZero() {
			p.EndDate = up.EndDate
		}
		if err = checkDates(p.StartDate, p.EndDate); err != nil {
			return err
		}
		p.Status = to
		p.UpdatedAt = core.Now()

		ok, err := svc.repo.UpdatePlacement(ctx, p, from, tx)
		if err != nil {
			return err
		}
		if !ok {
			current, err := svc.repo.GetPlacement(ctx, id, tx)
			if err != nil {
				return err
			}
			if err = Transition(current.Status, to); err != nil {
				return err
			}
			return core.NewConflictError("placement was modified concurrently")
		}
		return nil
	})
	if err != nil {
		return Placement{}, err
	}
	return p, nil
}

// Delete removes the placement and its assessments. The application stays accepted and becomes a candidate again.
func (svc *service) Delete(ctx context.Context, actor core.Actor, id string) error {
	if err := actor.Can(core.ActionPlacementManage); err != nil {
		return err
	}
	return core.WithTx(ctx, svc.db, func(tx core.DBTransactor) error {
		if _, err := svc.repo.GetPlacement(ctx, id, tx); err != nil {
			return err
		}
		return svc.repo.DeletePlacement(ctx, id, tx)
	})
}

func (svc *service) Candidates(ctx context.Context, actor core.Actor) ([]application.Application, error) {
	if err := actor.Can(core.ActionPlacementManage); err != nil {
		return nil, err
	}
	return svc.applications.QueryApplications(ctx, application.QueryFilter{
		Status:   application.StatusAccepted,
		Unplaced: true,
	}, []core.DBOrdering{{Field: "updated_at"}})
}

type notification struct {
	Name         string
	PostingTitle string
	StartDate    string
	EndDate      string
	TeacherName  string
}

func (svc *service) notify(ctx context.Context, p Placement) {
	student, err := svc.users.GetUser(ctx, user.GetFilter{ID: p.StudentID})
	if err != nil {
		svc.logger.Error("loading student to notify", err, core.NewActor(p.StudentID, core.RoleStudent))
		return
	}
	if student.Email == "" {
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: student.Name, Address: student.Email}},
		Subject:      "Penempatan magang Anda",
		TemplateName: "placement_created",
		TemplateData: notification{
			Name:         student.Name,
			PostingTitle: p.PostingTitle,
			StartDate:    p.StartDate.String(),
			EndDate:      p.EndDate.String(),
			TeacherName:  p.TeacherName,
		},
	})
}
