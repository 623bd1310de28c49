package application

import (
	"context"
	"net/mail"
	"time"

	"github.com/google/uuid"

	"github.com/simagang/simagang/core"
	"github.com/simagang/simagang/core/posting"
	"github.com/simagang/simagang/core/profile"
	"github.com/simagang/simagang/core/user"
)

var (
	ErrNotFound           = core.NewNotFoundError("application")
	ErrPostingClosed      = core.NewConflictError("posting is not accepting applications")
	ErrStudentNotVerified = core.NewConflictError("student profile must be verified before applying")
	ErrDuplicate          = core.NewConflictError("you already have an open application for this posting")
	ErrPlaced             = core.NewConflictError("application is bound to a placement and cannot be deleted")
)

type (
	Repository interface {
		CreateApplication(ctx context.Context, app Application, exec ...core.DBExecutor) (Application, error)
		GetApplication(ctx context.Context, id string, exec ...core.DBExecutor) (Application, error)
		QueryApplications(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Application, error)
		HasOpenApplication(ctx context.Context, studentID, postingID string, exec ...core.DBExecutor) (bool, error)
		// UpdateStatus writes status, remark and interview time of app only if its stored status is still `from`.
		UpdateStatus(ctx context.Context, app Application, from Status, exec ...core.DBExecutor) (bool, error)
		// DeleteApplication removes `id`; when `only` is given the stored status must be one of them.
		DeleteApplication(ctx context.Context, id string, only []Status, exec ...core.DBExecutor) (bool, error)
		IsPlaced(ctx context.Context, id string, exec ...core.DBExecutor) (bool, error)
		Stats(ctx context.Context, filter QueryFilter) (Stats, error)
	}

	Service interface {
		Submit(ctx context.Context, actor core.Actor, na NewApplication) (Application, error)
		Get(ctx context.Context, actor core.Actor, id string) (Application, error)
		Query(ctx context.Context, actor core.Actor, filter QueryFilter, ordering []core.DBOrdering) ([]Application, error)
		Review(ctx context.Context, actor core.Actor, id string, d Decision) (Application, error)
		ScheduleInterview(ctx context.Context, actor core.Actor, id string, s InterviewSchedule) (Application, error)
		Accept(ctx context.Context, actor core.Actor, id string, d Decision) (Application, error)
		Reject(ctx context.Context, actor core.Actor, id string, r Rejection) (Application, error)
		Withdraw(ctx context.Context, actor core.Actor, id string) error
		Delete(ctx context.Context, actor core.Actor, id string) error
		Stats(ctx context.Context, actor core.Actor) (Stats, error)
	}

	service struct {
		db       core.DB
		repo     Repository
		postings posting.Repository
		profiles profile.Repository
		users    user.Repository
		mailSvc  core.EmailService
		validate *core.Validator
		logger   core.Logger
	}
)

var _ Service = (*service)(nil)

func NewService(
	db core.DB,
	repo Repository,
	postings posting.Repository,
	profiles profile.Repository,
	users user.Repository,
	mailSvc core.EmailService,
	validate *core.Validator,
	logger core.Logger,
) Service {
	return &service{
		db:       db,
		repo:     repo,
		postings: postings,
		profiles: profiles,
		users:    users,
		mailSvc:  mailSvc,
		validate: validate,
		logger:   logger,
	}
}

// visible reports whether the actor may see app.
func visible(actor core.Actor, app Application) bool {
	switch actor.Role {
	case core.RoleAdmin:
		return true
	case core.RoleStudent:
		return app.StudentID == actor.UserID
	case core.RoleCompany:
		return app.CompanyID == actor.UserID
	}
	return false
}

func (svc *service) Submit(ctx context.Context, actor core.Actor, na NewApplication) (Application, error) {
	if err := actor.Can(core.ActionApplicationSubmit); err != nil {
		return Application{}, err
	}
	na.Clean()
	if err := svc.validate.Struct(na); err != nil {
		return Application{}, err
	}

	var app Application
	err := core.WithTx(ctx, svc.db, func(tx core.DBTransactor) error {
		p, err := svc.postings.GetPosting(ctx, na.PostingID, tx)
		if err != nil {
			return err
		}
		if !p.AcceptsApplications() {
			return ErrPostingClosed
		}

		verification, err := svc.profiles.GetVerification(ctx, profile.KindStudent, actor.UserID, tx)
		if err != nil && err != profile.ErrStudentNotFound {
			return err
		}
		if verification != profile.VerificationApproved {
			return ErrStudentNotVerified
		}

		open, err := svc.repo.HasOpenApplication(ctx, actor.UserID, p.ID, tx)
		if err != nil {
			return err
		}
		if open {
			return ErrDuplicate
		}

		now := core.Now()
		app, err = svc.repo.CreateApplication(ctx, Application{
			ID:              uuid.New().String(),
			StudentID:       actor.UserID,
			PostingID:       p.ID,
			PostingTitle:    p.Title,
			CompanyID:       p.CompanyID,
			Status:          StatusPending,
			CoverLetterFile: na.CoverLetterFile,
			CVFile:          na.CVFile,
			PortfolioFile:   na.PortfolioFile,
			ContactNumber:   na.ContactNumber,
			StudentNote:     na.StudentNote,
			SubmittedAt:     now,
			UpdatedAt:       now,
		}, tx)
		return err
	})
	return app, err
}

func (svc *service) Get(ctx context.Context, actor core.Actor, id string) (Application, error) {
	if err := actor.Can(core.ActionApplicationView); err != nil {
		return Application{}, err
	}
	app, err := svc.repo.GetApplication(ctx, id)
	if err != nil {
		return Application{}, err
	}
	if !visible(actor, app) {
		return Application{}, ErrNotFound
	}
	return app, nil
}

// Query scopes the filter to the actor: students see their own applications,
// companies the applications to their postings.
func (svc *service) Query(ctx context.Context, actor core.Actor, filter QueryFilter, ordering []core.DBOrdering) ([]Application, error) {
	if err := actor.Can(core.ActionApplicationView); err != nil {
		return nil, err
	}
	filter.Clean()
	switch actor.Role {
	case core.RoleStudent:
		filter.StudentID = actor.UserID
	case core.RoleCompany:
		filter.CompanyID = actor.UserID
	}
	return svc.repo.QueryApplications(ctx, filter, ordering)
}

// transition runs ev on application `id` inside one transaction.
// apply sets the event's payload on the application before it is written.
func (svc *service) transition(ctx context.Context, id string, ev Event, apply func(app *Application)) (Application, error) {
	var app Application
	err := core.WithTx(ctx, svc.db, func(tx core.DBTransactor) error {
		var err error
		if app, err = svc.repo.GetApplication(ctx, id, tx); err != nil {
			return err
		}
		from := app.Status
		to, err := Transition(from, ev)
		if err != nil {
			return err
		}

		app.Status = to
		app.UpdatedAt = core.Now()
		if apply != nil {
			apply(&app)
		}
		ok, err := svc.repo.UpdateStatus(ctx, app, from, tx)
		if err != nil {
			return err
		}
		if !ok {
			// lost a race: report against what is stored now
			current, err := svc.repo.GetApplication(ctx, id, tx)
			if err != nil {
				return err
			}
			return core.NewTransitionError("application", string(current.Status), string(ev))
		}
		return nil
	})
	if err != nil {
		return Application{}, err
	}
	return app, nil
}

// Review puts a pending application under further review.
func (svc *service) Review(ctx context.Context, actor core.Actor, id string, d Decision) (Application, error) {
	if err := actor.Can(core.ActionApplicationDecide); err != nil {
		return Application{}, err
	}
	note := core.CleanString(d.Note)
	app, err := svc.transition(ctx, id, EventReview, func(app *Application) {
		if note != "" {
			app.CompanyRemark = note
		}
	})
	if err != nil {
		return Application{}, err
	}
	svc.notify(ctx, app, "application_review", "Lamaran Anda sedang direview")
	return app, nil
}

func (svc *service) ScheduleInterview(ctx context.Context, actor core.Actor, id string, s InterviewSchedule) (Application, error) {
	if err := actor.Can(core.ActionApplicationDecide); err != nil {
		return Application{}, err
	}
	if err := svc.validate.Struct(s); err != nil {
		return Application{}, err
	}
	if s.InterviewAt.IsZero() {
		return Application{}, core.NewFieldError("interview_at", "this field is required")
	}
	at := s.InterviewAt.UTC().Truncate(time.Microsecond)
	note := core.CleanString(s.Note)

	app, err := svc.transition(ctx, id, EventScheduleInterview, func(app *Application) {
		app.InterviewAt = &at
		if note != "" {
			app.CompanyRemark = note
		}
	})
	if err != nil {
		return Application{}, err
	}
	svc.notify(ctx, app, "application_interview", "Undangan interview")
	return app, nil
}

func (svc *service) Accept(ctx context.Context, actor core.Actor, id string, d Decision) (Application, error) {
	if err := actor.Can(core.ActionApplicationDecide); err != nil {
		return Application{}, err
	}
	note := core.CleanString(d.Note)
	app, err := svc.transition(ctx, id, EventAccept, func(app *Application) {
		if note != "" {
			app.CompanyRemark = note
		}
	})
	if err != nil {
		return Application{}, err
	}
	svc.notify(ctx, app, "application_accepted", "Lamaran Anda diterima")
	return app, nil
}

// Reject refuses an application. The reason is mandatory and stored as the company remark.
func (svc *service) Reject(ctx context.Context, actor core.Actor, id string, r Rejection) (Application, error) {
	if err := actor.Can(core.ActionApplicationDecide); err != nil {
		return Application{}, err
	}
	reason := core.CleanString(r.Reason)
	if reason == "" {
		return Application{}, core.NewFieldError("reason", "this field is required")
	}
	app, err := svc.transition(ctx, id, EventReject, func(app *Application) {
		app.CompanyRemark = reason
	})
	if err != nil {
		return Application{}, err
	}
	svc.notify(ctx, app, "application_rejected", "Hasil lamaran Anda")
	return app, nil
}

// Withdraw removes the student's own application while it is still pending.
func (svc *service) Withdraw(ctx context.Context, actor core.Actor, id string) error {
	if err := actor.Can(core.ActionApplicationWithdraw); err != nil {
		return err
	}
	return core.WithTx(ctx, svc.db, func(tx core.DBTransactor) error {
		app, err := svc.repo.GetApplication(ctx, id, tx)
		if err != nil {
			return err
		}
		if app.StudentID != actor.UserID {
			return ErrNotFound
		}
		if _, err = Transition(app.Status, EventWithdraw); err != nil {
			return err
		}
		ok, err := svc.repo.DeleteApplication(ctx, id, []Status{app.Status}, tx)
		if err != nil {
			return err
		}
		if !ok {
			current, err := svc.repo.GetApplication(ctx, id, tx)
			if err != nil {
				return err
			}
			return core.NewTransitionError("application", string(current.Status), string(EventWithdraw))
		}
		return nil
	})
}

// Delete removes any application that no placement references.
func (svc *service) Delete(ctx context.Context, actor core.Actor, id string) error {
	if err := actor.Can(core.ActionApplicationDelete); err != nil {
		return err
	}
	return core.WithTx(ctx, svc.db, func(tx core.DBTransactor) error {
		if _, err := svc.repo.GetApplication(ctx, id, tx); err != nil {
			return err
		}
		placed, err := svc.repo.IsPlaced(ctx, id, tx)
		if err != nil {
			return err
		}
		if placed {
			return ErrPlaced
		}
		_, err = svc.repo.DeleteApplication(ctx, id, nil, tx)
		return err
	})
}

func (svc *service) Stats(ctx context.Context, actor core.Actor) (Stats, error) {
	if err := actor.Can(core.ActionApplicationStats); err != nil {
		return Stats{}, err
	}
	return svc.repo.Stats(ctx, QueryFilter{})
}

type notification struct {
	Name          string
	ApplicationID string
	PostingTitle  string
	Remark        string
	InterviewAt   string
}

// notify emails the student about the new status of app. Failures are logged, never returned.
func (svc *service) notify(ctx context.Context, app Application, tmpl, subject string) {
	usr, err := svc.users.GetUser(ctx, user.GetFilter{ID: app.StudentID})
	if err != nil {
		svc.logger.Error("loading student to notify", err, core.NewActor(app.StudentID, core.RoleStudent))
		return
	}
	if usr.Email == "" {
		return
	}

	data := notification{
		Name:          usr.Name,
		ApplicationID: app.ID,
		PostingTitle:  app.PostingTitle,
		Remark:        app.CompanyRemark,
	}
	if app.InterviewAt != nil {
		data.InterviewAt = app.InterviewAt.Format("02 Jan 2006 15:04 MST")
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:      subject,
		TemplateName: tmpl,
		TemplateData: data,
	})
}
