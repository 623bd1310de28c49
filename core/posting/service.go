package posting

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/simagang/simagang/core"
	"github.com/simagang/simagang/core/profile"
)

var (
	ErrNotFound            = core.NewNotFoundError("posting")
	ErrCompanyNotVerified  = core.NewConflictError("company profile must be verified before publishing postings")
	ErrHasApplications     = core.NewConflictError("posting has applications and cannot be deleted")
	ErrConcurrentlyDecided = core.NewConflictError("posting was decided concurrently")
)

type (
	Repository interface {
		CreatePosting(ctx context.Context, p Posting, exec ...core.DBExecutor) (Posting, error)
		GetPosting(ctx context.Context, id string, exec ...core.DBExecutor) (Posting, error)
		QueryPostings(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Posting, error)
		// UpdateContent writes the company-owned fields, approval and remark of p.
		UpdateContent(ctx context.Context, p Posting, exec ...core.DBExecutor) (Posting, error)
		// SetApproval changes the approval of `id` only if it is still `from`.
		SetApproval(ctx context.Context, id string, from, to Approval, remark string, at time.Time, exec ...core.DBExecutor) (bool, error)
		SetStatus(ctx context.Context, id string, status Status, at time.Time, exec ...core.DBExecutor) error
		DeletePosting(ctx context.Context, id string, exec ...core.DBExecutor) error
		CountApplications(ctx context.Context, id string, exec ...core.DBExecutor) (int, error)
		Stats(ctx context.Context, filter QueryFilter) (Stats, error)
	}

	Service interface {
		Create(ctx context.Context, actor core.Actor, np NewPosting) (Posting, error)
		Get(ctx context.Context, actor core.Actor, id string) (Posting, error)
		Query(ctx context.Context, actor core.Actor, filter QueryFilter, ordering []core.DBOrdering) ([]Posting, error)
		Update(ctx context.Context, actor core.Actor, id string, c Content) (Posting, error)
		SetStatus(ctx context.Context, actor core.Actor, id string, sc StatusChange) (Posting, error)
		Approve(ctx context.Context, actor core.Actor, id string, d Decision) (Posting, error)
		Reject(ctx context.Context, actor core.Actor, id string, r Rejection) (Posting, error)
		Delete(ctx context.Context, actor core.Actor, id string) error
		Stats(ctx context.Context, actor core.Actor) (Stats, error)
	}

	service struct {
		db       core.DB
		repo     Repository
		profiles profile.Repository
		validate *core.Validator
	}
)

var _ Service = (*service)(nil)

func NewService(db core.DB, repo Repository, profiles profile.Repository, validate *core.Validator) Service {
	return &service{
		db:       db,
		repo:     repo,
		profiles: profiles,
		validate: validate,
	}
}

// visible reports whether the actor may see p at all.
func visible(actor core.Actor, p Posting) bool {
	switch actor.Role {
	case core.RoleAdmin:
		return true
	case core.RoleCompany:
		return p.CompanyID == actor.UserID
	default:
		return p.Approval == ApprovalApproved && p.Status != StatusDraft
	}
}

func (svc *service) Create(ctx context.Context, actor core.Actor, np NewPosting) (Posting, error) {
	if err := actor.Can(core.ActionPostingCreate); err != nil {
		return Posting{}, err
	}
	np.Clean()
	if err := svc.validate.Struct(np); err != nil {
		return Posting{}, err
	}
	if err := np.checkDates(); err != nil {
		return Posting{}, err
	}
	if np.Status == "" {
		np.Status = StatusDraft
	}

	var p Posting
	err := core.WithTx(ctx, svc.db, func(tx core.DBTransactor) error {
		status, err := svc.profiles.GetVerification(ctx, profile.KindCompany, actor.UserID, tx)
		if err != nil {
			if err == profile.ErrCompanyNotFound {
				return ErrCompanyNotVerified
			}
			return err
		}
		if status != profile.VerificationApproved {
			return ErrCompanyNotVerified
		}

		now := core.Now()
		p, err = svc.repo.CreatePosting(ctx, Posting{
			ID:             uuid.New().String(),
			CompanyID:      actor.UserID,
			Title:          np.Title,
			Type:           np.Type,
			Description:    np.Description,
			Requirements:   np.Requirements,
			Positions:      np.Positions,
			Location:       np.Location,
			DurationMonths: np.DurationMonths,
			Compensation:   np.Compensation,
			StartDate:      np.StartDate,
			EndDate:        np.EndDate,
			Status:         np.Status,
			Approval:       ApprovalPending,
			CreatedAt:      now,
			UpdatedAt:      now,
		}, tx)
		return err
	})
	return p, err
}

func (svc *service) Get(ctx context.Context, actor core.Actor, id string) (Posting, error) {
	if err := actor.Can(core.ActionPostingView); err != nil {
		return Posting{}, err
	}
	p, err := svc.repo.GetPosting(ctx, id)
	if err != nil {
		return Posting{}, err
	}
	if !visible(actor, p) {
		return Posting{}, ErrNotFound
	}
	return p, nil
}

// Query scopes the filter to the actor: companies see their own postings,
// students and teachers only see open ones.
func (svc *service) Query(ctx context.Context, actor core.Actor, filter QueryFilter, ordering []core.DBOrdering) ([]Posting, error) {
	if err := actor.Can(core.ActionPostingView); err != nil {
		return nil, err
	}
	filter.Clean()
	switch actor.Role {
	case core.RoleAdmin:
	case core.RoleCompany:
		filter.CompanyID = actor.UserID
	default:
		filter.OpenOnly = true
	}
	return svc.repo.QueryPostings(ctx, filter, ordering)
}

// getOwned loads the posting and checks that a company actor owns it.
func (svc *service) getOwned(ctx context.Context, actor core.Actor, id string, exec core.DBExecutor) (Posting, error) {
	p, err := svc.repo.GetPosting(ctx, id, exec)
	if err != nil {
		return Posting{}, err
	}
	if actor.Is(core.RoleCompany) && p.CompanyID != actor.UserID {
		return Posting{}, ErrNotFound
	}
	return p, nil
}

// Update replaces the content of a posting. A rejected posting goes back to pending approval.
func (svc *service) Update(ctx context.Context, actor core.Actor, id string, c Content) (Posting, error) {
	if err := actor.Can(core.ActionPostingEdit); err != nil {
		return Posting{}, err
	}
	c.Clean()
	if err := svc.validate.Struct(c); err != nil {
		return Posting{}, err
	}
	if err := c.checkDates(); err != nil {
		return Posting{}, err
	}

	var p Posting
	err := core.WithTx(ctx, svc.db, func(tx core.DBTransactor) error {
		var err error
		if p, err = svc.getOwned(ctx, actor, id, tx); err != nil {
			return err
		}
		p.Title = c.Title
		p.Type = c.Type
		p.Description = c.Description
		p.Requirements = c.Requirements
		p.Positions = c.Positions
		p.Location = c.Location
		p.DurationMonths = c.DurationMonths
		p.Compensation = c.Compensation
		p.StartDate = c.StartDate
		p.EndDate = c.EndDate
		if actor.Is(core.RoleCompany) && p.Approval == ApprovalRejected {
			p.Approval = ApprovalPending
			p.AdminRemark = ""
		}
		p.UpdatedAt = core.Now()
		p, err = svc.repo.UpdateContent(ctx, p, tx)
		return err
	})
	return p, err
}

func (svc *service) SetStatus(ctx context.Context, actor core.Actor, id string, sc StatusChange) (Posting, error) {
	if err := actor.Can(core.ActionPostingSetStatus); err != nil {
		return Posting{}, err
	}
	if err := svc.validate.Struct(sc); err != nil {
		return Posting{}, err
	}

	var p Posting
	err := core.WithTx(ctx, svc.db, func(tx core.DBTransactor) error {
		var err error
		if p, err = svc.getOwned(ctx, actor, id, tx); err != nil {
			return err
		}
		p.Status = sc.Status
		p.UpdatedAt = core.Now()
		return svc.repo.SetStatus(ctx, p.ID, p.Status, p.UpdatedAt, tx)
	})
	return p, err
}

func (svc *service) decide(ctx context.Context, id string, to Approval, remark string) (Posting, error) {
	var p Posting
	err := core.WithTx(ctx, svc.db, func(tx core.DBTransactor) error {
		var err error
		if p, err = svc.repo.GetPosting(ctx, id, tx); err != nil {
			return err
		}
		if err = Decide(p.Approval, to); err != nil {
			return err
		}
		now := core.Now()
		ok, err := svc.repo.SetApproval(ctx, id, p.Approval, to, remark, now, tx)
		if err != nil {
			return err
		}
		if !ok {
			return ErrConcurrentlyDecided
		}
		p.Approval = to
		p.AdminRemark = remark
		p.UpdatedAt = now
		return nil
	})
	return p, err
}

func (svc *service) Approve(ctx context.Context, actor core.Actor, id string, d Decision) (Posting, error) {
	if err := actor.Can(core.ActionPostingDecide); err != nil {
		return Posting{}, err
	}
	return svc.decide(ctx, id, ApprovalApproved, core.CleanString(d.Remark))
}

// Reject refuses a pending posting. The reason is mandatory and kept as the admin remark.
func (svc *service) Reject(ctx context.Context, actor core.Actor, id string, r Rejection) (Posting, error) {
	if err := actor.Can(core.ActionPostingDecide); err != nil {
		return Posting{}, err
	}
	reason := core.CleanString(r.Reason)
	if reason == "" {
		return Posting{}, core.NewFieldError("reason", "this field is required")
	}
	return svc.decide(ctx, id, ApprovalRejected, reason)
}

func (svc *service) Delete(ctx context.Context, actor core.Actor, id string) error {
	if err := actor.Can(core.ActionPostingDelete); err != nil {
		return err
	}
	return core.WithTx(ctx, svc.db, func(tx core.DBTransactor) error {
		if _, err := svc.repo.GetPosting(ctx, id, tx); err != nil {
			return err
		}
		n, err := svc.repo.CountApplications(ctx, id, tx)
		if err != nil {
			return err
		}
		if n > 0 {
			return ErrHasApplications
		}
		return svc.repo.DeletePosting(ctx, id, tx)
	})
}

func (svc *service) Stats(ctx context.Context, actor core.Actor) (Stats, error) {
	if err := actor.Can(core.ActionPostingStats); err != nil {
		return Stats{}, err
	}
	return svc.repo.Stats(ctx, QueryFilter{})
}
