package profile

import (
	"context"
	"time"

	"github.com/simagang/simagang/core"
)

var (
	ErrStudentNotFound = core.NewNotFoundError("student profile")
	ErrCompanyNotFound = core.NewNotFoundError("company profile")
	ErrTeacherNotFound = core.NewNotFoundError("teacher profile")
	ErrNISNExists      = core.NewFieldError("nisn", "a student with this NISN already exists")
)

type (
	Repository interface {
		GetStudent(ctx context.Context, userID string, exec ...core.DBExecutor) (StudentProfile, error)
		// SaveStudent inserts or replaces the profile of p.UserID.
		SaveStudent(ctx context.Context, p StudentProfile, exec ...core.DBExecutor) (StudentProfile, error)
		QueryStudents(ctx context.Context, filter QueryFilter, exec ...core.DBExecutor) ([]StudentProfile, error)

		GetCompany(ctx context.Context, userID string, exec ...core.DBExecutor) (CompanyProfile, error)
		SaveCompany(ctx context.Context, p CompanyProfile, exec ...core.DBExecutor) (CompanyProfile, error)
		QueryCompanies(ctx context.Context, filter QueryFilter, exec ...core.DBExecutor) ([]CompanyProfile, error)

		// GetTeacher and QueryTeachers list guru accounts, with empty details when no profile was saved yet.
		GetTeacher(ctx context.Context, userID string, exec ...core.DBExecutor) (TeacherProfile, error)
		SaveTeacher(ctx context.Context, p TeacherProfile, exec ...core.DBExecutor) (TeacherProfile, error)
		QueryTeachers(ctx context.Context, filter QueryFilter, exec ...core.DBExecutor) ([]TeacherProfile, error)

		GetVerification(ctx context.Context, kind Kind, userID string, exec ...core.DBExecutor) (VerificationStatus, error)
		// SetVerification moves the profile from `from` to `to`; false means the profile was no longer in `from`.
		SetVerification(ctx context.Context, kind Kind, userID string, from, to VerificationStatus, remark string, at time.Time, exec ...core.DBExecutor) (bool, error)
		DeleteProfile(ctx context.Context, kind Kind, userID string, exec ...core.DBExecutor) error
		CountCompanies(ctx context.Context, status VerificationStatus) (int, error)
	}

	Service interface {
		GetStudent(ctx context.Context, actor core.Actor, userID string) (StudentProfile, error)
		SaveOwnStudent(ctx context.Context, actor core.Actor, in StudentInput) (StudentProfile, error)
		QueryStudents(ctx context.Context, actor core.Actor, filter QueryFilter) ([]StudentProfile, error)

		GetCompany(ctx context.Context, actor core.Actor, userID string) (CompanyProfile, error)
		SaveOwnCompany(ctx context.Context, actor core.Actor, in CompanyInput) (CompanyProfile, error)
		QueryCompanies(ctx context.Context, actor core.Actor, filter QueryFilter) ([]CompanyProfile, error)

		GetTeacher(ctx context.Context, actor core.Actor, userID string) (TeacherProfile, error)
		SaveOwnTeacher(ctx context.Context, actor core.Actor, in TeacherInput) (TeacherProfile, error)
		QueryTeachers(ctx context.Context, actor core.Actor, filter QueryFilter) ([]TeacherProfile, error)

		Verify(ctx context.Context, actor core.Actor, kind Kind, userID string) error
		Reject(ctx context.Context, actor core.Actor, kind Kind, userID string, r Rejection) error
		Delete(ctx context.Context, actor core.Actor, kind Kind, userID string) error
	}

	service struct {
		db       core.DB
		repo     Repository
		validate *core.Validator
	}
)

var _ Service = (*service)(nil)

func NewService(db core.DB, repo Repository, validate *core.Validator) Service {
	return &service{
		db:       db,
		repo:     repo,
		validate: validate,
	}
}

// canRead allows the owner and admins.
func canRead(actor core.Actor, userID string) error {
	if actor.UserID == userID {
		return nil
	}
	return actor.Can(core.ActionProfileVerify)
}

func canWriteOwn(actor core.Actor, role core.Role) error {
	if err := actor.Can(core.ActionProfileManageOwn); err != nil {
		return err
	}
	if !actor.Is(role) {
		return core.NewAuthorizationError(actor.Role, core.ActionProfileManageOwn)
	}
	return nil
}

// resubmitted sends a rejected profile back to the verification queue after its owner edits it.
func resubmitted(status VerificationStatus) VerificationStatus {
	if status == "" || status == VerificationRejected {
		return VerificationPending
	}
	return status
}

func (svc *service) GetStudent(ctx context.Context, actor core.Actor, userID string) (StudentProfile, error) {
	if err := canRead(actor, userID); err != nil {
		return StudentProfile{}, err
	}
	return svc.repo.GetStudent(ctx, userID)
}

func (svc *service) SaveOwnStudent(ctx context.Context, actor core.Actor, in StudentInput) (StudentProfile, error) {
	if err := canWriteOwn(actor, core.RoleStudent); err != nil {
		return StudentProfile{}, err
	}
	in.Clean()
	if err := svc.validate.Struct(in); err != nil {
		return StudentProfile{}, err
	}

	var saved StudentProfile
	err := core.WithTx(ctx, svc.db, func(tx core.DBTransactor) error {
		now := core.Now()
		p, err := svc.repo.GetStudent(ctx, actor.UserID, tx)
		if err != nil {
			if err != ErrStudentNotFound {
				return err
			}
			p = StudentProfile{UserID: actor.UserID, CreatedAt: now}
		} else if p.VerificationStatus == VerificationRejected {
			p.VerificationRemark = ""
		}
		p.NISN = in.NISN
		p.NIS = in.NIS
		p.BirthDate = in.BirthDate
		p.Gender = in.Gender
		p.Address = in.Address
		p.Phone = in.Phone
		p.Major = in.Major
		p.ClassName = in.ClassName
		p.GraduationYear = in.GraduationYear
		p.PhotoFile = in.PhotoFile
		p.CVFile = in.CVFile
		p.VerificationStatus = resubmitted(p.VerificationStatus)
		p.UpdatedAt = now

		saved, err = svc.repo.SaveStudent(ctx, p, tx)
		return err
	})
	return saved, err
}

func (svc *service) QueryStudents(ctx context.Context, actor core.Actor, filter QueryFilter) ([]StudentProfile, error) {
	if err := actor.Can(core.ActionProfileVerify); err != nil {
		return nil, err
	}
	filter.Clean()
	return svc.repo.QueryStudents(ctx, filter)
}

func (svc *service) GetCompany(ctx context.Context, actor core.Actor, userID string) (CompanyProfile, error) {
	if err := canRead(actor, userID); err != nil {
		return CompanyProfile{}, err
	}
	return svc.repo.GetCompany(ctx, userID)
}

func (svc *service) SaveOwnCompany(ctx context.Context, actor core.Actor, in CompanyInput) (CompanyProfile, error) {
	if err := canWriteOwn(actor, core.RoleCompany); err != nil {
		return CompanyProfile{}, err
	}
	in.Clean()
	if err := svc.validate.Struct(in); err != nil {
		return CompanyProfile{}, err
	}

	var saved CompanyProfile
	err := core.WithTx(ctx, svc.db, func(tx core.DBTransactor) error {
		now := core.Now()
		p, err := svc.repo.GetCompany(ctx, actor.UserID, tx)
		if err != nil {
			if err != ErrCompanyNotFound {
				return err
			}
			p = CompanyProfile{UserID: actor.UserID, CreatedAt: now}
		} else if p.VerificationStatus == VerificationRejected {
			p.VerificationRemark = ""
		}
		p.CompanyName = in.CompanyName
		p.BusinessField = in.BusinessField
		p.Address = in.Address
		p.City = in.City
		p.Province = in.Province
		p.Phone = in.Phone
		p.Website = in.Website
		p.Description = in.Description
		p.LogoFile = in.LogoFile
		p.PICName = in.PICName
		p.PICPosition = in.PICPosition
		p.PICPhone = in.PICPhone
		p.PICEmail = in.PICEmail
		p.VerificationStatus = resubmitted(p.VerificationStatus)
		p.UpdatedAt = now

		saved, err = svc.repo.SaveCompany(ctx, p, tx)
		return err
	})
	return saved, err
}

func (svc *service) QueryCompanies(ctx context.Context, actor core.Actor, filter QueryFilter) ([]CompanyProfile, error) {
	if err := actor.Can(core.ActionProfileVerify); err != nil {
		return nil, err
	}
	filter.Clean()
	return svc.repo.QueryCompanies(ctx, filter)
}

func (svc *service) GetTeacher(ctx context.Context, actor core.Actor, userID string) (TeacherProfile, error) {
	if err := canRead(actor, userID); err != nil {
		return TeacherProfile{}, err
	}
	return svc.repo.GetTeacher(ctx, userID)
}

func (svc *service) SaveOwnTeacher(ctx context.Context, actor core.Actor, in TeacherInput) (TeacherProfile, error) {
	if err := canWriteOwn(actor, core.RoleTeacher); err != nil {
		return TeacherProfile{}, err
	}
	in.Clean()
	if err := svc.validate.Struct(in); err != nil {
		return TeacherProfile{}, err
	}

	var saved TeacherProfile
	err := core.WithTx(ctx, svc.db, func(tx core.DBTransactor) error {
		now := core.Now()
		p, err := svc.repo.GetTeacher(ctx, actor.UserID, tx)
		if err != nil {
			return err
		}
		if p.CreatedAt.IsZero() {
			p.CreatedAt = now
		}
		p.NIP = in.NIP
		p.Subject = in.Subject
		p.Phone = in.Phone
		p.UpdatedAt = now

		saved, err = svc.repo.SaveTeacher(ctx, p, tx)
		return err
	})
	return saved, err
}

func (svc *service) QueryTeachers(ctx context.Context, actor core.Actor, filter QueryFilter) ([]TeacherProfile, error) {
	if err := actor.Can(core.ActionProfileVerify); err != nil {
		return nil, err
	}
	filter.Clean()
	return svc.repo.QueryTeachers(ctx, filter)
}

func (svc *service) decide(ctx context.Context, kind Kind, userID string, to VerificationStatus, remark string) error {
	return core.WithTx(ctx, svc.db, func(tx core.DBTransactor) error {
		current, err := svc.repo.GetVerification(ctx, kind, userID, tx)
		if err != nil {
			return err
		}
		if current != VerificationPending {
			return core.NewConflictError(kind.entity() + " has already been " + string(current))
		}
		ok, err := svc.repo.SetVerification(ctx, kind, userID, current, to, remark, core.Now(), tx)
		if err != nil {
			return err
		}
		if !ok {
			return core.NewConflictError(kind.entity() + " was modified concurrently")
		}
		return nil
	})
}

// Verify approves a pending profile.
func (svc *service) Verify(ctx context.Context, actor core.Actor, kind Kind, userID string) error {
	if err := actor.Can(core.ActionProfileVerify); err != nil {
		return err
	}
	return svc.decide(ctx, kind, userID, VerificationApproved, "")
}

// Reject refuses a pending profile; the reason is stored as the verification remark.
func (svc *service) Reject(ctx context.Context, actor core.Actor, kind Kind, userID string, r Rejection) error {
	if err := actor.Can(core.ActionProfileVerify); err != nil {
		return err
	}
	reason := core.CleanString(r.Reason)
	if reason == "" {
		return core.NewFieldError("reason", "this field is required")
	}
	return svc.decide(ctx, kind, userID, VerificationRejected, reason)
}

func (svc *service) Delete(ctx context.Context, actor core.Actor, kind Kind, userID string) error {
	if err := actor.Can(core.ActionProfileVerify); err != nil {
		return err
	}
	return svc.repo.DeleteProfile(ctx, kind, userID)
}
