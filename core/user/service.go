package user

import (
	"context"
	"errors"

	"github.com/google/uuid"
	pkgerrors "github.com/pkg/errors"

	"github.com/simagang/simagang/core"
)

var (
	// errors
	ErrNotFound       = core.NewNotFoundError("user")
	ErrEmailExists    = errors.New("a user with this email already exists")
	ErrUsernameExists = errors.New("a user with this username already exists")
	ErrDeleteSelf     = core.NewConflictError("you cannot delete your own account")
)

type (
	Repository interface {
		// CheckUniqueness returns ErrUsernameExists or ErrEmailExists when taken by another user than excludeID.
		CheckUniqueness(ctx context.Context, username, email, excludeID string, exec ...core.DBExecutor) error
		CreateUser(ctx context.Context, usr User, exec ...core.DBExecutor) (User, error)
		GetUser(ctx context.Context, filter GetFilter, exec ...core.DBExecutor) (User, error)
		// QueryUsers applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of User.Name, User.Username or User.Email.
		QueryUsers(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]User, error)
		UpdateUser(ctx context.Context, usr User, exec ...core.DBExecutor) (User, error)
		DeleteUser(ctx context.Context, id string, exec ...core.DBExecutor) error
		CountUsers(ctx context.Context, roles ...core.Role) (int, error)
	}

	Service interface {
		Create(ctx context.Context, actor core.Actor, nu NewUser) (User, error)
		Query(ctx context.Context, actor core.Actor, filter QueryFilter, ordering []core.DBOrdering) ([]User, error)
		Get(ctx context.Context, actor core.Actor, id string) (User, error)
		GetByID(ctx context.Context, id string) (User, error)
		GetByUsernameOrEmail(ctx context.Context, uname string) (User, error)
		Update(ctx context.Context, actor core.Actor, id string, uu UpdateUser) (User, error)
		Delete(ctx context.Context, actor core.Actor, id string) error
		SetLastLogin(ctx context.Context, usr User) (User, error)
	}

	service struct {
		db       core.DB
		repo     Repository
		validate *core.Validator
	}
)

var _ Service = (*service)(nil)

func NewService(db core.DB, repo Repository, validate *core.Validator) Service {
	InitValidators(validate)
	return &service{
		db:       db,
		repo:     repo,
		validate: validate,
	}
}

func (svc *service) checkUniqueness(ctx context.Context, uname, email, excludeID string, exec ...core.DBExecutor) error {
	if err := svc.repo.CheckUniqueness(ctx, uname, email, excludeID, exec...); err != nil {
		var field string
		switch err {
		case ErrUsernameExists:
			field = "username"
		case ErrEmailExists:
			field = "email"
		default:
			return err
		}
		return core.NewValidationError(err, core.FieldError{Field: field, Error: err.Error()})
	}
	return nil
}

func (svc *service) Create(ctx context.Context, actor core.Actor, nu NewUser) (User, error) {
	if err := actor.Can(core.ActionUserManage); err != nil {
		return User{}, err
	}
	nu.Clean()
	if err := svc.validate.Struct(nu); err != nil {
		return User{}, err
	}

	now := core.Now()
	usr := User{
		ID:        uuid.New().String(),
		Name:      nu.Name,
		Username:  nu.Username,
		Email:     nu.Email,
		Role:      nu.Role,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, pkgerrors.Wrap(err, "hashing password")
	}

	err := core.WithTx(ctx, svc.db, func(tx core.DBTransactor) error {
		if err := svc.checkUniqueness(ctx, nu.Username, nu.Email, "", tx); err != nil {
			return err
		}
		var err error
		usr, err = svc.repo.CreateUser(ctx, usr, tx)
		return err
	})
	if err != nil {
		return User{}, err
	}
	return usr, nil
}

func (svc *service) Query(ctx context.Context, actor core.Actor, filter QueryFilter, ordering []core.DBOrdering) ([]User, error) {
	if err := actor.Can(core.ActionUserManage); err != nil {
		return nil, err
	}
	filter.Clean()
	return svc.repo.QueryUsers(ctx, filter, ordering)
}

// Get returns the user `id` if the actor is that user or an admin.
func (svc *service) Get(ctx context.Context, actor core.Actor, id string) (User, error) {
	if actor.UserID != id {
		if err := actor.Can(core.ActionUserManage); err != nil {
			return User{}, err
		}
	}
	return svc.GetByID(ctx, id)
}

func (svc *service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{ID: id})
}

func (svc *service) GetByUsernameOrEmail(ctx context.Context, uname string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{UsernameOrEmail: core.CleanString(uname, true /* lower */)})
}

// Update modifies the user `id`. Non admins may only change their own name and password.
func (svc *service) Update(ctx context.Context, actor core.Actor, id string, uu UpdateUser) (User, error) {
	isAdmin := actor.Can(core.ActionUserManage) == nil
	if !isAdmin {
		if actor.UserID != id {
			return User{}, core.NewAuthorizationError(actor.Role, core.ActionUserManage)
		}
		// `IsActive`, `Username` and `Email` can only be changed by admin
		if uu.IsActive != nil || uu.Username != "" || uu.Email != "" {
			return User{}, core.NewAuthorizationError(actor.Role, core.ActionUserManage)
		}
	}

	var usr User
	err := core.WithTx(ctx, svc.db, func(tx core.DBTransactor) error {
		var err error
		if usr, err = svc.repo.GetUser(ctx, GetFilter{ID: id}, tx); err != nil {
			return err
		}
		uu.Clean(usr)
		if err = svc.validate.Struct(uu); err != nil {
			return err
		}
		if err = svc.checkUniqueness(ctx, uu.Username, uu.Email, usr.ID, tx); err != nil {
			return err
		}

		usr.Name = uu.Name
		usr.Username = uu.Username
		usr.Email = uu.Email
		if uu.IsActive != nil {
			usr.IsActive = *uu.IsActive
		}
		if uu.Password != "" {
			if err = usr.SetPassword(uu.Password); err != nil {
				return pkgerrors.Wrap(err, "hashing password")
			}
		}
		usr.UpdatedAt = core.Now()
		usr, err = svc.repo.UpdateUser(ctx, usr, tx)
		return err
	})
	if err != nil {
		return User{}, err
	}
	return usr, nil
}

func (svc *service) Delete(ctx context.Context, actor core.Actor, id string) error {
	if err := actor.Can(core.ActionUserManage); err != nil {
		return err
	}
	// Say No to Suicide! admins cannot delete themselves
	if actor.UserID == id {
		return ErrDeleteSelf
	}
	return svc.repo.DeleteUser(ctx, id)
}

func (svc *service) SetLastLogin(ctx context.Context, usr User) (User, error) {
	now := core.Now()
	usr.LastLogin = &now
	return svc.repo.UpdateUser(ctx, usr)
}
