package sqlxrepos

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/simagang/simagang/core"
	"github.com/simagang/simagang/core/user"
)

type userRow struct {
	ID           string      `db:"id"`
	Name         string      `db:"name"`
	Username     null.String `db:"username"`
	Email        null.String `db:"email"`
	Role         string      `db:"role"`
	IsActive     bool        `db:"is_active"`
	PasswordHash string      `db:"password_hash"`
	CreatedAt    time.Time   `db:"created_at"`
	UpdatedAt    time.Time   `db:"updated_at"`
	LastLogin    null.Time   `db:"last_login"`
}

const userColumns = `id, name, username, email, role, is_active, password_hash, created_at, updated_at, last_login`

var userOrdering = map[string]string{
	"name":       "name",
	"username":   "username",
	"email":      "email",
	"role":       "role",
	"created_at": "created_at",
	"last_login": "last_login",
}

type userRepository struct {
	repository
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(exec core.DBExecutor) user.Repository {
	return &userRepository{repository{exec: exec}}
}

func (userRepository) toRow(usr user.User) userRow {
	row := userRow{
		ID:           usr.ID,
		Name:         usr.Name,
		Username:     null.NewString(usr.Username, usr.Username != ""),
		Email:        null.NewString(usr.Email, usr.Email != ""),
		Role:         string(usr.Role),
		IsActive:     usr.IsActive,
		PasswordHash: string(usr.PasswordHash),
		CreatedAt:    usr.CreatedAt.UTC(),
		UpdatedAt:    usr.UpdatedAt.UTC(),
	}
	if usr.LastLogin != nil {
		row.LastLogin = null.TimeFrom(usr.LastLogin.UTC())
	}
	return row
}

func (userRepository) fromRow(row userRow) user.User {
	usr := user.User{
		ID:           row.ID,
		Name:         row.Name,
		Username:     row.Username.String,
		Email:        row.Email.String,
		Role:         core.Role(row.Role),
		IsActive:     row.IsActive,
		PasswordHash: []byte(row.PasswordHash),
		CreatedAt:    row.CreatedAt.UTC(),
		UpdatedAt:    row.UpdatedAt.UTC(),
	}
	if row.LastLogin.Valid {
		t := row.LastLogin.Time.UTC()
		usr.LastLogin = &t
	}
	return usr
}

func (repo userRepository) CheckUniqueness(ctx context.Context, username, email, excludeID string, exec ...core.DBExecutor) error {
	var taken []userRow
	err := sel(ctx, repo.getExec(exec), &taken,
		`SELECT `+userColumns+` FROM users WHERE (username = ? OR email = ?) AND id <> ?`,
		null.NewString(username, username != ""), null.NewString(email, email != ""), excludeID)
	if err != nil {
		return errors.Wrap(err, "checking user uniqueness")
	}
	for _, row := range taken {
		if username != "" && row.Username.String == username {
			return user.ErrUsernameExists
		}
		if email != "" && row.Email.String == email {
			return user.ErrEmailExists
		}
	}
	return nil
}

func (repo userRepository) CreateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	row := repo.toRow(usr)
	_, err := repo.getExec(exec).NamedExecContext(ctx,
		`INSERT INTO users (`+userColumns+`)
		VALUES (:id, :name, :username, :email, :role, :is_active, :password_hash, :created_at, :updated_at, :last_login)`,
		row)
	if err != nil {
		if isUniqueViolation(err) {
			return user.User{}, repo.CheckUniqueness(ctx, usr.Username, usr.Email, usr.ID, exec...)
		}
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return repo.fromRow(row), nil
}

func (repo userRepository) GetUser(ctx context.Context, filter user.GetFilter, exec ...core.DBExecutor) (user.User, error) {
	var (
		row userRow
		err error
	)
	exe := repo.getExec(exec)
	switch {
	case filter.ID != "":
		err = get(ctx, exe, &row, `SELECT `+userColumns+` FROM users WHERE id = ?`, filter.ID)
	case filter.UsernameOrEmail != "":
		err = get(ctx, exe, &row, `SELECT `+userColumns+` FROM users WHERE username = ? OR email = ?`,
			filter.UsernameOrEmail, filter.UsernameOrEmail)
	default:
		return user.User{}, user.ErrNotFound
	}
	if err != nil {
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound, "finding user")
	}
	return repo.fromRow(row), nil
}

func (repo userRepository) QueryUsers(ctx context.Context, filter user.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]user.User, error) {
	var w where
	w.search(filter.Search, "name", "COALESCE(username, '')", "COALESCE(email, '')")
	if len(filter.Roles) > 0 {
		roles := make([]string, 0, len(filter.Roles))
		for _, r := range filter.Roles {
			roles = append(roles, string(r))
		}
		w.add("role IN (?)", roles)
	}
	if filter.IsActive != nil {
		w.add("is_active = ?", *filter.IsActive)
	}

	query, args, err := in(`SELECT `+userColumns+` FROM users`+w.String()+orderBy(ordering, userOrdering, "created_at DESC"), w.args...)
	if err != nil {
		return nil, err
	}
	var rows []userRow
	if err = sel(ctx, repo.getExec(exec), &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	users := make([]user.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, repo.fromRow(row))
	}
	return users, nil
}

func (repo userRepository) UpdateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	row := repo.toRow(usr)
	_, err := repo.getExec(exec).NamedExecContext(ctx,
		`UPDATE users SET name = :name, username = :username, email = :email, role = :role, is_active = :is_active,
		password_hash = :password_hash, updated_at = :updated_at, last_login = :last_login
		WHERE id = :id`,
		row)
	if err != nil {
		if isUniqueViolation(err) {
			return user.User{}, repo.CheckUniqueness(ctx, usr.Username, usr.Email, usr.ID, exec...)
		}
		return user.User{}, errors.Wrap(err, "updating user")
	}
	return repo.fromRow(row), nil
}

func (repo userRepository) DeleteUser(ctx context.Context, id string, exec ...core.DBExecutor) error {
	n, err := execAffected(ctx, repo.getExec(exec), `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return core.NewConflictError("user is referenced by placements or assessments and cannot be deleted")
		}
		return errors.Wrap(err, "deleting user")
	}
	if n == 0 {
		return user.ErrNotFound
	}
	return nil
}

func (repo userRepository) CountUsers(ctx context.Context, roles ...core.Role) (int, error) {
	var w where
	if len(roles) > 0 {
		rs := make([]string, 0, len(roles))
		for _, r := range roles {
			rs = append(rs, string(r))
		}
		w.add("role IN (?)", rs)
	}
	query, args, err := in(`SELECT COUNT(*) FROM users`+w.String(), w.args...)
	if err != nil {
		return 0, err
	}
	var n int
	if err = get(ctx, repo.exec, &n, query, args...); err != nil {
		return 0, errors.Wrap(err, "counting users")
	}
	return n, nil
}
