package dashboard

import (
	"context"

	"github.com/simagang/simagang/core"
	"github.com/simagang/simagang/core/profile"
	"github.com/simagang/simagang/core/user"
)

type Stats struct {
	TotalUsers         int `json:"total_users"`
	VerifiedCompanies  int `json:"verified_companies"`
	RegisteredStudents int `json:"registered_students"`
}

type (
	Service interface {
		Stats(ctx context.Context, actor core.Actor) (Stats, error)
	}

	service struct {
		users    user.Repository
		profiles profile.Repository
	}
)

var _ Service = (*service)(nil)

func NewService(users user.Repository, profiles profile.Repository) Service {
	return &service{users: users, profiles: profiles}
}

func (svc *service) Stats(ctx context.Context, actor core.Actor) (Stats, error) {
	if err := actor.Can(core.ActionStatsView); err != nil {
		return Stats{}, err
	}
	var (
		stats Stats
		err   error
	)
	if stats.TotalUsers, err = svc.users.CountUsers(ctx); err != nil {
		return Stats{}, err
	}
	if stats.VerifiedCompanies, err = svc.profiles.CountCompanies(ctx, profile.VerificationApproved); err != nil {
		return Stats{}, err
	}
	if stats.RegisteredStudents, err = svc.users.CountUsers(ctx, core.RoleStudent); err != nil {
		return Stats{}, err
	}
	return stats, nil
}
