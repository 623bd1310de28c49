package main

import (
	"context"
	"fmt"
	"io"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/simagang/simagang/core"
	"github.com/simagang/simagang/core/profile"
	"github.com/simagang/simagang/core/user"
)

type (
	fixture struct {
		Users []fixtureUser `yaml:"users"`
	}

	fixtureUser struct {
		Name     string    `yaml:"name"`
		Username string    `yaml:"username"`
		Email    string    `yaml:"email"`
		Role     core.Role `yaml:"role"`
		Password string    `yaml:"password"`

		Student *fixtureStudent `yaml:"student"`
		Company *fixtureCompany `yaml:"company"`
		Teacher *fixtureTeacher `yaml:"teacher"`
	}

	fixtureStudent struct {
		profile.StudentInput `yaml:",inline"`
		Verified             bool `yaml:"verified"`
	}

	fixtureCompany struct {
		profile.CompanyInput `yaml:",inline"`
		Verified             bool `yaml:"verified"`
	}

	fixtureTeacher struct {
		profile.TeacherInput `yaml:",inline"`
	}
)

// loadData creates the users of a YAML fixture along with their profiles.
// Profiles marked verified are approved right away.
func (cli *commandLine) loadData(ctx context.Context, r io.Reader) error {
	var fx fixture
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&fx); err != nil {
		return errors.Wrap(err, "decoding fixture")
	}

	for i, fu := range fx.Users {
		if err := cli.loadUser(ctx, fu); err != nil {
			return errors.Wrapf(err, "loading user #%d (%s)", i+1, fu.Username)
		}
	}
	fmt.Fprintf(cli.out, "loaded %d users\n", len(fx.Users))
	return nil
}

func (cli *commandLine) loadUser(ctx context.Context, fu fixtureUser) error {
	usr, err := cli.usrSvc.Create(ctx, operator, user.NewUser{
		Name:            fu.Name,
		Username:        fu.Username,
		Email:           fu.Email,
		Role:            fu.Role,
		Password:        fu.Password,
		PasswordConfirm: fu.Password,
	})
	if err != nil {
		return err
	}
	owner := usr.Actor()

	switch {
	case fu.Student != nil:
		if _, err = cli.profileSvc.SaveOwnStudent(ctx, owner, fu.Student.StudentInput); err != nil {
			return err
		}
		if fu.Student.Verified {
			return cli.profileSvc.Verify(ctx, operator, profile.KindStudent, usr.ID)
		}
	case fu.Company != nil:
		if _, err = cli.profileSvc.SaveOwnCompany(ctx, owner, fu.Company.CompanyInput); err != nil {
			return err
		}
		if fu.Company.Verified {
			return cli.profileSvc.Verify(ctx, operator, profile.KindCompany, usr.ID)
		}
	case fu.Teacher != nil:
		_, err = cli.profileSvc.SaveOwnTeacher(ctx, owner, fu.Teacher.TeacherInput)
	}
	return err
}
