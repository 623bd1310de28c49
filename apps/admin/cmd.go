package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"syscall"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"golang.org/x/term"

	"github.com/simagang/simagang/core"
	"github.com/simagang/simagang/core/profile"
	"github.com/simagang/simagang/core/user"
	"github.com/simagang/simagang/storage/database"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")

	// operator is the actor behind every CLI change.
	operator = core.NewActor("admin-cli", core.RoleAdmin)
)

type commandLine struct {
	db         *sqlx.DB
	engine     string
	out        io.Writer
	usrSvc     user.Service
	profileSvc profile.Service
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate up|down|version - apply, roll back one or show the database migrations")
	fmt.Fprintln(cli.out, "  adduser -name NAME -username USERNAME [-email EMAIL] [-role ROLE] - create a user, the password is prompted")
	fmt.Fprintln(cli.out, "  resetpassword -username USERNAME|EMAIL - reset user's password, the password is prompted")
	fmt.Fprintln(cli.out, "  loaddata -file FILE - load users and profiles from a YAML fixture")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}
	ctx := context.Background()

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(ctx, args[2])

	case "adduser":
		cmd := flag.NewFlagSet("adduser", flag.ContinueOnError)
		name := cmd.String("name", "", "The user's full name.")
		uname := cmd.String("username", "", "The user's username.")
		email := cmd.String("email", "", "The user's email.")
		role := cmd.String("role", string(core.RoleAdmin), "One of admin, siswa, perusahaan or guru.")
		if err := cmd.Parse(args[2:]); err != nil {
			return err
		}
		if *name == "" || (*uname == "" && *email == "") {
			cmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			cmd.Usage()
			return errHelp
		}
		return cli.addUser(ctx, user.NewUser{
			Name:            *name,
			Username:        *uname,
			Email:           *email,
			Role:            core.Role(*role),
			Password:        pwd,
			PasswordConfirm: pwd,
		})

	case "resetpassword":
		cmd := flag.NewFlagSet("resetpassword", flag.ContinueOnError)
		uname := cmd.String("username", "", "The user's username or email. The password will be prompted next.")
		if err := cmd.Parse(args[2:]); err != nil {
			return err
		}
		if *uname == "" {
			cmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			cmd.Usage()
			return errHelp
		}
		return cli.resetPassword(ctx, *uname, pwd)

	case "loaddata":
		cmd := flag.NewFlagSet("loaddata", flag.ContinueOnError)
		file := cmd.String("file", "", "Path of the YAML fixture.")
		if err := cmd.Parse(args[2:]); err != nil {
			return err
		}
		if *file == "" {
			cmd.Usage()
			return errHelp
		}
		f, err := os.Open(*file)
		if err != nil {
			return errors.Wrap(err, "opening fixture")
		}
		defer f.Close()
		return cli.loadData(ctx, f)

	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) promptPassword() (string, error) {
	fmt.Fprint(cli.out, "Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Fprintln(cli.out)
	return string(pwd), err
}

func (cli *commandLine) migrate(ctx context.Context, cmd string) error {
	switch cmd {
	case "up":
		if err := database.Migrate(ctx, cli.db, cli.engine); err != nil {
			return err
		}
	case "down":
		if err := database.Rollback(ctx, cli.db, cli.engine); err != nil {
			return err
		}
	case "version":
	default:
		return fmt.Errorf("%q: no such command", cmd)
	}
	v, err := database.Version(ctx, cli.db, cli.engine)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "database version: %d\n", v)
	return nil
}

func (cli *commandLine) addUser(ctx context.Context, nu user.NewUser) error {
	usr, err := cli.usrSvc.Create(ctx, operator, nu)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "created %s %q (%s)\n", usr.Role, usr.Username, usr.ID)
	return nil
}

func (cli *commandLine) resetPassword(ctx context.Context, uname, pwd string) error {
	usr, err := cli.usrSvc.GetByUsernameOrEmail(ctx, uname)
	if err != nil {
		return err
	}
	_, err = cli.usrSvc.Update(ctx, operator, usr.ID, user.UpdateUser{Password: pwd, PasswordConfirm: pwd})
	return err
}
