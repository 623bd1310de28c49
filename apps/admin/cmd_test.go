package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simagang/simagang/core"
	"github.com/simagang/simagang/core/profile"
	"github.com/simagang/simagang/core/user"
	"github.com/simagang/simagang/storage/database"
	"github.com/simagang/simagang/tests"
)

type fixtureEnv struct {
	*testutil.Env
	cli *commandLine
	out *bytes.Buffer
}

func setup(t *testing.T) fixtureEnv {
	env := testutil.NewEnv(t)
	validate := testutil.NewValidator()
	out := new(bytes.Buffer)

	// start CLI
	return fixtureEnv{
		Env: env,
		out: out,
		cli: &commandLine{
			db:         env.DB,
			engine:     database.EngineSQLite,
			out:        out,
			usrSvc:     user.NewService(env.DB, env.Users, validate),
			profileSvc: profile.NewService(env.DB, env.Profiles, validate),
		},
	}
}

func mockPassword(t *testing.T, pwd string) {
	orig := readPasswordFunc
	readPasswordFunc = func(int) ([]byte, error) { return []byte(pwd), nil }
	t.Cleanup(func() { readPasswordFunc = orig })
}

type cliTest struct {
	name       string
	args       []string // without program name
	pwd        string
	wantErr    error
	wantErrStr string
}

func runCLITests(t *testing.T, cli *commandLine, tests []cliTest) {
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockPassword(t, tt.pwd)
			err := cli.run(append([]string{"admin"}, tt.args...))
			switch {
			case tt.wantErr != nil:
				assert.Equal(t, tt.wantErr, err)
			case tt.wantErrStr != "":
				if assert.Error(t, err) {
					assert.Contains(t, err.Error(), tt.wantErrStr)
				}
			default:
				assert.NoError(t, err)
			}
		})
	}
}

func Test_commandLine_migrate(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	latest, err := database.Version(ctx, f.DB, database.EngineSQLite)
	require.NoError(t, err)

	runCLITests(t, f.cli, []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: `"lol": no such command`},
		{name: "version", args: []string{"migrate", "version"}},
		{name: "down", args: []string{"migrate", "down"}},
	})

	v, err := database.Version(ctx, f.DB, database.EngineSQLite)
	require.NoError(t, err)
	assert.Equal(t, latest-1, v)

	runCLITests(t, f.cli, []cliTest{{name: "up", args: []string{"migrate", "up"}}})
	v, err = database.Version(ctx, f.DB, database.EngineSQLite)
	require.NoError(t, err)
	assert.Equal(t, latest, v)
	assert.Contains(t, f.out.String(), "database version:")
}

func Test_commandLine_addUser(t *testing.T) {
	f := setup(t)
	taken := f.Teacher("Pak Guru")

	runCLITests(t, f.cli, []cliTest{
		{name: "no args", args: []string{"adduser"}, wantErr: errHelp},
		{name: "no password", args: []string{"adduser", "-name", "Admin", "-username", "admin"}, wantErr: errHelp},
		{name: "weak password", args: []string{"adduser", "-name", "Admin", "-username", "admin"}, pwd: "admin", wantErrStr: "invalid input"},
		{name: "unknown role", args: []string{"adduser", "-name", "Root", "-username", "root", "-role", "root"}, pwd: testutil.Password, wantErrStr: "invalid input"},
		{
			name: "taken username", args: []string{"adduser", "-name", "Guru", "-username", taken.Username}, pwd: testutil.Password,
			wantErrStr: "already exists",
		},
		{
			name: "created", args: []string{"adduser", "-name", "Admin Sekolah", "-username", "Operator", "-email", "ops@sekolah.sch.id"},
			pwd: testutil.Password,
		},
	})

	usr, err := f.Users.GetUser(context.Background(), user.GetFilter{UsernameOrEmail: "operator"})
	require.NoError(t, err)
	assert.Equal(t, core.RoleAdmin, usr.Role)
	assert.True(t, usr.IsActive)
	assert.NoError(t, usr.CheckPassword(testutil.Password))
}

func Test_commandLine_resetPassword(t *testing.T) {
	f := setup(t)
	usr := f.Student("Siti", "approved")

	runCLITests(t, f.cli, []cliTest{
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "username but no password", args: []string{"resetpassword", "-username", "lol"}, wantErr: errHelp},
		{name: "user not found", args: []string{"resetpassword", "-username", "lol"}, pwd: "Baru#20245", wantErr: user.ErrNotFound},
		{name: "weak password", args: []string{"resetpassword", "-username", usr.Username}, pwd: "12345678", wantErrStr: "invalid input"},
		{name: "reset with username", args: []string{"resetpassword", "-username", usr.Username}, pwd: "Baru#20245"},
		{name: "reset with email", args: []string{"resetpassword", "-username", usr.Email}, pwd: "Lagi#20245"},
	})

	refreshed, err := f.Users.GetUser(context.Background(), user.GetFilter{ID: usr.ID})
	require.NoError(t, err)
	assert.NoError(t, refreshed.CheckPassword("Lagi#20245"))
}

const fixtureYAML = `
users:
  - name: Admin Sekolah
    username: admin
    email: admin@sekolah.sch.id
    role: admin
    password: Rahasia#2024
  - name: Siti Aminah
    username: siti
    role: siswa
    password: Rahasia#2024
    student:
      nisn: "0012345678"
      major: Rekayasa Perangkat Lunak
      class_name: XII RPL 1
      birth_date: "2007-05-14"
      verified: true
  - name: PT Maju Jaya
    username: ptmaju
    role: perusahaan
    password: Rahasia#2024
    company:
      company_name: PT Maju Jaya
      city: Bandung
  - name: Budi Santoso
    username: budi_guru
    role: guru
    password: Rahasia#2024
    teacher:
      nip: "198001012005011001"
      subject: Produktif RPL
`

func Test_commandLine_loadData(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	dir := t.TempDir()
	good := filepath.Join(dir, "fixture.yaml")
	require.NoError(t, os.WriteFile(good, []byte(fixtureYAML), 0o600))
	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("users:\n  - nom: x\n"), 0o600))

	runCLITests(t, f.cli, []cliTest{
		{name: "no file", args: []string{"loaddata"}, wantErr: errHelp},
		{name: "missing file", args: []string{"loaddata", "-file", filepath.Join(dir, "nope.yaml")}, wantErrStr: "opening fixture"},
		{name: "unknown field", args: []string{"loaddata", "-file", bad}, wantErrStr: "decoding fixture"},
		{name: "loaded", args: []string{"loaddata", "-file", good}},
	})
	assert.Contains(t, f.out.String(), "loaded 4 users")

	n, err := f.Users.CountUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	siti, err := f.Users.GetUser(ctx, user.GetFilter{UsernameOrEmail: "siti"})
	require.NoError(t, err)
	status, err := f.Profiles.GetVerification(ctx, profile.KindStudent, siti.ID)
	require.NoError(t, err)
	assert.Equal(t, profile.VerificationApproved, status)
	sp, err := f.Profiles.GetStudent(ctx, siti.ID)
	require.NoError(t, err)
	assert.Equal(t, core.NewDate(2007, 5, 14), sp.BirthDate)

	company, err := f.Users.GetUser(ctx, user.GetFilter{UsernameOrEmail: "ptmaju"})
	require.NoError(t, err)
	status, err = f.Profiles.GetVerification(ctx, profile.KindCompany, company.ID)
	require.NoError(t, err)
	assert.Equal(t, profile.VerificationPending, status)

	guru, err := f.Users.GetUser(ctx, user.GetFilter{UsernameOrEmail: "budi_guru"})
	require.NoError(t, err)
	tp, err := f.Profiles.GetTeacher(ctx, guru.ID)
	require.NoError(t, err)
	assert.Equal(t, "Produktif RPL", tp.Subject)

	// loading twice trips over the existing usernames
	runCLITests(t, f.cli, []cliTest{{name: "reload", args: []string{"loaddata", "-file", good}, wantErrStr: "loading user #1 (admin)"}})
}
