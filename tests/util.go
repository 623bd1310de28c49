// Package testutil sets up throwaway databases and fixtures for package tests.
package testutil

import (
	"context"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/simagang/simagang/core"
	"github.com/simagang/simagang/core/application"
	"github.com/simagang/simagang/core/assessment"
	"github.com/simagang/simagang/core/placement"
	"github.com/simagang/simagang/core/posting"
	"github.com/simagang/simagang/core/profile"
	"github.com/simagang/simagang/core/user"
	logsvc "github.com/simagang/simagang/services/logger"
	"github.com/simagang/simagang/storage/database"
	"github.com/simagang/simagang/storage/database/sqlxrepos"
)

// Password satisfies the password policy for every fixture user.
const Password = "Rahasia#2024"

var seq int64

func next() int64 { return atomic.AddInt64(&seq, 1) }

// PrepareDB returns a migrated SQLite database living in the test's temp dir.
func PrepareDB(t testing.TB) *sqlx.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "simagang.db")
	db, err := sqlx.Open(database.EngineSQLite, database.SQLiteDSN(path))
	if err != nil {
		t.Fatalf("PrepareDB(): %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err = database.Migrate(context.Background(), db, database.EngineSQLite); err != nil {
		t.Fatalf("PrepareDB(): %v", err)
	}
	return db
}

func NewValidator() *core.Validator {
	return core.NewValidator(validator.New(), core.NewTranslator())
}

// NewLogger returns a logger that reports nothing.
func NewLogger() core.Logger {
	conf := *core.Conf
	conf.RollbarToken = ""
	return logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), &conf)
}

type Repos struct {
	Users        user.Repository
	Profiles     profile.Repository
	Postings     posting.Repository
	Applications application.Repository
	Placements   placement.Repository
	Assessments  assessment.Repository
}

func NewRepos(db *sqlx.DB) Repos {
	return Repos{
		Users:        sqlxrepos.NewUserRepository(db),
		Profiles:     sqlxrepos.NewProfileRepository(db),
		Postings:     sqlxrepos.NewPostingRepository(db),
		Applications: sqlxrepos.NewApplicationRepository(db),
		Placements:   sqlxrepos.NewPlacementRepository(db),
		Assessments:  sqlxrepos.NewAssessmentRepository(db),
	}
}

// Env is a migrated database with its repositories and fixture builders.
type Env struct {
	t  testing.TB
	DB *sqlx.DB
	Repos
}

func NewEnv(t testing.TB) *Env {
	db := PrepareDB(t)
	return &Env{t: t, DB: db, Repos: NewRepos(db)}
}

func (env *Env) fatal(fn string, err error) {
	env.t.Helper()
	if err != nil {
		env.t.Fatalf("%s(): %v", fn, err)
	}
}

// User creates an active user with Password as password.
func (env *Env) User(role core.Role, name string) user.User {
	env.t.Helper()
	n := next()
	now := core.Now()
	usr := user.User{
		ID:        uuid.New().String(),
		Name:      name,
		Username:  fmt.Sprintf("%s%d", role, n),
		Email:     fmt.Sprintf("%s%d@test.test", role, n),
		Role:      role,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	env.fatal("User", usr.SetPassword(Password))
	usr, err := env.Users.CreateUser(context.Background(), usr)
	env.fatal("User", err)
	return usr
}

func (env *Env) Admin() user.User { return env.User(core.RoleAdmin, "Admin") }

// Student creates a siswa with a profile in the given verification status.
func (env *Env) Student(name string, status profile.VerificationStatus) user.User {
	env.t.Helper()
	usr := env.User(core.RoleStudent, name)
	now := core.Now()
	_, err := env.Profiles.SaveStudent(context.Background(), profile.StudentProfile{
		UserID:             usr.ID,
		NISN:               fmt.Sprintf("%010d", next()),
		Major:              "Rekayasa Perangkat Lunak",
		ClassName:          "XII RPL 1",
		VerificationStatus: status,
		CreatedAt:          now,
		UpdatedAt:          now,
	})
	env.fatal("Student", err)
	return usr
}

// Company creates a perusahaan with a profile in the given verification status.
func (env *Env) Company(name string, status profile.VerificationStatus) user.User {
	env.t.Helper()
	usr := env.User(core.RoleCompany, name)
	now := core.Now()
	_, err := env.Profiles.SaveCompany(context.Background(), profile.CompanyProfile{
		UserID:             usr.ID,
		CompanyName:        name,
		City:               "Bandung",
		VerificationStatus: status,
		CreatedAt:          now,
		UpdatedAt:          now,
	})
	env.fatal("Company", err)
	return usr
}

func (env *Env) Teacher(name string) user.User { return env.User(core.RoleTeacher, name) }

// Posting creates a posting of companyID. An empty status or approval means an open posting.
func (env *Env) Posting(companyID, title string, status posting.Status, approval posting.Approval) posting.Posting {
	env.t.Helper()
	if status == "" {
		status = posting.StatusActive
	}
	if approval == "" {
		approval = posting.ApprovalApproved
	}
	now := core.Now()
	p, err := env.Postings.CreatePosting(context.Background(), posting.Posting{
		ID:          uuid.New().String(),
		CompanyID:   companyID,
		Title:       title,
		Type:        posting.TypeInternship,
		Description: "Magang " + title,
		Positions:   2,
		Location:    "Bandung",
		StartDate:   core.NewDate(2024, time.July, 1),
		EndDate:     core.NewDate(2024, time.December, 31),
		Status:      status,
		Approval:    approval,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	env.fatal("Posting", err)
	return p
}

// Application stores an application of studentID to p directly in the given status.
func (env *Env) Application(studentID string, p posting.Posting, status application.Status) application.Application {
	env.t.Helper()
	now := core.Now()
	app := application.Application{
		ID:              uuid.New().String(),
		StudentID:       studentID,
		PostingID:       p.ID,
		Status:          status,
		CoverLetterFile: "cover.pdf",
		CVFile:          "cv.pdf",
		ContactNumber:   "081234567890",
		SubmittedAt:     now,
		UpdatedAt:       now,
	}
	if status == application.StatusInterview {
		at := now.Add(48 * time.Hour)
		app.InterviewAt = &at
	}
	app, err := env.Applications.CreateApplication(context.Background(), app)
	env.fatal("Application", err)
	return app
}

// Placement places an accepted application under teacherID.
func (env *Env) Placement(app application.Application, teacherID string, status placement.Status) placement.Placement {
	env.t.Helper()
	if status == "" {
		status = placement.StatusActive
	}
	now := core.Now()
	p, err := env.Placements.CreatePlacement(context.Background(), placement.Placement{
		ID:            uuid.New().String(),
		ApplicationID: app.ID,
		StudentID:     app.StudentID,
		CompanyID:     app.CompanyID,
		PostingID:     app.PostingID,
		TeacherID:     teacherID,
		StartDate:     core.NewDate(2024, time.July, 1),
		EndDate:       core.NewDate(2024, time.September, 30),
		Status:        status,
		CreatedAt:     now,
		UpdatedAt:     now,
	})
	env.fatal("Placement", err)
	return p
}

// Scores returns pointers to the five scores of an assessment.
func Scores(discipline, teamwork, initiative, technical, communication int) (d, tw, i, tc, c *int) {
	return &discipline, &teamwork, &initiative, &technical, &communication
}
