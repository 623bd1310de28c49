package application_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simagang/simagang/core"
	"github.com/simagang/simagang/core/application"
	"github.com/simagang/simagang/core/posting"
	"github.com/simagang/simagang/core/profile"
	"github.com/simagang/simagang/services/email"
	"github.com/simagang/simagang/tests"
)

type fixture struct {
	env     *testutil.Env
	svc     application.Service
	admin   core.Actor
	student core.Actor
	company core.Actor
	posting posting.Posting
}

func setup(t *testing.T) fixture {
	env := testutil.NewEnv(t)
	emailsvc.ClearSentMessages()
	svc := application.NewService(
		env.DB,
		env.Applications,
		env.Postings,
		env.Profiles,
		env.Users,
		emailsvc.NewConsoleServiceMock(testutil.NewLogger()),
		testutil.NewValidator(),
		testutil.NewLogger(),
	)
	company := env.Company("PT Nusantara Digital", profile.VerificationApproved)
	return fixture{
		env:     env,
		svc:     svc,
		admin:   env.Admin().Actor(),
		student: env.Student("Siti Rahma", profile.VerificationApproved).Actor(),
		company: company.Actor(),
		posting: env.Posting(company.ID, "Backend Intern", "", ""),
	}
}

func newApplication(postingID string) application.NewApplication {
	return application.NewApplication{
		PostingID:       postingID,
		CoverLetterFile: "uploads/cover.pdf",
		CVFile:          "uploads/cv.pdf",
		ContactNumber:   "081234567890",
		StudentNote:     "  Siap ditempatkan  ",
	}
}

func TestService_Submit(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	app, err := f.svc.Submit(ctx, f.student, newApplication(f.posting.ID))
	require.NoError(t, err)
	assert.Equal(t, application.StatusPending, app.Status)
	assert.Equal(t, f.student.UserID, app.StudentID)
	assert.Equal(t, f.posting.CompanyID, app.CompanyID)
	assert.Equal(t, "Backend Intern", app.PostingTitle)
	assert.Equal(t, "Siap ditempatkan", app.StudentNote)
	assert.Nil(t, app.InterviewAt)

	draft := f.env.Posting(f.posting.CompanyID, "Draft", posting.StatusDraft, posting.ApprovalApproved)
	pending := f.env.Posting(f.posting.CompanyID, "Pending", posting.StatusActive, posting.ApprovalPending)
	unverified := f.env.Student("Budi", profile.VerificationPending).Actor()

	tests := []struct {
		name    string
		actor   core.Actor
		na      application.NewApplication
		wantErr func(error) bool
	}{
		{name: "not a student", actor: f.company, na: newApplication(f.posting.ID), wantErr: core.IsAuthorization},
		{name: "missing fields", actor: f.student, na: application.NewApplication{PostingID: f.posting.ID}, wantErr: core.IsValidation},
		{name: "bad phone", actor: f.student, na: func() application.NewApplication {
			na := newApplication(f.posting.ID)
			na.ContactNumber = "call me"
			return na
		}(), wantErr: core.IsValidation},
		{name: "unknown posting", actor: f.student, na: newApplication("nope"), wantErr: core.IsNotFound},
		{name: "draft posting", actor: f.student, na: newApplication(draft.ID), wantErr: core.IsConflict},
		{name: "unapproved posting", actor: f.student, na: newApplication(pending.ID), wantErr: core.IsConflict},
		{name: "unverified student", actor: unverified, na: newApplication(f.posting.ID), wantErr: core.IsConflict},
		{name: "duplicate open application", actor: f.student, na: newApplication(f.posting.ID), wantErr: core.IsConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Submit(ctx, tt.actor, tt.na)
			assert.True(t, tt.wantErr(err), "got %v", err)
		})
	}
}

func TestService_Submit_AfterRejection(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	app, err := f.svc.Submit(ctx, f.student, newApplication(f.posting.ID))
	require.NoError(t, err)
	_, err = f.svc.Reject(ctx, f.admin, app.ID, application.Rejection{Reason: "Kuota penuh"})
	require.NoError(t, err)

	again, err := f.svc.Submit(ctx, f.student, newApplication(f.posting.ID))
	require.NoError(t, err, "a closed application does not block a new one")
	assert.NotEqual(t, app.ID, again.ID)
}

func TestService_Lifecycle(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	app, err := f.svc.Submit(ctx, f.student, newApplication(f.posting.ID))
	require.NoError(t, err)

	at := time.Date(2024, 7, 3, 9, 30, 0, 0, time.FixedZone("WIB", 7*3600))
	app, err = f.svc.ScheduleInterview(ctx, f.admin, app.ID, application.InterviewSchedule{InterviewAt: &at, Note: "Bawa portofolio"})
	require.NoError(t, err)
	assert.Equal(t, application.StatusInterview, app.Status)
	require.NotNil(t, app.InterviewAt)
	assert.True(t, at.Equal(*app.InterviewAt))
	assert.Equal(t, "Bawa portofolio", app.CompanyRemark)

	app, err = f.svc.Accept(ctx, f.admin, app.ID, application.Decision{Note: "Selamat"})
	require.NoError(t, err)
	assert.Equal(t, application.StatusAccepted, app.Status)

	stored, err := f.svc.Get(ctx, f.admin, app.ID)
	require.NoError(t, err)
	assert.Equal(t, application.StatusAccepted, stored.Status)
	assert.Equal(t, "Selamat", stored.CompanyRemark)
	require.NotNil(t, stored.InterviewAt)
	assert.True(t, at.Equal(*stored.InterviewAt))

	_, err = f.svc.Reject(ctx, f.admin, app.ID, application.Rejection{Reason: "berubah pikiran"})
	assert.True(t, core.IsTransition(err), "accepted is terminal: %v", err)

	sent := emailsvc.Sent()
	require.Len(t, sent, 2)
	assert.Equal(t, "Undangan interview", sent[0].Subject)
	assert.Contains(t, sent[0].TextContent, "03 Jul 2024 02:30 UTC")
	assert.Equal(t, "Lamaran Anda diterima", sent[1].Subject)
}

func TestService_Decisions(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	at := time.Now().Add(24 * time.Hour)

	tests := []struct {
		name       string
		from       application.Status
		act        func(id string) (application.Application, error)
		wantStatus application.Status
		wantErr    func(error) bool
	}{
		{
			name: "review pending", from: application.StatusPending, wantStatus: application.StatusReview,
			act: func(id string) (application.Application, error) {
				return f.svc.Review(ctx, f.admin, id, application.Decision{})
			},
		},
		{
			name: "accept under review", from: application.StatusReview, wantStatus: application.StatusAccepted,
			act: func(id string) (application.Application, error) {
				return f.svc.Accept(ctx, f.admin, id, application.Decision{})
			},
		},
		{
			name: "reject interview", from: application.StatusInterview, wantStatus: application.StatusRejected,
			act: func(id string) (application.Application, error) {
				return f.svc.Reject(ctx, f.admin, id, application.Rejection{Reason: "Tidak hadir"})
			},
		},
		{
			name: "reject without reason", from: application.StatusPending, wantErr: core.IsValidation,
			act: func(id string) (application.Application, error) {
				return f.svc.Reject(ctx, f.admin, id, application.Rejection{Reason: "   "})
			},
		},
		{
			name: "interview without time", from: application.StatusPending, wantErr: core.IsValidation,
			act: func(id string) (application.Application, error) {
				return f.svc.ScheduleInterview(ctx, f.admin, id, application.InterviewSchedule{})
			},
		},
		{
			name: "interview at zero time", from: application.StatusPending, wantErr: core.IsValidation,
			act: func(id string) (application.Application, error) {
				return f.svc.ScheduleInterview(ctx, f.admin, id, application.InterviewSchedule{InterviewAt: &time.Time{}})
			},
		},
		{
			name: "reschedule interview", from: application.StatusInterview, wantErr: core.IsTransition,
			act: func(id string) (application.Application, error) {
				return f.svc.ScheduleInterview(ctx, f.admin, id, application.InterviewSchedule{InterviewAt: &at})
			},
		},
		{
			name: "review rejected", from: application.StatusRejected, wantErr: core.IsTransition,
			act: func(id string) (application.Application, error) {
				return f.svc.Review(ctx, f.admin, id, application.Decision{})
			},
		},
		{
			name: "company cannot decide", from: application.StatusPending, wantErr: core.IsAuthorization,
			act: func(id string) (application.Application, error) {
				return f.svc.Accept(ctx, f.company, id, application.Decision{})
			},
		},
		{
			name: "student cannot decide", from: application.StatusPending, wantErr: core.IsAuthorization,
			act: func(id string) (application.Application, error) {
				return f.svc.Accept(ctx, f.student, id, application.Decision{})
			},
		},
		{
			name: "unknown application", wantErr: core.IsNotFound,
			act: func(string) (application.Application, error) {
				return f.svc.Accept(ctx, f.admin, "nope", application.Decision{})
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var id string
			if tt.from != "" {
				id = f.env.Application(f.env.Student("Siswa", profile.VerificationApproved).ID, f.posting, tt.from).ID
			}
			got, err := tt.act(id)
			if tt.wantErr != nil {
				assert.True(t, tt.wantErr(err), "got %v", err)
				if id != "" {
					stored, _ := f.env.Applications.GetApplication(ctx, id)
					assert.Equal(t, tt.from, stored.Status, "status is left untouched")
				}
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, got.Status)
		})
	}
}

func TestService_ConcurrentDecisions(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	app := f.env.Application(f.student.UserID, f.posting, application.StatusPending)

	var (
		wg       sync.WaitGroup
		accepted int
		rejected int
		failures int
		mu       sync.Mutex
	)
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := f.svc.Accept(ctx, f.admin, app.ID, application.Decision{})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				accepted++
			} else if core.IsTransition(err) {
				failures++
			}
		}()
		go func() {
			defer wg.Done()
			_, err := f.svc.Reject(ctx, f.admin, app.ID, application.Rejection{Reason: "Kuota penuh"})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				rejected++
			} else if core.IsTransition(err) {
				failures++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, accepted+rejected, "exactly one decision wins")
	assert.Equal(t, 7, failures)

	stored, err := f.env.Applications.GetApplication(ctx, app.ID)
	require.NoError(t, err)
	assert.True(t, stored.Status.IsTerminal())
}

func TestService_Withdraw(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	other := f.env.Student("Dewi", profile.VerificationApproved).Actor()

	pending := f.env.Application(f.student.UserID, f.posting, application.StatusPending)
	interview := f.env.Application(other.UserID, f.posting, application.StatusInterview)

	assert.True(t, core.IsNotFound(f.svc.Withdraw(ctx, other, pending.ID)), "not the owner")
	assert.True(t, core.IsAuthorization(f.svc.Withdraw(ctx, f.admin, pending.ID)))
	assert.True(t, core.IsTransition(f.svc.Withdraw(ctx, other, interview.ID)))

	require.NoError(t, f.svc.Withdraw(ctx, f.student, pending.ID))
	_, err := f.env.Applications.GetApplication(ctx, pending.ID)
	assert.Equal(t, application.ErrNotFound, err)

	assert.True(t, core.IsNotFound(f.svc.Withdraw(ctx, f.student, pending.ID)))
}

func TestService_Delete(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	rejected := f.env.Application(f.student.UserID, f.posting, application.StatusRejected)
	accepted := f.env.Application(f.student.UserID, f.posting, application.StatusAccepted)
	f.env.Placement(accepted, f.env.Teacher("Pak Guru").ID, "")

	assert.True(t, core.IsAuthorization(f.svc.Delete(ctx, f.student, rejected.ID)))
	assert.True(t, core.IsConflict(f.svc.Delete(ctx, f.admin, accepted.ID)), "placed applications stay")
	assert.True(t, core.IsNotFound(f.svc.Delete(ctx, f.admin, "nope")))

	require.NoError(t, f.svc.Delete(ctx, f.admin, rejected.ID))
	_, err := f.env.Applications.GetApplication(ctx, rejected.ID)
	assert.Equal(t, application.ErrNotFound, err)
}

func TestService_Visibility(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	otherCompany := f.env.Company("CV Maju", profile.VerificationApproved)
	otherPosting := f.env.Posting(otherCompany.ID, "Desain Grafis", "", "")
	mine := f.env.Application(f.student.UserID, f.posting, application.StatusPending)
	theirs := f.env.Application(f.env.Student("Andi", profile.VerificationApproved).ID, otherPosting, application.StatusPending)

	_, err := f.svc.Get(ctx, f.student, theirs.ID)
	assert.True(t, core.IsNotFound(err))
	_, err = f.svc.Get(ctx, f.company, theirs.ID)
	assert.True(t, core.IsNotFound(err))
	_, err = f.svc.Get(ctx, f.env.Teacher("Bu Guru").Actor(), mine.ID)
	assert.True(t, core.IsAuthorization(err))

	tests := []struct {
		name  string
		actor core.Actor
		want  []string
	}{
		{name: "admin", actor: f.admin, want: []string{mine.ID, theirs.ID}},
		{name: "student", actor: f.student, want: []string{mine.ID}},
		{name: "company", actor: f.company, want: []string{mine.ID}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			apps, err := f.svc.Query(ctx, tt.actor, application.QueryFilter{}, nil)
			require.NoError(t, err)
			ids := make([]string, 0, len(apps))
			for _, app := range apps {
				ids = append(ids, app.ID)
			}
			assert.ElementsMatch(t, tt.want, ids)
		})
	}
}

func TestService_Stats(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	for _, s := range []application.Status{
		application.StatusPending, application.StatusPending, application.StatusInterview,
		application.StatusReview, application.StatusAccepted, application.StatusRejected,
	} {
		f.env.Application(f.env.Student("Siswa", profile.VerificationApproved).ID, f.posting, s)
	}

	_, err := f.svc.Stats(ctx, f.company)
	assert.True(t, core.IsAuthorization(err))

	stats, err := f.svc.Stats(ctx, f.admin)
	require.NoError(t, err)
	assert.Equal(t, application.Stats{Total: 6, Pending: 2, Interview: 1, Review: 1, Accepted: 1, Rejected: 1}, stats)
}
