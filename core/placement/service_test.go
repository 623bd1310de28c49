package placement_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simagang/simagang/core"
	"github.com/simagang/simagang/core/application"
	"github.com/simagang/simagang/core/assessment"
	"github.com/simagang/simagang/core/placement"
	"github.com/simagang/simagang/core/posting"
	"github.com/simagang/simagang/core/profile"
	"github.com/simagang/simagang/services/email"
	"github.com/simagang/simagang/tests"
)

type fixture struct {
	env      *testutil.Env
	svc      placement.Service
	admin    core.Actor
	company  core.Actor
	teacher  core.Actor
	posting  posting.Posting
	accepted application.Application
}

func setup(t *testing.T) fixture {
	env := testutil.NewEnv(t)
	emailsvc.ClearSentMessages()
	svc := placement.NewService(
		env.DB,
		env.Placements,
		env.Applications,
		env.Users,
		emailsvc.NewConsoleServiceMock(testutil.NewLogger()),
		testutil.NewValidator(),
		testutil.NewLogger(),
	)
	company := env.Company("PT Nusantara Digital", profile.VerificationApproved)
	p := env.Posting(company.ID, "Backend Intern", "", "")
	student := env.Student("Siti Rahma", profile.VerificationApproved)
	return fixture{
		env:      env,
		svc:      svc,
		admin:    env.Admin().Actor(),
		company:  company.Actor(),
		teacher:  env.Teacher("Pak Budi").Actor(),
		posting:  p,
		accepted: env.Application(student.ID, p, application.StatusAccepted),
	}
}

func (f fixture) newPlacement(appID string) placement.NewPlacement {
	return placement.NewPlacement{
		ApplicationID: appID,
		TeacherID:     f.teacher.UserID,
		StartDate:     core.NewDate(2024, time.July, 1),
		EndDate:       core.NewDate(2024, time.September, 30),
	}
}

func TestService_Create(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	p, err := f.svc.Create(ctx, f.admin, f.newPlacement(f.accepted.ID))
	require.NoError(t, err)
	assert.Equal(t, placement.StatusActive, p.Status)
	assert.Equal(t, f.accepted.StudentID, p.StudentID)
	assert.Equal(t, f.company.UserID, p.CompanyID)
	assert.Equal(t, f.posting.ID, p.PostingID)
	assert.Equal(t, "Pak Budi", p.TeacherName)
	assert.Equal(t, "PT Nusantara Digital", p.CompanyName)
	assert.Equal(t, "2024-07-01", p.StartDate.String())

	sent := emailsvc.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "placement_created", sent[0].TemplateName)
	assert.Contains(t, sent[0].TextContent, "Pak Budi")
	assert.Contains(t, sent[0].TextContent, "2024-07-01 s/d 2024-09-30")

	student := f.env.Student("Andi", profile.VerificationApproved)
	pending := f.env.Application(student.ID, f.posting, application.StatusPending)
	other := f.env.Application(f.env.Student("Rina", profile.VerificationApproved).ID, f.posting, application.StatusAccepted)
	inactive := f.env.Teacher("Bu Ani")
	inactive.IsActive = false
	_, err = f.env.Users.UpdateUser(ctx, inactive)
	require.NoError(t, err)

	tests := []struct {
		name    string
		actor   core.Actor
		np      placement.NewPlacement
		wantErr func(error) bool
	}{
		{name: "not admin", actor: f.company, np: f.newPlacement(other.ID), wantErr: core.IsAuthorization},
		{name: "missing fields", actor: f.admin, np: placement.NewPlacement{ApplicationID: other.ID}, wantErr: core.IsValidation},
		{name: "end before start", actor: f.admin, np: func() placement.NewPlacement {
			np := f.newPlacement(other.ID)
			np.EndDate = core.NewDate(2024, time.June, 1)
			return np
		}(), wantErr: core.IsValidation},
		{name: "unknown application", actor: f.admin, np: f.newPlacement("nope"), wantErr: core.IsNotFound},
		{name: "not accepted", actor: f.admin, np: f.newPlacement(pending.ID), wantErr: core.IsConflict},
		{name: "already placed", actor: f.admin, np: f.newPlacement(f.accepted.ID), wantErr: core.IsConflict},
		{name: "teacher is not a guru", actor: f.admin, np: func() placement.NewPlacement {
			np := f.newPlacement(other.ID)
			np.TeacherID = f.company.UserID
			return np
		}(), wantErr: core.IsValidation},
		{name: "inactive teacher", actor: f.admin, np: func() placement.NewPlacement {
			np := f.newPlacement(other.ID)
			np.TeacherID = inactive.ID
			return np
		}(), wantErr: core.IsValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Create(ctx, tt.actor, tt.np)
			assert.True(t, tt.wantErr(err), "got %v", err)
		})
	}
}

func TestService_Update(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	p := f.env.Placement(f.accepted, f.teacher.UserID, "")
	newTeacher := f.env.Teacher("Bu Sari")

	got, err := f.svc.Update(ctx, f.admin, p.ID, placement.UpdatePlacement{
		TeacherID: newTeacher.ID,
		EndDate:   core.NewDate(2024, time.October, 31),
	})
	require.NoError(t, err)
	assert.Equal(t, newTeacher.ID, got.TeacherID)
	assert.Equal(t, "Bu Sari", got.TeacherName)
	assert.Equal(t, "2024-07-01", got.StartDate.String(), "empty fields are kept")
	assert.Equal(t, "2024-10-31", got.EndDate.String())
	assert.Equal(t, placement.StatusActive, got.Status)

	_, err = f.svc.Update(ctx, f.admin, p.ID, placement.UpdatePlacement{EndDate: core.NewDate(2024, time.June, 1)})
	assert.True(t, core.IsValidation(err))

	_, err = f.svc.Update(ctx, f.admin, p.ID, placement.UpdatePlacement{Status: "paused"})
	assert.True(t, core.IsValidation(err))

	_, err = f.svc.Update(ctx, f.teacher, p.ID, placement.UpdatePlacement{Status: placement.StatusCompleted})
	assert.True(t, core.IsAuthorization(err))

	got, err = f.svc.Update(ctx, f.admin, p.ID, placement.UpdatePlacement{Status: placement.StatusCompleted})
	require.NoError(t, err)
	assert.Equal(t, placement.StatusCompleted, got.Status)

	tests := []placement.UpdatePlacement{
		{Status: placement.StatusActive},
		{Status: placement.StatusCancelled},
		{TeacherID: f.teacher.UserID},
	}
	for _, up := range tests {
		_, err = f.svc.Update(ctx, f.admin, p.ID, up)
		assert.True(t, core.IsTransition(err), "ended placements are frozen: %v", err)
	}

	stored, err := f.env.Placements.GetPlacement(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, placement.StatusCompleted, stored.Status)
	assert.Equal(t, newTeacher.ID, stored.TeacherID)
}

func TestService_Delete(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	p := f.env.Placement(f.accepted, f.teacher.UserID, "")

	d, tw, i, tc, c := testutil.Scores(80, 80, 80, 80, 80)
	_, err := f.env.Assessments.CreateAssessment(ctx, assessment.Assessment{
		ID: "a1", PlacementID: p.ID, RaterType: assessment.RaterTeacher, RaterID: f.teacher.UserID,
		Discipline: *d, Teamwork: *tw, Initiative: *i, Technical: *tc, Communication: *c,
		Composite: 80, CreatedAt: core.Now(),
	})
	require.NoError(t, err)

	assert.True(t, core.IsAuthorization(f.svc.Delete(ctx, f.company, p.ID)))
	require.NoError(t, f.svc.Delete(ctx, f.admin, p.ID))
	assert.True(t, core.IsNotFound(f.svc.Delete(ctx, f.admin, p.ID)))

	_, err = f.env.Assessments.GetAssessment(ctx, "a1")
	assert.Equal(t, assessment.ErrNotFound, err, "assessments go with their placement")

	app, err := f.env.Applications.GetApplication(ctx, f.accepted.ID)
	require.NoError(t, err)
	assert.Equal(t, application.StatusAccepted, app.Status)

	candidates, err := f.svc.Candidates(ctx, f.admin)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, f.accepted.ID, candidates[0].ID, "the application can be placed again")
}

func TestService_Candidates(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	placed := f.env.Application(f.env.Student("Andi", profile.VerificationApproved).ID, f.posting, application.StatusAccepted)
	f.env.Placement(placed, f.teacher.UserID, "")
	f.env.Application(f.env.Student("Rina", profile.VerificationApproved).ID, f.posting, application.StatusPending)

	_, err := f.svc.Candidates(ctx, f.teacher)
	assert.True(t, core.IsAuthorization(err))

	candidates, err := f.svc.Candidates(ctx, f.admin)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, f.accepted.ID, candidates[0].ID)
}

func TestService_Visibility(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	mine := f.env.Placement(f.accepted, f.teacher.UserID, "")
	otherTeacher := f.env.Teacher("Bu Sari")
	otherApp := f.env.Application(f.env.Student("Andi", profile.VerificationApproved).ID, f.posting, application.StatusAccepted)
	theirs := f.env.Placement(otherApp, otherTeacher.ID, "")

	tests := []struct {
		name  string
		actor core.Actor
		want  []string
	}{
		{name: "admin", actor: f.admin, want: []string{mine.ID, theirs.ID}},
		{name: "teacher", actor: f.teacher, want: []string{mine.ID}},
		{name: "company", actor: f.company, want: []string{mine.ID, theirs.ID}},
		{name: "student", actor: core.NewActor(f.accepted.StudentID, core.RoleStudent), want: []string{mine.ID}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ps, err := f.svc.Query(ctx, tt.actor, placement.QueryFilter{}, nil)
			require.NoError(t, err)
			ids := make([]string, 0, len(ps))
			for _, p := range ps {
				ids = append(ids, p.ID)
			}
			assert.ElementsMatch(t, tt.want, ids)
		})
	}

	_, err := f.svc.Get(ctx, f.teacher, theirs.ID)
	assert.True(t, core.IsNotFound(err))
	got, err := f.svc.Get(ctx, otherTeacher.Actor(), theirs.ID)
	require.NoError(t, err)
	assert.Equal(t, "Andi", got.StudentName)
}
