package tests

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/simagang/simagang/apps/api/echo"
	"github.com/simagang/simagang/core/application"
	"github.com/simagang/simagang/core/posting"
	emailsvc "github.com/simagang/simagang/services/email"
)

type transitionErr struct {
	Error         string `json:"error"`
	CurrentStatus string `json:"current_status"`
	Action        string `json:"action"`
}

func validSubmission(postingID string) application.NewApplication {
	return application.NewApplication{
		PostingID:       postingID,
		CoverLetterFile: "surat.pdf",
		CVFile:          "cv.pdf",
		ContactNumber:   "081234567890",
		StudentNote:     "Siap ditempatkan di mana saja",
	}
}

func Test_applicationApi_submit(t *testing.T) {
	f := setup(t)
	company := f.Company("PT Maju", "approved")
	open := f.Posting(company.ID, "Backend Intern", "", "")
	closed := f.Posting(company.ID, "Closed Intern", posting.StatusClosed, "")
	pending := f.Posting(company.ID, "Pending Intern", "", posting.ApprovalPending)
	student := f.Student("Siti", "approved")
	unverified := f.Student("Budi", "pending")
	token := getToken(t, student)

	runHTTPTests(t, f.app, []httpTest{
		{name: "Auth required", method: http.MethodPost, path: "/v1/applications", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "students only", method: http.MethodPost, path: "/v1/applications", token: getToken(t, company),
			body: marchallObj(t, validSubmission(open.ID)), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "missing fields", method: http.MethodPost, path: "/v1/applications", token: token,
			body:     marchallObj(t, application.NewApplication{PostingID: open.ID}),
			wantCode: http.StatusUnprocessableEntity,
			wantData: marchallObj(t, map[string]string{
				"cover_letter_file": "this field is required",
				"cv_file":           "this field is required",
				"contact_number":    "this field is required",
			}),
		},
		{
			name: "unknown posting", method: http.MethodPost, path: "/v1/applications", token: token,
			body: marchallObj(t, validSubmission("nope")), wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "posting not found"}),
		},
		{
			name: "closed posting", method: http.MethodPost, path: "/v1/applications", token: token,
			body: marchallObj(t, validSubmission(closed.ID)), wantCode: http.StatusConflict,
			wantData: marchallObj(t, httpErr{Error: "posting is not accepting applications"}),
		},
		{
			name: "unapproved posting", method: http.MethodPost, path: "/v1/applications", token: token,
			body: marchallObj(t, validSubmission(pending.ID)), wantCode: http.StatusConflict,
			wantData: marchallObj(t, httpErr{Error: "posting is not accepting applications"}),
		},
		{
			name: "unverified student", method: http.MethodPost, path: "/v1/applications", token: getToken(t, unverified),
			body: marchallObj(t, validSubmission(open.ID)), wantCode: http.StatusConflict,
			wantData: marchallObj(t, httpErr{Error: "student profile must be verified before applying"}),
		},
		{
			name: "created", method: http.MethodPost, path: "/v1/applications", token: token,
			body: marchallObj(t, validSubmission(open.ID)), wantCode: http.StatusCreated,
		},
		{
			name: "duplicate", method: http.MethodPost, path: "/v1/applications", token: token,
			body: marchallObj(t, validSubmission(open.ID)), wantCode: http.StatusConflict,
			wantData: marchallObj(t, httpErr{Error: "you already have an open application for this posting"}),
		},
	})

	apps, err := f.Applications.QueryApplications(context.Background(), application.QueryFilter{StudentID: student.ID}, nil)
	require.NoError(t, err)
	require.Len(t, apps, 1)
	assert.Equal(t, application.StatusPending, apps[0].Status)
	assert.Equal(t, "Backend Intern", apps[0].PostingTitle)
}

func Test_applicationApi_submitRateLimit(t *testing.T) {
	f := setup(t, RateLimit{Limit: 2, Window: time.Hour})
	company := f.Company("PT Maju", "approved")
	student := f.Student("Siti", "approved")
	token := getToken(t, student)

	codes := make([]int, 0, 3)
	for _, title := range []string{"A", "B", "C"} {
		p := f.Posting(company.ID, title, "", "")
		rec := f.serve(http.MethodPost, "/v1/applications", token, marchallObj(t, validSubmission(p.ID)))
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusCreated, http.StatusCreated, http.StatusTooManyRequests}, codes)

	// limits are per student
	other := f.Student("Budi", "approved")
	p := f.Posting(company.ID, "D", "", "")
	rec := f.serve(http.MethodPost, "/v1/applications", getToken(t, other), marchallObj(t, validSubmission(p.ID)))
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func Test_applicationApi_decisions(t *testing.T) {
	f := setup(t)
	admin := getToken(t, f.Admin())
	company := f.Company("PT Maju", "approved")
	p := f.Posting(company.ID, "Backend Intern", "", "")
	student := f.Student("Siti", "approved")

	pending := f.Application(student.ID, p, application.StatusPending)
	accepted := f.Application(f.Student("Budi", "approved").ID, p, application.StatusAccepted)
	toReject := f.Application(f.Student("Rina", "approved").ID, p, application.StatusReview)

	path := func(id, action string) string { return "/v1/applications/" + id + "/" + action }

	runHTTPTests(t, f.app, []httpTest{
		{
			name: "admin only", method: http.MethodPost, path: path(pending.ID, "accept"), token: getToken(t, company),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "permission checked before body", method: http.MethodPost, path: path(pending.ID, "reject"),
			token: getToken(t, student), body: []byte(`{"reason":`),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "interview without datetime", method: http.MethodPost, path: path(pending.ID, "set-interview"), token: admin,
			body: []byte(`{"note":"bawa laptop"}`), wantCode: http.StatusUnprocessableEntity,
			wantData: marchallObj(t, map[string]string{"interview_at": "this field is required"}),
		},
		{
			name: "interview at zero datetime", method: http.MethodPost, path: path(pending.ID, "set-interview"), token: admin,
			body: []byte(`{"interview_at":"0001-01-01T00:00:00Z"}`), wantCode: http.StatusUnprocessableEntity,
			wantData: marchallObj(t, map[string]string{"interview_at": "this field is required"}),
		},
		{
			name: "interview on accepted", method: http.MethodPost, path: path(accepted.ID, "set-interview"), token: admin,
			body: []byte(`{"interview_at":"2024-07-03T09:30:00+07:00"}`), wantCode: http.StatusConflict,
			wantData: marchallObj(t, transitionErr{
				Error:         `cannot schedule interview application with status "diterima"`,
				CurrentStatus: "diterima",
				Action:        "schedule interview",
			}),
		},
		{
			name: "interview scheduled", method: http.MethodPost, path: path(pending.ID, "set-interview"), token: admin,
			body: []byte(`{"interview_at":"2024-07-03T09:30:00+07:00","note":"bawa laptop"}`),
		},
		{
			name: "interview twice", method: http.MethodPost, path: path(pending.ID, "set-interview"), token: admin,
			body: []byte(`{"interview_at":"2024-07-04T09:30:00+07:00"}`), wantCode: http.StatusConflict,
		},
		{
			name: "reject without reason", method: http.MethodPost, path: path(toReject.ID, "reject"), token: admin,
			body: []byte(`{"reason":"  "}`), wantCode: http.StatusUnprocessableEntity,
			wantData: marchallObj(t, map[string]string{"reason": "this field is required"}),
		},
		{name: "rejected", method: http.MethodPost, path: path(toReject.ID, "reject"), token: admin, body: []byte(`{"reason":"kuota penuh"}`)},
		{
			name: "accept rejected", method: http.MethodPost, path: path(toReject.ID, "accept"), token: admin,
			wantCode: http.StatusConflict,
			wantData: marchallObj(t, transitionErr{
				Error:         `cannot accept application with status "ditolak"`,
				CurrentStatus: "ditolak",
				Action:        "accept",
			}),
		},
		{name: "accepted", method: http.MethodPost, path: path(pending.ID, "accept"), token: admin, body: []byte(`{"note":"selamat"}`)},
		{
			name: "unknown application", method: http.MethodPost, path: path("nope", "accept"), token: admin,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "application not found"}),
		},
	})

	app, err := f.Applications.GetApplication(context.Background(), pending.ID)
	require.NoError(t, err)
	assert.Equal(t, application.StatusAccepted, app.Status)
	assert.Equal(t, "selamat", app.CompanyRemark)
	require.NotNil(t, app.InterviewAt)
	assert.True(t, app.InterviewAt.Equal(time.Date(2024, time.July, 3, 2, 30, 0, 0, time.UTC)))

	app, err = f.Applications.GetApplication(context.Background(), toReject.ID)
	require.NoError(t, err)
	assert.Equal(t, application.StatusRejected, app.Status)
	assert.Equal(t, "kuota penuh", app.CompanyRemark)

	// interview, rejection and acceptance were notified
	assert.Len(t, emailsvc.Sent(), 3)
}

func Test_applicationApi_visibility(t *testing.T) {
	f := setup(t)
	company := f.Company("PT Maju", "approved")
	other := f.Company("PT Lain", "approved")
	p := f.Posting(company.ID, "Backend Intern", "", "")
	student := f.Student("Siti", "approved")
	app := f.Application(student.ID, p, application.StatusPending)
	f.Application(f.Student("Budi", "approved").ID, f.Posting(other.ID, "Frontend Intern", "", ""), application.StatusPending)

	runHTTPTests(t, f.app, []httpTest{
		{name: "own application", method: http.MethodGet, path: "/v1/applications/" + app.ID, token: getToken(t, student), wantData: marchallObj(t, app)},
		{name: "hosting company", method: http.MethodGet, path: "/v1/applications/" + app.ID, token: getToken(t, company), wantData: marchallObj(t, app)},
		{
			name: "other company", method: http.MethodGet, path: "/v1/applications/" + app.ID, token: getToken(t, other),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "application not found"}),
		},
		{
			name: "teachers cannot list", method: http.MethodGet, path: "/v1/applications", token: getToken(t, f.Teacher("Guru")),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{name: "student list is scoped", method: http.MethodGet, path: "/v1/applications", token: getToken(t, student), wantData: marchallList(t, app)},
		{name: "company list is scoped", method: http.MethodGet, path: "/v1/applications", token: getToken(t, company), wantData: marchallList(t, app)},
		{
			name: "statistics", method: http.MethodGet, path: "/v1/applications/statistics", token: getToken(t, f.Admin()),
			wantData: marchallObj(t, application.Stats{Total: 2, Pending: 2}),
		},
	})
}

func Test_applicationApi_destroy(t *testing.T) {
	f := setup(t)
	admin := getToken(t, f.Admin())
	company := f.Company("PT Maju", "approved")
	p := f.Posting(company.ID, "Backend Intern", "", "")
	student := f.Student("Siti", "approved")
	token := getToken(t, student)

	pending := f.Application(student.ID, p, application.StatusPending)
	interview := f.Application(student.ID, f.Posting(company.ID, "Data Intern", "", ""), application.StatusInterview)
	accepted := f.Application(f.Student("Budi", "approved").ID, p, application.StatusAccepted)
	placed := f.Application(f.Student("Rina", "approved").ID, p, application.StatusAccepted)
	f.Placement(placed, f.Teacher("Guru").ID, "")

	runHTTPTests(t, f.app, []httpTest{
		{
			name: "withdraw interview", method: http.MethodDelete, path: "/v1/applications/" + interview.ID, token: token,
			wantCode: http.StatusConflict,
			wantData: marchallObj(t, transitionErr{
				Error:         `cannot withdraw application with status "interview"`,
				CurrentStatus: "interview",
				Action:        "withdraw",
			}),
		},
		{
			name: "withdraw someone else's", method: http.MethodDelete, path: "/v1/applications/" + accepted.ID, token: token,
			wantCode: http.StatusNotFound,
		},
		{
			name: "withdrawn", method: http.MethodDelete, path: "/v1/applications/" + pending.ID, token: token,
			wantData: marchallObj(t, SuccessResponse{Success: "Application withdrawn."}),
		},
		{
			name: "company cannot delete", method: http.MethodDelete, path: "/v1/applications/" + accepted.ID, token: getToken(t, company),
			wantCode: http.StatusForbidden,
		},
		{
			name: "placed cannot be deleted", method: http.MethodDelete, path: "/v1/applications/" + placed.ID, token: admin,
			wantCode: http.StatusConflict,
			wantData: marchallObj(t, httpErr{Error: "application is bound to a placement and cannot be deleted"}),
		},
		{
			name: "admin deletes any status", method: http.MethodDelete, path: "/v1/applications/" + accepted.ID, token: admin,
			wantData: marchallObj(t, SuccessResponse{Success: "Application deleted."}),
		},
	})

	for _, id := range []string{pending.ID, accepted.ID} {
		_, err := f.Applications.GetApplication(context.Background(), id)
		assert.Equal(t, application.ErrNotFound, err)
	}
}
