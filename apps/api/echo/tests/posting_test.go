package tests

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/simagang/simagang/apps/api/echo"
	"github.com/simagang/simagang/core/application"
	"github.com/simagang/simagang/core/posting"
)

const postingBody = `{
	"title": "  Web Developer Intern ",
	"type": "magang",
	"description": "Membangun aplikasi web",
	"positions": 3,
	"location": "Bandung",
	"duration_months": 3,
	"start_date": "2024-07-01",
	"end_date": "2024-09-30"
}`

func Test_postingApi_create(t *testing.T) {
	f := setup(t)
	company := f.Company("PT Maju", "approved")
	token := getToken(t, company)

	runHTTPTests(t, f.app, []httpTest{
		{
			name: "companies only", method: http.MethodPost, path: "/v1/postings", token: getToken(t, f.Admin()),
			body: []byte(postingBody), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "unverified company", method: http.MethodPost, path: "/v1/postings", token: getToken(t, f.Company("PT Baru", "pending")),
			body: []byte(postingBody), wantCode: http.StatusConflict,
			wantData: marchallObj(t, httpErr{Error: "company profile must be verified before publishing postings"}),
		},
		{
			name: "invalid content", method: http.MethodPost, path: "/v1/postings", token: token,
			body:     []byte(`{"title":"Intern","type":"freelance","description":"x","positions":0,"location":"Bandung"}`),
			wantCode: http.StatusUnprocessableEntity,
		},
		{
			name: "end before start", method: http.MethodPost, path: "/v1/postings", token: token,
			body: []byte(`{"title":"Intern","type":"magang","description":"x","positions":1,"location":"Bandung",
				"start_date":"2024-09-30","end_date":"2024-07-01"}`),
			wantCode: http.StatusUnprocessableEntity,
			wantData: marchallObj(t, map[string]string{"end_date": "end date must be after start date"}),
		},
	})

	rec := f.serve(http.MethodPost, "/v1/postings", token, []byte(postingBody))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var p posting.Posting
	unmarshal(t, rec, &p)
	assert.Equal(t, "Web Developer Intern", p.Title)
	assert.Equal(t, company.ID, p.CompanyID)
	assert.Equal(t, posting.StatusDraft, p.Status)
	assert.Equal(t, posting.ApprovalPending, p.Approval)
	if assert.NotNil(t, p.DurationMonths) {
		assert.Equal(t, 3, *p.DurationMonths)
	}
}

func Test_postingApi_workflow(t *testing.T) {
	f := setup(t)
	admin := getToken(t, f.Admin())
	company := f.Company("PT Maju", "approved")
	companyToken := getToken(t, company)
	studentToken := getToken(t, f.Student("Siti", "approved"))

	open := f.Posting(company.ID, "Backend Intern", "", "")
	draft := f.Posting(company.ID, "Frontend Intern", posting.StatusDraft, posting.ApprovalPending)
	path := "/v1/postings/" + draft.ID

	runHTTPTests(t, f.app, []httpTest{
		{name: "students see open postings", method: http.MethodGet, path: "/v1/postings", token: studentToken, wantData: marchallList(t, open)},
		{name: "company sees all its postings", method: http.MethodGet, path: "/v1/postings", token: companyToken, wantData: marchallList(t, open, draft)},
		{
			name: "students cannot see drafts", method: http.MethodGet, path: path, token: studentToken,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "posting not found"}),
		},
		{
			name: "other companies cannot change status", method: http.MethodPut, path: path + "/status",
			token: getToken(t, f.Company("PT Lain", "approved")), body: []byte(`{"status":"aktif"}`), wantCode: http.StatusNotFound,
		},
		{
			name: "unknown status", method: http.MethodPut, path: path + "/status", token: companyToken,
			body: []byte(`{"status":"arsip"}`), wantCode: http.StatusUnprocessableEntity,
		},
		{name: "activated", method: http.MethodPut, path: path + "/status", token: companyToken, body: []byte(`{"status":"aktif"}`)},
		{
			name: "companies cannot approve", method: http.MethodPost, path: path + "/approve", token: companyToken,
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "reject without reason", method: http.MethodPost, path: path + "/reject", token: admin,
			body: []byte(`{}`), wantCode: http.StatusUnprocessableEntity,
			wantData: marchallObj(t, map[string]string{"reason": "this field is required"}),
		},
		{name: "rejected", method: http.MethodPost, path: path + "/reject", token: admin, body: []byte(`{"reason":"deskripsi kurang jelas"}`)},
		{
			name: "decided once", method: http.MethodPost, path: path + "/approve", token: admin,
			wantCode: http.StatusConflict, wantData: marchallObj(t, httpErr{Error: "posting has already been rejected"}),
		},
		{
			name: "edit resubmits", method: http.MethodPut, path: path, token: companyToken, body: []byte(postingBody),
		},
		{name: "approved", method: http.MethodPost, path: path + "/approve", token: admin, body: []byte(`{"remark":"ok"}`)},
		{
			name: "statistics are for admins", method: http.MethodGet, path: "/v1/postings/statistics", token: companyToken,
			wantCode: http.StatusForbidden,
		},
		{
			name: "statistics", method: http.MethodGet, path: "/v1/postings/statistics", token: admin,
			wantData: marchallObj(t, posting.Stats{Total: 2, Approved: 2, Active: 2, Internship: 2}),
		},
	})

	p, err := f.Postings.GetPosting(context.Background(), draft.ID)
	require.NoError(t, err)
	assert.Equal(t, "Web Developer Intern", p.Title)
	assert.Equal(t, posting.StatusActive, p.Status)
	assert.Equal(t, posting.ApprovalApproved, p.Approval)
	assert.Equal(t, "ok", p.AdminRemark)
	assert.True(t, p.AcceptsApplications())
}

func Test_postingApi_delete(t *testing.T) {
	f := setup(t)
	admin := getToken(t, f.Admin())
	company := f.Company("PT Maju", "approved")
	applied := f.Posting(company.ID, "Backend Intern", "", "")
	f.Application(f.Student("Siti", "approved").ID, applied, application.StatusPending)
	empty := f.Posting(company.ID, "Frontend Intern", "", "")

	runHTTPTests(t, f.app, []httpTest{
		{name: "admins only", method: http.MethodDelete, path: "/v1/postings/" + empty.ID, token: getToken(t, company), wantCode: http.StatusForbidden},
		{
			name: "has applications", method: http.MethodDelete, path: "/v1/postings/" + applied.ID, token: admin,
			wantCode: http.StatusConflict, wantData: marchallObj(t, httpErr{Error: "posting has applications and cannot be deleted"}),
		},
		{
			name: "deleted", method: http.MethodDelete, path: "/v1/postings/" + empty.ID, token: admin,
			wantData: marchallObj(t, SuccessResponse{Success: "Posting deleted."}),
		},
		{name: "unknown", method: http.MethodDelete, path: "/v1/postings/" + empty.ID, token: admin, wantCode: http.StatusNotFound},
	})
}
