package tests

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	. "github.com/simagang/simagang/apps/api/echo"
	"github.com/simagang/simagang/core/application"
	"github.com/simagang/simagang/core/assessment"
	"github.com/simagang/simagang/core/placement"
	"github.com/simagang/simagang/tests"
)

func newAssessment(placementID string, rater assessment.RaterType, scores ...int) assessment.NewAssessment {
	d, tw, i, tc, c := testutil.Scores(scores[0], scores[1], scores[2], scores[3], scores[4])
	return assessment.NewAssessment{
		PlacementID:   placementID,
		RaterType:     rater,
		Discipline:    d,
		Teamwork:      tw,
		Initiative:    i,
		Technical:     tc,
		Communication: c,
		Comment:       "Rajin dan teliti",
	}
}

func Test_assessmentApi(t *testing.T) {
	f := setup(t)
	company := f.Company("PT Maju", "approved")
	p := f.Posting(company.ID, "Backend Intern", "", "")
	teacher := f.Teacher("Pak Guru")
	student := f.Student("Siti", "approved")
	pl := f.Placement(f.Application(student.ID, p, application.StatusAccepted), teacher.ID, "")
	cancelled := f.Placement(
		f.Application(f.Student("Budi", "approved").ID, p, application.StatusAccepted), teacher.ID, placement.StatusCancelled,
	)
	companyToken := getToken(t, company)
	teacherToken := getToken(t, teacher)

	runHTTPTests(t, f.app, []httpTest{
		{
			name: "students cannot assess", method: http.MethodPost, path: "/v1/assessments", token: getToken(t, student),
			body: marchallObj(t, newAssessment(pl.ID, assessment.RaterCompany, 80, 80, 80, 80, 80)), wantCode: http.StatusForbidden,
			wantData: marchallObj(t, errForbidden),
		},
		{
			name: "rater type must match the role", method: http.MethodPost, path: "/v1/assessments", token: companyToken,
			body: marchallObj(t, newAssessment(pl.ID, assessment.RaterTeacher, 80, 80, 80, 80, 80)), wantCode: http.StatusForbidden,
		},
		{
			name: "score out of range", method: http.MethodPost, path: "/v1/assessments", token: companyToken,
			body: marchallObj(t, newAssessment(pl.ID, assessment.RaterCompany, 80, 101, 80, 80, 80)), wantCode: http.StatusUnprocessableEntity,
		},
		{
			name: "missing scores", method: http.MethodPost, path: "/v1/assessments", token: companyToken,
			body:     []byte(`{"placement_id":"` + pl.ID + `","rater_type":"perusahaan","discipline":0}`),
			wantCode: http.StatusUnprocessableEntity,
			wantData: marchallObj(t, map[string]string{
				"teamwork":      "this field is required",
				"initiative":    "this field is required",
				"technical":     "this field is required",
				"communication": "this field is required",
			}),
		},
		{
			name: "cancelled placement", method: http.MethodPost, path: "/v1/assessments", token: teacherToken,
			body: marchallObj(t, newAssessment(cancelled.ID, assessment.RaterTeacher, 80, 80, 80, 80, 80)), wantCode: http.StatusConflict,
			wantData: marchallObj(t, httpErr{Error: "cancelled placements cannot be assessed"}),
		},
		{
			name: "company assesses", method: http.MethodPost, path: "/v1/assessments", token: companyToken,
			body: marchallObj(t, newAssessment(pl.ID, assessment.RaterCompany, 90, 85, 80, 88, 84)), wantCode: http.StatusCreated,
		},
		{
			name: "once per rater type", method: http.MethodPost, path: "/v1/assessments", token: companyToken,
			body: marchallObj(t, newAssessment(pl.ID, assessment.RaterCompany, 70, 70, 70, 70, 70)), wantCode: http.StatusConflict,
			wantData: marchallObj(t, httpErr{Error: "this placement has already been assessed by this rater type"}),
		},
		{
			name: "teacher assesses", method: http.MethodPost, path: "/v1/assessments", token: teacherToken,
			body: marchallObj(t, newAssessment(pl.ID, assessment.RaterTeacher, 60, 65, 70, 55, 61)), wantCode: http.StatusCreated,
		},
	})

	var as []assessment.Assessment
	rec := f.serve(http.MethodGet, "/v1/assessments", getToken(t, student))
	assert.Equal(t, http.StatusOK, rec.Code)
	unmarshal(t, rec, &as)
	if assert.Len(t, as, 2) {
		got := map[assessment.RaterType]assessment.Assessment{as[0].RaterType: as[0], as[1].RaterType: as[1]}
		assert.Equal(t, 85.4, got[assessment.RaterCompany].Composite)
		assert.Equal(t, "A", got[assessment.RaterCompany].Grade)
		assert.Equal(t, 62.2, got[assessment.RaterTeacher].Composite)
		assert.Equal(t, "C", got[assessment.RaterTeacher].Grade)
	}

	// raters only see their own scoring
	rec = f.serve(http.MethodGet, "/v1/assessments", teacherToken)
	unmarshal(t, rec, &as)
	if assert.Len(t, as, 1) {
		assert.Equal(t, assessment.RaterTeacher, as[0].RaterType)

		runHTTPTests(t, f.app, []httpTest{
			{name: "raters cannot delete", method: http.MethodDelete, path: "/v1/assessments/" + as[0].ID, token: teacherToken, wantCode: http.StatusForbidden},
			{
				name: "admin deletes", method: http.MethodDelete, path: "/v1/assessments/" + as[0].ID, token: getToken(t, f.Admin()),
				wantData: marchallObj(t, SuccessResponse{Success: "Assessment deleted."}),
			},
			{name: "gone", method: http.MethodGet, path: "/v1/assessments/" + as[0].ID, token: teacherToken, wantCode: http.StatusNotFound},
		})
	}
}
