package tests

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	. "github.com/simagang/simagang/apps/api/echo"
	"github.com/simagang/simagang/core/application"
	"github.com/simagang/simagang/core/assessment"
	"github.com/simagang/simagang/core/dashboard"
	"github.com/simagang/simagang/core/placement"
	"github.com/simagang/simagang/core/posting"
	"github.com/simagang/simagang/core/profile"
	"github.com/simagang/simagang/core/user"
	"github.com/simagang/simagang/services/email"
	"github.com/simagang/simagang/services/ratelimit"
	"github.com/simagang/simagang/services/session"
	"github.com/simagang/simagang/tests"
)

var (
	errMissingToken = httpErr{Error: "missing or malformed jwt"}
	errForbidden    = httpErr{Error: "permission denied"}
)

type fixture struct {
	*testutil.Env
	app Server
}

func setup(t *testing.T, limit ...RateLimit) *fixture {
	env := testutil.NewEnv(t)

	// set up services
	logger := testutil.NewLogger()
	validate := testutil.NewValidator()
	mailSvc := emailsvc.NewConsoleServiceMock(logger)
	emailsvc.ClearSentMessages()

	rl := RateLimit{Limit: 100, Window: time.Minute}
	if len(limit) > 0 {
		rl = limit[0]
	}

	// set up server
	app := NewServer(
		&Options{
			AppName:        "SIMAGANG",
			DisableReqLogs: true,
			RateLimit:      rl,
			Logger:         logger,
			Validator:      validate,
			Limiter:        ratelimit.NewMemoryLimiter(),
			Sessions:       session.NewMemoryStore(),
			UserSvc:        user.NewService(env.DB, env.Users, validate),
			ProfileSvc:     profile.NewService(env.DB, env.Profiles, validate),
			PostingSvc:     posting.NewService(env.DB, env.Postings, env.Profiles, validate),
			ApplicationSvc: application.NewService(
				env.DB, env.Applications, env.Postings, env.Profiles, env.Users, mailSvc, validate, logger,
			),
			PlacementSvc:  placement.NewService(env.DB, env.Placements, env.Applications, env.Users, mailSvc, validate, logger),
			AssessmentSvc: assessment.NewService(env.DB, env.Assessments, env.Placements, validate),
			DashboardSvc:  dashboard.NewService(env.Users, env.Profiles),
		},
	)
	t.Cleanup(func() { _ = app.Close() })
	return &fixture{Env: env, app: app}
}

func (f *fixture) serve(method, path, token string, body ...[]byte) *httptest.ResponseRecorder {
	req, rec := newAuthRequest(method, path, token, body...)
	f.app.ServeHTTP(rec, req)
	return rec
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
	extra    interface{}
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func getToken(t *testing.T, usr user.User) string {
	claims := GetUserClaims(usr)
	token, err := GenerateToken(claims)
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func marchallList(t *testing.T, objs ...interface{}) []byte {
	if objs == nil {
		objs = []interface{}{}
	}
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList() failed: %v", err)
	}
	return data
}

func unmarshal(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("json.Unmarshal() failed: %v; body %s", err, rec.Body.String())
	}
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if _, ok := j1.([]interface{}); !ok {
		return false, nil
	}
	if _, ok := j2.([]interface{}); !ok {
		return false, nil
	}
	return assert.ElementsMatch(t, j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func runHTTPTests(t *testing.T, app Server, tests []httpTest) {
	for _, tt := range tests {
		if tt.wantCode == 0 {
			tt.wantCode = http.StatusOK
		}
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}
