package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/simagang/simagang/core"
	"github.com/simagang/simagang/core/application"
	"github.com/simagang/simagang/core/assessment"
	"github.com/simagang/simagang/core/dashboard"
	"github.com/simagang/simagang/core/placement"
	"github.com/simagang/simagang/core/posting"
	"github.com/simagang/simagang/core/profile"
	"github.com/simagang/simagang/core/user"
	"github.com/simagang/simagang/services/ratelimit"
	"github.com/simagang/simagang/services/session"
)

type (
	RateLimit struct {
		Limit  int
		Window time.Duration
	}

	Options struct {
		Address        string
		AppName        string
		Debug          bool
		DisableReqLogs bool
		DisableRecover bool
		// RateLimit applies to application submissions.
		RateLimit RateLimit

		Logger    core.Logger
		Validator *core.Validator
		Limiter   ratelimit.Limiter
		Sessions  session.Store

		UserSvc        user.Service
		ProfileSvc     profile.Service
		PostingSvc     posting.Service
		ApplicationSvc application.Service
		PlacementSvc   placement.Service
		AssessmentSvc  assessment.Service
		DashboardSvc   dashboard.Service
	}

	Server interface {
		http.Handler
		Start()
		Errors() <-chan error
		ShutdownSignal() <-chan os.Signal
		Shutdown(ctx context.Context) error
		Close() error
	}

	server struct {
		opts     *Options
		app      *echo.Echo
		errors   chan error
		shutdown chan os.Signal
	}
)

var _ Server = (*server)(nil)

func NewServer(opts *Options) Server {
	s := &server{
		opts:     opts,
		app:      echo.New(),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *server) setup() {
	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.opts.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(s.opts.Debug || s.opts.DisableRecover) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.opts.Logger, s.opts.Validator, s.signalShutdown)
	s.app.Debug = s.opts.Debug

	s.app.GET("/", s.home)

	v1 := s.app.Group("/v1")
	auth := newAuthMiddleware(s.opts.Sessions, s.opts.Logger)

	registerAuthAPI(v1, auth, s.opts)
	registerUserAPI(v1, auth, s.opts.UserSvc)
	registerProfileAPI(v1, auth, s.opts.ProfileSvc)
	registerPostingAPI(v1, auth, s.opts.PostingSvc)
	registerApplicationAPI(v1, auth, s.rateLimitMiddleware("submit"), s.opts.ApplicationSvc)
	registerPlacementAPI(v1, auth, s.opts.PlacementSvc)
	registerAssessmentAPI(v1, auth, s.opts.AssessmentSvc)
	registerStatsAPI(v1, auth, s.opts.DashboardSvc)
}

func (s *server) Start() {
	if err := s.app.Start(s.opts.Address); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *server) Errors() <-chan error {
	return s.errors
}

func (s *server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

func (s *server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default: // already signalled
	}
}

func (s *server) Shutdown(ctx context.Context) error {
	signal.Stop(s.shutdown)
	return s.app.Shutdown(ctx)
}

func (s *server) Close() error {
	return s.app.Close()
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *server) home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to "+s.opts.AppName+" API!")
}
