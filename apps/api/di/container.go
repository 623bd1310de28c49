// Package di wires the API's dependencies into a dig.Container.
package di

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/dig"

	echoapi "github.com/simagang/simagang/apps/api/echo"
	"github.com/simagang/simagang/core"
	"github.com/simagang/simagang/core/application"
	"github.com/simagang/simagang/core/assessment"
	"github.com/simagang/simagang/core/dashboard"
	"github.com/simagang/simagang/core/placement"
	"github.com/simagang/simagang/core/posting"
	"github.com/simagang/simagang/core/profile"
	"github.com/simagang/simagang/core/user"
	"github.com/simagang/simagang/services/email"
	"github.com/simagang/simagang/services/logger"
	"github.com/simagang/simagang/services/ratelimit"
	"github.com/simagang/simagang/services/session"
	"github.com/simagang/simagang/storage/cache"
	"github.com/simagang/simagang/storage/database"
	"github.com/simagang/simagang/storage/database/sqlxrepos"
)

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

type serverParams struct {
	dig.In

	Conf      *core.Config
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

func newConfig() *core.Config { return core.Conf }

func newLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "API : ", log.LstdFlags)
	l := logsvc.NewRollbarLogger(stdLogger, conf)
	l.Enable(!conf.Debug)
	return l
}

func newDBLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	l := logsvc.NewRollbarLogger(stdLogger, conf)
	l.Enable(!conf.Debug)
	return l
}

func newDB(conf *core.Config, loggerParam DBLoggerParam) (*sqlx.DB, core.DB, core.DBExecutor) {
	setUp := func() (*sqlx.DB, error) {
		if err := database.CreateIfNotExist(conf); err != nil {
			return nil, err
		}

		db, err := database.Open(conf)
		if err != nil {
			return nil, err
		}

		if err = database.Migrate(context.Background(), db, conf.Database.Engine); err != nil {
			_ = db.Close()
			return nil, err
		}
		return db, nil
	}

	db, err := setUp()
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	return db, db, db
}

// newRedis returns a nil client when redis is not configured; its users fall back to in-process state.
func newRedis(conf *core.Config, logger core.Logger) *redis.Client {
	client, err := cache.Open(context.Background(), conf.Redis)
	if err != nil {
		logger.Fatal(fmt.Sprintf("connecting to redis: %v", err), err)
	}
	if client == nil {
		logger.Warn("REDIS_ADDRESS is not set: rate limits and revoked sessions are kept in memory")
	}
	return client
}

func newEmailService(conf *core.Config, logger core.Logger) (emailsvc.Service, core.EmailService) {
	svc := emailsvc.New(conf, logger)
	return svc, svc
}

func newValidator() *core.Validator {
	return core.NewValidator(validator.New(), core.NewTranslator())
}

func newServer(p serverParams) echoapi.Server {
	return echoapi.NewServer(&echoapi.Options{
		Address: p.Conf.Server.Address(),
		AppName: p.Conf.AppName,
		Debug:   p.Conf.Debug,
		RateLimit: echoapi.RateLimit{
			Limit:  p.Conf.Server.SubmitRateLimit,
			Window: p.Conf.Server.SubmitRateWindow,
		},
		Logger:         p.Logger,
		Validator:      p.Validator,
		Limiter:        p.Limiter,
		Sessions:       p.Sessions,
		UserSvc:        p.UserSvc,
		ProfileSvc:     p.ProfileSvc,
		PostingSvc:     p.PostingSvc,
		ApplicationSvc: p.ApplicationSvc,
		PlacementSvc:   p.PlacementSvc,
		AssessmentSvc:  p.AssessmentSvc,
		DashboardSvc:   p.DashboardSvc,
	})
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(newConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newDB))
	must(c.Provide(newRedis))
	must(c.Provide(newEmailService))
	must(c.Provide(newValidator))
	must(c.Provide(ratelimit.New))
	must(c.Provide(session.New))

	// repositories
	must(c.Provide(sqlxrepos.NewUserRepository))
	must(c.Provide(sqlxrepos.NewProfileRepository))
	must(c.Provide(sqlxrepos.NewPostingRepository))
	must(c.Provide(sqlxrepos.NewApplicationRepository))
	must(c.Provide(sqlxrepos.NewPlacementRepository))
	must(c.Provide(sqlxrepos.NewAssessmentRepository))

	// services
	must(c.Provide(user.NewService))
	must(c.Provide(profile.NewService))
	must(c.Provide(posting.NewService))
	must(c.Provide(application.NewService))
	must(c.Provide(placement.NewService))
	must(c.Provide(assessment.NewService))
	must(c.Provide(dashboard.NewService))

	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
