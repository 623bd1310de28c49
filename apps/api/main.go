package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/dig"

	"github.com/simagang/simagang/apps/api/di"
	echoapi "github.com/simagang/simagang/apps/api/echo"
	"github.com/simagang/simagang/core"
	"github.com/simagang/simagang/services/email"
)

type app struct {
	dig.In

	Conf     *core.Config
	Logger   core.Logger
	DBLogger core.Logger `name:"dbLogger"`
	DB       *sqlx.DB
	Redis    *redis.Client
	MailSvc  emailsvc.Service
	Server   echoapi.Server
}

func main() {
	c := di.New()
	if err := c.Invoke(run); err != nil {
		log.Fatal(err)
	}
}

func run(a app) {
	// =========================================================================
	// Initialize App

	a.Logger.Info(fmt.Sprintf("Application initializing : version %q", a.Conf.Build))

	core.ParseEmailTemplates(a.Logger)

	defer func() {
		if err := a.DB.Close(); err != nil {
			a.DBLogger.Fatal("Failed to close", err)
		}
	}()
	defer func() {
		if a.Redis != nil {
			_ = a.Redis.Close()
		}
	}()
	defer a.Logger.Info("Application stopped")
	// let queued notifications go out before the database closes
	defer a.MailSvc.Wait()

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	expvar.NewString("build").Set(a.Conf.Build)
	expvar.NewString("env").Set(a.Conf.Env)

	go func() {
		if err := http.ListenAndServe(a.Conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			a.Logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	go a.Server.Start()

	// =========================================================================
	// Shutdown

	select {
	case err := <-a.Server.Errors():
		a.Logger.Error(fmt.Sprintf("server error: %v", err), err)

	case sig := <-a.Server.ShutdownSignal():
		a.Logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), a.Conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shut down and shed load
		if err := a.Server.Shutdown(ctx); err != nil {
			a.Logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = a.Server.Close(); err != nil {
				a.Logger.Error(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}
