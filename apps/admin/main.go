package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/simagang/simagang/core"
	"github.com/simagang/simagang/core/profile"
	"github.com/simagang/simagang/core/user"
	"github.com/simagang/simagang/services/logger"
	"github.com/simagang/simagang/storage/database"
	"github.com/simagang/simagang/storage/database/sqlxrepos"
)

func main() {
	conf := core.Conf
	logger := logsvc.NewRollbarLogger(log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile), conf)
	logger.Enable(!conf.Debug)

	// set up DB
	if err := database.CreateIfNotExist(conf); err != nil {
		logger.Fatal("creating database", err)
	}
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal("opening database", err)
	}
	defer db.Close()
	if err = db.PingContext(context.Background()); err != nil {
		logger.Fatal("pinging database", err)
	}

	// start CLI
	validate := core.NewValidator(validator.New(), core.NewTranslator())
	cli := commandLine{
		db:         db,
		engine:     conf.Database.Engine,
		out:        os.Stdout,
		usrSvc:     user.NewService(db, sqlxrepos.NewUserRepository(db), validate),
		profileSvc: profile.NewService(db, sqlxrepos.NewProfileRepository(db), validate),
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Error("command failed", err)
			if vErr, ok := errors.Cause(err).(*core.ValidationError); ok {
				for _, fld := range vErr.Fields {
					fmt.Fprintf(os.Stderr, "  %s: %s\n", fld.Field, fld.Error)
				}
			}
		}
		db.Close()
		os.Exit(1)
	}
}
