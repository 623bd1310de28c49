package emailsvc

import (
	"github.com/simagang/simagang/core"
)

// Service is an email backend whose in-flight deliveries can be awaited on shutdown.
type Service interface {
	core.EmailService
	Wait()
}

// New returns the backend selected by conf.Email.Backend. Unknown backends fall back to the console.
func New(conf *core.Config, logger core.Logger) Service {
	switch conf.Email.Backend {
	case "sendgrid":
		return NewSendgridService(conf, logger)
	case "smtp":
		return NewSMTPService(conf, logger)
	default:
		return NewConsoleService(logger)
	}
}
