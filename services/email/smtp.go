package emailsvc

import (
	"crypto/tls"
	"fmt"
	"sync"

	"github.com/go-mail/mail/v2"

	"github.com/simagang/simagang/core"
)

type smtpService struct {
	dialer     *mail.Dialer
	from       string
	subjPrefix string
	logger     core.Logger
	wg         *sync.WaitGroup
}

var _ Service = (*smtpService)(nil)

func NewSMTPService(conf *core.Config, logger core.Logger) Service {
	ec := conf.Email
	d := mail.NewDialer(ec.SMTPHost, ec.SMTPPort, ec.SMTPUser, ec.SMTPPassword)
	d.TLSConfig = &tls.Config{
		ServerName:         ec.SMTPHost,
		InsecureSkipVerify: ec.SMTPSkipTLSVerify, // dev only
	}
	return &smtpService{
		dialer:     d,
		from:       conf.DefaultFromEmail.String(),
		subjPrefix: "[" + conf.AppName + "] ",
		logger:     logger,
		wg:         new(sync.WaitGroup),
	}
}

func (svc smtpService) SendMessages(messages ...*core.EmailMessage) {
	for _, msg := range messages {
		msg := msg
		svc.wg.Add(1)
		go func() {
			defer svc.wg.Done()
			if err := msg.Render(); err != nil {
				svc.logger.Error(fmt.Sprintf("rendering email: %v", err), err)
				return
			}
			if msg.HasRecipients() && msg.HasContent() {
				if err := svc.dialer.DialAndSend(svc.prepare(*msg)); err != nil {
					svc.logger.Error(fmt.Sprintf("sending email: %v", err), err)
				}
			}
		}()
	}
}

func (svc smtpService) Wait() { svc.wg.Wait() }

func (svc smtpService) prepare(msg core.EmailMessage) *mail.Message {
	m := mail.NewMessage()
	m.SetHeader("From", svc.from)
	m.SetHeader("To", joinEach(msg.To)...)
	if len(msg.Cc) > 0 {
		m.SetHeader("Cc", joinEach(msg.Cc)...)
	}
	if len(msg.Bcc) > 0 {
		m.SetHeader("Bcc", joinEach(msg.Bcc)...)
	}
	m.SetHeader("Subject", svc.subjPrefix+msg.Subject)
	m.SetBody("text/plain", msg.TextContent)
	if msg.HTMLContent != "" {
		m.AddAlternative("text/html", msg.HTMLContent)
	}
	return m
}
