// Package notify delivers email, SMS, and XMPP messages. Every
// attempted send is recorded in the database before the transport
// runs, so the message tables are a complete audit trail even when a
// transport is disabled or failing.
package notify

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"github.com/jart/sparkles/internal/models"
	"github.com/jart/sparkles/internal/utils"
)

// EmailSender, SmsSender, and XmppSender are the transport seams.
// Production wires SMTP/Twilio/XMPP clients; tests and development
// wire Disabled* stand-ins.
type EmailSender interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

type SmsSender interface {
	Send(ctx context.Context, to, from, body string) error
}

type XmppSender interface {
	Send(ctx context.Context, to, body string) error
}

type Gateway struct {
	db        *sql.DB
	email     EmailSender
	sms       SmsSender
	xmpp      XmppSender
	emailFrom string
	smsFrom   string
	xmppFrom  string
}

type GatewayConfig struct {
	EmailFrom string
	SmsFrom   string
	XmppFrom  string
}

func NewGateway(db *sql.DB, email EmailSender, sms SmsSender, xmpp XmppSender, cfg GatewayConfig) *Gateway {
	return &Gateway{
		db:        db,
		email:     email,
		sms:       sms,
		xmpp:      xmpp,
		emailFrom: cfg.EmailFrom,
		smsFrom:   cfg.SmsFrom,
		xmppFrom:  cfg.XmppFrom,
	}
}

func (g *Gateway) SendEmail(ctx context.Context, to, subject, htmlBody string) error {
	log.Printf("email %s -> %s: %s", g.emailFrom, to, subject)
	err := g.record(ctx, "email_messages", models.Message{
		ToAddr:   to,
		FromAddr: g.emailFrom,
		Subject:  subject,
		Content:  htmlBody,
		IsEgress: true,
	})
	if err != nil {
		return err
	}
	if err := g.email.Send(ctx, to, subject, htmlBody); err != nil {
		return fmt.Errorf("error sending email to %s: %v", to, err)
	}
	return nil
}

// SendSms refuses bodies over 160 characters, the single-segment SMS
// limit.
func (g *Gateway) SendSms(ctx context.Context, to, body string) error {
	if len(body) > 160 {
		return fmt.Errorf("sms body too long: %d chars", len(body))
	}
	log.Printf("sms %s -> %s: %s", g.smsFrom, to, body)
	err := g.record(ctx, "sms_messages", models.Message{
		ToAddr:   to,
		FromAddr: g.smsFrom,
		Content:  body,
		IsEgress: true,
	})
	if err != nil {
		return err
	}
	if err := g.sms.Send(ctx, to, g.smsFrom, body); err != nil {
		return fmt.Errorf("error sending sms to %s: %v", to, err)
	}
	return nil
}

func (g *Gateway) SendXmpp(ctx context.Context, to, body string) error {
	log.Printf("xmpp %s -> %s: %s", g.xmppFrom, to, body)
	err := g.record(ctx, "xmpp_messages", models.Message{
		ToAddr:   to,
		FromAddr: g.xmppFrom,
		Content:  body,
		IsEgress: true,
	})
	if err != nil {
		return err
	}
	if err := g.xmpp.Send(ctx, to, body); err != nil {
		return fmt.Errorf("error sending xmpp to %s: %v", to, err)
	}
	return nil
}

// RecordInboundXmpp logs a message received on the XMPP connection.
func (g *Gateway) RecordInboundXmpp(ctx context.Context, from, body string) error {
	return g.record(ctx, "xmpp_messages", models.Message{
		ToAddr:   g.xmppFrom,
		FromAddr: from,
		Content:  body,
		IsEgress: false,
	})
}

func (g *Gateway) record(ctx context.Context, table string, m models.Message) error {
	m.ID = utils.GenerateUUID()
	var err error
	if table == "email_messages" {
		_, err = g.db.ExecContext(ctx, `
            INSERT INTO email_messages (id, to_addr, from_addr, subject, content, is_egress)
            VALUES (?, ?, ?, ?, ?, ?)`,
			m.ID, m.ToAddr, m.FromAddr, m.Subject, m.Content, m.IsEgress)
	} else {
		_, err = g.db.ExecContext(ctx, `
            INSERT INTO `+table+` (id, to_addr, from_addr, content, is_egress)
            VALUES (?, ?, ?, ?, ?)`,
			m.ID, m.ToAddr, m.FromAddr, m.Content, m.IsEgress)
	}
	if err != nil {
		return fmt.Errorf("error recording %s: %v", table, err)
	}
	return nil
}
