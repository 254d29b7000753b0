package notify

import "context"

// Disabled transports are wired in development and tests. The gateway
// still records every attempt in the message tables.

type DisabledEmailSender struct{}

func (DisabledEmailSender) Send(ctx context.Context, to, subject, htmlBody string) error {
	return nil
}

type DisabledSmsSender struct{}

func (DisabledSmsSender) Send(ctx context.Context, to, from, body string) error {
	return nil
}

type DisabledXmppSender struct{}

func (DisabledXmppSender) Send(ctx context.Context, to, body string) error {
	return nil
}
