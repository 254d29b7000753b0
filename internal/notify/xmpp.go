package notify

import (
	"context"
	"fmt"
	"sync"

	"github.com/mattn/go-xmpp"
)

// XmppClient delivers chat messages over a single XMPP connection.
// The connection is dialed on first use and then kept for the
// lifetime of the client; it is never re-dialed or invalidated within
// an instance's lifetime.
type XmppClient struct {
	jid      string
	server   string
	password string

	mu     sync.Mutex
	client *xmpp.Client
}

func NewXmppClient(jid, server, password string) *XmppClient {
	return &XmppClient{jid: jid, server: server, password: password}
}

func (x *XmppClient) talk() (*xmpp.Client, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.client != nil {
		return x.client, nil
	}
	options := xmpp.Options{
		Host:     x.server,
		User:     x.jid,
		Password: x.password,
		Resource: "sparkles",
	}
	client, err := options.NewClient()
	if err != nil {
		return nil, fmt.Errorf("error connecting to xmpp server: %v", err)
	}
	x.client = client
	return client, nil
}

func (x *XmppClient) Send(ctx context.Context, to, body string) error {
	client, err := x.talk()
	if err != nil {
		return err
	}
	_, err = client.Send(xmpp.Chat{Remote: to, Type: "chat", Text: body})
	return err
}
