// Package push sends chat notifications to doctors' devices through firebase cloud messaging.
package push

import (
	"context"
	"fmt"
	"time"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"github.com/rs/zerolog/log"
)

type Notification struct {
	Tokens []string
	Title  string
	Body   string
	Data   map[string]string
}

type sender interface {
	SendEachForMulticast(ctx context.Context, message *messaging.MulticastMessage) (*messaging.BatchResponse, error)
}

type Client struct {
	messaging sender
	stale     func(error) bool
}

func New(ctx context.Context, app *firebase.App) (*Client, error) {
	mc, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("while initialising firebase messaging: %w", err)
	}
	return &Client{messaging: mc, stale: staleToken}, nil
}

// staleToken reports a per token error that will not clear on retry.
func staleToken(err error) bool {
	return messaging.IsUnregistered(err) || messaging.IsSenderIDMismatch(err)
}

// Message builds the multicast payload with high priority delivery on both platforms.
func Message(n Notification) *messaging.MulticastMessage {
	return &messaging.MulticastMessage{
		Tokens: n.Tokens,
		Notification: &messaging.Notification{
			Title: n.Title,
			Body:  n.Body,
		},
		Data: n.Data,
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				Sound:    "default",
				Priority: messaging.PriorityHigh,
			},
		},
		APNS: &messaging.APNSConfig{
			Headers: map[string]string{"apns-priority": "10"},
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					Alert: &messaging.ApsAlert{Title: n.Title, Body: n.Body},
					Sound: "default",
				},
			},
		},
	}
}

/*
* Nothing to send without tokens
* Per token failures are logged and tokens firebase no longer accepts are returned
* Only a transport failure is returned as an error
 */
func (c *Client) Send(ctx context.Context, n Notification) ([]string, error) {
	if len(n.Tokens) == 0 {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	resp, err := c.messaging.SendEachForMulticast(ctx, Message(n))
	if err != nil {
		return nil, fmt.Errorf("while sending multicast message: %w", err)
	}
	if resp.FailureCount == 0 {
		return nil, nil
	}
	isStale := c.stale
	if isStale == nil {
		isStale = staleToken
	}
	var stale []string
	for i, r := range resp.Responses {
		if r.Success || i >= len(n.Tokens) {
			continue
		}
		log.Warn().Err(r.Error).Int("token", i).Msg("Push delivery failed")
		if isStale(r.Error) {
			stale = append(stale, n.Tokens[i])
		}
	}
	return stale, nil
}
