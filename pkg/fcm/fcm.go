package fcm

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"github.com/wb-go/wbf/zlog"
)

// Client wraps Firebase Cloud Messaging functionality
type Client struct {
	messagingClient *messaging.Client
}

// NewClient creates a new FCM client from an initialized Firebase app
func NewClient(ctx context.Context, app *firebase.App) (*Client, error) {
	messagingClient, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get messaging client: %w", err)
	}

	zlog.Logger.Info().Str("component", "fcm").Msg("client initialized")
	return &Client{
		messagingClient: messagingClient,
	}, nil
}

// Send delivers a single message and returns the gateway message id.
// Failures are always returned as *SendError.
func (c *Client) Send(ctx context.Context, message *messaging.Message) (string, error) {
	response, err := c.messagingClient.Send(ctx, message)
	if err != nil {
		sendErr := NewSendError(err)
		zlog.Logger.Warn().
			Str("component", "fcm").
			Str("code", string(sendErr.Code)).
			Str("target", describeTarget(message)).
			Msg(sendErr.Message)
		return "", sendErr
	}

	zlog.Logger.Debug().Str("component", "fcm").Str("message_id", response).Msg("message sent")
	return response, nil
}

func describeTarget(message *messaging.Message) string {
	if message.Topic != "" {
		return "topic:" + message.Topic
	}
	return "token:" + TruncateToken(message.Token)
}

// TruncateToken shortens a device token for logging
func TruncateToken(token string) string {
	if len(token) <= 20 {
		return token
	}
	return token[:20] + "..."
}
