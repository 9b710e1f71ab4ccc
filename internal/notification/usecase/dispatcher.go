package usecase

import (
	"context"
	"strconv"
	"time"

	"notify-dispatcher/internal/notification/domain"

	"firebase.google.com/go/v4/messaging"
	"github.com/wb-go/wbf/zlog"
)

const DefaultAndroidChannelID = "default"

//go:generate mockgen -source=dispatcher.go -destination=../../mocks/usecase/dispatcher_mock.go -package=mocks

// Sender is the push gateway: one message in, a message id or a failure out
type Sender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// Dispatcher builds the outbound message for a claimed job and sends it
type Dispatcher struct {
	sender           Sender
	androidChannelID string
}

func NewDispatcher(sender Sender, androidChannelID string) *Dispatcher {
	if androidChannelID == "" {
		androidChannelID = DefaultAndroidChannelID
	}
	return &Dispatcher{sender: sender, androidChannelID: androidChannelID}
}

// Dispatch validates the job, then sends it unless dryRun is set.
// ErrMissingTarget and ErrJobExpired are returned before any network call.
func (d *Dispatcher) Dispatch(ctx context.Context, job *domain.Job, now time.Time, dryRun bool) (string, error) {
	message, err := BuildMessage(job, d.androidChannelID, now)
	if err != nil {
		return "", err
	}
	if job.Expired(now) {
		return "", domain.ErrJobExpired
	}

	if dryRun {
		zlog.Logger.Info().Str("component", "dispatcher").Str("job_id", job.ID).Msg("dry run, gateway not called")
		return domain.ResultDryRun, nil
	}

	return d.sender.Send(ctx, message)
}

// BuildMessage assembles the push message for job.
//
// The data block carries title, body, imageUrl and action, then the job's
// extra map is merged last: an extra key shadows a built-in key of the same
// name. Platform hints are attached regardless of content. When a job has
// both a topic and a token the topic is used.
func BuildMessage(job *domain.Job, androidChannelID string, now time.Time) (*messaging.Message, error) {
	if !job.HasTarget() {
		return nil, domain.ErrMissingTarget
	}

	data := map[string]string{
		"title": job.Title,
		"body":  job.Body,
	}
	if job.ImageURL != "" {
		data["imageUrl"] = job.ImageURL
	}
	if job.Action != "" {
		data["action"] = job.Action
	}
	for k, v := range job.Extra {
		data[k] = v.String()
	}

	message := &messaging.Message{
		Notification: &messaging.Notification{
			Title:    job.Title,
			Body:     job.Body,
			ImageURL: job.ImageURL,
		},
		Data: data,
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				ChannelID: androidChannelID,
			},
		},
		APNS: &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					ContentAvailable: true,
					MutableContent:   true,
				},
			},
		},
	}

	if job.Topic != "" {
		message.Topic = job.Topic
	} else {
		message.Token = job.Token
	}

	if job.ExpiresAt != nil && job.ExpiresAt.After(now) {
		ttl := job.ExpiresAt.Sub(now)
		message.Android.TTL = &ttl
		message.APNS.Headers = map[string]string{
			"apns-expiration": strconv.FormatInt(job.ExpiresAt.Unix(), 10),
		}
	}

	return message, nil
}
