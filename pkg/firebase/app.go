// Package firebase builds the Firebase app shared by the messaging and
// Firestore clients.
package firebase

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/option"
)

// Credentials selects how the app authenticates. When both fields are empty
// Application Default Credentials are used.
type Credentials struct {
	File string
	JSON string
}

func (c Credentials) options() []option.ClientOption {
	var opts []option.ClientOption
	switch {
	case c.JSON != "":
		opts = append(opts, option.WithCredentialsJSON([]byte(c.JSON)))
	case c.File != "":
		opts = append(opts, option.WithCredentialsFile(c.File))
	}
	return opts
}

// NewApp initializes a Firebase app for projectID
func NewApp(ctx context.Context, projectID string, creds Credentials) (*firebase.App, error) {
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, creds.options()...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Firebase app: %w", err)
	}
	return app, nil
}

// ClientOptions exposes the credential options for other Google clients
// (Pub/Sub) created alongside the app.
func ClientOptions(creds Credentials) []option.ClientOption {
	return creds.options()
}
