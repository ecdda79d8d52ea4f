package identity

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"github.com/shinyyama/agri-marketplace/internal/service"
)

// NewAuthClient builds a Firebase Auth client for the given project.
func NewAuthClient(ctx context.Context, projectID string) (*auth.Client, error) {
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID})
	if err != nil {
		return nil, fmt.Errorf("firebase app: %w", err)
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase auth: %w", err)
	}
	return client, nil
}

// userGetter is the part of *auth.Client the directory needs.
type userGetter interface {
	GetUser(ctx context.Context, uid string) (*auth.UserRecord, error)
}

// FirebaseDirectory resolves public profiles from Firebase Auth.
type FirebaseDirectory struct {
	client userGetter
}

func NewFirebaseDirectory(client *auth.Client) *FirebaseDirectory {
	return &FirebaseDirectory{client: client}
}

func (d *FirebaseDirectory) Lookup(ctx context.Context, uid string) (*service.UserSummary, error) {
	user, err := d.client.GetUser(ctx, uid)
	if err != nil {
		return nil, err
	}
	return &service.UserSummary{
		UID:         user.UID,
		DisplayName: user.DisplayName,
		PhotoURL:    strPtrOrNil(user.PhotoURL),
	}, nil
}

func strPtrOrNil(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// StaticDirectory is a fixed uid to display name table, used when Firebase
// is not configured.
type StaticDirectory map[string]string

func (d StaticDirectory) Lookup(_ context.Context, uid string) (*service.UserSummary, error) {
	return &service.UserSummary{UID: uid, DisplayName: d[uid]}, nil
}
