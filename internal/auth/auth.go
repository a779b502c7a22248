// Package auth verifies Firebase ID tokens presented as bearer credentials.
package auth

import (
	"context"
	"fmt"
	"strings"

	firebase "firebase.google.com/go/v4"
	fbauth "firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"

	"github.com/autocompanion/autocompanion/internal/apperr"
)

// Token holds the verified identity. UID becomes the owner of stored trips.
type Token struct {
	UID    string
	Email  string
	Claims map[string]interface{}
}

// TokenVerifier verifies a raw ID token string and returns token data.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*Token, error)
}

// firebaseVerifier is backed by the Firebase Admin SDK.
type firebaseVerifier struct {
	client *fbauth.Client
}

// NewFirebaseVerifier creates a TokenVerifier using the Firebase Admin SDK.
// If credentialsFile is empty, application-default credentials are used.
func NewFirebaseVerifier(ctx context.Context, projectID, credentialsFile string) (TokenVerifier, error) {
	if projectID == "" {
		return nil, fmt.Errorf("firebase project id is required")
	}

	opts := []option.ClientOption{}
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("firebase.NewApp: %w", err)
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase app.Auth: %w", err)
	}
	return &firebaseVerifier{client: client}, nil
}

func (v *firebaseVerifier) VerifyIDToken(ctx context.Context, idToken string) (*Token, error) {
	token, err := v.client.VerifyIDToken(ctx, idToken)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid or expired Firebase token", apperr.ErrUnauthorized)
	}
	return fromClaims(token.UID, token.Claims), nil
}

func fromClaims(uid string, claims map[string]interface{}) *Token {
	email, _ := claims["email"].(string)
	return &Token{UID: uid, Email: email, Claims: claims}
}

// BearerToken extracts the credential from an Authorization header value.
func BearerToken(header string) (string, error) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", fmt.Errorf("%w: missing bearer token", apperr.ErrUnauthorized)
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", fmt.Errorf("%w: missing bearer token", apperr.ErrUnauthorized)
	}
	return token, nil
}

type contextKey struct{}

// WithToken returns a copy of ctx carrying token.
func WithToken(ctx context.Context, token *Token) context.Context {
	return context.WithValue(ctx, contextKey{}, token)
}

// FromContext returns the caller's token. Without one the caller is
// anonymous and an empty token is returned.
func FromContext(ctx context.Context) *Token {
	if token, ok := ctx.Value(contextKey{}).(*Token); ok && token != nil {
		return token
	}
	return &Token{}
}
