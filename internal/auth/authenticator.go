package auth

import (
	"context"

	"github.com/mmynk/groupcal/internal/models"
)

// Authenticator registers and verifies user accounts. AuthService depends on this
// interface so the credential scheme can change without touching the service.
type Authenticator interface {
	// Register creates a new account. The credential format depends on the implementation.
	Register(ctx context.Context, email, displayName, credential string) (*models.User, error)

	// Authenticate returns the user whose credentials match, or ErrInvalidCredentials.
	Authenticate(ctx context.Context, email, credential string) (*models.User, error)

	// ValidateCredential reports whether credential is acceptable for Register.
	ValidateCredential(credential string) error
}
