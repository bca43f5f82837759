package gateway

import "context"

// Authenticator resolves a handshake credential to a user identity.
// Verification of the raw token is delegated to the verify func; the
// resulting user id is then confirmed against the store so a token for
// a since-deleted account is rejected the same way as a bad one.
type Authenticator struct {
	verify CredentialVerifier
	store  Store
}

func NewAuthenticator(verify CredentialVerifier, store Store) *Authenticator {
	return &Authenticator{verify: verify, store: store}
}

func (a *Authenticator) Authenticate(ctx context.Context, credential string) (Identity, error) {
	if credential == "" {
		return Identity{}, &AuthError{Reason: AuthMissing}
	}
	userID, err := a.verify(credential)
	if err != nil {
		return Identity{}, &AuthError{Reason: AuthInvalid}
	}
	user, err := a.store.FindUserByID(ctx, userID)
	if err != nil {
		return Identity{}, err
	}
	if user == nil {
		return Identity{}, &AuthError{Reason: AuthInvalid}
	}
	return Identity{UserID: user.ID, Name: user.Name}, nil
}
