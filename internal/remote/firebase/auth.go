package firebase

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/identitytoolkit/v3"
	"google.golang.org/api/option"

	"costtracker/internal/core"
)

// identity calls the password endpoints of Identity Toolkit.
type identity struct {
	svc *identitytoolkit.Service
}

func newIdentity(ctx context.Context, apiKey string) (*identity, error) {
	svc, err := identitytoolkit.NewService(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create identity toolkit client: %w", err)
	}
	return &identity{svc: svc}, nil
}

func (i *identity) signIn(ctx context.Context, email, password string) (core.User, error) {
	resp, err := i.svc.Relyingparty.VerifyPassword(&identitytoolkit.IdentitytoolkitRelyingpartyVerifyPasswordRequest{
		Email:             email,
		Password:          password,
		ReturnSecureToken: true,
	}).Context(ctx).Do()
	if err != nil {
		return core.User{}, apiError(err)
	}
	return core.User{UID: resp.LocalId, Email: resp.Email}, nil
}

func (i *identity) signUp(ctx context.Context, email, password string) (core.User, error) {
	resp, err := i.svc.Relyingparty.SignupNewUser(&identitytoolkit.IdentitytoolkitRelyingpartySignupNewUserRequest{
		Email:    email,
		Password: password,
	}).Context(ctx).Do()
	if err != nil {
		return core.User{}, apiError(err)
	}
	return core.User{UID: resp.LocalId, Email: resp.Email}, nil
}

// apiError keeps only the service's error code, e.g. EMAIL_EXISTS.
func apiError(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Message != "" {
		return errors.New(gerr.Message)
	}
	return err
}
