package identity

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// User is a signed-in account together with its current tokens.
type User struct {
	LocalID      string `json:"local_id"`
	Email        string `json:"email"`
	DisplayName  string `json:"display_name"`
	IDToken      string `json:"-"`
	RefreshToken string `json:"-"`
	Verified     bool   `json:"verified"`
}

type Tokens struct {
	IDToken      string
	RefreshToken string
	UserID       string
	ExpiresIn    time.Duration
}

// Account is the profile returned by a lookup.
type Account struct {
	LocalID       string `json:"localId"`
	Email         string `json:"email"`
	DisplayName   string `json:"displayName"`
	EmailVerified bool   `json:"emailVerified"`
	Disabled      bool   `json:"disabled"`
}

type authResponse struct {
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
	LocalID      string `json:"localId"`
	Email        string `json:"email"`
	DisplayName  string `json:"displayName"`
	ExpiresIn    string `json:"expiresIn"`
}

func (r authResponse) validate(call string) error {
	if r.IDToken == "" || r.RefreshToken == "" || r.LocalID == "" {
		return errors.Wrapf(ErrMalformedResponse, "%s: missing token or user id", call)
	}
	return nil
}

const (
	oobVerifyEmail   = "VERIFY_EMAIL"
	oobPasswordReset = "PASSWORD_RESET"
)

// fallbackName is the part of an email before "@".
func fallbackName(email string) string {
	name, _, _ := strings.Cut(email, "@")
	return name
}

// SignUp creates an account, sets its display name when one is given and
// sends a verification email. The returned user is unverified.
func (c *Client) SignUp(ctx context.Context, email, password, displayName string) (User, error) {
	var resp authResponse
	err := c.post(ctx, c.toolkit("signUp", false), map[string]any{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	}, &resp)
	if err != nil {
		return User{}, err
	}
	if err := resp.validate("signUp"); err != nil {
		return User{}, err
	}

	displayName = strings.TrimSpace(displayName)
	if displayName != "" {
		err := c.post(ctx, c.toolkit("update", false), map[string]any{
			"idToken":           resp.IDToken,
			"displayName":       displayName,
			"returnSecureToken": true,
		}, nil)
		if err != nil {
			return User{}, errors.Wrap(err, "set display name")
		}
	}

	if err := c.sendOob(ctx, map[string]any{"requestType": oobVerifyEmail, "idToken": resp.IDToken}); err != nil {
		return User{}, errors.Wrap(err, "send verification email")
	}

	name := displayName
	if name == "" {
		name = fallbackName(email)
	}
	return User{
		LocalID:      resp.LocalID,
		Email:        email,
		DisplayName:  name,
		IDToken:      resp.IDToken,
		RefreshToken: resp.RefreshToken,
	}, nil
}

// SignIn verifies the password and then looks the account up for its
// display name and verification state.
func (c *Client) SignIn(ctx context.Context, email, password string) (User, error) {
	var resp authResponse
	err := c.post(ctx, c.toolkit("signInWithPassword", true), map[string]any{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	}, &resp)
	if err != nil {
		return User{}, err
	}
	if err := resp.validate("signInWithPassword"); err != nil {
		return User{}, err
	}

	acct, err := c.LookupAccount(ctx, resp.IDToken)
	if err != nil {
		return User{}, err
	}

	name := acct.DisplayName
	if name == "" {
		name = fallbackName(email)
	}
	return User{
		LocalID:      resp.LocalID,
		Email:        email,
		DisplayName:  name,
		IDToken:      resp.IDToken,
		RefreshToken: resp.RefreshToken,
		Verified:     acct.EmailVerified,
	}, nil
}

func (c *Client) SendPasswordReset(ctx context.Context, email string) error {
	return c.sendOob(ctx, map[string]any{"requestType": oobPasswordReset, "email": email})
}

func (c *Client) ResendVerification(ctx context.Context, idToken string) error {
	return c.sendOob(ctx, map[string]any{"requestType": oobVerifyEmail, "idToken": idToken})
}

func (c *Client) sendOob(ctx context.Context, payload map[string]any) error {
	return c.post(ctx, c.toolkit("sendOobCode", false), payload, nil)
}

type tokenResponse struct {
	IDToken      string `json:"id_token"`
	RefreshToken string `json:"refresh_token"`
	UserID       string `json:"user_id"`
	ExpiresIn    string `json:"expires_in"`
}

// RefreshToken exchanges a refresh token for a new token pair.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (Tokens, error) {
	var resp tokenResponse
	err := c.post(ctx, c.token(), map[string]any{
		"grant_type":    "refresh_token",
		"refresh_token": refreshToken,
	}, &resp)
	if err != nil {
		return Tokens{}, err
	}
	if resp.IDToken == "" || resp.RefreshToken == "" {
		return Tokens{}, errors.Wrap(ErrMalformedResponse, "token: missing id_token or refresh_token")
	}

	t := Tokens{IDToken: resp.IDToken, RefreshToken: resp.RefreshToken, UserID: resp.UserID}
	if secs, err := strconv.Atoi(resp.ExpiresIn); err == nil {
		t.ExpiresIn = time.Duration(secs) * time.Second
	}
	return t, nil
}

type lookupResponse struct {
	Users []Account `json:"users"`
}

// LookupAccount fetches the profile behind idToken. A response without users
// yields a zero Account, matching the provider's behavior for fresh tokens.
func (c *Client) LookupAccount(ctx context.Context, idToken string) (Account, error) {
	var resp lookupResponse
	if err := c.post(ctx, c.toolkit("lookup", true), map[string]any{"idToken": idToken}, &resp); err != nil {
		return Account{}, err
	}
	if len(resp.Users) == 0 {
		return Account{}, nil
	}
	return resp.Users[0], nil
}

// RefreshStatus re-reads the verification flag after the user clicked the
// link in their email. Tokens are refreshed first when a refresh token is
// held. u is not modified; the updated copy is returned only when every call
// succeeded.
func (c *Client) RefreshStatus(ctx context.Context, u User) (User, error) {
	next := u
	if u.RefreshToken != "" {
		t, err := c.RefreshToken(ctx, u.RefreshToken)
		if err != nil {
			return u, err
		}
		next.IDToken, next.RefreshToken = t.IDToken, t.RefreshToken
	}

	acct, err := c.LookupAccount(ctx, next.IDToken)
	if err != nil {
		return u, err
	}
	next.Verified = acct.EmailVerified
	if acct.DisplayName != "" {
		next.DisplayName = acct.DisplayName
	}
	return next, nil
}
