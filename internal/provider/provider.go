// Package provider defines the descriptor an identity-provider adapter
// hands to the host authentication framework.
//
// A descriptor is plain data plus three functions. The host calls
// Token.Request, Userinfo.Request and Profile once each, in that order,
// for every sign-in attempt. Descriptors hold no state between calls.
package provider

import (
	"context"
	"fmt"
	"net/url"

	"golang.org/x/oauth2"
)

// Type is the protocol family of a provider.
type Type string

const TypeOAuth Type = "oauth"

// User is the normalized user shape the host expects.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Image string `json:"image"`
}

// CallbackParams are the query parameters the provider redirected back with.
type CallbackParams struct {
	Code  string
	State string
}

// ProviderContext is the host-resolved configuration of the provider being
// driven: credentials from the caller's options and the host's callback URL.
type ProviderContext struct {
	ClientID     string
	ClientSecret string
	CallbackURL  string
}

// TokenContext is passed to TokenEndpoint.Request.
type TokenContext struct {
	Params   CallbackParams
	Provider ProviderContext
}

// UserinfoContext is passed to UserinfoEndpoint.Request.
type UserinfoContext struct {
	Tokens *oauth2.Token
}

// TokenResult wraps the tokens returned by the token endpoint.
type TokenResult struct {
	Tokens *oauth2.Token
}

// Authorization describes where the browser is sent to grant access.
type Authorization struct {
	URL    string
	Params map[string]string
}

// AuthCodeURL builds the redirect URL. Params override the OAuth2 defaults,
// including response_type.
func (a Authorization) AuthCodeURL(clientID, callbackURL, state string) (string, error) {
	if _, err := url.Parse(a.URL); err != nil {
		return "", fmt.Errorf("invalid authorization url: %w", err)
	}

	cfg := oauth2.Config{
		ClientID:    clientID,
		RedirectURL: callbackURL,
		Endpoint:    oauth2.Endpoint{AuthURL: a.URL},
	}

	opts := make([]oauth2.AuthCodeOption, 0, len(a.Params))
	for k, v := range a.Params {
		opts = append(opts, oauth2.SetAuthURLParam(k, v))
	}
	return cfg.AuthCodeURL(state, opts...), nil
}

// TokenRequestFunc exchanges the callback parameters for tokens.
type TokenRequestFunc func(ctx context.Context, tc TokenContext) (*TokenResult, error)

// TokenEndpoint is the token exchange half of a descriptor.
type TokenEndpoint struct {
	URL     string
	Request TokenRequestFunc
}

// UserinfoRequestFunc fetches the provider-specific profile P.
type UserinfoRequestFunc[P any] func(ctx context.Context, uc UserinfoContext) (P, error)

// UserinfoEndpoint is the profile fetch half of a descriptor.
type UserinfoEndpoint[P any] struct {
	URL     string
	Request UserinfoRequestFunc[P]
}

// ProfileFunc maps a provider profile onto User.
type ProfileFunc[P any] func(profile P) (User, error)

// Descriptor is what an adapter factory returns. P is the provider's remote
// profile type and O the caller options, passed through untouched.
type Descriptor[P, O any] struct {
	ID            string
	Name          string
	Type          Type
	Authorization Authorization
	Token         TokenEndpoint
	Userinfo      UserinfoEndpoint[P]
	Profile       ProfileFunc[P]
	Options       O
}

// Info is the identifying part of a descriptor.
type Info struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type Type   `json:"type"`
}

// SignIn is the outcome of a completed sign-in attempt.
type SignIn struct {
	Provider string
	User     User
	Tokens   *oauth2.Token
}

// Provider is the type-erased view of a descriptor that hosts store.
type Provider interface {
	Info() Info
	AuthCodeURL(clientID, callbackURL, state string) (string, error)
	SignIn(ctx context.Context, tc TokenContext) (*SignIn, error)
}

// Info returns the descriptor's identity.
func (d *Descriptor[P, O]) Info() Info {
	return Info{ID: d.ID, Name: d.Name, Type: d.Type}
}

// AuthCodeURL delegates to Authorization.
func (d *Descriptor[P, O]) AuthCodeURL(clientID, callbackURL, state string) (string, error) {
	return d.Authorization.AuthCodeURL(clientID, callbackURL, state)
}

// SignIn runs token exchange, userinfo fetch and profile mapping in order
// and stops at the first error. Errors are returned as produced.
func (d *Descriptor[P, O]) SignIn(ctx context.Context, tc TokenContext) (*SignIn, error) {
	if d.Token.Request == nil || d.Userinfo.Request == nil || d.Profile == nil {
		return nil, fmt.Errorf("provider %s: descriptor is incomplete", d.ID)
	}

	res, err := d.Token.Request(ctx, tc)
	if err != nil {
		return nil, err
	}

	profile, err := d.Userinfo.Request(ctx, UserinfoContext{Tokens: res.Tokens})
	if err != nil {
		return nil, err
	}

	user, err := d.Profile(profile)
	if err != nil {
		return nil, err
	}

	return &SignIn{
		Provider: d.ID,
		User:     user,
		Tokens:   res.Tokens,
	}, nil
}
