package azuredevops

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/oauth2"

	"azdoauth/internal/provider"
	"azdoauth/pkg/errors"
)

const (
	endpointToken    = "token"
	endpointUserinfo = "userinfo"

	maxBodyBytes = 1 << 20
)

type tokenResponse struct {
	AccessToken  string          `json:"access_token"`
	TokenType    string          `json:"token_type"`
	ExpiresIn    json.RawMessage `json:"expires_in"`
	RefreshToken string          `json:"refresh_token"`
	Scope        string          `json:"scope"`
}

// errorResponse is the body Azure DevOps sends with a failed call.
type errorResponse struct {
	Error            string `json:"Error"`
	ErrorDescription string `json:"ErrorDescription"`
	Message          string `json:"message"`
}

// tokenForm is the JWT-bearer exchange body. The authorization code travels
// as the assertion and the app secret as the client assertion.
func tokenForm(tc provider.TokenContext) url.Values {
	return url.Values{
		"client_assertion_type": {ClientAssertionType},
		"client_assertion":      {tc.Provider.ClientSecret},
		"grant_type":            {GrantType},
		"assertion":             {tc.Params.Code},
		"redirect_uri":          {tc.Provider.CallbackURL},
	}
}

func (a *adapter) requestToken(ctx context.Context, tc provider.TokenContext) (*provider.TokenResult, error) {
	ctx, span := a.tracer.Start(ctx, "azuredevops.token", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	a.inspectAssertion(tc.Provider.ClientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+tokenPath, strings.NewReader(tokenForm(tc).Encode()))
	if err != nil {
		return nil, a.fail(span, endpointToken, errors.NewError(errors.ErrorTypeInternal, "build token request").WithCause(err))
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	body, err := a.send(span, endpointToken, req)
	if err != nil {
		return nil, err
	}

	var payload tokenResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, a.fail(span, endpointToken, errors.NewError(errors.ErrorTypeUpstream, "decode token response").WithCause(err))
	}
	if payload.AccessToken == "" {
		return nil, a.fail(span, endpointToken, errors.NewError(errors.ErrorTypeUpstream, "token response has no access_token"))
	}

	var extra map[string]any
	_ = json.Unmarshal(body, &extra)

	tok := (&oauth2.Token{
		AccessToken:  payload.AccessToken,
		TokenType:    payload.TokenType,
		RefreshToken: payload.RefreshToken,
		Expiry:       a.expiry(payload),
	}).WithExtra(extra)

	a.logger.Debug("token exchange completed",
		"token_type", payload.TokenType,
		"refresh_token_present", payload.RefreshToken != "",
		"expiry", tok.Expiry,
	)

	return &provider.TokenResult{Tokens: tok}, nil
}

// expiry prefers expires_in, which Azure DevOps sends as a string, and
// falls back to the access token's own exp claim.
func (a *adapter) expiry(payload tokenResponse) time.Time {
	if secs, ok := expiresIn(payload.ExpiresIn); ok {
		return a.now().Add(time.Duration(secs) * time.Second)
	}
	if exp, ok := jwtExpiry(payload.AccessToken); ok {
		return exp
	}
	return time.Time{}
}

// expiresIn accepts a JSON number or a numeric string. Anything else, or a
// non-positive value, reports false.
func expiresIn(raw json.RawMessage) (int64, bool) {
	v := strings.TrimSpace(string(raw))
	if unquoted, err := strconv.Unquote(v); err == nil {
		v = strings.TrimSpace(unquoted)
	}
	secs, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		f, ferr := strconv.ParseFloat(v, 64)
		if ferr != nil || math.IsNaN(f) || math.IsInf(f, 0) || f > math.MaxInt32 {
			return 0, false
		}
		secs = int64(f)
	}
	if secs <= 0 {
		return 0, false
	}
	return secs, true
}

func (a *adapter) requestUserinfo(ctx context.Context, uc provider.UserinfoContext) (*Profile, error) {
	ctx, span := a.tracer.Start(ctx, "azuredevops.userinfo", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	if uc.Tokens == nil || uc.Tokens.AccessToken == "" {
		return nil, a.fail(span, endpointUserinfo, errors.NewError(errors.ErrorTypeBadRequest, "missing access token"))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+profilePath, nil)
	if err != nil {
		return nil, a.fail(span, endpointUserinfo, errors.NewError(errors.ErrorTypeInternal, "build userinfo request").WithCause(err))
	}
	// Azure DevOps reports token_type "jwt-bearer"; the API still wants Bearer.
	req.Header.Set("Authorization", "Bearer "+uc.Tokens.AccessToken)
	req.Header.Set("Accept", "application/json")

	body, err := a.send(span, endpointUserinfo, req)
	if err != nil {
		return nil, err
	}

	var profile Profile
	if err := json.Unmarshal(body, &profile); err != nil {
		return nil, a.fail(span, endpointUserinfo, errors.NewError(errors.ErrorTypeUpstream, "decode profile").WithCause(err))
	}
	return &profile, nil
}

// send performs req once and returns the body of a 2xx response. Anything
// else becomes a structured error; there is no retry.
func (a *adapter) send(span trace.Span, endpoint string, req *http.Request) ([]byte, error) {
	start := time.Now()
	resp, err := a.httpClient.Do(req)
	if a.metrics != nil {
		a.metrics.ProviderRequestDuration.WithLabelValues(ID, endpoint).Observe(time.Since(start).Seconds())
	}
	if err != nil {
		a.observe(endpoint, "error")
		kind := errors.ErrorTypeUnavailable
		if stderrors.Is(err, context.DeadlineExceeded) {
			kind = errors.ErrorTypeTimeout
		}
		return nil, a.fail(span, endpoint, errors.NewError(kind, endpoint+" request failed").WithCause(err))
	}
	defer resp.Body.Close()

	a.observe(endpoint, strconv.Itoa(resp.StatusCode))
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, a.fail(span, endpoint, errors.NewError(errors.ErrorTypeUnavailable, "read "+endpoint+" response").WithCause(err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		e := errors.NewError(errors.ErrorTypeUpstream, endpoint+" endpoint returned "+strconv.Itoa(resp.StatusCode)).
			WithDetail("status", resp.StatusCode).
			WithDetail("endpoint", endpoint)
		var remote errorResponse
		if json.Unmarshal(body, &remote) == nil {
			if remote.Error != "" {
				e.WithDetail("error", remote.Error)
			}
			if desc := firstNonEmpty(remote.ErrorDescription, remote.Message); desc != "" {
				e.WithDetail("error_description", desc)
			}
		}
		return nil, a.fail(span, endpoint, e)
	}

	return body, nil
}

func (a *adapter) observe(endpoint, status string) {
	if a.metrics == nil {
		return
	}
	a.metrics.ProviderRequestsTotal.WithLabelValues(ID, endpoint, status).Inc()
}

// fail records err on the span, metrics and log, and returns it.
func (a *adapter) fail(span trace.Span, endpoint string, err *errors.Error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Message)
	if a.metrics != nil {
		a.metrics.ProviderErrors.WithLabelValues(ID, endpoint, string(err.Type)).Inc()
	}
	a.logger.Error("provider request failed",
		"endpoint", endpoint,
		"error_type", err.Type,
		"error", err,
	)
	return err
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
