package azuredevops

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// jwtExpiry reads the exp claim of a JWT without verifying its signature.
// Azure DevOps app secrets and access tokens are both JWTs signed by the
// provider, so only the provider can verify them.
func jwtExpiry(raw string) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, false
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return time.Time{}, false
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// inspectAssertion warns about an expired client assertion. The exchange
// still goes ahead and the provider has the final say.
func (a *adapter) inspectAssertion(assertion string) {
	exp, ok := jwtExpiry(assertion)
	if !ok {
		a.logger.Debug("client assertion has no readable expiry",
			"assertion_present", assertion != "",
		)
		return
	}
	if !exp.After(a.now()) {
		a.logger.Warn("client assertion has expired; regenerate the app secret",
			"expired_at", exp.UTC(),
		)
	}
}
