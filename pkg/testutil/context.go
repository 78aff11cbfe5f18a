package testutil

import (
	"net/http"
	"time"

	"railledger/internal/platform/middleware"
	"railledger/pkg/domain"
	"railledger/pkg/requestcontext"
)

// WithRequestTime pins the request-scoped clock so status derivation is
// deterministic in tests.
func WithRequestTime(req *http.Request, t time.Time) *http.Request {
	ctx := requestcontext.WithTime(req.Context(), t)
	return req.WithContext(ctx)
}

// StaticValidator accepts any bearer token and returns fixed actor claims.
type StaticValidator struct {
	Claims middleware.ActorClaims
}

// NewStaticValidator returns a validator that resolves every token to the
// given actor.
func NewStaticValidator(actorType domain.ActorType, actorID string) *StaticValidator {
	return &StaticValidator{Claims: middleware.ActorClaims{ActorID: actorID, ActorType: actorType}}
}

// ValidateToken implements middleware.TokenValidator.
func (v *StaticValidator) ValidateToken(string) (*middleware.ActorClaims, error) {
	claims := v.Claims
	return &claims, nil
}
