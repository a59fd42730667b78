package identity

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/threadkit/pkg/thread"
)

// ActorClaims are the claims carried by a threadkit identity token.
type ActorClaims struct {
	Handle     string `json:"handle"`
	AvatarURL  string `json:"avatar_url"`
	ProfileURL string `json:"profile_url"`
	Admin      bool   `json:"admin"`
	jwt.RegisteredClaims
}

// FromToken builds a gate from a signed identity token. An invalid,
// expired, or foreign-signed token yields an anonymous (ineligible) gate
// along with the parse error, so callers can log the reason while the
// engine degrades to read-only instead of failing.
func FromToken(tokenString, secretKey string) (Gate, error) {
	claims := &ActorClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secretKey), nil
	})
	if err != nil {
		return Anonymous(), fmt.Errorf("failed to parse identity token: %w", err)
	}
	if !token.Valid || claims.Handle == "" {
		return Anonymous(), fmt.Errorf("identity token has no usable actor")
	}

	return &StaticGate{
		Actor: &thread.Actor{
			Handle:     claims.Handle,
			AvatarURL:  claims.AvatarURL,
			ProfileURL: claims.ProfileURL,
		},
		Eligible: true,
		Admin:    claims.Admin,
	}, nil
}
