package backend

import (
	"encoding/json"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Identity is the principal embedded in an access token's subject.
type Identity struct {
	ID    int64
	HasID bool
	Role  string
}

// The backend signs tokens; this client only reads them, so no key is needed
// and no signature is checked.
var unverified = jwt.NewParser()

func parseClaims(token string) (jwt.MapClaims, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := unverified.ParseUnverified(token, claims); err != nil {
		return nil, false
	}
	return claims, true
}

// TokenIdentity decodes the JSON identity the backend stores in "sub".
func TokenIdentity(token string) (Identity, bool) {
	claims, ok := parseClaims(token)
	if !ok {
		return Identity{}, false
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return Identity{}, false
	}

	var raw struct {
		ID   *int64 `json:"id"`
		Role string `json:"role"`
	}
	if err := json.Unmarshal([]byte(sub), &raw); err != nil {
		return Identity{}, false
	}
	id := Identity{Role: raw.Role}
	if raw.ID != nil {
		id.ID, id.HasID = *raw.ID, true
	}
	return id, true
}

// TokenExpiry returns the token's "exp" claim. Opaque or non-expiring tokens
// report ok=false.
func TokenExpiry(token string) (time.Time, bool) {
	claims, ok := parseClaims(token)
	if !ok {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
