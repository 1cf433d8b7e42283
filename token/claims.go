package token

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims is the identity claim-set carried by an access token
type Claims struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	jwt.RegisteredClaims
}

// claimNames is the complete schema of an access token payload
var claimNames = map[string]struct{}{
	"id": {}, "firstName": {}, "lastName": {}, "email": {},
	"iss": {}, "sub": {}, "aud": {}, "iat": {}, "exp": {}, "jti": {},
}

// Validate is called by the jwt parser after the registered claims have been checked
func (c *Claims) Validate() error {
	if _, err := uuid.Parse(c.ID); err != nil {
		return fmt.Errorf("claim id is not a uuid")
	}
	if c.Subject != c.ID {
		return fmt.Errorf("claim sub does not match id")
	}
	if strings.TrimSpace(c.FirstName) == "" || strings.TrimSpace(c.LastName) == "" {
		return fmt.Errorf("claim firstName and lastName are required")
	}
	if !strings.Contains(c.Email, "@") {
		return fmt.Errorf("claim email is invalid")
	}
	if c.IssuedAt == nil || c.ExpiresAt == nil {
		return fmt.Errorf("claims iat and exp are required")
	}
	if c.RegisteredClaims.ID == "" {
		return fmt.Errorf("claim jti is required")
	}
	return nil
}

// checkSchema rejects payloads with claims outside the access token schema or with
// claims of the wrong JSON type.
func checkSchema(payload []byte) error {
	raw := map[string]json.RawMessage{}
	if err := json.Unmarshal(payload, &raw); err != nil {
		return fmt.Errorf("payload is not a JSON object: %w", err)
	}
	for name, value := range raw {
		if _, ok := claimNames[name]; !ok {
			return fmt.Errorf("unexpected claim %q", name)
		}
		switch name {
		case "iat", "exp":
			var n json.Number
			if err := json.Unmarshal(value, &n); err != nil {
				return fmt.Errorf("claim %q must be numeric", name)
			}
		case "aud":
		default:
			var s string
			if err := json.Unmarshal(value, &s); err != nil {
				return fmt.Errorf("claim %q must be a string", name)
			}
		}
	}
	return nil
}
