package tokenpkg

import (
	"fmt"
	"time"
)

// Token types accepted by NewMaker.
const (
	TypeJWT    = "jwt"
	TypePaseto = "paseto"
)

// Maker is an interface for managing tokens.
type Maker interface {
	// CreateToken creates a new token for a specific account and duration.
	CreateToken(accountID int64, duration time.Duration) (string, *Payload, error)
	// VerifyToken checks if the token is valid or not.
	VerifyToken(token string) (*Payload, error)
}

// NewMaker returns the Maker for the configured token type.
func NewMaker(tokenType, symmetricKey string) (Maker, error) {
	switch tokenType {
	case TypeJWT:
		return NewJWTMaker(symmetricKey)
	case TypePaseto, "":
		return NewPasetoMaker(symmetricKey)
	}

	return nil, fmt.Errorf("unsupported token type %q", tokenType)
}
