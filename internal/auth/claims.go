package auth

import "github.com/golang-jwt/jwt/v5"

type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// Claims are the only supported JWT claims shape for this service.
// UserID is the operator id for operators and the staff id for supervisors
// and directors. TeamID scopes supervisors to the operators they coach.
type Claims struct {
	jwt.RegisteredClaims

	UserID    string    `json:"user_id"`
	TeamID    string    `json:"team_id"`
	Role      string    `json:"role"`
	TokenType TokenType `json:"token_type"`
}
