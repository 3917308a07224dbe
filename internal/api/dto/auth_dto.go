package dto

import "time"

// TokenRequest exchanges the shared operator key for a bearer token.
type TokenRequest struct {
	OperatorID  string `json:"operator_id"`
	Name        string `json:"name"`
	OperatorKey string `json:"operator_key"`
}

// TokenResponse carries an issued bearer token.
type TokenResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}
