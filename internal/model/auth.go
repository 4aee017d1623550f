package model

// UserRecord is an account as stored in the backend
type UserRecord struct {
	Username       string `json:"username"`
	HashedPassword string `json:"hashed_password"`
}

// User is the public view of an account
type User struct {
	Username string `json:"username"`
}

// LoginRequest carries the credentials posted to /token
type LoginRequest struct {
	Username string `form:"username" binding:"required"`
	Password string `form:"password" binding:"required"`
}

// RefreshRequest carries the refresh token posted to /refresh
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// TokenResponse is returned after a successful login or refresh
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}
