package model

import "github.com/golang-jwt/jwt/v5"

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

type JWTClaims struct {
	Email string `json:"email,omitempty"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}
