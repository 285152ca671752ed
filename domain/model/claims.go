package model

import "github.com/golang-jwt/jwt"

// AdminClaims are carried by the bearer tokens that guard operator routes.
type AdminClaims struct {
	jwt.StandardClaims
	UserName string `json:"user_name"`
	Role     string `json:"role,omitempty"`
}
