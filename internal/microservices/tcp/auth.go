package tcp

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

const tokenIssuer = "lecturehub"

// TCPAuthService checks the access tokens minted by the HTTP API.
type TCPAuthService struct {
	jwtSecret string
}

func NewTCPAuthService(jwtSecret string) *TCPAuthService {
	return &TCPAuthService{jwtSecret: jwtSecret}
}

// ValidateToken returns the user id and username carried by the token.
func (a *TCPAuthService) ValidateToken(tokenString string) (string, string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		return []byte(a.jwtSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(tokenIssuer))
	if err != nil || !token.Valid {
		return "", "", fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", "", errors.New("invalid token claims")
	}

	userID, ok := claims["user_id"].(string)
	if !ok || userID == "" {
		return "", "", errors.New("user_id claim is not a string")
	}

	username, _ := claims["username"].(string)
	return userID, username, nil
}
