package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"ms-onboarding/internal/models"
)

// ExtractTokenFromRequest extracts a JWT token from an HTTP request's
// Authorization header.
func ExtractTokenFromRequest(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", errors.New("authorization header is missing")
	}

	// Bearer token format: "Bearer {token}"
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", errors.New("authorization header format must be 'Bearer {token}'")
	}

	return parts[1], nil
}

// ActorFromJWT extracts the acting identity from a JWT: the 'sub' claim
// becomes the actor id and the 'role' claim its role. Tokens without a
// role claim default to applicant; the raffle role can never arrive
// through a token.
func ActorFromJWT(tokenString string) (models.Actor, error) {
	if tokenString == "" {
		return models.Actor{}, errors.New("empty token")
	}

	// Signature verification happens in the OIDC middleware; this only
	// reads the already-verified claims.
	token, _, err := new(jwt.Parser).ParseUnverified(tokenString, jwt.MapClaims{})
	if err != nil {
		return models.Actor{}, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return models.Actor{}, errors.New("invalid token claims")
	}

	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return models.Actor{}, errors.New("subject claim not found in token")
	}

	role := models.RoleApplicant
	if claimed, ok := claims["role"].(string); ok {
		switch models.Role(claimed) {
		case models.RoleAdmin:
			role = models.RoleAdmin
		case models.RoleApplicant:
			role = models.RoleApplicant
		default:
			return models.Actor{}, fmt.Errorf("unknown role claim %q", claimed)
		}
	}

	return models.Actor{ID: sub, Role: role}, nil
}
