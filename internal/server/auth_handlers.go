package server

import (
	"fmt"
	"strings"
	"time"

	"myfeed/internal/cache"
	"myfeed/internal/models"
	"myfeed/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const tokenLifetime = time.Hour * 24 * 7

// Signup handles POST /api/auth/signup
func (s *Server) Signup(c *fiber.Ctx) error {
	var req service.SignupInput
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	if req.Username == "" || req.Email == "" || req.Password == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Username, email, and password are required"))
	}

	user, err := s.account.Signup(c.UserContext(), req)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Account created, check your mail for the verification link",
		"user":    user.Public(),
	})
}

// VerifyAccount handles GET /api/auth/verify/:token
func (s *Server) VerifyAccount(c *fiber.Ctx) error {
	if err := s.account.Verify(c.UserContext(), c.Params("token")); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "Account verified, you can sign in now",
	})
}

// Signin handles POST /api/auth/signin
func (s *Server) Signin(c *fiber.Ctx) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	user, err := s.account.Authenticate(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return respondError(c, err)
	}

	token, err := s.generateToken(user.Username)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewInternalError(err))
	}

	return c.JSON(fiber.Map{
		"token": token,
		"user":  user.Public(),
	})
}

// Signout handles POST /api/auth/signout. The presented token's jti is
// blacklisted until the token would have expired anyway.
func (s *Server) Signout(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 {
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError("Invalid authorization header format"))
	}

	// AuthRequired already validated the token; this parse only extracts claims.
	token, err := jwt.Parse(parts[1], func(token *jwt.Token) (interface{}, error) {
		return []byte(s.config.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError("Invalid or expired token"))
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError("Invalid token claims"))
	}

	jti, _ := claims["jti"].(string)
	if jti != "" {
		ttl := tokenLifetime
		if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
			ttl = time.Until(exp.Time)
		}
		if ttl > 0 {
			if err := cache.BlacklistToken(c.UserContext(), jti, ttl); err != nil {
				return models.RespondWithError(c, fiber.StatusInternalServerError,
					models.NewInternalError(err))
			}
		}
	}

	return c.JSON(fiber.Map{
		"message": "Signed out",
	})
}

// DeleteAccount handles DELETE /api/auth/account. Removes the account and
// everything it authored, including remote media.
func (s *Server) DeleteAccount(c *fiber.Ctx) error {
	username := currentUsername(c)
	if err := s.account.DeleteAccount(c.UserContext(), username); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// generateToken creates a JWT for the given username
func (s *Server) generateToken(username string) (string, error) {
	if s.config.JWTSecret == "" {
		return "", fmt.Errorf("JWT secret not configured")
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"sub": username,                      // Subject (username)
		"iss": s.config.JWTIssuer,            // Issuer
		"aud": s.config.JWTAudience,          // Audience
		"exp": now.Add(tokenLifetime).Unix(), // Expiration (7 days)
		"iat": now.Unix(),                    // Issued at
		"nbf": now.Unix(),                    // Not before
		"jti": s.generateJTI(),               // JWT ID (unique identifier)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.JWTSecret))
}

// generateJTI creates a unique JWT ID so single tokens can be revoked
func (s *Server) generateJTI() string {
	return fmt.Sprintf("%d-%s", time.Now().Unix(), uuid.New().String()[:8])
}
