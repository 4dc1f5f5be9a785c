package auth

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"go.uber.org/zap"

	"pcbuild-backend/internal/engine"
)

const userKey = "auth.user"

var (
	errNoToken      = errors.New("no bearer token")
	errMalformedHeader = errors.New("authorization header is not a bearer token")
)

// Guard protects routes with access tokens issued by this service.
type Guard struct {
	secret string
	logger *zap.Logger
}

func NewGuard(secret string, logger *zap.Logger) *Guard {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Guard{secret: secret, logger: logger}
}

// Admin is the handler chain for admin-only routes.
func (g *Guard) Admin() []fiber.Handler {
	return []fiber.Handler{g.Authenticate(), g.Require(RoleAdmin)}
}

// Authenticate verifies the bearer token and stores the caller on the
// request. Rejections carry a WWW-Authenticate challenge.
func (g *Guard) Authenticate() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, err := bearerToken(c.Get(fiber.HeaderAuthorization))
		if err != nil {
			return g.reject(c, err, "Missing auth token")
		}
		claims, err := ParseAccessToken(token, g.secret)
		if err != nil {
			return g.reject(c, err, "Invalid or expired token")
		}
		c.Locals(userKey, userFromClaims(claims))
		return c.Next()
	}
}

// Require lets the request through only when the caller holds role.
func (g *Guard) Require(role string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := CurrentUser(c)
		if user == nil {
			return g.reject(c, errNoToken, "Missing auth token")
		}
		if !user.HasRole(role) {
			g.logger.Info("Role check failed",
				zap.String("user_id", user.ID),
				zap.String("role", role),
				zap.String("path", utils.CopyString(c.Path())),
			)
			return engine.ForbiddenError(role + " access required")
		}
		return c.Next()
	}
}

func (g *Guard) reject(c *fiber.Ctx, err error, msg string) error {
	g.logger.Debug("Unauthenticated request",
		zap.String("path", utils.CopyString(c.Path())), zap.Error(err))
	c.Set(fiber.HeaderWWWAuthenticate, `Bearer realm="`+Issuer+`"`)
	return engine.UnauthorizedError(msg)
}

// CurrentUser returns the caller stored by Authenticate, or nil.
func CurrentUser(c *fiber.Ctx) *User {
	user, _ := c.Locals(userKey).(*User)
	return user
}

func bearerToken(header string) (string, error) {
	if header == "" {
		return "", errNoToken
	}
	scheme, token, ok := strings.Cut(header, " ")
	token = strings.TrimSpace(token)
	if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", errMalformedHeader
	}
	return token, nil
}
