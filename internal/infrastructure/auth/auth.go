package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/placementmentor/mentor-server/internal/config"
)

// ContextUserIDKey is the gin context key holding the authenticated user id.
const ContextUserIDKey = "user_id"

const fallbackUserClaim = "sub"

var errMissingUserID = errors.New("token carries no user id")

// Validator verifies bearer JWTs against a shared HS256 secret or a JWKS endpoint.
type Validator struct {
	secret    []byte
	jwks      *keyfunc.JWKS
	userClaim string
	log       zerolog.Logger
}

// NewValidator initializes JWKS fetching when AUTH_JWKS_URL is set, otherwise uses the shared secret.
func NewValidator(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Validator, error) {
	v := &Validator{
		userClaim: cfg.AuthUserClaim,
		log:       log.With().Str("component", "auth").Logger(),
	}
	if v.userClaim == "" {
		v.userClaim = "userId"
	}

	if cfg.AuthJWKSURL == "" {
		if cfg.AuthJWTSecret == "" {
			return nil, fmt.Errorf("auth requires AUTH_JWT_SECRET or AUTH_JWKS_URL")
		}
		v.secret = []byte(cfg.AuthJWTSecret)
		return v, nil
	}

	options := keyfunc.Options{
		Ctx:               ctx,
		RefreshInterval:   time.Hour,
		RefreshUnknownKID: true,
		RefreshErrorHandler: func(err error) {
			log.Error().Err(err).Msg("jwks refresh error")
		},
	}

	jwks, err := keyfunc.Get(cfg.AuthJWKSURL, options)
	if err != nil {
		return nil, fmt.Errorf("load jwks: %w", err)
	}
	v.jwks = jwks
	return v, nil
}

// NewSecretValidator builds an HS256 validator, used by tests and tools.
func NewSecretValidator(secret, userClaim string, log zerolog.Logger) *Validator {
	if userClaim == "" {
		userClaim = "userId"
	}
	return &Validator{secret: []byte(secret), userClaim: userClaim, log: log}
}

// Middleware rejects requests without a valid bearer token and stores the user id.
func (v *Validator) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := bearerToken(c.GetHeader("Authorization"))
		if tokenString == "" {
			abortUnauthorized(c, "No token, authorization denied")
			return
		}

		userID, err := v.Authenticate(tokenString)
		if err != nil {
			v.log.Debug().Err(err).Msg("rejected bearer token")
			abortUnauthorized(c, "Token is not valid")
			return
		}

		c.Set(ContextUserIDKey, userID)
		c.Next()
	}
}

// Authenticate verifies tokenString and returns the user id it carries.
func (v *Validator) Authenticate(tokenString string) (string, error) {
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, v.keyfunc, jwt.WithValidMethods(v.methods()))
	if err != nil {
		return "", err
	}
	if !token.Valid {
		return "", jwt.ErrTokenSignatureInvalid
	}

	for _, name := range []string{v.userClaim, fallbackUserClaim} {
		if id := claimString(claims[name]); id != "" {
			return id, nil
		}
	}
	return "", errMissingUserID
}

// UserID returns the id stored by Middleware.
func UserID(c *gin.Context) string {
	return c.GetString(ContextUserIDKey)
}

func (v *Validator) keyfunc(token *jwt.Token) (any, error) {
	if v.jwks != nil {
		return v.jwks.Keyfunc(token)
	}
	return v.secret, nil
}

func (v *Validator) methods() []string {
	if v.jwks != nil {
		return []string{"RS256", "RS384", "RS512"}
	}
	return []string{"HS256"}
}

func claimString(value any) string {
	switch id := value.(type) {
	case string:
		return strings.TrimSpace(id)
	case float64:
		return fmt.Sprintf("%.0f", id)
	}
	return ""
}

func bearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"message": message,
		"code":    "UNAUTHORIZED",
	})
}
