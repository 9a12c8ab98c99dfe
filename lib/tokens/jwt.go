package tokens

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/edupay/upiverify/lib/responses"
	"github.com/golang-jwt/jwt"
	"github.com/labstack/echo/v4"
)

// CallerIDKey is the echo context key holding the authenticated caller id.
const CallerIDKey = "CallerID"

type jwtCustomClaims struct {
	ID string `json:"id"`

	jwt.StandardClaims
}

// GenerateAccessToken : Generate Access Token for a caller
func GenerateAccessToken(secret []byte, callerID string, expiry time.Duration) (string, error) {
	claims := &jwtCustomClaims{
		callerID,
		jwt.StandardClaims{
			ExpiresAt: time.Now().Add(expiry).Unix(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	t, err := token.SignedString(secret)
	if err != nil {
		return "", err
	}

	return t, nil
}

// Middleware authenticates the bearer token and stores the caller id in the context.
func Middleware(secret []byte) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get(echo.HeaderAuthorization)
			raw := strings.TrimPrefix(auth, "Bearer ")
			if auth == "" || raw == auth {
				return c.JSON(http.StatusUnauthorized, responses.BadAuthError)
			}
			claims := &jwtCustomClaims{}
			token, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
				}
				return secret, nil
			})
			if err != nil || !token.Valid || claims.ID == "" {
				return c.JSON(http.StatusUnauthorized, responses.BadAuthError)
			}
			c.Set(CallerIDKey, claims.ID)
			return next(c)
		}
	}
}

func CallerID(c echo.Context) string {
	id, _ := c.Get(CallerIDKey).(string)
	return id
}

// AdminTokenMiddleware guards operator endpoints. Without a configured token
// the endpoints are closed.
func AdminTokenMiddleware(token string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := strings.TrimPrefix(c.Request().Header.Get(echo.HeaderAuthorization), "Bearer ")
			if token == "" || subtle.ConstantTimeCompare([]byte(auth), []byte(token)) != 1 {
				return c.JSON(http.StatusUnauthorized, responses.BadAuthError)
			}
			return next(c)
		}
	}
}
