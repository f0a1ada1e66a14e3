package middleware

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const adminLoginKey contextKey = "adminLogin"

const adminTokenTTL = 12 * time.Hour

// ErrInvalidAdminCredentials возвращается при неверном логине или пароле администратора.
var ErrInvalidAdminCredentials = errors.New("invalid admin credentials")

// AdminAuth выдаёт и проверяет JWT администратора.
type AdminAuth struct {
	login    string
	password string
	secret   []byte
	now      func() time.Time
}

// NewAdminAuth создаёт AdminAuth. Пустой пароль запрещает вход в админ-панель.
func NewAdminAuth(login, password, secret string) *AdminAuth {
	return &AdminAuth{
		login:    login,
		password: password,
		secret:   secretOrRandom(secret),
		now:      time.Now,
	}
}

// Login проверяет учётные данные администратора и возвращает подписанный токен.
func (a *AdminAuth) Login(login, password string) (string, error) {
	if a.password == "" {
		return "", ErrInvalidAdminCredentials
	}

	loginOK := subtle.ConstantTimeCompare([]byte(login), []byte(a.login)) == 1
	passwordOK := subtle.ConstantTimeCompare([]byte(password), []byte(a.password)) == 1
	if !loginOK || !passwordOK {
		return "", ErrInvalidAdminCredentials
	}

	now := a.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   login,
		Audience:  jwt.ClaimStrings{"admin"},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(adminTokenTTL)),
	})

	signed, err := token.SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("sign admin token: %w", err)
	}
	return signed, nil
}

// Middleware пропускает только запросы с действующим токеном администратора
// в заголовке Authorization: Bearer <token>.
func (a *AdminAuth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		tokenString, ok := strings.CutPrefix(authHeader, "Bearer ")
		if !ok || tokenString == "" {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		claims := &jwt.RegisteredClaims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("unexpected signing method")
			}
			return a.secret, nil
		},
			jwt.WithAudience("admin"),
			jwt.WithTimeFunc(a.now),
		)
		if err != nil || !token.Valid {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), adminLoginKey, claims.Subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetAdminLoginFromContext возвращает логин администратора, выполнившего запрос.
func GetAdminLoginFromContext(ctx context.Context) (string, bool) {
	login, ok := ctx.Value(adminLoginKey).(string)
	return login, ok
}
