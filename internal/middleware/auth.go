// Package middleware содержит HTTP middleware магазина и админ-панели.
package middleware

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"
	"time"
)

type contextKey string

const customerIDKey contextKey = "customerID"

const (
	authCookieName = "auth_token"
	authCookieTTL  = 30 * 24 * time.Hour
)

// AuthMiddleware выполняет проверку аутентификации покупателя по подписанному cookie.
type AuthMiddleware struct {
	secretKey []byte
}

// NewAuthMiddleware создаёт AuthMiddleware с указанным секретным ключом.
// При пустом ключе генерируется случайный: сессии не переживут перезапуск.
func NewAuthMiddleware(secret string) *AuthMiddleware {
	return &AuthMiddleware{
		secretKey: secretOrRandom(secret),
	}
}

func secretOrRandom(secret string) []byte {
	key := []byte(secret)
	if len(key) == 0 {
		randomKey := make([]byte, 32)
		if _, err := rand.Read(randomKey); err == nil {
			key = randomKey
		} else {
			key = []byte("default-secret-key")
		}
	}
	return key
}

// Middleware проверяет cookie авторизации и добавляет идентификатор покупателя в контекст запроса.
func (a *AuthMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(authCookieName)
		if err != nil {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		customerID, ok := a.parseCookie(cookie.Value)
		if !ok {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		ctx := WithCustomerID(r.Context(), customerID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// SetAuthCookie устанавливает cookie авторизации для указанного покупателя.
func (a *AuthMiddleware) SetAuthCookie(w http.ResponseWriter, customerID string) {
	cookie := &http.Cookie{
		Name:     authCookieName,
		Value:    customerID + "." + a.sign(customerID),
		Path:     "/",
		Expires:  time.Now().Add(authCookieTTL),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}

	http.SetCookie(w, cookie)
}

func (a *AuthMiddleware) sign(customerID string) string {
	mac := hmac.New(sha256.New, a.secretKey)
	mac.Write([]byte(customerID))
	return hex.EncodeToString(mac.Sum(nil))
}

func (a *AuthMiddleware) parseCookie(cookieValue string) (string, bool) {
	idx := strings.LastIndex(cookieValue, ".")
	if idx <= 0 || idx == len(cookieValue)-1 {
		return "", false
	}

	customerID, signature := cookieValue[:idx], cookieValue[idx+1:]
	if !hmac.Equal([]byte(signature), []byte(a.sign(customerID))) {
		return "", false
	}

	return customerID, true
}

// WithCustomerID кладёт идентификатор покупателя в контекст.
func WithCustomerID(ctx context.Context, customerID string) context.Context {
	return context.WithValue(ctx, customerIDKey, customerID)
}

// GetCustomerIDFromContext извлекает идентификатор покупателя из контекста запроса.
func GetCustomerIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(customerIDKey).(string)
	return id, ok && id != ""
}
