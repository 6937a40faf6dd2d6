package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"
	"os"
	"strings"

	"github.com/sellora/marketplace/libs/logging"
)

type bearerTokenKey struct{}

// OperatorTokens are the bearer tokens that may settle payments by hand. They are read
// from TOKEN_LIST, a comma separated list.
var OperatorTokens = ParseTokenList(os.Getenv("TOKEN_LIST"))

// ParseTokenList splits a comma separated token list and drops blank entries.
func ParseTokenList(raw string) []string {
	var result []string
	for _, token := range strings.Split(raw, ",") {
		if token = strings.TrimSpace(token); token != "" {
			result = append(result, token)
		}
	}

	return result
}

// BearerToken puts the bearer token of the Authorization header on the request context.
func BearerToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var token string

		const prefix = "bearer "
		if auth := r.Header.Get("Authorization"); len(auth) > len(prefix) && strings.EqualFold(auth[:len(prefix)], prefix) {
			token = strings.TrimSpace(auth[len(prefix):])
		}

		ctx := context.WithValue(r.Context(), bearerTokenKey{}, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerTokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(bearerTokenKey{}).(string)
	return token
}

func isOperatorToken(tokens []string, token string) bool {
	if token == "" {
		return false
	}

	var match int
	for _, candidate := range tokens {
		// length still leaks through ConstantTimeCompare
		match |= subtle.ConstantTimeCompare([]byte(candidate), []byte(token))
	}

	return match == 1
}

// OperatorOnly lets through requests whose bearer token is one of OperatorTokens. A missing
// token is answered with 401 and an unknown one with 403. BearerToken must run first.
func OperatorOnly(next http.Handler) http.Handler {
	return operatorOnly(func() []string { return OperatorTokens })(next)
}

func operatorOnly(tokens func() []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerTokenFromContext(r.Context())

			switch {
			case token == "":
				http.Error(w, "operator token required", http.StatusUnauthorized)
				return

			case !isOperatorToken(tokens(), token):
				logging.Logger(r.Context(), "middleware").Warn().Str("path", r.URL.Path).Msg("operator token rejected")
				http.Error(w, "operator token rejected", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
