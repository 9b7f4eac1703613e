package httputil

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
)

const maxBodyBytes = 1 << 20

// ValidationErrors collects every rule a request body violated.
type ValidationErrors []string

func (v ValidationErrors) Error() string {
	return strings.Join(v, ", ")
}

// Check appends msg when ok is false.
func (v *ValidationErrors) Check(ok bool, msg string) {
	if !ok {
		*v = append(*v, msg)
	}
}

// Err returns nil when no rule was violated.
func (v ValidationErrors) Err() error {
	if len(v) == 0 {
		return nil
	}
	return v
}

type bodyKey struct{}

// ValidateBody decodes the JSON request body into T and runs its Validate
// method before calling next. Invalid bodies get a 400 listing every issue;
// any other validator failure is a 500. The decoded value is available to
// next through BodyFromContext.
func ValidateBody[T any, PT interface {
	*T
	Validate() error
}]() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
			if err != nil {
				writeInvalidBody(w, err.Error())
				return
			}

			body := PT(new(T))
			if err := json.Unmarshal(raw, body); err != nil {
				writeInvalidBody(w, err.Error())
				return
			}

			if err := body.Validate(); err != nil {
				var verrs ValidationErrors
				if errors.As(err, &verrs) {
					writeInvalidBody(w, verrs.Error())
					return
				}
				WriteError(w, http.StatusInternalServerError, "unknown error occurred while validating request body")
				return
			}

			r.Body = io.NopCloser(bytes.NewReader(raw))
			ctx := context.WithValue(r.Context(), bodyKey{}, body)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// BodyFromContext returns the body decoded by ValidateBody.
func BodyFromContext[T any](ctx context.Context) (*T, bool) {
	v, ok := ctx.Value(bodyKey{}).(*T)
	return v, ok
}

func writeInvalidBody(w http.ResponseWriter, details string) {
	WriteErrorDetails(w, http.StatusBadRequest, "invalid request body", details)
}
