// Package middleware adapts a provider.Provider into net/http middleware.
//
// The middleware buffers the request body once, verifies it, and hands the
// exact bytes to the next handler through both r.Body and the request
// context. Rejected deliveries get an RFC 9457 problem document.
package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/mattjoyce/hookguard/internal/log"
	"github.com/mattjoyce/hookguard/internal/problem"
	"github.com/mattjoyce/hookguard/internal/provider"
)

// DefaultMaxBodySize caps buffered bodies when Options.MaxBodySize is zero.
const DefaultMaxBodySize int64 = 1 << 20

// ErrorHandler writes the response for a rejected delivery.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, doc problem.Document)

// Options configures Verify.
type Options struct {
	// Provider verifies each delivery. Required.
	Provider provider.Provider

	// OnError replaces the default problem+json response.
	OnError ErrorHandler

	// MaxBodySize bounds the buffered body in bytes. Zero means
	// DefaultMaxBodySize.
	MaxBodySize int64

	// URL returns the URL the sender signed. Only Twilio uses it. Defaults
	// to RequestURL.
	URL func(r *http.Request) string

	// Logger receives one WARN line per rejected delivery, with the
	// provider field set.
	Logger *slog.Logger
}

type contextKey int

const (
	rawBodyKey contextKey = iota
	providerNameKey
	payloadKey
)

// Verify returns middleware that rejects deliveries failing opts.Provider.
// It panics when opts.Provider is nil.
func Verify(opts Options) func(http.Handler) http.Handler {
	if opts.Provider == nil {
		panic("middleware: Verify requires a Provider")
	}
	limit := opts.MaxBodySize
	if limit <= 0 {
		limit = DefaultMaxBodySize
	}
	urlFn := opts.URL
	if urlFn == nil {
		urlFn = RequestURL
	}
	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With(slog.String("provider", opts.Provider.Name()))
	} else {
		logger = log.WithProvider(opts.Provider.Name()).With(slog.String("component", "verify"))
	}
	reject := opts.OnError
	if reject == nil {
		reject = func(w http.ResponseWriter, _ *http.Request, doc problem.Document) {
			problem.Write(w, doc)
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body == nil {
				r.Body = http.NoBody
			}
			body, err := io.ReadAll(io.LimitReader(r.Body, limit+1))
			if err != nil {
				logger.Warn("webhook body read failed",
					"path", r.URL.Path,
					"request_id", chimw.GetReqID(r.Context()),
					"error", err,
				)
				reject(w, r, problem.BodyReadFailed("could not read the request body"))
				return
			}
			if int64(len(body)) > limit {
				reject(w, r, problem.BodyTooLarge(fmt.Sprintf("request body exceeds %d bytes", limit)))
				return
			}

			res := opts.Provider.Verify(&provider.Delivery{
				RawBody: body,
				Header:  r.Header,
				URL:     urlFn(r),
			})
			if !res.Valid {
				reason := res.Reason
				if reason == "" {
					reason = provider.ReasonInvalidSignature
				}
				logger.Warn("webhook verification failed",
					"path", r.URL.Path,
					"reason", reason,
					"request_id", chimw.GetReqID(r.Context()),
				)
				reject(w, r, problem.FromReason(reason, reason.String()))
				return
			}

			r.Body = io.NopCloser(bytes.NewReader(body))
			ctx := context.WithValue(r.Context(), rawBodyKey, body)
			ctx = context.WithValue(ctx, providerNameKey, acceptedBy(opts.Provider, r.Header))
			ctx = context.WithValue(ctx, payloadKey, decodePayload(body))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// resolver is implemented by providers that delegate, such as
// provider.AutoProvider.
type resolver interface {
	Resolve(h http.Header) (provider.Provider, bool)
}

// acceptedBy names the provider that actually verified the delivery.
func acceptedBy(p provider.Provider, h http.Header) string {
	if r, ok := p.(resolver); ok {
		if inner, ok := r.Resolve(h); ok {
			return inner.Name()
		}
	}
	return p.Name()
}

// decodePayload returns the parsed JSON body, or nil when it is not JSON.
func decodePayload(body []byte) any {
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return nil
	}
	return v
}

// RequestURL reconstructs the absolute URL of r as the sender saw it,
// honouring X-Forwarded-Proto from a terminating proxy.
func RequestURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	return scheme + "://" + r.Host + r.URL.RequestURI()
}

// RawBody returns the verified body bytes.
func RawBody(ctx context.Context) ([]byte, bool) {
	b, ok := ctx.Value(rawBodyKey).([]byte)
	return b, ok
}

// ProviderName returns the name of the provider that accepted the delivery.
func ProviderName(ctx context.Context) (string, bool) {
	name, ok := ctx.Value(providerNameKey).(string)
	return name, ok
}

// Payload returns the decoded JSON body. It is nil for non-JSON bodies.
func Payload(ctx context.Context) any {
	return ctx.Value(payloadKey)
}
