/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package keylimit

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/acronis/go-keysem/log"
	"github.com/acronis/go-keysem/restapi"
)

// Log fields for the middleware.
const (
	LogFieldKey   = "key_limit_key"
	LogFieldLimit = "key_limit_limit"
)

// ErrCodeRequestCanceled is the error code that is used in a response body
// if the request was canceled while it was waiting for a permit.
const ErrCodeRequestCanceled = "requestCanceledWhileWaiting"

// MiddlewareParams contains data that relates to the per-key limiting of a request
// and could be used for handling an occurred error.
type MiddlewareParams struct {
	ErrDomain string
	Key       string
	// Limit is the capacity of the semaphore the request waits on. Zero if the key could not be obtained.
	Limit     uint
}

// GetKeyFunc is a function that is called for getting the limiting key of the request.
// If bypass is true, the request is served without limiting.
type GetKeyFunc func(r *http.Request) (key string, bypass bool, err error)

// OnErrorFunc is a function that is called when the request cannot be served:
// the key cannot be extracted or the request context is done before a permit is acquired.
type OnErrorFunc func(rw http.ResponseWriter, r *http.Request, params MiddlewareParams, err error, logger log.FieldLogger)

// MiddlewareOpts represents options for the middleware that limits concurrent HTTP requests per key.
type MiddlewareOpts struct {
	// GetKey is required.
	GetKey GetKeyFunc

	// Logger is used for logging errors. If nil, nothing is logged.
	Logger log.FieldLogger

	OnError OnErrorFunc
}

type handler struct {
	limiter   *Limiter
	next      http.Handler
	getKey    GetKeyFunc
	errDomain string
	logger    log.FieldLogger
	onError   OnErrorFunc
}

// Middleware is a middleware that serves at most Limiter.LimitFor(key) requests with the same key at a time.
// Other requests with that key wait for a permit as long as their context is alive.
func Middleware(limiter *Limiter, errDomain string, opts MiddlewareOpts) (func(next http.Handler) http.Handler, error) {
	if limiter == nil {
		return nil, fmt.Errorf("limiter is required")
	}
	if opts.GetKey == nil {
		return nil, fmt.Errorf("GetKey function is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.NewDisabledLogger()
	}
	onError := opts.OnError
	if onError == nil {
		onError = DefaultOnError
	}
	return func(next http.Handler) http.Handler {
		return &handler{
			limiter:   limiter,
			next:      next,
			getKey:    opts.GetKey,
			errDomain: errDomain,
			logger:    logger,
			onError:   onError,
		}
	}, nil
}

// MustMiddleware is a version of Middleware that panics on error.
func MustMiddleware(limiter *Limiter, errDomain string, opts MiddlewareOpts) func(next http.Handler) http.Handler {
	mw, err := Middleware(limiter, errDomain, opts)
	if err != nil {
		panic(err)
	}
	return mw
}

func (h *handler) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	key, bypass, err := h.getKey(r)
	if err != nil {
		h.onError(rw, r, MiddlewareParams{ErrDomain: h.errDomain, Key: key},
			fmt.Errorf("get key for key limit: %w", err), h.logger)
		return
	}
	if bypass {
		h.next.ServeHTTP(rw, r)
		return
	}

	sem := h.limiter.Semaphore(key)
	params := MiddlewareParams{ErrDomain: h.errDomain, Key: key, Limit: sem.Capacity()}
	permit, err := sem.Acquire(r.Context())
	if err != nil {
		h.onError(rw, r, params, fmt.Errorf("acquire permit for key %q: %w", key, err), h.logger)
		return
	}
	defer permit.Release()
	h.next.ServeHTTP(rw, r)
}

// DefaultOnError sends the restapi JSON error.
// 503 is used when the request context ends while waiting for a permit, 500 otherwise.
func DefaultOnError(rw http.ResponseWriter, r *http.Request, params MiddlewareParams, err error, logger log.FieldLogger) {
	if logger != nil {
		logger = logger.With(log.String(LogFieldKey, params.Key), log.Uint64(LogFieldLimit, uint64(params.Limit)))
	}
	if isContextError(err) {
		if logger != nil {
			logger.Warn("request is canceled while waiting for a key permit", log.Error(err))
		}
		apiErr := restapi.NewError(params.ErrDomain, ErrCodeRequestCanceled, "Request was canceled while waiting for the key.")
		restapi.RespondError(rw, http.StatusServiceUnavailable, apiErr.AddContext("key", params.Key), logger)
		return
	}
	if logger != nil {
		logger.Error(err.Error())
	}
	restapi.RespondInternalError(rw, params.ErrDomain, logger)
}

func isContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
