package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/rs/cors"

	"github.com/fikir-app/fikir-backend/internal/data"
	"github.com/fikir-app/fikir-backend/internal/monitor"
	"github.com/fikir-app/fikir-backend/internal/serve/auth"
	"github.com/fikir-app/fikir-backend/internal/serve/httperror"
	"github.com/fikir-app/fikir-backend/internal/support/log"
	"github.com/fikir-app/fikir-backend/internal/utils"
)

// RecoverHandler is a middleware that recovers from panics and logs the error.
func RecoverHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			err, ok := r.(error)
			if !ok {
				err = fmt.Errorf("panic: %v", r)
			}

			// No need to recover when the client has disconnected:
			if errors.Is(err, http.ErrAbortHandler) {
				panic(err)
			}

			ctx := req.Context()
			log.Ctx(ctx).WithStack(err).Error(err)
			httperror.InternalError(ctx, "", err, nil).Render(rw)
		}()

		next.ServeHTTP(rw, req)
	})
}

// MetricsRequestHandler is a middleware that monitors http requests, and export the data
// to the metrics server
func MetricsRequestHandler(monitorService monitor.MonitorServiceInterface) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
			mw := middleware.NewWrapResponseWriter(rw, req.ProtoMajor)
			then := time.Now()
			next.ServeHTTP(mw, req)

			duration := time.Since(then)

			labels := monitor.HttpRequestLabels{
				Status: fmt.Sprintf("%d", mw.Status()),
				Route:  utils.GetRoutePattern(req),
				Method: req.Method,
			}

			err := monitorService.MonitorHttpRequestDuration(duration, labels)
			if err != nil {
				log.Ctx(req.Context()).Errorf("Error trying to monitor request time: %s", err)
			}
		})
	}
}

// AuthenticateMiddleware validates the Authorization bearer token and resolves
// it into a Principal before the handler runs. Inactive or deleted users are
// rejected even when their token is still cryptographically valid.
func AuthenticateMiddleware(jwtManager auth.JWTManagerInterface, principalProvider auth.PrincipalProvider) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
			authHeader := req.Header.Get("Authorization")
			if authHeader == "" {
				httperror.Unauthorized("", nil, nil).Render(rw)
				return
			}

			authHeaderParts := strings.Split(authHeader, " ")
			if len(authHeaderParts) != 2 || !strings.EqualFold(authHeaderParts[0], "Bearer") {
				httperror.Unauthorized("", nil, nil).Render(rw)
				return
			}

			ctx := req.Context()
			userID, err := jwtManager.SubjectFromToken(ctx, authHeaderParts[1])
			if err != nil {
				if !errors.Is(err, auth.ErrInvalidToken) {
					log.Ctx(ctx).Errorf("validating auth token: %v", err)
				}
				httperror.Unauthorized("", nil, nil).Render(rw)
				return
			}

			principal, err := principalProvider.GetPrincipal(ctx, userID)
			if err != nil {
				if !errors.Is(err, data.ErrRecordNotFound) && !errors.Is(err, auth.ErrUserInactive) {
					log.Ctx(ctx).Errorf("resolving principal for user %s: %v", userID, err)
				}
				httperror.Unauthorized("", nil, nil).Render(rw)
				return
			}

			ctx = auth.WithPrincipal(ctx, principal)

			// Add the user ID to the request context logger
			ctx = log.Set(ctx, log.Ctx(ctx).WithField("user_id", principal.UserID))

			next.ServeHTTP(rw, req.WithContext(ctx))
		})
	}
}

// EnsureAdminMiddleware gates admin-only routes. It must run after
// AuthenticateMiddleware.
func EnsureAdminMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		ctx := req.Context()

		principal, err := auth.PrincipalFromContext(ctx)
		if err != nil {
			httperror.Unauthorized("", err, nil).Render(rw)
			return
		}

		if !principal.IsAdmin {
			httperror.Forbidden("", nil, nil).Render(rw)
			return
		}

		next.ServeHTTP(rw, req)
	})
}

func CorsMiddleware(corsAllowedOrigins []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		cors := cors.New(cors.Options{
			AllowedOrigins: corsAllowedOrigins,
			AllowedHeaders: []string{"*"},
			AllowedMethods: []string{"GET", "PUT", "POST", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		})

		return cors.Handler(next)
	}
}

// RateLimitByUserMiddleware limits requests per authenticated user. It must
// run after AuthenticateMiddleware; unauthenticated requests fall back to the
// remote address so the limiter still holds in misconfigured route groups.
func RateLimitByUserMiddleware(requestsPerMinute int) func(http.Handler) http.Handler {
	return httprate.Limit(
		requestsPerMinute,
		time.Minute,
		httprate.WithKeyFuncs(func(req *http.Request) (string, error) {
			if principal, err := auth.PrincipalFromContext(req.Context()); err == nil {
				return principal.UserID, nil
			}
			return req.RemoteAddr, nil
		}),
		httprate.WithLimitHandler(func(rw http.ResponseWriter, req *http.Request) {
			httperror.TooManyRequests("", nil, nil).Render(rw)
		}),
	)
}
