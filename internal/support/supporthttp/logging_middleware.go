package supporthttp

import (
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/fikir-app/fikir-backend/internal/support/log"
)

// LoggingMiddleware logs the start and end of each request and stashes a
// request-scoped logger (tagged with the chi request id) into the context so
// downstream code can pick it up with log.Ctx.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		mw := chimiddleware.NewWrapResponseWriter(rw, req.ProtoMajor)

		logger := log.Ctx(req.Context()).WithField("req", chimiddleware.GetReqID(req.Context()))
		ctx := log.Set(req.Context(), logger)
		req = req.WithContext(ctx)

		logStartOfRequest(req)

		then := time.Now()
		next.ServeHTTP(mw, req)
		duration := time.Since(then)

		logEndOfRequest(req, duration, mw)
	})
}

func logStartOfRequest(req *http.Request) {
	log.Ctx(req.Context()).WithFields(log.F{
		"subsys": "http",
		"path":   req.URL.String(),
		"method": req.Method,
		"ip":     req.RemoteAddr,
		"host":   req.Host,
	}).Info("starting request")
}

func logEndOfRequest(req *http.Request, duration time.Duration, mw chimiddleware.WrapResponseWriter) {
	log.Ctx(req.Context()).WithFields(log.F{
		"subsys":   "http",
		"path":     req.URL.String(),
		"method":   req.Method,
		"status":   mw.Status(),
		"bytes":    mw.BytesWritten(),
		"duration": duration,
	}).Info("finished request")
}
