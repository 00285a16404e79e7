package middleware

import (
	"math"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"golang.org/x/time/rate"

	"github.com/akolanti/DocQA/internal/config"
	"github.com/akolanti/DocQA/internal/handlers"
	"github.com/akolanti/DocQA/internal/metrics"
	"github.com/akolanti/DocQA/pkg/logger_i"
)

const (
	TraceHeader    = "X-Trace-Id"
	maxTraceLength = 128
)

type requestResponseStruct struct {
	writer     http.ResponseWriter
	req        *http.Request
	badRequest failureStruct
	logger     *logger_i.Logger
}

type failureStruct struct {
	isBadRequest bool
	httpCode     int
	errorCode    string
	errorMessage string
	retryAfter   int
}

var settings config.ServerConfig

// Init sets the auth token, bypass and rate limit switches every wrapped handler checks.
func Init(cfg config.ServerConfig) {
	settings = cfg
}

var GetHandler = Wrap(handlers.GetHandler)

var ChatHandler = Wrap(handlers.ChatHandler)
var GetStatusHandler = Wrap(handlers.GetStatusHandler)
var PostIngestHandler = Wrap(handlers.PostIngestHandler)
var GetIndexHandler = Wrap(handlers.GetIndexHandler)
var GetHistoryHandler = Wrap(handlers.GetHistoryHandler)

func Wrap(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec := &metrics.HttpStatusRecorder{ResponseWriter: w, Status: 200} //metrics
		re := processRequest(requestResponseStruct{req: r, writer: rec})

		if handleBadRequest(re) {
			next(rec, re.req)
		}
		metrics.HttpRequestsTotal.WithLabelValues(routeLabel(r), strconv.Itoa(rec.Status)).Inc() //metrics
	}
}

// routeLabel keeps path parameters such as job ids out of the metric labels.
func routeLabel(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return r.URL.Path
}

func retryAfterSeconds(limit rate.Limit) int {
	if limit <= 0 || limit == rate.Inf {
		return 1
	}
	return max(1, int(math.Ceil(1/float64(limit))))
}

func processRequest(re requestResponseStruct) requestResponseStruct {
	re.logger = logger_i.NewLogger("middleware")
	re = injectTrace(re)
	if re.req != nil {
		re.logger.Debug("New request received", "method", re.req.Method, "path", re.req.URL.Path)
	}
	if re.badRequest.isBadRequest {
		return re
	}
	re = authenticate(re)
	if re.badRequest.isBadRequest {
		return re //stop if auth fails
	}
	if settings.RateLimit {
		re = rateLimiter(re)
	}
	return re
}
