package middleware

import (
	"context"
	"crypto/subtle"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/akolanti/DocQA/internal/adapter/utils"
	"github.com/akolanti/DocQA/internal/config"
	"github.com/akolanti/DocQA/internal/handlers"
)

func injectTrace(re requestResponseStruct) requestResponseStruct {
	req := re.req
	if req == nil {
		re.badRequest = failureStruct{
			isBadRequest: true,
			httpCode:     http.StatusBadRequest,
			errorCode:    "BAD_REQUEST",
			errorMessage: "request is empty",
		}
		return re
	}
	trace := strings.TrimSpace(req.Header.Get(TraceHeader))
	if trace == "" || len(trace) > maxTraceLength {
		trace = utils.GetNewUUID()
	}
	re.logger = re.logger.With(config.TRACE_ID_KEY, trace)
	req.Header.Set(TraceHeader, trace)
	re.writer.Header().Set(TraceHeader, trace)
	re.req = req.WithContext(context.WithValue(req.Context(), config.TRACE_ID_KEY, trace))
	return re
}

func authenticate(re requestResponseStruct) requestResponseStruct {
	if settings.NoAuthBypass {
		return re
	}
	token, ok := bearerToken(re.req.Header.Get("Authorization"))
	if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(settings.AuthToken)) != 1 {
		re.logger.Warn("Rejected credentials", "header_present", re.req.Header.Get("Authorization") != "")
		re.badRequest = failureStruct{
			isBadRequest: true,
			httpCode:     http.StatusUnauthorized,
			errorCode:    "UNAUTHORIZED",
			errorMessage: "Unauthorized",
		}
	}
	return re
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func rateLimiter(re requestResponseStruct) requestResponseStruct {
	ip, _, err := net.SplitHostPort(re.req.RemoteAddr)
	if err != nil {
		ip = re.req.RemoteAddr
	}

	limiter := limiterFor(re.req).GetLimiter(ip)
	if !limiter.Allow() {
		re.logger.Warn("Too many requests", "ip", ip, "path", re.req.URL.Path)
		re.badRequest = failureStruct{
			isBadRequest: true,
			httpCode:     http.StatusTooManyRequests,
			errorCode:    "RATE_LIMITED",
			errorMessage: "Rate limit exceeded",
			retryAfter:   retryAfterSeconds(limiter.Limit()),
		}
	}
	return re
}

func handleBadRequest(re requestResponseStruct) bool {
	if !re.badRequest.isBadRequest {
		return true
	}
	remote := ""
	if re.req != nil {
		remote = re.req.RemoteAddr
	}
	re.logger.Warn("Request rejected", "httpCode", re.badRequest.httpCode, "errorCode", re.badRequest.errorCode, "IP", remote)
	if re.badRequest.retryAfter > 0 {
		re.writer.Header().Set("Retry-After", strconv.Itoa(re.badRequest.retryAfter))
	}
	handlers.WriteRejection(re.writer, re.badRequest.httpCode, re.badRequest.errorCode, re.badRequest.errorMessage, re.badRequest.retryAfter > 0)
	return false
}
