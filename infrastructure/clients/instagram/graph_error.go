package instagram

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"instagram-feed/domain/dto"
	"instagram-feed/domain/model"
)

// Graph API error codes, see the platform error reference.
const (
	codeUnknown       = 1
	codeServiceDown   = 2
	codeAppRateLimit  = 4
	codeSession       = 102
	codeUserRateLimit = 17
	codePageRateLimit = 32
	codeInvalidToken  = 190
	codeCallRateLimit = 613
)

func isThrottleCode(code int) bool {
	switch code {
	case codeAppRateLimit, codeUserRateLimit, codePageRateLimit, codeCallRateLimit:
		return true
	}
	return false
}

func parseGraphError(body []byte) *dto.GraphError {
	var env dto.GraphErrorEnvelope
	if err := json.Unmarshal(body, &env); err != nil || env.Error == nil {
		return nil
	}
	return env.Error
}

// parseRetryAfter accepts delta-seconds or an HTTP-date.
func parseRetryAfter(value string, now time.Time) time.Duration {
	if value == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	if t, err := http.ParseTime(value); err == nil {
		if d := t.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}

// classifyFetch maps a failed media listing response to a FetchError.
func classifyFetch(resp *rawResponse, now time.Time) *model.FetchError {
	fe := &model.FetchError{StatusCode: resp.StatusCode}
	ge := parseGraphError(resp.Body)
	if ge != nil {
		fe.Message = ge.Message
	}
	switch {
	case ge != nil && (ge.Code == codeInvalidToken || ge.Code == codeSession):
		fe.Kind = model.FetchUnauthorized
	case ge != nil && isThrottleCode(ge.Code), resp.StatusCode == http.StatusTooManyRequests:
		fe.Kind = model.FetchRateLimited
		fe.RetryAfter = parseRetryAfter(resp.Header.Get("Retry-After"), now)
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		fe.Kind = model.FetchUnauthorized
	case ge != nil && (ge.IsTransient || ge.Code == codeUnknown || ge.Code == codeServiceDown),
		resp.StatusCode >= http.StatusInternalServerError:
		fe.Kind = model.FetchUnavailable
	default:
		fe.Kind = model.FetchMalformed
		if fe.Message == "" {
			fe.Message = "unexpected response status"
		}
	}
	return fe
}

// classifyAuth maps a failed token endpoint response. Provider-side trouble is
// ProviderUnavailable; any other rejection becomes rejectKind.
func classifyAuth(statusCode int, body []byte, rejectKind model.AuthErrorKind, cause error) *model.AuthError {
	ae := &model.AuthError{Kind: rejectKind, StatusCode: statusCode, Err: cause}
	ge := parseGraphError(body)
	if ge != nil {
		ae.Message = ge.Message
	} else if msg := instagramErrorMessage(body); msg != "" {
		ae.Message = msg
	}
	switch {
	case statusCode == 0,
		statusCode >= http.StatusInternalServerError,
		statusCode == http.StatusTooManyRequests,
		ge != nil && (ge.IsTransient || isThrottleCode(ge.Code) || ge.Code == codeServiceDown):
		ae.Kind = model.AuthProviderUnavailable
	}
	return ae
}

// instagramErrorMessage reads the flat error shape used by api.instagram.com.
func instagramErrorMessage(body []byte) string {
	var flat struct {
		ErrorType    string `json:"error_type"`
		ErrorMessage string `json:"error_message"`
	}
	if err := json.Unmarshal(body, &flat); err != nil {
		return ""
	}
	return flat.ErrorMessage
}
