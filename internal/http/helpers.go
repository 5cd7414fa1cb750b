package http

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"fairshare/internal/core"
	applog "fairshare/internal/log"
	"fairshare/internal/middleware/trace"
	"fairshare/internal/services"
	"fairshare/internal/sheets"
)

// parsePeriodParam reads key from the query. Missing means the period
// containing now.
func parsePeriodParam(query url.Values, key string, now time.Time) (core.Period, error) {
	v := strings.TrimSpace(query.Get(key))
	if v == "" {
		return core.PeriodOf(now.UTC()), nil
	}
	return core.ParsePeriod(v)
}

// sanitizeInput removes control characters except tab, newline and
// carriage return, and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

var (
	badRequestErrors = []error{
		core.ErrInvalidPeriod,
		core.ErrInvalidAmount,
		core.ErrNegativeAmount,
		core.ErrEmptyParty,
		core.ErrEmptyCouple,
		core.ErrSameParty,
		core.ErrInvalidPolicy,
		core.ErrNegativeRate,
		core.ErrDisplayNameLong,
		services.ErrPeriodMismatch,
		ErrBodyTooLarge,
	}
	notFoundErrors = []error{
		sheets.ErrSummaryNotFound,
		sheets.ErrCoupleNotFound,
		sheets.ErrPeriodNotClosed,
	}
	conflictErrors = []error{
		sheets.ErrPeriodAlreadyClosed,
		services.ErrPeriodNotEnded,
	}
)

func matchesAny(err error, targets []error) bool {
	for _, t := range targets {
		if errors.Is(err, t) {
			return true
		}
	}
	return false
}

// errorResponse maps a service error to a response. Internal errors are
// logged and never leak their message.
func errorResponse(r *http.Request, err error, op string) *ResponseBuilder {
	var resp *ResponseBuilder
	switch {
	case matchesAny(err, badRequestErrors):
		resp = BadRequestError(err.Error())
	case matchesAny(err, notFoundErrors):
		resp = NotFoundError(err.Error())
	case matchesAny(err, conflictErrors):
		resp = ConflictError(err.Error())
	default:
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed",
			applog.FieldOperation, op,
			applog.FieldError, err)
		resp = InternalServerError("internal error")
	}
	return resp.RequestID(trace.GetRequestID(r.Context()))
}

func badRequest(r *http.Request, message string) *ResponseBuilder {
	return BadRequestError(message).RequestID(trace.GetRequestID(r.Context()))
}
