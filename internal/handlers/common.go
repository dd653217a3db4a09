package handlers

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/sekolahpay/canteen-ledger/internal/services"
	xhttp "github.com/sekolahpay/canteen-ledger/pkg/http"
	"github.com/sekolahpay/canteen-ledger/pkg/prom"
)

func readJSON(ctx *xhttp.RequestCtx, dst any) error {
	body := ctx.PostBody()
	return json.Unmarshal(body, dst)
}

func writeJSON(ctx *xhttp.RequestCtx, status int, v any) {
	b, _ := json.Marshal(v)
	ctx.Response.Header.Set("Content-Type", "application/json; charset=utf-8")
	ctx.Response.SetStatusCode(status)
	ctx.Response.SetBodyRaw(b)
}

func writeError(ctx *xhttp.RequestCtx, status int, msg string) {
	writeJSON(ctx, status, map[string]string{"error": msg})
}

// writeServiceError translates the error taxonomy to HTTP statuses:
// 404 not-found, 403 authorization, 409 conflict, 422 business-rule
// violation, 503 busy, 500 unexpected. The machine-readable kind rides
// along in the body.
func writeServiceError(ctx *xhttp.RequestCtx, err error) {
	kind := services.KindOf(err)

	var status int
	switch kind {
	case services.KindNotFound:
		status = xhttp.StatusNotFound
	case services.KindAuthorizationRequired:
		status = xhttp.StatusForbidden
	case services.KindConflict:
		status = xhttp.StatusConflict
	case services.KindInactive, services.KindInsufficientFunds:
		status = xhttp.StatusUnprocessableEntity
	case services.KindBusy:
		status = xhttp.StatusServiceUnavailable
	default:
		status = xhttp.StatusInternalServerError
	}

	msg := err.Error()
	if status == xhttp.StatusInternalServerError {
		// Internals stay in the logs, not on the wire.
		msg = "internal error"
	}

	writeJSON(ctx, status, map[string]string{
		"error": msg,
		"kind":  kind.String(),
	})
}

func observeOperation(operation string, start time.Time) {
	prom.ObserveOperationDuration(operation, time.Since(start).Seconds())
}

func paramInt64(ctx *xhttp.RequestCtx, name string) (int64, error) {
	v, _ := ctx.UserValue(name).(string)
	return strconv.ParseInt(v, 10, 64)
}

func query(ctx *xhttp.RequestCtx, key string) string {
	return string(ctx.QueryArgs().Peek(key))
}

func parseTime(s string) (time.Time, error) {
	// Accept RFC3339 or YYYY-MM-DD
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}
