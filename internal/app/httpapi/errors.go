package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/starvault/casebot/pkg/apierr"
)

// errorBody is §7's JSON error shape: {status, error, type?, requestId,
// timestamp}. error carries the short semantic reason (e.g. "forbidden",
// "rate_limited", "invalid update json"); type carries the antifraud-deny
// subclassification ("velocity" vs "rate_limit") when present.
type errorBody struct {
	Status    int    `json:"status"`
	Error     string `json:"error"`
	Type      string `json:"type,omitempty"`
	RequestID string `json:"requestId"`
	Timestamp string `json:"timestamp"`
}

// writeError renders err as the taxonomy's JSON body, defaulting unknown
// errors to an Internal 500 without leaking their message.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	svcErr, ok := apierr.As(err)
	if !ok {
		svcErr = apierr.InternalError(err)
	}

	body := errorBody{
		Status:    svcErr.HTTPStatus,
		Error:     svcErr.Message,
		Type:      svcErr.Details["type"],
		RequestID: requestIDFrom(r.Context()),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if svcErr.Category == apierr.Internal {
		body.Error = "internal error"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(svcErr.HTTPStatus)
	_ = json.NewEncoder(w).Encode(body)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
