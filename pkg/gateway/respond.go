package gateway

import (
	"encoding/json"
	"net/http"

	"github.com/kiro-gateway/kiro-gateway/pkg/dialect"
	"github.com/kiro-gateway/kiro-gateway/pkg/gwerrors"
)

// writeJSON encodes v as the response body with the given status.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// statusAndMessage maps any error onto an HTTP status and user-facing
// message per spec.md §7's propagation policy: a *gwerrors.Error carries
// its own Kind (and, for AuthRejected/UpstreamTransient, an upstream
// status worth preserving); anything else is an unclassified internal
// error.
func statusAndMessage(err error, streaming bool) (int, string) {
	kind, ok := gwerrors.Of(err)
	if !ok {
		return http.StatusInternalServerError, "internal error"
	}
	return gwerrors.HTTPStatus(kind, streaming), err.Error()
}

// writeOpenAIError writes the OpenAI-dialect error envelope (spec.md
// §6.1).
func writeOpenAIError(w http.ResponseWriter, err error, streaming bool) {
	status, msg := statusAndMessage(err, streaming)
	writeJSON(w, status, dialect.NewErrorEnvelope(msg, status))
}

// writeAnthropicError writes the Anthropic-dialect error envelope
// (spec.md §6.1).
func writeAnthropicError(w http.ResponseWriter, err error, streaming bool) {
	status, msg := statusAndMessage(err, streaming)
	writeJSON(w, status, dialect.NewAnthropicErrorEnvelope(msg))
}
