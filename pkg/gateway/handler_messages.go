package gateway

import (
	"encoding/json"
	"net/http"

	"github.com/kiro-gateway/kiro-gateway/pkg/dialect"
	"github.com/kiro-gateway/kiro-gateway/pkg/fingerprint"
	"github.com/kiro-gateway/kiro-gateway/pkg/gateway/middleware"
	"github.com/kiro-gateway/kiro-gateway/pkg/gwerrors"
	"github.com/kiro-gateway/kiro-gateway/pkg/sse"
	"github.com/kiro-gateway/kiro-gateway/pkg/streamer"
	"github.com/kiro-gateway/kiro-gateway/pkg/translator"
	"github.com/kiro-gateway/kiro-gateway/pkg/upstream"
)

// handleMessages implements POST /v1/messages (spec.md §6.1 Anthropic
// dialect), the same translate → upstream → streamer pipeline as
// handleChatCompletions with the Anthropic-shaped request/response and
// x-api-key-preferred auth.
func (d *Dependencies) handleMessages(w http.ResponseWriter, r *http.Request) {
	var req dialect.MessagesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAnthropicError(w, gwerrors.Wrap(gwerrors.BadRequest, err, "invalid JSON body"), false)
		return
	}
	if req.Model == "" || len(req.Messages) == 0 || req.MaxTokens == 0 {
		writeAnthropicError(w, gwerrors.New(gwerrors.BadRequest, "model, messages, and max_tokens are required"), req.Stream)
		return
	}

	rk, _ := middleware.GetResolvedKey(r.Context())
	rc, err := d.resolveCredential(r.Context(), rk)
	if err != nil {
		writeAnthropicError(w, err, req.Stream)
		return
	}

	messages := translator.FromAnthropic(req)
	tools := translator.ToolsFromAnthropic(req.Tools)

	tr := translator.New(translator.Options{ToolDescriptionMaxLength: d.Config.ToolDescriptionMaxLength})
	upstreamReq := tr.Translate(messages, tools, req.ToolChoiceValue(), req.Model, rc.ProfileArn)

	body, err := json.Marshal(upstreamReq)
	if err != nil {
		writeAnthropicError(w, gwerrors.Wrap(gwerrors.ProtocolViolation, err, "encoding upstream request"), req.Stream)
		return
	}

	resp, err := d.Upstream.RequestWithRetry(r.Context(), http.MethodPost, d.upstreamURL(rc.Region), body, upstream.Options{
		Stream:  req.Stream,
		Model:   req.Model,
		Tokens:  tokenSourceOf(rc),
		Headers: d.upstreamHeaders(),
	})
	if err != nil {
		d.recordOutcome(r.Context(), rc, err)
		writeAnthropicError(w, err, req.Stream)
		return
	}
	defer resp.Body.Close()

	account := streamer.RequestAccounting{
		Messages:        messages,
		Tools:           tools,
		SystemPrompt:    req.SystemPrompt(),
		ThinkingEnabled: req.ThinkingEnabled(),
	}
	s := streamer.Anthropic{ID: "msg_" + fingerprint.Machine()[:8], Model: req.Model}

	if req.Stream {
		writer := sse.New(w)
		err = s.Stream(writer, resp.Body, account, false)
	} else {
		var out dialect.MessagesResponse
		out, err = s.NonStream(resp.Body, account, false)
		if err == nil {
			writeJSON(w, http.StatusOK, out)
		}
	}

	d.recordOutcome(r.Context(), rc, err)
	if err != nil && !req.Stream {
		writeAnthropicError(w, err, false)
	}
}
