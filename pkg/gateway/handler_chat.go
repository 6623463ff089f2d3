package gateway

import (
	"encoding/json"
	"fmt"
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

const generateAssistantResponsePath = "/generateAssistantResponse"

// handleChatCompletions implements POST /v1/chat/completions (spec.md
// §6.1 OpenAI dialect), mirroring the teacher's single-provider proxy
// handler (pkg/backend/server.go's routeProviderRequests) generalized
// onto the translate → upstream → streamer pipeline.
func (d *Dependencies) handleChatCompletions(w http.ResponseWriter, r *http.Request) {
	var req dialect.ChatCompletionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeOpenAIError(w, gwerrors.Wrap(gwerrors.BadRequest, err, "invalid JSON body"), false)
		return
	}
	if req.Model == "" || len(req.Messages) == 0 {
		writeOpenAIError(w, gwerrors.New(gwerrors.BadRequest, "model and messages are required"), req.Stream)
		return
	}

	rk, _ := middleware.GetResolvedKey(r.Context())
	rc, err := d.resolveCredential(r.Context(), rk)
	if err != nil {
		writeOpenAIError(w, err, req.Stream)
		return
	}

	messages := translator.FromOpenAI(req)
	tools := translator.ToolsFromOpenAI(req.Tools)

	tr := translator.New(translator.Options{ToolDescriptionMaxLength: d.Config.ToolDescriptionMaxLength})
	upstreamReq := tr.Translate(messages, tools, req.ToolChoiceValue(), req.Model, rc.ProfileArn)

	body, err := json.Marshal(upstreamReq)
	if err != nil {
		writeOpenAIError(w, gwerrors.Wrap(gwerrors.ProtocolViolation, err, "encoding upstream request"), req.Stream)
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
		writeOpenAIError(w, err, req.Stream)
		return
	}
	defer resp.Body.Close()

	_, systemPrompt := translator.ExtractSystemPrompt(messages)
	account := streamer.RequestAccounting{Messages: messages, Tools: tools, SystemPrompt: systemPrompt}
	s := streamer.OpenAI{ID: "chatcmpl-" + fingerprint.Machine()[:8], Model: req.Model}

	if req.Stream {
		writer := sse.New(w)
		err = s.Stream(writer, resp.Body, account, false)
	} else {
		var out dialect.ChatCompletionResponse
		out, err = s.NonStream(resp.Body, account, false)
		if err == nil {
			writeJSON(w, http.StatusOK, out)
		}
	}

	d.recordOutcome(r.Context(), rc, err)
	if err != nil && !req.Stream {
		writeOpenAIError(w, err, false)
	}
}

// upstreamURL builds the generateAssistantResponse endpoint for the
// resolved region (spec.md §6.2), falling back to the configured default
// region when a credential source has none of its own.
func (d *Dependencies) upstreamURL(region string) string {
	if region == "" {
		region = d.Config.Region
	}
	return fmt.Sprintf("https://codewhisperer.%s.amazonaws.com%s", region, generateAssistantResponsePath)
}

// upstreamHeaders builds the fixed headers every upstream call carries
// beyond Authorization/Content-Type (spec.md §4.1/§4.3: "a machine
// fingerprint").
func (d *Dependencies) upstreamHeaders() http.Header {
	h := http.Header{}
	h.Set("User-Agent", fingerprint.UserAgent())
	return h
}

