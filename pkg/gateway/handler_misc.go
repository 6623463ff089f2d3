package gateway

import (
	"net/http"
	"time"
)

// knownModels is the static known-models catalog GET /v1/models returns
// (spec.md §6.1: "returns the static known-models catalog"), covering the
// model family slow_model_patterns matches against (spec.md §4.3's
// "Opus variants" example).
var knownModels = []string{
	"claude-sonnet-4-5",
	"claude-opus-4-1",
	"claude-haiku-4-5",
	"claude-3-7-sonnet",
	"claude-3-5-haiku",
}

type modelListEntry struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	OwnedBy string `json:"owned_by"`
}

type modelListResponse struct {
	Object string           `json:"object"`
	Data   []modelListEntry `json:"data"`
}

// handleModels implements GET /v1/models.
func (d *Dependencies) handleModels(w http.ResponseWriter, r *http.Request) {
	entries := make([]modelListEntry, 0, len(knownModels))
	for _, id := range knownModels {
		entries = append(entries, modelListEntry{ID: id, Object: "model", OwnedBy: "kiro-gateway"})
	}
	writeJSON(w, http.StatusOK, modelListResponse{Object: "list", Data: entries})
}

// handleHealthz implements GET /healthz: a plain liveness probe, no auth
// or upstream dependency check.
func (d *Dependencies) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// buildVersion is set at build time via -ldflags; "dev" otherwise.
var buildVersion = "dev"

// handleVersion implements GET /version.
func (d *Dependencies) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"version": buildVersion,
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}
