package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/shaiso/staralign/internal/domain"
	"github.com/shaiso/staralign/internal/repo"
	"github.com/shaiso/staralign/internal/telemetry"
)

// ListRuns возвращает список runs с фильтрацией.
// GET /api/v1/runs?state=...&limit=...&offset=...
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	filter := repo.RunFilter{
		State:  domain.RunState(r.URL.Query().Get("state")),
		Limit:  parseIntParam(r.URL.Query().Get("limit"), 50),
		Offset: parseIntParam(r.URL.Query().Get("offset"), 0),
	}

	runs, err := h.runs.List(r.Context(), filter)
	if HandleRepoError(w, telemetry.FromContext(r.Context()), err, "") {
		return
	}

	result := make([]RunResponse, len(runs))
	for i, run := range runs {
		result[i] = RunFromDomain(run)
	}

	List(w, result, len(result))
}

// GetRun возвращает run по ID.
// GET /api/v1/runs/{id}
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	run, ok := h.loadRun(w, r)
	if !ok {
		return
	}

	Success(w, RunFromDomain(*run))
}

// ListRunStages возвращает результаты стадий run.
// GET /api/v1/runs/{id}/stages
func (h *Handler) ListRunStages(w http.ResponseWriter, r *http.Request) {
	run, ok := h.loadRun(w, r)
	if !ok {
		return
	}

	result := make([]StageResponse, len(run.Manifest.Stages))
	for i, s := range run.Manifest.Stages {
		result[i] = StageFromDomain(s)
	}

	List(w, result, len(result))
}

// SubmitRun ставит run в очередь runs.requested.
// POST /api/v1/runs
func (h *Handler) SubmitRun(w http.ResponseWriter, r *http.Request) {
	var req SubmitRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	input := req.Input()
	if HandleRepoError(w, telemetry.FromContext(r.Context()), input.Validate(), "") {
		return
	}

	id := uuid.New()
	if req.RunID != nil && *req.RunID != uuid.Nil {
		id = *req.RunID
	}

	if err := h.submitter.PublishRunRequested(r.Context(), id, input); err != nil {
		telemetry.FromContext(r.Context()).Warn("failed to publish run.requested", "run_id", id, "error", err)
		Unavailable(w, "run queue unavailable")
		return
	}

	Accepted(w, SubmitRunResponse{RunID: id, State: string(domain.RunStatePending)})
}

// loadRun парсит {id} и загружает run. false — ответ уже отправлен.
func (h *Handler) loadRun(w http.ResponseWriter, r *http.Request) (*domain.Run, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid run id")
		return nil, false
	}

	run, err := h.runs.GetByID(r.Context(), id)
	if HandleRepoError(w, telemetry.FromContext(r.Context()), err, "run not found") {
		return nil, false
	}
	return run, true
}

// parseIntParam парсит query-параметр с дефолтным значением.
func parseIntParam(s string, defaultVal int) int {
	if s == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return defaultVal
	}
	return n
}
