package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/goliatone/go-dashboard-editor/components/dashboard"
	"github.com/goliatone/go-dashboard-editor/components/dashboard/commands"
	"github.com/goliatone/go-dashboard-editor/components/dashboard/embeddable"
	"github.com/goliatone/go-dashboard-editor/components/dashboard/queries"
)

// SavePayload is the JSON body of a save request.
type SavePayload struct {
	Dashboard       dashboard.SerializedDashboard `json:"dashboard"`
	Title           string                        `json:"title"`
	Description     string                        `json:"description"`
	CopyOnSave      bool                          `json:"copyOnSave"`
	TimeRestore     bool                          `json:"timeRestore"`
	TimeRange       *dashboard.TimeRange          `json:"timeRange,omitempty"`
	RefreshInterval *dashboard.RefreshInterval    `json:"refreshInterval,omitempty"`
	ActorID         string                        `json:"actor_id"`
	UserID          string                        `json:"user_id"`
	TenantID        string                        `json:"tenant_id"`
}

// Input converts the payload into a save command input.
func (p SavePayload) Input(result *dashboard.SaveResult) commands.SaveDashboardInput {
	return commands.SaveDashboardInput{
		Request: dashboard.SaveRequest{
			Dashboard:       p.Dashboard,
			Title:           p.Title,
			Description:     p.Description,
			CopyOnSave:      p.CopyOnSave,
			TimeRestore:     p.TimeRestore,
			TimeRange:       p.TimeRange,
			RefreshInterval: p.RefreshInterval,
		},
		ActorID:  p.ActorID,
		UserID:   p.UserID,
		TenantID: p.TenantID,
		Result:   result,
	}
}

// SessionSavePayload is the JSON body of a session save. The dashboard comes from
// the session; an empty title or description keeps the session's.
type SessionSavePayload struct {
	Title           string                     `json:"title"`
	Description     string                     `json:"description"`
	CopyOnSave      bool                       `json:"copyOnSave"`
	TimeRestore     bool                       `json:"timeRestore"`
	TimeRange       *dashboard.TimeRange       `json:"timeRange,omitempty"`
	RefreshInterval *dashboard.RefreshInterval `json:"refreshInterval,omitempty"`
	ActorID         string                     `json:"actor_id"`
	UserID          string                     `json:"user_id"`
	TenantID        string                     `json:"tenant_id"`
}

// Input converts the payload into a session save command input.
func (p SessionSavePayload) Input(sessionKey string, result *dashboard.SaveResult) commands.SaveSessionInput {
	return commands.SaveSessionInput{
		SessionKey: sessionKey,
		Request: dashboard.SaveRequest{
			Title:           p.Title,
			Description:     p.Description,
			CopyOnSave:      p.CopyOnSave,
			TimeRestore:     p.TimeRestore,
			TimeRange:       p.TimeRange,
			RefreshInterval: p.RefreshInterval,
		},
		ActorID:  p.ActorID,
		UserID:   p.UserID,
		TenantID: p.TenantID,
		Result:   result,
	}
}

// TransitionPayload is the JSON body of an app state transition.
type TransitionPayload struct {
	Prop  string `json:"prop"`
	Value any    `json:"value"`
}

// FindOptionsFromQuery reads search, page and per_page.
func FindOptionsFromQuery(get func(string) string) dashboard.FindOptions {
	opts := dashboard.FindOptions{Search: get("search")}
	opts.Page, _ = strconv.Atoi(get("page"))
	opts.PerPage, _ = strconv.Atoi(get("per_page"))
	return opts
}

// Handlers exposes net/http endpoints backed by an Executor.
type Handlers struct {
	API Executor
}

func (h *Handlers) HandleListDashboards(w http.ResponseWriter, r *http.Request) {
	items, err := h.API.List(r.Context(), FindOptionsFromQuery(r.URL.Query().Get))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "total": len(items)})
}

func (h *Handlers) HandleLoadDashboard(w http.ResponseWriter, r *http.Request, id string) {
	out, err := h.API.Load(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handlers) HandleSaveDashboard(w http.ResponseWriter, r *http.Request) {
	var payload SavePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var result dashboard.SaveResult
	if err := h.API.Save(r.Context(), payload.Input(&result)); err != nil {
		writeError(w, err)
		return
	}
	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	writeJSON(w, status, result)
}

func (h *Handlers) HandleSaveSession(w http.ResponseWriter, r *http.Request, sessionKey string) {
	var payload SessionSavePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var result dashboard.SaveResult
	if err := h.API.SaveSession(r.Context(), payload.Input(sessionKey, &result)); err != nil {
		writeError(w, err)
		return
	}
	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	writeJSON(w, status, result)
}

func (h *Handlers) HandleDeleteDashboard(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.API.Delete(r.Context(), commands.DeleteDashboardsInput{IDs: []string{id}}); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) HandleReloadDashboard(w http.ResponseWriter, r *http.Request, sessionKey string) {
	var token int64
	if err := h.API.Reload(r.Context(), commands.ReloadDashboardInput{SessionKey: sessionKey, Token: &token}); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"lastReloadRequestTime": token})
}

func (h *Handlers) HandleUpdateInput(w http.ResponseWriter, r *http.Request, sessionKey string) {
	var changes embeddable.InputChanges
	if err := json.NewDecoder(r.Body).Decode(&changes); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.API.UpdateInput(r.Context(), commands.UpdateInputInput{SessionKey: sessionKey, Changes: changes}); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) HandleTransition(w http.ResponseWriter, r *http.Request, sessionKey string) {
	var payload TransitionPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	input := commands.TransitionInput{SessionKey: sessionKey, Prop: payload.Prop, Value: payload.Value}
	if err := h.API.Transition(r.Context(), input); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) HandleEditable(w http.ResponseWriter, r *http.Request) {
	editable, err := h.API.Editable(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"editable": editable})
}

func (h *Handlers) HandleRenderDashboard(w http.ResponseWriter, r *http.Request, id string) {
	search := ""
	if r.URL.RawQuery != "" {
		search = "?" + r.URL.RawQuery
	}
	out, err := h.API.Render(r.Context(), queries.RenderDashboardInput{DashboardID: id, Search: search})
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(out.HTML))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	http.Error(w, err.Error(), StatusFor(err))
}
