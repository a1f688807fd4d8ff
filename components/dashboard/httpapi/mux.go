package httpapi

import (
	"net/http"
	"strings"
)

// Mount registers the handlers on mux under prefix using method-qualified
// patterns. The literal _editable route takes precedence over {id}.
func (h *Handlers) Mount(mux *http.ServeMux, prefix string) {
	prefix = strings.TrimRight(prefix, "/")
	mux.HandleFunc("GET "+prefix+"/dashboards", h.HandleListDashboards)
	mux.HandleFunc("POST "+prefix+"/dashboards", h.HandleSaveDashboard)
	mux.HandleFunc("GET "+prefix+"/dashboards/_editable", h.HandleEditable)
	mux.HandleFunc("GET "+prefix+"/dashboards/{id}", func(w http.ResponseWriter, r *http.Request) {
		h.HandleLoadDashboard(w, r, r.PathValue("id"))
	})
	mux.HandleFunc("DELETE "+prefix+"/dashboards/{id}", func(w http.ResponseWriter, r *http.Request) {
		h.HandleDeleteDashboard(w, r, r.PathValue("id"))
	})
	mux.HandleFunc("GET "+prefix+"/dashboards/{id}/render", func(w http.ResponseWriter, r *http.Request) {
		h.HandleRenderDashboard(w, r, r.PathValue("id"))
	})
	mux.HandleFunc("POST "+prefix+"/sessions/{key}/reload", func(w http.ResponseWriter, r *http.Request) {
		h.HandleReloadDashboard(w, r, r.PathValue("key"))
	})
	mux.HandleFunc("POST "+prefix+"/sessions/{key}/input", func(w http.ResponseWriter, r *http.Request) {
		h.HandleUpdateInput(w, r, r.PathValue("key"))
	})
	mux.HandleFunc("POST "+prefix+"/sessions/{key}/save", func(w http.ResponseWriter, r *http.Request) {
		h.HandleSaveSession(w, r, r.PathValue("key"))
	})
	mux.HandleFunc("POST "+prefix+"/sessions/{key}/transition", func(w http.ResponseWriter, r *http.Request) {
		h.HandleTransition(w, r, r.PathValue("key"))
	})
}
