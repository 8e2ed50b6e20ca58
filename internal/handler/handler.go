package handler

import (
	"encoding/json"
	"net/http"

	"github.com/Dan9191/edge-dashboard/internal/metrics"
	"github.com/Dan9191/edge-dashboard/internal/middleware"
	"github.com/Dan9191/edge-dashboard/internal/models"
	"github.com/Dan9191/edge-dashboard/internal/poller"
	"github.com/Dan9191/edge-dashboard/internal/service"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

const pageTitle = "Edge Dashboard"

type Handler struct {
	svc     *service.Service
	poller  *poller.Poller
	events  *Broker
	metrics *metrics.Recorder
	log     *logrus.Logger
}

func NewHandler(svc *service.Service, p *poller.Poller, events *Broker, rec *metrics.Recorder, log *logrus.Logger) *Handler {
	return &Handler{svc: svc, poller: p, events: events, metrics: rec, log: log}
}

// Routes builds the router for the page, the JSON API, the event stream and
// the metrics endpoint.
func (h *Handler) Routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.Logging(h.log))

	r.HandleFunc("/", h.Dashboard).Methods("GET")
	r.HandleFunc("/dashboard/", h.Dashboard).Methods("GET")
	r.HandleFunc("/healthz", h.Health).Methods("GET")
	if h.events != nil {
		r.Handle("/events", h.events).Methods("GET")
	}
	if h.metrics != nil {
		r.Handle("/metrics", h.metrics.Handler()).Methods("GET")
	}

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/dashboard", h.Snapshot).Methods("GET")
	api.HandleFunc("/refresh", h.Refresh).Methods("POST")
	api.HandleFunc("/refresh/pause", h.Pause).Methods("POST")
	api.HandleFunc("/refresh/resume", h.Resume).Methods("POST")
	api.HandleFunc("/refresh/interval", h.SetInterval).Methods("PUT")
	api.HandleFunc("/preferences", h.Preferences).Methods("GET")
	api.HandleFunc("/preferences/{key}", h.SetPreference).Methods("PUT")
	api.HandleFunc("/theme/toggle", h.ToggleTheme).Methods("POST")
	api.HandleFunc("/sidebar/toggle", h.ToggleSidebar).Methods("POST")
	api.HandleFunc("/credential", h.SetCredential).Methods("PUT")
	return r
}

// Dashboard renders the page. Query parameters become the active filters.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	h.svc.SetFilters(models.FiltersFromQuery(r.URL.Query()))
	snap := h.svc.Snapshot(r.Context(), h.poller.Status())

	data := pageData{
		Title:     pageTitle,
		Theme:     snap.Preferences[models.PrefTheme],
		Collapsed: snap.Preferences[models.PrefSidebarCollapsed] == "true",
		Paused:    snap.Refresh.State == string(poller.StatePaused),
		Snapshot:  snap,
		Intervals: refreshChoices,
	}
	if data.Theme == "" {
		data.Theme = service.ThemeDark
	}
	for _, name := range h.svc.Board().Names() {
		data.Tiles = append(data.Tiles, tile{ID: name, Label: tileLabel(name), Text: snap.Targets[name]})
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTmpl.Execute(w, data); err != nil {
		h.log.WithError(err).Error("Failed to render dashboard")
		http.Error(w, "Failed to render dashboard", http.StatusInternalServerError)
	}
}

// Snapshot returns the current targets, charts and refresh status
func (h *Handler) Snapshot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Snapshot(r.Context(), h.poller.Status()))
}

// Refresh runs a manual refresh
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	if err := h.poller.RefreshNow(r.Context()); err != nil {
		writeJSON(w, http.StatusBadGateway, map[string]string{
			"error":  err.Error(),
			"reload": h.svc.ReloadURL(),
		})
		return
	}
	writeJSON(w, http.StatusOK, h.svc.Snapshot(r.Context(), h.poller.Status()))
}

func (h *Handler) Pause(w http.ResponseWriter, r *http.Request) {
	if err := h.poller.Pause(r.Context()); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, h.poller.Status())
}

func (h *Handler) Resume(w http.ResponseWriter, r *http.Request) {
	if err := h.poller.Resume(r.Context()); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, h.poller.Status())
}

type intervalRequest struct {
	Interval *int `json:"interval"`
}

// SetInterval switches the refresh interval; 0 selects manual refresh
func (h *Handler) SetInterval(w http.ResponseWriter, r *http.Request) {
	var req intervalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Interval == nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.poller.SetInterval(r.Context(), *req.Interval); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, h.poller.Status())
}

func (h *Handler) Preferences(w http.ResponseWriter, r *http.Request) {
	prefs, err := h.svc.Preferences(r.Context())
	if err != nil {
		http.Error(w, "Failed to read preferences", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, prefs)
}

type valueRequest struct {
	Value string `json:"value"`
}

func (h *Handler) SetPreference(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]
	var req valueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.svc.SetPreference(r.Context(), key, req.Value); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{key: req.Value})
}

func (h *Handler) ToggleTheme(w http.ResponseWriter, r *http.Request) {
	theme, err := h.svc.ToggleTheme(r.Context())
	if err != nil {
		http.Error(w, "Failed to toggle theme", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"theme": theme})
}

func (h *Handler) ToggleSidebar(w http.ResponseWriter, r *http.Request) {
	collapsed, err := h.svc.ToggleSidebar(r.Context())
	if err != nil {
		http.Error(w, "Failed to toggle sidebar", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"collapsed": collapsed})
}

type credentialRequest struct {
	Token string `json:"token"`
}

// SetCredential stores the session token forwarded to the backend
func (h *Handler) SetCredential(w http.ResponseWriter, r *http.Request) {
	var req credentialRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.svc.SetToken(r.Context(), req.Token); err != nil {
		http.Error(w, "Failed to store credential", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
