package routes

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"p9e.in/requisition/handlers"
	"p9e.in/requisition/middleware"
)

// Options configures the router.
type Options struct {
	// APISecret enables bearer-token auth on /api/v1 when non-empty.
	APISecret string
}

// RegisterRoutes sets up all application routes
func RegisterRoutes(h *handlers.RequisitionHandler, opts Options) http.Handler {
	r := mux.NewRouter()
	r.Use(middleware.RequestLogger)

	// =====================================================
	// Public Routes (no authentication)
	// =====================================================
	r.HandleFunc("/health", handleHealth).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	// =====================================================
	// API Routes
	// =====================================================
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(middleware.TokenMiddleware(opts.APISecret))

	registerMasterRoutes(api, h)
	registerLineRoutes(api, h)
	registerSyncRoutes(api, h)

	return middleware.EnableCORS(r)
}

func registerMasterRoutes(api *mux.Router, h *handlers.RequisitionHandler) {
	api.HandleFunc("/master", h.ImportMaster).Methods("POST")
	api.HandleFunc("/master", h.GetMaster).Methods("GET")
	api.HandleFunc("/categories", h.GetCategories).Methods("GET")
	api.HandleFunc("/categories/{category}/skus", h.GetCategorySKUs).Methods("GET")
}

func registerLineRoutes(api *mux.Router, h *handlers.RequisitionHandler) {
	api.HandleFunc("/lines", h.GetLines).Methods("GET")
	api.HandleFunc("/lines", h.AddLine).Methods("POST")
	api.HandleFunc("/lines/sort/{field}", h.ToggleSort).Methods("POST")
	api.HandleFunc("/lines/{index:[0-9]+}/quantity", h.SetQuantity).Methods("PUT")
	api.HandleFunc("/lines/{index:[0-9]+}/supplier", h.SetSupplier).Methods("PUT")
	api.HandleFunc("/lines/{index:[0-9]+}", h.RemoveLine).Methods("DELETE")
	api.HandleFunc("/reset", h.Reset).Methods("POST")
	api.HandleFunc("/export", h.Export).Methods("GET")
}

func registerSyncRoutes(api *mux.Router, h *handlers.RequisitionHandler) {
	api.HandleFunc("/sync", h.GetSync).Methods("GET")
	api.HandleFunc("/sync/toggle", h.ToggleSync).Methods("POST")
	api.HandleFunc("/sync/push", h.PushSync).Methods("POST")
	api.HandleFunc("/sync/restore", h.RestoreSync).Methods("POST")
	api.HandleFunc("/settings", h.GetSettings).Methods("GET")
	api.HandleFunc("/settings/dark-mode", h.SetDarkMode).Methods("PUT")
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
