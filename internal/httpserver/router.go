package httpserver

import (
	"encoding/json"
	"net/http"

	"log/slog"

	"dispatchcore/internal/admin"
	"dispatchcore/internal/emergency"
	"dispatchcore/internal/status"
	"dispatchcore/internal/telephony"
)

// RouterDeps bundles everything the router wires together.
type RouterDeps struct {
	Logger      *slog.Logger
	Orch        *emergency.Orchestrator
	Telephony   telephony.Client
	Timeline    *status.Timeline
	AdminStore  *admin.Store
	AuthService *admin.Service
	Branch      string
	Branches    map[string]string
	SMSFrom     string
	NotifyPhone string
}

func NewRouter(d RouterDeps) http.Handler {
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	// Emergency routing
	mux.Handle("/webhook", &WebhookHandler{
		Orch:     d.Orch,
		Gate:     d.AdminStore,
		Branch:   d.Branch,
		Timeline: d.Timeline,
		Logger:   d.Logger,
	})
	mux.Handle("/incoming_twilio_call", &IncomingCallHandler{
		Orch:     d.Orch,
		Timeline: d.Timeline,
		Logger:   d.Logger,
	})
	mux.Handle("/technician_call_ended", &TechnicianCallEndedHandler{
		Orch:     d.Orch,
		Timeline: d.Timeline,
		Logger:   d.Logger,
	})
	bridgeDone := &BridgeCompleteHandler{
		Orch:     d.Orch,
		Timeline: d.Timeline,
		Logger:   d.Logger,
	}
	mux.Handle("/conference_status", bridgeDone)
	mux.Handle("/transfer_complete", bridgeDone)
	mux.Handle("/sms_reply", &SMSReplyHandler{
		Client:   d.Telephony,
		From:     d.SMSFrom,
		Timeline: d.Timeline,
		Logger:   d.Logger,
	})

	// Status surface
	mux.Handle("/status", &status.PageHandler{Timeline: d.Timeline, Logger: d.Logger})
	mux.Handle("/api/status", &status.APIHandler{Timeline: d.Timeline, Branch: d.Branch})

	// Admin surface
	mux.Handle("/api/v1/auth/login", &admin.LoginHandler{Service: d.AuthService, Logger: d.Logger})

	secured := admin.JWTMiddleware(d.AuthService)
	usersHandler := &admin.UsersHandler{Store: d.AdminStore, Logger: d.Logger}
	mux.Handle("/api/v1/users", secured(http.HandlerFunc(
		admin.RequireAdmin(usersHandler.ServeHTTP))))
	userDelete := &admin.UserDeleteHandler{Store: d.AdminStore, Logger: d.Logger}
	mux.Handle("/api/v1/users/", secured(http.HandlerFunc(
		admin.RequireAdmin(userDelete.ServeHTTP))))

	branches := admin.NewBranchesHandler(d.AdminStore, d.Logger, d.Branches,
		d.Telephony, d.SMSFrom, d.NotifyPhone)
	mux.Handle("/api/v1/branches", secured(branches))
	mux.Handle("/api/v1/branches/", secured(branches))

	// CORS wrapper (simple, for local UI/tools).
	return withCORS(mux)
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
