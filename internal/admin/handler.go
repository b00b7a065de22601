package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"dispatchcore/internal/telephony"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

type LoginHandler struct {
	Service *Service
	Logger  *slog.Logger
}

func (h *LoginHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var payload struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	user, token, err := h.Service.Authenticate(r.Context(), payload.Username, payload.Password)
	if err != nil {
		h.Logger.Info("login rejected", "username", payload.Username)
		writeError(w, http.StatusUnauthorized, "invalid username or password")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"token": token,
		"user":  user,
	})
}

// UsersHandler lists and creates users. Admin only.
type UsersHandler struct {
	Store  *Store
	Logger *slog.Logger
}

func (h *UsersHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		users, err := h.Store.List(r.Context())
		if err != nil {
			h.Logger.Error("list users", "err", err)
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, users)
	case http.MethodPost:
		var payload struct {
			Username string                `json:"username"`
			Password string                `json:"password"`
			IsAdmin  bool                  `json:"is_admin"`
			Branches map[string]Permission `json:"branches"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if payload.Username == "" || payload.Password == "" {
			writeError(w, http.StatusBadRequest, "username and password are required")
			return
		}
		user, err := h.Store.Create(r.Context(), payload.Username, payload.Password, payload.IsAdmin)
		if err != nil {
			h.Logger.Error("create user", "err", err)
			writeError(w, http.StatusConflict, "user already exists")
			return
		}
		if !payload.IsAdmin {
			for branch, perm := range payload.Branches {
				if err := h.Store.SetPermission(r.Context(), user.ID, branch, perm); err != nil {
					h.Logger.Error("set permission", "err", err)
					w.WriteHeader(http.StatusInternalServerError)
					return
				}
			}
		}
		writeJSON(w, http.StatusCreated, user)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// UserDeleteHandler removes a user by id. Admins cannot delete their own
// account.
type UserDeleteHandler struct {
	Store  *Store
	Logger *slog.Logger
}

func (h *UserDeleteHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	// Path is /api/v1/users/{id}
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) < 4 {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	id, err := strconv.ParseInt(parts[3], 10, 64)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	user, _ := UserFromContext(r.Context())
	if user != nil && user.ID == id {
		writeError(w, http.StatusBadRequest, "cannot delete your own account")
		return
	}
	if err := h.Store.Delete(r.Context(), id); err != nil {
		h.Logger.Error("delete user", "err", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// BranchesHandler serves branch health and enable/disable toggles for the
// configured sibling instances.
type BranchesHandler struct {
	Store       *Store
	Logger      *slog.Logger
	Branches    map[string]string // branch key -> base URL
	Telephony   telephony.Client
	SMSFrom     string
	NotifyPhone string
	probe       *http.Client
}

func NewBranchesHandler(store *Store, logger *slog.Logger, branches map[string]string,
	tel telephony.Client, smsFrom, notifyPhone string) *BranchesHandler {
	return &BranchesHandler{
		Store:       store,
		Logger:      logger,
		Branches:    branches,
		Telephony:   tel,
		SMSFrom:     smsFrom,
		NotifyPhone: notifyPhone,
		probe:       &http.Client{Timeout: 5 * time.Second},
	}
}

func (h *BranchesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	// Path is /api/v1/branches or /api/v1/branches/{branch}/{action}
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) == 3 {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.list(w, r, user)
		return
	}
	if len(parts) != 5 || r.Method != http.MethodPost {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	branch, action := parts[3], parts[4]
	if _, known := h.Branches[branch]; !known {
		writeError(w, http.StatusNotFound, "invalid branch")
		return
	}
	if !h.allowed(r.Context(), user, branch) {
		writeError(w, http.StatusForbidden, "permission denied")
		return
	}
	switch action {
	case "disable":
		var payload struct {
			Confirm bool `json:"confirm"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || !payload.Confirm {
			writeError(w, http.StatusBadRequest, "confirmation required")
			return
		}
		h.toggle(w, r, user, branch, false)
	case "enable":
		h.toggle(w, r, user, branch, true)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *BranchesHandler) list(w http.ResponseWriter, r *http.Request, user *User) {
	var out []BranchHealth
	for branch := range h.Branches {
		if !h.canView(r.Context(), user, branch) {
			continue
		}
		out = append(out, h.health(r.Context(), branch))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *BranchesHandler) toggle(w http.ResponseWriter, r *http.Request, user *User, branch string, enabled bool) {
	if err := h.Store.SetBranchEnabled(r.Context(), branch, enabled, user.Username); err != nil {
		h.Logger.Error("set branch status", "branch", branch, "err", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	verb := "ENABLED"
	if !enabled {
		verb = "DISABLED"
	}
	h.Logger.Info("branch toggled", "branch", branch, "enabled", enabled, "by", user.Username)
	h.notify(r.Context(), fmt.Sprintf("ALERT: %s branch has been %s by %s at %s",
		branch, verb, user.Username, time.Now().Format("2006-01-02 15:04:05")))
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"branch":  branch,
		"enabled": enabled,
	})
}

// notify sends the admin SMS; failures never block the toggle.
func (h *BranchesHandler) notify(ctx context.Context, msg string) {
	if h.Telephony == nil || h.NotifyPhone == "" {
		h.Logger.Info("branch notification skipped, SMS not configured", "message", msg)
		return
	}
	if err := h.Telephony.SendSMS(ctx, h.SMSFrom, h.NotifyPhone, msg); err != nil {
		h.Logger.Error("branch notification SMS failed", "err", err)
	}
}

// health probes a branch instance's status endpoint.
func (h *BranchesHandler) health(ctx context.Context, branch string) BranchHealth {
	enabled, err := h.Store.IsBranchEnabled(ctx, branch)
	if err != nil {
		h.Logger.Error("read branch status", "branch", branch, "err", err)
		enabled = true
	}
	out := BranchHealth{
		Branch:  branch,
		Online:  false,
		Status:  "Offline",
		Message: "cannot connect to branch instance",
		Enabled: enabled,
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		strings.TrimRight(h.Branches[branch], "/")+"/api/status", nil)
	if err != nil {
		return out
	}
	resp, err := h.probe.Do(req)
	if err != nil {
		return out
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return out
	}
	var payload struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return out
	}
	out.Online = true
	out.Status = payload.Status
	out.Message = payload.Message
	return out
}

func (h *BranchesHandler) allowed(ctx context.Context, user *User, branch string) bool {
	if user.IsAdmin {
		return true
	}
	perms, err := h.Store.GetPermissions(ctx, user.ID)
	if err != nil {
		h.Logger.Error("load permissions", "err", err)
		return false
	}
	p, ok := perms[branch]
	return ok && p.CanDisable
}

func (h *BranchesHandler) canView(ctx context.Context, user *User, branch string) bool {
	if user.IsAdmin {
		return true
	}
	perms, err := h.Store.GetPermissions(ctx, user.ID)
	if err != nil {
		return false
	}
	p, ok := perms[branch]
	return ok && p.CanView
}
