package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"log/slog"

	"dispatchcore/internal/emergency"
	"dispatchcore/internal/status"
	"dispatchcore/internal/telephony"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeTwiML(w http.ResponseWriter, logger *slog.Logger, doc *telephony.Response) {
	body, err := doc.Render()
	if err != nil {
		logger.Error("render call document", "err", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/xml")
	_, _ = w.Write([]byte(body))
}

// BranchGate reports whether this instance accepts new emergencies.
type BranchGate interface {
	IsBranchEnabled(ctx context.Context, branch string) (bool, error)
}

// WebhookHandler accepts the external intake flow's trigger.
type WebhookHandler struct {
	Orch     *emergency.Orchestrator
	Gate     BranchGate
	Branch   string
	Timeline *status.Timeline
	Logger   *slog.Logger
}

func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	// The trigger path must never leave the instance wedged "busy" because
	// of an unhandled failure.
	defer func() {
		if rec := recover(); rec != nil {
			h.Logger.Error("webhook panic, clearing active emergency", "panic", rec)
			h.Orch.Reset()
			h.Timeline.RecordError("Webhook: Internal Failure", fmt.Sprint(rec))
			writeJSON(w, http.StatusInternalServerError,
				map[string]string{"status": "error", "message": "Internal error."})
		}
	}()

	if h.Gate != nil {
		enabled, err := h.Gate.IsBranchEnabled(r.Context(), h.Branch)
		if err != nil {
			h.Logger.Error("branch status check failed", "err", err)
		} else if !enabled {
			h.Timeline.RecordError("Webhook: Branch Disabled", "trigger rejected")
			writeJSON(w, http.StatusServiceUnavailable,
				map[string]string{"status": "error", "message": "This branch is currently disabled."})
			return
		}
	}

	var req emergency.TriggerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest,
			map[string]string{"status": "error", "message": "Invalid request body."})
		return
	}

	id, err := h.Orch.Trigger(r.Context(), req)
	switch {
	case errors.Is(err, emergency.ErrBusy):
		h.Timeline.RecordError("Webhook: Rejected Busy", "an emergency is already active")
		writeJSON(w, http.StatusServiceUnavailable,
			map[string]string{"status": "error", "message": "System is busy."})
	case errors.Is(err, emergency.ErrInvalidNumber):
		h.Timeline.RecordError("Webhook: Validation Failed", "missing or malformed technician number")
		writeJSON(w, http.StatusBadRequest,
			map[string]string{"status": "error", "message": "A valid technician phone number is required."})
	case err != nil:
		// Credential and provider detail stays in the log.
		h.Logger.Error("trigger failed", "err", err)
		h.Timeline.RecordError("Webhook: Notification Failed", "provider or configuration failure")
		writeJSON(w, http.StatusInternalServerError,
			map[string]string{"status": "error", "message": "Unable to process the emergency."})
	default:
		h.Timeline.Record("Webhook: Emergency Triggered", "technician notification started")
		writeJSON(w, http.StatusOK,
			map[string]string{"status": "success", "emergency_id": id})
	}
}

// IncomingCallHandler answers the customer's inbound call with call-control
// instructions.
type IncomingCallHandler struct {
	Orch     *emergency.Orchestrator
	Timeline *status.Timeline
	Logger   *slog.Logger
}

func (h *IncomingCallHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	callRef := r.FormValue("CallSid")
	h.Timeline.Record("Telephony: Incoming Call", "call "+callRef)
	doc := h.Orch.CustomerArrived(r.Context(), callRef)
	writeTwiML(w, h.Logger, doc)
}

// TechnicianCallEndedHandler is the completion callback of the notification
// leg. Stale callbacks get an empty 200 so the provider never retries.
type TechnicianCallEndedHandler struct {
	Orch     *emergency.Orchestrator
	Timeline *status.Timeline
	Logger   *slog.Logger
}

func (h *TechnicianCallEndedHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	id := r.URL.Query().Get("emergency_id")
	result := h.Orch.TechnicianCallEnded(r.Context(), id)
	if result == emergency.TransitionApplied {
		h.Timeline.Record("Telephony: Outbound Call Update", "technician informed")
	}
	w.WriteHeader(http.StatusOK)
}

// BridgeCompleteHandler is the completion callback of the bridge or transfer
// leg, shared by /conference_status and /transfer_complete.
type BridgeCompleteHandler struct {
	Orch     *emergency.Orchestrator
	Timeline *status.Timeline
	Logger   *slog.Logger
}

func (h *BridgeCompleteHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	id := r.URL.Query().Get("emergency_id")
	callStatus := r.FormValue("DialCallStatus")
	if callStatus == "" {
		callStatus = r.FormValue("CallStatus")
	}
	duration, _ := strconv.Atoi(r.FormValue("DialCallDuration"))
	result := h.Orch.BridgeCompleted(r.Context(), id, callStatus, duration)
	if result == emergency.TransitionApplied {
		h.Timeline.Record("Telephony: Call Transfer Update",
			fmt.Sprintf("bridge finished with status %q after %ds", callStatus, duration))
	}
	w.WriteHeader(http.StatusOK)
}

// SMSReplyHandler answers an inbound text with an instance status report.
type SMSReplyHandler struct {
	Client   telephony.Client
	From     string
	Timeline *status.Timeline
	Logger   *slog.Logger
}

func (h *SMSReplyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	from := r.FormValue("From")
	h.Timeline.Record("SMS: Status Request", "from "+from)
	if from != "" && h.Client != nil {
		if err := h.Client.SendSMS(r.Context(), h.From, from, status.Summary()); err != nil {
			h.Logger.Error("status report SMS failed", "to", from, "err", err)
		}
	}
	w.WriteHeader(http.StatusNoContent)
}
