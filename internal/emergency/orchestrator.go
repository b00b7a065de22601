package emergency

import (
	"context"
	"fmt"
	"log/slog"

	"dispatchcore/internal/telephony"
)

// TransitionResult tells a callback handler what happened without making it
// care how.
type TransitionResult int

const (
	TransitionApplied TransitionResult = iota
	TransitionIgnored
	TransitionFailed
)

// Settings is the slice of the config resolver the orchestrator consumes.
type Settings interface {
	Resolve(key, def string) string
	ResolveBool(key string, def bool) bool
	ResolveInt(key string, def int) int
	DisplayName(number string) string
}

// ReportSender receives the final summary exactly once per emergency.
type ReportSender interface {
	Send(ctx context.Context, subject, body string) error
}

// Options are static defaults; the settings resolver may override the
// call-behavior ones at runtime.
type Options struct {
	PublicURL        string
	SMSFrom          string
	Broadcast        []string
	TransferMode     bool
	TransferTarget   string
	TransferCallerID string
	RingTimeout      int
	HoldMusicURL     string
	MapLinks         bool
}

// Orchestrator drives the single active emergency through its lifecycle.
// Each transition takes a snapshot under the store lock and performs provider
// calls outside it, so every callback re-validates the incident id before
// mutating.
type Orchestrator struct {
	store    *ActiveStore
	client   telephony.Client
	settings Settings
	sender   ReportSender
	logger   *slog.Logger
	opts     Options
}

func NewOrchestrator(store *ActiveStore, client telephony.Client, settings Settings,
	sender ReportSender, logger *slog.Logger, opts Options) *Orchestrator {
	return &Orchestrator{
		store:    store,
		client:   client,
		settings: settings,
		sender:   sender,
		logger:   logger,
		opts:     opts,
	}
}

// Reset drops whatever incident is active. Used by the route boundary when
// an unexpected failure would otherwise leave the instance stuck busy.
func (o *Orchestrator) Reset() {
	o.store.Clear()
}

// Trigger handles the inbound emergency webhook: creates the incident and
// runs the technician notification sequence. A failed notification destroys
// the incident so later callbacks never see a half-created one.
func (o *Orchestrator) Trigger(ctx context.Context, req TriggerRequest) (string, error) {
	if _, active := o.store.Get(); active {
		return "", ErrBusy
	}
	inc, err := NewIncident(req)
	if err != nil {
		return "", err
	}
	if err := o.store.Set(inc); err != nil {
		return "", err
	}
	o.logger.Info("emergency triggered",
		"id", inc.ID, "technician", inc.TechnicianNumber, "customer", inc.CustomerName)

	callRef, err := o.notifyTechnician(ctx, *inc)
	if err != nil {
		o.store.Clear()
		o.logger.Error("technician notification failed, emergency dropped",
			"id", inc.ID, "err", err)
		return "", fmt.Errorf("notify technician: %w", err)
	}
	o.store.Mutate(inc.ID, func(i *Incident) {
		i.TechnicianCallRef = callRef
	})
	return inc.ID, nil
}

// CustomerArrived routes the customer's inbound call: park it in the hold
// queue named after the incident, and bridge immediately when the technician
// side already finished.
func (o *Orchestrator) CustomerArrived(ctx context.Context, callRef string) *telephony.Response {
	snap, ok := o.store.Get()
	if !ok {
		o.logger.Info("customer call with no active emergency", "call", callRef)
		return telephony.NoActiveEmergency()
	}

	transferMode := o.settings.ResolveBool("transfer_mode", o.opts.TransferMode)
	var target, callerID string
	if transferMode {
		target = o.settings.Resolve("transfer_target", o.opts.TransferTarget)
		callerID = o.settings.Resolve("transfer_caller_id", o.opts.TransferCallerID)
		if !ValidNumber(target) {
			o.logger.Error("transfer target misconfigured, refusing to enqueue",
				"id", snap.ID)
			return telephony.Apology(
				"We're sorry, we are unable to connect your call right now. Please try again later.")
		}
	}

	shouldBridge := false
	ok = o.store.Mutate(snap.ID, func(i *Incident) {
		i.CustomerCallRef = callRef
		if transferMode {
			i.TransferTarget = target
			i.TransferCallerID = callerID
		}
		// The technician side may have finished first; CUSTOMER_WAITING and
		// TECHNICIAN_INFORMED share a rank, so check before advancing.
		if i.Phase == PhaseTechnicianInformed {
			i.Phase = PhaseBridging
			shouldBridge = true
		} else {
			i.advance(PhaseCustomerWaiting)
		}
	})
	if !ok {
		// The incident vanished between the snapshot and the update; do not
		// park the caller in a queue nothing will ever dial.
		o.logger.Info("customer call raced incident teardown", "call", callRef)
		return telephony.NoActiveEmergency()
	}

	holdMusic := o.settings.Resolve("hold_music_url", o.opts.HoldMusicURL)
	resp := telephony.HoldInQueue(snap.ID, holdMusic,
		"Please hold while we connect you to the on-call technician.")

	if shouldBridge {
		o.startBridge(ctx, snap.ID)
	}
	return resp
}

// TechnicianCallEnded is the completion callback of the notification leg.
func (o *Orchestrator) TechnicianCallEnded(ctx context.Context, emergencyID string) TransitionResult {
	shouldBridge := false
	applied := false
	ok := o.store.Mutate(emergencyID, func(i *Incident) {
		if phaseRank[i.Phase] >= phaseRank[PhaseBridging] {
			return
		}
		applied = true
		if i.customerWaiting() {
			i.Phase = PhaseBridging
			shouldBridge = true
		} else {
			i.advance(PhaseTechnicianInformed)
		}
	})
	if !ok || !applied {
		o.logger.Info("stale technician callback ignored", "id", emergencyID)
		return TransitionIgnored
	}
	o.logger.Info("technician informed", "id", emergencyID)
	if shouldBridge {
		o.startBridge(ctx, emergencyID)
	}
	return TransitionApplied
}

// startBridge places the outbound leg that dials into the customer's hold
// queue. The caller has already moved the phase to BRIDGING under the lock,
// which is what makes this fire exactly once. Placement failure is logged and
// the incident stays pending for the completion callback or a retrigger.
func (o *Orchestrator) startBridge(ctx context.Context, emergencyID string) {
	snap, ok := o.store.Get()
	if !ok || snap.ID != emergencyID {
		return
	}

	to := snap.TechnicianNumber
	action := fmt.Sprintf("%s/conference_status?emergency_id=%s", o.opts.PublicURL, snap.ID)
	timeout := 0
	callerID := ""
	announcement := "Connecting you to the customer now."
	if snap.TransferTarget != "" {
		to = snap.TransferTarget
		action = fmt.Sprintf("%s/transfer_complete?emergency_id=%s", o.opts.PublicURL, snap.ID)
		timeout = o.settings.ResolveInt("ring_timeout", o.opts.RingTimeout)
		callerID = snap.TransferCallerID
		announcement = "Transferring an after hours emergency call. Connecting you now."
	}

	doc := telephony.BridgeIntoQueue(snap.ID, announcement, action, timeout, callerID)
	callRef, err := o.client.CreateCall(ctx, telephony.CallRequest{
		From:     o.opts.SMSFrom,
		To:       to,
		Document: doc,
	})
	if err != nil {
		o.logger.Error("bridge call placement failed", "id", snap.ID, "to", to, "err", err)
		return
	}
	o.store.Mutate(snap.ID, func(i *Incident) {
		i.TechnicianCallRef = callRef
	})
	o.logger.Info("bridge call placed", "id", snap.ID, "to", to, "call", callRef)
}

// BridgeCompleted is the completion callback of the bridge/transfer leg: it
// records the outcome, dispatches the summary report, and destroys the
// incident. Duplicate or mismatched callbacks are no-ops.
func (o *Orchestrator) BridgeCompleted(ctx context.Context, emergencyID, status string, duration int) TransitionResult {
	var snap Incident
	applied := false
	ok := o.store.Mutate(emergencyID, func(i *Incident) {
		if i.Phase == PhaseConcluded {
			return
		}
		applied = true
		i.OutcomeStatus = status
		i.OutcomeDuration = duration
		i.Phase = PhaseConcluded
		snap = *i
	})
	if !ok || !applied {
		o.logger.Info("stale completion callback ignored", "id", emergencyID)
		return TransitionIgnored
	}

	subject, body := o.composeSummary(snap)
	if err := o.sender.Send(ctx, subject, body); err != nil {
		o.logger.Error("summary dispatch failed", "id", emergencyID, "err", err)
	}
	o.store.Clear()
	o.logger.Info("emergency concluded",
		"id", emergencyID, "status", status, "duration_s", duration)
	return TransitionApplied
}
