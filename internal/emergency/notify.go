package emergency

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"dispatchcore/internal/telephony"
)

// notifyTechnician runs the notification sequence for a freshly created
// incident: SMS to the technician, SMS to the broadcast list, then the voice
// call with a completion callback. Only credential problems or voice-call
// rejection are fatal; SMS failures are logged and the sequence continues.
func (o *Orchestrator) notifyTechnician(ctx context.Context, inc Incident) (string, error) {
	from := o.opts.SMSFrom
	if !ValidNumber(from) {
		return "", fmt.Errorf("sender number %q is not configured correctly", from)
	}

	smsBody := o.composeSMS(inc)
	if err := o.client.SendSMS(ctx, from, inc.TechnicianNumber, smsBody); err != nil {
		o.logger.Error("primary SMS failed", "id", inc.ID, "err", err)
	} else {
		o.logger.Info("emergency SMS sent", "id", inc.ID, "to", inc.TechnicianNumber)
	}
	for _, recipient := range o.opts.Broadcast {
		if err := o.client.SendSMS(ctx, from, recipient, smsBody); err != nil {
			o.logger.Error("broadcast SMS failed", "to", recipient, "err", err)
		}
	}

	doc := &telephony.Response{}
	doc.Pause(2).Say(o.composeVoiceMessage(inc)).Hangup()
	callRef, err := o.client.CreateCall(ctx, telephony.CallRequest{
		From:     from,
		To:       inc.TechnicianNumber,
		Document: doc,
		StatusCallback: fmt.Sprintf("%s/technician_call_ended?emergency_id=%s",
			o.opts.PublicURL, inc.ID),
	})
	if err != nil {
		return "", err
	}
	o.logger.Info("notification call placed",
		"id", inc.ID, "to", inc.TechnicianNumber, "call", callRef)
	return callRef, nil
}

func orDefault(v string) string {
	if v == "" {
		return "N/A"
	}
	return v
}

func (o *Orchestrator) composeSMS(inc Incident) string {
	name := o.settings.DisplayName(inc.TechnicianNumber)
	var b strings.Builder
	fmt.Fprintf(&b, "Emergency Alert from %s\n",
		o.settings.Resolve("company_name", "the after-hours service"))
	fmt.Fprintf(&b, "To: %s\n\n", name)
	fmt.Fprintf(&b, "Customer: %s\n", orDefault(inc.CustomerName))
	fmt.Fprintf(&b, "Callback: %s\n", orDefault(inc.CallbackNumber))
	fmt.Fprintf(&b, "Address: %s\n", orDefault(inc.Address))
	fmt.Fprintf(&b, "\nEmergency Details:\n%s", orDefault(inc.Description))
	if o.settings.ResolveBool("map_links", o.opts.MapLinks) && inc.Address != "" {
		fmt.Fprintf(&b, "\n\nMap: https://maps.google.com/?q=%s", url.QueryEscape(inc.Address))
	}
	return b.String()
}

func (o *Orchestrator) composeVoiceMessage(inc Incident) string {
	name := o.settings.DisplayName(inc.TechnicianNumber)
	company := o.settings.Resolve("company_name", "the after-hours service")
	msg := fmt.Sprintf(
		"This is an emergency notification from %s for %s. ", company, name)
	if inc.CustomerName != "" {
		msg += fmt.Sprintf("The customer is %s. ", inc.CustomerName)
	}
	if inc.CallbackNumber != "" {
		msg += fmt.Sprintf("The callback number is %s. ",
			telephony.SpokenNumber(inc.CallbackNumber))
	}
	if inc.Address != "" {
		msg += fmt.Sprintf("The address is %s. ", inc.Address)
	}
	msg += "Details have been sent to you by text message. " +
		"An incoming customer call will be connected to you shortly."
	return msg
}

// composeSummary builds the final report dispatched exactly once at
// conclusion.
func (o *Orchestrator) composeSummary(inc Incident) (subject, body string) {
	name := o.settings.DisplayName(inc.TechnicianNumber)
	subject = fmt.Sprintf("EMERGENCY ALERT & CALL STATUS: %s", name)
	var b strings.Builder
	b.WriteString("EMERGENCY NOTIFICATION & CALL STATUS\n")
	fmt.Fprintf(&b, "Assigned To: %s (%s)\n\n", name, inc.TechnicianNumber)
	fmt.Fprintf(&b, "Customer: %s\n", orDefault(inc.CustomerName))
	fmt.Fprintf(&b, "Callback Number: %s\n", orDefault(inc.CallbackNumber))
	fmt.Fprintf(&b, "Address: %s\n\n", orDefault(inc.Address))
	fmt.Fprintf(&b, "Emergency Description:\n%s\n\n", orDefault(inc.Description))
	b.WriteString("CALL STATUS\n")
	fmt.Fprintf(&b, "Bridge Call: %s\n", orDefault(inc.OutcomeStatus))
	fmt.Fprintf(&b, "Duration: %ds\n\n", inc.OutcomeDuration)
	fmt.Fprintf(&b, "Original Alert Time: %s", inc.CreatedAt.Format("2006-01-02 15:04:05"))
	return subject, b.String()
}
