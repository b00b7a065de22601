package emergency

import (
	"errors"
	"regexp"
	"time"

	"github.com/google/uuid"
)

// Phase tracks where the active incident is in its lifecycle. CUSTOMER_WAITING
// and TECHNICIAN_INFORMED can each be reached before the other; everything
// else is strictly ordered.
type Phase string

const (
	PhaseNotifyingTechnician Phase = "NOTIFYING_TECHNICIAN"
	PhaseCustomerWaiting     Phase = "CUSTOMER_WAITING"
	PhaseTechnicianInformed  Phase = "TECHNICIAN_INFORMED"
	PhaseBridging            Phase = "BRIDGING"
	PhaseConcluded           Phase = "CONCLUDED"
)

var phaseRank = map[Phase]int{
	PhaseNotifyingTechnician: 0,
	PhaseCustomerWaiting:     1,
	PhaseTechnicianInformed:  1,
	PhaseBridging:            2,
	PhaseConcluded:           3,
}

// Incident is the in-memory record of the one active emergency. The ID doubles
// as the callback correlation key and the customer's hold-queue name.
type Incident struct {
	ID        string
	CreatedAt time.Time
	Phase     Phase

	TechnicianNumber string
	CustomerName     string
	CallbackNumber   string
	Address          string
	Description      string

	TechnicianCallRef string
	CustomerCallRef   string

	OutcomeStatus   string
	OutcomeDuration int

	// Captured at customer arrival in transfer mode so later stages never
	// re-read mutable configuration.
	TransferTarget   string
	TransferCallerID string
}

// TriggerRequest carries the fields of the inbound trigger webhook.
type TriggerRequest struct {
	TechnicianNumber string `json:"chosen_phone"`
	CustomerName     string `json:"customer_name"`
	CallbackNumber   string `json:"user_stated_callback_number"`
	Address          string `json:"incident_address"`
	Description      string `json:"emergency_description_text"`
}

var ErrInvalidNumber = errors.New("technician phone number is missing or malformed")

// e164 requires a leading + and a country code.
var e164 = regexp.MustCompile(`^\+[1-9]\d{6,14}$`)

func ValidNumber(number string) bool {
	return e164.MatchString(number)
}

// NewIncident validates the mandatory technician number and builds a fresh
// incident in the initial phase.
func NewIncident(req TriggerRequest) (*Incident, error) {
	if !ValidNumber(req.TechnicianNumber) {
		return nil, ErrInvalidNumber
	}
	return &Incident{
		ID:               uuid.NewString(),
		CreatedAt:        time.Now().UTC(),
		Phase:            PhaseNotifyingTechnician,
		TechnicianNumber: req.TechnicianNumber,
		CustomerName:     req.CustomerName,
		CallbackNumber:   req.CallbackNumber,
		Address:          req.Address,
		Description:      req.Description,
	}, nil
}

// customerWaiting reports whether the customer's inbound call has arrived.
func (i *Incident) customerWaiting() bool {
	return i.CustomerCallRef != ""
}

// advance moves the phase forward only; transitions never go backward.
func (i *Incident) advance(to Phase) {
	if phaseRank[to] >= phaseRank[i.Phase] {
		i.Phase = to
	}
}
