package intake

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hfpolymers/rubber-ops/internal/identity"
	"github.com/hfpolymers/rubber-ops/internal/modules/notification"
	"github.com/rs/zerolog"
)

// Step is a state of the barrel intake wizard.
type Step int

const (
	StepReview Step = iota
	StepTimeEntry
	StepConfirm
	StepDone
)

func (s Step) String() string {
	switch s {
	case StepReview:
		return "REVIEW"
	case StepTimeEntry:
		return "TIME_ENTRY"
	case StepConfirm:
		return "CONFIRM"
	case StepDone:
		return "DONE"
	}
	return fmt.Sprintf("Step(%d)", int(s))
}

// MarshalText encodes the step by name.
func (s Step) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// NoRequestWarning is shown when the wizard starts without a linked sell request.
const NoRequestWarning = "No sell request linked to this intake; continuing without one"

var errWrongStep = errors.New("action not allowed at this step")

// Timer is the part of *time.Timer the wizard uses.
type Timer interface {
	Stop() bool
}

// Clock abstracts time so the auto-advance delay can be driven by tests.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// RealClock is the wall clock.
var RealClock Clock = realClock{}

// Params is the intake context the wizard is opened with.
type Params struct {
	RequestID     string   `json:"request_id,omitempty"`
	TaskID        string   `json:"task_id,omitempty"`
	CustomerName  string   `json:"customer_name"`
	CustomerPhone string   `json:"customer_phone"`
	BarrelCount   int      `json:"barrel_count"`
	BarrelIDs     []string `json:"barrel_ids,omitempty"`
}

// Workflow is what the wizard needs from the intake service.
type Workflow interface {
	RecordIntake(ctx context.Context, req IntakeRequest, recordedBy string) (*Intake, error)
	UpdateTaskStatus(ctx context.Context, id string, status TaskStatus) (*DeliveryTask, error)
	MarkDeliveredToLab(ctx context.Context, id string) (*SellRequest, error)
}

// View is a read-only snapshot of a wizard session.
type View struct {
	ID        uuid.UUID `json:"id"`
	Step      Step      `json:"step"`
	Params    Params    `json:"params"`
	Warning   string    `json:"warning,omitempty"`
	Advancing bool      `json:"advancing,omitempty"`
	Intake    *Intake   `json:"intake,omitempty"`
	Notified  []string  `json:"notified,omitempty"`
}

// Wizard is one intake session: Review, TimeEntry, Confirm, Done. The intake
// record exists only from Confirm onwards.
type Wizard struct {
	mu         sync.Mutex
	id         uuid.UUID
	owner      identity.Identity
	step       Step
	params     Params
	warning    string
	pending    Timer
	generation int
	intake     *Intake
	notified   []string
	touchedAt  time.Time

	flow        Workflow
	notifier    notification.Publisher
	clock       Clock
	autoAdvance time.Duration
	log         zerolog.Logger
}

// ID returns the session id.
func (w *Wizard) ID() uuid.UUID { return w.id }

// View returns a snapshot of the session.
func (w *Wizard) View() View {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.viewLocked()
}

func (w *Wizard) viewLocked() View {
	v := View{
		ID:        w.id,
		Step:      w.step,
		Params:    w.params,
		Warning:   w.warning,
		Advancing: w.pending != nil,
		Notified:  append([]string(nil), w.notified...),
	}
	if w.intake != nil {
		cp := *w.intake
		v.Intake = &cp
	}
	return v
}

// Step returns the current step.
func (w *Wizard) Step() Step {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.step
}

// Proceed leaves Review. With a linked sell request it moves to TimeEntry at
// once. Without one it stays in Review, sets a warning and advances when the
// auto-advance delay elapses.
func (w *Wizard) Proceed() (View, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.step != StepReview {
		return w.viewLocked(), fmt.Errorf("proceed: %w (%s)", errWrongStep, w.step)
	}
	if w.params.CustomerName == "" || w.params.CustomerPhone == "" {
		return w.viewLocked(), errors.New("customer name and phone are required")
	}
	w.touchedAt = w.clock.Now()
	if w.params.RequestID != "" {
		w.step = StepTimeEntry
		return w.viewLocked(), nil
	}
	w.warning = NoRequestWarning
	if w.pending == nil {
		w.generation++
		gen := w.generation
		w.pending = w.clock.AfterFunc(w.autoAdvance, func() { w.autoAdvanceFired(gen) })
	}
	return w.viewLocked(), nil
}

func (w *Wizard) autoAdvanceFired(gen int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.pending == nil || w.generation != gen || w.step != StepReview {
		return
	}
	w.pending = nil
	w.step = StepTimeEntry
	w.touchedAt = w.clock.Now()
}

// Back returns from TimeEntry to Review.
func (w *Wizard) Back() (View, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.step != StepTimeEntry {
		return w.viewLocked(), fmt.Errorf("back: %w (%s)", errWrongStep, w.step)
	}
	w.step = StepReview
	w.touchedAt = w.clock.Now()
	return w.viewLocked(), nil
}

// SubmitArrival records the intake and moves to Confirm. Updating the linked
// delivery task and sell request is best effort: failures are logged only.
func (w *Wizard) SubmitArrival(ctx context.Context, arrivalTime string) (View, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.step != StepTimeEntry {
		return w.viewLocked(), fmt.Errorf("submit arrival: %w (%s)", errWrongStep, w.step)
	}
	in, err := w.flow.RecordIntake(ctx, IntakeRequest{
		SellRequestID: w.params.RequestID,
		TaskID:        w.params.TaskID,
		CustomerName:  w.params.CustomerName,
		CustomerPhone: w.params.CustomerPhone,
		BarrelCount:   w.params.BarrelCount,
		BarrelIDs:     w.params.BarrelIDs,
		ArrivalTime:   arrivalTime,
	}, w.owner.StaffID)
	if err != nil {
		return w.viewLocked(), err
	}

	if w.params.TaskID != "" {
		if _, err := w.flow.UpdateTaskStatus(ctx, w.params.TaskID, TaskDelivered); err != nil {
			w.log.Warn().Err(err).Str("task_id", w.params.TaskID).Msg("delivery task status not updated")
		}
	}
	if w.params.RequestID != "" {
		if _, err := w.flow.MarkDeliveredToLab(ctx, w.params.RequestID); err != nil {
			w.log.Warn().Err(err).Str("sell_request_id", w.params.RequestID).Msg("sell request not marked delivered to lab")
		}
	}

	w.intake = in
	w.step = StepConfirm
	w.touchedAt = w.clock.Now()
	return w.viewLocked(), nil
}

// Send notifies the lab and then the accountant and moves to Done. Each
// notification carries a dedupe key, so retrying after a partial failure does
// not duplicate the one already sent.
func (w *Wizard) Send(ctx context.Context) (View, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.step != StepConfirm || w.intake == nil {
		return w.viewLocked(), fmt.Errorf("send: %w (%s)", errWrongStep, w.step)
	}
	in := w.intake
	payload := map[string]interface{}{
		"intake_id":      in.ID,
		"customer_name":  in.CustomerName,
		"customer_phone": in.CustomerPhone,
		"barrel_count":   in.BarrelCount,
		"barrel_ids":     in.BarrelIDs,
		"arrival_time":   in.ArrivalTime,
	}
	if in.SellRequestID != nil {
		payload["sell_request_id"] = *in.SellRequestID
	}
	targets := []struct {
		role  identity.Role
		title string
	}{
		{identity.RoleLab, "Barrels arrived for testing"},
		{identity.RoleAccountant, "Barrel intake pending settlement"},
	}
	w.notified = w.notified[:0]
	for _, t := range targets {
		_, err := w.notifier.Publish(ctx, notification.Message{
			RecipientRole: t.role,
			Title:         t.title,
			Message:       fmt.Sprintf("%d barrel(s) from %s arrived at %s", in.BarrelCount, in.CustomerName, in.ArrivalTime.Format("02 Jan 15:04")),
			Type:          notification.TypeIntake,
			Payload:       payload,
			DedupeKey:     fmt.Sprintf("intake:%s:%s", in.ID, t.role),
		})
		if err != nil {
			return w.viewLocked(), fmt.Errorf("notify %s: %w", t.role, err)
		}
		w.notified = append(w.notified, string(t.role))
	}
	w.step = StepDone
	w.touchedAt = w.clock.Now()
	return w.viewLocked(), nil
}

func (w *Wizard) stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.pending != nil {
		w.pending.Stop()
		w.pending = nil
	}
}

func (w *Wizard) idleSince() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.touchedAt
}

// ── Sessions ──────────────────────────────────────────────────────────────────

// Sessions keeps wizard sessions in memory.
type Sessions struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*Wizard

	flow        Workflow
	notifier    notification.Publisher
	clock       Clock
	autoAdvance time.Duration
	ttl         time.Duration
	log         zerolog.Logger
}

// NewSessions creates a session store.
func NewSessions(flow Workflow, notifier notification.Publisher, clock Clock, autoAdvance, ttl time.Duration, log zerolog.Logger) *Sessions {
	if clock == nil {
		clock = RealClock
	}
	return &Sessions{
		sessions:    map[uuid.UUID]*Wizard{},
		flow:        flow,
		notifier:    notifier,
		clock:       clock,
		autoAdvance: autoAdvance,
		ttl:         ttl,
		log:         log,
	}
}

// Start opens a new wizard at Review.
func (s *Sessions) Start(owner identity.Identity, p Params) *Wizard {
	w := &Wizard{
		id:          uuid.New(),
		owner:       owner,
		step:        StepReview,
		params:      p,
		touchedAt:   s.clock.Now(),
		flow:        s.flow,
		notifier:    s.notifier,
		clock:       s.clock,
		autoAdvance: s.autoAdvance,
		log:         s.log,
	}
	s.mu.Lock()
	s.sessions[w.id] = w
	s.mu.Unlock()
	return w
}

// Get returns a session owned by the caller.
func (s *Sessions) Get(owner identity.Identity, id string) (*Wizard, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrSessionNotFound
	}
	s.mu.Lock()
	w, ok := s.sessions[parsed]
	s.mu.Unlock()
	if !ok || w.owner.UserID != owner.UserID {
		return nil, ErrSessionNotFound
	}
	return w, nil
}

// Len returns the number of live sessions.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Sweep drops sessions idle for longer than the TTL and returns how many.
// Idle times are read outside the store lock so a session busy with I/O does
// not block Start and Get.
func (s *Sessions) Sweep() int {
	cutoff := s.clock.Now().Add(-s.ttl)
	s.mu.Lock()
	live := make([]*Wizard, 0, len(s.sessions))
	for _, w := range s.sessions {
		live = append(live, w)
	}
	s.mu.Unlock()

	var expired []*Wizard
	for _, w := range live {
		if !w.idleSince().Before(cutoff) {
			continue
		}
		s.mu.Lock()
		if s.sessions[w.id] == w {
			delete(s.sessions, w.id)
			expired = append(expired, w)
		}
		s.mu.Unlock()
	}
	for _, w := range expired {
		w.stop()
	}
	return len(expired)
}
