// Package lifecycle tracks the visibility of the live alert batch for one
// dashboard session: banner, minimized badge, detail modal, acknowledged.
package lifecycle

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/aliweather/aliweather/internal/flood"
)

// Lifecycle errors.
var (
	ErrInvalidTransition = errors.New("invalid alert lifecycle transition")
	ErrUnknownEvent      = errors.New("unknown alert lifecycle event")
)

// State is the visibility state of the current alert batch.
type State string

const (
	Idle          State = "idle"
	BannerVisible State = "banner_visible"
	BadgeVisible  State = "badge_visible"
	ModalVisible  State = "modal_visible"
)

// Event is a user action on the alert UI.
type Event string

const (
	EventDismissBanner Event = "dismiss_banner"
	EventClickBadge    Event = "click_badge"
	EventViewDetails   Event = "view_details"
	EventCloseModal    Event = "close_modal"
	EventAcknowledge   Event = "acknowledge"
)

// transitions lists every allowed user-driven move. A new alert batch is not
// an Event: Receive moves any state to BannerVisible.
var transitions = map[State]map[Event]State{
	BannerVisible: {
		EventDismissBanner: BadgeVisible,
		EventViewDetails:   ModalVisible,
		EventAcknowledge:   Idle,
	},
	BadgeVisible: {
		EventClickBadge:  BannerVisible,
		EventAcknowledge: Idle,
	},
	ModalVisible: {
		EventCloseModal:  BannerVisible,
		EventAcknowledge: Idle,
	},
}

// ParseEvent validates an event name.
func ParseEvent(name string) (Event, error) {
	switch ev := Event(name); ev {
	case EventDismissBanner, EventClickBadge, EventViewDetails, EventCloseModal, EventAcknowledge:
		return ev, nil
	default:
		return "", fmt.Errorf("%q: %w", name, ErrUnknownEvent)
	}
}

// Controller owns the live alert batch and its visibility state. It is safe
// for concurrent use.
type Controller struct {
	mu    sync.Mutex
	clock clockwork.Clock

	state       State
	prioritized flood.Prioritized
	batch       int

	receivedAt     time.Time
	updatedAt      time.Time
	acknowledgedAt time.Time
}

// NewController creates a controller in the Idle state with no alerts.
func NewController(clock clockwork.Clock) *Controller {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Controller{
		clock:       clock,
		state:       Idle,
		prioritized: flood.Prioritize(nil),
	}
}

// Receive replaces the current batch with alerts and shows the banner,
// whatever the current state. An empty batch is ignored and leaves the
// previous batch and state untouched; Receive reports whether the batch
// was taken.
func (c *Controller) Receive(alerts []flood.Alert) bool {
	if len(alerts) == 0 {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	c.prioritized = flood.Prioritize(alerts)
	c.batch++
	c.state = BannerVisible
	c.receivedAt = now
	c.updatedAt = now
	c.acknowledgedAt = time.Time{}
	return true
}

// Apply performs a user event. Invalid moves return ErrInvalidTransition and
// leave the state unchanged.
func (c *Controller) Apply(ev Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	next, ok := transitions[c.state][ev]
	if !ok {
		return fmt.Errorf("%s from %s: %w", ev, c.state, ErrInvalidTransition)
	}

	now := c.clock.Now()
	c.state = next
	c.updatedAt = now
	if ev == EventAcknowledge {
		c.acknowledgedAt = now
	}
	return nil
}

// DismissBanner minimizes the banner into the badge.
func (c *Controller) DismissBanner() error { return c.Apply(EventDismissBanner) }

// ClickBadge restores the banner from the badge.
func (c *Controller) ClickBadge() error { return c.Apply(EventClickBadge) }

// ViewDetails opens the detail modal over the banner.
func (c *Controller) ViewDetails() error { return c.Apply(EventViewDetails) }

// CloseModal closes the detail modal back to the banner.
func (c *Controller) CloseModal() error { return c.Apply(EventCloseModal) }

// Acknowledge hides everything. The batch stays in memory.
func (c *Controller) Acknowledge() error { return c.Apply(EventAcknowledge) }

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// CurrentAlerts returns a copy of the live batch.
func (c *Controller) CurrentAlerts() []flood.Alert {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]flood.Alert(nil), c.prioritized.Alerts...)
}

// View is a snapshot of what the client should render.
type View struct {
	State          State          `json:"state"`
	BannerVisible  bool           `json:"bannerVisible"`
	BadgeVisible   bool           `json:"badgeVisible"`
	ModalVisible   bool           `json:"modalVisible"`
	BadgeCount     int            `json:"badgeCount"`
	Batch          int            `json:"batch"`
	Headline       flood.Severity `json:"headline"`
	HeadlineLabel  string         `json:"headlineLabel"`
	DisplayAlert   *flood.Alert   `json:"displayAlert"`
	Alerts         []flood.Alert  `json:"alerts"`
	ReceivedAt     time.Time      `json:"receivedAt,omitzero"`
	UpdatedAt      time.Time      `json:"updatedAt,omitzero"`
	AcknowledgedAt time.Time      `json:"acknowledgedAt,omitzero"`
}

// View returns the render state. The banner stays visible under the modal;
// the badge is only visible on its own.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.prioritized
	v := View{
		State:          c.state,
		BannerVisible:  c.state == BannerVisible || c.state == ModalVisible,
		BadgeVisible:   c.state == BadgeVisible,
		ModalVisible:   c.state == ModalVisible,
		BadgeCount:     p.Count,
		Batch:          c.batch,
		Headline:       p.Headline,
		HeadlineLabel:  flood.LabelFor(p.Headline).Headline(),
		Alerts:         append([]flood.Alert(nil), p.Alerts...),
		ReceivedAt:     c.receivedAt,
		UpdatedAt:      c.updatedAt,
		AcknowledgedAt: c.acknowledgedAt,
	}
	if p.DisplayAlert != nil {
		display := *p.DisplayAlert
		v.DisplayAlert = &display
	}
	if v.Alerts == nil {
		v.Alerts = []flood.Alert{}
	}
	return v
}
