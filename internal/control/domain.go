// internal/control/domain.go
package control

import (
	"strings"

	"github.com/google/uuid"

	"grccore/internal/domain"
)

const AggregateType = "control"

// Lifecycle is the control state machine: planned -> implemented -> retired.
type Lifecycle string

const (
	Planned     Lifecycle = "planned"
	Implemented Lifecycle = "implemented"
	Retired     Lifecycle = "retired"
)

const (
	EventControlCreated     = "ControlCreated"
	EventControlImplemented = "ControlImplemented"
	EventControlReassessed  = "ControlReassessed"
	EventControlRetired     = "ControlRetired"
)

type CreatedPayload struct {
	Name         string    `json:"name"`
	FrameworkRef string    `json:"framework_ref"`
	State        Lifecycle `json:"state"`
}

type ImplementedPayload struct {
	Effectiveness int       `json:"effectiveness"`
	State         Lifecycle `json:"state"`
}

type ReassessedPayload struct {
	Effectiveness int `json:"effectiveness"`
}

type RetiredPayload struct {
	State Lifecycle `json:"state"`
}

func RegisterEvents(r *domain.Registry) {
	r.Register(EventControlCreated, func() any { return new(CreatedPayload) })
	r.Register(EventControlImplemented, func() any { return new(ImplementedPayload) })
	r.Register(EventControlReassessed, func() any { return new(ReassessedPayload) })
	r.Register(EventControlRetired, func() any { return new(RetiredPayload) })
}

// Control is a compliance measure mapped to a framework requirement.
type Control struct {
	domain.Root
	Name          string                     `json:"name"`
	FrameworkRef  string                     `json:"framework_ref"`
	Effectiveness domain.EffectivenessRating `json:"effectiveness"`
	State         Lifecycle                  `json:"state"`
}

func (c *Control) AggregateType() string { return AggregateType }

// New creates a planned control and raises ControlCreated.
func New(name, frameworkRef string) (*Control, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, &domain.ValidationError{Field: "name", Reason: "must not be empty"}
	}
	c := &Control{
		Root:         domain.Root{ID: uuid.New()},
		Name:         name,
		FrameworkRef: frameworkRef,
		State:        Planned,
	}
	if err := c.Raise(EventControlCreated, CreatedPayload{Name: name, FrameworkRef: frameworkRef, State: Planned}); err != nil {
		return nil, err
	}
	return c, nil
}

// Implement marks a planned control as implemented with an initial
// effectiveness rating.
func (c *Control) Implement(rating int) error {
	if err := domain.Guard("implement", string(c.State), string(Planned)); err != nil {
		return err
	}
	effectiveness, err := domain.NewEffectivenessRating(rating)
	if err != nil {
		return err
	}
	if err := c.Raise(EventControlImplemented, ImplementedPayload{Effectiveness: effectiveness.Int(), State: Implemented}); err != nil {
		return err
	}
	c.Effectiveness = effectiveness
	c.State = Implemented
	return nil
}

// Reassess updates the effectiveness rating of an implemented control.
func (c *Control) Reassess(rating int) error {
	if err := domain.Guard("reassess", string(c.State), string(Implemented)); err != nil {
		return err
	}
	effectiveness, err := domain.NewEffectivenessRating(rating)
	if err != nil {
		return err
	}
	if err := c.Raise(EventControlReassessed, ReassessedPayload{Effectiveness: effectiveness.Int()}); err != nil {
		return err
	}
	c.Effectiveness = effectiveness
	return nil
}

// Retire takes an implemented control out of service.
func (c *Control) Retire() error {
	if err := domain.Guard("retire", string(c.State), string(Implemented)); err != nil {
		return err
	}
	if err := c.Raise(EventControlRetired, RetiredPayload{State: Retired}); err != nil {
		return err
	}
	c.State = Retired
	return nil
}
