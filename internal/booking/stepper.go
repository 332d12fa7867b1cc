package booking

import (
	"strings"
	"sync"
	"time"

	"github.com/kirinyoku/meetly/internal/domain"
)

// Step is one page of the meetup creation wizard.
type Step int

const (
	StepName Step = iota
	StepDate
	StepDescription
	StepDone
)

func (s Step) String() string {
	switch s {
	case StepName:
		return "name"
	case StepDate:
		return "date"
	case StepDescription:
		return "description"
	case StepDone:
		return "done"
	}
	return "unknown"
}

// DateLayout is the accepted format of the date step.
const DateLayout = time.RFC3339

// Stepper walks name, date and description in order. A step only advances
// once its value is non-empty, and Back always goes exactly one step down.
type Stepper struct {
	mu     sync.Mutex
	step   Step
	values [StepDone]string
}

func NewStepper() *Stepper {
	return &Stepper{}
}

func (s *Stepper) Current() Step {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.step
}

// Set stores the input of the current step.
func (s *Stepper) Set(value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.step == StepDone {
		return ErrWizardComplete
	}
	s.values[s.step] = value
	return nil
}

// Next advances one step, or returns a *domain.ValidationError and stays
// put when the current input is empty or malformed.
func (s *Stepper) Next() (Step, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.step == StepDone {
		return s.step, ErrWizardComplete
	}

	v := strings.TrimSpace(s.values[s.step])
	if v == "" {
		return s.step, &domain.ValidationError{Field: s.step.String(), Message: "This field is required"}
	}
	if s.step == StepDate {
		if _, err := time.Parse(DateLayout, v); err != nil {
			return s.step, &domain.ValidationError{Field: s.step.String(), Message: "Please enter a valid date"}
		}
	}

	s.step++
	return s.step, nil
}

// Back goes to the previous step. It is a no-op on the first step.
func (s *Stepper) Back() Step {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.step > StepName {
		s.step--
	}
	return s.step
}

func (s *Stepper) Reset() {
	s.mu.Lock()
	s.step = StepName
	s.values = [StepDone]string{}
	s.mu.Unlock()
}

// Values returns the input of every step keyed by step name.
func (s *Stepper) Values() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]string, len(s.values))
	for i, v := range s.values {
		out[Step(i).String()] = v
	}
	return out
}

// Meetup builds the meetup described by a finished wizard.
func (s *Stepper) Meetup(hostID string) (domain.Meetup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.step != StepDone {
		return domain.Meetup{}, &domain.ValidationError{Field: s.step.String(), Message: "Please complete every step"}
	}

	startsAt, err := time.Parse(DateLayout, strings.TrimSpace(s.values[StepDate]))
	if err != nil {
		return domain.Meetup{}, &domain.ValidationError{Field: StepDate.String(), Message: "Please enter a valid date"}
	}

	return domain.Meetup{
		Title:       strings.TrimSpace(s.values[StepName]),
		Description: strings.TrimSpace(s.values[StepDescription]),
		HostID:      hostID,
		StartsAt:    startsAt,
	}, nil
}
