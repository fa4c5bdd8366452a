// Package domain holds the activity catalog and the service that fronts it.
package domain

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

var (
	// ErrActivityNotFound is returned when the named activity is not in the catalog.
	ErrActivityNotFound = errors.New("activity not found")
	// ErrDuplicateEnrollment is returned when the participant is already on the roster.
	ErrDuplicateEnrollment = errors.New("participant already signed up")
	// ErrNotEnrolled is returned when withdrawing a participant who is not on the roster.
	ErrNotEnrolled = errors.New("participant not signed up")
	// ErrCapacityExceeded is returned in strict mode when the roster is at its ceiling.
	ErrCapacityExceeded = errors.New("activity is full")
	// ErrInvalidSeed wraps every problem found while building a catalog from seeds.
	ErrInvalidSeed = errors.New("invalid seed")
)

// CatalogOption configures optional Catalog behaviour.
type CatalogOption func(*Catalog)

// WithCapacityEnforcement rejects enrollments once a roster reaches MaxParticipants.
func WithCapacityEnforcement() CatalogOption {
	return func(c *Catalog) {
		c.enforceCapacity = true
	}
}

// Catalog owns every activity and its roster. A single lock guards the whole mapping.
type Catalog struct {
	mu              sync.RWMutex
	activities      map[string]*Activity
	enforceCapacity bool
}

// NewCatalog builds the catalog from the bootstrap seeds.
func NewCatalog(seeds []Seed, opts ...CatalogOption) (*Catalog, error) {
	c := &Catalog{activities: make(map[string]*Activity, len(seeds))}
	for _, opt := range opts {
		opt(c)
	}

	var errs error
	for i, s := range seeds {
		name := strings.TrimSpace(s.Name)
		if name == "" {
			errs = errors.Join(errs, fmt.Errorf("%w: seed %d has no name", ErrInvalidSeed, i))
			continue
		}
		if _, exists := c.activities[name]; exists {
			errs = errors.Join(errs, fmt.Errorf("%w: duplicate activity %q", ErrInvalidSeed, name))
			continue
		}
		if s.MaxParticipants < 0 {
			errs = errors.Join(errs, fmt.Errorf("%w: activity %q has negative max participants", ErrInvalidSeed, name))
			continue
		}

		roster := NewRoster()
		for _, p := range s.Participants {
			p = strings.TrimSpace(p)
			if p == "" {
				errs = errors.Join(errs, fmt.Errorf("%w: activity %q has an empty participant", ErrInvalidSeed, name))
				continue
			}
			if !roster.Add(p) {
				errs = errors.Join(errs, fmt.Errorf("%w: activity %q lists %q twice", ErrInvalidSeed, name, p))
			}
		}

		c.activities[name] = &Activity{
			Name:            name,
			Description:     s.Description,
			Schedule:        s.Schedule,
			MaxParticipants: s.MaxParticipants,
			participants:    roster,
		}
	}
	if errs != nil {
		return nil, errs
	}
	return c, nil
}

// List returns a consistent snapshot of every activity keyed by name.
func (c *Catalog) List() map[string]ActivityView {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]ActivityView, len(c.activities))
	for name, activity := range c.activities {
		out[name] = activity.view()
	}
	return out
}

// Enroll adds participant to the named activity's roster.
func (c *Catalog) Enroll(activityName, participant string) (Confirmation, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	activity, ok := c.activities[activityName]
	if !ok {
		return Confirmation{}, fmt.Errorf("%w: %q", ErrActivityNotFound, activityName)
	}
	roster := activity.participants
	if roster.Contains(participant) {
		return Confirmation{}, fmt.Errorf("%w: %s in %q", ErrDuplicateEnrollment, participant, activityName)
	}
	if c.enforceCapacity && activity.MaxParticipants > 0 && roster.Len() >= activity.MaxParticipants {
		return Confirmation{}, fmt.Errorf("%w: %q has %d of %d places taken", ErrCapacityExceeded, activityName, roster.Len(), activity.MaxParticipants)
	}

	roster.Add(participant)
	return Confirmation{
		Activity:    activityName,
		Participant: participant,
		Action:      ActionEnrolled,
		RosterSize:  roster.Len(),
	}, nil
}

// Withdraw removes participant from the named activity's roster.
func (c *Catalog) Withdraw(activityName, participant string) (Confirmation, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	activity, ok := c.activities[activityName]
	if !ok {
		return Confirmation{}, fmt.Errorf("%w: %q", ErrActivityNotFound, activityName)
	}
	if !activity.participants.Remove(participant) {
		return Confirmation{}, fmt.Errorf("%w: %s in %q", ErrNotEnrolled, participant, activityName)
	}

	return Confirmation{
		Activity:    activityName,
		Participant: participant,
		Action:      ActionWithdrawn,
		RosterSize:  activity.participants.Len(),
	}, nil
}
