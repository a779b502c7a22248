package trip

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/autocompanion/autocompanion/internal/apperr"
	"github.com/autocompanion/autocompanion/internal/itinerary"
)

// Planner produces raw itinerary text for a request
type Planner interface {
	Plan(ctx context.Context, req itinerary.TripRequest) (string, error)
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

// defaultTimeSource provides the current time
type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Result is what a successful generation returns to the caller.
type Result struct {
	TripID    uint64           `json:"trip_id"`
	Itinerary []itinerary.Item `json:"itinerary"`
}

// Service handles trip operations
type Service struct {
	db         DB
	planner    Planner
	timeSource TimeSource
}

// NewService creates a new Service with the default time source
func NewService(db DB, planner Planner) *Service {
	return NewServiceWithDeps(db, planner, &defaultTimeSource{})
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(db DB, planner Planner, timeSrc TimeSource) *Service {
	return &Service{
		db:         db,
		planner:    planner,
		timeSource: timeSrc,
	}
}

// Generate plans a trip for userID, stores it and returns its items.
// Origin, destination, a positive day count and style are required; when
// any is missing nothing is generated or stored.
func (s *Service) Generate(ctx context.Context, userID string, req itinerary.TripRequest) (*Result, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	text, err := s.planner.Plan(ctx, req)
	if err != nil {
		slog.Error("Failed to generate itinerary",
			"user_id", userID,
			"from", req.Origin,
			"to", req.Destination,
			"error", err,
		)
		return nil, err
	}

	items := itinerary.SplitItems(text)

	trip := &Trip{
		UserID:    userID,
		FromPlace: req.Origin,
		ToPlace:   req.Destination,
		Days:      *req.DayCount,
		Style:     req.Style,
		AIRawText: text,
		CreatedAt: s.timeSource.Now(),
	}
	if err := s.db.CreateTrip(ctx, trip); err != nil {
		return nil, fmt.Errorf("saving trip: %w", err)
	}

	slog.Info("Trip generated", "trip_id", trip.ID, "user_id", userID, "items", len(items))

	return &Result{TripID: trip.ID, Itinerary: items}, nil
}

// Get returns trip id if it belongs to userID. Another user's trip is
// reported as not found.
func (s *Service) Get(ctx context.Context, userID string, id uint64) (*Trip, error) {
	trip, err := s.db.GetTrip(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("getting trip: %w", err)
	}
	if trip.UserID != userID {
		return nil, fmt.Errorf("getting trip: trip %d: %w", id, apperr.ErrNotFound)
	}
	return trip, nil
}

func validate(req itinerary.TripRequest) error {
	var missing []string
	if strings.TrimSpace(req.Origin) == "" {
		missing = append(missing, "from")
	}
	if strings.TrimSpace(req.Destination) == "" {
		missing = append(missing, "to")
	}
	if req.DayCount == nil || *req.DayCount <= 0 {
		missing = append(missing, "days")
	}
	if strings.TrimSpace(req.Style) == "" {
		missing = append(missing, "style")
	}
	if len(missing) > 0 {
		return apperr.Validation("missing fields in request body: %s", strings.Join(missing, ", "))
	}
	return nil
}
