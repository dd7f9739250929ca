package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/area-service/internal/api/dto"
	"github.com/spec-kit/area-service/internal/domain"
	"github.com/spec-kit/area-service/internal/events"
	"github.com/spec-kit/area-service/internal/repository"
)

// AreaInput carries raw area fields; nil means absent.
type AreaInput struct {
	Name               *string
	Category           *string
	Location           *string
	LocationPoint      []float64
	UpdatedAtTimestamp *int64
}

// AreaService manages areas and announces every committed mutation.
type AreaService struct {
	areas      repository.AreaRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
	maxLimit   int
	now        func() time.Time
}

// AreaDependencies encapsulates collaborators of the area service.
type AreaDependencies struct {
	AreaRepo   repository.AreaRepository
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	MaxLimit   int
}

// NewAreaService builds the service.
func NewAreaService(deps AreaDependencies) *AreaService {
	s := &AreaService{
		areas:      deps.AreaRepo,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
		maxLimit:   deps.MaxLimit,
		now:        time.Now,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.maxLimit <= 0 {
		s.maxLimit = 5
	}
	return s
}

// Add validates input, stores a new area for owner and publishes area-added.
func (s *AreaService) Add(ctx context.Context, owner *domain.User, in AreaInput) (*domain.Area, error) {
	problems := fieldErrors{}

	name, msg := requireString("Area name", in.Name)
	if msg != "" {
		problems.add("name", "area-name-invalid", msg)
	}
	category, msg := parseCategory(in.Category)
	if msg != "" {
		problems.add("category", "area-category-invalid", msg)
	}
	location, msg := requireString("Area location", in.Location)
	if msg != "" {
		problems.add("location", "area-location-invalid", msg)
	}
	if in.LocationPoint != nil {
		if msg := validateLocationPoint(in.LocationPoint); msg != "" {
			problems.add("location_point", "area-location-point-invalid", msg)
		}
	}
	if err := problems.err("area-add-failed", "Area add failed"); err != nil {
		return nil, err
	}

	now := s.timestamp()
	area := &domain.Area{
		ID:            uuid.NewString(),
		OwnerID:       owner.ID,
		Name:          name,
		Category:      category,
		Location:      location,
		LocationPoint: in.LocationPoint,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.areas.Create(ctx, area); err != nil {
		return nil, fmt.Errorf("create area: %w", err)
	}

	s.publish(ctx, events.EventAreaAdded, area, owner)
	return area, nil
}

// Update applies the present fields of in to one of owner's areas and
// publishes area-updated. A supplied updated_at_timestamp must match the
// stored one.
func (s *AreaService) Update(ctx context.Context, owner *domain.User, id string, in AreaInput) (*domain.Area, error) {
	area, err := s.Get(ctx, owner, id)
	if err != nil {
		return nil, err
	}

	problems := fieldErrors{}
	if in.Name != nil {
		if name, msg := requireString("Area name", in.Name); msg != "" {
			problems.add("name", "area-name-invalid", msg)
		} else {
			area.Name = name
		}
	}
	if in.Category != nil {
		if category, msg := parseCategory(in.Category); msg != "" {
			problems.add("category", "area-category-invalid", msg)
		} else {
			area.Category = category
		}
	}
	if in.Location != nil {
		if location, msg := requireString("Area location", in.Location); msg != "" {
			problems.add("location", "area-location-invalid", msg)
		} else {
			area.Location = location
		}
	}
	if in.LocationPoint != nil {
		if msg := validateLocationPoint(in.LocationPoint); msg != "" {
			problems.add("location_point", "area-location-point-invalid", msg)
		} else {
			area.LocationPoint = in.LocationPoint
		}
	}
	if in.UpdatedAtTimestamp != nil && *in.UpdatedAtTimestamp != area.UpdatedAt.UnixMilli() {
		problems.add("updated_at_timestamp", "area-updated-at-timestamp-invalid",
			"Area was modified since it was last read")
	}
	if err := problems.err("area-update-failed", "Area update failed"); err != nil {
		return nil, err
	}

	area.UpdatedAt = s.timestamp()
	if err := s.areas.Update(ctx, area); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAreaNotFound.Wrap(err)
		}
		return nil, fmt.Errorf("update area: %w", err)
	}

	s.publish(ctx, events.EventAreaUpdated, area, owner)
	return area, nil
}

// Delete removes one of owner's areas and publishes area-deleted with the
// last snapshot.
func (s *AreaService) Delete(ctx context.Context, owner *domain.User, id string) (*domain.Area, error) {
	area, err := s.Get(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	if err := s.areas.Delete(ctx, area.ID, owner.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAreaNotFound.Wrap(err)
		}
		return nil, fmt.Errorf("delete area: %w", err)
	}

	s.publish(ctx, events.EventAreaDeleted, area, owner)
	return area, nil
}

// Get returns one of owner's areas.
func (s *AreaService) Get(ctx context.Context, owner *domain.User, id string) (*domain.Area, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrAreaNotFound
	}
	area, err := s.areas.GetByIDAndOwner(ctx, id, owner.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAreaNotFound.Wrap(err)
		}
		return nil, fmt.Errorf("get area: %w", err)
	}
	return area, nil
}

// List returns page (0-based) of owner's areas, newest first. limit is capped
// at the configured maximum; zero selects the maximum.
func (s *AreaService) List(ctx context.Context, owner *domain.User, page, limit int) (dto.Page[dto.AreaResponse], error) {
	if page < 0 {
		return dto.Page[dto.AreaResponse]{}, ErrPageInvalid
	}
	if limit < 0 {
		return dto.Page[dto.AreaResponse]{}, ErrLimitInvalid
	}
	if limit == 0 || limit > s.maxLimit {
		limit = s.maxLimit
	}
	if page > math.MaxInt/limit {
		return dto.Page[dto.AreaResponse]{}, ErrPageInvalid
	}

	areas, total, err := s.areas.ListByOwner(ctx, owner.ID, limit, page*limit)
	if err != nil {
		return dto.Page[dto.AreaResponse]{}, fmt.Errorf("list areas: %w", err)
	}

	items := make([]dto.AreaResponse, 0, len(areas))
	for i := range areas {
		items = append(items, dto.NewAreaResponse(&areas[i], owner))
	}
	return dto.NewPage(items, total, page, limit), nil
}

func (s *AreaService) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Millisecond)
}

// publish runs after the mutation was stored; it never fails the request.
func (s *AreaService) publish(ctx context.Context, kind events.EventKind, area *domain.Area, owner *domain.User) {
	if s.dispatcher == nil {
		return
	}
	payload, err := json.Marshal(dto.NewAreaResponse(area, owner))
	if err != nil {
		s.logger.Error("encode area snapshot", zap.String("area_id", area.ID), zap.Error(err))
		return
	}
	s.dispatcher.Publish(ctx, events.NewEvent(kind, owner.ID, payload))
}

func parseCategory(raw *string) (domain.AreaCategory, string) {
	if raw == nil {
		return domain.AreaCategoryUnknown, "Area category cannot be empty"
	}
	category := domain.ParseAreaCategory(*raw)
	if !category.Valid() {
		return domain.AreaCategoryUnknown, "Area category couldn't be found inside the predefined list"
	}
	return category, ""
}

// validateLocationPoint expects [longitude, latitude].
func validateLocationPoint(point []float64) string {
	if len(point) != 2 {
		return "Area location point must contain exactly two coordinates"
	}
	lng, lat := point[0], point[1]
	if math.IsNaN(lng) || math.IsNaN(lat) || math.Abs(lng) > 180 || math.Abs(lat) > 90 {
		return "Area location point is out of range"
	}
	return ""
}
