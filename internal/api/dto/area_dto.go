package dto

import (
	"encoding/json"
	"strconv"

	"github.com/spec-kit/area-service/internal/domain"
)

// CategoryValue accepts a category either as its numeric key or its name.
// Values of any other JSON type are kept verbatim and fail validation later.
type CategoryValue string

// UnmarshalJSON implements json.Unmarshaler.
func (v *CategoryValue) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*v = CategoryValue(s)
		return nil
	}
	*v = CategoryValue(b)
	return nil
}

// AreaWriteRequest is the body of area create and update calls. Absent fields
// are nil; on update they are left untouched.
type AreaWriteRequest struct {
	Name               *string        `json:"name"`
	Category           *CategoryValue `json:"category"`
	Location           *string        `json:"location"`
	LocationPoint      []float64      `json:"location_point"`
	UpdatedAtTimestamp *int64         `json:"updated_at_timestamp"`
}

// AreaResponse is the area snapshot returned over HTTP and pushed to the
// owner's realtime connections.
type AreaResponse struct {
	ID                 string      `json:"id"`
	Owner              UserProfile `json:"owner"`
	Name               string      `json:"name"`
	Category           int         `json:"category"`
	HasImage           bool        `json:"has_image"`
	NoDevices          int         `json:"no_devices"`
	NoControllers      int         `json:"no_controllers"`
	Location           string      `json:"location"`
	LocationPoint      []float64   `json:"location_point"`
	UpdatedAtTimestamp int64       `json:"updated_at_timestamp"`
}

// NewAreaResponse maps a domain area and its owner.
func NewAreaResponse(a *domain.Area, owner *domain.User) AreaResponse {
	point := a.LocationPoint
	if point == nil {
		point = []float64{}
	}
	return AreaResponse{
		ID:                 a.ID,
		Owner:              NewUserProfile(owner),
		Name:               a.Name,
		Category:           int(a.Category),
		Location:           a.Location,
		LocationPoint:      point,
		UpdatedAtTimestamp: a.UpdatedAt.UnixMilli(),
	}
}

// AreaCategoriesResponse maps category keys to display names.
func AreaCategoriesResponse() map[string]string {
	out := make(map[string]string)
	for _, c := range domain.AreaCategories() {
		out[strconv.Itoa(int(c))] = c.String()
	}
	return out
}
