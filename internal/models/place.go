package models

// Point is a WGS84 coordinate pair
type Point struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Trip groups regions and places under a single owner
type Trip struct {
	ID        int64  `json:"id" db:"id"`
	UserID    string `json:"userId" db:"user_id"`
	Name      string `json:"name" db:"name"`
	CreatedAt int64  `json:"createdAt" db:"created_at"` // Unix milliseconds
}

// Region is a named area inside a trip
type Region struct {
	ID        int64  `json:"id" db:"id"`
	TripID    int64  `json:"tripId" db:"trip_id"`
	Name      string `json:"name" db:"name"`
	CreatedAt int64  `json:"createdAt" db:"created_at"`
}

// Place is a point of interest a user can visit.
// A place is owned either directly (UserID) or through its region's trip.
type Place struct {
	ID        int64    `json:"id" db:"id"`
	UserID    *string  `json:"userId,omitempty" db:"user_id"`
	RegionID  *int64   `json:"regionId,omitempty" db:"region_id"`
	Name      string   `json:"name" db:"name"`
	Notes     string   `json:"notes,omitempty" db:"notes"`
	Icon      string   `json:"icon,omitempty" db:"icon"`
	Color     string   `json:"color,omitempty" db:"color"`
	Latitude  *float64 `json:"latitude,omitempty" db:"latitude"`
	Longitude *float64 `json:"longitude,omitempty" db:"longitude"`
	CreatedAt int64    `json:"createdAt" db:"created_at"`
	UpdatedAt int64    `json:"updatedAt" db:"updated_at"`
}

// HasLocation reports whether the place can take part in visit detection
func (p Place) HasLocation() bool {
	return p.Latitude != nil && p.Longitude != nil
}

// PlaceSnapshot is the read-only place/region/trip join copied into a visit
// at confirmation time.
type PlaceSnapshot struct {
	PlaceID    int64
	PlaceName  string
	Notes      string
	Icon       string
	Color      string
	Latitude   *float64
	Longitude  *float64
	RegionID   *int64
	RegionName string
	TripID     *int64
	TripName   string
}

// PlaceMatch is the nearest eligible place for a ping
type PlaceMatch struct {
	PlaceID        int64   `json:"placeId"`
	DistanceMeters float64 `json:"distanceMeters"`
}

// PlacesResponse represents a paginated response of places
type PlacesResponse struct {
	Data       []Place `json:"data"`
	Total      int64   `json:"total"`
	Page       int     `json:"page"`
	PageSize   int     `json:"pageSize"`
	TotalPages int     `json:"totalPages"`
}

// CreateTripRequest is the body of POST /api/v1/trips
type CreateTripRequest struct {
	Name string `json:"name" binding:"required"`
}

// CreateRegionRequest is the body of POST /api/v1/trips/:id/regions
type CreateRegionRequest struct {
	Name string `json:"name" binding:"required"`
}

// CreatePlaceRequest is the body of POST /api/v1/places
type CreatePlaceRequest struct {
	RegionID  *int64   `json:"regionId"`
	Name      string   `json:"name" binding:"required"`
	Notes     string   `json:"notes"`
	Icon      string   `json:"icon"`
	Color     string   `json:"color"`
	Latitude  *float64 `json:"latitude" binding:"omitempty,min=-90,max=90"`
	Longitude *float64 `json:"longitude" binding:"omitempty,min=-180,max=180"`
}
