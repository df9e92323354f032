package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jengzang/visits-backend-go/internal/middleware"
	"github.com/jengzang/visits-backend-go/internal/models"
	"github.com/jengzang/visits-backend-go/internal/service"
	"github.com/jengzang/visits-backend-go/pkg/response"
)

// PlaceHandler handles HTTP requests for trips, regions and places
type PlaceHandler struct {
	service *service.PlaceService
}

// NewPlaceHandler creates a new place handler
func NewPlaceHandler(service *service.PlaceService) *PlaceHandler {
	return &PlaceHandler{service: service}
}

// CreateTrip handles POST /api/v1/trips
func (h *PlaceHandler) CreateTrip(c *gin.Context) {
	var req models.CreateTripRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid trip: "+err.Error())
		return
	}

	trip, err := h.service.CreateTrip(c.Request.Context(), middleware.UserID(c), req)
	if err != nil {
		respondError(c, err, "Failed to create trip")
		return
	}

	response.Created(c, trip)
}

// CreateRegion handles POST /api/v1/trips/:id/regions
func (h *PlaceHandler) CreateRegion(c *gin.Context) {
	tripID, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req models.CreateRegionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid region: "+err.Error())
		return
	}

	region, err := h.service.CreateRegion(c.Request.Context(), middleware.UserID(c), tripID, req)
	if err != nil {
		respondError(c, err, "Failed to create region")
		return
	}

	response.Created(c, region)
}

// CreatePlace handles POST /api/v1/places
func (h *PlaceHandler) CreatePlace(c *gin.Context) {
	var req models.CreatePlaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid place: "+err.Error())
		return
	}

	place, err := h.service.CreatePlace(c.Request.Context(), middleware.UserID(c), req)
	if err != nil {
		respondError(c, err, "Failed to create place")
		return
	}

	response.Created(c, place)
}

// GetPlaces handles GET /api/v1/places
func (h *PlaceHandler) GetPlaces(c *gin.Context) {
	var filter models.PlaceFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.BadRequest(c, "Invalid query parameters")
		return
	}

	result, err := h.service.GetPlaces(c.Request.Context(), middleware.UserID(c), filter)
	if err != nil {
		respondError(c, err, "Failed to get places")
		return
	}

	response.Success(c, result)
}

// GetPlaceByID handles GET /api/v1/places/:id
func (h *PlaceHandler) GetPlaceByID(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	place, err := h.service.GetPlaceByID(c.Request.Context(), middleware.UserID(c), id)
	if err != nil {
		respondError(c, err, "Failed to get place")
		return
	}

	response.Success(c, place)
}

// GetPlacesGeoJSON handles GET /api/v1/places/geojson
func (h *PlaceHandler) GetPlacesGeoJSON(c *gin.Context) {
	var filter models.PlaceFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.BadRequest(c, "Invalid query parameters")
		return
	}

	fc, err := h.service.GetPlacesGeoJSON(c.Request.Context(), middleware.UserID(c), filter)
	if err != nil {
		respondError(c, err, "Failed to get places")
		return
	}

	c.JSON(http.StatusOK, fc)
}
