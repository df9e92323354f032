package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jengzang/visits-backend-go/internal/repository"
	"github.com/jengzang/visits-backend-go/internal/service"
	"github.com/jengzang/visits-backend-go/pkg/response"
)

// respondError maps domain errors onto HTTP status codes. Invalid stored
// settings are a server fault here; only the settings update maps them to 400.
func respondError(c *gin.Context, err error, message string) {
	_ = c.Error(err)

	switch {
	case errors.Is(err, repository.ErrNotFound):
		response.NotFound(c, message+": not found")
	case errors.Is(err, service.ErrInvalidInput):
		response.BadRequest(c, message+": "+err.Error())
	default:
		zap.L().Error(message, zap.Error(err))
		response.InternalError(c, message)
	}
}

func parseID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id < 1 {
		response.BadRequest(c, "Invalid "+name)
		return 0, false
	}
	return id, true
}
