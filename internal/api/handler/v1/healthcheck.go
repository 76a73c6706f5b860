package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/attendry/attendry-api/internal/db"
)

type HealthcheckHandler struct {
	db  *gorm.DB
	rdb *redis.Client
}

func NewHealthcheckHandler(gormDB *gorm.DB, rdb *redis.Client) *HealthcheckHandler {
	return &HealthcheckHandler{
		db:  gormDB,
		rdb: rdb,
	}
}

// HandleHealthcheck godoc
// @Summary      Report service health
// @Tags         system
// @Produce      json
// @Success      200 {object} map[string]string
// @Failure      503 {object} map[string]string
// @Router       / [get]
func (h *HealthcheckHandler) HandleHealthcheck(ctx *gin.Context) {
	status := http.StatusOK
	checks := gin.H{"postgres": "ok", "redis": "ok"}

	if sqlDB, err := h.db.DB(); err != nil || sqlDB.PingContext(ctx.Request.Context()) != nil {
		checks["postgres"] = "down"
		status = http.StatusServiceUnavailable
	}

	if !db.PingRedis(ctx.Request.Context(), h.rdb) {
		checks["redis"] = "down"
		status = http.StatusServiceUnavailable
	}

	ctx.JSON(status, checks)
}
