package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/devx-commerce/medusa-strapi-plugin/internal/domain/commerce"
	"github.com/devx-commerce/medusa-strapi-plugin/internal/domain/shared"
	"github.com/devx-commerce/medusa-strapi-plugin/internal/infrastructure/logger"
	"github.com/devx-commerce/medusa-strapi-plugin/internal/interfaces/http/dto"
	"github.com/devx-commerce/medusa-strapi-plugin/internal/interfaces/http/middleware"
)

// SyncHandler lets an admin trigger a full resync
type SyncHandler struct {
	BaseHandler
	publisher shared.EventPublisher
}

// NewSyncHandler creates a new SyncHandler
func NewSyncHandler(publisher shared.EventPublisher) *SyncHandler {
	return &SyncHandler{publisher: publisher}
}

// TriggerSync handles POST /admin/cms/sync and /admin/strapi/sync.
// It only enqueues the resync events; the work runs on the event bus.
//
// @Summary      Trigger a full CMS sync
// @Description  Enqueues a resync of every product, collection and category. Returns before the sync runs.
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  dto.MessageResponse
// @Failure      401  {object}  dto.ErrorResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      429  {object}  dto.ErrorResponse
// @Failure      500  {object}  dto.ErrorResponse
// @Router       /admin/cms/sync [post]
// @Router       /admin/strapi/sync [post]
func (h *SyncHandler) TriggerSync(c *gin.Context) {
	log := logger.GetGinLogger(c)

	if err := h.publisher.Publish(c.Request.Context(), commerce.NewResyncRound()...); err != nil {
		log.Error("Failed to trigger CMS sync", zap.Error(err))
		h.Error(c, http.StatusInternalServerError, dto.ErrCodeInternal, "Failed to trigger Strapi sync: "+err.Error(), nil)
		return
	}

	log.Info("CMS sync triggered", zap.String("actor_id", middleware.GetActorID(c)))
	c.JSON(http.StatusOK, dto.MessageResponse{Message: "Strapi sync triggered successfully"})
}
