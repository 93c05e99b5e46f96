package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/vovakirdan/dsolution-crm/internal/service/catalog"
	"github.com/vovakirdan/dsolution-crm/internal/store"
)

// CatalogHandlers serves the service catalog.
type CatalogHandlers struct {
	catalog *catalog.Service
	log     *zerolog.Logger
}

// NewCatalogHandlers creates catalog handlers.
func NewCatalogHandlers(svc *catalog.Service, logger *zerolog.Logger) *CatalogHandlers {
	return &CatalogHandlers{catalog: svc, log: logger}
}

// ServiceResponse is one catalog entry.
type ServiceResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// List returns the catalog.
// GET /api/services
func (h *CatalogHandlers) List(c *gin.Context) {
	services, err := h.catalog.List(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list services")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusOK, lo.Map(services, func(s *store.Service, _ int) ServiceResponse {
		return ServiceResponse{ID: s.ID, Name: s.Name, Description: s.Description}
	}))
}
