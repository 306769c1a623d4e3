package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Reclassify godoc
// @ID          reclassifyDomain
// @Summary     Re-run domain classification
// @Description Operator endpoint. Classifies the domain again and overwrites its catalog entry.
// @Tags        Admin
// @Produce     json
// @Param       X-Admin-Token  header    string  true  "Operator token"
// @Param       domain         path      string  true  "Domain"  example(example.com)
// @Success     200            {object}  domain.DomainCatalogEntry
// @Failure     400            {object}  handlers.ErrorResponse  "Bad request"
// @Failure     401            {object}  handlers.ErrorResponse  "Invalid admin token"
// @Router      /admin/catalog/{domain}/reclassify [post]
func (h *Handlers) Reclassify(c *gin.Context) {
	e, err := h.svc.Catalog.Reclassify(c.Request.Context(), c.Param("domain"))
	if err != nil {
		failErr(c, err)
		return
	}
	LoggerFrom(c).Info().Str("domain", e.Domain).Int("safety_score", e.SafetyScore).Msg("domain reclassified")
	ok(c, http.StatusOK, e)
}
