// Report endpoints: visit history (paginated, weak ETag) and alerts.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-parental-backend/internal/domain"
	"github.com/tbourn/go-parental-backend/internal/sysutil"
	"github.com/tbourn/go-parental-backend/internal/utils"
)

const (
	defaultAlertLimit = 50
	maxAlertLimit     = 200
)

// MarkSentRequest lists alerts the parent app has delivered.
type MarkSentRequest struct {
	IDs []string `json:"ids" binding:"required,min=1,max=500"`
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// HistoryResponse wraps a page of visits and pagination information.
type HistoryResponse struct {
	Items      []domain.VisitHistoryEvent `json:"items"`
	Pagination Pagination                 `json:"pagination"`
}

// History godoc
// @ID          listHistory
// @Summary     Visit history (paginated)
// @Description Newest visits first. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Reports
// @Produce     json
// @Security    BearerAuth
// @Param       childId        path    string  true   "Child ID"  format(uuid)
// @Param       If-None-Match  header  string  false  "Return 304 if ETag matches"
// @Param       page           query   int     false  "Page number"     minimum(1) default(1)
// @Param       page_size      query   int     false  "Items per page"  minimum(1) maximum(100) default(20)
// @Success     200  {object}  handlers.HistoryResponse
// @Header      200  {string}  ETag  "Weak ETag for current result"
// @Success     304  {string}  string  "Not Modified"
// @Failure     403  {object}  handlers.ErrorResponse  "Not your child"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /children/{childId}/history [get]
func (h *Handlers) History(c *gin.Context) {
	ctx := c.Request.Context()
	id := childID(c)
	page, pageSize := clampPagination(c)

	// ETag pre-check (best effort).
	if etag, err := h.svc.Reports.HistoryETag(ctx, id); err == nil {
		if notModified(c, etag) {
			return
		}
	} else {
		LoggerFrom(c).Warn().Err(err).Msg("history etag")
	}

	hp, err := h.svc.Reports.History(ctx, id, page, pageSize)
	if err != nil {
		failErr(c, err)
		return
	}
	if hp.PageSize < 1 {
		hp.PageSize = pageSize
	}
	totalPages := int((hp.Total + int64(hp.PageSize) - 1) / int64(hp.PageSize))
	ok(c, http.StatusOK, HistoryResponse{
		Items: hp.Items,
		Pagination: Pagination{
			Page:       hp.Page,
			PageSize:   hp.PageSize,
			Total:      hp.Total,
			TotalPages: totalPages,
			HasNext:    hp.Page < totalPages,
		},
	})
}

// Alerts godoc
// @ID          listAlerts
// @Summary     Alerts
// @Description Newest first, with total and unsent counts.
// @Tags        Reports
// @Produce     json
// @Security    BearerAuth
// @Param       childId  path      string  true   "Child ID"  format(uuid)
// @Param       unsent   query     bool    false  "Only alerts not yet delivered"
// @Param       limit    query     int     false  "Max items"  minimum(1) maximum(200) default(50)
// @Success     200      {object}  services.AlertSummary
// @Failure     403      {object}  handlers.ErrorResponse  "Not your child"
// @Router      /children/{childId}/alerts [get]
func (h *Handlers) Alerts(c *gin.Context) {
	limit := utils.AtoiClamp(c.Query("limit"), defaultAlertLimit, 1, maxAlertLimit)
	res, err := h.svc.Reports.Alerts(c.Request.Context(), childID(c), sysutil.IsTruthy(c.Query("unsent")), limit)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, res)
}

// MarkAlertsSent godoc
// @ID          markAlertsSent
// @Summary     Mark alerts delivered
// @Tags        Reports
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       childId  path      string                    true  "Child ID"  format(uuid)
// @Param       body     body      handlers.MarkSentRequest  true  "Alert IDs"
// @Success     200      {object}  handlers.CountResponse
// @Failure     400      {object}  handlers.ErrorResponse  "Bad request"
// @Router      /children/{childId}/alerts/mark-sent [post]
func (h *Handlers) MarkAlertsSent(c *gin.Context) {
	var req MarkSentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "ids required (1-500)")
		return
	}
	n, err := h.svc.Reports.MarkAlertsSent(c.Request.Context(), childID(c), req.IDs)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, CountResponse{Count: n})
}
