// Child-facing endpoints called by the browser extension:
//   - POST /children/{childId}/check      (navigation decision)
//   - POST /children/{childId}/heartbeat  (usage accounting)
//   - GET  /children/{childId}/status     (remaining time)
//
// The extension is identified only by the child in the route; middleware
// has already checked that the child exists.
package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-parental-backend/internal/http/middleware"
	"github.com/tbourn/go-parental-backend/internal/repo"
	"github.com/tbourn/go-parental-backend/internal/services"
	"github.com/tbourn/go-parental-backend/internal/sysutil"
)

// CheckRequest asks whether a URL may be opened.
type CheckRequest struct {
	URL string `json:"url" binding:"required,max=4096" example:"https://www.example.com/watch?v=1"`
	// DryRun evaluates without recording history, alerts or automatic rules.
	DryRun bool `json:"dry_run" example:"false"`
}

// HeartbeatRequest reports time spent on a URL.
type HeartbeatRequest struct {
	URL string `json:"url" binding:"required,max=4096" example:"https://www.example.com/watch?v=1"`
	// Seconds since the previous heartbeat, as a number or numeric string.
	// Clamped server-side; missing or unusable values count as 60.
	Seconds json.RawMessage `json:"seconds" swaggertype:"number" example:"60"`
}

// StatusResponse is today's quota plus per-category usage.
type StatusResponse struct {
	services.DailyStatus
	Categories []repo.CategoryUsage `json:"categories"`
}

// CheckURL godoc
// @ID          checkUrl
// @Summary     Decide whether a URL may be opened
// @Description Runs the rule cascade for the child. Unknown domains are classified on first sight. With dry_run nothing is recorded.
// @Tags        Child
// @Accept      json
// @Produce     json
// @Param       childId  path      string                  true   "Child ID"  format(uuid)
// @Param       dry_run  query     bool                    false  "Evaluate without side effects"
// @Param       body     body      handlers.CheckRequest   true   "URL to check"
// @Success     200      {object}  services.CheckResult
// @Failure     400      {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404      {object}  handlers.ErrorResponse  "Child not found"
// @Failure     500      {object}  handlers.ErrorResponse  "Internal error"
// @Router      /children/{childId}/check [post]
func (h *Handlers) CheckURL(c *gin.Context) {
	var req CheckRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.URL) == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "url required")
		return
	}
	dry := req.DryRun || sysutil.IsTruthy(c.Query("dry_run"))

	res, err := h.svc.Policy.Check(c.Request.Context(), childID(c), req.URL, dry)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, res)
}

// Heartbeat godoc
// @ID          recordHeartbeat
// @Summary     Record browsing time
// @Description Adds the reported seconds (clamped to 1..300, default 60) to today's usage and returns whether the page must now be blocked. An Idempotency-Key makes retries safe.
// @Tags        Child
// @Accept      json
// @Produce     json
// @Param       childId          path      string                     true   "Child ID"  format(uuid)
// @Param       Idempotency-Key  header    string                     false  "Retry key"  example(hb-7f3c)
// @Param       body             body      handlers.HeartbeatRequest  true   "Heartbeat"
// @Success     200              {object}  services.HeartbeatResult
// @Failure     400              {object}  handlers.ErrorResponse     "Bad request"
// @Failure     404              {object}  handlers.ErrorResponse     "Child not found"
// @Failure     429              {object}  handlers.ErrorResponse     "Too many requests"
// @Failure     500              {object}  handlers.ErrorResponse     "Internal error"
// @Router      /children/{childId}/heartbeat [post]
func (h *Handlers) Heartbeat(c *gin.Context) {
	var req HeartbeatRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.URL) == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "url required")
		return
	}
	key, _ := middleware.GetIdempotencyKey(c)

	res, err := h.svc.Usage.Heartbeat(c.Request.Context(), childID(c), req.URL, heartbeatSeconds(req.Seconds), key)
	if err != nil {
		failErr(c, err)
		return
	}
	if res.Replayed {
		c.Header("Idempotent-Replayed", "true")
	}
	ok(c, http.StatusOK, res)
}

// Status godoc
// @ID          getDailyStatus
// @Summary     Today's quota
// @Description Returns used, limit and remaining seconds for today together with per-category usage.
// @Tags        Child
// @Produce     json
// @Param       childId  path      string                  true  "Child ID"  format(uuid)
// @Success     200      {object}  handlers.StatusResponse
// @Failure     404      {object}  handlers.ErrorResponse  "Child not found"
// @Failure     500      {object}  handlers.ErrorResponse  "Internal error"
// @Router      /children/{childId}/status [get]
func (h *Handlers) Status(c *gin.Context) {
	ctx := c.Request.Context()
	id := childID(c)

	st, err := h.svc.Quota.Status(ctx, id)
	if err != nil {
		failErr(c, err)
		return
	}
	cats, err := h.svc.Usage.Breakdown(ctx, id)
	if err != nil {
		failErr(c, err)
		return
	}
	if cats == nil {
		cats = []repo.CategoryUsage{}
	}
	ok(c, http.StatusOK, StatusResponse{DailyStatus: st, Categories: cats})
}
