// Parent endpoints. All of them run behind ParentAuth and OwnsChild, so the
// parent ID in context owns the child in the route.
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-parental-backend/internal/http/middleware"
	"github.com/tbourn/go-parental-backend/internal/services"
)

// GrantRequest restores remaining time for today.
type GrantRequest struct {
	// Password re-authenticates the parent.
	Password string `json:"password" binding:"required,max=128" example:"correct horse battery staple"`
	// Seconds is the remaining time the child should have afterwards.
	Seconds *float64 `json:"seconds" binding:"required" example:"900"`
}

// RuleRequest sets a category or domain rule.
type RuleRequest struct {
	Status string `json:"status" binding:"required" enums:"ALLOWED,BLOCKED,LIMITED" example:"BLOCKED"`
	// LimitMinutes is the budget of a LIMITED category rule. -1 marks the
	// rule as automatic.
	LimitMinutes *int `json:"limit_minutes,omitempty" example:"30"`
}

// CountResponse reports how many rows an action touched.
type CountResponse struct {
	Count int64 `json:"count" example:"3"`
}

// GrantTime godoc
// @ID          grantTime
// @Summary     Grant extra time
// @Description Makes the requested seconds (clamped to the daily limit) the child's remaining time for today by trimming recorded usage, largest categories kept first. Requires the parent's password. Without a daily limit nothing changes.
// @Tags        Parent
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       childId  path      string                 true  "Child ID"  format(uuid)
// @Param       body     body      handlers.GrantRequest  true  "Grant"
// @Success     200      {object}  services.GrantResult
// @Failure     400      {object}  handlers.ErrorResponse  "Bad request"
// @Failure     401      {object}  handlers.ErrorResponse  "Authentication failed"
// @Failure     403      {object}  handlers.ErrorResponse  "Not your child"
// @Failure     404      {object}  handlers.ErrorResponse  "Child not found"
// @Failure     500      {object}  handlers.ErrorResponse  "Internal error"
// @Router      /children/{childId}/grant [post]
func (h *Handlers) GrantTime(c *gin.Context) {
	var req GrantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "password and seconds required")
		return
	}
	res, err := h.svc.Grant.Grant(c.Request.Context(), middleware.ParentID(c), childID(c), req.Password, wholeSeconds(req.Seconds))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, res)
}

// ResetUsage godoc
// @ID          resetUsage
// @Summary     Reset today's timer
// @Description Deletes all of today's usage for the child.
// @Tags        Parent
// @Produce     json
// @Security    BearerAuth
// @Param       childId  path      string  true  "Child ID"  format(uuid)
// @Success     200      {object}  handlers.CountResponse
// @Failure     401      {object}  handlers.ErrorResponse  "Unauthorized"
// @Failure     403      {object}  handlers.ErrorResponse  "Not your child"
// @Failure     500      {object}  handlers.ErrorResponse  "Internal error"
// @Router      /children/{childId}/usage/reset [post]
func (h *Handlers) ResetUsage(c *gin.Context) {
	n, err := h.svc.Usage.ResetToday(c.Request.Context(), childID(c))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, CountResponse{Count: n})
}

// ListRules godoc
// @ID          listRules
// @Summary     List rules
// @Tags        Parent
// @Produce     json
// @Security    BearerAuth
// @Param       childId  path      string  true  "Child ID"  format(uuid)
// @Success     200      {object}  services.RuleSet
// @Failure     401      {object}  handlers.ErrorResponse  "Unauthorized"
// @Failure     403      {object}  handlers.ErrorResponse  "Not your child"
// @Router      /children/{childId}/rules [get]
func (h *Handlers) ListRules(c *gin.Context) {
	rs, err := h.svc.Rules.List(c.Request.Context(), childID(c))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, rs)
}

// PutCategoryRule godoc
// @ID          upsertCategoryRule
// @Summary     Set a category rule
// @Tags        Parent
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       childId   path      string                true  "Child ID"  format(uuid)
// @Param       category  path      string                true  "Category name"  example(Gaming)
// @Param       body      body      handlers.RuleRequest  true  "Rule"
// @Success     200       {object}  services.CategoryRuleView
// @Failure     400       {object}  handlers.ErrorResponse  "Bad request"
// @Failure     403       {object}  handlers.ErrorResponse  "Not your child"
// @Router      /children/{childId}/rules/categories/{category} [put]
func (h *Handlers) PutCategoryRule(c *gin.Context) {
	var req RuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "status required")
		return
	}
	v, err := h.svc.Rules.UpsertCategoryRule(c.Request.Context(), childID(c), c.Param("category"), req.Status, req.LimitMinutes)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, v)
}

// DeleteCategoryRule godoc
// @ID          deleteCategoryRule
// @Summary     Remove a category rule
// @Tags        Parent
// @Security    BearerAuth
// @Param       childId   path  string  true  "Child ID"  format(uuid)
// @Param       category  path  string  true  "Category name"
// @Success     204  {string}  string  "No Content"
// @Failure     404  {object}  handlers.ErrorResponse  "Rule not found"
// @Router      /children/{childId}/rules/categories/{category} [delete]
func (h *Handlers) DeleteCategoryRule(c *gin.Context) {
	if err := h.svc.Rules.DeleteCategoryRule(c.Request.Context(), childID(c), c.Param("category")); err != nil {
		failErr(c, err)
		return
	}
	noContent(c)
}

// PutDomainRule godoc
// @ID          upsertDomainRule
// @Summary     Set a domain rule
// @Description Blocks or allows one domain. Unknown domains are catalogued as Custom without classification.
// @Tags        Parent
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       childId  path      string                true  "Child ID"  format(uuid)
// @Param       domain   path      string                true  "Domain"  example(example.com)
// @Param       body     body      handlers.RuleRequest  true  "Rule (ALLOWED or BLOCKED)"
// @Success     200      {object}  services.URLRuleView
// @Failure     400      {object}  handlers.ErrorResponse  "Bad request"
// @Router      /children/{childId}/rules/domains/{domain} [put]
func (h *Handlers) PutDomainRule(c *gin.Context) {
	var req RuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "status required")
		return
	}
	v, err := h.svc.Rules.UpsertURLRule(c.Request.Context(), childID(c), c.Param("domain"), req.Status, req.LimitMinutes)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, v)
}

// DeleteDomainRule godoc
// @ID          deleteDomainRule
// @Summary     Remove a domain rule
// @Tags        Parent
// @Security    BearerAuth
// @Param       childId  path  string  true  "Child ID"  format(uuid)
// @Param       domain   path  string  true  "Domain"
// @Success     204  {string}  string  "No Content"
// @Failure     404  {object}  handlers.ErrorResponse  "Rule not found"
// @Router      /children/{childId}/rules/domains/{domain} [delete]
func (h *Handlers) DeleteDomainRule(c *gin.Context) {
	if err := h.svc.Rules.DeleteURLRule(c.Request.Context(), childID(c), c.Param("domain")); err != nil {
		failErr(c, err)
		return
	}
	noContent(c)
}

// GetSettings godoc
// @ID          getSettings
// @Summary     Time budget and limits
// @Description Returns the time budget in the requested units (seconds by default; minutes for older clients) with app and category limits.
// @Tags        Parent
// @Produce     json
// @Security    BearerAuth
// @Param       childId  path      string  true   "Child ID"  format(uuid)
// @Param       units    query     string  false  "seconds or minutes"  Enums(seconds, minutes)
// @Success     200      {object}  services.Settings
// @Failure     400      {object}  handlers.ErrorResponse  "Bad request"
// @Router      /children/{childId}/settings [get]
func (h *Handlers) GetSettings(c *gin.Context) {
	s, err := h.svc.Rules.GetSettings(c.Request.Context(), childID(c), strings.TrimSpace(c.Query("units")))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, s)
}

// PutSettings godoc
// @ID          replaceSettings
// @Summary     Replace time budget and limits
// @Description Replaces the budget and both limit lists in one transaction. The units field (or query) states the unit of the budget values.
// @Tags        Parent
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       childId  path      string             true   "Child ID"  format(uuid)
// @Param       units    query     string             false  "seconds or minutes"  Enums(seconds, minutes)
// @Param       body     body      services.Settings  true   "Settings"
// @Success     200      {object}  services.Settings
// @Failure     400      {object}  handlers.ErrorResponse  "Bad request"
// @Router      /children/{childId}/settings [put]
func (h *Handlers) PutSettings(c *gin.Context) {
	var in services.Settings
	if err := c.ShouldBindJSON(&in); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	if in.Units == "" {
		in.Units = strings.TrimSpace(c.Query("units"))
	}
	out, err := h.svc.Rules.ReplaceSettings(c.Request.Context(), childID(c), in)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, out)
}
