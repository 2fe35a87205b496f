package handler

import (
	"errors"
	"net/http"

	"github.com/cardkiosk/cardkiosk/internal/modules/serializer"
	"github.com/cardkiosk/cardkiosk/internal/modules/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AdminPasswordHeader carries the project admin password on management calls.
const AdminPasswordHeader = "X-Admin-Password"

type ProjectHandler struct {
	svc service.ProjectService
}

func NewProjectHandler(s service.ProjectService) *ProjectHandler {
	return &ProjectHandler{svc: s}
}

type CreateProjectReq struct {
	Name                string                 `form:"name" json:"name" binding:"required,max=128"`
	Description         string                 `form:"description" json:"description"`
	ClaimPassword       string                 `form:"claim_password" json:"claim_password" binding:"omitempty,max=128"`
	AdminPassword       string                 `form:"admin_password" json:"admin_password" binding:"omitempty,max=128"`
	OneClaimPerIdentity *bool                  `form:"one_claim_per_identity" json:"one_claim_per_identity"`
	Cards               []string               `form:"cards" json:"cards"`
	Settings            map[string]interface{} `form:"settings" json:"settings"`
}

type CreateProjectResp struct {
	ID                  uuid.UUID `json:"id"`
	Name                string    `json:"name"`
	ClaimPassword       string    `json:"claim_password"`
	AdminPassword       string    `json:"admin_password"`
	OneClaimPerIdentity bool      `json:"one_claim_per_identity"`
	TotalCards          int64     `json:"total_cards"`
}

// CreateProject godoc
//
//	@Summary		Create project
//	@Description	Create a card pool with an initial card batch. Omitted passwords are generated.
//	@Tags			project
//	@Accept			json
//	@Produce		json
//	@Param			payload	body	handler.CreateProjectReq	true	"CreateProject payload"
//	@Success		201	{object}	serializer.Response{data=handler.CreateProjectResp}
//	@Router			/project [post]
func (h *ProjectHandler) CreateProject(c *gin.Context) {
	req := CreateProjectReq{}
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}

	oneClaim := true
	if req.OneClaimPerIdentity != nil {
		oneClaim = *req.OneClaimPerIdentity
	}

	p, err := h.svc.Create(c.Request.Context(), service.CreateProjectInput{
		Name:                req.Name,
		Description:         req.Description,
		ClaimPassword:       req.ClaimPassword,
		AdminPassword:       req.AdminPassword,
		OneClaimPerIdentity: oneClaim,
		Cards:               req.Cards,
		Settings:            req.Settings,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, serializer.DBErr("", err))
		return
	}

	// Passwords are echoed exactly once, on creation.
	c.JSON(http.StatusCreated, serializer.Response{Data: CreateProjectResp{
		ID:                  p.ID,
		Name:                p.Name,
		ClaimPassword:       p.ClaimPassword,
		AdminPassword:       p.AdminPassword,
		OneClaimPerIdentity: p.OneClaimPerIdentity,
		TotalCards:          p.TotalCards,
	}})
}

// GetProject godoc
//
//	@Summary		Get project
//	@Description	Admin view of a project including counters
//	@Tags			project
//	@Produce		json
//	@Param			project_id			path	string	true	"Project ID"	Format(uuid)
//	@Param			X-Admin-Password	header	string	true	"Admin password"
//	@Success		200	{object}	serializer.Response{data=model.Project}
//	@Router			/project/{project_id} [get]
func (h *ProjectHandler) GetProject(c *gin.Context) {
	projectID, ok := projectIDParam(c)
	if !ok {
		return
	}

	p, err := h.svc.Get(c.Request.Context(), projectID, c.GetHeader(AdminPasswordHeader))
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, serializer.Response{Data: p})
}

type UpdateProjectReq struct {
	Name                *string                `form:"name" json:"name" binding:"omitempty,max=128"`
	Description         *string                `form:"description" json:"description"`
	ClaimPassword       *string                `form:"claim_password" json:"claim_password" binding:"omitempty,max=128"`
	AdminPassword       *string                `form:"admin_password" json:"admin_password" binding:"omitempty,max=128"`
	IsActive            *bool                  `form:"is_active" json:"is_active"`
	OneClaimPerIdentity *bool                  `form:"one_claim_per_identity" json:"one_claim_per_identity"`
	Settings            map[string]interface{} `form:"settings" json:"settings"`
}

// UpdateProject godoc
//
//	@Summary		Update project
//	@Description	Partial update: rename, re-describe, rotate passwords, toggle flags
//	@Tags			project
//	@Accept			json
//	@Produce		json
//	@Param			project_id			path	string					true	"Project ID"	Format(uuid)
//	@Param			X-Admin-Password	header	string					true	"Admin password"
//	@Param			payload				body	handler.UpdateProjectReq	true	"UpdateProject payload"
//	@Success		200	{object}	serializer.Response{data=model.Project}
//	@Router			/project/{project_id} [patch]
func (h *ProjectHandler) UpdateProject(c *gin.Context) {
	projectID, ok := projectIDParam(c)
	if !ok {
		return
	}

	req := UpdateProjectReq{}
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}

	p, err := h.svc.Update(c.Request.Context(), projectID, c.GetHeader(AdminPasswordHeader), service.UpdateProjectInput{
		Name:                req.Name,
		Description:         req.Description,
		ClaimPassword:       req.ClaimPassword,
		AdminPassword:       req.AdminPassword,
		IsActive:            req.IsActive,
		OneClaimPerIdentity: req.OneClaimPerIdentity,
		Settings:            req.Settings,
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, serializer.Response{Data: p})
}

// DeleteProject godoc
//
//	@Summary		Delete project
//	@Description	Delete a project; its cards and ledger entries cascade
//	@Tags			project
//	@Produce		json
//	@Param			project_id			path	string	true	"Project ID"	Format(uuid)
//	@Param			X-Admin-Password	header	string	true	"Admin password"
//	@Success		200	{object}	serializer.Response
//	@Router			/project/{project_id} [delete]
func (h *ProjectHandler) DeleteProject(c *gin.Context) {
	projectID, ok := projectIDParam(c)
	if !ok {
		return
	}

	if err := h.svc.Delete(c.Request.Context(), projectID, c.GetHeader(AdminPasswordHeader)); err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, serializer.Response{})
}

type AddCardsReq struct {
	Cards []string `form:"cards" json:"cards" binding:"required,min=1"`
}

type AddCardsResp struct {
	Added int64 `json:"added"`
}

// AddCards godoc
//
//	@Summary		Add cards
//	@Description	Append a card batch to the project's pool
//	@Tags			project
//	@Accept			json
//	@Produce		json
//	@Param			project_id			path	string				true	"Project ID"	Format(uuid)
//	@Param			X-Admin-Password	header	string				true	"Admin password"
//	@Param			payload				body	handler.AddCardsReq	true	"AddCards payload"
//	@Success		200	{object}	serializer.Response{data=handler.AddCardsResp}
//	@Router			/project/{project_id}/cards [post]
func (h *ProjectHandler) AddCards(c *gin.Context) {
	projectID, ok := projectIDParam(c)
	if !ok {
		return
	}

	req := AddCardsReq{}
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}

	added, err := h.svc.AddCards(c.Request.Context(), projectID, c.GetHeader(AdminPasswordHeader), req.Cards)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, serializer.Response{Data: AddCardsResp{Added: added}})
}

// RemoveCard godoc
//
//	@Summary		Remove card
//	@Description	Remove an unclaimed card; claimed cards are immutable
//	@Tags			project
//	@Produce		json
//	@Param			project_id			path	string	true	"Project ID"	Format(uuid)
//	@Param			card_id				path	string	true	"Card ID"		Format(uuid)
//	@Param			X-Admin-Password	header	string	true	"Admin password"
//	@Success		200	{object}	serializer.Response
//	@Failure		409	{object}	serializer.Response
//	@Router			/project/{project_id}/cards/{card_id} [delete]
func (h *ProjectHandler) RemoveCard(c *gin.Context) {
	projectID, ok := projectIDParam(c)
	if !ok {
		return
	}
	cardID, err := uuid.Parse(c.Param("card_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}

	if err := h.svc.RemoveCard(c.Request.Context(), projectID, c.GetHeader(AdminPasswordHeader), cardID); err != nil {
		if errors.Is(err, service.ErrCardLocked) {
			c.JSON(http.StatusConflict, serializer.Err(http.StatusConflict, "card already claimed", nil))
			return
		}
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, serializer.Response{})
}

// ListCards godoc
//
//	@Summary		List cards
//	@Description	Admin listing of a project's cards, claimed state included
//	@Tags			project
//	@Produce		json
//	@Param			project_id			path	string	true	"Project ID"	Format(uuid)
//	@Param			X-Admin-Password	header	string	true	"Admin password"
//	@Success		200	{object}	serializer.Response{data=[]model.Card}
//	@Router			/project/{project_id}/cards [get]
func (h *ProjectHandler) ListCards(c *gin.Context) {
	projectID, ok := projectIDParam(c)
	if !ok {
		return
	}

	cards, err := h.svc.ListCards(c.Request.Context(), projectID, c.GetHeader(AdminPasswordHeader))
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, serializer.Response{Data: cards})
}

type RecentClaimsReq struct {
	Limit int `form:"limit,default=50" binding:"omitempty,min=1,max=200"`
}

// RecentClaims godoc
//
//	@Summary		Recent claims
//	@Description	Ledger page for a project, most recent first
//	@Tags			project
//	@Produce		json
//	@Param			project_id			path	string	true	"Project ID"	Format(uuid)
//	@Param			limit				query	integer	false	"Max entries to return, default 50"
//	@Param			X-Admin-Password	header	string	true	"Admin password"
//	@Success		200	{object}	serializer.Response{data=[]model.ClaimRecord}
//	@Router			/project/{project_id}/claims [get]
func (h *ProjectHandler) RecentClaims(c *gin.Context) {
	projectID, ok := projectIDParam(c)
	if !ok {
		return
	}

	req := RecentClaimsReq{}
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}

	recs, err := h.svc.RecentClaims(c.Request.Context(), projectID, c.GetHeader(AdminPasswordHeader), req.Limit)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, serializer.Response{Data: recs})
}

type ExportLedgerResp struct {
	URL string `json:"url"`
}

// ExportLedger godoc
//
//	@Summary		Export ledger
//	@Description	Upload the project's claim ledger as CSV and return a presigned download URL
//	@Tags			project
//	@Produce		json
//	@Param			project_id			path	string	true	"Project ID"	Format(uuid)
//	@Param			X-Admin-Password	header	string	true	"Admin password"
//	@Success		200	{object}	serializer.Response{data=handler.ExportLedgerResp}
//	@Router			/project/{project_id}/export [post]
func (h *ProjectHandler) ExportLedger(c *gin.Context) {
	projectID, ok := projectIDParam(c)
	if !ok {
		return
	}

	url, err := h.svc.ExportLedger(c.Request.Context(), projectID, c.GetHeader(AdminPasswordHeader))
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, serializer.Response{Data: ExportLedgerResp{URL: url}})
}

func (h *ProjectHandler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrProjectNotFound):
		c.JSON(http.StatusNotFound, serializer.Err(http.StatusNotFound, "project not found", nil))
	case errors.Is(err, service.ErrBadPassword):
		c.JSON(http.StatusUnauthorized, serializer.AuthErr("wrong admin password"))
	default:
		c.JSON(http.StatusInternalServerError, serializer.DBErr("", err))
	}
}

func projectIDParam(c *gin.Context) (uuid.UUID, bool) {
	projectID, err := uuid.Parse(c.Param("project_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return uuid.Nil, false
	}
	return projectID, true
}
