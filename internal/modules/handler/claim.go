package handler

import (
	"errors"
	"net/http"

	"github.com/cardkiosk/cardkiosk/internal/middleware"
	"github.com/cardkiosk/cardkiosk/internal/modules/serializer"
	"github.com/cardkiosk/cardkiosk/internal/modules/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ClaimHandler struct {
	svc service.ClaimService
}

func NewClaimHandler(s service.ClaimService) *ClaimHandler {
	return &ClaimHandler{svc: s}
}

type ClaimReq struct {
	ProjectID     string `form:"project_id" json:"project_id" binding:"required,uuid"`
	ClaimPassword string `form:"claim_password" json:"claim_password" binding:"required"`
	Username      string `form:"username" json:"username" binding:"omitempty,max=128"`
}

type ClaimResp struct {
	Success        bool   `json:"success"`
	CardContent    string `json:"card_content,omitempty"`
	AlreadyClaimed bool   `json:"already_claimed"`
	Reason         string `json:"reason,omitempty"`
}

// Claim godoc
//
//	@Summary		Claim a card
//	@Description	Atomically claim one unclaimed card from a project's pool
//	@Tags			claim
//	@Accept			json
//	@Produce		json
//	@Param			payload	body	handler.ClaimReq	true	"Claim payload"
//	@Success		200	{object}	serializer.Response{data=handler.ClaimResp}
//	@Failure		401	{object}	serializer.Response
//	@Failure		403	{object}	serializer.Response
//	@Failure		404	{object}	serializer.Response
//	@Failure		410	{object}	serializer.Response
//	@Router			/claim [post]
func (h *ClaimHandler) Claim(c *gin.Context) {
	req := ClaimReq{}
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}

	projectID, err := uuid.Parse(req.ProjectID)
	if err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}

	out, err := h.svc.Claim(c.Request.Context(), service.ClaimInput{
		ProjectID:     projectID,
		ClaimPassword: req.ClaimPassword,
		ClaimantID:    c.GetString(middleware.ClaimantKey),
		Username:      req.Username,
	})
	if err != nil {
		status, reason := claimFailure(err)
		res := serializer.Err(status, reason, err)
		res.Data = ClaimResp{Reason: reason}
		c.JSON(status, res)
		return
	}

	c.JSON(http.StatusOK, serializer.Response{Data: ClaimResp{
		Success:        true,
		CardContent:    out.CardContent,
		AlreadyClaimed: out.AlreadyClaimed,
	}})
}

// Status godoc
//
//	@Summary		Claim status
//	@Description	Whether the requesting identity has already claimed from a project
//	@Tags			claim
//	@Produce		json
//	@Param			project_id	query	string	true	"Project ID"	Format(uuid)
//	@Success		200	{object}	serializer.Response{data=service.ClaimStatus}
//	@Failure		404	{object}	serializer.Response
//	@Router			/claim/status [get]
func (h *ClaimHandler) Status(c *gin.Context) {
	projectID, err := uuid.Parse(c.Query("project_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}

	out, err := h.svc.Status(c.Request.Context(), projectID, c.GetString(middleware.ClaimantKey))
	if err != nil {
		if errors.Is(err, service.ErrProjectNotFound) {
			c.JSON(http.StatusNotFound, serializer.Err(http.StatusNotFound, "project not found", nil))
			return
		}
		c.JSON(http.StatusInternalServerError, serializer.DBErr("", err))
		return
	}

	c.JSON(http.StatusOK, serializer.Response{Data: out})
}

// claimFailure maps engine rejections onto transport status codes. Exhaustion
// is 410 Gone so clients can render "sold out" instead of "try again".
func claimFailure(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrProjectNotFound):
		return http.StatusNotFound, "project not found"
	case errors.Is(err, service.ErrProjectInactive):
		return http.StatusForbidden, "project is not active"
	case errors.Is(err, service.ErrBadPassword):
		return http.StatusUnauthorized, "wrong claim password"
	case errors.Is(err, service.ErrPoolExhausted):
		return http.StatusGone, "all cards have been claimed"
	case errors.Is(err, service.ErrRaceLost):
		return http.StatusInternalServerError, "claim contention, please retry"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}
