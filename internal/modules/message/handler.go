package message

import (
	"errors"

	"github.com/chatspace/core/internal/middleware"
	"github.com/chatspace/core/internal/pkg/pagination"
	"github.com/chatspace/core/internal/pkg/response"
	"github.com/gin-gonic/gin"
)

type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/messages", authMW)
	g.GET("/:chatId", h.list)
	g.POST("", h.send)
	g.PUT("/:id", h.update)
	g.DELETE("/:id", h.delete)
	g.PATCH("/:id/read", h.markRead)
}

func (h *Handler) list(c *gin.Context) {
	messages, pag, err := h.svc.ListForChat(c.Param("chatId"), middleware.CurrentUserID(c), pagination.FromContext(c))
	if err != nil {
		if errors.Is(err, errNotParticipant) {
			response.Forbidden(c, err.Error())
			return
		}
		response.InternalError(c, err)
		return
	}
	response.Paged(c, messages, pag)
}

func (h *Handler) send(c *gin.Context) {
	var dto SendMessageDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, "Chat ID is required")
		return
	}

	msg, err := h.svc.Send(middleware.CurrentUserID(c), &dto)
	if err != nil {
		if errors.Is(err, errNotParticipant) {
			response.Forbidden(c, err.Error())
			return
		}
		response.BadRequest(c, err.Error())
		return
	}
	response.Created(c, "Message sent", msg)
}

func (h *Handler) update(c *gin.Context) {
	var dto UpdateMessageDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, "Message content is required")
		return
	}

	msg, err := h.svc.Update(c.Param("id"), middleware.CurrentUserID(c), &dto)
	switch {
	case err == nil:
		response.OK(c, msg)
	case errors.Is(err, errMessageNotFound):
		response.NotFound(c, err.Error())
	case errors.Is(err, errNotSender):
		response.Forbidden(c, err.Error())
	default:
		response.InternalError(c, err)
	}
}

func (h *Handler) delete(c *gin.Context) {
	err := h.svc.Delete(c.Param("id"), middleware.CurrentUserID(c))
	switch {
	case err == nil:
		response.OKMsg(c, "Message deleted")
	case errors.Is(err, errMessageNotFound):
		response.NotFound(c, err.Error())
	case errors.Is(err, errNotSender):
		response.Forbidden(c, err.Error())
	default:
		response.InternalError(c, err)
	}
}

func (h *Handler) markRead(c *gin.Context) {
	msg, err := h.svc.FindMessageByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if msg == nil {
		response.NotFound(c, "Message not found")
		return
	}

	if _, err := h.svc.AppendReadMark(c.Request.Context(), msg.ID, middleware.CurrentUserID(c)); err != nil {
		response.InternalError(c, err)
		return
	}
	response.OKMsg(c, "Message marked as read")
}
