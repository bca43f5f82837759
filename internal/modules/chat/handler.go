package chat

import (
	"errors"

	"github.com/chatspace/core/internal/middleware"
	"github.com/chatspace/core/internal/pkg/response"
	"github.com/gin-gonic/gin"
)

type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/chats", authMW)
	g.GET("", h.list)
	g.POST("", h.create)
	g.GET("/:id", h.getByID)
	g.DELETE("/:id", h.delete)
	g.POST("/:id/members", h.addMembers)
	g.DELETE("/:id/members/:userId", h.removeMember)
}

func (h *Handler) list(c *gin.Context) {
	chats, err := h.svc.ListForUser(middleware.CurrentUserID(c))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, chats)
}

func (h *Handler) create(c *gin.Context) {
	var dto CreateChatDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, "Participants are required")
		return
	}
	if dto.IsGroupChat && dto.Name == "" {
		response.BadRequest(c, "Group name is required for group chat")
		return
	}

	chat, created, err := h.svc.Create(middleware.CurrentUserID(c), &dto)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if !created {
		response.OK(c, chat)
		return
	}
	response.Created(c, "Chat created", chat)
}

func (h *Handler) getByID(c *gin.Context) {
	userID := middleware.CurrentUserID(c)
	chat, err := h.svc.GetByID(c.Param("id"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if chat == nil {
		response.NotFound(c, "Chat not found")
		return
	}
	if ok, err := h.svc.IsParticipant(chat.ID, userID); err != nil {
		response.InternalError(c, err)
		return
	} else if !ok {
		response.Forbidden(c, "Not authorized to access this chat")
		return
	}
	response.OK(c, chat)
}

func (h *Handler) delete(c *gin.Context) {
	err := h.svc.Delete(c.Param("id"), middleware.CurrentUserID(c))
	switch {
	case err == nil:
		response.OKMsg(c, "Chat deleted")
	case errors.Is(err, errChatNotFound):
		response.NotFound(c, err.Error())
	case errors.Is(err, errNotAdmin):
		response.Forbidden(c, err.Error())
	default:
		response.InternalError(c, err)
	}
}

func (h *Handler) addMembers(c *gin.Context) {
	var dto AddMembersDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, "User ids are required")
		return
	}

	chat, err := h.svc.AddMembers(c.Param("id"), middleware.CurrentUserID(c), dto.UserIDs)
	switch {
	case err == nil:
		response.OK(c, chat)
	case errors.Is(err, errChatNotFound):
		response.NotFound(c, err.Error())
	case errors.Is(err, errNotGroupChat):
		response.BadRequest(c, err.Error())
	case errors.Is(err, errNotParticipant):
		response.Forbidden(c, err.Error())
	default:
		response.InternalError(c, err)
	}
}

func (h *Handler) removeMember(c *gin.Context) {
	err := h.svc.RemoveMember(c.Param("id"), middleware.CurrentUserID(c), c.Param("userId"))
	switch {
	case err == nil:
		response.OKMsg(c, "Member removed")
	case errors.Is(err, errChatNotFound):
		response.NotFound(c, err.Error())
	case errors.Is(err, errNotGroupChat):
		response.BadRequest(c, err.Error())
	case errors.Is(err, errNotAdmin):
		response.Forbidden(c, err.Error())
	default:
		response.InternalError(c, err)
	}
}
