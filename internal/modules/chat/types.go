package chat

import "errors"

var (
	errChatNotFound   = errors.New("chat not found")
	errNotParticipant = errors.New("not a participant of this chat")
	errNotAdmin       = errors.New("only the group admin may do this")
	errNotGroupChat   = errors.New("not a group chat")
)

type CreateChatDTO struct {
	Name           string   `json:"name"`
	IsGroupChat    bool     `json:"isGroupChat"`
	ParticipantIDs []string `json:"participantIds" binding:"required,min=1"`
}

type AddMembersDTO struct {
	UserIDs []string `json:"userIds" binding:"required,min=1"`
}
