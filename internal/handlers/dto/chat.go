package dto

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/thereayou/ideaverse-chat/internal/models"
)

// SendMessageRequest тело POST /rooms/:roomId/messages
type SendMessageRequest struct {
	Text        string            `json:"text"`
	Attachments []json.RawMessage `json:"attachments,omitempty"`
}

type DirectRoomRequest struct {
	UserID string `json:"userId" binding:"required"`
}

type AddInvestorRequest struct {
	InvestorID string `json:"investorId" binding:"required"`
}

type UserInfo struct {
	ID   uuid.UUID       `json:"id"`
	Name string          `json:"name"`
	Role models.UserRole `json:"role"`
}

type ParticipantResponse struct {
	UserID   uuid.UUID              `json:"userId"`
	Name     string                 `json:"name"`
	Role     models.ParticipantRole `json:"role"`
	JoinedAt time.Time              `json:"joinedAt"`
	IsOnline *bool                  `json:"isOnline,omitempty"`
}

type MessageResponse struct {
	ID          uint64          `json:"id"`
	RoomID      uuid.UUID       `json:"roomId"`
	SenderID    uuid.UUID       `json:"senderId"`
	Text        string          `json:"text"`
	Attachments json.RawMessage `json:"attachments"`
	CreatedAt   time.Time       `json:"createdAt"`
	Sender      *UserInfo       `json:"sender,omitempty"`
	ReadBy      []uuid.UUID     `json:"readBy"`
}

type RoomResponse struct {
	ID             uuid.UUID             `json:"id"`
	Name           string                `json:"name"`
	Type           models.RoomType       `json:"type"`
	IdeaID         *uuid.UUID            `json:"ideaId,omitempty"`
	JobID          *uuid.UUID            `json:"jobId,omitempty"`
	IsActive       bool                  `json:"isActive"`
	LastActivityAt time.Time             `json:"lastActivityAt"`
	CreatedAt      time.Time             `json:"createdAt"`
	Participants   []ParticipantResponse `json:"participants"`
	LastMessage    *MessageResponse      `json:"lastMessage,omitempty"`
	UnreadCount    int64                 `json:"unreadCount"`
	OnlineCount    int                   `json:"onlineCount"`
}

type RoomDetailResponse struct {
	RoomResponse
	Messages []MessageResponse `json:"messages"`
}

type MessagesPage struct {
	Messages []MessageResponse `json:"messages"`
	HasMore  bool              `json:"hasMore"`
}

type MarkReadResponse struct {
	RoomID uuid.UUID `json:"roomId"`
	Marked int64     `json:"marked"`
}

type IdeaResponse struct {
	ID          uuid.UUID  `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	PitchedAt   *time.Time `json:"pitchedAt,omitempty"`
	CreatedBy   *UserInfo  `json:"createdBy,omitempty"`
}

func NewUserInfo(u *models.User) *UserInfo {
	if u == nil || u.ID == uuid.Nil {
		return nil
	}
	return &UserInfo{ID: u.ID, Name: u.Name, Role: u.Role}
}

func NewMessageResponse(m *models.Message) MessageResponse {
	readBy := make([]uuid.UUID, 0, len(m.ReadBy))
	for _, r := range m.ReadBy {
		readBy = append(readBy, r.UserID)
	}

	attachments := json.RawMessage(m.Attachments)
	if len(attachments) == 0 {
		attachments = json.RawMessage("[]")
	}

	return MessageResponse{
		ID:          m.ID,
		RoomID:      m.RoomID,
		SenderID:    m.SenderID,
		Text:        m.Text,
		Attachments: attachments,
		CreatedAt:   m.CreatedAt,
		Sender:      NewUserInfo(&m.Sender),
		ReadBy:      readBy,
	}
}

func NewMessageResponses(messages []models.Message) []MessageResponse {
	result := make([]MessageResponse, 0, len(messages))
	for i := range messages {
		result = append(result, NewMessageResponse(&messages[i]))
	}
	return result
}

func NewParticipantResponse(p *models.Participant) ParticipantResponse {
	return ParticipantResponse{
		UserID:   p.UserID,
		Name:     p.User.Name,
		Role:     p.Role,
		JoinedAt: p.JoinedAt,
	}
}

func NewRoomResponse(r *models.Room) RoomResponse {
	participants := make([]ParticipantResponse, 0, len(r.Participants))
	for i := range r.Participants {
		participants = append(participants, NewParticipantResponse(&r.Participants[i]))
	}

	return RoomResponse{
		ID:             r.ID,
		Name:           r.Name,
		Type:           r.Type,
		IdeaID:         r.IdeaID,
		JobID:          r.JobID,
		IsActive:       r.IsActive,
		LastActivityAt: r.LastActivityAt,
		CreatedAt:      r.CreatedAt,
		Participants:   participants,
	}
}

func NewIdeaResponse(i *models.Idea) IdeaResponse {
	return IdeaResponse{
		ID:          i.ID,
		Title:       i.Title,
		Description: i.Description,
		PitchedAt:   i.PitchedAt,
		CreatedBy:   NewUserInfo(&i.CreatedBy),
	}
}

// MeResponse профиль текущего пользователя
type MeResponse struct {
	ID        uuid.UUID       `json:"id"`
	Name      string          `json:"name"`
	Email     string          `json:"email"`
	Role      models.UserRole `json:"role"`
	CreatedAt time.Time       `json:"createdAt"`
}

func NewMeResponse(u *models.User) MeResponse {
	return MeResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}
