package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/thereayou/ideaverse-chat/internal/database"
	"github.com/thereayou/ideaverse-chat/internal/models"
	"go.uber.org/zap"
)

const maxCreateAttempts = 3

// ChatStore всё, что сервису нужно от хранилища. Реализуется *database.Database.
type ChatStore interface {
	EntityDirectory
	ListPitchedIdeas(ctx context.Context) ([]models.Idea, error)

	CreateRoom(ctx context.Context, room *models.Room, participants []models.Participant) error
	GetRoom(ctx context.Context, id uuid.UUID) (*models.Room, error)
	FindActiveRoom(ctx context.Context, key string) (*models.Room, error)
	GetUserRooms(ctx context.Context, userID uuid.UUID, roomType models.RoomType, limit int) ([]models.Room, error)
	AddParticipant(ctx context.Context, p *models.Participant) error
	EnsureParticipant(ctx context.Context, p *models.Participant) error

	AppendMessage(ctx context.Context, message *models.Message) error
	AppendJoining(ctx context.Context, p *models.Participant, message *models.Message) error
	GetMessage(ctx context.Context, id uint64) (*models.Message, error)
	GetRoomMessages(ctx context.Context, roomID uuid.UUID, limit int, beforeID *uint64) ([]models.Message, error)
	GetLastMessages(ctx context.Context, roomIDs []uuid.UUID) (map[uuid.UUID]models.Message, error)

	MarkRead(ctx context.Context, messageIDs []uint64, userID uuid.UUID, at time.Time) (int64, error)
	UnreadMessageIDs(ctx context.Context, roomID, userID uuid.UUID) ([]uint64, error)
	UnreadCounts(ctx context.Context, roomIDs []uuid.UUID, userID uuid.UUID) (map[uuid.UUID]int64, error)
}

type Options struct {
	HistoryLimit  int
	RoomListLimit int
}

// RoomSummary элемент списка комнат
type RoomSummary struct {
	Room        models.Room
	LastMessage *models.Message
	UnreadCount int64
}

// RoomDetail комната с последними сообщениями
type RoomDetail struct {
	Room     *models.Room
	Messages []models.Message
}

// ChatService общий конвейер для REST и WebSocket
type ChatService struct {
	store ChatStore
	gate  *Gate
	log   *zap.Logger

	historyLimit  int
	roomListLimit int

	locks *keyedMutex
	now   func() time.Time
}

func NewChatService(store ChatStore, gate *Gate, log *zap.Logger, opts Options) *ChatService {
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = 100
	}
	if opts.RoomListLimit <= 0 {
		opts.RoomListLimit = 50
	}
	return &ChatService{
		store:         store,
		gate:          gate,
		log:           log,
		historyLimit:  opts.HistoryLimit,
		roomListLimit: opts.RoomListLimit,
		locks:         newKeyedMutex(),
		now:           func() time.Time { return time.Now().UTC() },
	}
}

func (s *ChatService) Gate() *Gate { return s.gate }

// GetOrCreateRoom находит активную комнату сущности или создаёт её.
// Гонку двух создателей разрешает уникальный active_key: проигравший
// перечитывает комнату победителя.
func (s *ChatService) GetOrCreateRoom(ctx context.Context, ident *Identity, t models.RoomType, entityID uuid.UUID) (*models.Room, error) {
	kind, err := kindFor(t)
	if err != nil {
		return nil, err
	}

	plan, err := kind.plan(ctx, s.store, s.gate, ident, entityID)
	if err != nil {
		return nil, err
	}

	for attempt := 1; attempt <= maxCreateAttempts; attempt++ {
		room, err := s.store.FindActiveRoom(ctx, plan.key)
		if err == nil {
			return s.joinExisting(ctx, room, plan)
		}
		if !errors.Is(err, database.ErrNotFound) {
			return nil, err
		}

		room, err = s.createRoom(ctx, kind.roomType(), plan)
		if err == nil {
			s.log.Info("chat room created",
				zap.String("room_id", room.ID.String()),
				zap.String("type", string(room.Type)),
				zap.String("user_id", ident.UserID.String()),
			)
			return room, nil
		}
		if !errors.Is(err, database.ErrDuplicate) {
			return nil, err
		}

		s.log.Debug("room creation lost the race, retrying",
			zap.String("key", plan.key),
			zap.Int("attempt", attempt),
		)
	}

	return nil, conflict("could not resolve chat room, please retry")
}

func (s *ChatService) createRoom(ctx context.Context, t models.RoomType, plan *roomPlan) (*models.Room, error) {
	now := s.now()
	key := plan.key
	room := &models.Room{
		Name:           plan.name,
		Type:           t,
		IdeaID:         plan.ideaID,
		JobID:          plan.jobID,
		IsActive:       true,
		ActiveKey:      &key,
		LastActivityAt: now,
		CreatedAt:      now,
	}

	participants := make([]models.Participant, len(plan.initial))
	copy(participants, plan.initial)

	if err := s.store.CreateRoom(ctx, room, participants); err != nil {
		return nil, err
	}
	return s.store.GetRoom(ctx, room.ID)
}

func (s *ChatService) joinExisting(ctx context.Context, room *models.Room, plan *roomPlan) (*models.Room, error) {
	if plan.join == nil || room.HasParticipant(plan.join.UserID) {
		return room, nil
	}

	p := *plan.join
	p.RoomID = room.ID
	if err := s.store.EnsureParticipant(ctx, &p); err != nil {
		return nil, err
	}
	return s.store.GetRoom(ctx, room.ID)
}

// accessibleRoom загружает комнату и проверяет доступ
func (s *ChatService) accessibleRoom(ctx context.Context, ident *Identity, roomID uuid.UUID) (*models.Room, error) {
	room, err := s.store.GetRoom(ctx, roomID)
	if err != nil {
		return nil, lookupErr(err, "chat room not found")
	}
	if !s.gate.CanAccess(ident, room) {
		return nil, forbidden("access denied to this chat room")
	}
	return room, nil
}

// CanJoin проверка для подписки на комнату по сокету
func (s *ChatService) CanJoin(ctx context.Context, ident *Identity, roomID uuid.UUID) (*models.Room, error) {
	return s.accessibleRoom(ctx, ident, roomID)
}

// ListRooms активные комнаты пользователя. Неизвестный фильтр типа игнорируется.
func (s *ChatService) ListRooms(ctx context.Context, ident *Identity, typeFilter string) ([]RoomSummary, error) {
	roomType, _ := models.ParseRoomType(typeFilter)
	return s.summaries(ctx, ident, roomType)
}

func (s *ChatService) summaries(ctx context.Context, ident *Identity, roomType models.RoomType) ([]RoomSummary, error) {
	rooms, err := s.store.GetUserRooms(ctx, ident.UserID, roomType, s.roomListLimit)
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(rooms))
	for _, r := range rooms {
		ids = append(ids, r.ID)
	}

	last, err := s.store.GetLastMessages(ctx, ids)
	if err != nil {
		return nil, err
	}
	unread, err := s.store.UnreadCounts(ctx, ids, ident.UserID)
	if err != nil {
		return nil, err
	}

	result := make([]RoomSummary, 0, len(rooms))
	for _, r := range rooms {
		sum := RoomSummary{Room: r, UnreadCount: unread[r.ID]}
		if m, ok := last[r.ID]; ok {
			sum.LastMessage = &m
		}
		result = append(result, sum)
	}
	return result, nil
}

// GetRoomDetail комната и последние сообщения. Открытие комнаты помечает
// всё непрочитанное прочитанным, ответ уже отражает эти отметки.
func (s *ChatService) GetRoomDetail(ctx context.Context, ident *Identity, roomID uuid.UUID) (*RoomDetail, error) {
	room, err := s.accessibleRoom(ctx, ident, roomID)
	if err != nil {
		return nil, err
	}

	if _, err := s.sweep(ctx, ident, room.ID); err != nil {
		return nil, err
	}

	messages, err := s.store.GetRoomMessages(ctx, room.ID, s.historyLimit, nil)
	if err != nil {
		return nil, err
	}

	return &RoomDetail{Room: room, Messages: messages}, nil
}

// HistoryPage страница истории; HasMore - есть ли сообщения старше первой
type HistoryPage struct {
	Messages []models.Message
	HasMore  bool
}

// History страница истории; before - id сообщения, раньше которого читать.
// limit вне (0, historyLimit] приводится к historyLimit.
func (s *ChatService) History(ctx context.Context, ident *Identity, roomID uuid.UUID, limit int, before *uint64) (*HistoryPage, error) {
	room, err := s.accessibleRoom(ctx, ident, roomID)
	if err != nil {
		return nil, err
	}

	if limit <= 0 || limit > s.historyLimit {
		limit = s.historyLimit
	}

	// на одно сообщение больше, чтобы узнать, есть ли ещё
	messages, err := s.store.GetRoomMessages(ctx, room.ID, limit+1, before)
	if err != nil {
		return nil, lookupErr(err, "message not found")
	}

	page := &HistoryPage{Messages: messages}
	if len(messages) > limit {
		page.Messages = messages[len(messages)-limit:]
		page.HasMore = true
	}
	return page, nil
}

// AddInvestor приглашает инвестора в обсуждение идеи
func (s *ChatService) AddInvestor(ctx context.Context, ident *Identity, roomID, investorID uuid.UUID) (*models.Room, error) {
	if err := s.gate.requireInvestor(ident, actInvite); err != nil {
		return nil, err
	}

	room, err := s.store.GetRoom(ctx, roomID)
	if err != nil {
		return nil, lookupErr(err, "investment discussion not found")
	}
	if room.Type != models.RoomInvestment {
		return nil, notFound("investment discussion not found")
	}

	if !s.gate.CanAccess(ident, room) {
		return nil, forbidden("only participants can add investors")
	}

	investor, err := s.store.GetUser(ctx, investorID)
	switch {
	case errors.Is(err, database.ErrNotFound):
		return nil, invalid("invalid investor")
	case err != nil:
		return nil, err
	case investor.Role != models.RoleInvestor:
		return nil, invalid("invalid investor")
	}

	p := &models.Participant{
		RoomID:   room.ID,
		UserID:   investor.ID,
		Role:     models.ParticipantInvestor,
		JoinedAt: s.now(),
	}
	if err := s.store.AddParticipant(ctx, p); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			return nil, alreadyExists("investor is already in this discussion")
		}
		return nil, err
	}

	s.log.Info("investor added to discussion",
		zap.String("room_id", room.ID.String()),
		zap.String("investor_id", investor.ID.String()),
		zap.String("by", ident.UserID.String()),
	)

	return s.store.GetRoom(ctx, room.ID)
}

func (s *ChatService) ListPitchedIdeas(ctx context.Context, ident *Identity) ([]models.Idea, error) {
	if err := s.gate.requireInvestor(ident, actList); err != nil {
		return nil, err
	}
	return s.store.ListPitchedIdeas(ctx)
}

// ListInvestorDiscussions обсуждения, в которых участвует пользователь
func (s *ChatService) ListInvestorDiscussions(ctx context.Context, ident *Identity) ([]RoomSummary, error) {
	if err := s.gate.requireInvestor(ident, actList); err != nil {
		return nil, err
	}
	return s.summaries(ctx, ident, models.RoomInvestment)
}
