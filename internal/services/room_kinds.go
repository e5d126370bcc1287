package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/thereayou/ideaverse-chat/internal/database"
	"github.com/thereayou/ideaverse-chat/internal/models"
)

// EntityDirectory доступ к сущностям платформы, от которых зависит членство
type EntityDirectory interface {
	UserDirectory
	GetIdea(ctx context.Context, id uuid.UUID) (*models.Idea, error)
	GetJob(ctx context.Context, id uuid.UUID) (*models.Job, error)
	HasApplied(ctx context.Context, jobID, userID uuid.UUID) (bool, error)
}

// roomPlan результат разбора запроса на комнату: как её найти, как создать
// и кем войти в уже существующую
type roomPlan struct {
	key     string
	name    string
	ideaID  *uuid.UUID
	jobID   *uuid.UUID
	initial []models.Participant
	// join nil - запрашивающий не становится участником (админ в чужой вакансии)
	join *models.Participant
}

// roomKind у каждого типа комнаты свои правила доступа и начального состава
type roomKind interface {
	roomType() models.RoomType
	plan(ctx context.Context, dir EntityDirectory, gate *Gate, ident *Identity, entityID uuid.UUID) (*roomPlan, error)
}

func kindFor(t models.RoomType) (roomKind, error) {
	switch t {
	case models.RoomProject:
		return projectKind{}, nil
	case models.RoomJob:
		return jobKind{}, nil
	case models.RoomInvestment:
		return investmentKind{}, nil
	case models.RoomDirect:
		return directKind{}, nil
	}
	return nil, invalid(fmt.Sprintf("unknown room type %q", t))
}

func activeKey(t models.RoomType, ids ...uuid.UUID) string {
	key := string(t)
	for _, id := range ids {
		key += ":" + id.String()
	}
	return key
}

func participant(userID uuid.UUID, role models.ParticipantRole) models.Participant {
	return models.Participant{UserID: userID, Role: role, JoinedAt: time.Now().UTC()}
}

func lookupErr(err error, msg string) error {
	if errors.Is(err, database.ErrNotFound) {
		return notFound(msg)
	}
	return err
}

type projectKind struct{}

func (projectKind) roomType() models.RoomType { return models.RoomProject }

func (projectKind) plan(ctx context.Context, dir EntityDirectory, gate *Gate, ident *Identity, ideaID uuid.UUID) (*roomPlan, error) {
	idea, err := dir.GetIdea(ctx, ideaID)
	if err != nil {
		return nil, lookupErr(err, "idea not found")
	}

	isCreator := idea.CreatedByID == ident.UserID
	if !isCreator && !gate.Allowed(ident.Role, objRoom, actOverride) {
		return nil, forbidden("access denied to this project chat")
	}

	initial := []models.Participant{participant(idea.CreatedByID, models.ParticipantCreator)}
	join := participant(ident.UserID, models.ParticipantRole(ident.Role))
	if isCreator {
		join.Role = models.ParticipantCreator
	} else {
		initial = append(initial, join)
	}

	return &roomPlan{
		key:     activeKey(models.RoomProject, idea.ID),
		name:    "Project: " + idea.Title,
		ideaID:  &idea.ID,
		initial: initial,
		join:    &join,
	}, nil
}

type jobKind struct{}

func (jobKind) roomType() models.RoomType { return models.RoomJob }

func (jobKind) plan(ctx context.Context, dir EntityDirectory, gate *Gate, ident *Identity, jobID uuid.UUID) (*roomPlan, error) {
	job, err := dir.GetJob(ctx, jobID)
	if err != nil {
		return nil, lookupErr(err, "job not found")
	}

	isRecruiter := job.PostedByID == ident.UserID
	isApplicant := false
	if !isRecruiter {
		isApplicant, err = dir.HasApplied(ctx, job.ID, ident.UserID)
		if err != nil {
			return nil, err
		}
	}

	if !isRecruiter && !isApplicant && !gate.Allowed(ident.Role, objRoom, actOverride) {
		return nil, forbidden("access denied to this job chat")
	}

	p := &roomPlan{
		key:     activeKey(models.RoomJob, job.ID),
		name:    "Job: " + job.Title,
		jobID:   &job.ID,
		initial: []models.Participant{participant(job.PostedByID, models.ParticipantRecruiter)},
	}

	switch {
	case isRecruiter:
		join := participant(ident.UserID, models.ParticipantRecruiter)
		p.join = &join
	case isApplicant:
		join := participant(ident.UserID, models.ParticipantFreelancer)
		p.join = &join
		p.initial = append(p.initial, join)
	}

	return p, nil
}

type investmentKind struct{}

func (investmentKind) roomType() models.RoomType { return models.RoomInvestment }

func (investmentKind) plan(ctx context.Context, dir EntityDirectory, gate *Gate, ident *Identity, ideaID uuid.UUID) (*roomPlan, error) {
	if err := gate.requireInvestor(ident, actOpen); err != nil {
		return nil, err
	}

	idea, err := dir.GetIdea(ctx, ideaID)
	if err != nil {
		return nil, lookupErr(err, "idea not found")
	}
	if !idea.IsPitched {
		return nil, invalid("this idea has not been pitched yet")
	}

	role := models.ParticipantInvestor
	if ident.IsAdmin() {
		role = models.ParticipantAdmin
	}
	join := participant(ident.UserID, role)

	return &roomPlan{
		key:     activeKey(models.RoomInvestment, idea.ID),
		name:    "Investment Discussion: " + idea.Title,
		ideaID:  &idea.ID,
		initial: []models.Participant{join},
		join:    &join,
	}, nil
}

// directKind личная переписка; entityID - собеседник
type directKind struct{}

func (directKind) roomType() models.RoomType { return models.RoomDirect }

func (directKind) plan(ctx context.Context, dir EntityDirectory, _ *Gate, ident *Identity, peerID uuid.UUID) (*roomPlan, error) {
	if peerID == ident.UserID {
		return nil, invalid("cannot create direct room with yourself")
	}

	peer, err := dir.GetUser(ctx, peerID)
	if err != nil {
		return nil, lookupErr(err, "user not found")
	}
	if peer.IsBlocked {
		return nil, forbidden("user is blocked")
	}

	// ключ не зависит от того, кто из двоих открыл комнату
	low, high := ident.UserID, peer.ID
	if high.String() < low.String() {
		low, high = high, low
	}

	join := participant(ident.UserID, models.ParticipantRole(ident.Role))
	return &roomPlan{
		key:     activeKey(models.RoomDirect, low, high),
		name:    "Direct",
		initial: []models.Participant{join, participant(peer.ID, models.ParticipantRole(peer.Role))},
		join:    &join,
	}, nil
}
