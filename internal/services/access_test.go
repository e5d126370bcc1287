package services

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thereayou/ideaverse-chat/internal/models"
	"go.uber.org/zap"
)

func TestGate_Policy(t *testing.T) {
	gate, err := NewGate(zap.NewNop())
	require.NoError(t, err)

	cases := []struct {
		role models.UserRole
		obj  string
		act  string
		want bool
	}{
		{models.RoleAdmin, objRoom, actOverride, true},
		{models.RoleAdmin, objInvestment, actInvite, true},
		{models.RoleInvestor, objInvestment, actOpen, true},
		{models.RoleInvestor, objInvestment, actList, true},
		{models.RoleInvestor, objInvestment, actInvite, true},
		{models.RoleInvestor, objRoom, actOverride, false},
		{models.RoleCreator, objInvestment, actOpen, false},
		{models.RoleRecruiter, objRoom, actOverride, false},
		{models.UserRole(""), objRoom, actOverride, false},
	}

	for _, tc := range cases {
		t.Run(string(tc.role)+"/"+tc.obj+"/"+tc.act, func(t *testing.T) {
			assert.Equal(t, tc.want, gate.Allowed(tc.role, tc.obj, tc.act))
		})
	}
}

func TestGate_CanAccess(t *testing.T) {
	gate, err := NewGate(zap.NewNop())
	require.NoError(t, err)

	member := uuid.New()
	room := &models.Room{Participants: []models.Participant{{UserID: member}}}

	assert.True(t, gate.CanAccess(&Identity{UserID: member, Role: models.RoleFreelancer}, room))
	assert.True(t, gate.CanAccess(&Identity{UserID: uuid.New(), Role: models.RoleAdmin}, room))
	assert.False(t, gate.CanAccess(&Identity{UserID: uuid.New(), Role: models.RoleInvestor}, room))

	assert.ErrorIs(t, gate.requireInvestor(&Identity{Role: models.RoleCreator}, actInvite), ErrForbidden)
	assert.NoError(t, gate.requireInvestor(&Identity{Role: models.RoleAdmin}, actInvite))
}

func TestKeyedMutex_ReleasesEntries(t *testing.T) {
	k := newKeyedMutex()
	key := uuid.New()

	unlock := k.Lock(key)
	done := make(chan struct{})
	go func() {
		defer close(done)
		k.Lock(key)()
	}()

	unlock()
	<-done
	assert.Zero(t, k.size())
}
