package services

import (
	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	"github.com/thereayou/ideaverse-chat/internal/models"
	"go.uber.org/zap"
)

// Объекты и действия ролевой политики
const (
	objRoom       = "room"
	objInvestment = "investment"

	actOverride = "override"
	actOpen     = "open"
	actList     = "list"
	actInvite   = "invite"
)

const accessModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = r.sub == p.sub && keyMatch(r.obj, p.obj) && (p.act == "*" || r.act == p.act)
`

var defaultPolicy = [][]string{
	{string(models.RoleAdmin), "*", "*"},
	{string(models.RoleInvestor), objInvestment, actOpen},
	{string(models.RoleInvestor), objInvestment, actList},
	{string(models.RoleInvestor), objInvestment, actInvite},
}

// Gate решает, кто может видеть комнату и выполнять ролевые операции.
// Членство проверяется по участникам комнаты, глобальные роли - политикой casbin.
type Gate struct {
	enforcer *casbin.Enforcer
	log      *zap.Logger
}

func NewGate(log *zap.Logger) (*Gate, error) {
	m, err := model.NewModelFromString(accessModel)
	if err != nil {
		return nil, err
	}

	enforcer, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, err
	}

	if _, err := enforcer.AddPolicies(defaultPolicy); err != nil {
		return nil, err
	}

	return &Gate{enforcer: enforcer, log: log}, nil
}

// Allowed проверяет ролевую политику
func (g *Gate) Allowed(role models.UserRole, obj, act string) bool {
	ok, err := g.enforcer.Enforce(string(role), obj, act)
	if err != nil {
		g.log.Error("policy evaluation failed",
			zap.String("role", string(role)),
			zap.String("obj", obj),
			zap.String("act", act),
			zap.Error(err),
		)
		return false
	}
	return ok
}

// CanAccess админ проходит всегда, остальные - только участники комнаты
func (g *Gate) CanAccess(ident *Identity, room *models.Room) bool {
	if g.Allowed(ident.Role, objRoom, actOverride) {
		return true
	}
	return room.HasParticipant(ident.UserID)
}

func (g *Gate) requireInvestor(ident *Identity, act string) error {
	if !g.Allowed(ident.Role, objInvestment, act) {
		return forbidden("access denied, investor role required")
	}
	return nil
}
