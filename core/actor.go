package core

// Role is the single role a user account holds.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleStudent Role = "siswa"
	RoleCompany Role = "perusahaan"
	RoleTeacher Role = "guru"
)

var AllRoles = []Role{RoleAdmin, RoleStudent, RoleCompany, RoleTeacher}

func (r Role) IsValid() bool {
	for _, role := range AllRoles {
		if r == role {
			return true
		}
	}
	return false
}

// Action names something an Actor may attempt. See Capabilities.
type Action string

const (
	ActionUserManage Action = "user:manage"
	ActionStatsView  Action = "stats:view"

	ActionProfileManageOwn Action = "profile:manage-own"
	ActionProfileVerify    Action = "profile:verify"

	ActionPostingCreate    Action = "posting:create"
	ActionPostingEdit      Action = "posting:edit"
	ActionPostingSetStatus Action = "posting:set-status"
	ActionPostingDecide    Action = "posting:decide"
	ActionPostingDelete    Action = "posting:delete"
	ActionPostingView      Action = "posting:view"
	ActionPostingStats     Action = "posting:stats"

	ActionApplicationSubmit   Action = "application:submit"
	ActionApplicationWithdraw Action = "application:withdraw"
	ActionApplicationDecide   Action = "application:decide"
	ActionApplicationDelete   Action = "application:delete"
	ActionApplicationView     Action = "application:view"
	ActionApplicationStats    Action = "application:stats"

	ActionPlacementManage Action = "placement:manage"
	ActionPlacementView   Action = "placement:view"

	ActionAssessmentCreate Action = "assessment:create"
	ActionAssessmentDelete Action = "assessment:delete"
	ActionAssessmentView   Action = "assessment:view"
)

// Capabilities is the one place that says which roles may perform which action.
// Ownership (own application, hosting company, assigned teacher...) is checked by each service afterwards.
var Capabilities = map[Action][]Role{
	ActionUserManage: {RoleAdmin},
	ActionStatsView:  {RoleAdmin},

	ActionProfileManageOwn: {RoleStudent, RoleCompany, RoleTeacher},
	ActionProfileVerify:    {RoleAdmin},

	ActionPostingCreate:    {RoleCompany},
	ActionPostingEdit:      {RoleCompany, RoleAdmin},
	ActionPostingSetStatus: {RoleCompany, RoleAdmin},
	ActionPostingDecide:    {RoleAdmin},
	ActionPostingDelete:    {RoleAdmin},
	ActionPostingView:      {RoleAdmin, RoleStudent, RoleCompany, RoleTeacher},
	ActionPostingStats:     {RoleAdmin},

	ActionApplicationSubmit:   {RoleStudent},
	ActionApplicationWithdraw: {RoleStudent},
	ActionApplicationDecide:   {RoleAdmin},
	ActionApplicationDelete:   {RoleAdmin},
	ActionApplicationView:     {RoleAdmin, RoleStudent, RoleCompany},
	ActionApplicationStats:    {RoleAdmin},

	ActionPlacementManage: {RoleAdmin},
	ActionPlacementView:   {RoleAdmin, RoleStudent, RoleCompany, RoleTeacher},

	ActionAssessmentCreate: {RoleCompany, RoleTeacher},
	ActionAssessmentDelete: {RoleAdmin},
	ActionAssessmentView:   {RoleAdmin, RoleStudent, RoleCompany, RoleTeacher},
}

// Actor is the authenticated caller of a service operation.
// It is built per request from the session token and never stored globally.
type Actor struct {
	UserID string
	Role   Role
}

func NewActor(userID string, role Role) Actor {
	return Actor{UserID: userID, Role: role}
}

// Can returns an AuthorizationError unless the actor's role is allowed to perform `act`.
func (a Actor) Can(act Action) error {
	if a.UserID == "" {
		return NewAuthorizationError(a.Role, act)
	}
	for _, role := range Capabilities[act] {
		if a.Role == role {
			return nil
		}
	}
	return NewAuthorizationError(a.Role, act)
}

func (a Actor) Is(role Role) bool { return a.Role == role }

func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }
