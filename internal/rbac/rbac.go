package rbac

type Role string
type Action string

const (
	RoleViewer   Role = "viewer"
	RoleEditor   Role = "editor"
	RoleProducer Role = "producer"
	RoleAdmin    Role = "admin"
)

const (
	ActionRead    Action = "read"
	ActionWrite   Action = "write"
	ActionRestore Action = "restore"
	ActionManage  Action = "manage"
	ActionAdmin   Action = "admin"
)

func Can(role Role, action Action) bool {
	switch role {
	case RoleAdmin:
		return true
	case RoleProducer:
		return action == ActionRead || action == ActionWrite || action == ActionRestore || action == ActionManage
	case RoleEditor:
		return action == ActionRead || action == ActionWrite || action == ActionRestore
	case RoleViewer:
		return action == ActionRead
	default:
		return false
	}
}

func Normalize(role string) Role {
	switch Role(role) {
	case RoleViewer, RoleEditor, RoleProducer, RoleAdmin:
		return Role(role)
	default:
		return RoleViewer
	}
}
