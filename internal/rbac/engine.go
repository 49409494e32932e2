package rbac

// Action is an operation a principal may request.
type Action string

const (
	ActionViewContent   Action = "content.view"
	ActionCreateContent Action = "content.create"
	ActionEditContent   Action = "content.edit"
	ActionManageUsers   Action = "users.manage"
	ActionViewAllData   Action = "data.view_all"
)

var requiredPermission = map[Action]Permission{
	ActionViewContent:   PermViewContent,
	ActionCreateContent: PermCreateContent,
	ActionEditContent:   PermEditContent,
	ActionManageUsers:   PermManageUsers,
	ActionViewAllData:   PermViewAllData,
}

// RequiredPermission returns the permission gating action.
func RequiredPermission(action Action) (Permission, bool) {
	perm, ok := requiredPermission[action]
	return perm, ok
}

// IsAllowed decides whether p may perform action, optionally against target.
// A nil principal means no session. Denial is a false result, never an error.
func IsAllowed(p *Principal, action Action, target *Resource) bool {
	if p == nil {
		return false
	}
	perm, ok := RequiredPermission(action)
	if !ok || !p.Has(perm) {
		return false
	}
	if target == nil {
		return true
	}
	switch action {
	case ActionEditContent:
		return CanModify(p, *target)
	case ActionViewContent:
		return CanSee(p, *target)
	}
	return true
}

// CanModify applies the ownership rule for edits: edit_content is required,
// and it covers only the principal's own items unless view_all_data is held.
func CanModify(p *Principal, target Resource) bool {
	if p == nil || !p.Has(PermEditContent) {
		return false
	}
	if p.Has(PermViewAllData) {
		return true
	}
	return target.Author == p.ID
}

// CanSee reports whether target is readable by p: everything with
// view_all_data, otherwise public items and the principal's own items.
func CanSee(p *Principal, target Resource) bool {
	if p == nil {
		return false
	}
	if p.Has(PermViewAllData) {
		return true
	}
	if !p.Has(PermViewContent) {
		return false
	}
	return target.Public || target.Author == p.ID
}
