package rbac

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allActions = []Action{
	ActionViewContent,
	ActionCreateContent,
	ActionEditContent,
	ActionManageUsers,
	ActionViewAllData,
}

func mustPrincipal(t *testing.T, id string, role Role) *Principal {
	t.Helper()
	p, err := NewPrincipal(id, id, role)
	require.NoError(t, err)
	return &p
}

func TestIsAllowedDeniesWithoutPrincipal(t *testing.T) {
	targets := []*Resource{nil, {Author: "a", Public: true}, {Author: "a"}}
	for _, action := range allActions {
		for _, target := range targets {
			assert.False(t, IsAllowed(nil, action, target), "%s %+v", action, target)
		}
	}
}

func TestIsAllowedUnknownActionDenied(t *testing.T) {
	admin := mustPrincipal(t, "admin@x", RoleAdmin)
	assert.False(t, IsAllowed(admin, Action("content.delete"), nil))
}

func TestIsAllowedPermissionGates(t *testing.T) {
	admin := mustPrincipal(t, "admin@x", RoleAdmin)
	editor := mustPrincipal(t, "editor@x", RoleEditor)
	viewer := mustPrincipal(t, "viewer@x", RoleViewer)

	cases := []struct {
		p      *Principal
		action Action
		want   bool
	}{
		{admin, ActionManageUsers, true},
		{admin, ActionViewAllData, true},
		{editor, ActionCreateContent, true},
		{editor, ActionEditContent, true},
		{editor, ActionManageUsers, false},
		{editor, ActionViewAllData, false},
		{viewer, ActionViewContent, true},
		{viewer, ActionCreateContent, false},
		{viewer, ActionEditContent, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, IsAllowed(tc.p, tc.action, nil), "%s %s", tc.p.Role, tc.action)
	}
}

func TestEditOwnershipOverride(t *testing.T) {
	editor1 := mustPrincipal(t, "editor1@x", RoleEditor)
	editor2 := mustPrincipal(t, "editor2@x", RoleEditor)
	admin := mustPrincipal(t, "admin@x", RoleAdmin)
	viewer := mustPrincipal(t, "viewer@x", RoleViewer)

	itemA := &Resource{Author: editor1.ID, Public: false}
	itemB := &Resource{Author: editor2.ID, Public: true}
	ownedByViewer := &Resource{Author: viewer.ID}

	assert.False(t, IsAllowed(editor2, ActionEditContent, itemA))
	assert.True(t, IsAllowed(editor2, ActionEditContent, itemB))
	assert.True(t, IsAllowed(editor1, ActionEditContent, itemA))
	assert.True(t, IsAllowed(admin, ActionEditContent, itemA))
	assert.True(t, IsAllowed(admin, ActionEditContent, itemB))
	assert.False(t, IsAllowed(viewer, ActionEditContent, ownedByViewer), "ownership never substitutes for edit_content")
}

func TestCanModify(t *testing.T) {
	editor := mustPrincipal(t, "e@x", RoleEditor)
	assert.True(t, CanModify(editor, Resource{Author: "e@x"}))
	assert.False(t, CanModify(editor, Resource{Author: "other@x", Public: true}))
	assert.False(t, CanModify(nil, Resource{Author: "e@x"}))
}

func TestItemScopedView(t *testing.T) {
	viewer := mustPrincipal(t, "v@x", RoleViewer)
	admin := mustPrincipal(t, "admin@x", RoleAdmin)

	assert.True(t, IsAllowed(viewer, ActionViewContent, &Resource{Author: "u1", Public: true}))
	assert.False(t, IsAllowed(viewer, ActionViewContent, &Resource{Author: "u1"}))
	assert.True(t, IsAllowed(viewer, ActionViewContent, &Resource{Author: "v@x"}))
	assert.True(t, IsAllowed(admin, ActionViewContent, &Resource{Author: "u1"}))
}

func TestEngineAndFilterAgreeOnViews(t *testing.T) {
	principals := []*Principal{
		mustPrincipal(t, "u1", RoleEditor),
		mustPrincipal(t, "u2", RoleViewer),
		mustPrincipal(t, "root", RoleAdmin),
	}
	resources := []Resource{
		{Author: "u1", Public: true},
		{Author: "u1"},
		{Author: "u2"},
		{Author: "root"},
	}
	for _, p := range principals {
		for _, res := range resources {
			res := res
			filtered := VisibleTo(p, []testItem{{res: res}})
			assert.Equal(t, IsAllowed(p, ActionViewContent, &res), len(filtered) == 1, "%s %+v", p.ID, res)
		}
	}
}
