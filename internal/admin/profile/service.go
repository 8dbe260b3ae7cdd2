package profile

import (
	"slices"
	"strconv"
	"strings"
	"time"

	"finitefield.org/travel-admin/internal/admin/crm"
	"finitefield.org/travel-admin/internal/admin/rbac"
	"finitefield.org/travel-admin/internal/admin/viewquery"
)

// Identity is the signed-in staff member.
type Identity struct {
	UID   string
	Email string
	Roles []string
}

// SessionInfo describes the browser session.
type SessionInfo struct {
	CreatedAt  time.Time
	ExpiresAt  time.Time
	RememberMe bool
}

// ModuleAccess records what the user may do in one module.
type ModuleAccess struct {
	Key    string
	Label  string
	View   bool
	Manage bool
}

// SavedView is a table query remembered in the session.
type SavedView struct {
	Module      string
	Label       string
	Query       viewquery.State
	Description string
}

// Summary contains the data required to render the profile page.
type Summary struct {
	Identity Identity
	Session  SessionInfo
	Access   []ModuleAccess
	Views    []SavedView
}

// Build assembles the profile summary. Views of modules the user can no longer open are skipped.
func Build(id Identity, sess SessionInfo, defs []crm.Definition, views map[string]viewquery.State) Summary {
	out := Summary{
		Identity: Identity{UID: id.UID, Email: id.Email, Roles: slices.Clone(id.Roles)},
		Session:  sess,
	}
	slices.Sort(out.Identity.Roles)

	visible := make(map[string]crm.Definition, len(defs))
	for _, def := range defs {
		access := ModuleAccess{
			Key:    def.Key,
			Label:  def.Label,
			View:   allowed(id.Roles, def.ViewCapability),
			Manage: allowed(id.Roles, def.ManageCapability),
		}
		out.Access = append(out.Access, access)
		if access.View {
			visible[def.Key] = def
		}
	}

	for key, state := range views {
		def, ok := visible[key]
		if !ok {
			continue
		}
		out.Views = append(out.Views, SavedView{
			Module:      key,
			Label:       def.Label,
			Query:       state,
			Description: Describe(state, def.Columns),
		})
	}
	slices.SortFunc(out.Views, func(a, b SavedView) int {
		return strings.Compare(a.Label, b.Label)
	})
	return out
}

// Describe renders a saved query as a short sentence, naming the sort column by its header.
func Describe(state viewquery.State, columns []crm.ColumnInfo) string {
	var parts []string
	if s := strings.TrimSpace(state.Search); s != "" {
		parts = append(parts, `matching "`+s+`"`)
	}
	if state.Sort != nil && state.Sort.Key != "" {
		dir := "ascending"
		if state.Sort.Direction == viewquery.Desc {
			dir = "descending"
		}
		parts = append(parts, "sorted by "+strings.ToLower(columnLabel(columns, state.Sort.Key))+" "+dir)
	}
	if state.Page > 1 {
		parts = append(parts, "page "+strconv.Itoa(state.Page))
	}
	if len(parts) == 0 {
		return "Default view"
	}
	desc := strings.Join(parts, ", ")
	return strings.ToUpper(desc[:1]) + desc[1:]
}

func allowed(roles []string, capability rbac.Capability) bool {
	if capability == "" {
		return true
	}
	return rbac.HasCapability(roles, capability)
}

func columnLabel(columns []crm.ColumnInfo, key string) string {
	for _, c := range columns {
		if c.Key == key {
			return c.Label
		}
	}
	return crm.Label(key)
}
