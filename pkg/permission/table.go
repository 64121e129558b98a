// Package permission holds the role/page grant table that drives navigation
// visibility. Lookups default to denied for any unknown role/page pair.
package permission

import (
	"errors"

	"github.com/pcmindustrial/pcm/pkg/model"
)

// ErrImmutableRole rejects writes against SystemAdministrator's grants.
var ErrImmutableRole = errors.New("system administrator grants are immutable")

// ErrUnknownPage rejects grants for pages outside the closed set.
var ErrUnknownPage = errors.New("unknown page")

// Table maps role × page to a boolean grant.
type Table map[model.Role]map[model.Page]bool

// Default returns the seed table: full access for SystemAdministrator, the
// management surface for the admin roles, and progressively narrower views
// for technicians, operators and viewers.
func Default() Table {
	adminPages := []model.Page{
		model.PageAnalysis, model.PageCalls, model.PageEquipment, model.PageUsers,
		model.PageAI, model.PageTeamView, model.PageAlerts, model.PageTeams,
		model.PageRoles, model.PageReports,
	}

	table := Table{
		model.RoleSystemAdministrator: {},
		model.RoleAdministrator:       {},
		model.RoleAdminPlanta:         {},
		model.RoleTecnicoPcm: {
			model.PageCalls:     true,
			model.PageEquipment: true,
			model.PageAI:        true,
			model.PageTeamView:  true,
		},
		model.RoleOperador: {
			model.PageCalls:     true,
			model.PageEquipment: true,
		},
		model.RoleVisualizador: {
			model.PageAnalysis:  true,
			model.PageCalls:     true,
			model.PageEquipment: true,
		},
	}
	for _, page := range model.AllPages() {
		table[model.RoleSystemAdministrator][page] = true
	}
	for _, page := range adminPages {
		table[model.RoleAdministrator][page] = true
		table[model.RoleAdminPlanta][page] = true
	}
	return table
}

// Granted reports whether the role may open the page. Unknown pairs deny.
func (t Table) Granted(role model.Role, page model.Page) bool {
	pages, ok := t[role]
	if !ok {
		return false
	}
	return pages[page]
}

// With returns a copy of the table with one grant changed. The receiver is
// never mutated. SystemAdministrator's row cannot be written.
func (t Table) With(role model.Role, page model.Page, allowed bool) (Table, error) {
	if role == model.RoleSystemAdministrator {
		return nil, ErrImmutableRole
	}
	if !page.Valid() {
		return nil, ErrUnknownPage
	}

	next := make(Table, len(t))
	for r, pages := range t {
		copied := make(map[model.Page]bool, len(pages))
		for p, v := range pages {
			copied[p] = v
		}
		next[r] = copied
	}
	if next[role] == nil {
		next[role] = map[model.Page]bool{}
	}
	next[role][page] = allowed
	return next, nil
}

// Grants flattens the table into persistable rows, one per role/page pair.
func (t Table) Grants() []model.PermissionGrant {
	grants := make([]model.PermissionGrant, 0, len(t)*len(model.AllPages()))
	for _, role := range model.AllRoles() {
		pages, ok := t[role]
		if !ok {
			continue
		}
		for _, page := range model.AllPages() {
			if allowed, ok := pages[page]; ok {
				grants = append(grants, model.PermissionGrant{Role: role, Page: page, Allowed: allowed})
			}
		}
	}
	return grants
}

// FromGrants rebuilds a table from persisted rows.
func FromGrants(grants []model.PermissionGrant) Table {
	table := Table{}
	for _, grant := range grants {
		if table[grant.Role] == nil {
			table[grant.Role] = map[model.Page]bool{}
		}
		table[grant.Role][grant.Page] = grant.Allowed
	}
	return table
}
