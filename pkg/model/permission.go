package model

// Page identifies one navigable surface of the dashboard. The set is closed;
// the permission table defaults any unknown pair to denied.
type Page string

const (
	PageAnalysis      Page = "analysis"
	PageCalls         Page = "calls"
	PageEquipment     Page = "equipment"
	PageUsers         Page = "users"
	PageSettings      Page = "settings"
	PageAI            Page = "ai"
	PageTeamView      Page = "team-view"
	PageAlerts        Page = "alerts"
	PageDatabase      Page = "database"
	PageMessaging     Page = "messaging"
	PageCompanies     Page = "companies"
	PageSchema        Page = "schema"
	PageTeams         Page = "teams"
	PageRoles         Page = "roles"
	PageReports       Page = "reports"
	PageAccessControl Page = "access-control"
)

func AllPages() []Page {
	return []Page{
		PageAnalysis, PageCalls, PageEquipment, PageUsers, PageSettings,
		PageAI, PageTeamView, PageAlerts, PageDatabase, PageMessaging,
		PageCompanies, PageSchema, PageTeams, PageRoles, PageReports,
		PageAccessControl,
	}
}

func (p Page) Valid() bool {
	for _, known := range AllPages() {
		if p == known {
			return true
		}
	}
	return false
}

// PermissionGrant is one persisted cell of the role/page table.
type PermissionGrant struct {
	Role    Role `gorm:"type:varchar(40);primaryKey"`
	Page    Page `gorm:"type:varchar(40);primaryKey"`
	Allowed bool `gorm:"not null"`
}

func (PermissionGrant) TableName() string {
	return "permission_grants"
}
