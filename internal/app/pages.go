package app

import (
	"github.com/tanktools/tanktools/internal/rbac"
)

var pageTitles = map[string]string{
	rbac.PageIndex:          "Home",
	rbac.PageDashboard:      "Dashboard",
	rbac.PageLiveTanks:      "Live Tanks",
	rbac.PagePBCR:           "PBCR",
	rbac.PagePLCR:           "PLCR",
	rbac.PageNMOGAS:         "NMOGAS",
	rbac.PageNMOGASBL:       "NMOGAS BL",
	rbac.PageUserManagement: "User Management",
}

// PageTitle returns the display title of a normalized page id.
func PageTitle(page string) string {
	if title, ok := pageTitles[page]; ok {
		return title
	}
	return page
}
