package auth

import (
	"strings"
)

// Role is the resolved authorization level of a user.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleDirector Role = "director"
	RoleTeacher  Role = "teacher"
	RoleParent   Role = "parent"
	RoleObserver Role = "observer"
)

// Roles lists every role, most privileged first.
var Roles = []Role{RoleAdmin, RoleDirector, RoleTeacher, RoleParent, RoleObserver}

var roleAliases = map[string]Role{
	"admin":         RoleAdmin,
	"administrator": RoleAdmin,
	"administrador": RoleAdmin,
	"director":      RoleDirector,
	"directora":     RoleDirector,
	"rector":        RoleDirector,
	"teacher":       RoleTeacher,
	"docente":       RoleTeacher,
	"profesor":      RoleTeacher,
	"profesora":     RoleTeacher,
	"parent":        RoleParent,
	"guardian":      RoleParent,
	"padre":         RoleParent,
	"madre":         RoleParent,
	"acudiente":     RoleParent,
	"observer":      RoleObserver,
	"observador":    RoleObserver,
}

// ResolveRole maps a stored role name onto a Role, ignoring case and
// surrounding space. Unknown and empty names resolve to RoleObserver.
func ResolveRole(name string) Role {
	if r, ok := roleAliases[strings.ToLower(strings.TrimSpace(name))]; ok {
		return r
	}
	return RoleObserver
}

// Permission codes granted to the seeded roles.
const (
	PermManageUsers        = "users.manage"
	PermManageGroups       = "groups.manage"
	PermManagePeriods      = "periods.manage"
	PermManageAchievements = "achievements.manage"
	PermEvaluate           = "evaluations.write"
	PermReportCards        = "report_cards.generate"
	PermSchedule           = "interviews.schedule"
	PermSendCitations      = "citations.send"
	PermReadRecords        = "records.read"
)

// DefaultPermissions is the role to permission table the seeder writes.
var DefaultPermissions = map[Role][]string{
	RoleAdmin: {
		PermManageUsers, PermManageGroups, PermManagePeriods, PermManageAchievements,
		PermEvaluate, PermReportCards, PermSchedule, PermSendCitations, PermReadRecords,
	},
	RoleDirector: {
		PermManageGroups, PermManagePeriods, PermManageAchievements,
		PermReportCards, PermSchedule, PermSendCitations, PermReadRecords,
	},
	RoleTeacher:  {PermEvaluate, PermReportCards, PermSchedule, PermSendCitations, PermReadRecords},
	RoleParent:   {PermReadRecords},
	RoleObserver: {PermReadRecords},
}

// Can reports whether role holds permission in DefaultPermissions.
func (r Role) Can(permission string) bool {
	for _, p := range DefaultPermissions[r] {
		if p == permission {
			return true
		}
	}
	return false
}
