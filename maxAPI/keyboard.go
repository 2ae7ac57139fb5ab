package maxAPI

import (
	"fmt"
	"strings"

	maxbot "github.com/max-messenger/max-bot-api-client-go"
	"github.com/max-messenger/max-bot-api-client-go/schemes"

	"schoolRecords/auth"
	"schoolRecords/database"
)

const (
	btnUploadStudents = "Upload students (CSV)"
	btnUploadTeachers = "Upload teachers (CSV)"
	btnGroups         = "Groups"
	btnPeriod         = "Current period"
	btnInterviews     = "Upcoming interviews"
	btnInbox          = "Notifications"
	btnEvaluate       = "Evaluate achievements"
	btnChildren       = "My children"
	btnLogout         = "Log out"
	btnBackToMenu     = "← Menu"
	btnMarkRead       = "Mark read: %s"

	btnPrev = "← Back"
	btnNext = "Next →"

	payloadUploadStudents = "uploadStudents"
	payloadUploadTeachers = "uploadTeachers"
	payloadUploadGroup    = "upl_grp_"
	payloadGroups         = "groups"
	payloadGroup          = "grp_"
	payloadPeriod         = "period"
	payloadInterviews     = "interviews"
	payloadInbox          = "inbox"
	payloadMarkRead       = "read_"
	payloadEvaluate       = "evaluate"
	payloadEvalGroup      = "ev_grp_"
	payloadEvalPage       = "ev_page_"
	payloadEvalStudent    = "ev_stud_"
	payloadEvalAchieve    = "ev_ach_"
	payloadEvalScore      = "ev_val_"
	payloadChildren       = "children"
	payloadChild          = "child_"
	payloadBackToMenu     = "backToMenu"
	payloadLogout         = "logout"

	studentsPerPage = 5
)

type menuItem struct {
	text    string
	payload string
}

var (
	itemUploadStudents = menuItem{btnUploadStudents, payloadUploadStudents}
	itemUploadTeachers = menuItem{btnUploadTeachers, payloadUploadTeachers}
	itemGroups         = menuItem{btnGroups, payloadGroups}
	itemPeriod         = menuItem{btnPeriod, payloadPeriod}
	itemInterviews     = menuItem{btnInterviews, payloadInterviews}
	itemInbox          = menuItem{btnInbox, payloadInbox}
	itemEvaluate       = menuItem{btnEvaluate, payloadEvaluate}
	itemChildren       = menuItem{btnChildren, payloadChildren}
	itemLogout         = menuItem{btnLogout, payloadLogout}
)

// menus is the main menu of each role, top to bottom.
var menus = map[auth.Role][]menuItem{
	auth.RoleAdmin: {
		itemUploadStudents, itemUploadTeachers, itemGroups, itemPeriod, itemInterviews, itemInbox, itemLogout,
	},
	auth.RoleDirector: {itemGroups, itemPeriod, itemInterviews, itemInbox, itemLogout},
	auth.RoleTeacher:  {itemEvaluate, itemGroups, itemPeriod, itemInbox, itemLogout},
	auth.RoleParent:   {itemChildren, itemPeriod, itemInbox, itemLogout},
	auth.RoleObserver: {itemPeriod, itemInbox, itemLogout},
}

func menuFor(role auth.Role) []menuItem {
	if items, ok := menus[role]; ok {
		return items
	}
	return menus[auth.RoleObserver]
}

// allowed reports whether payload is reachable from the main menu of role.
// Payloads of nested steps are checked against the item that opens them.
func allowed(role auth.Role, payload string) bool {
	if payload == payloadBackToMenu {
		return true
	}
	payload = menuPayload(payload)
	for _, item := range menuFor(role) {
		if item.payload == payload {
			return true
		}
	}
	return false
}

// nestedPayloads maps the prefix of each follow-up callback to the menu
// item that opens its flow.
var nestedPayloads = []struct{ prefix, parent string }{
	{payloadUploadGroup, payloadUploadStudents},
	{payloadGroup, payloadGroups},
	{payloadMarkRead, payloadInbox},
	{payloadEvalGroup, payloadEvaluate},
	{payloadEvalPage, payloadEvaluate},
	{payloadEvalStudent, payloadEvaluate},
	{payloadEvalAchieve, payloadEvaluate},
	{payloadEvalScore, payloadEvaluate},
	{payloadChild, payloadChildren},
}

// menuPayload returns the menu payload that payload belongs to.
func menuPayload(payload string) string {
	for _, n := range nestedPayloads {
		if strings.HasPrefix(payload, n.prefix) {
			return n.parent
		}
	}
	return payload
}

func GetMenuKeyboard(api *maxbot.Api, role auth.Role) *maxbot.Keyboard {
	keyboard := api.Messages.NewKeyboardBuilder()
	for _, item := range menuFor(role) {
		keyboard.AddRow().AddCallback(item.text, schemes.NEGATIVE, item.payload)
	}
	return keyboard
}

// GetGroupsKeyboard lists groups as buttons whose payload is prefix+id.
func GetGroupsKeyboard(api *maxbot.Api, groups []database.Group, prefix string) *maxbot.Keyboard {
	keyboard := api.Messages.NewKeyboardBuilder()
	for _, g := range groups {
		keyboard.AddRow().AddCallback(g.Name, schemes.DEFAULT, fmt.Sprintf("%s%d", prefix, g.ID))
	}
	keyboard.AddRow().AddCallback(btnBackToMenu, schemes.DEFAULT, payloadBackToMenu)
	return keyboard
}

// GetStudentsPaginationKeyboard shows one page of students with previous and
// next buttons when there is more than one page.
func GetStudentsPaginationKeyboard(api *maxbot.Api, groupID int64, page, totalPages int, students []database.User) *maxbot.Keyboard {
	keyboard := api.Messages.NewKeyboardBuilder()
	for _, st := range students {
		keyboard.AddRow().AddCallback(st.LastName+" "+st.FirstName, schemes.DEFAULT, fmt.Sprintf("%s%d", payloadEvalStudent, st.ID))
	}

	if totalPages > 1 {
		prev, next := pageNeighbours(page, totalPages)
		keyboard.AddRow().
			AddCallback(btnPrev, schemes.DEFAULT, fmt.Sprintf("%s%d_%d", payloadEvalPage, groupID, prev)).
			AddCallback(btnNext, schemes.DEFAULT, fmt.Sprintf("%s%d_%d", payloadEvalPage, groupID, next))
	}

	keyboard.AddRow().AddCallback(btnBackToMenu, schemes.DEFAULT, payloadBackToMenu)
	return keyboard
}

// GetScoreKeyboard offers the grading scale for one student and achievement.
func GetScoreKeyboard(api *maxbot.Api, studentID, achievementID int64) *maxbot.Keyboard {
	keyboard := api.Messages.NewKeyboardBuilder()
	row := keyboard.AddRow()
	for i, score := range database.Scores {
		row.AddCallback(string(score), schemes.POSITIVE, fmt.Sprintf("%s%d_%d_%d", payloadEvalScore, studentID, achievementID, i))
	}
	keyboard.AddRow().AddCallback(btnBackToMenu, schemes.DEFAULT, payloadBackToMenu)
	return keyboard
}

func GetBackKeyboard(api *maxbot.Api) *maxbot.Keyboard {
	keyboard := api.Messages.NewKeyboardBuilder()
	keyboard.AddRow().AddCallback(btnBackToMenu, schemes.DEFAULT, payloadBackToMenu)
	return keyboard
}

// pageNeighbours wraps around at both ends.
func pageNeighbours(page, totalPages int) (prev, next int) {
	prev = page - 1
	if prev < 0 {
		prev = totalPages - 1
	}

	next = page + 1
	if next >= totalPages {
		next = 0
	}

	return prev, next
}

// pageBounds returns the slice bounds of page for n items.
func pageBounds(n, page int) (start, end, totalPages int) {
	totalPages = (n + studentsPerPage - 1) / studentsPerPage
	if totalPages == 0 {
		return 0, 0, 0
	}
	if page < 0 || page >= totalPages {
		page = 0
	}
	start = page * studentsPerPage
	end = start + studentsPerPage
	if end > n {
		end = n
	}
	return start, end, totalPages
}
