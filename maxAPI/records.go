package maxAPI

import (
	"context"
	"fmt"
	"strings"

	"github.com/max-messenger/max-bot-api-client-go/schemes"

	"schoolRecords/auth"
	"schoolRecords/database"
	"schoolRecords/reports"
	"schoolRecords/services"
	"schoolRecords/shared"
)

const (
	dateFormat     = "02/01/2006"
	dateTimeFormat = "02/01/2006 15:04"

	selectGroupMsg     = "Choose a group:"
	selectChildMsg     = "Choose a student:"
	noChildrenMsg      = "No students are linked to your account."
	noInterviewsMsg    = "No interviews are scheduled."
	emptyInboxMsg      = "📭 No unread notifications."
	noEvaluationsMsg   = "**%s** has no evaluations in %s yet."
	evaluationsHeader  = "📊 **%s**, %s:\n\n"
	evaluationEntry    = "• %s: **%s**\n"
	evaluationsSummary = "\n📈 %d evaluated, %d passing."
)

func groupsOf(views []services.GroupView) []database.Group {
	groups := make([]database.Group, len(views))
	for i, v := range views {
		groups[i] = v.Group
	}
	return groups
}

func (b *Bot) handleShowGroups(ctx context.Context, callbackID string) error {
	views, err := b.records.ListGroups(ctx, true)
	if err != nil {
		return err
	}
	if len(views) == 0 {
		return b.answerCallbackWithNotification(ctx, callbackID, noGroupsMsg)
	}
	return b.answerWithKeyboard(ctx, callbackID, formatGroupList(views), GetGroupsKeyboard(b.MaxAPI, groupsOf(views), payloadGroup))
}

func (b *Bot) handleGroupSelected(ctx context.Context, callbackID, payload string) error {
	ids, ok := payloadIDs(payload, payloadGroup, 1)
	if !ok {
		return fmt.Errorf("invalid group payload: %s", payload)
	}
	view, err := b.records.GetGroup(ctx, ids[0])
	if err != nil {
		return err
	}
	return b.answerWithKeyboard(ctx, callbackID, formatGroup(view), GetBackKeyboard(b.MaxAPI))
}

func (b *Bot) handleShowPeriod(ctx context.Context, callbackID string) error {
	period, err := b.records.CurrentPeriod(ctx)
	if shared.IsNotFound(err) {
		return b.answerCallbackWithNotification(ctx, callbackID, shared.UserMessage(err))
	}
	if err != nil {
		return err
	}
	return b.answerWithKeyboard(ctx, callbackID, formatPeriod(period), GetBackKeyboard(b.MaxAPI))
}

func (b *Bot) handleShowInterviews(ctx context.Context, callbackID string) error {
	interviews, err := b.records.UpcomingInterviews(ctx)
	if err != nil {
		return err
	}
	if len(interviews) == 0 {
		return b.answerCallbackWithNotification(ctx, callbackID, noInterviewsMsg)
	}
	return b.answerWithKeyboard(ctx, callbackID, formatInterviews(interviews), GetBackKeyboard(b.MaxAPI))
}

func (b *Bot) handleShowInbox(ctx context.Context, claims *auth.Claims, callbackID string) error {
	unread, err := b.records.Inbox(ctx, claims.UserID, true)
	if err != nil {
		return err
	}
	if len(unread) == 0 {
		return b.answerWithKeyboard(ctx, callbackID, emptyInboxMsg, GetBackKeyboard(b.MaxAPI))
	}

	keyboard := b.MaxAPI.Messages.NewKeyboardBuilder()
	for _, n := range unread {
		keyboard.AddRow().AddCallback(fmt.Sprintf(btnMarkRead, n.Title), schemes.DEFAULT, fmt.Sprintf("%s%d", payloadMarkRead, n.ID))
	}
	keyboard.AddRow().AddCallback(btnBackToMenu, schemes.DEFAULT, payloadBackToMenu)

	return b.answerWithKeyboard(ctx, callbackID, formatInbox(unread), keyboard)
}

func (b *Bot) handleMarkRead(ctx context.Context, claims *auth.Claims, callbackID, payload string) error {
	ids, ok := payloadIDs(payload, payloadMarkRead, 1)
	if !ok {
		return fmt.Errorf("invalid notification payload: %s", payload)
	}
	if err := b.records.MarkRead(ctx, claims.UserID, ids[0]); err != nil {
		return err
	}
	return b.handleShowInbox(ctx, claims, callbackID)
}

func (b *Bot) handleShowChildren(ctx context.Context, claims *auth.Claims, callbackID string) error {
	children, err := b.records.ChildrenOf(ctx, claims.UserID)
	if err != nil {
		return err
	}
	if len(children) == 0 {
		return b.answerCallbackWithNotification(ctx, callbackID, noChildrenMsg)
	}

	keyboard := b.MaxAPI.Messages.NewKeyboardBuilder()
	for _, child := range children {
		keyboard.AddRow().AddCallback(child.FullName(), schemes.DEFAULT, fmt.Sprintf("%s%d", payloadChild, child.ID))
	}
	keyboard.AddRow().AddCallback(btnBackToMenu, schemes.DEFAULT, payloadBackToMenu)

	return b.answerWithKeyboard(ctx, callbackID, selectChildMsg, keyboard)
}

// handleChildSelected shows the evaluations of one of the guardian's
// students in the current period.
func (b *Bot) handleChildSelected(ctx context.Context, claims *auth.Claims, callbackID, payload string) error {
	ids, ok := payloadIDs(payload, payloadChild, 1)
	if !ok {
		return fmt.Errorf("invalid student payload: %s", payload)
	}

	children, err := b.records.ChildrenOf(ctx, claims.UserID)
	if err != nil {
		return err
	}
	var child *database.User
	for i := range children {
		if children[i].ID == ids[0] {
			child = &children[i]
		}
	}
	if child == nil {
		return b.answerCallbackWithNotification(ctx, callbackID, forbiddenMsg)
	}

	period, err := b.records.CurrentPeriod(ctx)
	if err != nil {
		return err
	}
	rows, err := b.records.StudentEvaluations(ctx, child.ID, period.ID)
	if err != nil {
		return err
	}

	return b.answerWithKeyboard(ctx, callbackID, formatEvaluations(child.FullName(), period.Name, rows), GetBackKeyboard(b.MaxAPI))
}

func formatGroupList(views []services.GroupView) string {
	var sb strings.Builder
	sb.WriteString(selectGroupMsg + "\n\n")
	for _, v := range views {
		fmt.Fprintf(&sb, "• **%s**: %d/%d students\n", v.Group.Name, v.NumStudents, v.Group.MaxCapacity)
	}
	return strings.TrimSpace(sb.String())
}

func formatGroup(view *services.GroupView) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "👥 **%s** (%d/%d)\n\n", view.Group.Name, view.NumStudents, view.Group.MaxCapacity)
	if len(view.Students) == 0 {
		sb.WriteString("No students yet.")
		return sb.String()
	}
	for i, st := range view.Students {
		fmt.Fprintf(&sb, "%d. %s %s\n", i+1, st.LastName, st.FirstName)
	}
	return strings.TrimSpace(sb.String())
}

func formatPeriod(p *database.AcademicPeriod) string {
	return fmt.Sprintf("🗓️ **%s**\n%s to %s", p.Name, p.StartDate.Format(dateFormat), p.EndDate.Format(dateFormat))
}

func formatInterviews(interviews []database.Interview) string {
	var sb strings.Builder
	for i, iv := range interviews {
		fmt.Fprintf(&sb, "%d. %s", i+1, iv.ScheduledAt.Format(dateTimeFormat))
		if iv.Location != "" {
			fmt.Fprintf(&sb, ", %s", iv.Location)
		}
		sb.WriteString("\n")
	}
	if sb.Len() == 0 {
		return noInterviewsMsg
	}
	return strings.TrimSpace(sb.String())
}

func formatInbox(notifications []database.Notification) string {
	var sb strings.Builder
	for _, n := range notifications {
		fmt.Fprintf(&sb, "🔔 **%s** (%s)\n", n.Title, n.CreatedAt.Format(dateTimeFormat))
		if n.Body != "" {
			sb.WriteString(n.Body + "\n")
		}
		sb.WriteString("\n")
	}
	return strings.TrimSpace(sb.String())
}

func formatEvaluations(student, period string, rows []reports.EvaluationRow) string {
	if len(rows) == 0 {
		return fmt.Sprintf(noEvaluationsMsg, student, period)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, evaluationsHeader, student, period)

	passing := 0
	for _, row := range rows {
		fmt.Fprintf(&sb, evaluationEntry, row.Achievement, row.Score)
		if database.Score(row.Score).Passing() {
			passing++
		}
	}
	fmt.Fprintf(&sb, evaluationsSummary, len(rows), passing)

	return sb.String()
}
