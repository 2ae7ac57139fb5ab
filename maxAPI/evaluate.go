package maxAPI

import (
	"context"
	"fmt"
	"strings"

	"github.com/max-messenger/max-bot-api-client-go/schemes"

	"schoolRecords/auth"
	"schoolRecords/database"
	"schoolRecords/services"
	"schoolRecords/shared"
)

const (
	noTeacherGroupsMsg   = "You are not assigned to any active group."
	noStudentsMsg        = "The group has no students."
	noAchievementsMsg    = "There are no active achievements to evaluate."
	notYourStudentMsg    = "That student is not in one of your groups."
	selectStudentMsg     = "Choose a student (page %d/%d):"
	selectAchievementMsg = "Choose an achievement for **%s**:"
	selectScoreMsg       = "Choose the score of **%s** on **%s**:"
	evaluationSavedMsg   = "✅ **%s** scored **%s** on **%s** (%s)."
)

func (b *Bot) handleEvaluateCallback(ctx context.Context, claims *auth.Claims, callbackID, payload string) error {
	switch {
	case payload == payloadEvaluate:
		return b.handleEvaluateStart(ctx, claims, callbackID)
	case strings.HasPrefix(payload, payloadEvalGroup):
		ids, ok := payloadIDs(payload, payloadEvalGroup, 1)
		if !ok {
			break
		}
		return b.showStudentsPage(ctx, claims, callbackID, ids[0], 0)
	case strings.HasPrefix(payload, payloadEvalPage):
		ids, ok := payloadIDs(payload, payloadEvalPage, 2)
		if !ok {
			break
		}
		return b.showStudentsPage(ctx, claims, callbackID, ids[0], int(ids[1]))
	case strings.HasPrefix(payload, payloadEvalStudent):
		ids, ok := payloadIDs(payload, payloadEvalStudent, 1)
		if !ok {
			break
		}
		return b.handleStudentSelected(ctx, claims, callbackID, ids[0])
	case strings.HasPrefix(payload, payloadEvalAchieve):
		ids, ok := payloadIDs(payload, payloadEvalAchieve, 2)
		if !ok {
			break
		}
		return b.handleAchievementSelected(ctx, claims, callbackID, ids[0], ids[1])
	case strings.HasPrefix(payload, payloadEvalScore):
		ids, ok := payloadIDs(payload, payloadEvalScore, 3)
		if !ok || ids[2] < 0 || ids[2] >= int64(len(database.Scores)) {
			break
		}
		return b.handleScoreSelected(ctx, claims, callbackID, ids[0], ids[1], database.Scores[ids[2]])
	}
	return fmt.Errorf("invalid evaluation payload: %s", payload)
}

func (b *Bot) handleEvaluateStart(ctx context.Context, claims *auth.Claims, callbackID string) error {
	groups, err := b.records.TeacherGroups(ctx, claims.UserID)
	if err != nil {
		return err
	}
	if len(groups) == 0 {
		return b.answerCallbackWithNotification(ctx, callbackID, noTeacherGroupsMsg)
	}
	return b.answerWithKeyboard(ctx, callbackID, selectGroupMsg, GetGroupsKeyboard(b.MaxAPI, groups, payloadEvalGroup))
}

// teacherGroup loads groupID when the teacher works with it.
func (b *Bot) teacherGroup(ctx context.Context, claims *auth.Claims, groupID int64) (*services.GroupView, error) {
	view, err := b.records.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	for _, id := range view.TeacherIDs {
		if id == claims.UserID {
			return view, nil
		}
	}
	return nil, shared.NewError("evaluation", "Evaluate", shared.ErrValidation, notYourStudentMsg)
}

// teacherStudent loads studentID when they belong to one of the teacher's
// groups.
func (b *Bot) teacherStudent(ctx context.Context, claims *auth.Claims, studentID int64) (*database.User, error) {
	student, err := b.records.GetUser(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if student.GroupID == nil {
		return nil, shared.NewError("evaluation", "Evaluate", shared.ErrValidation, notYourStudentMsg)
	}
	if _, err := b.teacherGroup(ctx, claims, *student.GroupID); err != nil {
		return nil, err
	}
	return student, nil
}

func (b *Bot) showStudentsPage(ctx context.Context, claims *auth.Claims, callbackID string, groupID int64, page int) error {
	view, err := b.teacherGroup(ctx, claims, groupID)
	if err != nil {
		return err
	}
	if len(view.Students) == 0 {
		return b.answerCallbackWithNotification(ctx, callbackID, noStudentsMsg)
	}

	start, end, totalPages := pageBounds(len(view.Students), page)
	page = start / studentsPerPage

	keyboard := GetStudentsPaginationKeyboard(b.MaxAPI, groupID, page, totalPages, view.Students[start:end])
	return b.answerWithKeyboard(ctx, callbackID, fmt.Sprintf(selectStudentMsg, page+1, totalPages), keyboard)
}

func (b *Bot) handleStudentSelected(ctx context.Context, claims *auth.Claims, callbackID string, studentID int64) error {
	student, err := b.teacherStudent(ctx, claims, studentID)
	if err != nil {
		return err
	}
	achievements, err := b.records.ListAchievements(ctx, nil)
	if err != nil {
		return err
	}
	if len(achievements) == 0 {
		return b.answerCallbackWithNotification(ctx, callbackID, noAchievementsMsg)
	}

	keyboard := b.MaxAPI.Messages.NewKeyboardBuilder()
	for _, a := range achievements {
		keyboard.AddRow().AddCallback(a.Title, schemes.DEFAULT, fmt.Sprintf("%s%d_%d", payloadEvalAchieve, student.ID, a.ID))
	}
	keyboard.AddRow().AddCallback(btnBackToMenu, schemes.DEFAULT, payloadBackToMenu)

	return b.answerWithKeyboard(ctx, callbackID, fmt.Sprintf(selectAchievementMsg, student.FullName()), keyboard)
}

func (b *Bot) handleAchievementSelected(ctx context.Context, claims *auth.Claims, callbackID string, studentID, achievementID int64) error {
	student, err := b.teacherStudent(ctx, claims, studentID)
	if err != nil {
		return err
	}
	title, err := b.achievementTitle(ctx, achievementID)
	if err != nil {
		return err
	}
	return b.answerWithKeyboard(ctx, callbackID, fmt.Sprintf(selectScoreMsg, student.FullName(), title),
		GetScoreKeyboard(b.MaxAPI, studentID, achievementID))
}

// handleScoreSelected records the score in the current period.
func (b *Bot) handleScoreSelected(ctx context.Context, claims *auth.Claims, callbackID string, studentID, achievementID int64, score database.Score) error {
	student, err := b.teacherStudent(ctx, claims, studentID)
	if err != nil {
		return err
	}
	period, err := b.records.CurrentPeriod(ctx)
	if err != nil {
		return err
	}

	_, err = b.records.Evaluate(ctx, services.EvaluateInput{
		AchievementID: achievementID,
		StudentID:     studentID,
		TeacherID:     claims.UserID,
		PeriodID:      period.ID,
		Score:         string(score),
	})
	if err != nil {
		return err
	}
	title, err := b.achievementTitle(ctx, achievementID)
	if err != nil {
		return err
	}

	b.logger.Infof("Teacher %d scored student %d on achievement %d: %s", claims.UserID, studentID, achievementID, score)
	text := fmt.Sprintf(evaluationSavedMsg, student.FullName(), score, title, period.Name)
	return b.answerWithKeyboard(ctx, callbackID, text, GetMenuKeyboard(b.MaxAPI, claims.Role))
}

func (b *Bot) achievementTitle(ctx context.Context, achievementID int64) (string, error) {
	achievements, err := b.records.ListAchievements(ctx, nil)
	if err != nil {
		return "", err
	}
	for _, a := range achievements {
		if a.ID == achievementID {
			return a.Title, nil
		}
	}
	return "", shared.NotFound("evaluation", "Evaluate", "achievement", achievementID)
}
