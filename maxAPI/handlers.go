package maxAPI

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/max-messenger/max-bot-api-client-go/schemes"

	"schoolRecords/auth"
	"schoolRecords/shared"
)

const (
	welcomeMsg     = "Welcome to the school records bot.\n\nLog in with `/login <email> <password>`."
	loggedInMsg    = "Hello, **%s**! You are logged in as %s."
	loggedOutMsg   = "You have been logged out."
	mainMenuMsg    = "Main menu:"
	loginFirstMsg  = "Log in first with `/login <email> <password>`."
	forbiddenMsg   = "Your role cannot do that."
	helpMsg        = "Commands:\n/login <email> <password>\n/menu\n/logout"
	unknownMessage = "❓ I do not understand this message."

	errorMessage = "❌ Error:\n\n%s"
)

var roleNames = map[auth.Role]string{
	auth.RoleAdmin:    "administrator",
	auth.RoleDirector: "director",
	auth.RoleTeacher:  "teacher",
	auth.RoleParent:   "parent",
	auth.RoleObserver: "observer",
}

func (b *Bot) handleBotStarted(ctx context.Context, u *schemes.BotStartedUpdate) {
	userID := u.User.UserId

	if claims, ok := b.sessions.Get(userID); ok {
		b.sendKeyboard(ctx, GetMenuKeyboard(b.MaxAPI, claims.Role), userID, mainMenuMsg)
		return
	}
	if err := b.sendMessage(ctx, userID, welcomeMsg); err != nil {
		b.logger.Errorf("Failed to send welcome: %v", err)
	}
}

func (b *Bot) handleMessageCreated(ctx context.Context, u *schemes.MessageCreatedUpdate) {
	userID := u.Message.Sender.UserId
	messageID := u.Message.Body.Mid

	if b.isMessageProcessed(messageID) {
		b.logger.Debugf("Message %s already processed, skipping", messageID)
		return
	}

	b.markMessageProcessed(messageID)
	defer b.cleanupProcessedMessage(messageID)

	attachments := u.Message.Body.Attachments
	messageText := u.Message.Body.Text

	if len(attachments) == 0 {
		if cmd, ok := parseCommand(messageText); ok {
			b.handleCommand(ctx, userID, cmd)
			return
		}
		if messageText != "" {
			b.handleUnexpectedMessage(ctx, userID)
		}
		return
	}

	b.handleUpload(ctx, userID, attachments)
}

func (b *Bot) handleCommand(ctx context.Context, userID int64, cmd command) {
	switch cmd.name {
	case "login":
		b.handleLogin(ctx, userID, cmd.args)
	case "logout":
		b.sessions.Drop(userID)
		b.clearPendingUpload(userID)
		b.sendMessage(ctx, userID, loggedOutMsg)
	case "start", "menu":
		claims, ok := b.sessions.Get(userID)
		if !ok {
			b.sendMessage(ctx, userID, welcomeMsg)
			return
		}
		b.sendKeyboard(ctx, GetMenuKeyboard(b.MaxAPI, claims.Role), userID, mainMenuMsg)
	default:
		b.sendMessage(ctx, userID, helpMsg)
	}
}

func (b *Bot) handleLogin(ctx context.Context, userID int64, args string) {
	email, password, err := parseLogin(args)
	if err != nil {
		b.sendMessage(ctx, userID, err.Error())
		return
	}

	session, err := b.auth.Authenticate(ctx, email, password)
	if err != nil {
		b.logger.Infof("Login of max user %d as %s failed: %v", userID, email, err)
		b.sendMessage(ctx, userID, fmt.Sprintf(errorMessage, shared.UserMessage(err)))
		return
	}

	b.sessions.Put(userID, session.Token)
	b.logger.Infof("Max user %d logged in as user %d (%s) until %s",
		userID, session.User.ID, session.Role, session.ExpiresAt.Format(time.RFC3339))

	text := fmt.Sprintf(loggedInMsg, session.User.FullName(), roleNames[session.Role])
	b.sendKeyboard(ctx, GetMenuKeyboard(b.MaxAPI, session.Role), userID, text)
}

func (b *Bot) handleCallback(ctx context.Context, u *schemes.MessageCallbackUpdate) {
	userID := u.Callback.User.UserId
	callbackID := u.Callback.CallbackID
	payload := u.Callback.Payload

	b.logger.Debugf("Callback received: payload=%s, callbackID=%s, userID=%d", payload, callbackID, userID)

	claims, ok := b.sessions.Get(userID)
	if !ok {
		b.answerCallbackWithNotification(ctx, callbackID, loginFirstMsg)
		return
	}
	if !allowed(claims.Role, payload) {
		b.logger.Warnf("User %d (%s) tried callback %s", claims.UserID, claims.Role, payload)
		b.answerCallbackWithNotification(ctx, callbackID, forbiddenMsg)
		return
	}

	var err error
	switch {
	case payload == payloadBackToMenu:
		err = b.answerWithKeyboard(ctx, callbackID, mainMenuMsg, GetMenuKeyboard(b.MaxAPI, claims.Role))
	case payload == payloadLogout:
		b.sessions.Drop(userID)
		b.clearPendingUpload(userID)
		err = b.answerCallbackWithNotification(ctx, callbackID, loggedOutMsg)
	case payload == payloadUploadStudents:
		err = b.handleUploadStudentsStart(ctx, callbackID)
	case strings.HasPrefix(payload, payloadUploadGroup):
		err = b.handleUploadGroupSelected(ctx, userID, callbackID, payload)
	case payload == payloadUploadTeachers:
		err = b.handleUploadTeachersStart(ctx, userID, callbackID)
	case payload == payloadGroups:
		err = b.handleShowGroups(ctx, callbackID)
	case strings.HasPrefix(payload, payloadGroup):
		err = b.handleGroupSelected(ctx, callbackID, payload)
	case payload == payloadPeriod:
		err = b.handleShowPeriod(ctx, callbackID)
	case payload == payloadInterviews:
		err = b.handleShowInterviews(ctx, callbackID)
	case payload == payloadInbox:
		err = b.handleShowInbox(ctx, claims, callbackID)
	case strings.HasPrefix(payload, payloadMarkRead):
		err = b.handleMarkRead(ctx, claims, callbackID, payload)
	case payload == payloadChildren:
		err = b.handleShowChildren(ctx, claims, callbackID)
	case strings.HasPrefix(payload, payloadChild):
		err = b.handleChildSelected(ctx, claims, callbackID, payload)
	case menuPayload(payload) == payloadEvaluate:
		err = b.handleEvaluateCallback(ctx, claims, callbackID, payload)
	default:
		b.logger.Warnf("Unknown callback: %s", payload)
	}

	if err != nil {
		b.logger.Errorf("Failed to handle callback %s: %v", payload, err)
		b.answerCallbackWithNotification(ctx, callbackID, shared.UserMessage(err))
	}
}

func (b *Bot) handleUnexpectedMessage(ctx context.Context, userID int64) {
	b.clearPendingUpload(userID)

	claims, ok := b.sessions.Get(userID)
	if !ok {
		b.sendMessage(ctx, userID, loginFirstMsg)
		return
	}
	b.sendKeyboard(ctx, GetMenuKeyboard(b.MaxAPI, claims.Role), userID, unknownMessage)
}
