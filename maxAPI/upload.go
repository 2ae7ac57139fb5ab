package maxAPI

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/max-messenger/max-bot-api-client-go/schemes"

	"schoolRecords/auth"
	"schoolRecords/services"
	"schoolRecords/shared"
)

const (
	selectUploadGroupMsg    = "Choose the group the students join:"
	noGroupsMsg             = "There are no active groups."
	fileNotFoundMessage     = "File not found. Send a CSV file."
	multipleFilesMessage    = "%d files were sent. Send a single CSV file at a time."
	noPendingUploadMessage  = "Choose an upload from the menu before sending a file."
	sendStudentsFileMessage = "Send the students file (.csv) for group **%s**."
	sendTeachersFileMessage = "Send the teachers file (.csv)."
	importSuccessMessage    = "✅ Import finished: %d created, %d updated."
)

// upload is what a user announced they will send next.
type upload struct {
	fileType services.FileType
	groupID  int64
}

func (b *Bot) setPendingUpload(userID int64, u upload) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pendingUploads[userID] = u
}

func (b *Bot) clearPendingUpload(userID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.pendingUploads, userID)
}

func (b *Bot) handleUploadStudentsStart(ctx context.Context, callbackID string) error {
	views, err := b.records.ListGroups(ctx, true)
	if err != nil {
		return err
	}
	if len(views) == 0 {
		return b.answerCallbackWithNotification(ctx, callbackID, noGroupsMsg)
	}
	return b.answerWithKeyboard(ctx, callbackID, selectUploadGroupMsg,
		GetGroupsKeyboard(b.MaxAPI, groupsOf(views), payloadUploadGroup))
}

func (b *Bot) handleUploadGroupSelected(ctx context.Context, userID int64, callbackID, payload string) error {
	ids, ok := payloadIDs(payload, payloadUploadGroup, 1)
	if !ok {
		return fmt.Errorf("invalid upload payload: %s", payload)
	}
	view, err := b.records.GetGroup(ctx, ids[0])
	if err != nil {
		return err
	}

	b.setPendingUpload(userID, upload{fileType: services.FileTypeStudents, groupID: view.Group.ID})
	return b.answerWithKeyboard(ctx, callbackID, fmt.Sprintf(sendStudentsFileMessage, view.Group.Name), GetBackKeyboard(b.MaxAPI))
}

func (b *Bot) handleUploadTeachersStart(ctx context.Context, userID int64, callbackID string) error {
	b.setPendingUpload(userID, upload{fileType: services.FileTypeTeachers})
	return b.answerWithKeyboard(ctx, callbackID, sendTeachersFileMessage, GetBackKeyboard(b.MaxAPI))
}

// handleUpload waits briefly for the rest of a multi-file message, then
// imports the file when exactly one was sent.
func (b *Bot) handleUpload(ctx context.Context, userID int64, attachments []interface{}) {
	claims, ok := b.sessions.Get(userID)
	if !ok {
		b.sendMessage(ctx, userID, loginFirstMsg)
		return
	}

	b.mu.Lock()
	pending, ok := b.pendingUploads[userID]
	b.mu.Unlock()
	if !ok || !allowed(claims.Role, payloadUploadTeachers) {
		b.logger.Warnf("No pending upload for user %d", userID)
		b.sendMessage(ctx, userID, noPendingUploadMessage)
		return
	}

	fileAttachments := extractFileAttachments(attachments)
	if len(fileAttachments) == 0 {
		b.sendErrorAndResetUpload(ctx, userID, claims.Role, fileNotFoundMessage)
		return
	}

	b.mu.Lock()
	b.uploadCounter[userID]++
	count := b.uploadCounter[userID]
	b.mu.Unlock()

	if count == 1 {
		go func() {
			time.Sleep(500 * time.Millisecond)

			b.mu.Lock()
			totalFiles := b.uploadCounter[userID]
			delete(b.uploadCounter, userID)
			delete(b.pendingUploads, userID)
			b.mu.Unlock()

			if totalFiles > 1 {
				b.sendErrorAndResetUpload(ctx, userID, claims.Role, fmt.Sprintf(multipleFilesMessage, totalFiles))
				return
			}

			report, err := b.downloadAndProcessFile(ctx, fileAttachments[0], pending)
			if err != nil {
				b.logger.Errorf("Failed to process file %s: %v", fileAttachments[0].Filename, err)
				b.sendErrorAndResetUpload(ctx, userID, claims.Role, shared.UserMessage(err))
				return
			}

			b.sendKeyboard(ctx, GetMenuKeyboard(b.MaxAPI, claims.Role), userID,
				fmt.Sprintf(importSuccessMessage, report.Created, report.Updated))
		}()
	}
}

func (b *Bot) sendErrorAndResetUpload(ctx context.Context, userID int64, role auth.Role, errorMsg string) {
	b.clearPendingUpload(userID)
	b.sendKeyboard(ctx, GetMenuKeyboard(b.MaxAPI, role), userID, fmt.Sprintf(errorMessage, errorMsg))
}

func extractFileAttachments(attachments []interface{}) []*schemes.FileAttachment {
	fileAttachments := []*schemes.FileAttachment{}
	for _, att := range attachments {
		if fileAtt, ok := att.(*schemes.FileAttachment); ok {
			fileAttachments = append(fileAttachments, fileAtt)
		}
	}
	return fileAttachments
}

func (b *Bot) downloadAndProcessFile(ctx context.Context, fileAtt *schemes.FileAttachment, pending upload) (*services.ImportReport, error) {
	filePath, err := b.downloadFile(ctx, fileAtt)
	if err != nil {
		return nil, err
	}
	defer os.Remove(filePath)

	switch pending.fileType {
	case services.FileTypeStudents:
		return b.records.ImportStudents(ctx, filePath, pending.groupID)
	case services.FileTypeTeachers:
		return b.records.ImportTeachers(ctx, filePath)
	default:
		return nil, fmt.Errorf("unknown upload type: %s", pending.fileType)
	}
}

func (b *Bot) downloadFile(ctx context.Context, fileAtt *schemes.FileAttachment) (string, error) {
	fileURL := fileAtt.Payload.Url
	b.logger.Debugf("Downloading file: %s from %s", fileAtt.Filename, fileURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return "", err
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b.logger.Errorf("Bad HTTP status when downloading file: %s", resp.Status)
		return "", fmt.Errorf("failed to download file: status %s", resp.Status)
	}

	out, err := os.CreateTemp("", "import-*"+filepath.Ext(fileAtt.Filename))
	if err != nil {
		return "", err
	}
	defer out.Close()

	if _, err := io.Copy(out, resp.Body); err != nil {
		os.Remove(out.Name())
		return "", err
	}

	b.logger.Infof("File saved to: %s", out.Name())
	return out.Name(), nil
}
