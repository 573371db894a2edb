package handler

import (
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"relaychat/internal/app/chat"
	"relaychat/internal/app/store"
	"relaychat/internal/pkg/auth/jwt"
	"relaychat/internal/pkg/errs"
	"relaychat/internal/pkg/logx"
	"relaychat/internal/pkg/req"
	"relaychat/internal/pkg/resp"

	"github.com/google/uuid"
)

// PresignUploadInput defines the JSON input structure for generating upload URL.
type PresignUploadInput struct {
	ChannelID string `json:"channelId"`
	FileName  string `json:"fileName"`
	MimeType  string `json:"mimeType"`
	FileSize  int64  `json:"fileSize"`
}

// requireChannelMember loads the channel and checks that username belongs to
// it. The public room has no membership roster and admits everyone.
func requireChannelMember(r *http.Request, deps *AppDeps, channelID, username string) *errs.CustomError {
	if channelID == store.PublicChannelID {
		return nil
	}

	ch, err := deps.Store.GetChannel(r.Context(), channelID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return errs.NewError(errs.ErrChannelNotFound)
		}
		logx.Error(err, "failed to load channel for attachment check", "channel_id", channelID)
		return errs.NewError(errs.ErrStoreFailed)
	}

	if !ch.IsMember(username) {
		return errs.NewError(errs.ErrUnauthorized)
	}
	return nil
}

// HandlePresignUploadURL creates an HTTP HandlerFunc to generate a time-limited,
// pre-signed URL for file upload, scoped to a specific channel.
func HandlePresignUploadURL(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := jwt.GetPayloadFromContext(r)
		if payload == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		var input PresignUploadInput
		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if input.ChannelID == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		if customErr := requireChannelMember(r, deps, input.ChannelID, payload.Username); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if err := chat.ValidateFileSize(input.FileSize); err != nil {
			resp.RespondError(w, r, err)
			return
		}

		if err := chat.ValidateFileType(input.FileName, input.MimeType); err != nil {
			resp.RespondError(w, r, err)
			return
		}

		fileExt := strings.ToLower(filepath.Ext(input.FileName))
		fileID := uuid.New().String()
		fileKey := fmt.Sprintf("%s/%s%s", input.ChannelID, fileID, fileExt)

		url, err := deps.StorageService.PresignUpload(
			r.Context(),
			fileKey,
			input.MimeType,
			input.FileSize,
			chat.PresignedURLDuration,
		)

		if err != nil {
			logx.Error(err, "failed to presign upload", "file_key", fileKey)
			resp.RespondError(w, r, errs.NewError(errs.ErrFileStorageFailed))
			return
		}

		data := map[string]any{
			"presignedUrl": url,
			"fileKey":      fileKey,
			"fileName":     input.FileName,
		}
		resp.RespondSuccess(w, r, data)
	}
}

// HandlePresignDownloadURL creates an HTTP HandlerFunc to generate a time-limited,
// pre-signed URL for file download, scoped to a specific channel.
func HandlePresignDownloadURL(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := jwt.GetPayloadFromContext(r)
		if payload == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		fileKey := r.URL.Query().Get("k")
		if fileKey == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		// Object keys are prefixed with the channel id they belong to.
		channelID, _, found := strings.Cut(fileKey, "/")
		if !found || channelID == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrAttachmentKeyInvalid))
			return
		}

		if customErr := requireChannelMember(r, deps, channelID, payload.Username); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		// No presigned URL for objects that are not there; the key may
		// reference an attachment already deleted by the channel creator.
		if _, err := deps.StorageService.GetObjectMetadata(r.Context(), fileKey); err != nil {
			logx.Warn("download rejected: object lookup failed", "file_key", fileKey, "error", err)
			resp.RespondError(w, r, errs.NewError(errs.ErrAttachmentKeyInvalid))
			return
		}

		url, err := deps.StorageService.PresignDownload(
			r.Context(),
			fileKey,
			chat.PresignedURLDuration,
		)

		if err != nil {
			logx.Error(err, "failed to presign download", "file_key", fileKey)
			resp.RespondError(w, r, errs.NewError(errs.ErrFileStorageFailed))
			return
		}

		http.Redirect(w, r, url, http.StatusFound)
	}
}

type DeleteAttachmentInput struct {
	FileKey string `json:"fileKey"`
}

// HandleDeleteAttachment removes an uploaded object from storage. Deleting
// attachments is a moderation concern, so only the channel creator may do it;
// messages referencing the key keep their metadata and downloads start failing.
func HandleDeleteAttachment(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := jwt.GetPayloadFromContext(r)
		if payload == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		var input DeleteAttachmentInput
		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		channelID, _, found := strings.Cut(input.FileKey, "/")
		if !found || channelID == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrAttachmentKeyInvalid))
			return
		}

		ch, err := deps.Store.GetChannel(r.Context(), channelID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				resp.RespondError(w, r, errs.NewError(errs.ErrChannelNotFound))
				return
			}
			logx.Error(err, "failed to load channel for attachment delete", "channel_id", channelID)
			resp.RespondError(w, r, errs.NewError(errs.ErrStoreFailed))
			return
		}

		if payload.Username != ch.Creator {
			resp.RespondError(w, r, errs.NewError(errs.ErrNotChannelOwner))
			return
		}

		if err := deps.StorageService.Delete(r.Context(), input.FileKey); err != nil {
			logx.Error(err, "failed to delete attachment", "file_key", input.FileKey)
			resp.RespondError(w, r, errs.NewError(errs.ErrFileStorageFailed))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"fileKey": input.FileKey,
		})
	}
}
