package api

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/cipherchat/cipherchat-back/internal/apperr"
	"github.com/cipherchat/cipherchat-back/internal/auth"
	"github.com/cipherchat/cipherchat-back/internal/models"
)

const maxFileSize = 50 * 1024 * 1024 // 50 MiB

type uploadFileResponse struct {
	FileID      uuid.UUID `json:"file_id"`
	SizeInBytes int64     `json:"size_in_bytes"`
	UploadedAt  time.Time `json:"uploaded_at"`
}

type downloadFileRequest struct {
	FileID    uuid.UUID `json:"file_id"`
	MessageID uuid.UUID `json:"message_id"`
}

type downloadFileResponse struct {
	FileID            uuid.UUID `json:"file_id"`
	EncryptedData     []byte    `json:"encrypted_data"`
	EncryptedMetadata []byte    `json:"encrypted_metadata"`
	SizeInBytes       int64     `json:"size_in_bytes"`
	UploadedAt        time.Time `json:"uploaded_at"`
}

func (s *Server) handleUploadFile(w http.ResponseWriter, r *http.Request) {
	reader, err := r.MultipartReader()
	if err != nil {
		apperr.Respond(w, apperr.ErrInvalidRequestFormat)
		return
	}

	var encryptedData, encryptedMetadata []byte
	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			apperr.Respond(w, apperr.ErrInvalidRequestFormat)
			return
		}

		// Read one byte past the cap to detect oversize parts.
		data, err := io.ReadAll(io.LimitReader(part, maxFileSize+1))
		part.Close()
		if err != nil {
			apperr.Respond(w, apperr.ErrInvalidRequestFormat)
			return
		}
		if len(data) > maxFileSize {
			apperr.Respond(w, apperr.ErrFileLimitExceeded)
			return
		}

		switch part.FormName() {
		case "encrypted_data":
			encryptedData = data
		case "encrypted_metadata":
			encryptedMetadata = data
		}
	}

	if encryptedData == nil {
		apperr.Respond(w, apperr.ErrInvalidRequestFormat)
		return
	}

	file, err := s.db.InsertFile(r.Context(), encryptedData, encryptedMetadata, auth.HashData(encryptedData))
	if err != nil {
		s.logger.Error(r.Context(), "inserting file: %v", err)
		apperr.Respond(w, apperr.ErrInternal)
		return
	}

	s.logger.Info(r.Context(), "stored encrypted file %s (%d bytes)", file.ID, file.SizeInBytes)
	apperr.RespondJSON(w, http.StatusOK, uploadFileResponse{
		FileID:      file.ID,
		SizeInBytes: file.SizeInBytes,
		UploadedAt:  file.UploadedAt,
	})
}

// messageAccessError returns the error to surface when a member may not
// read a message: no active membership, or the message predates their
// join. The same visibility rule bounds message history.
func messageAccessError(member *models.RoomMember, message *models.UserMessage) error {
	if member == nil || member.LeftAt != nil {
		return apperr.ErrNotRoomMember
	}
	if message.CreatedAt.Before(member.JoinedAt) {
		return apperr.ErrMessageNotFound
	}
	return nil
}

// handleDownloadFile returns an encrypted blob. The caller must be a
// current member of the room the referencing message belongs to, and the
// message must fall inside their visibility window.
func (s *Server) handleDownloadFile(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r.Context())

	var body downloadFileRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		apperr.Respond(w, apperr.ErrInvalidRequestFormat)
		return
	}

	message, err := s.db.GetMessageByID(r.Context(), body.MessageID)
	if err != nil {
		s.logger.Error(r.Context(), "looking up message: %v", err)
		apperr.Respond(w, apperr.ErrInternal)
		return
	}
	if message == nil {
		apperr.Respond(w, apperr.ErrMessageNotFound)
		return
	}

	member, err := s.db.GetRoomMember(r.Context(), message.RoomID, userID)
	if err != nil {
		s.logger.Error(r.Context(), "checking membership: %v", err)
		apperr.Respond(w, apperr.ErrInternal)
		return
	}
	if err := messageAccessError(member, message); err != nil {
		apperr.Respond(w, err)
		return
	}

	file, err := s.db.GetFile(r.Context(), body.FileID)
	if err != nil {
		s.logger.Error(r.Context(), "fetching file: %v", err)
		apperr.Respond(w, apperr.ErrInternal)
		return
	}
	if file == nil {
		apperr.Respond(w, apperr.ErrFileNotFound)
		return
	}

	apperr.RespondJSON(w, http.StatusOK, downloadFileResponse{
		FileID:            file.ID,
		EncryptedData:     file.EncryptedData,
		EncryptedMetadata: file.EncryptedMetadata,
		SizeInBytes:       file.SizeInBytes,
		UploadedAt:        file.UploadedAt,
	})
}
