package api

import (
	"encoding/json"
	"net/http"

	"github.com/cipherchat/cipherchat-back/internal/apperr"
	"github.com/cipherchat/cipherchat-back/internal/db"
	"github.com/cipherchat/cipherchat-back/internal/models"
)

type signedPreKeyPayload struct {
	KeyID     int32  `json:"key_id"`
	PublicKey string `json:"public_key"`
	Signature string `json:"signature"`
}

type oneTimePreKeyPayload struct {
	KeyID     int32  `json:"key_id"`
	PublicKey string `json:"public_key"`
}

type uploadKeysRequest struct {
	IdentityKey    string                 `json:"identity_key"`
	RegistrationID int32                  `json:"registration_id"`
	SignedPreKey   signedPreKeyPayload    `json:"signed_prekey"`
	OneTimePreKeys []oneTimePreKeyPayload `json:"one_time_prekeys"`
}

type preKeyBundleResponse struct {
	IdentityKey    string                `json:"identity_key"`
	RegistrationID int32                 `json:"registration_id"`
	SignedPreKey   signedPreKeyPayload   `json:"signed_prekey"`
	OneTimePreKey  *oneTimePreKeyPayload `json:"one_time_prekey"`
}

type keyCountResponse struct {
	Count int64 `json:"count"`
}

func (s *Server) handleUploadKeys(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r.Context())

	var body uploadKeysRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		apperr.Respond(w, apperr.ErrInvalidRequestFormat)
		return
	}

	bundle := db.KeyBundleUpload{
		IdentityKey:    body.IdentityKey,
		RegistrationID: body.RegistrationID,
		SignedPreKey: models.SignedPreKey{
			KeyID:     body.SignedPreKey.KeyID,
			PublicKey: body.SignedPreKey.PublicKey,
			Signature: body.SignedPreKey.Signature,
		},
	}
	for _, otk := range body.OneTimePreKeys {
		bundle.OneTimePreKeys = append(bundle.OneTimePreKeys, models.OneTimePreKey{
			KeyID:     otk.KeyID,
			PublicKey: otk.PublicKey,
		})
	}

	if err := s.db.UploadKeyBundle(r.Context(), userID, bundle); err != nil {
		s.logger.Error(r.Context(), "uploading key bundle: %v", err)
		apperr.Respond(w, apperr.ErrInternal)
		return
	}

	s.logger.Info(r.Context(), "user %s uploaded key bundle with %d one-time keys", userID, len(body.OneTimePreKeys))
	apperr.RespondJSON(w, http.StatusOK, struct{}{})
}

func (s *Server) handleKeyCount(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r.Context())

	count, err := s.db.GetOneTimePreKeyCount(r.Context(), userID)
	if err != nil {
		s.logger.Error(r.Context(), "counting one-time prekeys: %v", err)
		apperr.Respond(w, apperr.ErrInternal)
		return
	}

	apperr.RespondJSON(w, http.StatusOK, keyCountResponse{Count: count})
}

func (s *Server) handlePreKeyBundle(w http.ResponseWriter, r *http.Request) {
	username := r.PathValue("username")

	user, err := s.db.GetUserByUsername(r.Context(), username)
	if err != nil {
		s.logger.Error(r.Context(), "looking up user %s: %v", username, err)
		apperr.Respond(w, apperr.ErrInternal)
		return
	}
	if user == nil {
		apperr.Respond(w, apperr.ErrUserNotFound)
		return
	}

	identityKey, err := s.db.GetIdentityKey(r.Context(), user.ID)
	if err != nil {
		s.logger.Error(r.Context(), "fetching identity key: %v", err)
		apperr.Respond(w, apperr.ErrInternal)
		return
	}
	if identityKey == nil {
		apperr.Respond(w, apperr.ErrUserHasNoKeys)
		return
	}

	signedPreKey, err := s.db.GetSignedPreKey(r.Context(), user.ID)
	if err != nil {
		s.logger.Error(r.Context(), "fetching signed prekey: %v", err)
		apperr.Respond(w, apperr.ErrInternal)
		return
	}
	if signedPreKey == nil {
		apperr.Respond(w, apperr.ErrUserHasNoKeys)
		return
	}

	oneTimePreKey, err := s.db.ConsumeOneTimePreKey(r.Context(), user.ID)
	if err != nil {
		s.logger.Error(r.Context(), "consuming one-time prekey: %v", err)
		apperr.Respond(w, apperr.ErrInternal)
		return
	}

	resp := preKeyBundleResponse{
		IdentityKey:    identityKey.IdentityKey,
		RegistrationID: identityKey.RegistrationID,
		SignedPreKey: signedPreKeyPayload{
			KeyID:     signedPreKey.KeyID,
			PublicKey: signedPreKey.PublicKey,
			Signature: signedPreKey.Signature,
		},
	}
	if oneTimePreKey != nil {
		resp.OneTimePreKey = &oneTimePreKeyPayload{
			KeyID:     oneTimePreKey.KeyID,
			PublicKey: oneTimePreKey.PublicKey,
		}
	}

	apperr.RespondJSON(w, http.StatusOK, resp)
}
