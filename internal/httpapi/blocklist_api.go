package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"slotbook/internal/metrics"
)

// BlockRequest is the body for adding a requester to the denylist.
type BlockRequest struct {
	UID    string `json:"uid"`
	Reason string `json:"reason"`
}

// BlockedEntry is one denylist row in API responses.
type BlockedEntry struct {
	UID       string `json:"uid"`
	Reason    string `json:"reason"`
	BlockedBy string `json:"blocked_by"`
	BlockedAt string `json:"blocked_at"`
}

// handleBlocklist routes the denylist collection.
// GET /api/v1/admin/blocklist lists entries, POST adds one.
func (s *HTTPServer) handleBlocklist(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("blocklist")

	switch r.Method {
	case http.MethodGet:
		blocked, err := s.access.ListBlocked(r.Context())
		if err != nil {
			s.log.Error().Err(err).Msg("list blocklist failed")
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		entries := make([]BlockedEntry, 0, len(blocked))
		for _, b := range blocked {
			entries = append(entries, BlockedEntry{
				UID:       b.UID,
				Reason:    b.Reason,
				BlockedBy: b.BlockedBy,
				BlockedAt: b.BlockedAt.Format(time.RFC3339),
			})
		}
		writeJSON(w, http.StatusOK, map[string]any{"blocked": entries})

	case http.MethodPost:
		var req BlockRequest
		decoder := json.NewDecoder(r.Body)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if req.UID == "" {
			writeError(w, http.StatusBadRequest, "uid is required")
			return
		}

		if err := s.access.BlockRequester(r.Context(), req.UID, req.Reason, identityFrom(r).UID); err != nil {
			s.log.Warn().Err(err).Str("uid", req.UID).Msg("block requester failed")
			writeError(w, http.StatusForbidden, "not allowed")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true})

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// AddAdminRequest is the body for promoting a requester to admin.
type AddAdminRequest struct {
	UID string `json:"uid"`
}

// handleAddAdmin grants administrative rights.
// POST /api/v1/admin/admins
func (s *HTTPServer) handleAddAdmin(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("add_admin")

	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use POST")
		return
	}

	var req AddAdminRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.UID == "" {
		writeError(w, http.StatusBadRequest, "uid is required")
		return
	}

	if err := s.access.AddAdmin(r.Context(), req.UID, identityFrom(r).UID); err != nil {
		s.log.Warn().Err(err).Str("uid", req.UID).Msg("add admin failed")
		writeError(w, http.StatusForbidden, "not allowed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// handleUnblock removes a denylist entry.
// DELETE /api/v1/admin/blocklist/{uid}
func (s *HTTPServer) handleUnblock(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("unblock")

	if r.Method != http.MethodDelete {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	uid := strings.TrimPrefix(r.URL.Path, "/api/v1/admin/blocklist/")
	if uid == "" {
		writeError(w, http.StatusBadRequest, "uid is required")
		return
	}

	if err := s.access.UnblockRequester(r.Context(), uid); err != nil {
		s.log.Error().Err(err).Str("uid", uid).Msg("unblock failed")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}
