package httpapi

import (
	"crypto/subtle"
	"net/http"
	"strconv"
	"strings"

	"costumier/internal/domain"
)

const (
	headerAdminToken = "x-admin-token"
	headerTgID       = "x-tg-id"
)

// requesterID extracts the Telegram id of the caller. Zero means absent.
func requesterID(r *http.Request) int64 {
	raw := strings.TrimSpace(r.Header.Get(headerTgID))
	if raw == "" {
		return 0
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0
	}
	return id
}

// resolveAdmin authenticates an admin request: the shared secret wins,
// otherwise the tg id must belong to a stored admin. The resolved identity
// is passed to services explicitly rather than stashed on the request.
func (s *Server) resolveAdmin(r *http.Request) (domain.Admin, bool) {
	token := strings.TrimSpace(r.Header.Get(headerAdminToken))
	if token != "" && subtle.ConstantTimeCompare([]byte(token), []byte(s.adminToken)) == 1 {
		return domain.Admin{TgID: requesterID(r)}, true
	}

	tgID := requesterID(r)
	if tgID != 0 && s.users.IsAdmin(r.Context(), tgID) {
		return domain.Admin{TgID: tgID}, true
	}

	return domain.Admin{}, false
}

// requireAdmin wraps admin handlers with the auth check.
func (s *Server) requireAdmin(next func(http.ResponseWriter, *http.Request, domain.Admin)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		admin, ok := s.resolveAdmin(r)
		if !ok {
			writeError(w, http.StatusForbidden, codeForbidden, "admin access required")
			return
		}
		next(w, r, admin)
	}
}
