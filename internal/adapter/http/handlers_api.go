package adapthttp

import (
	"errors"
	"net/http"
	"strings"

	"petmatch/internal/adapter/backend"

	"go.uber.org/zap"
)

type sessionResponse struct {
	Authenticated bool   `json:"authenticated"`
	Loading       bool   `json:"loading"`
	Role          string `json:"role,omitempty"`
	UserID        *int64 `json:"user_id,omitempty"`
}

// handleSession reports the current session. The token never leaves the process.
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	st := s.sessions.Snapshot()
	resp := sessionResponse{
		Authenticated: st.IsAuthenticated(),
		Loading:       st.Loading,
		Role:          st.Role.String(),
	}
	if st.HasUserID {
		id := st.UserID
		resp.UserID = &id
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Message string `json:"message"`
	}
	if err := parseJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	req.Message = strings.TrimSpace(req.Message)
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, errors.New("message is required"))
		return
	}

	msg := backend.ChatMessage{Message: req.Message, SessionID: s.chatSession}
	if st := s.sessions.Snapshot(); st.HasUserID {
		id := st.UserID
		msg.UserID = &id
	}

	reply, err := s.api.Chat(r.Context(), msg)
	if err != nil {
		s.log.Warn("chat", zap.Error(err))
		writeError(w, http.StatusBadGateway, errors.New("assistant unavailable"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"response": reply})
}
