package adapthttp

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

func (s *Server) handlePetDetails(w http.ResponseWriter, r *http.Request) {
	id, ok := petID(r)
	if !ok {
		http.NotFound(w, r)
		return
	}
	s.page(fmt.Sprintf("Pet #%d", id), "Detalhes do animal.")(w, r)
}

func (s *Server) handleEditPet(w http.ResponseWriter, r *http.Request) {
	id, ok := petID(r)
	if !ok {
		http.NotFound(w, r)
		return
	}
	s.page(fmt.Sprintf("Editar pet #%d", id), "Formulário de edição do animal.")(w, r)
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	st := s.sessions.Snapshot()
	d := s.newView("Perfil")
	d.Body = "Tipo de conta: " + roleLabel(st.Role)
	if st.HasUserID {
		d.Body += fmt.Sprintf(" · ID %d", st.UserID)
	}
	s.render(w, http.StatusOK, pageView, d)
}

func petID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
