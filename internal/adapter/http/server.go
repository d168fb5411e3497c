package adapthttp

import (
	"context"
	"net/http"

	"petmatch/internal/adapter/backend"
	"petmatch/internal/app"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Backend is the part of the marketplace API the views call directly.
type Backend interface {
	Register(ctx context.Context, reg backend.Registration) (string, error)
	Chat(ctx context.Context, msg backend.ChatMessage) (string, error)
}

// Server is the driving HTTP adapter. It renders the client's views and
// gates the protected ones with the session guards.
type Server struct {
	sessions app.SessionReader
	auth     *app.AuthService
	api      Backend
	webDir   string
	log      *zap.Logger

	oidc         *OIDCConfig
	loginLimiter *rate.Limiter
	chatSession  string
}

// New creates a Server wired to the given session, auth service and backend.
func New(sessions app.SessionReader, auth *app.AuthService, api Backend, webDir string, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		sessions:     sessions,
		auth:         auth,
		api:          api,
		webDir:       webDir,
		log:          log,
		loginLimiter: rate.NewLimiter(rate.Inf, 1),
		chatSession:  uuid.NewString(),
	}
}

// WithOIDC enables single sign-on.
func (s *Server) WithOIDC(cfg *OIDCConfig) *Server {
	s.oidc = cfg
	return s
}

// WithLoginLimiter throttles login submissions.
func (s *Server) WithLoginLimiter(l *rate.Limiter) *Server {
	s.loginLimiter = l
	return s
}

// ChatSession returns the assistant conversation id used by this process.
func (s *Server) ChatSession() string {
	return s.chatSession
}

// Handler returns the root http.Handler for the application.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(s.loggingMiddleware)
	r.Use(withNoCache)

	r.Get("/", s.page("Encontre seu novo amigo", "Animais disponíveis para adoção."))
	r.Get("/animais", s.page("Animais", "Todos os animais disponíveis."))
	r.Get("/pet/{id}", s.handlePetDetails)

	r.Get("/login", s.handleLoginForm)
	r.Post("/login", s.handleLogin)
	r.Post("/logout", s.handleLogout)
	r.Get("/register", s.handleRegisterForm)
	r.Post("/register", s.handleRegister)

	r.Get("/auth/sso/login", s.handleSSOLogin)
	r.Get("/auth/sso/callback", s.handleSSOCallback)

	r.With(s.guard(app.PolicyAuthenticated)).Get("/profile", s.handleProfile)

	r.Group(func(r chi.Router) {
		r.Use(s.guard(app.PolicyShelter))
		r.Get("/add-pet", s.page("Cadastrar pet", "Formulário de cadastro de animal."))
		r.Get("/my-animals", s.page("Meus animais", "Animais cadastrados pela sua organização."))
		r.Get("/edit-pet/{id}", s.handleEditPet)
	})

	r.With(s.guard(app.PolicyAdmin)).Get("/admin", s.page("Painel de administração", "Usuários, ONGs e animais."))

	r.Route("/api", func(api chi.Router) {
		api.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		})
		api.Get("/session", s.handleSession)
		api.Post("/chat", s.handleChat)
	})

	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.Dir(s.webDir))))

	return r
}
