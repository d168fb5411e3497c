package adapthttp

import (
	"html/template"
	"net/http"

	"petmatch/internal/app"
	"petmatch/internal/domain"

	"go.uber.org/zap"
)

const layoutTmpl = `{{define "layout"}}<!doctype html>
<html lang="pt-BR">
<head>
<meta charset="utf-8">
<title>{{.Title}} · PetMatch</title>
{{if .Refresh}}<meta http-equiv="refresh" content="1">{{end}}
<link rel="stylesheet" href="/static/app.css">
</head>
<body>
<nav>
  <a href="/">PetMatch</a>
  <a href="/animais">Animais</a>
  {{range .Nav}}<a href="{{.Href}}">{{.Label}}</a>{{end}}
  {{if .Authenticated}}
  <form method="post" action="/logout"><button type="submit">Sair</button></form>
  {{else}}
  <a href="/login">Entrar</a> <a href="/register">Cadastrar</a>
  {{end}}
</nav>
<main>
{{if .Error}}<p class="error">{{.Error}}</p>{{end}}
{{if .Notice}}<p class="notice">{{.Notice}}</p>{{end}}
{{template "content" .}}
</main>
</body>
</html>{{end}}`

const pageTmpl = `{{define "content"}}<h1>{{.Title}}</h1>{{if .Body}}<p>{{.Body}}</p>{{end}}{{end}}`

const checkingTmpl = `{{define "content"}}<p class="checking">Verificando sessão…</p>{{end}}`

const loginTmpl = `{{define "content"}}<h1>Entrar</h1>
<form method="post" action="/login">
  <label>Email <input type="email" name="email" value="{{.Email}}" required></label>
  <label>Senha <input type="password" name="senha" required></label>
  <button type="submit">Entrar</button>
</form>
{{if .SSO}}<p><a href="/auth/sso/login">Entrar com SSO</a></p>{{end}}{{end}}`

const registerTmpl = `{{define "content"}}<h1>Cadastrar</h1>
<form method="post" action="/register">
  <label><input type="checkbox" name="ong_protetor" value="1"> Sou ONG/Protetor</label>
  <label>Nome <input name="nome"></label>
  <label>Organização <input name="nome_organizacao"></label>
  <label>CPF/CNPJ <input name="cnpj_cpf"></label>
  <label>Email <input type="email" name="email" value="{{.Email}}" required></label>
  <label>Senha <input type="password" name="senha" minlength="6" required></label>
  <label>Telefone <input name="telefone"></label>
  <label>Endereço <input name="endereco"></label>
  <button type="submit">Cadastrar</button>
</form>{{end}}`

func mustView(content string) *template.Template {
	t := template.Must(template.New("layout").Parse(layoutTmpl))
	return template.Must(t.Parse(content))
}

var (
	pageView     = mustView(pageTmpl)
	checkingView = mustView(checkingTmpl)
	loginView    = mustView(loginTmpl)
	registerView = mustView(registerTmpl)
)

type navLink struct {
	Href   string
	Label  string
	policy app.Policy
}

// Navigation entries are shown only when their guard would admit the visitor.
var navLinks = []navLink{
	{Href: "/profile", Label: "Perfil", policy: app.PolicyAuthenticated},
	{Href: "/add-pet", Label: "Cadastrar pet", policy: app.PolicyShelter},
	{Href: "/my-animals", Label: "Meus animais", policy: app.PolicyShelter},
	{Href: "/admin", Label: "Admin", policy: app.PolicyAdmin},
}

type viewData struct {
	Title         string
	Body          string
	Error         string
	Notice        string
	Email         string
	SSO           bool
	Refresh       bool
	Authenticated bool
	Role          string
	Nav           []navLink
}

func (s *Server) newView(title string) viewData {
	st := s.sessions.Snapshot()
	d := viewData{
		Title:         title,
		Authenticated: st.IsAuthenticated(),
		Role:          st.Role.String(),
		SSO:           s.oidc != nil && s.oidc.Enabled,
	}
	for _, l := range navLinks {
		if l.policy.Evaluate(st) == app.OutcomeAllow {
			d.Nav = append(d.Nav, l)
		}
	}
	return d
}

func (s *Server) render(w http.ResponseWriter, status int, t *template.Template, d viewData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := t.ExecuteTemplate(w, "layout", d); err != nil {
		s.log.Error("render view", zap.Error(err))
	}
}

// page renders a placeholder for a view whose content lives in the
// marketplace backend.
func (s *Server) page(title, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d := s.newView(title)
		d.Body = body
		s.render(w, http.StatusOK, pageView, d)
	}
}

func roleLabel(r domain.Role) string {
	switch r {
	case domain.RoleUser:
		return "Usuário"
	case domain.RoleShelter:
		return "ONG/Protetor"
	case domain.RoleAdmin:
		return "Administrador"
	case domain.RoleNone:
		return "Sem perfil"
	}
	return r.String()
}
