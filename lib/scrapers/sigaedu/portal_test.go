package sigaedu

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// fakePortal is a minimal stand-in for a SIGA-EDU instance: it sets
// a JSESSIONID cookie, issues a fresh viewstate token on every
// response, and records any request whose submitted viewstate does
// not match the last token issued to that session.
type fakePortal struct {
	t  *testing.T
	mu sync.Mutex

	sessions map[string]*portalSession
	nextSid  int

	username string
	password string

	// inner <option> markup for each dropdown, and the <tr> markup
	// for the diary table body
	enrollmentOptions string
	termOptions       string
	diaryRows         string

	// when set, the enrollment page omits its dropdown entirely
	omitEnrollmentSelect bool

	viewstateMismatches []string
}

type portalSession struct {
	counter   int
	viewstate string
	authed    bool
}

func newFakePortal(t *testing.T) (*fakePortal, *httptest.Server) {
	p := &fakePortal{
		t:        t,
		sessions: map[string]*portalSession{},
		username: "aluno",
		password: "senha123",
	}
	server := httptest.NewServer(http.HandlerFunc(p.handle))
	t.Cleanup(server.Close)
	return p, server
}

func (p *fakePortal) handle(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()

	err := r.ParseForm()
	if err != nil {
		p.t.Errorf("failed to parse form: %s", err)
	}

	var sid string
	cookie, err := r.Cookie("JSESSIONID")
	if err == nil {
		sid = cookie.Value
	} else {
		p.nextSid++
		sid = fmt.Sprintf("sid%d", p.nextSid)
		http.SetCookie(w, &http.Cookie{Name: "JSESSIONID", Value: sid, Path: "/"})
	}

	ps := p.sessions[sid]
	if ps == nil {
		ps = &portalSession{}
		p.sessions[sid] = ps
	}

	got := r.PostFormValue("javax.faces.ViewState")
	if got != ps.viewstate {
		p.viewstateMismatches = append(p.viewstateMismatches, fmt.Sprintf(
			"session %s: got viewstate %q, last issued %q", sid, got, ps.viewstate,
		))
	}
	ps.counter++
	ps.viewstate = fmt.Sprintf("j_id-%s-%d", sid, ps.counter)

	var content string
	switch r.URL.Path {
	case "/login.jsf":
		if r.PostFormValue("formlogin:login") == "" {
			content = `<form id="formlogin"></form>`
			break
		}
		if r.PostFormValue("formlogin:login") == p.username &&
			r.PostFormValue("formlogin:senha") == p.password {
			ps.authed = true
			content = `<span>Bem-vindo</span>`
			break
		}
		content = `<div class="error">Usuário ou senha incorretos.</div>`
	case enrollmentsPage:
		if !ps.authed || p.omitEnrollmentSelect {
			content = `<span>Página inicial</span>`
			break
		}
		content = fmt.Sprintf(`<select id="busca:matriculas">%s</select>`, p.enrollmentOptions)
	case termsPage:
		if !ps.authed {
			content = `<span>Página inicial</span>`
			break
		}
		content = fmt.Sprintf(`<select id="busca:periodoLetivo">%s</select>`, p.termOptions)
	case diaryPage:
		if !ps.authed {
			content = `<span>Página inicial</span>`
			break
		}
		content = fmt.Sprintf(`<table><tbody id="busca:classes:tb">%s</tbody></table>`, p.diaryRows)
	default:
		http.NotFound(w, r)
		return
	}

	fmt.Fprintf(
		w,
		`<html><body>%s<form><input type="hidden" id="javax.faces.ViewState" value=%q /></form></body></html>`,
		content, ps.viewstate,
	)
}

func (p *fakePortal) mismatches() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string{}, p.viewstateMismatches...)
}
