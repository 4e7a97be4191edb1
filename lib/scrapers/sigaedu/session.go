package sigaedu

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http/cookiejar"
	"net/url"
	"time"

	"sigaedu-backend/lib/restyutil"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("scrapers/sigaedu")

var ErrLoginFailed = fmt.Errorf("failed to login to your account")

// request/response contract with the JSF application, exact string
// matches against the current markup of the portal
const (
	viewstateField    = "javax.faces.ViewState"
	sessionCookieName = "JSESSIONID"
	loginPage         = "/login.jsf"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"

var restyOutput restyutil.InstrumentOutput

// SetRestyInstrumentOutput dumps every HTTP exchange of sessions
// created afterwards to the given output. Debugging aid.
func SetRestyInstrumentOutput(output restyutil.InstrumentOutput) {
	restyOutput = output
}

// Session owns the cookie-bearing connection to one SIGA-EDU
// instance and the JSF viewstate token the server expects back on
// every postback. Not safe for concurrent use, each browsing
// context needs its own Session.
type Session struct {
	BaseUrl *url.URL
	Http    *resty.Client

	// the most recently observed viewstate token, empty before the
	// first response has been parsed
	viewstate string
}

type SessionOptions struct {
	BaseUrl string
	// optional, a default browser user-agent is used when empty
	UserAgent string
}

func NewSession(ctx context.Context, opts SessionOptions) (*Session, error) {
	baseUrl, err := url.Parse(opts.BaseUrl)
	if err != nil {
		return nil, err
	}

	client := resty.New()
	client.SetBaseURL(opts.BaseUrl)
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	client.SetCookieJar(jar)

	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	client.SetHeader("user-agent", userAgent)
	client.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(baseUrl.Hostname()))
	client.SetTimeout(time.Second * 30)

	restyutil.InstrumentClient(client, tracer, restyOutput)

	s := &Session{
		BaseUrl: baseUrl,
		Http:    client,
	}
	return s, nil
}

// extractViewstate pulls the value of the first hidden
// <input id="javax.faces.ViewState"> out of a response body. An
// empty string means the page carried no viewstate, which is normal
// on the very first unauthenticated load.
func extractViewstate(doc *goquery.Document) string {
	return doc.Find(`input[id='javax.faces.ViewState']`).First().AttrOr("value", "")
}

// Post submits a form to the given page with the current viewstate
// token merged in, then overwrites the stored token with whatever
// the response carries (last response wins, even when absent).
func (s *Session) Post(ctx context.Context, page string, form map[string]string) (*resty.Response, error) {
	ctx, span := tracer.Start(ctx, "session:Post")
	defer span.End()

	data := map[string]string{}
	for k, v := range form {
		data[k] = v
	}
	// the stored token takes precedence over a caller-supplied field
	data[viewstateField] = s.viewstate

	slog.DebugContext(ctx, "postback", "page", page, "has_viewstate", s.viewstate != "")

	res, err := s.Http.R().
		SetContext(ctx).
		SetFormData(data).
		Post(page)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch")
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse html")
		return nil, err
	}
	s.viewstate = extractViewstate(doc)

	return res, nil
}

// Login navigates to the login page to establish the session cookie
// and an initial viewstate, then submits the credential form. A
// response showing an error element fails with ErrLoginFailed, the
// session holds no authenticated state afterwards.
func (s *Session) Login(ctx context.Context, username, password string) error {
	ctx, span := tracer.Start(ctx, "session:Login")
	defer span.End()

	_, err := s.Post(ctx, loginPage, nil)
	if err != nil {
		span.SetStatus(codes.Error, "failed to load login page")
		return err
	}

	res, err := s.Post(ctx, loginPage, map[string]string{
		"formlogin":            "formlogin",
		"formlogin:login":      username,
		"formlogin:senha":      password,
		"formlogin:botaologar": "Entrar",
	})
	if err != nil {
		span.SetStatus(codes.Error, "failed to submit credentials")
		return err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse login response")
		return err
	}

	if doc.Find("div.error").Length() > 0 {
		span.SetStatus(codes.Error, ErrLoginFailed.Error())
		return fmt.Errorf("%w: user %q", ErrLoginFailed, username)
	}

	slog.DebugContext(ctx, "session authenticated", "session_id", s.SessionId())
	return nil
}

// SessionId reads the session-identifier cookie, empty before the
// first response has set one.
func (s *Session) SessionId() string {
	jar := s.Http.GetClient().Jar
	if jar == nil {
		return ""
	}
	for _, cookie := range jar.Cookies(s.BaseUrl) {
		if cookie.Name == sessionCookieName {
			return cookie.Value
		}
	}
	return ""
}
