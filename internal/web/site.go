package web

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"
)

//go:embed shell/index.html
var shellFS embed.FS

var shellTemplate = template.Must(template.ParseFS(shellFS, "shell/index.html"))

// Access decides what the guard does for a page.
type Access int

const (
	AccessPublic Access = iota
	AccessProtected
	// AccessAuthRedirect sends signed-in visitors to the dashboard and shows
	// everybody else the landing page.
	AccessAuthRedirect
)

type Page struct {
	Path   string
	Title  string
	Access Access
}

var Pages = []Page{
	{Path: "/", Title: "Home", Access: AccessAuthRedirect},
	{Path: "/home", Title: "Home", Access: AccessPublic},
	{Path: "/login", Title: "Log In", Access: AccessPublic},
	{Path: "/signup", Title: "Sign Up", Access: AccessPublic},
	{Path: "/services", Title: "Services", Access: AccessPublic},
	{Path: "/about", Title: "About", Access: AccessPublic},
	{Path: "/dashboard", Title: "Dashboard", Access: AccessProtected},
	{Path: "/orders", Title: "Orders", Access: AccessProtected},
	{Path: "/wallet", Title: "Wallet", Access: AccessProtected},
	{Path: "/wallet/add-funds", Title: "Add Funds", Access: AccessProtected},
	{Path: "/profile", Title: "Profile", Access: AccessProtected},
	{Path: "/settings", Title: "Settings", Access: AccessProtected},
}

type Config struct {
	// AssetsURL is where the built client bundle lives, without a trailing slash.
	AssetsURL string
	APIBase   string
}

type Site struct {
	guard  *Guard
	pages  map[string]Page
	cfg    Config
	logger *zap.Logger
}

func NewSite(guard *Guard, cfg Config, logger *zap.Logger) *Site {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg.AssetsURL = strings.TrimRight(cfg.AssetsURL, "/")
	if cfg.AssetsURL == "" {
		cfg.AssetsURL = "/assets"
	}
	if cfg.APIBase == "" {
		cfg.APIBase = "/v1"
	}

	pages := make(map[string]Page, len(Pages))
	for _, p := range Pages {
		pages[p.Path] = p
	}
	return &Site{guard: guard, pages: pages, cfg: cfg, logger: logger}
}

type bootState struct {
	Path       string `json:"path"`
	State      string `json:"state"`
	APIBase    string `json:"api_base"`
	Authorized bool   `json:"authorized"`
}

type shellData struct {
	Title     string
	Path      string
	State     string
	Status    int
	AssetsURL string
	Boot      bootState
}

func (s *Site) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := cleanPath(r.URL.Path)
	page, ok := s.pages[path]
	if !ok {
		s.render(w, http.StatusNotFound, Page{Path: path, Title: "Page Not Found"}, StateUnauthorized)
		return
	}

	state, err := s.guard.Resolve(r.Context(), r)
	if err != nil {
		if page.Access == AccessPublic {
			s.render(w, http.StatusOK, page, StateUnauthorized)
			return
		}
		s.logger.Warn("page guard did not settle", zap.String("path", path), zap.Error(err))
		w.Header().Set("Retry-After", "1")
		s.render(w, http.StatusServiceUnavailable, Page{Path: path, Title: "Temporarily Unavailable"}, StateLoading)
		return
	}

	switch page.Access {
	case AccessProtected:
		if state != StateAuthorized {
			http.Redirect(w, r, LoginURL(r.URL.RequestURI()), http.StatusFound)
			return
		}
	case AccessAuthRedirect:
		if state == StateAuthorized {
			http.Redirect(w, r, "/dashboard", http.StatusFound)
			return
		}
	}
	s.render(w, http.StatusOK, page, state)
}

// LoginURL sends the visitor to the login page and back to next afterwards.
func LoginURL(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") {
		return "/login"
	}
	return "/login?next=" + url.QueryEscape(next)
}

func (s *Site) render(w http.ResponseWriter, status int, page Page, state GuardState) {
	var buf bytes.Buffer
	err := shellTemplate.Execute(&buf, shellData{
		Title:     page.Title,
		Path:      page.Path,
		State:     state.String(),
		Status:    status,
		AssetsURL: s.cfg.AssetsURL,
		Boot: bootState{
			Path:       page.Path,
			State:      state.String(),
			APIBase:    s.cfg.APIBase,
			Authorized: state == StateAuthorized,
		},
	})
	if err != nil {
		s.logger.Error("render page shell failed", zap.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

func cleanPath(p string) string {
	if p == "" || p == "/" {
		return "/"
	}
	return strings.TrimRight(p, "/")
}
