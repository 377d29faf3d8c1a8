package shell

import (
	"context"
	"errors"
	"html/template"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/xkilldash9x/protect-viewer/internal/protect"
)

var configPage = template.Must(template.New("config").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Protect Viewer</title>
<style>
body { background: #111; color: #eee; font-family: sans-serif; display: flex; justify-content: center; padding-top: 10vh; }
form { width: 28rem; }
label { display: block; margin-top: 1rem; }
input { width: 100%; padding: .5rem; box-sizing: border-box; }
button { margin-top: 1.5rem; padding: .5rem 1.5rem; }
.error { color: #f66; }
</style>
</head>
<body>
{{if .Saved}}
<p>Configuration saved. Restarting&hellip;</p>
{{else}}
<form method="post" action="/config">
<h1>Protect Viewer</h1>
{{with .Error}}<p class="error">{{.}}</p>{{end}}
<label>Dashboard URL<input name="url" type="url" value="{{.URL}}" placeholder="https://192.168.1.1/protect/dashboard" required></label>
<label>Username<input name="username" value="{{.Username}}" autocomplete="username" required></label>
<label>Password<input name="password" type="password" autocomplete="current-password" required></label>
<button type="submit">Save</button>
</form>
{{end}}
</body>
</html>
`))

type pageData struct {
	URL      string
	Username string
	Error    string
	Saved    bool
}

// ConfigServer serves the configuration screen on loopback. Saving a valid
// configuration calls onSaved, which restarts the shell.
type ConfigServer struct {
	store   Store
	logger  *zap.Logger
	onSaved func()
	router  chi.Router
}

// NewConfigServer builds the router. metrics is mounted at /metrics when
// non-nil.
func NewConfigServer(store Store, logger *zap.Logger, metrics http.Handler, onSaved func()) *ConfigServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if onSaved == nil {
		onSaved = func() {}
	}
	s := &ConfigServer{store: store, logger: logger.Named("config_server"), onSaved: onSaved}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)
	r.Get("/", s.handleForm)
	r.Post("/config", s.handleSave)
	if metrics != nil {
		r.Handle("/metrics", metrics)
	}
	s.router = r
	return s
}

// Handler returns the HTTP handler.
func (s *ConfigServer) Handler() http.Handler { return s.router }

// Serve serves on ln until ctx is done.
func (s *ConfigServer) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("Configuration server shutdown failed.", zap.Error(err))
		}
	}()

	s.logger.Info("Configuration server listening.", zap.String("addr", ln.Addr().String()))
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *ConfigServer) handleForm(w http.ResponseWriter, r *http.Request) {
	data := pageData{}
	cfg, err := s.store.LoadConfig(r.Context())
	if err != nil {
		s.logger.Warn("Could not load the saved configuration.", zap.Error(err))
		data.Error = "The saved configuration could not be read. Enter it again."
	} else if cfg != nil {
		data.URL, data.Username = cfg.URL, cfg.Username
	}
	s.render(w, http.StatusOK, data)
}

func (s *ConfigServer) handleSave(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.render(w, http.StatusBadRequest, pageData{Error: "Malformed form submission."})
		return
	}
	cfg := protect.Configuration{
		URL:      strings.TrimSpace(r.PostForm.Get("url")),
		Username: strings.TrimSpace(r.PostForm.Get("username")),
		Password: r.PostForm.Get("password"),
	}
	data := pageData{URL: cfg.URL, Username: cfg.Username}

	if err := cfg.Validate(); err != nil {
		data.Error = "All fields are required."
		s.render(w, http.StatusBadRequest, data)
		return
	}
	if err := s.store.SaveConfig(r.Context(), cfg); err != nil {
		s.logger.Error("Failed to save configuration.", zap.Error(err))
		data.Error = "The configuration could not be saved."
		s.render(w, http.StatusInternalServerError, data)
		return
	}

	data.Saved = true
	s.render(w, http.StatusOK, data)
	s.onSaved()
}

func (s *ConfigServer) render(w http.ResponseWriter, status int, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := configPage.Execute(w, data); err != nil {
		s.logger.Error("Failed to render configuration page.", zap.Error(err))
	}
}

func (s *ConfigServer) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("HTTP request.",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
