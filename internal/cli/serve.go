package cli

import (
	"context"
	"errors"
	"html/template"
	"mime"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	admsession "github.com/imoveisdeluxo/admsession"
	"github.com/imoveisdeluxo/admsession/guard"
	"github.com/imoveisdeluxo/admsession/metrics/export/prometheus"
)

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the console web shell",
		Long: `Serve a local web shell: the sign-in page on the public path, guarded
pages behind it, a GraphQL proxy that attaches the session's bearer token,
and Prometheus metrics on /metrics.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			console, _, err := openConsole(cmd, rootOpts, nil)
			if err != nil {
				return err
			}
			defer console.Close()

			logger := newLogger(cmd.ErrOrStderr(), true)
			handler, err := NewServeHandler(console, logger)
			if err != nil {
				return err
			}

			srv := &http.Server{
				Addr:              addr,
				Handler:           handler,
				ReadHeaderTimeout: 10 * time.Second,
			}
			errCh := make(chan error, 1)
			go func() {
				logger.Info().Str("addr", addr).Msg("serving console")
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	return cmd
}

var signInPage = template.Must(template.New("signin").Parse(`<!doctype html>
<html lang="pt-BR">
<head><meta charset="utf-8"><title>Imóveis de Luxo | Entrar</title></head>
<body>
{{if .User}}<p>Conectado como {{.User.Email}}</p><form method="post" action="/signout"><button>Sair</button></form>
{{else}}<form method="post" action="{{.Action}}">
<input name="email" type="email" placeholder="E-mail" value="{{.Email}}" required>
<input name="password" type="password" placeholder="Senha" minlength="6" required>
<button>Entrar</button>
</form>{{if .Error}}<p role="alert">{{.Error}}</p>{{end}}{{end}}
</body>
</html>
`))

var dashboardPage = template.Must(template.New("dashboard").Parse(`<!doctype html>
<html lang="pt-BR">
<head><meta charset="utf-8"><title>Imóveis de Luxo | Painel</title></head>
<body>
<p>{{.Name}} ({{.Email}})</p>
<form method="post" action="/signout"><button>Sair</button></form>
</body>
</html>
`))

type signInView struct {
	Action string
	Email  string
	Error  string
	User   any
}

// NewServeHandler builds the web shell around console.
func NewServeHandler(console *admsession.Console, logger zerolog.Logger) (http.Handler, error) {
	cfg := console.Config()
	publicPath := cfg.Guard.PublicPath

	mux := http.NewServeMux()

	mux.HandleFunc("GET "+publicPath, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != publicPath {
			http.NotFound(w, r)
			return
		}
		view := signInView{Action: publicPath}
		if snap, ok := guard.SessionFromContext(r.Context()); ok && snap.Authenticated() {
			view.User = snap.User
		}
		render(w, http.StatusOK, signInPage, view, logger)
	})

	mux.HandleFunc("POST "+publicPath, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != publicPath {
			http.NotFound(w, r)
			return
		}
		email := r.PostFormValue("email")
		_, err := console.SignIn(r.Context(), email, r.PostFormValue("password"))
		if err == nil {
			http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
			return
		}
		status, msg := signInFailure(err)
		render(w, status, signInPage, signInView{Action: publicPath, Email: email, Error: msg}, logger)
	})

	mux.HandleFunc("POST /signout", func(w http.ResponseWriter, r *http.Request) {
		console.SignOut(r.Context())
		http.Redirect(w, r, publicPath, http.StatusSeeOther)
	})

	mux.HandleFunc("GET /dashboard", func(w http.ResponseWriter, r *http.Request) {
		snap, _ := guard.SessionFromContext(r.Context())
		if !snap.Authenticated() {
			http.Redirect(w, r, publicPath, http.StatusSeeOther)
			return
		}
		render(w, http.StatusOK, dashboardPage, snap.User, logger)
	})

	if cfg.API.GraphQLURL != "" {
		target, err := url.Parse(cfg.API.GraphQLURL)
		if err != nil {
			return nil, err
		}
		proxy := &httputil.ReverseProxy{
			Rewrite: func(pr *httputil.ProxyRequest) {
				u := *target
				pr.Out.URL = &u
				pr.Out.Host = target.Host
				// The browser's own credentials never reach the API.
				pr.Out.Header.Del("Authorization")
				pr.Out.Header.Del("Cookie")
			},
			Transport: console.HTTPClient().Transport,
		}
		mux.Handle("POST /graphql", requireJSON(proxy))
	}

	root := http.NewServeMux()
	root.Handle("GET /metrics", prometheus.NewPrometheusExporter(console).Handler())
	// Every unsafe request must come from this origin: the proxy attaches
	// the admin's bearer token, so a foreign page must not reach it.
	root.Handle("/", http.NewCrossOriginProtection().Handler(console.Guard(mux)))
	return root, nil
}

// requireJSON refuses bodies a cross-site form could send without a preflight.
func requireJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
		if err != nil || mt != "application/json" {
			http.Error(w, "content type must be application/json", http.StatusUnsupportedMediaType)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func signInFailure(err error) (int, string) {
	switch {
	case errors.Is(err, admsession.ErrInvalidSignIn):
		return http.StatusBadRequest, "E-mail ou senha inválidos."
	case errors.Is(err, admsession.ErrAuthorizationDenied):
		return http.StatusForbidden, "Acesso restrito a administradores."
	case errors.Is(err, admsession.ErrSignInRejected):
		return http.StatusUnauthorized, "E-mail ou senha incorretos."
	case errors.Is(err, admsession.ErrSignInSuperseded):
		return http.StatusConflict, "Outra tentativa de acesso está em andamento."
	default:
		return http.StatusBadGateway, "Não foi possível entrar. Tente novamente."
	}
}

func render(w http.ResponseWriter, status int, tmpl *template.Template, data any, logger zerolog.Logger) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := tmpl.Execute(w, data); err != nil {
		logger.Error().Err(err).Str("template", tmpl.Name()).Msg("render failed")
	}
}
