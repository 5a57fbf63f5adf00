package guard

import (
	"net/http"

	"github.com/imoveisdeluxo/admsession/session"
)

const placeholderPage = `<!doctype html>
<html lang="pt-BR">
<head><meta charset="utf-8"><title>Imóveis de Luxo | Painel</title></head>
<body><progress aria-label="carregando"></progress></body>
</html>
`

// DefaultPlaceholder writes a progress page. While the session is loading it
// answers 503 with Retry-After so clients poll; otherwise 401.
func DefaultPlaceholder(w http.ResponseWriter, _ *http.Request, status session.Status) {
	h := w.Header()
	h.Set("Content-Type", "text/html; charset=utf-8")
	h.Set("Cache-Control", "no-store")

	code := http.StatusUnauthorized
	if status == session.StatusLoading {
		h.Set("Retry-After", "1")
		code = http.StatusServiceUnavailable
	}
	w.WriteHeader(code)
	_, _ = w.Write([]byte(placeholderPage))
}
