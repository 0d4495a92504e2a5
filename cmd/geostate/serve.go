package main

import (
	"context"
	"encoding/json"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/andreiashu/geostate"
	"github.com/gorilla/mux"
	"github.com/spf13/cobra"
)

// maxRequestBody bounds submitted text.
const maxRequestBody = 1 << 20

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the detection demo over HTTP",
		Long: `Serve an HTML form and a JSON API for country detection.

Routes:
  GET  /            input form
  POST /            form submission, renders the three result lists
  POST /api/detect  {"text": "..."} -> {"entities", "codes", "cleaned"}
  GET  /healthz     liveness probe`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			d, err := a.loadDetector(ctx)
			if err != nil {
				return err
			}
			srv := &http.Server{
				Addr:              a.v.GetString("addr"),
				Handler:           newHandler(d, a.log, a.v.GetInt("suggest")),
				ReadHeaderTimeout: 10 * time.Second,
			}
			return runServer(ctx, srv, a.log)
		},
	}
	cmd.Flags().String("addr", ":8080", "HTTP listen address")
	_ = a.v.BindPFlag("addr", cmd.Flags().Lookup("addr"))
	return cmd
}

func runServer(ctx context.Context, srv *http.Server, log *slog.Logger) error {
	errc := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", srv.Addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

type handler struct {
	d       *geostate.Detector
	log     *slog.Logger
	suggest int
}

func newHandler(d *geostate.Detector, log *slog.Logger, suggest int) http.Handler {
	h := &handler{d: d, log: log, suggest: suggest}
	r := mux.NewRouter()
	r.HandleFunc("/", h.form).Methods(http.MethodGet)
	r.HandleFunc("/", h.submit).Methods(http.MethodPost)
	r.HandleFunc("/api/detect", h.apiDetect).Methods(http.MethodPost)
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok\n"))
	}).Methods(http.MethodGet)
	return r
}

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>State Detection NER Demo</title></head>
<body>
<h1>State Detection NER Demo</h1>
<p>Identifies state mentions in text and standardises them to 3-letter ISO codes.</p>
<form method="post" action="/">
<label for="text">Enter some text:</label><br>
<textarea id="text" name="text" rows="8" cols="80">{{.Text}}</textarea><br>
<button type="submit">Submit</button>
</form>
{{with .Result}}
<h2>Extracted Entities</h2>
{{if .Entities}}<ul>{{range .Entities}}<li>{{.}}</li>{{end}}</ul>{{else}}<p>No GPE entities detected.</p>{{end}}
<h2>All Country Codes</h2>
{{if .Codes}}<ul>{{range .Codes}}<li>{{.}}</li>{{end}}</ul>{{else}}<p>No ISO codes detected.</p>{{end}}
<h2>Cleaned Country Codes</h2>
{{if .Cleaned}}<ul>{{range .Cleaned}}<li>{{.}}</li>{{end}}</ul>{{else}}<p>No valid ISO codes found.</p>{{end}}
{{range .Unresolved}}{{if .Suggestions}}<p>{{.Mention}}: did you mean {{range $i, $s := .Suggestions}}{{if $i}}, {{end}}{{$s}}{{end}}?</p>{{end}}{{end}}
{{end}}
</body>
</html>
`))

type pageData struct {
	Text   string
	Result *resultView
}

func (h *handler) render(w http.ResponseWriter, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTemplate.Execute(w, data); err != nil {
		h.log.Error("rendering page", "err", err)
	}
}

func (h *handler) form(w http.ResponseWriter, _ *http.Request) {
	h.render(w, pageData{})
}

func (h *handler) submit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	text := r.PostForm.Get("text")
	data := pageData{Text: text}
	// The result panels only appear for non-empty input.
	if text != "" {
		view, err := h.detect(r.Context(), text)
		if err != nil {
			http.Error(w, "detection failed", http.StatusBadGateway)
			return
		}
		data.Result = &view
	}
	h.render(w, data)
}

type detectRequest struct {
	Text string `json:"text"`
}

func (h *handler) apiDetect(w http.ResponseWriter, r *http.Request) {
	var req detectRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	view, err := h.detect(r.Context(), req.Text)
	if err != nil {
		writeJSONError(w, http.StatusBadGateway, "detection failed")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(view)
}

func (h *handler) detect(ctx context.Context, text string) (resultView, error) {
	res, err := h.d.Detect(ctx, text)
	if err != nil {
		h.log.Error("detection failed", "err", err)
		return resultView{}, err
	}
	return newResultView(res, h.d.Table(), h.suggest), nil
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
