package internal

import (
	"context"
	"embed"
	"html/template"
	"log/slog"
	"net/http"
	"random-chat/repositories"
	"sort"

	"github.com/dgraph-io/badger/v4"
)

//go:embed inspect.html
var templatesFS embed.FS

// StatsProvider returns the figures displayed above the store listing.
type StatsProvider func() map[string]any

// HealthProbe reports whether the server accepts new chats.
type HealthProbe func(ctx context.Context) bool

type PageData struct {
	Prefix   string
	Items    []repositories.Entry
	Stats    map[string]any
	StatKeys []string
	Error    string
}

// NewDebugServer serves the operator endpoints:
//
//	/inspect?prefix=  HTML listing of the store keys starting with prefix
//	/metrics          Prometheus exposition
//	/healthz          200 while healthy, 503 otherwise
func NewDebugServer(addr string, db *badger.DB, metrics http.Handler, stats StatsProvider, probe HealthProbe, log *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	tmpl := template.Must(template.ParseFS(templatesFS, "inspect.html"))

	mux.HandleFunc("/inspect", func(w http.ResponseWriter, r *http.Request) {
		data := PageData{Prefix: r.URL.Query().Get("prefix"), Stats: map[string]any{}}
		if stats != nil {
			data.Stats = stats()
		}
		for key := range data.Stats {
			data.StatKeys = append(data.StatKeys, key)
		}
		sort.Strings(data.StatKeys)

		items, err := repositories.Scan(r.Context(), db, data.Prefix)
		if err != nil {
			log.Error("Store inspection failed", "prefix", data.Prefix, "error", err)
			data.Error = err.Error()
		}
		data.Items = items

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err = tmpl.Execute(w, data); err != nil {
			log.Error("Unable to render inspection page", "error", err)
		}
	})

	mux.Handle("/metrics", metrics)

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if probe != nil && !probe(r.Context()) {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("ok"))
	})

	return &http.Server{Addr: addr, Handler: mux}
}
