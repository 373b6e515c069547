// Package http exposes the session control API, the player page and the
// rendered output mounts.
package http

import (
	"crypto/tls"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"livesub/internal/session"
	"livesub/web"
)

// Controller is the subset of the orchestrator the API needs.
type Controller interface {
	Start(sourceURL, sourceLang, targetLang string) string
	Stop(id string)
	Status(id string) (session.Status, bool)
	EngineLoaded() bool
}

// Deps carries everything the router serves.
type Deps struct {
	Controller Controller
	// WS handles live cue subscriptions; the session id arrives as the
	// {id} path value.
	WS http.HandlerFunc

	HLSDir            string
	PreviewDir        string
	SubtitleDir       string
	DefaultTargetLang string
}

type startRequest struct {
	SourceURL  string `json:"source_url"`
	SourceLang string `json:"source_lang"`
	TargetLang string `json:"target_lang"`
}

func NewRouter(d Deps) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /start", func(w http.ResponseWriter, r *http.Request) {
		var req startRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid json body"})
			return
		}
		if req.SourceURL == "" {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "source_url is required"})
			return
		}
		if req.SourceLang == "" {
			req.SourceLang = "auto"
		}
		if req.TargetLang == "" {
			req.TargetLang = d.DefaultTargetLang
		}
		id := d.Controller.Start(req.SourceURL, req.SourceLang, req.TargetLang)
		writeJSON(w, http.StatusOK, map[string]any{"status": "started", "session_id": id})
	})

	mux.HandleFunc("POST /stop/{id}", func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		if _, ok := d.Controller.Status(id); !ok {
			writeJSON(w, http.StatusNotFound, map[string]any{"status": "not_found"})
			return
		}
		d.Controller.Stop(id)
		writeJSON(w, http.StatusOK, map[string]any{"status": "stopped", "session_id": id})
	})

	mux.HandleFunc("GET /status/{id}", func(w http.ResponseWriter, r *http.Request) {
		s, ok := d.Controller.Status(r.PathValue("id"))
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]any{"status": "not_found"})
			return
		}
		writeJSON(w, http.StatusOK, s)
	})

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":         "ok",
			"whisper_loaded": d.Controller.EngineLoaded(),
		})
	})

	mux.HandleFunc("GET /proxy_stream", proxyStream)

	mux.Handle("GET /metrics", promhttp.Handler())

	if d.WS != nil {
		mux.HandleFunc("GET /ws/live/{id}", d.WS)
	}

	mux.Handle("GET /hls/", http.StripPrefix("/hls/", http.FileServer(http.Dir(d.HLSDir))))
	mux.Handle("GET /preview/", http.StripPrefix("/preview/", http.FileServer(http.Dir(d.PreviewDir))))
	mux.Handle("GET /subtitles/", http.StripPrefix("/subtitles/", http.FileServer(http.Dir(d.SubtitleDir))))
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(web.Assets)))

	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(web.IndexHTML)
	})

	return mux
}

// proxyClient skips TLS verification because upstream stream hosts commonly
// serve self-signed or mismatched certificates.
var proxyClient = &http.Client{
	Timeout: 30 * time.Second,
	Transport: &http.Transport{
		TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
	},
}

// proxyStream relays a remote stream through this origin so browser players
// are not blocked by the upstream's CORS policy.
func proxyStream(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("url")
	if raw == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "url parameter is required"})
		return
	}
	target, err := url.Parse(raw)
	if err != nil || (target.Scheme != "http" && target.Scheme != "https") {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "url must be http or https"})
		return
	}

	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, target.String(), nil)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid upstream url"})
		return
	}
	resp, err := proxyClient.Do(req)
	if err != nil {
		log.Warn().Err(err).Str("url", raw).Msg("stream proxy request failed")
		writeJSON(w, http.StatusBadGateway, map[string]any{"error": "upstream unreachable"})
		return
	}
	defer resp.Body.Close()

	w.Header().Set("Access-Control-Allow-Origin", "*")
	if ct := resp.Header.Get("Content-Type"); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	w.WriteHeader(resp.StatusCode)
	if _, err := io.Copy(w, resp.Body); err != nil {
		log.Debug().Err(err).Msg("stream proxy copy interrupted")
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debug().Err(err).Msg("response encode failed")
	}
}
