package relay

import (
	"encoding/json"
	"net/http"

	gcs "github.com/YakupTekeli/Ground-Control-Station-for-ESP32-and-ESP32-Camera"
)

// StatsResponse is the /stats body
type StatsResponse struct {
	Consumer ConsumerStats `json:"consumer"`
	Producer *gcs.Stats    `json:"producer"` // null when no producer is running
}

// Handler returns the relay's HTTP routes:
//
//	/mjpeg      multipart re-broadcast
//	/jpeg       latest frame (503 before the first one)
//	/health     liveness
//	/readiness  503 unless a frame went out within the readiness window
//	/stats      consumer and producer statistics
func (r *Relay) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/mjpeg", r.stream)
	mux.HandleFunc("/jpeg", r.handleJPEG)
	mux.HandleFunc("/health", r.handleHealth)
	mux.HandleFunc("/readiness", r.handleReadiness)
	mux.HandleFunc("/stats", r.handleStats)
	mux.HandleFunc("/", func(w http.ResponseWriter, req *http.Request) {
		if req.URL.Path != "/" {
			http.NotFound(w, req)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<img src="/mjpeg" />`))
	})
	return mux
}

func (r *Relay) handleJPEG(w http.ResponseWriter, req *http.Request) {
	jpg := r.latest.Load()
	if jpg == nil {
		http.Error(w, "no frame yet", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(*jpg)
}

// handleHealth: if we can execute this code, we're alive
func (r *Relay) handleHealth(w http.ResponseWriter, req *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "alive",
		"uptime": r.Stats().Uptime,
	})
}

func (r *Relay) handleReadiness(w http.ResponseWriter, req *http.Request) {
	producer, running := r.src.Stats()

	status, code := "ready", http.StatusOK
	if !r.ready() {
		status, code = "not_ready", http.StatusServiceUnavailable
	}

	body := map[string]interface{}{
		"status":           status,
		"producer_running": running && producer.Running,
		"last_frame_at":    r.lastFrame(),
	}
	if running {
		body["producer_state"] = producer.State
	}
	writeJSON(w, code, body)
}

func (r *Relay) handleStats(w http.ResponseWriter, req *http.Request) {
	resp := StatsResponse{Consumer: r.Stats()}
	if s, ok := r.src.Stats(); ok {
		resp.Producer = &s
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
