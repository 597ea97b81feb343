package http

import (
	"net/http"

	jsoniter "github.com/json-iterator/go"
)

type status struct {
	Status string `json:"status"`
}

// Handler возвращает handler для GET /health.
// 200 {"status":"ok"}, если readiness не задана или вернула true; иначе 503 {"status":"not ready"}.
func Handler(readiness func() bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if readiness != nil && !readiness() {
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = jsoniter.NewEncoder(w).Encode(status{Status: "not ready"})
			return
		}
		_ = jsoniter.NewEncoder(w).Encode(status{Status: "ok"})
	}
}
