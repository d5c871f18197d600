package health

import (
	"encoding/json"
	"net/http"
)

type report struct {
	Status     string   `json:"status"`
	Components []Status `json:"components"`
}

// LivenessHandler always answers 200; the process is alive when it can serve HTTP.
func LivenessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeReport(w, http.StatusOK, report{Status: "ok", Components: []Status{}})
	})
}

// ReadinessHandler runs the checker and answers 503 when any component is unhealthy.
func ReadinessHandler(checker *Checker) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		statuses := checker.Check(r.Context())
		if !Healthy(statuses) {
			writeReport(w, http.StatusServiceUnavailable, report{Status: "unavailable", Components: statuses})
			return
		}
		writeReport(w, http.StatusOK, report{Status: "ok", Components: statuses})
	})
}

func writeReport(w http.ResponseWriter, code int, body report) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
