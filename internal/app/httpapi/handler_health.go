package httpapi

import (
	"net/http"

	"github.com/starvault/casebot/pkg/version"
)

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

type versionResponse struct {
	App     string `json:"app"`
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Built   string `json:"built"`
	Go      string `json:"go"`
}

func (h *Handler) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, versionResponse{
		App:     version.AppName,
		Version: version.Version,
		Commit:  version.GitCommit,
		Built:   version.BuildTime,
		Go:      version.GoVersion,
	})
}
