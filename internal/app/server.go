package app

import (
	"fmt"
	"net/http"
)

func (a *App) healthHandler(w http.ResponseWriter, r *http.Request) {
	a.logger.Debug("Health check endpoint hit.", "remote_addr", r.RemoteAddr, "path", r.URL.Path)
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "OK")
}

// startHealthServer runs the health and metrics HTTP listener.
func (a *App) startHealthServer(port int) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", a.healthHandler)
	mux.Handle("/metrics", a.met.Handler())

	addr := fmt.Sprintf(":%d", port)
	go func() {
		a.logger.Info("🩺 Health and metrics server starting",
			"address", fmt.Sprintf("http://localhost%s/health", addr))
		if err := http.ListenAndServe(addr, mux); err != nil {
			a.logger.Error("Health and metrics server failed", "error", err)
		}
	}()
}
