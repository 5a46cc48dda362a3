package handlers

import (
	"net/http"
)

func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{"status": "ok"}
	if a.Editor != nil {
		body["sessions"] = a.Editor.Len()
	}
	a.json(w, http.StatusOK, body)
}
