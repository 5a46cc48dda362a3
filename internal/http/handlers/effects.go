package handlers

import (
	"net/http"
)

// Effects lists the catalog in force.
func (a *App) Effects(w http.ResponseWriter, r *http.Request) {
	cat := a.Catalog.Current()
	a.json(w, http.StatusOK, map[string]any{
		"version": cat.Version(),
		"effects": cat.Effects(),
	})
}
