package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/seetuai/seetu/internal/batch"
	"github.com/seetuai/seetu/internal/infra"
	"github.com/seetuai/seetu/internal/middleware"
	"github.com/seetuai/seetu/internal/preset"
	"github.com/seetuai/seetu/internal/storage"
)

// App carries the handler dependencies.
type App struct {
	Batches *batch.Service
	Catalog *preset.Catalog
	Store   *storage.FileStore
	Logger  *infra.Logger
}

func NewApp(batches *batch.Service, catalog *preset.Catalog, store *storage.FileStore, logger *infra.Logger) *App {
	return &App{Batches: batches, Catalog: catalog, Store: store, Logger: logger}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, errCode, message string) {
	a.json(w, code, map[string]string{"error": errCode, "message": message})
}

func (a *App) currentUserID(r *http.Request) string {
	return middleware.UserIDFromContext(r.Context())
}
