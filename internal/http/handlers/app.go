package handlers

import (
	"encoding/json"
	"net/http"

	"vibevids/internal/infra"
	"vibevids/internal/referrals"
	"vibevids/internal/vibes"
)

// App is the handler container. Collaborators are injected at construction;
// handlers hold no globals.
type App struct {
	Vibes     *vibes.Service
	Referrals *referrals.Service
	Logger    infra.Logger
}

func NewApp(vibeSvc *vibes.Service, referralSvc *referrals.Service, logger infra.Logger) *App {
	return &App{Vibes: vibeSvc, Referrals: referralSvc, Logger: logger}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, errCode, message string) {
	a.json(w, code, map[string]any{
		"error": map[string]string{"code": errCode, "message": message},
	})
}
