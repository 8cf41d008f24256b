package controllers

import (
	"context"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/flowvane/flowvane/internal/engine"
	"github.com/flowvane/flowvane/pkg/flowvane/core"
)

type AuthController struct {
	ActorRepo engine.ActorRepo
}

// RequireAuth authenticates API calls with an X-API-Key header of the
// form "<actor>:<secret>" and checks the secret against the actor's
// bcrypt hash. The actor name is threaded into the request context so
// downstream calls attribute transitions to it.
func (ac *AuthController) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		apiKey := r.Header.Get("X-API-Key")
		name, secret, ok := strings.Cut(apiKey, ":")
		if !ok || name == "" || secret == "" {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		actor, err := ac.ActorRepo.FindByName(name)
		if err != nil || actor == nil || !actor.ApiKey.Valid {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		if err := bcrypt.CompareHashAndPassword([]byte(actor.ApiKey.String), []byte(secret)); err != nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		ctx := context.WithValue(r.Context(), core.CtxKeyActor, actor.Name)
		next(w, r.WithContext(ctx))
	}
}

// actorFromContext returns the authenticated actor name.
func actorFromContext(ctx context.Context) string {
	name, _ := ctx.Value(core.CtxKeyActor).(string)
	return name
}
