package controllers

import (
	"net/http"

	"github.com/flowvane/flowvane/internal/engine"
	"github.com/flowvane/flowvane/internal/util"
	"github.com/flowvane/flowvane/pkg/flowvane/models"
)

// DefinitionsController holds dependencies for definition HTTP endpoints.
type DefinitionsController struct {
	AuthController
	Engine *engine.Engine
}

func NewDefinitionsController(eng *engine.Engine, actorRepo engine.ActorRepo) *DefinitionsController {
	return &DefinitionsController{Engine: eng, AuthController: AuthController{ActorRepo: actorRepo}}
}

func (c *DefinitionsController) handleDefine(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")
	if slug == "" {
		http.Error(w, "slug is required", http.StatusBadRequest)
		return
	}
	req, err := util.DecodeJSONBody[models.DefineApiRequest](r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	_, err = c.Engine.DefineWorkflow(r.Context(), slug, req.EntityType, req.Definition, req.Owner)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	exported, err := c.Engine.Export(slug)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	util.WriteJSONResponse(w, http.StatusOK, exported)
}

func (c *DefinitionsController) handleList(w http.ResponseWriter, r *http.Request) {
	defs, err := c.Engine.ListDefinitions()
	if err != nil {
		http.Error(w, "failed to list definitions", http.StatusInternalServerError)
		return
	}
	out := make([]models.ApiDefinition, 0, len(*defs))
	for _, d := range *defs {
		exported, err := c.Engine.Export(d.Slug)
		if err != nil {
			continue
		}
		out = append(out, *exported)
	}
	util.WriteJSONResponse(w, http.StatusOK, out)
}

func (c *DefinitionsController) handleGet(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")
	exported, err := c.Engine.Export(slug)
	if err != nil {
		http.Error(w, "definition not found", http.StatusNotFound)
		return
	}
	util.WriteJSONResponse(w, http.StatusOK, exported)
}

func (c *DefinitionsController) handleDiagram(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")
	diagram, err := c.Engine.GenerateDiagram(slug)
	if err != nil {
		http.Error(w, "definition not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(diagram))
}
