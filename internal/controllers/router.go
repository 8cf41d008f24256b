package controllers

import "net/http"

// RegisterRoutes wires the HTTP routes for this controller.
func (c *DefinitionsController) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("PUT /api/definitions/{slug}", c.RequireAuth(c.handleDefine))
	mux.HandleFunc("GET /api/definitions", c.RequireAuth(c.handleList))
	mux.HandleFunc("GET /api/definitions/{slug}", c.RequireAuth(c.handleGet))
	mux.HandleFunc("GET /api/definitions/{slug}/diagram", c.RequireAuth(c.handleDiagram))
}

func (c *WorkflowsController) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/workflows/init", c.RequireAuth(c.handleInitialize))
	mux.HandleFunc("POST /api/workflows/transition", c.RequireAuth(c.handleTransition))
	mux.HandleFunc("GET /api/workflows/available", c.RequireAuth(c.handleAvailable))
	mux.HandleFunc("GET /api/workflows/history", c.RequireAuth(c.handleHistory))
}
