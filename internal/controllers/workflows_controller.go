package controllers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/flowvane/flowvane/internal/engine"
	"github.com/flowvane/flowvane/internal/util"
	"github.com/flowvane/flowvane/pkg/flowvane/domain"
	"github.com/flowvane/flowvane/pkg/flowvane/models"
)

// WorkflowsController holds dependencies for instance HTTP endpoints.
type WorkflowsController struct {
	AuthController
	Engine *engine.Engine
}

func NewWorkflowsController(eng *engine.Engine, actorRepo engine.ActorRepo) *WorkflowsController {
	return &WorkflowsController{Engine: eng, AuthController: AuthController{ActorRepo: actorRepo}}
}

func (c *WorkflowsController) handleInitialize(w http.ResponseWriter, r *http.Request) {
	req, err := util.DecodeJSONBody[models.InitializeApiRequest](r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Record.Type == "" || req.Record.ID == "" || req.Workflow == "" {
		http.Error(w, "record and workflow are required", http.StatusBadRequest)
		return
	}

	inst, err := c.Engine.InitializeWorkflow(r.Context(), &req.Record, req.Workflow, actorFromContext(r.Context()))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	util.WriteJSONResponse(w, http.StatusOK, mapInstanceToApi(inst, req.Workflow))
}

func (c *WorkflowsController) handleTransition(w http.ResponseWriter, r *http.Request) {
	req, err := util.DecodeJSONBody[models.TransitionApiRequest](r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Record.Type == "" || req.Record.ID == "" || req.Transition == "" {
		http.Error(w, "record and transition are required", http.StatusBadRequest)
		return
	}
	trigger := req.Trigger
	if trigger == "" {
		trigger = models.TriggerManual
	}

	inst, err := c.Engine.Transition(r.Context(), engine.TransitionRequest{
		Record:     &req.Record,
		Transition: req.Transition,
		Workflow:   req.Workflow,
		Data:       req.Data,
		Trigger:    trigger,
		Actor:      actorFromContext(r.Context()),
		Notes:      req.Notes,
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}
	util.WriteJSONResponse(w, http.StatusOK, mapInstanceToApi(inst, req.Workflow))
}

func (c *WorkflowsController) handleAvailable(w http.ResponseWriter, r *http.Request) {
	rec, slug, ok := recordFromQuery(w, r)
	if !ok {
		return
	}
	available, err := c.Engine.AvailableTransitions(r.Context(), rec, slug)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	util.WriteJSONResponse(w, http.StatusOK, available)
}

func (c *WorkflowsController) handleHistory(w http.ResponseWriter, r *http.Request) {
	rec, slug, ok := recordFromQuery(w, r)
	if !ok {
		return
	}
	entries, err := c.Engine.History(r.Context(), rec, slug)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	out := make([]models.ApiHistoryEntry, 0, len(*entries))
	for _, e := range *entries {
		out = append(out, mapHistoryToApi(&e))
	}
	util.WriteJSONResponse(w, http.StatusOK, out)
}

func recordFromQuery(w http.ResponseWriter, r *http.Request) (*models.RecordRef, string, bool) {
	recordType := r.URL.Query().Get("record_type")
	recordID := r.URL.Query().Get("record_id")
	if recordType == "" || recordID == "" {
		http.Error(w, "record_type and record_id are required", http.StatusBadRequest)
		return nil, "", false
	}
	return &models.RecordRef{Type: recordType, ID: recordID}, r.URL.Query().Get("workflow"), true
}

func mapInstanceToApi(inst *domain.Instance, workflow string) models.ApiInstance {
	api := models.ApiInstance{
		ID:             inst.ID,
		Workflow:       workflow,
		RecordType:     inst.RecordType,
		RecordID:       inst.RecordID,
		CurrentState:   inst.CurrentState,
		TransitionedAt: inst.TransitionedAt,
		TransitionedBy: inst.TransitionedBy,
	}
	if inst.PreviousState.Valid {
		api.PreviousState = inst.PreviousState.String
	}
	if inst.DataVars.Valid && inst.DataVars.String != "" {
		_ = json.Unmarshal([]byte(inst.DataVars.String), &api.Data)
	}
	return api
}

func mapHistoryToApi(e *domain.HistoryEntry) models.ApiHistoryEntry {
	api := models.ApiHistoryEntry{
		ID:         e.ID,
		Transition: e.Transition,
		FromState:  e.FromState,
		ToState:    e.ToState,
		Actor:      e.Actor,
		Trigger:    e.Trigger,
		Created:    e.Created,
	}
	if e.Conditions.Valid {
		_ = json.Unmarshal([]byte(e.Conditions.String), &api.Conditions)
	}
	if e.Actions.Valid {
		_ = json.Unmarshal([]byte(e.Actions.String), &api.Actions)
	}
	if e.Snapshot.Valid {
		_ = json.Unmarshal([]byte(e.Snapshot.String), &api.Snapshot)
	}
	if e.Notes.Valid {
		api.Notes = e.Notes.String
	}
	return api
}

// writeEngineError maps engine error types to HTTP statuses.
func writeEngineError(w http.ResponseWriter, err error) {
	var validation *engine.DefinitionValidationError
	var unknown *engine.UnknownTransitionError
	var invalidState *engine.InvalidTransitionStateError
	var notMet *engine.ConditionsNotMetError
	var preAction *engine.PreActionError

	switch {
	case errors.As(err, &validation):
		util.WriteJSONResponse(w, http.StatusBadRequest, map[string]any{
			"error":      "invalid definition",
			"violations": validation.Violations(),
		})
	case errors.Is(err, engine.ErrNoWorkflowInstance):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, engine.ErrAmbiguousWorkflow):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.As(err, &unknown):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.As(err, &invalidState):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, engine.ErrTransitionConflict):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.As(err, &notMet):
		util.WriteJSONResponse(w, http.StatusUnprocessableEntity, map[string]any{
			"error":             "conditions not met",
			"failed_conditions": notMet.Failed,
		})
	case errors.As(err, &preAction):
		http.Error(w, err.Error(), http.StatusInternalServerError)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
