package api

import (
	"net/http"

	"github.com/curatarr/curatarr/internal/httputil"
	"github.com/curatarr/curatarr/internal/models"
	"github.com/curatarr/curatarr/internal/rules"
)

func (s *Server) handleListConnections(w http.ResponseWriter, r *http.Request) {
	conns, err := s.connRepo.List()
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "db_error", err.Error())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, conns)
}

type connectionRequest struct {
	URL           string `json:"url"`
	APIKey        string `json:"api_key"`
	GraceDays     int    `json:"grace_days"`
	RetentionDays int    `json:"retention_days"`
}

var knownConnections = map[string]bool{"radarr": true, "sonarr": true, "tautulli": true}

func (s *Server) handleSaveConnection(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if !knownConnections[name] {
		httputil.WriteError(w, http.StatusBadRequest, "bad_request", "unknown connection "+name)
		return
	}
	var req connectionRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}

	conn, err := s.connRepo.GetByName(name)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "db_error", err.Error())
		return
	}
	if conn == nil {
		conn = &models.ServiceConnection{Name: name, GraceDays: 30, RetentionDays: 365}
	}
	conn.URL = req.URL
	if req.APIKey != "" {
		conn.APIKey = req.APIKey
	}
	if req.GraceDays > 0 {
		conn.GraceDays = req.GraceDays
	}
	if req.RetentionDays > 0 {
		conn.RetentionDays = req.RetentionDays
	}
	if err := s.connRepo.Save(conn); err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "db_error", err.Error())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, conn)
}

type rulesRequest struct {
	Rules string `json:"rules"`
}

func (s *Server) handleSaveRules(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	var req rulesRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}
	if err := s.connRepo.SaveRules(name, req.Rules); err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "db_error", err.Error())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"name": name})
}

func (s *Server) handleGetProposals(w http.ResponseWriter, r *http.Request) {
	conn, ok := s.connectionFromPath(w, r)
	if !ok {
		return
	}
	if conn.AIRuleProposals == nil {
		httputil.WriteJSON(w, http.StatusOK, &rules.ProposalDocument{
			Refinements: []rules.Refinement{}, NewRules: []rules.NewRule{},
		})
		return
	}
	doc, err := rules.ParseDocument(*conn.AIRuleProposals)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "parse_error", err.Error())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, doc)
}

type proposalRequest struct {
	List   rules.ListKind `json:"list"`
	Action rules.Action   `json:"action"`
}

// handleApplyProposal confirms or declines one pending proposal entry.
// Confirmations edit the rule corpus; either verdict consumes the entry,
// and the document is cleared once both lists are empty.
func (s *Server) handleApplyProposal(w http.ResponseWriter, r *http.Request) {
	conn, ok := s.connectionFromPath(w, r)
	if !ok {
		return
	}
	if conn.AIRuleProposals == nil {
		httputil.WriteError(w, http.StatusNotFound, "not_found", "no pending proposals")
		return
	}
	var req proposalRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}
	if req.Action != rules.ActionConfirm && req.Action != rules.ActionDecline {
		httputil.WriteError(w, http.StatusBadRequest, "bad_request", "action must be confirm or decline")
		return
	}

	doc, err := rules.ParseDocument(*conn.AIRuleProposals)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "parse_error", err.Error())
		return
	}
	updated, err := doc.Apply(r.PathValue("id"), req.List, req.Action, conn.AIRules)
	if err != nil {
		httputil.WriteError(w, http.StatusNotFound, "not_found", err.Error())
		return
	}

	if updated != conn.AIRules {
		if err := s.connRepo.SaveRules(conn.Name, updated); err != nil {
			httputil.WriteError(w, http.StatusInternalServerError, "db_error", err.Error())
			return
		}
	}
	var encoded *string
	if !doc.Empty() {
		raw, err := doc.Marshal()
		if err != nil {
			httputil.WriteError(w, http.StatusInternalServerError, "encode_error", err.Error())
			return
		}
		encoded = &raw
	}
	if err := s.connRepo.SaveProposals(conn.Name, encoded); err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "db_error", err.Error())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"rules":     updated,
		"remaining": len(doc.Refinements) + len(doc.NewRules),
	})
}

func (s *Server) connectionFromPath(w http.ResponseWriter, r *http.Request) (*models.ServiceConnection, bool) {
	conn, err := s.connRepo.GetByName(r.PathValue("name"))
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "db_error", err.Error())
		return nil, false
	}
	if conn == nil {
		httputil.WriteError(w, http.StatusNotFound, "not_found", "connection not found")
		return nil, false
	}
	return conn, true
}
