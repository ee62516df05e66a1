package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/redflag-advisory-server/internal/domain"
)

// CheckRequest is the body of POST /v1/check. Fields are keyed by the note
// field names anamnesis, findings, assessment and procedure. ModelFlags, if
// present, are used as-is; otherwise UseModel asks the server-side provider.
// IncludeAudit adds span offsets and raw matches to the advisories.
type CheckRequest struct {
	Fields       map[string]string  `json:"fields" binding:"required"`
	ModelFlags   []domain.ModelFlag `json:"model_flags,omitempty"`
	UseModel     bool               `json:"use_model,omitempty"`
	IncludeAudit bool               `json:"include_audit,omitempty"`
}

// handleCheck screens one note and returns the advisory list.
func (s *Server) handleCheck(c *gin.Context) {
	var req CheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, domain.ErrCodeInvalidInput, "invalid request body", err.Error())
		return
	}

	fields := make(domain.NoteFields, len(req.Fields))
	for name, text := range req.Fields {
		field := domain.FieldName(name)
		if !field.IsValid() {
			s.respondError(c, http.StatusBadRequest, domain.ErrCodeValidation, "unknown note field", name)
			return
		}
		fields[field] = text
	}

	modelFlags := req.ModelFlags
	if modelFlags == nil && req.UseModel && s.provider != nil {
		flags, err := s.provider.ProposeFlags(c.Request.Context(), fields)
		if err != nil {
			// The engine degrades instead of failing the check.
			s.logger.WithError(err).Warn("Model flag provider unavailable, continuing degraded")
		} else {
			modelFlags = flags
		}
	}

	result, err := s.checker.CheckNote(c.Request.Context(), fields, modelFlags)
	if err != nil {
		s.respondError(c, http.StatusInternalServerError, domain.ErrCodeInternal, "check failed", err.Error())
		return
	}

	if !req.IncludeAudit {
		stripAuditDetail(result)
	}

	s.hub.Broadcast(result)
	c.JSON(http.StatusOK, result)
}

// stripAuditDetail removes span offsets and raw matches from the response.
// The hint panel only renders category, severity and message.
func stripAuditDetail(result *domain.CheckResult) {
	for i := range result.Advisories {
		result.Advisories[i].Matches = nil
	}
}

// RulesResponse is the body of GET /v1/rules.
type RulesResponse struct {
	Rules       []domain.Rule      `json:"rules"`
	Fingerprint string             `json:"fingerprint"`
	Report      *domain.LoadReport `json:"report,omitempty"`
}

// handleListRules returns the active catalogue and its load report.
func (s *Server) handleListRules(c *gin.Context) {
	catalogue := s.checker.Catalogue()
	c.JSON(http.StatusOK, RulesResponse{
		Rules:       catalogue.Rules(),
		Fingerprint: catalogue.Fingerprint(),
		Report:      s.checker.LoadReport(),
	})
}

func (s *Server) respondError(c *gin.Context, status int, code, message, details string) {
	c.JSON(status, domain.NewEngineError(code, message, details, c.GetString("correlation_id")))
}
