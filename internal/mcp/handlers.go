package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/redflag-advisory-server/internal/domain"
)

// CheckNoteParams defines parameters for the check_note tool.
type CheckNoteParams struct {
	Anamnesis    string `json:"anamnesis,omitempty"`
	Findings     string `json:"findings,omitempty"`
	Assessment   string `json:"assessment,omitempty"`
	Procedure    string `json:"procedure,omitempty"`
	UseModel     bool   `json:"use_model,omitempty"`
	IncludeAudit bool   `json:"include_audit,omitempty"`
}

// ListRulesParams defines parameters for the list_rules tool.
type ListRulesParams struct{}

// ListRulesResult is the structured result of the list_rules tool.
type ListRulesResult struct {
	Rules       []domain.Rule      `json:"rules"`
	Fingerprint string             `json:"fingerprint"`
	Report      *domain.LoadReport `json:"report,omitempty"`
}

// handleCheckNote handles the check_note tool invocation.
func (s *Server) handleCheckNote(ctx context.Context, req *mcp.CallToolRequest, params CheckNoteParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithField("tool", "check_note").Info("Tool invoked")

	fields := domain.NoteFields{
		domain.FieldAnamnesis:  params.Anamnesis,
		domain.FieldFindings:   params.Findings,
		domain.FieldAssessment: params.Assessment,
		domain.FieldProcedure:  params.Procedure,
	}

	var modelFlags []domain.ModelFlag
	if params.UseModel && s.provider != nil {
		flags, err := s.provider.ProposeFlags(ctx, fields)
		if err != nil {
			s.logger.WithError(err).Warn("Model flag provider unavailable, continuing degraded")
		} else {
			modelFlags = flags
		}
	}

	result, err := s.checker.CheckNote(ctx, fields, modelFlags)
	if err != nil {
		return nil, nil, fmt.Errorf("check failed: %w", err)
	}

	if !params.IncludeAudit {
		for i := range result.Advisories {
			result.Advisories[i].Matches = nil
		}
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: summarize(result)},
		},
	}, result, nil
}

// handleListRules handles the list_rules tool invocation.
func (s *Server) handleListRules(ctx context.Context, req *mcp.CallToolRequest, params ListRulesParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithField("tool", "list_rules").Info("Tool invoked")

	catalogue := s.checker.Catalogue()
	result := ListRulesResult{
		Rules:       catalogue.Rules(),
		Fingerprint: catalogue.Fingerprint(),
		Report:      s.checker.LoadReport(),
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: fmt.Sprintf("%d rules active (fingerprint %.12s)", catalogue.Len(), catalogue.Fingerprint())},
		},
	}, result, nil
}

// summarize renders a short text form of the check for clients that only
// display tool text.
func summarize(result *domain.CheckResult) string {
	if len(result.Advisories) == 0 {
		if result.Degraded {
			return "No advisories (degraded: model flags unavailable)."
		}
		return "No advisories."
	}

	text := fmt.Sprintf("%d advisories:", len(result.Advisories))
	for _, adv := range result.Advisories {
		text += fmt.Sprintf("\n- [%s] %s (%s): %s", adv.Severity, adv.Category, adv.Provenance, adv.Message)
	}
	if result.Degraded {
		text += "\n(degraded: model flags unavailable)"
	}
	return text
}
