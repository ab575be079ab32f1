package resume

import (
	"encoding/json"
	"fmt"
)

// DefaultMatchTag is shown when the backend omits match_tag.
const DefaultMatchTag = "Un profil très solide pour ce poste"

// Analysis is the widget_data of a RENDER_ANALYSIS reply.
type Analysis struct {
	ResumeID          string   `json:"resume_id"`
	CompanyName       string   `json:"company_name"`
	JobTitle          string   `json:"job_title"`
	MatchScore        int      `json:"match_score"`
	MatchTag          string   `json:"match_tag"`
	IntroMessage      string   `json:"intro_message"`
	KeyStrengths      []string `json:"key_strengths"`
	PointsOfAttention []string `json:"points_of_attention"`
}

// ParseAnalysis decodes widget data into an Analysis.
func ParseAnalysis(data json.RawMessage) (*Analysis, error) {
	if len(data) == 0 || string(data) == "null" {
		return nil, fmt.Errorf("empty analysis payload")
	}
	var a Analysis
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("decode analysis: %w", err)
	}
	return &a, nil
}

// MatchTagOrDefault returns the tag to display.
func (a *Analysis) MatchTagOrDefault() string {
	if a.MatchTag == "" {
		return DefaultMatchTag
	}
	return a.MatchTag
}
