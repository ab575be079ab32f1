// Package resume models the generated résumé and the match analysis shown at
// the end of the wizard, and renders them for the terminal and for print.
package resume

import (
	"encoding/json"
	"strings"
)

// Resume is the structured document returned by GET /resume/{id}.
type Resume struct {
	ContactInfo            ContactInfo    `json:"contact_info"`
	ProfessionalSummary    string         `json:"professional_summary"`
	KeySkills              Skills         `json:"key_skills"`
	ProfessionalExperience []Experience   `json:"professional_experience"`
	Education              []Education    `json:"education"`
	Projects               []Project      `json:"projects,omitempty"`
	Languages              []Language     `json:"languages,omitempty"`
	MatchAnalysis          *MatchAnalysis `json:"match_analysis,omitempty"`
}

type ContactInfo struct {
	Name      string `json:"name"`
	JobTitle  string `json:"job_title"`
	City      string `json:"city"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	LinkedIn  string `json:"linkedin,omitempty"`
	Portfolio string `json:"portfolio,omitempty"`
}

type Skills struct {
	ProductSkills   []string `json:"product_skills"`
	TechnicalSkills []string `json:"technical_skills"`
	Tools           []string `json:"tools"`
	SoftSkills      []string `json:"soft_skills"`
}

type Experience struct {
	JobTitle     string   `json:"job_title"`
	Company      string   `json:"company"`
	Location     string   `json:"location"`
	Duration     string   `json:"duration"`
	Achievements []string `json:"achievements"`
}

type Education struct {
	Degree   string   `json:"degree"`
	School   string   `json:"school"`
	Location string   `json:"location,omitempty"`
	Year     string   `json:"year"`
	Details  []string `json:"details,omitempty"`
}

type Project struct {
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Technologies StringList `json:"technologies"`
	Impact       string     `json:"impact"`
}

type Language struct {
	Language    string `json:"language"`
	Proficiency string `json:"proficiency"`
}

// MatchAnalysis is the score block embedded in a stored résumé.
type MatchAnalysis struct {
	Score             int      `json:"score"`
	Tag               string   `json:"tag"`
	IntroMessage      string   `json:"intro_message"`
	KeyStrengths      []string `json:"key_strengths"`
	PointsOfAttention []string `json:"points_of_attention"`
}

// StringList decodes either a JSON array of strings or a single
// comma-separated string.
type StringList []string

func (l *StringList) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*l = list
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*l = nil
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			*l = append(*l, part)
		}
	}
	return nil
}
