package resume

import (
	"fmt"
	"strings"

	"github.com/muesli/reflow/indent"
	"github.com/muesli/reflow/wordwrap"
)

// Section titles shared by the text and HTML renderings.
const (
	titleContact    = "Contact"
	titleProfile    = "Profil"
	titleTools      = "Outils"
	titleLanguages  = "Langues"
	titleExperience = "Expériences Professionnelles"
	titleProjects   = "Projets Clés"
	titleEducation  = "Formation"
	titleSkills     = "Compétences"
	titleProduct    = "Produit / Gestion"
	titleTechnical  = "Techniques"

	AnalysisHeading  = "Voici où je me situe pour ce poste."
	AnalysisSubtitle = "Je vous résume si je suis un bon match... et ce qui est à ajuster si besoin."
	StrengthsTitle   = "Ce qui fonctionne bien"
	AttentionTitle   = "Points de vigilance"
	ViewResumeLabel  = "Voir le CV généré"
)

type textWriter struct {
	sb    strings.Builder
	width int
}

func (w *textWriter) heading(title string) {
	if w.sb.Len() > 0 {
		w.sb.WriteString("\n")
	}
	w.sb.WriteString(strings.ToUpper(title))
	w.sb.WriteString("\n")
	w.sb.WriteString(strings.Repeat("─", min(len([]rune(title)), w.width)))
	w.sb.WriteString("\n")
}

func (w *textWriter) para(s string) {
	if strings.TrimSpace(s) == "" {
		return
	}
	w.sb.WriteString(wordwrap.String(s, w.width))
	w.sb.WriteString("\n")
}

func (w *textWriter) bullets(items []string, depth uint) {
	for _, item := range items {
		wrapped := wordwrap.String(item, w.width-int(depth)-2)
		lines := strings.Split(wrapped, "\n")
		w.sb.WriteString(indent.String("• "+lines[0], depth))
		w.sb.WriteString("\n")
		if len(lines) > 1 {
			w.sb.WriteString(indent.String(strings.Join(lines[1:], "\n"), depth+2))
			w.sb.WriteString("\n")
		}
	}
}

func nonEmpty(values ...string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			out = append(out, v)
		}
	}
	return out
}

// RenderText lays the résumé out as word-wrapped plain text.
func RenderText(r *Resume, width int) string {
	if width < 20 {
		width = 20
	}
	w := &textWriter{width: width}
	ci := r.ContactInfo

	w.sb.WriteString(ci.Name)
	w.sb.WriteString("\n")
	if ci.JobTitle != "" {
		w.sb.WriteString(ci.JobTitle)
		w.sb.WriteString("\n")
	}

	w.heading(titleContact)
	for _, line := range nonEmpty(ci.City, ci.Phone, ci.Email, ci.LinkedIn, ci.Portfolio) {
		w.sb.WriteString(line)
		w.sb.WriteString("\n")
	}

	if r.ProfessionalSummary != "" {
		w.heading(titleProfile)
		w.para(r.ProfessionalSummary)
	}

	if len(r.ProfessionalExperience) > 0 {
		w.heading(titleExperience)
		for i, exp := range r.ProfessionalExperience {
			if i > 0 {
				w.sb.WriteString("\n")
			}
			w.para(exp.JobTitle)
			w.para(strings.Join(nonEmpty(exp.Company, exp.Location, FormatDuration(exp.Duration)), " | "))
			w.bullets(LimitAchievements(exp.Achievements, MaxAchievements), 2)
		}
	}

	if len(r.Projects) > 0 {
		w.heading(titleProjects)
		for i, p := range r.Projects {
			if i > 0 {
				w.sb.WriteString("\n")
			}
			w.para(p.Title)
			w.para(p.Description)
			if len(p.Technologies) > 0 {
				w.para(strings.Join(p.Technologies, ", "))
			}
			w.para(p.Impact)
		}
	}

	if len(r.Education) > 0 {
		w.heading(titleEducation)
		for _, edu := range r.Education {
			w.para(fmt.Sprintf("%s, %s (%s)", edu.Degree, edu.School, edu.Year))
			w.bullets(edu.Details, 2)
		}
	}

	if len(r.KeySkills.ProductSkills) > 0 || len(r.KeySkills.TechnicalSkills) > 0 {
		w.heading(titleSkills)
		if len(r.KeySkills.ProductSkills) > 0 {
			w.para(titleProduct)
			w.bullets(r.KeySkills.ProductSkills, 2)
		}
		if len(r.KeySkills.TechnicalSkills) > 0 {
			w.para(titleTechnical)
			w.bullets(r.KeySkills.TechnicalSkills, 2)
		}
	}

	if len(r.KeySkills.Tools) > 0 {
		w.heading(titleTools)
		w.para(strings.Join(r.KeySkills.Tools, ", "))
	}

	if len(r.Languages) > 0 {
		w.heading(titleLanguages)
		for _, l := range r.Languages {
			w.sb.WriteString(l.Language + " · " + l.Proficiency + "\n")
		}
	}

	return w.sb.String()
}

// RenderAnalysisText lays the match analysis out as plain text.
func RenderAnalysisText(a *Analysis, width int) string {
	if width < 20 {
		width = 20
	}
	w := &textWriter{width: width}
	w.para(AnalysisHeading)
	w.para(AnalysisSubtitle)
	w.sb.WriteString("\n")
	w.para(fmt.Sprintf("%s  %d%%", a.MatchTagOrDefault(), a.MatchScore))
	if a.CompanyName != "" || a.JobTitle != "" {
		w.para(strings.Join(nonEmpty(a.JobTitle, a.CompanyName), " · "))
	}
	if a.IntroMessage != "" {
		w.sb.WriteString("\n")
		w.para(a.IntroMessage)
	}
	if len(a.KeyStrengths) > 0 {
		w.heading(StrengthsTitle)
		w.bullets(a.KeyStrengths, 0)
	}
	if len(a.PointsOfAttention) > 0 {
		w.heading(AttentionTitle)
		w.bullets(a.PointsOfAttention, 0)
	}
	return w.sb.String()
}
