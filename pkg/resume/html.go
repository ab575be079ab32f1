package resume

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
)

var htmlFuncs = template.FuncMap{
	"duration": FormatDuration,
	"achievements": func(items []string) []string {
		return LimitAchievements(items, MaxAchievements)
	},
	"join": strings.Join,
}

var resumeTemplate = template.Must(template.New("resume").Funcs(htmlFuncs).Parse(resumeHTML))

// RenderHTML renders a printable two-column page, ready for PDF export.
func RenderHTML(r *Resume) (string, error) {
	if err := r.Validate(); err != nil {
		return "", err
	}
	data := struct {
		*Resume
		Titles map[string]string
		Margin string
	}{
		Resume: r,
		Titles: map[string]string{
			"contact":    titleContact,
			"profile":    titleProfile,
			"tools":      titleTools,
			"languages":  titleLanguages,
			"experience": titleExperience,
			"projects":   titleProjects,
			"education":  titleEducation,
			"skills":     titleSkills,
			"product":    titleProduct,
			"technical":  titleTechnical,
		},
		Margin: fmt.Sprintf("%gmm", DefaultPDFConfig().MarginMM),
	}

	var buf bytes.Buffer
	if err := resumeTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render resume: %w", err)
	}
	return buf.String(), nil
}

const resumeHTML = `<!DOCTYPE html>
<html lang="fr">
<head>
<meta charset="utf-8">
<title>{{.ContactInfo.Name}} - {{.ContactInfo.JobTitle}}</title>
<style>
  @page { size: A4 portrait; margin: {{.Margin}}; }
  body { font-family: "Helvetica Neue", Arial, sans-serif; color: #1f2937; margin: 0; font-size: 10.5pt; }
  .resume { display: flex; min-height: 100%; }
  .resume-sidebar { width: 35%; background: #f3f4f6; padding: 18px; box-sizing: border-box; }
  .resume-main { width: 65%; padding: 18px; box-sizing: border-box; }
  .resume-name { font-size: 20pt; margin: 0; }
  .resume-job-title { color: #4b5563; margin: 4px 0 12px; }
  h2 { font-size: 11pt; text-transform: uppercase; letter-spacing: .05em; border-bottom: 1px solid #d1d5db; padding-bottom: 3px; }
  h3 { font-size: 10.5pt; margin: 8px 0 2px; }
  ul { padding-left: 16px; margin: 4px 0; }
  .meta { color: #6b7280; font-size: 9.5pt; }
  .experience-item, .project-item, .education-item { break-inside: avoid; margin-bottom: 8px; }
</style>
</head>
<body>
<div class="resume">
  <aside class="resume-sidebar">
    <h1 class="resume-name">{{.ContactInfo.Name}}</h1>
    <p class="resume-job-title">{{.ContactInfo.JobTitle}}</p>
    <section>
      <h2>{{index .Titles "contact"}}</h2>
      <ul class="contact-list">
        {{with .ContactInfo.City}}<li>{{.}}</li>{{end}}
        {{with .ContactInfo.Phone}}<li>{{.}}</li>{{end}}
        {{with .ContactInfo.Email}}<li>{{.}}</li>{{end}}
        {{with .ContactInfo.LinkedIn}}<li>{{.}}</li>{{end}}
        {{with .ContactInfo.Portfolio}}<li>{{.}}</li>{{end}}
      </ul>
    </section>
    {{with .ProfessionalSummary}}
    <section>
      <h2>{{index $.Titles "profile"}}</h2>
      <p>{{.}}</p>
    </section>
    {{end}}
    {{with .KeySkills.Tools}}
    <section>
      <h2>{{index $.Titles "tools"}}</h2>
      <ul>{{range .}}<li>{{.}}</li>{{end}}</ul>
    </section>
    {{end}}
    {{with .Languages}}
    <section>
      <h2>{{index $.Titles "languages"}}</h2>
      {{range .}}<div><span>{{.Language}}</span><span class="meta"> · {{.Proficiency}}</span></div>{{end}}
    </section>
    {{end}}
  </aside>
  <main class="resume-main">
    {{with .ProfessionalExperience}}
    <section>
      <h2>{{index $.Titles "experience"}}</h2>
      {{range .}}
      <article class="experience-item">
        <h3>{{.JobTitle}}</h3>
        <p class="meta">{{.Company}}{{with .Location}} | {{.}}{{end}}{{with .Duration}} | {{duration .}}{{end}}</p>
        <ul>{{range achievements .Achievements}}<li>{{.}}</li>{{end}}</ul>
      </article>
      {{end}}
    </section>
    {{end}}
    {{with .Projects}}
    <section>
      <h2>{{index $.Titles "projects"}}</h2>
      {{range .}}
      <article class="project-item">
        <h3>{{.Title}}</h3>
        {{with .Description}}<p>{{.}}</p>{{end}}
        {{with .Technologies}}<p class="meta">{{join . ", "}}</p>{{end}}
        {{with .Impact}}<p>{{.}}</p>{{end}}
      </article>
      {{end}}
    </section>
    {{end}}
    {{with .Education}}
    <section>
      <h2>{{index $.Titles "education"}}</h2>
      {{range .}}
      <article class="education-item">
        <h3>{{.Degree}}</h3>
        <p class="meta">{{.School}} · {{.Year}}</p>
        {{with .Details}}<ul>{{range .}}<li>{{.}}</li>{{end}}</ul>{{end}}
      </article>
      {{end}}
    </section>
    {{end}}
    {{if or .KeySkills.ProductSkills .KeySkills.TechnicalSkills}}
    <section>
      <h2>{{index $.Titles "skills"}}</h2>
      {{with .KeySkills.ProductSkills}}<h3>{{index $.Titles "product"}}</h3><ul>{{range .}}<li>{{.}}</li>{{end}}</ul>{{end}}
      {{with .KeySkills.TechnicalSkills}}<h3>{{index $.Titles "technical"}}</h3><ul>{{range .}}<li>{{.}}</li>{{end}}</ul>{{end}}
    </section>
    {{end}}
  </main>
</div>
</body>
</html>
`
