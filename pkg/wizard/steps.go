package wizard

import (
	"fmt"

	"GrowthFlow/pkg/resume"
)

// FieldType is how a front end renders a field.
type FieldType string

const (
	FieldText     FieldType = "text"
	FieldURL      FieldType = "url"
	FieldTextarea FieldType = "textarea"
	FieldRadio    FieldType = "radio"
	FieldHidden   FieldType = "hidden"
)

// Kind tells a front end which screen a step is.
type Kind string

const (
	KindWelcome  Kind = "welcome"
	KindForm     Kind = "form"
	KindLoading  Kind = "loading"
	KindAnalysis Kind = "analysis"
)

// Choice is one choice of a radio field.
type Choice struct {
	Value string
	Label string
}

// FieldSpec describes one input of a form step.
type FieldSpec struct {
	Name             string
	Label            string
	Type             FieldType
	Required         bool
	Placeholder      string
	Value            string
	Options          []Choice
	AllowOtherText   bool
	OtherPlaceholder string
	AllowSkip        bool
	SkipText         string
	Rows             int
}

// OtherName is the companion field holding free text for "other".
func (f FieldSpec) OtherName() string { return f.Name + "_other" }

// StepConfig is the declarative descriptor of the current step. It is
// derived from (step, form data) on every call and never stored.
type StepConfig struct {
	FormID      string
	Kind        Kind
	Title       string
	Description string
	ButtonText  string
	Fields      []FieldSpec
	CurrentStep Step
	TotalSteps  int
	Notice      string
	Analysis    *resume.Analysis
}

// Texts of the non-form screens and messages.
const (
	WelcomeTitle       = "Super, on va adapter mon CV à votre offre."
	WelcomeSubtitle    = "Je vous pose quelques questions, puis je génère un CV prêt à être envoyé."
	WelcomeButton      = "Commencer"
	ScrapingTitle      = "Je m'occupe de récupérer l'annonce..."
	ScrapingSubtitle   = "Promis, ça ne prend pas longtemps."
	GeneratingTitle    = "Je génère un CV sur mesure..."
	GeneratingSubtitle = "Donnez-moi 20 à 30 secondes."
	GenerationAlert    = "Erreur lors de la génération du CV. Veuillez réessayer."
	ScrapeFailedNote   = "Je n'ai pas pu récupérer l'annonce, merci de remplir les informations à la main."
	ScrapedNote        = "✓ Informations extraites - vous pouvez les modifier"
	PreviousLabel      = "Précédent"
	NextLabel          = "Suivant"
	GenerateLabel      = "Générer mon CV"
	OtherPlaceholder   = "Précisez votre rôle..."
	DefaultSkipText    = "Passer cette étape"
	InvalidStepNotice  = "Étape invalide"
)

// BuildConfig derives the descriptor for step from form. notice is the
// scrape failure message, if any, and analysis the stored step 11 payload.
func BuildConfig(step Step, form *FormData, notice string, analysis *resume.Analysis) (StepConfig, error) {
	cfg := StepConfig{
		CurrentStep: step,
		TotalSteps:  TotalSteps,
	}

	switch step {
	case StepWelcome:
		cfg.Kind = KindWelcome
		cfg.Title = WelcomeTitle
		cfg.Description = WelcomeSubtitle
		cfg.ButtonText = WelcomeButton
		return cfg, nil

	case StepScraping:
		cfg.Kind = KindLoading
		cfg.Title = ScrapingTitle
		cfg.Description = ScrapingSubtitle
		return cfg, nil

	case StepGenerating:
		cfg.Kind = KindLoading
		cfg.Title = GeneratingTitle
		cfg.Description = GeneratingSubtitle
		return cfg, nil

	case StepAnalysis:
		if analysis == nil {
			return cfg, fmt.Errorf("%w: no analysis to show", ErrInvalidStep)
		}
		cfg.Kind = KindAnalysis
		cfg.Title = resume.AnalysisHeading
		cfg.Description = resume.AnalysisSubtitle
		cfg.ButtonText = resume.ViewResumeLabel
		cfg.Analysis = analysis
		return cfg, nil
	}

	cfg.Kind = KindForm
	cfg.FormID = fmt.Sprintf("cv_step%d", int(step))
	cfg.ButtonText = NextLabel

	switch step {
	case StepOffer:
		cfg.Title = "Commençons par l'offre."
		cfg.Description = "Dites-moi simplement l'entreprise et le poste visé."
		cfg.Fields = []FieldSpec{
			{
				Name:        FieldCompanyName,
				Label:       "Nom de l'entreprise",
				Type:        FieldText,
				Required:    true,
				Placeholder: "Exemple : Alan, Airbus, Back Market...",
				Value:       form.CompanyName,
			},
			{
				Name:        FieldJobTitle,
				Label:       "Intitulé du poste",
				Type:        FieldText,
				Required:    true,
				Placeholder: "Exemple : Product Owner",
				Value:       form.JobTitle,
			},
		}

	case StepRecruiter:
		cfg.Title = "Qui êtes-vous pour ce poste ?"
		cfg.Description = "Juste pour que je sache à qui je parle 😊"
		cfg.Fields = []FieldSpec{
			{
				Name:        FieldRecruiterName,
				Label:       "Votre prénom",
				Type:        FieldText,
				Required:    true,
				Placeholder: "Votre prénom (promis, il reste entre nous)",
				Value:       form.RecruiterName,
			},
			{
				Name:     FieldRecruiterRole,
				Label:    "Votre rôle",
				Type:     FieldRadio,
				Required: true,
				Options: []Choice{
					{Value: RoleRecommend, Label: "Je veux te recommander"},
					{Value: RoleRecruiter, Label: "Je recrute pour ce poste"},
					{Value: RoleOther, Label: "Autre"},
				},
				Value:            form.RecruiterRole,
				AllowOtherText:   true,
				OtherPlaceholder: OtherPlaceholder,
			},
			{
				Name:  FieldRecruiterRoleOther,
				Type:  FieldHidden,
				Value: form.RecruiterRoleOther,
			},
		}

	case StepJobURL:
		cfg.Title = "Avez-vous un lien vers l'annonce ?"
		cfg.Description = "Si vous l'avez, je récupère automatiquement les infos importantes."
		cfg.Fields = []FieldSpec{{
			Name:        FieldJobURL,
			Label:       "Lien de l'annonce",
			Type:        FieldURL,
			Placeholder: "https://...",
			Value:       form.JobURL,
			AllowSkip:   true,
			SkipText:    "Je n'ai pas de lien, je veux le remplir à la main",
		}}

	case StepDescription:
		cfg.Title = "Décrivez l'offre en quelques lignes."
		switch {
		case notice != "":
			cfg.Description = notice
			cfg.Notice = notice
		case form.HasJobURL():
			cfg.Description = ScrapedNote
		default:
			cfg.Description = "Contexte, entreprise, rôle..."
		}
		cfg.Fields = []FieldSpec{textarea(FieldJobDescription, "Description de l'offre",
			"Entreprise qui développe..., le poste consiste à...", true, 8, form.JobDescription)}

	case StepMissions:
		cfg.Title = "Quelles sont les missions du poste ?"
		cfg.Description = "Les responsabilités, le quotidien."
		cfg.Fields = []FieldSpec{textarea(FieldMainMissions, "Missions",
			"Pilotage produit..., coordination...", true, 8, form.MainMissions)}

	case StepQualifications:
		cfg.Title = "Quel profil l'entreprise recherche ?"
		cfg.Description = "Expérience, compétences techniques, soft skills..."
		cfg.Fields = []FieldSpec{textarea(FieldQualifications, "Profil recherché",
			"3 ans d'expérience..., maîtrise de...", true, 8, form.Qualifications)}

	case StepAdditionalInfo:
		cfg.Title = "Y a-t-il d'autres infos importantes ?"
		cfg.Description = "Contrat, salaire, lieu, rythme..."
		cfg.ButtonText = GenerateLabel
		cfg.Fields = []FieldSpec{textarea(FieldAdditionalInfo, "Autres informations",
			"CDI..., Paris..., hybride...", false, 6, form.AdditionalInfo)}

	default:
		return StepConfig{CurrentStep: step, TotalSteps: TotalSteps},
			fmt.Errorf("%w: %d", ErrInvalidStep, int(step))
	}

	return cfg, nil
}

func textarea(name, label, placeholder string, required bool, rows int, value string) FieldSpec {
	return FieldSpec{
		Name:        name,
		Label:       label,
		Type:        FieldTextarea,
		Required:    required,
		Placeholder: placeholder,
		Rows:        rows,
		Value:       value,
	}
}

// Progress returns current/total as a fraction for progress bars.
func (c StepConfig) Progress() float64 {
	if c.TotalSteps == 0 {
		return 0
	}
	return float64(c.CurrentStep) / float64(c.TotalSteps)
}

// VisibleFields returns the fields a front end should prompt for.
func (c StepConfig) VisibleFields() []FieldSpec {
	out := make([]FieldSpec, 0, len(c.Fields))
	for _, f := range c.Fields {
		if f.Type != FieldHidden {
			out = append(out, f)
		}
	}
	return out
}
