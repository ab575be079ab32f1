package prompt

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"GrowthFlow/pkg/resume"
	"GrowthFlow/pkg/wizard"
)

// Labels of the job link choice.
const (
	pasteLinkLabel = "Coller le lien de l'annonce"
	cancelLabel    = "Annuler"
)

// RunWizard drives w from its current step to the analysis screen and
// returns the analysis. A generation failure is reported and the user is
// put back on the last form step, as the orchestrator does.
func RunWizard(ctx context.Context, d Driver, w *wizard.Orchestrator, width int) (*resume.Analysis, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		cfg, err := w.Config()
		if err != nil {
			return nil, err
		}

		switch cfg.Kind {
		case wizard.KindWelcome:
			if err := d.Info(ctx, "\n"+cfg.Title+"\n"+cfg.Description); err != nil {
				return nil, err
			}
			ok, err := d.Confirm(ctx, cfg.ButtonText+" ?", true)
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, ErrAborted
			}
			if err := w.Start(); err != nil {
				return nil, err
			}

		case wizard.KindLoading:
			// Submit blocks through loading steps; only a concurrent caller lands here.
			return nil, wizard.ErrBusy

		case wizard.KindAnalysis:
			if err := d.Info(ctx, resume.RenderAnalysisText(cfg.Analysis, width)); err != nil {
				return nil, err
			}
			return cfg.Analysis, nil

		case wizard.KindForm:
			if err := runFormStep(ctx, d, w, cfg); err != nil {
				return nil, err
			}
		}
	}
}

func runFormStep(ctx context.Context, d Driver, w *wizard.Orchestrator, cfg wizard.StepConfig) error {
	header := fmt.Sprintf("\n[%d/%d] %s", int(cfg.CurrentStep), cfg.TotalSteps, cfg.Title)
	if cfg.Description != "" {
		header += "\n" + cfg.Description
	}
	if err := d.Info(ctx, header); err != nil {
		return err
	}

	values, err := askFields(ctx, d, cfg)
	if err != nil {
		return err
	}

	nav := wizard.Next
	if cfg.CurrentStep > wizard.StepOffer {
		idx, err := d.Select(ctx, SelectConfig{
			Message: "?",
			Options: []string{cfg.ButtonText, wizard.PreviousLabel, cancelLabel},
		})
		if err != nil {
			return err
		}
		switch idx {
		case 1:
			nav = wizard.Previous
		case 2:
			return ErrAborted
		}
	}

	if cfg.CurrentStep == wizard.StepJobURL && nav == wizard.Next && strings.TrimSpace(values[wizard.FieldJobURL]) != "" {
		_ = d.Info(ctx, wizard.ScrapingTitle+" "+wizard.ScrapingSubtitle)
	}
	if cfg.CurrentStep == wizard.StepAdditionalInfo && nav == wizard.Next {
		_ = d.Info(ctx, wizard.GeneratingTitle+" "+wizard.GeneratingSubtitle)
	}

	err = w.Submit(ctx, values, nav)
	var verr *wizard.ValidationError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &verr):
		return d.Info(ctx, validationText(verr))
	case errors.Is(err, wizard.ErrGenerationFailed):
		// the alert callback has already been shown; the form is intact
		return nil
	default:
		return err
	}
}

// askFields prompts for every visible field of cfg, prefilled with the
// values already in the form.
func askFields(ctx context.Context, d Driver, cfg wizard.StepConfig) (map[string]string, error) {
	values := make(map[string]string, len(cfg.Fields))
	hidden := make(map[string]string)
	for _, f := range cfg.Fields {
		if f.Type == wizard.FieldHidden {
			hidden[f.Name] = f.Value
		}
	}

	for _, f := range cfg.VisibleFields() {
		switch f.Type {
		case wizard.FieldTextarea:
			v, err := d.TextArea(ctx, TextAreaConfig{Message: fieldMessage(f), Default: f.Value, Help: f.Placeholder})
			if err != nil {
				return nil, err
			}
			values[f.Name] = strings.TrimSpace(v)

		case wizard.FieldRadio:
			labels := make([]string, len(f.Options))
			def := 0
			for i, o := range f.Options {
				labels[i] = o.Label
				if o.Value == f.Value {
					def = i
				}
			}
			idx, err := d.Select(ctx, SelectConfig{Message: fieldMessage(f), Options: labels, DefaultIndex: def})
			if err != nil {
				return nil, err
			}
			if idx < 0 || idx >= len(f.Options) {
				return nil, fmt.Errorf("%s: no choice made", f.Label)
			}
			values[f.Name] = f.Options[idx].Value
			if f.AllowOtherText && f.Options[idx].Value == wizard.RoleOther {
				v, err := d.Input(ctx, InputConfig{
					Message:   f.OtherPlaceholder,
					Default:   hidden[f.OtherName()],
					Validator: required(f.Label + " (Autre)"),
				})
				if err != nil {
					return nil, err
				}
				values[f.OtherName()] = strings.TrimSpace(v)
			}

		case wizard.FieldURL:
			if f.AllowSkip {
				def := 0
				if f.Value == "" {
					def = 1
				}
				idx, err := d.Select(ctx, SelectConfig{
					Message:      fieldMessage(f),
					Options:      []string{pasteLinkLabel, f.SkipText},
					DefaultIndex: def,
				})
				if err != nil {
					return nil, err
				}
				if idx == 1 {
					values[f.Name] = ""
					continue
				}
			}
			v, err := d.Input(ctx, InputConfig{
				Message:   fieldMessage(f),
				Default:   f.Value,
				Help:      f.Placeholder,
				Validator: httpURL(f.Label),
			})
			if err != nil {
				return nil, err
			}
			values[f.Name] = strings.TrimSpace(v)

		default:
			var validator func(string) error
			if f.Required {
				validator = required(f.Label)
			}
			v, err := d.Input(ctx, InputConfig{
				Message:   fieldMessage(f),
				Default:   f.Value,
				Help:      f.Placeholder,
				Validator: validator,
			})
			if err != nil {
				return nil, err
			}
			values[f.Name] = strings.TrimSpace(v)
		}
	}
	return values, nil
}

func fieldMessage(f wizard.FieldSpec) string {
	if f.Required {
		return f.Label + " *"
	}
	return f.Label
}

func required(label string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", label)
		}
		return nil
	}
}

func httpURL(label string) func(string) error {
	return func(s string) error {
		s = strings.TrimSpace(s)
		if s == "" {
			return fmt.Errorf("%s is required", label)
		}
		u, err := url.Parse(s)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("%s must be an http(s) link", label)
		}
		return nil
	}
}

func validationText(verr *wizard.ValidationError) string {
	names := make([]string, 0, len(verr.Fields))
	for name := range verr.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	lines := make([]string, 0, len(names))
	for _, name := range names {
		lines = append(lines, "✗ "+verr.Fields[name])
	}
	return strings.Join(lines, "\n")
}
