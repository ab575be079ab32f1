package wizard

import (
	"fmt"
	"net/url"
	"strings"
)

// Validate checks a forward submission against the fields of cfg. It
// returns nil or a *ValidationError keyed by field name.
func Validate(cfg StepConfig, values map[string]string) error {
	errs := make(map[string]string)

	for _, field := range cfg.Fields {
		value := strings.TrimSpace(values[field.Name])
		label := field.Label
		if label == "" {
			label = field.Name
		}

		if field.Required && value == "" {
			errs[field.Name] = fmt.Sprintf("%s is required", label)
			continue
		}
		if value == "" {
			continue
		}

		switch field.Type {
		case FieldRadio:
			if !hasOption(field.Options, value) {
				errs[field.Name] = fmt.Sprintf("%s: unknown choice %q", label, value)
				continue
			}
			if field.AllowOtherText && value == RoleOther && strings.TrimSpace(values[field.OtherName()]) == "" {
				errs[field.OtherName()] = fmt.Sprintf("%s (Autre) is required", label)
			}
		case FieldURL:
			if u, err := url.Parse(value); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
				errs[field.Name] = fmt.Sprintf("%s must be an http(s) link", label)
			}
		}
	}

	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}

func hasOption(options []Choice, value string) bool {
	for _, o := range options {
		if o.Value == value {
			return true
		}
	}
	return false
}
