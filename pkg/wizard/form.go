package wizard

import (
	"sort"
	"strings"

	"GrowthFlow/pkg/api"
)

// Form field names, shared with the backend form_data keys.
const (
	FieldCompanyName        = "company_name"
	FieldJobTitle           = "job_title"
	FieldRecruiterName      = "recruiter_name"
	FieldRecruiterRole      = "recruiter_role"
	FieldRecruiterRoleOther = "recruiter_role_other"
	FieldJobURL             = "job_url"
	FieldJobDescription     = "job_description"
	FieldMainMissions       = "main_missions"
	FieldQualifications     = "qualifications"
	FieldAdditionalInfo     = "additional_info"
)

// Recruiter roles offered on the recruiter step.
const (
	RoleRecommend = "recommend"
	RoleRecruiter = "recruiter"
	RoleOther     = "other"
)

// FormData accumulates everything submitted across the wizard. Fields are
// only ever overwritten, never removed; unknown names land in Extra.
type FormData struct {
	CompanyName        string
	JobTitle           string
	RecruiterName      string
	RecruiterRole      string
	RecruiterRoleOther string
	JobURL             string
	JobDescription     string
	MainMissions       string
	Qualifications     string
	AdditionalInfo     string

	Extra map[string]string

	submitted map[string]bool
}

func (f *FormData) field(name string) *string {
	switch name {
	case FieldCompanyName:
		return &f.CompanyName
	case FieldJobTitle:
		return &f.JobTitle
	case FieldRecruiterName:
		return &f.RecruiterName
	case FieldRecruiterRole:
		return &f.RecruiterRole
	case FieldRecruiterRoleOther:
		return &f.RecruiterRoleOther
	case FieldJobURL:
		return &f.JobURL
	case FieldJobDescription:
		return &f.JobDescription
	case FieldMainMissions:
		return &f.MainMissions
	case FieldQualifications:
		return &f.Qualifications
	case FieldAdditionalInfo:
		return &f.AdditionalInfo
	}
	return nil
}

// Set stores one value.
func (f *FormData) Set(name, value string) {
	if f.submitted == nil {
		f.submitted = make(map[string]bool)
	}
	f.submitted[name] = true
	if p := f.field(name); p != nil {
		*p = value
		return
	}
	if f.Extra == nil {
		f.Extra = make(map[string]string)
	}
	f.Extra[name] = value
}

// Get returns the value of name, "" when never set.
func (f *FormData) Get(name string) string {
	if p := f.field(name); p != nil {
		return *p
	}
	return f.Extra[name]
}

// Has reports whether name was ever submitted.
func (f *FormData) Has(name string) bool {
	return f.submitted[name]
}

// Merge overwrites same-named fields with values.
func (f *FormData) Merge(values map[string]string) {
	for name, v := range values {
		f.Set(name, v)
	}
}

// MergeScraped copies the descriptive fields of a scraped posting. Blank
// scraped values leave what the user already typed.
func (f *FormData) MergeScraped(job *api.ScrapedJob) {
	if job == nil {
		return
	}
	for name, v := range map[string]string{
		FieldJobDescription: job.JobDescription,
		FieldMainMissions:   job.MainMissions,
		FieldQualifications: job.Qualifications,
		FieldAdditionalInfo: job.AdditionalInfo,
	} {
		if strings.TrimSpace(v) != "" {
			f.Set(name, v)
		}
	}
}

// HasJobURL reports whether a non-blank job_url was given.
func (f *FormData) HasJobURL() bool {
	return strings.TrimSpace(f.JobURL) != ""
}

// Names returns the submitted field names, sorted.
func (f *FormData) Names() []string {
	names := make([]string, 0, len(f.submitted))
	for name := range f.submitted {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ToAPI flattens every submitted field into the backend form_data object.
func (f *FormData) ToAPI() api.FormData {
	out := make(api.FormData, len(f.submitted))
	for name := range f.submitted {
		out[name] = f.Get(name)
	}
	return out
}

// Clone returns an independent copy.
func (f *FormData) Clone() FormData {
	c := *f
	if f.Extra != nil {
		c.Extra = make(map[string]string, len(f.Extra))
		for k, v := range f.Extra {
			c.Extra[k] = v
		}
	}
	if f.submitted != nil {
		c.submitted = make(map[string]bool, len(f.submitted))
		for k, v := range f.submitted {
			c.submitted[k] = v
		}
	}
	return c
}
