package wizard

import (
	"testing"

	"GrowthFlow/pkg/api"

	"github.com/stretchr/testify/assert"
)

func TestFormDataMergeOverwritesAndAccumulates(t *testing.T) {
	var f FormData
	f.Merge(map[string]string{FieldCompanyName: "Acme", FieldJobTitle: "PM"})
	f.Merge(map[string]string{FieldRecruiterName: "Léa"})
	f.Merge(map[string]string{FieldCompanyName: "Acme Corp", "utm_source": "mail"})

	assert.Equal(t, "Acme Corp", f.CompanyName)
	assert.Equal(t, "PM", f.JobTitle)
	assert.Equal(t, "Léa", f.RecruiterName)
	assert.Equal(t, "mail", f.Get("utm_source"))
	assert.Equal(t, []string{FieldCompanyName, FieldJobTitle, FieldRecruiterName, "utm_source"}, f.Names())
}

func TestFormDataEmptySubmissionIsKept(t *testing.T) {
	var f FormData
	f.Merge(map[string]string{FieldJobURL: ""})

	assert.True(t, f.Has(FieldJobURL))
	assert.False(t, f.HasJobURL())
	assert.Equal(t, api.FormData{FieldJobURL: ""}, f.ToAPI())
}

func TestFormDataHasJobURLTrims(t *testing.T) {
	f := FormData{JobURL: "   "}
	assert.False(t, f.HasJobURL())
	f.JobURL = " https://jobs.example.com/1 "
	assert.True(t, f.HasJobURL())
}

func TestMergeScrapedKeepsTypedValuesForBlankFields(t *testing.T) {
	var f FormData
	f.Merge(map[string]string{FieldAdditionalInfo: "CDI, Paris"})
	f.MergeScraped(&api.ScrapedJob{
		CompanyName:    "Ignored Inc",
		JobDescription: "Build things",
		MainMissions:   "Lead",
		Qualifications: "5 years",
		AdditionalInfo: "",
	})

	assert.Equal(t, "Build things", f.JobDescription)
	assert.Equal(t, "Lead", f.MainMissions)
	assert.Equal(t, "5 years", f.Qualifications)
	assert.Equal(t, "CDI, Paris", f.AdditionalInfo)
	assert.Empty(t, f.CompanyName)

	f.MergeScraped(nil)
	assert.Equal(t, "Build things", f.JobDescription)
}

func TestFormDataCloneIsIndependent(t *testing.T) {
	var f FormData
	f.Merge(map[string]string{FieldCompanyName: "Acme", "extra": "1"})
	c := f.Clone()
	c.Merge(map[string]string{FieldCompanyName: "Other", "extra": "2", FieldJobTitle: "PM"})

	assert.Equal(t, "Acme", f.CompanyName)
	assert.Equal(t, "1", f.Get("extra"))
	assert.False(t, f.Has(FieldJobTitle))
}
