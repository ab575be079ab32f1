package wizard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransitionTable(t *testing.T) {
	tests := []struct {
		name    string
		from    Step
		ev      Event
		guard   Guard
		to      Step
		effects []Effect
	}{
		{"start", StepWelcome, EventStart, Guard{}, StepOffer, nil},
		{"offer next", StepOffer, EventNext, Guard{}, StepRecruiter, nil},
		{"recruiter next", StepRecruiter, EventNext, Guard{}, StepJobURL, nil},
		{"url with link", StepJobURL, EventNext, Guard{HasJobURL: true}, StepScraping, []Effect{EffectScrape}},
		{"url without link", StepJobURL, EventNext, Guard{}, StepDescription, nil},
		{"description next", StepDescription, EventNext, Guard{}, StepMissions, nil},
		{"missions next", StepMissions, EventNext, Guard{}, StepQualifications, nil},
		{"qualifications next", StepQualifications, EventNext, Guard{}, StepAdditionalInfo, nil},
		{"additional next", StepAdditionalInfo, EventNext, Guard{}, StepGenerating, []Effect{EffectGenerate}},

		{"offer previous", StepOffer, EventPrevious, Guard{}, StepWelcome, nil},
		{"recruiter previous", StepRecruiter, EventPrevious, Guard{}, StepOffer, nil},
		{"url previous", StepJobURL, EventPrevious, Guard{}, StepRecruiter, nil},
		{"description previous without link", StepDescription, EventPrevious, Guard{}, StepJobURL, nil},
		{"description previous with link", StepDescription, EventPrevious, Guard{HasJobURL: true}, StepJobURL, nil},
		{"missions previous", StepMissions, EventPrevious, Guard{}, StepDescription, nil},
		{"qualifications previous", StepQualifications, EventPrevious, Guard{}, StepMissions, nil},
		{"additional previous", StepAdditionalInfo, EventPrevious, Guard{}, StepQualifications, nil},

		{"scrape done", StepScraping, EventScrapeDone, Guard{}, StepDescription, []Effect{EffectMergeScraped}},
		{"scrape failed", StepScraping, EventScrapeFailed, Guard{}, StepDescription, []Effect{EffectNoticeScrapeFailed}},
		{"generated with analysis", StepGenerating, EventGenerateDone, Guard{RenderAnalysis: true}, StepAnalysis, []Effect{EffectStoreAnalysis}},
		{"generated without analysis", StepGenerating, EventGenerateDone, Guard{}, StepAdditionalInfo, nil},
		{"generation failed", StepGenerating, EventGenerateFailed, Guard{}, StepAdditionalInfo, []Effect{EffectAlert}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			to, effects, err := Transition(tt.from, tt.ev, tt.guard)
			require.NoError(t, err)
			assert.Equal(t, tt.to, to)
			assert.Equal(t, tt.effects, effects)
		})
	}
}

func TestTransitionRejectsUnknownPairs(t *testing.T) {
	tests := []struct {
		from Step
		ev   Event
	}{
		{StepWelcome, EventNext},
		{StepWelcome, EventPrevious},
		{StepOffer, EventStart},
		{StepScraping, EventNext},
		{StepScraping, EventPrevious},
		{StepGenerating, EventNext},
		{StepAnalysis, EventNext},
		{StepAnalysis, EventPrevious},
		{StepDescription, EventScrapeDone},
		{StepAdditionalInfo, EventGenerateDone},
	}
	for _, tt := range tests {
		to, effects, err := Transition(tt.from, tt.ev, Guard{HasJobURL: true, RenderAnalysis: true})
		assert.ErrorIs(t, err, ErrInvalidTransition, "%s on %s", tt.ev, tt.from)
		assert.Equal(t, tt.from, to)
		assert.Nil(t, effects)
	}
}

func TestScrapingStepIsNeverANavigationTarget(t *testing.T) {
	for from := StepWelcome; from <= StepAnalysis; from++ {
		for _, ev := range []Event{EventNext, EventPrevious} {
			for _, g := range []Guard{{}, {HasJobURL: true}} {
				to, effects, err := Transition(from, ev, g)
				if err != nil || to != StepScraping {
					continue
				}
				// only a forward move from the link step with a link, which scrapes
				assert.Equal(t, StepJobURL, from)
				assert.Equal(t, EventNext, ev)
				assert.Contains(t, effects, EffectScrape)
			}
		}
	}
}

func TestTransitionInvalidStep(t *testing.T) {
	for _, s := range []Step{0, 12, -3} {
		_, _, err := Transition(s, EventNext, Guard{})
		assert.ErrorIs(t, err, ErrInvalidStep)
	}
}

func TestStepHelpers(t *testing.T) {
	assert.True(t, StepScraping.Loading())
	assert.True(t, StepGenerating.Loading())
	assert.False(t, StepOffer.Loading())
	assert.Equal(t, "job_url", StepJobURL.String())
	assert.Equal(t, "step(42)", Step(42).String())
	assert.False(t, Step(0).Valid())
	assert.True(t, StepAnalysis.Valid())
}
