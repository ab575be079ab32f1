// Package wizard drives the résumé wizard: an eleven step form that collects
// the job posting, optionally scrapes it, then asks the backend to generate
// a tailored résumé and shows the match analysis.
package wizard

import "fmt"

// Step is a wizard position. Only 1..11 are valid.
type Step int

const (
	StepWelcome Step = iota + 1
	StepOffer
	StepRecruiter
	StepJobURL
	StepScraping
	StepDescription
	StepMissions
	StepQualifications
	StepAdditionalInfo
	StepGenerating
	StepAnalysis
)

// TotalSteps is the number of steps shown in the progress indicator.
const TotalSteps = 11

func (s Step) Valid() bool { return s >= StepWelcome && s <= StepAnalysis }

// Loading reports whether s is a non-interactive pseudo-step.
func (s Step) Loading() bool { return s == StepScraping || s == StepGenerating }

func (s Step) String() string {
	switch s {
	case StepWelcome:
		return "welcome"
	case StepOffer:
		return "offer"
	case StepRecruiter:
		return "recruiter"
	case StepJobURL:
		return "job_url"
	case StepScraping:
		return "scraping"
	case StepDescription:
		return "description"
	case StepMissions:
		return "missions"
	case StepQualifications:
		return "qualifications"
	case StepAdditionalInfo:
		return "additional_info"
	case StepGenerating:
		return "generating"
	case StepAnalysis:
		return "analysis"
	}
	return fmt.Sprintf("step(%d)", int(s))
}

// Event is an input to the state machine.
type Event int

const (
	EventStart Event = iota
	EventNext
	EventPrevious
	EventScrapeDone
	EventScrapeFailed
	EventGenerateDone
	EventGenerateFailed
)

func (e Event) String() string {
	switch e {
	case EventStart:
		return "start"
	case EventNext:
		return "next"
	case EventPrevious:
		return "previous"
	case EventScrapeDone:
		return "scrape_done"
	case EventScrapeFailed:
		return "scrape_failed"
	case EventGenerateDone:
		return "generate_done"
	case EventGenerateFailed:
		return "generate_failed"
	}
	return fmt.Sprintf("event(%d)", int(e))
}

// Effect is work the orchestrator performs after a transition.
type Effect int

const (
	EffectScrape Effect = iota + 1
	EffectMergeScraped
	EffectNoticeScrapeFailed
	EffectGenerate
	EffectStoreAnalysis
	EffectAlert
)

func (e Effect) String() string {
	switch e {
	case EffectScrape:
		return "scrape"
	case EffectMergeScraped:
		return "merge_scraped"
	case EffectNoticeScrapeFailed:
		return "notice_scrape_failed"
	case EffectGenerate:
		return "generate"
	case EffectStoreAnalysis:
		return "store_analysis"
	case EffectAlert:
		return "alert"
	}
	return fmt.Sprintf("effect(%d)", int(e))
}

// Guard carries the facts conditional transitions look at.
type Guard struct {
	HasJobURL      bool // job_url is non-blank after the merge
	RenderAnalysis bool // generation replied with RENDER_ANALYSIS
}

type transitionKey struct {
	from Step
	ev   Event
}

type rule struct {
	when    func(Guard) bool
	to      Step
	effects []Effect
}

func always(Guard) bool { return true }

func next(from Step) rule { return rule{when: always, to: from + 1} }
func prev(from Step) rule { return rule{when: always, to: from - 1} }

// transitions lists every legal move; the first rule whose guard holds wins.
var transitions = map[transitionKey][]rule{
	{StepWelcome, EventStart}: {{when: always, to: StepOffer}},

	{StepOffer, EventNext}:     {next(StepOffer)},
	{StepRecruiter, EventNext}: {next(StepRecruiter)},
	{StepJobURL, EventNext}: {
		{when: func(g Guard) bool { return g.HasJobURL }, to: StepScraping, effects: []Effect{EffectScrape}},
		{when: always, to: StepDescription},
	},
	{StepDescription, EventNext}:    {next(StepDescription)},
	{StepMissions, EventNext}:       {next(StepMissions)},
	{StepQualifications, EventNext}: {next(StepQualifications)},
	{StepAdditionalInfo, EventNext}: {{when: always, to: StepGenerating, effects: []Effect{EffectGenerate}}},

	{StepOffer, EventPrevious}:     {prev(StepOffer)},
	{StepRecruiter, EventPrevious}: {prev(StepRecruiter)},
	{StepJobURL, EventPrevious}:    {prev(StepJobURL)},
	// The scraping step is never a navigation target.
	{StepDescription, EventPrevious}:    {{when: always, to: StepJobURL}},
	{StepMissions, EventPrevious}:       {prev(StepMissions)},
	{StepQualifications, EventPrevious}: {prev(StepQualifications)},
	{StepAdditionalInfo, EventPrevious}: {prev(StepAdditionalInfo)},

	{StepScraping, EventScrapeDone}:   {{when: always, to: StepDescription, effects: []Effect{EffectMergeScraped}}},
	{StepScraping, EventScrapeFailed}: {{when: always, to: StepDescription, effects: []Effect{EffectNoticeScrapeFailed}}},

	{StepGenerating, EventGenerateDone}: {
		{when: func(g Guard) bool { return g.RenderAnalysis }, to: StepAnalysis, effects: []Effect{EffectStoreAnalysis}},
		{when: always, to: StepAdditionalInfo},
	},
	{StepGenerating, EventGenerateFailed}: {{when: always, to: StepAdditionalInfo, effects: []Effect{EffectAlert}}},
}

// Transition computes the next step for ev at from. Pairs missing from the
// table return ErrInvalidTransition and from unchanged.
func Transition(from Step, ev Event, g Guard) (Step, []Effect, error) {
	if !from.Valid() {
		return from, nil, fmt.Errorf("%w: %d", ErrInvalidStep, int(from))
	}
	for _, r := range transitions[transitionKey{from, ev}] {
		if r.when(g) {
			return r.to, r.effects, nil
		}
	}
	return from, nil, &TransitionError{From: from, Event: ev}
}
