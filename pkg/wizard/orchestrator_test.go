package wizard

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"GrowthFlow/pkg/api"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeScraper struct {
	calls atomic.Int32
	job   *api.ScrapedJob
	err   error
	block chan struct{}
	urls  []string
	mu    sync.Mutex
}

func (f *fakeScraper) ScrapeJobURL(ctx context.Context, jobURL string) (*api.ScrapedJob, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.urls = append(f.urls, jobURL)
	f.mu.Unlock()
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.job, f.err
}

type fakeGenerator struct {
	calls   atomic.Int32
	reply   *api.ChatReply
	err     error
	block   chan struct{}
	started chan struct{}
	got     api.FormData
}

func (f *fakeGenerator) GenerateResume(ctx context.Context, formData api.FormData) (*api.ChatReply, error) {
	f.calls.Add(1)
	f.got = formData
	if f.started != nil {
		close(f.started)
	}
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.reply, f.err
}

func analysisReply() *api.ChatReply {
	data, _ := json.Marshal(map[string]any{
		"resume_id":           "res-42",
		"company_name":        "Acme",
		"job_title":           "PM",
		"match_score":         81,
		"match_tag":           "On est fait pour travailler ensemble",
		"intro_message":       "Bonjour",
		"key_strengths":       []string{"clients"},
		"points_of_attention": []string{"santé"},
	})
	return &api.ChatReply{NextAction: api.ActionRenderAnalysis, WidgetData: data}
}

// walkToJobURL moves a fresh wizard to the job link step.
func walkToJobURL(t *testing.T, o *Orchestrator) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, o.Start())
	require.NoError(t, o.Submit(ctx, map[string]string{FieldCompanyName: "Acme", FieldJobTitle: "PM"}, Next))
	require.NoError(t, o.Submit(ctx, map[string]string{FieldRecruiterName: "Léa", FieldRecruiterRole: RoleRecruiter, FieldRecruiterRoleOther: ""}, Next))
	require.Equal(t, StepJobURL, o.State().Step)
}

// walkToAdditional moves from the description step to the last form step.
func walkToAdditional(t *testing.T, o *Orchestrator) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, o.Submit(ctx, map[string]string{FieldJobDescription: "desc"}, Next))
	require.NoError(t, o.Submit(ctx, map[string]string{FieldMainMissions: "missions"}, Next))
	require.NoError(t, o.Submit(ctx, map[string]string{FieldQualifications: "quals"}, Next))
	require.Equal(t, StepAdditionalInfo, o.State().Step)
}

func TestHappyPathWithoutLink(t *testing.T) {
	scraper := &fakeScraper{}
	gen := &fakeGenerator{reply: analysisReply()}
	var steps []Step
	o := New(scraper, gen, WithOnChange(func(s State) { steps = append(steps, s.Step) }))

	walkToJobURL(t, o)
	require.NoError(t, o.Submit(context.Background(), map[string]string{FieldJobURL: ""}, Next))
	assert.Equal(t, StepDescription, o.State().Step)
	assert.Zero(t, scraper.calls.Load(), "no scrape without a link")

	walkToAdditional(t, o)
	require.NoError(t, o.Submit(context.Background(), map[string]string{FieldAdditionalInfo: ""}, Next))

	st := o.State()
	assert.Equal(t, StepAnalysis, st.Step)
	assert.False(t, st.Loading)
	require.NotNil(t, st.Analysis)
	assert.Equal(t, "res-42", st.Analysis.ResumeID)
	assert.Equal(t, 81, st.Analysis.MatchScore)

	assert.Equal(t, int32(1), gen.calls.Load())
	assert.Equal(t, "Acme", gen.got[FieldCompanyName])
	assert.Equal(t, "quals", gen.got[FieldQualifications])
	assert.Contains(t, gen.got, FieldAdditionalInfo)
	assert.Contains(t, gen.got, FieldRecruiterRoleOther)

	assert.Contains(t, steps, StepGenerating)
	assert.NotContains(t, steps, StepScraping)

	cfg, err := o.Config()
	require.NoError(t, err)
	assert.Equal(t, KindAnalysis, cfg.Kind)
}

func TestScrapeSuccessMergesAndLandsOnDescription(t *testing.T) {
	scraper := &fakeScraper{job: &api.ScrapedJob{
		JobDescription: "We build rockets",
		MainMissions:   "Own the roadmap",
		Qualifications: "5 years",
		AdditionalInfo: "Remote",
	}}
	var sawLoading bool
	o := New(scraper, &fakeGenerator{}, WithOnChange(func(s State) {
		if s.Step == StepScraping && s.Loading {
			sawLoading = true
		}
	}))
	walkToJobURL(t, o)

	require.NoError(t, o.Submit(context.Background(), map[string]string{FieldJobURL: " https://jobs.example.com/1 "}, Next))

	st := o.State()
	assert.Equal(t, StepDescription, st.Step)
	assert.False(t, st.Loading)
	assert.Empty(t, st.Notice)
	assert.Equal(t, "We build rockets", st.Form.JobDescription)
	assert.Equal(t, "Remote", st.Form.AdditionalInfo)
	assert.Equal(t, int32(1), scraper.calls.Load())
	assert.Equal(t, []string{"https://jobs.example.com/1"}, scraper.urls)
	assert.True(t, sawLoading)

	cfg, err := o.Config()
	require.NoError(t, err)
	assert.Equal(t, ScrapedNote, cfg.Description)
	assert.Equal(t, "We build rockets", cfg.Fields[0].Value)
}

func TestScrapeFailureIsSilentAndLeavesFormUnchanged(t *testing.T) {
	scraper := &fakeScraper{err: errors.New("boom")}
	alerts := 0
	o := New(scraper, &fakeGenerator{}, WithAlert(func(string) { alerts++ }))
	walkToJobURL(t, o)
	before := o.State().Form

	err := o.Submit(context.Background(), map[string]string{FieldJobURL: "https://jobs.example.com/1"}, Next)
	require.NoError(t, err)

	st := o.State()
	assert.Equal(t, StepDescription, st.Step)
	assert.False(t, st.Loading)
	assert.Equal(t, ScrapeFailedNote, st.Notice)
	assert.Equal(t, before.JobDescription, st.Form.JobDescription)
	assert.Equal(t, before.MainMissions, st.Form.MainMissions)
	assert.Zero(t, alerts)
	assert.Equal(t, int32(1), scraper.calls.Load())

	cfg, err := o.Config()
	require.NoError(t, err)
	assert.Equal(t, ScrapeFailedNote, cfg.Description)

	// the notice goes away once the user moves on
	require.NoError(t, o.Submit(context.Background(), map[string]string{FieldJobDescription: "typed"}, Next))
	assert.Empty(t, o.State().Notice)
}

func TestPreviousFromDescriptionAlwaysLandsOnJobURL(t *testing.T) {
	for _, link := range []string{"", "https://jobs.example.com/1"} {
		o := New(&fakeScraper{job: &api.ScrapedJob{}}, &fakeGenerator{})
		walkToJobURL(t, o)
		require.NoError(t, o.Submit(context.Background(), map[string]string{FieldJobURL: link}, Next))
		require.Equal(t, StepDescription, o.State().Step)

		require.NoError(t, o.Submit(context.Background(), map[string]string{FieldJobDescription: ""}, Previous))
		assert.Equal(t, StepJobURL, o.State().Step, "link %q", link)
	}
}

func TestPreviousSkipsValidationButMerges(t *testing.T) {
	o := New(nil, nil)
	require.NoError(t, o.Start())
	require.NoError(t, o.Submit(context.Background(), map[string]string{FieldCompanyName: "Acme", FieldJobTitle: "PM"}, Next))

	require.NoError(t, o.Submit(context.Background(), map[string]string{FieldRecruiterName: "", FieldRecruiterRole: ""}, Previous))
	st := o.State()
	assert.Equal(t, StepOffer, st.Step)
	assert.True(t, st.Form.Has(FieldRecruiterName))

	require.NoError(t, o.Submit(context.Background(), map[string]string{FieldCompanyName: "", FieldJobTitle: ""}, Previous))
	assert.Equal(t, StepWelcome, o.State().Step)
	assert.Empty(t, o.State().Form.CompanyName, "later values overwrite earlier ones")
}

func TestValidationFailureKeepsStepAndForm(t *testing.T) {
	o := New(nil, nil)
	require.NoError(t, o.Start())

	err := o.Submit(context.Background(), map[string]string{FieldCompanyName: "Acme", FieldJobTitle: "  "}, Next)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, FieldJobTitle)

	st := o.State()
	assert.Equal(t, StepOffer, st.Step)
	assert.False(t, st.Form.Has(FieldCompanyName))
}

func TestGenerationFailureAlertsOnceAndReturnsToLastFormStep(t *testing.T) {
	cause := errors.New("backend down")
	gen := &fakeGenerator{err: cause}
	var alerts []string
	o := New(&fakeScraper{}, gen, WithAlert(func(msg string) { alerts = append(alerts, msg) }))
	walkToJobURL(t, o)
	require.NoError(t, o.Submit(context.Background(), map[string]string{FieldJobURL: ""}, Next))
	walkToAdditional(t, o)

	err := o.Submit(context.Background(), map[string]string{FieldAdditionalInfo: "CDI"}, Next)
	require.ErrorIs(t, err, ErrGenerationFailed)
	assert.ErrorIs(t, err, cause)

	st := o.State()
	assert.Equal(t, StepAdditionalInfo, st.Step)
	assert.False(t, st.Loading)
	assert.Nil(t, st.Analysis)
	assert.Equal(t, []string{GenerationAlert}, alerts)
	assert.Equal(t, "CDI", st.Form.AdditionalInfo)

	// the user can retry from the same step
	gen.err = nil
	gen.reply = analysisReply()
	require.NoError(t, o.Submit(context.Background(), map[string]string{FieldAdditionalInfo: "CDI"}, Next))
	assert.Equal(t, StepAnalysis, o.State().Step)
	assert.Len(t, alerts, 1)
}

func TestGenerationWithoutAnalysisReturnsToLastFormStep(t *testing.T) {
	gen := &fakeGenerator{reply: &api.ChatReply{Response: "ok"}}
	alerts := 0
	o := New(&fakeScraper{}, gen, WithAlert(func(string) { alerts++ }))
	walkToJobURL(t, o)
	require.NoError(t, o.Submit(context.Background(), map[string]string{FieldJobURL: ""}, Next))
	walkToAdditional(t, o)

	require.NoError(t, o.Submit(context.Background(), nil, Next))
	st := o.State()
	assert.Equal(t, StepAdditionalInfo, st.Step)
	assert.False(t, st.Loading)
	assert.Zero(t, alerts)
}

func TestMalformedAnalysisIsAFailure(t *testing.T) {
	gen := &fakeGenerator{reply: &api.ChatReply{NextAction: api.ActionRenderAnalysis, WidgetData: json.RawMessage(`"nope"`)}}
	alerts := 0
	o := New(&fakeScraper{}, gen, WithAlert(func(string) { alerts++ }))
	walkToJobURL(t, o)
	require.NoError(t, o.Submit(context.Background(), map[string]string{FieldJobURL: ""}, Next))
	walkToAdditional(t, o)

	err := o.Submit(context.Background(), nil, Next)
	assert.ErrorIs(t, err, ErrGenerationFailed)
	assert.Equal(t, StepAdditionalInfo, o.State().Step)
	assert.Equal(t, 1, alerts)
}

func TestSubmitWhileLoadingIsBusy(t *testing.T) {
	gen := &fakeGenerator{reply: analysisReply(), block: make(chan struct{}), started: make(chan struct{})}
	o := New(&fakeScraper{}, gen)
	walkToJobURL(t, o)
	require.NoError(t, o.Submit(context.Background(), map[string]string{FieldJobURL: ""}, Next))
	walkToAdditional(t, o)

	done := make(chan error, 1)
	go func() { done <- o.Submit(context.Background(), nil, Next) }()
	<-gen.started

	st := o.State()
	assert.Equal(t, StepGenerating, st.Step)
	assert.True(t, st.Loading)
	assert.ErrorIs(t, o.Submit(context.Background(), nil, Next), ErrBusy)
	assert.ErrorIs(t, o.Submit(context.Background(), nil, Previous), ErrBusy)
	assert.ErrorIs(t, o.Start(), ErrBusy)

	close(gen.block)
	require.NoError(t, <-done)
	assert.Equal(t, StepAnalysis, o.State().Step)
	assert.Equal(t, int32(1), gen.calls.Load())
}

func TestResetDiscardsLateResult(t *testing.T) {
	gen := &fakeGenerator{reply: analysisReply(), block: make(chan struct{}), started: make(chan struct{})}
	alerts := 0
	o := New(&fakeScraper{}, gen, WithAlert(func(string) { alerts++ }))
	walkToJobURL(t, o)
	require.NoError(t, o.Submit(context.Background(), map[string]string{FieldJobURL: ""}, Next))
	walkToAdditional(t, o)

	done := make(chan error, 1)
	go func() { done <- o.Submit(context.Background(), nil, Next) }()
	<-gen.started

	o.Reset()
	assert.ErrorIs(t, <-done, ErrCancelled)

	st := o.State()
	assert.Equal(t, StepWelcome, st.Step)
	assert.False(t, st.Loading)
	assert.Nil(t, st.Analysis)
	assert.Empty(t, st.Form.Names())
	assert.Zero(t, alerts)
}

func TestCancelReturnsToLaunchingStep(t *testing.T) {
	scraper := &fakeScraper{block: make(chan struct{})}
	o := New(scraper, &fakeGenerator{})
	walkToJobURL(t, o)

	done := make(chan error, 1)
	go func() {
		done <- o.Submit(context.Background(), map[string]string{FieldJobURL: "https://jobs.example.com/1"}, Next)
	}()
	require.Eventually(t, func() bool { return o.State().Loading }, time.Second, time.Millisecond)

	o.Cancel()
	assert.ErrorIs(t, <-done, ErrCancelled)
	st := o.State()
	assert.Equal(t, StepJobURL, st.Step)
	assert.False(t, st.Loading)
	assert.Equal(t, "https://jobs.example.com/1", st.Form.JobURL)
}

func TestScrapeTimeoutFailsOpen(t *testing.T) {
	scraper := &fakeScraper{block: make(chan struct{})}
	o := New(scraper, &fakeGenerator{}, WithTimeouts(20*time.Millisecond, 0))
	walkToJobURL(t, o)

	require.NoError(t, o.Submit(context.Background(), map[string]string{FieldJobURL: "https://jobs.example.com/1"}, Next))
	st := o.State()
	assert.Equal(t, StepDescription, st.Step)
	assert.Equal(t, ScrapeFailedNote, st.Notice)
}

func TestSubmitOnTerminalStepIsInvalid(t *testing.T) {
	o := New(&fakeScraper{}, &fakeGenerator{reply: analysisReply()})
	walkToJobURL(t, o)
	require.NoError(t, o.Submit(context.Background(), map[string]string{FieldJobURL: ""}, Next))
	walkToAdditional(t, o)
	require.NoError(t, o.Submit(context.Background(), nil, Next))

	assert.ErrorIs(t, o.Submit(context.Background(), nil, Next), ErrInvalidTransition)
	assert.ErrorIs(t, o.Submit(context.Background(), nil, Previous), ErrInvalidTransition)
	assert.Equal(t, StepAnalysis, o.State().Step)
}

func TestStartOnlyFromWelcome(t *testing.T) {
	o := New(nil, nil)
	require.NoError(t, o.Start())
	assert.ErrorIs(t, o.Start(), ErrInvalidTransition)
}
