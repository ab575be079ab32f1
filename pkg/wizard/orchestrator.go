package wizard

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"GrowthFlow/pkg/api"
	"GrowthFlow/pkg/resume"

	"go.uber.org/zap"
)

// Scraper extracts a job posting from its URL.
type Scraper interface {
	ScrapeJobURL(ctx context.Context, jobURL string) (*api.ScrapedJob, error)
}

// Generator turns the completed form into a résumé.
type Generator interface {
	GenerateResume(ctx context.Context, formData api.FormData) (*api.ChatReply, error)
}

// Navigation is the direction of a form submission.
type Navigation int

const (
	Next Navigation = iota
	Previous
)

func (n Navigation) event() Event {
	if n == Previous {
		return EventPrevious
	}
	return EventNext
}

// State is a snapshot of the wizard.
type State struct {
	Step     Step
	Form     FormData
	Loading  bool
	Notice   string
	Analysis *resume.Analysis
}

// Orchestrator owns one wizard run. It is safe for concurrent use; at most
// one scrape or generation is in flight at a time.
type Orchestrator struct {
	mu       sync.Mutex
	step     Step
	form     FormData
	loading  bool
	notice   string
	analysis *resume.Analysis

	// gen is bumped by Reset and Cancel so late task results are dropped.
	gen    uint64
	cancel context.CancelFunc

	scraper         Scraper
	generator       Generator
	scrapeTimeout   time.Duration
	generateTimeout time.Duration
	onChange        func(State)
	onAlert         func(string)
	log             *zap.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithTimeouts bounds the scrape task and the whole generation task.
func WithTimeouts(scrape, generate time.Duration) Option {
	return func(o *Orchestrator) {
		if scrape > 0 {
			o.scrapeTimeout = scrape
		}
		if generate > 0 {
			o.generateTimeout = generate
		}
	}
}

// WithOnChange registers a callback invoked after every state change,
// outside the orchestrator lock.
func WithOnChange(fn func(State)) Option {
	return func(o *Orchestrator) { o.onChange = fn }
}

// WithAlert registers the blocking alert shown when generation fails.
func WithAlert(fn func(message string)) Option {
	return func(o *Orchestrator) { o.onAlert = fn }
}

// WithLogger sets the logger; the default discards.
func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) { o.log = l }
}

// New returns a wizard positioned on the welcome step.
func New(scraper Scraper, generator Generator, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		step:            StepWelcome,
		scraper:         scraper,
		generator:       generator,
		scrapeTimeout:   45 * time.Second,
		generateTimeout: 5 * time.Minute,
		log:             zap.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *Orchestrator) snapshotLocked() State {
	return State{
		Step:     o.step,
		Form:     o.form.Clone(),
		Loading:  o.loading,
		Notice:   o.notice,
		Analysis: o.analysis,
	}
}

// unlockAndNotify releases the lock and reports the new state.
func (o *Orchestrator) unlockAndNotify() {
	s := o.snapshotLocked()
	o.mu.Unlock()
	if o.onChange != nil {
		o.onChange(s)
	}
}

// State returns a snapshot of the current state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.snapshotLocked()
}

// Config returns the descriptor of the current step.
func (o *Orchestrator) Config() (StepConfig, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.configLocked()
}

func (o *Orchestrator) configLocked() (StepConfig, error) {
	return BuildConfig(o.step, &o.form, o.notice, o.analysis)
}

// Start leaves the welcome screen.
func (o *Orchestrator) Start() error {
	o.mu.Lock()
	if o.loading {
		o.mu.Unlock()
		return ErrBusy
	}
	to, _, err := Transition(o.step, EventStart, Guard{})
	if err != nil {
		o.mu.Unlock()
		return err
	}
	o.step = to
	o.unlockAndNotify()
	return nil
}

// Submit merges values into the form and moves in direction nav. Forward
// moves validate the current step first. Leaving the job link step with a
// link runs the scrape, and leaving the last form step runs generation;
// both block until the task finishes, is cancelled or times out.
func (o *Orchestrator) Submit(ctx context.Context, values map[string]string, nav Navigation) error {
	o.mu.Lock()
	if o.loading {
		o.mu.Unlock()
		return ErrBusy
	}

	ev := nav.event()
	if ev == EventNext {
		cfg, err := o.configLocked()
		if err != nil {
			o.mu.Unlock()
			return err
		}
		if err := Validate(cfg, values); err != nil {
			o.mu.Unlock()
			return err
		}
	}

	candidate := o.form.Clone()
	candidate.Merge(values)

	from := o.step
	to, effects, err := Transition(from, ev, Guard{HasJobURL: candidate.HasJobURL()})
	if err != nil {
		o.mu.Unlock()
		return err
	}

	o.form = candidate
	o.step = to
	if from == StepDescription {
		o.notice = ""
	}
	o.log.Debug("wizard transition",
		zap.Stringer("from", from),
		zap.Stringer("event", ev),
		zap.Stringer("to", to))

	for _, eff := range effects {
		switch eff {
		case EffectScrape:
			return o.runScrape(ctx)
		case EffectGenerate:
			return o.runGenerate(ctx)
		}
	}

	o.unlockAndNotify()
	return nil
}

// beginTaskLocked marks the wizard loading and returns the task context.
func (o *Orchestrator) beginTaskLocked(ctx context.Context, timeout time.Duration) (context.Context, uint64) {
	taskCtx, cancel := context.WithTimeout(ctx, timeout)
	o.loading = true
	o.cancel = cancel
	return taskCtx, o.gen
}

// endTaskLocked reports whether the task that started at gen is still current.
func (o *Orchestrator) endTaskLocked(gen uint64) bool {
	if gen != o.gen {
		return false
	}
	if o.cancel != nil {
		o.cancel()
		o.cancel = nil
	}
	o.loading = false
	return true
}

// runScrape is entered with the lock held and releases it.
func (o *Orchestrator) runScrape(ctx context.Context) error {
	o.notice = ""
	taskCtx, gen := o.beginTaskLocked(ctx, o.scrapeTimeout)
	jobURL := strings.TrimSpace(o.form.JobURL)
	o.unlockAndNotify()

	var (
		job *api.ScrapedJob
		err error
	)
	if o.scraper == nil {
		err = errors.New("no scraper configured")
	} else {
		job, err = o.scraper.ScrapeJobURL(taskCtx, jobURL)
	}

	o.mu.Lock()
	if !o.endTaskLocked(gen) {
		o.mu.Unlock()
		return ErrCancelled
	}

	ev := EventScrapeDone
	if err != nil {
		ev = EventScrapeFailed
		o.log.Warn("job scrape failed, continuing with manual entry",
			zap.String("job_url", jobURL), zap.Error(err))
	}
	to, effects, terr := Transition(o.step, ev, Guard{})
	if terr != nil {
		o.mu.Unlock()
		return terr
	}
	o.step = to
	for _, eff := range effects {
		switch eff {
		case EffectMergeScraped:
			o.form.MergeScraped(job)
		case EffectNoticeScrapeFailed:
			o.notice = ScrapeFailedNote
		}
	}
	o.unlockAndNotify()
	return nil
}

// runGenerate is entered with the lock held and releases it.
func (o *Orchestrator) runGenerate(ctx context.Context) error {
	taskCtx, gen := o.beginTaskLocked(ctx, o.generateTimeout)
	formData := o.form.ToAPI()
	o.unlockAndNotify()

	var (
		reply *api.ChatReply
		err   error
	)
	if o.generator == nil {
		err = errors.New("no generator configured")
	} else {
		reply, err = o.generator.GenerateResume(taskCtx, formData)
	}

	var analysis *resume.Analysis
	renderAnalysis := err == nil && reply != nil && reply.NextAction == api.ActionRenderAnalysis
	if renderAnalysis {
		analysis, err = resume.ParseAnalysis(reply.WidgetData)
	}

	o.mu.Lock()
	if !o.endTaskLocked(gen) {
		o.mu.Unlock()
		return ErrCancelled
	}

	ev := EventGenerateDone
	if err != nil {
		ev = EventGenerateFailed
		o.log.Error("resume generation failed", zap.Error(err))
	}
	to, effects, terr := Transition(o.step, ev, Guard{RenderAnalysis: renderAnalysis})
	if terr != nil {
		o.mu.Unlock()
		return terr
	}
	o.step = to

	alert := false
	for _, eff := range effects {
		switch eff {
		case EffectStoreAnalysis:
			o.analysis = analysis
		case EffectAlert:
			alert = true
		}
	}
	if !renderAnalysis && err == nil {
		o.log.Warn("generation finished without an analysis",
			zap.String("next_action", replyAction(reply)))
	}
	o.unlockAndNotify()

	if alert {
		if o.onAlert != nil {
			o.onAlert(GenerationAlert)
		}
		return fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}
	return nil
}

func replyAction(r *api.ChatReply) string {
	if r == nil {
		return ""
	}
	return r.NextAction
}

// Cancel aborts the in-flight scrape or generation and returns to the step
// that launched it. Its late result is discarded.
func (o *Orchestrator) Cancel() {
	o.mu.Lock()
	if !o.loading {
		o.mu.Unlock()
		return
	}
	o.abortLocked()
	switch o.step {
	case StepScraping:
		o.step = StepJobURL
	case StepGenerating:
		o.step = StepAdditionalInfo
	}
	o.unlockAndNotify()
}

// Reset cancels any in-flight task and starts over on the welcome step.
func (o *Orchestrator) Reset() {
	o.mu.Lock()
	o.abortLocked()
	o.step = StepWelcome
	o.form = FormData{}
	o.notice = ""
	o.analysis = nil
	o.unlockAndNotify()
}

func (o *Orchestrator) abortLocked() {
	o.gen++
	if o.cancel != nil {
		o.cancel()
		o.cancel = nil
	}
	o.loading = false
}
