package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"GrowthFlow/pkg/api"
	"GrowthFlow/pkg/browser"
	"GrowthFlow/pkg/config"
	"GrowthFlow/pkg/conversation"
	"GrowthFlow/pkg/health"
	"GrowthFlow/pkg/logger"
	"GrowthFlow/pkg/prompt"
	"GrowthFlow/pkg/recovery"
	"GrowthFlow/pkg/resume"
	"GrowthFlow/pkg/session"
	"GrowthFlow/pkg/telegram"
	"GrowthFlow/pkg/tui"
	"GrowthFlow/pkg/utils"
	"GrowthFlow/pkg/wizard"

	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"
)

const version = "0.1.0"

var (
	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981")).
			Bold(true)
	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EF4444")).
			Bold(true)
)

func main() {
	// Flags
	configPath := flag.String("config", "", "Path to configuration file")
	plain := flag.Bool("plain", false, "Use line prompts instead of the full screen UI")
	runTelegram := flag.Bool("telegram", false, "Serve the Telegram bot")
	runHealth := flag.Bool("health", false, "Check the backend and exit")
	resumeID := flag.String("resume", "", "Print the résumé with this id and exit")
	exportID := flag.String("export", "", "Export the résumé with this id to PDF and exit")
	showVersion := flag.Bool("version", false, "Show version")
	showHelp := flag.Bool("help", false, "Show help")
	flag.Parse()

	if *showHelp {
		printHelp()
		return
	}

	if *showVersion {
		fmt.Printf("GrowthFlow v%s\n", version)
		return
	}

	// Load configuration
	cfg, _, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}
	if err := os.MkdirAll(cfg.StoragePath, 0755); err != nil {
		log.Fatalf("❌ Failed to create storage dir: %v", err)
	}

	// The full screen UI shares one file log with /logs; every other mode
	// logs to the configured file at the configured level.
	var fileLog *logger.Logger
	interactive := !*plain && !*runTelegram && !*runHealth && *resumeID == "" && *exportID == ""
	if interactive {
		fileLog, err = logger.New(cfg.StoragePath)
		if err != nil {
			log.Fatalf("❌ Failed to open log: %v", err)
		}
		logger.Replace(fileLog.Zap())
	} else if err := logger.Init(cfg.LogLevel, cfg.LogFile()); err != nil {
		log.Fatalf("❌ Failed to open log: %v", err)
	}
	defer func() { _ = logger.Sync() }()
	recovery.SetLogger(logger.Named("recovery"))
	logger.Info("starting", zap.String("version", version), zap.String("api", cfg.APIBaseURL))

	// Context for graceful shutdown; a second signal force-exits.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
		select {
		case <-sigCh:
			os.Exit(1)
		case <-time.After(5 * time.Second):
			os.Exit(1)
		}
	}()

	gf, err := newApp(cfg)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}

	switch {
	case *runHealth:
		err = gf.health(ctx)
	case *resumeID != "":
		err = gf.printResume(ctx, *resumeID)
	case *exportID != "":
		err = gf.exportResume(ctx, *exportID)
	case *runTelegram:
		err = gf.serveTelegram(ctx)
	case *plain:
		err = gf.runPlain(ctx)
	default:
		err = gf.runTUI(ctx, fileLog)
	}
	if err != nil && ctx.Err() == nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("❌ "+err.Error()))
		logger.Error("exit with error", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

// app holds the shared backend wiring of every front end.
type app struct {
	cfg     *config.Config
	client  *api.Client
	limiter *utils.RateLimiter
	scraper wizard.Scraper
	pdf     *browser.PDFExporter
	checker *health.Checker
}

func newApp(cfg *config.Config) (*app, error) {
	store, err := session.NewFileStore(cfg.SessionFile(), cfg.PersistSession)
	if err != nil {
		return nil, fmt.Errorf("open session store: %w", err)
	}

	a := &app{
		cfg:     cfg,
		limiter: utils.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst),
	}
	a.client = a.newClient(store)

	a.scraper = a.client
	if cfg.Scraper == "local" {
		a.scraper = browser.NewLocalScraper(cfg.ScrapeTimeoutDuration(), logger.Named("scraper"))
	}

	a.pdf = browser.NewPDFExporter(cfg.PDF.Headless, logger.Named("pdf"))
	a.checker = health.NewChecker(a.client, cfg.APIBaseURL,
		health.WithTimeout(cfg.RequestTimeoutDuration()),
		health.WithPDFCheck(browser.CheckDeps),
	)
	return a, nil
}

// newClient builds a backend client bound to one session store. All clients
// share the rate limiter.
func (a *app) newClient(store *session.Store) *api.Client {
	return api.New(a.cfg.APIBaseURL, store,
		api.WithRateLimiter(a.limiter),
		api.WithRetry(a.cfg.RetryPolicy()),
		api.WithGenerateTimeout(a.cfg.GenerateTimeoutDuration()),
		api.WithLogger(logger.Named("api")),
	)
}

// generateBudget bounds a whole generation run, retries included.
func (a *app) generateBudget() time.Duration {
	attempts := a.cfg.Retry.MaxRetries + 1
	if attempts < 1 {
		attempts = 1
	}
	return a.cfg.GenerateTimeoutDuration() * time.Duration(attempts)
}

func (a *app) wrapWidth() int {
	if a.cfg.UI.WrapWidth > 0 {
		return a.cfg.UI.WrapWidth
	}
	return 80
}

func (a *app) newWizard(generator wizard.Generator, opts ...wizard.Option) *wizard.Orchestrator {
	base := []wizard.Option{
		wizard.WithTimeouts(a.cfg.ScrapeTimeoutDuration(), a.generateBudget()),
		wizard.WithLogger(logger.Named("wizard")),
	}
	return wizard.New(a.scraper, generator, append(base, opts...)...)
}

func (a *app) newConversation(client *api.Client) *conversation.Orchestrator {
	return conversation.New(client, api.Flow(a.cfg.DefaultFlow), conversation.WithLogger(logger.Named("conversation")))
}

func (a *app) health(ctx context.Context) error {
	status := a.checker.Check(ctx)
	fmt.Println(a.checker.FormatReport(status))
	if !status.Healthy() {
		return errors.New("backend unhealthy")
	}
	return nil
}

func (a *app) printResume(ctx context.Context, id string) error {
	r, err := a.client.GetResume(ctx, id)
	if err != nil {
		return err
	}
	fmt.Println(resume.RenderText(r, a.wrapWidth()))
	return nil
}

func (a *app) exportResume(ctx context.Context, id string) error {
	r, err := a.client.GetResume(ctx, id)
	if err != nil {
		return err
	}
	if err := browser.EnsureDeps(logger.Named("pdf")); err != nil {
		return fmt.Errorf("prepare pdf renderer: %w", err)
	}
	path, err := a.pdf.ExportResume(ctx, r, a.cfg.PDF.OutputDir)
	if err != nil {
		return err
	}
	fmt.Println(successStyle.Render("✅ PDF: " + path))
	return nil
}

func (a *app) runPlain(ctx context.Context) error {
	err := prompt.RunChat(ctx, prompt.ChatConfig{
		Driver:       prompt.NewSurveyDriver(os.Stdout),
		Conversation: a.newConversation(a.client),
		NewWizard:    func() *wizard.Orchestrator { return a.newWizard(a.client) },
		OnAnalysis: func(ctx context.Context, an *resume.Analysis) error {
			fmt.Printf("Identifiant du CV : %s (growthflow -export %s)\n", an.ResumeID, an.ResumeID)
			return nil
		},
		Streaming: a.cfg.Streaming,
		Out:       os.Stdout,
		Width:     a.wrapWidth(),
		Log:       logger.Named("prompt"),
	})
	if err == nil {
		fmt.Println("\n👋 Au revoir !")
	}
	return err
}

func (a *app) runTUI(ctx context.Context, fileLog *logger.Logger) error {
	err := tui.Run(ctx, tui.Deps{
		Conversation:   a.newConversation(a.client),
		NewWizard:      func() *wizard.Orchestrator { return a.newWizard(a.client) },
		Resumes:        a.client,
		Exporter:       a.pdf,
		ExportDir:      a.cfg.PDF.OutputDir,
		Health:         a.checker,
		Logs:           fileLog.GetLastLines,
		Streaming:      a.cfg.Streaming,
		ShowTimestamps: a.cfg.UI.ShowTimestamp,
		Log:            logger.Named("tui"),
	})
	if err == nil {
		fmt.Println("\n👋 Au revoir !")
	}
	return err
}

func (a *app) serveTelegram(ctx context.Context) error {
	bot, err := telegram.Connect(a.cfg.Telegram.BotToken, logger.Named("telegram"))
	if err != nil {
		return err
	}

	// Every chat gets its own session id, held in memory only.
	factory := func(chatID int64) (*telegram.Session, error) {
		client := a.newClient(session.NewStore(session.NewMemoryKV()))
		return &telegram.Session{
			Conversation: a.newConversation(client),
			NewWizard: func(alert func(string)) *wizard.Orchestrator {
				return a.newWizard(client, wizard.WithAlert(alert))
			},
			Resumes: client,
		}, nil
	}

	opts := []telegram.BridgeOption{
		telegram.WithAllowed(a.cfg.ChatAllowed),
		telegram.WithLogger(logger.Named("bridge")),
	}
	if browser.CheckDeps() {
		opts = append(opts, telegram.WithExporter(a.pdf, a.cfg.PDF.OutputDir))
	}
	bridge := telegram.NewBridge(bot, factory, opts...)

	fmt.Println(successStyle.Render("✅ Bot @" + bot.Username() + " en ligne. Ctrl+C pour arrêter."))
	bot.Poll(ctx, func(u telegram.Update) {
		recovery.Go("telegram update", func() { bridge.Handle(ctx, u) })
	})
	return nil
}

func printHelp() {
	fmt.Printf("GrowthFlow v%s - Growth With Flow chatbot client\n\n", version)
	fmt.Println("Usage: growthflow [options]")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  -config string")
	fmt.Println("        Path to configuration file")
	fmt.Println("  -plain")
	fmt.Println("        Use line prompts instead of the full screen UI")
	fmt.Println("  -telegram")
	fmt.Println("        Serve the Telegram bot")
	fmt.Println("  -health")
	fmt.Println("        Check the backend and exit")
	fmt.Println("  -resume string")
	fmt.Println("        Print the résumé with this id")
	fmt.Println("  -export string")
	fmt.Println("        Export the résumé with this id to PDF")
	fmt.Println("  -version")
	fmt.Println("        Show version")
	fmt.Println("  -help")
	fmt.Println("        Show this help")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  GROWTHFLOW_API_URL     Backend base URL (default: http://localhost:8000)")
	fmt.Println("  GROWTHFLOW_LOG_LEVEL   DEBUG, INFO, WARN or ERROR")
	fmt.Println("  TELEGRAM_BOT_TOKEN     Bot token for -telegram")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  growthflow")
	fmt.Println("  growthflow -plain -config ~/.growthflow/config.json")
	fmt.Println("  growthflow -export 3f2a9c")
}
