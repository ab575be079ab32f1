package prompt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"GrowthFlow/pkg/api"
	"GrowthFlow/pkg/conversation"
	"GrowthFlow/pkg/resume"
	"GrowthFlow/pkg/wizard"

	"go.uber.org/zap"
)

const helpText = `Commandes :
  /flow <id>   changer de parcours (PRESENTATION, ROADMAP, DYNAMIC_CV)
  /cv          lancer le CV dynamique
  /new         nouvelle conversation
  /quit        quitter`

// ChatConfig wires a plain chat session.
type ChatConfig struct {
	Driver       Driver
	Conversation *conversation.Orchestrator
	// NewWizard builds a fresh wizard for each résumé run.
	NewWizard func() *wizard.Orchestrator
	// OnAnalysis runs after a wizard reached its analysis, e.g. to export
	// the résumé. May be nil.
	OnAnalysis func(ctx context.Context, a *resume.Analysis) error
	Streaming  bool
	// Out receives streamed fragments as they arrive.
	Out   io.Writer
	Width int
	Log   *zap.Logger
}

// RunChat reads user turns until /quit, EOF or interruption.
func RunChat(ctx context.Context, cfg ChatConfig) error {
	if cfg.Log == nil {
		cfg.Log = zap.NewNop()
	}
	if cfg.Out == nil {
		cfg.Out = io.Discard
	}
	d := cfg.Driver
	conv := cfg.Conversation

	for _, m := range conv.Messages() {
		if err := d.Info(ctx, formatMessage(m)); err != nil {
			return err
		}
	}

	for {
		label := fmt.Sprintf("[%s] Vous", conversation.FlowName(conv.Flow()))
		line, err := d.Input(ctx, InputConfig{Message: label})
		if errors.Is(err, ErrAborted) || errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			quit, err := runCommand(ctx, cfg, line)
			if err != nil {
				return err
			}
			if quit {
				return nil
			}
			continue
		}

		if err := sendTurn(ctx, cfg, line); err != nil {
			return err
		}
	}
}

func runCommand(ctx context.Context, cfg ChatConfig, line string) (bool, error) {
	d := cfg.Driver
	fields := strings.Fields(line)
	switch fields[0] {
	case "/quit", "/exit":
		return true, nil
	case "/help":
		return false, d.Info(ctx, helpText)
	case "/new":
		if err := cfg.Conversation.NewChat(); err != nil {
			cfg.Log.Warn("session reset failed", zap.Error(err))
		}
		return false, d.Info(ctx, formatMessage(cfg.Conversation.Messages()[0]))
	case "/cv":
		return false, runResume(ctx, cfg)
	case "/flow":
		if len(fields) < 2 {
			return false, d.Info(ctx, "Parcours actuel : "+conversation.FlowName(cfg.Conversation.Flow()))
		}
		flow, ok := conversation.ParseFlow(strings.Join(fields[1:], " "))
		if !ok {
			return false, d.Info(ctx, fmt.Sprintf("Parcours inconnu %q", fields[1]))
		}
		cfg.Conversation.SwitchFlow(flow)
		if err := d.Info(ctx, "Parcours : "+conversation.FlowName(flow)); err != nil {
			return false, err
		}
		if flow == api.FlowDynamicCV {
			return false, runResume(ctx, cfg)
		}
		return false, nil
	default:
		return false, d.Info(ctx, helpText)
	}
}

func sendTurn(ctx context.Context, cfg ChatConfig, line string) error {
	conv := cfg.Conversation
	if cfg.Streaming {
		printed := 0
		var last conversation.Message
		route, err := conv.SendStream(ctx, line, func(m conversation.Message) {
			last = m
			if m.IsError || len(m.Text) < printed {
				return
			}
			if printed == 0 && m.Text != "" {
				fmt.Fprint(cfg.Out, "Bot : ")
			}
			fmt.Fprint(cfg.Out, m.Text[printed:])
			printed = len(m.Text)
		})
		if err != nil {
			return cfg.Driver.Info(ctx, err.Error())
		}
		if printed > 0 {
			fmt.Fprintln(cfg.Out)
		}
		if route != nil {
			cfg.Log.Info("widget route", zap.String("next_action", route.NextAction))
			return runResume(ctx, cfg)
		}
		if last.IsError {
			return cfg.Driver.Info(ctx, formatMessage(last))
		}
		return nil
	}

	route, err := conv.Send(ctx, line)
	if err != nil {
		return cfg.Driver.Info(ctx, err.Error())
	}
	if route != nil {
		cfg.Log.Info("widget route", zap.String("next_action", route.NextAction))
		return runResume(ctx, cfg)
	}
	msgs := conv.Messages()
	return cfg.Driver.Info(ctx, formatMessage(msgs[len(msgs)-1]))
}

func runResume(ctx context.Context, cfg ChatConfig) error {
	if cfg.NewWizard == nil {
		return cfg.Driver.Info(ctx, "Le CV dynamique n'est pas disponible.")
	}
	analysis, err := RunWizard(ctx, cfg.Driver, cfg.NewWizard(), cfg.Width)
	if errors.Is(err, ErrAborted) {
		return cfg.Driver.Info(ctx, "CV dynamique annulé.")
	}
	if err != nil {
		return err
	}
	if cfg.OnAnalysis != nil {
		if err := cfg.OnAnalysis(ctx, analysis); err != nil {
			cfg.Log.Error("post analysis step failed", zap.Error(err))
			return cfg.Driver.Info(ctx, err.Error())
		}
	}
	return nil
}

func formatMessage(m conversation.Message) string {
	switch {
	case m.IsError:
		return "⚠ " + m.Text
	case m.Sender == conversation.SenderUser:
		return "Vous : " + m.Text
	default:
		return "Bot : " + m.Text
	}
}
