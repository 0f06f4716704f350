package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"mailtriage/internal/config"
	"mailtriage/internal/llm"
	"mailtriage/internal/mailbox"
	"mailtriage/internal/pipeline"
	"mailtriage/internal/sender"
	"mailtriage/internal/triage"
	"mailtriage/pkg/lock"
	"mailtriage/pkg/logger"
	"mailtriage/pkg/metrics"
	"mailtriage/pkg/mq"
	"mailtriage/pkg/trace"
)

func runCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one triage pass over the mailbox",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if dryRun {
				cfg.Reply.Enabled = false
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runOnce(ctx, cfg, cmd.ErrOrStderr())
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "classify only, never send replies")
	return cmd
}

func runOnce(ctx context.Context, cfg *config.Config, stderr io.Writer) error {
	log := logger.NewLogger()
	defer log.Sync()

	traceID := trace.GenerateTraceID()
	ctx = trace.WithContext(ctx, traceID)
	log = logger.WithTrace(ctx, log)

	metrics.Serve(ctx, cfg.Metrics.Addr, log)

	if cfg.Redis.Addr != "" {
		rdb := lock.NewRedisClient(cfg.Redis)
		defer rdb.Close()

		release, err := lock.NewRunLock(rdb, cfg.Redis.LockTTL, log).Acquire(ctx, cfg.Mailbox.Username, traceID)
		if errors.Is(err, lock.ErrHeld) {
			log.Info("Another triage pass holds the lock, skipping", zap.String("account", cfg.Mailbox.Username))
			return nil
		}
		if err != nil {
			return err
		}
		defer release()
	}

	opener, err := mailbox.New(cfg.Mailbox, log)
	if err != nil {
		return err
	}

	gen := llm.NewClient(cfg.LLM, log)
	prompts := triage.PromptsFor(cfg.LLM.Language)
	classifier := triage.NewClassifier(gen.For("classify"), prompts, log)
	drafter := triage.NewDrafter(gen.For("draft"), prompts, log)
	dispatcher := sender.NewDispatcher(cfg.SMTP.From, sender.NewSMTPTransport(cfg.SMTP, log), log)

	p := pipeline.New(opener, classifier, drafter, dispatcher, cfg.Reply, log)

	if cfg.MQ.URL != "" {
		publisher, err := mq.NewPublisher(cfg.MQ.URL, cfg.MQ.Exchange)
		if err != nil {
			log.Warn("Event publisher unavailable, continuing without events", zap.Error(err))
		} else {
			defer publisher.Close()
			p.WithPublisher(publisher)
		}
	}

	log.Info("Starting triage pass",
		zap.String("protocol", cfg.Mailbox.Protocol),
		zap.String("host", cfg.Mailbox.Host),
		zap.Bool("reply_enabled", cfg.Reply.Enabled),
	)

	if _, err := p.Run(ctx); err != nil {
		log.Error("Triage pass aborted", zap.Error(err))
		var batchErr *pipeline.BatchError
		if errors.As(err, &batchErr) {
			printTroubleshooting(stderr, cfg.Mailbox.Protocol)
		}
		return err
	}
	return nil
}

// printTroubleshooting 收件箱读取失败时打印排查建议
func printTroubleshooting(w io.Writer, protocol string) {
	proto := "POP3"
	if protocol == "imap" {
		proto = "IMAP"
	}
	fmt.Fprintln(w, "\nPlease check the following:")
	fmt.Fprintf(w, "1. The %s server address and port are correct\n", proto)
	fmt.Fprintln(w, "2. The email account and password are correct")
	fmt.Fprintf(w, "3. %s access is enabled for the account at the mail provider\n", proto)
	fmt.Fprintln(w, "4. The provider's security settings allow this client (app password or less secure app access)")
}
