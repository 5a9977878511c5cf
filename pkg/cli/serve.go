package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/surana-mudit/whatsapp-memory-assistant/pkg/cli/config"
	httpctrl "github.com/surana-mudit/whatsapp-memory-assistant/pkg/controller/http"
	"github.com/surana-mudit/whatsapp-memory-assistant/pkg/service/insight"
	"github.com/surana-mudit/whatsapp-memory-assistant/pkg/service/worker"
	"github.com/surana-mudit/whatsapp-memory-assistant/pkg/usecase"
	"github.com/surana-mudit/whatsapp-memory-assistant/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func cmdServe() *cli.Command {
	var addr string
	var appCfg config.AppConfig
	var repoCfg config.Repository
	var geminiCfg config.Gemini
	var semanticCfg config.Semantic
	var twilioCfg config.Twilio
	var transcribeCfg config.Transcribe
	var mediaCfg config.Media

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "HTTP server address",
			Value:       ":8080",
			Sources:     cli.EnvVars("WMA_ADDR"),
			Destination: &addr,
		},
	}
	flags = append(flags, appCfg.Flags()...)
	flags = append(flags, repoCfg.Flags()...)
	flags = append(flags, geminiCfg.Flags()...)
	flags = append(flags, semanticCfg.Flags()...)
	flags = append(flags, twilioCfg.Flags()...)
	flags = append(flags, transcribeCfg.Flags()...)
	flags = append(flags, mediaCfg.Flags()...)

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Start HTTP server",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			app, err := appCfg.Configure()
			if err != nil {
				return goerr.Wrap(err, "failed to load application configuration")
			}

			repo, err := repoCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to initialize repository")
			}
			defer func() {
				if err := repo.Close(); err != nil {
					logging.Default().Error("failed to close repository", "error", err.Error())
				}
			}()

			llmClient, err := geminiCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to configure LLM client")
			}
			if llmClient == nil {
				logging.Default().Warn("Gemini project not configured, insight extraction runs in degraded mode")
			}

			semanticIndex, err := semanticCfg.Configure(llmClient)
			if err != nil {
				return goerr.Wrap(err, "failed to configure semantic backend")
			}

			twilioClient, err := twilioCfg.Configure()
			if err != nil {
				return goerr.Wrap(err, "failed to configure Twilio client")
			}

			transcriber, err := transcribeCfg.Configure()
			if err != nil {
				return goerr.Wrap(err, "failed to configure transcription client")
			}

			ucOpts := []usecase.Option{
				usecase.WithInsight(insight.New(llmClient, insight.WithCategories(app.Insight.Categories))),
			}
			if semanticIndex != nil {
				ucOpts = append(ucOpts, usecase.WithSemantic(semanticIndex))
			}
			if twilioClient != nil {
				ucOpts = append(ucOpts, usecase.WithSender(twilioClient))

				processor, err := mediaCfg.Configure(twilioClient, transcriber)
				if err != nil {
					return goerr.Wrap(err, "failed to configure media processor")
				}
				if processor != nil {
					ucOpts = append(ucOpts, usecase.WithMediaProcessor(processor))
				}
			} else {
				logging.Default().Warn("Twilio not configured, outbound replies and media download disabled")
			}

			uc := usecase.New(repo, ucOpts...)

			usageReporter := worker.NewUsageReporter(repo, 15*time.Minute)
			if err := usageReporter.Start(ctx); err != nil {
				return goerr.Wrap(err, "failed to start usage reporter")
			}

			var httpOpts []httpctrl.Options
			if twilioCfg.AuthToken() != "" {
				httpOpts = append(httpOpts, httpctrl.WithTwilioAuthToken(twilioCfg.AuthToken()))
			} else {
				logging.Default().Warn("Webhook signature verification disabled (development only)")
			}

			server := &http.Server{
				Addr:              addr,
				Handler:           httpctrl.New(uc, httpOpts...),
				ReadHeaderTimeout: 30 * time.Second,
			}

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

			errCh := make(chan error, 1)
			go func() {
				logging.Default().Info("Starting HTTP server", "addr", addr)
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errCh <- goerr.Wrap(err, "failed to start server")
				}
			}()

			select {
			case err := <-errCh:
				return err
			case sig := <-sigCh:
				logging.Default().Info("Received shutdown signal", "signal", sig)

				usageReporter.Stop()

				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()

				if err := server.Shutdown(shutdownCtx); err != nil {
					return goerr.Wrap(err, "failed to shutdown server gracefully")
				}

				logging.Default().Info("Server shutdown completed")
				return nil
			}
		},
	}
}
