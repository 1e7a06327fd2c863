package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	cli "github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"news_blog_gen/config"
	"news_blog_gen/export"
	"news_blog_gen/generator"
	"news_blog_gen/logging"
	"news_blog_gen/revision"
	"news_blog_gen/server"
	"news_blog_gen/tui"
)

const shutdownTimeout = 10 * time.Second

func main() {
	app := &cli.Command{
		Name:  "newsblog",
		Usage: "Draft, refine and translate news blog posts with an LLM",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "enable debug logs"},
		},
		Commands: []*cli.Command{
			serveCmd(),
			draftCmd(),
			editCmd(),
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func configFlag() cli.Flag {
	return &cli.StringFlag{Name: "config", Value: "config/config.json", Usage: "path to config file (.json or .yaml)"}
}

func serveCmd() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the HTTP API",
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{Name: "addr", Usage: "listen address (overrides config server_addr)"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := config.Load(cmd.String("config"))
			if err != nil {
				return err
			}
			log := newLogger(cmd, cfg, os.Stdout)
			agent, err := buildAgent(cfg, log)
			if err != nil {
				return err
			}
			srv, err := server.New(agent, server.Options{
				AllowedOrigins:   cfg.AllowedOrigins,
				RequestTimeout:   cfg.RequestTimeout(),
				ProgressInterval: cfg.ProgressInterval(),
			}, log)
			if err != nil {
				return err
			}
			defer srv.Close()

			listen := cfg.ServerAddr
			if addr := cmd.String("addr"); addr != "" {
				listen = addr
			}
			httpSrv := &http.Server{
				Addr:              listen,
				Handler:           srv.Routes(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				log.WithField("addr", listen).Info("starting web server")
				if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
			g.Go(func() error {
				<-gctx.Done()
				log.Info("shutting down")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				// 先关闭会话，SSE 连接随之结束
				srv.Close()
				return httpSrv.Shutdown(shutdownCtx)
			})
			return g.Wait()
		},
	}
}

func draftCmd() *cli.Command {
	return &cli.Command{
		Name:  "draft",
		Usage: "Generate one post and write it as an export file",
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{Name: "keywords", Aliases: []string{"k"}, Required: true, Usage: "news keywords"},
			&cli.StringFlag{Name: "period", Value: string(generator.PeriodWeek), Usage: "day | week | month"},
			&cli.StringFlag{Name: "tone", Value: string(generator.ToneAcademic), Usage: "academic | casual | enthusiastic"},
			&cli.StringFlag{Name: "length", Value: string(generator.LengthStandard), Usage: "short | standard | deep"},
			&cli.StringFlag{Name: "format", Value: string(export.FormatHTML), Usage: "doc | html"},
			&cli.StringFlag{Name: "out", Usage: "output directory (overrides config export_dir)"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := config.Load(cmd.String("config"))
			if err != nil {
				return err
			}
			log := newLogger(cmd, cfg, os.Stderr)

			brief, err := briefFromFlags(cmd)
			if err != nil {
				return err
			}
			format, err := export.ParseFormat(cmd.String("format"))
			if err != nil {
				return err
			}
			agent, err := buildAgent(cfg, log)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()
			ctx, cancel := context.WithTimeout(ctx, cfg.RequestTimeout())
			defer cancel()

			orch := revision.New(agent, revision.WithLogger(log), revision.WithProgressInterval(0))
			defer orch.Close()
			a, err := orch.SubmitConfig(ctx, brief)
			if err != nil {
				return err
			}

			dir := cfg.ExportDir
			if out := cmd.String("out"); out != "" {
				dir = out
			}
			path, err := export.WriteFile(dir, a, format)
			if err != nil {
				return fmt.Errorf("export: %w", err)
			}
			log.WithField("path", path).Info("draft exported")
			fmt.Println(path)
			return nil
		},
	}
}

func editCmd() *cli.Command {
	return &cli.Command{
		Name:  "edit",
		Usage: "Open the terminal editor",
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{Name: "log-file", Usage: "write logs to this file instead of discarding them"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := config.Load(cmd.String("config"))
			if err != nil {
				return err
			}
			var out io.Writer = io.Discard
			if path := cmd.String("log-file"); path != "" {
				f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
				if err != nil {
					return fmt.Errorf("open log file: %w", err)
				}
				defer f.Close()
				out = f
			}
			log := newLogger(cmd, cfg, out)
			agent, err := buildAgent(cfg, log)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(ctx, syscall.SIGTERM)
			defer stop()
			orch := revision.New(agent,
				revision.WithLogger(log),
				revision.WithProgressInterval(cfg.ProgressInterval()),
			)
			return tui.Run(ctx, orch, tui.WithLogger(log), tui.WithExportDir(cfg.ExportDir))
		},
	}
}

func newLogger(cmd *cli.Command, cfg config.Config, out io.Writer) *logrus.Logger {
	level := cfg.LogLevel
	if cmd.Root().Bool("verbose") {
		level = "debug"
	}
	return logging.New(level, out)
}

func buildAgent(cfg config.Config, log logrus.FieldLogger) (*generator.Agent, error) {
	llm, err := generator.NewLLM(generator.LLMSettings{
		Provider: cfg.LLM.Provider,
		Model:    cfg.LLM.Model,
		APIKey:   cfg.LLM.APIKey,
		BaseURL:  cfg.LLM.BaseURL,
	})
	if err != nil {
		return nil, err
	}
	return generator.NewAgent(llm,
		generator.WithMaxRetries(cfg.Retries()),
		generator.WithLogger(log),
	)
}

func briefFromFlags(cmd *cli.Command) (generator.Brief, error) {
	period, err := generator.ParsePeriod(cmd.String("period"))
	if err != nil {
		return generator.Brief{}, err
	}
	tone, err := generator.ParseTone(cmd.String("tone"))
	if err != nil {
		return generator.Brief{}, err
	}
	length, err := generator.ParseLength(cmd.String("length"))
	if err != nil {
		return generator.Brief{}, err
	}
	brief := generator.Brief{Keywords: cmd.String("keywords"), Period: period, Tone: tone, Length: length}
	return brief, brief.Validate()
}
