package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/go-pkgz/lgr"
	"github.com/jessevdk/go-flags"

	"github.com/youngmin0324/stock-news-email/pkg/compose"
	"github.com/youngmin0324/stock-news-email/pkg/config"
	"github.com/youngmin0324/stock-news-email/pkg/dispatch"
	"github.com/youngmin0324/stock-news-email/pkg/domain"
	"github.com/youngmin0324/stock-news-email/pkg/mailer"
	"github.com/youngmin0324/stock-news-email/pkg/news"
	"github.com/youngmin0324/stock-news-email/pkg/quote"
)

// Opts with all CLI options
type Opts struct {
	Config string `short:"c" long:"config" env:"STOCK_NEWS_CONFIG" description:"config file, built-in Korean briefing sources if omitted"`
	To     string `long:"to" env:"STOCK_NEWS_TO_EMAIL" default:"gourmetlee0324@gmail.com,grandsaga@naver.com" description:"comma-separated recipient addresses"`

	SMTP struct {
		Host string `long:"host" env:"HOST" default:"smtp.gmail.com" description:"relay host"`
		Port int    `long:"port" env:"PORT" default:"587" description:"relay port"`
		User string `long:"user" env:"USER" description:"relay username, doubles as the sender address"`
		Pass string `long:"pass" env:"PASS" description:"relay password or app secret"`
	} `group:"smtp" namespace:"smtp" env-namespace:"STOCK_NEWS_SMTP"`

	// Common options
	Debug   bool `long:"dbg" env:"DEBUG" description:"debug mode"`
	Version bool `short:"V" long:"version" description:"show version info"`
	NoColor bool `long:"no-color" env:"NO_COLOR" description:"disable color output"`
}

var revision = "unknown"

func main() {
	var opts Opts
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	if opts.Version {
		fmt.Printf("Version: %s\nGolang: %s\n", revision, runtime.Version())
		os.Exit(0)
	}

	var secrets []string
	if opts.SMTP.Pass != "" {
		secrets = append(secrets, opts.SMTP.Pass)
	}
	setupLog(opts.Debug, secrets...)

	log.Printf("[INFO] starting stock-news-email version %s", revision)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// handle termination signals
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan
		log.Print("[INFO] termination signal received")
		cancel()
	}()

	if err := run(ctx, opts); err != nil {
		log.Printf("[ERROR] run failed: %v", err)
		os.Exit(1)
	}

	log.Print("[INFO] briefing delivered to all recipients")
}

// run composes the briefing once and dispatches it to every recipient
func run(ctx context.Context, opts Opts) error {
	cfg, err := loadConfig(opts.Config)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	recipients := splitRecipients(opts.To)
	if len(recipients) == 0 {
		return errors.New("no recipients configured")
	}

	feeds := make([]domain.FeedSource, 0, len(cfg.Feeds))
	for _, f := range cfg.Feeds {
		feeds = append(feeds, domain.FeedSource{Name: f.Name, URL: f.URL})
	}
	indices := make([]domain.IndexSource, 0, len(cfg.Indices))
	for _, idx := range cfg.Indices {
		indices = append(indices, domain.IndexSource{Name: idx.Name, Symbol: idx.Symbol})
	}

	composer := compose.New(
		quote.NewFetcher(cfg.Timeouts.Quote, cfg.UserAgent),
		news.NewFetcher(cfg.Timeouts.Feed, cfg.UserAgent, cfg.Limits.MaxItemsPerFeed, cfg.Limits.MaxDescriptionLen),
		feeds, indices,
	)

	doc := composer.Compose(ctx)

	sender := mailer.New(opts.SMTP.Host, opts.SMTP.Port, opts.SMTP.User, opts.SMTP.Pass)
	return dispatch.New(sender).Run(ctx, doc, recipients)
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

// splitRecipients parses the comma-separated recipient list, dropping empty entries
func splitRecipients(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func setupLog(dbg bool, secs ...string) {
	logOpts := []lgr.Option{lgr.Out(os.Stderr), lgr.Err(os.Stderr)}
	if dbg {
		logOpts = []lgr.Option{lgr.Debug, lgr.Msec, lgr.LevelBraces, lgr.StackTraceOnError}
	}

	colorizer := lgr.Mapper{
		ErrorFunc:  func(s string) string { return color.New(color.FgHiRed).Sprint(s) },
		WarnFunc:   func(s string) string { return color.New(color.FgRed).Sprint(s) },
		InfoFunc:   func(s string) string { return color.New(color.FgYellow).Sprint(s) },
		DebugFunc:  func(s string) string { return color.New(color.FgWhite).Sprint(s) },
		CallerFunc: func(s string) string { return color.New(color.FgBlue).Sprint(s) },
		TimeFunc:   func(s string) string { return color.New(color.FgCyan).Sprint(s) },
	}
	logOpts = append(logOpts, lgr.Map(colorizer))
	if len(secs) > 0 {
		logOpts = append(logOpts, lgr.Secret(secs...))
	}
	lgr.SetupStdLogger(logOpts...)
	lgr.Setup(logOpts...)
}
