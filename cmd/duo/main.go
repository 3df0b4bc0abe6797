package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/xhad/duo/pkg/client"
	cfgPkg "github.com/xhad/duo/pkg/config"
	"github.com/xhad/duo/pkg/logging"
	"github.com/xhad/duo/pkg/page"
	"github.com/xhad/duo/pkg/session"
	"go.uber.org/zap"
)

type options struct {
	configPath string
	apiURL     string
	pathA      string
	pathB      string
}

func main() {
	_ = godotenv.Load()

	opts := parseFlags()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts, os.Stdin, os.Stdout); err != nil {
		log.Fatal(err)
	}
}

func parseFlags() options {
	var opts options

	flag.StringVar(&opts.configPath, "config", "", "Path to config file")
	flag.StringVar(&opts.apiURL, "api", "", "Backend base URL (overrides config and DUO_API_URL)")
	flag.StringVar(&opts.pathA, "a", "", "Path to PDF A")
	flag.StringVar(&opts.pathB, "b", "", "Path to PDF B")
	flag.Parse()

	return opts
}

func run(ctx context.Context, opts options, in io.Reader, out io.Writer) error {
	cfg, err := cfgPkg.LoadConfig(opts.configPath)
	if err != nil {
		return err
	}
	if opts.apiURL != "" {
		cfg.API.BaseURL = opts.apiURL
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(validationErrors(errs)...))
	}

	color.NoColor = color.NoColor || !cfg.UI.Color

	// The terminal is the interface; logs only go to a file when configured.
	logger := logging.New(logging.Options{Level: cfg.Log.Level, File: cfg.Log.File})
	defer logger.Sync()

	backend, err := client.NewWithConfig(client.ClientConfig{
		BaseURL: cfg.API.BaseURL,
		Timeout: cfg.API.Timeout,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize client: %w", err)
	}

	view := newTerminal(out)
	picker := &pathPicker{out: out, paths: [2]string{opts.pathA, opts.pathB}}

	pg, err := page.NewWithConfig(page.PageConfig{
		Backend: backend,
		Files:   picker,
		View:    view,
		Session: session.New(),
		Logger:  logger,
	})
	if err != nil {
		return err
	}

	lines := scanLines(in)
	prompt := color.New(color.FgGreen).FprintfFunc()

	color.New(color.FgCyan).Fprintf(out, "Compare two PDFs via %s\n", backend.BaseURL())

	for !pg.Session().Ready() {
		for slot, label := range []string{"PDF A", "PDF B"} {
			if picker.paths[slot] != "" {
				continue
			}
			prompt(out, "%s path: ", label)
			line, ok := readLine(ctx, lines)
			if !ok {
				return nil
			}
			picker.paths[slot] = line
		}

		err := pg.Upload(ctx)
		picker.Close()
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			logger.Debug("upload attempt failed", zap.Error(err))
			picker.paths = [2]string{}
		}
	}

	return chatLoop(ctx, pg.Ask, view, lines, out)
}

// chatLoop reads questions while answers stream in the background. A
// question typed before the previous answer finishes replaces it; only the
// latest turn may end the answer and print the next prompt.
func chatLoop(ctx context.Context, ask func(context.Context, string) error, view *terminal, lines <-chan string, out io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	prompt := color.New(color.FgGreen).FprintfFunc()
	done := make(chan uint64)
	var turn uint64
	busy := false

	prompt(out, "\nYou: ")
	for {
		select {
		case <-ctx.Done():
			return nil

		case id := <-done:
			if id != turn {
				continue
			}
			busy = false
			view.endAnswer()
			prompt(out, "\nYou: ")

		case line, ok := <-lines:
			if !ok {
				return nil
			}
			question := strings.TrimSpace(line)
			if strings.EqualFold(question, "exit") {
				return nil
			}
			if question == "" {
				if !busy {
					prompt(out, "You: ")
				}
				continue
			}

			turn++
			busy = true
			go func(id uint64) {
				ask(ctx, question)
				select {
				case done <- id:
				case <-ctx.Done():
				}
			}(turn)
		}
	}
}

func scanLines(in io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()
	return lines
}

func readLine(ctx context.Context, lines <-chan string) (string, bool) {
	select {
	case line, ok := <-lines:
		return strings.TrimSpace(line), ok
	case <-ctx.Done():
		return "", false
	}
}

func validationErrors(errs []cfgPkg.ValidationError) []error {
	out := make([]error, len(errs))
	for i, e := range errs {
		out[i] = e
	}
	return out
}
