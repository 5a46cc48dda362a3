// Command transform builds the transformation URL for an image and a list of
// effects, then polls it until the provider has rendered it.
//
//	transform -image https://ik.imagekit.io/demo/cat.png -effects e-bgremove,e-edit -prompt 'e-edit=remove the hat'
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"lumina/internal/catalog"
	"lumina/internal/infra"
	"lumina/internal/poller"
	"lumina/internal/transform"
)

type promptFlags map[string]string

func (p promptFlags) String() string { return fmt.Sprint(map[string]string(p)) }

func (p promptFlags) Set(v string) error {
	id, text, ok := strings.Cut(v, "=")
	if !ok || strings.TrimSpace(id) == "" {
		return fmt.Errorf("prompt must be <effect>=<text>, got %q", v)
	}
	p[strings.TrimSpace(id)] = strings.TrimSpace(text)
	return nil
}

func main() {
	_ = godotenv.Load()

	prompts := promptFlags{}
	var (
		imageFlag   string
		effectsFlag string
		catalogFlag string
		dryRun      bool
	)
	flag.StringVar(&imageFlag, "image", "", "uploaded image URL")
	flag.StringVar(&effectsFlag, "effects", "", "comma separated effect ids, in application order")
	flag.StringVar(&catalogFlag, "catalog", os.Getenv("CATALOG_PATH"), "effect catalog YAML (default: built-in)")
	flag.Var(prompts, "prompt", "prompt for a prompt-taking effect, <effect>=<text> (repeatable)")
	flag.BoolVar(&dryRun, "dry-run", false, "print the URL without polling")
	flag.Parse()

	logger := infra.NewLogger("cli", os.Getenv("LOG_LEVEL")).With().Str("cmd", "transform").Logger()

	cat, err := catalog.LoadFile(catalogFlag)
	if err != nil {
		exitWithError(err)
	}
	ids, err := effectIDs(cat, effectsFlag, prompts)
	if err != nil {
		exitWithError(err)
	}
	if strings.TrimSpace(imageFlag) == "" {
		exitWithError(errors.New("-image is required"))
	}

	url := transform.Combine(cat, strings.TrimSpace(imageFlag), ids, prompts)
	fmt.Println(url)
	if dryRun {
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p, err := poller.New(poller.Options{
		Checker:     poller.NewHTTPChecker(&http.Client{Timeout: 30 * time.Second}),
		Interval:    envDuration("POLL_INTERVAL_MS", poller.DefaultInterval),
		MaxAttempts: poller.DefaultMaxAttempts,
		Logger:      &logger,
	})
	if err != nil {
		exitWithError(err)
	}

	out, err := p.Poll(ctx, url, func(attempt int, progress float64) {
		logger.Info().Int("attempt", attempt).Float64("progress", progress).Msg("waiting for provider")
	})
	if err != nil {
		exitWithError(fmt.Errorf("transformation failed after %d attempts: %w", out.Attempts, err))
	}
	if out.TimedOut {
		logger.Warn().Int("attempts", out.Attempts).Msg("gave up waiting; the URL may still render later")
		return
	}
	logger.Info().Int("attempts", out.Attempts).Msg("transformation ready")
}

// effectIDs validates the requested effects against the catalog. Effects
// that take a prompt need one.
func effectIDs(cat *catalog.Catalog, raw string, prompts map[string]string) ([]string, error) {
	var ids []string
	for _, part := range strings.Split(raw, ",") {
		id := strings.TrimSpace(part)
		if id == "" {
			continue
		}
		effect, ok := cat.Lookup(id)
		if !ok {
			return nil, fmt.Errorf("unknown effect %q", id)
		}
		if effect.AcceptsPrompt && strings.TrimSpace(prompts[id]) == "" {
			return nil, fmt.Errorf("effect %q needs -prompt %s=<text>", id, id)
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, errors.New("-effects is required")
	}
	return ids, nil
}

func envDuration(key string, fallback time.Duration) time.Duration {
	var ms int
	if _, err := fmt.Sscan(os.Getenv(key), &ms); err == nil && ms > 0 {
		return time.Duration(ms) * time.Millisecond
	}
	return fallback
}

func exitWithError(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
