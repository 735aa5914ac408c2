package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"github.com/joho/godotenv"

	"github.com/baxromumarov/lifebound"
	"github.com/baxromumarov/lifebound/condition"
	"github.com/baxromumarov/lifebound/debug"
)

var errFlaky = errors.New("flaky backend")

func search(query string) func(ctx context.Context) (string, error) {
	return func(ctx context.Context) (string, error) {
		select {
		case <-time.After(50 * time.Millisecond):
			return "results for " + query, nil
		case <-ctx.Done():
			return "", context.Cause(ctx)
		}
	}
}

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := debug.LoadConfig()
	if err != nil {
		logger.Error("load debug config", slog.Any("error", err))
		os.Exit(1)
	}
	cfg.Enabled = true
	reg := debug.New(cfg)
	defer reg.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	owner := lifebound.NewOwner(ctx, "demo-page", lifebound.WithReporter(lifebound.SlogReporter(logger)))
	router := condition.NewRouter("/dashboard")
	coord := lifebound.NewCoordinator(lifebound.WithName("demo-page"))
	owner.OnDestroy(coord.Destroy)

	done := make(chan struct{}, 3)
	observe := func(label string) lifebound.Observer[string] {
		return lifebound.Observer[string]{
			Next:     func(v string) { fmt.Printf("%s: %s\n", label, v) },
			Error:    func(err error) { fmt.Printf("%s: error: %v\n", label, err); done <- struct{}{} },
			Complete: func() { fmt.Printf("%s: complete\n", label); done <- struct{}{} },
		}
	}

	// The second search supersedes the first before it answers.
	for _, q := range []string{"go", "go streams"} {
		src := lifebound.Supersede(coord, "search", lifebound.FromFunc(search(q)))
		src = condition.WhileRoute(src, router, condition.MustCompilePattern("/dashboard/**"))
		src = debug.Track(reg, src, debug.Meta{Name: "search:" + q, Owner: owner.Name(), Operator: "supersede"})
		lifebound.Subscribe(owner, src, observe("search "+q))
	}

	var calls atomic.Int32
	flaky := lifebound.FromFunc(func(ctx context.Context) (string, error) {
		if calls.Add(1) < 3 {
			return "", errFlaky
		}
		return "ok after retries", nil
	})
	retried := lifebound.RetryWithBackoff(flaky, lifebound.RetryPolicy{
		MaxRetries:   3,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     time.Second,
	}, lifebound.WithStateHook(func(s lifebound.OpState) {
		logger.Info("retry state", slog.String("state", s.String()))
	}))
	lifebound.Subscribe(owner, debug.Track(reg, retried, debug.Meta{Name: "flaky", Owner: owner.Name(), Operator: "retry"}), observe("flaky"))

	for range 3 {
		select {
		case <-done:
		case <-ctx.Done():
		}
	}

	owner.Destroy()

	out, err := reg.ExportJSON()
	if err != nil {
		logger.Error("export debug info", slog.Any("error", err))
		os.Exit(1)
	}
	fmt.Println(string(out))
}
