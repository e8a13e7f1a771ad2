// Package main runs the CoupleHQ interactive client: it opens the local
// cache, connects to the remote store when one is configured and starts
// the command shell.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/atinyakov/CoupleHQ/internal/client/cache"
	"github.com/atinyakov/CoupleHQ/internal/client/coordinator"
	"github.com/atinyakov/CoupleHQ/internal/client/device"
	"github.com/atinyakov/CoupleHQ/internal/client/remote"
	"github.com/atinyakov/CoupleHQ/internal/client/shell"
	"github.com/atinyakov/CoupleHQ/internal/client/state"
	"github.com/atinyakov/CoupleHQ/internal/config"
	"github.com/atinyakov/CoupleHQ/internal/db"
	"github.com/atinyakov/CoupleHQ/internal/logger"
)

var (
	version   string
	buildDate string
)

const queueCleanInterval = time.Hour

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run() error {
	options, err := config.ParseClient(os.Args[1:])
	if err != nil {
		return err
	}
	if options.Version {
		fmt.Printf("CoupleHQ Client\nVersion: %s\nBuild Date: %s\n", orDefault(version, "N/A"), orDefault(buildDate, "N/A"))
		return nil
	}

	log := logger.New()
	if err := log.InitFile(options.LogLevel, logger.FileOptions{
		Path:       options.LogFile,
		MaxSizeMB:  10,
		MaxBackups: 3,
		MaxAgeDays: 28,
	}); err != nil {
		return err
	}
	defer func() { _ = log.Log.Sync() }()
	zapLogger := log.Log

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	local, err := cache.Open(options.CachePath)
	if err != nil {
		return err
	}
	defer local.Close()
	prefs := device.NewPrefs(local)

	var httpClient *http.Client
	if options.URL != "" {
		if httpClient, err = remote.NewHTTPClient(options.CAFile, options.Timeout.Duration); err != nil {
			return err
		}
	}
	remoteStore := remote.New(options.URL, httpClient, zapLogger)
	if !remoteStore.IsConfigured() {
		fmt.Println("No remote store configured, working offline.")
	}

	coord := coordinator.New(local, remoteStore, prefs, zapLogger,
		coordinator.WithReadOnlyHandler(func() {
			fmt.Println("This is a demo couple; changes are not saved.")
		}),
	)
	defer coord.Close()

	store := state.New(coord, state.WithDevicePrefs(prefs), state.WithLogger(zapLogger))
	coord.OnChange(store.Replace)

	prompt := shell.NewPrompter(os.Stdin, os.Stdout)
	session, err := chooseCouple(ctx, coord, prefs, prompt, options)
	if err != nil {
		return err
	}

	doc, err := coord.Load(ctx, session)
	if err != nil {
		return fmt.Errorf("%s: %w", coord.Err(), err)
	}
	store.Hydrate(session.CoupleID, doc)

	sh := shell.New(store, coord, prefs, prompt, os.Stdout, zapLogger)
	if !sh.Unlock(ctx) {
		return errors.New("PIN not verified")
	}

	welcome(ctx, prefs, session.CoupleID, doc.Couple.Partner1.Name, doc.Couple.Partner2.Name)

	if err := coord.StartRealtime(ctx); err != nil {
		zapLogger.Warn("realtime updates unavailable", zap.Error(err))
	}
	coord.StartQueueDrainer(ctx, options.DrainInterval.Duration)
	db.StartQueueCleaner(ctx, local.DB(), queueCleanInterval, options.QueueRetention.Duration, zapLogger)

	sh.Run(ctx)
	return nil
}

// chooseCouple picks the couple to open: the configured one, a recent one
// or a newly created one.
func chooseCouple(
	ctx context.Context,
	coord *coordinator.Coordinator,
	prefs *device.Prefs,
	prompt *shell.Prompter,
	options *config.ClientOptions,
) (coordinator.Session, error) {
	session := coordinator.Session{CoupleID: options.Couple, Locale: options.Locale}
	if session.CoupleID != "" {
		return session, nil
	}

	if recent, err := prefs.RecentCouples(ctx); err == nil && len(recent) > 0 {
		fmt.Println("Recent couples:")
		for _, c := range recent {
			fmt.Printf("  %s  %s & %s\n", c.ID, c.Partner1, c.Partner2)
		}
	}

	id, ok := prompt.Line("Couple ID (empty to create a new couple): ")
	if !ok {
		return session, errors.New("no couple selected")
	}
	if id != "" {
		session.CoupleID = id
		return session, nil
	}

	if session.Partner1, ok = prompt.Line("Your name: "); !ok {
		return session, errors.New("no couple selected")
	}
	if session.Partner2, ok = prompt.Line("Your partner's name: "); !ok {
		return session, errors.New("no couple selected")
	}
	id, err := coord.Create(ctx, session)
	if err != nil {
		return session, fmt.Errorf("create couple: %w", err)
	}
	fmt.Printf("Created couple %s. Share this ID with your partner.\n", id)
	session.CoupleID = id
	return session, nil
}

func welcome(ctx context.Context, prefs *device.Prefs, coupleID, partner1, partner2 string) {
	shown, err := prefs.WelcomeShown(ctx, coupleID)
	if err != nil || shown {
		return
	}
	fmt.Printf("Welcome, %s & %s! Type 'help' to see what you can do.\n", partner1, partner2)
	_ = prefs.SetWelcomeShown(ctx, coupleID)
}

// orDefault returns s, or def when s is empty (equivalent to cmp.Or, which
// requires Go 1.22).
func orDefault(s, def string) string {
	if s != "" {
		return s
	}
	return def
}
