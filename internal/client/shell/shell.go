// Package shell is the interactive command line of the client.
package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/atinyakov/CoupleHQ/internal/client/coordinator"
	"github.com/atinyakov/CoupleHQ/internal/client/device"
	"github.com/atinyakov/CoupleHQ/internal/client/state"
	"github.com/atinyakov/CoupleHQ/internal/models"
)

const maxPINAttempts = 3

// Session reports the sync session of the open couple.
type Session interface {
	State() coordinator.State
	Status() coordinator.SyncStatus
	Err() string
	PINRequired() bool
	VerifyPIN(ctx context.Context, pin string) (bool, error)
	ForceSync(ctx context.Context) error
}

type command struct {
	usage string
	run   func(ctx context.Context, args []string) error
}

// Shell reads commands and applies them to the state container.
type Shell struct {
	store   *state.Store
	session Session
	prefs   *device.Prefs
	prompt  *Prompter
	out     io.Writer
	log     *zap.Logger
	now     func() time.Time

	commands map[string]command
}

// New returns a shell over store. prompt must write to out.
func New(store *state.Store, session Session, prefs *device.Prefs, prompt *Prompter, out io.Writer, log *zap.Logger) *Shell {
	s := &Shell{
		store:   store,
		session: session,
		prefs:   prefs,
		prompt:  prompt,
		out:     out,
		log:     log,
		now:     time.Now,
	}
	s.commands = s.register()
	return s
}

// Unlock asks for the PIN when the session requires one. It reports false
// when the PIN was not verified.
func (s *Shell) Unlock(ctx context.Context) bool {
	if !s.session.PINRequired() {
		return true
	}
	for i := 0; i < maxPINAttempts; i++ {
		pin, ok := s.prompt.Line("PIN: ")
		if !ok {
			return false
		}
		valid, err := s.session.VerifyPIN(ctx, pin)
		if err != nil {
			fmt.Fprintf(s.out, "Could not verify PIN: %v\n", err)
			return false
		}
		if valid {
			return true
		}
		fmt.Fprintln(s.out, "Wrong PIN")
	}
	return false
}

// Run executes commands until "exit" or end of input.
func (s *Shell) Run(ctx context.Context) {
	for {
		line, ok := s.prompt.Line("couplehq> ")
		if !ok {
			return
		}
		args := strings.Fields(line)
		if len(args) == 0 {
			continue
		}
		if args[0] == "exit" {
			fmt.Fprintln(s.out, "Bye")
			return
		}
		s.Exec(ctx, args)
	}
}

// Exec runs a single command.
func (s *Shell) Exec(ctx context.Context, args []string) {
	if args[0] == "help" {
		s.help()
		return
	}
	cmd, ok := s.commands[args[0]]
	if !ok {
		fmt.Fprintln(s.out, "Unknown command. Type 'help' for a list of commands.")
		return
	}
	if err := cmd.run(ctx, args[1:]); err != nil {
		s.log.Debug("command failed", zap.String("command", args[0]), zap.Error(err))
		fmt.Fprintf(s.out, "Error: %s\n", describe(err))
	}
}

func (s *Shell) help() {
	names := make([]string, 0, len(s.commands))
	for name := range s.commands {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Fprintln(s.out, "Available commands:")
	for _, name := range names {
		fmt.Fprintf(s.out, "  %-10s %s\n", name, s.commands[name].usage)
	}
	fmt.Fprintf(s.out, "  %-10s %s\n", "exit", "leave the shell")
}

func (s *Shell) currentUser(ctx context.Context) models.PartnerKey {
	if s.prefs == nil {
		return models.Partner1Key
	}
	key, err := s.prefs.CurrentUser(ctx)
	if err != nil {
		return models.Partner1Key
	}
	return key
}

func describe(err error) string {
	switch {
	case errors.Is(err, coordinator.ErrReadOnly):
		return "the demo couple is read-only"
	case errors.Is(err, state.ErrItemNotFound):
		return "no item with that ID"
	case errors.Is(err, errUsage):
		return "wrong arguments, see 'help'"
	default:
		return err.Error()
	}
}
