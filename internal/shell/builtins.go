package shell

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/dshills/cmdbridge/internal/binding"
	"github.com/dshills/cmdbridge/internal/command"
	"github.com/dshills/cmdbridge/internal/deferred"
)

// Builder is the builder type commands are declared with.
type Builder = command.Builder[*deferred.Bridge[*Session]]

// SleepArgs are the arguments of "sleep".
type SleepArgs struct {
	Millis int `arg:"ms"`
}

const maxSleepMillis = 10 * 60 * 1000

func (s *Shell) registerBuiltins() {
	d := s.dispatcher
	root := d.Root()

	command.Register(d, "help", func(b *Builder) {
		deferred.RunSuspend(b, func(_ context.Context, sess *Session, _ *command.Arguments) error {
			return s.help(sess, "")
		})
		b.Word("command", func(b *Builder) {
			deferred.RunSuspend(b, func(_ context.Context, sess *Session, args *command.Arguments) error {
				name, err := args.String("command")
				if err != nil {
					return err
				}
				return s.help(sess, name)
			})
		})
	})

	command.Register(d, "echo", func(b *Builder) {
		deferred.RunSuspend(b, func(_ context.Context, sess *Session, _ *command.Arguments) error {
			sess.Printf("\n")
			return nil
		})
		b.Greedy("text", func(b *Builder) {
			deferred.RunSuspend(b, func(_ context.Context, sess *Session, args *command.Arguments) error {
				text, err := args.String("text")
				if err != nil {
					return err
				}
				sess.Printf("%s\n", sess.Vars().Expand(text))
				return nil
			})
		})
	})

	command.Register(d, "set", func(b *Builder) {
		b.Word("name", func(b *Builder) {
			b.Greedy("value", func(b *Builder) {
				deferred.RunSuspend(b, func(_ context.Context, sess *Session, args *command.Arguments) error {
					name, err := args.String("name")
					if err != nil {
						return err
					}
					value, err := args.String("value")
					if err != nil {
						return err
					}
					sess.Vars().Set(name, sess.Vars().Expand(value))
					return nil
				})
			})
		})
	})

	command.Register(d, "get", func(b *Builder) {
		b.Word("name", func(b *Builder) {
			deferred.RunSuspend(b, func(_ context.Context, sess *Session, args *command.Arguments) error {
				name, err := args.String("name")
				if err != nil {
					return err
				}
				value, ok := sess.Vars().Get(name)
				if !ok {
					return fmt.Errorf("%w: %s", ErrNoSuchVariable, name)
				}
				sess.Printf("%s\n", value)
				return nil
			})
		})
	})

	command.Register(d, "unset", func(b *Builder) {
		b.Word("name", func(b *Builder) {
			deferred.RunSuspend(b, func(_ context.Context, sess *Session, args *command.Arguments) error {
				name, err := args.String("name")
				if err != nil {
					return err
				}
				if !sess.Vars().Delete(name) {
					return fmt.Errorf("%w: %s", ErrNoSuchVariable, name)
				}
				return nil
			})
		})
	})

	command.Register(d, "vars", func(b *Builder) {
		deferred.RunSuspend(b, func(_ context.Context, sess *Session, _ *command.Arguments) error {
			for _, name := range sess.Vars().Names() {
				value, _ := sess.Vars().Get(name)
				sess.Printf("%s=%s\n", name, value)
			}
			return nil
		})
	})

	command.Register(d, "sleep", func(b *Builder) {
		b.Int("ms", 0, maxSleepMillis, func(b *Builder) {
			deferred.RunSuspendConstruct(b, func(ctx context.Context, _ *Session, args SleepArgs) error {
				timer := time.NewTimer(time.Duration(args.Millis) * time.Millisecond)
				defer timer.Stop()
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-timer.C:
					return nil
				}
			})
		})
	})

	repeat := binding.MustFunc(func(ctx context.Context, sess *Session, count int, text string) error {
		for range count {
			if err := ctx.Err(); err != nil {
				return err
			}
			sess.Printf("%s\n", sess.Vars().Expand(text))
		}
		return nil
	}, "", "count", "text")
	command.Register(d, "repeat", func(b *Builder) {
		b.Int("count", 1, 100, func(b *Builder) {
			b.Greedy("text", func(b *Builder) {
				deferred.RunSuspendFunc(b, repeat)
			})
		})
	})

	whoami, err := binding.Method((*Session)(nil), "Describe")
	if err != nil {
		panic(err)
	}
	command.Register(d, "whoami", func(b *Builder) {
		deferred.RunSuspendFunc(b, whoami)
	})

	command.Register(d, "as", func(b *Builder) {
		b.Word("name", func(b *Builder) {
			deferred.RedirectSuspend(b, root, func(sess *Session, args *command.Arguments) (*Session, error) {
				name, err := args.String("name")
				if err != nil {
					return nil, err
				}
				return sess.As(name), nil
			})
		})
	})

	command.Register(d, "sudo", func(b *Builder) {
		deferred.RedirectSuspend(b, root, func(sess *Session, _ *command.Arguments) (*Session, error) {
			return sess.Elevate(), nil
		})
	})

	command.Register(d, "each", func(b *Builder) {
		b.String("names", func(b *Builder) {
			deferred.ForkSuspend(b, root, func(sess *Session, args *command.Arguments) ([]*Session, error) {
				names, err := args.String("names")
				if err != nil {
					return nil, err
				}
				fields := strings.Fields(names)
				out := make([]*Session, len(fields))
				for i, name := range fields {
					out[i] = sess.As(name)
				}
				return out, nil
			})
		})
	})

	command.Register(d, "history", func(b *Builder) {
		deferred.RunSuspend(b, func(_ context.Context, sess *Session, _ *command.Arguments) error {
			for i, e := range s.history.Entries() {
				mark := " "
				if e.Failed {
					mark = "!"
				}
				sess.Printf("%4d%s %s\n", i+1, mark, e.Line)
			}
			return nil
		})
	})

	command.Register(d, "stats", func(b *Builder) {
		deferred.RunSuspend(b, func(_ context.Context, sess *Session, _ *command.Arguments) error {
			s.printStats(sess)
			return nil
		})
		// Requirements see the session that typed the line, so sudo
		// cannot reach this branch.
		b.Literal("reset", func(b *Builder) {
			deferred.MeetSuspend(b, func(sess *Session) bool { return sess.Elevated })
			deferred.RunSuspend(b, func(context.Context, *Session, *command.Arguments) error {
				if s.metrics != nil {
					s.metrics.Reset()
				}
				return nil
			})
		})
	})

	command.Register(d, "reload", func(b *Builder) {
		deferred.RunSuspend(b, func(ctx context.Context, sess *Session, _ *command.Arguments) error {
			if !sess.Elevated {
				return ErrNotElevated
			}
			s.mu.RLock()
			reload := s.reloader
			s.mu.RUnlock()
			if reload == nil {
				return ErrNoReloader
			}
			if err := reload(ctx); err != nil {
				return err
			}
			sess.Printf("reloaded\n")
			return nil
		})
	})
}

// help prints usage for every command the session may run, or every
// path of one command.
func (s *Shell) help(sess *Session, name string) error {
	d := s.dispatcher
	bridge := deferred.Bridged(sess)

	if name == "" {
		usage := d.SmartUsage(d.Root(), bridge)
		for _, n := range slices.Sorted(maps.Keys(usage)) {
			sess.Printf("  %s\n", usage[n])
		}
		return nil
	}

	node := d.FindNode(name)
	if node == nil || !node.CanUse(bridge) {
		return fmt.Errorf("%w: %s", ErrNoSuchCommand, name)
	}
	for _, line := range d.AllUsage(node, bridge, true) {
		if line == "" {
			sess.Printf("  %s\n", name)
			continue
		}
		sess.Printf("  %s %s\n", name, line)
	}
	return nil
}

func (s *Shell) printStats(sess *Session) {
	if s.metrics == nil {
		sess.Printf("metrics disabled\n")
		return
	}
	snap := s.metrics.Snapshot()
	sess.Printf("executions: %d  errors: %d  panics: %d  avg: %s\n",
		snap.TotalExecutions, snap.TotalErrors, snap.TotalPanics, snap.AverageDuration)
	for _, cm := range s.metrics.TopCommands(10) {
		sess.Printf("  %-10s %5d runs  %5.1f%% errors  avg %s\n",
			cm.Name, cm.Count, cm.ErrorRate(), cm.AverageDuration())
	}
}
