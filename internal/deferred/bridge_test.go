package deferred_test

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/dshills/cmdbridge/internal/binding"
	"github.com/dshills/cmdbridge/internal/command"
	"github.com/dshills/cmdbridge/internal/deferred"
	"github.com/dshills/cmdbridge/internal/grammar"
)

type user struct {
	name  string
	admin bool
	trace *[]string
}

func (u user) log(s string) {
	*u.trace = append(*u.trace, s)
}

type B = command.Builder[*deferred.Bridge[user]]

type GreetArgs struct {
	Greeting string
}

func newDispatcher(t *testing.T) *deferred.SuspendDispatcher[user] {
	t.Helper()
	d := deferred.NewDispatcher[user]()
	command.Register(d, "say", func(b *B) {
		b.Greedy("text", func(b *B) {
			deferred.RunSuspend(b, func(_ context.Context, u user, args *command.Arguments) error {
				text, err := args.String("text")
				if err != nil {
					return err
				}
				u.log(u.name + ": " + text)
				return nil
			})
		})
	})
	return d
}

func TestRunSuspendDefersUntilDrain(t *testing.T) {
	d := newDispatcher(t)
	var trace []string
	bridge := deferred.Bridged(user{name: "ann", trace: &trace})

	got, err := d.Execute("say hi there", bridge)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if got != 1 {
		t.Errorf("expected result 1, got %d", got)
	}
	if len(trace) != 0 {
		t.Fatalf("expected nothing to run during dispatch, got %v", trace)
	}
	if bridge.Queue().Len() != 1 {
		t.Fatalf("expected 1 queued action, got %d", bridge.Queue().Len())
	}

	if err := bridge.Queue().Drain(context.Background()); err != nil {
		t.Fatalf("Drain failed: %v", err)
	}
	if !slices.Equal(trace, []string{"ann: hi there"}) {
		t.Errorf("unexpected trace %v", trace)
	}
}

func TestExecuteSuspend(t *testing.T) {
	d := newDispatcher(t)
	var trace []string

	got, err := deferred.ExecuteSuspend(context.Background(), d, "say hello", user{name: "bo", trace: &trace})
	if err != nil {
		t.Fatalf("ExecuteSuspend failed: %v", err)
	}
	if got != 1 {
		t.Errorf("expected 1, got %d", got)
	}
	if !slices.Equal(trace, []string{"bo: hello"}) {
		t.Errorf("unexpected trace %v", trace)
	}
}

func TestExecuteSuspendDispatchErrorSkipsDrain(t *testing.T) {
	d := newDispatcher(t)
	var trace []string
	bridge := deferred.Bridged(user{trace: &trace})

	_, err := deferred.ExecuteBridge(context.Background(), d, "shout hi", bridge)
	if !errors.Is(err, grammar.ErrUnknownCommand) {
		t.Fatalf("expected ErrUnknownCommand, got %v", err)
	}
	if bridge.Queue().State() != deferred.Recording {
		t.Errorf("expected queue untouched, got %v", bridge.Queue().State())
	}
}

func TestExecuteSuspendDrainError(t *testing.T) {
	d := deferred.NewDispatcher[user]()
	boom := errors.New("boom")
	command.Register(d, "fail", func(b *B) {
		deferred.RunSuspend(b, func(context.Context, user, *command.Arguments) error { return boom })
	})

	got, err := deferred.ExecuteSuspend(context.Background(), d, "fail", user{})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if got != 1 {
		t.Errorf("expected dispatch result 1 alongside drain error, got %d", got)
	}
}

func TestForkAndRedirectShareQueue(t *testing.T) {
	d := newDispatcher(t)
	command.Register(d, "as", func(b *B) {
		b.Word("name", func(b *B) {
			deferred.RedirectSuspend(b, d.Root(), func(u user, args *command.Arguments) (user, error) {
				name, err := args.String("name")
				if err != nil {
					return user{}, err
				}
				u.name = name
				return u, nil
			})
		})
	})
	command.Register(d, "each", func(b *B) {
		b.String("names", func(b *B) {
			deferred.ForkSuspend(b, d.Root(), func(u user, args *command.Arguments) ([]user, error) {
				names, err := args.String("names")
				if err != nil {
					return nil, err
				}
				var out []user
				for _, n := range strings.Fields(names) {
					cp := u
					cp.name = n
					out = append(out, cp)
				}
				return out, nil
			})
		})
	})

	var trace []string
	got, err := deferred.ExecuteSuspend(context.Background(), d, `each "a b c" say hi`, user{trace: &trace})
	if err != nil {
		t.Fatalf("each failed: %v", err)
	}
	if got != 3 {
		t.Errorf("expected 3 forks, got %d", got)
	}
	want := []string{"a: hi", "b: hi", "c: hi"}
	if !slices.Equal(trace, want) {
		t.Errorf("expected %v, got %v", want, trace)
	}

	trace = nil
	if _, err := deferred.ExecuteSuspend(context.Background(), d, "as zed say yo", user{name: "me", trace: &trace}); err != nil {
		t.Fatalf("as failed: %v", err)
	}
	if !slices.Equal(trace, []string{"zed: yo"}) {
		t.Errorf("unexpected trace %v", trace)
	}
}

func TestMeetSuspend(t *testing.T) {
	d := deferred.NewDispatcher[user]()
	command.Register(d, "reload", func(b *B) {
		deferred.MeetSuspend(b, func(u user) bool { return u.admin })
		deferred.RunSuspend(b, func(_ context.Context, u user, _ *command.Arguments) error {
			u.log("reloaded")
			return nil
		})
	})

	var trace []string
	_, err := deferred.ExecuteSuspend(context.Background(), d, "reload", user{trace: &trace})
	if !errors.Is(err, grammar.ErrUnknownCommand) {
		t.Errorf("expected guarded command to be hidden, got %v", err)
	}
	if _, err := deferred.ExecuteSuspend(context.Background(), d, "reload", user{admin: true, trace: &trace}); err != nil {
		t.Fatalf("admin reload failed: %v", err)
	}
	if !slices.Equal(trace, []string{"reloaded"}) {
		t.Errorf("unexpected trace %v", trace)
	}
}

func TestRunSuspendConstruct(t *testing.T) {
	d := deferred.NewDispatcher[user]()
	command.Register(d, "greet", func(b *B) {
		b.Word("greeting", func(b *B) {
			deferred.RunSuspendConstruct(b, func(_ context.Context, u user, args GreetArgs) error {
				u.log(args.Greeting)
				return nil
			})
		})
	})

	var trace []string
	if _, err := deferred.ExecuteSuspend(context.Background(), d, "greet howdy", user{trace: &trace}); err != nil {
		t.Fatalf("greet failed: %v", err)
	}
	if !slices.Equal(trace, []string{"howdy"}) {
		t.Errorf("unexpected trace %v", trace)
	}
}

func TestRunSuspendFuncBindsDuringDispatch(t *testing.T) {
	d := deferred.NewDispatcher[user]()
	called := false
	spec := binding.MustFunc(func(ctx context.Context, u user, count int) error {
		called = true
		return nil
	}, "", "count")
	command.Register(d, "count", func(b *B) {
		b.Word("label", func(b *B) {
			deferred.RunSuspendFunc(b, spec)
		})
		b.Int("count", 0, 10, func(b *B) {
			deferred.RunSuspendFunc(b, spec)
		})
	})

	bridge := deferred.Bridged(user{})
	_, err := deferred.ExecuteBridge(context.Background(), d, "count nine", bridge)
	if !errors.Is(err, binding.ErrMissingRequiredArgument) {
		t.Fatalf("expected ErrMissingRequiredArgument, got %v", err)
	}
	if bridge.Queue().Len() != 0 {
		t.Errorf("expected nothing queued after a binding failure, got %d", bridge.Queue().Len())
	}

	if _, err := deferred.ExecuteSuspend(context.Background(), d, "count 9", user{}); err != nil {
		t.Fatalf("count 9 failed: %v", err)
	}
	if !called {
		t.Error("expected function to run during drain")
	}
}

func TestRunSuspendLazy(t *testing.T) {
	d := deferred.NewDispatcher[user]()
	resolved := false
	missing := errors.New("not loaded")
	command.Register(d, "lazy", func(b *B) {
		deferred.RunSuspendLazy(b, func() (binding.CallSpec, error) {
			resolved = true
			return binding.CallSpec{}, missing
		})
	})

	bridge := deferred.Bridged(user{})
	if _, err := d.Execute("lazy", bridge); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if resolved {
		t.Fatal("expected resolution to wait for the drain")
	}
	if err := bridge.Queue().Drain(context.Background()); !errors.Is(err, missing) {
		t.Errorf("expected resolution error from drain, got %v", err)
	}
}
