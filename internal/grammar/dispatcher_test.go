package grammar_test

import (
	"errors"
	"reflect"
	"slices"
	"testing"

	"github.com/dshills/cmdbridge/internal/grammar"
)

func constant(v int) grammar.Command[int] {
	return func(*grammar.Context[int]) (int, error) { return v, nil }
}

func TestDispatcherExecuteLiteral(t *testing.T) {
	d := grammar.NewDispatcher[int]()
	d.Register(grammar.Literal[int]("foo").Executes(constant(42)))

	got, err := d.Execute("foo", 0)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if got != 42 {
		t.Errorf("expected 42, got %d", got)
	}
}

func TestDispatcherUnknownCommand(t *testing.T) {
	d := grammar.NewDispatcher[int]()
	d.Register(grammar.Literal[int]("foo").Executes(constant(1)))

	_, err := d.Execute("bar", 0)
	if !errors.Is(err, grammar.ErrUnknownCommand) {
		t.Fatalf("expected ErrUnknownCommand, got %v", err)
	}
	var se *grammar.SyntaxError
	if !errors.As(err, &se) {
		t.Fatalf("expected *SyntaxError, got %T", err)
	}
	if se.Cursor != 0 {
		t.Errorf("expected cursor 0, got %d", se.Cursor)
	}
}

func TestDispatcherNodeWithoutCommand(t *testing.T) {
	d := grammar.NewDispatcher[int]()
	d.Register(grammar.Literal[int]("foo").
		Then(grammar.Argument[int]("x", grammar.AnyInteger()).Executes(constant(1))))

	_, err := d.Execute("foo", 0)
	if !errors.Is(err, grammar.ErrUnknownCommand) {
		t.Fatalf("expected ErrUnknownCommand, got %v", err)
	}
}

func TestDispatcherArgument(t *testing.T) {
	d := grammar.NewDispatcher[int]()
	var seen int
	d.Register(grammar.Literal[int]("foo").
		Then(grammar.Argument[int]("x", grammar.Integer(0, 10)).
			Executes(func(ctx *grammar.Context[int]) (int, error) {
				x, err := grammar.Arg[int](ctx, "x")
				if err != nil {
					return 0, err
				}
				seen = x
				return 1, nil
			})))

	if _, err := d.Execute("foo 7", 0); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if seen != 7 {
		t.Errorf("expected 7, got %d", seen)
	}

	_, err := d.Execute("foo 50", 0)
	if !errors.Is(err, grammar.ErrOutOfRange) {
		t.Errorf("expected ErrOutOfRange, got %v", err)
	}

	_, err = d.Execute("foo 5x", 0)
	if !errors.Is(err, grammar.ErrExpectedSeparator) {
		t.Errorf("expected ErrExpectedSeparator, got %v", err)
	}

	_, err = d.Execute("foo 5 6", 0)
	if !errors.Is(err, grammar.ErrUnknownArgument) {
		t.Errorf("expected ErrUnknownArgument, got %v", err)
	}
}

func TestArgLookupErrors(t *testing.T) {
	d := grammar.NewDispatcher[int]()
	var missingErr, typeErr error
	d.Register(grammar.Literal[int]("foo").
		Then(grammar.Argument[int]("x", grammar.AnyInteger()).
			Executes(func(ctx *grammar.Context[int]) (int, error) {
				_, missingErr = ctx.Argument("y")
				_, typeErr = grammar.Arg[string](ctx, "x")
				return 1, nil
			})))

	if _, err := d.Execute("foo 3", 0); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !errors.Is(missingErr, grammar.ErrNoSuchArgument) {
		t.Errorf("expected ErrNoSuchArgument, got %v", missingErr)
	}
	if !errors.Is(typeErr, grammar.ErrArgumentType) {
		t.Errorf("expected ErrArgumentType, got %v", typeErr)
	}
	var ate *grammar.ArgumentTypeError
	if !errors.As(typeErr, &ate) {
		t.Fatalf("expected *ArgumentTypeError, got %T", typeErr)
	}
	if ate.Found != reflect.TypeFor[int]() {
		t.Errorf("expected found type int, got %v", ate.Found)
	}
}

func TestDispatcherLiteralBeatsArgument(t *testing.T) {
	d := grammar.NewDispatcher[int]()
	d.Register(grammar.Literal[int]("give").
		Then(grammar.Literal[int]("all").Executes(constant(100))).
		Then(grammar.Argument[int]("name", grammar.Word()).Executes(constant(1))))

	got, err := d.Execute("give all", 0)
	if err != nil || got != 100 {
		t.Errorf("give all = %d, %v", got, err)
	}
	got, err = d.Execute("give bob", 0)
	if err != nil || got != 1 {
		t.Errorf("give bob = %d, %v", got, err)
	}
}

func TestDispatcherQuotedAndGreedy(t *testing.T) {
	d := grammar.NewDispatcher[int]()
	var quoted, rest string
	d.Register(grammar.Literal[int]("say").
		Then(grammar.Argument[int]("msg", grammar.String()).
			Executes(func(ctx *grammar.Context[int]) (int, error) {
				quoted, _ = grammar.Arg[string](ctx, "msg")
				return 1, nil
			})))
	d.Register(grammar.Literal[int]("echo").
		Then(grammar.Argument[int]("text", grammar.Greedy()).
			Executes(func(ctx *grammar.Context[int]) (int, error) {
				rest, _ = grammar.Arg[string](ctx, "text")
				return 1, nil
			})))

	if _, err := d.Execute(`say "hello world"`, 0); err != nil {
		t.Fatalf("say failed: %v", err)
	}
	if quoted != "hello world" {
		t.Errorf("expected hello world, got %q", quoted)
	}
	if _, err := d.Execute("echo a b  c!", 0); err != nil {
		t.Fatalf("echo failed: %v", err)
	}
	if rest != "a b  c!" {
		t.Errorf("expected greedy text, got %q", rest)
	}
}

func TestDispatcherRequirementHidesBranch(t *testing.T) {
	d := grammar.NewDispatcher[int]()
	d.Register(grammar.Literal[int]("admin").
		Requires(func(level int) bool { return level > 0 }).
		Executes(constant(1)))

	if _, err := d.Execute("admin", 0); !errors.Is(err, grammar.ErrUnknownCommand) {
		t.Errorf("expected ErrUnknownCommand for unprivileged source, got %v", err)
	}
	if got, err := d.Execute("admin", 1); err != nil || got != 1 {
		t.Errorf("admin as privileged = %d, %v", got, err)
	}
}

func TestDispatcherRedirect(t *testing.T) {
	d := grammar.NewDispatcher[int]()
	d.Register(grammar.Literal[int]("foo").Executes(func(ctx *grammar.Context[int]) (int, error) {
		return ctx.Source(), nil
	}))
	d.Register(grammar.Literal[int]("run").Redirect(d.Root()))
	d.Register(grammar.Literal[int]("double").RedirectWith(d.Root(), func(ctx *grammar.Context[int]) (int, error) {
		return ctx.Source() * 2, nil
	}))

	got, err := d.Execute("run run foo", 5)
	if err != nil || got != 5 {
		t.Errorf("run run foo = %d, %v", got, err)
	}
	got, err = d.Execute("double double foo", 5)
	if err != nil || got != 20 {
		t.Errorf("double double foo = %d, %v", got, err)
	}
}

func TestDispatcherRedirectModifierError(t *testing.T) {
	d := grammar.NewDispatcher[int]()
	boom := errors.New("boom")
	d.Register(grammar.Literal[int]("foo").Executes(constant(1)))
	d.Register(grammar.Literal[int]("fail").RedirectWith(d.Root(), func(*grammar.Context[int]) (int, error) {
		return 0, boom
	}))

	if _, err := d.Execute("fail foo", 0); !errors.Is(err, boom) {
		t.Errorf("expected modifier error, got %v", err)
	}
}

func TestDispatcherFork(t *testing.T) {
	d := grammar.NewDispatcher[int]()
	boom := errors.New("boom")
	var ran []int
	d.Register(grammar.Literal[int]("foo").Executes(func(ctx *grammar.Context[int]) (int, error) {
		if ctx.Source() == 2 {
			return 0, boom
		}
		ran = append(ran, ctx.Source())
		return 10, nil
	}))
	d.Register(grammar.Literal[int]("each").Fork(d.Root(), func(*grammar.Context[int]) ([]int, error) {
		return []int{1, 2, 3}, nil
	}))

	var failures int
	d.SetConsumer(func(_ *grammar.Context[int], success bool, _ int) {
		if !success {
			failures++
		}
	})

	got, err := d.Execute("each foo", 0)
	if err != nil {
		t.Fatalf("forked execute failed: %v", err)
	}
	if got != 2 {
		t.Errorf("expected 2 successful forks, got %d", got)
	}
	if !slices.Equal(ran, []int{1, 3}) {
		t.Errorf("expected branches 1 and 3 to run, got %v", ran)
	}
	if failures != 1 {
		t.Errorf("expected 1 failure reported, got %d", failures)
	}
}

func TestDispatcherForkToNothing(t *testing.T) {
	d := grammar.NewDispatcher[int]()
	d.Register(grammar.Literal[int]("foo").Executes(constant(1)))
	d.Register(grammar.Literal[int]("none").Fork(d.Root(), func(*grammar.Context[int]) ([]int, error) {
		return nil, nil
	}))

	got, err := d.Execute("none foo", 0)
	if err != nil || got != 0 {
		t.Errorf("none foo = %d, %v", got, err)
	}
}

func TestDispatcherCommandError(t *testing.T) {
	d := grammar.NewDispatcher[int]()
	boom := errors.New("boom")
	d.Register(grammar.Literal[int]("foo").Executes(func(*grammar.Context[int]) (int, error) {
		return 0, boom
	}))
	if _, err := d.Execute("foo", 0); !errors.Is(err, boom) {
		t.Errorf("expected boom, got %v", err)
	}
}

func TestDispatcherMergesRegistrations(t *testing.T) {
	d := grammar.NewDispatcher[int]()
	d.Register(grammar.Literal[int]("base").Then(grammar.Literal[int]("a").Executes(constant(1))))
	d.Register(grammar.Literal[int]("base").Then(grammar.Literal[int]("b").Executes(constant(2))))

	if got, err := d.Execute("base a", 0); err != nil || got != 1 {
		t.Errorf("base a = %d, %v", got, err)
	}
	if got, err := d.Execute("base b", 0); err != nil || got != 2 {
		t.Errorf("base b = %d, %v", got, err)
	}

	if !d.Unregister("base") {
		t.Fatal("expected base to be unregistered")
	}
	if _, err := d.Execute("base a", 0); !errors.Is(err, grammar.ErrUnknownCommand) {
		t.Errorf("expected ErrUnknownCommand after unregister, got %v", err)
	}
}

func TestDispatcherPathAndFind(t *testing.T) {
	d := grammar.NewDispatcher[int]()
	d.Register(grammar.Literal[int]("a").
		Then(grammar.Literal[int]("b").
			Then(grammar.Argument[int]("n", grammar.AnyInteger()).Executes(constant(1)))))

	n := d.FindNode("a", "b", "n")
	if n == nil {
		t.Fatal("FindNode returned nil")
	}
	if n.Kind() != grammar.ArgumentNode {
		t.Errorf("expected argument node, got %v", n.Kind())
	}
	if got := d.Path(n); !slices.Equal(got, []string{"a", "b", "n"}) {
		t.Errorf("unexpected path %v", got)
	}
	if d.FindNode("a", "missing") != nil {
		t.Error("expected nil for missing path")
	}
}

func TestDispatcherUsage(t *testing.T) {
	d := grammar.NewDispatcher[int]()
	d.Register(grammar.Literal[int]("foo").
		Executes(constant(1)).
		Then(grammar.Argument[int]("x", grammar.AnyInteger()).Executes(constant(1))))
	d.Register(grammar.Literal[int]("run").Redirect(d.Root()))
	d.Register(grammar.Literal[int]("secret").
		Requires(func(level int) bool { return level > 0 }).
		Executes(constant(1)))

	all := d.AllUsage(d.Root(), 0, true)
	want := []string{"foo", "foo <x>", "run ..."}
	if !slices.Equal(all, want) {
		t.Errorf("expected %v, got %v", want, all)
	}

	smart := d.SmartUsage(d.Root(), 0)
	if smart["foo"] != "foo [<x>]" {
		t.Errorf("unexpected smart usage for foo: %q", smart["foo"])
	}
	if smart["run"] != "run ..." {
		t.Errorf("unexpected smart usage for run: %q", smart["run"])
	}
	if _, ok := smart["secret"]; ok {
		t.Error("expected secret to be hidden")
	}
}

func TestBuilderRedirectWithChildrenPanics(t *testing.T) {
	defer func() {
		if r := recover(); r != grammar.ErrRedirectWithChildren {
			t.Errorf("expected ErrRedirectWithChildren panic, got %v", r)
		}
	}()
	root := grammar.NewDispatcher[int]().Root()
	grammar.Literal[int]("x").
		Then(grammar.Literal[int]("y")).
		Redirect(root)
}
