package script_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/dshills/cmdbridge/internal/config"
	"github.com/dshills/cmdbridge/internal/grammar"
	"github.com/dshills/cmdbridge/internal/script"
	"github.com/dshills/cmdbridge/internal/shell"
)

const greetScript = `
command.register("greet", function(b)
    b:word("who", function(b)
        b:run(function(s, args)
            s:print("hello " .. args.who)
        end)
    end)
    b:literal("loud", function(b)
        b:greedy("text", function(b)
            b:run(function(s, args)
                s:print(string.upper(args.text))
            end)
        end)
    end)
end)

command.register("add", function(b)
    b:int("a", {min = 0, max = 10}, function(b)
        b:int("b", function(b)
            b:run(function(s, args)
                s:print(args.a + args.b)
            end)
        end)
    end)
end)
`

func writeScript(t *testing.T, dir, name, src string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func setup(t *testing.T, timeout time.Duration) (*shell.Shell, *script.Engine, *shell.Session, *bytes.Buffer) {
	t.Helper()
	sh := shell.New(config.Default().Shell, nil)
	eng := script.NewEngine(sh.Dispatcher(), config.ScriptsConfig{
		Timeout: config.Duration{Duration: timeout},
	}, nil)
	t.Cleanup(func() { eng.Close() })

	var out bytes.Buffer
	return sh, eng, sh.NewSession("ann", &out), &out
}

func TestScriptCommands(t *testing.T) {
	sh, eng, sess, out := setup(t, time.Second)
	if err := eng.Load(writeScript(t, t.TempDir(), "greet.lua", greetScript)); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if got := eng.Commands(); !slices.Equal(got, []string{"add", "greet"}) {
		t.Fatalf("expected [add greet], got %v", got)
	}

	tests := []struct {
		line string
		want string
	}{
		{"greet bob", "hello bob\n"},
		{"greet loud quiet please", "QUIET PLEASE\n"},
		{"add 2 3", "5\n"},
	}
	for _, tt := range tests {
		out.Reset()
		res, err := sh.Execute(context.Background(), sess, tt.line)
		if err != nil {
			t.Fatalf("%q failed: %v", tt.line, err)
		}
		if res.Deferred != 1 {
			t.Errorf("%q: expected 1 deferred action, got %d", tt.line, res.Deferred)
		}
		if out.String() != tt.want {
			t.Errorf("%q: expected %q, got %q", tt.line, tt.want, out.String())
		}
	}

	if _, err := sh.Execute(context.Background(), sess, "add 11 1"); !errors.Is(err, grammar.ErrOutOfRange) {
		t.Errorf("expected ErrOutOfRange, got %v", err)
	}
}

func TestScriptSessionVariables(t *testing.T) {
	sh, eng, sess, out := setup(t, time.Second)
	path := writeScript(t, t.TempDir(), "vars.lua", `
command.register("remember", function(b)
    b:greedy("value", function(b)
        b:run(function(s, args)
            s:set("memo", args.value)
            s:print(s:name(), s:get("memo"), s:get("missing"))
        end)
    end)
end)
`)
	if err := eng.Load(path); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if _, err := sh.Execute(context.Background(), sess, "remember milk"); err != nil {
		t.Fatalf("remember failed: %v", err)
	}
	if out.String() != "ann milk nil\n" {
		t.Errorf("unexpected output %q", out.String())
	}
	if v, _ := sess.Vars().Get("memo"); v != "milk" {
		t.Errorf("expected memo=milk, got %q", v)
	}
}

func TestScriptRequirement(t *testing.T) {
	sh, eng, sess, out := setup(t, time.Second)
	path := writeScript(t, t.TempDir(), "admin.lua", `
command.register("purge", function(b)
    b:requires(function(s) return s:elevated() end)
    b:run(function(s) s:print("purged") end)
end)
`)
	if err := eng.Load(path); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if _, err := sh.Execute(context.Background(), sess, "purge"); err == nil {
		t.Fatal("expected purge to be unavailable")
	}

	admin := sh.NewSession("root", out)
	admin.Elevated = true
	if _, err := sh.Execute(context.Background(), admin, "purge"); err != nil {
		t.Fatalf("purge failed: %v", err)
	}
	if out.String() != "purged\n" {
		t.Errorf("unexpected output %q", out.String())
	}
}

func TestScriptRuntimeError(t *testing.T) {
	sh, eng, sess, _ := setup(t, time.Second)
	path := writeScript(t, t.TempDir(), "fail.lua", `
command.register("fail", function(b)
    b:run(function() error("broken") end)
end)
`)
	if err := eng.Load(path); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	_, err := sh.Execute(context.Background(), sess, "fail")
	var serr *script.ScriptError
	if !errors.As(err, &serr) {
		t.Fatalf("expected ScriptError, got %v", err)
	}
	if serr.Command != "fail" || serr.Path != path || !strings.Contains(err.Error(), "broken") {
		t.Errorf("unexpected script error %v", serr)
	}
}

func TestScriptTimeout(t *testing.T) {
	sh, eng, sess, _ := setup(t, 50*time.Millisecond)
	path := writeScript(t, t.TempDir(), "spin.lua", `
command.register("spin", function(b)
    b:run(function() while true do end end)
end)
`)
	if err := eng.Load(path); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	_, err := sh.Execute(context.Background(), sess, "spin")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected DeadlineExceeded, got %v", err)
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name string
		src  string
		want error
	}{
		{"syntax", `command.register("x", function(b)`, nil},
		{"sandbox", `dofile("/etc/passwd")`, nil},
		{"double run", `command.register("x", function(b) b:run(print) b:run(print) end)`, nil},
		{"duplicate", `command.register("x", print) command.register("x", print)`, nil},
		{"bad name", `command.register("two words", print)`, nil},
		{"builtin", `command.register("echo", function(b) end)`, script.ErrCommandExists},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, eng, _, _ := setup(t, time.Second)
			err := eng.Load(writeScript(t, dir, strings.ReplaceAll(tt.name, " ", "_")+".lua", tt.src))
			if err == nil {
				t.Fatal("expected load error")
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
			if len(eng.Commands()) != 0 {
				t.Errorf("expected no commands, got %v", eng.Commands())
			}
		})
	}
}

func TestReload(t *testing.T) {
	sh, eng, sess, out := setup(t, time.Second)
	path := writeScript(t, t.TempDir(), "cmds.lua", `
command.register("one", function(b) b:run(function(s) s:print("v1") end) end)
`)
	if err := eng.Load(path); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	sh.SetReloader(eng.Reload)

	writeScript(t, filepath.Dir(path), "cmds.lua", `
command.register("two", function(b) b:run(function(s) s:print("v2") end) end)
`)
	admin := sh.NewSession("root", out)
	admin.Elevated = true
	if _, err := sh.Execute(context.Background(), admin, "reload"); err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if got := eng.Commands(); !slices.Equal(got, []string{"two"}) {
		t.Fatalf("expected [two], got %v", got)
	}
	if sh.Dispatcher().FindNode("one") != nil {
		t.Error("expected old command to be unregistered")
	}

	writeScript(t, filepath.Dir(path), "cmds.lua", `command.register(`)
	if err := eng.Reload(context.Background()); err == nil {
		t.Fatal("expected reload error")
	}
	out.Reset()
	if _, err := sh.Execute(context.Background(), sess, "two"); err != nil {
		t.Fatalf("expected previous commands to survive a failed reload: %v", err)
	}
	if out.String() != "v2\n" {
		t.Errorf("unexpected output %q", out.String())
	}
}

func TestClose(t *testing.T) {
	sh, eng, _, _ := setup(t, time.Second)
	path := writeScript(t, t.TempDir(), "one.lua", `
command.register("one", function(b) b:run(function() end) end)
`)
	if err := eng.Load(path); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if err := eng.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if sh.Dispatcher().FindNode("one") != nil {
		t.Error("expected commands to be unregistered on close")
	}
	if err := eng.Reload(context.Background()); !errors.Is(err, script.ErrEngineClosed) {
		t.Errorf("expected ErrEngineClosed, got %v", err)
	}
}
