package script

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/cmdbridge/internal/command"
	"github.com/dshills/cmdbridge/internal/logging"
	"github.com/dshills/cmdbridge/internal/shell"
)

// runtime is one Lua state and the commands its scripts declared.
//
// gopher-lua states are not goroutine-safe; every entry into L holds mu.
type runtime struct {
	mu      sync.Mutex
	L       *lua.LState
	timeout time.Duration
	logger  *logging.Logger

	decls   []*decl
	loading string
	closed  bool
}

func newRuntime(timeout time.Duration, logger *logging.Logger) *runtime {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	openSafeLibraries(L)

	rt := &runtime{L: L, timeout: timeout, logger: logger}
	installSandbox(L, logger)
	registerSessionType(L)
	registerBuilderType(L)
	L.SetGlobal("command", L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"register": rt.luaRegister,
	}))
	return rt
}

// openSafeLibraries opens only the Lua libraries that cannot reach the
// host.
func openSafeLibraries(L *lua.LState) {
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)
}

// installSandbox removes loaders and routes print to the logger.
func installSandbox(L *lua.LState, logger *logging.Logger) {
	for _, name := range []string{"dofile", "loadfile", "load", "loadstring", "require"} {
		L.SetGlobal(name, lua.LNil)
	}
	L.SetGlobal("print", L.NewFunction(func(L *lua.LState) int {
		logger.Info("%s", joinArgs(L, 1))
		return 0
	}))
}

func joinArgs(L *lua.LState, from int) string {
	parts := make([]string, 0, L.GetTop())
	for i := from; i <= L.GetTop(); i++ {
		parts = append(parts, L.ToStringMeta(L.Get(i)).String())
	}
	return strings.Join(parts, " ")
}

// load runs each script file, collecting the commands they declare.
func (rt *runtime) load(paths []string) error {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	defer func() { rt.loading = "" }()

	for _, path := range paths {
		rt.loading = path
		ctx, cancel := rt.withTimeout(context.Background())
		rt.L.SetContext(ctx)
		err := rt.L.DoFile(path)
		rt.L.RemoveContext()
		cancel()
		if err != nil {
			return &ScriptError{Path: path, Err: err}
		}
	}
	return nil
}

// luaRegister implements command.register(name, fn).
func (rt *runtime) luaRegister(L *lua.LState) int {
	name := L.CheckString(1)
	fn := L.CheckFunction(2)

	if !validName(name) {
		L.ArgError(1, fmt.Sprintf("invalid command name %q", name))
	}
	for _, d := range rt.decls {
		if d.name == name {
			L.RaiseError("command %q already declared in %s", name, d.path)
		}
	}

	root := &decl{kind: literalDecl, name: name, path: rt.loading}
	L.Push(fn)
	L.Push(newBuilder(L, root))
	L.Call(1, 0)

	rt.decls = append(rt.decls, root)
	return 0
}

// run calls a command's Lua function for sess.
func (rt *runtime) run(ctx context.Context, d *decl, fn *lua.LFunction, sess *shell.Session, args *command.Arguments) error {
	values := make(map[string]any, len(d.args))
	for _, name := range d.args {
		v, err := args.Argument(name)
		if err != nil {
			return err
		}
		values[name] = v
	}

	rt.mu.Lock()
	defer rt.mu.Unlock()
	if rt.closed {
		return ErrEngineClosed
	}

	ctx, cancel := rt.withTimeout(ctx)
	defer cancel()
	rt.L.SetContext(ctx)
	defer rt.L.RemoveContext()

	argTable := rt.L.NewTable()
	for name, v := range values {
		argTable.RawSetString(name, toLua(v))
	}

	err := rt.L.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true}, newSession(rt.L, sess), argTable)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		return &ScriptError{Path: d.path, Command: d.name, Err: err}
	}
	return nil
}

// check evaluates a requires predicate. A failing predicate denies.
func (rt *runtime) check(d *decl, sess *shell.Session) bool {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if rt.closed {
		return false
	}

	ctx, cancel := rt.withTimeout(context.Background())
	defer cancel()
	rt.L.SetContext(ctx)
	defer rt.L.RemoveContext()

	if err := rt.L.CallByParam(lua.P{Fn: d.requires, NRet: 1, Protect: true}, newSession(rt.L, sess)); err != nil {
		rt.logger.Warn("requirement of %s failed: %v", d.name, err)
		return false
	}
	ok := lua.LVAsBool(rt.L.Get(-1))
	rt.L.Pop(1)
	return ok
}

func (rt *runtime) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if rt.timeout > 0 {
		return context.WithTimeout(ctx, rt.timeout)
	}
	return context.WithCancel(ctx)
}

func (rt *runtime) close() {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if rt.closed {
		return
	}
	rt.closed = true
	rt.L.Close()
}

func toLua(v any) lua.LValue {
	switch v := v.(type) {
	case nil:
		return lua.LNil
	case bool:
		return lua.LBool(v)
	case int:
		return lua.LNumber(v)
	case int64:
		return lua.LNumber(v)
	case float32:
		return lua.LNumber(v)
	case float64:
		return lua.LNumber(v)
	case string:
		return lua.LString(v)
	default:
		return lua.LString(fmt.Sprint(v))
	}
}

func validName(name string) bool {
	return name != "" && !strings.ContainsAny(name, " \t\n")
}
