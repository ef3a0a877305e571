package script

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/cmdbridge/internal/shell"
)

const sessionTypeName = "cmdbridge.session"

func registerSessionType(L *lua.LState) {
	mt := L.NewTypeMetatable(sessionTypeName)
	L.SetField(mt, "__index", L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"print":    sessionPrint,
		"name":     sessionName,
		"elevated": sessionElevated,
		"id":       sessionID,
		"get":      sessionGet,
		"set":      sessionSet,
	}))
}

func newSession(L *lua.LState, sess *shell.Session) *lua.LUserData {
	ud := L.NewUserData()
	ud.Value = sess
	L.SetMetatable(ud, L.GetTypeMetatable(sessionTypeName))
	return ud
}

func checkSession(L *lua.LState) *shell.Session {
	ud := L.CheckUserData(1)
	if sess, ok := ud.Value.(*shell.Session); ok {
		return sess
	}
	L.ArgError(1, "session expected")
	return nil
}

// s:print(...) writes its arguments, space separated, to the session.
func sessionPrint(L *lua.LState) int {
	sess := checkSession(L)
	sess.Printf("%s\n", joinArgs(L, 2))
	return 0
}

func sessionName(L *lua.LState) int {
	L.Push(lua.LString(checkSession(L).Name))
	return 1
}

func sessionElevated(L *lua.LState) int {
	L.Push(lua.LBool(checkSession(L).Elevated))
	return 1
}

func sessionID(L *lua.LState) int {
	L.Push(lua.LString(checkSession(L).ID.String()))
	return 1
}

// s:get(name) returns the variable or nil.
func sessionGet(L *lua.LState) int {
	sess := checkSession(L)
	v, ok := sess.Vars().Get(L.CheckString(2))
	if !ok {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(lua.LString(v))
	return 1
}

// s:set(name, value) sets a variable; a nil value unsets it.
func sessionSet(L *lua.LState) int {
	sess := checkSession(L)
	name := L.CheckString(2)
	if L.Get(3) == lua.LNil {
		sess.Vars().Delete(name)
		return 0
	}
	sess.Vars().Set(name, L.ToStringMeta(L.Get(3)).String())
	return 0
}
