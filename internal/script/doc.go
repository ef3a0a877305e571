// Package script loads shell commands written in Lua.
//
// Each script runs once in a sandboxed gopher-lua state with only the
// base, table, string and math libraries. Scripts declare commands with
// command.register:
//
//	command.register("greet", function(b)
//	    b:word("who", function(b)
//	        b:run(function(s, args)
//	            s:print("hello " .. args.who)
//	        end)
//	    end)
//	end)
//
// Builders offer literal, word, string, greedy, bool, int and double
// children, run to attach the action and requires to guard a branch.
// int and double accept an optional {min = ..., max = ...} table before
// the child function. Run functions receive the session and a table of
// the parsed arguments; they run when the shell drains deferred work.
//
// Reload evaluates every script in a fresh state and replaces the
// previously registered script commands only when all scripts load.
package script
