// Package command is a declarative front end for building grammar trees.
//
//	command.Register(d, "tp", func(b *command.Builder[*Player]) {
//	    b.Int("x", 0, 1000, func(b *command.Builder[*Player]) {
//	        b.Run(func(p *Player, args *command.Arguments) error {
//	            x, err := args.Int("x")
//	            ...
//	        })
//	    })
//	})
//
// Actions report a result of 1 to the dispatcher whenever they return
// without error.
package command
