// Package deferred lets synchronous command dispatch hand work off to be
// run after the dispatch returns.
//
// The dispatcher's source is a *Bridge wrapping the caller's source. The
// suspend variants of the builder helpers do not run their callable;
// they record a closure on the bridge's queue. ExecuteSuspend drains the
// queue in order once dispatch has finished, passing its context to every
// action:
//
//	d := deferred.NewDispatcher[*Session]()
//	command.Register(d, "fetch", func(b *command.Builder[*deferred.Bridge[*Session]]) {
//	    b.Word("url", func(b *command.Builder[*deferred.Bridge[*Session]]) {
//	        deferred.RunSuspend(b, func(ctx context.Context, s *Session, args *command.Arguments) error {
//	            ...
//	        })
//	    })
//	})
//	code, err := deferred.ExecuteSuspend(ctx, d, "fetch example.org", session)
//
// Bridges produced by redirects and forks share their parent's queue, so
// work recorded in any branch runs in the same drain.
package deferred
