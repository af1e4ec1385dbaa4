// Package watcher reports spec coverage while Ruby sources change.
//
// An fsnotify watcher covers the source tree recursively. Events are
// debounced so that editor save bursts and git checkouts produce one batch,
// and every changed .rb file in the batch gets a coverage report. With
// generation enabled, uncovered methods are sent through the generate
// pipeline one at a time.
//
// Usage:
//
//	svc := watcher.NewService(watcher.ServiceOptions{
//	    Root:     "/path/to/rails/app",
//	    Resolver: identity.Default,
//	    Matcher:  coverage.NewMatcher(extract.LastWins),
//	    OnReport: func(r *coverage.Report) { ... },
//	})
//	if err := svc.Run(ctx); err != nil {
//	    return err
//	}
package watcher
