// Package watcher observes a corpus directory and reports changes to book
// manifests and chapter files.
//
// fsnotify is used where the platform supports it; otherwise the tree is
// rescanned on a ticker. Events are debounced so an editor save or a bulk
// copy produces one batch, batches queued behind a running reload are
// merged, and a Reloader turns each batch into a single corpus reload.
//
// Usage:
//
//	w, err := watcher.NewCorpusWatcher(watcher.DefaultOptions())
//	if err != nil {
//	    return err
//	}
//	r := watcher.NewReloader(w, reloadFn, logger)
//	go r.Run(ctx, corpusDir)
package watcher
