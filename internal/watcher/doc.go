// Package watcher reports document changes inside a vault.
//
// The package implements a hybrid watching strategy:
//   - Primary: fsnotify for efficient event-based watching
//   - Fallback: Polling for environments where fsnotify fails (network mounts, Docker volumes)
//
// Only trackable documents (markdown by default) outside hidden directories
// produce events. A rename is reported as a deletion of the old name and a
// change of the new one. Coalescing is left to the consumer.
//
// Usage:
//
//	w, err := watcher.NewHybridWatcher(watcher.DefaultOptions())
//	if err != nil {
//	    return err
//	}
//	defer w.Stop()
//
//	go w.Start(ctx, "/path/to/vault")
//
//	for ev := range w.Events() {
//	    if ev.Deleted {
//	        coordinator.DocumentDeleted(ev.Path)
//	    } else {
//	        coordinator.DocumentChanged(ev.Path)
//	    }
//	}
package watcher
