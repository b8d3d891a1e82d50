package autosync

// EventKind identifies an inbound event.
type EventKind int

const (
	// EventDocumentChanged reports a created or modified document.
	EventDocumentChanged EventKind = iota + 1
	// EventDocumentDeleted reports a removed document.
	EventDocumentDeleted
	// EventStartup reports that the host finished starting.
	EventStartup
	// EventManualSync is a human request for a full sync.
	EventManualSync
	// EventTick is the scheduled-sync timer.
	EventTick
	// EventDebounceFired is the end of a refractory window.
	EventDebounceFired
	// EventReconfigure carries new settings.
	EventReconfigure

	eventSyncFinished
)

var eventNames = map[EventKind]string{
	EventDocumentChanged: "document_changed",
	EventDocumentDeleted: "document_deleted",
	EventStartup:         "startup",
	EventManualSync:      "manual_sync",
	EventTick:            "tick",
	EventDebounceFired:   "debounce_fired",
	EventReconfigure:     "reconfigure",
	eventSyncFinished:    "sync_finished",
}

func (k EventKind) String() string {
	if s, ok := eventNames[k]; ok {
		return s
	}
	return "unknown"
}

// Event is one entry in the coordinator queue.
type Event struct {
	Kind EventKind
	Path string

	gen     uint64
	config  *Config
	reply   chan error
	outcome *syncOutcome
}

// pendingSet is the set of changed paths awaiting a sync.
type pendingSet struct {
	paths        map[string]struct{}
	hasDeletions bool
}

func newPendingSet() pendingSet {
	return pendingSet{paths: make(map[string]struct{})}
}

func (p *pendingSet) add(path string) {
	p.paths[path] = struct{}{}
}

func (p *pendingSet) markDeleted() {
	p.hasDeletions = true
}

// count reports distinct paths plus one for any deletions.
func (p *pendingSet) count() int {
	n := len(p.paths)
	if p.hasDeletions {
		n++
	}
	return n
}

func (p *pendingSet) empty() bool {
	return p.count() == 0
}

// take hands over the whole set and leaves p empty.
func (p *pendingSet) take() pendingSet {
	taken := *p
	*p = newPendingSet()
	return taken
}

// merge puts back a set whose sync failed.
func (p *pendingSet) merge(other pendingSet) {
	for path := range other.paths {
		p.paths[path] = struct{}{}
	}
	p.hasDeletions = p.hasDeletions || other.hasDeletions
}
