package pip

import "strings"

// EventKind identifies a progress event emitted while pip runs.
type EventKind int

const (
	// EventCollecting is pip resolving/downloading a distribution.
	EventCollecting EventKind = iota + 1

	// EventSatisfied is a requirement that is already installed.
	EventSatisfied

	// EventUninstalling is pip removing a distribution.
	EventUninstalling

	// EventInstalled is the final "Successfully installed ..." summary.
	EventInstalled

	// EventBatchStart announces a multi-command operation and its size.
	EventBatchStart

	// EventItemDone marks one package of a batch as finished.
	EventItemDone
)

// Event is one progress notification.
type Event struct {
	Kind EventKind

	// Package is the distribution concerned. For EventInstalled it is the
	// space separated list pip printed.
	Package string

	// Total is set for EventBatchStart.
	Total int

	// Err is set on EventItemDone when that item failed.
	Err error
}

// Observer receives progress events. A nil Observer is allowed everywhere.
type Observer func(Event)

func (o Observer) emit(e Event) {
	if o != nil {
		o(e)
	}
}

// ParseEvent recognizes the pip output lines that matter for progress
// display:
//
//	Collecting requests==2.31.0
//	Requirement already satisfied: idna<4,>=2.5 in ./venv/lib/python3.12/site-packages
//	Uninstalling requests-2.31.0:
//	Successfully installed certifi-2024.2.2 requests-2.31.0
func ParseEvent(line string) (Event, bool) {
	line = strings.TrimSpace(line)

	switch {
	case strings.HasPrefix(line, "Collecting "):
		return Event{Kind: EventCollecting, Package: requirementName(strings.TrimPrefix(line, "Collecting "))}, true

	case strings.HasPrefix(line, "Requirement already satisfied: "):
		rest := strings.TrimPrefix(line, "Requirement already satisfied: ")
		return Event{Kind: EventSatisfied, Package: requirementName(rest)}, true

	case strings.HasPrefix(line, "Uninstalling ") && strings.HasSuffix(line, ":"):
		nameVersion := strings.TrimSuffix(strings.TrimPrefix(line, "Uninstalling "), ":")
		if idx := strings.LastIndex(nameVersion, "-"); idx > 0 {
			nameVersion = nameVersion[:idx]
		}
		return Event{Kind: EventUninstalling, Package: nameVersion}, true

	case strings.HasPrefix(line, "Successfully installed "):
		return Event{Kind: EventInstalled, Package: strings.TrimPrefix(line, "Successfully installed ")}, true
	}

	return Event{}, false
}

// requirementName strips extras, specifiers and trailing annotations from
// a requirement as pip echoes it ("uvicorn[standard]>=0.20 (from -r ...)").
func requirementName(s string) string {
	s = strings.TrimSpace(s)
	if idx := strings.IndexAny(s, " [=<>!~(;"); idx >= 0 {
		s = s[:idx]
	}
	return s
}
