// Package flume implements a dynamic multi-destination event sink.
//
// Events carry a payload body and a set of tag key/value pairs. A sink
// is configured with a destination path template that may reference tag
// values through %{name} placeholders; each event is routed to the
// destination its own tags resolve to.
//
// # Architecture
//
//	┌─────────────────────────────────────┐
//	│          DynamicSink                │  Template resolution,
//	│   (static or dynamic, fixed once)   │  writer lifecycle
//	└─────────────────────────────────────┘
//	           ↓ opens lazily, caches per path
//	┌─────────────────────────────────────┐
//	│           Writers                   │  Local files or
//	│   (file, JetStream object store)    │  NATS object store
//	└─────────────────────────────────────┘
//	           ↓ serialized by
//	┌─────────────────────────────────────┐
//	│          Formats                    │  raw, jsonl, json, csv
//	│   (registry with fallback chain)    │  plus custom factories
//	└─────────────────────────────────────┘
//
// A template without placeholders makes the sink static: one writer,
// opened eagerly. A template with placeholders makes it dynamic:
// writers are opened on first use per distinct resolved path and held
// in a bounded LRU cache, so high-cardinality tags cannot exhaust file
// handles.
//
// Serialization is selected per writer from an ordered fallback chain
// (configured format, process default, raw), which means a destination
// always gets written even when its preferred format is unavailable.
//
// The cmd/flume binary wires these packages together: it reads events
// from stdin and fans each one out to every configured sink.
package flume
