// Copyright 2026 The Perfwire Authors
// SPDX-License-Identifier: Apache-2.0

package tracing

import (
	"fmt"
	"runtime/debug"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Default block capacity per category, in bytes.
const DefaultBlockCapacity = 10 * 1024 * 1024

// DispatchConfig configures a Dispatch. Process and Sink are
// required; zero capacities fall back to DefaultBlockCapacity.
type DispatchConfig struct {
	Process *ProcessInfo
	Sink    EventSink

	LogBlockCapacity    int
	MetricBlockCapacity int
	ThreadBlockCapacity int

	// NewStreamID overrides stream identifier generation (tests).
	// Defaults to uuid.NewString.
	NewStreamID func() string
}

// Dispatch is the capture context: it owns the process-global log and
// metric streams, the registry of per-goroutine thread streams, and
// the property-set store, and it routes filled blocks to the
// configured sink. Construct one at startup, pass it to every call
// site, and call Shutdown exactly once on the way out.
//
// All methods are safe for concurrent use. Producer-facing methods
// (Log, IntMetric, span recording via ThreadStream) never block on
// I/O: a filled block is formatted and queued by the sink on the
// producing goroutine and delivered in the background.
type Dispatch struct {
	process     *ProcessInfo
	sink        EventSink
	newStreamID func() string
	timeBase    time.Time

	logStream    *LogStream
	metricStream *MetricStream

	threadMu       sync.Mutex
	threadStreams  []*ThreadStream
	threadCapacity int

	propertySets   *PropertySetStore
	defaultContext atomic.Pointer[PropertySet]

	shutdownOnce sync.Once
}

// NewDispatch creates the capture context and announces the process
// and its two global streams to the sink. The registration requests
// are queued before NewDispatch returns, so they are sent or in
// flight before any block of those streams can exist.
func NewDispatch(cfg DispatchConfig) (*Dispatch, error) {
	if cfg.Process == nil {
		return nil, fmt.Errorf("dispatch: config requires a ProcessInfo")
	}
	if cfg.Sink == nil {
		return nil, fmt.Errorf("dispatch: config requires an EventSink")
	}

	newStreamID := cfg.NewStreamID
	if newStreamID == nil {
		newStreamID = uuid.NewString
	}
	logCapacity := cfg.LogBlockCapacity
	if logCapacity <= 0 {
		logCapacity = DefaultBlockCapacity
	}
	metricCapacity := cfg.MetricBlockCapacity
	if metricCapacity <= 0 {
		metricCapacity = DefaultBlockCapacity
	}
	threadCapacity := cfg.ThreadBlockCapacity
	if threadCapacity <= 0 {
		threadCapacity = DefaultBlockCapacity
	}

	d := &Dispatch{
		process:        cfg.Process,
		sink:           cfg.Sink,
		newStreamID:    newStreamID,
		timeBase:       cfg.Process.StartTime.Time,
		threadCapacity: threadCapacity,
		propertySets:   NewPropertySetStore(),
	}

	d.sink.OnStartup(d.process)

	d.logStream = newStream[LogEvent](d.process.ProcessID, newStreamID(), logCapacity, []string{"log"}, d.now)
	d.sink.OnInitLogStream(d.logStream)

	d.metricStream = newStream[MetricEvent](d.process.ProcessID, newStreamID(), metricCapacity, []string{"metrics"}, d.now)
	d.sink.OnInitMetricStream(d.metricStream)

	return d, nil
}

// Process returns the immutable process descriptor.
func (d *Dispatch) Process() *ProcessInfo { return d.process }

// PropertySet interns a property bag for attachment to log and
// metric events. Returns nil for an empty map.
func (d *Dispatch) PropertySet(pairs map[string]string) *PropertySet {
	return d.propertySets.Intern(pairs)
}

// SetDefaultContext installs a property set attached to every
// subsequent log and metric event that does not carry its own.
// Typically updated when the host switches worlds or levels. A nil
// or empty map clears the default.
func (d *Dispatch) SetDefaultContext(pairs map[string]string) {
	d.defaultContext.Store(d.propertySets.Intern(pairs))
}

// ticks returns the current reading of the process-local monotonic
// timeline. This is the per-event timestamp path and deliberately
// avoids any indirection beyond time.Since.
func (d *Dispatch) ticks() int64 {
	return time.Since(d.timeBase).Nanoseconds()
}

// now returns the current instant on both timelines.
func (d *Dispatch) now() DualTime {
	wall := time.Now()
	return DualTime{Time: wall, Ticks: wall.Sub(d.timeBase).Nanoseconds()}
}

// Log records a log event with the default context.
func (d *Dispatch) Log(desc *LogMetadata, msg string) {
	d.LogWith(desc, nil, msg)
}

// LogWith records a log event with an explicit property set. A nil
// set falls back to the default context.
func (d *Dispatch) LogWith(desc *LogMetadata, properties *PropertySet, msg string) {
	if properties == nil {
		properties = d.defaultContext.Load()
	}
	if d.logStream.Append(LogEvent{Desc: desc, Properties: properties, Ticks: d.ticks(), Msg: msg}) {
		d.FlushLogStream()
	}
}

// LogStatic records a log event whose message is an already-interned
// string. Go strings are immutable references, so this costs the same
// as Log; it exists for call sites that hold a StaticString and would
// otherwise re-intern its text.
func (d *Dispatch) LogStatic(desc *LogMetadata, msg StaticString) {
	d.LogWith(desc, nil, msg.Value())
}

// IntMetric records an integer measurement with the default context.
func (d *Dispatch) IntMetric(desc *MetricMetadata, value uint64) {
	d.IntMetricWith(desc, nil, value)
}

// IntMetricWith records an integer measurement with an explicit
// property set.
func (d *Dispatch) IntMetricWith(desc *MetricMetadata, properties *PropertySet, value uint64) {
	if properties == nil {
		properties = d.defaultContext.Load()
	}
	if d.metricStream.Append(IntegerMetricEvent{Desc: desc, Properties: properties, Value: value, Ticks: d.ticks()}) {
		d.FlushMetricStream()
	}
}

// FloatMetric records a floating-point measurement with the default
// context.
func (d *Dispatch) FloatMetric(desc *MetricMetadata, value float64) {
	d.FloatMetricWith(desc, nil, value)
}

// FloatMetricWith records a floating-point measurement with an
// explicit property set.
func (d *Dispatch) FloatMetricWith(desc *MetricMetadata, properties *PropertySet, value float64) {
	if properties == nil {
		properties = d.defaultContext.Load()
	}
	if d.metricStream.Append(FloatMetricEvent{Desc: desc, Properties: properties, Value: value, Ticks: d.ticks()}) {
		d.FlushMetricStream()
	}
}

// FlushLogStream closes the log stream's current block, if non-empty,
// and hands it to the sink. Idempotent.
func (d *Dispatch) FlushLogStream() {
	if block := d.logStream.TakeBlock(); block != nil {
		d.sink.OnLogBlock(d.logStream, block)
	}
}

// FlushMetricStream closes the metric stream's current block, if
// non-empty, and hands it to the sink. Idempotent.
func (d *Dispatch) FlushMetricStream() {
	if block := d.metricStream.TakeBlock(); block != nil {
		d.sink.OnMetricBlock(d.metricStream, block)
	}
}

// NewThreadStream creates a span stream for the calling goroutine and
// announces it to the sink before returning, so the registration is
// queued before the stream's first block can exist. The returned
// stream is owned by one goroutine; only the flush monitor touches it
// from outside, through the stream's own mutex.
func (d *Dispatch) NewThreadStream(name string) *ThreadStream {
	stream := &ThreadStream{
		Stream:   newStream[ThreadEvent](d.process.ProcessID, d.newStreamID(), d.threadCapacity, []string{"cpu"}, d.now),
		dispatch: d,
	}

	d.threadMu.Lock()
	d.threadStreams = append(d.threadStreams, stream)
	index := len(d.threadStreams)
	d.threadMu.Unlock()

	stream.SetProperty("thread-name", name)
	stream.SetProperty("thread-id", strconv.Itoa(index))

	d.sink.OnInitThreadStream(stream)
	return stream
}

// ForEachThreadStream calls fn for every registered thread stream.
// The registry lock is released before fn runs.
func (d *Dispatch) ForEachThreadStream(fn func(*ThreadStream)) {
	d.threadMu.Lock()
	streams := make([]*ThreadStream, len(d.threadStreams))
	copy(streams, d.threadStreams)
	d.threadMu.Unlock()

	for _, stream := range streams {
		fn(stream)
	}
}

// FlushAllThreadStreams closes every thread stream's current block,
// flushing even streams that are not yet full.
func (d *Dispatch) FlushAllThreadStreams() {
	d.ForEachThreadStream(d.flushThreadStream)
}

func (d *Dispatch) flushThreadStream(stream *ThreadStream) {
	if block := stream.TakeBlock(); block != nil {
		d.sink.OnThreadBlock(stream, block)
	}
}

// Shutdown flushes every stream and notifies the sink, which drains
// its delivery queue before returning. Safe to call more than once;
// only the first call has any effect.
func (d *Dispatch) Shutdown() {
	d.shutdownOnce.Do(func() {
		d.FlushLogStream()
		d.FlushMetricStream()
		d.FlushAllThreadStreams()
		d.sink.OnShutdown()
	})
}

var (
	fatalTarget   = InternString("perfwire")
	fatalFile     = InternString("tracing/dispatch.go")
	fatalMetadata = NewLogMetadata(LevelFatal, fatalTarget, fatalFile, 0)
)

// PanicFlush records reason and a best-effort stack trace as a final
// fatal log event, then flushes and shuts down synchronously. Meant
// to be called from the host's unrecoverable-error path, where the
// environment is already degraded; it makes no attempt at delivery
// guarantees beyond the sink's normal drain.
func (d *Dispatch) PanicFlush(reason any) {
	d.Log(fatalMetadata, fmt.Sprintf("fatal error: %v\n%s", reason, debug.Stack()))
	d.Shutdown()
}
