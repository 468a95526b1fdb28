// Package events carries facade-originated activity out of the browser
// domain. Sinks fan the same payloads into the IPC push broadcaster,
// the debug websocket tap, and the application lifecycle watcher.
package events

// Event names emitted by the browser facade and download manager.
const (
	WindowCreated      = "window_created"
	WindowRemoved      = "window_removed"
	AllWindowsRemoved  = "all_windows_removed"
	URLChanged         = "url_changed"
	NavigationFinished = "navigation_finished"
	DownloadRequested  = "download_requested"
	DownloadFinished   = "download_finished"
	DownloadFailed     = "download_interrupted"
	AppExiting         = "exiting"
)

// Sink accepts one event. Implementations must not block: emitters run
// on the single-threaded browser domain.
type Sink interface {
	Emit(event string, data any)
}

// Mux fans one event out to several sinks, in order.
type Mux struct {
	sinks []Sink
}

// NewMux builds a fan-out sink.
func NewMux(sinks ...Sink) *Mux {
	return &Mux{sinks: sinks}
}

// Add appends another sink. Not safe once events are flowing.
func (m *Mux) Add(s Sink) {
	m.sinks = append(m.sinks, s)
}

// Emit delivers the event to every registered sink.
func (m *Mux) Emit(event string, data any) {
	for _, s := range m.sinks {
		s.Emit(event, data)
	}
}

// Func adapts a function to the Sink interface.
type Func func(event string, data any)

func (f Func) Emit(event string, data any) {
	f(event, data)
}
