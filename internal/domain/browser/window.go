package browser

import "time"

// Window is the facade's record of one browser window. Only the
// manager goroutine touches it; everyone else gets Snapshot copies.
type Window struct {
	UUID           string
	URL            string
	Title          string
	IconURL        string
	IsPopup        bool
	ToolbarVisible bool
	CreatedAt      time.Time
}

// Snapshot is an immutable copy of a window's state plus the focus
// flag, which lives on the manager rather than the window. The json
// tags serve the debug surface.
type Snapshot struct {
	UUID           string    `json:"uuid"`
	URL            string    `json:"url"`
	Title          string    `json:"title"`
	IconURL        string    `json:"icon_url"`
	IsPopup        bool      `json:"is_popup"`
	ToolbarVisible bool      `json:"toolbar_visible"`
	Active         bool      `json:"active"`
	CreatedAt      time.Time `json:"created_at"`
}

func (w *Window) snapshot(active bool) Snapshot {
	return Snapshot{
		UUID:           w.UUID,
		URL:            w.URL,
		Title:          w.Title,
		IconURL:        w.IconURL,
		IsPopup:        w.IsPopup,
		ToolbarVisible: w.ToolbarVisible,
		Active:         active,
		CreatedAt:      w.CreatedAt,
	}
}
