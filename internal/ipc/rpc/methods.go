package rpc

import (
	"context"
	"fmt"
)

// WindowInfo is the wire shape returned by get_window_info.
type WindowInfo struct {
	UUID           string `json:"uuid"`
	URL            string `json:"url"`
	Title          string `json:"title"`
	IsPopup        bool   `json:"is_popup"`
	ToolbarVisible bool   `json:"toolbar_visible"`
	Active         bool   `json:"active"`
}

// DownloadInfo is the wire shape of one get_downloads entry.
type DownloadInfo struct {
	Filename string `json:"filename"`
	Status   string `json:"status"`
}

// Facade is the capability surface the method catalog dispatches into.
// Every call crosses into the single-threaded browser domain and blocks
// until that domain has produced the result.
//
// The boolean-returning operations soft-fail: an unknown window yields
// false (or an empty object from WindowInfo), not an error. SetWindowURL
// is the exception and reports unknown windows as a hard error.
type Facade interface {
	CreateWindow(ctx context.Context, url string) (string, error)
	CloseAllWindows(ctx context.Context) bool
	CloseWindow(ctx context.Context, windowUUID string) bool
	WindowInfo(ctx context.Context, windowUUID string) (*WindowInfo, bool)
	Windows(ctx context.Context) []string
	SetWindowURL(ctx context.Context, windowUUID, url string) error
	SetWindowIcon(ctx context.Context, windowUUID, iconURL string) bool
	SetWindowToolbarVisible(ctx context.Context, windowUUID string, visible bool) bool
	InitiateDownload(ctx context.Context, url string) bool
	Downloads(ctx context.Context) []DownloadInfo
	CloseSocket(ctx context.Context)
	Exit(ctx context.Context)
}

// Catalog builds the closed method set over the facade. The table is
// the external contract; nothing is dispatched by reflection.
func Catalog(f Facade) []Method {
	return []Method{
		{
			Name:    "create_window",
			Params:  []Param{{Name: "url", Type: TypeString, Optional: true, Description: "Initial URL for the new window"}},
			Returns: "window UUID (string)",
			Handler: func(ctx context.Context, args []any) (any, error) {
				return f.CreateWindow(ctx, argString(args, 0))
			},
		},
		{
			Name:    "close_all_windows",
			Returns: "bool",
			Handler: func(ctx context.Context, args []any) (any, error) {
				return f.CloseAllWindows(ctx), nil
			},
		},
		{
			Name:    "close_window",
			Params:  []Param{{Name: "window_uuid", Type: TypeString, Description: "UUID of the window to close"}},
			Returns: "bool (false if the window is unknown)",
			Handler: func(ctx context.Context, args []any) (any, error) {
				return f.CloseWindow(ctx, argString(args, 0)), nil
			},
		},
		{
			Name:    "get_window_info",
			Params:  []Param{{Name: "window_uuid", Type: TypeString, Description: "UUID of the window to query"}},
			Returns: "window info object, or {} if the window is unknown",
			Handler: func(ctx context.Context, args []any) (any, error) {
				info, ok := f.WindowInfo(ctx, argString(args, 0))
				if !ok {
					return map[string]any{}, nil
				}
				return info, nil
			},
		},
		{
			Name:    "get_windows",
			Returns: "array of window UUID strings",
			Handler: func(ctx context.Context, args []any) (any, error) {
				windows := f.Windows(ctx)
				if windows == nil {
					windows = []string{}
				}
				return windows, nil
			},
		},
		{
			Name: "set_window_url",
			Params: []Param{
				{Name: "window_uuid", Type: TypeString, Description: "UUID of the window to navigate"},
				{Name: "url", Type: TypeString, Description: "URL to load"},
			},
			Returns: "null",
			Handler: func(ctx context.Context, args []any) (any, error) {
				if err := f.SetWindowURL(ctx, argString(args, 0), argString(args, 1)); err != nil {
					return nil, fmt.Errorf("set_window_url: %w", err)
				}
				return nil, nil
			},
		},
		{
			Name: "set_window_icon",
			Params: []Param{
				{Name: "window_uuid", Type: TypeString, Description: "UUID of the window"},
				{Name: "url", Type: TypeString, Description: "Icon URL"},
			},
			Returns: "bool (false if the window is unknown)",
			Handler: func(ctx context.Context, args []any) (any, error) {
				return f.SetWindowIcon(ctx, argString(args, 0), argString(args, 1)), nil
			},
		},
		{
			Name: "set_window_toolbar_visible",
			Params: []Param{
				{Name: "window_uuid", Type: TypeString, Description: "UUID of the window"},
				{Name: "visible", Type: TypeBool, Description: "Whether the navigation toolbar is shown"},
			},
			Returns: "bool (false if the window is unknown)",
			Handler: func(ctx context.Context, args []any) (any, error) {
				return f.SetWindowToolbarVisible(ctx, argString(args, 0), argBool(args, 1)), nil
			},
		},
		{
			Name:    "initiate_download",
			Params:  []Param{{Name: "url", Type: TypeString, Description: "URL to download"}},
			Returns: "bool (request accepted, not completion)",
			Handler: func(ctx context.Context, args []any) (any, error) {
				return f.InitiateDownload(ctx, argString(args, 0)), nil
			},
		},
		{
			Name:    "get_downloads",
			Returns: "array of {filename, status}",
			Handler: func(ctx context.Context, args []any) (any, error) {
				downloads := f.Downloads(ctx)
				if downloads == nil {
					downloads = []DownloadInfo{}
				}
				return downloads, nil
			},
		},
		{
			Name:    "close_socket",
			Returns: "null",
			Handler: func(ctx context.Context, args []any) (any, error) {
				f.CloseSocket(ctx)
				return nil, nil
			},
		},
		{
			Name:    "exit",
			Returns: "null",
			Handler: func(ctx context.Context, args []any) (any, error) {
				f.Exit(ctx)
				return nil, nil
			},
		},
	}
}

// RegisterCatalog registers the full catalog on a registry.
func RegisterCatalog(r *Registry, f Facade) error {
	for _, m := range Catalog(f) {
		if err := r.Register(m); err != nil {
			return err
		}
	}
	return nil
}
