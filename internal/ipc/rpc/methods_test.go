package rpc

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/thatfloflo/quahl/internal/infrastructure/logging"
)

type fakeFacade struct {
	windows   map[string]*WindowInfo
	downloads []DownloadInfo

	socketClosed bool
	exited       bool
}

func (f *fakeFacade) CreateWindow(ctx context.Context, url string) (string, error) {
	return "11111111-1111-4111-8111-111111111111", nil
}
func (f *fakeFacade) CloseAllWindows(ctx context.Context) bool { return true }
func (f *fakeFacade) CloseWindow(ctx context.Context, id string) bool {
	_, ok := f.windows[id]
	return ok
}
func (f *fakeFacade) WindowInfo(ctx context.Context, id string) (*WindowInfo, bool) {
	w, ok := f.windows[id]
	return w, ok
}
func (f *fakeFacade) Windows(ctx context.Context) []string { return nil }
func (f *fakeFacade) SetWindowURL(ctx context.Context, id, url string) error {
	return nil
}
func (f *fakeFacade) SetWindowIcon(ctx context.Context, id, url string) bool { return false }
func (f *fakeFacade) SetWindowToolbarVisible(ctx context.Context, id string, visible bool) bool {
	return false
}
func (f *fakeFacade) InitiateDownload(ctx context.Context, url string) bool { return true }
func (f *fakeFacade) Downloads(ctx context.Context) []DownloadInfo          { return f.downloads }
func (f *fakeFacade) CloseSocket(ctx context.Context)                       { f.socketClosed = true }
func (f *fakeFacade) Exit(ctx context.Context)                              { f.exited = true }

func TestCatalogCoversControlSurface(t *testing.T) {
	r := NewRegistry(logging.NewNop(), nil)
	if err := RegisterCatalog(r, &fakeFacade{}); err != nil {
		t.Fatalf("RegisterCatalog failed: %v", err)
	}

	want := []string{
		"close_all_windows",
		"close_socket",
		"close_window",
		"create_window",
		"exit",
		"get_downloads",
		"get_window_info",
		"get_windows",
		"initiate_download",
		"set_window_icon",
		"set_window_toolbar_visible",
		"set_window_url",
	}
	got := r.Methods()
	if len(got) != len(want) {
		t.Fatalf("Methods() = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Methods()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestGetWindowInfoUnknownIsEmptyObject(t *testing.T) {
	r := NewRegistry(logging.NewNop(), nil)
	if err := RegisterCatalog(r, &fakeFacade{}); err != nil {
		t.Fatal(err)
	}

	result, fault := r.Dispatch(context.Background(), "get_window_info", json.RawMessage(`["unknown"]`))
	if fault != nil {
		t.Fatalf("Unknown window must soft-fail, got fault %+v", fault)
	}
	enc, err := json.Marshal(result)
	if err != nil {
		t.Fatal(err)
	}
	if string(enc) != "{}" {
		t.Errorf("Expected empty object, got %s", enc)
	}
}

func TestEmptyCollectionsEncodeAsArrays(t *testing.T) {
	r := NewRegistry(logging.NewNop(), nil)
	if err := RegisterCatalog(r, &fakeFacade{}); err != nil {
		t.Fatal(err)
	}

	for _, method := range []string{"get_windows", "get_downloads"} {
		result, fault := r.Dispatch(context.Background(), method, nil)
		if fault != nil {
			t.Fatalf("%s faulted: %v", method, fault)
		}
		enc, err := json.Marshal(result)
		if err != nil {
			t.Fatal(err)
		}
		if string(enc) != "[]" {
			t.Errorf("%s: expected [], got %s", method, enc)
		}
	}
}
