package dashboard

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/martinsuchenak/hometier/internal/model"
	"github.com/martinsuchenak/hometier/internal/realtime"
	"github.com/martinsuchenak/hometier/internal/ui"
	"github.com/martinsuchenak/hometier/internal/worker"
)

var testNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type fakeBackend struct {
	mu        sync.Mutex
	calls     map[string]int
	devices   []model.Device
	inventory []model.InventoryItem
	err       error
	ignored   []int
	unignored []int
	deleted   []int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{calls: make(map[string]int)}
}

func (f *fakeBackend) record(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[name]++
	return f.err
}

func (f *fakeBackend) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeBackend) ListDevices(ctx context.Context) ([]model.Device, error) {
	if err := f.record("devices"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.devices), nil
}

func (f *fakeBackend) DeviceTimeline(ctx context.Context, days int) ([]model.TimelinePoint, error) {
	if err := f.record("timeline"); err != nil {
		return nil, err
	}
	return []model.TimelinePoint{{Date: "2024-05-01", Count: 2}}, nil
}

func (f *fakeBackend) ListInventory(ctx context.Context) ([]model.InventoryItem, error) {
	if err := f.record("inventory"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.inventory), nil
}

func (f *fakeBackend) ListCategories(ctx context.Context) ([]model.Category, error) {
	if err := f.record("categories"); err != nil {
		return nil, err
	}
	return []model.Category{{ID: 1, Name: "Network"}}, nil
}

func (f *fakeBackend) DashboardStats(ctx context.Context) (model.DashboardStats, error) {
	if err := f.record("stats"); err != nil {
		return model.DashboardStats{}, err
	}
	return model.DashboardStats{CategoryStats: []model.CategoryStat{{Category: "Network", Count: 2}}}, nil
}

func (f *fakeBackend) ScanningStats(ctx context.Context) (model.ScanningStats, error) {
	if err := f.record("scanning"); err != nil {
		return model.ScanningStats{}, err
	}
	return model.ScanningStats{TotalDevices: 4, ManagedDevices: 1, UnmanagedDevices: 2, IgnoredDevices: 1}, nil
}

func (f *fakeBackend) BulkIgnore(ctx context.Context, ids []int) (model.BulkResult, error) {
	if err := f.record("bulk_ignore"); err != nil {
		return model.BulkResult{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ignored = slices.Clone(ids)
	return model.BulkResult{Status: "success", Message: fmt.Sprintf("%d devices ignored", len(ids)), Affected: len(ids)}, nil
}

func (f *fakeBackend) BulkUnignore(ctx context.Context, ids []int) (model.BulkResult, error) {
	if err := f.record("bulk_unignore"); err != nil {
		return model.BulkResult{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unignored = slices.Clone(ids)
	return model.BulkResult{Status: "success", Affected: len(ids)}, nil
}

func (f *fakeBackend) BulkDeleteInventory(ctx context.Context, ids []int) (model.BulkResult, error) {
	if err := f.record("bulk_delete"); err != nil {
		return model.BulkResult{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = slices.Clone(ids)
	return model.BulkResult{Status: "success", Message: fmt.Sprintf("Successfully deleted %d item(s)", len(ids)), Affected: len(ids)}, nil
}

type fakeScanner struct {
	fallback bool
	err      error
	calls    int
}

func (f *fakeScanner) RequestScan(ctx context.Context) (bool, error) {
	f.calls++
	return f.fallback, f.err
}

type harness struct {
	ctrl    *Controller
	page    *ui.Page
	loop    *worker.Loop
	pool    *worker.Pool
	backend *fakeBackend
}

func newHarness(t *testing.T, view ui.View) *harness {
	t.Helper()
	backend := newFakeBackend()
	backend.devices = []model.Device{
		{ID: 1, Hostname: "router", IPAddress: "192.168.1.1", LastSeen: model.Time{Time: testNow.Add(-time.Minute)}, FirstSeen: model.Time{Time: testNow.Add(-48 * time.Hour)}},
		{ID: 4, IPAddress: "192.168.1.9", LastSeen: model.Time{Time: testNow.Add(-10 * time.Minute)}, FirstSeen: model.Time{Time: testNow.Add(-10 * time.Minute)}},
	}
	backend.inventory = []model.InventoryItem{{ID: 1, Name: "NAS"}}

	page := ui.NewPage(view)
	loop := worker.NewLoop()
	pool := worker.NewPool(2)
	loop.Start()
	pool.Start()
	t.Cleanup(func() {
		loop.Stop()
		pool.Stop()
	})

	ctrl := New(backend, page, loop, pool, Options{
		Delays: Delays{
			Flash:           100 * time.Millisecond,
			NewDeviceReload: 10 * time.Millisecond,
			Highlight:       100 * time.Millisecond,
			InventoryReload: 10 * time.Millisecond,
		},
		Now: func() time.Time { return testNow },
	})
	return &harness{ctrl: ctrl, page: page, loop: loop, pool: pool, backend: backend}
}

// settle drains the loop and the pool until both are quiet
func (h *harness) settle() {
	for i := 0; i < 4; i++ {
		h.loop.Flush()
		h.pool.Wait()
	}
	h.loop.Flush()
}

func (h *harness) event(ev realtime.Event) {
	h.ctrl.HandleEvent(context.Background(), ev)
	h.settle()
}

func (h *harness) notified(level ui.Level, msg string) bool {
	for _, n := range h.page.Notifications() {
		if n.Level == level && n.Message == msg {
			return true
		}
	}
	return false
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("Timed out waiting for %s", what)
}

func counter(t *testing.T, page *ui.Page, id ui.CounterID) int {
	t.Helper()
	c, ok := page.Counter(id)
	if !ok {
		t.Fatalf("Expected counter %s on view %s", id, page.View())
	}
	return c.Value()
}

func TestStatusCounts(t *testing.T) {
	h := newHarness(t, ui.ViewDashboard)
	chart, _ := h.page.StatusChart()

	counts := realtime.StatusCounts{StatusCounts: model.StatusCounts{Online: 3, Offline: 1, Unknown: 0}}
	h.event(counts)

	if counter(t, h.page, ui.CounterOnline) != 3 || counter(t, h.page, ui.CounterOffline) != 1 || counter(t, h.page, ui.CounterUnknown) != 0 {
		t.Error("Expected counters 3/1/0")
	}
	if h.backend.count("devices") != 0 {
		t.Fatal("Expected counts to arrive before any dashboard load")
	}
	if chart.Series() != [3]int{3, 1, 0} {
		t.Errorf("Expected series [3 1 0] before the first load, got %v", chart.Series())
	}
}

func TestStatusCounts_NoWidgets(t *testing.T) {
	h := newHarness(t, ui.ViewCategories)
	h.event(realtime.StatusCounts{StatusCounts: model.StatusCounts{Online: 3}})
	if _, ok := h.page.Counter(ui.CounterOnline); ok {
		t.Error("Expected no online counter on categories view")
	}
}

func TestDeviceStatusChanges(t *testing.T) {
	h := newHarness(t, ui.ViewScanning)
	h.ctrl.Start()
	h.settle()

	row, ok := h.page.DeviceRow(4)
	if !ok {
		t.Fatal("Expected row for device 4 after initial load")
	}
	devicesBefore := h.backend.count("devices")

	h.event(realtime.DeviceStatusChanges{Changes: []realtime.StatusChange{
		{DeviceID: 4, OldStatus: "online", NewStatus: "offline", DeviceInfo: realtime.DeviceInfo{IPAddress: "192.168.1.9"}},
		{DeviceID: 1, OldStatus: "offline", NewStatus: "online", DeviceInfo: realtime.DeviceInfo{Hostname: "router", IPAddress: "192.168.1.1"}},
		{DeviceID: 99, OldStatus: "unknown", NewStatus: "online", DeviceInfo: realtime.DeviceInfo{Hostname: "ghost"}},
	}})

	if !h.notified(ui.LevelWarning, "Device went offline: 192.168.1.9") {
		t.Error("Expected offline notification using the IP address")
	}
	if !h.notified(ui.LevelSuccess, "Device came online: router") {
		t.Error("Expected online notification using the hostname")
	}
	if len(h.page.Notifications()) != 2 {
		t.Errorf("Expected exactly 2 notifications, got %d", len(h.page.Notifications()))
	}

	if row.Status() != model.StatusOffline {
		t.Errorf("Expected row badge offline, got %s", row.Status())
	}
	if !row.Flashing() {
		t.Error("Expected row to flash")
	}
	eventually(t, "flash cleared", func() bool { return !row.Flashing() })

	if h.backend.count("devices") != devicesBefore {
		t.Error("Expected no chart reload on a view without charts")
	}
}

func TestDeviceStatusChanges_ReloadsCharts(t *testing.T) {
	h := newHarness(t, ui.ViewDashboard)

	h.event(realtime.DeviceStatusChanges{Changes: []realtime.StatusChange{
		{DeviceID: 4, OldStatus: "online", NewStatus: "unknown"},
	}})

	if h.backend.count("stats") != 1 {
		t.Errorf("Expected one chart reload, got %d", h.backend.count("stats"))
	}
	if len(h.page.Notifications()) != 0 {
		t.Error("Expected no notification for online to unknown")
	}
	chart, _ := h.page.StatusChart()
	if chart.Series() != [3]int{2, 0, 0} {
		t.Errorf("Expected chart from reloaded devices, got %v", chart.Series())
	}
}

func TestNewDevicesDiscovered(t *testing.T) {
	h := newHarness(t, ui.ViewDashboard)

	h.event(realtime.NewDevicesDiscovered{Count: 1, Devices: []realtime.DiscoveredDevice{{ID: 5, IPAddress: "192.168.1.50"}}})
	if !h.notified(ui.LevelInfo, "New device discovered: 192.168.1.50") {
		t.Error("Expected single device notification with IP fallback")
	}

	h.event(realtime.NewDevicesDiscovered{Count: 3, Devices: make([]realtime.DiscoveredDevice, 3)})
	if !h.notified(ui.LevelInfo, "3 new devices discovered") {
		t.Error("Expected multi-device notification")
	}
	if counter(t, h.page, ui.CounterNewDevices) != 4 {
		t.Errorf("Expected new devices counter 4, got %d", counter(t, h.page, ui.CounterNewDevices))
	}

	feed, _ := h.page.ActivityFeed()
	entries := feed.Entries()
	if len(entries) != 2 || entries[0].Title != "Device Discovered" || !entries[0].Highlight {
		t.Fatalf("Expected highlighted discovery entries, got %+v", entries)
	}
	eventually(t, "highlight cleared", func() bool {
		for _, e := range feed.Entries() {
			if e.Highlight {
				return false
			}
		}
		return true
	})

	for i := 0; i < 15; i++ {
		h.ctrl.HandleEvent(context.Background(), realtime.NewDevicesDiscovered{Count: 1, Devices: []realtime.DiscoveredDevice{{Hostname: fmt.Sprintf("d%d", i)}}})
	}
	h.settle()
	if got := len(feed.Entries()); got != ui.MaxActivity {
		t.Errorf("Expected feed bounded at %d, got %d", ui.MaxActivity, got)
	}
	if feed.Entries()[0].Detail != "d14" {
		t.Errorf("Expected newest entry first, got %s", feed.Entries()[0].Detail)
	}
}

func TestNewDevicesDiscovered_ReloadsScanningTable(t *testing.T) {
	h := newHarness(t, ui.ViewScanning)

	h.event(realtime.NewDevicesDiscovered{Count: 1, Devices: []realtime.DiscoveredDevice{{Hostname: "tv"}}})
	eventually(t, "delayed table reload", func() bool {
		h.settle()
		return h.backend.count("devices") == 1
	})
	if _, ok := h.page.DeviceRow(1); !ok {
		t.Error("Expected device table to be filled")
	}
}

func TestScanLifecycle(t *testing.T) {
	h := newHarness(t, ui.ViewScanning)
	ctrl, _ := h.page.ScanControl()
	prog, _ := h.page.ScanProgress()

	h.event(realtime.ScanStarted{})
	if ctrl.Label() != "Scanning..." || !ctrl.Disabled() || !prog.Visible() {
		t.Errorf("Expected busy scan control, got %q disabled=%v visible=%v", ctrl.Label(), ctrl.Disabled(), prog.Visible())
	}
	if !h.notified(ui.LevelInfo, "Network scan started") {
		t.Error("Expected scan started notification")
	}

	h.event(realtime.ScanProgress{Progress: 40})
	if prog.Percent() != 40 || prog.Label() != "40%" {
		t.Errorf("Expected 40%%, got %v %q", prog.Percent(), prog.Label())
	}
	h.event(realtime.ScanProgress{Progress: 150, Message: "Scanning 192.168.1.0/24..."})
	if prog.Percent() != 100 || prog.Label() != "Scanning 192.168.1.0/24..." {
		t.Errorf("Expected clamped progress with message, got %v %q", prog.Percent(), prog.Label())
	}

	h.event(realtime.ScanCompleted{DevicesFound: 7})
	if ctrl.Label() != "Start Manual Scan" || ctrl.Disabled() || prog.Visible() {
		t.Error("Expected scan control restored and progress hidden")
	}
	if !h.notified(ui.LevelSuccess, "Scan completed! Found 7 devices.") {
		t.Error("Expected scan completed notification")
	}
	if h.backend.count("scanning") != 1 || h.backend.count("devices") != 1 {
		t.Errorf("Expected exactly one reload, got scanning=%d devices=%d", h.backend.count("scanning"), h.backend.count("devices"))
	}
	if h.ctrl.State().ScanInProgress() {
		t.Error("Expected scan flag cleared")
	}
}

func TestScanCompleted_DashboardReloadsOnce(t *testing.T) {
	h := newHarness(t, ui.ViewDashboard)
	h.event(realtime.ScanCompleted{DevicesFound: 0})

	if h.backend.count("inventory") != 1 || h.backend.count("devices") != 1 {
		t.Errorf("Expected one dashboard reload, got inventory=%d devices=%d", h.backend.count("inventory"), h.backend.count("devices"))
	}
	if counter(t, h.page, ui.CounterActive) != 2 {
		t.Errorf("Expected 2 active devices, got %d", counter(t, h.page, ui.CounterActive))
	}
	if counter(t, h.page, ui.CounterNewDevices) != 1 {
		t.Errorf("Expected 1 new device, got %d", counter(t, h.page, ui.CounterNewDevices))
	}
	if counter(t, h.page, ui.CounterInventory) != 1 {
		t.Errorf("Expected 1 inventory item, got %d", counter(t, h.page, ui.CounterInventory))
	}
	if text, _ := h.page.LastScan(); text.Value() == "Never" {
		t.Error("Expected last scan time to be set")
	}
}

func TestScanError(t *testing.T) {
	h := newHarness(t, ui.ViewDashboard)
	ctrl, _ := h.page.ScanControl()

	h.event(realtime.ScanStarted{})
	h.event(realtime.ScanError{Message: "Scan already in progress"})

	if ctrl.Label() != ui.ScanIdleLabel || ctrl.Disabled() {
		t.Error("Expected scan control restored")
	}
	if !h.notified(ui.LevelDanger, "Scan failed: Scan already in progress") {
		t.Error("Expected scan failure notification")
	}
}

func TestInventoryUpdated(t *testing.T) {
	h := newHarness(t, ui.ViewDashboard)

	h.event(realtime.InventoryUpdated{Action: "added"})
	h.event(realtime.InventoryUpdated{Action: "updated"})
	if counter(t, h.page, ui.CounterInventory) != 1 {
		t.Errorf("Expected inventory counter 1, got %d", counter(t, h.page, ui.CounterInventory))
	}
	if !h.notified(ui.LevelSuccess, "Inventory updated") {
		t.Error("Expected inventory notification")
	}
	if h.backend.count("inventory") != 0 {
		t.Error("Expected no inventory reload outside the inventory view")
	}

	inv := newHarness(t, ui.ViewInventory)
	inv.event(realtime.InventoryUpdated{Action: "deleted"})
	eventually(t, "inventory reload", func() bool {
		inv.settle()
		return inv.backend.count("inventory") == 1
	})
}

func TestConnectionIndicator(t *testing.T) {
	h := newHarness(t, ui.ViewDashboard)
	tests := []struct {
		state realtime.State
		text  string
	}{
		{realtime.StateConnecting, "Connecting..."},
		{realtime.StateConnected, "Live"},
		{realtime.StateDisconnected, "Reconnecting..."},
		{realtime.StateError, "Offline"},
	}

	for _, tt := range tests {
		h.ctrl.ConnectionChanged(tt.state)
		h.settle()
		if got := h.page.Indicator().Text(); got != tt.text {
			t.Errorf("State %s: expected %q, got %q", tt.state, tt.text, got)
		}
	}
}

func TestConnectionLossReleasesScan(t *testing.T) {
	for _, lost := range []realtime.State{realtime.StateDisconnected, realtime.StateError} {
		t.Run(lost.String(), func(t *testing.T) {
			h := newHarness(t, ui.ViewInventory)
			scanner := &fakeScanner{fallback: true}
			h.ctrl.Attach(scanner)

			h.event(realtime.ScanStarted{})
			h.ctrl.ConnectionChanged(lost)
			h.settle()

			if h.ctrl.State().ScanInProgress() {
				t.Fatal("Expected scan flag cleared after the channel was lost")
			}

			h.ctrl.AutoRefresh(context.Background())
			h.settle()
			if h.backend.count("inventory") != 1 {
				t.Errorf("Expected auto refresh to reload after channel loss, got %d", h.backend.count("inventory"))
			}

			h.ctrl.SwitchView(ui.ViewScanning)
			h.settle()
			ctrl, _ := h.page.ScanControl()
			if ctrl.Disabled() || ctrl.Label() != ui.ScanIdleLabel {
				t.Errorf("Expected idle scan control, got %q disabled=%v", ctrl.Label(), ctrl.Disabled())
			}

			h.ctrl.StartScan()
			h.settle()
			if scanner.calls != 1 {
				t.Errorf("Expected manual scan to reach the scanner, got %d calls", scanner.calls)
			}
			if !h.notified(ui.LevelWarning, "Not connected to real-time server. Using fallback scan.") {
				t.Error("Expected fallback warning")
			}
		})
	}
}

func TestStartScan(t *testing.T) {
	tests := []struct {
		name     string
		scanner  *fakeScanner
		wantNote string
		level    ui.Level
		busy     bool
	}{
		{"realtime", &fakeScanner{}, "", "", true},
		{"fallback", &fakeScanner{fallback: true}, "Not connected to real-time server. Using fallback scan.", ui.LevelWarning, false},
		{"failure", &fakeScanner{err: errors.New("connection refused")}, "Scan failed: connection refused", ui.LevelDanger, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, ui.ViewScanning)
			h.ctrl.Attach(tt.scanner)

			h.ctrl.StartScan()
			h.ctrl.StartScan()
			h.settle()

			if tt.scanner.calls != 1 {
				t.Errorf("Expected one scan request, got %d", tt.scanner.calls)
			}
			if tt.wantNote != "" && !h.notified(tt.level, tt.wantNote) {
				t.Errorf("Expected notification %q", tt.wantNote)
			}
			ctrl, _ := h.page.ScanControl()
			if ctrl.Disabled() != tt.busy || h.ctrl.State().ScanInProgress() != tt.busy {
				t.Errorf("Expected busy=%v, got disabled=%v", tt.busy, ctrl.Disabled())
			}
		})
	}
}

func TestBulkIgnore(t *testing.T) {
	h := newHarness(t, ui.ViewScanning)

	h.ctrl.BulkIgnore()
	h.settle()
	if !h.notified(ui.LevelWarning, "No devices selected") {
		t.Error("Expected warning with empty selection")
	}

	h.ctrl.Start()
	h.settle()
	h.ctrl.ToggleSelect(4)
	h.ctrl.ToggleSelect(1)
	h.settle()

	h.ctrl.BulkIgnore()
	h.settle()

	if !slices.Equal(h.backend.ignored, []int{1, 4}) {
		t.Errorf("Expected ids [1 4], got %v", h.backend.ignored)
	}
	if !h.notified(ui.LevelInfo, "2 devices ignored") {
		t.Error("Expected bulk ignore notification")
	}
	if len(h.ctrl.State().SelectedDevices()) != 0 {
		t.Error("Expected selection cleared")
	}
}

func TestBulkUnignore(t *testing.T) {
	h := newHarness(t, ui.ViewScanning)

	h.ctrl.BulkUnignore()
	h.settle()
	if !h.notified(ui.LevelWarning, "No devices selected") {
		t.Error("Expected warning with empty selection")
	}

	h.ctrl.Start()
	h.settle()
	h.ctrl.ToggleSelect(4)
	h.ctrl.ToggleSelect(99)
	h.settle()

	if got := h.ctrl.State().SelectedDevices(); !slices.Equal(got, []int{4}) {
		t.Fatalf("Expected unknown device ignored, got %v", got)
	}

	h.ctrl.BulkUnignore()
	h.settle()

	if !slices.Equal(h.backend.unignored, []int{4}) {
		t.Errorf("Expected ids [4], got %v", h.backend.unignored)
	}
	if !h.notified(ui.LevelInfo, "Devices unignored successfully") {
		t.Error("Expected fallback unignore message")
	}
	if len(h.ctrl.State().SelectedDevices()) != 0 {
		t.Error("Expected selection cleared")
	}
}

func TestDeleteItems(t *testing.T) {
	h := newHarness(t, ui.ViewInventory)
	h.backend.inventory = []model.InventoryItem{{ID: 3, Name: "Switch"}, {ID: 1, Name: "NAS"}}

	h.ctrl.DeleteItems()
	h.settle()
	if !h.notified(ui.LevelWarning, "No items selected") {
		t.Error("Expected warning with empty selection")
	}

	h.ctrl.Start()
	h.settle()
	h.ctrl.ToggleItem(3)
	h.ctrl.ToggleItem(1)
	h.ctrl.ToggleItem(42)
	h.settle()

	table, _ := h.page.InventoryTable()
	if !table.Selected(3) || !table.Selected(1) || table.Selected(42) {
		t.Error("Expected rows 1 and 3 marked selected")
	}

	// Selections survive a reload of the same items
	h.ctrl.ReloadView()
	h.settle()
	if !table.Selected(3) {
		t.Error("Expected selection restored after reload")
	}

	h.ctrl.DeleteItems()
	h.settle()

	if !slices.Equal(h.backend.deleted, []int{1, 3}) {
		t.Errorf("Expected ids [1 3], got %v", h.backend.deleted)
	}
	if !h.notified(ui.LevelInfo, "Successfully deleted 2 item(s)") {
		t.Error("Expected bulk delete notification")
	}
	if len(h.ctrl.State().SelectedItems()) != 0 {
		t.Error("Expected selection cleared")
	}
	if table.Selected(3) {
		t.Error("Expected table selection cleared by the reload")
	}
}

func TestState_SetInventoryPrunesSelection(t *testing.T) {
	s := NewState(ui.ViewInventory)
	s.SetInventory([]model.InventoryItem{{ID: 1}, {ID: 2}})
	s.ToggleItem(1)
	s.ToggleItem(2)

	s.SetInventory([]model.InventoryItem{{ID: 2}})

	if got := s.SelectedItems(); !slices.Equal(got, []int{2}) {
		t.Errorf("Expected [2], got %v", got)
	}
	if s.ItemSelected(1) {
		t.Error("Expected item 1 pruned")
	}
}

func TestAutoRefresh(t *testing.T) {
	h := newHarness(t, ui.ViewInventory)

	h.ctrl.AutoRefresh(context.Background())
	h.settle()
	if h.backend.count("inventory") != 1 {
		t.Errorf("Expected auto refresh reload, got %d", h.backend.count("inventory"))
	}

	h.ctrl.State().SetScanInProgress(true)
	h.ctrl.AutoRefresh(context.Background())
	h.settle()
	if h.backend.count("inventory") != 1 {
		t.Error("Expected auto refresh skipped during scan")
	}
}

func TestReloadFailureNotifies(t *testing.T) {
	h := newHarness(t, ui.ViewDashboard)
	h.backend.err = errors.New("server down")

	h.ctrl.ReloadView()
	h.settle()
	if !h.notified(ui.LevelDanger, "Error loading dashboard data") {
		t.Error("Expected danger notification on reload failure")
	}

	h.page.Dismiss(h.page.Notifications()[0].ID)
	h.event(realtime.DeviceStatusChanges{})
	if len(h.page.Notifications()) != 0 {
		t.Error("Expected chart reload failures to stay silent")
	}
}

func TestSwitchView(t *testing.T) {
	h := newHarness(t, ui.ViewDashboard)
	h.event(realtime.ScanStarted{})

	h.ctrl.SwitchView(ui.ViewCategories)
	h.settle()
	if h.page.View() != ui.ViewCategories || h.ctrl.State().View() != ui.ViewCategories {
		t.Fatalf("Expected categories view, got %s", h.page.View())
	}
	if len(h.ctrl.State().Categories()) != 1 {
		t.Error("Expected categories loaded")
	}

	h.ctrl.SwitchView(ui.ViewScanning)
	h.settle()
	ctrl, _ := h.page.ScanControl()
	if !ctrl.Disabled() {
		t.Error("Expected running scan to carry over to the new view")
	}
}

func TestRecentActivity(t *testing.T) {
	var devices []model.Device
	for i := 0; i < 12; i++ {
		devices = append(devices, model.Device{ID: i + 1, Hostname: fmt.Sprintf("d%d", i), FirstSeen: model.Time{Time: testNow.Add(-time.Duration(i) * time.Hour)}})
	}
	devices = append(devices, model.Device{ID: 99, Hostname: "old", FirstSeen: model.Time{Time: testNow.Add(-30 * 24 * time.Hour)}})
	items := []model.InventoryItem{{Name: "NAS", CreatedAt: model.Time{Time: testNow.Add(-90 * time.Minute)}}}

	entries := recentActivity(devices, items, testNow)
	if len(entries) != 8 {
		t.Fatalf("Expected 8 entries, got %d", len(entries))
	}
	if entries[0].Detail != "d0 (Unknown vendor)" {
		t.Errorf("Expected newest device first, got %q", entries[0].Detail)
	}
	if entries[2].Title != "Added to Inventory" || entries[2].Detail != "NAS (Uncategorized)" {
		t.Errorf("Expected inventory entry in time order, got %+v", entries[2])
	}
}

func TestWarrantySummary(t *testing.T) {
	items := []model.InventoryItem{
		{WarrantyExpiry: model.Time{Time: testNow.Add(-24 * time.Hour)}},
		{WarrantyExpiry: model.Time{Time: testNow.Add(10 * 24 * time.Hour)}},
		{WarrantyExpiry: model.Time{Time: testNow.Add(200 * 24 * time.Hour)}},
		{},
	}
	if got := warrantySummary(items, testNow); got != "Warranties: 1 expiring soon, 1 expired" {
		t.Errorf("Unexpected summary %q", got)
	}
	if got := warrantySummary(nil, testNow); got != "" {
		t.Errorf("Expected empty summary, got %q", got)
	}
}
