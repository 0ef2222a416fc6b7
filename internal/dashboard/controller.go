// Package dashboard applies realtime events, reloads and user actions to the view.
//
// Every change to the page runs on the UI loop. Network fetches run on the worker pool
// and post their results back to the loop; nothing cancels an older fetch, so the last
// response to arrive wins.
package dashboard

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/martinsuchenak/hometier/internal/log"
	"github.com/martinsuchenak/hometier/internal/model"
	"github.com/martinsuchenak/hometier/internal/realtime"
	"github.com/martinsuchenak/hometier/internal/ui"
	"github.com/martinsuchenak/hometier/internal/worker"
)

// Backend is the REST API the dashboard reads from
type Backend interface {
	ListDevices(ctx context.Context) ([]model.Device, error)
	DeviceTimeline(ctx context.Context, days int) ([]model.TimelinePoint, error)
	ListInventory(ctx context.Context) ([]model.InventoryItem, error)
	ListCategories(ctx context.Context) ([]model.Category, error)
	DashboardStats(ctx context.Context) (model.DashboardStats, error)
	ScanningStats(ctx context.Context) (model.ScanningStats, error)
	BulkIgnore(ctx context.Context, ids []int) (model.BulkResult, error)
	BulkUnignore(ctx context.Context, ids []int) (model.BulkResult, error)
	BulkDeleteInventory(ctx context.Context, ids []int) (model.BulkResult, error)
}

// Scanner starts a network scan; fallback reports that the HTTP path was used
type Scanner interface {
	RequestScan(ctx context.Context) (fallback bool, err error)
}

// Delays are the timings of the transient view effects
type Delays struct {
	Flash           time.Duration
	NewDeviceReload time.Duration
	Highlight       time.Duration
	InventoryReload time.Duration
}

func DefaultDelays() Delays {
	return Delays{
		Flash:           500 * time.Millisecond,
		NewDeviceReload: time.Second,
		Highlight:       3 * time.Second,
		InventoryReload: 500 * time.Millisecond,
	}
}

type Options struct {
	Delays       Delays
	TimelineDays int
	Now          func() time.Time
}

// Controller owns the application state and drives the page
type Controller struct {
	backend Backend
	page    *ui.Page
	loop    *worker.Loop
	pool    *worker.Pool
	state   *State
	opts    Options

	mu      sync.Mutex
	scanner Scanner
}

var (
	_ realtime.Handler = (*Controller)(nil)
	_ ui.Actions       = (*Controller)(nil)
)

func New(backend Backend, page *ui.Page, loop *worker.Loop, pool *worker.Pool, opts Options) *Controller {
	if opts.Delays == (Delays{}) {
		opts.Delays = DefaultDelays()
	}
	if opts.TimelineDays <= 0 {
		opts.TimelineDays = 7
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Controller{
		backend: backend,
		page:    page,
		loop:    loop,
		pool:    pool,
		state:   NewState(page.View()),
		opts:    opts,
	}
}

// State exposes the application state
func (c *Controller) State() *State {
	return c.state
}

// Attach sets the scan trigger; the realtime client is created after the controller
func (c *Controller) Attach(s Scanner) {
	c.mu.Lock()
	c.scanner = s
	c.mu.Unlock()
}

func (c *Controller) scannerRef() Scanner {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.scanner
}

// Start performs the initial load of the active view
func (c *Controller) Start() {
	c.loop.Post(func() {
		c.page.Indicator().Set("Connecting...", ui.LevelInfo)
		c.reloadView()
	})
}

// HandleEvent queues an inbound realtime event for the UI loop
func (c *Controller) HandleEvent(ctx context.Context, ev realtime.Event) {
	c.loop.Post(func() { c.apply(ev) })
}

// ConnectionChanged queues an indicator update for the UI loop
func (c *Controller) ConnectionChanged(s realtime.State) {
	c.loop.Post(func() { c.onConnectionChanged(s) })
}

// ReloadView reloads everything the active view shows
func (c *Controller) ReloadView() {
	c.loop.Post(c.reloadView)
}

// SwitchView shows another view and loads its data
func (c *Controller) SwitchView(view ui.View) {
	c.loop.Post(func() {
		if c.state.View() == view {
			return
		}
		c.state.SetView(view)
		c.page.SetView(view)
		c.restoreScanWidgets()
		c.reloadView()
	})
}

// ToggleSelect flips the selection of a device row; unknown ids are ignored
func (c *Controller) ToggleSelect(deviceID int) {
	c.loop.Post(func() {
		if !slices.ContainsFunc(c.state.Devices(), func(d model.Device) bool { return d.ID == deviceID }) {
			return
		}
		selected := c.state.ToggleDevice(deviceID)
		if row, ok := c.page.DeviceRow(deviceID); ok {
			row.SetSelected(selected)
		}
	})
}

// ToggleItem flips the selection of an inventory row
func (c *Controller) ToggleItem(itemID int) {
	c.loop.Post(func() {
		if !slices.ContainsFunc(c.state.Inventory(), func(i model.InventoryItem) bool { return i.ID == itemID }) {
			return
		}
		selected := c.state.ToggleItem(itemID)
		if table, ok := c.page.InventoryTable(); ok {
			table.SetSelected(itemID, selected)
		}
	})
}

// AutoRefresh is the periodic job: reload the active view unless a scan is running
func (c *Controller) AutoRefresh(ctx context.Context) error {
	c.loop.Post(func() {
		if c.state.ScanInProgress() {
			log.Debug("Skipping auto refresh during scan")
			return
		}
		c.reloadView()
	})
	return nil
}

// StartScan triggers a manual scan, over the realtime channel when it is up
func (c *Controller) StartScan() {
	c.loop.Post(c.startScan)
}

func (c *Controller) startScan() {
	scanner := c.scannerRef()
	if scanner == nil || c.state.ScanInProgress() {
		return
	}

	c.state.SetScanInProgress(true)
	c.showScanning()

	c.background("scan", func(ctx context.Context) func() {
		fallback, err := scanner.RequestScan(ctx)
		return func() {
			if fallback {
				c.page.Notify(ui.LevelWarning, "Not connected to real-time server. Using fallback scan.")
			}
			if err != nil {
				c.finishScan()
				c.page.Notify(ui.LevelDanger, "Scan failed: "+errorMessage(err))
				return
			}
			if fallback {
				// No progress events will arrive without the channel
				c.finishScan()
				c.page.Notify(ui.LevelInfo, "Network scan started. Results will appear after the next refresh.")
				c.reloadView()
			}
		}
	})
}

// BulkIgnore ignores every selected device
func (c *Controller) BulkIgnore() {
	c.bulkDevices("bulk-ignore", c.backend.BulkIgnore, "Devices ignored successfully")
}

// BulkUnignore brings every selected device back from the ignored list
func (c *Controller) BulkUnignore() {
	c.bulkDevices("bulk-unignore", c.backend.BulkUnignore, "Devices unignored successfully")
}

// DeleteItems deletes every selected inventory item
func (c *Controller) DeleteItems() {
	c.loop.Post(func() {
		c.bulk("bulk-delete", c.state.SelectedItems(), "No items selected",
			c.backend.BulkDeleteInventory, "Items deleted successfully", c.state.ClearItemSelection)
	})
}

func (c *Controller) bulkDevices(name string, call bulkCall, fallback string) {
	c.loop.Post(func() {
		c.bulk(name, c.state.SelectedDevices(), "No devices selected", call, fallback, c.state.ClearDeviceSelection)
	})
}

type bulkCall func(ctx context.Context, ids []int) (model.BulkResult, error)

// bulk runs call for ids, then clears the selection and reloads the view on success
func (c *Controller) bulk(name string, ids []int, empty string, call bulkCall, fallback string, clearSelection func()) {
	if len(ids) == 0 {
		c.page.Notify(ui.LevelWarning, empty)
		return
	}

	c.background(name, func(ctx context.Context) func() {
		result, err := call(ctx, ids)
		return func() {
			if err != nil {
				c.page.Notify(ui.LevelDanger, "Error: "+errorMessage(err))
				return
			}
			msg := result.Message
			if msg == "" {
				msg = fallback
			}
			c.page.Notify(ui.LevelInfo, msg)
			clearSelection()
			c.reloadView()
		}
	})
}

// background runs fetch on the worker pool and posts the returned function to the loop
func (c *Controller) background(name string, fetch func(ctx context.Context) func()) {
	err := c.pool.Submit(worker.Job{
		Name: name,
		Run: func(ctx context.Context) {
			if apply := fetch(ctx); apply != nil {
				c.loop.Post(apply)
			}
		},
	})
	if err != nil {
		log.Debug("Dropping background job", "job", name, "error", err)
	}
}

func (c *Controller) showScanning() {
	if ctrl, ok := c.page.ScanControl(); ok {
		ctrl.Set(ui.ScanBusyLabel, true)
	}
	if prog, ok := c.page.ScanProgress(); ok {
		prog.Show()
	}
}

func (c *Controller) finishScan() {
	c.state.SetScanInProgress(false)
	if ctrl, ok := c.page.ScanControl(); ok {
		ctrl.Set(ui.ScanIdleLabel, false)
	}
	if prog, ok := c.page.ScanProgress(); ok {
		prog.Hide()
	}
}

// restoreScanWidgets carries a running scan over to a freshly built view
func (c *Controller) restoreScanWidgets() {
	if c.state.ScanInProgress() {
		c.showScanning()
	}
}
