package dashboard

import (
	"errors"
	"fmt"

	"github.com/martinsuchenak/hometier/internal/api"
	"github.com/martinsuchenak/hometier/internal/log"
	"github.com/martinsuchenak/hometier/internal/model"
	"github.com/martinsuchenak/hometier/internal/realtime"
	"github.com/martinsuchenak/hometier/internal/ui"
)

// apply dispatches one event; runs on the UI loop
func (c *Controller) apply(ev realtime.Event) {
	switch e := ev.(type) {
	case realtime.DeviceStatusChanges:
		c.onStatusChanges(e)
	case realtime.StatusCounts:
		c.onStatusCounts(e)
	case realtime.NewDevicesDiscovered:
		c.onNewDevices(e)
	case realtime.ScanStarted:
		c.onScanStarted(e)
	case realtime.ScanProgress:
		c.onScanProgress(e)
	case realtime.ScanCompleted:
		c.onScanCompleted(e)
	case realtime.ScanError:
		c.onScanError(e)
	case realtime.InventoryUpdated:
		c.onInventoryUpdated(e)
	case realtime.ServerError:
		c.page.Notify(ui.LevelDanger, e.Message)
	case realtime.ServerHello:
	default:
		log.Debug("Unhandled event", "event", ev.EventName())
	}
}

func (c *Controller) onConnectionChanged(s realtime.State) {
	indicator := c.page.Indicator()
	switch s {
	case realtime.StateConnecting:
		indicator.Set("Connecting...", ui.LevelInfo)
	case realtime.StateConnected:
		indicator.Set("Live", ui.LevelSuccess)
	case realtime.StateDisconnected:
		indicator.Set("Reconnecting...", ui.LevelWarning)
	case realtime.StateError:
		indicator.Set("Offline", ui.LevelDanger)
	}

	// Completion of a scan followed over the channel cannot arrive once it is down
	if (s == realtime.StateDisconnected || s == realtime.StateError) && c.state.ScanInProgress() {
		log.Info("Realtime channel lost during scan, releasing scan control")
		c.finishScan()
	}
}

func (c *Controller) onStatusChanges(e realtime.DeviceStatusChanges) {
	for _, change := range e.Changes {
		name := change.DisplayName()
		switch {
		case change.OldStatus == string(model.StatusOnline) && change.NewStatus == string(model.StatusOffline):
			c.page.Notify(ui.LevelWarning, "Device went offline: "+name)
		case change.OldStatus == string(model.StatusOffline) && change.NewStatus == string(model.StatusOnline):
			c.page.Notify(ui.LevelSuccess, "Device came online: "+name)
		}

		row, ok := c.page.DeviceRow(change.DeviceID)
		if !ok {
			continue
		}
		row.SetStatus(model.Status(change.NewStatus))
		row.SetFlash(true)
		c.loop.AfterFunc(c.opts.Delays.Flash, func() { row.SetFlash(false) })
	}

	if c.page.HasCharts() {
		c.loadCharts()
	}
}

func (c *Controller) onStatusCounts(e realtime.StatusCounts) {
	c.setCounter(ui.CounterOnline, e.Online)
	c.setCounter(ui.CounterOffline, e.Offline)
	c.setCounter(ui.CounterUnknown, e.Unknown)

	if chart, ok := c.page.StatusChart(); ok {
		chart.SetSeries(e.Series(), false)
	}
}

func (c *Controller) onNewDevices(e realtime.NewDevicesDiscovered) {
	name := ""
	if len(e.Devices) > 0 {
		name = e.Devices[0].DisplayName()
	}

	switch {
	case e.Count == 1 && name != "":
		c.page.Notify(ui.LevelInfo, "New device discovered: "+name)
	case e.Count == 1:
		c.page.Notify(ui.LevelInfo, "New device discovered")
	default:
		c.page.Notify(ui.LevelInfo, fmt.Sprintf("%d new devices discovered", e.Count))
	}

	if counter, ok := c.page.Counter(ui.CounterNewDevices); ok {
		counter.Add(e.Count)
	}

	if c.state.View() == ui.ViewScanning {
		c.loop.AfterFunc(c.opts.Delays.NewDeviceReload, c.loadScanning)
	}

	if feed, ok := c.page.ActivityFeed(); ok {
		if name == "" {
			name = "Unknown"
		}
		id := feed.Prepend(ui.ActivityEntry{
			Title:     "Device Discovered",
			Detail:    name,
			Time:      c.opts.Now(),
			Level:     ui.LevelInfo,
			Highlight: true,
		})
		c.loop.AfterFunc(c.opts.Delays.Highlight, func() { feed.SetHighlight(id, false) })
	}
}

func (c *Controller) onScanStarted(realtime.ScanStarted) {
	c.state.SetScanInProgress(true)
	c.showScanning()
	c.page.Notify(ui.LevelInfo, "Network scan started")
}

func (c *Controller) onScanProgress(e realtime.ScanProgress) {
	prog, ok := c.page.ScanProgress()
	if !ok {
		return
	}
	percent := e.Percent()
	label := e.Message
	if label == "" {
		label = fmt.Sprintf("%.0f%%", percent)
	}
	prog.Set(percent, label)
}

func (c *Controller) onScanCompleted(e realtime.ScanCompleted) {
	c.finishScan()
	c.page.Notify(ui.LevelSuccess, fmt.Sprintf("Scan completed! Found %d devices.", e.DevicesFound))
	c.reloadView()
}

func (c *Controller) onScanError(e realtime.ScanError) {
	c.finishScan()
	c.page.Notify(ui.LevelDanger, "Scan failed: "+e.Message)
}

func (c *Controller) onInventoryUpdated(e realtime.InventoryUpdated) {
	c.page.Notify(ui.LevelSuccess, "Inventory updated")

	if c.state.View() == ui.ViewInventory {
		c.loop.AfterFunc(c.opts.Delays.InventoryReload, c.loadInventory)
	}
	if e.Action == "added" {
		if counter, ok := c.page.Counter(ui.CounterInventory); ok {
			counter.Add(1)
		}
	}
}

func (c *Controller) setCounter(id ui.CounterID, n int) {
	if counter, ok := c.page.Counter(id); ok {
		counter.Set(n)
	}
}

// errorMessage prefers the server's own message over the transport wrapping
func errorMessage(err error) string {
	var apiErr *api.Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return err.Error()
}
