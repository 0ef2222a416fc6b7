package dashboard

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/martinsuchenak/hometier/internal/log"
	"github.com/martinsuchenak/hometier/internal/model"
	"github.com/martinsuchenak/hometier/internal/ui"
)

const (
	recentWindow      = 7 * 24 * time.Hour
	recentActivityMax = 8
	recentDeviceMax   = 10
	recentItemMax     = 5
	lastScanLayout    = "2006-01-02 15:04:05"
)

// reloadView loads the data of the active view; runs on the UI loop
func (c *Controller) reloadView() {
	switch c.state.View() {
	case ui.ViewDashboard:
		c.loadDashboard()
	case ui.ViewScanning:
		c.loadScanning()
	case ui.ViewInventory:
		c.loadInventory()
	case ui.ViewCategories:
		c.loadCategories()
	}
}

type chartData struct {
	devices   []model.Device
	inventory []model.InventoryItem
	stats     *model.DashboardStats
	timeline  []model.TimelinePoint
}

func (c *Controller) fetchCharts(ctx context.Context) (chartData, error) {
	var data chartData
	var err error

	if data.devices, err = c.backend.ListDevices(ctx); err != nil {
		return data, err
	}
	if data.inventory, err = c.backend.ListInventory(ctx); err != nil {
		return data, err
	}

	if stats, err := c.backend.DashboardStats(ctx); err != nil {
		log.Debug("Dashboard stats unavailable", "error", err)
	} else {
		data.stats = &stats
	}
	if data.timeline, err = c.backend.DeviceTimeline(ctx, c.opts.TimelineDays); err != nil {
		log.Debug("Device timeline unavailable", "error", err)
	}
	return data, nil
}

// loadDashboard refreshes counters, charts and the activity feed
func (c *Controller) loadDashboard() {
	c.background("dashboard", func(ctx context.Context) func() {
		data, err := c.fetchCharts(ctx)
		if err != nil {
			log.Error("Error loading dashboard data", "error", err)
			return func() { c.page.Notify(ui.LevelDanger, "Error loading dashboard data") }
		}
		return func() { c.applyDashboard(data) }
	})
}

// loadCharts refreshes only the charts; failures are logged, never shown
func (c *Controller) loadCharts() {
	c.background("charts", func(ctx context.Context) func() {
		data, err := c.fetchCharts(ctx)
		if err != nil {
			log.Warn("Error loading chart data", "error", err)
			return nil
		}
		return func() { c.applyCharts(data) }
	})
}

func (c *Controller) applyDashboard(data chartData) {
	now := c.opts.Now()
	c.state.SetDevices(data.devices)
	c.state.SetInventory(data.inventory)

	active, fresh := 0, 0
	var lastSeen time.Time
	for _, d := range data.devices {
		if !d.LastSeen.IsZero() && now.Sub(d.LastSeen.Time) < model.OnlineWindow {
			active++
		}
		if !d.FirstSeen.IsZero() && now.Sub(d.FirstSeen.Time) < model.OnlineWindow {
			fresh++
		}
		if d.LastSeen.After(lastSeen) {
			lastSeen = d.LastSeen.Time
		}
	}
	c.setCounter(ui.CounterActive, active)
	c.setCounter(ui.CounterNewDevices, fresh)
	c.setCounter(ui.CounterInventory, len(data.inventory))

	if text, ok := c.page.LastScan(); ok && !lastSeen.IsZero() {
		text.Set(lastSeen.Local().Format(lastScanLayout))
	}

	c.applyCharts(data)
}

func (c *Controller) applyCharts(data chartData) {
	now := c.opts.Now()

	counts := model.CountStatuses(data.devices, now)
	if chart, ok := c.page.StatusChart(); ok {
		chart.SetSeries(counts.Series(), true)
		c.setCounter(ui.CounterOnline, counts.Online)
		c.setCounter(ui.CounterOffline, counts.Offline)
		c.setCounter(ui.CounterUnknown, counts.Unknown)
	}
	if chart, ok := c.page.CategoryChart(); ok && data.stats != nil {
		chart.Set(data.stats.CategoryStats)
	}
	if chart, ok := c.page.TimelineChart(); ok && data.timeline != nil {
		chart.Set(data.timeline)
	}
	if text, ok := c.page.WarrantySummary(); ok {
		text.Set(warrantySummary(data.inventory, now))
	}
	if feed, ok := c.page.ActivityFeed(); ok {
		feed.Replace(recentActivity(data.devices, data.inventory, now))
	}
}

// loadScanning refreshes the scanning stats and the recent devices table
func (c *Controller) loadScanning() {
	c.background("scanning", func(ctx context.Context) func() {
		stats, statsErr := c.backend.ScanningStats(ctx)
		devices, devErr := c.backend.ListDevices(ctx)

		return func() {
			if statsErr != nil {
				log.Error("Error loading scanning data", "error", statsErr)
				c.page.Notify(ui.LevelDanger, "Error loading scanning data")
			} else {
				c.setCounter(ui.CounterTotalDevices, stats.TotalDevices)
				c.setCounter(ui.CounterManaged, stats.ManagedDevices)
				c.setCounter(ui.CounterUnmanaged, stats.UnmanagedDevices)
				c.setCounter(ui.CounterIgnored, stats.IgnoredDevices)
			}

			if devErr != nil {
				log.Error("Error loading devices", "error", devErr)
				c.page.Notify(ui.LevelDanger, "Error loading devices")
				return
			}
			c.state.SetDevices(devices)
			if table, ok := c.page.DeviceTable(); ok {
				table.SetDevices(devices, c.opts.Now())
				for _, d := range devices {
					if row, ok := c.page.DeviceRow(d.ID); ok {
						row.SetSelected(c.state.DeviceSelected(d.ID))
					}
				}
			}
		}
	})
}

// loadInventory refreshes the inventory table and counter
func (c *Controller) loadInventory() {
	c.background("inventory", func(ctx context.Context) func() {
		items, err := c.backend.ListInventory(ctx)
		if err != nil {
			log.Error("Error loading inventory data", "error", err)
			return func() { c.page.Notify(ui.LevelDanger, "Error loading inventory data") }
		}
		return func() {
			c.state.SetInventory(items)
			if table, ok := c.page.InventoryTable(); ok {
				table.Set(items)
				for _, id := range c.state.SelectedItems() {
					table.SetSelected(id, true)
				}
			}
			c.setCounter(ui.CounterInventory, len(items))
		}
	})
}

// loadCategories refreshes the category list
func (c *Controller) loadCategories() {
	c.background("categories", func(ctx context.Context) func() {
		categories, err := c.backend.ListCategories(ctx)
		if err != nil {
			log.Error("Error loading categories", "error", err)
			return func() { c.page.Notify(ui.LevelDanger, "Error loading categories") }
		}
		return func() {
			c.state.SetCategories(categories)
			if list, ok := c.page.CategoryList(); ok {
				list.Set(categories)
			}
		}
	})
}

// recentActivity merges devices and inventory items first seen or added in the last
// week, newest first
func recentActivity(devices []model.Device, items []model.InventoryItem, now time.Time) []ui.ActivityEntry {
	cutoff := now.Add(-recentWindow)

	recentDevices := slices.DeleteFunc(slices.Clone(devices), func(d model.Device) bool {
		return !d.FirstSeen.After(cutoff)
	})
	slices.SortFunc(recentDevices, func(a, b model.Device) int {
		return b.FirstSeen.Compare(a.FirstSeen.Time)
	})
	if len(recentDevices) > recentDeviceMax {
		recentDevices = recentDevices[:recentDeviceMax]
	}

	recentItems := slices.DeleteFunc(slices.Clone(items), func(i model.InventoryItem) bool {
		return !i.CreatedAt.After(cutoff)
	})
	slices.SortFunc(recentItems, func(a, b model.InventoryItem) int {
		return b.CreatedAt.Compare(a.CreatedAt.Time)
	})
	if len(recentItems) > recentItemMax {
		recentItems = recentItems[:recentItemMax]
	}

	entries := make([]ui.ActivityEntry, 0, len(recentDevices)+len(recentItems))
	for _, d := range recentDevices {
		vendor := d.Vendor
		if vendor == "" {
			vendor = "Unknown vendor"
		}
		entries = append(entries, ui.ActivityEntry{
			Title:  "Device Discovered",
			Detail: fmt.Sprintf("%s (%s)", d.DisplayName(), vendor),
			Time:   d.FirstSeen.Time,
			Level:  ui.LevelInfo,
		})
	}
	for _, it := range recentItems {
		entries = append(entries, ui.ActivityEntry{
			Title:  "Added to Inventory",
			Detail: fmt.Sprintf("%s (%s)", it.Name, it.CategoryLabel()),
			Time:   it.CreatedAt.Time,
			Level:  ui.LevelSuccess,
		})
	}

	slices.SortStableFunc(entries, func(a, b ui.ActivityEntry) int {
		return b.Time.Compare(a.Time)
	})
	if len(entries) > recentActivityMax {
		entries = entries[:recentActivityMax]
	}
	return entries
}

func warrantySummary(items []model.InventoryItem, now time.Time) string {
	expiring, expired := 0, 0
	for _, it := range items {
		switch state, _ := it.Warranty(now); state {
		case model.WarrantyExpiring:
			expiring++
		case model.WarrantyExpired:
			expired++
		}
	}
	if expiring == 0 && expired == 0 {
		return ""
	}
	return fmt.Sprintf("Warranties: %d expiring soon, %d expired", expiring, expired)
}
