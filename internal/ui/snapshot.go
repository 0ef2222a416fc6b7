package ui

import "github.com/martinsuchenak/hometier/internal/model"

// Snapshot is an immutable copy of the page for rendering
type Snapshot struct {
	View          View
	Indicator     string
	IndicatorTone Level
	Notifications []Notification

	Counters []CounterValue

	StatusChart   *StatusSeries
	CategoryChart []model.CategoryStat
	Timeline      []model.TimelinePoint
	HasCharts     bool

	Devices    []DeviceRowView
	HasDevices bool

	Inventory    []InventoryRowView
	HasInventory bool

	Categories    []model.Category
	HasCategories bool

	Activity    []ActivityEntry
	HasActivity bool

	Scan     *ScanView
	LastScan string
	Warranty string
}

type CounterValue struct {
	ID    CounterID
	Value int
}

type StatusSeries struct {
	Series [3]int
}

type DeviceRowView struct {
	Device   model.Device
	Status   model.Status
	Flashing bool
	Selected bool
}

type InventoryRowView struct {
	Item     model.InventoryItem
	Selected bool
}

type ScanView struct {
	Label           string
	Disabled        bool
	ProgressVisible bool
	Percent         float64
	ProgressLabel   string
}

// Snapshot copies the current widget state
func (p *Page) Snapshot() Snapshot {
	p.mu.Lock()
	p.notifications = p.pruneNotifications(p.now())
	p.mu.Unlock()

	p.mu.RLock()
	defer p.mu.RUnlock()

	s := Snapshot{
		View:          p.view,
		Indicator:     p.indicator.text,
		IndicatorTone: p.indicator.level,
		Notifications: append([]Notification(nil), p.notifications...),
	}

	for _, id := range viewCounters[p.view] {
		if c, ok := p.counters[id]; ok {
			s.Counters = append(s.Counters, CounterValue{ID: id, Value: c.value})
		}
	}

	if p.statusChart != nil {
		s.StatusChart = &StatusSeries{Series: p.statusChart.series}
	}
	if p.categoryChart != nil {
		s.CategoryChart = append(s.CategoryChart, p.categoryChart.stats...)
	}
	if p.timelineChart != nil {
		s.Timeline = append(s.Timeline, p.timelineChart.points...)
	}
	s.HasCharts = p.statusChart != nil || p.categoryChart != nil || p.timelineChart != nil

	if p.deviceTable != nil {
		s.HasDevices = true
		for _, r := range p.deviceTable.rows {
			s.Devices = append(s.Devices, DeviceRowView{
				Device:   r.device,
				Status:   r.status,
				Flashing: r.flashing,
				Selected: r.selected,
			})
		}
	}
	if p.inventoryTable != nil {
		s.HasInventory = true
		for _, it := range p.inventoryTable.items {
			s.Inventory = append(s.Inventory, InventoryRowView{Item: it, Selected: p.inventoryTable.selected[it.ID]})
		}
	}
	if p.categoryList != nil {
		s.HasCategories = true
		s.Categories = append(s.Categories, p.categoryList.categories...)
	}
	if p.activity != nil {
		s.HasActivity = true
		s.Activity = append(s.Activity, p.activity.entries...)
	}

	if p.scanControl != nil {
		s.Scan = &ScanView{Label: p.scanControl.label, Disabled: p.scanControl.disabled}
		if p.scanProgress != nil {
			s.Scan.ProgressVisible = p.scanProgress.visible
			s.Scan.Percent = p.scanProgress.percent
			s.Scan.ProgressLabel = p.scanProgress.label
		}
	}
	if p.lastScan != nil {
		s.LastScan = p.lastScan.value
	}
	if p.warranty != nil {
		s.Warranty = p.warranty.value
	}
	return s
}
