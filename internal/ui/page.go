// Package ui holds the widgets of the active view and renders them in the terminal.
//
// Widgets are looked up on the Page; a lookup for a widget the active view does not
// have returns ok == false and callers skip the update. Switching views replaces the
// widget set, so handles taken earlier detach and further updates on them are inert.
package ui

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/martinsuchenak/hometier/internal/model"
)

// View is one screen of the dashboard
type View string

const (
	ViewDashboard  View = "dashboard"
	ViewScanning   View = "scanning"
	ViewInventory  View = "inventory"
	ViewCategories View = "categories"
)

// Views in navigation order
var Views = []View{ViewDashboard, ViewScanning, ViewInventory, ViewCategories}

func (v View) Title() string {
	switch v {
	case ViewDashboard:
		return "Dashboard"
	case ViewScanning:
		return "Network Scanning"
	case ViewInventory:
		return "Inventory"
	case ViewCategories:
		return "Categories"
	}
	return string(v)
}

// Level is the severity of a notification or indicator
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelDanger  Level = "danger"
)

// CounterID names a numeric stat card
type CounterID string

const (
	CounterOnline       CounterID = "online"
	CounterOffline      CounterID = "offline"
	CounterUnknown      CounterID = "unknown"
	CounterNewDevices   CounterID = "new_devices"
	CounterInventory    CounterID = "inventory"
	CounterActive       CounterID = "active_devices"
	CounterTotalDevices CounterID = "total_devices"
	CounterManaged      CounterID = "managed_devices"
	CounterUnmanaged    CounterID = "unmanaged_devices"
	CounterIgnored      CounterID = "ignored_devices"
)

const (
	MaxActivity       = 10
	NotificationTTL   = 5 * time.Second
	maxNotifications  = 5
	ScanIdleLabel     = "Start Manual Scan"
	ScanBusyLabel     = "Scanning..."
	defaultIndicator  = "Connecting..."
	recentDeviceLimit = 10
)

// counters per view, in display order
var viewCounters = map[View][]CounterID{
	ViewDashboard: {CounterActive, CounterNewDevices, CounterInventory, CounterOnline, CounterOffline, CounterUnknown},
	ViewScanning:  {CounterTotalDevices, CounterManaged, CounterUnmanaged, CounterIgnored, CounterNewDevices},
	ViewInventory: {CounterInventory},
}

// Page is the widget set of the active view; all methods are safe for concurrent use
type Page struct {
	mu  sync.RWMutex
	now func() time.Time

	view          View
	indicator     *Indicator
	notifications []Notification
	sink          func(Notification)

	counters       map[CounterID]*Counter
	statusChart    *StatusChart
	categoryChart  *CategoryChart
	timelineChart  *TimelineChart
	deviceTable    *DeviceTable
	inventoryTable *InventoryTable
	categoryList   *CategoryList
	activity       *ActivityFeed
	scanControl    *ScanControl
	scanProgress   *ScanProgress
	lastScan       *Text
	warranty       *Text
}

// NewPage builds the widgets for view
func NewPage(view View) *Page {
	p := &Page{now: time.Now}
	p.indicator = &Indicator{page: p, text: defaultIndicator, level: LevelWarning}
	p.build(view)
	return p
}

// SetClock replaces the time source used for notification expiry
func (p *Page) SetClock(now func() time.Time) {
	p.mu.Lock()
	p.now = now
	p.mu.Unlock()
}

// View returns the active view
func (p *Page) View() View {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.view
}

// SetView swaps in a fresh widget set for view; indicator and notifications survive
func (p *Page) SetView(view View) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.build(view)
}

func (p *Page) build(view View) {
	p.view = view
	p.counters = make(map[CounterID]*Counter)
	for _, id := range viewCounters[view] {
		p.counters[id] = &Counter{page: p}
	}

	p.statusChart, p.categoryChart, p.timelineChart = nil, nil, nil
	p.deviceTable, p.inventoryTable, p.categoryList = nil, nil, nil
	p.activity, p.scanControl, p.scanProgress = nil, nil, nil
	p.lastScan, p.warranty = nil, nil

	switch view {
	case ViewDashboard:
		p.statusChart = &StatusChart{page: p}
		p.categoryChart = &CategoryChart{page: p}
		p.timelineChart = &TimelineChart{page: p}
		p.activity = &ActivityFeed{page: p}
		p.lastScan = &Text{page: p, value: "Never"}
		p.warranty = &Text{page: p}
		p.scanControl = &ScanControl{page: p, label: ScanIdleLabel}
		p.scanProgress = &ScanProgress{page: p}
	case ViewScanning:
		p.deviceTable = &DeviceTable{page: p}
		p.scanControl = &ScanControl{page: p, label: ScanIdleLabel}
		p.scanProgress = &ScanProgress{page: p}
	case ViewInventory:
		p.inventoryTable = &InventoryTable{page: p}
	case ViewCategories:
		p.categoryList = &CategoryList{page: p}
	}
}

// Indicator is the connection status; every view has one
func (p *Page) Indicator() *Indicator {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.indicator
}

func (p *Page) Counter(id CounterID) (*Counter, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	c, ok := p.counters[id]
	return c, ok
}

func (p *Page) StatusChart() (*StatusChart, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.statusChart, p.statusChart != nil
}

func (p *Page) CategoryChart() (*CategoryChart, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.categoryChart, p.categoryChart != nil
}

func (p *Page) TimelineChart() (*TimelineChart, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.timelineChart, p.timelineChart != nil
}

// HasCharts reports whether any chart is on the view
func (p *Page) HasCharts() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.statusChart != nil || p.categoryChart != nil || p.timelineChart != nil
}

func (p *Page) DeviceTable() (*DeviceTable, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.deviceTable, p.deviceTable != nil
}

// DeviceRow finds the table row showing the device
func (p *Page) DeviceRow(deviceID int) (*DeviceRow, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.deviceTable == nil {
		return nil, false
	}
	for _, r := range p.deviceTable.rows {
		if r.device.ID == deviceID {
			return r, true
		}
	}
	return nil, false
}

func (p *Page) InventoryTable() (*InventoryTable, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.inventoryTable, p.inventoryTable != nil
}

func (p *Page) CategoryList() (*CategoryList, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.categoryList, p.categoryList != nil
}

func (p *Page) ActivityFeed() (*ActivityFeed, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.activity, p.activity != nil
}

func (p *Page) ScanControl() (*ScanControl, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.scanControl, p.scanControl != nil
}

func (p *Page) ScanProgress() (*ScanProgress, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.scanProgress, p.scanProgress != nil
}

func (p *Page) LastScan() (*Text, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lastScan, p.lastScan != nil
}

func (p *Page) WarrantySummary() (*Text, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.warranty, p.warranty != nil
}

// Notification is a transient toast
type Notification struct {
	ID      string
	Level   Level
	Message string
	Created time.Time
	Expires time.Time
}

// SetNotificationSink registers fn to receive every notification as it is posted,
// including the ones later evicted from the visible toasts. fn runs on the caller of
// Notify and must not call back into the page.
func (p *Page) SetNotificationSink(fn func(Notification)) {
	p.mu.Lock()
	p.sink = fn
	p.mu.Unlock()
}

// Notify shows a toast that expires after NotificationTTL and returns its id
func (p *Page) Notify(level Level, message string) string {
	p.mu.Lock()
	n := p.addNotification(level, message)
	sink := p.sink
	p.mu.Unlock()

	if sink != nil {
		sink(n)
	}
	return n.ID
}

func (p *Page) addNotification(level Level, message string) Notification {
	now := p.now()
	n := Notification{
		ID:      uuid.NewString(),
		Level:   level,
		Message: message,
		Created: now,
		Expires: now.Add(NotificationTTL),
	}
	p.notifications = append(p.pruneNotifications(now), n)
	if len(p.notifications) > maxNotifications {
		p.notifications = p.notifications[len(p.notifications)-maxNotifications:]
	}
	return n
}

// Dismiss removes a toast before it expires
func (p *Page) Dismiss(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, n := range p.notifications {
		if n.ID == id {
			p.notifications = append(p.notifications[:i:i], p.notifications[i+1:]...)
			return
		}
	}
}

// Notifications returns the live toasts, oldest first
func (p *Page) Notifications() []Notification {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.notifications = p.pruneNotifications(p.now())
	return append([]Notification(nil), p.notifications...)
}

func (p *Page) pruneNotifications(now time.Time) []Notification {
	live := p.notifications[:0]
	for _, n := range p.notifications {
		if now.Before(n.Expires) {
			live = append(live, n)
		}
	}
	return live
}

// Indicator shows the realtime connection state
type Indicator struct {
	page  *Page
	text  string
	level Level
}

func (i *Indicator) Set(text string, level Level) {
	i.page.mu.Lock()
	defer i.page.mu.Unlock()
	i.text, i.level = text, level
}

func (i *Indicator) Text() string {
	i.page.mu.RLock()
	defer i.page.mu.RUnlock()
	return i.text
}

// Counter is a numeric stat card
type Counter struct {
	page  *Page
	value int
}

func (c *Counter) Set(n int) {
	c.page.mu.Lock()
	defer c.page.mu.Unlock()
	c.value = n
}

func (c *Counter) Add(n int) {
	c.page.mu.Lock()
	defer c.page.mu.Unlock()
	c.value += n
}

func (c *Counter) Value() int {
	c.page.mu.RLock()
	defer c.page.mu.RUnlock()
	return c.value
}

// StatusChart is the online/offline/unknown doughnut
type StatusChart struct {
	page     *Page
	series   [3]int
	animated bool
}

// SetSeries replaces the data; the chart starts at zero when its view is built
func (s *StatusChart) SetSeries(series [3]int, animate bool) {
	s.page.mu.Lock()
	defer s.page.mu.Unlock()
	s.series = series
	s.animated = animate
}

func (s *StatusChart) Series() [3]int {
	s.page.mu.RLock()
	defer s.page.mu.RUnlock()
	return s.series
}

// CategoryChart is the inventory breakdown by category
type CategoryChart struct {
	page  *Page
	stats []model.CategoryStat
}

func (c *CategoryChart) Set(stats []model.CategoryStat) {
	c.page.mu.Lock()
	defer c.page.mu.Unlock()
	c.stats = append([]model.CategoryStat(nil), stats...)
}

// TimelineChart is devices discovered per day
type TimelineChart struct {
	page   *Page
	points []model.TimelinePoint
}

func (t *TimelineChart) Set(points []model.TimelinePoint) {
	t.page.mu.Lock()
	defer t.page.mu.Unlock()
	t.points = append([]model.TimelinePoint(nil), points...)
}

// DeviceTable lists devices with a status badge per row
type DeviceTable struct {
	page *Page
	rows []*DeviceRow
}

// SetDevices replaces the rows, keeping at most recentDeviceLimit
func (t *DeviceTable) SetDevices(devices []model.Device, now time.Time) {
	t.page.mu.Lock()
	defer t.page.mu.Unlock()

	if len(devices) > recentDeviceLimit {
		devices = devices[:recentDeviceLimit]
	}
	rows := make([]*DeviceRow, 0, len(devices))
	for _, d := range devices {
		rows = append(rows, &DeviceRow{page: t.page, device: d, status: d.Status(now)})
	}
	t.rows = rows
}

// Len is the number of rows
func (t *DeviceTable) Len() int {
	t.page.mu.RLock()
	defer t.page.mu.RUnlock()
	return len(t.rows)
}

// DeviceRow is one device in the table
type DeviceRow struct {
	page     *Page
	device   model.Device
	status   model.Status
	flashing bool
	selected bool
}

func (r *DeviceRow) SetStatus(status model.Status) {
	r.page.mu.Lock()
	defer r.page.mu.Unlock()
	r.status = status
}

func (r *DeviceRow) Status() model.Status {
	r.page.mu.RLock()
	defer r.page.mu.RUnlock()
	return r.status
}

// SetFlash toggles the change highlight on the badge
func (r *DeviceRow) SetFlash(on bool) {
	r.page.mu.Lock()
	defer r.page.mu.Unlock()
	r.flashing = on
}

func (r *DeviceRow) Flashing() bool {
	r.page.mu.RLock()
	defer r.page.mu.RUnlock()
	return r.flashing
}

func (r *DeviceRow) SetSelected(on bool) {
	r.page.mu.Lock()
	defer r.page.mu.Unlock()
	r.selected = on
}

// InventoryTable lists inventory items
type InventoryTable struct {
	page     *Page
	items    []model.InventoryItem
	selected map[int]bool
}

// Set replaces the rows; every row starts unselected
func (t *InventoryTable) Set(items []model.InventoryItem) {
	t.page.mu.Lock()
	defer t.page.mu.Unlock()
	t.items = append([]model.InventoryItem(nil), items...)
	t.selected = make(map[int]bool)
}

// SetSelected marks the row of itemID
func (t *InventoryTable) SetSelected(itemID int, on bool) {
	t.page.mu.Lock()
	defer t.page.mu.Unlock()
	if t.selected == nil {
		t.selected = make(map[int]bool)
	}
	if on {
		t.selected[itemID] = true
	} else {
		delete(t.selected, itemID)
	}
}

func (t *InventoryTable) Selected(itemID int) bool {
	t.page.mu.RLock()
	defer t.page.mu.RUnlock()
	return t.selected[itemID]
}

func (t *InventoryTable) Len() int {
	t.page.mu.RLock()
	defer t.page.mu.RUnlock()
	return len(t.items)
}

// CategoryList lists inventory categories
type CategoryList struct {
	page       *Page
	categories []model.Category
}

func (c *CategoryList) Set(categories []model.Category) {
	c.page.mu.Lock()
	defer c.page.mu.Unlock()
	c.categories = append([]model.Category(nil), categories...)
}

// ActivityEntry is one line in the recent activity feed
type ActivityEntry struct {
	ID        string
	Title     string
	Detail    string
	Time      time.Time
	Level     Level
	Highlight bool
}

// ActivityFeed is the recent activity list, newest first, never longer than MaxActivity
type ActivityFeed struct {
	page    *Page
	entries []ActivityEntry
}

// Prepend adds an entry at the top, dropping the oldest beyond MaxActivity, and
// returns its id
func (f *ActivityFeed) Prepend(e ActivityEntry) string {
	f.page.mu.Lock()
	defer f.page.mu.Unlock()

	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	f.entries = append([]ActivityEntry{e}, f.entries...)
	if len(f.entries) > MaxActivity {
		f.entries = f.entries[:MaxActivity]
	}
	return e.ID
}

// Replace sets the whole feed, keeping the first MaxActivity entries
func (f *ActivityFeed) Replace(entries []ActivityEntry) {
	f.page.mu.Lock()
	defer f.page.mu.Unlock()

	if len(entries) > MaxActivity {
		entries = entries[:MaxActivity]
	}
	f.entries = make([]ActivityEntry, len(entries))
	for i, e := range entries {
		if e.ID == "" {
			e.ID = uuid.NewString()
		}
		f.entries[i] = e
	}
}

// SetHighlight toggles the highlight of an entry if it is still in the feed
func (f *ActivityFeed) SetHighlight(id string, on bool) {
	f.page.mu.Lock()
	defer f.page.mu.Unlock()
	for i := range f.entries {
		if f.entries[i].ID == id {
			f.entries[i].Highlight = on
			return
		}
	}
}

func (f *ActivityFeed) Entries() []ActivityEntry {
	f.page.mu.RLock()
	defer f.page.mu.RUnlock()
	return append([]ActivityEntry(nil), f.entries...)
}

// ScanControl is the manual scan trigger
type ScanControl struct {
	page     *Page
	label    string
	disabled bool
}

func (s *ScanControl) Set(label string, disabled bool) {
	s.page.mu.Lock()
	defer s.page.mu.Unlock()
	s.label, s.disabled = label, disabled
}

func (s *ScanControl) Label() string {
	s.page.mu.RLock()
	defer s.page.mu.RUnlock()
	return s.label
}

func (s *ScanControl) Disabled() bool {
	s.page.mu.RLock()
	defer s.page.mu.RUnlock()
	return s.disabled
}

// ScanProgress is the progress bar shown while a scan runs
type ScanProgress struct {
	page    *Page
	visible bool
	percent float64
	label   string
}

func (s *ScanProgress) Show() {
	s.page.mu.Lock()
	defer s.page.mu.Unlock()
	s.visible = true
	s.percent = 0
	s.label = ""
}

func (s *ScanProgress) Hide() {
	s.page.mu.Lock()
	defer s.page.mu.Unlock()
	s.visible = false
}

func (s *ScanProgress) Set(percent float64, label string) {
	s.page.mu.Lock()
	defer s.page.mu.Unlock()
	s.percent, s.label = percent, label
}

func (s *ScanProgress) Visible() bool {
	s.page.mu.RLock()
	defer s.page.mu.RUnlock()
	return s.visible
}

func (s *ScanProgress) Percent() float64 {
	s.page.mu.RLock()
	defer s.page.mu.RUnlock()
	return s.percent
}

func (s *ScanProgress) Label() string {
	s.page.mu.RLock()
	defer s.page.mu.RUnlock()
	return s.label
}

// Text is a single line of text such as the last scan time
type Text struct {
	page  *Page
	value string
}

func (t *Text) Set(value string) {
	t.page.mu.Lock()
	defer t.page.mu.Unlock()
	t.value = value
}

func (t *Text) Value() string {
	t.page.mu.RLock()
	defer t.page.mu.RUnlock()
	return t.value
}
