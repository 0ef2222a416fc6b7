package dashboard

import (
	"slices"
	"sync"

	"github.com/martinsuchenak/hometier/internal/model"
	"github.com/martinsuchenak/hometier/internal/ui"
)

// State is the application state shared by event handlers, reloads and user actions
type State struct {
	mu sync.RWMutex

	devices    []model.Device
	inventory  []model.InventoryItem
	categories []model.Category

	selectedDevices map[int]struct{}
	selectedItems   map[int]struct{}

	scanInProgress bool
	view           ui.View
}

func NewState(view ui.View) *State {
	return &State{
		selectedDevices: make(map[int]struct{}),
		selectedItems:   make(map[int]struct{}),
		view:            view,
	}
}

func (s *State) Devices() []model.Device {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.devices)
}

// SetDevices replaces the device cache and drops selections of devices that are gone
func (s *State) SetDevices(devices []model.Device) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.devices = slices.Clone(devices)
	present := make(map[int]struct{}, len(devices))
	for _, d := range devices {
		present[d.ID] = struct{}{}
	}
	for id := range s.selectedDevices {
		if _, ok := present[id]; !ok {
			delete(s.selectedDevices, id)
		}
	}
}

func (s *State) Inventory() []model.InventoryItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.inventory)
}

func (s *State) SetInventory(items []model.InventoryItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inventory = slices.Clone(items)
	present := make(map[int]struct{}, len(items))
	for _, item := range items {
		present[item.ID] = struct{}{}
	}
	for id := range s.selectedItems {
		if _, ok := present[id]; !ok {
			delete(s.selectedItems, id)
		}
	}
}

func (s *State) Categories() []model.Category {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.categories)
}

func (s *State) SetCategories(categories []model.Category) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.categories = slices.Clone(categories)
}

// ToggleDevice flips the selection of a device and reports whether it is now selected
func (s *State) ToggleDevice(id int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return toggle(s.selectedDevices, id)
}

func (s *State) DeviceSelected(id int) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.selectedDevices[id]
	return ok
}

// SelectedDevices returns the selected device ids in ascending order
func (s *State) SelectedDevices() []int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedKeys(s.selectedDevices)
}

func (s *State) ClearDeviceSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.selectedDevices)
}

func (s *State) ToggleItem(id int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return toggle(s.selectedItems, id)
}

func (s *State) ItemSelected(id int) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.selectedItems[id]
	return ok
}

func (s *State) SelectedItems() []int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedKeys(s.selectedItems)
}

func (s *State) ClearItemSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.selectedItems)
}

func (s *State) ScanInProgress() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scanInProgress
}

func (s *State) SetScanInProgress(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scanInProgress = on
}

func (s *State) View() ui.View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view
}

func (s *State) SetView(view ui.View) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view = view
}

func toggle(set map[int]struct{}, id int) bool {
	if _, ok := set[id]; ok {
		delete(set, id)
		return false
	}
	set[id] = struct{}{}
	return true
}

func sortedKeys(set map[int]struct{}) []int {
	ids := make([]int, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
