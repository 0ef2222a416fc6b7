package realtime

import (
	"encoding/json"
	"fmt"

	"github.com/martinsuchenak/hometier/internal/model"
)

// Inbound event names
const (
	EventDeviceStatusChanges  = "device_status_changes"
	EventDeviceStatusCounts   = "device_status_counts"
	EventNewDevicesDiscovered = "new_devices_discovered"
	EventScanStarted          = "scan_started"
	EventScanProgress         = "scan_progress"
	EventScanCompleted        = "scan_completed"
	EventScanComplete         = "scan_complete"
	EventScanError            = "scan_error"
	EventInventoryUpdated     = "inventory_updated"
	EventConnected            = "connected"
	EventError                = "error"
)

// Outbound event names
const (
	EmitRequestDeviceStatus = "request_device_status"
	EmitPing                = "ping"
	EmitStartNetworkScan    = "start_network_scan"
)

// Event is one decoded inbound server event. The set of implementations is closed.
type Event interface {
	EventName() string
	event()
}

// DeviceInfo is the device snapshot carried by a status change
type DeviceInfo struct {
	Status    string     `json:"status"`
	LastSeen  model.Time `json:"last_seen"`
	IPAddress string     `json:"ip_address"`
	Hostname  string     `json:"hostname"`
	Vendor    string     `json:"vendor"`
}

// StatusChange is one device moving between liveness classes
type StatusChange struct {
	DeviceID   int        `json:"device_id"`
	OldStatus  string     `json:"old_status"`
	NewStatus  string     `json:"new_status"`
	DeviceInfo DeviceInfo `json:"device_info"`
	Timestamp  model.Time `json:"timestamp"`
}

// DisplayName is the hostname, else the IP address
func (c StatusChange) DisplayName() string {
	return model.DisplayName(c.DeviceInfo.Hostname, c.DeviceInfo.IPAddress, c.DeviceID)
}

type DeviceStatusChanges struct {
	Changes   []StatusChange `json:"changes"`
	Timestamp model.Time     `json:"timestamp"`
}

type StatusCounts struct {
	model.StatusCounts
}

// DiscoveredDevice is a device first seen in the last scan window
type DiscoveredDevice struct {
	ID         int        `json:"id"`
	IPAddress  string     `json:"ip_address"`
	MACAddress string     `json:"mac_address"`
	Hostname   string     `json:"hostname"`
	Vendor     string     `json:"vendor"`
	FirstSeen  model.Time `json:"first_seen"`
}

func (d DiscoveredDevice) DisplayName() string {
	return model.DisplayName(d.Hostname, d.IPAddress, d.ID)
}

type NewDevicesDiscovered struct {
	Count     int                `json:"count"`
	Devices   []DiscoveredDevice `json:"devices"`
	Timestamp model.Time         `json:"timestamp"`
}

type ScanStarted struct {
	Message   string     `json:"message"`
	Timestamp model.Time `json:"timestamp"`
}

type ScanProgress struct {
	Progress     float64 `json:"progress"`
	Message      string  `json:"message"`
	CurrentRange string  `json:"current_range"`
}

// Percent is the progress clamped to 0..100
func (p ScanProgress) Percent() float64 {
	switch {
	case p.Progress < 0:
		return 0
	case p.Progress > 100:
		return 100
	default:
		return p.Progress
	}
}

type ScanCompleted struct {
	DevicesFound int    `json:"devices_found"`
	Message      string `json:"message"`
}

type ScanError struct {
	Message string `json:"message"`
}

type InventoryUpdated struct {
	Action string `json:"action"`
}

// ServerHello is the greeting sent by the server after the namespace connects
type ServerHello struct {
	Message string `json:"message"`
}

// ServerError is a generic failure reported by a server-side handler
type ServerError struct {
	Message string `json:"message"`
}

func (DeviceStatusChanges) EventName() string  { return EventDeviceStatusChanges }
func (StatusCounts) EventName() string         { return EventDeviceStatusCounts }
func (NewDevicesDiscovered) EventName() string { return EventNewDevicesDiscovered }
func (ScanStarted) EventName() string          { return EventScanStarted }
func (ScanProgress) EventName() string         { return EventScanProgress }
func (ScanCompleted) EventName() string        { return EventScanCompleted }
func (ScanError) EventName() string            { return EventScanError }
func (InventoryUpdated) EventName() string     { return EventInventoryUpdated }
func (ServerHello) EventName() string          { return EventConnected }
func (ServerError) EventName() string          { return EventError }

func (DeviceStatusChanges) event()  {}
func (StatusCounts) event()         {}
func (NewDevicesDiscovered) event() {}
func (ScanStarted) event()          {}
func (ScanProgress) event()         {}
func (ScanCompleted) event()        {}
func (ScanError) event()            {}
func (InventoryUpdated) event()     {}
func (ServerHello) event()          {}
func (ServerError) event()          {}

// DecodeEvent maps a wire event name and its JSON payload to a typed Event.
// Unknown names return ErrUnknownEvent; an empty or null payload decodes to the zero
// value of the event type.
func DecodeEvent(name string, data json.RawMessage) (Event, error) {
	var ev Event
	var err error

	switch name {
	case EventDeviceStatusChanges:
		ev, err = decode[DeviceStatusChanges](data)
	case EventDeviceStatusCounts:
		ev, err = decode[StatusCounts](data)
	case EventNewDevicesDiscovered:
		var e NewDevicesDiscovered
		if e, err = decode[NewDevicesDiscovered](data); err == nil && e.Count == 0 {
			e.Count = len(e.Devices)
		}
		ev = e
	case EventScanStarted:
		ev, err = decode[ScanStarted](data)
	case EventScanProgress:
		ev, err = decode[ScanProgress](data)
	case EventScanCompleted, EventScanComplete:
		ev, err = decode[ScanCompleted](data)
	case EventScanError:
		ev, err = decode[ScanError](data)
	case EventInventoryUpdated:
		ev, err = decode[InventoryUpdated](data)
	case EventConnected:
		ev, err = decode[ServerHello](data)
	case EventError:
		ev, err = decode[ServerError](data)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownEvent, name)
	}

	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", name, err)
	}
	return ev, nil
}

func decode[T any](data json.RawMessage) (T, error) {
	var v T
	if len(data) == 0 || string(data) == "null" {
		return v, nil
	}
	err := json.Unmarshal(data, &v)
	return v, err
}
