package model

import (
	"strconv"
	"time"
)

// Status is the liveness classification of a device
type Status string

const (
	StatusOnline  Status = "online"
	StatusOffline Status = "offline"
	StatusUnknown Status = "unknown"
)

// Liveness thresholds applied to last_seen
const (
	OnlineWindow  = time.Hour
	UnknownWindow = 24 * time.Hour
)

// Device is a network endpoint observed by the backend scanner, identified by MAC address
type Device struct {
	ID          int    `json:"id"`
	MACAddress  string `json:"mac_address"`
	IPAddress   string `json:"ip_address"`
	Hostname    string `json:"hostname"`
	Vendor      string `json:"vendor"`
	DeviceType  string `json:"device_type,omitempty"`
	FirstSeen   Time   `json:"first_seen"`
	LastSeen    Time   `json:"last_seen"`
	IsMonitored Flag   `json:"is_monitored"`
	IsIgnored   Flag   `json:"is_ignored"`
	Notes       string `json:"notes,omitempty"`
}

// DisplayName returns the hostname, falling back to the IP address
func (d Device) DisplayName() string {
	return DisplayName(d.Hostname, d.IPAddress, d.ID)
}

// Status classifies the device by the recency of last_seen
func (d Device) Status(now time.Time) Status {
	return Classify(d.LastSeen.Time, now)
}

// Classify derives liveness from last_seen: within an hour is online, within a day is
// unknown, anything older (or never seen) is offline.
func Classify(lastSeen, now time.Time) Status {
	if lastSeen.IsZero() {
		return StatusOffline
	}
	age := now.Sub(lastSeen)
	switch {
	case age < OnlineWindow:
		return StatusOnline
	case age < UnknownWindow:
		return StatusUnknown
	default:
		return StatusOffline
	}
}

// StatusCounts tallies devices per liveness class
type StatusCounts struct {
	Online  int `json:"online"`
	Offline int `json:"offline"`
	Unknown int `json:"unknown"`
}

// Series returns the counts in chart order: online, offline, unknown
func (c StatusCounts) Series() [3]int {
	return [3]int{c.Online, c.Offline, c.Unknown}
}

// CountStatuses classifies every device at now
func CountStatuses(devices []Device, now time.Time) StatusCounts {
	var c StatusCounts
	for _, d := range devices {
		switch d.Status(now) {
		case StatusOnline:
			c.Online++
		case StatusUnknown:
			c.Unknown++
		default:
			c.Offline++
		}
	}
	return c
}

// TimelinePoint is the number of devices first seen on a given day
type TimelinePoint struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// DisplayName picks the label shown for a device: hostname, then IP, then its id.
func DisplayName(hostname, ip string, id int) string {
	if hostname != "" {
		return hostname
	}
	if ip != "" {
		return ip
	}
	if id > 0 {
		return "device " + strconv.Itoa(id)
	}
	return "Unknown"
}
