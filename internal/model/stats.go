package model

// CategoryStat is one slice of the inventory category breakdown
type CategoryStat struct {
	Category   string  `json:"category"`
	Count      int     `json:"count"`
	Color      string  `json:"color"`
	Icon       string  `json:"icon"`
	TotalValue float64 `json:"total_value"`
}

// WarrantyAlert is an inventory item whose warranty has expired or expires soon
type WarrantyAlert struct {
	Name           string `json:"name"`
	WarrantyExpiry Time   `json:"warranty_expiry"`
	Status         string `json:"status"`
}

// DashboardStats is the response of /api/dashboard/stats
type DashboardStats struct {
	CategoryStats  []CategoryStat  `json:"category_stats"`
	WarrantyAlerts []WarrantyAlert `json:"warranty_alerts"`
}

// ScanningStats is the response of /api/scanning/stats
type ScanningStats struct {
	TotalDevices     int `json:"total_devices"`
	ManagedDevices   int `json:"managed_devices"`
	UnmanagedDevices int `json:"unmanaged_devices"`
	IgnoredDevices   int `json:"ignored_devices"`
}

// BulkResult is the response of the bulk device operations
type BulkResult struct {
	Status   string `json:"status"`
	Message  string `json:"message"`
	Affected int    `json:"affected_count"`
}
