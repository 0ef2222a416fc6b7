package model

import "time"

// InventoryItem is a device (or manually entered asset) tracked with ownership metadata
type InventoryItem struct {
	ID             int      `json:"id"`
	DeviceID       *int     `json:"device_id"`
	Name           string   `json:"name"`
	CategoryID     *int     `json:"category_id"`
	Category       string   `json:"category"`
	Brand          string   `json:"brand"`
	Model          string   `json:"model"`
	PurchaseDate   Time     `json:"purchase_date"`
	WarrantyExpiry Time     `json:"warranty_expiry"`
	StoreVendor    string   `json:"store_vendor"`
	Price          *float64 `json:"price"`
	SerialNumber   string   `json:"serial_number"`
	Notes          string   `json:"notes"`
	CreatedAt      Time     `json:"created_at"`
	UpdatedAt      Time     `json:"updated_at"`

	// Joined from devices and categories
	IPAddress     string `json:"ip_address"`
	MACAddress    string `json:"mac_address"`
	Hostname      string `json:"hostname"`
	CategoryName  string `json:"category_name"`
	CategoryIcon  string `json:"category_icon"`
	CategoryColor string `json:"category_color"`
}

// CategoryLabel returns the category name, the legacy category text, or "Uncategorized"
func (i InventoryItem) CategoryLabel() string {
	if i.CategoryName != "" {
		return i.CategoryName
	}
	if i.Category != "" {
		return i.Category
	}
	return "Uncategorized"
}

// WarrantyState classifies warranty coverage
type WarrantyState string

const (
	WarrantyUnknown  WarrantyState = "unknown"
	WarrantyExpired  WarrantyState = "expired"
	WarrantyExpiring WarrantyState = "expiring"
	WarrantyActive   WarrantyState = "active"
)

// WarrantyExpiringWindow is how close to expiry a warranty counts as expiring
const WarrantyExpiringWindow = 30 * 24 * time.Hour

// Warranty returns the warranty state and the whole days left (negative once expired)
func (i InventoryItem) Warranty(now time.Time) (WarrantyState, int) {
	if i.WarrantyExpiry.IsZero() {
		return WarrantyUnknown, 0
	}
	left := i.WarrantyExpiry.Sub(now)
	days := int(left.Hours() / 24)
	if left < 0 && days == 0 {
		days = -1
	}
	switch {
	case left < 0:
		return WarrantyExpired, days
	case left <= WarrantyExpiringWindow:
		return WarrantyExpiring, days
	default:
		return WarrantyActive, days
	}
}

// Category groups inventory items
type Category struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	Color       string `json:"color"`
	IsDefault   Flag   `json:"is_default"`
	ItemCount   int    `json:"item_count,omitempty"`
	CreatedAt   Time   `json:"created_at"`
	UpdatedAt   Time   `json:"updated_at"`
}
