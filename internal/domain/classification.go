package domain

// Category is the equipment-domain category of a query or a listing.
type Category string

// Domain categories, from most to least central to the catalog.
const (
	CategoryCore       Category = "core"       // the machines themselves
	CategorySupport    Category = "support"    // consumables and parts for a machine
	CategoryPeripheral Category = "peripheral" // adjacent supplies
	CategoryUnknown    Category = "unknown"
)

// Classification is the outcome of domain classification for one text.
// Confidence is always in [0,1].
type Classification struct {
	Category   Category
	Confidence float64
}
