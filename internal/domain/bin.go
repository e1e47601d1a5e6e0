package domain

// Bin represents a storage bin and its capacity accounting.
// ReservedQuantity tracks stock committed by open putaway tasks that has not
// physically arrived in the bin yet.
type Bin struct {
	BinID            string         `bson:"binId" json:"binId"`
	BinCode          string         `bson:"binCode" json:"binCode"`
	Zone             string         `bson:"zone" json:"zone"`
	ZoneType         string         `bson:"zoneType,omitempty" json:"zoneType,omitempty"`
	CompanyID        string         `bson:"companyId" json:"companyId"`
	LocationID       string         `bson:"locationId" json:"locationId"`
	Capacity         int            `bson:"capacity" json:"capacity"`
	CurrentQuantity  int            `bson:"currentQuantity" json:"currentQuantity"`
	ReservedQuantity int            `bson:"reservedQuantity" json:"reservedQuantity"`
	Contents         map[string]int `bson:"contents,omitempty" json:"contents,omitempty"` // skuId -> quantity
	Active           bool           `bson:"active" json:"active"`
}

// AvailableCapacity returns the capacity not yet occupied or reserved
func (b *Bin) AvailableCapacity() int {
	return b.Capacity - b.CurrentQuantity - b.ReservedQuantity
}

// CanAccept checks whether the bin can take the given quantity
func (b *Bin) CanAccept(quantity int) bool {
	return b.Active && b.AvailableCapacity() >= quantity
}

// HoldsSKU reports whether the bin already contains the given SKU
func (b *Bin) HoldsSKU(skuID string) bool {
	return b.Contents[skuID] > 0
}

// IsEmpty reports whether the bin holds no stock and has no reservations
func (b *Bin) IsEmpty() bool {
	return b.CurrentQuantity == 0 && b.ReservedQuantity == 0
}
