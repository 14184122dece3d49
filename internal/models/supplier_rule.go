package models

// SupplierRule maps transaction info texts matching a glob pattern to a
// supplier name without consulting the external classifier. Rules are
// evaluated in priority order, lowest number first.
type SupplierRule struct {
	DefaultModel
	Priority     uint
	Match        string
	SupplierName string
}

func (r SupplierRule) Self() string {
	return "Supplier Rule"
}
