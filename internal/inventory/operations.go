package inventory

import "warehouse-inventory-api/internal/models"

// Operation names an entry point of the inventory core
type Operation string

const (
	OpView           Operation = "view"
	OpReceive        Operation = "receive"
	OpEdit           Operation = "edit"
	OpAdjustQuantity Operation = "adjust_quantity"
	OpDelete         Operation = "delete"
	OpRequestPick    Operation = "request_pick"
	OpFulfill        Operation = "fulfill"
	OpCancel         Operation = "cancel"
	OpAdminClear     Operation = "admin_clear"
	OpReturnToStock  Operation = "return_to_stock"
	OpAudit          Operation = "audit"
	OpImport         Operation = "import"
	OpExport         Operation = "export"
	OpPrintLabels    Operation = "print_labels"
)

// requirements is the minimal capability each operation needs
var requirements = map[Operation]models.Capability{
	OpView:           models.CapItemsView,
	OpReceive:        models.CapItemsCreate,
	OpEdit:           models.CapItemsEdit,
	OpAdjustQuantity: models.CapItemsAdjust,
	OpDelete:         models.CapItemsDelete,
	OpRequestPick:    models.CapPicksRequest,
	OpFulfill:        models.CapPicksFulfill,
	OpCancel:         models.CapPicksCancel,
	OpAdminClear:     models.CapAdminOverride,
	OpReturnToStock:  models.CapAdminOverride,
	OpAudit:          models.CapAuditRun,
	OpImport:         models.CapItemsImport,
	OpExport:         models.CapItemsExport,
	OpPrintLabels:    models.CapLabelsPrint,
}

// Requires returns the capability op declares. Unknown operations require
// admin.override so a missing entry fails closed.
func Requires(op Operation) models.Capability {
	if c, ok := requirements[op]; ok {
		return c
	}
	return models.CapAdminOverride
}
