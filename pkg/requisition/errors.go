package requisition

import "errors"

var (
	// ErrSKUNotFound means the selected SKU has no row in the master data.
	ErrSKUNotFound = errors.New("SKU not found in master data")
	// ErrNoMaterialsFound means the SKU exists but has no bill-of-materials rows.
	ErrNoMaterialsFound = errors.New("no raw materials found for this SKU")
	// ErrLineNotFound means a line index is out of range.
	ErrLineNotFound = errors.New("requisition line not found")
	// ErrConfirmationRequired guards destructive operations.
	ErrConfirmationRequired = errors.New("confirmation required")
	// ErrUnknownSortField rejects a column that cannot be sorted on.
	ErrUnknownSortField = errors.New("unknown sort field")
	// ErrMirrorDisabled is returned by sync operations when no remote mirror is configured.
	ErrMirrorDisabled = errors.New("remote mirror is not configured")
)
