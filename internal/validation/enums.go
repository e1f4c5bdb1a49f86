package validation

// Enum values. These MUST match the CHECK constraints in the database package.
var (
	ValidRoles          = []string{"readonly", "operator", "admin", "disabled"}
	ValidQuoteStatuses  = []string{"inquiring", "offered", "cancelled"}
	ValidReturnStatuses = []string{"normal", "partial_return", "returned"}
	ValidCreditLevels   = []string{"A", "B", "C", "D"}
)
