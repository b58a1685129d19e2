package model

// Machine-readable error codes shared between the simulation/registry layer
// and the dispatch layer that turns them into protocol.ErrorBody responses
// (the errorCode list used in responses). Defined here, not in internal/protocol, so
// that registries and sim engines never need to import the wire-format
// package just to report a validation failure.
const (
	ErrorCodeCorpseNotAvailable = "CORPSE_NOT_AVAILABLE"
	ErrorCodeHarvestFailed      = "HARVEST_FAILED"
	ErrorCodeNotYourHarvest     = "NOT_YOUR_HARVEST"
	ErrorCodeSecurityViolation  = "SECURITY_VIOLATION"
	ErrorCodePickupFailed       = "PICKUP_FAILED"
	ErrorCodeCorpseNotFound     = "CORPSE_NOT_FOUND"
	ErrorCodeCorpseNotHarvested = "CORPSE_NOT_HARVESTED"
	ErrorCodeValidationFailed   = "VALIDATION_FAILED"
	ErrorCodeNotFound           = "NOT_FOUND"
	ErrorCodeAlreadyCasting     = "ALREADY_CASTING"
	ErrorCodeInternal           = "INTERNAL_ERROR"
)
