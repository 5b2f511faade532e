package metrics

// Common metric attribute keys to keep telemetry consistent/searchable.
const (
	AttrMethod    = "method"
	AttrPath      = "path"
	AttrStatus    = "status"
	AttrProvider  = "provider"
	AttrEventType = "event_type"
	AttrOutcome   = "outcome"
	AttrTier      = "tier"
	AttrCategory  = "category"
	AttrBreaker   = "breaker"
	AttrFrom      = "from"
	AttrTo        = "to"
)
