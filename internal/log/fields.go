package log

// Common field names for structured logging
const (
	FieldComponent     = "component"
	FieldRequestID     = "request_id"
	FieldClientIP      = "client_ip"
	FieldMethod        = "method"
	FieldPath          = "path"
	FieldQuery         = "query"
	FieldStatusCode    = "status_code"
	FieldDuration      = "duration_ms"
	FieldUserAgent     = "user_agent"
	FieldSuccess       = "success"
	FieldError         = "error"
	FieldOperation     = "operation"
	FieldPeriod        = "period"
	FieldCoupleID      = "couple_id"
	FieldSelfID        = "self_id"
	FieldPartnerID     = "partner_id"
	FieldPartyID       = "party_id"
	FieldPointsTotal   = "points_total"
	FieldFairnessIndex = "fairness_index"
	FieldTier          = "tier"
	FieldCumulative    = "cumulative_points"
	FieldCount         = "count"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentFairness  = "fairness"
	ComponentStorage   = "storage"
	ComponentAMQP      = "amqp"
	ComponentWorker    = "worker"
	ComponentScheduler = "scheduler"
	ComponentSheets    = "sheets"
	ComponentCache     = "cache"
	ComponentSecurity  = "security"
	ComponentRateLimit = "rate_limit"
	ComponentTrace     = "trace"
	ComponentBackend   = "backend"
)

// Operations defines standard operation names
const (
	OpCompare     = "compare"
	OpScore       = "score"
	OpClosePeriod = "close_period"
	OpStanding    = "standing"
	OpSaveSummary = "save_summary"
	OpSettings    = "settings"
	OpSync        = "sync"
	OpValidate    = "validate"
	OpShutdown    = "shutdown"
	OpStartup     = "startup"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

// WithComponent adds component field
func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

// WithRequestID adds request ID field
func (f LogFields) WithRequestID(requestID string) LogFields {
	f[FieldRequestID] = requestID
	return f
}

// WithError adds error field
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

// WithOperation adds operation field
func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithCouple adds the period and both party ids
func (f LogFields) WithCouple(period, selfID, partnerID string) LogFields {
	f[FieldPeriod] = period
	f[FieldSelfID] = selfID
	f[FieldPartnerID] = partnerID
	return f
}

// WithScore adds the points total and fairness index of a scored period
func (f LogFields) WithScore(pointsTotal, fairnessIndex int) LogFields {
	f[FieldPointsTotal] = pointsTotal
	f[FieldFairnessIndex] = fairnessIndex
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
