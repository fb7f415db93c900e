package log

// Common field names for structured logging
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldClientIP   = "client_ip"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldQuery      = "query"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldUserAgent  = "user_agent"
	FieldSuccess    = "success"
	FieldError      = "error"
	FieldOperation  = "operation"
	FieldUserID     = "user_id"
	FieldExpenseID  = "expense_id"
	FieldItem       = "item"
	FieldAmount     = "amount"
	FieldType       = "type"
	FieldCategory   = "category"
	FieldSource     = "source"
	FieldMerchant   = "merchant"
	FieldBackend    = "backend"
	FieldQueue      = "queue"
)

// Components defines standard component names
const (
	ComponentApp      = "app"
	ComponentHTTP     = "http"
	ComponentExpense  = "expense"
	ComponentReport   = "report"
	ComponentMerchant = "merchant"
	ComponentStorage  = "storage"
	ComponentAMQP     = "amqp"
	ComponentWorker   = "worker"
	ComponentBackend  = "backend"
)

// Operations defines standard operation names
const (
	OpCreate   = "create"
	OpList     = "list"
	OpTotals   = "totals"
	OpSummary  = "category_summary"
	OpTrend    = "monthly_trend"
	OpMerchant = "merchant_spend"
	OpSave     = "save"
	OpLookup   = "lookup"
	OpPublish  = "publish"
	OpIngest   = "ingest"
	OpShutdown = "shutdown"
	OpStartup  = "startup"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

func (f LogFields) WithRequestID(requestID string) LogFields {
	if requestID != "" {
		f[FieldRequestID] = requestID
	}
	return f
}

func (f LogFields) WithClientIP(ip string) LogFields {
	f[FieldClientIP] = ip
	return f
}

func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

func (f LogFields) WithUser(userID string) LogFields {
	f[FieldUserID] = userID
	return f
}

// WithExpense adds the fields identifying a stored expense.
func (f LogFields) WithExpense(id, item string, amount float64, typ, category, source string) LogFields {
	f[FieldExpenseID] = id
	f[FieldItem] = item
	f[FieldAmount] = amount
	f[FieldType] = typ
	f[FieldCategory] = category
	f[FieldSource] = source
	return f
}

func (f LogFields) WithHTTPRequest(method, path, query, userAgent string) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
	f[FieldQuery] = query
	if userAgent != "" {
		f[FieldUserAgent] = userAgent
	}
	return f
}

func (f LogFields) WithHTTPResponse(statusCode int, durationMs int64, success bool) LogFields {
	f[FieldStatusCode] = statusCode
	f[FieldDuration] = durationMs
	f[FieldSuccess] = success
	return f
}

func (f LogFields) WithMerchant(merchant string) LogFields {
	if merchant != "" {
		f[FieldMerchant] = merchant
	}
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
