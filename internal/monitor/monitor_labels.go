package monitor

type HttpRequestLabels struct {
	Status string
	Route  string
	Method string
}

type DBQueryLabels struct {
	QueryType string
}

type PaymentLabels struct {
	Provider string
}

func (p PaymentLabels) ToMap() map[string]string {
	return map[string]string{
		"provider": p.Provider,
	}
}

type ChapaLabels struct {
	Method     string
	Endpoint   string
	Status     string
	StatusCode string
}

func (c ChapaLabels) ToMap() map[string]string {
	return map[string]string{
		"method":      c.Method,
		"endpoint":    c.Endpoint,
		"status":      c.Status,
		"status_code": c.StatusCode,
	}
}

var ChapaLabelNames = []string{"method", "endpoint", "status", "status_code"}
