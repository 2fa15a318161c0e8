package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
)

const DefaultNamespace = "fikir"

type Subservice string

const (
	DBSubservice       Subservice = "db"
	HTTPSubservice     Subservice = "http"
	BusinessSubservice Subservice = "business"
	ChapaSubservice    Subservice = "chapa"
)

func PrometheusMetrics() map[MetricTag]prometheus.Collector {
	metrics := make(map[MetricTag]prometheus.Collector)

	for tag, summaryVec := range SummaryVecMetrics {
		metrics[tag] = summaryVec
	}

	for tag, counter := range CounterMetrics {
		metrics[tag] = counter
	}

	for tag, histogramVec := range HistogramVecMetrics {
		metrics[tag] = histogramVec
	}

	for tag, counterVec := range CounterVecMetrics {
		metrics[tag] = counterVec
	}

	return metrics
}

var SummaryVecMetrics = map[MetricTag]*prometheus.SummaryVec{
	HttpRequestDurationTag: prometheus.NewSummaryVec(prometheus.SummaryOpts{
		Namespace: DefaultNamespace, Subsystem: string(HTTPSubservice), Name: string(HttpRequestDurationTag),
		Help: "HTTP requests durations, sliding window = 10m",
	},
		[]string{"status", "route", "method"},
	),
	SuccessfulQueryDurationTag: prometheus.NewSummaryVec(prometheus.SummaryOpts{
		Namespace: DefaultNamespace, Subsystem: string(DBSubservice), Name: string(SuccessfulQueryDurationTag),
		Help: "Successful DB query durations",
	},
		[]string{"query_type"},
	),
	FailureQueryDurationTag: prometheus.NewSummaryVec(prometheus.SummaryOpts{
		Namespace: DefaultNamespace, Subsystem: string(DBSubservice), Name: string(FailureQueryDurationTag),
		Help: "Failure DB query durations",
	},
		[]string{"query_type"},
	),
}

var CounterMetrics = map[MetricTag]prometheus.Counter{
	WebhookDuplicatesCounterTag: prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: DefaultNamespace, Subsystem: string(BusinessSubservice), Name: string(WebhookDuplicatesCounterTag),
		Help: "A counter of provider webhook deliveries that were already settled",
	}),
	RiskFlagsRaisedCounterTag: prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: DefaultNamespace, Subsystem: string(BusinessSubservice), Name: string(RiskFlagsRaisedCounterTag),
		Help: "A counter of risk evaluations that flagged a wallet",
	}),
}

var HistogramVecMetrics = map[MetricTag]*prometheus.HistogramVec{
	ChapaAPIRequestDurationTag: prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: DefaultNamespace, Subsystem: string(ChapaSubservice), Name: string(ChapaAPIRequestDurationTag),
		Help: "A histogram of the ChAPA API request durations",
	},
		ChapaLabelNames,
	),
}

var CounterVecMetrics = map[MetricTag]*prometheus.CounterVec{
	PaymentsSettledCounterTag: prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: DefaultNamespace, Subsystem: string(BusinessSubservice), Name: string(PaymentsSettledCounterTag),
		Help: "A counter of settled top-up payments",
	},
		[]string{"provider"},
	),
	GiftsSentCounterTag: prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: DefaultNamespace, Subsystem: string(BusinessSubservice), Name: string(GiftsSentCounterTag),
		Help: "A counter of successful gift sends",
	},
		[]string{"gift"},
	),
	WithdrawalsPaidCounterTag: prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: DefaultNamespace, Subsystem: string(BusinessSubservice), Name: string(WithdrawalsPaidCounterTag),
		Help: "A counter of withdrawals paid out",
	},
		[]string{"method"},
	),
	SubscriptionsActivatedCntTag: prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: DefaultNamespace, Subsystem: string(BusinessSubservice), Name: string(SubscriptionsActivatedCntTag),
		Help: "A counter of activated subscription plans",
	},
		[]string{"plan"},
	),
	ChapaAPIRequestsTotalTag: prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: DefaultNamespace, Subsystem: string(ChapaSubservice), Name: string(ChapaAPIRequestsTotalTag),
		Help: "A counter of the ChAPA API requests",
	},
		ChapaLabelNames,
	),
}
