package monitor

type MetricTag string

const (
	SuccessfulQueryDurationTag MetricTag = "successful_queries_duration"
	FailureQueryDurationTag    MetricTag = "failure_queries_duration"
	HttpRequestDurationTag     MetricTag = "requests_duration_seconds"
	// Business:
	PaymentsSettledCounterTag    MetricTag = "payments_settled_counter"
	GiftsSentCounterTag          MetricTag = "gifts_sent_counter"
	WithdrawalsPaidCounterTag    MetricTag = "withdrawals_paid_counter"
	WebhookDuplicatesCounterTag  MetricTag = "webhook_duplicates_counter"
	RiskFlagsRaisedCounterTag    MetricTag = "risk_flags_raised_counter"
	SubscriptionsActivatedCntTag MetricTag = "subscriptions_activated_counter"
	// ChAPA API requests:
	ChapaAPIRequestDurationTag MetricTag = "chapa_api_request_duration_seconds"
	ChapaAPIRequestsTotalTag   MetricTag = "chapa_api_requests_total"
)

// Tags for the sql.DB pool function metrics, registered per pool.
const (
	DBMaxOpenConnectionsTag       MetricTag = "max_open_connections"
	DBInUseConnectionsTag         MetricTag = "in_use_connections"
	DBIdleConnectionsTag          MetricTag = "idle_connections"
	DBWaitCountTotalTag           MetricTag = "wait_count_total"
	DBWaitDurationSecondsTotalTag MetricTag = "wait_duration_seconds_total"
	DBMaxIdleClosedTotalTag       MetricTag = "max_idle_closed_total"
	DBMaxIdleTimeClosedTotalTag   MetricTag = "max_idle_time_closed_total"
	DBMaxLifetimeClosedTotalTag   MetricTag = "max_lifetime_closed_total"
)

// ListAll returns the statically registered tags. Function metrics (DB pool
// gauges/counters) are registered at runtime and are not listed here.
func (m MetricTag) ListAll() []MetricTag {
	return []MetricTag{
		SuccessfulQueryDurationTag,
		FailureQueryDurationTag,
		HttpRequestDurationTag,
		PaymentsSettledCounterTag,
		GiftsSentCounterTag,
		WithdrawalsPaidCounterTag,
		WebhookDuplicatesCounterTag,
		RiskFlagsRaisedCounterTag,
		SubscriptionsActivatedCntTag,
		ChapaAPIRequestDurationTag,
		ChapaAPIRequestsTotalTag,
	}
}
