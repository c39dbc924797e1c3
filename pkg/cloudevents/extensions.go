package cloudevents

// CloudEvents extension attribute names carried as ce-* message headers
const (
	ExtClientID      = "portalclientid"
	ExtCorrelationID = "portalcorrelationid"

	// W3C distributed tracing extensions
	ExtTraceParent = "traceparent"
	ExtTraceState  = "tracestate"
)

// HTTP header names for portal client context
const (
	HeaderClientID = "X-Portal-Client-ID"
)

// WithClient sets the client extension and returns the event
func (e *PortalCloudEvent) WithClient(clientID string) *PortalCloudEvent {
	e.ClientID = clientID
	return e
}

// WithCorrelation sets the correlation extension and returns the event
func (e *PortalCloudEvent) WithCorrelation(correlationID string) *PortalCloudEvent {
	e.CorrelationID = correlationID
	return e
}

// HasClientContext returns true if the client extension is set
func (e *PortalCloudEvent) HasClientContext() bool {
	return e.ClientID != ""
}
