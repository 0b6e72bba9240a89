package extension

// Extension identity.
const (
	Name    = "com.adobe.edge.consent"
	Version = "1.0.0"
)

// Event types.
const (
	EventTypeConsent       = "com.adobe.eventType.edgeConsent"
	EventTypeEdge          = "com.adobe.eventType.edge"
	EventTypeConfiguration = "com.adobe.eventType.configuration"
)

// Event sources.
const (
	EventSourceConsentPreference = "consent:preferences"
	EventSourceUpdateConsent     = "com.adobe.eventSource.updateConsent"
	EventSourceRequestContent    = "com.adobe.eventSource.requestContent"
	EventSourceResponseContent   = "com.adobe.eventSource.responseContent"
)

// Event names.
const (
	EventNameEdgeConsentUpdate         = "Edge Consent Update Request"
	EventNameConsentUpdateRequest      = "Consent Update Request"
	EventNameGetConsentsRequest        = "Get Consents Request"
	EventNameGetConsentsResponse       = "Get Consents Response"
	EventNameConsentPreferencesUpdated = "Consent Preferences Updated"
	EventNameConfigurationResponse     = "Configuration Response Content"
	EventNameConsentPreferenceHandle   = "Edge Consent Preference Handle"
)

// Payload keys.
const (
	KeyPayload        = "payload"
	KeyType           = "type"
	KeyDefaultConsent = "consent.default"
)
