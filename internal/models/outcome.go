package models

// PushResult is the raw upstream answer for one delivery attempt.
type PushResult struct {
	StatusCode int
	Body       string
}

// OutcomeKind tags a DeliveryOutcome.
type OutcomeKind int

const (
	// OutcomeDelivered indicates the push service accepted the message.
	OutcomeDelivered OutcomeKind = iota
	// OutcomeKnownFailure indicates the subscription is invalid, expired or
	// forbidden. The caller should not retry and should drop the subscription.
	OutcomeKnownFailure
	// OutcomeTransientFailure indicates the attempt may succeed later.
	OutcomeTransientFailure
	// OutcomeConfigurationFailure indicates the relay is missing key material.
	OutcomeConfigurationFailure
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeDelivered:
		return "delivered"
	case OutcomeKnownFailure:
		return "known_failure"
	case OutcomeTransientFailure:
		return "transient_failure"
	case OutcomeConfigurationFailure:
		return "configuration_failure"
	default:
		return "unknown"
	}
}

// DeliveryOutcome is the classified result of one delivery attempt.
type DeliveryOutcome struct {
	Kind       OutcomeKind
	HTTPStatus int
	Message    string
}
