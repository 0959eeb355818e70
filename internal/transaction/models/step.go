package models

// StepKind tags what the transport should present next. The orchestrator
// never emits markup; rendering belongs to whatever hosts the forms.
type StepKind string

const (
	// StepNeedEmail asks the user for their email address.
	StepNeedEmail StepKind = "need_email"
	// StepNeedCode asks the user for the emailed verification code.
	StepNeedCode StepKind = "need_code"
	// StepDomainUnsupported tells the user their domain is not in the
	// inference graph and offers the out-of-band support request.
	StepDomainUnsupported StepKind = "domain_unsupported"
	// StepTerminal ends the interaction; Outcome says how.
	StepTerminal StepKind = "terminal"
)

// Outcome qualifies a terminal step.
type Outcome string

const (
	OutcomeGranted Outcome = "granted"
	// OutcomeGrantedNotAcknowledged: badges exist but the sponsor did not
	// 202 the callback. The award stands; the user may retry the flow,
	// which re-notifies via the fast path.
	OutcomeGrantedNotAcknowledged Outcome = "granted_not_acknowledged"
	// OutcomeAlreadyGranted is the fast path: every candidate badge already
	// existed unexpired, so the sponsor was re-notified without minting.
	OutcomeAlreadyGranted         Outcome = "already_granted"
	OutcomeRefusedTooManyRetries  Outcome = "refused_too_many_retries"
	OutcomeRefusedTimeout         Outcome = "refused_timeout"
	// OutcomeNotAuthorized covers unknown, wrong-state and malformed tokens
	// alike, so callers cannot probe for transaction existence.
	OutcomeNotAuthorized Outcome = "not_authorized"
	OutcomeSystemError   Outcome = "system_error"
)

// Step is the orchestrator's answer to one protocol operation.
type Step struct {
	Kind StepKind `json:"kind"`
	// Token identifies the transaction for the next submission. Present on
	// non-terminal steps.
	Token string `json:"token,omitempty"`
	// Retry marks a re-asked form (bad email syntax, wrong code).
	Retry bool `json:"retry,omitempty"`
	// Domain accompanies StepDomainUnsupported.
	Domain string `json:"domain,omitempty"`
	// Outcome accompanies StepTerminal.
	Outcome Outcome `json:"outcome,omitempty"`
}

func NeedEmail(token string, retry bool) Step {
	return Step{Kind: StepNeedEmail, Token: token, Retry: retry}
}

func NeedCode(token string, retry bool) Step {
	return Step{Kind: StepNeedCode, Token: token, Retry: retry}
}

func DomainUnsupported(token, domain string) Step {
	return Step{Kind: StepDomainUnsupported, Token: token, Domain: domain}
}

func Terminal(outcome Outcome) Step {
	return Step{Kind: StepTerminal, Outcome: outcome}
}
