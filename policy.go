package museai

// Operation identifies one of the remote gateway operations.
type Operation string

const (
	OpRefinePrompt     Operation = "refine_prompt"
	OpGenerateImage    Operation = "generate_image"
	OpDescribeArtwork  Operation = "describe_artwork"
	OpGenerateHashtags Operation = "generate_hashtags"
	OpSynthesizeSpeech Operation = "synthesize_speech"
)

// FailurePolicy declares what the gateway does when an operation fails.
type FailurePolicy int

const (
	// PolicyFallback absorbs the failure and returns a deterministic substitute.
	PolicyFallback FailurePolicy = iota

	// PolicyPropagate returns the failure to the caller.
	PolicyPropagate
)

func (p FailurePolicy) String() string {
	switch p {
	case PolicyFallback:
		return "fallback"
	case PolicyPropagate:
		return "propagate"
	}
	return "unknown"
}

// Image generation is the only operation without a meaningful placeholder.
var operationPolicies = map[Operation]FailurePolicy{
	OpRefinePrompt:     PolicyFallback,
	OpGenerateImage:    PolicyPropagate,
	OpDescribeArtwork:  PolicyFallback,
	OpGenerateHashtags: PolicyFallback,
	OpSynthesizeSpeech: PolicyFallback,
}

// Policy returns the declared failure policy of the operation.
// Unknown operations propagate.
func (op Operation) Policy() FailurePolicy {
	if p, ok := operationPolicies[op]; ok {
		return p
	}
	return PolicyPropagate
}

// Operations returns every gateway operation.
func Operations() []Operation {
	return []Operation{
		OpRefinePrompt,
		OpGenerateImage,
		OpDescribeArtwork,
		OpGenerateHashtags,
		OpSynthesizeSpeech,
	}
}

func (op Operation) String() string {
	return string(op)
}
