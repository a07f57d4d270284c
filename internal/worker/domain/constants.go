package domain

// Payload field names on the wire
const (
	FieldFrom           = "from"
	FieldTo             = "to"
	FieldSuccessAttempt = "success_attempt"
	FieldFailedAttempt  = "failed_attempt"
)

// CurrencyCodeLength is the exact length of a currency code in characters
const CurrencyCodeLength = 3

// Processing stages, used to tag errors and label metrics
const (
	StageReserve  = "reserve"
	StageDecode   = "decode"
	StageFetch    = "fetch"
	StageExtract  = "extract"
	StagePersist  = "persist"
	StageComplete = "complete"
)
