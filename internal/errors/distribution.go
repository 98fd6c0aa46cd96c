package errors

// Category groups distribution failures for monitoring.
type Category string

const (
	CategoryNone          Category = ""
	CategoryGating        Category = "gating"
	CategoryContamination Category = "contamination"
	CategoryArithmetic    Category = "arithmetic"
	CategoryValidation    Category = "validation"
	CategoryInternal      Category = "internal"
)

// Gating.
var (
	ErrWindowNotElapsed  = Register(100, "distribution window not elapsed")
	ErrInvalidPageIndex  = Register(101, "invalid page index")
	ErrAllPagesProcessed = Register(102, "all pages processed for the day")
)

// Contamination.
var (
	ErrBaseFeesDetected = Register(200, "base currency fees detected")
)

// Arithmetic.
var (
	ErrOverflow           = Register(300, "arithmetic overflow")
	ErrLockedExceedsTotal = Register(301, "locked amount exceeds baseline allocation")
)

// Validation.
var (
	ErrInvalidQuoteMint   = Register(400, "invalid quote mint")
	ErrInvalidAccount     = Register(401, "invalid account")
	ErrTooManyInvestors   = Register(402, "too many investors in page")
	ErrDuplicateInvestor  = Register(403, "duplicate investor in page")
	ErrInvalidStream      = Register(404, "invalid vesting stream")
	ErrInvalidPolicy      = Register(405, "invalid policy")
	ErrPrematureFinalPage = Register(406, "final page before all investors processed")
)

// CategoryOf classifies err by the code range of its registered root.
func CategoryOf(err error) Category {
	if err == nil {
		return CategoryNone
	}
	switch code := CodeOf(err); {
	case code >= 100 && code < 200:
		return CategoryGating
	case code >= 200 && code < 300:
		return CategoryContamination
	case code >= 300 && code < 400:
		return CategoryArithmetic
	case code >= 400 && code < 500:
		return CategoryValidation
	default:
		return CategoryInternal
	}
}
