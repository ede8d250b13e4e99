package access

type AccessState string

const (
	// AccessFull: paid plan in good standing.
	AccessFull AccessState = "full"
	// AccessGrace: paid plan whose last renewal failed. Existing events keep
	// working but paid features are withheld until the invoice is settled.
	AccessGrace AccessState = "grace"
	// AccessFree: starter tier.
	AccessFree AccessState = "free"
)
