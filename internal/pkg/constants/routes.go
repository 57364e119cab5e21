package constants

// Static route constants
const (
	PublicRoute       = "/"
	UpgradeRoute      = "/upgrade"
	UnsubscribeRoute  = "/unsubscribe"
	UnsubscribedRoute = "/unsubscribed"
)
