package constants

const (
	ServiceName    = "kath_hub"
	ServiceVersion = "1.0.0"
)
