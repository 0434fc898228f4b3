package cli

var (
	GetIndexConfig = getIndexConfig
	PrintReport    = printReport
	Shutdown       = shutdown
)
