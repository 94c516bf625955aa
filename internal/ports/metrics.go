package ports

// MetricsRecorder counts bridge outcomes
type MetricsRecorder interface {
	ObserveInstall(outcome string)
	ObserveUninstall(outcome string)
	ObserveHMACRejection(kind string)
	ObserveSideEffect(name string, outcome string)
	ObserveSSOIssued()
}
