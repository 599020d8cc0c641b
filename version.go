package eventlog

// InstrumentationVersion is reported with telemetry emitted by this module.
const InstrumentationVersion = "0.1.0"
