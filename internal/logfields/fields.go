package logfields

const (
	// Identifiers

	Name      = "name"
	Operation = "operation"
	ID        = "id"

	// Hyper-V objects

	VMName      = "vm-name"
	VSwitch     = "vswitch"
	Interface   = "interface"
	NetAdapters = "net-adapters"
	Queue       = "queue"
	VPort       = "vport"

	// remote execution

	Host    = "host"
	Command = "command"
	Dir     = "dir"
	Stdout  = "stdout"
	Stderr  = "stderr"

	// Files

	Path = "path"
	File = "file"
	Size = "size"

	// Status

	ExitCode = "exitCode"
	State    = "state"

	// Time

	Duration = "duration"
	Timeout  = "timeout"
	Attempt  = "attemptNo"

	// Keys/Values

	Field  = "field"
	Key    = "key"
	Value  = "value"
	Config = "config"

	// logging and tracing

	TraceID      = "traceID"
	SpanID       = "spanID"
	ParentSpanID = "parentSpanID"
	StartTime    = "startTime"
	EndTime      = "endTime"
)
