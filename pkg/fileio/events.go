package fileio

import "github.com/zoobzio/capitan"

// Signals follow the pattern mngs.<operation>.<event>.
var (
	LoadCompleted = capitan.NewSignal(
		"mngs.load.completed",
		"Payload decoded from a file",
	)
	LoadFailed = capitan.NewSignal(
		"mngs.load.failed",
		"Decoding a file failed",
	)
	LoadSkipped = capitan.NewSignal(
		"mngs.load.skipped",
		"File extension has no registered decoder",
	)
	SaveCompleted = capitan.NewSignal(
		"mngs.save.completed",
		"Payload written to a file",
	)
	SaveFailed = capitan.NewSignal(
		"mngs.save.failed",
		"Writing a payload failed",
	)
)

// Field keys for mngs event data.
var (
	FieldPath     = capitan.NewStringKey("path")
	FieldExt      = capitan.NewStringKey("ext")
	FieldCodec    = capitan.NewStringKey("codec")
	FieldDuration = capitan.NewDurationKey("duration")
	FieldError    = capitan.NewErrorKey("error")
	FieldTraceID  = capitan.NewStringKey("trace_id")
)
