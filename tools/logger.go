package tools

import (
	"log"
	"time"
)

// LogOutput prints user-facing progress messages (such as the final
// "Conversion Completed") via the stdlib logger (stderr by default),
// deliberately separate from glog's leveled Info/Warning/Fatal calls
// elsewhere in the pipeline: these messages are meant for a human running
// the CLI and must stay visible regardless of glog's -v verbosity.
var isEnabled = true
var printTimestamp = true

// EnableLogger turns LogOutput back on after DisableLogger.
func EnableLogger() {
	isEnabled = true
}

// DisableLogger silences LogOutput, for the -silent flag.
func DisableLogger() {
	isEnabled = false
}

func EnableLoggerTimestamp() {
	printTimestamp = true
}

// DisableLoggerTimestamp drops the leading timestamp line LogOutput
// otherwise prints, for the default (non -timestamp) CLI invocation.
func DisableLoggerTimestamp() {
	printTimestamp = false
}

func LogOutput(val ...interface{}) {
	if !isEnabled {
		return
	}
	if printTimestamp {
		log.Println("[" + time.Now().Format("2006-01-02 15.04:05.000") + "] ")
	}
	log.Println(val...)
}
