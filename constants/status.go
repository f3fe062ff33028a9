package constants

// JobStatus is the canonical lifecycle state of an extraction job.
type JobStatus string

// Stable values (returned verbatim to polling clients).
const (
	JobStatusQueued     JobStatus = "QUEUED"     // accepted, waiting for a worker
	JobStatusProcessing JobStatus = "PROCESSING" // a worker owns it
	JobStatusComplete   JobStatus = "COMPLETE"   // terminal: text extracted
	JobStatusFailed     JobStatus = "FAILED"     // terminal: unrecoverable error
	JobStatusTimedOut   JobStatus = "TIMED_OUT"  // terminal: wall-clock ceiling exceeded
	JobStatusCancelled  JobStatus = "CANCELLED"  // terminal: explicit cancel call only
)

// IsTerminal reports whether a status is a sink state. Terminal jobs never
// accept further progress updates or transitions.
func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobStatusComplete, JobStatusFailed, JobStatusTimedOut, JobStatusCancelled:
		return true
	}
	return false
}

// ExtractionMethod identifies which strategy of the chain produced the text.
type ExtractionMethod string

const (
	MethodNativeFast   ExtractionMethod = "native-fast"
	MethodNativeLayout ExtractionMethod = "native-layout"
	MethodNativeBasic  ExtractionMethod = "native-basic"
	MethodOCRFast      ExtractionMethod = "ocr-fast"
	MethodOCRAccurate  ExtractionMethod = "ocr-accurate"
)
