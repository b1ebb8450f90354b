package constants

// ComplianceStatus is the outcome of checking a ticket against policy limits.
type ComplianceStatus string

const (
	StatusApproved         ComplianceStatus = "approved"
	StatusRequiresApproval ComplianceStatus = "requires_approval"
	StatusPendingReview    ComplianceStatus = "pending_review"
	StatusError            ComplianceStatus = "error"
)

// JobStatus tracks a queued document in the daemon.
type JobStatus string

const (
	JobStatusQueued  JobStatus = "QUEUED"
	JobStatusRunning JobStatus = "RUNNING"
	JobStatusDone    JobStatus = "DONE"
	JobStatusFailed  JobStatus = "FAILED" // text extraction produced a sentinel
)

// Extraction methods reported on TicketInfo and doctext results.
const (
	MethodHeuristic = "heuristic"
	MethodAssisted  = "assisted"

	MethodImageOCR = "image-ocr"
	MethodPDFText  = "pdf-text"
	MethodPDFOCR   = "pdf-ocr"
	MethodDocx     = "docx"
	MethodDocSalv  = "doc-salvage"
	MethodXLSX     = "xlsx"
	MethodText     = "text"
	MethodRTF      = "rtf"
	MethodRaw      = "raw"
)
