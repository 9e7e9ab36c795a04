package logging

import "strings"

// FormatSubject builds the job subject string used in console output. Long
// identifiers (UUIDs) are shortened to their first segment for readability.
func FormatSubject(jobID string) string {
	jobID = strings.TrimSpace(jobID)
	if jobID == "" {
		return ""
	}
	return "Job " + ShortJobID(jobID)
}

// ShortJobID returns a compact display form of a render job identifier.
func ShortJobID(jobID string) string {
	jobID = strings.TrimSpace(jobID)
	if idx := strings.IndexByte(jobID, '-'); idx > 0 && len(jobID) > 12 {
		return jobID[:idx]
	}
	if len(jobID) > 12 {
		return jobID[:12]
	}
	return jobID
}
