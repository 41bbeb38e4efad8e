package domain

import "fmt"

// OperationResult is the structured outcome of a write operation.
// Expected conditions (no match, ambiguous target, forbidden source
// type) are reported here with Success=false; only unexpected upstream
// failures surface as Go errors.
type OperationResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	// Count is operation specific: chunks written for store, documents
	// affected for delete/update/metadata operations.
	Count int `json:"count,omitempty"`
	// DocumentID is set on store/update so sync consumers can re-target
	// the same document on re-index.
	DocumentID string `json:"document_id,omitempty"`
	// Documents carries the candidate list when a filter matched more
	// than one document and the operation aborted for disambiguation.
	Documents []DocumentSummary `json:"documents,omitempty"`
}

// Failure builds an unsuccessful result with a formatted message.
func Failure(format string, args ...any) OperationResult {
	return OperationResult{Success: false, Message: fmt.Sprintf(format, args...)}
}

// Ambiguous builds the disambiguation result for a filter that matched
// more than one document. No mutation has been performed.
func Ambiguous(candidates []DocumentSummary) OperationResult {
	return OperationResult{
		Success: false,
		Message: fmt.Sprintf(
			"Multiple documents matched (%d). Please specify which one by document_id.",
			len(candidates),
		),
		Documents: candidates,
	}
}
