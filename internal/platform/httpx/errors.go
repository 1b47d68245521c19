// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"

	"github.com/odyssey-erp/invoice-insights/internal/shared"
)

// RespondError maps tagged pipeline errors to RFC7807 responses. Storage
// failures and untagged errors are reported without detail.
func RespondError(w http.ResponseWriter, err error) {
	var tagged *shared.Error
	if !errors.As(err, &tagged) {
		if errors.Is(err, shared.ErrNotFound) {
			Problem(w, http.StatusNotFound, "Not Found", err.Error())
			return
		}
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}

	status, title := StatusFor(tagged.Kind)
	if status == http.StatusInternalServerError {
		JSON(w, status, ProblemDetail{Title: title, Status: status, Kind: string(tagged.Kind)})
		return
	}
	JSON(w, status, ProblemDetail{
		Title:  title,
		Status: status,
		Detail: tagged.Error(),
		Kind:   string(tagged.Kind),
		Row:    tagged.Row,
		Key:    tagged.Key,
		Errors: tagged.Fields,
	})
}

// StatusFor returns the HTTP status and problem title for an error kind.
func StatusFor(kind shared.Kind) (int, string) {
	switch kind {
	case shared.KindValidationFailed:
		return http.StatusBadRequest, "Validation Failed"
	case shared.KindUnsupportedFileType:
		return http.StatusUnsupportedMediaType, "Unsupported File Type"
	case shared.KindDuplicateInvoice:
		return http.StatusConflict, "Duplicate Invoice"
	case shared.KindIngestionInProgress:
		return http.StatusConflict, "Ingestion In Progress"
	case shared.KindReferenceNotFound:
		return http.StatusUnprocessableEntity, "Reference Not Found"
	case shared.KindSupplierNotFound:
		return http.StatusUnprocessableEntity, "Supplier Not Found"
	default:
		return http.StatusInternalServerError, "Internal Error"
	}
}
