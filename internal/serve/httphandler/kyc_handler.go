package httphandler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/fikir-app/fikir-backend/internal/data"
	"github.com/fikir-app/fikir-backend/internal/serve/auth"
	"github.com/fikir-app/fikir-backend/internal/serve/httperror"
	"github.com/fikir-app/fikir-backend/internal/serve/validators"
	"github.com/fikir-app/fikir-backend/internal/services"
	"github.com/fikir-app/fikir-backend/internal/support/httpjson"
)

// maxKYCFileBytes caps each uploaded document at 10 MB.
const maxKYCFileBytes = 10 << 20

// KYCHandler accepts identity document submissions and their admin review.
type KYCHandler struct {
	KYCService services.KYCServiceInterface
}

// KYCSubmitResponse reports the submission the user now has open.
type KYCSubmitResponse struct {
	Submission     *data.KYCSubmission `json:"submission"`
	AlreadyPending bool                `json:"already_pending"`
}

// Submit stores an encrypted document/selfie pair and opens a PENDING
// submission. Re-submitting while one is open returns the open one.
func (h KYCHandler) Submit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	principal, err := auth.PrincipalFromContext(ctx)
	if err != nil {
		httperror.Unauthorized("", err, nil).Render(w)
		return
	}

	docType := data.KYCDocType(strings.ToUpper(r.FormValue("doc_type")))
	if err = docType.Validate(); err != nil {
		httperror.BadRequest("", err, map[string]interface{}{"doc_type": "doc_type must be one of: NID, PASSPORT"}).Render(w)
		return
	}

	document, httpErr := readMultipartFile(r, "document")
	if httpErr != nil {
		httpErr.Render(w)
		return
	}
	selfie, httpErr := readMultipartFile(r, "selfie")
	if httpErr != nil {
		httpErr.Render(w)
		return
	}

	result, err := h.KYCService.Submit(ctx, principal.UserID, docType, document, selfie)
	if err != nil {
		httperror.InternalError(ctx, "Cannot submit KYC documents", err, nil).Render(w)
		return
	}

	status := http.StatusCreated
	if result.AlreadyPending {
		status = http.StatusOK
	}
	httpjson.RenderStatus(w, status, KYCSubmitResponse{
		Submission:     result.Submission,
		AlreadyPending: result.AlreadyPending,
	}, httpjson.JSON)
}

// readMultipartFile reads one uploaded file into memory, enforcing the size
// cap before buffering.
func readMultipartFile(r *http.Request, field string) ([]byte, *httperror.HTTPError) {
	file, header, err := r.FormFile(field)
	if err != nil {
		return nil, httperror.BadRequest("", err, map[string]interface{}{field: fmt.Sprintf("%s file is required", field)})
	}
	defer file.Close()

	if header.Size > maxKYCFileBytes {
		return nil, httperror.BadRequest("", nil, map[string]interface{}{field: "file exceeds the 10 MB limit"})
	}

	var buf bytes.Buffer
	if _, err = io.Copy(&buf, io.LimitReader(file, maxKYCFileBytes)); err != nil {
		return nil, httperror.BadRequest("could not read file", err, nil)
	}
	return buf.Bytes(), nil
}

type ReviewKYCRequest struct {
	Decision string  `json:"decision"`
	Notes    *string `json:"notes"`
}

func (r *ReviewKYCRequest) validate() (data.KYCStatus, *httperror.HTTPError) {
	validator := validators.NewValidator()
	verdict := data.KYCStatus(strings.ToUpper(r.Decision))
	validator.Check(verdict == data.VerifiedKYCStatus || verdict == data.RejectedKYCStatus,
		"decision", "decision must be one of: verified, rejected")
	if validator.HasErrors() {
		return "", httperror.BadRequest("", nil, validator.Errors)
	}
	return verdict, nil
}

// Review settles a PENDING submission. A VERIFIED verdict raises the wallet
// KYC level.
func (h KYCHandler) Review(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	submissionID := chi.URLParam(r, "id")

	principal, err := auth.PrincipalFromContext(ctx)
	if err != nil {
		httperror.Unauthorized("", err, nil).Render(w)
		return
	}

	var reqBody ReviewKYCRequest
	if err = json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
		httperror.BadRequest("invalid request body", err, nil).Render(w)
		return
	}
	verdict, httpErr := reqBody.validate()
	if httpErr != nil {
		httpErr.Render(w)
		return
	}

	submission, err := h.KYCService.Review(ctx, principal.UserID, submissionID, verdict, reqBody.Notes)
	if err != nil {
		switch {
		case errors.Is(err, data.ErrRecordNotFound):
			httperror.NotFound("KYC submission not found.", err, nil).Render(w)
		case errors.Is(err, services.ErrInvalidStatusTransition):
			httperror.Conflict("The submission has already been reviewed.", err, nil).Render(w)
		default:
			httperror.InternalError(ctx, "Cannot review KYC submission", err, nil).Render(w)
		}
		return
	}

	httpjson.RenderStatus(w, http.StatusOK, submission, httpjson.JSON)
}
