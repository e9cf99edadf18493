package web

import (
	stderrors "errors"
	"net/http"
	"strconv"

	"resume-tailor/internal/common/errors"
	"resume-tailor/internal/rewrite"
	"resume-tailor/internal/tailor"
)

// maxFormBytes bounds a submission body.
const maxFormBytes = 256 << 10

// accessToken returns the credential presented with r: the token query
// parameter, then the token form field, then the access cookie.
func (h *Handler) accessToken(r *http.Request) string {
	if tok := r.URL.Query().Get("token"); tok != "" {
		return tok
	}
	if tok := r.PostFormValue("token"); tok != "" {
		return tok
	}
	if c, err := r.Cookie(h.cfg.Access.CookieName); err == nil {
		return c.Value
	}
	return ""
}

func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	h.render(w, http.StatusOK, pageIndex, &pageData{Token: r.URL.Query().Get("token")})
}

func (h *Handler) handleBuilder(w http.ResponseWriter, r *http.Request) {
	h.render(w, http.StatusOK, pageBuilder, &pageData{Token: r.URL.Query().Get("token")})
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		h.render(w, http.StatusBadRequest, pageIndex, &pageData{Error: "Could not read the form, please try again."})
		return
	}

	sub := tailor.Submission{
		Variant:        tailor.VariantSimple,
		Resume:         r.PostFormValue("resume"),
		JobDescription: r.PostFormValue("job_desc"),
	}
	h.respond(w, r, pageIndex, sub)
}

func (h *Handler) handleBuilderSubmit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		h.render(w, http.StatusBadRequest, pageBuilder, &pageData{Error: "Could not read the form, please try again."})
		return
	}

	sub := tailor.Submission{
		Variant:        tailor.VariantStructured,
		Name:           r.PostFormValue("name"),
		Email:          r.PostFormValue("email"),
		Phone:          r.PostFormValue("phone"),
		JobTitle:       r.PostFormValue("job_title"),
		JobDescription: r.PostFormValue("job_desc"),
	}
	for i := 1; i <= tailor.MaxExperiences; i++ {
		n := strconv.Itoa(i)
		sub.Experiences = append(sub.Experiences, tailor.Experience{
			Company:  r.PostFormValue("company_" + n),
			Role:     r.PostFormValue("role_" + n),
			Duration: r.PostFormValue("duration_" + n),
			Bullets:  tailor.SplitBullets(r.PostFormValue("bullets_" + n)),
		})
	}
	h.respond(w, r, pageBuilder, sub)
}

// respond runs the submission and renders the page for its terminal state.
// The user's input is always written back into the form.
func (h *Handler) respond(w http.ResponseWriter, r *http.Request, page string, sub tailor.Submission) {
	token := h.accessToken(r)
	res := h.svc.Submit(r.Context(), token, sub)

	data := &pageData{Token: r.PostFormValue("token"), Input: res.Input}
	if data.Token == "" {
		data.Token = r.URL.Query().Get("token")
	}

	if res.State == tailor.StateResult {
		data.Result = res
		h.render(w, http.StatusOK, page, data)
		return
	}

	stdErr := toStandardError(res.Err)
	switch stdErr.Code {
	case errors.ErrCodeUnauthorized:
		data.Gate = h.gate()
	case errors.ErrCodeValidationFailed:
		var verr *tailor.ValidationError
		if stderrors.As(res.Err, &verr) {
			data.FieldErrors = verr.Fields
		}
		data.Error = "Please fix the highlighted fields."
	case errors.ErrCodeRewriteTimeout:
		data.Error = "The rewrite service took too long to answer. Your input is preserved, please try again."
	case errors.ErrCodeRewriteServiceFailed:
		data.Error = "The rewrite service is unavailable right now. Your input is preserved, please try again."
	default:
		data.Error = "Something went wrong. Your input is preserved, please try again."
	}
	h.render(w, errors.HTTPStatus(stdErr.Code), page, data)
}

// toStandardError maps orchestrator failures onto the shared error codes.
func toStandardError(err error) *errors.StandardError {
	if err == nil {
		return errors.NewInternalError(stderrors.New("submission ended without a result"))
	}

	var verr *tailor.ValidationError
	var rse *rewrite.RewriteServiceError
	switch {
	case stderrors.Is(err, tailor.ErrUnauthorized):
		return errors.NewUnauthorizedError(err.Error())
	case stderrors.As(err, &verr):
		return errors.NewValidationFailedError(verr.Error()).WithMetadata("fields", verr.Fields)
	case stderrors.As(err, &rse):
		if rse.Timeout() {
			return errors.NewRewriteTimeoutError(rse)
		}
		return errors.NewRewriteServiceFailedError(rse)
	default:
		return errors.NewInternalError(err)
	}
}
