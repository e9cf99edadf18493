package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"strings"

	"resume-tailor/internal/common/validation"
	"resume-tailor/internal/tailor"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	pageIndex   = "index.html"
	pageBuilder = "builder.html"
)

var funcs = template.FuncMap{
	"join": strings.Join,
	"inc":  func(i int) int { return i + 1 },
}

// loadPages parses every page together with the shared layout.
func loadPages() (map[string]*template.Template, error) {
	pages := make(map[string]*template.Template)
	for _, name := range []string{pageIndex, pageBuilder} {
		t, err := template.New(name).Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		pages[name] = t
	}
	return pages, nil
}

type gateView struct {
	Price     string
	UPIID     string
	PayeeName string
	WhatsApp  string
	QRPath    string
	Hours     int
}

type experienceForm struct {
	Company  string
	Role     string
	Duration string
	Bullets  string
}

type pageData struct {
	AppName     string
	Token       string
	Input       tailor.Submission
	Experiences []experienceForm
	Result      *tailor.Result
	Gate        *gateView
	Error       string
	FieldErrors []validation.ValidationError
}

// experienceForms pads the submitted experiences to the number of blocks
// the builder shows.
func experienceForms(sub tailor.Submission) []experienceForm {
	out := make([]experienceForm, tailor.MaxExperiences)
	for i, e := range sub.Experiences {
		if i >= len(out) {
			break
		}
		out[i] = experienceForm{
			Company:  e.Company,
			Role:     e.Role,
			Duration: e.Duration,
			Bullets:  strings.Join(e.Bullets, "\n"),
		}
	}
	return out
}

func (h *Handler) render(w http.ResponseWriter, status int, page string, data *pageData) {
	data.AppName = h.cfg.App.Name
	if page == pageBuilder && data.Experiences == nil {
		data.Experiences = experienceForms(data.Input)
	}

	var buf bytes.Buffer
	if err := h.pages[page].ExecuteTemplate(&buf, "layout", data); err != nil {
		h.logger.Error("template render failed", map[string]interface{}{
			"page":  page,
			"error": err.Error(),
		})
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
