package tailor

import (
	"strings"

	"resume-tailor/internal/common/validation"
)

var structuredSchema = validation.MustCompile(`{
	"type": "object",
	"required": ["experiences"],
	"properties": {
		"name":           {"type": "string", "maxLength": 200},
		"email":          {"type": "string", "format": "email"},
		"phone":          {"type": "string", "maxLength": 40},
		"jobTitle":       {"type": "string", "maxLength": 200},
		"jobDescription": {"type": "string"},
		"experiences": {
			"type": "array",
			"minItems": 1,
			"maxItems": 2,
			"items": {
				"type": "object",
				"required": ["company", "role"],
				"properties": {
					"company": {"type": "string", "minLength": 1},
					"role":    {"type": "string", "minLength": 1}
				}
			}
		}
	}
}`)

// simpleSchema accepts an empty resume: it scores against the job
// description and has nothing to rewrite.
var simpleSchema = validation.MustCompile(`{
	"type": "object",
	"properties": {
		"resume":         {"type": "string"},
		"jobDescription": {"type": "string"}
	}
}`)

// normalize trims every field and drops trailing experience blocks the user
// left empty. The first block is always kept so a blank one is reported; a
// later block with any content must name its company and role too.
func normalize(sub Submission) Submission {
	out := sub
	out.Resume = strings.TrimSpace(sub.Resume)
	out.JobDescription = strings.TrimSpace(sub.JobDescription)
	out.Name = strings.TrimSpace(sub.Name)
	out.Email = strings.TrimSpace(sub.Email)
	out.Phone = strings.TrimSpace(sub.Phone)
	out.JobTitle = strings.TrimSpace(sub.JobTitle)

	out.Experiences = nil
	for i, e := range sub.Experiences {
		e.Company = strings.TrimSpace(e.Company)
		e.Role = strings.TrimSpace(e.Role)
		e.Duration = strings.TrimSpace(e.Duration)
		var bullets []string
		for _, b := range e.Bullets {
			if b = strings.TrimSpace(b); b != "" {
				bullets = append(bullets, b)
			}
		}
		e.Bullets = bullets
		if i > 0 && e.blank() {
			continue
		}
		out.Experiences = append(out.Experiences, e)
	}
	return out
}

// Validate checks a normalized submission for its variant.
func Validate(sub Submission) error {
	schema := simpleSchema
	if sub.Variant == VariantStructured {
		schema = structuredSchema
		if len(sub.Experiences) == 0 {
			// the builder always posts a first block, even when blank
			sub.Experiences = []Experience{{}}
		}
	}

	res := schema.Validate(sub)
	if res.Valid {
		return nil
	}
	return &ValidationError{Fields: res.Errors}
}
