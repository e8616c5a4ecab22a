package pptxtpl

import (
	"fmt"
	"sort"

	"github.com/flosch/pongo2/v6"
)

// IssueSeverity indicates how serious a validation issue is.
type IssueSeverity string

const (
	IssueSeverityError   IssueSeverity = "error"
	IssueSeverityWarning IssueSeverity = "warning"
)

// IssueCode classifies validation issues.
type IssueCode string

const (
	IssueCodeSyntaxError        IssueCode = "SYNTAX_ERROR"
	IssueCodeBlockMismatch      IssueCode = "CONTROL_BLOCK_MISMATCH"
	IssueCodeDuplicateDirective IssueCode = "DUPLICATE_DIRECTIVE"
)

// ValidationIssue is one problem found in a template.
type ValidationIssue struct {
	ID       string        `json:"id"`
	Severity IssueSeverity `json:"severity"`
	Code     IssueCode     `json:"code"`
	Slide    int           `json:"slide"`
	Message  string        `json:"message"`
}

// ValidationResult is the outcome of validating a template.
type ValidationResult struct {
	Valid         bool              `json:"valid"`
	CheckedSlides int               `json:"checkedSlides"`
	Issues        []ValidationIssue `json:"issues"`
}

// Validate checks every slide for directive problems a render would only
// surface one at a time: unbalanced slide-level control markers, duplicate
// structural directives, and tag syntax the expression engine rejects.
// Rendering does not require a prior Validate call; this exists so callers
// can report all problems at once instead of fixing them render by render.
func (t *Template) Validate() *ValidationResult {
	result := &ValidationResult{
		CheckedSlides: t.pkg.SlideCount(),
	}

	for i, s := range t.pkg.Slides() {
		slideNo := i + 1
		source := stripInternalTags(cleanDelimiters(s.XML()))

		ifs := len(slideIfPattern.FindAllString(source, -1))
		endifs := len(slideEndifPattern.FindAllString(source, -1))
		fors := len(slideForPattern.FindAllString(source, -1))
		endfors := len(slideEndforPattern.FindAllString(source, -1))

		// A lone opening marker is the normal style; endif/endfor are
		// optional. Only a paired style that fails to pair is a mistake.
		if endifs > 0 && ifs != endifs {
			result.addIssue(IssueSeverityError, IssueCodeBlockMismatch, slideNo,
				fmt.Sprintf("%d slide conditional marker(s) but %d endif marker(s)", ifs, endifs))
		}
		if endfors > 0 && fors != endfors {
			result.addIssue(IssueSeverityError, IssueCodeBlockMismatch, slideNo,
				fmt.Sprintf("%d slide loop marker(s) but %d endfor marker(s)", fors, endfors))
		}
		if ifs > 1 {
			result.addIssue(IssueSeverityWarning, IssueCodeDuplicateDirective, slideNo,
				"multiple slide conditionals on one slide; only the first applies")
		}
		if fors > 1 {
			result.addIssue(IssueSeverityWarning, IssueCodeDuplicateDirective, slideNo,
				"multiple slide loops on one slide; only the first applies")
		}

		// Slide markers never reach the expression engine; rendering
		// resolves them structurally first. Everything else must parse.
		inline := stripLoopMarkers(stripConditionalMarkers(source))
		if _, err := pongo2.FromString(stripScopePrefixes(inline)); err != nil {
			result.addIssue(IssueSeverityError, IssueCodeSyntaxError, slideNo,
				fmt.Sprintf("directive syntax error: %v", err))
		}
	}

	sort.SliceStable(result.Issues, func(i, j int) bool {
		left, right := result.Issues[i], result.Issues[j]
		if left.Slide != right.Slide {
			return left.Slide < right.Slide
		}
		if left.Severity != right.Severity {
			return left.Severity < right.Severity
		}
		return left.Code < right.Code
	})
	for i := range result.Issues {
		result.Issues[i].ID = fmt.Sprintf("iss_%03d", i+1)
	}

	result.Valid = true
	for _, issue := range result.Issues {
		if issue.Severity == IssueSeverityError {
			result.Valid = false
			break
		}
	}
	return result
}

func (r *ValidationResult) addIssue(severity IssueSeverity, code IssueCode, slide int, message string) {
	r.Issues = append(r.Issues, ValidationIssue{
		Severity: severity,
		Code:     code,
		Slide:    slide,
		Message:  message,
	})
}

// CheckContext reports every template variable missing from ctx. All
// misses are collected into one error rather than failing on the first.
func (t *Template) CheckContext(ctx Context) error {
	multi := NewMultiError()
	for _, name := range t.UndeclaredVariables() {
		if _, ok := ctx[name]; !ok {
			multi.Add(fmt.Errorf("variable %q is not defined in the context", name))
		}
	}
	return multi.Err()
}
