package pptxtpl

import (
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/flosch/pongo2/v6"
)

// captureName is injected into the evaluation context so a loop expression
// can be captured as a value instead of being rendered to text.
const captureName = "__pptxtpl_capture"

var autoescapeOnce sync.Once

// evaluator wraps the pongo2 engine. pongo2 implements the Django template
// syntax, which matches the Jinja2 dialect the slide directives use.
type evaluator struct{}

func newEvaluator() *evaluator {
	autoescapeOnce.Do(func() {
		// Slide markup must pass through untouched; context values are
		// escaped before evaluation instead.
		pongo2.SetAutoescape(false)
	})
	return &evaluator{}
}

// render executes preprocessed slide XML as a template against ctx.
func (e *evaluator) render(source string, ctx Context) (out string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = NewEvaluationError(0, "", RecoverError(r))
		}
	}()

	tpl, err := pongo2.FromString(source)
	if err != nil {
		return "", NewDirectiveError(0, "", "template syntax error", err)
	}
	rendered, err := tpl.Execute(pongo2.Context(ctx))
	if err != nil {
		return "", NewEvaluationError(0, "", err)
	}
	return rendered, nil
}

// evalTruth evaluates a condition using the template language's own
// truthiness rules: absent names, nil, zero, empty strings and empty
// collections are all falsy.
func (e *evaluator) evalTruth(expr string, ctx Context) (truthy bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = NewEvaluationError(0, expr, RecoverError(r))
		}
	}()

	tpl, err := pongo2.FromString("{% if " + expr + " %}1{% endif %}")
	if err != nil {
		return false, NewDirectiveError(0, expr, "invalid condition", err)
	}
	out, err := tpl.Execute(pongo2.Context(ctx))
	if err != nil {
		return false, NewEvaluationError(0, expr, err)
	}
	return out == "1", nil
}

// evalItems evaluates a loop expression and materialises the result as a
// slice of items. Slices, arrays and strings enumerate their elements;
// maps enumerate their keys in sorted order. A missing or nil value is an
// error: a loop needs a concrete iterable.
func (e *evaluator) evalItems(expr string, ctx Context) (items []interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = NewEvaluationError(0, expr, RecoverError(r))
		}
	}()

	tpl, err := pongo2.FromString("{{ " + captureName + "(" + expr + ") }}")
	if err != nil {
		return nil, NewDirectiveError(0, expr, "invalid loop expression", err)
	}

	var captured *pongo2.Value
	exec := make(pongo2.Context, len(ctx)+1)
	for name, value := range ctx {
		exec[name] = value
	}
	exec[captureName] = func(v *pongo2.Value) *pongo2.Value {
		captured = v
		return pongo2.AsValue("")
	}

	if _, err := tpl.Execute(exec); err != nil {
		return nil, NewEvaluationError(0, expr, err)
	}
	if captured == nil || captured.IsNil() {
		return nil, NewEvaluationError(0, expr, fmt.Errorf("expression is not defined"))
	}

	if captured.CanSlice() {
		items = make([]interface{}, 0, captured.Len())
		for i := 0; i < captured.Len(); i++ {
			items = append(items, captured.Index(i).Interface())
		}
		return items, nil
	}

	value := reflect.ValueOf(captured.Interface())
	for value.Kind() == reflect.Ptr {
		value = value.Elem()
	}
	if value.Kind() == reflect.Map {
		keys := value.MapKeys()
		sort.Slice(keys, func(i, j int) bool {
			return fmt.Sprint(keys[i].Interface()) < fmt.Sprint(keys[j].Interface())
		})
		items = make([]interface{}, 0, len(keys))
		for _, key := range keys {
			items = append(items, key.Interface())
		}
		return items, nil
	}

	return nil, NewEvaluationError(0, expr, fmt.Errorf("value of type %T is not iterable", captured.Interface()))
}

// destructure unpacks a loop item into n values for a multi-name loop
// binding. The item must be a slice or array of exactly n elements.
func destructure(item interface{}, n int) ([]interface{}, error) {
	value := reflect.ValueOf(item)
	for value.Kind() == reflect.Ptr {
		value = value.Elem()
	}
	if value.Kind() != reflect.Slice && value.Kind() != reflect.Array {
		return nil, fmt.Errorf("cannot unpack value of type %T into %d names", item, n)
	}
	if value.Len() != n {
		return nil, fmt.Errorf("cannot unpack %d values into %d names", value.Len(), n)
	}
	out := make([]interface{}, n)
	for i := range out {
		out[i] = value.Index(i).Interface()
	}
	return out, nil
}

var (
	identifierPattern    = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*`)
	stringLiteralPattern = regexp.MustCompile(`"[^"]*"|'[^']*'`)
	forHeaderPattern     = regexp.MustCompile(`(?s)^\s*for\s+([\w\s,]+?)\s+in\s+(.*)$`)
)

// reservedNames are keywords, operators and literals of the template
// language, plus the implicit loop variables. They never count as free
// variables.
var reservedNames = map[string]struct{}{
	"if": {}, "elif": {}, "else": {}, "endif": {},
	"for": {}, "endfor": {}, "in": {}, "empty": {},
	"and": {}, "or": {}, "not": {}, "is": {},
	"true": {}, "false": {}, "True": {}, "False": {},
	"none": {}, "None": {}, "nil": {},
	"with": {}, "endwith": {}, "set": {}, "as": {},
	"block": {}, "endblock": {}, "extends": {}, "include": {},
	"import": {}, "from": {}, "macro": {}, "endmacro": {},
	"filter": {}, "endfilter": {}, "comment": {}, "endcomment": {},
	"autoescape": {}, "endautoescape": {}, "verbatim": {}, "endverbatim": {},
	"cycle": {}, "loop": {}, "forloop": {}, "reversed": {}, "sorted": {},
}

// freeVariables scans template source for names the template reads but
// never defines. The scan is lexical rather than a full parse: it walks
// every tag, blanks string literals, skips filter names and attribute
// access, and subtracts names bound by for loops. Sources that do not
// parse are skipped, matching the best-effort contract of discovery.
func freeVariables(source string) map[string]struct{} {
	if _, err := pongo2.FromString(source); err != nil {
		return nil
	}

	found := map[string]struct{}{}
	bound := map[string]struct{}{}

	for _, tag := range jinjaTagPattern.FindAllString(source, -1) {
		body, kind := tagBody(tag)
		if kind == tagComment {
			continue
		}
		body = stringLiteralPattern.ReplaceAllString(body, " ")
		if kind == tagStatement {
			if m := forHeaderPattern.FindStringSubmatch(body); m != nil {
				for _, name := range strings.Split(m[1], ",") {
					if name = strings.TrimSpace(name); name != "" {
						bound[name] = struct{}{}
					}
				}
				body = m[2]
			}
		}
		collectIdentifiers(body, found)
	}

	for name := range bound {
		delete(found, name)
	}
	return found
}

const (
	tagExpression = iota
	tagStatement
	tagComment
)

func tagBody(tag string) (string, int) {
	switch {
	case strings.HasPrefix(tag, "{{"):
		return tag[2 : len(tag)-2], tagExpression
	case strings.HasPrefix(tag, "{%"):
		return tag[2 : len(tag)-2], tagStatement
	default:
		return "", tagComment
	}
}

func collectIdentifiers(body string, found map[string]struct{}) {
	for _, loc := range identifierPattern.FindAllStringIndex(body, -1) {
		name := body[loc[0]:loc[1]]
		if _, ok := reservedNames[name]; ok {
			continue
		}
		// a.b reads attribute b of a; x|upper applies the filter upper.
		if prev := lastNonSpace(body, loc[0]); prev == '.' || prev == '|' {
			continue
		}
		// Keyword argument names in calls are not variables.
		if next, after := nextNonSpace(body, loc[1]); next == '=' && after != '=' {
			continue
		}
		found[name] = struct{}{}
	}
}

func lastNonSpace(s string, pos int) byte {
	for i := pos - 1; i >= 0; i-- {
		switch s[i] {
		case ' ', '\t', '\n', '\r':
			continue
		}
		return s[i]
	}
	return 0
}

func nextNonSpace(s string, pos int) (byte, byte) {
	for i := pos; i < len(s); i++ {
		switch s[i] {
		case ' ', '\t', '\n', '\r':
			continue
		}
		if i+1 < len(s) {
			return s[i], s[i+1]
		}
		return s[i], 0
	}
	return 0, 0
}
