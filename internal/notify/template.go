package notify

import (
	"fmt"
	"regexp"
	"strings"

	apperrors "github.com/jwalitptl/slot-sniper/pkg/errors"
)

var placeholderPattern = regexp.MustCompile(`\{([a-zA-Z0-9_]+)\}`)

// Render substitutes {field} placeholders from the given context maps.
// Later maps take precedence on key collision, so callers pass the
// locator context first and the appointment context second. A
// placeholder with no value in any map is a template error.
func Render(template string, contexts ...map[string]string) (string, error) {
	merged := make(map[string]string)
	for _, ctx := range contexts {
		for k, v := range ctx {
			merged[k] = v
		}
	}

	var missing []string
	rendered := placeholderPattern.ReplaceAllStringFunc(template, func(match string) string {
		key := match[1 : len(match)-1]
		value, ok := merged[key]
		if !ok {
			missing = append(missing, key)
			return match
		}
		return value
	})

	if len(missing) > 0 {
		return "", apperrors.NewTemplate(
			fmt.Sprintf("unresolved placeholders: %s", strings.Join(missing, ", ")), nil)
	}
	return rendered, nil
}
