package resources

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/valyala/fasttemplate"

	"wedge.io/wedge/lib/logger"
)

// MessagePrefix is the namespace holding message texts
const MessagePrefix = "message."

// Message returns the text for code with {0}, {1}, ... replaced by args.
//
// Unknown codes resolve to "code" or "code: args..." so that the caller always gets a text.
func (r *Resources) Message(code string, args ...any) string {
	text, ok := r.Lookup(MessagePrefix + code)
	if !ok {
		logger.Warnf("missing message for code %q", code)
		return fallbackMessage(code, args)
	}
	t, err := r.messageTemplate(text)
	if err != nil {
		logger.Warnf("invalid message template for code %q: %s", code, err)
		return fallbackMessage(code, args)
	}
	return t.ExecuteFuncString(func(w io.Writer, tag string) (int, error) {
		i, err := strconv.Atoi(strings.TrimSpace(tag))
		if err != nil || i < 0 || i >= len(args) {
			// leave unknown placeholders as is
			return fmt.Fprintf(w, "{%s}", tag)
		}
		return fmt.Fprint(w, args[i])
	})
}

func (r *Resources) messageTemplate(text string) (*fasttemplate.Template, error) {
	if v, ok := r.templates.Load(text); ok {
		return v.(*fasttemplate.Template), nil
	}
	t, err := fasttemplate.NewTemplate(text, "{", "}")
	if err != nil {
		return nil, err
	}
	r.templates.Store(text, t)
	return t, nil
}

func fallbackMessage(code string, args []any) string {
	if len(args) == 0 {
		return code
	}
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = fmt.Sprint(a)
	}
	return code + ": " + strings.Join(parts, ", ")
}
