package notion

import "strings"

// markers lists the annotation wrappers in application order. Each wrap sees
// the output of the previous one, so bold+italic yields "***x***".
var markers = []struct {
	on          func(Annotations) bool
	open, close string
}{
	{func(a Annotations) bool { return a.Bold }, "**", "**"},
	{func(a Annotations) bool { return a.Italic }, "*", "*"},
	{func(a Annotations) bool { return a.Underline }, "<u>", "</u>"},
	{func(a Annotations) bool { return a.Strikethrough }, "~~", "~~"},
	{func(a Annotations) bool { return a.Code }, "`", "`"},
}

// Markdown renders one run with its annotations applied.
func (r RichTextRun) Markdown() string {
	s := r.Content
	for _, m := range markers {
		if m.on(r.Annotations) {
			s = m.open + s + m.close
		}
	}
	return s
}

// Markdown concatenates every rendered run.
func (rt RichText) Markdown() string {
	var b strings.Builder
	for _, r := range rt {
		b.WriteString(r.Markdown())
	}
	return b.String()
}
