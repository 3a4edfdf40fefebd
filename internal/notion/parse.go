package notion

import "strings"

// BlockDescriptor is a request to create one block. It carries only what the
// append endpoint needs; it has no ID and no children.
type BlockDescriptor struct {
	Kind     Kind
	Text     RichText
	Checked  bool
	Language string
}

// plain builds a descriptor holding a single unannotated run.
func plain(kind Kind, content string) BlockDescriptor {
	return BlockDescriptor{Kind: kind, Text: RichText{{Content: content}}}
}

// lineRule classifies a line when match reports true.
type lineRule struct {
	match func(line string) bool
	build func(line string) BlockDescriptor
}

func hasPrefix(p string) func(string) bool {
	return func(line string) bool { return strings.HasPrefix(line, p) }
}

// afterPrefix builds a descriptor from the text following prefix.
func afterPrefix(kind Kind, prefix string) func(string) BlockDescriptor {
	return func(line string) BlockDescriptor {
		return plain(kind, strings.TrimPrefix(line, prefix))
	}
}

func todo(checked bool) func(string) BlockDescriptor {
	return func(line string) BlockDescriptor {
		d := plain(KindToDo, line[len("- [ ] "):])
		d.Checked = checked
		return d
	}
}

// lineRules is evaluated top to bottom; the first match wins and the final
// rule matches everything.
var lineRules = []lineRule{
	{hasPrefix("### "), afterPrefix(KindHeading3, "### ")},
	{hasPrefix("## "), afterPrefix(KindHeading2, "## ")},
	{hasPrefix("# "), afterPrefix(KindHeading1, "# ")},
	{hasPrefix("- [x] "), todo(true)},
	{hasPrefix("- [ ] "), todo(false)},
	{hasPrefix("- "), afterPrefix(KindBulleted, "- ")},
	{hasPrefix("1. "), afterPrefix(KindNumbered, "1. ")},
	{hasPrefix("```"), func(line string) BlockDescriptor {
		// Only the fence is read; the body lines that follow become
		// paragraphs of their own.
		d := plain(KindCode, "")
		d.Language = strings.TrimSpace(line[len("```"):])
		return d
	}},
	{func(line string) bool {
		return strings.HasPrefix(line, "---") || strings.HasPrefix(line, "***")
	}, func(string) BlockDescriptor { return BlockDescriptor{Kind: KindDivider} }},
	{hasPrefix("> "), afterPrefix(KindQuote, "> ")},
	{hasPrefix("###"), func(line string) BlockDescriptor { return plain(KindToggle, line) }},
	{func(string) bool { return true }, func(line string) BlockDescriptor { return plain(KindParagraph, line) }},
}

// ParseMarkup classifies each line of markdown into one BlockDescriptor. It is
// total: every line, including an empty one, produces a descriptor.
// Inline markers (** * ~~ `) are kept as literal text.
func ParseMarkup(markdown string) []BlockDescriptor {
	lines := strings.Split(markdown, "\n")
	out := make([]BlockDescriptor, 0, len(lines))
	for _, line := range lines {
		out = append(out, classify(line))
	}
	return out
}

func classify(line string) BlockDescriptor {
	for _, r := range lineRules {
		if r.match(line) {
			return r.build(line)
		}
	}
	// Unreachable: the last rule matches every line.
	return plain(KindParagraph, line)
}
