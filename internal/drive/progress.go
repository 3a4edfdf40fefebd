package drive

import (
	"fmt"
	"io"
	"strings"
)

const barWidth = 20

// progressBar is an io.Writer that counts bytes and redraws a bar such as
// "\r[████████------------] 40%" each time the percentage changes.
type progressBar struct {
	w     io.Writer
	total int64
	done  int64
	last  int
}

func (p *progressBar) Write(b []byte) (int, error) {
	p.done += int64(len(b))
	p.draw()
	return len(b), nil
}

func (p *progressBar) draw() {
	pct := int(min(p.done*100/p.total, 100))
	if pct == p.last {
		return
	}
	p.last = pct
	filled := pct * barWidth / 100
	fmt.Fprintf(p.w, "\r[%s%s] %d%%", strings.Repeat("█", filled), strings.Repeat("-", barWidth-filled), pct)
}

func (p *progressBar) finish() {
	fmt.Fprintln(p.w)
}
