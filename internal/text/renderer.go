package text

import (
	"html"
	"regexp"
	"strings"
)

var urlRe = regexp.MustCompile(`https?://[^\s<>"]+`)

// Renderer переводит исходный текст комментария в HTML для показа.
type Renderer struct{}

// NewRenderer создает рендерер текста.
func NewRenderer() *Renderer {
	return &Renderer{}
}

// Render экранирует текст, разбивает его на абзацы и превращает ссылки
// в теги <a>. Для недоверенных авторов ссылки получают rel="nofollow",
// чтобы не отдавать им вес в поисковиках.
func (r *Renderer) Render(source string, trustedLinks bool) string {
	paragraphs := strings.Split(strings.ReplaceAll(source, "\r\n", "\n"), "\n\n")

	var b strings.Builder
	for _, p := range paragraphs {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		b.WriteString("<p>")
		b.WriteString(r.renderParagraph(p, trustedLinks))
		b.WriteString("</p>\n")
	}
	return b.String()
}

func (r *Renderer) renderParagraph(p string, trustedLinks bool) string {
	var b strings.Builder
	last := 0
	for _, loc := range urlRe.FindAllStringIndex(p, -1) {
		b.WriteString(html.EscapeString(p[last:loc[0]]))
		url := p[loc[0]:loc[1]]
		b.WriteString(`<a href="` + html.EscapeString(url) + `"`)
		if !trustedLinks {
			b.WriteString(` rel="nofollow"`)
		}
		b.WriteString(`>` + html.EscapeString(url) + `</a>`)
		last = loc[1]
	}
	b.WriteString(html.EscapeString(p[last:]))
	return strings.ReplaceAll(b.String(), "\n", "<br>\n")
}
