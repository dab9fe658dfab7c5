package content

import (
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"gitlab.com/golang-commonmark/markdown"
)

var ErrUnsupportedFormat = errors.New("unsupported export format")

type ExportOptions struct {
	Format             string `json:"format"`
	IncludeMetadata    bool   `json:"include_metadata"`
	IncludeTOC         bool   `json:"include_toc"`
	IncludeVersionInfo bool   `json:"include_version_info"`
	CustomTitle        string `json:"custom_title,omitempty"`
	CustomFooter       string `json:"custom_footer,omitempty"`
}

type RenderInput struct {
	ProjectName string
	Content     string
	Version     int
	IsPublished bool
	UpdatedAt   time.Time
	GeneratedAt time.Time
}

type Rendered struct {
	Body        []byte
	ContentType string
	Extension   string
}

var md = markdown.New(
	markdown.HTML(false),
	markdown.Tables(true),
)

// Render produces the export body for opts.Format. Formats that need a
// document converter return ErrUnsupportedFormat.
func Render(in RenderInput, opts ExportOptions) (Rendered, error) {
	doc := assemble(in, opts)
	switch strings.ToLower(strings.TrimSpace(opts.Format)) {
	case "markdown", "md":
		return Rendered{Body: []byte(doc), ContentType: "text/markdown; charset=utf-8", Extension: "md"}, nil
	case "html":
		return Rendered{Body: []byte(wrapHTML(title(in, opts), md.RenderToString([]byte(doc)))), ContentType: "text/html; charset=utf-8", Extension: "html"}, nil
	case "txt", "text":
		return Rendered{Body: []byte(StripMarkdown(doc) + "\n"), ContentType: "text/plain; charset=utf-8", Extension: "txt"}, nil
	default:
		return Rendered{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, opts.Format)
	}
}

// Filename is "<project-slug>-progress-v<version>.<ext>".
func Filename(projectName string, version int, ext string) string {
	slug := Slugify(projectName)
	if slug == "" {
		slug = "project"
	}
	return fmt.Sprintf("%s-progress-v%d.%s", slug, version, ext)
}

func title(in RenderInput, opts ExportOptions) string {
	if t := strings.TrimSpace(opts.CustomTitle); t != "" {
		return t
	}
	name := strings.TrimSpace(in.ProjectName)
	if name == "" {
		name = "Project"
	}
	return name + " Progress"
}

func assemble(in RenderInput, opts ExportOptions) string {
	var b strings.Builder
	b.WriteString("# ")
	b.WriteString(title(in, opts))
	b.WriteString("\n\n")

	if opts.IncludeMetadata {
		status := "Draft"
		if in.IsPublished {
			status = "Published"
		}
		fmt.Fprintf(&b, "- **Project:** %s\n", in.ProjectName)
		fmt.Fprintf(&b, "- **Status:** %s\n", status)
		if !in.UpdatedAt.IsZero() {
			fmt.Fprintf(&b, "- **Last updated:** %s\n", in.UpdatedAt.UTC().Format(time.RFC1123))
		}
		fmt.Fprintf(&b, "- **Exported:** %s\n\n", in.GeneratedAt.UTC().Format(time.RFC1123))
	}

	if opts.IncludeTOC {
		if toc := TableOfContents(Headings(in.Content)); toc != "" {
			b.WriteString("## Table of Contents\n\n")
			b.WriteString(toc)
			b.WriteString("\n")
		}
	}

	b.WriteString(strings.TrimRight(in.Content, "\n"))
	b.WriteString("\n")

	if opts.IncludeVersionInfo {
		fmt.Fprintf(&b, "\n---\n\n_Version %d", in.Version)
		if !in.UpdatedAt.IsZero() {
			fmt.Fprintf(&b, ", saved %s", in.UpdatedAt.UTC().Format("2006-01-02 15:04 MST"))
		}
		b.WriteString("_\n")
	}
	if f := strings.TrimSpace(opts.CustomFooter); f != "" {
		b.WriteString("\n---\n\n")
		b.WriteString(f)
		b.WriteString("\n")
	}
	return b.String()
}

func wrapHTML(title, body string) string {
	return `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>` + html.EscapeString(title) + `</title>
</head>
<body>
` + body + `</body>
</html>
`
}
