package plugins

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/conneroisu/minipack/internal/compiler"
	"github.com/conneroisu/minipack/internal/hooks"
)

// Custom hooks fired by the html plugin.
const (
	HookAlterAssetTags = "html:alterAssetTags"
	HookAfterEmit      = "html:afterEmit"
)

// DefaultTemplate is the document the html plugin fills when no template is
// configured.
const DefaultTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title></title>
</head>
<body>
</body>
</html>`

// Tag is one element the html plugin adds to the document.
type Tag struct {
	Name  string
	Attrs []html.Attribute
	// InnerHTML replaces the element children when set.
	InnerHTML string
}

// Attr returns the value of the attribute key.
func (t *Tag) Attr(key string) (string, bool) {
	for _, attr := range t.Attrs {
		if attr.Key == key {
			return attr.Val, true
		}
	}
	return "", false
}

// AssetTags is handed to the html plugin hooks. Listeners of
// html:alterAssetTags may rewrite Head and Body.
type AssetTags struct {
	Compilation *compiler.Compilation
	Filename    string
	Head        []*Tag
	Body        []*Tag
}

// HTMLHooks returns the custom hooks of the html plugin, defining them in the
// compiler registry on first use.
func HTMLHooks(c *compiler.Compiler) (alter, afterEmit *hooks.Hook[*AssetTags], err error) {
	alter, err = hooks.Define[*AssetTags](c.HookRegistry(), HookAlterAssetTags, hooks.AsyncSeries)
	if err != nil {
		return nil, nil, err
	}
	afterEmit, err = hooks.Define[*AssetTags](c.HookRegistry(), HookAfterEmit, hooks.AsyncSeries)
	if err != nil {
		return nil, nil, err
	}
	return alter, afterEmit, nil
}

type htmlOptions struct {
	Title    string `json:"title"`
	Filename string `json:"filename"`
	Template string `json:"template"`
}

// HTML emits a document that references the script and stylesheet assets.
type HTML struct {
	options htmlOptions
}

// NewHTML builds an html plugin from the title, filename and template
// options.
func NewHTML(options map[string]any) (compiler.Plugin, error) {
	opts := htmlOptions{Filename: "index.html", Template: DefaultTemplate}
	if err := decodeOptions(options, &opts); err != nil {
		return nil, err
	}
	if extension(opts.Filename) != "html" {
		return nil, fmt.Errorf("filename %q must end in .html", opts.Filename)
	}
	if _, err := html.Parse(strings.NewReader(opts.Template)); err != nil {
		return nil, fmt.Errorf("invalid template: %w", err)
	}
	return &HTML{options: opts}, nil
}

// Name returns the plugin name
func (p *HTML) Name() string { return HTMLPlugin }

// Apply defines the html hooks and taps the finalize hook
func (p *HTML) Apply(c *compiler.Compiler) error {
	alter, afterEmit, err := HTMLHooks(c)
	if err != nil {
		return err
	}

	return c.Hooks().Finalize.Tap(HTMLPlugin, func(comp *compiler.Compilation) error {
		ctx := comp.Context()
		tags := p.assetTags(comp)

		if err := alter.Call(ctx, tags); err != nil {
			return err
		}

		document, err := p.render(tags)
		if err != nil {
			return err
		}
		if err := comp.EmitAsset(tags.Filename, compiler.RawAsset(document)); err != nil {
			return err
		}

		return afterEmit.Call(ctx, tags)
	})
}

func (p *HTML) assetTags(comp *compiler.Compilation) *AssetTags {
	tags := &AssetTags{Compilation: comp, Filename: p.options.Filename}
	for _, name := range comp.AssetNames() {
		switch extension(name) {
		case "css":
			tags.Head = append(tags.Head, &Tag{Name: "link", Attrs: []html.Attribute{
				{Key: "href", Val: name},
				{Key: "rel", Val: "stylesheet"},
			}})
		case "js":
			tags.Body = append(tags.Body, &Tag{Name: "script", Attrs: []html.Attribute{
				{Key: "defer"},
				{Key: "src", Val: name},
			}})
		}
	}
	return tags
}

func (p *HTML) render(tags *AssetTags) ([]byte, error) {
	doc, err := html.Parse(strings.NewReader(p.options.Template))
	if err != nil {
		return nil, fmt.Errorf("invalid template: %w", err)
	}

	head := findElement(doc, atom.Head)
	body := findElement(doc, atom.Body)
	if head == nil || body == nil {
		return nil, fmt.Errorf("template has no head or body")
	}

	if p.options.Title != "" {
		title := findElement(head, atom.Title)
		if title == nil {
			title = &html.Node{Type: html.ElementNode, Data: "title", DataAtom: atom.Title}
			head.AppendChild(title)
		}
		for title.FirstChild != nil {
			title.RemoveChild(title.FirstChild)
		}
		title.AppendChild(&html.Node{Type: html.TextNode, Data: p.options.Title})
	}

	for _, tag := range tags.Head {
		head.AppendChild(tag.node())
	}
	for _, tag := range tags.Body {
		body.AppendChild(tag.node())
	}

	var buf bytes.Buffer
	if err := html.Render(&buf, doc); err != nil {
		return nil, fmt.Errorf("failed to render %s: %w", tags.Filename, err)
	}
	return buf.Bytes(), nil
}

func (t *Tag) node() *html.Node {
	n := &html.Node{
		Type:     html.ElementNode,
		Data:     t.Name,
		DataAtom: atom.Lookup([]byte(t.Name)),
		Attr:     append([]html.Attribute(nil), t.Attrs...),
	}
	if t.InnerHTML != "" {
		n.AppendChild(&html.Node{Type: html.TextNode, Data: t.InnerHTML})
	}
	return n
}

func findElement(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if found := findElement(child, a); found != nil {
			return found
		}
	}
	return nil
}
