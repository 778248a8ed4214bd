package localize

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"golang.org/x/net/html"

	"github.com/takak2166/onenote2markdown/internal/logger"
	"github.com/takak2166/onenote2markdown/internal/models"
	"github.com/takak2166/onenote2markdown/internal/sanitize"
)

// AssetsDirName is the directory under each section that holds downloaded
// resources; rewritten references are relative to the page's Markdown file.
const AssetsDirName = "assets"

// Fetcher downloads a resource by its absolute URL. The graph client
// satisfies it, so every resource download goes through the shared
// rate-limit-aware client.
type Fetcher interface {
	GetResource(ctx context.Context, url string) (data []byte, contentType string, err error)
}

// Failure records a resource that stayed at its remote URL.
type Failure struct {
	URL string
	Err error
}

// Result is the outcome of localizing one page.
type Result struct {
	HTML       string
	Downloaded int
	Failed     []Failure
}

// Rewrite downloads every embedded resource of a page and rewrites the
// HTML references to assets/<filename>. The assets directory is shared by
// all pages of a section, so filenames carry the page ID to keep pages
// from overwriting each other's resources. A resource that cannot be
// fetched or written keeps its remote reference and is reported in Failed;
// it never aborts the page.
func Rewrite(ctx context.Context, pageHTML, pageID, assetsDir string, fetcher Fetcher) (*Result, error) {
	doc, err := html.Parse(strings.NewReader(pageHTML))
	if err != nil {
		return nil, fmt.Errorf("failed to parse page HTML: %w", err)
	}

	result := &Result{}
	seen := make(map[string]int)

	for i, node := range mediaNodes(doc) {
		ref := refFromNode(node, i)
		if ref == nil {
			continue
		}

		data, contentType, err := fetcher.GetResource(ctx, ref.URL)
		if err != nil {
			result.Failed = append(result.Failed, Failure{URL: ref.URL, Err: err})
			logger.Warn("Resource left at remote URL", err, map[string]interface{}{
				"url": ref.URL,
			})
			continue
		}

		filename := uniqueName(deriveName(ref, pageID, contentType), seen)
		if err := writeAsset(assetsDir, filename, data); err != nil {
			result.Failed = append(result.Failed, Failure{URL: ref.URL, Err: err})
			logger.Warn("Failed to save resource", err, map[string]interface{}{
				"url":      ref.URL,
				"filename": filename,
			})
			continue
		}

		rewriteNode(node, ref, AssetsDirName+"/"+filename)
		result.Downloaded++
	}

	var buf bytes.Buffer
	if err := html.Render(&buf, doc); err != nil {
		return nil, fmt.Errorf("failed to render rewritten HTML: %w", err)
	}
	result.HTML = buf.String()
	return result, nil
}

// mediaNodes returns all img and object elements in document order.
func mediaNodes(doc *html.Node) []*html.Node {
	var nodes []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "img" || n.Data == "object") {
			nodes = append(nodes, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return nodes
}

// refFromNode extracts the resource reference carried by a media tag.
// data-fullres-src is the full-resolution variant and wins over src; object
// tags carry their URL in data. Non-http references (inline data URIs,
// already-local paths) are skipped.
func refFromNode(n *html.Node, index int) *models.ResourceRef {
	src := attrValue(n, "data-fullres-src")
	if src == "" {
		src = attrValue(n, "src")
	}
	if src == "" {
		src = attrValue(n, "data")
	}
	if !strings.HasPrefix(src, "http") {
		return nil
	}

	return &models.ResourceRef{
		URL:            src,
		AttachmentName: attrValue(n, "data-attachment"),
		TypeHint:       attrValue(n, "type"),
		Index:          index,
	}
}

// deriveName builds a local filename for a resource, prefixed with the
// page ID so pages sharing one assets directory cannot collide. Attachments
// keep their original name; everything else is named from the URL's most
// specific path segment plus a content-type extension.
func deriveName(ref *models.ResourceRef, pageID, contentType string) string {
	prefix := sanitize.Name(pageID)
	if prefix != "" {
		prefix += "_"
	}

	if ref.AttachmentName != "" {
		return prefix + sanitize.Name(ref.AttachmentName)
	}

	base := ""
	if u, err := url.Parse(ref.URL); err == nil {
		segments := strings.Split(strings.Trim(u.Path, "/"), "/")
		for i := len(segments) - 1; i >= 0; i-- {
			s := segments[i]
			// Graph resource URLs end in $value; content endpoints in content.
			if s == "" || s == "$value" || s == "content" {
				continue
			}
			base = sanitize.Name(strings.TrimSuffix(s, path.Ext(s)))
			break
		}
	}
	if base == "" {
		base = fmt.Sprintf("asset_%d", ref.Index)
	}
	return prefix + base + extension(ref.TypeHint, contentType)
}

func extension(typeHint, contentType string) string {
	for _, t := range []string{typeHint, contentType} {
		switch {
		case strings.Contains(t, "image/jpeg"):
			return ".jpg"
		case strings.Contains(t, "image/png"):
			return ".png"
		case strings.Contains(t, "image/gif"):
			return ".gif"
		case strings.Contains(t, "application/pdf"):
			return ".pdf"
		}
	}
	return ".png"
}

// uniqueName disambiguates colliding filenames within one page by appending
// a counter in document order, so reruns reproduce identical names.
func uniqueName(name string, seen map[string]int) string {
	seen[name]++
	if seen[name] == 1 {
		return name
	}
	ext := path.Ext(name)
	return fmt.Sprintf("%s_%d%s", strings.TrimSuffix(name, ext), seen[name], ext)
}

// writeAsset writes data under dir with a temp-file-and-rename so the final
// name never holds a truncated file.
func writeAsset(dir, name string, data []byte) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create assets directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".asset-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write resource: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to flush resource: %w", err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(dir, name)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to move resource into place: %w", err)
	}
	return nil
}

// rewriteNode points the tag at the local copy. Attachments become links so
// the Markdown conversion keeps them clickable; non-attachment objects (PDF
// printouts, ink renderings) become plain images.
func rewriteNode(n *html.Node, ref *models.ResourceRef, relPath string) {
	switch {
	case ref.AttachmentName != "":
		link := &html.Node{
			Type: html.ElementNode,
			Data: "a",
			Attr: []html.Attribute{{Key: "href", Val: relPath}},
		}
		link.AppendChild(&html.Node{
			Type: html.TextNode,
			Data: "📎 " + ref.AttachmentName,
		})
		replaceNode(n, link)

	case n.Data == "img":
		setAttr(n, "src", relPath)
		removeAttr(n, "data-fullres-src")
		removeAttr(n, "data-src")

	default:
		img := &html.Node{
			Type: html.ElementNode,
			Data: "img",
			Attr: []html.Attribute{{Key: "src", Val: relPath}},
		}
		replaceNode(n, img)
	}
}

func replaceNode(old, replacement *html.Node) {
	if old.Parent == nil {
		return
	}
	old.Parent.InsertBefore(replacement, old)
	old.Parent.RemoveChild(old)
}

func attrValue(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func setAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func removeAttr(n *html.Node, key string) {
	for i, a := range n.Attr {
		if a.Key == key {
			n.Attr = append(n.Attr[:i], n.Attr[i+1:]...)
			return
		}
	}
}
