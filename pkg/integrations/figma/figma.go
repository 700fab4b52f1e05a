// Package figma reads Figma files and exports frames through the Figma REST API.
//
// Authentication uses a personal access token sent as X-Figma-Token. Export
// calls return short-lived CDN URLs; fetch them with [Client.Download].
package figma

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/siete/assetforge/pkg/cache"
	"github.com/siete/assetforge/pkg/errors"
	"github.com/siete/assetforge/pkg/integrations"
)

const (
	baseURL = "https://api.figma.com/v1"
	fileTTL = 10 * time.Minute
)

// User is the owner of a personal access token.
type User struct {
	ID     string `json:"id"`
	Handle string `json:"handle"`
	Email  string `json:"email"`
	ImgURL string `json:"img_url,omitempty"`
}

// Frame is a top-level design node that can be exported.
type Frame struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

// Page is a canvas with its exportable frames.
type Page struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Frames []Frame `json:"frames"`
}

// FileInfo summarizes a Figma file.
type FileInfo struct {
	Name         string `json:"name"`
	LastModified string `json:"last_modified"`
	ThumbnailURL string `json:"thumbnail_url"`
	Pages        []Page `json:"pages"`
}

// TextNode is a TEXT layer that can receive generated copy.
type TextNode struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Characters string `json:"characters"`
}

// node is the subset of the Figma document tree used here.
type node struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Type       string `json:"type"`
	Characters string `json:"characters"`
	Children   []node `json:"children"`
}

// Client is a Figma REST API client.
type Client struct {
	*integrations.Client
	baseURL string
}

// NewClient creates a client for token. File listings are cached in c.
func NewClient(token string, c cache.Cache) *Client {
	return &Client{
		Client:  integrations.NewClient(c, "figma", fileTTL, map[string]string{"X-Figma-Token": token}),
		baseURL: baseURL,
	}
}

// WithBaseURL points the client at another API root.
func (c *Client) WithBaseURL(u string) *Client {
	c.baseURL = strings.TrimRight(u, "/")
	return c
}

// Me validates the token and returns its owner.
func (c *Client) Me(ctx context.Context) (*User, error) {
	var u User
	if err := c.Get(ctx, c.baseURL+"/me", &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// FileInfo returns the pages of fileKey and their FRAME, COMPONENT and
// COMPONENT_SET children.
func (c *Client) FileInfo(ctx context.Context, fileKey string, refresh bool) (*FileInfo, error) {
	var info FileInfo
	err := c.Cached(ctx, "file:"+fileKey, refresh, &info, func() error {
		var resp struct {
			Name         string `json:"name"`
			LastModified string `json:"lastModified"`
			ThumbnailURL string `json:"thumbnailUrl"`
			Document     node   `json:"document"`
		}
		if err := c.Get(ctx, c.baseURL+"/files/"+url.PathEscape(fileKey)+"?depth=2", &resp); err != nil {
			return err
		}
		info = FileInfo{Name: resp.Name, LastModified: resp.LastModified, ThumbnailURL: resp.ThumbnailURL}
		for _, p := range resp.Document.Children {
			page := Page{ID: p.ID, Name: p.Name, Frames: []Frame{}}
			for _, ch := range p.Children {
				switch ch.Type {
				case "FRAME", "COMPONENT", "COMPONENT_SET":
					page.Frames = append(page.Frames, Frame{ID: ch.ID, Name: ch.Name, Type: ch.Type})
				}
			}
			info.Pages = append(info.Pages, page)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &info, nil
}

// FrameTextNodes returns every TEXT layer under nodeID in document order.
func (c *Client) FrameTextNodes(ctx context.Context, fileKey, nodeID string) ([]TextNode, error) {
	var resp struct {
		Nodes map[string]struct {
			Document *node `json:"document"`
		} `json:"nodes"`
	}
	q := url.Values{"ids": {nodeID}}
	if err := c.Get(ctx, c.baseURL+"/files/"+url.PathEscape(fileKey)+"/nodes?"+q.Encode(), &resp); err != nil {
		return nil, err
	}
	var out []TextNode
	if n, ok := resp.Nodes[nodeID]; ok && n.Document != nil {
		collectText(*n.Document, &out)
	}
	return out, nil
}

func collectText(n node, out *[]TextNode) {
	if n.Type == "TEXT" {
		*out = append(*out, TextNode{ID: n.ID, Name: n.Name, Characters: n.Characters})
	}
	for _, ch := range n.Children {
		collectText(ch, out)
	}
}

// ExportSVG returns a download URL for nodeID rendered as SVG with layer ids
// embedded, so text can be located after download.
func (c *Client) ExportSVG(ctx context.Context, fileKey, nodeID string) (string, error) {
	return c.export(ctx, fileKey, nodeID, url.Values{
		"format":         {"svg"},
		"svg_include_id": {"true"},
	})
}

// ExportPNG returns a download URL for nodeID rendered as PNG at scale.
func (c *Client) ExportPNG(ctx context.Context, fileKey, nodeID string, scale float64) (string, error) {
	if scale <= 0 {
		scale = 2
	}
	return c.export(ctx, fileKey, nodeID, url.Values{
		"format": {"png"},
		"scale":  {strconv.FormatFloat(scale, 'f', -1, 64)},
	})
}

func (c *Client) export(ctx context.Context, fileKey, nodeID string, q url.Values) (string, error) {
	q.Set("ids", nodeID)
	var resp struct {
		Err    string            `json:"err"`
		Images map[string]string `json:"images"`
	}
	if err := c.Get(ctx, c.baseURL+"/images/"+url.PathEscape(fileKey)+"?"+q.Encode(), &resp); err != nil {
		return "", err
	}
	u := resp.Images[nodeID]
	if u == "" {
		if resp.Err != "" {
			return "", errors.New(errors.ErrCodeProvider, "figma export of %s failed: %s", nodeID, resp.Err)
		}
		return "", errors.New(errors.ErrCodeProvider, "no %s export url returned for node %s", q.Get("format"), nodeID)
	}
	return u, nil
}

// Download fetches an exported file, capped at [integrations.MaxDownloadSize].
func (c *Client) Download(ctx context.Context, rawURL string) ([]byte, error) {
	return c.Client.Download(ctx, rawURL, integrations.MaxDownloadSize)
}
