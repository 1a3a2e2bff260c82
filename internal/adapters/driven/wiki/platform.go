package wiki

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/custodia-labs/embedscan/internal/core/domain"
	"github.com/custodia-labs/embedscan/internal/core/ports/driven"
)

// Ensure Client implements the interface.
var _ driven.Platform = (*Client)(nil)

type page struct {
	Title     string      `json:"title"`
	Missing   bool        `json:"missing"`
	ImageInfo []imageInfo `json:"imageinfo"`
	Usage     []usage     `json:"globalusage"`
}

type imageInfo struct {
	Timestamp   time.Time `json:"timestamp"`
	User        string    `json:"user"`
	ArchiveName string    `json:"archivename"`
	MIME        string    `json:"mime"`
	SHA1        string    `json:"sha1"`
	URL         string    `json:"url"`
	Size        int64     `json:"size"`
}

type usage struct {
	Title string `json:"title"`
	Wiki  string `json:"wiki"`
}

type queryResponse struct {
	Continue map[string]any `json:"continue"`
	Query    struct {
		Pages []page `json:"pages"`
		Users []struct {
			Name      string `json:"name"`
			EditCount int    `json:"editcount"`
			Missing   bool   `json:"missing"`
			Invalid   bool   `json:"invalid"`
		} `json:"users"`
	} `json:"query"`
}

// queryPages runs a query and follows continuation, merging per-page lists.
func (c *Client) queryPages(ctx context.Context, params url.Values) (page, error) {
	var merged page
	first := true
	next := url.Values{}
	for k, v := range params {
		next[k] = v
	}
	next.Set("action", "query")

	for {
		var resp queryResponse
		if err := c.get(ctx, next, &resp); err != nil {
			return page{}, err
		}
		if len(resp.Query.Pages) == 0 {
			return page{}, fmt.Errorf("query %s: no page in response", params.Get("titles"))
		}
		p := resp.Query.Pages[0]
		if first {
			merged = p
			first = false
		} else {
			merged.ImageInfo = append(merged.ImageInfo, p.ImageInfo...)
			merged.Usage = append(merged.Usage, p.Usage...)
		}

		if len(resp.Continue) == 0 {
			return merged, nil
		}
		for k, v := range resp.Continue {
			next.Set(k, fmt.Sprint(v))
		}
	}
}

// PageExists reports whether title exists.
func (c *Client) PageExists(ctx context.Context, title string) (bool, error) {
	var resp queryResponse
	params := url.Values{"action": {"query"}, "titles": {title}}
	if err := c.get(ctx, params, &resp); err != nil {
		return false, err
	}
	if len(resp.Query.Pages) == 0 {
		return false, fmt.Errorf("query %s: no page in response", title)
	}
	return !resp.Query.Pages[0].Missing, nil
}

// FileHistory returns every upload of title, newest first.
func (c *Client) FileHistory(ctx context.Context, title string) (domain.FileHistory, error) {
	p, err := c.queryPages(ctx, url.Values{
		"prop":    {"imageinfo"},
		"titles":  {title},
		"iiprop":  {"timestamp|user|archivename|mime|sha1|url|size"},
		"iilimit": {"max"},
	})
	if err != nil {
		return nil, err
	}
	if len(p.ImageInfo) == 0 {
		return nil, fmt.Errorf("%w: %s has no file history", domain.ErrPageMissing, title)
	}

	history := make(domain.FileHistory, 0, len(p.ImageInfo))
	for _, ii := range p.ImageInfo {
		history = append(history, domain.RevisionRef{
			Timestamp:   ii.Timestamp.UTC(),
			User:        ii.User,
			ArchiveName: ii.ArchiveName,
			MIME:        ii.MIME,
			SHA1:        ii.SHA1,
			URL:         ii.URL,
			Size:        ii.Size,
		})
	}
	return history, nil
}

// EditCount returns the edit count of user. Unknown users have none.
func (c *Client) EditCount(ctx context.Context, user string) (int, error) {
	var resp queryResponse
	params := url.Values{"action": {"query"}, "list": {"users"}, "ususers": {user}, "usprop": {"editcount"}}
	if err := c.get(ctx, params, &resp); err != nil {
		return 0, err
	}
	if len(resp.Query.Users) == 0 {
		return 0, nil
	}
	return resp.Query.Users[0].EditCount, nil
}

// GlobalUsage returns "wiki:title" for every page on any wiki using title.
func (c *Client) GlobalUsage(ctx context.Context, title string) ([]string, error) {
	p, err := c.queryPages(ctx, url.Values{
		"prop":    {"globalusage"},
		"titles":  {title},
		"gulimit": {"max"},
	})
	if err != nil {
		return nil, err
	}
	pages := make([]string, 0, len(p.Usage))
	for _, u := range p.Usage {
		pages = append(pages, u.Wiki+":"+u.Title)
	}
	return pages, nil
}

// Download writes the content of rev to w.
func (c *Client) Download(ctx context.Context, rev domain.RevisionRef, w io.Writer) error {
	if rev.URL == "" {
		return fmt.Errorf("%w: revision has no url", domain.ErrInvalidInput)
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rev.URL, nil)
	if err != nil {
		return fmt.Errorf("building download request: %w", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("downloading %s: %w", rev.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("downloading %s: unexpected status %s", rev.URL, resp.Status)
	}
	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("downloading %s: %w", rev.URL, err)
	}
	return nil
}

// Upload overwrites title with content, ignoring warnings.
func (c *Client) Upload(ctx context.Context, title string, content io.Reader, comment string) error {
	var resp struct {
		Upload struct {
			Result string `json:"result"`
		} `json:"upload"`
	}
	name := fileName(title)
	params := url.Values{
		"action":         {"upload"},
		"filename":       {name},
		"comment":        {comment},
		"ignorewarnings": {"1"},
	}
	if err := c.postFile(ctx, params, name, content, &resp); err != nil {
		return err
	}
	if resp.Upload.Result != "Success" {
		return fmt.Errorf("upload %s: result %q", title, resp.Upload.Result)
	}
	return nil
}

// Delete deletes title.
func (c *Client) Delete(ctx context.Context, title, reason string) error {
	return c.post(ctx, url.Values{
		"action": {"delete"},
		"title":  {title},
		"reason": {reason},
	}, nil)
}

// Protect applies one protection to title.
func (c *Client) Protect(ctx context.Context, title string, p driven.Protection) error {
	return c.post(ctx, url.Values{
		"action":      {"protect"},
		"title":       {title},
		"protections": {string(p.Type) + "=" + p.Level},
		"expiry":      {p.Expiry},
		"reason":      {p.Reason},
	}, nil)
}

// RevisionDelete hides the content of an old file revision.
func (c *Client) RevisionDelete(ctx context.Context, title, archiveID, reason string) error {
	return c.post(ctx, url.Values{
		"action": {"revisiondelete"},
		"type":   {"oldimage"},
		"target": {title},
		"ids":    {archiveID},
		"hide":   {"content"},
		"reason": {reason},
	}, nil)
}

// Prepend adds text to the top of the description page of title.
func (c *Client) Prepend(ctx context.Context, title, text, summary string) error {
	return c.post(ctx, url.Values{
		"action":      {"edit"},
		"title":       {title},
		"prependtext": {text},
		"summary":     {summary},
		"nocreate":    {"1"},
		"bot":         {"1"},
	}, nil)
}

// fileName strips the namespace from a file page title.
func fileName(title string) string {
	if ns, name, ok := strings.Cut(title, ":"); ok {
		switch strings.ToLower(ns) {
		case "file", "image":
			return name
		}
	}
	return title
}
