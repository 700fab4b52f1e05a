package canva

import (
	"context"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/siete/assetforge/pkg/cache"
	"github.com/siete/assetforge/pkg/errors"
	"github.com/siete/assetforge/pkg/httputil"
	"github.com/siete/assetforge/pkg/integrations"
)

const (
	baseURL     = "https://api.canva.com/rest/v1"
	maxPages    = 10
	templateTTL = 10 * time.Minute
)

// Client is an authenticated Canva Connect API client.
type Client struct {
	*integrations.Client
	baseURL string
	poll    httputil.PollOptions
}

// NewClient creates a client for accessToken. Template listings are cached in c.
func NewClient(accessToken string, c cache.Cache) *Client {
	headers := map[string]string{
		"Authorization": integrations.Bearer(accessToken),
		"Accept":        "application/json",
	}
	return &Client{
		Client:  integrations.NewClient(c, "canva", templateTTL, headers),
		baseURL: baseURL,
		poll:    httputil.DefaultPoll,
	}
}

// WithBaseURL points the client at another Connect API root.
func (c *Client) WithBaseURL(u string) *Client {
	c.baseURL = strings.TrimRight(u, "/")
	return c
}

// WithPoll replaces the job polling schedule.
func (c *Client) WithPoll(p httputil.PollOptions) *Client {
	c.poll = p
	return c
}

// Me returns the profile of the authenticated user.
func (c *Client) Me(ctx context.Context) (*Profile, error) {
	var resp struct {
		Profile     *Profile `json:"profile"`
		UserID      string   `json:"user_id"`
		TeamID      string   `json:"team_id"`
		DisplayName string   `json:"display_name"`
	}
	if err := c.Get(ctx, c.baseURL+"/users/me", &resp); err != nil {
		return nil, err
	}
	if resp.Profile != nil {
		return resp.Profile, nil
	}
	return &Profile{UserID: resp.UserID, TeamID: resp.TeamID, DisplayName: resp.DisplayName}, nil
}

// BrandTemplates lists templates owned by the user, following continuation
// tokens for at most ten pages.
func (c *Client) BrandTemplates(ctx context.Context, refresh bool) ([]BrandTemplate, error) {
	var out []BrandTemplate
	err := c.Cached(ctx, "brand-templates", refresh, &out, func() error {
		out = out[:0]
		continuation := ""
		for range maxPages {
			q := url.Values{"ownership": {"owned"}}
			if continuation != "" {
				q.Set("continuation", continuation)
			}
			var page struct {
				Items        []BrandTemplate `json:"items"`
				Continuation string          `json:"continuation"`
			}
			if err := c.Get(ctx, c.baseURL+"/brand-templates?"+q.Encode(), &page); err != nil {
				return err
			}
			for _, t := range page.Items {
				if t.Title == "" {
					t.Title = "Untitled"
				}
				out = append(out, t)
			}
			if page.Continuation == "" {
				break
			}
			continuation = page.Continuation
		}
		return nil
	})
	return out, err
}

// Dataset returns the autofill fields of a brand template, sorted by name.
func (c *Client) Dataset(ctx context.Context, templateID string) ([]DatasetField, error) {
	var resp struct {
		Dataset map[string]struct {
			Type string `json:"type"`
		} `json:"dataset"`
	}
	if err := c.Get(ctx, c.baseURL+"/brand-templates/"+url.PathEscape(templateID)+"/dataset", &resp); err != nil {
		return nil, err
	}
	fields := make([]DatasetField, 0, len(resp.Dataset))
	for name, info := range resp.Dataset {
		typ := info.Type
		if typ == "" {
			typ = "text"
		}
		fields = append(fields, DatasetField{Name: name, Type: typ})
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i].Name < fields[j].Name })
	return fields, nil
}

// CreateAutofill starts an autofill job for templateID.
func (c *Client) CreateAutofill(ctx context.Context, templateID string, data map[string]FieldValue) (*AutofillJob, error) {
	body := map[string]any{"brand_template_id": templateID, "data": data}
	var resp struct {
		Job AutofillJob `json:"job"`
	}
	if err := c.PostJSON(ctx, c.baseURL+"/autofills", nil, body, &resp); err != nil {
		return nil, err
	}
	if resp.Job.ID == "" {
		return nil, errors.New(errors.ErrCodeProvider, "canva autofill returned no job id")
	}
	return &resp.Job, nil
}

// Autofill returns the current state of an autofill job.
func (c *Client) Autofill(ctx context.Context, jobID string) (*AutofillJob, error) {
	var resp struct {
		Job AutofillJob `json:"job"`
	}
	if err := c.Get(ctx, c.baseURL+"/autofills/"+url.PathEscape(jobID), &resp); err != nil {
		return nil, err
	}
	return &resp.Job, nil
}

// WaitAutofill polls an autofill job until it succeeds, fails or times out.
func (c *Client) WaitAutofill(ctx context.Context, jobID string) (*AutofillJob, error) {
	var job *AutofillJob
	err := httputil.Poll(ctx, c.poll, func(ctx context.Context) (bool, error) {
		var err error
		if job, err = c.Autofill(ctx, jobID); err != nil {
			return false, err
		}
		return finished(job.Status, job.Error, "autofill", jobID)
	})
	if err != nil {
		return nil, wrapPoll(err, "autofill", jobID)
	}
	return job, nil
}

// CreateExport starts an export of designID as png, jpg or pdf.
func (c *Client) CreateExport(ctx context.Context, designID, format string) (*ExportJob, error) {
	switch format {
	case "png", "pdf":
	default:
		format = "jpg"
	}
	body := map[string]any{"design_id": designID, "format": map[string]string{"type": format}}
	var resp struct {
		Job ExportJob `json:"job"`
	}
	if err := c.PostJSON(ctx, c.baseURL+"/exports", nil, body, &resp); err != nil {
		return nil, err
	}
	if resp.Job.ID == "" {
		return nil, errors.New(errors.ErrCodeProvider, "canva export returned no job id")
	}
	return &resp.Job, nil
}

// Export returns the current state of an export job.
func (c *Client) Export(ctx context.Context, exportID string) (*ExportJob, error) {
	var resp struct {
		Job ExportJob `json:"job"`
	}
	if err := c.Get(ctx, c.baseURL+"/exports/"+url.PathEscape(exportID), &resp); err != nil {
		return nil, err
	}
	return &resp.Job, nil
}

// WaitExport polls an export job and returns its download URLs.
func (c *Client) WaitExport(ctx context.Context, exportID string) ([]string, error) {
	var job *ExportJob
	err := httputil.Poll(ctx, c.poll, func(ctx context.Context) (bool, error) {
		var err error
		if job, err = c.Export(ctx, exportID); err != nil {
			return false, err
		}
		return finished(job.Status, job.Error, "export", exportID)
	})
	if err != nil {
		return nil, wrapPoll(err, "export", exportID)
	}
	return job.URLs, nil
}

func finished(status string, jerr *JobError, kind, id string) (bool, error) {
	switch status {
	case StatusSuccess:
		return true, nil
	case StatusFailed:
		if jerr != nil {
			return false, errors.New(errors.ErrCodeProvider, "canva %s job %s failed: %s: %s", kind, id, jerr.Code, jerr.Message)
		}
		return false, errors.New(errors.ErrCodeProvider, "canva %s job %s failed", kind, id)
	}
	return false, nil
}

func wrapPoll(err error, kind, id string) error {
	if errors.GetCode(err) != "" {
		return err
	}
	return errors.Wrap(errors.ErrCodeTimeout, err, "canva %s job %s", kind, id)
}
