package canva

import "time"

// Token is the response of the OAuth token endpoint.
type Token struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	Scope        string `json:"scope"`
}

// Credentials are the per-organization Canva credentials kept in org config
// under the "canva_config" key.
type Credentials struct {
	AccessToken  string  `json:"access_token" bson:"access_token"`
	RefreshToken string  `json:"refresh_token" bson:"refresh_token"`
	ExpiresAt    float64 `json:"expires_at" bson:"expires_at"` // unix seconds
	UserID       string  `json:"user_id,omitempty" bson:"user_id,omitempty"`
	DisplayName  string  `json:"display_name,omitempty" bson:"display_name,omitempty"`
}

// Expired reports whether the access token is missing or expires within
// the refresh margin.
func (c Credentials) Expired(now time.Time) bool {
	const margin = 60
	return c.AccessToken == "" || float64(now.Unix()) >= c.ExpiresAt-margin
}

// Profile is the authenticated Canva user.
type Profile struct {
	UserID      string `json:"user_id,omitempty"`
	TeamID      string `json:"team_id,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
}

// Thumbnail is a preview image of a template.
type Thumbnail struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// BrandTemplate is an autofillable template owned by the user's brand.
type BrandTemplate struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Thumbnail Thumbnail `json:"thumbnail"`
}

// DatasetField is one fillable field of a brand template.
type DatasetField struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// FieldValue is an autofill value. Only text values are produced here.
type FieldValue struct {
	Type    string `json:"type"`
	Text    string `json:"text,omitempty"`
	AssetID string `json:"asset_id,omitempty"`
}

// Text returns a text FieldValue.
func Text(s string) FieldValue { return FieldValue{Type: "text", Text: s} }

// Job statuses.
const (
	StatusInProgress = "in_progress"
	StatusSuccess    = "success"
	StatusFailed     = "failed"
)

// JobError describes why a job failed.
type JobError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// AutofillJob is the state of an autofill job.
type AutofillJob struct {
	ID     string    `json:"id"`
	Status string    `json:"status"`
	Error  *JobError `json:"error,omitempty"`
	Result struct {
		Type   string `json:"type"`
		Design struct {
			ID    string `json:"id"`
			Title string `json:"title"`
			URL   string `json:"url"`
		} `json:"design"`
	} `json:"result"`
}

// ExportJob is the state of an export job.
type ExportJob struct {
	ID     string    `json:"id"`
	Status string    `json:"status"`
	Error  *JobError `json:"error,omitempty"`
	URLs   []string  `json:"urls"`
}
