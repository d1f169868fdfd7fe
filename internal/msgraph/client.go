package msgraph

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2"
)

const graphBaseURL = "https://graph.microsoft.com/v1.0"

// Client calls the Microsoft Graph REST API with cached credentials.
type Client struct {
	http *http.Client
}

// Dial authenticates against Microsoft Graph and returns a ready
// client. A cached token is reused or refreshed when possible; only
// when neither works does the interactive device-code sign-in run.
// Tokens minted during the client's lifetime are written back to the
// cache under dataDir.
func Dial(ctx context.Context, dataDir, tenantID, clientID string) (*Client, error) {
	cache := newTokenCache(dataDir)
	cfg := authConfig(tenantID, clientID)
	tok, err := freshToken(ctx, cache, cfg)
	if err != nil {
		return nil, err
	}
	src := persistingSource{cache: cache, src: cfg.TokenSource(ctx, tok)}
	return &Client{http: oauth2.NewClient(ctx, src)}, nil
}

// persistingSource writes every token it hands out back to the cache,
// so refreshes that happen mid-request survive the process.
type persistingSource struct {
	cache *tokenCache
	src   oauth2.TokenSource
}

func (p persistingSource) Token() (*oauth2.Token, error) {
	tok, err := p.src.Token()
	if err != nil {
		return nil, err
	}
	// Best-effort; an unsaved refresh only costs a later re-refresh.
	_ = p.cache.store(tok)
	return tok, nil
}

// CalendarEvent represents a Microsoft Graph calendar event.
type CalendarEvent struct {
	ID          string `json:"id"`
	Subject     string `json:"subject"`
	IsAllDay    bool   `json:"isAllDay"`
	IsCancelled bool   `json:"isCancelled"`
	Sensitivity string `json:"sensitivity"` // "normal", "personal", "private", "confidential"
	ShowAs      string `json:"showAs"`      // "free", "tentative", "busy", "oof", "workingElsewhere", "unknown"
	Start       struct {
		DateTime string `json:"dateTime"`
		TimeZone string `json:"timeZone"`
	} `json:"start"`
	End struct {
		DateTime string `json:"dateTime"`
		TimeZone string `json:"timeZone"`
	} `json:"end"`
}

// calendarViewResponse is the Graph API paged response for calendar events.
type calendarViewResponse struct {
	Value    []CalendarEvent `json:"value"`
	NextLink string          `json:"@odata.nextLink"`
}

// getJSON performs one GET against the Graph API and decodes the
// response into out. timezone, when set, is passed as the Prefer
// outlook.timezone header so event times come back in that zone.
func (c *Client) getJSON(ctx context.Context, endpoint, timezone string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if timezone != "" {
		req.Header.Set("Prefer", fmt.Sprintf(`outlook.timezone="%s"`, timezone))
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("graph API request failed: %w", err)
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("graph API error %d: %s", resp.StatusCode, string(body))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decoding graph response: %w", err)
	}
	return nil
}

// GetCalendarView fetches calendar events in [from, to) using the calendarView endpoint.
// timezone is an IANA timezone name (e.g. "Europe/Berlin"); pass "" for UTC.
func (c *Client) GetCalendarView(ctx context.Context, from, to time.Time, timezone string) ([]CalendarEvent, error) {
	next := fmt.Sprintf("%s/me/calendarView?startDateTime=%s&endDateTime=%s&$top=100",
		graphBaseURL,
		url.QueryEscape(from.UTC().Format(time.RFC3339)),
		url.QueryEscape(to.UTC().Format(time.RFC3339)),
	)

	var all []CalendarEvent
	for next != "" {
		var page calendarViewResponse
		if err := c.getJSON(ctx, next, timezone, &page); err != nil {
			return nil, err
		}
		all = append(all, page.Value...)
		next = page.NextLink
	}
	return all, nil
}
