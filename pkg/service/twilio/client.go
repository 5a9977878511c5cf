package twilio

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/surana-mudit/whatsapp-memory-assistant/pkg/domain/interfaces"
	"github.com/surana-mudit/whatsapp-memory-assistant/pkg/utils/safe"
)

const defaultAPIBase = "https://api.twilio.com"

// maxMediaSize caps media downloads at 16MB, the WhatsApp attachment
// limit.
const maxMediaSize = 16 << 20

// Client is a thin Twilio messaging API client. It sends WhatsApp
// messages and downloads webhook media using the account credentials.
type Client struct {
	accountSID string
	authToken  string
	fromNumber string
	apiBase    string
	httpClient *http.Client
}

var (
	_ interfaces.MessageSender = &Client{}
	_ interfaces.MediaFetcher  = &Client{}
)

type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithAPIBase overrides the API base URL
func WithAPIBase(base string) Option {
	return func(c *Client) {
		c.apiBase = strings.TrimSuffix(base, "/")
	}
}

// New creates a Twilio client. fromNumber is the WhatsApp sender in
// "whatsapp:+NNN" form.
func New(accountSID, authToken, fromNumber string, opts ...Option) (*Client, error) {
	if accountSID == "" || authToken == "" {
		return nil, goerr.New("Twilio account SID and auth token are required")
	}
	if fromNumber == "" {
		return nil, goerr.New("Twilio WhatsApp sender number is required")
	}

	c := &Client{
		accountSID: accountSID,
		authToken:  authToken,
		fromNumber: fromNumber,
		apiBase:    defaultAPIBase,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// SendMessage delivers an outbound WhatsApp message. to keeps the
// transport form ("whatsapp:+NNN") as received from the webhook.
func (c *Client) SendMessage(ctx context.Context, to, body string) error {
	form := url.Values{}
	form.Set("To", to)
	form.Set("From", c.fromNumber)
	form.Set("Body", body)

	endpoint := c.apiBase + "/2010-04-01/Accounts/" + c.accountSID + "/Messages.json"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return goerr.Wrap(err, "failed to build message request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(c.accountSID, c.authToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return goerr.Wrap(err, "failed to send message", goerr.V("to", to))
	}
	defer safe.Close(ctx, resp.Body)

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return goerr.New("message API returned error",
			goerr.V("status", resp.StatusCode), goerr.V("body", string(respBody)), goerr.V("to", to))
	}
	return nil
}

// FetchMedia downloads webhook media content with basic auth
func (c *Client) FetchMedia(ctx context.Context, mediaURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mediaURL, nil)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to build media request", goerr.V("url", mediaURL))
	}
	req.SetBasicAuth(c.accountSID, c.authToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to fetch media", goerr.V("url", mediaURL))
	}
	defer safe.Close(ctx, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, goerr.New("media fetch returned error",
			goerr.V("status", resp.StatusCode), goerr.V("url", mediaURL))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxMediaSize+1))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read media body", goerr.V("url", mediaURL))
	}
	if len(data) > maxMediaSize {
		return nil, goerr.New("media exceeds size limit", goerr.V("url", mediaURL), goerr.V("limit", maxMediaSize))
	}
	return data, nil
}
