// Package webdriver implements core.Backend with a real browser driven over
// the W3C WebDriver protocol (Selenium server, geckodriver, chromedriver).
package webdriver

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// W3C WebDriver element identifier key (standard constant)
const w3cElementKey = "element-6066-11e4-a52e-4f735466cecf"

// W3C error codes we act on.
const (
	errNoSuchElement     = "no such element"
	errTimeout           = "timeout"
	errInvalidSessionID  = "invalid session id"
	errInvalidSelector   = "invalid selector"
	errStaleElement      = "stale element reference"
	errElementNotInterac = "element not interactable"
)

// Error is a WebDriver error response.
type Error struct {
	Code    string // W3C error code: "no such element", "timeout", ...
	Message string
	Status  int // HTTP status
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsCode reports whether err is a WebDriver error with the given code.
func IsCode(err error, code string) bool {
	wdErr, ok := err.(*Error)
	return ok && wdErr.Code == code
}

// Client handles HTTP communication with a WebDriver server.
type Client struct {
	serverURL string
	sessionID string
	client    *http.Client
	browser   string
}

// NewClient creates a new WebDriver client.
func NewClient(serverURL string) *Client {
	return &Client{
		serverURL: strings.TrimSuffix(serverURL, "/"),
		client: &http.Client{
			Timeout: 2 * time.Minute, // Long enough for slow page loads and browser start
		},
	}
}

// Connect creates a new session with the given capabilities.
func (c *Client) Connect(ctx context.Context, capabilities map[string]interface{}) error {
	body := map[string]interface{}{
		"capabilities": map[string]interface{}{
			"alwaysMatch": capabilities,
		},
	}

	resp, err := c.post(ctx, "/session", body)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	value, ok := resp["value"].(map[string]interface{})
	if !ok {
		return fmt.Errorf("invalid session response")
	}

	c.sessionID, _ = value["sessionId"].(string)
	if c.sessionID == "" {
		return fmt.Errorf("no session ID in response")
	}

	if caps, ok := value["capabilities"].(map[string]interface{}); ok {
		if name, ok := caps["browserName"].(string); ok {
			c.browser = strings.ToLower(name)
		}
	}

	return nil
}

// Disconnect closes the session.
func (c *Client) Disconnect(ctx context.Context) error {
	if c.sessionID == "" {
		return nil
	}
	_, err := c.delete(ctx, c.sessionPath())
	c.sessionID = ""
	return err
}

// SessionID returns the current session, empty when disconnected.
func (c *Client) SessionID() string {
	return c.sessionID
}

// Browser returns the browser name reported by the server.
func (c *Client) Browser() string {
	return c.browser
}

// Navigation

// Navigate loads url in the current top-level browsing context.
// The server returns once the page load strategy is satisfied.
func (c *Client) Navigate(ctx context.Context, url string) error {
	_, err := c.post(ctx, c.sessionPath()+"/url", map[string]interface{}{
		"url": url,
	})
	return err
}

// CurrentURL returns the URL of the current page.
func (c *Client) CurrentURL(ctx context.Context) (string, error) {
	resp, err := c.get(ctx, c.sessionPath()+"/url")
	if err != nil {
		return "", err
	}
	u, _ := resp["value"].(string)
	return u, nil
}

// Element Operations

// FindElement finds a single element.
func (c *Client) FindElement(ctx context.Context, strategy, value string) (string, error) {
	body := map[string]interface{}{
		"using": strategy,
		"value": value,
	}

	resp, err := c.post(ctx, c.sessionPath()+"/element", body)
	if err != nil {
		return "", err
	}

	elemValue, ok := resp["value"].(map[string]interface{})
	if !ok {
		return "", &Error{Code: errNoSuchElement, Message: value}
	}
	return extractElementID(elemValue), nil
}

// FindElements finds multiple elements.
func (c *Client) FindElements(ctx context.Context, strategy, value string) ([]string, error) {
	body := map[string]interface{}{
		"using": strategy,
		"value": value,
	}

	resp, err := c.post(ctx, c.sessionPath()+"/elements", body)
	if err != nil {
		return nil, err
	}

	values, ok := resp["value"].([]interface{})
	if !ok {
		return nil, nil
	}

	var ids []string
	for _, v := range values {
		if elem, ok := v.(map[string]interface{}); ok {
			if id := extractElementID(elem); id != "" {
				ids = append(ids, id)
			}
		}
	}
	return ids, nil
}

// ClickElement clicks an element.
func (c *Client) ClickElement(ctx context.Context, elementID string) error {
	_, err := c.post(ctx, c.elementPath(elementID)+"/click", map[string]interface{}{})
	return err
}

// ClearElement clears an editable element.
func (c *Client) ClearElement(ctx context.Context, elementID string) error {
	_, err := c.post(ctx, c.elementPath(elementID)+"/clear", map[string]interface{}{})
	return err
}

// SendKeys types text into an element.
func (c *Client) SendKeys(ctx context.Context, elementID, text string) error {
	_, err := c.post(ctx, c.elementPath(elementID)+"/value", map[string]interface{}{
		"text": text,
	})
	return err
}

// GetElementText returns an element's rendered text.
func (c *Client) GetElementText(ctx context.Context, elementID string) (string, error) {
	resp, err := c.get(ctx, c.elementPath(elementID)+"/text")
	if err != nil {
		return "", err
	}
	text, _ := resp["value"].(string)
	return text, nil
}

// GetElementAttribute returns an element's attribute value.
// ok is false when the attribute is absent (the server returns null).
func (c *Client) GetElementAttribute(ctx context.Context, elementID, name string) (string, bool, error) {
	resp, err := c.get(ctx, c.elementPath(elementID)+"/attribute/"+url.PathEscape(name))
	if err != nil {
		return "", false, err
	}
	value, ok := resp["value"].(string)
	return value, ok, nil
}

// IsElementSelected reports whether a checkbox, radio or option is selected.
func (c *Client) IsElementSelected(ctx context.Context, elementID string) (bool, error) {
	resp, err := c.get(ctx, c.elementPath(elementID)+"/selected")
	if err != nil {
		return false, err
	}
	selected, _ := resp["value"].(bool)
	return selected, nil
}

// Scripts

// ExecuteScript runs synchronous JavaScript and returns its result.
func (c *Client) ExecuteScript(ctx context.Context, script string, args ...interface{}) (interface{}, error) {
	if args == nil {
		args = []interface{}{}
	}
	resp, err := c.post(ctx, c.sessionPath()+"/execute/sync", map[string]interface{}{
		"script": script,
		"args":   args,
	})
	if err != nil {
		return nil, err
	}
	return resp["value"], nil
}

// Screen Operations

// Screenshot returns a screenshot as PNG bytes.
func (c *Client) Screenshot(ctx context.Context) ([]byte, error) {
	resp, err := c.get(ctx, c.sessionPath()+"/screenshot")
	if err != nil {
		return nil, err
	}
	encoded, ok := resp["value"].(string)
	if !ok {
		return nil, fmt.Errorf("invalid screenshot response")
	}
	return base64.StdEncoding.DecodeString(encoded)
}

// Source returns the serialized DOM of the current page.
func (c *Client) Source(ctx context.Context) (string, error) {
	resp, err := c.get(ctx, c.sessionPath()+"/source")
	if err != nil {
		return "", err
	}
	source, _ := resp["value"].(string)
	return source, nil
}

// Timeouts

// SetPageLoadTimeout sets how long navigation may take.
func (c *Client) SetPageLoadTimeout(ctx context.Context, timeout time.Duration) error {
	_, err := c.post(ctx, c.sessionPath()+"/timeouts", map[string]interface{}{
		"pageLoad": timeout.Milliseconds(),
	})
	return err
}

// SetImplicitWait sets the implicit wait timeout.
func (c *Client) SetImplicitWait(ctx context.Context, timeout time.Duration) error {
	_, err := c.post(ctx, c.sessionPath()+"/timeouts", map[string]interface{}{
		"implicit": timeout.Milliseconds(),
	})
	return err
}

// HTTP Helpers

func (c *Client) sessionPath() string {
	return "/session/" + c.sessionID
}

func (c *Client) elementPath(elementID string) string {
	return c.sessionPath() + "/element/" + elementID
}

func (c *Client) get(ctx context.Context, path string) (map[string]interface{}, error) {
	return c.request(ctx, http.MethodGet, path, nil)
}

func (c *Client) post(ctx context.Context, path string, body interface{}) (map[string]interface{}, error) {
	return c.request(ctx, http.MethodPost, path, body)
}

func (c *Client) delete(ctx context.Context, path string) (map[string]interface{}, error) {
	return c.request(ctx, http.MethodDelete, path, nil)
}

func (c *Client) request(ctx context.Context, method, path string, body interface{}) (map[string]interface{}, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.serverURL+path, bodyReader)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var result map[string]interface{}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to parse response (HTTP %d): %w", resp.StatusCode, err)
	}

	// Check for WebDriver error
	if errValue, ok := result["value"].(map[string]interface{}); ok {
		if errType, ok := errValue["error"].(string); ok {
			msg, _ := errValue["message"].(string)
			return result, &Error{Code: errType, Message: msg, Status: resp.StatusCode}
		}
	}

	return result, nil
}

func extractElementID(value map[string]interface{}) string {
	// W3C format
	if id, ok := value[w3cElementKey].(string); ok {
		return id
	}
	// Legacy format
	if id, ok := value["ELEMENT"].(string); ok {
		return id
	}
	return ""
}
