package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	tl "github.com/tuumbleweed/tintlog/logger"
	"github.com/tuumbleweed/tintlog/palette"
	"github.com/tuumbleweed/xerr"

	"receipt-impact/src/pkg/util"
)

/*
createResponse performs POST /responses and returns the parsed response object.
It may return a "completed" response immediately, or an "in_progress" one when
the request asked for background mode.
*/
func (c *Client) createResponse(ctx context.Context, payload requestPayload) (response responseObject, status int, e *xerr.Error) {
	url := c.cfg.BaseURL + "/responses"
	tl.Log(tl.Info, palette.Blue, "%s %s to '%s'", "Creating", "response", url)

	encoded, marshalErr := json.Marshal(payload)
	if marshalErr != nil {
		return responseObject{}, requestNeverSent, xerr.NewError(marshalErr, "Failed to marshal request payload", payload)
	}

	body, status, e := c.doJSON(ctx, http.MethodPost, url, encoded)
	if e != nil {
		return responseObject{}, status, e
	}

	var parsed responseObject
	decodeErr := json.Unmarshal(body, &parsed)
	if decodeErr != nil {
		return responseObject{}, status, xerr.NewError(decodeErr, "Failed to decode response body", string(body))
	}
	return parsed, status, nil
}

// getResponseByID performs GET /responses/{id} and returns the parsed response object.
func (c *Client) getResponseByID(ctx context.Context, responseID string) (response responseObject, status int, e *xerr.Error) {
	url := fmt.Sprintf("%s/responses/%s", c.cfg.BaseURL, responseID)

	body, status, e := c.doJSON(ctx, http.MethodGet, url, nil)
	if e != nil {
		return responseObject{}, status, e
	}

	var parsed responseObject
	decodeErr := json.Unmarshal(body, &parsed)
	if decodeErr != nil {
		return responseObject{}, status, xerr.NewError(decodeErr, "Failed to decode response body", map[string]any{"response_id": responseID})
	}
	return parsed, status, nil
}

/*
doJSON sends one authorized request and returns the decoded body of a 200.

Status is 0 when no response arrived and requestNeverSent when the request
could not be built.
*/
func (c *Client) doJSON(ctx context.Context, method, url string, payload []byte) (body []byte, status int, e *xerr.Error) {
	req, newReqErr := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(payload))
	if newReqErr != nil {
		return nil, requestNeverSent, xerr.NewError(newReqErr, "Failed to create HTTP request", url)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept-Encoding", "br, gzip")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, httpErr := c.httpClient.Do(req)
	if httpErr != nil {
		return nil, 0, xerr.NewError(httpErr, "HTTP error calling OpenAI", map[string]any{"url": url, "method": method})
	}
	defer resp.Body.Close()

	body, e = readBody(resp, url)
	if e != nil {
		return nil, resp.StatusCode, e
	}
	if resp.StatusCode != http.StatusOK {
		return nil, resp.StatusCode, xerr.NewError(fmt.Errorf("status is '%s'", resp.Status), "API error from "+method+" "+url, string(body))
	}
	tl.LogJSON(tl.Debug, palette.CyanDim, "openai response body", json.RawMessage(body))
	return body, resp.StatusCode, nil
}

// extractOutputText collects all "output_text" fragments from the response into a single string.
func extractOutputText(resp *responseObject) string {
	var builder bytes.Buffer
	for _, out := range resp.Output {
		if out.Type != "message" {
			continue
		}
		for _, c := range out.Content {
			if c.Type == "output_text" && c.Text != "" {
				_, _ = builder.WriteString(c.Text)
			}
		}
	}
	return builder.String()
}

/*
waitForResponseCompletion polls GET /responses/{id} every interval until a
terminal state, ctx cancellation or timeout (if timeout > 0).
*/
func (c *Client) waitForResponseCompletion(ctx context.Context, responseID string, waitInterval, timeout time.Duration) (final responseObject, e *xerr.Error) {
	previousStatus := ""
	poll := 0

	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}

	var lastResp responseObject
	for {
		if !deadline.IsZero() && time.Now().After(deadline) {
			msg := fmt.Sprintf("Response polling timed out after %s", timeout)
			tl.Log(tl.Info1, palette.Purple, "%s; last known id='%s'", msg, responseID)
			lastResp.Status = "timeout"
			return lastResp, xerr.NewError(fmt.Errorf("timeout"), msg, timeout)
		}

		poll++
		var resp responseObject
		e = c.call(ctx, "openai.get_response", func(ctx context.Context) (status int, e *xerr.Error) {
			resp, status, e = c.getResponseByID(ctx, responseID)
			return status, e
		})
		if e != nil {
			return lastResp, e
		}
		lastResp = resp

		if resp.Status != previousStatus {
			tl.Log(tl.Verbose, palette.Cyan, "Response status changed: '%s'", resp.Status)
			previousStatus = resp.Status
		}
		tl.Log(tl.Verbose, palette.Cyan, "Poll #%v: status is '%s'", poll, resp.Status)

		switch resp.Status {
		case "completed", "incomplete", "":
			return resp, nil
		case "failed", "cancelled", "expired":
			msg := fmt.Sprintf("Response ended with status '%s'", resp.Status)
			tl.Log(tl.Info1, palette.Purple, "%s id is '%s'", msg, responseID)
			return resp, xerr.NewError(fmt.Errorf("%s", resp.Status), msg, resp.Error)
		default:
			waitErr := util.WaitForSeconds(ctx, waitInterval.Seconds())
			if waitErr != nil {
				return lastResp, xerr.NewError(waitErr, "stopped waiting for response", responseID)
			}
		}
	}
}
