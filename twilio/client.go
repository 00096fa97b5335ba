// Package twilio wraps the slice of the Twilio REST API this service
// needs: placing one outbound call and consulting the two account
// registries the eligibility gate checks.
package twilio

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/url"

	"github.com/bytedance/sonic"
	"github.com/valyala/fasthttp"
	"github.com/voicebridge/twilio-realtime/shared"
	"go.uber.org/zap"
)

// DefaultBaseURL is the Twilio REST API root.
const DefaultBaseURL = "https://api.twilio.com/2010-04-01"

type doFunc func(req *fasthttp.Request, resp *fasthttp.Response) error

// Client is an authenticated Twilio REST client. It is constructed once
// per process and injected into the components that need it; nothing in
// this package holds it as package state.
type Client struct {
	logger     shared.LoggerAdapter
	accountSID string
	authHeader string
	baseURL    string

	do doFunc
}

func NewClient(logger shared.LoggerAdapter, accountSID, authToken, baseURL string) (*Client, error) {
	if logger == nil {
		return nil, shared.ErrNoLogger
	}
	if accountSID == "" || authToken == "" {
		return nil, fmt.Errorf("%w: account credentials", shared.ErrMissingSetting)
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	basic := base64.StdEncoding.EncodeToString([]byte(accountSID + ":" + authToken))
	return &Client{
		logger:     logger,
		accountSID: accountSID,
		authHeader: "Basic " + basic,
		baseURL:    baseURL,
		do:         fasthttp.Do,
	}, nil
}

// request performs one REST call, respecting ctx cancellation.
func (c *Client) request(ctx context.Context, method, uri string, form url.Values) (int, []byte, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(uri)
	req.Header.SetMethod(method)
	req.Header.Set("Authorization", c.authHeader)
	if form != nil {
		req.Header.SetContentType("application/x-www-form-urlencoded")
		req.SetBodyString(form.Encode())
	}

	errC := make(chan error)
	go func() {
		defer close(errC)
		errC <- c.do(req, resp)
	}()
	select {
	case <-ctx.Done():
		return 0, nil, ctx.Err()
	case err := <-errC:
		if err != nil {
			return 0, nil, fmt.Errorf("performing HTTP request: %w", err)
		}
	}
	body := make([]byte, len(resp.Body()))
	copy(body, resp.Body())
	return resp.StatusCode(), body, nil
}

type callResource struct {
	SID    string `json:"sid"`
	Status string `json:"status"`
}

// PlaceCall asks the provider to dial to from from, executing the given
// connect-instruction document when answered. The returned call identifier
// is for logging only; the service does not track the call afterwards.
func (c *Client) PlaceCall(ctx context.Context, from, to, twiml string) (string, error) {
	uri := fmt.Sprintf("%s/Accounts/%s/Calls.json", c.baseURL, c.accountSID)
	form := url.Values{}
	form.Set("From", from)
	form.Set("To", to)
	form.Set("Twiml", twiml)

	status, body, err := c.request(ctx, fasthttp.MethodPost, uri, form)
	if err != nil {
		return "", shared.NewError(shared.KindConnection, "twilio.Client.PlaceCall", err)
	}
	if status != fasthttp.StatusCreated && status != fasthttp.StatusOK {
		return "", shared.NewError(shared.KindConnection, "twilio.Client.PlaceCall",
			fmt.Errorf("unexpected status code: %d, body: %s", status, body))
	}
	var call callResource
	if err := sonic.Unmarshal(body, &call); err != nil {
		return "", shared.NewError(shared.KindParse, "twilio.Client.PlaceCall", err)
	}
	c.logger.Info("call placed",
		zap.String("sid", call.SID),
		zap.String("status", call.Status),
	)
	return call.SID, nil
}

type incomingNumbersPage struct {
	IncomingPhoneNumbers []struct {
		PhoneNumber string `json:"phone_number"`
	} `json:"incoming_phone_numbers"`
}

// NumberOwned reports whether number is registered as one of the account's
// own inbound numbers.
func (c *Client) NumberOwned(ctx context.Context, number string) (bool, error) {
	uri := fmt.Sprintf("%s/Accounts/%s/IncomingPhoneNumbers.json?PhoneNumber=%s",
		c.baseURL, c.accountSID, url.QueryEscape(number))

	status, body, err := c.request(ctx, fasthttp.MethodGet, uri, nil)
	if err != nil {
		return false, shared.NewError(shared.KindProviderQuery, "twilio.Client.NumberOwned", err)
	}
	if status != fasthttp.StatusOK {
		return false, shared.NewError(shared.KindProviderQuery, "twilio.Client.NumberOwned",
			fmt.Errorf("unexpected status code: %d", status))
	}
	var page incomingNumbersPage
	if err := sonic.Unmarshal(body, &page); err != nil {
		return false, shared.NewError(shared.KindProviderQuery, "twilio.Client.NumberOwned", err)
	}
	return len(page.IncomingPhoneNumbers) > 0, nil
}

type callerIDsPage struct {
	OutgoingCallerIDs []struct {
		PhoneNumber string `json:"phone_number"`
	} `json:"outgoing_caller_ids"`
}

// CallerIDVerified reports whether number is a verified outgoing caller ID
// on the account.
func (c *Client) CallerIDVerified(ctx context.Context, number string) (bool, error) {
	uri := fmt.Sprintf("%s/Accounts/%s/OutgoingCallerIds.json?PhoneNumber=%s",
		c.baseURL, c.accountSID, url.QueryEscape(number))

	status, body, err := c.request(ctx, fasthttp.MethodGet, uri, nil)
	if err != nil {
		return false, shared.NewError(shared.KindProviderQuery, "twilio.Client.CallerIDVerified", err)
	}
	if status != fasthttp.StatusOK {
		return false, shared.NewError(shared.KindProviderQuery, "twilio.Client.CallerIDVerified",
			fmt.Errorf("unexpected status code: %d", status))
	}
	var page callerIDsPage
	if err := sonic.Unmarshal(body, &page); err != nil {
		return false, shared.NewError(shared.KindProviderQuery, "twilio.Client.CallerIDVerified", err)
	}
	return len(page.OutgoingCallerIDs) > 0, nil
}
