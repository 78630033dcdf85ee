// Package h5gateway talks to the external H5 payment provider that brokers
// WeChat and Alipay payments.
package h5gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/zhiweijz/membership-payments/internal/signature"
)

// userAgent is required by the gateway for H5 order creation; it refuses
// requests that do not look like a mobile browser.
const userAgent = "Mozilla/5.0 (Linux; Android 10; SM-G975F) AppleWebKit/537.36"

type Config struct {
	APIBaseURL string
	AppID      string
	NotifyURL  string
	Timeout    time.Duration
}

type Client struct {
	config Config
	codec  *signature.Codec
	client *http.Client
	logger *slog.Logger
}

func NewClient(config Config, codec *signature.Codec, logger *slog.Logger) *Client {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		config: config,
		codec:  codec,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// CreateOrderRequest is the order this service asks the gateway to open.
type CreateOrderRequest struct {
	OrderRef    string
	Description string
	PayType     string
	Amount      int64
	Attach      string
}

// CreateOrderResult is the gateway's acknowledgement of an accepted order.
type CreateOrderResult struct {
	TradeNo    string
	JumpURL    string
	ExpireTime string
}

// RejectedError means the gateway received and declined the order. The
// outcome is known: no payment will happen for this request.
type RejectedError struct {
	Code int
	Msg  string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("gateway rejected order: code=%d msg=%s", e.Code, e.Msg)
}

// TransportError means the HTTP exchange itself failed. The outcome is
// unknown: the gateway may or may not have registered the order.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("gateway transport error: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

type gatewayResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data struct {
		TradeNo    string `json:"tradeNo"`
		JumpURL    string `json:"jumpUrl"`
		ExpireTime string `json:"expireTime"`
	} `json:"data"`
}

// CreateOrder signs and posts a single order-creation request. It never
// retries; redelivery and retry policy belong to the caller.
func (c *Client) CreateOrder(ctx context.Context, req CreateOrderRequest) (*CreateOrderResult, error) {
	fields := map[string]interface{}{
		"app_id":       c.config.AppID,
		"out_trade_no": req.OrderRef,
		"description":  req.Description,
		"pay_type":     req.PayType,
		"amount":       req.Amount,
		"notify_url":   c.config.NotifyURL,
		"attach":       req.Attach,
	}
	sign := c.codec.Sign(fields)

	payload := make(map[string]interface{}, len(fields)+1)
	for k, v := range fields {
		payload[k] = v
	}
	payload["sign"] = sign

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, &TransportError{Err: fmt.Errorf("marshal request: %w", err)}
	}

	c.logger.Info("creating gateway order",
		"out_trade_no", req.OrderRef,
		"pay_type", req.PayType,
		"amount", req.Amount)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.APIBaseURL+"/api/h5", bytes.NewReader(body))
	if err != nil {
		return nil, &TransportError{Err: fmt.Errorf("build request: %w", err)}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("User-Agent", userAgent)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		c.logger.Error("gateway request failed",
			"error", err,
			"out_trade_no", req.OrderRef)
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	var gwResp gatewayResponse
	if err := json.NewDecoder(resp.Body).Decode(&gwResp); err != nil {
		c.logger.Error("gateway response undecodable",
			"error", err,
			"status", resp.StatusCode,
			"out_trade_no", req.OrderRef)
		return nil, &TransportError{Err: fmt.Errorf("decode response (http %d): %w", resp.StatusCode, err)}
	}

	if gwResp.Code != 200 {
		c.logger.Warn("gateway rejected order",
			"out_trade_no", req.OrderRef,
			"code", gwResp.Code,
			"msg", gwResp.Msg)
		return nil, &RejectedError{Code: gwResp.Code, Msg: gwResp.Msg}
	}

	c.logger.Info("gateway accepted order",
		"out_trade_no", req.OrderRef,
		"trade_no", gwResp.Data.TradeNo)

	return &CreateOrderResult{
		TradeNo:    gwResp.Data.TradeNo,
		JumpURL:    gwResp.Data.JumpURL,
		ExpireTime: gwResp.Data.ExpireTime,
	}, nil
}
