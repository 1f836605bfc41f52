package verify

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/time/rate"
)

const (
	DefaultPollInterval = 5 * time.Second
	DefaultPollAttempts = 12
	DefaultCodeFormat   = "solidity-standard-json-input"
)

// ExplorerConfig describes an Etherscan-compatible verification API.
type ExplorerConfig struct {
	APIURL     string
	APIKey     string
	BrowserURL string
	// ChainID is sent as the "chainid" parameter when set (Etherscan v2 multichain API).
	ChainID int64
	// RPS caps outgoing requests per second; <= 0 disables pacing.
	RPS float64

	PollInterval time.Duration
	PollAttempts int

	// SourceCode is the standard JSON input (or flattened source) submitted for verification.
	SourceCode      string
	CodeFormat      string
	CompilerVersion string
	// ConstructorInputs encode Request.ConstructorArgs.
	ConstructorInputs abi.Arguments
}

// Explorer implements Service against an Etherscan-style HTTP API: submit with
// verifysourcecode, then poll checkverifystatus until a verdict arrives.
type Explorer struct {
	cfg     ExplorerConfig
	http    *http.Client
	limiter *rate.Limiter
	sleep   func(ctx context.Context, d time.Duration) error
}

func NewExplorer(cfg ExplorerConfig) (*Explorer, error) {
	if strings.TrimSpace(cfg.APIURL) == "" {
		return nil, errors.New("explorer api url not set")
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.PollAttempts <= 0 {
		cfg.PollAttempts = DefaultPollAttempts
	}
	if cfg.CodeFormat == "" {
		cfg.CodeFormat = DefaultCodeFormat
	}
	e := &Explorer{cfg: cfg, http: &http.Client{Timeout: 12 * time.Second}, sleep: sleepCtx}
	if cfg.RPS > 0 {
		e.limiter = rate.NewLimiter(rate.Limit(cfg.RPS), 1)
	}
	return e, nil
}

// AddressURL is the explorer page of a contract's verified code.
func (e *Explorer) AddressURL(addr common.Address) string {
	if e.cfg.BrowserURL == "" {
		return ""
	}
	return strings.TrimRight(e.cfg.BrowserURL, "/") + "/address/" + addr.Hex() + "#code"
}

type apiResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Result  string `json:"result"`
}

func (e *Explorer) Verify(ctx context.Context, req Request) error {
	args, err := e.encodeConstructorArgs(req.ConstructorArgs)
	if err != nil {
		return &FailureError{Message: "invalid constructor arguments: " + err.Error()}
	}
	form := e.baseParams()
	form.Set("module", "contract")
	form.Set("action", "verifysourcecode")
	form.Set("contractaddress", req.Address.Hex())
	form.Set("sourceCode", e.cfg.SourceCode)
	form.Set("codeformat", e.cfg.CodeFormat)
	form.Set("contractname", req.Source)
	form.Set("compilerversion", e.cfg.CompilerVersion)
	// The API expects this spelling.
	form.Set("constructorArguements", args)

	r, err := e.do(ctx, http.MethodPost, form)
	if err != nil {
		return err
	}
	if r.Status != "1" {
		return &FailureError{Message: explorerMessage(r)}
	}
	guid := strings.TrimSpace(r.Result)
	if guid == "" {
		return &FailureError{Message: "explorer returned no verification guid"}
	}
	return e.poll(ctx, guid)
}

// poll waits for the verdict on a submitted verification. A verdict that
// never leaves the queue is reported as a timeout so the caller may retry.
func (e *Explorer) poll(ctx context.Context, guid string) error {
	for i := 0; i < e.cfg.PollAttempts; i++ {
		if err := e.sleep(ctx, e.cfg.PollInterval); err != nil {
			return err
		}
		q := e.baseParams()
		q.Set("module", "contract")
		q.Set("action", "checkverifystatus")
		q.Set("guid", guid)
		r, err := e.do(ctx, http.MethodGet, q)
		if err != nil {
			return err
		}
		res := strings.ToLower(r.Result)
		switch {
		case strings.Contains(res, "pending in queue"), strings.Contains(res, "in progress"):
			continue
		case strings.Contains(res, "already verified"):
			return &FailureError{Message: r.Result}
		case r.Status == "1" || strings.HasPrefix(res, "pass"):
			return nil
		default:
			return &FailureError{Message: explorerMessage(r)}
		}
	}
	return fmt.Errorf("timeout waiting for verification result of %s", guid)
}

func (e *Explorer) baseParams() url.Values {
	v := url.Values{}
	if e.cfg.APIKey != "" {
		v.Set("apikey", e.cfg.APIKey)
	}
	if e.cfg.ChainID > 0 {
		v.Set("chainid", fmt.Sprint(e.cfg.ChainID))
	}
	return v
}

func (e *Explorer) do(ctx context.Context, method string, params url.Values) (*apiResponse, error) {
	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	var (
		req *http.Request
		err error
	)
	if method == http.MethodPost {
		req, err = http.NewRequestWithContext(ctx, method, e.cfg.APIURL, strings.NewReader(params.Encode()))
		if err == nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	} else {
		u := e.cfg.APIURL
		if strings.Contains(u, "?") {
			u += "&" + params.Encode()
		} else {
			u += "?" + params.Encode()
		}
		req, err = http.NewRequestWithContext(ctx, method, u, nil)
	}
	if err != nil {
		return nil, err
	}
	resp, err := e.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("network request failed: %w", err)
	}
	defer resp.Body.Close()
	rb, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("explorer rate limit: %s", resp.Status)
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("network request failed: %s", resp.Status)
	case resp.StatusCode >= 400:
		return nil, &FailureError{Message: fmt.Sprintf("explorer rejected request: %s %s", resp.Status, strings.TrimSpace(string(rb)))}
	}
	var r apiResponse
	if err := json.Unmarshal(rb, &r); err != nil {
		return nil, &FailureError{Message: fmt.Sprintf("non-JSON explorer response: %v", err)}
	}
	return &r, nil
}

func (e *Explorer) encodeConstructorArgs(args []any) (string, error) {
	if len(args) == 0 {
		return "", nil
	}
	packed, err := e.cfg.ConstructorInputs.Pack(args...)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(packed), nil
}

// explorerMessage picks the most descriptive text of a failed API response.
// Etherscan puts the detail in result and a generic NOTOK in message.
func explorerMessage(r *apiResponse) string {
	if r.Result != "" {
		return r.Result
	}
	if r.Message != "" {
		return r.Message
	}
	return "explorer returned status " + r.Status
}
