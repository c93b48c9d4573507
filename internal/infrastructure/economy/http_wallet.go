package economy

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	jsoniter "github.com/json-iterator/go"

	"goods_market/pkg/apperr"
	"goods_market/pkg/errcodes"
	"goods_market/pkg/httpx"
	"goods_market/pkg/logx"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary //nolint:gochecknoglobals // skip

type balanceResponse struct {
	Balance int64 `json:"balance"`
}

type amountRequest struct {
	Amount int64 `json:"amount"`
}

// HTTPWallet клиент внешнего сервиса очков.
//
//	GET  {base}/v1/accounts/{actor}/balance  -> {"balance": n}
//	POST {base}/v1/accounts/{actor}/withdraw -> 200, или 409 если не хватает
//	POST {base}/v1/accounts/{actor}/deposit  -> 200
type HTTPWallet struct {
	baseURL    string
	httpClient *http.Client
}

type HTTPWalletConfig struct {
	BaseURL        string
	Token          string
	Timeout        time.Duration
	LogFieldMaxLen int
}

func NewHTTPWallet(cfg HTTPWalletConfig) *HTTPWallet {
	transport := httpx.NewLoggingRoundTripper(
		http.DefaultTransport,
		httpx.WithService("points"),
		httpx.WithSensitiveDataMasker(logx.NewSensitiveDataMasker()),
		httpx.WithLogFieldMaxLen(cfg.LogFieldMaxLen),
	)

	return &HTTPWallet{
		baseURL: cfg.BaseURL,
		httpClient: &http.Client{
			Transport: httpx.NewAuthBearerRoundTripper(transport, httpx.NewStaticTokenAuthenticator(cfg.Token)),
			Timeout:   cfg.Timeout,
		},
	}
}

func (w *HTTPWallet) Balance(ctx context.Context, actorID string) (int64, error) {
	var resp balanceResponse

	status, err := w.do(ctx, http.MethodGet, actorID, "balance", nil, &resp)
	if err != nil {
		return 0, err
	}

	if status == http.StatusNotFound {
		return 0, nil
	}

	if status != http.StatusOK {
		return 0, apperr.NewError(errcodes.EconomyUnavailable, fmt.Sprintf("points balance: status %d", status))
	}

	return resp.Balance, nil
}

func (w *HTTPWallet) Withdraw(ctx context.Context, actorID string, amount int64) (bool, error) {
	if amount <= 0 {
		return true, nil
	}

	status, err := w.do(ctx, http.MethodPost, actorID, "withdraw", amountRequest{Amount: amount}, nil)
	if err != nil {
		return false, err
	}

	switch status {
	case http.StatusOK, http.StatusNoContent:
		return true, nil
	case http.StatusConflict, http.StatusPaymentRequired:
		return false, nil
	default:
		return false, apperr.NewError(errcodes.EconomyUnavailable, fmt.Sprintf("points withdraw: status %d", status))
	}
}

func (w *HTTPWallet) Deposit(ctx context.Context, actorID string, amount int64) (bool, error) {
	if amount <= 0 {
		return true, nil
	}

	status, err := w.do(ctx, http.MethodPost, actorID, "deposit", amountRequest{Amount: amount}, nil)
	if err != nil {
		return false, err
	}

	if status != http.StatusOK && status != http.StatusNoContent {
		return false, apperr.NewError(errcodes.EconomyUnavailable, fmt.Sprintf("points deposit: status %d", status))
	}

	return true, nil
}

func (w *HTTPWallet) do(
	ctx context.Context,
	method, actorID, action string,
	request, dest any,
) (int, error) {
	endpoint := w.baseURL + "/v1/accounts/" + url.PathEscape(actorID) + "/" + action

	body := io.Reader(http.NoBody)

	if request != nil {
		b, err := json.Marshal(request)
		if err != nil {
			return 0, fmt.Errorf("json.Marshal: %w", err)
		}

		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return 0, fmt.Errorf("http.NewRequestWithContext: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return 0, apperr.WrapError(err, errcodes.EconomyUnavailable, "points service request failed")
	}
	defer resp.Body.Close()

	if dest != nil && resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
			return 0, apperr.WrapError(err, errcodes.EconomyUnavailable, "points service returned invalid body")
		}
	}

	return resp.StatusCode, nil
}
