package httpx

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"goods_market/pkg/contextx"
)

const headerTraceID = "X-Trace-Id"

type authenticator interface {
	Authenticate(context.Context) error
	BearerToken() string
}

// StaticTokenAuthenticator отдаёт заранее выданный токен сервиса.
type StaticTokenAuthenticator struct {
	token string
}

func NewStaticTokenAuthenticator(token string) *StaticTokenAuthenticator {
	return &StaticTokenAuthenticator{token: token}
}

func (a *StaticTokenAuthenticator) Authenticate(context.Context) error {
	if a.token == "" {
		return errors.New("static token is empty")
	}

	return nil
}

func (a *StaticTokenAuthenticator) BearerToken() string {
	return a.token
}

// AuthBearerRoundTripper подписывает запросы к внешнему сервису токеном и
// передаёт trace id входящего запроса. При 401 токен запрашивается заново
// и запрос повторяется один раз.
type AuthBearerRoundTripper struct {
	next          http.RoundTripper
	authenticator authenticator
}

func NewAuthBearerRoundTripper(next http.RoundTripper, authenticator authenticator) AuthBearerRoundTripper {
	return AuthBearerRoundTripper{
		next:          next,
		authenticator: authenticator,
	}
}

func (rt AuthBearerRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	if rt.authenticator.BearerToken() == "" {
		if err := rt.authenticator.Authenticate(ctx); err != nil {
			return nil, fmt.Errorf("authenticator.Authenticate: %w", err)
		}
	}

	resp, err := rt.next.RoundTrip(rt.sign(req))
	if err != nil {
		return nil, fmt.Errorf("next.RoundTrip: %w", err)
	}

	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}

	resp.Body.Close()

	if err = rt.authenticator.Authenticate(ctx); err != nil {
		return nil, fmt.Errorf("authenticator.Authenticate: %w", err)
	}

	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, fmt.Errorf("req.GetBody: %w", err)
		}

		req = req.Clone(ctx)
		req.Body = body
	}

	return rt.next.RoundTrip(rt.sign(req)) //nolint:wrapcheck
}

func (rt AuthBearerRoundTripper) sign(req *http.Request) *http.Request {
	out := req.Clone(req.Context())
	out.Header.Set("Authorization", "Bearer "+rt.authenticator.BearerToken())

	if traceID, err := contextx.TraceIDFromContext(req.Context()); err == nil && out.Header.Get(headerTraceID) == "" {
		out.Header.Set(headerTraceID, traceID.String())
	}

	return out
}
