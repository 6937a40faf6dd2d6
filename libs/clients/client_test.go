package clients

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	should "github.com/stretchr/testify/assert"
	must "github.com/stretchr/testify/require"

	errorutils "github.com/sellora/marketplace/libs/errors"
)

func TestDo_ErrorWithResponse(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, err := w.Write([]byte("not json"))
		should.NoError(t, err)
	}))
	defer ts.Close()

	client, err := New(ts.URL, "")
	must.NoError(t, err)

	req, err := client.NewRequest(context.Background(), http.MethodGet, "/", nil, nil)
	must.NoError(t, err)

	var data map[string]interface{}
	response, err := client.Do(context.Background(), req, &data)
	must.Error(t, err)
	should.NotNil(t, response)

	var actual *errorutils.ErrorBundle
	must.True(t, errors.As(err, &actual))
	should.Equal(t, "response", actual.Error())

	httpState, err := UnwrapHTTPState(err)
	must.NoError(t, err)
	should.Equal(t, http.StatusOK, httpState.Status)
	should.Contains(t, fmt.Sprintf("%+v", httpState.Body), "not json")
}

func TestDo_Headers(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		should.Equal(t, "Bearer secret", r.Header.Get("authorization"))
		should.Equal(t, "jne", r.Header.Get("x-carrier"))
		should.Equal(t, "application/json", r.Header.Get("content-type"))
		w.Header().Set("content-type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer ts.Close()

	client, err := New(ts.URL, "secret")
	must.NoError(t, err)
	client.Headers.Set("x-carrier", "jne")

	req, err := client.NewRequest(context.Background(), http.MethodPost, "/quote", map[string]int{"weight": 1000}, nil)
	must.NoError(t, err)

	var out struct {
		OK bool `json:"ok"`
	}
	_, err = client.Do(context.Background(), req, &out)
	must.NoError(t, err)
	should.True(t, out.OK)
}

func TestDo_UpstreamError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"message":"bad destination"}`))
	}))
	defer ts.Close()

	client, err := New(ts.URL, "")
	must.NoError(t, err)

	req, err := client.NewRequest(context.Background(), http.MethodGet, "/", nil, nil)
	must.NoError(t, err)

	_, err = client.Do(context.Background(), req, nil)
	must.Error(t, err)
	should.True(t, IsClientError(err))
}

func TestBreaker(t *testing.T) {
	b := NewBreaker("test_breaker")
	fail := errors.New("upstream down")

	for i := 0; i < 5; i++ {
		_, err := Call(b, func() (int, error) { return 0, fail })
		should.ErrorIs(t, err, fail)
	}

	should.Equal(t, "open", b.State())

	_, err := Call(b, func() (int, error) {
		t.Fatal("must not be called while open")
		return 0, nil
	})
	should.ErrorIs(t, err, ErrCircuitOpen)
}

func TestBreaker_ClientErrorsDoNotTrip(t *testing.T) {
	b := NewBreaker("test_breaker_client_errors")
	clientErr := NewHTTPError(errors.New("bad input"), "/quote", "response", http.StatusBadRequest, nil)

	for i := 0; i < 10; i++ {
		_, err := Call(b, func() (string, error) { return "", clientErr })
		should.Error(t, err)
	}

	should.Equal(t, "closed", b.State())

	v, err := Call(b, func() (string, error) { return "ok", nil })
	must.NoError(t, err)
	should.Equal(t, "ok", v)
}
