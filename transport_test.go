package groupwire

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTransport(t *testing.T, baseURL string) *httpTransport {
	t.Helper()
	cfg := DefaultConfig().WithBaseURL(baseURL)
	require.NoError(t, cfg.Validate())
	tr, err := newHTTPTransport(cfg)
	require.NoError(t, err)
	return tr
}

func TestTransport_GetEncodesQuery(t *testing.T) {
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	tr := newTestTransport(t, server.URL)
	req := &Request{
		Path:     "/list.php",
		Method:   http.MethodGet,
		Data:     Params{"action": "list", "target": Params{"folder": "inbox"}},
		DataType: DataTypeText,
	}
	raw, err := tr.send(context.Background(), req, "")
	require.NoError(t, err)
	assert.Equal(t, "ok", string(raw))
	assert.Equal(t, "action=list&target%5Bfolder%5D=inbox", gotQuery)
}

func TestTransport_PostSendsFormBody(t *testing.T) {
	var gotBody, gotContentType string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		gotContentType = r.Header.Get("Content-Type")
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	tr := newTestTransport(t, server.URL)
	req := &Request{
		Path:     "/do.php",
		Method:   http.MethodPost,
		Data:     Params{"a": "1", "b": "x y"},
		DataType: DataTypeText,
	}
	_, err := tr.send(context.Background(), req, "")
	require.NoError(t, err)
	assert.Equal(t, "a=1&b=x+y", gotBody)
	assert.Equal(t, contentTypeForm, gotContentType)
}

func TestTransport_PostSendsJSONBody(t *testing.T) {
	var gotBody, gotContentType string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		gotContentType = r.Header.Get("Content-Type")
		w.Write([]byte(`{"success":true}`))
	}))
	defer server.Close()

	tr := newTestTransport(t, server.URL)
	req := &Request{
		Path:     "/do.php",
		Method:   http.MethodPost,
		Data:     Params{"action": "save", "item": Params{"id": 7}},
		DataType: DataTypeJSON,
	}
	_, err := tr.send(context.Background(), req, "")
	require.NoError(t, err)
	assert.Equal(t, contentTypeJSON, gotContentType)
	assert.JSONEq(t, `{"action":"save","item":{"id":7}}`, gotBody)
}

func TestTransport_TokenHeaderAttached(t *testing.T) {
	var gotToken string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotToken = r.Header.Get(TokenHeader)
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	tr := newTestTransport(t, server.URL)
	req := &Request{Path: "/do.php", Method: http.MethodPost, DataType: DataTypeText, RequiresToken: true}
	_, err := tr.send(context.Background(), req, "tok-abc")
	require.NoError(t, err)
	assert.Equal(t, "tok-abc", gotToken)
}

func TestTransport_NoTokenHeaderWhenEmpty(t *testing.T) {
	var hasHeader bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, hasHeader = r.Header[http.CanonicalHeaderKey(TokenHeader)]
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	tr := newTestTransport(t, server.URL)
	req := &Request{Path: "/do.php", Method: http.MethodGet, DataType: DataTypeText}
	_, err := tr.send(context.Background(), req, "")
	require.NoError(t, err)
	assert.False(t, hasHeader)
}

func TestTransport_RequestIDHeader(t *testing.T) {
	var gotID string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID = r.Header.Get("X-Request-ID")
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	tr := newTestTransport(t, server.URL)
	req := &Request{Path: "/do.php", Method: http.MethodGet, DataType: DataTypeText}
	_, err := tr.send(context.Background(), req, "")
	require.NoError(t, err)
	assert.NotEmpty(t, gotID)
}

func TestTransport_NonSuccessStatusIsTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gateway exploded", http.StatusBadGateway)
	}))
	defer server.Close()

	tr := newTestTransport(t, server.URL)
	req := &Request{Path: "/do.php", Method: http.MethodGet, DataType: DataTypeText}
	_, err := tr.send(context.Background(), req, "")
	require.Error(t, err)

	var terr *TransportError
	require.True(t, errors.As(err, &terr))
	assert.Equal(t, http.StatusBadGateway, terr.StatusCode)
	assert.False(t, terr.IsNetwork())
	assert.Contains(t, string(terr.Body), "gateway exploded")
}

func TestTransport_NetworkFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // nothing is listening anymore

	tr := newTestTransport(t, server.URL)
	req := &Request{Path: "/do.php", Method: http.MethodGet, DataType: DataTypeText}
	_, err := tr.send(context.Background(), req, "")
	require.Error(t, err)

	var terr *TransportError
	require.True(t, errors.As(err, &terr))
	assert.True(t, terr.IsNetwork())
}

func TestTransport_CustomHeaders(t *testing.T) {
	var gotKey string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-API-Key")
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	cfg := DefaultConfig().WithBaseURL(server.URL).WithHeader("X-API-Key", "secret")
	require.NoError(t, cfg.Validate())
	tr, err := newHTTPTransport(cfg)
	require.NoError(t, err)

	req := &Request{Path: "/do.php", Method: http.MethodGet, DataType: DataTypeText}
	_, err = tr.send(context.Background(), req, "")
	require.NoError(t, err)
	assert.Equal(t, "secret", gotKey)
}

func TestNewHTTPTransport_InvalidBaseURL(t *testing.T) {
	cfg := DefaultConfig().WithBaseURL("not-a-url")
	_, err := newHTTPTransport(cfg)
	assert.Error(t, err)
}
