package webhook

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingDispatcher struct {
	mu      sync.Mutex
	emails  []string
	history []string
}

func (d *recordingDispatcher) DispatchEmail(_ context.Context, id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.emails = append(d.emails, id)
}

func (d *recordingDispatcher) DispatchHistory(_ context.Context, id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.history = append(d.history, id)
}

func post(t *testing.T, h http.Handler, body string, header map[string]string) (*httptest.ResponseRecorder, Response) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, Path, strings.NewReader(body))
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return rec, resp
}

func TestHandlerAcceptsEmail(t *testing.T) {
	d := &recordingDispatcher{}
	h := NewHandler(d, Options{})

	rec, resp := post(t, h, `{"trigger":"new_email","emailId":"abc"}`, nil)
	h.Wait()

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, Response{Status: ResultAccepted, EmailID: "abc"}, resp)
	assert.Equal(t, []string{"abc"}, d.emails)
	assert.Empty(t, d.history)
}

func TestHandlerDispatchesPush(t *testing.T) {
	d := &recordingDispatcher{}
	h := NewHandler(d, Options{})

	data := base64.StdEncoding.EncodeToString([]byte(`{"emailAddress":"me@example.com","historyId":"42"}`))
	rec, resp := post(t, h, `{"message":{"data":"`+data+`"}}`, nil)
	h.Wait()

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "42", resp.HistoryID)
	assert.Equal(t, []string{"42"}, d.history)
	assert.Empty(t, d.emails)
}

func TestHandlerIgnoresUnknownPayload(t *testing.T) {
	d := &recordingDispatcher{}
	h := NewHandler(d, Options{})

	rec, resp := post(t, h, `{"type":"ping"}`, nil)
	h.Wait()

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, ResultIgnored, resp.Status)
	assert.Empty(t, d.emails)
}

func TestHandlerToken(t *testing.T) {
	tests := []struct {
		name   string
		header map[string]string
		code   int
	}{
		{"missing", nil, http.StatusUnauthorized},
		{"wrong", map[string]string{TokenHeader: "nope"}, http.StatusUnauthorized},
		{"correct", map[string]string{TokenHeader: "s3cret"}, http.StatusAccepted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &recordingDispatcher{}
			h := NewHandler(d, Options{Token: "s3cret"})
			rec, _ := post(t, h, `{"emailId":"abc"}`, tt.header)
			h.Wait()
			assert.Equal(t, tt.code, rec.Code)
		})
	}
}

func TestHandlerRejectsNonPost(t *testing.T) {
	h := NewHandler(&recordingDispatcher{}, Options{})
	req := httptest.NewRequest(http.MethodGet, Path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, http.MethodPost, rec.Header().Get("Allow"))
}

func TestHandlerBodyLimit(t *testing.T) {
	d := &recordingDispatcher{}
	h := NewHandler(d, Options{})

	big := `{"emailId":"abc","pad":"` + strings.Repeat("x", MaxBodyBytes) + `"}`
	rec, resp := post(t, h, big, nil)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "error", resp.Status)
	assert.Empty(t, d.emails)
}

func TestHandlerUsesBaseContext(t *testing.T) {
	type key struct{}
	base := context.WithValue(context.Background(), key{}, "base")

	var got any
	d := dispatcherFunc(func(ctx context.Context, _ string) { got = ctx.Value(key{}) })
	h := NewHandler(d, Options{BaseContext: base})

	post(t, h, `{"emailId":"abc"}`, nil)
	h.Wait()
	assert.Equal(t, "base", got)
}

type dispatcherFunc func(ctx context.Context, id string)

func (f dispatcherFunc) DispatchEmail(ctx context.Context, id string)   { f(ctx, id) }
func (f dispatcherFunc) DispatchHistory(ctx context.Context, id string) { f(ctx, id) }

func TestHandlerSurvivesDispatcherPanic(t *testing.T) {
	var mu sync.Mutex
	var handled []string
	d := dispatcherFunc(func(_ context.Context, id string) {
		if id == "bad" {
			panic("collaborator exploded")
		}
		mu.Lock()
		handled = append(handled, id)
		mu.Unlock()
	})
	h := NewHandler(d, Options{})

	rec, _ := post(t, h, `{"emailId":"bad"}`, nil)
	assert.Equal(t, http.StatusAccepted, rec.Code)
	h.Wait()

	rec, _ = post(t, h, `{"emailId":"good"}`, nil)
	assert.Equal(t, http.StatusAccepted, rec.Code)
	h.Wait()
	assert.Equal(t, []string{"good"}, handled)
}
