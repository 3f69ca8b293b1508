package report

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/johnquangdev/focus-group-analyzer/pkg/config"
)

func TestPostWordcloud(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "42", r.FormValue("meetingId"))

		file, header, err := r.FormFile("wordcloudFile")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "wordcloud_1_42.png", header.Filename)
		data, _ := io.ReadAll(file)
		assert.Equal(t, []byte("\x89PNG"), data)

		w.WriteHeader(http.StatusCreated)
	}))
	defer ts.Close()

	client := NewClient(&config.ReportConfig{WordcloudURL: ts.URL, Timeout: time.Second}, zap.NewNop())

	err := client.PostWordcloud(context.Background(), 42, "wordcloud_1_42.png", []byte("\x89PNG"))
	assert.NoError(t, err)
}

func TestPostWordcloud_ClientError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer ts.Close()

	client := NewClient(&config.ReportConfig{WordcloudURL: ts.URL, Timeout: time.Second}, nil)

	err := client.PostWordcloud(context.Background(), 1, "x.png", []byte("x"))
	assert.ErrorContains(t, err, "status 400")
}

func TestNilClientIsDisabled(t *testing.T) {
	client := NewClient(&config.ReportConfig{}, nil)

	assert.Nil(t, client)
	assert.NoError(t, client.PostWordcloud(context.Background(), 1, "x.png", nil))
}
