package restyutil

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/require"
)

func TestDumpWritesExchanges(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			http.Redirect(w, r, "/result", http.StatusFound)
			return
		}
		w.Header().Set("X-Test", "yes")
		w.Write([]byte("<html>ok</html>"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	output, err := NewFilesystemOutput(dir)
	require.NoError(t, err)

	client := resty.New().SetBaseURL(srv.URL)
	client.SetRedirectPolicy(resty.RedirectPolicyFunc(func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}))
	Dump(client, output, "7732185")

	_, err = client.R().SetFormData(map[string]string{"formula": "7732185"}).Post("/submit")
	require.NoError(t, err)
	_, err = client.R().Get("/result")
	require.NoError(t, err)

	submit, err := os.ReadFile(filepath.Join(dir, "7732185-1.txt"))
	require.NoError(t, err)
	require.Contains(t, string(submit), "POST "+srv.URL+"/submit")
	require.Contains(t, string(submit), "formula=7732185")
	require.Contains(t, string(submit), "302 "+srv.URL+"/result")

	result, err := os.ReadFile(filepath.Join(dir, "7732185-2.txt"))
	require.NoError(t, err)
	require.Contains(t, string(result), "X-Test: yes")
	require.Contains(t, string(result), "<html>ok</html>")
}

func TestFormatHeadersSorted(t *testing.T) {
	require.Equal(t, "", formatHeaders(http.Header{}))
	require.Equal(t, "A: 1\nB: 2\nB: 3", formatHeaders(http.Header{
		"B": {"2", "3"},
		"A": {"1"},
	}))
}
