package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opencensus.io/stats/view"
)

func TestExporterServesInfo(t *testing.T) {
	require.NoError(t, Enable("0.1.0-test", "abc"))

	rows, err := view.RetrieveData(InfoView.Name)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	h, err := Exporter()
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "sysweb3_info")
	require.Contains(t, rec.Body.String(), `version="0.1.0-test"`)
}
