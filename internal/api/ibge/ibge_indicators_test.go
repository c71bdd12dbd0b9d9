package ibge

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_FetchIndicators(t *testing.T) {
	tests := []struct {
		name          string
		population    func(w http.ResponseWriter)
		area          func(w http.ResponseWriter)
		wantPopulacao *float64
		wantArea      *float64
	}{
		{
			name:          "both present",
			population:    func(w http.ResponseWriter) { io.WriteString(w, seriesJSON(`"11451999"`)) },
			area:          func(w http.ResponseWriter) { io.WriteString(w, seriesJSON(`"1521.11"`)) },
			wantPopulacao: ptr(11451999),
			wantArea:      ptr(1521.11),
		},
		{
			name:          "no-data sentinel degrades to absent",
			population:    func(w http.ResponseWriter) { io.WriteString(w, seriesJSON(`"-"`)) },
			area:          func(w http.ResponseWriter) { io.WriteString(w, seriesJSON(`"1521.11"`)) },
			wantPopulacao: nil,
			wantArea:      ptr(1521.11),
		},
		{
			name:          "bad status on one request only blanks that field",
			population:    func(w http.ResponseWriter) { io.WriteString(w, seriesJSON(`"214812"`)) },
			area:          func(w http.ResponseWriter) { w.WriteHeader(http.StatusInternalServerError) },
			wantPopulacao: ptr(214812),
			wantArea:      nil,
		},
		{
			name:       "malformed body and empty result",
			population: func(w http.ResponseWriter) { io.WriteString(w, `{"oops":`) },
			area:       func(w http.ResponseWriter) { io.WriteString(w, `[]`) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "N6[3550308]", r.URL.Query().Get("localidades"))
				switch {
				case strings.Contains(r.URL.Path, "/6579/periodos/-1/variaveis/9324"):
					tt.population(w)
				case strings.Contains(r.URL.Path, "/1301/periodos/-1/variaveis/615"):
					tt.area(w)
				default:
					w.WriteHeader(http.StatusNotFound)
				}
			}))
			defer srv.Close()

			ind := newTestClient(srv).FetchIndicators(context.Background(), 3550308)
			assert.Equal(t, tt.wantPopulacao, ind.Populacao)
			assert.Equal(t, tt.wantArea, ind.Area)
		})
	}
}

func TestClient_FetchIndicators_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	client := newTestClient(srv)
	srv.Close()

	ind := client.FetchIndicators(context.Background(), 3550308)
	assert.Nil(t, ind.Populacao)
	assert.Nil(t, ind.Area)
}

func TestExtractSeriesValue(t *testing.T) {
	decode := func(s string) []aggregateVariable {
		var out []aggregateVariable
		require.NoError(t, json.Unmarshal([]byte(s), &out))
		return out
	}

	t.Run("numeric literal", func(t *testing.T) {
		v, ok := extractSeriesValue(decode(seriesJSON(`42.5`)))
		require.True(t, ok)
		assert.Equal(t, 42.5, v)
	})

	t.Run("null value", func(t *testing.T) {
		_, ok := extractSeriesValue(decode(seriesJSON(`null`)))
		assert.False(t, ok)
	})

	t.Run("suppressed value", func(t *testing.T) {
		_, ok := extractSeriesValue(decode(seriesJSON(`"X"`)))
		assert.False(t, ok)
	})

	t.Run("missing series", func(t *testing.T) {
		_, ok := extractSeriesValue(decode(`[{"resultados":[]}]`))
		assert.False(t, ok)
	})

	t.Run("most recent period wins", func(t *testing.T) {
		payload := decode(`[{"resultados":[{"series":[{"serie":{"2021":"10","2022":"20"}}]}]}]`)
		v, ok := extractSeriesValue(payload)
		require.True(t, ok)
		assert.Equal(t, float64(20), v)
	})
}

func ptr(v float64) *float64 { return &v }
