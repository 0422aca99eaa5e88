package projects

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func platformServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	write := func(w http.ResponseWriter, v interface{}) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(v)
	}
	mux.HandleFunc("/api/projects/7/", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer secret" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		write(w, map[string]interface{}{"id": 7, "name": "Site selection", "description": "Pick a site"})
	})
	mux.HandleFunc("/api/projects/7/criteria/", func(w http.ResponseWriter, _ *http.Request) {
		write(w, []map[string]interface{}{
			{"id": 1, "name": "Cost", "weight": 3},
			{"id": 2, "name": "Access", "weight": 1},
			{"id": 3, "name": "Road access", "weight": 5, "parent": 2},
		})
	})
	mux.HandleFunc("/api/alternatives/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "7", r.URL.Query().Get("project"))
		write(w, []map[string]interface{}{
			{"id": 10, "name": "North", "feasibility": 0.8, "cost": 100, "risk_level": "low", "implementation_time": 6, "expected_benefit": 0.7},
			{"id": 11, "name": "South", "feasibility": 0.5, "cost": 60, "risk_level": "high", "implementation_time": 12, "expected_benefit": 0.9},
		})
	})
	mux.HandleFunc("/api/results/", func(w http.ResponseWriter, _ *http.Request) {
		write(w, []map[string]interface{}{
			{"alternative": 10, "criteria": 1, "score": 0.4},
			{"alternative": 10, "criteria": 2, "score": 0.9},
			{"alternative": 11, "criteria": 1, "score": 0.8},
			{"alternative": 11, "criteria": 3, "score": 0.1},
			{"alternative": 99, "criteria": 1, "score": 1},
		})
	})
	return httptest.NewServer(mux)
}

func TestLoadBuildsScenario(t *testing.T) {
	srv := platformServer(t)
	defer srv.Close()

	in, err := Load(context.Background(), NewHTTPClient(srv.URL, "secret"), "7")
	require.NoError(t, err)

	assert.Equal(t, "project-7", in.Base.ID)
	assert.Equal(t, "Site selection", in.Base.Name)
	assert.InDelta(t, 0.75, in.Base.CriteriaWeights["1"], 1e-9)
	assert.InDelta(t, 0.25, in.Base.CriteriaWeights["2"], 1e-9)
	assert.NotContains(t, in.Base.CriteriaWeights, "3")

	assert.Equal(t, []string{"10", "11"}, in.Base.AlternativeOrder)
	assert.Equal(t, 0.9, in.Base.AlternativeScores["10"]["2"])
	assert.NotContains(t, in.Base.AlternativeScores["11"], "3")
	assert.NotContains(t, in.Base.AlternativeScores, "99")

	assert.Equal(t, "South", in.AlternativeNames["11"])
	assert.Equal(t, "high", in.Alternatives["11"].RiskLevel)
	assert.Equal(t, "Cost", in.CriteriaNames["1"])

	req := in.SuiteRequest()
	assert.Same(t, in.Base, req.Base)
	assert.NoError(t, req.Base.Validate())
}

func TestLoadMissingProject(t *testing.T) {
	srv := platformServer(t)
	defer srv.Close()

	_, err := Load(context.Background(), NewHTTPClient(srv.URL, "secret"), "8")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestLoadUnauthorized(t *testing.T) {
	srv := platformServer(t)
	defer srv.Close()

	_, err := Load(context.Background(), NewHTTPClient(srv.URL, ""), "7")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestIDAcceptsStringsAndNumbers(t *testing.T) {
	var ids []ID
	require.NoError(t, json.Unmarshal([]byte(`[12, "abc", 3.5]`), &ids))
	assert.Equal(t, []ID{"12", "abc", "3.5"}, ids)
}

func TestListFollowsPagination(t *testing.T) {
	var srv *httptest.Server
	mux := http.NewServeMux()
	mux.HandleFunc("/api/results/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "7", r.URL.Query().Get("project"))
		w.Header().Set("Content-Type", "application/json")
		var body map[string]interface{}
		switch r.URL.Query().Get("page") {
		case "":
			body = map[string]interface{}{
				"count":    3,
				"next":     srv.URL + "/api/results/?page=2&project=7",
				"previous": nil,
				"results": []map[string]interface{}{
					{"alternative": 10, "criteria": 1, "score": 0.4},
					{"alternative": 10, "criteria": 2, "score": 0.9},
				},
			}
		case "2":
			body = map[string]interface{}{
				"count":    3,
				"next":     nil,
				"previous": srv.URL + "/api/results/?project=7",
				"results":  []map[string]interface{}{{"alternative": 11, "criteria": 1, "score": 0.8}},
			}
		default:
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(body)
	})
	srv = httptest.NewServer(mux)
	defer srv.Close()

	results, err := NewHTTPClient(srv.URL, "").ListResults(context.Background(), "7")
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, ID("11"), results[2].Alternative)
	assert.Equal(t, 0.8, results[2].Score)
}

func TestListRefusesForeignNextLink(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"count":   2,
			"next":    "http://elsewhere.example/api/alternatives/?page=2",
			"results": []map[string]interface{}{{"id": 1, "name": "One"}},
		})
	}))
	defer srv.Close()

	_, err := NewHTTPClient(srv.URL, "secret").ListAlternatives(context.Background(), "7")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not match")
}

func TestLoadClampsPlatformScores(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body interface{}
		switch r.URL.Path {
		case "/api/projects/7/":
			body = map[string]interface{}{"id": 7, "name": "Scales"}
		case "/api/projects/7/criteria/":
			body = []map[string]interface{}{{"id": 1, "name": "Cost", "weight": 1}}
		case "/api/alternatives/":
			body = []map[string]interface{}{{"id": 10, "name": "Ten"}, {"id": 11, "name": "Eleven"}}
		case "/api/results/":
			body = []map[string]interface{}{
				{"alternative": 10, "criteria": 1, "score": 7},
				{"alternative": 11, "criteria": 1, "score": -2},
			}
		default:
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(body)
	}))
	defer srv.Close()

	in, err := Load(context.Background(), NewHTTPClient(srv.URL, ""), "7")
	require.NoError(t, err)
	assert.Equal(t, 1.0, in.Base.AlternativeScores["10"]["1"])
	assert.Equal(t, 0.0, in.Base.AlternativeScores["11"]["1"])

	require.NoError(t, in.Base.Validate())
	for _, ra := range in.Base.Ranking() {
		assert.LessOrEqual(t, ra.Score, 1.0)
	}
}
