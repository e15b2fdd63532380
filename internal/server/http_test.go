package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/loglens/loglens/internal/engine"
	"github.com/loglens/loglens/internal/format"
)

func testTable() *engine.Table {
	columns := []format.Definition{
		{Name: "Time", Kind: format.KindDate, Width: 23},
		{Name: "Level", Kind: format.KindEnum, Width: 5, Values: []string{"TRACE", "DEBUG", "INFO", "WARN", "ERROR", "FATAL"}},
		{Name: "Message", Kind: format.KindString, Width: -1},
	}
	t := engine.NewTable(columns)
	t.Append(
		format.Row{Line: "INFO service started", Time: 1000, Level: 2, Values: []string{"", "INFO", "service started"}},
		format.Row{Line: "ERROR connection timeout", Time: 2000, Level: 4, Values: []string{"", "ERROR", "connection timeout"}},
		format.Row{Line: "INFO request handled", Time: 3000, Level: 2, Values: []string{"", "INFO", "request handled"}},
	)
	return t
}

type rowsResponse struct {
	Total int `json:"total"`
	Rows  []struct {
		Line string `json:"line"`
		Time int64  `json:"time"`
	} `json:"rows"`
}

func TestRowsGet(t *testing.T) {
	srv := httptest.NewServer(NewViewerServer(testTable(), "").Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/rows?offset=1&limit=1")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var body rowsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Total != 3 {
		t.Errorf("total = %d, want 3", body.Total)
	}
	if len(body.Rows) != 1 || body.Rows[0].Time != 2000 {
		t.Errorf("rows = %+v, want single row at 2000", body.Rows)
	}
}

func TestRowsGetFiltered(t *testing.T) {
	srv := httptest.NewServer(NewViewerServer(testTable(), "").Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + `/api/rows?filters=` + "Level%3D%22ERROR%22" + `&query=timeout`)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var body rowsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Total != 1 || len(body.Rows) != 1 {
		t.Fatalf("body = %+v, want single match", body)
	}
	if !strings.Contains(body.Rows[0].Line, "timeout") {
		t.Errorf("line = %q", body.Rows[0].Line)
	}
}

func TestRowsPost(t *testing.T) {
	srv := httptest.NewServer(NewViewerServer(testTable(), "").Handler())
	defer srv.Close()

	payload := `{"offset": 0, "limit": 10, "filters": "Level=\"INFO\"\nMessage=\"request\"", "query": "handled"}`
	resp, err := http.Post(srv.URL+"/api/rows", "application/json", strings.NewReader(payload))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var body rowsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Total != 1 || body.Rows[0].Time != 3000 {
		t.Errorf("body = %+v, want single row at 3000", body)
	}
}

func TestRowsParseErrorPosition(t *testing.T) {
	srv := httptest.NewServer(NewViewerServer(testTable(), "").Handler())
	defer srv.Close()

	// Single '&' is invalid in the filter language.
	resp, err := http.Get(srv.URL + `/api/rows?filters=` + "Level%3D%22a%22%20%26%20x")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}

	var body map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if _, ok := body["position"]; !ok {
		t.Errorf("error body missing position: %v", body)
	}
	if _, ok := body["expected"]; !ok {
		t.Errorf("error body missing expected: %v", body)
	}
}

func TestColumnsAndStats(t *testing.T) {
	srv := httptest.NewServer(NewViewerServer(testTable(), "").Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/columns")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var columns []format.Definition
	if err := json.NewDecoder(resp.Body).Decode(&columns); err != nil {
		t.Fatal(err)
	}
	if len(columns) != 3 || columns[1].Name != "Level" {
		t.Errorf("columns = %+v", columns)
	}

	resp2, err := http.Get(srv.URL + "/api/stats")
	if err != nil {
		t.Fatal(err)
	}
	defer resp2.Body.Close()
	var stats engine.Stats
	if err := json.NewDecoder(resp2.Body).Decode(&stats); err != nil {
		t.Fatal(err)
	}
	if stats.TotalRows != 3 {
		t.Errorf("TotalRows = %d, want 3", stats.TotalRows)
	}
}

func TestAuthRequired(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	srv := httptest.NewServer(NewViewerServer(testTable(), string(hash)).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/rows")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("unauthenticated status = %d, want 401", resp.StatusCode)
	}

	// Wrong password is rejected.
	resp, err = http.Post(srv.URL+"/api/login", "application/json", strings.NewReader(`{"password":"nope"}`))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("bad login status = %d, want 401", resp.StatusCode)
	}

	// Correct password yields a working token.
	resp, err = http.Post(srv.URL+"/api/login", "application/json", strings.NewReader(`{"password":"s3cret"}`))
	if err != nil {
		t.Fatal(err)
	}
	var login struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&login); err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if login.Token == "" {
		t.Fatal("empty session token")
	}

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/rows", nil)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Authorization", "Bearer "+login.Token)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("authenticated status = %d, want 200", resp.StatusCode)
	}
}
