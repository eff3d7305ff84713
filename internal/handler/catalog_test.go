package handler

import (
	"net/http"
	"testing"
	"time"

	"github.com/promptfolio/api/internal/testutil"
)

func TestListCompanies(t *testing.T) {
	h, db, codec := testHandler(t, nil)
	testutil.CreateTestCompany(t, db, "Acme")
	testutil.CreateTestCompany(t, db, "Globex")

	rec := doRequest(t, h, "GET", "/api/companies", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp struct {
		Companies []map[string]interface{} `json:"companies"`
		Total     int                      `json:"total"`
	}
	decodeBody(t, rec, &resp)

	if resp.Total != 2 || len(resp.Companies) != 2 {
		t.Fatalf("got total=%d len=%d, want 2/2", resp.Total, len(resp.Companies))
	}
	first := resp.Companies[0]
	if first["name"] != "Acme" {
		t.Errorf("name = %v, want Acme", first["name"])
	}
	wantToken := codec.Encode("acme")
	if first["share_token"] != wantToken {
		t.Errorf("share_token = %v, want %q", first["share_token"], wantToken)
	}
	if first["share_url"] != "https://promptfolio.example/companies/"+wantToken {
		t.Errorf("share_url = %v", first["share_url"])
	}
	if _, ok := first["id"]; ok {
		t.Error("raw id must not be exposed")
	}
}

func TestListCompanies_BadPaging(t *testing.T) {
	h, _, _ := testHandler(t, nil)

	for _, path := range []string{
		"/api/companies?limit=abc",
		"/api/companies?limit=0",
		"/api/companies?offset=-1",
	} {
		rec := doRequest(t, h, "GET", path, nil)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", path, rec.Code)
		}
	}
}

func TestListCompanies_LimitClamped(t *testing.T) {
	h, _, _ := testHandler(t, nil)

	rec := doRequest(t, h, "GET", "/api/companies?limit=5000", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestGetCompany(t *testing.T) {
	h, db, codec := testHandler(t, nil)
	testutil.CreateTestCompany(t, db, "Acme")

	t.Run("valid token", func(t *testing.T) {
		rec := doRequest(t, h, "GET", "/api/companies/"+codec.Encode("acme"), nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
		}
		var resp map[string]interface{}
		decodeBody(t, rec, &resp)
		if resp["name"] != "Acme" {
			t.Errorf("name = %v, want Acme", resp["name"])
		}
	})

	t.Run("raw id is not a token", func(t *testing.T) {
		rec := doRequest(t, h, "GET", "/api/companies/acme", nil)
		assertError(t, rec, http.StatusNotFound, msgInvalidLink)
	})

	t.Run("garbage token", func(t *testing.T) {
		rec := doRequest(t, h, "GET", "/api/companies/!!!", nil)
		assertError(t, rec, http.StatusNotFound, msgInvalidLink)
	})

	t.Run("unknown company", func(t *testing.T) {
		rec := doRequest(t, h, "GET", "/api/companies/"+codec.Encode("ghost"), nil)
		assertError(t, rec, http.StatusNotFound, msgCompanyMissing)
	})
}

func TestListCompanyJobs(t *testing.T) {
	h, db, codec := testHandler(t, nil)
	acme := testutil.CreateTestCompany(t, db, "Acme")
	globex := testutil.CreateTestCompany(t, db, "Globex")
	now := time.Now()
	testutil.CreateTestJob(t, db, acme.ID, "Engineer", now)
	testutil.CreateTestJob(t, db, globex.ID, "Designer", now)

	rec := doRequest(t, h, "GET", "/api/companies/"+codec.Encode(acme.ID)+"/jobs", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp struct {
		Jobs  []map[string]interface{} `json:"jobs"`
		Total int                      `json:"total"`
	}
	decodeBody(t, rec, &resp)
	if resp.Total != 1 || len(resp.Jobs) != 1 || resp.Jobs[0]["title"] != "Engineer" {
		t.Errorf("unexpected jobs: %+v", resp)
	}

	rec = doRequest(t, h, "GET", "/api/companies/"+codec.Encode("ghost")+"/jobs", nil)
	assertError(t, rec, http.StatusNotFound, msgCompanyMissing)
}

func TestListJobs(t *testing.T) {
	h, db, codec := testHandler(t, nil)
	acme := testutil.CreateTestCompany(t, db, "Acme")
	globex := testutil.CreateTestCompany(t, db, "Globex")
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	testutil.CreateTestJob(t, db, acme.ID, "Backend Engineer", base)
	testutil.CreateTestJob(t, db, globex.ID, "Frontend Engineer", base.Add(time.Hour))

	t.Run("all", func(t *testing.T) {
		rec := doRequest(t, h, "GET", "/api/jobs", nil)
		var resp struct {
			Jobs  []map[string]interface{} `json:"jobs"`
			Total int                      `json:"total"`
		}
		decodeBody(t, rec, &resp)
		if resp.Total != 2 {
			t.Fatalf("total = %d, want 2", resp.Total)
		}
		newest := resp.Jobs[0]
		if newest["title"] != "Frontend Engineer" {
			t.Errorf("first job = %v, want Frontend Engineer", newest["title"])
		}
		if newest["share_token"] != codec.Encode("2") {
			t.Errorf("share_token = %v, want token for job 2", newest["share_token"])
		}
		if newest["company_token"] != codec.Encode(globex.ID) {
			t.Errorf("company_token = %v", newest["company_token"])
		}
	})

	t.Run("company filter by token", func(t *testing.T) {
		rec := doRequest(t, h, "GET", "/api/jobs?company="+codec.Encode(acme.ID), nil)
		var resp struct {
			Jobs  []map[string]interface{} `json:"jobs"`
			Total int                      `json:"total"`
		}
		decodeBody(t, rec, &resp)
		if resp.Total != 1 || resp.Jobs[0]["title"] != "Backend Engineer" {
			t.Errorf("unexpected jobs: %+v", resp)
		}
	})

	t.Run("invalid company token", func(t *testing.T) {
		rec := doRequest(t, h, "GET", "/api/jobs?company=acme", nil)
		assertError(t, rec, http.StatusNotFound, msgInvalidLink)
	})

	t.Run("search", func(t *testing.T) {
		rec := doRequest(t, h, "GET", "/api/jobs?q=backend", nil)
		var resp struct {
			Total int `json:"total"`
		}
		decodeBody(t, rec, &resp)
		if resp.Total != 1 {
			t.Errorf("total = %d, want 1", resp.Total)
		}
	})
}

func TestGetJob(t *testing.T) {
	h, db, codec := testHandler(t, nil)
	acme := testutil.CreateTestCompany(t, db, "Acme")
	job := testutil.CreateTestJob(t, db, acme.ID, "Engineer", time.Now())

	rec := doRequest(t, h, "GET", "/api/jobs/"+codec.Encode(job.ID), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp map[string]interface{}
	decodeBody(t, rec, &resp)
	if resp["title"] != "Engineer" {
		t.Errorf("title = %v, want Engineer", resp["title"])
	}
	wantURL := "https://promptfolio.example/jobs/" + codec.Encode(job.ID)
	if resp["share_url"] != wantURL {
		t.Errorf("share_url = %v, want %q", resp["share_url"], wantURL)
	}

	rec = doRequest(t, h, "GET", "/api/jobs/"+codec.Encode("999"), nil)
	assertError(t, rec, http.StatusNotFound, msgJobMissing)

	rec = doRequest(t, h, "GET", "/api/jobs/MQ", nil)
	assertError(t, rec, http.StatusNotFound, msgInvalidLink)
}
