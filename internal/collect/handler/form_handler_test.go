package handler

import (
	"net/http"
	"testing"

	"github.com/bitfantasy/nimo-collect/internal/collect/repository"
	"github.com/bitfantasy/nimo-collect/internal/collect/service"
	"github.com/bitfantasy/nimo-collect/internal/collect/testutil"
	"github.com/bitfantasy/nimo-collect/internal/middleware"
)

func setupFormTest(t *testing.T) *testutil.TestEnv {
	t.Helper()
	db := testutil.SetupTestDB(t)
	router := testutil.SetupRouter()

	repos := repository.NewRepositories(db)
	formSvc := service.NewFormService(repos.Form, nil)
	h := NewFormHandler(formSvc)

	api := testutil.AuthGroup(router, "/api/v1")
	api.GET("/forms", h.List)
	api.GET("/forms/:id", h.Get)
	api.POST("/forms", middleware.RequireRole("form_designer"), h.Create)
	api.PUT("/forms/:id", middleware.RequireRole("form_designer"), h.Update)
	api.DELETE("/forms/:id", middleware.RequireRole("form_designer"), h.Delete)

	return &testutil.TestEnv{DB: db, Router: router, T: t}
}

func TestFormCreateAndGet(t *testing.T) {
	env := setupFormTest(t)
	token := testutil.DefaultTestToken()

	w := testutil.DoRequest(env.Router, "POST", "/api/v1/forms", map[string]interface{}{
		"name":        "Field Survey",
		"description": "Quarterly plot survey",
		"fields": []map[string]interface{}{
			{"label": "Plot Name", "kind": "text", "required": true},
			{"label": "Visit Date", "kind": "date"},
			{"label": "Crops", "kind": "checkbox", "choices": []string{"corn", "rice", "wheat"}},
			{"label": "Photo", "kind": "image_upload"},
		},
	}, token)
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}
	resp := testutil.ParseResponse(w)
	data := resp["data"].(map[string]interface{})
	formID := data["id"].(string)

	w2 := testutil.DoRequest(env.Router, "GET", "/api/v1/forms/"+formID, nil, token)
	if w2.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w2.Code, w2.Body.String())
	}
	resp2 := testutil.ParseResponse(w2)
	data2 := resp2["data"].(map[string]interface{})
	fields := data2["fields"].([]interface{})
	if len(fields) != 4 {
		t.Fatalf("Expected 4 fields, got %d", len(fields))
	}
	// Fields come back in definition order
	first := fields[0].(map[string]interface{})
	if first["label"] != "Plot Name" || first["required"] != true {
		t.Errorf("Unexpected first field: %v", first)
	}
}

func TestFormCreateRejectsBadFields(t *testing.T) {
	env := setupFormTest(t)
	token := testutil.DefaultTestToken()

	// Unknown field kind
	w := testutil.DoRequest(env.Router, "POST", "/api/v1/forms", map[string]interface{}{
		"name": "Bad",
		"fields": []map[string]interface{}{
			{"label": "X", "kind": "signature"},
		},
	}, token)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for unknown kind, got %d", w.Code)
	}

	// Duplicate labels
	w2 := testutil.DoRequest(env.Router, "POST", "/api/v1/forms", map[string]interface{}{
		"name": "Bad2",
		"fields": []map[string]interface{}{
			{"label": "X", "kind": "text"},
			{"label": "X", "kind": "date"},
		},
	}, token)
	if w2.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for duplicate labels, got %d", w2.Code)
	}
}

func TestFormUpdateReplacesFields(t *testing.T) {
	env := setupFormTest(t)
	token := testutil.DefaultTestToken()

	w := testutil.DoRequest(env.Router, "POST", "/api/v1/forms", map[string]interface{}{
		"name": "V1",
		"fields": []map[string]interface{}{
			{"label": "A", "kind": "text"},
			{"label": "B", "kind": "text"},
		},
	}, token)
	resp := testutil.ParseResponse(w)
	formID := resp["data"].(map[string]interface{})["id"].(string)

	w2 := testutil.DoRequest(env.Router, "PUT", "/api/v1/forms/"+formID, map[string]interface{}{
		"name": "V2",
		"fields": []map[string]interface{}{
			{"label": "C", "kind": "radio", "choices": []string{"yes", "no"}},
		},
	}, token)
	if w2.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w2.Code, w2.Body.String())
	}

	w3 := testutil.DoRequest(env.Router, "GET", "/api/v1/forms/"+formID, nil, token)
	data := testutil.ParseResponse(w3)["data"].(map[string]interface{})
	if data["name"] != "V2" {
		t.Errorf("name = %v, want V2", data["name"])
	}
	fields := data["fields"].([]interface{})
	if len(fields) != 1 {
		t.Fatalf("fields should be wholesale replaced, got %d", len(fields))
	}
	if fields[0].(map[string]interface{})["label"] != "C" {
		t.Errorf("Unexpected field after update: %v", fields[0])
	}
}

func TestFormRoleRequired(t *testing.T) {
	env := setupFormTest(t)
	// Plain user without designer or admin role
	token := testutil.GenerateTestToken("user-2", "Plain User", "u2@test.com", []string{"member"})

	w := testutil.DoRequest(env.Router, "POST", "/api/v1/forms", map[string]interface{}{
		"name":   "Nope",
		"fields": []map[string]interface{}{{"label": "X", "kind": "text"}},
	}, token)
	if w.Code != http.StatusForbidden {
		t.Errorf("Expected 403 without role, got %d", w.Code)
	}
}
