package integration

import (
	"net/http"
	"testing"
)

func TestTransactionFlow_CaptureSummarizeAndBalance(t *testing.T) {
	app := setupApp(t)

	app.createTransaction(t, `{"amount":"1000","transaction_type":"income","source_channel":"text","category":"salary"}`)
	app.createTransaction(t, `{"amount":"₹350.25","transaction_type":"expense","source_channel":"voice","category":"groceries","description":"market run"}`)

	// Summary for today nets the two captures.
	rec := app.request("GET", "/api/v1/summary", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	summary := parseJSON(t, rec)["summary"].(map[string]interface{})
	if summary["income"].(string) != "1000" || summary["expense"].(string) != "350.25" {
		t.Errorf("unexpected summary: %v", summary)
	}

	// Running balance is signed.
	rec = app.request("GET", "/api/v1/balance", "")
	balance := parseJSON(t, rec)["balance"].(string)
	if balance != "649.75" {
		t.Errorf("expected balance 649.75, got %v", balance)
	}

	// Category view groups the expense.
	rec = app.request("GET", "/api/v1/summary/categories", "")
	categories := parseJSON(t, rec)["categories"].([]interface{})
	if len(categories) != 2 {
		t.Fatalf("expected 2 categories, got %d", len(categories))
	}
}

func TestTransactionFlow_ValidationErrors(t *testing.T) {
	app := setupApp(t)

	cases := []struct {
		name string
		body string
		code string
	}{
		{"unparsable_amount", `{"amount":"lots","transaction_type":"expense","source_channel":"text"}`, "MALFORMED_AMOUNT"},
		{"negative_amount", `{"amount":"-5","transaction_type":"expense","source_channel":"text"}`, "MALFORMED_AMOUNT"},
		{"missing_type", `{"amount":"10","source_channel":"text"}`, "INVALID_INPUT"},
		{"unknown_channel", `{"amount":"10","transaction_type":"expense","source_channel":"fax"}`, "INVALID_INPUT"},
		{"future_date", `{"amount":"10","transaction_type":"expense","source_channel":"text","transaction_date":"2099-01-01"}`, "INVALID_TIMESTAMP"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := app.request("POST", "/api/v1/transactions", tc.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
			errBody := parseJSON(t, rec)["error"].(map[string]interface{})
			if errBody["code"].(string) != tc.code {
				t.Errorf("expected code %s, got %v", tc.code, errBody["code"])
			}

			rec = app.request("GET", "/api/v1/transactions", "")
			if parseJSON(t, rec)["total_items"].(float64) != 0 {
				t.Error("rejected candidates must not be stored")
			}
		})
	}
}

func TestTransactionFlow_DuplicateDetection(t *testing.T) {
	app := setupApp(t)

	body := `{"amount":"450","transaction_type":"expense","source_channel":"voice","description":"dinner"}`
	first := app.createTransaction(t, body)

	// Same content from the same channel on the same day answers 409.
	rec := app.request("POST", "/api/v1/transactions", body)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", rec.Code, rec.Body.String())
	}
	result := parseJSON(t, rec)
	if result["duplicate_of"].(string) != first {
		t.Errorf("expected duplicate_of %s, got %v", first, result["duplicate_of"])
	}

	// Resubmitting with keep_duplicate stores the second copy.
	rec = app.request("POST", "/api/v1/transactions",
		`{"amount":"450","transaction_type":"expense","source_channel":"voice","description":"dinner","keep_duplicate":true}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = app.request("GET", "/api/v1/transactions", "")
	if parseJSON(t, rec)["total_items"].(float64) != 2 {
		t.Errorf("expected both copies stored, got %v", parseJSON(t, rec)["total_items"])
	}
}

func TestTransactionFlow_EditAndDelete(t *testing.T) {
	app := setupApp(t)

	id := app.createTransaction(t, `{"amount":"100","transaction_type":"expense","source_channel":"text","category":"misc"}`)

	rec := app.request("PATCH", "/api/v1/transactions/"+id, `{"category":"travel","description":"taxi"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	tx := parseJSON(t, rec)["transaction"].(map[string]interface{})
	if tx["category"].(string) != "travel" || tx["version"].(float64) != 2 {
		t.Errorf("unexpected edited transaction: %v", tx)
	}

	rec = app.request("PATCH", "/api/v1/transactions/missing", `{"category":"x"}`)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for a missing row, got %d", rec.Code)
	}

	rec = app.request("DELETE", "/api/v1/transactions/"+id, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	// Balance no longer counts the tombstoned expense.
	rec = app.request("GET", "/api/v1/balance", "")
	if parseJSON(t, rec)["balance"].(string) != "0" {
		t.Errorf("expected balance 0 after delete, got %v", parseJSON(t, rec)["balance"])
	}
}
