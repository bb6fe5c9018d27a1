package invoice

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupHandlerTest() (*gin.Engine, *Service) {
	gin.SetMode(gin.TestMode)

	svc := NewService(NewMemoryStore(), "test-secret")
	h := NewHandler(svc, "http://localhost:8080")

	r := gin.New()
	g := r.Group("")
	h.RegisterRoutes(g)
	h.RegisterProtectedRoutes(g)
	return r, svc
}

func request(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func draftJSON(number string, amount float64) string {
	return fmt.Sprintf(`{
		"invoiceNumber": %q,
		"clientName": "Acme Corp",
		"clientEmailAddress": "billing@acme.test",
		"serviceTitle": "Web Development",
		"dueDate": %q,
		"totalAmount": %g
	}`, number, time.Now().Add(24*time.Hour).Format(time.RFC3339), amount)
}

func TestNextNumberEndpoint(t *testing.T) {
	r, _ := setupHandlerTest()

	w := request(r, http.MethodGet, "/invoice/next-number", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Regexp(t, `^inv-[0-9a-z]{4}-[0-9a-z]{4}-[0-9a-z]{4}$`, resp["invoiceNumber"])
}

func TestGenerateEndpoint(t *testing.T) {
	r, _ := setupHandlerTest()

	w := request(r, http.MethodPost, "/invoice/generate", draftJSON("inv-aaaa-bbbb-cccc", 1500))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Invoice      *Invoice `json:"invoice"`
		ShareableURL string   `json:"shareableUrl"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "inv-aaaa-bbbb-cccc", resp.Invoice.InvoiceNumber)
	assert.Equal(t, "http://localhost:8080/pay-invoice/inv-aaaa-bbbb-cccc", resp.ShareableURL)
}

func TestGenerateEndpointValidation(t *testing.T) {
	r, _ := setupHandlerTest()

	w := request(r, http.MethodPost, "/invoice/generate", `{"clientName":"Acme"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "validation_failed")
}

func TestGenerateEndpointConflict(t *testing.T) {
	r, _ := setupHandlerTest()

	w := request(r, http.MethodPost, "/invoice/generate", draftJSON("inv-aaaa-bbbb-cccc", 1500))
	require.Equal(t, http.StatusOK, w.Code)

	w = request(r, http.MethodPost, "/invoice/generate", draftJSON("inv-aaaa-bbbb-cccc", 900))
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "duplicate_number")
}

func TestGetEndpoint(t *testing.T) {
	r, _ := setupHandlerTest()

	request(r, http.MethodPost, "/invoice/generate", draftJSON("inv-aaaa-bbbb-cccc", 1500))

	w := request(r, http.MethodGet, "/invoice/get/inv-aaaa-bbbb-cccc", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "billing@acme.test")

	w = request(r, http.MethodGet, "/invoice/get/inv-zzzz-zzzz-zzzz", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListEndpoint(t *testing.T) {
	r, _ := setupHandlerTest()

	w := request(r, http.MethodGet, "/invoice/get-all", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Invoices []*Invoice `json:"invoices"`
		Count    int        `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Zero(t, resp.Count)

	request(r, http.MethodPost, "/invoice/generate", draftJSON("inv-aaaa-bbbb-cccc", 1500))
	request(r, http.MethodPost, "/invoice/generate", draftJSON("inv-dddd-eeee-ffff", 900))

	w = request(r, http.MethodGet, "/invoice/get-all", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Count)
	assert.Len(t, resp.Invoices, 2)
}

func TestDeleteEndpoint(t *testing.T) {
	r, _ := setupHandlerTest()

	request(r, http.MethodPost, "/invoice/generate", draftJSON("inv-aaaa-bbbb-cccc", 1500))

	w := request(r, http.MethodDelete, "/invoice/delete/inv-aaaa-bbbb-cccc", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Message        string   `json:"message"`
		DeletedInvoice *Invoice `json:"deletedInvoice"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "inv-aaaa-bbbb-cccc", resp.DeletedInvoice.InvoiceNumber)

	w = request(r, http.MethodDelete, "/invoice/delete/inv-aaaa-bbbb-cccc", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
