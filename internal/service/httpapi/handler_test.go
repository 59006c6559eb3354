package httpapi_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/shop-orders/internal/domain"
	"github.com/vladislavdragonenkov/shop-orders/internal/service/httpapi"
	"github.com/vladislavdragonenkov/shop-orders/internal/service/orders"
	"github.com/vladislavdragonenkov/shop-orders/internal/storage/memory"
	ordersv1 "github.com/vladislavdragonenkov/shop-orders/proto/orders/v1"
)

func newRouter(t *testing.T) (*mux.Router, *memory.Store) {
	t.Helper()

	logger := log.New()
	logger.SetOutput(io.Discard)
	entry := logger.WithField("component", "test")

	store := memory.NewStore()
	store.SeedUser(domain.User{ID: "42", Username: "alice", Email: "alice@example.com"})
	store.SeedProduct(domain.Product{ID: "A", Name: "Mug", UnitPrice: decimal.RequireFromString("10.00")})
	store.SeedProduct(domain.Product{ID: "B", Name: "Tea", UnitPrice: decimal.RequireFromString("5.50")})
	store.SeedCart(domain.Cart{ID: "cart-42", UserID: "42", Items: []domain.CartItem{
		{ID: "ci-1", ProductID: "A", Quantity: 2},
		{ID: "ci-2", ProductID: "B", Quantity: 1},
	}})

	router := mux.NewRouter()
	httpapi.NewHandler(orders.NewService(store, entry), entry).RegisterRoutes(router)
	return router, store
}

func do(router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestOrdersAPI_Lifecycle(t *testing.T) {
	router, _ := newRouter(t)

	rec := do(router, http.MethodPost, "/api/orders/checkout/42", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var created ordersv1.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.Equal(t, "25.50", created.TotalPrice)
	require.Equal(t, "PENDING", created.Status)
	require.Equal(t, "alice", created.Username)
	require.Len(t, created.OrderItems, 2)

	rec = do(router, http.MethodGet, "/api/orders/"+created.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(router, http.MethodGet, "/api/orders/user/42", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var byUser []ordersv1.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &byUser))
	require.Len(t, byUser, 1)

	rec = do(router, http.MethodGet, "/api/orders/user/nobody", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `[]`, rec.Body.String())

	rec = do(router, http.MethodGet, "/api/orders", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(router, http.MethodPatch, "/api/orders/"+created.ID+"/status", `{"status":"SHIPPED"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var shipped ordersv1.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &shipped))
	require.Equal(t, "SHIPPED", shipped.Status)

	rec = do(router, http.MethodPut, "/api/orders/"+created.ID, `{"status":"PROCESSING","items":[{"productId":"B","quantity":3}]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var updated ordersv1.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	require.Equal(t, "16.50", updated.TotalPrice)
	require.Len(t, updated.OrderItems, 1)

	rec = do(router, http.MethodDelete, "/api/orders/"+created.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(router, http.MethodGet, "/api/orders/"+created.ID, "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.JSONEq(t, `{"error":"order not found"}`, rec.Body.String())
}

func TestOrdersAPI_Errors(t *testing.T) {
	router, store := newRouter(t)

	rec := do(router, http.MethodPost, "/api/orders/checkout/7", "")
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(router, http.MethodPost, "/api/orders/checkout/42", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var created ordersv1.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = do(router, http.MethodPost, "/api/orders/checkout/42", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.JSONEq(t, `{"error":"cart is empty"}`, rec.Body.String())

	rec = do(router, http.MethodPut, "/api/orders/"+created.ID, `{"status":"PENDING","items":[]}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(router, http.MethodPut, "/api/orders/"+created.ID, `{"status":"PENDING","items":[{"productId":"A","quantity":1,"price":"abc"}]}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(router, http.MethodPut, "/api/orders/"+created.ID, `{"status":"PENDING","items":[{"productId":"A","quantity":1,"price":"0.005"},{"productId":"B","quantity":1,"price":"0.005"}]}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(router, http.MethodPut, "/api/orders/"+created.ID, `{"status":""}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(router, http.MethodPut, "/api/orders/"+created.ID, `not json`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(router, http.MethodDelete, "/api/orders/missing", "")
	require.Equal(t, http.StatusNotFound, rec.Code)

	store.DeleteUser("42")
	rec = do(router, http.MethodGet, "/api/orders/"+created.ID, "")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.JSONEq(t, `{"error":"internal error"}`, rec.Body.String())
}
