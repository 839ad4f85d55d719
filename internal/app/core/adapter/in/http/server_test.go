package http

// HTTP Adapter 的測試：用 httptest 直接打 gin Router，
// 不開真實連線、不依賴外部服務。

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	memory_adapter "github.com/waitledger/go-wait-ledger/internal/app/core/adapter/out/memory"
	"github.com/waitledger/go-wait-ledger/internal/app/core/usecase"
)

func newTestRouter(t *testing.T, accountCount int, initialBalance int64) (*gin.Engine, *memory_adapter.WaitLedger) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ledger, err := memory_adapter.NewWaitLedger(accountCount, initialBalance, nil)
	require.NoError(t, err)

	r := gin.New()
	NewServer(usecase.NewCoreUseCase(ledger)).RegisterRoutes(r)
	return r, ledger
}

func postTransfer(r *gin.Engine, ctx context.Context, body any) *httptest.ResponseRecorder {
	raw, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, "/transfers", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	if ctx != nil {
		req = req.WithContext(ctx)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeTransfer(t *testing.T, w *httptest.ResponseRecorder) transferResponse {
	t.Helper()
	var resp transferResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestHandleTransferSuccess(t *testing.T) {
	r, ledger := newTestRouter(t, 3, 100)

	from, to := 0, 1
	w := postTransfer(r, nil, gin.H{
		"ref_id": uuid.New().String(),
		"from":   from,
		"to":     to,
		"amount": 50,
	})

	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeTransfer(t, w)
	assert.True(t, resp.Success)
	// 回傳來源帳戶扣款後的餘額
	assert.Equal(t, int64(50), resp.CurrentBalance)
	assert.Equal(t, int64(300), ledger.TotalBalance())
}

func TestHandleTransferZeroBalanceInResponse(t *testing.T) {
	// 轉光來源帳戶後餘額為 0；0 是合法餘額，回應裡必須看得到欄位
	r, _ := newTestRouter(t, 2, 100)

	w := postTransfer(r, nil, gin.H{
		"ref_id": uuid.New().String(),
		"from":   0,
		"to":     1,
		"amount": 100,
	})
	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeTransfer(t, w)
	assert.True(t, resp.Success)
	assert.Equal(t, int64(0), resp.CurrentBalance)
	assert.Contains(t, w.Body.String(), `"current_balance":0`)
}

func TestHandleTransferAccountZero(t *testing.T) {
	// 帳戶 0 是合法索引，不可被 required 驗證誤殺
	r, _ := newTestRouter(t, 2, 100)

	w := postTransfer(r, nil, gin.H{
		"ref_id": uuid.New().String(),
		"from":   1,
		"to":     0,
		"amount": 10,
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decodeTransfer(t, w).Success)
}

func TestHandleTransferMalformedBody(t *testing.T) {
	r, ledger := newTestRouter(t, 2, 100)

	req := httptest.NewRequest(http.MethodPost, "/transfers", bytes.NewReader([]byte("{not json")))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, int64(200), ledger.TotalBalance())
}

func TestHandleTransferInvalidRefID(t *testing.T) {
	// 業務層面的錯誤：HTTP 200 + success=false (Soft Failure)
	r, ledger := newTestRouter(t, 2, 100)

	w := postTransfer(r, nil, gin.H{
		"ref_id": "not-a-uuid",
		"from":   0,
		"to":     1,
		"amount": 10,
	})
	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeTransfer(t, w)
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Message, "invalid ref_id")
	assert.Equal(t, int64(200), ledger.TotalBalance())
}

func TestHandleTransferIndexOutOfRange(t *testing.T) {
	r, ledger := newTestRouter(t, 2, 100)

	w := postTransfer(r, nil, gin.H{
		"ref_id": uuid.New().String(),
		"from":   0,
		"to":     2,
		"amount": 10,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.False(t, decodeTransfer(t, w).Success)
	assert.Equal(t, int64(200), ledger.TotalBalance())
}

func TestHandleTransferCancelledWhileWaiting(t *testing.T) {
	// 資金不足的轉帳掛住；Request Context 逾時後回 504，無任何異動
	r, ledger := newTestRouter(t, 2, 0)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	w := postTransfer(r, ctx, gin.H{
		"ref_id": uuid.New().String(),
		"from":   0,
		"to":     1,
		"amount": 10,
	})
	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
	assert.False(t, decodeTransfer(t, w).Success)
	assert.Equal(t, []int64{0, 0}, ledger.Balances())
}

func TestHandleTransferDuplicateRefID(t *testing.T) {
	// 同一 ref_id 重送：兩次都成功，但只套用一次
	r, ledger := newTestRouter(t, 2, 100)

	refID := uuid.New().String()
	body := gin.H{"ref_id": refID, "from": 0, "to": 1, "amount": 40}

	w1 := postTransfer(r, nil, body)
	require.Equal(t, http.StatusOK, w1.Code)
	assert.True(t, decodeTransfer(t, w1).Success)

	w2 := postTransfer(r, nil, body)
	require.Equal(t, http.StatusOK, w2.Code)
	assert.True(t, decodeTransfer(t, w2).Success)

	assert.Equal(t, []int64{60, 140}, ledger.Balances())
}

func TestHandleBalance(t *testing.T) {
	r, _ := newTestRouter(t, 3, 100)

	req := httptest.NewRequest(http.MethodGet, "/accounts/2/balance", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Balance int64 `json:"balance"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, int64(100), resp.Balance)

	// 越界索引 → 404
	req = httptest.NewRequest(http.MethodGet, "/accounts/9/balance", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// 非數字索引 → 400
	req = httptest.NewRequest(http.MethodGet, "/accounts/abc/balance", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleTotalBalanceAndCount(t *testing.T) {
	r, _ := newTestRouter(t, 4, 250)

	req := httptest.NewRequest(http.MethodGet, "/balances/total", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	var totalResp struct {
		TotalBalance int64 `json:"total_balance"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &totalResp))
	assert.Equal(t, int64(1000), totalResp.TotalBalance)

	req = httptest.NewRequest(http.MethodGet, "/accounts/count", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	var countResp struct {
		AccountCount int `json:"account_count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &countResp))
	assert.Equal(t, 4, countResp.AccountCount)
}
