package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/waitledger/go-wait-ledger/internal/app/core/domain"
	"github.com/waitledger/go-wait-ledger/internal/app/core/usecase"
)

// Server HTTP Adapter (Driving Adapter)
type Server struct {
	core *usecase.CoreUseCase
}

func NewServer(core *usecase.CoreUseCase) *Server {
	return &Server{
		core: core,
	}
}

// Router 建立 gin Engine 並註冊路由
func (s *Server) Router() *gin.Engine {
	r := gin.Default()
	s.RegisterRoutes(r)
	return r
}

// RegisterRoutes 註冊路由 (測試時可掛在自備的 Engine 上)
func (s *Server) RegisterRoutes(r *gin.Engine) {
	r.POST("/transfers", s.handleTransfer)
	r.GET("/accounts/count", s.handleAccountCount)
	r.GET("/accounts/:index/balance", s.handleBalance)
	r.GET("/balances/total", s.handleTotalBalance)
}

// transferRequest 轉帳請求
// From/To 用指標是為了讓帳戶 0 通過 required 驗證 (0 是合法索引)
type transferRequest struct {
	RefID  string `json:"ref_id" binding:"required"`
	From   *int   `json:"from" binding:"required"`
	To     *int   `json:"to" binding:"required"`
	Amount int64  `json:"amount"`
}

type transferResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	// 不可 omitempty：0 是合法的轉帳後餘額，不能從回應裡消失
	CurrentBalance int64 `json:"current_balance"`
}

// handleTransfer 處理 POST /transfers
// 資金不足時請求會掛住直到足額；呼叫端可用連線逾時/斷線來取消等待
func (s *Server) handleTransfer(c *gin.Context) {
	var req transferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, transferResponse{
			Success: false,
			Message: "invalid request: " + err.Error(),
		})
		return
	}

	// 1. UUID 解析
	u, err := uuid.Parse(req.RefID)
	if err != nil {
		// 業務層面的錯誤，回傳 Success=false (Soft Failure)
		c.JSON(http.StatusOK, transferResponse{
			Success: false,
			Message: "invalid ref_id: " + err.Error(),
		})
		return
	}

	// 2. 組裝 Domain Transfer
	tran := &domain.Transfer{
		TransferID: u,
		From:       *req.From,
		To:         *req.To,
		Amount:     req.Amount,
	}

	// 3. 執行轉帳 (可能阻塞；client 斷線會取消 Request Context)
	if err := s.core.PostTransfer(c.Request.Context(), tran); err != nil {
		switch {
		case errors.Is(err, domain.ErrIndexOutOfRange):
			c.JSON(http.StatusUnprocessableEntity, transferResponse{
				Success: false,
				Message: err.Error(),
			})
		case errors.Is(err, domain.ErrTransferCancelled):
			c.JSON(http.StatusGatewayTimeout, transferResponse{
				Success: false,
				Message: err.Error(),
			})
		default:
			c.JSON(http.StatusInternalServerError, transferResponse{
				Success: false,
				Message: err.Error(),
			})
		}
		return
	}

	// 4. [Optional] 取得來源帳戶最新餘額 (Best Effort)
	balance, _ := s.core.Balance(tran.From)

	c.JSON(http.StatusOK, transferResponse{
		Success:        true,
		CurrentBalance: balance,
	})
}

// handleBalance 處理 GET /accounts/:index/balance
func (s *Server) handleBalance(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid account index"})
		return
	}

	balance, err := s.core.Balance(index)
	if err != nil {
		if errors.Is(err, domain.ErrIndexOutOfRange) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"balance": balance})
}

// handleTotalBalance 處理 GET /balances/total
func (s *Server) handleTotalBalance(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"total_balance": s.core.TotalBalance()})
}

// handleAccountCount 處理 GET /accounts/count
func (s *Server) handleAccountCount(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"account_count": s.core.AccountCount()})
}
