package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gopkg.in/yaml.v3"

	http_adapter "github.com/waitledger/go-wait-ledger/internal/app/core/adapter/in/http"
	memory_adapter "github.com/waitledger/go-wait-ledger/internal/app/core/adapter/out/memory"
	mysql_adapter "github.com/waitledger/go-wait-ledger/internal/app/core/adapter/out/mysql"
	"github.com/waitledger/go-wait-ledger/internal/app/core/usecase"
	"github.com/waitledger/go-wait-ledger/pkg/mysql"
	"github.com/waitledger/go-wait-ledger/pkg/wal"
)

type LedgerConfig struct {
	// 帳戶數與統一初始餘額 (沒有 MySQL 快照時使用)
	Accounts       int   `yaml:"accounts"`
	InitialBalance int64 `yaml:"initial_balance"`
	// WAL 檔案路徑，空字串表示不記日誌
	WALPath string `yaml:"wal_path"`
}

type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

type MySQLConfig struct {
	// Enabled 開啟後：開機從快照載入餘額、關機寫回快照
	Enabled      bool `yaml:"enabled"`
	mysql.Config `yaml:",inline"`
}

type Config struct {
	Ledger LedgerConfig `yaml:"ledger"`
	HTTP   HTTPConfig   `yaml:"http"`
	MySQL  MySQLConfig  `yaml:"mysql"`
}

func main() {
	// 1. 載入設定
	cfg := loadConfig()

	// 2. [Optional] 初始化 MySQL 快照存放 (Base Infrastructure)
	var snapshotStore *mysql_adapter.SnapshotStore
	var bootBalances []int64
	var bootSequence uint64
	if cfg.MySQL.Enabled {
		dbClient, err := mysql.NewClient(cfg.MySQL.Config)
		if err != nil {
			log.Fatalf("Failed to connect to MySQL: %v", err)
		}
		defer dbClient.Close()
		log.Println("Connected to MySQL successfully")

		snapshotStore = mysql_adapter.NewSnapshotStore(dbClient)
		if err := snapshotStore.Migrate(); err != nil {
			log.Fatalf("Failed to migrate snapshot table: %v", err)
		}
		bootBalances, bootSequence, err = snapshotStore.LoadBalances(context.Background())
		if err != nil {
			log.Fatalf("Failed to load balance snapshot: %v", err)
		}
		if bootBalances != nil {
			log.Printf("Loaded snapshot of %d accounts (wal sequence %d)", len(bootBalances), bootSequence)
		}
	}

	// 3. 初始化 WAL
	var walFile *wal.WAL
	if cfg.Ledger.WALPath != "" {
		var err error
		walFile, err = wal.New(cfg.Ledger.WALPath)
		if err != nil {
			log.Fatalf("Failed to init WAL: %v", err)
		}
		// 程式結束時關閉 WAL
		defer walFile.Close()
	}

	// 4. 初始化帳本：有快照用快照，否則用統一初始餘額
	var ledger *memory_adapter.WaitLedger
	var err error
	if bootBalances != nil {
		ledger, err = memory_adapter.NewWaitLedgerWithBalances(bootBalances, bootSequence, walFile)
	} else {
		ledger, err = memory_adapter.NewWaitLedger(cfg.Ledger.Accounts, cfg.Ledger.InitialBalance, walFile)
	}
	if err != nil {
		log.Fatalf("Failed to init WaitLedger: %v", err)
	}
	log.Printf("Ledger ready: %d accounts, total balance %d", ledger.AccountCount(), ledger.TotalBalance())

	// 5. 初始化 UseCase 與 HTTP Adapter (Driving Adapter)
	coreUseCase := usecase.NewCoreUseCase(ledger)
	server := http_adapter.NewServer(coreUseCase)

	httpServer := &http.Server{
		Addr:    cfg.HTTP.Addr,
		Handler: server.Router(),
	}

	// 6. 啟動 HTTP Server
	go func() {
		log.Printf("Starting HTTP server on %s", cfg.HTTP.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("failed to serve: %v", err)
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP shutdown error: %v", err)
	}

	// 關機前把餘額與最後套用的順序號一併寫回快照
	if snapshotStore != nil {
		balances, lastSequence := ledger.Snapshot()
		if err := snapshotStore.SaveBalances(shutdownCtx, balances, lastSequence); err != nil {
			log.Printf("Failed to save balance snapshot: %v", err)
		} else {
			log.Println("Balance snapshot saved")
		}
	}
	log.Println("Server exited")
}

func loadConfig() Config {
	cfgData, err := os.ReadFile("config/config.yaml")
	if err != nil {
		log.Fatalf("Failed to read config file: %v", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(cfgData, &cfg); err != nil {
		log.Fatalf("Failed to parse config: %v", err)
	}

	// 補全預設配置 (如果 yaml 沒寫)
	if cfg.Ledger.Accounts == 0 {
		cfg.Ledger.Accounts = 10
	}
	if cfg.HTTP.Addr == "" {
		cfg.HTTP.Addr = ":8080"
	}
	cfg.MySQL.ApplyDefaults()
	return cfg
}
