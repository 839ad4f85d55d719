package main

import (
	"context"
	"log"
	"math/rand"
	"time"

	"golang.org/x/sync/errgroup"

	memory_adapter "github.com/waitledger/go-wait-ledger/internal/app/core/adapter/out/memory"
)

// Demo Driver: 對同一個帳本狂發隨機轉帳，觀察阻塞/喚醒與總額守恆
const (
	AccountCount   = 10
	InitialBalance = 1000
	TotalTransfers = 200
	Concurrency    = 20
	MaxAmount      = 1500 // 超過初始餘額，製造需要等待的轉帳
)

func main() {
	ledger, err := memory_adapter.NewWaitLedger(AccountCount, InitialBalance, nil)
	if err != nil {
		log.Fatalf("Failed to init WaitLedger: %v", err)
	}
	wantTotal := ledger.TotalBalance()
	log.Printf("Ledger ready: %d accounts, total balance %d", ledger.AccountCount(), wantTotal)

	// 轉帳可能互相等待，整體給個上限避免 demo 卡死
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	startTime := time.Now()

	var g errgroup.Group
	g.SetLimit(Concurrency)
	for i := 0; i < TotalTransfers; i++ {
		g.Go(func() error {
			from := rand.Intn(AccountCount)
			to := rand.Intn(AccountCount)
			amount := int64(rand.Intn(MaxAmount) + 1)

			if err := ledger.Transfer(ctx, from, to, amount); err != nil {
				return err
			}
			log.Printf("Transfer from %3d to %3d: %5d", from, to, amount)
			log.Printf("Total balance: %d", ledger.TotalBalance())
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		log.Printf("Some transfers did not complete: %v", err)
	}

	gotTotal := ledger.TotalBalance()
	log.Printf("Done in %v, total balance %d (want %d)", time.Since(startTime), gotTotal, wantTotal)
	if gotTotal != wantTotal {
		log.Fatalf("Conservation violated: got %d, want %d", gotTotal, wantTotal)
	}
}
