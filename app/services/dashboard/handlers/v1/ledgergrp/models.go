package ledgergrp

import (
	"time"

	"github.com/blocksim/blocksim/business/core/session"
	"github.com/blocksim/blocksim/foundation/blockchain/database"
)

type newSession struct {
	ID string `json:"id" validate:"omitempty,max=64,excludesall=/"`
}

type sessionInfo struct {
	ID      string    `json:"id"`
	Created time.Time `json:"created"`
	Blocks  int       `json:"blocks"`
	Valid   bool      `json:"valid"`
}

func toSessionInfo(s session.Session) sessionInfo {
	return sessionInfo{
		ID:      s.ID,
		Created: s.Created,
		Blocks:  s.DB.Length(),
		Valid:   s.DB.Validate(),
	}
}

type latestBlock struct {
	Index     uint64             `json:"index"`
	Hash      string             `json:"hash"`
	Timestamp database.Timestamp `json:"timestamp"`
}

type stats struct {
	SessionID           string      `json:"session_id"`
	TotalBlocks         int         `json:"total_blocks"`
	Difficulty          int         `json:"difficulty"`
	MiningReward        float64     `json:"mining_reward"`
	PendingTransactions int         `json:"pending_transactions"`
	IsValid             bool        `json:"is_valid"`
	LatestBlock         latestBlock `json:"latest_block"`
}

func toStats(s session.Session) stats {
	st := s.Stats()

	return stats{
		SessionID:           s.ID,
		TotalBlocks:         st.TotalBlocks,
		Difficulty:          st.Difficulty,
		MiningReward:        s.DB.MiningReward(),
		PendingTransactions: st.Pending,
		IsValid:             st.Valid,
		LatestBlock: latestBlock{
			Index:     st.Latest.Index,
			Hash:      st.Latest.Hash,
			Timestamp: st.Latest.Timestamp,
		},
	}
}

type newBlock struct {
	Data string `json:"data" validate:"required"`
}

type newTx struct {
	From   string  `json:"from" validate:"required,sender"`
	To     string  `json:"to" validate:"required,recipient,nefield=From"`
	Amount float64 `json:"amount" validate:"gt=0"`
}

type queued struct {
	Entry   string `json:"entry"`
	Pending int    `json:"pending"`
}

type mineRequest struct {
	MinerAddress string `json:"miner_address" validate:"omitempty,recipient"`
}

type mined struct {
	Success       bool   `json:"success"`
	Message       string `json:"message"`
	NewBlockIndex uint64 `json:"new_block_index,omitempty"`
	Hash          string `json:"hash,omitempty"`
	Nonce         uint64 `json:"nonce,omitempty"`
	Elapsed       string `json:"elapsed,omitempty"`
}

type validation struct {
	Valid      bool                 `json:"valid"`
	Message    string               `json:"message"`
	Violations []database.Violation `json:"violations"`
}

type tamperRequest struct {
	Index *int   `json:"index" validate:"required,gte=0"`
	Data  string `json:"data"`
}

type balance struct {
	Address string  `json:"address"`
	Balance float64 `json:"balance"`
}

type balances struct {
	LatestBlock string    `json:"latest_block"`
	Balances    []balance `json:"balances"`
}
