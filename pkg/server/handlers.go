package server

import (
	"encoding/json"
	"net/http"

	"github.com/Layr-Labs/merkle-airdrop-go/pkg/types"
)

type RootResponse struct {
	MerkleRoot types.Hash32 `json:"merkleRoot"`
	TokenTotal string       `json:"tokenTotal"`
	Count      int          `json:"count"`
}

type ProofResponse struct {
	Account string         `json:"account"`
	Amount  string         `json:"amount"`
	Proof   []types.Hash32 `json:"proof"`
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, RootResponse{
		MerkleRoot: s.proofs.MerkleRoot,
		TokenTotal: s.proofs.TokenTotal,
		Count:      len(s.proofs.Claims),
	})
}

func (s *Server) handleProof(w http.ResponseWriter, r *http.Request) {
	account, err := types.ParseAddress(r.PathValue("account"))
	if err != nil {
		http.Error(w, "Invalid account address", http.StatusBadRequest)
		return
	}

	leaf, proof, ok := s.proofs.Lookup(account)
	if !ok {
		http.Error(w, "Account not found", http.StatusNotFound)
		return
	}

	s.writeJSON(w, http.StatusOK, ProofResponse{
		Account: leaf.Account.Hex(),
		Amount:  leaf.Amount.Dec(),
		Proof:   types.ToHash32s(proof),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Sugar().Warnw("Failed to write response", "error", err)
	}
}
