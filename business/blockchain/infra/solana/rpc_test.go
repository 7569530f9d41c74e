package solana

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fd1az/swap-router/business/blockchain/domain"
	"github.com/fd1az/swap-router/internal/apperror"
)

// rpcStub answers JSON-RPC calls from a method → result table.
func rpcStub(t *testing.T, results map[string]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode: %v", err)
			return
		}
		if req.JSONRPC != "2.0" {
			t.Errorf("jsonrpc = %q", req.JSONRPC)
		}
		result, ok := results[req.Method]
		if !ok {
			w.Write([]byte(`{"jsonrpc":"2.0","id":1,"error":{"code":-32601,"message":"Method not found"}}`))
			return
		}
		w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":` + result + `}`))
	}))
}

func TestRPCClient_Calls(t *testing.T) {
	server := rpcStub(t, map[string]string{
		"sendTransaction":        `"5igSig"`,
		"getTokenAccountBalance": `{"context":{"slot":1},"value":{"amount":"150000000000","decimals":6,"uiAmountString":"150000"}}`,
		"getSignatureStatuses":   `{"context":{"slot":2},"value":[{"slot":7,"confirmations":null,"err":null,"confirmationStatus":"finalized"},null]}`,
		"getLatestBlockhash":     `{"context":{"slot":3},"value":{"blockhash":"EkSnNWid2cvwEVnVx9aBqawnmiCNiDgp3gUdkDPTKN1N","lastValidBlockHeight":3090}}`,
		"getHealth":              `"ok"`,
	})
	defer server.Close()

	c, err := NewRPCClient(server.URL, "")
	if err != nil {
		t.Fatalf("NewRPCClient: %v", err)
	}
	ctx := context.Background()

	sig, err := c.SendTransaction(ctx, "AQID")
	if err != nil || sig != "5igSig" {
		t.Errorf("SendTransaction = %q, %v", sig, err)
	}

	amount, decimals, err := c.TokenAccountBalance(ctx, "vault")
	if err != nil || amount.String() != "150000000000" || decimals != 6 {
		t.Errorf("TokenAccountBalance = %s, %d, %v", amount, decimals, err)
	}

	statuses, err := c.SignatureStatuses(ctx, "a", "b")
	if err != nil {
		t.Fatalf("SignatureStatuses: %v", err)
	}
	if len(statuses) != 2 || statuses[1] != nil {
		t.Fatalf("unexpected statuses %+v", statuses)
	}
	if statuses[0].Failed() || statuses[0].ConfirmationStatus != domain.CommitmentFinalized {
		t.Errorf("unexpected status %+v", statuses[0])
	}

	bh, err := c.LatestBlockhash(ctx)
	if err != nil || bh.LastValidBlockHeight != 3090 {
		t.Errorf("LatestBlockhash = %+v, %v", bh, err)
	}

	if err := c.Health(ctx); err != nil {
		t.Errorf("Health: %v", err)
	}
}

func TestRPCClient_Errors(t *testing.T) {
	server := rpcStub(t, map[string]string{
		"getHealth":              `"behind"`,
		"getTokenAccountBalance": `{"context":{"slot":1},"value":{"amount":"x","decimals":6}}`,
	})
	defer server.Close()

	c, _ := NewRPCClient(server.URL, domain.CommitmentFinalized)
	ctx := context.Background()

	if _, err := c.SendTransaction(ctx, "AQID"); apperror.GetCode(err) != apperror.CodeSolanaRPCError {
		t.Errorf("rpc error: expected SOLANA_RPC_ERROR, got %v", err)
	}
	if err := c.Health(ctx); apperror.GetCode(err) != apperror.CodeSolanaRPCError {
		t.Errorf("unhealthy: expected SOLANA_RPC_ERROR, got %v", err)
	}
	if _, _, err := c.TokenAccountBalance(ctx, "vault"); apperror.GetCode(err) != apperror.CodeSolanaRPCError {
		t.Errorf("bad amount: expected SOLANA_RPC_ERROR, got %v", err)
	}
}
