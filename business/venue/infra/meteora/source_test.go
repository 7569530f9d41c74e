package meteora

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
)

type cannedQuerier struct {
	body string
	err  error
}

func (c cannedQuerier) Query(_ context.Context, _, _ string, _ map[string]any, out any) error {
	if c.err != nil {
		return c.err
	}
	return json.Unmarshal([]byte(c.body), out)
}

func TestSource_FetchPools(t *testing.T) {
	q := cannedQuerier{body: `{"meteora_dlmm_LbPair":[
		{"pubkey":"pair1","tokenXMint":"meme","tokenYMint":"usdc","reserveX":"rx1","reserveY":"ry1"},
		{"pubkey":"pair2","tokenXMint":"sol","tokenYMint":"meme","reserveX":"rx2","reserveY":"ry2"}]}`}

	pools, err := NewSource(q).FetchPools(context.Background(), "meme")
	if err != nil {
		t.Fatalf("FetchPools: %v", err)
	}
	if len(pools) != 2 {
		t.Fatalf("expected 2 pools, got %d", len(pools))
	}
	if pools[1].BaseAsset != "sol" || pools[1].QuoteAsset != "meme" || pools[1].BaseVault != "rx2" {
		t.Errorf("unexpected pool %+v", pools[1])
	}
	for _, p := range pools {
		if p.Venue != "meteora" {
			t.Errorf("venue = %q", p.Venue)
		}
	}

	if _, err := NewSource(cannedQuerier{err: errors.New("boom")}).FetchPools(context.Background(), "meme"); err == nil {
		t.Error("expected error")
	}
}
