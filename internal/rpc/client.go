package rpc

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/Lugier/HFT/internal/domain"
)

// callTimeout bounds every individual RPC call, separate from any backoff
// policy. A call that exceeds it counts as a failure for health purposes.
const callTimeout = 10 * time.Second

// Caller executes RPC calls against the best available endpoint of a chain,
// reporting every outcome back to the Pool. Clients are dialed lazily per
// endpoint and cached.
type Caller struct {
	pool *Pool

	mu      sync.Mutex
	clients map[string]*ethclient.Client // keyed by endpoint URL
}

// NewCaller creates a Caller backed by the given Pool.
func NewCaller(pool *Pool) *Caller {
	return &Caller{
		pool:    pool,
		clients: make(map[string]*ethclient.Client),
	}
}

// client returns the cached ethclient for an endpoint, dialing on first use.
func (c *Caller) client(ctx context.Context, ep *Endpoint) (*ethclient.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cl, ok := c.clients[ep.URL]; ok {
		return cl, nil
	}
	cl, err := ethclient.DialContext(ctx, ep.URL)
	if err != nil {
		return nil, fmt.Errorf("rpc: dial %s: %w", ep.URL, err)
	}
	c.clients[ep.URL] = cl
	return cl, nil
}

// Do selects an endpoint for the chain and runs fn against it, retrying on
// the next-best endpoint on failure until every candidate has been tried
// once. Each attempt carries its own bounded timeout and is reported to the
// health tracker regardless of outcome.
func (c *Caller) Do(ctx context.Context, chain string, fn func(ctx context.Context, cl *ethclient.Client) error) error {
	attempts := len(c.pool.Endpoints(chain))
	if attempts == 0 {
		return fmt.Errorf("rpc: chain %s: %w", chain, domain.ErrNoEndpointAvailable)
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		ep, err := c.pool.Select(chain)
		if err != nil {
			if lastErr != nil {
				return fmt.Errorf("rpc: chain %s: %w (last call error: %v)", chain, domain.ErrNoEndpointAvailable, lastErr)
			}
			return err
		}

		callCtx, cancel := context.WithTimeout(ctx, callTimeout)
		start := time.Now()

		cl, err := c.client(callCtx, ep)
		if err == nil {
			err = fn(callCtx, cl)
		}
		cancel()

		c.pool.Report(ep, err, time.Since(start))
		if err == nil {
			return nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return fmt.Errorf("rpc: chain %s: all endpoints failed: %w", chain, lastErr)
}

// GasPrice returns the chain's current gas price in wei.
func (c *Caller) GasPrice(ctx context.Context, chain string) (*big.Int, error) {
	var price *big.Int
	err := c.Do(ctx, chain, func(ctx context.Context, cl *ethclient.Client) error {
		p, err := cl.SuggestGasPrice(ctx)
		if err != nil {
			return err
		}
		price = p
		return nil
	})
	return price, err
}

// BlockNumber returns the chain's current block number.
func (c *Caller) BlockNumber(ctx context.Context, chain string) (uint64, error) {
	var n uint64
	err := c.Do(ctx, chain, func(ctx context.Context, cl *ethclient.Client) error {
		bn, err := cl.BlockNumber(ctx)
		if err != nil {
			return err
		}
		n = bn
		return nil
	})
	return n, err
}

// CallContract executes a read-only contract call on the chain.
func (c *Caller) CallContract(ctx context.Context, chain string, msg ethereum.CallMsg) ([]byte, error) {
	var out []byte
	err := c.Do(ctx, chain, func(ctx context.Context, cl *ethclient.Client) error {
		res, err := cl.CallContract(ctx, msg, nil)
		if err != nil {
			return err
		}
		out = res
		return nil
	})
	return out, err
}
