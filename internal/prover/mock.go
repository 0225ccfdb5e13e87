package prover

import (
	"context"

	"github.com/scroll-tech/sgx-prover/internal/scrolltypes"
)

// BlockSource supplies the witness for a contiguous L2 block range.
// Production prove() calls arrive with an already-assembled
// BatchWitness over the wire; mock/validate instead pull one from a
// live node or a fixture, since a developer invoking them has no
// witness in hand yet.
type BlockSource interface {
	BatchWitness(ctx context.Context, from, to uint64) (scrolltypes.BatchWitness, error)
}

// Mock builds a batch witness for [from, to] from source and runs it
// through the same six-step algorithm as Prove, returning a signed
// PoE. It exists so a developer can exercise C3/C4 against a real L2
// node's blocks without waiting on an attestor-submitted batch.
func (p *Prover) Mock(ctx context.Context, source BlockSource, from, to uint64) (scrolltypes.PoE, error) {
	witness, err := source.BatchWitness(ctx, from, to)
	if err != nil {
		return scrolltypes.PoE{}, err
	}
	p.Mu.Lock()
	defer p.Mu.Unlock()
	return p.prove(witness)
}

// BlockResult is one block's outcome from Validate.
type BlockResult struct {
	Number uint64
	OK     bool
	Err    string `json:",omitempty"`
}

// Validate re-executes count consecutive blocks starting at from, one
// single-block batch witness at a time, and reports which ones
// reproduce their claimed post-state root — a way to bisect a bad
// range of blocks without paying for a full signed PoE per block.
func (p *Prover) Validate(ctx context.Context, source BlockSource, from, count uint64) ([]BlockResult, error) {
	results := make([]BlockResult, 0, count)
	for n := from; n < from+count; n++ {
		witness, err := source.BatchWitness(ctx, n, n)
		if err != nil {
			return nil, err
		}
		p.Mu.Lock()
		_, proveErr := p.prove(witness)
		p.Mu.Unlock()

		res := BlockResult{Number: n, OK: proveErr == nil}
		if proveErr != nil {
			res.Err = proveErr.Error()
		}
		results = append(results, res)
	}
	return results, nil
}
