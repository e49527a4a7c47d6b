// Package mock is a scriptable [llm.Provider] that records what it was asked.
//
// The zero value answers every call with zero values. Set the response
// fields before use; read the call slices (or [Provider.Calls]) afterwards.
//
//	p := &mock.Provider{CompleteResponse: &llm.CompletionResponse{Content: "You see a door."}}
//	n, err := narrator.New(assembler, p)
package mock

import (
	"context"
	"slices"
	"sync"

	"github.com/MrWong99/dungeonmaster/pkg/provider/llm"
)

var _ llm.Provider = (*Provider)(nil)

// CompleteCall is one recorded Complete invocation.
type CompleteCall struct {
	Ctx context.Context
	Req llm.CompletionRequest
}

// CountTokensCall is one recorded CountTokens invocation. Messages is a copy.
type CountTokensCall struct {
	Messages []llm.Message
}

// Provider records calls under a mutex, so one instance can serve
// concurrent turns. The exported fields must not be written while calls
// are in flight.
type Provider struct {
	// CompleteFunc takes precedence over CompleteResponse and CompleteErr.
	CompleteFunc     func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error)
	CompleteResponse *llm.CompletionResponse
	CompleteErr      error

	TokenCount     int
	CountTokensErr error

	ModelCapabilities llm.ModelCapabilities

	mu                    sync.Mutex
	CompleteCalls         []CompleteCall
	CountTokensCalls      []CountTokensCall
	CapabilitiesCallCount int
}

// Complete implements [llm.Provider].
func (p *Provider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	p.mu.Lock()
	p.CompleteCalls = append(p.CompleteCalls, CompleteCall{Ctx: ctx, Req: req})
	fn := p.CompleteFunc
	p.mu.Unlock()

	// fn runs unlocked so it may call back into p.
	if fn != nil {
		return fn(ctx, req)
	}
	return p.CompleteResponse, p.CompleteErr
}

// CountTokens implements [llm.Provider].
func (p *Provider) CountTokens(messages []llm.Message) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.CountTokensCalls = append(p.CountTokensCalls, CountTokensCall{Messages: slices.Clone(messages)})
	return p.TokenCount, p.CountTokensErr
}

// Capabilities implements [llm.Provider].
func (p *Provider) Capabilities() llm.ModelCapabilities {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.CapabilitiesCallCount++
	return p.ModelCapabilities
}

// Calls returns a snapshot of the recorded Complete calls.
func (p *Provider) Calls() []CompleteCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.CompleteCalls)
}

// LastRequest returns the most recent CompletionRequest, or false when
// Complete has not been called.
func (p *Provider) LastRequest() (llm.CompletionRequest, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.CompleteCalls) == 0 {
		return llm.CompletionRequest{}, false
	}
	return p.CompleteCalls[len(p.CompleteCalls)-1].Req, true
}

// Reset forgets every recorded call. Responses are kept.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.CompleteCalls, p.CountTokensCalls, p.CapabilitiesCallCount = nil, nil, 0
}
